// Command evtarget parses an HTML page, dispatches one event on a node and
// prints the capture and bubble path the event took.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/chrisuehlinger/evtarget/config"
	"github.com/chrisuehlinger/evtarget/dom"
	"github.com/chrisuehlinger/evtarget/events"
	"github.com/chrisuehlinger/evtarget/handlers"
	"github.com/chrisuehlinger/evtarget/js"
)

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type options struct {
	configPath string
	envPath    string
	eventType  string
	at         string
	script     string
	page       string
}

func parseFlags(args []string, stderr io.Writer) (*options, error) {
	fs := flag.NewFlagSet("evtarget", flag.ContinueOnError)
	fs.SetOutput(stderr)

	o := &options{}
	fs.StringVar(&o.configPath, "config", "evtarget.yaml", "Path to YAML config")
	fs.StringVar(&o.envPath, "env", "", "Optional .env file applied before the environment")
	fs.StringVar(&o.eventType, "type", "click", "Event type to dispatch")
	fs.StringVar(&o.at, "at", "//body", "XPath of the node to dispatch on")
	fs.StringVar(&o.script, "script", "", "Optional JavaScript file run before dispatch")
	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: evtarget [options] <page.html>\n\nOptions:\n")
		fs.PrintDefaults()
		fmt.Fprintf(stderr, "\nExample:\n  evtarget -type click -at //button page.html\n")
	}

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return nil, errors.New("expected exactly one page")
	}
	o.page = fs.Arg(0)
	return o, nil
}

func run(args []string, stdout, stderr io.Writer) error {
	o, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(o)
	if err != nil {
		return err
	}
	logger, err := cfg.NewLogger()
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	f, err := os.Open(o.page)
	if err != nil {
		return errors.Wrap(err, "open page")
	}
	defer f.Close()

	doc, err := dom.Parse(f,
		dom.WithMaxAncestors(cfg.Events.MaxAncestors),
		dom.WithLogger(logger),
	)
	if err != nil {
		return err
	}
	defer doc.Dispose()

	if o.script != "" {
		code, err := os.ReadFile(o.script)
		if err != nil {
			return errors.Wrap(err, "read script")
		}
		rt := newScriptRuntime(doc, logger)
		if err := rt.ExecuteScript(string(code), o.script); err != nil {
			return err
		}
	}

	node, err := doc.Query(o.at)
	if err != nil {
		return err
	}
	if node == nil {
		return errors.Errorf("no node matches %s", o.at)
	}

	return trace(stdout, node, o.eventType, logger)
}

func loadConfig(o *options) (*config.Config, error) {
	if o.envPath != "" {
		if err := config.LoadEnvFile(o.envPath); err != nil {
			return nil, err
		}
	}
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// trace listens for typ in both phases on every node of target's path,
// dispatches once and prints each visit. The tracing listeners are removed
// before returning.
func trace(w io.Writer, target *dom.Node, typ string, logger *zap.Logger) error {
	group := handlers.New(w, handlers.WithLogger(logger))
	defer group.Close()

	visit := events.ReceiverFunc(func(e *events.Event, receiver any) bool {
		current := e.CurrentTarget.(*dom.Node)
		fmt.Fprintf(receiver.(io.Writer), "%-10s %s\n", e.Phase, current.Label())
		return true
	})

	for _, n := range target.Path() {
		if _, err := group.Listen(events.Hierarchical(n), typ, visit, events.Capture()); err != nil {
			return err
		}
		if _, err := group.Listen(events.Hierarchical(n), typ, visit); err != nil {
			return err
		}
	}

	result := target.DispatchEvent(events.New(typ))
	fmt.Fprintf(w, "result     %t\n", result)
	return nil
}

// newScriptRuntime exposes the document to a script: query(xpath) returns the
// matching node as an event target object.
func newScriptRuntime(doc *dom.Document, logger *zap.Logger) *js.Runtime {
	rt := js.NewRuntime(js.WithLogger(logger))
	vm := rt.VM()
	objects := make(map[*dom.Node]any)

	vm.Set("query", func(xpath string) any {
		n, err := doc.Query(xpath)
		if err != nil {
			panic(vm.NewGoError(err))
		}
		if n == nil {
			return nil
		}
		if obj, ok := objects[n]; ok {
			return obj
		}
		obj := vm.NewObject()
		obj.Set("name", n.Name())
		obj.Set("label", n.Label())
		rt.Binder().BindTarget(obj, n)
		objects[n] = obj
		return obj
	})
	return rt
}
