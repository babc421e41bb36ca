// Package dom parses HTML into a tree of event targets.
//
// Parsing uses golang.org/x/net/html; XPath lookups use antchfx/htmlquery on
// the same underlying nodes. Every node is an *events.Target whose parent is
// its parent node, so DispatchEvent on a node runs capture from the document
// down and bubble back up.
package dom

import (
	"io"
	"strings"

	"github.com/antchfx/htmlquery"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/chrisuehlinger/evtarget/events"
)

// Document is a parsed HTML document.
type Document struct {
	root   *Node
	nodes  map[*html.Node]*Node
	logger *zap.Logger
}

type options struct {
	maxAncestors int
	keys         *events.KeyGenerator
	logger       *zap.Logger
}

// Option configures Parse.
type Option func(*options)

// WithMaxAncestors sets the ancestor ceiling of every node's target.
func WithMaxAncestors(n int) Option {
	return func(o *options) { o.maxAncestors = n }
}

// WithKeys sets the key generator shared by every node's registry.
func WithKeys(keys *events.KeyGenerator) Option {
	return func(o *options) { o.keys = keys }
}

// WithLogger sets the logger passed to every node's target.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// Parse reads HTML from r and builds the node tree.
func Parse(r io.Reader, opts ...Option) (*Document, error) {
	o := options{
		maxAncestors: events.DefaultMaxAncestors,
		keys:         events.DefaultKeys,
		logger:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	raw, err := html.Parse(r)
	if err != nil {
		return nil, errors.Wrap(err, "parse html")
	}

	d := &Document{
		nodes:  make(map[*html.Node]*Node),
		logger: o.logger.Named("dom"),
	}
	d.root = d.build(raw, nil, &o)
	d.logger.Debug("Parsed document", zap.Int("nodes", len(d.nodes)))
	return d, nil
}

// ParseString is Parse over a string.
func ParseString(s string, opts ...Option) (*Document, error) {
	return Parse(strings.NewReader(s), opts...)
}

func (d *Document) build(raw *html.Node, parent *Node, o *options) *Node {
	n := &Node{raw: raw, doc: d, parent: parent}
	n.Target = events.NewTarget(
		events.WithOwner(n),
		events.WithKeys(o.keys),
		events.WithMaxAncestors(o.maxAncestors),
		events.WithLogger(o.logger),
	)
	if parent != nil {
		n.SetParentEventTarget(parent)
	}
	d.nodes[raw] = n

	for c := raw.FirstChild; c != nil; c = c.NextSibling {
		n.children = append(n.children, d.build(c, n, o))
	}
	return n
}

// Root returns the document node.
func (d *Document) Root() *Node { return d.root }

// Len returns the number of nodes in the document.
func (d *Document) Len() int { return len(d.nodes) }

// Node returns the node built for raw, or nil.
func (d *Document) Node(raw *html.Node) *Node { return d.nodes[raw] }

// Query returns the first node matching the XPath expression, or nil.
func (d *Document) Query(expr string) (*Node, error) {
	raw, err := htmlquery.Query(d.root.raw, expr)
	if err != nil {
		return nil, errors.Wrapf(err, "query %q", expr)
	}
	if raw == nil {
		return nil, nil
	}
	return d.nodes[raw], nil
}

// QueryAll returns every node matching the XPath expression.
func (d *Document) QueryAll(expr string) ([]*Node, error) {
	raws, err := htmlquery.QueryAll(d.root.raw, expr)
	if err != nil {
		return nil, errors.Wrapf(err, "query %q", expr)
	}
	result := make([]*Node, 0, len(raws))
	for _, raw := range raws {
		if n, ok := d.nodes[raw]; ok {
			result = append(result, n)
		}
	}
	return result, nil
}

// Walk calls fn for every node in document order until fn returns false.
func (d *Document) Walk(fn func(*Node) bool) {
	var walk func(*Node) bool
	walk = func(n *Node) bool {
		if !fn(n) {
			return false
		}
		for _, c := range n.children {
			if !walk(c) {
				return false
			}
		}
		return true
	}
	walk(d.root)
}

// Dispose removes every listener in the document and detaches the nodes from
// one another's dispatch paths.
func (d *Document) Dispose() {
	d.Walk(func(n *Node) bool {
		n.Dispose()
		return true
	})
}
