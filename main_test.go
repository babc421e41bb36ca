package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const testPage = `<html><body><div id="menu"><button class="primary">Save</button></div></body></html>`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	return path
}

func TestRun_Trace(t *testing.T) {
	dir := t.TempDir()
	page := writeFile(t, dir, "page.html", testPage)
	var stdout, stderr bytes.Buffer

	err := run([]string{
		"-config", filepath.Join(dir, "none.yaml"),
		"-type", "click",
		"-at", "//button",
		page,
	}, &stdout, &stderr)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	want := "" +
		"capturing  #document\n" +
		"capturing  html\n" +
		"capturing  body\n" +
		"capturing  div#menu\n" +
		"at-target  button.primary\n" +
		"at-target  button.primary\n" +
		"bubbling   div#menu\n" +
		"bubbling   body\n" +
		"bubbling   html\n" +
		"bubbling   #document\n" +
		"result     true\n"
	if got := stdout.String(); got != want {
		t.Errorf("Unexpected trace:\n%s\nwant:\n%s", got, want)
	}
}

func TestRun_ScriptCanStopAndPrevent(t *testing.T) {
	dir := t.TempDir()
	page := writeFile(t, dir, "page.html", testPage)
	script := writeFile(t, dir, "page.js", `
		query("//div").addEventListener("click", function(e) {
			e.stopPropagation();
			e.preventDefault();
		});
	`)
	var stdout, stderr bytes.Buffer

	err := run([]string{
		"-config", filepath.Join(dir, "none.yaml"),
		"-script", script,
		"-at", "//button",
		page,
	}, &stdout, &stderr)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	out := stdout.String()
	if !strings.Contains(out, "bubbling   div#menu\n") {
		t.Errorf("Expected the div bubble visit, got:\n%s", out)
	}
	if strings.Contains(out, "bubbling   body\n") {
		t.Errorf("Propagation should stop at the div, got:\n%s", out)
	}
	if !strings.Contains(out, "result     false\n") {
		t.Errorf("Expected false result, got:\n%s", out)
	}
}

func TestRun_ConfigCeiling(t *testing.T) {
	dir := t.TempDir()
	page := writeFile(t, dir, "page.html", testPage)
	cfg := writeFile(t, dir, "cfg.yaml", "events:\n  max_ancestors: 1\n")
	var stdout, stderr bytes.Buffer

	defer func() {
		if recover() == nil {
			t.Error("Expected dispatch past the configured ceiling to panic")
		}
	}()
	_ = run([]string{"-config", cfg, "-at", "//button", page}, &stdout, &stderr)
}

func TestRun_Errors(t *testing.T) {
	dir := t.TempDir()
	page := writeFile(t, dir, "page.html", testPage)
	noConfig := filepath.Join(dir, "none.yaml")

	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{"no page", []string{"-config", noConfig}, "expected exactly one page"},
		{"missing page", []string{"-config", noConfig, filepath.Join(dir, "absent.html")}, "open page"},
		{"no match", []string{"-config", noConfig, "-at", "//table", page}, "no node matches"},
		{"bad xpath", []string{"-config", noConfig, "-at", "//[", page}, "query"},
		{"missing script", []string{"-config", noConfig, "-script", filepath.Join(dir, "absent.js"), page}, "read script"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			err := run(tt.args, &stdout, &stderr)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}
