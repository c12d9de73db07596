package main

import (
	"bytes"
	"strings"
	"testing"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	app := newApp()
	var out bytes.Buffer
	app.Writer = &out
	app.ErrWriter = &out
	err := app.Run(append([]string{"lt"}, args...))
	return out.String(), err
}

func TestCommands(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"inspect cornell", []string{"inspect", "cornell"}},
		{"inspect uniform", []string{"inspect", "--strategy", "uniform", "cornell"}},
		{"estimate", []string{"estimate", "--point", "100,0,450", "--spp", "16", "cornell"}},
		{"trace", []string{"trace", "--origin", "0.1,5,0.2", "--dir", "0,-1,0", "--spp", "4", "nested-media"}},
		{"filter", []string{"filter", "--impl", "lanczos", "--samples", "1000"}},
		{"verbose", []string{"-v", "filter", "--impl", "box", "--radius", "0.5", "--samples", "10"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := run(t, tt.args...); err != nil {
				t.Errorf("lt %s: %v", strings.Join(tt.args, " "), err)
			}
		})
	}
}

func TestList(t *testing.T) {
	out, err := run(t, "list", "--dir", t.TempDir())
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	for _, want := range []string{"cornell", "nested-media", "Cornell Box"} {
		if !strings.Contains(out, want) {
			t.Errorf("list output is missing %q:\n%s", want, out)
		}
	}
}

func TestInspectInstances(t *testing.T) {
	out, err := run(t, "inspect", "--instances", "cornell")
	if err != nil {
		t.Fatalf("inspect failed: %v", err)
	}
	// the tall box is rotated about y and moved to (265, 0, 295)
	for _, want := range []string{"tall_box", "short_box", " 265", " 295", "Row 2"} {
		if !strings.Contains(out, want) {
			t.Errorf("inspect output is missing %q:\n%s", want, out)
		}
	}
}

func TestCommandErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"missing scene", []string{"inspect"}},
		{"unknown scene", []string{"inspect", "teapot"}},
		{"bad strategy", []string{"inspect", "--strategy", "brightest", "cornell"}},
		{"bad point", []string{"estimate", "--point", "1,2", "cornell"}},
		{"bad filter", []string{"filter", "--impl", "sinc"}},
		{"bad radius", []string{"filter", "--radius", "-1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := run(t, tt.args...); err == nil {
				t.Errorf("lt %s: expected an error", strings.Join(tt.args, " "))
			}
		})
	}
}
