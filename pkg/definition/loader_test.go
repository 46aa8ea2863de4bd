package definition

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const sampleDocument = `
state:
  role: admin
  load: 0.5
conditions:
  - name: can-deploy
    description: admins under load
    root:
      alias: deploy
      all:
        - predicate: state.equals
          args: {key: role, value: admin}
        - predicate: jsonlogic
          async: true
          timeout: 200ms
          args:
            rule: {"<": [{"var": "load"}, 0.8]}
  - name: any-flag
    root:
      any:
        - predicate: state.truthy
          args: {key: flag}
        - predicate: sleep
          delay: 10ms
          args: {duration: 5ms, value: true}
`

func TestParse(t *testing.T) {
	doc, err := Parse([]byte(sampleDocument))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if len(doc.Conditions) != 2 {
		t.Fatalf("len(Conditions) = %d, want 2", len(doc.Conditions))
	}
	if doc.State["role"] != "admin" {
		t.Errorf("State[role] = %v, want admin", doc.State["role"])
	}

	deploy := doc.Conditions[0].Root
	if deploy.Alias != "deploy" || len(deploy.All) != 2 {
		t.Errorf("root = %+v", deploy)
	}
	if got := deploy.All[1].Timeout; got != 200*time.Millisecond {
		t.Errorf("timeout = %v, want 200ms", got)
	}
	if !deploy.All[1].Async {
		t.Error("jsonlogic node should be async")
	}
	if got := doc.Conditions[1].Root.Any[1].Delay; got != 10*time.Millisecond {
		t.Errorf("delay = %v, want 10ms", got)
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{name: "unknown field", doc: "conditions:\n  - name: x\n    rooot: {predicate: \"true\"}\n"},
		{name: "bad duration", doc: "conditions:\n  - name: x\n    root: {predicate: \"true\", delay: soon}\n"},
		{name: "invalid yaml", doc: "conditions: [\n"},
		{name: "invalid utf8", doc: "state: {a: \"\xff\"}\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			var parseErr *ParseError
			if !errors.As(err, &parseErr) {
				t.Errorf("Parse() error = %v, want *ParseError", err)
			}
		})
	}
}

func TestParse_Empty(t *testing.T) {
	doc, err := Parse(nil)
	if err != nil {
		t.Fatalf("Parse(nil) error = %v", err)
	}
	if len(doc.Conditions) != 0 {
		t.Errorf("len(Conditions) = %d, want 0", len(doc.Conditions))
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "conditions.yaml")
	if err := os.WriteFile(path, []byte(sampleDocument), 0o644); err != nil {
		t.Fatal(err)
	}

	doc, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(doc.Conditions) != 2 {
		t.Errorf("len(Conditions) = %d, want 2", len(doc.Conditions))
	}

	var loadErr *LoadError
	if _, err := Load(filepath.Join(dir, "missing.yaml")); !errors.As(err, &loadErr) || loadErr.Message != "file not found" {
		t.Errorf("Load(missing) error = %v, want file not found", err)
	}
	if _, err := Load(dir); !errors.As(err, &loadErr) || loadErr.Message != "not a regular file" {
		t.Errorf("Load(dir) error = %v, want not a regular file", err)
	}

	broken := filepath.Join(dir, "broken.yaml")
	if err := os.WriteFile(broken, []byte("conditions: ["), 0o644); err != nil {
		t.Fatal(err)
	}
	var parseErr *ParseError
	if _, err := Load(broken); !errors.As(err, &parseErr) || !strings.Contains(err.Error(), broken) {
		t.Errorf("Load(broken) error = %v, want ParseError naming the file", err)
	}
}
