package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"

	"mercator-hq/conditional/pkg/cli"
)

// setupGit commits the definitions to a fresh repository and returns a
// config that reads them from it.
func setupGit(t *testing.T, definitions string) string {
	t.Helper()
	dir := t.TempDir()
	src := filepath.Join(dir, "source")

	repo, err := gogit.PlainInit(src, false)
	if err != nil {
		t.Fatalf("PlainInit() error = %v", err)
	}
	if err := os.MkdirAll(filepath.Join(src, "prod"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(src, "prod", "conditions.yaml"), []byte(definitions), 0o644); err != nil {
		t.Fatal(err)
	}
	worktree, err := repo.Worktree()
	if err != nil {
		t.Fatal(err)
	}
	if _, err := worktree.Add("prod/conditions.yaml"); err != nil {
		t.Fatal(err)
	}
	if _, err := worktree.Commit("definitions", &gogit.CommitOptions{
		Author: &object.Signature{Name: "Test User", Email: "test@example.com", When: time.Now()},
	}); err != nil {
		t.Fatal(err)
	}

	cfg := `
definitions:
  git:
    repository: ` + src + `
    branch: master
    file: prod/conditions.yaml
    local_path: ` + filepath.Join(dir, "clone") + `
journal:
  enabled: false
telemetry:
  logging:
    level: error
`
	cfgPath := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(cfgPath, []byte(cfg), 0o644); err != nil {
		t.Fatal(err)
	}
	return cfgPath
}

func TestEval_GitDefinitions(t *testing.T) {
	cfgPath := setupGit(t, testDefinitions)

	out, err := execute(t, "eval", "is-admin", "--config", cfgPath)
	if code := cli.ExitCode(err); code != exitTrue {
		t.Fatalf("exit code = %d (err %v), want %d; output:\n%s", code, err, exitTrue, out)
	}
	if !strings.Contains(out, "is-admin: true") {
		t.Errorf("output = %q", out)
	}
}

func TestValidate_GitDefinitions(t *testing.T) {
	cfgPath := setupGit(t, testDefinitions)

	out, err := execute(t, "validate", "--config", cfgPath)
	if err != nil {
		t.Fatalf("validate error = %v; output:\n%s", err, out)
	}
	for _, name := range []string{"is-admin", "big-enough", "broken"} {
		if !strings.Contains(out, name) {
			t.Errorf("output missing %q:\n%s", name, out)
		}
	}
}
