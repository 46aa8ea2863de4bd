package git

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"

	"mercator-hq/conditional/pkg/config"
)

const document = `conditions:
  - name: always
    root:
      predicate: "true"
`

// source is an upstream repository the tests commit to.
type source struct {
	t    *testing.T
	dir  string
	repo *gogit.Repository
}

func newSource(t *testing.T) *source {
	t.Helper()
	dir := t.TempDir()
	repo, err := gogit.PlainInit(dir, false)
	if err != nil {
		t.Fatalf("PlainInit() error = %v", err)
	}
	s := &source{t: t, dir: dir, repo: repo}
	s.commit("initial", map[string]string{"conditions.yaml": document})
	return s
}

func (s *source) commit(message string, files map[string]string) string {
	s.t.Helper()
	worktree, err := s.repo.Worktree()
	if err != nil {
		s.t.Fatalf("Worktree() error = %v", err)
	}
	for name, content := range files {
		path := filepath.Join(s.dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			s.t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			s.t.Fatal(err)
		}
		if _, err := worktree.Add(name); err != nil {
			s.t.Fatalf("Add(%s) error = %v", name, err)
		}
	}
	hash, err := worktree.Commit(message, &gogit.CommitOptions{
		Author: &object.Signature{Name: "Test User", Email: "test@example.com", When: time.Now()},
	})
	if err != nil {
		s.t.Fatalf("Commit() error = %v", err)
	}
	return hash.String()
}

func (s *source) config(t *testing.T) *config.GitConfig {
	return &config.GitConfig{
		Repository: s.dir,
		// go-git initializes repositories on master.
		Branch:    "master",
		File:      "conditions.yaml",
		LocalPath: filepath.Join(t.TempDir(), "clone"),
		Timeout:   10 * time.Second,
	}
}

func cloned(t *testing.T, cfg *config.GitConfig) *Repository {
	t.Helper()
	repo, err := NewRepository(cfg)
	if err != nil {
		t.Fatalf("NewRepository() error = %v", err)
	}
	if err := repo.Clone(context.Background()); err != nil {
		t.Fatalf("Clone() error = %v", err)
	}
	return repo
}

func TestNewRepository(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *config.GitConfig
		wantErr bool
	}{
		{name: "nil config", wantErr: true},
		{name: "no repository", cfg: &config.GitConfig{Branch: "main", LocalPath: "x"}, wantErr: true},
		{name: "no branch", cfg: &config.GitConfig{Repository: "r", LocalPath: "x"}, wantErr: true},
		{name: "no local path", cfg: &config.GitConfig{Repository: "r", Branch: "main"}, wantErr: true},
		{name: "bad auth", cfg: &config.GitConfig{Repository: "r", Branch: "main", LocalPath: "x", Auth: config.GitAuthConfig{Type: "kerberos"}}, wantErr: true},
		{name: "valid", cfg: &config.GitConfig{Repository: "r", Branch: "main", LocalPath: "x"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRepository(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewRepository() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestRepository_CloneAndHead(t *testing.T) {
	src := newSource(t)
	cfg := src.config(t)
	repo := cloned(t, cfg)

	head, err := repo.Head()
	if err != nil {
		t.Fatalf("Head() error = %v", err)
	}
	srcHead, _ := src.repo.Head()
	if head.SHA != srcHead.Hash().String() {
		t.Errorf("Head().SHA = %s, want %s", head.SHA, srcHead.Hash())
	}
	if head.Author != "Test User" || head.Message != "initial" {
		t.Errorf("Head() = %+v", head)
	}
	if len(head.Short()) != 8 {
		t.Errorf("Short() = %q, want 8 characters", head.Short())
	}

	data, err := os.ReadFile(repo.DocumentPath())
	if err != nil {
		t.Fatalf("document not checked out: %v", err)
	}
	if string(data) != document {
		t.Errorf("document = %q", data)
	}

	// A second repository on the same path opens the existing clone.
	if _, err := cloned(t, cfg).Head(); err != nil {
		t.Errorf("reopened Head() error = %v", err)
	}
}

func TestRepository_CloneMissingSource(t *testing.T) {
	repo, err := NewRepository(&config.GitConfig{
		Repository: filepath.Join(t.TempDir(), "missing"),
		Branch:     "master",
		LocalPath:  filepath.Join(t.TempDir(), "clone"),
		Timeout:    5 * time.Second,
	})
	if err != nil {
		t.Fatalf("NewRepository() error = %v", err)
	}
	if err := repo.Clone(context.Background()); err == nil {
		t.Error("Clone() of a missing repository should fail")
	}
}

func TestRepository_NotCloned(t *testing.T) {
	repo, err := NewRepository(&config.GitConfig{Repository: "r", Branch: "main", LocalPath: t.TempDir()})
	if err != nil {
		t.Fatalf("NewRepository() error = %v", err)
	}
	if _, err := repo.Head(); !errors.Is(err, ErrNotCloned) {
		t.Errorf("Head() error = %v, want ErrNotCloned", err)
	}
	if _, err := repo.Pull(context.Background()); !errors.Is(err, ErrNotCloned) {
		t.Errorf("Pull() error = %v, want ErrNotCloned", err)
	}
}

func TestRepository_Pull(t *testing.T) {
	src := newSource(t)
	repo := cloned(t, src.config(t))

	result, err := repo.Pull(context.Background())
	if err != nil {
		t.Fatalf("Pull() error = %v", err)
	}
	if result.HadChanges() {
		t.Errorf("Pull() right after clone reported changes: %+v", result)
	}

	sha := src.commit("add readme", map[string]string{"docs/README.md": "hello"})
	result, err = repo.Pull(context.Background())
	if err != nil {
		t.Fatalf("Pull() error = %v", err)
	}
	if !result.HadChanges() || result.To != sha {
		t.Fatalf("Pull() = %+v, want HEAD at %s", result, sha)
	}
	if len(result.Changed) != 1 || result.Changed[0] != "docs/README.md" {
		t.Errorf("Changed = %v, want [docs/README.md]", result.Changed)
	}
	if repo.Touches(result.Changed) {
		t.Error("Touches() = true for a commit that leaves the document alone")
	}
	if !repo.Touches([]string{"./conditions.yaml"}) {
		t.Error("Touches() should match the document path")
	}
}
