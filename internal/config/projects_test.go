package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestProjects_AddListSave(t *testing.T) {
	regPath := filepath.Join(t.TempDir(), "projects.toml")
	reg, err := LoadProjects(regPath)
	if err != nil {
		t.Fatalf("LoadProjects on missing file error: %v", err)
	}
	if len(reg.List()) != 0 {
		t.Fatalf("new registry has %d projects, want 0", len(reg.List()))
	}

	webDir := t.TempDir()
	apiDir := t.TempDir()
	added := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	if err := reg.Add("web", Project{Path: webDir, AddedAt: added}); err != nil {
		t.Fatalf("Add web: %v", err)
	}
	if err := reg.Add("api", Project{Path: apiDir, Provider: "anthropic", Agents: []string{"security"}, AddedAt: added}); err != nil {
		t.Fatalf("Add api: %v", err)
	}
	if err := reg.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	reloaded, err := LoadProjects(regPath)
	if err != nil {
		t.Fatalf("LoadProjects: %v", err)
	}
	want := []NamedProject{
		{Name: "api", Project: Project{Path: apiDir, Provider: "anthropic", Agents: []string{"security"}, AddedAt: added}},
		{Name: "web", Project: Project{Path: webDir, AddedAt: added}},
	}
	if diff := cmp.Diff(want, reloaded.List()); diff != "" {
		t.Errorf("List() after reload mismatch (-want +got):\n%s", diff)
	}
}

func TestProjects_AddErrors(t *testing.T) {
	reg, _ := LoadProjects(filepath.Join(t.TempDir(), "projects.toml"))
	dir := t.TempDir()

	if err := reg.Add("bad name", Project{Path: dir}); err == nil {
		t.Error("Add should reject a name with spaces")
	}
	if err := reg.Add("missing", Project{Path: filepath.Join(dir, "nope")}); err == nil {
		t.Error("Add should reject a missing path")
	}
	file := filepath.Join(dir, "file.txt")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := reg.Add("file", Project{Path: file}); err == nil {
		t.Error("Add should reject a regular file")
	}
	if err := reg.Add("ok", Project{Path: dir}); err != nil {
		t.Fatalf("Add ok: %v", err)
	}
	if err := reg.Add("ok", Project{Path: dir}); !errors.Is(err, ErrProjectExists) {
		t.Errorf("duplicate Add error = %v, want ErrProjectExists", err)
	}
}

func TestProjects_AddMakesPathAbsolute(t *testing.T) {
	dir := t.TempDir()
	if err := os.Mkdir(filepath.Join(dir, "repo"), 0o755); err != nil {
		t.Fatal(err)
	}
	t.Chdir(dir)

	reg, _ := LoadProjects(filepath.Join(t.TempDir(), "projects.toml"))
	if err := reg.Add("repo", Project{Path: "repo"}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	p, err := reg.Get("repo")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !filepath.IsAbs(p.Path) {
		t.Errorf("Path = %q, want absolute", p.Path)
	}
	if p.AddedAt.IsZero() {
		t.Error("AddedAt should be set")
	}
	if !p.Exists() {
		t.Error("Exists() = false for a present directory")
	}
}

func TestProjects_RemoveGet(t *testing.T) {
	reg, _ := LoadProjects(filepath.Join(t.TempDir(), "projects.toml"))
	if err := reg.Add("one", Project{Path: t.TempDir()}); err != nil {
		t.Fatal(err)
	}
	if err := reg.Remove("one"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, err := reg.Get("one"); !errors.Is(err, ErrProjectNotFound) {
		t.Errorf("Get after Remove error = %v, want ErrProjectNotFound", err)
	}
	if err := reg.Remove("one"); !errors.Is(err, ErrProjectNotFound) {
		t.Errorf("second Remove error = %v, want ErrProjectNotFound", err)
	}
}

func TestProject_Apply(t *testing.T) {
	cfg := Default()
	Project{Model: "gpt-4o", Agents: []string{"junior"}}.Apply(&cfg)
	if cfg.LLM.Provider != "openai" {
		t.Errorf("Provider = %q, want untouched", cfg.LLM.Provider)
	}
	if cfg.LLM.Model != "gpt-4o" {
		t.Errorf("Model = %q, want gpt-4o", cfg.LLM.Model)
	}
	if diff := cmp.Diff([]string{"junior"}, cfg.Review.DefaultAgents); diff != "" {
		t.Errorf("agents mismatch (-want +got):\n%s", diff)
	}
}

func TestProjectsPath(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg-test")
	p, err := ProjectsPath()
	if err != nil {
		t.Fatal(err)
	}
	if p != "/tmp/xdg-test/code-sherpa/projects.toml" {
		t.Errorf("ProjectsPath = %q", p)
	}
}
