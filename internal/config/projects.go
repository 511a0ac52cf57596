package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Project is a registered repository with optional settings that override
// the global config when it is reviewed with --project.
type Project struct {
	Path     string    `toml:"path"`
	Provider string    `toml:"provider,omitempty"`
	Model    string    `toml:"model,omitempty"`
	Agents   []string  `toml:"agents,omitempty"`
	AddedAt  time.Time `toml:"added_at"`
}

// NamedProject pairs a project with its registry name.
type NamedProject struct {
	Name string
	Project
}

// Exists reports whether the project path is still present on disk.
func (p Project) Exists() bool {
	info, err := os.Stat(p.Path)
	return err == nil && info.IsDir()
}

// Apply overlays the project's overrides onto cfg.
func (p Project) Apply(cfg *Config) {
	if p.Provider != "" {
		cfg.LLM.Provider = p.Provider
	}
	if p.Model != "" {
		cfg.LLM.Model = p.Model
	}
	if len(p.Agents) > 0 {
		cfg.Review.DefaultAgents = slices.Clone(p.Agents)
	}
}

var (
	ErrProjectExists   = errors.New("project already registered")
	ErrProjectNotFound = errors.New("project not found")
)

var projectNameRe = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// Projects is the name to project registry stored in projects.toml.
type Projects struct {
	path    string
	entries map[string]Project
}

type projectsFile struct {
	Projects map[string]Project `toml:"projects"`
}

// ProjectsPath returns the registry location inside [ConfigDir].
func ProjectsPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "projects.toml"), nil
}

// LoadProjects reads the registry at path. A missing file yields an empty
// registry that [Projects.Save] will create.
func LoadProjects(path string) (*Projects, error) {
	p := &Projects{path: path, entries: map[string]Project{}}
	var f projectsFile
	if _, err := toml.DecodeFile(path, &f); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return p, nil
		}
		return nil, fmt.Errorf("reading project registry: %w", err)
	}
	for name, proj := range f.Projects {
		p.entries[name] = proj
	}
	return p, nil
}

// Add registers a project. The path must be an existing directory and is
// stored in absolute form.
func (p *Projects) Add(name string, proj Project) error {
	if !projectNameRe.MatchString(name) {
		return fmt.Errorf("invalid project name %q", name)
	}
	if _, ok := p.entries[name]; ok {
		return fmt.Errorf("%s: %w", name, ErrProjectExists)
	}
	abs, err := filepath.Abs(proj.Path)
	if err != nil {
		return fmt.Errorf("resolving project path: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return fmt.Errorf("project path: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("project path %s is not a directory", abs)
	}
	proj.Path = abs
	if proj.AddedAt.IsZero() {
		proj.AddedAt = time.Now().UTC().Truncate(time.Second)
	}
	p.entries[name] = proj
	return nil
}

// Remove unregisters a project.
func (p *Projects) Remove(name string) error {
	if _, ok := p.entries[name]; !ok {
		return fmt.Errorf("%s: %w", name, ErrProjectNotFound)
	}
	delete(p.entries, name)
	return nil
}

// Get looks up a project by name.
func (p *Projects) Get(name string) (Project, error) {
	proj, ok := p.entries[name]
	if !ok {
		return Project{}, fmt.Errorf("%s: %w", name, ErrProjectNotFound)
	}
	return proj, nil
}

// List returns every project sorted by name.
func (p *Projects) List() []NamedProject {
	out := make([]NamedProject, 0, len(p.entries))
	for name, proj := range p.entries {
		out = append(out, NamedProject{Name: name, Project: proj})
	}
	slices.SortFunc(out, func(a, b NamedProject) int {
		return strings.Compare(a.Name, b.Name)
	})
	return out
}

// Save writes the registry back to its file.
func (p *Projects) Save() error {
	if err := os.MkdirAll(filepath.Dir(p.path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	f, err := os.Create(p.path)
	if err != nil {
		return fmt.Errorf("writing project registry: %w", err)
	}
	defer f.Close()
	if err := toml.NewEncoder(f).Encode(projectsFile{Projects: p.entries}); err != nil {
		return fmt.Errorf("encoding project registry: %w", err)
	}
	return f.Close()
}
