package prompt

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"text/template"
)

//go:embed templates/*/*.tmpl
var templateFS embed.FS

const ext = ".tmpl"

// ErrTemplateNotFound is returned by Load for an unknown template name.
var ErrTemplateNotFound = errors.New("prompt template not found")

// Load renders the named template with vars.
func Load(name string, vars map[string]any) (string, error) {
	src, err := templateFS.ReadFile(path.Join("templates", name+ext))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", ErrTemplateNotFound, name)
		}
		return "", fmt.Errorf("reading prompt %s: %w", name, err)
	}

	tmpl, err := template.New(name).Option("missingkey=error").Parse(string(src))
	if err != nil {
		return "", fmt.Errorf("parsing prompt %s: %w", name, err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, vars); err != nil {
		return "", fmt.Errorf("rendering prompt %s: %w", name, err)
	}
	return buf.String(), nil
}

// Names returns every embedded template name, sorted.
func Names() []string {
	var names []string
	fs.WalkDir(templateFS, "templates", func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !strings.HasSuffix(p, ext) {
			return err
		}
		names = append(names, strings.TrimSuffix(strings.TrimPrefix(p, "templates/"), ext))
		return nil
	})
	sort.Strings(names)
	return names
}
