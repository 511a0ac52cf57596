package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
)

// Document is a report that knows its markdown form. JSON output encodes the
// value itself.
type Document interface {
	Markdown() string
}

// WriteDocument writes doc to outPath, or stdout when empty, in format.
// Console output is the markdown rendered with glamour when color is on and
// the raw markdown otherwise.
func WriteDocument(doc Document, format, outPath string, opts Options) error {
	var w io.Writer = os.Stdout
	if outPath != "" {
		opts.Color = false
		f, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("creating output file: %w", err)
		}
		defer f.Close()
		w = f
	}
	return RenderDocument(w, doc, format, opts)
}

// RenderDocument writes doc to w in format.
func RenderDocument(w io.Writer, doc Document, format string, opts Options) error {
	var text string
	switch format {
	case "json":
		data, err := json.MarshalIndent(doc, "", "  ")
		if err != nil {
			return fmt.Errorf("marshaling JSON: %w", err)
		}
		text = string(data) + "\n"
	case "markdown", "md":
		text = doc.Markdown()
	case "console", "":
		text = renderMarkdown(doc.Markdown(), opts)
	default:
		return fmt.Errorf("unsupported output format: %s", format)
	}
	if _, err := io.WriteString(w, text); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}
	return nil
}

func renderMarkdown(md string, opts Options) string {
	if !opts.Color {
		return md
	}
	width := opts.Width
	if width <= 0 {
		width = defaultWidth
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(min(width, 100)),
	)
	if err != nil {
		return md
	}
	out, err := r.Render(md)
	if err != nil {
		return md
	}
	return strings.TrimRight(out, "\n") + "\n"
}
