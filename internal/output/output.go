package output

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/term"

	"github.com/dshills/sherpa/internal/review"
)

// Writer writes a review result in a specific format.
type Writer interface {
	Write(w io.Writer, result *review.Result) error
}

// Options tunes the console writer. The other formats ignore it.
type Options struct {
	Color bool
	Width int
}

const defaultWidth = 80

// DetectOptions reports whether f is a terminal that should get color and
// how wide it is. Color is only used when colorEnabled is set and NO_COLOR is
// unset.
func DetectOptions(f *os.File, colorEnabled bool) Options {
	opts := Options{Width: defaultWidth}
	fd := int(f.Fd())
	if !term.IsTerminal(fd) {
		return opts
	}
	if w, _, err := term.GetSize(fd); err == nil && w > 0 {
		opts.Width = w
	}
	opts.Color = colorEnabled && os.Getenv("NO_COLOR") == ""
	return opts
}

// GetWriter returns a writer for the specified format.
func GetWriter(format string, opts Options) (Writer, error) {
	switch format {
	case "console", "":
		return NewConsoleWriter(opts), nil
	case "json":
		return &JSONWriter{}, nil
	case "markdown", "md":
		return &MarkdownWriter{}, nil
	default:
		return nil, fmt.Errorf("unsupported output format: %s", format)
	}
}

// WriteReport writes the result to the specified output (file path or stdout).
// Console output written to a file never carries color.
func WriteReport(result *review.Result, format, outPath string, opts Options) error {
	var w io.Writer
	if outPath != "" {
		opts.Color = false
		f, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("creating output file: %w", err)
		}
		defer f.Close()
		w = f
	} else {
		w = os.Stdout
	}

	writer, err := GetWriter(format, opts)
	if err != nil {
		return err
	}
	return writer.Write(w, result)
}

// ReportName returns the file name used for a saved report.
func ReportName(result *review.Result, now time.Time) string {
	name := "review-" + now.Format("20060102-150405")
	if id := result.RunID; id != "" {
		if len(id) > 8 {
			id = id[:8]
		}
		name += "-" + id
	}
	return name + ".md"
}

// SaveReport writes a markdown copy of result into dir and returns its path.
func SaveReport(dir string, result *review.Result, now time.Time) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating reports directory: %w", err)
	}
	path := filepath.Join(dir, ReportName(result, now))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("creating report file: %w", err)
	}
	defer f.Close()
	if err := (&MarkdownWriter{}).Write(f, result); err != nil {
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("closing report file: %w", err)
	}
	return path, nil
}

// errWriter wraps an io.Writer and captures the first error.
type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) printf(format string, args ...any) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintf(ew.w, format, args...)
}

func (ew *errWriter) println(s string) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintln(ew.w, s)
}
