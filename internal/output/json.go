package output

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/dshills/sherpa/internal/review"
)

// JSONWriter outputs the full result as JSON.
type JSONWriter struct{}

func (j *JSONWriter) Write(w io.Writer, result *review.Result) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling JSON: %w", err)
	}
	_, err = w.Write(data)
	if err != nil {
		return fmt.Errorf("writing JSON: %w", err)
	}
	_, err = fmt.Fprintln(w)
	return err
}
