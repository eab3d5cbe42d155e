package formatter

import (
	"fmt"
	"io"

	"github.com/tordrt/fdnorm/internal/pipeline"
)

// JSONFormatter writes the keymap of an analysis.
type JSONFormatter struct {
	writer io.Writer
}

// NewJSONFormatter creates a new keymap formatter
func NewJSONFormatter(w io.Writer) *JSONFormatter {
	return &JSONFormatter{writer: w}
}

// Format writes the keymap as indented JSON
func (f *JSONFormatter) Format(r *pipeline.Result) error {
	km := r.KeyMap()
	if km == nil {
		return fmt.Errorf("analysis of %s has no keymap", r.Source.Name)
	}
	return km.Write(f.writer)
}
