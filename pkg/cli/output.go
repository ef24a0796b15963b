package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/goccy/go-yaml"
)

// OutputFormat selects how Output renders a value.
type OutputFormat string

const (
	FormatYAML OutputFormat = "yaml"
	FormatJSON OutputFormat = "json"
	// FormatRaw writes strings and bytes as is and anything else as YAML.
	FormatRaw OutputFormat = "raw"
)

// Output renders v to w. The empty format means YAML.
func Output(w io.Writer, v any, format OutputFormat) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case FormatRaw:
		switch raw := v.(type) {
		case []byte:
			_, err := w.Write(raw)
			return err
		case string:
			_, err := io.WriteString(w, raw)
			return err
		}
		fallthrough
	case FormatYAML, "":
		data, err := yaml.Marshal(v)
		if err != nil {
			return fmt.Errorf("failed to format output: %w", err)
		}
		_, err = w.Write(data)
		return err
	default:
		return fmt.Errorf("unsupported output format: %s", format)
	}
}

// Printer writes one-line user messages. Results go to Out, warnings to Err.
type Printer struct {
	Out io.Writer
	Err io.Writer
}

// Success prints a line prefixed with a check mark.
func (p Printer) Success(format string, args ...any) {
	fmt.Fprintf(p.Out, "✓ "+format+"\n", args...)
}

// Info prints a line prefixed with an info sign.
func (p Printer) Info(format string, args ...any) {
	fmt.Fprintf(p.Out, "ℹ "+format+"\n", args...)
}

// Warning prints a line prefixed with a warning sign to Err.
func (p Printer) Warning(format string, args ...any) {
	fmt.Fprintf(p.Err, "⚠ "+format+"\n", args...)
}
