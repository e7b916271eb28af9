package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/goccy/go-yaml"
)

// OutputFormat represents the output format type
type OutputFormat string

const (
	// FormatText renders a human summary (default for terminal)
	FormatText OutputFormat = "text"
	// FormatYAML outputs as YAML
	FormatYAML OutputFormat = "yaml"
	// FormatJSON outputs as JSON
	FormatJSON OutputFormat = "json"
)

// ParseOutputFormat validates a --output flag value.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch f := OutputFormat(s); f {
	case "", FormatText:
		return FormatText, nil
	case FormatYAML, FormatJSON:
		return f, nil
	default:
		return "", fmt.Errorf("unsupported output format %q (want text, yaml or json)", s)
	}
}

// Texter is implemented by results with a human-readable rendering.
// Results without one are printed as YAML in text mode.
type Texter interface {
	Text(s Styles) string
}

// OutputOptions configures output behavior
type OutputOptions struct {
	// Format is the output format (text, yaml, json)
	Format OutputFormat

	// Writer is the destination; nil means stdout
	Writer io.Writer

	// Styles renders text output; the zero value renders plain text
	Styles Styles
}

// Output writes the result to the configured destination
func Output(result any, opts OutputOptions) error {
	w := opts.Writer
	if w == nil {
		w = os.Stdout
	}

	switch opts.Format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	case FormatYAML:
		return outputYAML(w, result)
	case FormatText, "":
		if t, ok := result.(Texter); ok {
			_, err := io.WriteString(w, t.Text(opts.Styles)+"\n")
			return err
		}
		return outputYAML(w, result)
	default:
		return fmt.Errorf("unsupported output format: %s", opts.Format)
	}
}

func outputYAML(w io.Writer, result any) error {
	data, err := yaml.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to format output: %w", err)
	}
	_, err = w.Write(data)
	return err
}
