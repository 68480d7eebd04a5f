package report

import (
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// Format selects how a result is rendered.
type Format int

const (
	FormatText Format = iota
	FormatJSON
	FormatYAML
	FormatCSV
)

func (f Format) Valid() bool {
	return f >= FormatText && f <= FormatCSV
}

func (f Format) String() string {
	switch f {
	case FormatText:
		return "text"
	case FormatJSON:
		return "json"
	case FormatYAML:
		return "yaml"
	case FormatCSV:
		return "csv"
	default:
		return "unknown"
	}
}

func ParseFormat(s string) (Format, error) {
	switch s {
	case "text", "":
		return FormatText, nil
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	case "csv":
		return FormatCSV, nil
	default:
		return FormatText, fmt.Errorf("invalid format: %q", s)
	}
}

// Encode writes v as JSON or YAML. Other formats are rendered by the caller.
func Encode(w io.Writer, f Format, v any) error {
	switch f {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("encode: unsupported format %s", f)
	}
}
