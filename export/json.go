package export

import (
	"fmt"
	"io"

	"github.com/segmentio/encoding/json"

	"pdf-quickcheck/scan"
)

// JSONExporter writes the full result, including the context transcript.
type JSONExporter struct{}

// Ext implements the Exporter interface.
func (JSONExporter) Ext() string { return "json" }

// Export implements the Exporter interface for JSON format. Output is
// indented by two spaces and HTML characters are left unescaped.
func (JSONExporter) Export(w io.Writer, res *scan.Result) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(res); err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	return nil
}

// ExportAll writes several results as one indented JSON array.
func (JSONExporter) ExportAll(w io.Writer, results []*scan.Result) error {
	if results == nil {
		results = []*scan.Result{}
	}
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(results); err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	return nil
}

// quote renders s as a JSON string literal without HTML escaping.
func quote(s string) string {
	b, err := json.Append(nil, s, 0)
	if err != nil {
		// strings always encode
		return `""`
	}
	return string(b)
}
