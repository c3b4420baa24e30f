// Package export writes analysis results as JSON or CSV and reads the CSV
// shape back.
package export

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"pdf-quickcheck/scan"
)

// DefaultStem is the file name stem used for single-document exports.
const DefaultStem = "pdf-quickcheck-result"

// ErrUnknownFormat is returned by ForFormat for anything but json or csv.
var ErrUnknownFormat = errors.New("unknown export format")

// Exporter defines the interface that all export formats implement.
type Exporter interface {
	// Export writes res to w in the exporter's format.
	Export(w io.Writer, res *scan.Result) error

	// Ext is the file extension without the dot.
	Ext() string
}

// Formats lists the accepted format names.
var Formats = []string{"json", "csv"}

// ForFormat returns the exporter for a format name (case-insensitive).
func ForFormat(format string) (Exporter, error) {
	switch strings.ToLower(format) {
	case "json":
		return JSONExporter{}, nil
	case "csv":
		return CSVExporter{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// Stem derives a file name stem from a document name for batch exports:
// "dir/report.pdf" becomes "report.quickcheck", an attachment
// "mail.eml::invoice.pdf" becomes "mail.eml_invoice.quickcheck".
func Stem(docName string) string {
	base := filepath.Base(strings.ReplaceAll(docName, "::", "_"))
	base = strings.TrimSuffix(base, filepath.Ext(base))
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, base)
	if base == "" || base == "." {
		base = "document"
	}
	return base + ".quickcheck"
}

// WriteFile exports res into dir as <stem>.<ext> and returns the path written.
func WriteFile(dir, stem, format string, res *scan.Result) (string, error) {
	ex, err := ForFormat(format)
	if err != nil {
		return "", err
	}
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}

	path := filepath.Join(dir, stem+"."+ex.Ext())
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", path, err)
	}
	if err := ex.Export(f, res); err != nil {
		f.Close()
		return "", fmt.Errorf("export %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close %s: %w", path, err)
	}
	return path, nil
}
