package export

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"pdf-quickcheck/scan"
)

const (
	csvHeader          = "section,key,value"
	csvIndicatorHeader = "indicator,label,hit,count,weight"
	csvURLHeader       = "urls,value"
)

// CSVExporter writes the three-section summary: meta and score, indicators,
// urls. Text fields are JSON string literals so commas and quotes survive.
// The context transcript is not part of the CSV.
type CSVExporter struct{}

// Ext implements the Exporter interface.
func (CSVExporter) Ext() string { return "csv" }

// Export implements the Exporter interface for CSV format. Lines are joined
// with \n and there is no trailing newline.
func (CSVExporter) Export(w io.Writer, res *scan.Result) error {
	if _, err := io.WriteString(w, BuildCSV(res)); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}

// BuildCSV renders res in the CSV summary shape.
func BuildCSV(res *scan.Result) string {
	m := res.Meta
	lines := []string{
		csvHeader,
		"meta,file," + quote(m.Name),
		"meta,sha256," + quote(m.SHA256),
		"meta,sizeBytes," + strconv.Itoa(m.SizeBytes),
		"meta,pdfVersion," + quote(m.PDFVersion),
		"meta,flateStreamsFound," + strconv.Itoa(m.Flate.StreamsFound),
		"meta,flateStreamsInflated," + strconv.Itoa(m.Flate.StreamsInflated),
		"meta,flateBytesInflated," + strconv.Itoa(m.Flate.BytesInflated),
		"score,value," + strconv.Itoa(res.Score.Value),
		"score,label," + quote(res.Score.Label),
		"",
		csvIndicatorHeader,
	}
	for _, r := range res.Indicators {
		lines = append(lines, fmt.Sprintf("indicator,%s,%t,%d,%d", quote(r.Label), r.Hit, r.Count, r.Weight))
	}
	lines = append(lines, "", csvURLHeader)
	for _, u := range res.URLs {
		lines = append(lines, "url,"+quote(u))
	}
	return strings.Join(lines, "\n")
}
