package scan

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"regexp"

	"pdf-quickcheck/config"
)

// UnknownVersion is reported when no %PDF-x.y header is found.
const UnknownVersion = "unbekannt"

// corpusSeparator sits between the raw view and the inflated stream text.
const corpusSeparator = "\n\n-----[INFLATED_FLATE_STREAMS]-----\n\n"

var versionRegex = regexp.MustCompile(`%PDF-(\d\.\d)`)

// Document is one input: the raw bytes plus a display name.
type Document struct {
	Name string
	Data []byte
}

// Meta describes the analysed file.
type Meta struct {
	Name       string     `json:"name"`
	SizeBytes  int        `json:"sizeBytes"`
	SHA256     string     `json:"sha256"`
	PDFVersion string     `json:"pdfVersion"`
	Flate      FlateStats `json:"flate"`
}

// Result is the complete output of one analysis. It holds no time-dependent
// fields: identical input yields an identical Result.
type Result struct {
	Meta       Meta              `json:"meta"`
	Score      Score             `json:"score"`
	Indicators []IndicatorResult `json:"indicators"`
	URLs       []string          `json:"urls"`
	Context    []string          `json:"context"`
}

// Level returns the risk bucket of the result score.
func (r *Result) Level() Level {
	return LevelOf(r.Score.Value)
}

// ProgressFunc is an optional callback to report progress like: processed, total, path
type ProgressFunc func(stage string, processed, total int, path string)

// Analyzer runs the scan pipeline over documents.
type Analyzer struct {
	Limits   config.Limits // zero fields fall back to config.DefaultLimits
	Inflater Inflater      // nil disables stream decompression
	Logger   *slog.Logger

	// Optional progress callback (nil if unused)
	OnProgress ProgressFunc
}

// NewAnalyzer creates an analyzer with the zlib inflater.
func NewAnalyzer(limits config.Limits) *Analyzer {
	return &Analyzer{
		Limits:   limits,
		Inflater: ZlibInflater{},
	}
}

// Analyze runs a single document through the default analyzer.
func Analyze(data []byte, name string) (*Result, error) {
	return NewAnalyzer(config.DefaultLimits()).Analyze(context.Background(), Document{Name: name, Data: data})
}

// Analyze runs one deterministic pass over doc. Only a digest failure is
// fatal; every other step degrades to empty output. When ctx expires during
// stream extraction the remaining streams are skipped and the result is
// marked truncated.
func (a *Analyzer) Analyze(ctx context.Context, doc Document) (*Result, error) {
	sum, err := Digest(bytes.NewReader(doc.Data))
	if err != nil {
		return nil, fmt.Errorf("analyze %s: %w", doc.Name, err)
	}

	lim := a.Limits.WithDefaults()
	inflated, stats := a.extractStreams(ctx, doc.Data, lim)

	corpus := NormalizeEOL(RawView(doc.Data)) + corpusSeparator + inflated

	indicators := matchIndicators(corpus, Rules, lim.MaxMatchesPerPattern)
	urls := extractLocators(corpus, lim.MaxLocators)
	snippets := buildContext(corpus, indicators, urls, lim)

	a.logger().Debug("analysis complete",
		"name", doc.Name,
		"streams_found", stats.StreamsFound,
		"streams_inflated", stats.StreamsInflated,
		"urls", len(urls))

	return &Result{
		Meta: Meta{
			Name:       doc.Name,
			SizeBytes:  len(doc.Data),
			SHA256:     sum,
			PDFVersion: pdfVersion(doc.Data, lim.HeaderWindow),
			Flate:      stats,
		},
		Score:      newScore(indicators, len(urls), stats.StreamsInflated),
		Indicators: indicators,
		URLs:       urls,
		Context:    snippets,
	}, nil
}

// pdfVersion reads the x.y of a %PDF-x.y header within the first window bytes.
func pdfVersion(data []byte, window int) string {
	head := data[:min(len(data), window)]
	if m := versionRegex.FindSubmatch(head); m != nil {
		return string(m[1])
	}
	return UnknownVersion
}

func (a *Analyzer) logger() *slog.Logger {
	if a.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return a.Logger
}
