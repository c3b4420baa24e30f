package config

import (
	"slices"
	"strings"
)

// Limits holds every numeric bound the scan engine enforces.
type Limits struct {
	// Candidate FlateDecode streams evaluated per document.
	MaxStreams int `yaml:"max_streams"`

	// Total inflated bytes kept per document.
	MaxInflatedBytes int64 `yaml:"max_inflated_bytes"`

	// Bytes after /FlateDecode in which the stream keyword must start.
	StreamLookahead int `yaml:"stream_lookahead"`

	// Matches collected per indicator pattern.
	MaxMatchesPerPattern int `yaml:"max_matches_per_pattern"`

	// Locators kept per document.
	MaxLocators int `yaml:"max_locators"`

	// Snippets per indicator and characters of context on each side.
	SnippetsPerIndicator int `yaml:"snippets_per_indicator"`
	SnippetWindow        int `yaml:"snippet_window"`

	// Locators listed in the trailing [URLs] snippet.
	SnippetLocators int `yaml:"snippet_locators"`

	// Entries kept in the context transcript.
	MaxSnippets int `yaml:"max_snippets"`

	// Leading bytes searched for the %PDF- header.
	HeaderWindow int `yaml:"header_window"`
}

// DefaultLimits returns the reference bounds.
func DefaultLimits() Limits {
	return Limits{
		MaxStreams:           250,
		MaxInflatedBytes:     12 * 1024 * 1024, // 12 MiB
		StreamLookahead:      3000,
		MaxMatchesPerPattern: 30,
		MaxLocators:          200,
		SnippetsPerIndicator: 8,
		SnippetWindow:        90,
		SnippetLocators:      30,
		MaxSnippets:          80,
		HeaderWindow:         2048,
	}
}

// WithDefaults fills zero or negative fields from DefaultLimits.
func (l Limits) WithDefaults() Limits {
	d := DefaultLimits()
	if l.MaxStreams <= 0 {
		l.MaxStreams = d.MaxStreams
	}
	if l.MaxInflatedBytes <= 0 {
		l.MaxInflatedBytes = d.MaxInflatedBytes
	}
	if l.StreamLookahead <= 0 {
		l.StreamLookahead = d.StreamLookahead
	}
	if l.MaxMatchesPerPattern <= 0 {
		l.MaxMatchesPerPattern = d.MaxMatchesPerPattern
	}
	if l.MaxLocators <= 0 {
		l.MaxLocators = d.MaxLocators
	}
	if l.SnippetsPerIndicator <= 0 {
		l.SnippetsPerIndicator = d.SnippetsPerIndicator
	}
	if l.SnippetWindow <= 0 {
		l.SnippetWindow = d.SnippetWindow
	}
	if l.SnippetLocators <= 0 {
		l.SnippetLocators = d.SnippetLocators
	}
	if l.MaxSnippets <= 0 {
		l.MaxSnippets = d.MaxSnippets
	}
	if l.HeaderWindow <= 0 {
		l.HeaderWindow = d.HeaderWindow
	}
	return l
}

// PDFTypes are extensions analysed directly.
var PDFTypes = []string{"pdf"}

// MailTypes are containers whose PDF attachments are analysed.
var MailTypes = []string{"eml", "mbox", "msg"}

// IsPDFFile checks if a file extension is a PDF type
func IsPDFFile(filename string) bool {
	ext := strings.ToLower(strings.TrimPrefix(getFileExtension(filename), "."))
	return slices.Contains(PDFTypes, ext)
}

// IsMailFile checks if a file extension is a mail container type
func IsMailFile(filename string) bool {
	ext := strings.ToLower(strings.TrimPrefix(getFileExtension(filename), "."))
	return slices.Contains(MailTypes, ext)
}

// GetInputTypeDescription returns a human-readable description of accepted inputs
func GetInputTypeDescription(includeMail bool) string {
	if includeMail {
		return "pdf + PDF attachments in eml, mbox, msg"
	}
	return "pdf"
}

// getFileExtension extracts file extension from filename
func getFileExtension(filename string) string {
	lastDot := strings.LastIndex(filename, ".")
	if lastDot == -1 || lastDot == len(filename)-1 {
		return ""
	}
	return filename[lastDot:]
}

// ShouldSkipDirectory determines if a directory should be skipped during traversal
func ShouldSkipDirectory(dirName string) bool {
	skipDirs := map[string]bool{
		".git":          true,
		".svn":          true,
		".hg":           true,
		"node_modules":  true,
		".vscode":       true,
		".idea":         true,
		"__pycache__":   true,
		".pytest_cache": true,
		"vendor":        true,
		".DS_Store":     true,
	}

	return skipDirs[dirName] || (len(dirName) > 1 && strings.HasPrefix(dirName, "."))
}

// GetPerformanceProfile returns a worker count based on document count
func GetPerformanceProfile(docCount int) (workers int) {
	switch {
	case docCount < 4:
		return 1
	case docCount < 100:
		return 2
	case docCount < 1000:
		return 4
	default:
		return 8
	}
}
