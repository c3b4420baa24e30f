package export

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/segmentio/encoding/json"

	"pdf-quickcheck/scan"
)

// ErrMalformedCSV is wrapped by every ParseCSV error.
var ErrMalformedCSV = errors.New("malformed quickcheck csv")

// Summary is what a CSV export carries: the result without the context
// transcript, hints, and the decompression flags.
type Summary struct {
	Meta       scan.Meta
	Score      scan.Score
	Indicators []scan.IndicatorResult
	URLs       []string
}

// ParseCSV reads a CSV export back. Indicator IDs and hints are restored from
// the catalogue by label.
func ParseCSV(r io.Reader) (*Summary, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	lines := strings.Split(strings.ReplaceAll(string(data), "\r\n", "\n"), "\n")
	if len(lines) == 0 || lines[0] != csvHeader {
		return nil, fmt.Errorf("%w: missing %q header", ErrMalformedCSV, csvHeader)
	}

	sum := &Summary{
		Indicators: []scan.IndicatorResult{},
		URLs:       []string{},
	}
	for i, line := range lines[1:] {
		if line == "" || line == csvIndicatorHeader || line == csvURLHeader {
			continue
		}
		if err := sum.parseLine(line); err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrMalformedCSV, i+2, err)
		}
	}
	return sum, nil
}

func (s *Summary) parseLine(line string) error {
	section, rest, ok := strings.Cut(line, ",")
	if !ok {
		return fmt.Errorf("no section in %q", line)
	}
	switch section {
	case "meta":
		key, value, ok := strings.Cut(rest, ",")
		if !ok {
			return fmt.Errorf("meta line without value")
		}
		return s.parseMeta(key, value)
	case "score":
		key, value, ok := strings.Cut(rest, ",")
		if !ok {
			return fmt.Errorf("score line without value")
		}
		return s.parseScore(key, value)
	case "indicator":
		return s.parseIndicator(rest)
	case "url":
		u, tail, err := cutJSONString(rest)
		if err != nil {
			return err
		}
		if tail != "" {
			return fmt.Errorf("trailing data after url")
		}
		s.URLs = append(s.URLs, u)
		return nil
	default:
		return fmt.Errorf("unknown section %q", section)
	}
}

func (s *Summary) parseMeta(key, value string) error {
	var err error
	switch key {
	case "file":
		s.Meta.Name, err = unquoteAll(value)
	case "sha256":
		s.Meta.SHA256, err = unquoteAll(value)
	case "pdfVersion":
		s.Meta.PDFVersion, err = unquoteAll(value)
	case "sizeBytes":
		s.Meta.SizeBytes, err = strconv.Atoi(value)
	case "flateStreamsFound":
		s.Meta.Flate.StreamsFound, err = strconv.Atoi(value)
	case "flateStreamsInflated":
		s.Meta.Flate.StreamsInflated, err = strconv.Atoi(value)
	case "flateBytesInflated":
		s.Meta.Flate.BytesInflated, err = strconv.Atoi(value)
	default:
		return fmt.Errorf("unknown meta key %q", key)
	}
	return err
}

func (s *Summary) parseScore(key, value string) error {
	var err error
	switch key {
	case "value":
		s.Score.Value, err = strconv.Atoi(value)
	case "label":
		s.Score.Label, err = unquoteAll(value)
	default:
		return fmt.Errorf("unknown score key %q", key)
	}
	return err
}

func (s *Summary) parseIndicator(rest string) error {
	label, tail, err := cutJSONString(rest)
	if err != nil {
		return err
	}
	fields := strings.Split(strings.TrimPrefix(tail, ","), ",")
	if !strings.HasPrefix(tail, ",") || len(fields) != 3 {
		return fmt.Errorf("indicator %q: want hit,count,weight", label)
	}

	hit, err := strconv.ParseBool(fields[0])
	if err != nil {
		return err
	}
	count, err := strconv.Atoi(fields[1])
	if err != nil {
		return err
	}
	weight, err := strconv.Atoi(fields[2])
	if err != nil {
		return err
	}

	ir := scan.IndicatorResult{Label: label, Hit: hit, Count: count, Weight: weight}
	for _, rule := range scan.Rules {
		if rule.Label == label {
			ir.ID = rule.ID
			ir.Hint = rule.Hint
			break
		}
	}
	s.Indicators = append(s.Indicators, ir)
	return nil
}

// cutJSONString splits a leading JSON string literal off s.
func cutJSONString(s string) (string, string, error) {
	if !strings.HasPrefix(s, `"`) {
		return "", "", fmt.Errorf("expected quoted string at %q", s)
	}
	for i := 1; i < len(s); i++ {
		switch s[i] {
		case '\\':
			i++
		case '"':
			var out string
			if err := json.Unmarshal([]byte(s[:i+1]), &out); err != nil {
				return "", "", err
			}
			return out, s[i+1:], nil
		}
	}
	return "", "", fmt.Errorf("unterminated string %q", s)
}

func unquoteAll(s string) (string, error) {
	out, tail, err := cutJSONString(s)
	if err != nil {
		return "", err
	}
	if tail != "" {
		return "", fmt.Errorf("trailing data after %q", out)
	}
	return out, nil
}
