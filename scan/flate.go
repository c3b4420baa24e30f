package scan

import (
	"bytes"
	"compress/zlib"
	"context"
	"errors"
	"io"
	"strings"

	"pdf-quickcheck/config"
)

var (
	filterToken    = []byte("/Filter")
	flateToken     = []byte("/FlateDecode")
	streamToken    = []byte("stream")
	endstreamLF    = []byte("\nendstream")
	endstreamCR    = []byte("\rendstream")
	inflatedJoiner = "\n\n"
)

// ErrInflateLimit is returned by an Inflater when the payload would exceed
// the byte budget it was given.
var ErrInflateLimit = errors.New("inflated payload exceeds remaining budget")

// ErrTrailingData is returned when bytes other than whitespace follow the
// end of the compressed data.
var ErrTrailingData = errors.New("data after end of compressed stream")

// Inflater decompresses one FlateDecode payload. Implementations must not
// return more than limit bytes; ErrInflateLimit signals the overflow.
type Inflater interface {
	Inflate(payload []byte, limit int64) ([]byte, error)
}

// ZlibInflater decodes zlib-wrapped deflate data, the encoding PDF writers
// use for /FlateDecode.
type ZlibInflater struct{}

// Inflate implements the Inflater interface. Only end-of-line and space
// bytes may follow the zlib checksum; anything else is ErrTrailingData.
func (ZlibInflater) Inflate(payload []byte, limit int64) ([]byte, error) {
	br := bytes.NewReader(payload)
	zr, err := zlib.NewReader(br)
	if err != nil {
		return nil, err
	}
	defer zr.Close()

	var buf bytes.Buffer
	n, err := io.Copy(&buf, io.LimitReader(zr, limit+1))
	if err != nil {
		return nil, err
	}
	if n > limit {
		return nil, ErrInflateLimit
	}
	if rest := payload[len(payload)-br.Len():]; len(bytes.Trim(rest, "\r\n \t")) > 0 {
		return nil, ErrTrailingData
	}
	return buf.Bytes(), nil
}

// FlateStats describes one extraction pass.
type FlateStats struct {
	StreamsFound           int  `json:"streamsFound"`
	StreamsInflated        int  `json:"streamsInflated"`
	BytesInflated          int  `json:"bytesInflated"`
	DecompressionAvailable bool `json:"decompressionStreamAvailable"`
	// Truncated is set when a bound or the caller's deadline stopped the scan.
	Truncated bool `json:"truncated"`
}

// streamCandidate is one /FlateDecode region; end is -1 when no endstream
// token follows the payload start.
type streamCandidate struct {
	start int
	end   int
}

// extractStreams finds declared FlateDecode streams in raw and inflates them
// in document order. It never fails: bad streams are skipped and bounds stop
// the scan early with stats.Truncated set.
func (a *Analyzer) extractStreams(ctx context.Context, raw []byte, lim config.Limits) (string, FlateStats) {
	stats := FlateStats{DecompressionAvailable: a.Inflater != nil}
	log := a.logger()

	var parts []string
	remaining := lim.MaxInflatedBytes
	pos := 0

	for {
		c, ok := nextCandidate(raw, pos, lim.StreamLookahead)
		if !ok {
			break
		}
		if stats.StreamsFound >= lim.MaxStreams {
			stats.Truncated = true
			log.Debug("stream cap reached", "max_streams", lim.MaxStreams)
			break
		}
		stats.StreamsFound++
		pos = c.start

		if c.end < 0 {
			log.Debug("flate stream without endstream", "offset", c.start)
			continue
		}
		if a.Inflater == nil {
			continue
		}
		if err := ctx.Err(); err != nil {
			stats.Truncated = true
			log.Debug("stream extraction interrupted", "err", err)
			break
		}

		out, err := a.Inflater.Inflate(raw[c.start:c.end], remaining)
		if errors.Is(err, ErrInflateLimit) {
			stats.Truncated = true
			log.Debug("inflate budget exhausted", "offset", c.start, "max_bytes", lim.MaxInflatedBytes)
			break
		}
		if err != nil {
			log.Debug("flate stream not inflated", "offset", c.start, "err", err)
			continue
		}
		if len(out) == 0 {
			continue
		}

		remaining -= int64(len(out))
		stats.StreamsInflated++
		stats.BytesInflated += len(out)
		parts = append(parts, NormalizeEOL(DecodeText(out)))
	}

	return strings.Join(parts, inflatedJoiner), stats
}

// nextCandidate returns the first candidate whose /Filter token starts at or
// after from. The stream keyword must start within lookahead bytes of the
// end of /FlateDecode and be followed by \n or \r\n.
func nextCandidate(raw []byte, from, lookahead int) (streamCandidate, bool) {
	for from < len(raw) {
		i := bytes.Index(raw[from:], filterToken)
		if i < 0 {
			return streamCandidate{}, false
		}
		i += from

		j := skipSpace(raw, i+len(filterToken))
		if bytes.HasPrefix(raw[j:], flateToken) {
			if start, ok := findStreamStart(raw, j+len(flateToken), lookahead); ok {
				return streamCandidate{start: start, end: findStreamEnd(raw, start)}, true
			}
		}
		from = i + 1
	}
	return streamCandidate{}, false
}

// findStreamStart returns the offset just past the earliest "stream\n" or
// "stream\r\n" whose keyword starts in [from, from+lookahead].
func findStreamStart(raw []byte, from, lookahead int) (int, bool) {
	limit := from + lookahead
	stop := min(len(raw), limit+len(streamToken))
	for m := from; m <= limit && m < stop; {
		idx := bytes.Index(raw[m:stop], streamToken)
		if idx < 0 {
			return 0, false
		}
		m += idx
		after := m + len(streamToken)
		if after < len(raw) && raw[after] == '\n' {
			return after + 1, true
		}
		if after+1 < len(raw) && raw[after] == '\r' && raw[after+1] == '\n' {
			return after + 2, true
		}
		m++
	}
	return 0, false
}

// findStreamEnd prefers "\nendstream" and only then tries "\rendstream".
func findStreamEnd(raw []byte, start int) int {
	if i := bytes.Index(raw[start:], endstreamLF); i >= 0 {
		return start + i
	}
	if i := bytes.Index(raw[start:], endstreamCR); i >= 0 {
		return start + i
	}
	return -1
}

// skipSpace skips the bytes a Latin-1 text view treats as whitespace.
func skipSpace(raw []byte, i int) int {
	for i < len(raw) {
		switch raw[i] {
		case '\t', '\n', '\v', '\f', '\r', ' ', 0xA0:
			i++
		default:
			return i
		}
	}
	return i
}
