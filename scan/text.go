package scan

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

var eolReplacer = strings.NewReplacer("\r\n", "\n", "\r", "\n")

// RawView maps every byte to exactly one character (ISO-8859-1), so the
// n-th byte of b is the n-th rune of the result.
func RawView(b []byte) string {
	// ISO-8859-1 defines all 256 bytes, so decoding cannot fail.
	out, _ := charmap.ISO8859_1.NewDecoder().Bytes(b)
	return string(out)
}

// DecodeText returns b as UTF-8 text when it is well-formed (a leading BOM
// is dropped) and falls back to RawView otherwise. It never fails.
func DecodeText(b []byte) string {
	if !utf8.Valid(b) {
		return RawView(b)
	}
	out, err := unicode.UTF8BOM.NewDecoder().Bytes(b)
	if err != nil {
		return RawView(b)
	}
	return string(out)
}

// NormalizeEOL turns \r\n and bare \r into \n.
func NormalizeEOL(s string) string {
	return eolReplacer.Replace(s)
}
