package scan

import (
	"regexp"
	"sort"
)

// locatorChar is any character that does not end a locator: not whitespace
// (including the Unicode spaces a browser treats as \s) and not a bracket or
// quote.
const locatorChar = `[^\t\n\v\f\r \x{00a0}\x{1680}\x{2000}-\x{200a}\x{2028}\x{2029}\x{202f}\x{205f}\x{3000}\x{feff}<>"'(){}\[\]]`

var locatorRegexes = []*regexp.Regexp{
	regexp.MustCompile(`\b` + foldASCII("http") + `[sS]?://` + locatorChar + `{6,}\b`),
	regexp.MustCompile(`\b` + foldASCII("mailto:") + locatorChar + `{3,}\b`),
	regexp.MustCompile(`\b` + foldASCII("www.") + locatorChar + `{4,}\b`),
}

type locatorHit struct {
	pos   int
	value string
}

// extractLocators returns web, mailto and bare www. locators in order of
// first appearance, deduplicated and capped at limit. Casing is preserved.
func extractLocators(corpus string, limit int) []string {
	var hits []locatorHit
	for _, re := range locatorRegexes {
		for _, loc := range re.FindAllStringIndex(corpus, -1) {
			hits = append(hits, locatorHit{pos: loc[0], value: corpus[loc[0]:loc[1]]})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].pos < hits[j].pos })

	seen := make(map[string]bool, len(hits))
	out := make([]string, 0, min(len(hits), limit))
	for _, h := range hits {
		if len(out) >= limit {
			break
		}
		if seen[h.value] {
			continue
		}
		seen[h.value] = true
		out = append(out, h.value)
	}
	return out
}
