package scan

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"pdf-quickcheck/config"
)

// NoContextHint is shown when an analysis produced no snippets.
const NoContextHint = "Keine Roh-Treffer gefunden.\n\n" +
	"Hinweis: Viele Inhalte liegen in komprimierten Streams. " +
	"Wenn FlateDecode-Entpackung aktiv ist und trotzdem nichts erscheint, kann es sein, " +
	"dass Inhalte anders kodiert sind (z. B. andere Filter, Objektströme oder Font-Glyph-Mapping)."

// buildContext assembles the snippet transcript: up to SnippetsPerIndicator
// excerpts for every hit indicator in catalogue order, then one [URLs] line.
func buildContext(corpus string, indicators []IndicatorResult, urls []string, lim config.Limits) []string {
	var parts []string
	for _, r := range indicators {
		if !r.Hit {
			continue
		}
		for _, s := range contextSnippets(corpus, r.patterns, lim) {
			parts = append(parts, fmt.Sprintf("[%s] …%s…", r.Label, s))
		}
	}
	if len(urls) > 0 {
		parts = append(parts, "[URLs] "+strings.Join(urls[:min(len(urls), lim.SnippetLocators)], " | "))
	}
	if len(parts) > lim.MaxSnippets {
		parts = parts[:lim.MaxSnippets]
	}
	if parts == nil {
		parts = []string{}
	}
	return parts
}

// contextSnippets walks the patterns in order and stops once
// SnippetsPerIndicator windows were collected.
func contextSnippets(corpus string, patterns []*regexp.Regexp, lim config.Limits) []string {
	var snippets []string
	for _, re := range patterns {
		for _, loc := range re.FindAllStringIndex(corpus, lim.MaxMatchesPerPattern) {
			snippets = append(snippets, runeWindow(corpus, loc[0], loc[1], lim.SnippetWindow))
			if len(snippets) >= lim.SnippetsPerIndicator {
				return snippets
			}
		}
	}
	return snippets
}

// runeWindow returns text[start:end] widened by up to n characters on each
// side, clamped to the text.
func runeWindow(text string, start, end, n int) string {
	s := start
	for i := 0; i < n && s > 0; i++ {
		_, size := utf8.DecodeLastRuneInString(text[:s])
		s -= size
	}
	e := end
	for i := 0; i < n && e < len(text); i++ {
		_, size := utf8.DecodeRuneInString(text[e:])
		e += size
	}
	return text[s:e]
}
