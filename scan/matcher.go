package scan

import (
	"fmt"
	"regexp"
)

// IndicatorResult is the outcome of one catalogue rule.
type IndicatorResult struct {
	ID     string `json:"id"`
	Label  string `json:"label"`
	Hit    bool   `json:"hit"`
	Count  int    `json:"count"`
	Weight int    `json:"weight"`
	Hint   string `json:"hint"`

	patterns []*regexp.Regexp
}

// Patterns returns the rule patterns used for snippet extraction.
func (r IndicatorResult) Patterns() []*regexp.Regexp {
	return r.patterns
}

// Note is the per-indicator summary line shown next to the hint.
func (r IndicatorResult) Note() string {
	if r.Hit {
		return fmt.Sprintf("Treffer: %d · Gewicht: %d", r.Count, r.Weight)
	}
	return fmt.Sprintf("Kein Treffer · Gewicht: %d", r.Weight)
}

// matchIndicators runs every rule against corpus. Each pattern contributes at
// most maxPerPattern matches.
func matchIndicators(corpus string, rules []Rule, maxPerPattern int) []IndicatorResult {
	results := make([]IndicatorResult, 0, len(rules))
	for _, rule := range rules {
		count := 0
		for _, re := range rule.Patterns {
			count += len(re.FindAllStringIndex(corpus, maxPerPattern))
		}
		results = append(results, IndicatorResult{
			ID:       rule.ID,
			Label:    rule.Label,
			Hit:      count > 0,
			Count:    count,
			Weight:   rule.Weight,
			Hint:     rule.Hint,
			patterns: rule.Patterns,
		})
	}
	return results
}
