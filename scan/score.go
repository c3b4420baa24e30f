package scan

import "fmt"

// Score is the aggregate risk assessment.
type Score struct {
	Value int    `json:"value"`
	Label string `json:"label"`
}

// Level is the qualitative risk bucket of a score.
type Level string

const (
	LevelLow    Level = "low"
	LevelMedium Level = "medium"
	LevelHigh   Level = "high"
)

const (
	highRiskThreshold   = 60
	mediumRiskThreshold = 30

	maxLocatorBonus    = 12
	uncertaintyPenalty = 3
)

// CalcScore sums the weights of hit indicators, adds a bonus for extracted
// locators and a penalty when no compressed stream could be verified, then
// clamps to [0,100]. A document without any FlateDecode stream gets the
// penalty too.
func CalcScore(indicators []IndicatorResult, locatorCount, streamsInflated int) int {
	score := 0
	for _, r := range indicators {
		if r.Hit {
			score += r.Weight
		}
	}
	if locatorCount > 0 {
		score += min(maxLocatorBonus, 2+locatorCount/3)
	}
	if streamsInflated == 0 {
		score += uncertaintyPenalty
	}
	return max(0, min(100, score))
}

// LevelOf buckets a score value.
func LevelOf(value int) Level {
	switch {
	case value >= highRiskThreshold:
		return LevelHigh
	case value >= mediumRiskThreshold:
		return LevelMedium
	default:
		return LevelLow
	}
}

// ScoreLabel renders the bucket name with the numeric value, e.g. "Medium Risk (42/100)".
func ScoreLabel(value int) string {
	switch LevelOf(value) {
	case LevelHigh:
		return fmt.Sprintf("High Risk (%d/100)", value)
	case LevelMedium:
		return fmt.Sprintf("Medium Risk (%d/100)", value)
	default:
		return fmt.Sprintf("Low Risk (%d/100)", value)
	}
}

func newScore(indicators []IndicatorResult, locatorCount, streamsInflated int) Score {
	v := CalcScore(indicators, locatorCount, streamsInflated)
	return Score{Value: v, Label: ScoreLabel(v)}
}
