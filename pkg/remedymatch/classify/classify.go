// Package classify labels a similarity score with the kind of recommendation
// it supports, and forces the cautious label for high-risk drug classes.
package classify

import (
	"fmt"
	"strings"
)

// ReplacementType describes how a remedy relates to the drug it was matched to.
type ReplacementType string

const (
	// Alternative remedies can stand in for the drug.
	Alternative ReplacementType = "Alternative"
	// Complementary remedies are used alongside the drug.
	Complementary ReplacementType = "Complementary"
	// Supportive remedies offer general wellness support only.
	Supportive ReplacementType = "Supportive"
)

// ParseReplacementType accepts the canonical labels case-insensitively.
func ParseReplacementType(s string) (ReplacementType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "alternative":
		return Alternative, nil
	case "complementary":
		return Complementary, nil
	case "supportive":
		return Supportive, nil
	}
	return "", fmt.Errorf("unknown replacement type %q", s)
}

// Thresholds are the inclusive lower bounds for each label.
type Thresholds struct {
	Alternative   float64
	Complementary float64
}

// DefaultThresholds returns the standard label cut-offs.
func DefaultThresholds() Thresholds {
	return Thresholds{
		Alternative:   0.75,
		Complementary: 0.55,
	}
}

// Validate checks that the cut-offs are ordered and within [0,1].
func (t Thresholds) Validate() error {
	if t.Complementary < 0 || t.Alternative > 1 {
		return fmt.Errorf("thresholds must lie in [0,1]: %+v", t)
	}
	if t.Complementary > t.Alternative {
		return fmt.Errorf("complementary threshold %.3f above alternative %.3f", t.Complementary, t.Alternative)
	}
	return nil
}

// Classify maps a final similarity score to a label.
func (t Thresholds) Classify(score float64) ReplacementType {
	switch {
	case score >= t.Alternative:
		return Alternative
	case score >= t.Complementary:
		return Complementary
	default:
		return Supportive
	}
}

// Classify maps score to a label using DefaultThresholds.
//
//	score ≥ 0.75        → Alternative
//	0.55 ≤ score < 0.75 → Complementary
//	score < 0.55        → Supportive
func Classify(score float64) ReplacementType {
	return DefaultThresholds().Classify(score)
}
