package rank

import (
	"fmt"
	"math"

	"github.com/cognicore/remedymatch/pkg/remedymatch/ingest"
	"github.com/cognicore/remedymatch/pkg/remedymatch/store"
)

// scorePrecision is the number of decimals kept in a final score.
const scorePrecision = 3

// Scorer calculates the weighted similarity between a drug and a remedy
type Scorer struct {
	weights Weights
	boost   EvidenceBoost
}

// Weights defines the scoring weights
type Weights struct {
	Benefit    float64 // benefits ∪ name overlap
	Category   float64 // drug category vs remedy benefits ∪ name ∪ category
	Ingredient float64 // ingredient overlap
}

// DefaultWeights returns the standard 0.5/0.3/0.2 blend.
func DefaultWeights() Weights {
	return Weights{
		Benefit:    0.5,
		Category:   0.3,
		Ingredient: 0.2,
	}
}

// Validate rejects negative weights and blends that can exceed 1.
func (w Weights) Validate() error {
	if w.Benefit < 0 || w.Category < 0 || w.Ingredient < 0 {
		return fmt.Errorf("weights must be non-negative: %+v", w)
	}
	if sum := w.Benefit + w.Category + w.Ingredient; sum > 1+1e-9 {
		return fmt.Errorf("weights sum to %.3f, must be at most 1", sum)
	}
	return nil
}

// EvidenceBoost is the additive bonus per evidence level.
type EvidenceBoost struct {
	Strong   float64
	Moderate float64
	Limited  float64
}

// DefaultEvidenceBoost returns +0.05 / +0.03 / +0.01.
func DefaultEvidenceBoost() EvidenceBoost {
	return EvidenceBoost{
		Strong:   0.05,
		Moderate: 0.03,
		Limited:  0.01,
	}
}

// For returns the boost for level. Unspecified levels get 0.
func (b EvidenceBoost) For(level store.EvidenceLevel) float64 {
	switch level {
	case store.EvidenceStrong:
		return b.Strong
	case store.EvidenceModerate:
		return b.Moderate
	case store.EvidenceLimited:
		return b.Limited
	default:
		return 0
	}
}

// NewScorer creates a new scorer with the given weights and evidence boost
func NewScorer(w Weights, b EvidenceBoost) *Scorer {
	return &Scorer{
		weights: w,
		boost:   b,
	}
}

// DefaultScorer uses DefaultWeights and DefaultEvidenceBoost.
func DefaultScorer() *Scorer {
	return NewScorer(DefaultWeights(), DefaultEvidenceBoost())
}

// ScoreBreakdown provides detailed scoring information
type ScoreBreakdown struct {
	Ingredient float64 // raw Jaccard, unweighted
	Benefit    float64
	Category   float64
	Raw        float64 // weighted blend before boost
	Boost      float64
	Total      float64 // final score, rounded and clamped

	SharedIngredients []string
	SharedBenefits    []string
	SharedCategory    []string
}

// Score calculates the final similarity score for a candidate
//
// score = clamp(round3(wb·J(benefit⁺) + wc·J(category) + wi·J(ingredient) + boost), 0, 1)
func (s *Scorer) Score(drug, candidate ingest.Profile, evidence store.EvidenceLevel) float64 {
	return s.ScoreWithBreakdown(drug, candidate, evidence).Total
}

// ScoreWithBreakdown calculates score with detailed breakdown
func (s *Scorer) ScoreWithBreakdown(drug, candidate ingest.Profile, evidence store.EvidenceLevel) ScoreBreakdown {
	drugBenefits := drug.BenefitsPlus()
	candBenefits := candidate.BenefitsPlus()
	candCategory := candidate.CategoryPlus()

	b := ScoreBreakdown{
		Ingredient: Jaccard(drug.Ingredients, candidate.Ingredients),
		Benefit:    Jaccard(drugBenefits, candBenefits),
		Category:   Jaccard(drug.Category, candCategory),
		Boost:      s.boost.For(evidence),

		SharedIngredients: drug.Ingredients.Intersect(candidate.Ingredients),
		SharedBenefits:    drugBenefits.Intersect(candBenefits),
		SharedCategory:    drug.Category.Intersect(candCategory),
	}
	b.Raw = s.weights.Benefit*b.Benefit +
		s.weights.Category*b.Category +
		s.weights.Ingredient*b.Ingredient
	b.Total = Finalize(b.Raw + b.Boost)
	return b
}

// Finalize rounds v to three decimals and clamps it into [0,1].
// NaN becomes 0.
func Finalize(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	p := math.Pow10(scorePrecision)
	v = math.Round(v*p) / p
	return math.Max(0, math.Min(1, v))
}

// Jaccard calculates |A∩B| / |A∪B|. It is 0 when either set is empty.
func Jaccard(a, b ingest.TokenSet) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	small, large := a, b
	if len(large) < len(small) {
		small, large = large, small
	}
	intersection := 0
	for tok := range small {
		if _, ok := large[tok]; ok {
			intersection++
		}
	}

	union := len(a) + len(b) - intersection
	return float64(intersection) / float64(union)
}

// MatchingNutrients picks up to three representative terms for a remedy:
// its first ingredients, or its first benefits when it lists no ingredients.
func MatchingNutrients(r store.Remedy) []string {
	src := r.Ingredients
	if len(src) == 0 {
		src = r.Benefits
	}
	n := len(src)
	if n > 3 {
		n = 3
	}
	out := make([]string, n)
	copy(out, src[:n])
	return out
}
