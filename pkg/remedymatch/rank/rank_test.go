package rank

import (
	"math"
	"testing"

	"github.com/cognicore/remedymatch/pkg/remedymatch/ingest"
	"github.com/cognicore/remedymatch/pkg/remedymatch/store"
)

var pipeline = ingest.NewPipeline(ingest.DefaultTokenizer())

func approxEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestJaccardProperties(t *testing.T) {
	a := ingest.NewTokenSet("ginger", "nausea", "relief")
	b := ingest.NewTokenSet("nausea", "relief", "digestion")
	empty := ingest.NewTokenSet()

	if got := Jaccard(a, a); got != 1 {
		t.Errorf("Jaccard(A, A) = %v, want 1", got)
	}
	if Jaccard(a, b) != Jaccard(b, a) {
		t.Errorf("Jaccard should be symmetric: %v vs %v", Jaccard(a, b), Jaccard(b, a))
	}
	if got := Jaccard(a, b); !approxEqual(got, 0.5) {
		t.Errorf("Jaccard(A, B) = %v, want 0.5", got)
	}
	if got := Jaccard(empty, a); got != 0 {
		t.Errorf("Jaccard(∅, A) = %v, want 0", got)
	}
	if got := Jaccard(a, empty); got != 0 {
		t.Errorf("Jaccard(A, ∅) = %v, want 0", got)
	}
	if got := Jaccard(empty, empty); got != 0 {
		t.Errorf("Jaccard(∅, ∅) = %v, want 0", got)
	}
	if got := Jaccard(nil, nil); got != 0 {
		t.Errorf("Jaccard(nil, nil) = %v, want 0", got)
	}
}

func TestFinalize(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{0.87654, 0.877},
		{0.12345, 0.123},
		{-0.2, 0},
		{1.3, 1},
		{math.NaN(), 0},
		{math.Inf(1), 1},
	}
	for _, tt := range tests {
		if got := Finalize(tt.in); !approxEqual(got, tt.want) {
			t.Errorf("Finalize(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func gingerFields() ingest.Fields {
	return ingest.Fields{
		Name:        "Ginger",
		Category:    "Digestive Aid",
		Ingredients: []string{"Ginger root"},
		Benefits:    []string{"Nausea relief"},
	}
}

func TestScorerWeightedBlend(t *testing.T) {
	scorer := DefaultScorer()
	profile := pipeline.Profile(gingerFields())

	b := scorer.ScoreWithBreakdown(profile, profile, store.EvidenceUnspecified)

	// category: {digestive, aid} vs {ginger, nausea, relief, digestive, aid} = 2/5
	if b.Ingredient != 1 || b.Benefit != 1 || !approxEqual(b.Category, 0.4) {
		t.Fatalf("components = %v/%v/%v, want 1/1/0.4", b.Ingredient, b.Benefit, b.Category)
	}
	if !approxEqual(b.Total, 0.82) {
		t.Errorf("Total = %v, want 0.82", b.Total)
	}
	if got := b.SharedCategory; len(got) != 2 || got[0] != "aid" || got[1] != "digestive" {
		t.Errorf("SharedCategory = %v, want [aid digestive]", got)
	}
}

func TestScorerEvidenceBoost(t *testing.T) {
	scorer := DefaultScorer()
	profile := pipeline.Profile(gingerFields())

	tests := []struct {
		level store.EvidenceLevel
		want  float64
	}{
		{store.EvidenceStrong, 0.87},
		{store.EvidenceModerate, 0.85},
		{store.EvidenceLimited, 0.83},
		{store.EvidenceUnspecified, 0.82},
		{store.EvidenceLevel("anecdotal"), 0.82},
	}
	for _, tt := range tests {
		if got := scorer.Score(profile, profile, tt.level); !approxEqual(got, tt.want) {
			t.Errorf("Score with %q evidence = %v, want %v", tt.level, got, tt.want)
		}
	}
}

func TestScorerClampsToOne(t *testing.T) {
	scorer := NewScorer(Weights{Benefit: 1, Category: 1, Ingredient: 1}, DefaultEvidenceBoost())
	profile := pipeline.Profile(gingerFields())

	if got := scorer.Score(profile, profile, store.EvidenceStrong); got != 1 {
		t.Errorf("Score = %v, want clamp to 1", got)
	}
}

func TestScorerEmptyProfilesScoreZero(t *testing.T) {
	scorer := DefaultScorer()
	empty := pipeline.Profile(ingest.Fields{})
	profile := pipeline.Profile(gingerFields())

	if got := scorer.Score(empty, profile, store.EvidenceUnspecified); got != 0 {
		t.Errorf("empty drug should score 0, got %v", got)
	}
	// Only the evidence boost survives.
	if got := scorer.Score(profile, empty, store.EvidenceStrong); !approxEqual(got, 0.05) {
		t.Errorf("empty candidate with strong evidence = %v, want 0.05", got)
	}
}

// Without stemming "inflammation" and "anti-inflammatory" share nothing, so the
// Ibuprofen/Turmeric pair scores 0 and is filtered by the default threshold.
func TestScorerIbuprofenTurmericObserved(t *testing.T) {
	scorer := DefaultScorer()
	drug := pipeline.Profile(ingest.Fields{
		Name:        "Ibuprofen",
		Category:    "Pain Reliever (NSAID)",
		Ingredients: []string{"Ibuprofen"},
		Benefits:    []string{"Pain relief", "Inflammation reduction"},
	})
	turmeric := pipeline.Profile(ingest.Fields{
		Name:        "Turmeric",
		Category:    "Herbal",
		Ingredients: []string{"Curcumin"},
		Benefits:    []string{"Anti-inflammatory"},
	})

	b := scorer.ScoreWithBreakdown(drug, turmeric, store.EvidenceUnspecified)
	if b.Ingredient != 0 || b.Benefit != 0 || b.Category != 0 || b.Total != 0 {
		t.Errorf("breakdown = %+v, want all zero", b)
	}

	ranked := Rank([]Scored{{Remedy: store.Remedy{ID: "turmeric"}, Score: b.Total}}, Options{})
	if len(ranked) != 0 {
		t.Errorf("score 0 should fall below the default threshold, got %v", ranked)
	}
}

func TestScorerBenefitOverlapDrivesScore(t *testing.T) {
	scorer := DefaultScorer()
	drug := pipeline.Profile(ingest.Fields{
		Name:        "Ibuprofen",
		Category:    "Pain Reliever (NSAID)",
		Ingredients: []string{"Ibuprofen"},
		Benefits:    []string{"Pain relief", "Inflammation reduction"},
	})
	willow := pipeline.Profile(ingest.Fields{
		Name:        "White Willow Bark",
		Category:    "Herbal",
		Ingredients: []string{"Salicin"},
		Benefits:    []string{"Pain relief", "Inflammation"},
	})

	b := scorer.ScoreWithBreakdown(drug, willow, store.EvidenceModerate)

	// benefit⁺: {ibuprofen, inflammation, pain, reduction, relief} vs
	// {bark, inflammation, pain, relief, white, willow} = 3/8
	if !approxEqual(b.Benefit, 0.375) {
		t.Errorf("Benefit = %v, want 0.375", b.Benefit)
	}
	// category: {nsaid, pain, reliever} vs {bark, herbal, inflammation, pain, relief, white, willow} = 1/9
	if !approxEqual(b.Category, 1.0/9.0) {
		t.Errorf("Category = %v, want 1/9", b.Category)
	}
	// 0.1875 + 0.0333.. + 0 + 0.03 = 0.2508.. → 0.251
	if !approxEqual(b.Total, 0.251) {
		t.Errorf("Total = %v, want 0.251", b.Total)
	}
}

func TestScoreRangeInvariant(t *testing.T) {
	scorer := DefaultScorer()
	fields := []ingest.Fields{
		{},
		gingerFields(),
		{Name: "Valerian", Category: "Sleep", Benefits: []string{"Sleep", "Calm"}},
		{Name: "Sleep", Category: "Sleep", Ingredients: []string{"Sleep"}, Benefits: []string{"Sleep"}},
	}
	levels := []store.EvidenceLevel{store.EvidenceUnspecified, store.EvidenceLimited, store.EvidenceStrong}

	for _, d := range fields {
		for _, c := range fields {
			for _, lvl := range levels {
				s := scorer.Score(pipeline.Profile(d), pipeline.Profile(c), lvl)
				if s < 0 || s > 1 {
					t.Errorf("score %v out of range for %v vs %v", s, d, c)
				}
				if !approxEqual(s, Finalize(s)) {
					t.Errorf("score %v not rounded to 3 decimals", s)
				}
			}
		}
	}
}

func TestWeightsValidate(t *testing.T) {
	if err := DefaultWeights().Validate(); err != nil {
		t.Errorf("default weights should be valid: %v", err)
	}
	if err := (Weights{Benefit: 0.6, Category: 0.3, Ingredient: 0.2}).Validate(); err == nil {
		t.Error("weights summing above 1 should fail")
	}
	if err := (Weights{Benefit: -0.1}).Validate(); err == nil {
		t.Error("negative weight should fail")
	}
}

func TestMatchingNutrients(t *testing.T) {
	tests := []struct {
		name   string
		remedy store.Remedy
		want   []string
	}{
		{"first three ingredients", store.Remedy{Ingredients: []string{"A", "B", "C", "D"}, Benefits: []string{"X"}}, []string{"A", "B", "C"}},
		{"fewer ingredients", store.Remedy{Ingredients: []string{"A"}}, []string{"A"}},
		{"benefits fallback", store.Remedy{Benefits: []string{"X", "Y", "Z", "W"}}, []string{"X", "Y", "Z"}},
		{"nothing", store.Remedy{}, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MatchingNutrients(tt.remedy)
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("got %v, want %v", got, tt.want)
				}
			}
		})
	}
}

func TestMatchingNutrientsDoesNotAlias(t *testing.T) {
	r := store.Remedy{Ingredients: []string{"A", "B"}}
	got := MatchingNutrients(r)
	got[0] = "changed"
	if r.Ingredients[0] != "A" {
		t.Error("MatchingNutrients must copy, not alias, the remedy slice")
	}
}
