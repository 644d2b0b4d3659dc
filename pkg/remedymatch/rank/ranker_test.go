package rank

import (
	"fmt"
	"testing"

	"github.com/cognicore/remedymatch/pkg/remedymatch/store"
)

func scored(id string, score float64) Scored {
	return Scored{Remedy: store.Remedy{ID: id, Name: id}, Score: score}
}

func ids(in []Scored) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = s.Remedy.ID
	}
	return out
}

func TestRankFilterSortTruncate(t *testing.T) {
	input := []Scored{
		scored("a", 0.30),
		scored("b", 0.11),
		scored("c", 0.90),
		scored("d", 0.12),
		scored("e", 0.55),
	}

	got := ids(Rank(input, Options{MinScore: 0.12, Limit: 3}))

	want := []string{"c", "e", "a"}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Errorf("Rank = %v, want %v", got, want)
	}
}

func TestRankThresholdInclusive(t *testing.T) {
	got := Rank([]Scored{scored("edge", 0.12), scored("below", 0.119)}, Options{})

	if len(got) != 1 || got[0].Remedy.ID != "edge" {
		t.Errorf("score equal to MinScore should be kept, got %v", ids(got))
	}
}

func TestRankTiesKeepInputOrder(t *testing.T) {
	input := []Scored{
		scored("first", 0.4),
		scored("top", 0.8),
		scored("second", 0.4),
		scored("third", 0.4),
	}

	got := ids(Rank(input, Options{}))

	want := []string{"top", "first", "second", "third"}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Errorf("Rank = %v, want %v", got, want)
	}
}

func TestRankDefaults(t *testing.T) {
	var input []Scored
	for i := 0; i < 25; i++ {
		input = append(input, scored(fmt.Sprintf("r%02d", i), 0.5))
	}

	got := Rank(input, Options{})
	if len(got) != DefaultLimit {
		t.Errorf("default limit: got %d results, want %d", len(got), DefaultLimit)
	}
}

func TestRankNegativeMinScoreKeepsZeroScores(t *testing.T) {
	got := Rank([]Scored{scored("zero", 0)}, Options{MinScore: -1})
	if len(got) != 1 {
		t.Errorf("negative MinScore should keep zero scores, got %v", ids(got))
	}
}

func TestRankDropsDuplicateRemedyIDs(t *testing.T) {
	input := []Scored{
		scored("dup", 0.3),
		scored("other", 0.5),
		scored("dup", 0.9),
	}

	got := Rank(input, Options{})

	seen := map[string]bool{}
	for _, s := range got {
		if seen[s.Remedy.ID] {
			t.Fatalf("remedy %s appears twice in %v", s.Remedy.ID, ids(got))
		}
		seen[s.Remedy.ID] = true
	}
	if len(got) != 2 || got[1].Remedy.ID != "dup" || got[1].Score != 0.3 {
		t.Errorf("first occurrence should win, got %+v", got)
	}
}

func TestRankEmpty(t *testing.T) {
	got := Rank(nil, Options{})
	if got == nil || len(got) != 0 {
		t.Errorf("Rank(nil) = %v, want empty non-nil slice", got)
	}
}

func TestRankInvariants(t *testing.T) {
	var input []Scored
	for i := 0; i < 40; i++ {
		input = append(input, scored(fmt.Sprintf("r%02d", i), Finalize(float64((i*37)%100)/100)))
	}
	opts := Options{MinScore: 0.2, Limit: 7}

	got := Rank(input, opts)

	if len(got) > opts.Limit {
		t.Errorf("len = %d exceeds limit %d", len(got), opts.Limit)
	}
	for i, s := range got {
		if s.Score < opts.MinScore {
			t.Errorf("result %d score %v below MinScore", i, s.Score)
		}
		if i > 0 && got[i-1].Score < s.Score {
			t.Errorf("results not sorted at %d: %v < %v", i, got[i-1].Score, s.Score)
		}
	}

	again := Rank(input, opts)
	if fmt.Sprint(ids(again)) != fmt.Sprint(ids(got)) {
		t.Errorf("Rank is not deterministic: %v vs %v", ids(again), ids(got))
	}
}
