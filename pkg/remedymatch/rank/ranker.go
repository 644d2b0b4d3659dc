package rank

import (
	"sort"

	"github.com/cognicore/remedymatch/pkg/remedymatch/store"
)

const (
	// DefaultMinScore drops weak matches.
	DefaultMinScore = 0.12
	// DefaultLimit caps the number of ranked results.
	DefaultLimit = 10
)

// Options tunes filtering and truncation. Zero values select the defaults.
type Options struct {
	MinScore float64
	Limit    int
}

// withDefaults fills zero fields. A negative MinScore keeps every candidate.
func (o Options) withDefaults() Options {
	if o.MinScore == 0 {
		o.MinScore = DefaultMinScore
	}
	if o.MinScore < 0 {
		o.MinScore = 0
	}
	if o.Limit <= 0 {
		o.Limit = DefaultLimit
	}
	return o
}

// Scored is a candidate remedy with its computed score.
type Scored struct {
	Remedy    store.Remedy
	Score     float64
	Breakdown ScoreBreakdown
}

// Rank filters by MinScore, sorts by score descending and truncates to Limit.
//
// Equal scores keep their input order. When a remedy ID appears more than
// once only its first occurrence is considered.
func Rank(scored []Scored, opts Options) []Scored {
	opts = opts.withDefaults()

	seen := make(map[string]struct{}, len(scored))
	kept := make([]Scored, 0, len(scored))
	for _, s := range scored {
		if _, dup := seen[s.Remedy.ID]; dup {
			continue
		}
		seen[s.Remedy.ID] = struct{}{}
		if s.Score < opts.MinScore {
			continue
		}
		kept = append(kept, s)
	}

	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].Score > kept[j].Score
	})

	if len(kept) > opts.Limit {
		kept = kept[:opts.Limit]
	}
	return kept
}
