package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/cognicore/remedymatch/pkg/remedymatch/classify"
	"github.com/cognicore/remedymatch/pkg/remedymatch/internalerr"
)

// Store is the main interface for persisting drugs, remedies and mappings
type Store interface {
	Close() error

	DrugSource
	RemedySource
	MappingStore

	// Catalog maintenance
	UpsertDrug(ctx context.Context, d Drug) error
	UpsertRemedy(ctx context.Context, r Remedy) error
	ListDrugs(ctx context.Context) ([]Drug, error)
}

// DrugSource supplies the drug being matched.
type DrugSource interface {
	GetDrug(ctx context.Context, id string) (Drug, bool, error)
}

// RemedySource supplies candidate remedies for a match run.
type RemedySource interface {
	ListRemedies(ctx context.Context) ([]Remedy, error)
}

// MappingStore persists ranked drug→remedy relationships.
//
// InsertMappings has insert-if-absent semantics keyed by (DrugID, RemedyID):
// a pair that already exists is skipped, never updated, and is not an
// error. It returns how many rows were actually created.
type MappingStore interface {
	InsertMappings(ctx context.Context, mappings []Mapping) (int, error)
	ListMappings(ctx context.Context, drugID string) ([]Mapping, error)
}

// Drug is the immutable input of a match run.
type Drug struct {
	ID          string
	Name        string
	Category    string
	Ingredients []string
	Benefits    []string
}

// EvidenceLevel is a qualitative confidence tag attached to a remedy.
type EvidenceLevel string

const (
	EvidenceUnspecified EvidenceLevel = ""
	EvidenceLimited     EvidenceLevel = "limited"
	EvidenceModerate    EvidenceLevel = "moderate"
	EvidenceStrong      EvidenceLevel = "strong"
)

// ParseEvidenceLevel maps free text onto a known level.
// Anything unrecognised, including "none", is EvidenceUnspecified.
func ParseEvidenceLevel(s string) EvidenceLevel {
	switch EvidenceLevel(strings.ToLower(strings.TrimSpace(s))) {
	case EvidenceStrong:
		return EvidenceStrong
	case EvidenceModerate:
		return EvidenceModerate
	case EvidenceLimited:
		return EvidenceLimited
	}
	return EvidenceUnspecified
}

// Remedy is a candidate natural remedy. Read-only to the engine.
type Remedy struct {
	ID          string
	Name        string
	Description string
	ImageURL    string
	Category    string
	Ingredients []string
	Benefits    []string
	Evidence    EvidenceLevel
}

// MatchResult is one ranked recommendation produced by a match run.
type MatchResult struct {
	RemedyID          string                   `json:"remedyId"`
	Name              string                   `json:"name"`
	Description       string                   `json:"description"`
	ImageURL          string                   `json:"imageUrl"`
	Category          string                   `json:"category"`
	MatchingNutrients []string                 `json:"matchingNutrients"`
	SimilarityScore   float64                  `json:"similarityScore"`
	ReplacementType   classify.ReplacementType `json:"replacementType"`
}

// Mapping is a persisted drug→remedy relationship. Unique per (DrugID, RemedyID).
type Mapping struct {
	ID                string
	DrugID            string
	RemedyID          string
	SimilarityScore   float64
	MatchingNutrients []string
	ReplacementType   classify.ReplacementType
	RunID             string
	CreatedAt         time.Time
}

// Key returns the uniqueness key of the mapping.
func (m Mapping) Key() string {
	return m.DrugID + "\x00" + m.RemedyID
}

// NormalizeList trims every entry and drops blanks.
// Storage backends call it once so the engine only sees canonical lists.
func NormalizeList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

// SplitList splits a delimited string (comma or semicolon) into a canonical list.
func SplitList(s string) []string {
	return NormalizeList(strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ';' || r == '\n'
	}))
}

// SortMappings orders mappings by score descending, then remedy ID.
func SortMappings(ms []Mapping) {
	sort.SliceStable(ms, func(i, j int) bool {
		if ms[i].SimilarityScore != ms[j].SimilarityScore {
			return ms[i].SimilarityScore > ms[j].SimilarityScore
		}
		return ms[i].RemedyID < ms[j].RemedyID
	})
}

// ValidateMapping rejects mappings without a complete key.
func ValidateMapping(m Mapping) error {
	if strings.TrimSpace(m.DrugID) == "" || strings.TrimSpace(m.RemedyID) == "" {
		return fmt.Errorf("mapping %q→%q: %w", m.DrugID, m.RemedyID, internalerr.ErrInvalidInput)
	}
	return nil
}
