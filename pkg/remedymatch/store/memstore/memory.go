package memstore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cognicore/remedymatch/pkg/remedymatch/internalerr"
	"github.com/cognicore/remedymatch/pkg/remedymatch/store"
)

// Store is an in-memory implementation of store.Store for tests.
type Store struct {
	mu          sync.RWMutex
	closed      bool
	drugs       map[string]store.Drug
	drugOrder   []string
	remedies    map[string]store.Remedy
	remedyOrder []string
	mappings    map[string]store.Mapping
}

var _ store.Store = (*Store)(nil)

// New creates a new in-memory store.
func New() *Store {
	return &Store{
		drugs:    make(map[string]store.Drug),
		remedies: make(map[string]store.Remedy),
		mappings: make(map[string]store.Mapping),
	}
}

// Close implements store.Store.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// UpsertDrug inserts or replaces a drug, keyed by ID.
func (s *Store) UpsertDrug(ctx context.Context, d store.Drug) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return internalerr.ErrStoreClosed
	}
	if d.ID == "" {
		return fmt.Errorf("drug without id: %w", internalerr.ErrInvalidInput)
	}

	if _, ok := s.drugs[d.ID]; !ok {
		s.drugOrder = append(s.drugOrder, d.ID)
	}
	s.drugs[d.ID] = copyDrug(d)
	return nil
}

// GetDrug returns a drug by ID.
func (s *Store) GetDrug(ctx context.Context, id string) (store.Drug, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return store.Drug{}, false, internalerr.ErrStoreClosed
	}

	d, ok := s.drugs[id]
	if !ok {
		return store.Drug{}, false, nil
	}
	return copyDrug(d), true, nil
}

// ListDrugs returns drugs in insertion order.
func (s *Store) ListDrugs(ctx context.Context) ([]store.Drug, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, internalerr.ErrStoreClosed
	}

	out := make([]store.Drug, 0, len(s.drugOrder))
	for _, id := range s.drugOrder {
		out = append(out, copyDrug(s.drugs[id]))
	}
	return out, nil
}

// UpsertRemedy inserts or replaces a remedy, keyed by ID.
func (s *Store) UpsertRemedy(ctx context.Context, r store.Remedy) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return internalerr.ErrStoreClosed
	}
	if r.ID == "" {
		return fmt.Errorf("remedy without id: %w", internalerr.ErrInvalidInput)
	}

	if _, ok := s.remedies[r.ID]; !ok {
		s.remedyOrder = append(s.remedyOrder, r.ID)
	}
	s.remedies[r.ID] = copyRemedy(r)
	return nil
}

// ListRemedies returns remedies in insertion order.
func (s *Store) ListRemedies(ctx context.Context) ([]store.Remedy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, internalerr.ErrStoreClosed
	}

	out := make([]store.Remedy, 0, len(s.remedyOrder))
	for _, id := range s.remedyOrder {
		out = append(out, copyRemedy(s.remedies[id]))
	}
	return out, nil
}

// InsertMappings stores mappings whose (drug, remedy) pair is not yet present.
// The whole batch is validated before anything is written.
func (s *Store) InsertMappings(ctx context.Context, mappings []store.Mapping) (int, error) {
	for _, m := range mappings {
		if err := store.ValidateMapping(m); err != nil {
			return 0, err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, internalerr.ErrStoreClosed
	}

	inserted := 0
	for _, m := range mappings {
		key := m.Key()
		if _, exists := s.mappings[key]; exists {
			continue
		}
		if m.ID == "" {
			m.ID = key
		}
		if m.CreatedAt.IsZero() {
			m.CreatedAt = time.Now()
		}
		m.CreatedAt = m.CreatedAt.UTC()
		m.MatchingNutrients = store.NormalizeList(m.MatchingNutrients)
		s.mappings[key] = m
		inserted++
	}
	return inserted, nil
}

// ListMappings returns the mappings stored for drugID.
func (s *Store) ListMappings(ctx context.Context, drugID string) ([]store.Mapping, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, internalerr.ErrStoreClosed
	}

	var out []store.Mapping
	for _, m := range s.mappings {
		if m.DrugID == drugID {
			out = append(out, copyMapping(m))
		}
	}
	store.SortMappings(out)
	return out, nil
}

func copySlice(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}

func copyDrug(d store.Drug) store.Drug {
	d.Ingredients = copySlice(d.Ingredients)
	d.Benefits = copySlice(d.Benefits)
	return d
}

func copyRemedy(r store.Remedy) store.Remedy {
	r.Ingredients = copySlice(r.Ingredients)
	r.Benefits = copySlice(r.Benefits)
	return r
}

func copyMapping(m store.Mapping) store.Mapping {
	m.MatchingNutrients = copySlice(m.MatchingNutrients)
	return m
}
