// Package catalog holds an immutable, indexed snapshot of the remedy catalog.
//
// A Catalog is built once and then shared read-only by any number of match
// runs. Besides serving as a store.RemedySource it keeps a token index so a
// run can skip remedies that share no vocabulary with the drug.
package catalog

import (
	"context"
	"fmt"
	"sort"

	"github.com/cognicore/remedymatch/pkg/remedymatch/ingest"
	"github.com/cognicore/remedymatch/pkg/remedymatch/internalerr"
	"github.com/cognicore/remedymatch/pkg/remedymatch/store"
)

// Catalog is a read-only remedy snapshot with a token → remedy index.
type Catalog struct {
	pipeline *ingest.Pipeline
	remedies []store.Remedy
	byID     map[string]int
	index    map[string][]int // token → positions in remedies, ascending
}

var _ store.RemedySource = (*Catalog)(nil)

// New indexes remedies in the given order. IDs must be unique and non-empty.
// A nil pipeline uses the default tokenizer.
func New(remedies []store.Remedy, pipeline *ingest.Pipeline) (*Catalog, error) {
	if pipeline == nil {
		pipeline = ingest.NewPipeline(nil)
	}

	c := &Catalog{
		pipeline: pipeline,
		remedies: make([]store.Remedy, 0, len(remedies)),
		byID:     make(map[string]int, len(remedies)),
		index:    make(map[string][]int),
	}
	for _, r := range remedies {
		if r.ID == "" {
			return nil, fmt.Errorf("remedy %q without id: %w", r.Name, internalerr.ErrInvalidInput)
		}
		if _, dup := c.byID[r.ID]; dup {
			return nil, fmt.Errorf("duplicate remedy id %q: %w", r.ID, internalerr.ErrInvalidInput)
		}

		pos := len(c.remedies)
		c.byID[r.ID] = pos
		c.remedies = append(c.remedies, copyRemedy(r))

		for tok := range allTokens(pipeline.Profile(remedyFields(r))) {
			c.index[tok] = append(c.index[tok], pos)
		}
	}
	return c, nil
}

// Load snapshots every remedy from src.
func Load(ctx context.Context, src store.RemedySource, pipeline *ingest.Pipeline) (*Catalog, error) {
	remedies, err := src.ListRemedies(ctx)
	if err != nil {
		return nil, fmt.Errorf("list remedies: %w", err)
	}
	return New(remedies, pipeline)
}

// Len returns the number of remedies.
func (c *Catalog) Len() int {
	return len(c.remedies)
}

// Get returns a remedy by ID.
func (c *Catalog) Get(id string) (store.Remedy, bool) {
	pos, ok := c.byID[id]
	if !ok {
		return store.Remedy{}, false
	}
	return copyRemedy(c.remedies[pos]), true
}

// ListRemedies returns every remedy in catalog order.
func (c *Catalog) ListRemedies(ctx context.Context) ([]store.Remedy, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([]store.Remedy, len(c.remedies))
	for i, r := range c.remedies {
		out[i] = copyRemedy(r)
	}
	return out, nil
}

// CandidatesFor returns, in catalog order, the remedies sharing at least one
// token with the drug's name, category, ingredients or benefits.
//
// Any remedy with a non-zero overlap component is included. Remedies left
// out can only score their evidence boost.
func (c *Catalog) CandidatesFor(ctx context.Context, drug store.Drug) ([]store.Remedy, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	hits := make(map[int]struct{})
	for tok := range allTokens(c.pipeline.Profile(drugFields(drug))) {
		for _, pos := range c.index[tok] {
			hits[pos] = struct{}{}
		}
	}

	positions := make([]int, 0, len(hits))
	for pos := range hits {
		positions = append(positions, pos)
	}
	sort.Ints(positions)

	out := make([]store.Remedy, len(positions))
	for i, pos := range positions {
		out[i] = copyRemedy(c.remedies[pos])
	}
	return out, nil
}

// RemediesWithToken returns the IDs of remedies whose text contains tok.
func (c *Catalog) RemediesWithToken(tok string) []string {
	positions := c.index[tok]
	out := make([]string, len(positions))
	for i, pos := range positions {
		out[i] = c.remedies[pos].ID
	}
	return out
}

func allTokens(p ingest.Profile) ingest.TokenSet {
	return p.Ingredients.Union(p.Benefits, p.Name, p.Category)
}

func drugFields(d store.Drug) ingest.Fields {
	return ingest.Fields{Name: d.Name, Category: d.Category, Ingredients: d.Ingredients, Benefits: d.Benefits}
}

func remedyFields(r store.Remedy) ingest.Fields {
	return ingest.Fields{Name: r.Name, Category: r.Category, Ingredients: r.Ingredients, Benefits: r.Benefits}
}

func copyRemedy(r store.Remedy) store.Remedy {
	r.Ingredients = append([]string(nil), r.Ingredients...)
	r.Benefits = append([]string(nil), r.Benefits...)
	return r
}
