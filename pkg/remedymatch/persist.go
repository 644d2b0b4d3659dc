package remedymatch

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/cognicore/remedymatch/pkg/remedymatch/internalerr"
	"github.com/cognicore/remedymatch/pkg/remedymatch/metrics"
	"github.com/cognicore/remedymatch/pkg/remedymatch/store"
)

// PersistResult counts what happened to the mappings of one run.
type PersistResult struct {
	Inserted int `json:"inserted"`
	Skipped  int `json:"skipped"` // pair already stored; the earlier mapping is kept
}

// Mappings converts the results of run into mapping rows.
func (e *Engine) Mappings(run Run) []store.Mapping {
	created := e.clock()
	out := make([]store.Mapping, len(run.Results))
	for i, r := range run.Results {
		out[i] = store.Mapping{
			ID:                e.newID(created),
			DrugID:            run.DrugID,
			RemedyID:          r.RemedyID,
			SimilarityScore:   r.SimilarityScore,
			MatchingNutrients: append([]string(nil), r.MatchingNutrients...),
			ReplacementType:   r.ReplacementType,
			RunID:             run.ID,
			CreatedAt:         created,
		}
	}
	return out
}

// Persist stores the run's results with insert-if-absent semantics.
// Storage errors are returned unchanged apart from wrapping.
func (e *Engine) Persist(ctx context.Context, run Run) (PersistResult, error) {
	if e.mappings == nil {
		return PersistResult{}, fmt.Errorf("persist: no mapping store configured: %w", internalerr.ErrInvalidInput)
	}

	rows := e.Mappings(run)
	inserted, err := e.mappings.InsertMappings(ctx, rows)
	if err != nil {
		return PersistResult{}, fmt.Errorf("persist run %s: %w", run.ID, err)
	}

	res := PersistResult{Inserted: inserted, Skipped: len(rows) - inserted}
	metrics.MappingsTotal.WithLabelValues("inserted").Add(float64(res.Inserted))
	metrics.MappingsTotal.WithLabelValues("skipped").Add(float64(res.Skipped))

	e.logger.Info("mappings persisted",
		zap.String("run_id", run.ID),
		zap.String("drug_id", run.DrugID),
		zap.Int("inserted", res.Inserted),
		zap.Int("skipped", res.Skipped),
	)
	return res, nil
}

// StoredMappings returns the persisted mappings for drugID, best score first.
func (e *Engine) StoredMappings(ctx context.Context, drugID string) ([]store.Mapping, error) {
	if e.mappings == nil {
		return nil, fmt.Errorf("no mapping store configured: %w", internalerr.ErrInvalidInput)
	}
	return e.mappings.ListMappings(ctx, drugID)
}
