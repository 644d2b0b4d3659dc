// Package batch matches many drugs concurrently on a bounded worker pool.
package batch

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"

	"github.com/cognicore/remedymatch/internal/logger"
	"github.com/cognicore/remedymatch/pkg/remedymatch"
	"github.com/cognicore/remedymatch/pkg/remedymatch/metrics"
	"github.com/cognicore/remedymatch/pkg/remedymatch/rank"
)

// Matcher is the part of remedymatch.Engine the runner needs.
type Matcher interface {
	Recommend(ctx context.Context, drugID string, opts rank.Options) (remedymatch.Run, error)
	Persist(ctx context.Context, run remedymatch.Run) (remedymatch.PersistResult, error)
}

var _ Matcher = (*remedymatch.Engine)(nil)

// Runner fans match jobs out over an ants pool.
type Runner struct {
	matcher Matcher
	pool    *ants.Pool
	persist bool
	opts    rank.Options
	logger  *zap.Logger
}

// Option configures a Runner.
type Option func(*Runner) error

// WithPoolSize sets the number of concurrent jobs.
// Default is runtime.NumCPU(), with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(r *Runner) error {
		if size < 1 {
			size = 1
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		if r.pool != nil {
			r.pool.Release()
		}
		r.pool = pool
		return nil
	}
}

// WithPersist stores every run's mappings after matching.
func WithPersist(persist bool) Option {
	return func(r *Runner) error {
		r.persist = persist
		return nil
	}
}

// WithRankOptions overrides the engine's filtering and truncation options.
func WithRankOptions(opts rank.Options) Option {
	return func(r *Runner) error {
		r.opts = opts
		return nil
	}
}

// WithLogger sets the logger. Default is the logger carried by the context
// passed to Run.
func WithLogger(l *zap.Logger) Option {
	return func(r *Runner) error {
		r.logger = l
		return nil
	}
}

// NewRunner creates a batch runner around matcher.
func NewRunner(matcher Matcher, opts ...Option) (*Runner, error) {
	if matcher == nil {
		return nil, errors.New("batch: matcher is required")
	}

	pool, err := ants.NewPool(runtime.NumCPU())
	if err != nil {
		return nil, err
	}
	r := &Runner{matcher: matcher, pool: pool}

	for _, opt := range opts {
		if err := opt(r); err != nil {
			r.Release()
			return nil, err
		}
	}
	return r, nil
}

// Release frees the worker pool. The runner must not be used afterwards.
func (r *Runner) Release() {
	if r.pool != nil {
		r.pool.Release()
	}
}

// Result is the outcome of one drug in a batch.
type Result struct {
	DrugID    string
	Run       remedymatch.Run
	Persisted remedymatch.PersistResult
	Err       error
}

// Run matches every drug ID and returns one Result per ID, in input order.
//
// Jobs not yet started when ctx is cancelled are marked with ctx.Err().
// The returned error joins every per-drug error; results are still complete.
func (r *Runner) Run(ctx context.Context, drugIDs []string) ([]Result, error) {
	if r.logger != nil {
		ctx = logger.WithLogger(ctx, r.logger)
	}
	log := logger.FromContext(ctx)

	results := make([]Result, len(drugIDs))
	var wg sync.WaitGroup
	for i, id := range drugIDs {
		i, id := i, id
		results[i].DrugID = id
		if err := ctx.Err(); err != nil {
			results[i].Err = err
			metrics.BatchJobsTotal.WithLabelValues("cancelled").Inc()
			continue
		}

		wg.Add(1)
		err := r.pool.Submit(func() {
			defer wg.Done()
			results[i] = r.runOne(logger.WithDrug(ctx, id), id)
		})
		if err != nil {
			wg.Done()
			results[i].Err = fmt.Errorf("submit %s: %w", id, err)
			metrics.BatchJobsTotal.WithLabelValues("error").Inc()
		}
	}
	wg.Wait()

	var errs []error
	for _, res := range results {
		if res.Err != nil {
			errs = append(errs, res.Err)
		}
	}
	log.Info("batch finished",
		zap.Int("drugs", len(drugIDs)),
		zap.Int("failed", len(errs)),
		zap.Bool("persist", r.persist),
	)
	return results, errors.Join(errs...)
}

func (r *Runner) runOne(ctx context.Context, drugID string) Result {
	log := logger.FromContext(ctx)
	res := Result{DrugID: drugID}
	if err := ctx.Err(); err != nil {
		res.Err = err
		metrics.BatchJobsTotal.WithLabelValues("cancelled").Inc()
		return res
	}

	run, err := r.matcher.Recommend(ctx, drugID, r.opts)
	if err != nil {
		res.Err = err
		metrics.BatchJobsTotal.WithLabelValues("error").Inc()
		log.Warn("batch job failed", zap.String("stage", "match"), zap.Error(err))
		return res
	}
	res.Run = run

	if r.persist {
		if res.Persisted, err = r.matcher.Persist(ctx, run); err != nil {
			res.Err = err
			metrics.BatchJobsTotal.WithLabelValues("error").Inc()
			log.Warn("batch job failed", zap.String("stage", "persist"), zap.Error(err))
			return res
		}
	}

	metrics.BatchJobsTotal.WithLabelValues("ok").Inc()
	log.Debug("batch job done",
		zap.String("run_id", run.ID),
		zap.Int("results", len(run.Results)),
	)
	return res
}
