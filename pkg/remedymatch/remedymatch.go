// Package remedymatch recommends natural remedies for a drug by comparing
// their ingredients, benefits, category and name as token sets.
//
// A match run is pure: tokenize both sides, score every candidate, rank,
// classify and apply the risk override. Persisting a run is a separate,
// idempotent step that never overwrites an earlier mapping.
package remedymatch

import (
	"context"
	"crypto/rand"
	"fmt"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/cognicore/remedymatch/pkg/remedymatch/classify"
	"github.com/cognicore/remedymatch/pkg/remedymatch/ingest"
	"github.com/cognicore/remedymatch/pkg/remedymatch/internalerr"
	"github.com/cognicore/remedymatch/pkg/remedymatch/metrics"
	"github.com/cognicore/remedymatch/pkg/remedymatch/rank"
	"github.com/cognicore/remedymatch/pkg/remedymatch/store"
)

// CandidateSource narrows the remedy list for a drug before scoring.
// catalog.Catalog implements it.
type CandidateSource interface {
	CandidatesFor(ctx context.Context, drug store.Drug) ([]store.Remedy, error)
}

// Engine is the remedy matching facade
type Engine struct {
	drugs      store.DrugSource
	remedies   store.RemedySource
	mappings   store.MappingStore
	pipeline   *ingest.Pipeline
	scorer     *rank.Scorer
	thresholds classify.Thresholds
	risk       *classify.RiskPolicy
	rankOpts   rank.Options
	prefilter  bool
	logger     *zap.Logger
	clock      func() time.Time

	idMu    sync.Mutex
	entropy *ulid.MonotonicEntropy
}

// Options configures an Engine. Every field is optional; nil or zero values
// select the defaults.
type Options struct {
	Drugs      store.DrugSource
	Remedies   store.RemedySource
	Mappings   store.MappingStore
	Pipeline   *ingest.Pipeline
	Scorer     *rank.Scorer
	Thresholds classify.Thresholds
	RiskPolicy *classify.RiskPolicy
	Rank       rank.Options

	// Prefilter asks Remedies for CandidatesFor(drug) when it implements
	// CandidateSource. Remedies sharing no token with the drug are skipped.
	Prefilter bool

	Logger *zap.Logger
	Clock  func() time.Time
}

// New creates an Engine with the given dependencies
func New(opts Options) *Engine {
	e := &Engine{
		drugs:      opts.Drugs,
		remedies:   opts.Remedies,
		mappings:   opts.Mappings,
		pipeline:   opts.Pipeline,
		scorer:     opts.Scorer,
		thresholds: opts.Thresholds,
		risk:       opts.RiskPolicy,
		rankOpts:   opts.Rank,
		prefilter:  opts.Prefilter,
		logger:     opts.Logger,
		clock:      opts.Clock,
		entropy:    ulid.Monotonic(rand.Reader, 0),
	}
	if e.pipeline == nil {
		e.pipeline = ingest.NewPipeline(nil)
	}
	if e.scorer == nil {
		e.scorer = rank.DefaultScorer()
	}
	if e.thresholds == (classify.Thresholds{}) {
		e.thresholds = classify.DefaultThresholds()
	}
	if e.risk == nil {
		e.risk = classify.DefaultRiskPolicy()
	}
	if e.logger == nil {
		e.logger = zap.NewNop()
	}
	if e.clock == nil {
		e.clock = time.Now
	}
	return e
}

// Run is the outcome of matching one drug against a candidate list.
type Run struct {
	ID         string
	DrugID     string
	Results    []store.MatchResult
	Breakdowns []rank.ScoreBreakdown // parallel to Results
	Candidates int

	// RiskKeyword is the keyword that forced every result to Supportive,
	// or empty when the override did not fire.
	RiskKeyword string

	StartedAt time.Time
	Duration  time.Duration
}

// Match scores, ranks and classifies candidates for drug.
//
// Zero fields of opts fall back to the engine's configured options. The
// result order depends only on the inputs: equal scores keep candidate order.
func (e *Engine) Match(drug store.Drug, candidates []store.Remedy, opts rank.Options) Run {
	started := e.clock()
	run := Run{
		ID:         e.newID(started),
		DrugID:     drug.ID,
		Candidates: len(candidates),
		StartedAt:  started,
	}

	drugProfile := e.pipeline.Profile(drugFields(drug))
	scored := make([]rank.Scored, 0, len(candidates))
	for _, c := range candidates {
		b := e.scorer.ScoreWithBreakdown(drugProfile, e.pipeline.Profile(remedyFields(c)), c.Evidence)
		scored = append(scored, rank.Scored{Remedy: c, Score: b.Total, Breakdown: b})
	}
	ranked := rank.Rank(scored, e.mergeOptions(opts))

	keyword, risky := e.risk.Match(drug.Name, drug.Category)
	if risky {
		run.RiskKeyword = keyword
	}

	run.Results = make([]store.MatchResult, len(ranked))
	run.Breakdowns = make([]rank.ScoreBreakdown, len(ranked))
	for i, s := range ranked {
		label := e.risk.Apply(drug.Name, drug.Category, e.thresholds.Classify(s.Score))
		run.Results[i] = store.MatchResult{
			RemedyID:          s.Remedy.ID,
			Name:              s.Remedy.Name,
			Description:       s.Remedy.Description,
			ImageURL:          s.Remedy.ImageURL,
			Category:          s.Remedy.Category,
			MatchingNutrients: rank.MatchingNutrients(s.Remedy),
			SimilarityScore:   s.Score,
			ReplacementType:   label,
		}
		run.Breakdowns[i] = s.Breakdown
	}
	run.Duration = time.Since(started)

	metrics.MatchRunsTotal.WithLabelValues(fmt.Sprint(risky)).Inc()
	metrics.CandidatesScoredTotal.Add(float64(len(candidates)))
	metrics.ResultsPerRun.Observe(float64(len(run.Results)))
	metrics.MatchDuration.Observe(run.Duration.Seconds())

	e.logger.Debug("match run finished",
		zap.String("run_id", run.ID),
		zap.String("drug_id", drug.ID),
		zap.Int("candidates", len(candidates)),
		zap.Int("results", len(run.Results)),
		zap.String("risk_keyword", run.RiskKeyword),
	)
	return run
}

// Recommend loads the drug and its candidates from the configured sources
// and matches them. An unknown drug ID yields internalerr.ErrNotFound.
func (e *Engine) Recommend(ctx context.Context, drugID string, opts rank.Options) (Run, error) {
	if e.drugs == nil || e.remedies == nil {
		return Run{}, fmt.Errorf("recommend: drug and remedy sources are required: %w", internalerr.ErrInvalidInput)
	}

	drug, found, err := e.drugs.GetDrug(ctx, drugID)
	if err != nil {
		return Run{}, fmt.Errorf("get drug %s: %w", drugID, err)
	}
	if !found {
		return Run{}, fmt.Errorf("drug %s: %w", drugID, internalerr.ErrNotFound)
	}

	candidates, err := e.candidates(ctx, drug)
	if err != nil {
		return Run{}, err
	}
	return e.Match(drug, candidates, opts), nil
}

func (e *Engine) candidates(ctx context.Context, drug store.Drug) ([]store.Remedy, error) {
	if cs, ok := e.remedies.(CandidateSource); ok && e.prefilter {
		candidates, err := cs.CandidatesFor(ctx, drug)
		if err != nil {
			return nil, fmt.Errorf("candidates for %s: %w", drug.ID, err)
		}
		return candidates, nil
	}

	candidates, err := e.remedies.ListRemedies(ctx)
	if err != nil {
		return nil, fmt.Errorf("list remedies: %w", err)
	}
	return candidates, nil
}

// mergeOptions fills zero fields of opts from the engine configuration.
func (e *Engine) mergeOptions(opts rank.Options) rank.Options {
	if opts.MinScore == 0 {
		opts.MinScore = e.rankOpts.MinScore
	}
	if opts.Limit <= 0 {
		opts.Limit = e.rankOpts.Limit
	}
	return opts
}

// newID returns a ULID. Monotonic entropy is not safe for concurrent use.
func (e *Engine) newID(t time.Time) string {
	e.idMu.Lock()
	defer e.idMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(t), e.entropy).String()
}

func drugFields(d store.Drug) ingest.Fields {
	return ingest.Fields{Name: d.Name, Category: d.Category, Ingredients: d.Ingredients, Benefits: d.Benefits}
}

func remedyFields(r store.Remedy) ingest.Fields {
	return ingest.Fields{Name: r.Name, Category: r.Category, Ingredients: r.Ingredients, Benefits: r.Benefits}
}
