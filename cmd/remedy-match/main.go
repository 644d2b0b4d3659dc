package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/cognicore/remedymatch/internal/logger"
	"github.com/cognicore/remedymatch/pkg/remedymatch"
	"github.com/cognicore/remedymatch/pkg/remedymatch/batch"
	"github.com/cognicore/remedymatch/pkg/remedymatch/catalog"
	"github.com/cognicore/remedymatch/pkg/remedymatch/config"
	"github.com/cognicore/remedymatch/pkg/remedymatch/metrics"
	"github.com/cognicore/remedymatch/pkg/remedymatch/rank"
	"github.com/cognicore/remedymatch/pkg/remedymatch/store"
	badgerstore "github.com/cognicore/remedymatch/pkg/remedymatch/store/badger"
	"github.com/cognicore/remedymatch/pkg/remedymatch/store/memstore"
	sqlitestore "github.com/cognicore/remedymatch/pkg/remedymatch/store/sqlite"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("warning: .env: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp().RunContext(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "remedy-match",
		Usage: "Match drugs to natural remedies by ingredient, benefit and category overlap",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to engine YAML config",
				EnvVars: []string{"REMEDY_CONFIG"},
			},
			&cli.StringFlag{
				Name:    "catalog",
				Usage:   "Seed catalog YAML, upserted into the store before the command runs",
				EnvVars: []string{"REMEDY_CATALOG"},
			},
			&cli.StringFlag{
				Name:    "driver",
				Usage:   "Storage driver override (sqlite, badger, memory)",
				EnvVars: []string{"REMEDY_DRIVER"},
			},
			&cli.StringFlag{
				Name:    "db",
				Aliases: []string{"d"},
				Usage:   "Storage path override",
				EnvVars: []string{"REMEDY_DB"},
			},
			&cli.StringFlag{
				Name:  "env",
				Usage: "Logging environment (local, dev, prod)",
			},
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
			},
			&cli.StringFlag{
				Name:    "metrics-out",
				Usage:   "Write Prometheus metrics in text format to this file on exit",
				EnvVars: []string{"REMEDY_METRICS_OUT"},
			},
		},
		Before: func(c *cli.Context) error {
			if c.String("metrics-out") != "" {
				metrics.Register(prometheus.DefaultRegisterer)
			}
			return nil
		},
		After: writeMetrics,
		Commands: []*cli.Command{
			{
				Name:   "seed",
				Usage:  "Load the --catalog file into the store and report what was written",
				Action: seedCommand,
			},
			{
				Name:   "match",
				Usage:  "Recommend remedies for one drug",
				Action: matchCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "drug",
						Usage:    "Drug ID",
						Required: true,
					},
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of results (0 = config)",
					},
					&cli.Float64Flag{
						Name:  "min-score",
						Usage: "Minimum similarity score (0 = config, negative keeps everything)",
					},
					&cli.BoolFlag{
						Name:  "prefilter",
						Usage: "Only score remedies sharing at least one token with the drug",
					},
					&cli.BoolFlag{
						Name:  "persist",
						Usage: "Store the results as drug-remedy mappings",
					},
				},
			},
			{
				Name:   "match-all",
				Usage:  "Recommend remedies for every stored drug",
				Action: matchAllCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "workers",
						Usage: "Concurrent match jobs (0 = config)",
					},
					&cli.BoolFlag{
						Name:  "persist",
						Usage: "Store the results as drug-remedy mappings",
					},
				},
			},
			{
				Name:   "mappings",
				Usage:  "List stored mappings for a drug",
				Action: mappingsCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "drug",
						Usage:    "Drug ID",
						Required: true,
					},
				},
			},
		},
	}
}

// session bundles what every command needs.
type session struct {
	cfg    config.Config
	comp   *config.Components
	store  store.Store
	logger *zap.Logger
	seed   *config.Seed
}

func (s *session) Close() {
	if err := s.store.Close(); err != nil {
		s.logger.Warn("close store", zap.Error(err))
	}
	_ = s.logger.Sync()
}

func openSession(c *cli.Context) (*session, error) {
	cfg := config.Default()
	if path := c.String("config"); path != "" {
		var err error
		if cfg, err = config.Load(path); err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
	}
	if v := c.String("driver"); v != "" {
		cfg.Storage.Driver = v
		if c.String("db") == "" {
			cfg.Storage.Path = ""
		}
	}
	if v := c.String("db"); v != "" {
		cfg.Storage.Path = v
	}
	if v := c.String("env"); v != "" {
		cfg.Logging.Env = v
	}
	if v := c.String("log-level"); v != "" {
		cfg.Logging.Level = v
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	comp, err := config.Build(cfg)
	if err != nil {
		return nil, err
	}

	l, err := logger.NewLogger(cfg.Logging.Env, cfg.Logging.Level)
	if err != nil {
		return nil, err
	}
	st, err := openStore(c.Context, cfg.Storage, l)
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.Storage.Driver, err)
	}
	s := &session{cfg: cfg, comp: comp, store: st, logger: l}

	if path := c.String("catalog"); path != "" {
		if s.seed, err = config.LoadCatalog(path); err != nil {
			s.Close()
			return nil, err
		}
		if err := s.upsertSeed(c.Context); err != nil {
			s.Close()
			return nil, err
		}
	}
	return s, nil
}

func openStore(ctx context.Context, cfg config.StorageConfig, l *zap.Logger) (store.Store, error) {
	switch cfg.Driver {
	case config.DriverSQLite:
		return sqlitestore.OpenSQLite(ctx, cfg.Path)
	case config.DriverBadger:
		return badgerstore.Open(cfg.Path, false, l)
	case config.DriverMemory:
		return memstore.New(), nil
	}
	return nil, fmt.Errorf("unknown driver %q", cfg.Driver)
}

func (s *session) upsertSeed(ctx context.Context) error {
	for _, d := range s.seed.DrugRecords() {
		if err := s.store.UpsertDrug(ctx, d); err != nil {
			return fmt.Errorf("upsert drug %s: %w", d.ID, err)
		}
	}
	for _, r := range s.seed.RemedyRecords() {
		if err := s.store.UpsertRemedy(ctx, r); err != nil {
			return fmt.Errorf("upsert remedy %s: %w", r.ID, err)
		}
	}
	s.logger.Info("catalog seeded",
		zap.Int("drugs", len(s.seed.Drugs)),
		zap.Int("remedies", len(s.seed.Remedies)),
		zap.String("driver", s.cfg.Storage.Driver),
	)
	return nil
}

func (s *session) engine(ctx context.Context, prefilter bool) (*remedymatch.Engine, error) {
	var remedies store.RemedySource = s.store
	if prefilter {
		cat, err := catalog.Load(ctx, s.store, s.comp.Pipeline)
		if err != nil {
			return nil, fmt.Errorf("index remedies: %w", err)
		}
		remedies = cat
	}
	return remedymatch.New(remedymatch.Options{
		Drugs:      s.store,
		Remedies:   remedies,
		Mappings:   s.store,
		Pipeline:   s.comp.Pipeline,
		Scorer:     s.comp.Scorer,
		Thresholds: s.comp.Thresholds,
		RiskPolicy: s.comp.RiskPolicy,
		Rank:       s.comp.RankOptions,
		Prefilter:  prefilter,
		Logger:     s.logger,
	}), nil
}

type seedOutput struct {
	Drugs    int `json:"drugs"`
	Remedies int `json:"remedies"`
}

func seedCommand(c *cli.Context) error {
	if c.String("catalog") == "" {
		return errors.New("seed: --catalog is required")
	}
	s, err := openSession(c)
	if err != nil {
		return err
	}
	defer s.Close()

	return writeJSON(c.App.Writer, seedOutput{Drugs: len(s.seed.Drugs), Remedies: len(s.seed.Remedies)})
}

type runOutput struct {
	RunID       string                     `json:"runId"`
	DrugID      string                     `json:"drugId"`
	Candidates  int                        `json:"candidates"`
	RiskKeyword string                     `json:"riskKeyword,omitempty"`
	Results     []store.MatchResult        `json:"results"`
	Persisted   *remedymatch.PersistResult `json:"persisted,omitempty"`
	Error       string                     `json:"error,omitempty"`
}

func newRunOutput(run remedymatch.Run) runOutput {
	results := run.Results
	if results == nil {
		results = []store.MatchResult{}
	}
	return runOutput{
		RunID:       run.ID,
		DrugID:      run.DrugID,
		Candidates:  run.Candidates,
		RiskKeyword: run.RiskKeyword,
		Results:     results,
	}
}

func matchCommand(c *cli.Context) error {
	s, err := openSession(c)
	if err != nil {
		return err
	}
	defer s.Close()

	e, err := s.engine(c.Context, c.Bool("prefilter"))
	if err != nil {
		return err
	}

	opts := rank.Options{MinScore: c.Float64("min-score"), Limit: c.Int("limit")}
	run, err := e.Recommend(c.Context, c.String("drug"), opts)
	if err != nil {
		return err
	}

	out := newRunOutput(run)
	if c.Bool("persist") {
		res, err := e.Persist(c.Context, run)
		if err != nil {
			return err
		}
		out.Persisted = &res
	}
	return writeJSON(c.App.Writer, out)
}

func matchAllCommand(c *cli.Context) error {
	s, err := openSession(c)
	if err != nil {
		return err
	}
	defer s.Close()

	drugs, err := s.store.ListDrugs(c.Context)
	if err != nil {
		return fmt.Errorf("list drugs: %w", err)
	}
	ids := make([]string, len(drugs))
	for i, d := range drugs {
		ids[i] = d.ID
	}

	e, err := s.engine(c.Context, false)
	if err != nil {
		return err
	}

	workers := c.Int("workers")
	if workers <= 0 {
		workers = s.cfg.Engine.Workers
	}
	runner, err := batch.NewRunner(e,
		batch.WithPoolSize(workers),
		batch.WithPersist(c.Bool("persist")),
		batch.WithLogger(s.logger),
	)
	if err != nil {
		return err
	}
	defer runner.Release()

	started := time.Now()
	ctx := logger.WithLogger(c.Context, s.logger)
	results, runErr := runner.Run(ctx, ids)

	out := make([]runOutput, len(results))
	for i, res := range results {
		out[i] = newRunOutput(res.Run)
		out[i].DrugID = res.DrugID
		if c.Bool("persist") && res.Err == nil {
			persisted := res.Persisted
			out[i].Persisted = &persisted
		}
		if res.Err != nil {
			out[i].Error = res.Err.Error()
		}
	}
	s.logger.Info("match-all finished",
		zap.Int("drugs", len(ids)),
		zap.Int("workers", workers),
		zap.Duration("elapsed", time.Since(started)),
	)

	if err := writeJSON(c.App.Writer, out); err != nil {
		return err
	}
	return runErr
}

type mappingOutput struct {
	RemedyID          string    `json:"remedyId"`
	SimilarityScore   float64   `json:"similarityScore"`
	ReplacementType   string    `json:"replacementType"`
	MatchingNutrients []string  `json:"matchingNutrients"`
	RunID             string    `json:"runId,omitempty"`
	CreatedAt         time.Time `json:"createdAt"`
}

func mappingsCommand(c *cli.Context) error {
	s, err := openSession(c)
	if err != nil {
		return err
	}
	defer s.Close()

	ms, err := s.store.ListMappings(c.Context, c.String("drug"))
	if err != nil {
		return err
	}
	out := make([]mappingOutput, len(ms))
	for i, m := range ms {
		out[i] = mappingOutput{
			RemedyID:          m.RemedyID,
			SimilarityScore:   m.SimilarityScore,
			ReplacementType:   string(m.ReplacementType),
			MatchingNutrients: store.NormalizeList(m.MatchingNutrients),
			RunID:             m.RunID,
			CreatedAt:         m.CreatedAt,
		}
	}
	return writeJSON(c.App.Writer, out)
}

func writeMetrics(c *cli.Context) error {
	path := c.String("metrics-out")
	if path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, prometheus.DefaultGatherer); err != nil {
		return fmt.Errorf("write metrics: %w", err)
	}
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
