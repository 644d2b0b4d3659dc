package config

import (
	"fmt"

	"github.com/cognicore/remedymatch/pkg/remedymatch/catalog"
	"github.com/cognicore/remedymatch/pkg/remedymatch/classify"
	"github.com/cognicore/remedymatch/pkg/remedymatch/ingest"
	"github.com/cognicore/remedymatch/pkg/remedymatch/rank"
	"github.com/cognicore/remedymatch/pkg/remedymatch/stoplist"
)

// Loader loads all configuration files and constructs components
type Loader struct {
	ConfigPath  string // optional; defaults apply when empty
	CatalogPath string // optional seed catalog
}

// Components holds all loaded configuration components
type Components struct {
	Config      Config
	Stoplist    *stoplist.Manager
	Pipeline    *ingest.Pipeline
	Scorer      *rank.Scorer
	Thresholds  classify.Thresholds
	RiskPolicy  *classify.RiskPolicy
	RankOptions rank.Options
	Seed        *Seed            // nil without CatalogPath
	Catalog     *catalog.Catalog // built from Seed; nil without CatalogPath
}

// Load reads all configuration files and returns initialized components
func (l *Loader) Load() (*Components, error) {
	cfg := Default()
	if l.ConfigPath != "" {
		var err error
		if cfg, err = Load(l.ConfigPath); err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
	}

	comp, err := Build(cfg)
	if err != nil {
		return nil, err
	}

	if l.CatalogPath != "" {
		seed, err := LoadCatalog(l.CatalogPath)
		if err != nil {
			return nil, fmt.Errorf("load catalog: %w", err)
		}
		comp.Seed = seed
		if comp.Catalog, err = catalog.New(seed.RemedyRecords(), comp.Pipeline); err != nil {
			return nil, fmt.Errorf("index catalog: %w", err)
		}
	}

	return comp, nil
}

// Build constructs the matching components from an already validated config.
func Build(cfg Config) (*Components, error) {
	stops := stoplist.Default()
	for _, w := range cfg.Engine.ExtraStopwords {
		stops.Add(w, stoplist.ReasonCustom)
	}

	thresholds := cfg.Thresholds()
	if err := thresholds.Validate(); err != nil {
		return nil, fmt.Errorf("thresholds: %w", err)
	}
	weights := cfg.Weights()
	if err := weights.Validate(); err != nil {
		return nil, fmt.Errorf("weights: %w", err)
	}

	risk := classify.DefaultRiskPolicy()
	if len(cfg.Engine.RiskKeywords) > 0 {
		risk = classify.NewRiskPolicy(cfg.Engine.RiskKeywords.Strings())
	}

	return &Components{
		Config:      cfg,
		Stoplist:    stops,
		Pipeline:    ingest.NewPipeline(ingest.NewTokenizerFromStoplist(stops)),
		Scorer:      rank.NewScorer(weights, cfg.EvidenceBoost()),
		Thresholds:  thresholds,
		RiskPolicy:  risk,
		RankOptions: cfg.RankOptions(),
	}, nil
}
