package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cognicore/remedymatch/pkg/remedymatch/classify"
	"github.com/cognicore/remedymatch/pkg/remedymatch/internalerr"
	"github.com/cognicore/remedymatch/pkg/remedymatch/rank"
)

// Storage drivers understood by the CLI.
const (
	DriverSQLite = "sqlite"
	DriverBadger = "badger"
	DriverMemory = "memory"
)

// Config holds the matcher configuration.
type Config struct {
	Engine  EngineConfig  `yaml:"engine"`
	Storage StorageConfig `yaml:"storage"`
	Logging LoggingConfig `yaml:"logging"`
}

// EngineConfig tunes scoring, ranking and classification.
type EngineConfig struct {
	MinScore       float64             `yaml:"min_score"` // 0 = default, negative keeps everything
	Limit          int                 `yaml:"limit"`
	Weights        WeightsConfig       `yaml:"weights"`
	EvidenceBoost  EvidenceBoostConfig `yaml:"evidence_boost"`
	Thresholds     ThresholdsConfig    `yaml:"thresholds"`
	RiskKeywords   StringList          `yaml:"risk_keywords"`   // replaces the defaults when set
	ExtraStopwords StringList          `yaml:"extra_stopwords"` // added to the default stoplist
	Workers        int                 `yaml:"workers"`
}

// WeightsConfig mirrors rank.Weights.
type WeightsConfig struct {
	Benefit    float64 `yaml:"benefit"`
	Category   float64 `yaml:"category"`
	Ingredient float64 `yaml:"ingredient"`
}

// EvidenceBoostConfig mirrors rank.EvidenceBoost.
type EvidenceBoostConfig struct {
	Strong   float64 `yaml:"strong"`
	Moderate float64 `yaml:"moderate"`
	Limited  float64 `yaml:"limited"`
}

// ThresholdsConfig mirrors classify.Thresholds.
type ThresholdsConfig struct {
	Alternative   float64 `yaml:"alternative"`
	Complementary float64 `yaml:"complementary"`
}

func defaultWeights() WeightsConfig {
	w := rank.DefaultWeights()
	return WeightsConfig{Benefit: w.Benefit, Category: w.Category, Ingredient: w.Ingredient}
}

func defaultEvidenceBoost() EvidenceBoostConfig {
	b := rank.DefaultEvidenceBoost()
	return EvidenceBoostConfig{Strong: b.Strong, Moderate: b.Moderate, Limited: b.Limited}
}

func defaultThresholds() ThresholdsConfig {
	t := classify.DefaultThresholds()
	return ThresholdsConfig{Alternative: t.Alternative, Complementary: t.Complementary}
}

// UnmarshalYAML starts from the default weights, so keys missing from a
// partial block keep their default while explicit zeros are honoured.
func (w *WeightsConfig) UnmarshalYAML(value *yaml.Node) error {
	type plain WeightsConfig
	p := plain(defaultWeights())
	if err := value.Decode(&p); err != nil {
		return err
	}
	*w = WeightsConfig(p)
	return nil
}

// UnmarshalYAML starts from the default boosts.
func (b *EvidenceBoostConfig) UnmarshalYAML(value *yaml.Node) error {
	type plain EvidenceBoostConfig
	p := plain(defaultEvidenceBoost())
	if err := value.Decode(&p); err != nil {
		return err
	}
	*b = EvidenceBoostConfig(p)
	return nil
}

// UnmarshalYAML starts from the default cut-offs.
func (t *ThresholdsConfig) UnmarshalYAML(value *yaml.Node) error {
	type plain ThresholdsConfig
	p := plain(defaultThresholds())
	if err := value.Decode(&p); err != nil {
		return err
	}
	*t = ThresholdsConfig(p)
	return nil
}

// StorageConfig selects the mapping store.
type StorageConfig struct {
	Driver string `yaml:"driver"` // sqlite, badger, memory (default: sqlite)
	Path   string `yaml:"path"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Env   string `yaml:"env"`   // local, dev, prod (default: local)
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// Default returns a configuration with every default applied.
func Default() Config {
	var cfg Config
	cfg.ApplyDefaults()
	return cfg
}

// Load reads configuration from a YAML file, expanding ${VAR} references.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes YAML configuration, then applies defaults and validates.
func Parse(data []byte) (Config, error) {
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.Engine.Limit <= 0 {
		c.Engine.Limit = rank.DefaultLimit
	}
	if c.Engine.MinScore == 0 {
		c.Engine.MinScore = rank.DefaultMinScore
	}
	if c.Engine.Weights == (WeightsConfig{}) {
		c.Engine.Weights = defaultWeights()
	}
	if c.Engine.EvidenceBoost == (EvidenceBoostConfig{}) {
		c.Engine.EvidenceBoost = defaultEvidenceBoost()
	}
	if c.Engine.Thresholds == (ThresholdsConfig{}) {
		c.Engine.Thresholds = defaultThresholds()
	}
	if c.Engine.Workers <= 0 {
		c.Engine.Workers = runtime.NumCPU()
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = DriverSQLite
	}
	c.Storage.Driver = strings.ToLower(c.Storage.Driver)
	if c.Storage.Path == "" {
		switch c.Storage.Driver {
		case DriverSQLite:
			c.Storage.Path = "remedies.db"
		case DriverBadger:
			c.Storage.Path = "remedies.badger"
		}
	}
	if c.Logging.Env == "" {
		c.Logging.Env = "local"
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.Engine.MinScore > 1 {
		return fmt.Errorf("engine.min_score must be at most 1, got %v: %w", c.Engine.MinScore, internalerr.ErrInvalidConfig)
	}
	if err := c.Weights().Validate(); err != nil {
		return fmt.Errorf("engine.weights: %v: %w", err, internalerr.ErrInvalidConfig)
	}
	b := c.Engine.EvidenceBoost
	if b.Strong < 0 || b.Moderate < 0 || b.Limited < 0 {
		return fmt.Errorf("engine.evidence_boost must be non-negative: %w", internalerr.ErrInvalidConfig)
	}
	if err := c.Thresholds().Validate(); err != nil {
		return fmt.Errorf("engine.thresholds: %v: %w", err, internalerr.ErrInvalidConfig)
	}
	switch c.Storage.Driver {
	case DriverSQLite, DriverBadger:
		if c.Storage.Path == "" {
			return fmt.Errorf("storage.path is required for %s: %w", c.Storage.Driver, internalerr.ErrInvalidConfig)
		}
	case DriverMemory:
	default:
		return fmt.Errorf("storage.driver %q: %w", c.Storage.Driver, internalerr.ErrUnknownDriver)
	}
	switch c.Logging.Env {
	case "local", "dev", "prod":
	default:
		return fmt.Errorf("logging.env must be local, dev or prod, got %q: %w", c.Logging.Env, internalerr.ErrInvalidConfig)
	}
	return nil
}

// Weights returns the scoring weights as rank.Weights.
func (c *Config) Weights() rank.Weights {
	w := c.Engine.Weights
	return rank.Weights{Benefit: w.Benefit, Category: w.Category, Ingredient: w.Ingredient}
}

// EvidenceBoost returns the evidence bonus as rank.EvidenceBoost.
func (c *Config) EvidenceBoost() rank.EvidenceBoost {
	b := c.Engine.EvidenceBoost
	return rank.EvidenceBoost{Strong: b.Strong, Moderate: b.Moderate, Limited: b.Limited}
}

// Thresholds returns the label cut-offs as classify.Thresholds.
func (c *Config) Thresholds() classify.Thresholds {
	t := c.Engine.Thresholds
	return classify.Thresholds{Alternative: t.Alternative, Complementary: t.Complementary}
}

// RankOptions returns the filtering and truncation options.
func (c *Config) RankOptions() rank.Options {
	return rank.Options{MinScore: c.Engine.MinScore, Limit: c.Engine.Limit}
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1])
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
