// Package config loads and validates evaluation configuration from YAML files
// with environment-variable overrides. It provides typed structs for every
// subsystem (Evaluation, Ranker, Significance, Redis, Postgres, etc.).
package config

import (
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	apperrors "github.com/Adithya-Monish-Kumar-K/layer-eval/pkg/errors"
)

// MaxLayers bounds the number of configured layers; settings grow as 2^L.
const MaxLayers = 16

// Config is the top-level application configuration.
type Config struct {
	Evaluation   EvaluationConfig   `yaml:"evaluation"`
	Ranker       RankerConfig       `yaml:"ranker"`
	Significance SignificanceConfig `yaml:"significance"`
	Documents    DocumentsConfig    `yaml:"documents"`
	Redis        RedisConfig        `yaml:"redis"`
	Postgres     PostgresConfig     `yaml:"postgres"`
	Report       ReportConfig       `yaml:"report"`
	Logging      LoggingConfig      `yaml:"logging"`
	Metrics      MetricsConfig      `yaml:"metrics"`
}

// EvaluationConfig controls which layers are combined, how many candidates
// are retrieved per layer and how results are reported.
type EvaluationConfig struct {
	Layers      []string `yaml:"layers" envconfig:"LAYEREVAL_LAYERS"`
	Baseline    []string `yaml:"baseline" envconfig:"LAYEREVAL_BASELINE"`
	MaxDocs     int      `yaml:"maxDocs" envconfig:"LAYEREVAL_MAX_DOCS"`
	Cutoff      int      `yaml:"cutoff" envconfig:"LAYEREVAL_CUTOFF"`
	Workers     int      `yaml:"workers" envconfig:"LAYEREVAL_WORKERS"`
	Measures    []string `yaml:"measures" envconfig:"LAYEREVAL_MEASURES"`
	SortMeasure string   `yaml:"sortMeasure" envconfig:"LAYEREVAL_SORT_MEASURE"`
	CacheSize   int      `yaml:"cacheSize" envconfig:"LAYEREVAL_CACHE_SIZE"`
}

// RankerConfig selects the ranking strategy. Weights and Sections use the
// "name:weight" list syntax, e.g. "textual:1,uri:0.5".
type RankerConfig struct {
	Type           string   `yaml:"type" envconfig:"LAYEREVAL_RANKER"`
	Weights        string   `yaml:"weights" envconfig:"LAYEREVAL_RANKER_WEIGHTS"`
	Sections       string   `yaml:"sections" envconfig:"LAYEREVAL_RANKER_SECTIONS"`
	Rescaled       []string `yaml:"rescaled" envconfig:"LAYEREVAL_RANKER_RESCALED"`
	Normalize      bool     `yaml:"normalize" envconfig:"LAYEREVAL_RANKER_NORMALIZE"`
	TextualLayer   string   `yaml:"textualLayer" envconfig:"LAYEREVAL_RANKER_TEXTUAL_LAYER"`
	SemanticWeight float64  `yaml:"semanticWeight" envconfig:"LAYEREVAL_RANKER_SEMANTIC_WEIGHT"`
}

// SignificanceConfig selects the hypothesis test run against the baseline.
type SignificanceConfig struct {
	Test       string `yaml:"test" envconfig:"LAYEREVAL_SIGNIFICANCE_TEST"`
	Iterations int    `yaml:"iterations" envconfig:"LAYEREVAL_SIGNIFICANCE_ITERATIONS"`
	Seed       uint64 `yaml:"seed" envconfig:"LAYEREVAL_SIGNIFICANCE_SEED"`
}

// DocumentsConfig selects where document vectors are read from.
type DocumentsConfig struct {
	Source string `yaml:"source" envconfig:"LAYEREVAL_DOCUMENTS_SOURCE"`
}

// RedisConfig holds Redis connection parameters for the document store.
type RedisConfig struct {
	Addr      string        `yaml:"addr" envconfig:"LAYEREVAL_REDIS_ADDR"`
	Password  string        `yaml:"password" envconfig:"LAYEREVAL_REDIS_PASSWORD"`
	DB        int           `yaml:"db" envconfig:"LAYEREVAL_REDIS_DB"`
	PoolSize  int           `yaml:"poolSize"`
	KeyPrefix string        `yaml:"keyPrefix"`
	TTL       time.Duration `yaml:"ttl"`

	// Reads are retried and guarded by a circuit breaker.
	ReadTimeout         time.Duration `yaml:"readTimeout"`
	MaxAttempts         int           `yaml:"maxAttempts" envconfig:"LAYEREVAL_REDIS_MAX_ATTEMPTS"`
	BreakerThreshold    int           `yaml:"breakerThreshold"`
	BreakerResetTimeout time.Duration `yaml:"breakerResetTimeout"`
}

// PostgresConfig holds PostgreSQL connection parameters for the run store.
type PostgresConfig struct {
	Enabled         bool          `yaml:"enabled" envconfig:"LAYEREVAL_POSTGRES_ENABLED"`
	Host            string        `yaml:"host" envconfig:"LAYEREVAL_POSTGRES_HOST"`
	Port            int           `yaml:"port" envconfig:"LAYEREVAL_POSTGRES_PORT"`
	Database        string        `yaml:"database" envconfig:"LAYEREVAL_POSTGRES_DATABASE"`
	User            string        `yaml:"user" envconfig:"LAYEREVAL_POSTGRES_USER"`
	Password        string        `yaml:"password" envconfig:"LAYEREVAL_POSTGRES_PASSWORD"`
	SSLMode         string        `yaml:"sslMode" envconfig:"LAYEREVAL_POSTGRES_SSLMODE"`
	MaxOpenConns    int           `yaml:"maxOpenConns"`
	MaxIdleConns    int           `yaml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime"`
}

// DSN returns a lib/pq-compatible data source name.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

// ReportConfig controls where report tables are written.
type ReportConfig struct {
	OutputDir string `yaml:"outputDir" envconfig:"LAYEREVAL_REPORT_DIR"`
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level" envconfig:"LAYEREVAL_LOG_LEVEL"`
	Format string `yaml:"format" envconfig:"LAYEREVAL_LOG_FORMAT"`
}

// MetricsConfig controls the Prometheus metrics server.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled" envconfig:"LAYEREVAL_METRICS_ENABLED"`
	Port    int  `yaml:"port" envconfig:"LAYEREVAL_METRICS_PORT"`
}

// Load reads a YAML config file (if provided), applies environment-variable
// overrides and validates the result. Missing values keep their defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, apperrors.Newf(apperrors.ErrInvalidConfig, "parsing config file %s: %v", path, err)
		}
	}
	if err := envconfig.Process("", cfg); err != nil {
		return nil, apperrors.Newf(apperrors.ErrInvalidConfig, "processing environment: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns a Config with the defaults used for local evaluation runs.
func Default() *Config {
	return &Config{
		Evaluation: EvaluationConfig{
			Layers:      []string{"textual", "uri", "type", "frame", "time"},
			Baseline:    []string{"textual"},
			MaxDocs:     1000,
			Cutoff:      10,
			Workers:     runtime.NumCPU(),
			Measures:    []string{"p@1", "p@3", "p@5", "p@10", "mrr", "ndcg", "ndcg@10", "map"},
			SortMeasure: "ndcg@10",
			CacheSize:   10000,
		},
		Ranker: RankerConfig{
			Type:           "tfidf",
			Weights:        "textual:1",
			TextualLayer:   "textual",
			SemanticWeight: 0.5,
		},
		Significance: SignificanceConfig{
			Test:       "ar",
			Iterations: 10000,
			Seed:       1,
		},
		Documents: DocumentsConfig{
			Source: "memory",
		},
		Redis: RedisConfig{
			Addr:                "localhost:6379",
			PoolSize:            10,
			KeyPrefix:           "doc:",
			ReadTimeout:         2 * time.Second,
			MaxAttempts:         3,
			BreakerThreshold:    5,
			BreakerResetTimeout: 30 * time.Second,
		},
		Postgres: PostgresConfig{
			Host:            "localhost",
			Port:            5432,
			Database:        "layereval",
			User:            "layereval",
			Password:        "localdev",
			SSLMode:         "disable",
			MaxOpenConns:    5,
			MaxIdleConns:    2,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Report: ReportConfig{
			OutputDir: "reports",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Port:    9090,
		},
	}
}

// Validate reports the first configuration problem found. Every error wraps
// apperrors.ErrInvalidConfig.
func (c *Config) Validate() error {
	ev := c.Evaluation
	if len(ev.Layers) == 0 {
		return apperrors.New(apperrors.ErrInvalidConfig, "no layers configured")
	}
	if len(ev.Layers) > MaxLayers {
		return apperrors.Newf(apperrors.ErrInvalidConfig, "%d layers configured, at most %d supported", len(ev.Layers), MaxLayers)
	}
	known := make(map[string]struct{}, len(ev.Layers))
	for _, l := range ev.Layers {
		if l == "" {
			return apperrors.New(apperrors.ErrInvalidConfig, "empty layer name")
		}
		if _, dup := known[l]; dup {
			return apperrors.Newf(apperrors.ErrInvalidConfig, "duplicate layer %q", l)
		}
		known[l] = struct{}{}
	}
	if len(ev.Baseline) == 0 {
		return apperrors.New(apperrors.ErrInvalidConfig, "no baseline layers configured")
	}
	for _, l := range ev.Baseline {
		if _, ok := known[l]; !ok {
			return apperrors.Newf(apperrors.ErrInvalidConfig, "baseline layer %q is not a configured layer", l)
		}
	}
	if ev.MaxDocs <= 0 {
		return apperrors.Newf(apperrors.ErrInvalidConfig, "maxDocs must be positive, got %d", ev.MaxDocs)
	}
	if ev.Cutoff <= 0 {
		return apperrors.Newf(apperrors.ErrInvalidConfig, "cutoff must be positive, got %d", ev.Cutoff)
	}
	if ev.Workers <= 0 {
		return apperrors.Newf(apperrors.ErrInvalidConfig, "workers must be positive, got %d", ev.Workers)
	}
	if ev.CacheSize <= 0 {
		return apperrors.Newf(apperrors.ErrInvalidConfig, "cacheSize must be positive, got %d", ev.CacheSize)
	}
	switch c.Ranker.Type {
	case "tfidf", "simple":
	default:
		return apperrors.Newf(apperrors.ErrUnknownRanker, "ranker type %q", c.Ranker.Type)
	}
	if c.Ranker.SemanticWeight < 0 || c.Ranker.SemanticWeight > 1 {
		return apperrors.Newf(apperrors.ErrInvalidConfig, "semanticWeight must be in [0,1], got %g", c.Ranker.SemanticWeight)
	}
	switch c.Significance.Test {
	case "ttest":
	case "ar":
		if c.Significance.Iterations <= 0 {
			return apperrors.Newf(apperrors.ErrInvalidConfig, "significance iterations must be positive, got %d", c.Significance.Iterations)
		}
	default:
		return apperrors.Newf(apperrors.ErrInvalidConfig, "unknown significance test %q", c.Significance.Test)
	}
	switch c.Documents.Source {
	case "memory", "redis":
	default:
		return apperrors.Newf(apperrors.ErrInvalidConfig, "unknown document source %q", c.Documents.Source)
	}
	return nil
}
