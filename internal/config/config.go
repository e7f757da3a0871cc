// Package config loads lexigraph settings in layers: struct defaults,
// an optional YAML file, then LEXIGRAPH_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
	"github.com/pbaille/lexigraph/internal/builder"
	"github.com/pbaille/lexigraph/internal/graph"
	"github.com/pbaille/lexigraph/internal/recommend"
)

// EnvPrefix prefixes every environment override
const EnvPrefix = "LEXIGRAPH_"

// PathEnvVar names a config file when --config is not given
const PathEnvVar = EnvPrefix + "CONFIG"

// Config is the complete application configuration
type Config struct {
	Database   DatabaseConfig   `koanf:"database"`
	Log        LogConfig        `koanf:"log"`
	Graph      GraphConfig      `koanf:"graph"`
	Builder    BuilderConfig    `koanf:"builder"`
	Recommend  RecommendConfig  `koanf:"recommend"`
	Classifier ClassifierConfig `koanf:"classifier"`
}

type DatabaseConfig struct {
	Path string `koanf:"path"`
}

type LogConfig struct {
	// Mode is "production" (JSON) or "development" (console)
	Mode  string `koanf:"mode"`
	Level string `koanf:"level"`
}

type GraphConfig struct {
	MaxVisited       int     `koanf:"max_visited"`
	MaxExpansions    int     `koanf:"max_expansions"`
	MaxPaths         int     `koanf:"max_paths"`
	SiblingTolerance float64 `koanf:"sibling_tolerance"`
	FlashcardLimit   int     `koanf:"flashcard_limit"`
}

type BuilderConfig struct {
	CoStudyWindow      time.Duration `koanf:"co_study_window"`
	CoStudyLookback    int           `koanf:"co_study_lookback"`
	MinCoStudyStrength float64       `koanf:"min_co_study_strength"`
	ReinforceDelta     float64       `koanf:"reinforce_delta"`
	DefinitionStrength float64       `koanf:"definition_strength"`
	DefinitionMatches  int           `koanf:"definition_matches"`
	NodeType           string        `koanf:"node_type"`
	Workers            int           `koanf:"workers"`
	QueueSize          int           `koanf:"queue_size"`
	JobTimeout         time.Duration `koanf:"job_timeout"`
}

type RecommendConfig struct {
	WeakAccuracy   float64       `koanf:"weak_accuracy"`
	WeakLookback   int           `koanf:"weak_lookback"`
	Intervals      []int         `koanf:"intervals"`
	NeighborWindow time.Duration `koanf:"neighbor_window"`
	NeighborSeeds  int           `koanf:"neighbor_seeds"`
	StaleAfter     time.Duration `koanf:"stale_after"`
}

type ClassifierConfig struct {
	// Provider is "heuristic", "anthropic" or "voyage"
	Provider string        `koanf:"provider"`
	APIKey   string        `koanf:"api_key"`
	Model    string        `koanf:"model"`
	Endpoint string        `koanf:"endpoint"`
	Timeout  time.Duration `koanf:"timeout"`
	// SynonymThreshold only applies to the voyage provider
	SynonymThreshold float64 `koanf:"synonym_threshold"`
}

// Default returns the built-in configuration
func Default() *Config {
	home, _ := os.UserHomeDir()
	g := graph.DefaultConfig()
	b := builder.DefaultConfig()
	r := recommend.DefaultConfig()

	return &Config{
		Database: DatabaseConfig{Path: filepath.Join(home, ".lexigraph", "lexigraph.db")},
		Log:      LogConfig{Mode: "development", Level: "info"},
		Graph: GraphConfig{
			MaxVisited:       g.MaxVisited,
			MaxExpansions:    g.MaxExpansions,
			MaxPaths:         g.MaxPaths,
			SiblingTolerance: g.SiblingTolerance,
			FlashcardLimit:   g.FlashcardLimit,
		},
		Builder: BuilderConfig{
			CoStudyWindow:      b.CoStudyWindow,
			CoStudyLookback:    b.CoStudyLookback,
			MinCoStudyStrength: b.MinCoStudyStrength,
			ReinforceDelta:     b.ReinforceDelta,
			DefinitionStrength: b.DefinitionStrength,
			DefinitionMatches:  b.DefinitionMatches,
			NodeType:           b.NodeType,
			Workers:            b.Workers,
			QueueSize:          b.QueueSize,
			JobTimeout:         b.JobTimeout,
		},
		Recommend: RecommendConfig{
			WeakAccuracy:   r.WeakAccuracy,
			WeakLookback:   r.WeakLookback,
			Intervals:      r.Intervals,
			NeighborWindow: r.NeighborWindow,
			NeighborSeeds:  r.NeighborSeeds,
			StaleAfter:     r.StaleAfter,
		},
		Classifier: ClassifierConfig{
			Provider: "heuristic",
			Timeout:  15 * time.Second,
		},
	}
}

// Load builds the configuration. When path is empty LEXIGRAPH_CONFIG is
// consulted; with neither, only defaults and environment apply.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path == "" {
		path = os.Getenv(PathEnvVar)
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	// Default decode hooks turn "45m" into durations and "1,3,7" into slices
	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// envKey maps LEXIGRAPH_GRAPH_MAX_VISITED to graph.max_visited: the first
// underscore-separated segment is the section.
func envKey(s string) string {
	key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	section, rest, found := strings.Cut(key, "_")
	if !found {
		return key
	}
	return section + "." + rest
}

// Validate rejects out-of-range settings
func (c *Config) Validate() error {
	var errs []error
	if c.Database.Path == "" {
		errs = append(errs, errors.New("database.path is required"))
	}
	if c.Graph.SiblingTolerance < 0 || c.Graph.SiblingTolerance > 1 {
		errs = append(errs, fmt.Errorf("graph.sibling_tolerance %.2f outside [0,1]", c.Graph.SiblingTolerance))
	}
	if c.Builder.CoStudyWindow < 0 {
		errs = append(errs, errors.New("builder.co_study_window must not be negative"))
	}
	for name, v := range map[string]float64{
		"builder.min_co_study_strength": c.Builder.MinCoStudyStrength,
		"builder.reinforce_delta":       c.Builder.ReinforceDelta,
		"builder.definition_strength":   c.Builder.DefinitionStrength,
		"recommend.weak_accuracy":       c.Recommend.WeakAccuracy,
	} {
		if v < 0 || v > 1 {
			errs = append(errs, fmt.Errorf("%s %.2f outside [0,1]", name, v))
		}
	}
	for _, d := range c.Recommend.Intervals {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("recommend.intervals must be positive, got %d", d))
			break
		}
	}
	switch c.Classifier.Provider {
	case "heuristic", "anthropic", "voyage":
	default:
		errs = append(errs, fmt.Errorf("classifier.provider %q is not one of heuristic, anthropic, voyage", c.Classifier.Provider))
	}
	if t := c.Classifier.SynonymThreshold; t < 0 || t > 1 {
		errs = append(errs, fmt.Errorf("classifier.synonym_threshold %.2f outside [0,1]", t))
	}
	return errors.Join(errs...)
}

// GraphEngine returns the graph engine settings
func (c *Config) GraphEngine() graph.Config {
	return graph.Config{
		MaxVisited:       c.Graph.MaxVisited,
		MaxExpansions:    c.Graph.MaxExpansions,
		MaxPaths:         c.Graph.MaxPaths,
		SiblingTolerance: c.Graph.SiblingTolerance,
		FlashcardLimit:   c.Graph.FlashcardLimit,
	}
}

// GraphBuilder returns the auto-builder settings
func (c *Config) GraphBuilder() builder.Config {
	b := c.Builder
	return builder.Config{
		CoStudyWindow:      b.CoStudyWindow,
		CoStudyLookback:    b.CoStudyLookback,
		MinCoStudyStrength: b.MinCoStudyStrength,
		ReinforceDelta:     b.ReinforceDelta,
		DefinitionStrength: b.DefinitionStrength,
		DefinitionMatches:  b.DefinitionMatches,
		NodeType:           b.NodeType,
		Workers:            b.Workers,
		QueueSize:          b.QueueSize,
		JobTimeout:         b.JobTimeout,
	}
}

// Recommender returns the recommendation engine settings
func (c *Config) Recommender() recommend.Config {
	r := recommend.DefaultConfig()
	r.WeakAccuracy = c.Recommend.WeakAccuracy
	r.WeakLookback = c.Recommend.WeakLookback
	r.Intervals = c.Recommend.Intervals
	r.NeighborWindow = c.Recommend.NeighborWindow
	r.NeighborSeeds = c.Recommend.NeighborSeeds
	r.StaleAfter = c.Recommend.StaleAfter
	return r
}
