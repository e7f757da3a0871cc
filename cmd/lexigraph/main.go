package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pbaille/lexigraph/internal/builder"
	"github.com/pbaille/lexigraph/internal/classifier"
	"github.com/pbaille/lexigraph/internal/config"
	"github.com/pbaille/lexigraph/internal/embedding"
	"github.com/pbaille/lexigraph/internal/graph"
	"github.com/pbaille/lexigraph/internal/logger"
	"github.com/pbaille/lexigraph/internal/recommend"
	"github.com/pbaille/lexigraph/internal/relation"
	"github.com/pbaille/lexigraph/internal/store"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	dbPath     string
	configPath string
	userID     string
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "lexigraph",
		Short:        "Vocabulary concept graph and study recommendations",
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "database path (overrides config)")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "YAML config file")
	rootCmd.PersistentFlags().StringVarP(&userID, "user", "u", defaultUser(), "user id")

	rootCmd.AddCommand(cardCmd())
	rootCmd.AddCommand(cardsCmd())
	rootCmd.AddCommand(reviewCmd())
	rootCmd.AddCommand(importCmd())
	rootCmd.AddCommand(conceptCmd())
	rootCmd.AddCommand(conceptsCmd())
	rootCmd.AddCommand(linkCmd())
	rootCmd.AddCommand(seedCmd())
	rootCmd.AddCommand(relatedCmd())
	rootCmd.AddCommand(pathsCmd())
	rootCmd.AddCommand(similarCmd())
	rootCmd.AddCommand(recommendCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func defaultUser() string {
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	return "default"
}

// app wires the store and engines for one command invocation
type app struct {
	cfg       *config.Config
	log       *zap.Logger
	store     *store.Store
	graph     *graph.Engine
	builder   *builder.Builder
	recommend *recommend.Engine
}

func openApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if dbPath != "" {
		cfg.Database.Path = dbPath
	}

	log, err := logger.New(cfg.Log.Mode, cfg.Log.Level)
	if err != nil {
		return nil, err
	}

	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	s, err := store.New(cfg.Database.Path)
	if err != nil {
		return nil, err
	}

	g := graph.New(s, cfg.GraphEngine(), log)
	b := builder.New(s, cfg.GraphBuilder(),
		builder.WithLogger(log),
		builder.WithClassifier(relationClassifier(cfg, log)))
	b.Start(ctx)

	return &app{
		cfg:       cfg,
		log:       log,
		store:     s,
		graph:     g,
		builder:   b,
		recommend: recommend.New(s, g, cfg.Recommender(), recommend.WithLogger(log)),
	}, nil
}

// close drains queued graph inference before closing the store
func (a *app) close() {
	a.builder.Close()
	a.store.Close()
	_ = a.log.Sync()
}

func relationClassifier(cfg *config.Config, log *zap.Logger) relation.Classifier {
	c := cfg.Classifier
	switch c.Provider {
	case "anthropic":
		clf, err := classifier.New(classifier.Options{
			APIKey:   firstNonEmpty(c.APIKey, os.Getenv("ANTHROPIC_API_KEY")),
			Model:    c.Model,
			Endpoint: c.Endpoint,
			Timeout:  c.Timeout,
			Logger:   log,
		})
		if err != nil {
			log.Warn("anthropic classifier unavailable, using heuristic", zap.Error(err))
			return relation.Heuristic
		}
		return clf
	case "voyage":
		clf, err := embedding.New(embedding.Options{
			APIKey:           firstNonEmpty(c.APIKey, os.Getenv("VOYAGE_API_KEY")),
			Model:            c.Model,
			Endpoint:         c.Endpoint,
			Timeout:          c.Timeout,
			SynonymThreshold: c.SynonymThreshold,
			Logger:           log,
		})
		if err != nil {
			log.Warn("voyage classifier unavailable, using heuristic", zap.Error(err))
			return relation.Heuristic
		}
		return clf
	default:
		return relation.Heuristic
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func truncate(s string, max int) string {
	// Replace newlines with spaces for display
	s = strings.ReplaceAll(s, "\n", " ")
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}

func shortID(id string) string {
	if len(id) < 8 {
		return id
	}
	return id[:8]
}
