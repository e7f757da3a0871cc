package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func isolateEnv(t *testing.T) {
	t.Helper()
	t.Setenv(PathEnvVar, "")
}

func TestLoad_Defaults(t *testing.T) {
	isolateEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)

	def := Default()
	assert.Equal(t, def.Database.Path, cfg.Database.Path)
	assert.Equal(t, "heuristic", cfg.Classifier.Provider)
	assert.Equal(t, 1000, cfg.Graph.MaxVisited)
	assert.Equal(t, 30*time.Minute, cfg.Builder.CoStudyWindow)
	assert.Equal(t, []int{1, 3, 7, 14}, cfg.Recommend.Intervals)
	assert.Equal(t, 72*time.Hour, cfg.Recommend.StaleAfter)
}

func TestLoad_EnvOverrides(t *testing.T) {
	isolateEnv(t)
	t.Setenv("LEXIGRAPH_GRAPH_MAX_VISITED", "50")
	t.Setenv("LEXIGRAPH_BUILDER_CO_STUDY_WINDOW", "45m")
	t.Setenv("LEXIGRAPH_DATABASE_PATH", "/tmp/lexigraph-env.db")
	t.Setenv("LEXIGRAPH_CLASSIFIER_PROVIDER", "anthropic")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 50, cfg.Graph.MaxVisited)
	assert.Equal(t, 45*time.Minute, cfg.Builder.CoStudyWindow)
	assert.Equal(t, "/tmp/lexigraph-env.db", cfg.Database.Path)
	assert.Equal(t, "anthropic", cfg.Classifier.Provider)
	assert.Equal(t, 50, cfg.GraphEngine().MaxVisited)
	assert.Equal(t, 45*time.Minute, cfg.GraphBuilder().CoStudyWindow)
}

func TestLoad_File(t *testing.T) {
	isolateEnv(t)

	path := filepath.Join(t.TempDir(), "lexigraph.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
database:
  path: /tmp/lexigraph-file.db
log:
  mode: production
  level: warn
recommend:
  intervals: [2, 4, 8]
  stale_after: 24h
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/lexigraph-file.db", cfg.Database.Path)
	assert.Equal(t, "production", cfg.Log.Mode)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, []int{2, 4, 8}, cfg.Recommend.Intervals)
	assert.Equal(t, 24*time.Hour, cfg.Recommend.StaleAfter)
	assert.Equal(t, 5, cfg.Recommend.WeakLookback)

	r := cfg.Recommender()
	assert.Equal(t, []int{2, 4, 8}, r.Intervals)
	assert.Equal(t, 24*time.Hour, r.StaleAfter)
	assert.Equal(t, 75.0, r.NeighborScore)
}

func TestLoad_FileFromEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lexigraph.yaml")
	require.NoError(t, os.WriteFile(path, []byte("graph:\n  max_paths: 9\n"), 0o644))
	t.Setenv(PathEnvVar, path)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 9, cfg.Graph.MaxPaths)
}

func TestLoad_EnvBeatsFile(t *testing.T) {
	isolateEnv(t)
	path := filepath.Join(t.TempDir(), "lexigraph.yaml")
	require.NoError(t, os.WriteFile(path, []byte("graph:\n  max_paths: 9\n"), 0o644))
	t.Setenv("LEXIGRAPH_GRAPH_MAX_PATHS", "3")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Graph.MaxPaths)
}

func TestLoad_MissingFile(t *testing.T) {
	isolateEnv(t)

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoad_Invalid(t *testing.T) {
	isolateEnv(t)
	t.Setenv("LEXIGRAPH_CLASSIFIER_PROVIDER", "oracle")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "classifier.provider")
}

func TestValidate(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	cfg.Database.Path = ""
	cfg.Graph.SiblingTolerance = 2
	cfg.Builder.ReinforceDelta = -0.1
	cfg.Recommend.Intervals = []int{1, 0}
	cfg.Classifier.SynonymThreshold = 1.2

	err := cfg.Validate()
	require.Error(t, err)
	for _, want := range []string{
		"database.path",
		"graph.sibling_tolerance",
		"builder.reinforce_delta",
		"recommend.intervals",
		"classifier.synonym_threshold",
	} {
		assert.Contains(t, err.Error(), want)
	}
}

func TestLoad_VoyageProvider(t *testing.T) {
	isolateEnv(t)
	t.Setenv("LEXIGRAPH_CLASSIFIER_PROVIDER", "voyage")
	t.Setenv("LEXIGRAPH_CLASSIFIER_SYNONYM_THRESHOLD", "0.9")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "voyage", cfg.Classifier.Provider)
	assert.InDelta(t, 0.9, cfg.Classifier.SynonymThreshold, 1e-9)
}

func TestEnvKey(t *testing.T) {
	assert.Equal(t, "graph.max_visited", envKey("LEXIGRAPH_GRAPH_MAX_VISITED"))
	assert.Equal(t, "database.path", envKey("LEXIGRAPH_DATABASE_PATH"))
	assert.Equal(t, "config", envKey("LEXIGRAPH_CONFIG"))
}
