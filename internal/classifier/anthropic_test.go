package classifier

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pbaille/lexigraph/internal/domain"
	"github.com/pbaille/lexigraph/internal/relation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var (
	bargain   = domain.Flashcard{Word: "bargain", Definition: "to negotiate a price", PartOfSpeech: "verb"}
	negotiate = domain.Flashcard{Word: "negotiate", Definition: "to discuss terms"}
)

// fixedFallback makes fallback use observable
var fixedFallback = relation.ClassifierFunc(func(context.Context, domain.Flashcard, domain.Flashcard) string {
	return domain.RelationCoStudied
})

func newTestServer(t *testing.T, status int, text string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.Header.Get("x-api-key"))
		assert.Equal(t, http.MethodPost, r.Method)

		var req apiRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if assert.Len(t, req.Messages, 1) {
			assert.Contains(t, req.Messages[0].Content, "bargain")
		}

		w.WriteHeader(status)
		if status != http.StatusOK {
			w.Write([]byte(`{"error":{"message":"overloaded"}}`))
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"content": []map[string]string{{"type": "text", "text": text}},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestClassifier(t *testing.T, endpoint string) *Anthropic {
	t.Helper()
	c, err := New(Options{
		APIKey:   "test-key",
		Endpoint: endpoint,
		Fallback: fixedFallback,
		Logger:   zap.NewNop(),
	})
	require.NoError(t, err)
	return c
}

func TestClassify(t *testing.T) {
	srv := newTestServer(t, http.StatusOK, "```json\n{\"relation\": \"Related_To\"}\n```")
	c := newTestClassifier(t, srv.URL)

	assert.Equal(t, domain.RelationRelatedTo, c.Classify(context.Background(), bargain, negotiate))
}

func TestClassify_UnknownLabelFallsBack(t *testing.T) {
	srv := newTestServer(t, http.StatusOK, `{"relation": "antonym"}`)
	c := newTestClassifier(t, srv.URL)

	assert.Equal(t, domain.RelationCoStudied, c.Classify(context.Background(), bargain, negotiate))
}

func TestClassify_APIErrorFallsBack(t *testing.T) {
	srv := newTestServer(t, http.StatusInternalServerError, "")
	c := newTestClassifier(t, srv.URL)

	assert.Equal(t, domain.RelationCoStudied, c.Classify(context.Background(), bargain, negotiate))
}

func TestClassify_DefaultFallbackIsHeuristic(t *testing.T) {
	srv := newTestServer(t, http.StatusOK, "not json")
	c, err := New(Options{APIKey: "test-key", Endpoint: srv.URL})
	require.NoError(t, err)

	assert.Equal(t, relation.Heuristic.Classify(context.Background(), bargain, negotiate),
		c.Classify(context.Background(), bargain, negotiate))
}

func TestNew_NoAPIKey(t *testing.T) {
	_, err := New(Options{})
	assert.ErrorIs(t, err, ErrNoAPIKey)
}

func TestParseResponse(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: `{"relation":"synonym"}`, want: domain.RelationSynonym},
		{in: "```\n{\"relation\":\"requires\"}\n```", want: domain.RelationRequires},
		{in: `  {"relation":" SAME_CATEGORY "}  `, want: domain.RelationSameCategory},
		{in: `{"relation":"opposite"}`, wantErr: true},
		{in: `{}`, wantErr: true},
		{in: `relation: synonym`, wantErr: true},
	}
	for _, tt := range tests {
		got, err := parseResponse(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}
}

func TestBuildPrompt(t *testing.T) {
	p := buildPrompt(bargain, negotiate)

	assert.Contains(t, p, "word: bargain")
	assert.Contains(t, p, "definition: to discuss terms")
	assert.Contains(t, p, "part of speech: verb")
	for _, label := range []string{"synonym", "related_to", "requires", "same_category", "co_studied"} {
		assert.Contains(t, p, label)
	}
}
