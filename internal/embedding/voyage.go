// Package embedding labels flashcard pairs by the semantic distance of
// their definitions, using Voyage AI embeddings.
package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/pbaille/lexigraph/internal/domain"
	"github.com/pbaille/lexigraph/internal/relation"
	"go.uber.org/zap"
)

const (
	defaultEndpoint = "https://api.voyageai.com/v1/embeddings"
	defaultModel    = "voyage-3-lite"

	// DefaultSynonymThreshold is the definition cosine similarity at or
	// above which two cards are labelled synonyms
	DefaultSynonymThreshold = 0.85
)

// ErrNoAPIKey is returned by New when no API key is configured
var ErrNoAPIKey = errors.New("voyage api key not set")

// Options configures the Voyage classifier
type Options struct {
	APIKey           string
	Model            string
	Endpoint         string
	Timeout          time.Duration
	SynonymThreshold float64
	Fallback         relation.Classifier
	Logger           *zap.Logger
}

// Voyage embeds text via the Voyage AI embeddings API
type Voyage struct {
	apiKey    string
	model     string
	endpoint  string
	client    *http.Client
	threshold float64
	fallback  relation.Classifier
	log       *zap.Logger
}

// New creates a Voyage client
func New(opts Options) (*Voyage, error) {
	if opts.APIKey == "" {
		return nil, ErrNoAPIKey
	}
	if opts.Model == "" {
		opts.Model = defaultModel
	}
	if opts.Endpoint == "" {
		opts.Endpoint = defaultEndpoint
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	if opts.SynonymThreshold <= 0 {
		opts.SynonymThreshold = DefaultSynonymThreshold
	}
	if opts.Fallback == nil {
		opts.Fallback = relation.Heuristic
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	return &Voyage{
		apiKey:    opts.APIKey,
		model:     opts.Model,
		endpoint:  opts.Endpoint,
		client:    &http.Client{Timeout: opts.Timeout},
		threshold: opts.SynonymThreshold,
		fallback:  opts.Fallback,
		log:       opts.Logger.Named("embedding"),
	}, nil
}

// Classify labels a and b synonyms when their definitions embed close
// together. Otherwise, or when either definition is empty or the API
// fails, the fallback decides.
func (v *Voyage) Classify(ctx context.Context, a, b domain.Flashcard) string {
	if strings.TrimSpace(a.Definition) == "" || strings.TrimSpace(b.Definition) == "" {
		return v.fallback.Classify(ctx, a, b)
	}

	vectors, err := v.EmbedBatch(ctx, []string{a.Definition, b.Definition})
	if err != nil {
		v.log.Warn("embedding failed, using fallback",
			zap.String("a", a.Word), zap.String("b", b.Word), zap.Error(err))
		return v.fallback.Classify(ctx, a, b)
	}

	sim := CosineSimilarity(vectors[0], vectors[1])
	if sim >= v.threshold {
		return domain.RelationSynonym
	}
	return v.fallback.Classify(ctx, a, b)
}

// EmbedBatch generates embeddings for multiple texts
func (v *Voyage) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	reqBody := embeddingRequest{
		Input: texts,
		Model: v.model,
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.endpoint, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+v.apiKey)

	resp, err := v.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("api error (status %d): %s", resp.StatusCode, string(body))
	}

	var apiResp embeddingResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	if len(apiResp.Data) != len(texts) {
		return nil, fmt.Errorf("expected %d embeddings, got %d", len(texts), len(apiResp.Data))
	}

	vectors := make([][]float64, len(apiResp.Data))
	for i, d := range apiResp.Data {
		vectors[i] = d.Embedding
	}

	return vectors, nil
}

// CosineSimilarity computes similarity between two vectors
func CosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

type embeddingRequest struct {
	Input []string `json:"input"`
	Model string   `json:"model"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float64 `json:"embedding"`
	} `json:"data"`
}
