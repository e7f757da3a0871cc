// Package classifier provides an LLM-backed relation classifier that
// falls back to the word-overlap heuristic whenever the model is
// unreachable or answers with an unknown label.
package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pbaille/lexigraph/internal/domain"
	"github.com/pbaille/lexigraph/internal/relation"
	"go.uber.org/zap"
)

const (
	defaultEndpoint = "https://api.anthropic.com/v1/messages"
	defaultModel    = "claude-sonnet-4-20250514"
)

// ErrNoAPIKey is returned by New when no API key is configured
var ErrNoAPIKey = errors.New("anthropic api key not set")

// Options configures the Anthropic classifier
type Options struct {
	APIKey   string
	Model    string
	Endpoint string
	Timeout  time.Duration
	Fallback relation.Classifier
	Logger   *zap.Logger
}

// Anthropic classifies flashcard relations via the Anthropic Messages API
type Anthropic struct {
	apiKey   string
	model    string
	endpoint string
	client   *http.Client
	fallback relation.Classifier
	log      *zap.Logger
}

// New creates an Anthropic classifier
func New(opts Options) (*Anthropic, error) {
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
	if opts.Fallback == nil {
		opts.Fallback = relation.Heuristic
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	return &Anthropic{
		apiKey:   opts.APIKey,
		model:    opts.Model,
		endpoint: opts.Endpoint,
		client:   &http.Client{Timeout: opts.Timeout},
		fallback: opts.Fallback,
		log:      opts.Logger.Named("classifier"),
	}, nil
}

// Classify asks the model for a relation label; any failure returns the
// fallback classifier's answer
func (c *Anthropic) Classify(ctx context.Context, a, b domain.Flashcard) string {
	text, err := c.callAPI(ctx, buildPrompt(a, b))
	if err != nil {
		c.log.Warn("relation classification failed, using fallback",
			zap.String("a", a.Word), zap.String("b", b.Word), zap.Error(err))
		return c.fallback.Classify(ctx, a, b)
	}

	label, err := parseResponse(text)
	if err != nil {
		c.log.Warn("unusable classification response, using fallback",
			zap.String("a", a.Word), zap.String("b", b.Word), zap.Error(err))
		return c.fallback.Classify(ctx, a, b)
	}

	return label
}

func buildPrompt(a, b domain.Flashcard) string {
	var sb strings.Builder

	sb.WriteString("Classify the relationship between these two vocabulary flashcards. Return JSON only.\n\n")
	writeCard(&sb, "A", a)
	writeCard(&sb, "B", b)

	sb.WriteString(`Return a JSON object with this structure:
{"relation": "one-of-the-labels"}

Labels:
- synonym: the words mean the same or nearly the same thing
- related_to: one word is used to explain or is part of the other
- requires: understanding A requires understanding B
- same_category: same kind of thing or same part of speech, otherwise unrelated
- co_studied: no meaningful relation beyond being studied together

Return ONLY the JSON, no other text.`)

	return sb.String()
}

func writeCard(sb *strings.Builder, label string, card domain.Flashcard) {
	fmt.Fprintf(sb, "Card %s:\n  word: %s\n  definition: %s\n", label, card.Word, card.Definition)
	if card.PartOfSpeech != "" {
		fmt.Fprintf(sb, "  part of speech: %s\n", card.PartOfSpeech)
	}
	sb.WriteString("\n")
}

type apiRequest struct {
	Model     string       `json:"model"`
	MaxTokens int          `json:"max_tokens"`
	Messages  []apiMessage `json:"messages"`
}

type apiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type apiResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (c *Anthropic) callAPI(ctx context.Context, prompt string) (string, error) {
	reqBody := apiRequest{
		Model:     c.model,
		MaxTokens: 64,
		Messages: []apiMessage{
			{Role: "user", Content: prompt},
		},
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(jsonBody))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", "2023-06-01")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("api error (status %d): %s", resp.StatusCode, string(body))
	}

	var apiResp apiResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return "", fmt.Errorf("unmarshal response: %w", err)
	}

	if apiResp.Error != nil {
		return "", fmt.Errorf("api error: %s", apiResp.Error.Message)
	}

	if len(apiResp.Content) == 0 {
		return "", fmt.Errorf("empty response")
	}

	return apiResp.Content[0].Text, nil
}

func parseResponse(resp string) (string, error) {
	// Strip markdown code fences if present
	resp = strings.TrimSpace(resp)
	resp = strings.TrimPrefix(resp, "```json")
	resp = strings.TrimPrefix(resp, "```")
	resp = strings.TrimSuffix(resp, "```")
	resp = strings.TrimSpace(resp)

	var result struct {
		Relation string `json:"relation"`
	}
	if err := json.Unmarshal([]byte(resp), &result); err != nil {
		return "", fmt.Errorf("parse json: %w (response: %s)", err, resp)
	}

	label := strings.ToLower(strings.TrimSpace(result.Relation))
	if !relation.Valid(label) {
		return "", fmt.Errorf("unknown relation %q", result.Relation)
	}
	return label, nil
}
