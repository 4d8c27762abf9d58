// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package embedding supplies the precomputed similarity feature from an
// external embedding service speaking the OpenAI /v1/embeddings format
// (OpenAI, vLLM, Ollama and compatible servers).
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
	"sync"

	"go.uber.org/zap"

	"github.com/pdiddy/fieldmap/internal/httputil"
	"github.com/pdiddy/fieldmap/pkg/types"
)

// ErrNoEndpoint is returned by NewClient when the configuration has no
// endpoint.
var ErrNoEndpoint = errors.New("embedding: endpoint not configured")

// Client requests embeddings and caches them per input text.
type Client struct {
	endpoint   string
	model      string
	apiKey     string
	maxRetries int
	http       *http.Client
	log        *zap.Logger

	mu    sync.Mutex
	cache map[string][]float64
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger used for retries and dimension detection.
func WithLogger(log *zap.Logger) Option {
	return func(c *Client) { c.log = log }
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// NewClient creates a client from cfg.
func NewClient(cfg types.EmbeddingConfig, opts ...Option) (*Client, error) {
	if strings.TrimSpace(cfg.Endpoint) == "" {
		return nil, ErrNoEndpoint
	}
	c := &Client{
		endpoint:   strings.TrimRight(cfg.Endpoint, "/"),
		model:      cfg.Model,
		apiKey:     cfg.APIKey,
		maxRetries: cfg.MaxRetries,
		http:       &http.Client{Timeout: cfg.Timeout},
		log:        zap.NewNop(),
		cache:      make(map[string][]float64),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type embedRequest struct {
	Model string   `json:"model,omitempty"`
	Input []string `json:"input"`
}

type embedResponse struct {
	Data []struct {
		Embedding []float64 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
	Model string `json:"model"`
}

// Similarity returns the cosine similarity of the embeddings of a and b,
// clamped into [0,1] so it can be used directly as a feature.
func (c *Client) Similarity(ctx context.Context, a, b string) (float64, error) {
	vecs, err := c.Embed(ctx, []string{a, b})
	if err != nil {
		return 0, err
	}
	return Cosine(vecs[0], vecs[1]), nil
}

// Embed returns one vector per text in input order. Texts seen before are
// served from the cache; the rest are requested in a single call.
func (c *Client) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	out := make([][]float64, len(texts))
	var missing []string
	seen := make(map[string]bool)

	c.mu.Lock()
	for i, t := range texts {
		if v, ok := c.cache[t]; ok {
			out[i] = v
		} else if !seen[t] {
			seen[t] = true
			missing = append(missing, t)
		}
	}
	c.mu.Unlock()

	if len(missing) > 0 {
		vecs, err := c.callAPI(ctx, missing)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		for i, t := range missing {
			c.cache[t] = vecs[i]
		}
		for i, t := range texts {
			if out[i] == nil {
				out[i] = c.cache[t]
			}
		}
		c.mu.Unlock()
	}
	return out, nil
}

func (c *Client) callAPI(ctx context.Context, texts []string) ([][]float64, error) {
	body, err := json.Marshal(embedRequest{Model: c.model, Input: texts})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	url := c.endpoint + "/v1/embeddings"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := httputil.DoWithRetry(ctx, c.http, req, c.maxRetries, c.log)
	if err != nil {
		return nil, fmt.Errorf("POST %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("HTTP %d from %s: %s", resp.StatusCode, url, strings.TrimSpace(string(msg)))
	}

	var result embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	// Reassemble in input order.
	vecs := make([][]float64, len(texts))
	for _, d := range result.Data {
		if d.Index >= 0 && d.Index < len(vecs) {
			vecs[d.Index] = d.Embedding
		}
	}
	for i, v := range vecs {
		if v == nil {
			return nil, fmt.Errorf("missing embedding for input index %d", i)
		}
	}
	c.log.Debug("embeddings fetched",
		zap.Int("count", len(texts)),
		zap.Int("dimension", len(vecs[0])),
		zap.String("model", result.Model))
	return vecs, nil
}

// Cosine returns the cosine similarity of a and b clamped into [0,1].
// Mismatched lengths and zero vectors yield 0.
func Cosine(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return math.Max(0, math.Min(1, dot/(math.Sqrt(na)*math.Sqrt(nb))))
}
