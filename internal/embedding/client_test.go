// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package embedding

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/fieldmap/internal/httputil"
	"github.com/pdiddy/fieldmap/pkg/types"
)

func init() {
	httputil.RetryBaseDelay = time.Millisecond
}

var vectors = map[string][]float64{
	"email":         {1, 0, 0},
	"email_address": {0.9, 0.1, 0},
	"zip":           {0, 1, 0},
	"opposite":      {-1, 0, 0},
}

// fakeServer answers /v1/embeddings from vectors, in reverse index order
// to exercise reassembly.
func fakeServer(t *testing.T, calls *int32, throttle int32) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(calls, 1)
		if n <= throttle {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		assert.Equal(t, "/v1/embeddings", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var req embedRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "test-embed", req.Model)

		type item struct {
			Embedding []float64 `json:"embedding"`
			Index     int       `json:"index"`
		}
		var data []item
		for i := len(req.Input) - 1; i >= 0; i-- {
			data = append(data, item{Embedding: vectors[req.Input[i]], Index: i})
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"data": data, "model": req.Model})
	}))
	t.Cleanup(ts.Close)
	return ts
}

func newTestClient(t *testing.T, url string) *Client {
	t.Helper()
	c, err := NewClient(types.EmbeddingConfig{
		Endpoint:   url + "/",
		Model:      "test-embed",
		APIKey:     "sk-test",
		Timeout:    5 * time.Second,
		MaxRetries: 3,
	})
	require.NoError(t, err)
	return c
}

func TestNewClientRequiresEndpoint(t *testing.T) {
	_, err := NewClient(types.EmbeddingConfig{})
	assert.ErrorIs(t, err, ErrNoEndpoint)
}

func TestSimilarity(t *testing.T) {
	var calls int32
	c := newTestClient(t, fakeServer(t, &calls, 0).URL)

	tests := []struct {
		a, b string
		want float64
	}{
		{"email", "email", 1},
		{"email", "zip", 0},
		{"email", "opposite", 0},
		{"email", "email_address", 0.9 / (1 * 0.9055385138137417)},
	}
	for _, tt := range tests {
		t.Run(tt.a+"/"+tt.b, func(t *testing.T) {
			got, err := c.Similarity(context.Background(), tt.a, tt.b)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestEmbedCachesTexts(t *testing.T) {
	var calls int32
	c := newTestClient(t, fakeServer(t, &calls, 0).URL)

	_, err := c.Embed(context.Background(), []string{"email", "zip", "email"})
	require.NoError(t, err)
	vecs, err := c.Embed(context.Background(), []string{"zip", "email"})
	require.NoError(t, err)

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	assert.Equal(t, vectors["zip"], vecs[0])
	assert.Equal(t, vectors["email"], vecs[1])
}

func TestSimilarityRetriesThrottled(t *testing.T) {
	var calls int32
	c := newTestClient(t, fakeServer(t, &calls, 2).URL)

	got, err := c.Similarity(context.Background(), "email", "email")
	require.NoError(t, err)
	assert.InDelta(t, 1.0, got, 1e-9)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestSimilarityReportsHTTPError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer ts.Close()

	c := newTestClient(t, ts.URL)
	_, err := c.Similarity(context.Background(), "a", "b")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP 404")
	assert.Contains(t, err.Error(), "model not found")
}

func TestCosine(t *testing.T) {
	assert.Equal(t, 0.0, Cosine(nil, nil))
	assert.Equal(t, 0.0, Cosine([]float64{1}, []float64{1, 2}))
	assert.Equal(t, 0.0, Cosine([]float64{0, 0}, []float64{1, 2}))
	assert.InDelta(t, 1.0, Cosine([]float64{2, 2}, []float64{1, 1}), 1e-12)
}
