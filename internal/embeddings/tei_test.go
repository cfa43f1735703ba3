package embeddings

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTEIEmbedQuery(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/embed", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req teiRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "observer pattern", req.Inputs)
		assert.True(t, req.Truncate)

		json.NewEncoder(w).Encode([][]float32{{0.1, 0.2, 0.3}})
	}))
	defer server.Close()

	tei, err := NewTEI(TEIConfig{BaseURL: server.URL, Model: "bge-small"}, nil)
	require.NoError(t, err)

	vector, err := tei.EmbedQuery(context.Background(), "observer pattern")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, vector)
}

func TestTEIEmbedQueryEmptyText(t *testing.T) {
	tei, err := NewTEI(TEIConfig{BaseURL: "http://localhost:1"}, nil)
	require.NoError(t, err)

	_, err = tei.EmbedQuery(context.Background(), "")
	assert.ErrorIs(t, err, ErrEmptyInput)
}

func TestTEIEmbedQueryServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model loading", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	tei, err := NewTEI(TEIConfig{BaseURL: server.URL}, nil)
	require.NoError(t, err)

	_, err = tei.EmbedQuery(context.Background(), "q")
	assert.ErrorIs(t, err, ErrEmbeddingFailed)
}

func TestTEIEmbedQueryTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	tei, err := NewTEI(TEIConfig{BaseURL: server.URL, Timeout: 20 * time.Millisecond}, nil)
	require.NoError(t, err)

	_, err = tei.EmbedQuery(context.Background(), "q")
	assert.ErrorIs(t, err, ErrEmbeddingFailed)
}

func TestNewTEIRequiresBaseURL(t *testing.T) {
	_, err := NewTEI(TEIConfig{}, nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}
