// Package embeddings generates query embeddings via a TEI-compatible
// HTTP service, with an optional caching layer in front.
package embeddings

import (
	"context"
	"errors"
)

var (
	// ErrEmptyInput indicates empty input text.
	ErrEmptyInput = errors.New("empty input text")

	// ErrInvalidConfig indicates invalid configuration.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrEmbeddingFailed indicates embedding generation failure.
	ErrEmbeddingFailed = errors.New("embedding generation failed")
)

// Provider turns query text into a dense vector.
type Provider interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}
