package embeddings

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/fyrsmithlabs/patternd/internal/telemetry"
)

// TEIConfig holds configuration for the TEI embedding client.
type TEIConfig struct {
	// BaseURL is the base URL for the embedding API.
	BaseURL string

	// Model is the embedding model the server runs. Recorded in metrics
	// and cache keys; TEI itself is single-model per endpoint.
	Model string

	// Timeout bounds one embed call end to end.
	Timeout time.Duration
}

// Validate validates the configuration.
func (c TEIConfig) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("%w: base URL required", ErrInvalidConfig)
	}
	return nil
}

// TEI embeds queries against a text-embeddings-inference server.
type TEI struct {
	config TEIConfig
	client *http.Client
	stages *telemetry.StageMetrics
}

// NewTEI creates a TEI client. stages may be nil.
func NewTEI(config TEIConfig, stages *telemetry.StageMetrics) (*TEI, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	if config.Timeout <= 0 {
		config.Timeout = 10 * time.Second
	}

	return &TEI{
		config: config,
		client: &http.Client{Timeout: config.Timeout},
		stages: stages,
	}, nil
}

// Model returns the configured model name.
func (t *TEI) Model() string { return t.config.Model }

// teiRequest is the request body for the TEI embed endpoint.
type teiRequest struct {
	Inputs   interface{} `json:"inputs"`
	Truncate bool        `json:"truncate"`
}

// EmbedQuery generates an embedding for a single query.
func (t *TEI) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	start := time.Now()
	var genErr error
	defer func() {
		if t.stages != nil {
			t.stages.RecordStage(ctx, "embed", time.Since(start), genErr)
		}
	}()

	if text == "" {
		genErr = fmt.Errorf("%w: text cannot be empty", ErrEmptyInput)
		return nil, genErr
	}

	body, err := json.Marshal(teiRequest{Inputs: text, Truncate: true})
	if err != nil {
		genErr = fmt.Errorf("marshaling request: %w", err)
		return nil, genErr
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", t.config.BaseURL+"/embed", bytes.NewReader(body))
	if err != nil {
		genErr = fmt.Errorf("creating request: %w", err)
		return nil, genErr
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(httpReq)
	if err != nil {
		genErr = fmt.Errorf("%w: %v", ErrEmbeddingFailed, err)
		return nil, genErr
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		genErr = fmt.Errorf("%w: status %d: %s", ErrEmbeddingFailed, resp.StatusCode, string(respBody))
		return nil, genErr
	}

	var vectors [][]float32
	if err := json.NewDecoder(resp.Body).Decode(&vectors); err != nil {
		genErr = fmt.Errorf("decoding response: %w", err)
		return nil, genErr
	}
	if len(vectors) == 0 {
		genErr = fmt.Errorf("%w: empty response", ErrEmbeddingFailed)
		return nil, genErr
	}

	return vectors[0], nil
}
