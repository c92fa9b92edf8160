// Package local provides an embedding provider backed by a local Ollama
// inference server. Models are pulled and served by Ollama; this adapter
// only speaks the HTTP API.
package local

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/rememex/rememex-cli/internal/core/domain"
	"github.com/rememex/rememex-cli/internal/core/ports/driven"
	"github.com/rememex/rememex-cli/internal/logger"
)

// Ensure EmbeddingProvider implements the interface.
var _ driven.EmbeddingProvider = (*EmbeddingProvider)(nil)

// Default configuration values.
const (
	DefaultBaseURL    = "http://localhost:11434"
	DefaultModel      = "nomic-embed-text"
	DefaultTimeout    = 120 * time.Second
	DefaultDimensions = 768 // nomic-embed-text default

	// BatchSize is the number of passages sent per request.
	BatchSize = 32
)

// Asymmetric retrieval prefixes for nomic-style models.
const (
	passagePrefix = "search_document: "
	queryPrefix   = "search_query: "
)

// Config holds configuration for the local embedding provider.
type Config struct {
	// BaseURL is the inference server base URL (default: http://localhost:11434).
	BaseURL string

	// Model is the embedding model to use (default: nomic-embed-text).
	Model string

	// Timeout is the request timeout (default: 120s).
	Timeout time.Duration

	// Dimensions is the embedding vector size (model-dependent).
	Dimensions int

	// AsymmetricPrefixes enables search_document/search_query prefixes.
	AsymmetricPrefixes bool
}

// EmbeddingProvider generates embeddings through a local inference server.
// The first request triggers a model load on the server side, so requests
// are serialised to avoid loading the model once per goroutine.
type EmbeddingProvider struct {
	client     *http.Client
	baseURL    string
	model      string
	dimensions int
	prefixes   bool

	mu     sync.Mutex
	loaded bool
}

// embedRequest is the /api/embed request format.
type embedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

// embedResponse is the /api/embed response format.
type embedResponse struct {
	Embeddings [][]float64 `json:"embeddings"`
	Error      string      `json:"error,omitempty"`
}

// NewEmbeddingProvider creates a new local embedding provider.
func NewEmbeddingProvider(cfg Config) *EmbeddingProvider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Dimensions == 0 {
		cfg.Dimensions = DefaultDimensions
	}

	return &EmbeddingProvider{
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL:    cfg.BaseURL,
		model:      cfg.Model,
		dimensions: cfg.Dimensions,
		prefixes:   cfg.AsymmetricPrefixes,
	}
}

// EmbedPassages generates embeddings for document fragments.
func (p *EmbeddingProvider) EmbedPassages(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	inputs := texts
	if p.prefixes {
		inputs = make([]string, len(texts))
		for i, t := range texts {
			inputs[i] = passagePrefix + t
		}
	}

	result := make([][]float32, 0, len(inputs))
	for start := 0; start < len(inputs); start += BatchSize {
		end := start + BatchSize
		if end > len(inputs) {
			end = len(inputs)
		}
		batch, err := p.embed(ctx, inputs[start:end])
		if err != nil {
			return nil, err
		}
		result = append(result, batch...)
	}
	return result, nil
}

// EmbedQuery generates an embedding for a search query.
func (p *EmbeddingProvider) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if p.prefixes {
		text = queryPrefix + text
	}
	embeddings, err := p.embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(embeddings) == 0 {
		return nil, fmt.Errorf("embedding query: %w", domain.ErrModelLoad)
	}
	return embeddings[0], nil
}

// embed sends one batch to the inference server. Requests are serialised
// so the server loads the model exactly once.
func (p *EmbeddingProvider) embed(ctx context.Context, texts []string) ([][]float32, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.loaded {
		logger.Debug("loading embedding model %s", p.model)
	}

	reqBody := embedRequest{
		Model: p.model,
		Input: texts,
	}
	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		p.baseURL+"/api/embed",
		bytes.NewReader(jsonBody),
	)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, classifyTransportError(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var embedResp embedResponse
	if err := json.Unmarshal(body, &embedResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	if embedResp.Error != "" {
		return nil, fmt.Errorf("%s: %w", embedResp.Error, domain.ErrModelLoad)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("server status %d: %s: %w", resp.StatusCode, string(body), domain.ErrTransport)
	}
	if len(embedResp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("expected %d embeddings, got %d", len(texts), len(embedResp.Embeddings))
	}

	if !p.loaded {
		p.loaded = true
		logger.Debug("embedding model %s ready", p.model)
	}

	embeddings := make([][]float32, len(embedResp.Embeddings))
	for i, vec := range embedResp.Embeddings {
		if len(vec) != p.dimensions {
			return nil, fmt.Errorf("model returned %d dimensions, expected %d: %w",
				len(vec), p.dimensions, domain.ErrProviderMismatch)
		}
		embedding := make([]float32, len(vec))
		for j, v := range vec {
			embedding[j] = float32(v)
		}
		embeddings[i] = embedding
	}
	return embeddings, nil
}

// classifyTransportError maps HTTP client failures to domain sentinels.
func classifyTransportError(err error) error {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%v: %w", err, domain.ErrTimeout)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%v: %w", err, domain.ErrTimeout)
	}
	return fmt.Errorf("%v: %w", err, domain.ErrTransport)
}

// Dimensions returns the embedding vector size.
func (p *EmbeddingProvider) Dimensions() int {
	return p.dimensions
}

// Identity returns the provider identity used to stamp containers.
func (p *EmbeddingProvider) Identity() domain.ProviderIdentity {
	return domain.ProviderIdentity{
		Provider:   "local",
		Model:      p.model,
		Dimensions: p.dimensions,
	}
}

// Ping validates the server is reachable by checking the /api/tags endpoint.
// This is a lightweight check that validates connectivity without running inference.
func (p *EmbeddingProvider) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/api/tags", http.NoBody)
	if err != nil {
		return fmt.Errorf("create ping request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return classifyTransportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("server status %d: %w", resp.StatusCode, domain.ErrTransport)
	}
	return nil
}

// Close releases resources.
func (p *EmbeddingProvider) Close() error {
	// HTTP client doesn't need explicit cleanup
	return nil
}
