package embedclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/vthunder/cogmem/internal/cogerr"
)

// Ollama is the reference Embedder backed by a local or remote Ollama
// server's /api/embeddings endpoint, grounded on bud2/memory-service's
// embedding.Client (same base URL default, same request/response shape),
// adapted to take a context per call and to satisfy the Embedder
// interface instead of exposing a package-level helper surface.
type Ollama struct {
	baseURL string
	model   string
	client  *http.Client

	mu  sync.RWMutex
	dim int // learned from the first successful response
}

// NewOllama constructs a client against baseURL (default
// http://localhost:11434) using model (default "nomic-embed-text", 768
// dims).
func NewOllama(baseURL, model string) *Ollama {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if model == "" {
		model = "nomic-embed-text"
	}
	return &Ollama{
		baseURL: baseURL,
		model:   model,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

type embeddingRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type embeddingResponse struct {
	Embedding []float64 `json:"embedding"`
}

// apiError mirrors a structured Ollama error body; parseError falls
// back to the raw response text when the body isn't JSON.
type apiError struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func parseError(status int, body []byte) error {
	var apiErr apiError
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Error != "" {
		return cogerr.ProviderFailure(fmt.Errorf("ollama %d %s: %s", status, apiErr.Code, apiErr.Error))
	}
	return cogerr.ProviderFailure(fmt.Errorf("ollama %d: %s", status, string(body)))
}

// Embed implements Embedder.
func (o *Ollama) Embed(ctx context.Context, text string) ([]float64, error) {
	if text == "" {
		return nil, cogerr.ProviderFailure(fmt.Errorf("empty text"))
	}

	body, err := json.Marshal(embeddingRequest{Model: o.model, Prompt: text})
	if err != nil {
		return nil, cogerr.ProviderFailure(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/api/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, cogerr.ProviderFailure(err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(req)
	if err != nil {
		return nil, cogerr.ProviderFailure(err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, cogerr.ProviderFailure(err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, parseError(resp.StatusCode, respBody)
	}

	var result embeddingResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, cogerr.ProviderFailure(fmt.Errorf("decode response: %w", err))
	}
	if len(result.Embedding) == 0 {
		return nil, cogerr.ProviderFailure(fmt.Errorf("empty embedding returned"))
	}

	o.mu.Lock()
	o.dim = len(result.Embedding)
	o.mu.Unlock()

	return result.Embedding, nil
}

// Model implements Embedder.
func (o *Ollama) Model() string { return o.model }

// Dimension implements Embedder. Returns 0 until the first successful
// Embed call has observed the server's actual vector length.
func (o *Ollama) Dimension() int {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.dim
}
