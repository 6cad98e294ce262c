package memory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/nextlevelbuilder/agentbridge/internal/providers"
)

// Embedder produces the 384-dimensional vectors the embedding store indexes
// and queries by: a single shared embedder instance serves every agent. It
// is a narrower contract than providers.Provider since embedding calls
// never stream and never carry tool definitions.
type Embedder interface {
	Name() string
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

const embeddingDimensions = 384

// OpenAIEmbedder calls OpenAI-compatible /embeddings endpoints, requesting
// text-embedding-3-small truncated to embeddingDimensions via the API's
// native `dimensions` parameter (matrix truncation is safe for OpenAI's
// Matryoshka-trained embedding models, per their own documentation).
type OpenAIEmbedder struct {
	name        string
	apiKey      string
	apiBase     string
	model       string
	client      *http.Client
	retryConfig providers.RetryConfig
}

func NewOpenAIEmbedder(name, apiKey, apiBase, model string) *OpenAIEmbedder {
	if apiBase == "" {
		apiBase = "https://api.openai.com/v1"
	}
	if model == "" {
		model = "text-embedding-3-small"
	}
	return &OpenAIEmbedder{
		name:        name,
		apiKey:      apiKey,
		apiBase:     strings.TrimRight(apiBase, "/"),
		model:       model,
		client:      &http.Client{Timeout: 60 * time.Second},
		retryConfig: providers.DefaultRetryConfig(),
	}
}

func (e *OpenAIEmbedder) Name() string { return e.name }

type openAIEmbeddingRequest struct {
	Model      string   `json:"model"`
	Input      []string `json:"input"`
	Dimensions int      `json:"dimensions,omitempty"`
}

type openAIEmbeddingResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
}

func (e *OpenAIEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	return providers.RetryDo(ctx, e.retryConfig, func() ([][]float32, error) {
		return e.embedOnce(ctx, texts)
	})
}

func (e *OpenAIEmbedder) embedOnce(ctx context.Context, texts []string) ([][]float32, error) {
	body, err := json.Marshal(openAIEmbeddingRequest{
		Model:      e.model,
		Input:      texts,
		Dimensions: embeddingDimensions,
	})
	if err != nil {
		return nil, fmt.Errorf("embedder %s: encode request: %w", e.name, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.apiBase+"/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("embedder %s: build request: %w", e.name, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.apiKey)

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embedder %s: request failed: %w", e.name, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("embedder %s: read response: %w", e.name, err)
	}
	if resp.StatusCode >= 300 {
		return nil, &providers.HTTPError{Status: resp.StatusCode, Body: string(respBody), RetryAfter: providers.ParseRetryAfter(resp.Header.Get("Retry-After"))}
	}

	var parsed openAIEmbeddingResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("embedder %s: decode response: %w", e.name, err)
	}

	out := make([][]float32, len(parsed.Data))
	for _, d := range parsed.Data {
		if d.Index < 0 || d.Index >= len(out) {
			continue
		}
		out[d.Index] = d.Embedding
	}
	return out, nil
}
