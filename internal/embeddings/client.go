package embeddings

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"
)

// Config holds embeddings client configuration.
type Config struct {
	APIKey     string        // empty -> deterministic local embeddings only
	BaseURL    string        // OpenAI-compatible API base (default https://api.openai.com/v1)
	Model      string        // e.g. "text-embedding-3-small"
	Dimensions int           // expected vector length; defaults from Dimensions(model)
	BatchSize  int           // max texts per remote batch call
	Timeout    time.Duration // per-request timeout
}

// Client produces fixed-dimension embedding vectors. Remote failures are
// recovered locally with a deterministic fallback vector, so Embed and
// EmbedMany never fail and always return vectors of exactly the configured
// dimension. Results are cached per trimmed input text for the lifetime of
// the client.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	model      string
	dim        int
	batchSize  int

	mu    sync.Mutex
	cache map[string][]float32
}

const batchAttempts = 3

// New creates a new embeddings client. With no API key the client runs in
// local mode and never makes a network call.
func New(config Config) (*Client, error) {
	if config.Model == "" {
		return nil, fmt.Errorf("model is required")
	}
	dim := config.Dimensions
	if dim <= 0 {
		dim = Dimensions(config.Model)
	}
	baseURL := strings.TrimSuffix(config.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	batchSize := config.BatchSize
	if batchSize <= 0 {
		batchSize = 128
	}
	timeout := config.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}

	if config.APIKey == "" {
		slog.Info("embeddings: no API key, using deterministic local vectors", "dim", dim)
	} else {
		slog.Info("embeddings: using remote model", "model", config.Model, "dim", dim)
	}

	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		apiKey:     config.APIKey,
		model:      config.Model,
		dim:        dim,
		batchSize:  batchSize,
		cache:      make(map[string][]float32),
	}, nil
}

// Dim returns the configured vector dimension.
func (c *Client) Dim() int { return c.dim }

type embeddingRequest struct {
	Model string `json:"model"`
	Input any    `json:"input"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Embed returns the embedding vector for a single text. Blank input maps to
// the zero vector without any remote call.
func (c *Client) Embed(ctx context.Context, text string) []float32 {
	text = strings.TrimSpace(text)
	if text == "" {
		return make([]float32, c.dim)
	}

	if vec, ok := c.cached(text); ok {
		return vec
	}

	var vec []float32
	if c.apiKey == "" {
		vec = fallbackVector(text, c.dim)
	} else {
		remote, err := c.remoteEmbed(ctx, text)
		if err != nil {
			slog.Error("embedding request failed, using fallback vector", "error", err)
			vec = fallbackVector(text, c.dim)
		} else {
			vec = remote
		}
	}

	vec = ensureDim(vec, c.dim)
	c.store(text, vec)
	return vec
}

// EmbedMany embeds a batch of texts, preserving order one-to-one. Blank
// inputs map to zero vectors; uncached texts are sent to the provider in
// chunks, with transient failures retried before falling back per chunk.
func (c *Client) EmbedMany(ctx context.Context, texts []string) [][]float32 {
	results := make([][]float32, len(texts))

	var toQuery []string
	var mapIdx []int
	for i, t := range texts {
		s := strings.TrimSpace(t)
		if s == "" {
			results[i] = make([]float32, c.dim)
			continue
		}
		if vec, ok := c.cached(s); ok {
			results[i] = vec
			continue
		}
		toQuery = append(toQuery, s)
		mapIdx = append(mapIdx, i)
	}
	if len(toQuery) == 0 {
		return results
	}

	if c.apiKey == "" {
		for j, s := range toQuery {
			vec := ensureDim(fallbackVector(s, c.dim), c.dim)
			c.store(s, vec)
			results[mapIdx[j]] = vec
		}
		return results
	}

	for cursor := 0; cursor < len(toQuery); cursor += c.batchSize {
		end := min(cursor+c.batchSize, len(toQuery))
		chunk := toQuery[cursor:end]

		vecs, err := c.remoteEmbedBatch(ctx, chunk)
		if err != nil {
			slog.Error("batch embedding failed after retries, using fallback vectors",
				"chunk_size", len(chunk), "error", err)
			vecs = make([][]float32, len(chunk))
			for j, s := range chunk {
				vecs[j] = fallbackVector(s, c.dim)
			}
		}

		for j, s := range chunk {
			vec := ensureDim(vecs[j], c.dim)
			c.store(s, vec)
			results[mapIdx[cursor+j]] = vec
		}
	}

	return results
}

func (c *Client) remoteEmbed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := c.doRequest(ctx, text)
	if err != nil {
		return nil, err
	}
	if len(vecs) == 0 {
		return nil, fmt.Errorf("no embedding returned")
	}
	return vecs[0], nil
}

func (c *Client) remoteEmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	var lastErr error
	for attempt := 0; attempt < batchAttempts; attempt++ {
		vecs, err := c.doRequest(ctx, texts)
		if err == nil {
			if len(vecs) != len(texts) {
				return nil, fmt.Errorf("expected %d embeddings, got %d", len(texts), len(vecs))
			}
			return vecs, nil
		}
		lastErr = err
		if attempt < batchAttempts-1 {
			sleep := time.Duration(1500*(1<<attempt)) * time.Millisecond
			slog.Warn("batch embedding error, retrying", "in", sleep, "error", err)
			select {
			case <-time.After(sleep):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}
	return nil, lastErr
}

func (c *Client) doRequest(ctx context.Context, input any) ([][]float32, error) {
	body, err := json.Marshal(embeddingRequest{Model: c.model, Input: input})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		// Body is not included: provider errors can echo request details.
		return nil, fmt.Errorf("API error (status %d)", resp.StatusCode)
	}

	var embResp embeddingResponse
	if err := json.Unmarshal(respBody, &embResp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	if embResp.Error != nil {
		return nil, fmt.Errorf("API error: %s", embResp.Error.Message)
	}

	vecs := make([][]float32, len(embResp.Data))
	for i, d := range embResp.Data {
		vecs[i] = d.Embedding
	}
	return vecs, nil
}

func (c *Client) cached(text string) ([]float32, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	vec, ok := c.cache[text]
	return vec, ok
}

func (c *Client) store(text string, vec []float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache[text] = vec
}

// ensureDim truncates or zero-pads a vector to exactly dim entries. Every
// downstream cosine computation relies on this exact-length invariant.
func ensureDim(vec []float32, dim int) []float32 {
	if len(vec) == dim {
		return vec
	}
	if len(vec) > dim {
		return vec[:dim]
	}
	out := make([]float32, dim)
	copy(out, vec)
	return out
}

// fallbackVector derives a deterministic, seed-free pseudo-embedding from
// the input text: per dimension i, the first 4 bytes of
// sha256(text + "#" + i) scaled to [0,1). Stable across restarts with no
// network access, so relevance comparisons stay reproducible.
func fallbackVector(text string, dim int) []float32 {
	out := make([]float32, dim)
	for i := 0; i < dim; i++ {
		sum := sha256.Sum256([]byte(fmt.Sprintf("%s#%d", text, i)))
		val := binary.BigEndian.Uint32(sum[:4])
		out[i] = float32(float64(val) / (1 << 32))
	}
	return out
}

// Dimensions returns the default vector dimension for known models.
func Dimensions(model string) int {
	switch model {
	case "text-embedding-3-small":
		return 1536
	case "text-embedding-3-large":
		return 3072
	case "text-embedding-ada-002":
		return 1536
	default:
		return 1536
	}
}
