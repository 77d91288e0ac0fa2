// Package clipserver provides an embedder adapter for a CLIP inference
// server reached over HTTP.
//
// The server exposes three endpoints:
//
//	POST /embed/text   {"model": "...", "texts":  ["..."]}      -> {"embeddings": [[...]]}
//	POST /embed/image  {"model": "...", "images": ["<base64>"]} -> {"embeddings": [[...]]}
//	GET  /health
//
// A 400 or 422 response means the server rejected the input itself.
package clipserver

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/custodia-labs/clipsearch/internal/core/domain"
	"github.com/custodia-labs/clipsearch/internal/core/ports/driven"
)

// Ensure Embedder implements the interface.
var _ driven.Embedder = (*Embedder)(nil)

// Default configuration values.
const (
	DefaultBaseURL    = domain.DefaultEmbeddingURL
	DefaultModel      = domain.DefaultEmbedModel
	DefaultTimeout    = domain.DefaultEmbedTimeout
	DefaultDimensions = domain.DefaultEmbedDims
)

// Config holds configuration for the CLIP server embedder.
type Config struct {
	// BaseURL is the server base URL (default: http://localhost:51000).
	BaseURL string

	// Model is the CLIP model name (default: ViT-B/32).
	Model string

	// Timeout is the request timeout (default: 60s).
	Timeout time.Duration

	// Dimensions is the embedding vector size (model-dependent).
	Dimensions int
}

// Embedder generates CLIP embeddings through a remote server.
type Embedder struct {
	client     *http.Client
	baseURL    string
	model      string
	dimensions int
}

type embedRequest struct {
	Model  string   `json:"model"`
	Texts  []string `json:"texts,omitempty"`
	Images []string `json:"images,omitempty"`
}

type embedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

// NewEmbedder creates a new CLIP server embedder.
func NewEmbedder(cfg Config) *Embedder {
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

	return &Embedder{
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		model:      cfg.Model,
		dimensions: cfg.Dimensions,
	}
}

// EmbedText embeds a free-text query.
func (e *Embedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	out, err := e.embed(ctx, "/embed/text", embedRequest{Model: e.model, Texts: []string{text}}, domain.ErrInvalidInput)
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

// EmbedImage embeds one encoded image.
func (e *Embedder) EmbedImage(ctx context.Context, image []byte) ([]float32, error) {
	out, err := e.EmbedImages(ctx, [][]byte{image})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

// EmbedImages embeds a batch of encoded images in one request.
func (e *Embedder) EmbedImages(ctx context.Context, images [][]byte) ([][]float32, error) {
	if len(images) == 0 {
		return nil, nil
	}
	encoded := make([]string, len(images))
	for i, img := range images {
		encoded[i] = base64.StdEncoding.EncodeToString(img)
	}
	return e.embed(ctx, "/embed/image", embedRequest{Model: e.model, Images: encoded}, domain.ErrDecode)
}

// embed posts req and checks one vector came back per input. A 400 or 422
// response wraps rejected; anything else that fails wraps
// domain.ErrEmbeddingUnavailable.
func (e *Embedder) embed(ctx context.Context, path string, req embedRequest, rejected error) ([][]float32, error) {
	jsonBody, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+path, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("clipserver: send request: %v: %w", err, domain.ErrEmbeddingUnavailable)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if err != nil {
			body = []byte("failed to read response")
		}
		cause := domain.ErrEmbeddingUnavailable
		if resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnprocessableEntity {
			cause = rejected
		}
		return nil, fmt.Errorf("clipserver error (status %d): %s: %w",
			resp.StatusCode, strings.TrimSpace(string(body)), cause)
	}

	var embedResp embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&embedResp); err != nil {
		return nil, fmt.Errorf("clipserver: decode response: %v: %w", err, domain.ErrEmbeddingUnavailable)
	}

	want := len(req.Texts) + len(req.Images)
	if len(embedResp.Embeddings) != want {
		return nil, fmt.Errorf("clipserver: got %d embeddings for %d inputs: %w",
			len(embedResp.Embeddings), want, domain.ErrEmbeddingUnavailable)
	}
	return embedResp.Embeddings, nil
}

// Dimensions returns the embedding vector size.
func (e *Embedder) Dimensions() int {
	return e.dimensions
}

// ModelName returns the name of the CLIP model being used.
func (e *Embedder) ModelName() string {
	return e.model
}

// Ping checks the /health endpoint without running inference.
func (e *Embedder) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.baseURL+"/health", http.NoBody)
	if err != nil {
		return fmt.Errorf("clipserver: failed to create ping request: %w", err)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return fmt.Errorf("clipserver: ping failed: %v: %w", err, domain.ErrEmbeddingUnavailable)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("clipserver: health returned status %d: %w", resp.StatusCode, domain.ErrEmbeddingUnavailable)
	}
	return nil
}

// Close releases resources.
func (e *Embedder) Close() error {
	e.client.CloseIdleConnections()
	return nil
}
