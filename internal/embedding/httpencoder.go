package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// HTTPEncoder implements Encoder via one JSON POST per batch against
// an externally-hosted embedding endpoint: request {"texts": [...]},
// response {"vectors": [[...]]}. It is the one concrete Encoder this
// repo wires in, since the model itself is an external collaborator
// treated as a black box (spec.md §1) — this is a generic wire
// contract, not a vendor SDK, so it carries no dependency of its own.
//
// Ground: stdlib net/http + encoding/json, the same request/response
// shape the teacher's now-dropped internal/embedding/ollama.go used
// for its local embedding server (see DESIGN.md for why the
// vendor-specific genai/ollama clients themselves were dropped).
type HTTPEncoder struct {
	endpoint string
	client   *http.Client
	dims     int
}

// NewHTTPEncoder creates an HTTPEncoder posting to endpoint. dims is
// advisory (reported by Dimensions()); the encoder does not validate
// returned vectors against it.
func NewHTTPEncoder(endpoint string, dims int) *HTTPEncoder {
	return &HTTPEncoder{endpoint: endpoint, client: &http.Client{}, dims: dims}
}

type httpEncodeRequest struct {
	Texts []string `json:"texts"`
}

type httpEncodeResponse struct {
	Vectors [][]float32 `json:"vectors"`
}

// Embed encodes a single text via EmbedBatch.
func (e *HTTPEncoder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch posts texts to the configured endpoint and returns the
// same number of vectors, in order.
func (e *HTTPEncoder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	body, err := json.Marshal(httpEncodeRequest{Texts: texts})
	if err != nil {
		return nil, fmt.Errorf("embedding: marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("embedding: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embedding: request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("embedding: endpoint returned status %d", resp.StatusCode)
	}

	var out httpEncodeResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("embedding: decode response: %w", err)
	}
	if len(out.Vectors) != len(texts) {
		return nil, fmt.Errorf("embedding: endpoint returned %d vectors for %d texts", len(out.Vectors), len(texts))
	}
	return out.Vectors, nil
}

// Dimensions returns the advisory vector width passed to NewHTTPEncoder.
func (e *HTTPEncoder) Dimensions() int { return e.dims }
