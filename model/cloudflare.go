package model

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const DefaultWorkersAIBase = "https://api.cloudflare.com/client/v4/accounts"

// WorkersAIEmbedder calls the Cloudflare Workers AI run endpoint for a single
// text and returns the embedding vector.
type WorkersAIEmbedder struct {
	apiURL string
	token  string
	dim    int
	client *http.Client
}

type workersAIRequest struct {
	Text string `json:"text"`
}

type workersAIResponse struct {
	Success bool `json:"success"`
	Result  struct {
		Data [][]float32 `json:"data"`
	} `json:"result"`
	Errors []struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"errors"`
}

// EmbeddingURL builds the run URL for a Workers AI model, e.g.
// {base}/{account}/ai/run/@cf/baai/bge-large-en-v1.5.
func EmbeddingURL(base, accountID, model string) string {
	return fmt.Sprintf("%s/%s/ai/run/%s", base, accountID, model)
}

func NewWorkersAIEmbedder(apiURL, token string, dim int) *WorkersAIEmbedder {
	return &WorkersAIEmbedder{
		apiURL: apiURL,
		token:  token,
		dim:    dim,
		client: http.DefaultClient,
	}
}

func (e *WorkersAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	body, err := json.Marshal(workersAIRequest{Text: text})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	httpReq, err := http.NewRequestWithContext(ctx, "POST", e.apiURL, bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Authorization", "Bearer "+e.token)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var aiResp workersAIResponse
	if err := json.Unmarshal(respBody, &aiResp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	if !aiResp.Success || len(aiResp.Result.Data) == 0 {
		return nil, fmt.Errorf("workers AI error: status %d, errors: %v", resp.StatusCode, aiResp.Errors)
	}

	vec := aiResp.Result.Data[0]
	if e.dim > 0 && len(vec) != e.dim {
		return nil, fmt.Errorf("unexpected embedding dimension: got %d, want %d", len(vec), e.dim)
	}

	return vec, nil
}
