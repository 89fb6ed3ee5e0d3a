package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"cdesearch/internal/port"
)

// VoyageEmbedder generates embeddings via the Voyage AI API. Every
// request first acquires a permit from a shared rate limiter, so batch
// generation and query embedding are serialized against the provider's
// request quota no matter who calls.
type VoyageEmbedder struct {
	apiKey    string
	model     string
	endpoint  string
	dimension int
	client    *http.Client
	limiter   *rate.Limiter
	logger    *zap.Logger
}

type voyageRequest struct {
	Input      []string `json:"input"`
	Model      string   `json:"model"`
	InputType  string   `json:"input_type"`
	Truncation bool     `json:"truncation"`
}

type voyageResponse struct {
	Data  []voyageEmbedding `json:"data"`
	Usage voyageUsage       `json:"usage"`
	Error *voyageError      `json:"error,omitempty"`
}

type voyageEmbedding struct {
	Embedding []float32 `json:"embedding"`
	Index     int       `json:"index"`
}

type voyageUsage struct {
	TotalTokens int `json:"total_tokens"`
}

type voyageError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

// NewVoyageEmbedder reads the API key from the named environment
// variable and returns a ready client. A missing key is a startup-time
// failure, not a per-call one.
func NewVoyageEmbedder(apiKeyEnv, model string, requestsPerMinute int, logger *zap.Logger) (*VoyageEmbedder, error) {
	apiKey := os.Getenv(apiKeyEnv)
	if apiKey == "" {
		return nil, fmt.Errorf("API key not found in environment variable: %s", apiKeyEnv)
	}

	dimension := 1024
	switch model {
	case "voyage-large-2":
		dimension = 1536
	case "voyage-2":
		dimension = 1024
	case "voyage-3":
		dimension = 1024
	case "voyage-3-lite":
		dimension = 512
	case "voyage-3-large":
		dimension = 1024
	}

	if requestsPerMinute <= 0 {
		requestsPerMinute = 3
	}
	interval := time.Minute / time.Duration(requestsPerMinute)

	return &VoyageEmbedder{
		apiKey:    apiKey,
		model:     model,
		endpoint:  "https://api.voyageai.com/v1/embeddings",
		dimension: dimension,
		client: &http.Client{
			Timeout: 60 * time.Second,
		},
		limiter: rate.NewLimiter(rate.Every(interval), 1),
		logger:  logger,
	}, nil
}

// Embed generates one embedding per input text in a single provider
// call. Callers are responsible for keeping batches within the
// provider's batch-size limit.
func (e *VoyageEmbedder) Embed(ctx context.Context, texts []string, intent port.Intent) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	if err := e.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter wait failed: %w", err)
	}

	reqBody := voyageRequest{
		Input:      texts,
		Model:      e.model,
		InputType:  string(intent),
		Truncation: true,
	}
	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.apiKey)

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(body))
	}

	var embResp voyageResponse
	if err := json.Unmarshal(body, &embResp); err != nil {
		bodyPreview := string(body)
		if len(bodyPreview) > 200 {
			bodyPreview = bodyPreview[:200]
		}
		return nil, fmt.Errorf("failed to parse response (body: %s): %w", bodyPreview, err)
	}
	if embResp.Error != nil {
		return nil, fmt.Errorf("API error: %s", embResp.Error.Message)
	}

	// Place embeddings by the provider's index field rather than
	// response order.
	embeddings := make([][]float32, len(texts))
	for _, data := range embResp.Data {
		if data.Index < 0 || data.Index >= len(embeddings) {
			return nil, fmt.Errorf("API returned out-of-range index %d for batch of %d", data.Index, len(texts))
		}
		embeddings[data.Index] = data.Embedding
	}
	for i, v := range embeddings {
		if v == nil {
			return nil, fmt.Errorf("API returned no embedding for input %d", i)
		}
	}

	e.logger.Debug("voyage embeddings generated",
		zap.Int("texts", len(texts)),
		zap.String("intent", string(intent)),
		zap.Int("total_tokens", embResp.Usage.TotalTokens))

	return embeddings, nil
}

// Dimension returns the embedding vector dimension.
func (e *VoyageEmbedder) Dimension() int {
	return e.dimension
}

// ModelName returns the name of the embedding model.
func (e *VoyageEmbedder) ModelName() string {
	return e.model
}
