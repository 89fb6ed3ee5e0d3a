package usecase

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"cdesearch/internal/index"
	"cdesearch/internal/port"
)

// QueryEmbedUseCase produces unit-normalized query vectors in the same
// metric space as the indexed document vectors. The embedder must be the
// same model that produced the corpus embeddings.
type QueryEmbedUseCase struct {
	embedder port.Embedder
	logger   *zap.Logger
}

func NewQueryEmbedUseCase(embedder port.Embedder, logger *zap.Logger) *QueryEmbedUseCase {
	return &QueryEmbedUseCase{
		embedder: embedder,
		logger:   logger,
	}
}

// EmbedQuery validates the query text, embeds it with query intent and
// normalizes the result to unit L2 norm. No partial result is ever
// returned on failure.
func (u *QueryEmbedUseCase) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrInvalidQuery
	}
	if u.embedder == nil {
		return nil, ErrProviderUnavailable
	}

	vectors, err := u.embedder.Embed(ctx, []string{text}, port.IntentQuery)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbeddingFailed, err)
	}
	if len(vectors) == 0 || len(vectors[0]) == 0 {
		return nil, fmt.Errorf("%w: provider returned no embedding", ErrEmbeddingFailed)
	}

	vector := vectors[0]
	if norm := index.Normalize(vector); norm == 0 {
		return nil, fmt.Errorf("%w: provider returned a zero vector", ErrEmbeddingFailed)
	}

	u.logger.Debug("query embedded",
		zap.Int("dim", len(vector)),
		zap.String("model", u.embedder.ModelName()))
	return vector, nil
}
