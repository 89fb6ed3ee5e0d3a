package usecase

import (
	"context"
	"errors"
	"math"
	"testing"

	"go.uber.org/zap"

	"cdesearch/internal/index"
)

func TestEmbedQuery_RejectsEmptyInput(t *testing.T) {
	emb := &stubEmbedder{dim: 4}
	qe := NewQueryEmbedUseCase(emb, zap.NewNop())

	for _, q := range []string{"", "   ", "\n\t"} {
		_, err := qe.EmbedQuery(context.Background(), q)
		if !errors.Is(err, ErrInvalidQuery) {
			t.Errorf("query %q: expected ErrInvalidQuery, got %v", q, err)
		}
	}

	// Validation happens before any provider call.
	if emb.calls != 0 {
		t.Errorf("expected no provider calls, got %d", emb.calls)
	}
}

func TestEmbedQuery_NoProvider(t *testing.T) {
	qe := NewQueryEmbedUseCase(nil, zap.NewNop())
	_, err := qe.EmbedQuery(context.Background(), "blood pressure")
	if !errors.Is(err, ErrProviderUnavailable) {
		t.Errorf("expected ErrProviderUnavailable, got %v", err)
	}
}

func TestEmbedQuery_ProviderError(t *testing.T) {
	emb := &stubEmbedder{dim: 4, failOnCall: 1}
	qe := NewQueryEmbedUseCase(emb, zap.NewNop())

	vector, err := qe.EmbedQuery(context.Background(), "blood pressure")
	if !errors.Is(err, ErrEmbeddingFailed) {
		t.Errorf("expected ErrEmbeddingFailed, got %v", err)
	}
	if vector != nil {
		t.Error("expected no partial result on provider failure")
	}
}

func TestEmbedQuery_QueryIntentAndNormalization(t *testing.T) {
	emb := &stubEmbedder{
		dim: 3,
		vectorsFor: func(text string) []float32 {
			return []float32{3, 4, 0}
		},
	}
	qe := NewQueryEmbedUseCase(emb, zap.NewNop())

	vector, err := qe.EmbedQuery(context.Background(), "blood pressure")
	if err != nil {
		t.Fatalf("EmbedQuery() error = %v", err)
	}

	if len(emb.intents) != 1 || emb.intents[0] != "query" {
		t.Errorf("expected one call with query intent, got %v", emb.intents)
	}
	if norm := index.Norm(vector); math.Abs(norm-1) > 1e-6 {
		t.Errorf("expected unit-normalized vector, norm = %f", norm)
	}
	if math.Abs(float64(vector[0])-0.6) > 1e-6 || math.Abs(float64(vector[1])-0.8) > 1e-6 {
		t.Errorf("unexpected normalized vector: %v", vector)
	}
}

func TestEmbedQuery_ZeroVector(t *testing.T) {
	emb := &stubEmbedder{
		dim: 3,
		vectorsFor: func(text string) []float32 {
			return []float32{0, 0, 0}
		},
	}
	qe := NewQueryEmbedUseCase(emb, zap.NewNop())

	if _, err := qe.EmbedQuery(context.Background(), "q"); !errors.Is(err, ErrEmbeddingFailed) {
		t.Errorf("expected ErrEmbeddingFailed for zero vector, got %v", err)
	}
}
