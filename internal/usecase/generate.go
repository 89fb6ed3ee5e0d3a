package usecase

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"cdesearch/internal/domain"
	"cdesearch/internal/port"
)

// ProgressFunc reports embedding progress to the caller.
type ProgressFunc func(embedded, total int)

// GenerateUseCase drives the embedding provider over the full corpus.
// Batches run strictly one after another; pacing against the provider's
// request quota lives in the embedder itself, which gates every call
// through a single rate limiter.
type GenerateUseCase struct {
	records    port.RecordStore
	embeddings port.EmbeddingStore
	embedder   port.Embedder
	batchSize  int
	logger     *zap.Logger
}

func NewGenerateUseCase(
	records port.RecordStore,
	embeddings port.EmbeddingStore,
	embedder port.Embedder,
	batchSize int,
	logger *zap.Logger,
) *GenerateUseCase {
	if batchSize <= 0 {
		batchSize = 128
	}
	return &GenerateUseCase{
		records:    records,
		embeddings: embeddings,
		embedder:   embedder,
		batchSize:  batchSize,
		logger:     logger,
	}
}

// Generate embeds every corpus record with document intent and persists
// each batch as soon as it succeeds. A provider error aborts the run;
// batches stored before the failure are kept, so an interrupted run never
// loses already-fetched vectors. The returned stats cover what was
// actually embedded, error or not.
func (u *GenerateUseCase) Generate(ctx context.Context, progress ProgressFunc) (domain.GenerateStats, error) {
	var stats domain.GenerateStats

	records, err := u.records.ListRecords()
	if err != nil {
		return stats, fmt.Errorf("failed to list records: %w", err)
	}
	stats.Records = len(records)
	if len(records) == 0 {
		return stats, fmt.Errorf("no corpus records found; run prepare first")
	}

	// This run replaces the store wholesale; stale vectors from a
	// previous corpus must not leak into the next index build.
	if err := u.embeddings.ResetEmbeddings(); err != nil {
		return stats, fmt.Errorf("failed to reset embedding store: %w", err)
	}

	u.logger.Info("starting embedding generation",
		zap.Int("records", len(records)),
		zap.Int("batch_size", u.batchSize),
		zap.String("model", u.embedder.ModelName()))

	for start := 0; start < len(records); start += u.batchSize {
		end := start + u.batchSize
		if end > len(records) {
			end = len(records)
		}
		batch := records[start:end]

		ids := make([]int64, len(batch))
		texts := make([]string, len(batch))
		for i, rec := range batch {
			ids[i] = rec.ID
			texts[i] = rec.Text
		}

		vectors, err := u.embedder.Embed(ctx, texts, port.IntentDocument)
		if err != nil {
			return stats, fmt.Errorf("embedding batch %d failed: %w", stats.Batches+1, err)
		}
		if len(vectors) != len(batch) {
			return stats, fmt.Errorf("embedding batch %d returned %d vectors for %d texts", stats.Batches+1, len(vectors), len(batch))
		}

		if err := u.embeddings.PutEmbeddings(ids, vectors); err != nil {
			return stats, fmt.Errorf("failed to store batch %d: %w", stats.Batches+1, err)
		}

		stats.Batches++
		stats.Embedded += len(batch)
		if progress != nil {
			progress(stats.Embedded, len(records))
		}
	}

	u.logger.Info("embedding generation complete",
		zap.Int("embedded", stats.Embedded),
		zap.Int("batches", stats.Batches))
	return stats, nil
}
