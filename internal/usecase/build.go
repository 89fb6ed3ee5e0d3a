package usecase

import (
	"fmt"
	"math"

	"go.uber.org/zap"

	"cdesearch/internal/domain"
	"cdesearch/internal/index"
	"cdesearch/internal/port"
)

// BuildUseCase turns the embedding store into a persisted vector index.
// Rows follow the store's iteration order, and the ordered id list is
// written beside the index as one unit: the row number is the only way to
// recover a record id after a search.
type BuildUseCase struct {
	embeddings port.EmbeddingStore
	indexPath  string
	idsPath    string
	logger     *zap.Logger
}

func NewBuildUseCase(embeddings port.EmbeddingStore, indexPath, idsPath string, logger *zap.Logger) *BuildUseCase {
	return &BuildUseCase{
		embeddings: embeddings,
		indexPath:  indexPath,
		idsPath:    idsPath,
		logger:     logger,
	}
}

// Build normalizes every stored vector to unit L2 norm, adds it to a
// flat inner-product index and persists index plus ordered ids
// atomically. Vectors with zero (or non-finite) norm have no defined
// direction; they are skipped with a warning and their ids never enter
// the id list, so row/id alignment holds by construction.
func (u *BuildUseCase) Build() (domain.BuildStats, error) {
	var stats domain.BuildStats

	count, err := u.embeddings.CountEmbeddings()
	if err != nil {
		return stats, fmt.Errorf("failed to count embeddings: %w", err)
	}
	if count == 0 {
		return stats, ErrEmptyStore
	}

	var (
		idx *index.Flat
		ids []int64
	)
	err = u.embeddings.ForEachEmbedding(func(id int64, vector []float32) error {
		if idx == nil {
			stats.Dim = len(vector)
			idx = index.NewFlat(len(vector))
		}
		if len(vector) != stats.Dim {
			return fmt.Errorf("embedding for id %d has dimension %d, expected %d", id, len(vector), stats.Dim)
		}

		if norm := index.Normalize(vector); norm == 0 || math.IsNaN(norm) || math.IsInf(norm, 0) {
			u.logger.Warn("skipping degenerate embedding",
				zap.Int64("id", id),
				zap.Float64("norm", norm))
			stats.Skipped++
			return nil
		}

		if err := idx.Add(vector); err != nil {
			return err
		}
		ids = append(ids, id)
		return nil
	})
	if err != nil {
		return stats, err
	}

	if idx == nil || idx.Len() == 0 {
		return stats, fmt.Errorf("%w: all %d embeddings were degenerate", ErrEmptyStore, count)
	}
	stats.Rows = idx.Len()

	if err := index.Save(idx, ids, u.indexPath, u.idsPath); err != nil {
		return stats, fmt.Errorf("failed to persist index: %w", err)
	}

	u.logger.Info("vector index built",
		zap.Int("rows", stats.Rows),
		zap.Int("dim", stats.Dim),
		zap.Int("skipped", stats.Skipped))
	return stats, nil
}
