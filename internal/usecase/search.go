package usecase

import (
	"fmt"

	"go.uber.org/zap"

	"cdesearch/internal/domain"
	"cdesearch/internal/index"
)

// Searcher serves top-k cosine-similarity queries against a loaded
// vector index. Load must succeed before any search; until then every
// call fails closed with ErrIndexUnavailable. After Load the index is
// immutable, so concurrent searches need no locking.
type Searcher struct {
	indexPath string
	idsPath   string
	logger    *zap.Logger

	idx *index.Flat
	ids []int64
}

func NewSearcher(indexPath, idsPath string, logger *zap.Logger) *Searcher {
	return &Searcher{
		indexPath: indexPath,
		idsPath:   idsPath,
		logger:    logger,
	}
}

// Load reads the persisted index and its ordered id file. A row count
// that disagrees with the id count is logged but tolerated; rows without
// an id are dropped at search time instead.
func (s *Searcher) Load() error {
	idx, ids, err := index.Load(s.indexPath, s.idsPath)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrIndexUnavailable, err)
	}

	if idx.Len() != len(ids) {
		s.logger.Warn("index row count does not match id file; results may be incomplete",
			zap.Int("rows", idx.Len()),
			zap.Int("ids", len(ids)))
	}

	s.idx = idx
	s.ids = ids
	s.logger.Info("vector index loaded",
		zap.Int("rows", idx.Len()),
		zap.Int("dim", idx.Dim()))
	return nil
}

// Loaded reports whether a usable index is in memory.
func (s *Searcher) Loaded() bool {
	return s.idx != nil
}

// Len returns the number of indexed rows, 0 before Load.
func (s *Searcher) Len() int {
	if s.idx == nil {
		return 0
	}
	return s.idx.Len()
}

// Dim returns the index dimensionality, 0 before Load.
func (s *Searcher) Dim() int {
	if s.idx == nil {
		return 0
	}
	return s.idx.Dim()
}

// Search returns at most k results ordered by descending similarity. The
// query vector must be unit-normalized with the same dimensionality as
// the index; k greater than the row count is clamped silently.
func (s *Searcher) Search(query []float32, k int) ([]domain.SearchResult, error) {
	if s.idx == nil {
		return nil, ErrIndexUnavailable
	}
	if k <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidK, k)
	}
	if s.idx.Len() == 0 {
		return nil, nil
	}
	if k > s.idx.Len() {
		k = s.idx.Len()
	}

	rows, scores, err := s.idx.Search(query, k)
	if err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}

	results := make([]domain.SearchResult, 0, len(rows))
	for i, row := range rows {
		// An inconsistent index/id pairing must never produce a
		// wrong-but-plausible id.
		if row < 0 || row >= len(s.ids) {
			s.logger.Warn("search returned row with no id mapping",
				zap.Int("row", row))
			continue
		}
		results = append(results, domain.SearchResult{
			ID:    s.ids[row],
			Score: scores[i],
		})
	}
	return results, nil
}
