package port

import "cdesearch/internal/domain"

// RecordStore persists cleaned corpus records.
type RecordStore interface {
	PutRecords(records []domain.Record) error

	GetRecord(id int64) (domain.Record, error)

	ListRecords() ([]domain.Record, error)

	CountRecords() (int, error)
}

// EmbeddingStore persists raw (unnormalized) embedding vectors keyed by
// record id. Iteration follows the store's key order, which is stable
// across runs; the index builder relies on that stability for its
// row-to-id mapping.
type EmbeddingStore interface {
	PutEmbeddings(ids []int64, vectors [][]float32) error

	// ForEachEmbedding visits every stored vector in key order.
	ForEachEmbedding(fn func(id int64, vector []float32) error) error

	CountEmbeddings() (int, error)

	// ResetEmbeddings drops all stored vectors, for a fresh generation run.
	ResetEmbeddings() error
}
