package usecase

import "errors"

// Sentinel errors returned by the embed/index/search pipeline. Callers
// match them with errors.Is to decide what to surface to the user:
// an empty result list, "search unavailable" and "embedding failed" all
// require different corrective action.
var (
	// ErrEmptyStore means the embedding store has no vectors to index.
	ErrEmptyStore = errors.New("embedding store is empty")

	// ErrInvalidQuery means the query text was empty or blank; no
	// provider call was made.
	ErrInvalidQuery = errors.New("query text is empty")

	// ErrProviderUnavailable means no usable embedding client exists.
	ErrProviderUnavailable = errors.New("embedding provider is not available")

	// ErrEmbeddingFailed wraps a provider failure during query embedding.
	ErrEmbeddingFailed = errors.New("embedding request failed")

	// ErrInvalidK means a non-positive result count was requested.
	ErrInvalidK = errors.New("k must be a positive integer")

	// ErrIndexUnavailable means the vector index has not been loaded;
	// every search fails closed with it rather than crashing.
	ErrIndexUnavailable = errors.New("vector index is not loaded")
)
