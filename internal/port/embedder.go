package port

import "context"

// Intent tells the embedding model which side of a search pair a text
// plays. Most models produce different representations for documents and
// queries, so using the wrong intent silently degrades relevance.
type Intent string

const (
	IntentDocument Intent = "document"
	IntentQuery    Intent = "query"
)

// Embedder generates vector embeddings for text.
type Embedder interface {
	// Embed generates embeddings for the given texts, one vector per
	// input. Texts longer than the model context are truncated by the
	// provider rather than rejected.
	Embed(ctx context.Context, texts []string, intent Intent) ([][]float32, error)

	// Dimension returns the embedding vector dimension.
	Dimension() int

	// ModelName returns the name of the embedding model.
	ModelName() string
}
