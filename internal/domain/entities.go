package domain

// Record is one corpus entry: a cleaned Common Data Element description
// keyed by a stable identifier.
type Record struct {
	ID   int64
	Text string
}

// SearchResult pairs a record identifier with its cosine similarity to a
// query vector. Lists of results are ordered by descending score.
type SearchResult struct {
	ID    int64   `json:"id"`
	Score float32 `json:"score"`
}

// GenerateStats summarizes an embedding generation run.
type GenerateStats struct {
	Records  int
	Batches  int
	Embedded int
}

// BuildStats summarizes an index build.
type BuildStats struct {
	Rows    int
	Skipped int
	Dim     int
}
