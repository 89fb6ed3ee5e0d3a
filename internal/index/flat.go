// Package index implements an exact inner-product index over
// unit-normalized float32 vectors. For unit vectors the inner product
// equals cosine similarity, so a brute-force scan returns the true top-k
// by cosine distance.
package index

import (
	"fmt"
	"math"
	"sort"
)

// Flat is a brute-force similarity index. Rows keep the exact order in
// which they were added; the caller maps row numbers back to record ids.
// Flat is safe for concurrent searches once no more rows are being added.
type Flat struct {
	dim  int
	rows [][]float32
}

// NewFlat creates an empty index for vectors of the given dimension.
func NewFlat(dim int) *Flat {
	return &Flat{dim: dim}
}

// Add appends a vector as the next row. The vector is expected to be
// unit-normalized already; Add does not rescale it.
func (f *Flat) Add(v []float32) error {
	if len(v) != f.dim {
		return fmt.Errorf("vector dimension mismatch: expected %d, got %d", f.dim, len(v))
	}
	f.rows = append(f.rows, v)
	return nil
}

// Len returns the number of rows in the index.
func (f *Flat) Len() int {
	return len(f.rows)
}

// Dim returns the vector dimension.
func (f *Flat) Dim() int {
	return f.dim
}

// Search scans every row and returns the k rows with the highest inner
// product against the query, ordered by descending score. Ties keep scan
// order. k larger than the row count is clamped.
func (f *Flat) Search(query []float32, k int) ([]int, []float32, error) {
	if len(query) != f.dim {
		return nil, nil, fmt.Errorf("query dimension mismatch: expected %d, got %d", f.dim, len(query))
	}
	if k <= 0 {
		return nil, nil, fmt.Errorf("k must be positive, got %d", k)
	}
	if k > len(f.rows) {
		k = len(f.rows)
	}
	if k == 0 {
		return nil, nil, nil
	}

	scores := make([]float32, len(f.rows))
	order := make([]int, len(f.rows))
	for i, row := range f.rows {
		scores[i] = Dot(query, row)
		order[i] = i
	}

	sort.SliceStable(order, func(a, b int) bool {
		return scores[order[a]] > scores[order[b]]
	})

	topRows := make([]int, k)
	topScores := make([]float32, k)
	for i := 0; i < k; i++ {
		topRows[i] = order[i]
		topScores[i] = scores[order[i]]
	}
	return topRows, topScores, nil
}

// Dot returns the inner product of two equal-length vectors.
func Dot(a, b []float32) float32 {
	var sum float32
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

// Norm returns the L2 norm of a vector.
func Norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

// Normalize scales v in place to unit L2 norm and returns the original
// norm. A zero, NaN or infinite norm leaves v untouched; callers must
// check the returned norm before using the vector.
func Normalize(v []float32) float64 {
	norm := Norm(v)
	if norm == 0 || math.IsNaN(norm) || math.IsInf(norm, 0) {
		return norm
	}
	inv := float32(1 / norm)
	for i := range v {
		v[i] *= inv
	}
	return norm
}
