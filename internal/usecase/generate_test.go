package usecase

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"cdesearch/internal/adapter/store"
	"cdesearch/internal/domain"
	"cdesearch/internal/port"
)

// stubEmbedder returns canned vectors and can be told to fail on a
// specific call number.
type stubEmbedder struct {
	dim         int
	calls       int
	failOnCall  int
	intents     []port.Intent
	batchSizes  []int
	vectorsFor  func(text string) []float32
}

func (s *stubEmbedder) Embed(ctx context.Context, texts []string, intent port.Intent) ([][]float32, error) {
	s.calls++
	s.intents = append(s.intents, intent)
	s.batchSizes = append(s.batchSizes, len(texts))
	if s.failOnCall > 0 && s.calls == s.failOnCall {
		return nil, fmt.Errorf("provider quota exceeded")
	}
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		if s.vectorsFor != nil {
			vectors[i] = s.vectorsFor(text)
		} else {
			vectors[i] = make([]float32, s.dim)
			vectors[i][0] = 1
		}
	}
	return vectors, nil
}

func (s *stubEmbedder) Dimension() int    { return s.dim }
func (s *stubEmbedder) ModelName() string { return "stub" }

func newTestStore(t *testing.T) *store.BoltStore {
	t.Helper()
	st, err := store.NewBoltStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func putRecords(t *testing.T, st *store.BoltStore, n int) {
	t.Helper()
	records := make([]domain.Record, n)
	for i := range records {
		records[i] = domain.Record{ID: int64(i), Text: fmt.Sprintf("record %d", i)}
	}
	if err := st.PutRecords(records); err != nil {
		t.Fatal(err)
	}
}

func TestGenerate_Batching(t *testing.T) {
	st := newTestStore(t)
	putRecords(t, st, 10)

	emb := &stubEmbedder{dim: 4}
	gen := NewGenerateUseCase(st, st, emb, 4, zap.NewNop())

	var progressCalls int
	stats, err := gen.Generate(context.Background(), func(embedded, total int) {
		progressCalls++
		if total != 10 {
			t.Errorf("expected total 10, got %d", total)
		}
	})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	if stats.Batches != 3 {
		t.Errorf("expected 3 batches, got %d", stats.Batches)
	}
	if stats.Embedded != 10 {
		t.Errorf("expected 10 embedded, got %d", stats.Embedded)
	}
	if progressCalls != 3 {
		t.Errorf("expected 3 progress calls, got %d", progressCalls)
	}

	// Batches are contiguous and at most batch_size.
	expected := []int{4, 4, 2}
	for i, size := range expected {
		if emb.batchSizes[i] != size {
			t.Errorf("batch %d: expected size %d, got %d", i, size, emb.batchSizes[i])
		}
	}

	// Every call carries document intent.
	for i, intent := range emb.intents {
		if intent != port.IntentDocument {
			t.Errorf("call %d: expected document intent, got %s", i, intent)
		}
	}

	n, err := st.CountEmbeddings()
	if err != nil {
		t.Fatal(err)
	}
	if n != 10 {
		t.Errorf("expected 10 stored embeddings, got %d", n)
	}
}

func TestGenerate_FailureKeepsEarlierBatches(t *testing.T) {
	st := newTestStore(t)
	putRecords(t, st, 10)

	emb := &stubEmbedder{dim: 4, failOnCall: 3}
	gen := NewGenerateUseCase(st, st, emb, 4, zap.NewNop())

	stats, err := gen.Generate(context.Background(), nil)
	if err == nil {
		t.Fatal("expected error from failing provider")
	}

	if stats.Batches != 2 {
		t.Errorf("expected 2 completed batches, got %d", stats.Batches)
	}
	if stats.Embedded != 8 {
		t.Errorf("expected 8 embedded before failure, got %d", stats.Embedded)
	}

	// Vectors fetched before the failing batch stay persisted.
	n, err := st.CountEmbeddings()
	if err != nil {
		t.Fatal(err)
	}
	if n != 8 {
		t.Errorf("expected 8 stored embeddings, got %d", n)
	}
}

func TestGenerate_ResetsStaleEmbeddings(t *testing.T) {
	st := newTestStore(t)
	putRecords(t, st, 2)

	// A vector from a previous corpus that no longer has a record.
	if err := st.PutEmbeddings([]int64{999}, [][]float32{{1, 2, 3, 4}}); err != nil {
		t.Fatal(err)
	}

	emb := &stubEmbedder{dim: 4}
	gen := NewGenerateUseCase(st, st, emb, 4, zap.NewNop())
	if _, err := gen.Generate(context.Background(), nil); err != nil {
		t.Fatal(err)
	}

	err := st.ForEachEmbedding(func(id int64, vector []float32) error {
		if id == 999 {
			return errors.New("stale embedding survived the run")
		}
		return nil
	})
	if err != nil {
		t.Error(err)
	}
}

func TestGenerate_EmptyCorpus(t *testing.T) {
	st := newTestStore(t)
	gen := NewGenerateUseCase(st, st, &stubEmbedder{dim: 4}, 4, zap.NewNop())
	if _, err := gen.Generate(context.Background(), nil); err == nil {
		t.Error("expected error for empty corpus")
	}
}
