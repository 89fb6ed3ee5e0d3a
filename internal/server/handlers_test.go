package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"cdesearch/config"
	"cdesearch/internal/adapter/store"
	"cdesearch/internal/domain"
	"cdesearch/internal/index"
	"cdesearch/internal/port"
	"cdesearch/internal/usecase"
)

type fixedEmbedder struct {
	vectors map[string][]float32
}

func (f *fixedEmbedder) Embed(ctx context.Context, texts []string, intent port.Intent) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		v, ok := f.vectors[text]
		if !ok {
			return nil, fmt.Errorf("no vector for %q", text)
		}
		out[i] = append([]float32(nil), v...)
	}
	return out, nil
}

func (f *fixedEmbedder) Dimension() int    { return 2 }
func (f *fixedEmbedder) ModelName() string { return "fixed" }

func newTestServer(t *testing.T, loadIndex bool, authToken string) *Server {
	t.Helper()
	tmpDir := t.TempDir()

	st, err := store.NewBoltStore(filepath.Join(tmpDir, "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { st.Close() })

	records := []domain.Record{
		{ID: 1, Text: "blood pressure measurement"},
		{ID: 2, Text: "pain assessment scale"},
	}
	if err := st.PutRecords(records); err != nil {
		t.Fatal(err)
	}

	indexPath := filepath.Join(tmpDir, "t.index")
	idsPath := filepath.Join(tmpDir, "t_ids.json")
	if loadIndex {
		idx := index.NewFlat(2)
		idx.Add([]float32{1, 0})
		idx.Add([]float32{0, 1})
		if err := index.Save(idx, []int64{1, 2}, indexPath, idsPath); err != nil {
			t.Fatal(err)
		}
	}

	searcher := usecase.NewSearcher(indexPath, idsPath, zap.NewNop())
	if loadIndex {
		if err := searcher.Load(); err != nil {
			t.Fatal(err)
		}
	}

	emb := &fixedEmbedder{vectors: map[string][]float32{
		"blood pressure": {0.9, 0.1},
	}}
	queryEmbed := usecase.NewQueryEmbedUseCase(emb, zap.NewNop())

	return NewServer(searcher, queryEmbed, st, config.DefaultConfig(), authToken, zap.NewNop())
}

func postSearch(t *testing.T, handler http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/search", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestHandleSearch(t *testing.T) {
	srv := newTestServer(t, true, "")
	rec := postSearch(t, srv.Router(), `{"query":"blood pressure","k":2}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp searchResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(resp.Results))
	}
	if resp.Results[0].ID != 1 {
		t.Errorf("expected id 1 first, got %d", resp.Results[0].ID)
	}
	if resp.Results[0].Text != "blood pressure measurement" {
		t.Errorf("expected record text joined in, got %q", resp.Results[0].Text)
	}
	if resp.Results[0].Rank != 1 || resp.Results[1].Rank != 2 {
		t.Errorf("ranks not contiguous: %+v", resp.Results)
	}
}

func TestHandleSearch_EmptyQuery(t *testing.T) {
	srv := newTestServer(t, true, "")
	rec := postSearch(t, srv.Router(), `{"query":"   "}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestHandleSearch_EmbeddingFailure(t *testing.T) {
	srv := newTestServer(t, true, "")
	// The fixed embedder has no vector for this text, so embedding fails.
	rec := postSearch(t, srv.Router(), `{"query":"unknown phrase"}`)
	if rec.Code != http.StatusBadGateway {
		t.Errorf("expected 502, got %d", rec.Code)
	}
}

func TestHandleSearch_IndexUnavailable(t *testing.T) {
	srv := newTestServer(t, false, "")
	rec := postSearch(t, srv.Router(), `{"query":"blood pressure"}`)
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", rec.Code)
	}
}

func TestHandleGetRecord(t *testing.T) {
	srv := newTestServer(t, true, "")
	handler := srv.Router()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/records/2", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/records/999", nil)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestAuth(t *testing.T) {
	srv := newTestServer(t, true, "secret")
	handler := srv.Router()

	rec := postSearch(t, handler, `{"query":"blood pressure"}`)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without token, got %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/search", bytes.NewBufferString(`{"query":"blood pressure"}`))
	req.Header.Set("Authorization", "Bearer secret")
	authed := httptest.NewRecorder()
	handler.ServeHTTP(authed, req)
	if authed.Code != http.StatusOK {
		t.Errorf("expected 200 with token, got %d", authed.Code)
	}

	// Health stays open for probes.
	health := httptest.NewRecorder()
	handler.ServeHTTP(health, httptest.NewRequest(http.MethodGet, "/health", nil))
	if health.Code != http.StatusOK {
		t.Errorf("expected open health endpoint, got %d", health.Code)
	}
}

func TestHandleStatus(t *testing.T) {
	srv := newTestServer(t, true, "")
	req := httptest.NewRequest(http.MethodGet, "/api/v1/status", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var status map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil {
		t.Fatal(err)
	}
	if status["records"].(float64) != 2 {
		t.Errorf("expected 2 records, got %v", status["records"])
	}
	if status["index_loaded"] != true {
		t.Errorf("expected index_loaded true, got %v", status["index_loaded"])
	}
}
