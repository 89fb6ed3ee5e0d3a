package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"cdesearch/internal/usecase"
)

type searchRequest struct {
	Query string `json:"query"`
	K     int    `json:"k,omitempty"`
}

type searchResult struct {
	Rank  int     `json:"rank"`
	ID    int64   `json:"id"`
	Score float32 `json:"score"`
	Text  string  `json:"text,omitempty"`
}

type searchResponse struct {
	Query   string         `json:"query"`
	Results []searchResult `json:"results"`
}

// handleSearch embeds the query and runs a top-k similarity search. The
// three failure classes map to distinct statuses so the UI can tell
// "embedding failed" from "search unavailable" from a valid empty answer.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	k := req.K
	if k == 0 {
		k = s.cfg.Search.TopK
	}
	s.logger.Debug("search request", zap.String("query", req.Query), zap.Int("k", k))

	vector, err := s.queryEmbed.EmbedQuery(r.Context(), req.Query)
	if err != nil {
		switch {
		case errors.Is(err, usecase.ErrInvalidQuery):
			s.respondError(w, http.StatusBadRequest, "query must not be empty")
		case errors.Is(err, usecase.ErrProviderUnavailable):
			s.logger.Error("embedding provider unavailable", zap.Error(err))
			s.respondError(w, http.StatusServiceUnavailable, "embedding provider unavailable")
		default:
			s.logger.Error("query embedding failed", zap.Error(err))
			s.respondError(w, http.StatusBadGateway, "failed to embed query")
		}
		return
	}

	results, err := s.searcher.Search(vector, k)
	if err != nil {
		switch {
		case errors.Is(err, usecase.ErrInvalidK):
			s.respondError(w, http.StatusBadRequest, "k must be a positive integer")
		case errors.Is(err, usecase.ErrIndexUnavailable):
			s.logger.Error("search with no loaded index", zap.Error(err))
			s.respondError(w, http.StatusServiceUnavailable, "search index unavailable")
		default:
			s.logger.Error("search failed", zap.Error(err))
			s.respondError(w, http.StatusInternalServerError, "search failed")
		}
		return
	}

	resp := searchResponse{Query: req.Query, Results: []searchResult{}}
	for _, res := range results {
		if s.cfg.Search.MinScore > 0 && float64(res.Score) < s.cfg.Search.MinScore {
			continue
		}
		out := searchResult{Rank: len(resp.Results) + 1, ID: res.ID, Score: res.Score}
		if rec, err := s.records.GetRecord(res.ID); err == nil {
			out.Text = rec.Text
		}
		resp.Results = append(resp.Results, out)
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetRecord(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid record id")
		return
	}
	rec, err := s.records.GetRecord(id)
	if err != nil {
		s.respondError(w, http.StatusNotFound, "record not found")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"id":   rec.ID,
		"text": rec.Text,
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	recordCount, err := s.records.CountRecords()
	if err != nil {
		s.logger.Error("status: count records failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"records":      recordCount,
		"index_loaded": s.searcher.Loaded(),
		"index_rows":   s.searcher.Len(),
		"index_dim":    s.searcher.Dim(),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", zap.Error(err))
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
