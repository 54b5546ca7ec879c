package server

import (
	"encoding/json"
	"net/http"
	"runtime"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/me/bsweep/pkg/model"
)

type healthResponse struct {
	Status    string `json:"status"`
	Version   string `json:"version"`
	GoVersion string `json:"go_version"`
	Uptime    string `json:"uptime"`
	Ledger    string `json:"ledger"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ledger := "disabled"
	if s.store != nil {
		ledger = "sqlite"
	}
	respondJSON(w, http.StatusOK, healthResponse{
		Status:    "healthy",
		Version:   "0.1.0",
		GoVersion: runtime.Version(),
		Uptime:    time.Since(s.startTime).Round(time.Second).String(),
		Ledger:    ledger,
	})
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	snap := s.snapshot()
	if snap == nil {
		respondError(w, http.StatusServiceUnavailable, "scheduler has not published yet")
		return
	}
	respondJSON(w, http.StatusOK, snap)
}

type sweepListResponse struct {
	Sweeps []*model.Sweep `json:"sweeps"`
	Total  int            `json:"total"`
}

func (s *Server) handleListSweeps(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		respondError(w, http.StatusNotFound, "ledger disabled")
		return
	}

	opts := model.DefaultListOptions()
	if v := r.URL.Query().Get("limit"); v != "" {
		opts.Limit, _ = strconv.Atoi(v)
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		opts.Offset, _ = strconv.Atoi(v)
	}

	sweeps, total, err := s.store.ListSweeps(r.Context(), opts)
	if err != nil {
		s.logger.Error("list sweeps", "error", err)
		respondError(w, http.StatusInternalServerError, "list sweeps failed")
		return
	}
	if sweeps == nil {
		sweeps = []*model.Sweep{}
	}
	respondJSON(w, http.StatusOK, sweepListResponse{Sweeps: sweeps, Total: total})
}

type sweepDetailResponse struct {
	Sweep  *model.Sweep         `json:"sweep"`
	Chunks []*model.ChunkRecord `json:"chunks"`
}

func (s *Server) handleGetSweep(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		respondError(w, http.StatusNotFound, "ledger disabled")
		return
	}

	id := chi.URLParam(r, "id")
	sw, err := s.store.GetSweep(r.Context(), id)
	if err != nil {
		s.logger.Error("get sweep", "id", id, "error", err)
		respondError(w, http.StatusInternalServerError, "get sweep failed")
		return
	}
	if sw == nil {
		respondError(w, http.StatusNotFound, "sweep not found")
		return
	}

	chunks, err := s.store.ListChunksBySweep(r.Context(), id)
	if err != nil {
		s.logger.Error("list chunks", "id", id, "error", err)
		respondError(w, http.StatusInternalServerError, "list chunks failed")
		return
	}
	if chunks == nil {
		chunks = []*model.ChunkRecord{}
	}
	respondJSON(w, http.StatusOK, sweepDetailResponse{Sweep: sw, Chunks: chunks})
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"error": msg})
}
