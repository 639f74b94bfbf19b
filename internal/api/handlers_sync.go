package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/dgallion1/wikisync/internal/pipeline"
	"github.com/go-chi/chi/v5"
)

type syncRequest struct {
	DryRun *bool `json:"dry_run"`
}

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req syncRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	dryRun := s.cfg.DryRun
	if req.DryRun != nil {
		dryRun = *req.DryRun
	}

	run := pipeline.NewRun(dryRun)
	if err := s.runs.Submit(run); err != nil {
		jsonError(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	s.log.Info("sync run queued", "run_id", run.ID, "dry_run", dryRun, "queue_depth", s.runs.QueueDepth())

	snap := run.Snapshot()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]any{
		"run_id":   snap.ID,
		"status":   snap.Status,
		"dry_run":  snap.DryRun,
		"poll_url": fmt.Sprintf("/api/sync/%s/status", snap.ID),
	})
}

func (s *Server) handleSyncStatus(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runID")
	run := s.runs.GetRun(runID)
	if run == nil {
		jsonError(w, "run not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(run.Snapshot())
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
