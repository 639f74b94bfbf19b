package api

import (
	"encoding/json"
	"net/http"
)

func (s *Server) handleGatewayStats(w http.ResponseWriter, r *http.Request) {
	if s.stats == nil {
		jsonError(w, "gateway stats unavailable", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"space": s.cfg.SpaceKey,
		"stats": s.stats.Snapshot(),
	})
}
