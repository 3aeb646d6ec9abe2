package api

import (
	"net/http"

	"github.com/seenimoa/fxforward/internal/config"
)

// ConfigResponse is the JSON envelope returned by GET /api/v1/config.
type ConfigResponse struct {
	Config  *config.Config        `json:"config"`
	Headers []config.HeaderStatus `json:"headers"`
}

// handleGetConfig returns the running configuration and the effective
// outbound headers.
func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	if s.cfg == nil {
		writeError(w, http.StatusServiceUnavailable, "configuration not loaded")
		return
	}
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data: ConfigResponse{
			Config:  s.cfg,
			Headers: config.CheckHeaders(s.cfg),
		},
	})
}

// handleGetConfigHeaders returns only the outbound header status.
func (s *Server) handleGetConfigHeaders(w http.ResponseWriter, r *http.Request) {
	if s.cfg == nil {
		writeError(w, http.StatusServiceUnavailable, "configuration not loaded")
		return
	}
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    config.CheckHeaders(s.cfg),
	})
}
