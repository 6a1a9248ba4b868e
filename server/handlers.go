package server

import (
	"encoding/json"
	"net/http"

	"github.com/jrsteele09/nrf-quote/internal/errors"
	"github.com/rs/zerolog/log"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Err(err).Msg("failed to write JSON response")
	}
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "success"})
}

// NotFoundHandler renders the problem page for paths no route matched.
func (s *Server) NotFoundHandler(w http.ResponseWriter, r *http.Request) {
	s.renderer.RenderError(w, r, errors.Wrapf(errors.ErrNotFound, "[NotFoundHandler] %s", r.URL.Path))
}
