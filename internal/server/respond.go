package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"marginDiary/internal/domain"
	"marginDiary/internal/ports"
)

type errorResponse struct {
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

func (s *Server) respond(w http.ResponseWriter, r *http.Request, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error(r.Context(), err, "Failed to encode response")
	}
}

// respondError maps the service error taxonomy to HTTP statuses:
// validation is a 400 carrying the field name, not-found is 404,
// everything else is a 500 with the detail kept in the log.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		s.respond(w, r, http.StatusBadRequest, errorResponse{Message: verr.Error(), Field: verr.Field})
	case errors.Is(err, ports.ErrNotFound):
		s.respond(w, r, http.StatusNotFound, errorResponse{Message: err.Error()})
	case errors.Is(err, ports.ErrPortfolioInactive):
		s.respond(w, r, http.StatusConflict, errorResponse{Message: err.Error()})
	default:
		s.logger.Error(r.Context(), err, "Request failed", map[string]interface{}{
			"path":   r.URL.Path,
			"method": r.Method,
		})
		s.respond(w, r, http.StatusInternalServerError, errorResponse{Message: "internal error"})
	}
}

func decodeJSON(r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		return domain.Invalid("body", "malformed JSON: "+err.Error())
	}
	return nil
}
