package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/gangstat197/ise-music-app/internal/store"
)

// errorEnvelope is the wire shape of every failed response.
type errorEnvelope struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// respondJSON writes v as a JSON response with the given status code.
func (s *Server) respondJSON(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.WithError(err).Error("Failed to encode JSON response")
	}
}

// respondError writes the error envelope and logs the failure. Server errors
// log at error level, expected client outcomes at warn.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, statusCode int, kind, message string, err error) {
	logEntry := s.logger.WithFields(logrus.Fields{
		"method":      r.Method,
		"path":        r.URL.Path,
		"status_code": statusCode,
	})
	if err != nil {
		logEntry = logEntry.WithError(err)
	}
	if statusCode >= 500 {
		logEntry.Error("Server error")
	} else {
		logEntry.Warn("Client error")
	}

	s.respondJSON(w, statusCode, errorEnvelope{Error: kind, Message: message})
}

// respondStoreError maps store sentinel errors onto the HTTP taxonomy:
// NotFound to 404, Conflict to 400, anything else to a generic 500 with no
// internal detail leaked.
func (s *Server) respondStoreError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		s.respondError(w, r, http.StatusNotFound, "Not found", err.Error(), nil)
	case errors.Is(err, store.ErrConflict):
		s.respondError(w, r, http.StatusBadRequest, "Conflict", err.Error(), nil)
	default:
		s.respondError(w, r, http.StatusInternalServerError, "Internal server error", "Something went wrong", err)
	}
}
