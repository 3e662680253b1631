package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/raaihank/fairhire/internal/catalog"
	"github.com/raaihank/fairhire/internal/document"
	"github.com/raaihank/fairhire/internal/embeddings"
	"github.com/raaihank/fairhire/internal/storage"
	"go.uber.org/zap"
)

// errBadRequest marks malformed requests caught by the handlers themselves
var errBadRequest = errors.New("bad request")

// statusFor maps pipeline errors onto HTTP status codes
func statusFor(err error) int {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, document.ErrInvalidDocument),
		errors.Is(err, document.ErrUnsupportedFormat),
		errors.Is(err, document.ErrNoPages):
		return http.StatusUnprocessableEntity
	case errors.Is(err, errBadRequest),
		errors.Is(err, embeddings.ErrInvalidInput),
		errors.Is(err, storage.ErrInvalidName):
		return http.StatusBadRequest
	case errors.Is(err, catalog.ErrNotFound),
		errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

type errorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message, RequestID: RequestID(r.Context())})
}

// fail logs err and writes it with its mapped status. Internal errors are
// not echoed to the client.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	message := err.Error()
	log := s.logger.WithRequestID(RequestID(r.Context()))
	if status == http.StatusInternalServerError {
		log.Error("Request failed", zap.String("path", r.URL.Path), zap.Error(err))
		message = http.StatusText(status)
	} else {
		log.Info("Request rejected", zap.String("path", r.URL.Path), zap.Int("status_code", status), zap.Error(err))
	}
	writeError(w, r, status, message)
}
