package api

import (
	"encoding/json"
	"net/http"

	"github.com/gyaneshwarpardhi/pipesched/internal/ctxlog"
)

// writeJSON encodes v as JSON and writes it with the given status code.
// Encoding failures happen after the header is sent, so they are only logged
// with the request logger.
func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		ctxlog.FromContext(r.Context()).Warn("encode response", "status", status, "err", err)
	}
}

// errorResponse is the error envelope of every non-2xx reply.
type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeJSON(w, r, status, errorResponse{Error: msg})
}
