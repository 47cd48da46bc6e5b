// Package api exposes the marketplace over HTTP. Handlers stay thin:
// decode, call the orchestrator, encode. All policy lives below.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	errs "exchange-market/pkg/errors"
	"exchange-market/pkg/logging"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		json.NewEncoder(w).Encode(v)
	}
}

type errorBody struct {
	Error string `json:"error"`
}

// writeError maps the error taxonomy onto HTTP statuses. Invalid state is a
// client error: the request was well-formed but the resource cannot take
// that transition.
func writeError(w http.ResponseWriter, log *logging.ComponentLogger, err error) {
	switch {
	case errs.IsNotFound(err):
		writeJSON(w, http.StatusNotFound, errorBody{Error: err.Error()})
	case errs.IsForbidden(err):
		writeJSON(w, http.StatusForbidden, errorBody{Error: err.Error()})
	case errs.IsState(err), errs.IsValidation(err):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
	default:
		if log != nil {
			log.Error("request failed", err)
		}
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal error"})
	}
}

// RequestID stamps each request with an id for log correlation, honoring
// one supplied by an upstream proxy.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r)
	})
}
