package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/adiwp/lotno/internal/engine"
	"github.com/adiwp/lotno/internal/types"
)

// errorResponse is the JSON body of every error reply.
type errorResponse struct {
	Error string `json:"error"`

	// Diagnostic fields for no-match outcomes
	CandidatesChecked *int   `json:"candidates_checked,omitempty"`
	TopText           string `json:"top_text,omitempty"`
	BottomText        string `json:"bottom_text,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErrorStatus(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeError maps engine and storage error kinds to HTTP status codes.
func writeError(w http.ResponseWriter, err error) {
	var noMatch *engine.NoMatchError
	if errors.As(err, &noMatch) {
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{
			Error:             noMatch.Error(),
			CandidatesChecked: &noMatch.Checked,
			TopText:           noMatch.TopText,
			BottomText:        noMatch.BottomText,
		})
		return
	}

	switch {
	case errors.Is(err, types.ErrInvalidInput):
		writeErrorStatus(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, types.ErrNotFound):
		writeErrorStatus(w, http.StatusNotFound, err.Error())
	case errors.Is(err, engine.ErrNoCandidates):
		writeErrorStatus(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, types.ErrConflict):
		writeErrorStatus(w, http.StatusConflict, err.Error())
	case errors.Is(err, types.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		writeErrorStatus(w, http.StatusGatewayTimeout, err.Error())
	case errors.Is(err, types.ErrUnavailable):
		writeErrorStatus(w, http.StatusServiceUnavailable, err.Error())
	default:
		writeErrorStatus(w, http.StatusInternalServerError, err.Error())
	}
}
