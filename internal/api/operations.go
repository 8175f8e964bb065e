package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/adiwp/lotno/internal/types"
)

// actor resolves the acting identity for a mutation. The original system
// authenticated operators; here the caller supplies the name in a header.
func actor(r *http.Request) string {
	if a := r.Header.Get("X-Actor"); a != "" {
		return a
	}
	return "anonymous"
}

func decodeJSON(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: malformed request body: %v", types.ErrInvalidInput, err)
	}
	return nil
}

// handleAllocate registers a production batch, creating the document for the
// category and issue date if it does not exist yet.
func (s *Server) handleAllocate(w http.ResponseWriter, r *http.Request) {
	var in types.AllocateInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, err)
		return
	}

	res, err := s.engine.Allocate(r.Context(), in, actor(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

// handleReconcile matches a scan record against the current week's pending
// batches and claims the first exact match.
func (s *Server) handleReconcile(w http.ResponseWriter, r *http.Request) {
	var in types.ReconcileInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, err)
		return
	}

	res, err := s.engine.Reconcile(r.Context(), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
