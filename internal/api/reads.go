package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/adiwp/lotno/internal/types"
)

// optionalIDQuery parses an optional positive-integer query parameter,
// returning zero when absent.
func optionalIDQuery(r *http.Request, name string) (int64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %s must be a positive integer", types.ErrInvalidInput, name)
	}
	return id, nil
}

func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	doc, err := s.store.GetDocument(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	categoryID, err := optionalIDQuery(r, "category_id")
	if err != nil {
		writeError(w, err)
		return
	}

	docs, err := s.store.ListDocuments(r.Context(), categoryID)
	if err != nil {
		writeError(w, err)
		return
	}
	if docs == nil {
		docs = []*types.Document{}
	}
	writeJSON(w, http.StatusOK, docs)
}

func (s *Server) handleListDocumentBatches(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	// 404 for an unknown document rather than an empty list
	if _, err := s.store.GetDocument(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}

	batches, err := s.store.ListBatches(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if batches == nil {
		batches = []*types.Batch{}
	}
	writeJSON(w, http.StatusOK, batches)
}

func (s *Server) handleGetBatch(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	batch, err := s.store.GetBatch(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, batch)
}

func (s *Server) handleListBatches(w http.ResponseWriter, r *http.Request) {
	documentID, err := optionalIDQuery(r, "document_id")
	if err != nil {
		writeError(w, err)
		return
	}

	batches, err := s.store.ListBatches(r.Context(), documentID)
	if err != nil {
		writeError(w, err)
		return
	}
	if batches == nil {
		batches = []*types.Batch{}
	}
	writeJSON(w, http.StatusOK, batches)
}

func (s *Server) handleGetAuditEvents(w http.ResponseWriter, r *http.Request) {
	entityType := chi.URLParam(r, "entityType")
	switch entityType {
	case "category", "document", "batch", "scan_record":
	default:
		writeError(w, fmt.Errorf("%w: unknown entity type %q", types.ErrInvalidInput, entityType))
		return
	}

	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	events, err := s.store.GetAuditEvents(r.Context(), entityType, id, 100)
	if err != nil {
		writeError(w, err)
		return
	}
	if events == nil {
		events = []*types.AuditEvent{}
	}
	writeJSON(w, http.StatusOK, events)
}

func (s *Server) handleGetStatistics(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.GetStatistics(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
