package api

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/adiwp/lotno/internal/types"
)

func (s *Server) handleCreateScanRecord(w http.ResponseWriter, r *http.Request) {
	var rec types.ScanRecord
	if err := decodeJSON(r, &rec); err != nil {
		writeError(w, err)
		return
	}
	if rec.Actor == "" {
		rec.Actor = actor(r)
	}

	if err := s.store.CreateScanRecord(r.Context(), &rec); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

func (s *Server) handleGetScanRecord(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	rec, err := s.store.GetScanRecord(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleListScanRecords(w http.ResponseWriter, r *http.Request) {
	limit, err := optionalIDQuery(r, "limit")
	if err != nil {
		writeError(w, err)
		return
	}

	recs, err := s.store.ListScanRecords(r.Context(), int(limit))
	if err != nil {
		writeError(w, err)
		return
	}
	if recs == nil {
		recs = []*types.ScanRecord{}
	}
	writeJSON(w, http.StatusOK, recs)
}

// handleUploadScan accepts a multipart form with the label photo and the
// recognized text pair, stores the photo, and creates the scan record. The
// text recognition itself happens upstream; this endpoint only records its
// output next to the image.
//
// Form fields: photo (file), top_text, bottom_text, optional actor.
func (s *Server) handleUploadScan(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)
	if err := r.ParseMultipartForm(s.maxUpload); err != nil {
		writeError(w, fmt.Errorf("%w: multipart form too large or malformed", types.ErrInvalidInput))
		return
	}

	file, header, err := r.FormFile("photo")
	if err != nil {
		writeError(w, fmt.Errorf("%w: photo file is required", types.ErrInvalidInput))
		return
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	switch ext {
	case ".jpg", ".jpeg", ".png":
	default:
		writeError(w, fmt.Errorf("%w: unsupported photo type %q (want jpg, jpeg or png)", types.ErrInvalidInput, ext))
		return
	}

	rec := types.ScanRecord{
		Actor:      r.FormValue("actor"),
		TopText:    r.FormValue("top_text"),
		BottomText: r.FormValue("bottom_text"),
	}
	if rec.Actor == "" {
		rec.Actor = actor(r)
	}

	if err := os.MkdirAll(s.uploadsDir, 0o755); err != nil {
		writeError(w, fmt.Errorf("failed to create uploads directory: %w", err))
		return
	}

	name := uuid.NewString() + ext
	path := filepath.Join(s.uploadsDir, name)
	dst, err := os.Create(path)
	if err != nil {
		writeError(w, fmt.Errorf("failed to store photo: %w", err))
		return
	}
	if _, err := io.Copy(dst, file); err != nil {
		dst.Close()
		os.Remove(path)
		writeError(w, fmt.Errorf("failed to store photo: %w", err))
		return
	}
	if err := dst.Close(); err != nil {
		os.Remove(path)
		writeError(w, fmt.Errorf("failed to store photo: %w", err))
		return
	}

	rec.PhotoPath = path
	if err := s.store.CreateScanRecord(r.Context(), &rec); err != nil {
		os.Remove(path)
		writeError(w, err)
		return
	}

	s.log.Info("scan photo stored",
		zap.Int64("scan_record_id", rec.ID),
		zap.String("photo_path", path))

	writeJSON(w, http.StatusCreated, rec)
}
