package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/adiwp/lotno/internal/clock"
	"github.com/adiwp/lotno/internal/engine"
	"github.com/adiwp/lotno/internal/storage/sqlite"
	"github.com/adiwp/lotno/internal/types"
)

func newTestServer(t *testing.T) (*Server, *sqlite.SQLiteStorage) {
	t.Helper()

	store, err := sqlite.New(filepath.Join(t.TempDir(), "test.db"), "FR/QA")
	if err != nil {
		t.Fatalf("failed to create storage: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	loc, err := time.LoadLocation("Asia/Jakarta")
	if err != nil {
		t.Fatalf("failed to load location: %v", err)
	}
	clk := clock.NewFixed(time.Date(2024, 9, 25, 12, 0, 0, 0, loc))
	eng := engine.New(store, clk, loc, nil)

	return NewServer(eng, store, nil, WithUploads(t.TempDir(), 1<<20)), store
}

func doJSON(t *testing.T, srv *Server, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode body: %v", err)
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Actor", "tester")
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("failed to decode response %q: %v", rec.Body.String(), err)
	}
}

func createCategory(t *testing.T, srv *Server, name string) types.Category {
	t.Helper()
	rec := doJSON(t, srv, http.MethodPost, "/api/v1/categories/", map[string]string{"name": name})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create category returned %d: %s", rec.Code, rec.Body.String())
	}
	var cat types.Category
	decodeBody(t, rec, &cat)
	return cat
}

func allocate(t *testing.T, srv *Server, categoryID int64, date, top, bottom string) engine.AllocateResult {
	t.Helper()
	rec := doJSON(t, srv, http.MethodPost, "/api/v1/allocate", types.AllocateInput{
		CategoryID: categoryID,
		IssuedDate: date,
		TopText:    top,
		BottomText: bottom,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("allocate returned %d: %s", rec.Code, rec.Body.String())
	}
	var res engine.AllocateResult
	decodeBody(t, rec, &res)
	return res
}

func TestHealthz(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := doJSON(t, srv, http.MethodGet, "/healthz", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestAllocateEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)
	cat := createCategory(t, srv, "cap")

	res := allocate(t, srv, cat.ID, "2024-09-24", "LOT A1", "EXP 2026-01")
	if res.DocumentNumber != "FR/QA/001" {
		t.Errorf("expected FR/QA/001, got %s", res.DocumentNumber)
	}

	// Same date reuses the document
	again := allocate(t, srv, cat.ID, "2024-09-24", "LOT A2", "EXP 2026-02")
	if again.DocumentID != res.DocumentID {
		t.Errorf("expected shared document %d, got %d", res.DocumentID, again.DocumentID)
	}
}

func TestAllocateEndpointErrors(t *testing.T) {
	srv, _ := newTestServer(t)
	cat := createCategory(t, srv, "cap")

	tests := []struct {
		name string
		body interface{}
		want int
	}{
		{"malformed date", types.AllocateInput{CategoryID: cat.ID, IssuedDate: "24-09-2024"}, http.StatusBadRequest},
		{"missing category", types.AllocateInput{IssuedDate: "2024-09-24"}, http.StatusBadRequest},
		{"unknown category", types.AllocateInput{CategoryID: 999, IssuedDate: "2024-09-24"}, http.StatusNotFound},
		{"unknown field", map[string]string{"bogus": "x"}, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(t, srv, http.MethodPost, "/api/v1/allocate", tt.body)
			if rec.Code != tt.want {
				t.Errorf("expected %d, got %d: %s", tt.want, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestReconcileEndpoint(t *testing.T) {
	srv, store := newTestServer(t)
	cat := createCategory(t, srv, "cap")
	batch := allocate(t, srv, cat.ID, "2024-09-24", "LOT A1", "EXP 2026-01")

	scan := &types.ScanRecord{Actor: "operator-1", TopText: "LOT A1", BottomText: "EXP 2026-01"}
	if err := store.CreateScanRecord(context.Background(), scan); err != nil {
		t.Fatalf("failed to create scan: %v", err)
	}

	rec := doJSON(t, srv, http.MethodPost, "/api/v1/reconcile", types.ReconcileInput{
		ScanRecordID: scan.ID,
		CategoryName: "cap",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var res engine.ReconcileResult
	decodeBody(t, rec, &res)
	if res.BatchID != batch.BatchID {
		t.Errorf("expected batch %d, got %d", batch.BatchID, res.BatchID)
	}

	// Second attempt conflicts
	rec = doJSON(t, srv, http.MethodPost, "/api/v1/reconcile", types.ReconcileInput{
		ScanRecordID: scan.ID,
		CategoryName: "cap",
	})
	if rec.Code != http.StatusConflict {
		t.Errorf("expected 409, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestReconcileEndpointNoCandidates(t *testing.T) {
	srv, store := newTestServer(t)
	createCategory(t, srv, "cap")

	scan := &types.ScanRecord{Actor: "operator-1", TopText: "LOT A1", BottomText: "EXP 2026-01"}
	if err := store.CreateScanRecord(context.Background(), scan); err != nil {
		t.Fatalf("failed to create scan: %v", err)
	}

	rec := doJSON(t, srv, http.MethodPost, "/api/v1/reconcile", types.ReconcileInput{
		ScanRecordID: scan.ID,
		CategoryName: "cap",
	})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("expected 422, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestReconcileEndpointNoMatchDiagnostics(t *testing.T) {
	srv, store := newTestServer(t)
	cat := createCategory(t, srv, "cap")
	allocate(t, srv, cat.ID, "2024-09-24", "LOT A1", "EXP 2026-01")

	scan := &types.ScanRecord{Actor: "operator-1", TopText: "LOT A9", BottomText: "EXP 2026-09"}
	if err := store.CreateScanRecord(context.Background(), scan); err != nil {
		t.Fatalf("failed to create scan: %v", err)
	}

	rec := doJSON(t, srv, http.MethodPost, "/api/v1/reconcile", types.ReconcileInput{
		ScanRecordID: scan.ID,
		CategoryName: "cap",
	})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d: %s", rec.Code, rec.Body.String())
	}

	var body struct {
		Error             string `json:"error"`
		CandidatesChecked *int   `json:"candidates_checked"`
		TopText           string `json:"top_text"`
	}
	decodeBody(t, rec, &body)
	if body.CandidatesChecked == nil || *body.CandidatesChecked != 1 {
		t.Errorf("expected 1 candidate checked, got %v", body.CandidatesChecked)
	}
	if body.TopText != "LOT A9" {
		t.Errorf("diagnostic should carry scanned text, got %q", body.TopText)
	}
}

func TestCategoryEndpoints(t *testing.T) {
	srv, _ := newTestServer(t)
	cat := createCategory(t, srv, "cap")

	rec := doJSON(t, srv, http.MethodGet, fmt.Sprintf("/api/v1/categories/%d", cat.ID), nil)
	if rec.Code != http.StatusOK {
		t.Errorf("get category returned %d", rec.Code)
	}

	// Duplicate name conflicts regardless of case
	rec = doJSON(t, srv, http.MethodPost, "/api/v1/categories/", map[string]string{"name": "CAP"})
	if rec.Code != http.StatusConflict {
		t.Errorf("expected 409 for duplicate name, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, srv, http.MethodGet, "/api/v1/categories/", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("list categories returned %d", rec.Code)
	}
	var cats []types.Category
	decodeBody(t, rec, &cats)
	if len(cats) != 1 {
		t.Errorf("expected 1 category, got %d", len(cats))
	}

	rec = doJSON(t, srv, http.MethodDelete, fmt.Sprintf("/api/v1/categories/%d", cat.ID), nil)
	if rec.Code != http.StatusNoContent {
		t.Errorf("delete category returned %d", rec.Code)
	}

	rec = doJSON(t, srv, http.MethodGet, fmt.Sprintf("/api/v1/categories/%d", cat.ID), nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 after delete, got %d", rec.Code)
	}
}

func TestDocumentEndpoints(t *testing.T) {
	srv, _ := newTestServer(t)
	cat := createCategory(t, srv, "cap")
	res := allocate(t, srv, cat.ID, "2024-09-24", "LOT A1", "EXP 2026-01")

	rec := doJSON(t, srv, http.MethodGet, fmt.Sprintf("/api/v1/documents/%d", res.DocumentID), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get document returned %d", rec.Code)
	}
	var doc types.Document
	decodeBody(t, rec, &doc)
	if doc.CategoryName != "cap" {
		t.Errorf("document should carry category name, got %q", doc.CategoryName)
	}

	rec = doJSON(t, srv, http.MethodGet, fmt.Sprintf("/api/v1/documents/%d/batches", res.DocumentID), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list document batches returned %d", rec.Code)
	}
	var batches []types.Batch
	decodeBody(t, rec, &batches)
	if len(batches) != 1 {
		t.Errorf("expected 1 batch, got %d", len(batches))
	}

	rec = doJSON(t, srv, http.MethodGet, "/api/v1/documents/999", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown document, got %d", rec.Code)
	}

	rec = doJSON(t, srv, http.MethodGet, "/api/v1/documents/abc", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for non-numeric id, got %d", rec.Code)
	}
}

func TestScanUploadEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("photo", "label.jpg")
	if err != nil {
		t.Fatalf("failed to create form file: %v", err)
	}
	part.Write([]byte("fake image bytes"))
	mw.WriteField("top_text", "LOT A1")
	mw.WriteField("bottom_text", "EXP 2026-01")
	mw.WriteField("actor", "operator-1")
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/scans/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var scan types.ScanRecord
	decodeBody(t, rec, &scan)
	if scan.PhotoPath == "" {
		t.Error("scan record should carry the stored photo path")
	}
	if scan.Status != types.ScanStatusPending {
		t.Errorf("expected pending status, got %s", scan.Status)
	}
}

func TestScanUploadRejectsBadExtension(t *testing.T) {
	srv, _ := newTestServer(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, _ := mw.CreateFormFile("photo", "label.exe")
	part.Write([]byte("not an image"))
	mw.WriteField("top_text", "LOT A1")
	mw.WriteField("bottom_text", "EXP 2026-01")
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/scans/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestScanUploadRateLimit(t *testing.T) {
	srv, _ := newTestServer(t)
	WithUploadRate(0, 0)(srv)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/scans/upload", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("expected 429, got %d", rec.Code)
	}
}

func TestAuditEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)
	cat := createCategory(t, srv, "cap")

	rec := doJSON(t, srv, http.MethodGet, fmt.Sprintf("/api/v1/audit/category/%d", cat.ID), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("audit returned %d", rec.Code)
	}
	var events []types.AuditEvent
	decodeBody(t, rec, &events)
	if len(events) != 1 {
		t.Fatalf("expected 1 audit event, got %d", len(events))
	}
	if events[0].Actor != "tester" {
		t.Errorf("expected actor from header, got %q", events[0].Actor)
	}

	rec = doJSON(t, srv, http.MethodGet, "/api/v1/audit/widget/1", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for bad entity type, got %d", rec.Code)
	}
}

func TestStatsEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)
	cat := createCategory(t, srv, "cap")
	allocate(t, srv, cat.ID, "2024-09-24", "LOT A1", "EXP 2026-01")

	rec := doJSON(t, srv, http.MethodGet, "/api/v1/stats", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("stats returned %d", rec.Code)
	}
	var stats types.Statistics
	decodeBody(t, rec, &stats)
	if stats.Categories != 1 || stats.Documents != 1 || stats.Batches != 1 {
		t.Errorf("unexpected statistics: %+v", stats)
	}
}
