// Package api exposes the batch-record service over HTTP: the two core
// operations (allocate, reconcile), read endpoints for every entity, scan
// intake with photo upload, and the audit trail.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/adiwp/lotno/internal/engine"
	"github.com/adiwp/lotno/internal/storage"
)

// Server holds the handler dependencies.
type Server struct {
	engine     *engine.Engine
	store      storage.Storage
	log        *zap.Logger
	uploadsDir string
	maxUpload  int64
	uploads    *rate.Limiter
}

// Option configures a Server.
type Option func(*Server)

// WithUploads sets the photo storage directory and per-file size cap.
func WithUploads(dir string, maxBytes int64) Option {
	return func(s *Server) {
		s.uploadsDir = dir
		s.maxUpload = maxBytes
	}
}

// WithUploadRate caps upload requests per second across all clients.
func WithUploadRate(perSecond float64, burst int) Option {
	return func(s *Server) {
		s.uploads = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

// NewServer creates a Server. A nil logger defaults to a no-op logger.
func NewServer(eng *engine.Engine, store storage.Storage, log *zap.Logger, opts ...Option) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{
		engine:     eng,
		store:      store,
		log:        log,
		uploadsDir: "uploads",
		maxUpload:  10 << 20,
		uploads:    rate.NewLimiter(rate.Limit(5), 10),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Router builds the HTTP routing tree.
func (s *Server) Router() *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/allocate", s.handleAllocate)
		r.Post("/reconcile", s.handleReconcile)

		r.Route("/categories", func(r chi.Router) {
			r.Get("/", s.handleListCategories)
			r.Post("/", s.handleCreateCategory)
			r.Get("/{id}", s.handleGetCategory)
			r.Delete("/{id}", s.handleDeleteCategory)
		})

		r.Route("/documents", func(r chi.Router) {
			r.Get("/", s.handleListDocuments)
			r.Get("/{id}", s.handleGetDocument)
			r.Get("/{id}/batches", s.handleListDocumentBatches)
		})

		r.Route("/batches", func(r chi.Router) {
			r.Get("/", s.handleListBatches)
			r.Get("/{id}", s.handleGetBatch)
		})

		r.Route("/scans", func(r chi.Router) {
			r.Get("/", s.handleListScanRecords)
			r.Post("/", s.handleCreateScanRecord)
			r.With(s.uploadLimit).Post("/upload", s.handleUploadScan)
			r.Get("/{id}", s.handleGetScanRecord)
		})

		r.Get("/audit/{entityType}/{id}", s.handleGetAuditEvents)
		r.Get("/stats", s.handleGetStatistics)
	})

	return r
}

// requestLogger logs each request with its status and duration.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		s.log.Info("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())))
	})
}

// uploadLimit rejects upload requests past the configured rate.
func (s *Server) uploadLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.uploads.Allow() {
			writeErrorStatus(w, http.StatusTooManyRequests, "upload rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if _, err := s.store.GetStatistics(r.Context()); err != nil {
		writeErrorStatus(w, http.StatusServiceUnavailable, "storage unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
