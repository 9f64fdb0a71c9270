package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pbaille/journal/internal/classifier"
	"github.com/pbaille/journal/internal/domain"
	"github.com/pbaille/journal/internal/store"
	"go.uber.org/zap"
)

// Suggester picks competencies for a thought
type Suggester interface {
	Suggest(ctx context.Context, text string, catalog []domain.Competency) ([]classifier.Suggestion, error)
}

// Pages registers the HTML routes on the mux
type Pages interface {
	Register(mux *http.ServeMux)
}

// Server handles HTTP requests for the journal API
type Server struct {
	store     *store.Store
	addr      string
	logger    *zap.Logger
	suggester Suggester
	pages     Pages
}

// Option configures a Server
type Option func(*Server)

// WithSuggester enables competency suggestions on POST /api/entry
func WithSuggester(sg Suggester) Option {
	return func(s *Server) { s.suggester = sg }
}

// WithPages mounts the HTML pages
func WithPages(p Pages) Option {
	return func(s *Server) { s.pages = p }
}

// New creates a new API server
func New(st *store.Store, addr string, logger *zap.Logger, opts ...Option) *Server {
	s := &Server{store: st, addr: addr, logger: logger}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the routed handler with middleware applied
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Entries
	mux.HandleFunc("GET /api/entry", s.listEntries)
	mux.HandleFunc("POST /api/entry", s.addEntry)
	mux.HandleFunc("GET /api/entry/{id}", s.getEntry)
	mux.HandleFunc("PUT /api/entry/{id}", s.updateEntry)
	mux.HandleFunc("DELETE /api/entry/{id}", s.deleteEntry)

	// Competencies
	mux.HandleFunc("GET /api/competencies", s.listCompetencies)

	// Search
	mux.HandleFunc("GET /api/search", s.searchEntries)

	// Health check
	mux.HandleFunc("GET /health", s.health)

	if s.pages != nil {
		s.pages.Register(mux)
	}

	return withLogging(s.logger, withCORS(mux))
}

// Run serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting server", zap.String("addr", s.addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// withCORS adds CORS headers for frontend development
func withCORS(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		h.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// withLogging tags each request with an id and logs it once it completes
func withLogging(logger *zap.Logger, h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := uuid.NewString()
		w.Header().Set("X-Request-ID", requestID)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		h.ServeHTTP(rec, r)

		logger.Info("request",
			zap.String("request_id", requestID),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("duration", time.Since(start)))
	})
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// AddEntryRequest is the request body for adding an entry
type AddEntryRequest struct {
	Text         string  `json:"text"`
	Competencies []int64 `json:"competencies,omitempty"`
	Suggest      bool    `json:"suggest,omitempty"`
}

// UpdateEntryRequest is the request body for editing an entry
type UpdateEntryRequest struct {
	Text         string  `json:"text"`
	Competencies []int64 `json:"competencies"`
}

func (s *Server) addEntry(w http.ResponseWriter, r *http.Request) {
	var req AddEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if strings.TrimSpace(req.Text) == "" {
		writeError(w, http.StatusBadRequest, "text is required")
		return
	}

	ids := req.Competencies
	if req.Suggest && len(ids) == 0 {
		ids = s.suggest(r.Context(), req.Text)
	}

	entry, err := s.store.AddEntry(r.Context(), req.Text, ids)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, entry.Persisted())
}

// suggest returns suggested competency ids. Failures only get logged.
func (s *Server) suggest(ctx context.Context, text string) []int64 {
	if s.suggester == nil {
		return nil
	}

	catalog, err := s.store.ListCompetencies(ctx)
	if err != nil {
		s.logger.Warn("suggest: list competencies", zap.Error(err))
		return nil
	}

	suggestions, err := s.suggester.Suggest(ctx, text, catalog)
	if err != nil {
		s.logger.Warn("suggest competencies", zap.Error(err))
		return nil
	}
	return classifier.IDs(suggestions)
}

func (s *Server) getEntry(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	entry, err := s.store.GetEntry(r.Context(), id)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, entry.Persisted())
}

func (s *Server) updateEntry(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req UpdateEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	entry, err := s.store.UpdateEntry(r.Context(), id, req.Text, req.Competencies)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, entry.Persisted())
}

func (s *Server) deleteEntry(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := s.store.DeleteEntry(r.Context(), id); err != nil {
		s.writeStoreError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) listEntries(w http.ResponseWriter, r *http.Request) {
	limit := 0
	offset := 0

	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 {
			limit = n
		}
	}
	if o := r.URL.Query().Get("offset"); o != "" {
		if n, err := strconv.Atoi(o); err == nil && n >= 0 {
			offset = n
		}
	}

	entries, err := s.store.ListEntries(r.Context(), limit, offset)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, persisted(entries))
}

func (s *Server) listCompetencies(w http.ResponseWriter, r *http.Request) {
	competencies, err := s.store.ListCompetencies(r.Context())
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	if competencies == nil {
		competencies = []domain.Competency{}
	}

	writeJSON(w, http.StatusOK, competencies)
}

func (s *Server) searchEntries(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		writeError(w, http.StatusBadRequest, "query parameter 'q' is required")
		return
	}

	entries, err := s.store.SearchEntries(r.Context(), query)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, persisted(entries))
}

func persisted(entries []domain.Entry) []domain.PersistedEntry {
	out := make([]domain.PersistedEntry, len(entries))
	for i, e := range entries {
		out[i] = e.Persisted()
	}
	return out
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid entry id")
		return 0, false
	}
	return id, true
}

// writeStoreError maps store errors to status codes
func (s *Server) writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, store.ErrEmptyText), errors.Is(err, store.ErrUnknownCompetency):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		s.logger.Error("store error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
