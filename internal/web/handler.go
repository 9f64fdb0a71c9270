// Package web serves the HTML thoughts page.
package web

import (
	"context"
	"embed"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/a-h/templ"
	"github.com/pbaille/journal/internal/domain"
	"github.com/pbaille/journal/internal/store"
	"github.com/pbaille/journal/internal/thoughts"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

//go:embed static
var staticFS embed.FS

// Source is the data the pages read and write. *store.Store satisfies it.
type Source interface {
	ListEntries(ctx context.Context, limit, offset int) ([]domain.Entry, error)
	ListCompetencies(ctx context.Context) ([]domain.Competency, error)
	GetEntry(ctx context.Context, id int64) (*domain.Entry, error)
	UpdateEntry(ctx context.Context, id int64, text string, competencyIDs []int64) (*domain.Entry, error)
	DeleteEntry(ctx context.Context, id int64) error
}

// Error codes carried on the ?error= redirect. Unknown codes show nothing.
const (
	errMissing = "missing"
	errDelete  = "delete"
	errLoad    = "load"
)

var pageErrors = map[string]string{
	errMissing: "That thought no longer exists.",
	errDelete:  "Could not delete the thought.",
	errLoad:    "Could not load thoughts.",
}

// Handler renders the thoughts pages
type Handler struct {
	source Source
	loc    *time.Location
	logger *zap.Logger
}

// NewHandler creates a Handler rendering times in loc
func NewHandler(source Source, loc *time.Location, logger *zap.Logger) *Handler {
	return &Handler{source: source, loc: loc, logger: logger.Named("web")}
}

// Register mounts the page routes
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /thoughts", h.thoughts)
	mux.HandleFunc("POST /thoughts/{id}/delete", h.deleteThought)
	mux.HandleFunc("GET /thoughts/{id}/edit", h.editForm)
	mux.HandleFunc("POST /thoughts/{id}/edit", h.saveEdit)
	mux.Handle("GET /static/", http.FileServerFS(staticFS))
}

// load reads entries and competencies concurrently. Each read only fills its own
// slice of the list, so a failure in one leaves the other intact.
func (h *Handler) load(ctx context.Context) (*thoughts.List, []string) {
	var (
		entries      []domain.Entry
		competencies []domain.Competency
		entriesErr   error
		compsErr     error
	)

	var g errgroup.Group
	g.Go(func() error {
		entries, entriesErr = h.source.ListEntries(ctx, 0, 0)
		return nil
	})
	g.Go(func() error {
		competencies, compsErr = h.source.ListCompetencies(ctx)
		return nil
	})
	g.Wait()

	list := &thoughts.List{}
	var notices []string

	if entriesErr != nil {
		h.logger.Warn("load thoughts", zap.Error(entriesErr))
		notices = append(notices, pageErrors[errLoad])
	} else {
		list.SetEntries(persisted(entries), h.loc)
	}

	if compsErr != nil {
		h.logger.Warn("load competencies", zap.Error(compsErr))
		notices = append(notices, "Could not load competencies.")
	} else {
		list.SetCompetencies(competencies)
	}

	return list, notices
}

func (h *Handler) thoughts(w http.ResponseWriter, r *http.Request) {
	list, notices := h.load(r.Context())
	if msg, ok := pageErrors[r.URL.Query().Get("error")]; ok {
		notices = append(notices, msg)
	}
	templ.Handler(ThoughtsPage(list, notices)).ServeHTTP(w, r)
}

func (h *Handler) deleteThought(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid entry id", http.StatusBadRequest)
		return
	}

	entries, err := h.source.ListEntries(r.Context(), 0, 0)
	if err != nil {
		h.logger.Error("load thoughts", zap.Error(err))
		redirectWithError(w, r, errLoad)
		return
	}
	list := &thoughts.List{}
	list.SetEntries(persisted(entries), h.loc)

	// Point the target at the clicked row. If the page was stale, find the row by id.
	target, err := strconv.Atoi(r.FormValue("target"))
	if err != nil || list.Select(target) != nil || list.Thoughts[list.Target].ID != id {
		if list.Select(list.IndexOf(id)) != nil {
			redirectWithError(w, r, errMissing)
			return
		}
	}

	if err := h.source.DeleteEntry(r.Context(), id); err != nil {
		h.logger.Error("delete thought", zap.Int64("id", id), zap.Error(err))
		redirectWithError(w, r, errDelete)
		return
	}
	h.logger.Info("deleted thought", zap.Int64("id", id), zap.Int("row", list.Target))

	http.Redirect(w, r, "/thoughts", http.StatusSeeOther)
}

func (h *Handler) editForm(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid entry id", http.StatusBadRequest)
		return
	}

	entry, err := h.source.GetEntry(r.Context(), id)
	if err != nil {
		h.entryError(w, r, err)
		return
	}

	catalog, err := h.source.ListCompetencies(r.Context())
	if err != nil {
		h.logger.Warn("load competencies", zap.Error(err))
	}

	templ.Handler(EditPage(entry, catalog, "")).ServeHTTP(w, r)
}

func (h *Handler) saveEdit(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid entry id", http.StatusBadRequest)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	var ids []int64
	for _, raw := range r.PostForm["competency"] {
		cid, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			http.Error(w, "invalid competency id", http.StatusBadRequest)
			return
		}
		ids = append(ids, cid)
	}
	text := r.PostForm.Get("text")

	if _, err := h.source.UpdateEntry(r.Context(), id, text, ids); err != nil {
		if errors.Is(err, store.ErrEmptyText) || errors.Is(err, store.ErrUnknownCompetency) {
			catalog, _ := h.source.ListCompetencies(r.Context())
			entry := &domain.Entry{ID: id, Text: text, Competencies: ids}
			templ.Handler(EditPage(entry, catalog, err.Error()), templ.WithStatus(http.StatusBadRequest)).ServeHTTP(w, r)
			return
		}
		h.entryError(w, r, err)
		return
	}

	h.logger.Info("edited thought", zap.Int64("id", id))
	http.Redirect(w, r, "/thoughts", http.StatusSeeOther)
}

func (h *Handler) entryError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, store.ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	h.logger.Error("thought page", zap.Error(err))
	http.Error(w, "internal error", http.StatusInternalServerError)
}

func redirectWithError(w http.ResponseWriter, r *http.Request, code string) {
	http.Redirect(w, r, "/thoughts?error="+url.QueryEscape(code), http.StatusSeeOther)
}

func persisted(entries []domain.Entry) []domain.PersistedEntry {
	records := make([]domain.PersistedEntry, len(entries))
	for i, e := range entries {
		records[i] = e.Persisted()
	}
	return records
}
