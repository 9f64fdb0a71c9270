package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pbaille/journal/internal/classifier"
	"github.com/pbaille/journal/internal/domain"
	"github.com/pbaille/journal/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type fakeSuggester struct {
	ids []int64
	err error
}

func (f fakeSuggester) Suggest(_ context.Context, _ string, _ []domain.Competency) ([]classifier.Suggestion, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([]classifier.Suggestion, len(f.ids))
	for i, id := range f.ids {
		out[i] = classifier.Suggestion{ID: id, Confidence: 0.9}
	}
	return out, nil
}

func newTestServer(t *testing.T, opts ...Option) (http.Handler, *store.Store) {
	t.Helper()

	st, err := store.New(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	return New(st, ":0", zaptest.NewLogger(t), opts...).Handler(), st
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestHealth(t *testing.T) {
	h, _ := newTestServer(t)

	rec := do(t, h, "GET", "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestListEntriesEmpty(t *testing.T) {
	h, _ := newTestServer(t)

	rec := do(t, h, "GET", "/api/entry", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestAddAndListEntries(t *testing.T) {
	h, _ := newTestServer(t)

	rec := do(t, h, "POST", "/api/entry", `{"text": "A", "competencies": [2, 1]}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[domain.PersistedEntry](t, rec)
	assert.Equal(t, "A", created.Text)
	assert.Equal(t, []int64{2, 1}, created.Competencies)
	assert.NotEmpty(t, created.CreatedAt)

	rec = do(t, h, "POST", "/api/entry", `{"text": "B"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = do(t, h, "GET", "/api/entry", "")
	require.Equal(t, http.StatusOK, rec.Code)
	entries := decode[[]domain.PersistedEntry](t, rec)

	require.Len(t, entries, 2)
	assert.Equal(t, "A", entries[0].Text)
	assert.Equal(t, "B", entries[1].Text)
	assert.Equal(t, []int64{}, entries[1].Competencies)
	assert.Contains(t, rec.Body.String(), `"competencies":[]`)
}

func TestAddEntryValidation(t *testing.T) {
	h, _ := newTestServer(t)

	tests := []struct {
		name string
		body string
	}{
		{"malformed", `{"text":`},
		{"blank text", `{"text": "   "}`},
		{"unknown competency", `{"text": "hi", "competencies": [404]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, "POST", "/api/entry", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), `"error"`)
		})
	}
}

func TestAddEntrySuggestsCompetencies(t *testing.T) {
	h, _ := newTestServer(t, WithSuggester(fakeSuggester{ids: []int64{4, 2}}))

	rec := do(t, h, "POST", "/api/entry", `{"text": "ran the retro", "suggest": true}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, []int64{4, 2}, decode[domain.PersistedEntry](t, rec).Competencies)

	rec = do(t, h, "POST", "/api/entry", `{"text": "explicit wins", "competencies": [1], "suggest": true}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, []int64{1}, decode[domain.PersistedEntry](t, rec).Competencies)
}

func TestAddEntrySuggestFailureStillSaves(t *testing.T) {
	h, _ := newTestServer(t, WithSuggester(fakeSuggester{err: errors.New("rate limited")}))

	rec := do(t, h, "POST", "/api/entry", `{"text": "still here", "suggest": true}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Empty(t, decode[domain.PersistedEntry](t, rec).Competencies)
}

func TestGetEntry(t *testing.T) {
	h, st := newTestServer(t)
	entry, err := st.AddEntry(context.Background(), "hello", []int64{3})
	require.NoError(t, err)

	rec := do(t, h, "GET", "/api/entry/1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[domain.PersistedEntry](t, rec)
	assert.Equal(t, entry.ID, got.ID)
	assert.Equal(t, []int64{3}, got.Competencies)

	assert.Equal(t, http.StatusNotFound, do(t, h, "GET", "/api/entry/99", "").Code)
	assert.Equal(t, http.StatusBadRequest, do(t, h, "GET", "/api/entry/abc", "").Code)
}

func TestUpdateEntry(t *testing.T) {
	h, st := newTestServer(t)
	_, err := st.AddEntry(context.Background(), "draft", nil)
	require.NoError(t, err)

	rec := do(t, h, "PUT", "/api/entry/1", `{"text": "final", "competencies": [5]}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	got := decode[domain.PersistedEntry](t, rec)
	assert.Equal(t, "final", got.Text)
	assert.Equal(t, []int64{5}, got.Competencies)

	assert.Equal(t, http.StatusNotFound, do(t, h, "PUT", "/api/entry/9", `{"text": "x"}`).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, h, "PUT", "/api/entry/1", `{"text": ""}`).Code)
}

func TestDeleteEntry(t *testing.T) {
	h, st := newTestServer(t)
	ctx := context.Background()
	for _, text := range []string{"A", "B", "C"} {
		_, err := st.AddEntry(ctx, text, nil)
		require.NoError(t, err)
	}

	rec := do(t, h, "DELETE", "/api/entry/2", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, http.StatusNotFound, do(t, h, "DELETE", "/api/entry/2", "").Code)

	entries := decode[[]domain.PersistedEntry](t, do(t, h, "GET", "/api/entry", ""))
	require.Len(t, entries, 2)
	assert.Equal(t, "A", entries[0].Text)
	assert.Equal(t, "C", entries[1].Text)
}

func TestListCompetencies(t *testing.T) {
	h, _ := newTestServer(t)

	rec := do(t, h, "GET", "/api/competencies", "")
	require.Equal(t, http.StatusOK, rec.Code)
	competencies := decode[[]domain.Competency](t, rec)

	require.Len(t, competencies, 8)
	assert.Equal(t, domain.Competency{
		ID: 2, Skill: "Teamwork", Description: "Working with others toward a shared goal",
	}, competencies[1])
}

func TestSearchEntries(t *testing.T) {
	h, st := newTestServer(t)
	_, err := st.AddEntry(context.Background(), "release day", nil)
	require.NoError(t, err)
	_, err = st.AddEntry(context.Background(), "quiet day", nil)
	require.NoError(t, err)

	assert.Equal(t, http.StatusBadRequest, do(t, h, "GET", "/api/search", "").Code)

	entries := decode[[]domain.PersistedEntry](t, do(t, h, "GET", "/api/search?q=release", ""))
	require.Len(t, entries, 1)
	assert.Equal(t, "release day", entries[0].Text)
}

func TestCORSPreflight(t *testing.T) {
	h, _ := newTestServer(t)

	rec := do(t, h, "OPTIONS", "/api/entry/1", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "DELETE")
}

type stubPages struct{}

func (stubPages) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /thoughts", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("page"))
	})
}

func TestPagesAreMounted(t *testing.T) {
	h, _ := newTestServer(t, WithPages(stubPages{}))

	rec := do(t, h, "GET", "/thoughts", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "page", rec.Body.String())
}
