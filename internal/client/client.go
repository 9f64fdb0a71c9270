package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/pbaille/journal/internal/domain"
)

const competenciesKey = "competencies"

// StatusError is returned for non-2xx responses
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api error (status %d)", e.Code)
	}
	return fmt.Sprintf("api error (status %d): %s", e.Code, e.Message)
}

// Client talks to the journal REST API
type Client struct {
	baseURL string
	http    *http.Client
	cache   *cache.Cache
}

// Option configures a Client
type Option func(*Client)

// WithTimeout bounds every request
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

// WithCompetencyTTL sets how long the competency catalog is cached
func WithCompetencyTTL(d time.Duration) Option {
	return func(c *Client) { c.cache = cache.New(d, 2*d) }
}

// New creates a Client for the API at baseURL
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
		cache:   cache.New(5*time.Minute, 10*time.Minute),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Entries fetches every entry in the order the store serves them
func (c *Client) Entries(ctx context.Context) ([]domain.PersistedEntry, error) {
	var entries []domain.PersistedEntry
	if err := c.do(ctx, http.MethodGet, "/api/entry", nil, &entries); err != nil {
		return nil, fmt.Errorf("load entries: %w", err)
	}
	return entries, nil
}

// Competencies fetches the competency catalog, served from cache when fresh
func (c *Client) Competencies(ctx context.Context) ([]domain.Competency, error) {
	if cached, found := c.cache.Get(competenciesKey); found {
		return cached.([]domain.Competency), nil
	}

	var competencies []domain.Competency
	if err := c.do(ctx, http.MethodGet, "/api/competencies", nil, &competencies); err != nil {
		return nil, fmt.Errorf("load competencies: %w", err)
	}

	c.cache.Set(competenciesKey, competencies, cache.DefaultExpiration)
	return competencies, nil
}

// UpdateRequest is the body of PUT /api/entry/{id}
type UpdateRequest struct {
	Text         string  `json:"text"`
	Competencies []int64 `json:"competencies"`
}

// UpdateEntry replaces an entry's text and competencies
func (c *Client) UpdateEntry(ctx context.Context, id int64, text string, competencyIDs []int64) (*domain.PersistedEntry, error) {
	if competencyIDs == nil {
		competencyIDs = []int64{}
	}
	var entry domain.PersistedEntry
	body := UpdateRequest{Text: text, Competencies: competencyIDs}
	if err := c.do(ctx, http.MethodPut, entryPath(id), body, &entry); err != nil {
		return nil, fmt.Errorf("update entry %d: %w", id, err)
	}
	return &entry, nil
}

// DeleteEntry removes an entry
func (c *Client) DeleteEntry(ctx context.Context, id int64) error {
	if err := c.do(ctx, http.MethodDelete, entryPath(id), nil, nil); err != nil {
		return fmt.Errorf("delete entry %d: %w", id, err)
	}
	return nil
}

func entryPath(id int64) string {
	return "/api/entry/" + strconv.FormatInt(id, 10)
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		jsonBody, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{Code: resp.StatusCode, Message: errorMessage(data)}
	}

	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	return nil
}

// errorMessage extracts {"error": "..."} and falls back to the raw body
func errorMessage(body []byte) string {
	var apiErr struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Error != "" {
		return apiErr.Error
	}
	return strings.TrimSpace(string(body))
}
