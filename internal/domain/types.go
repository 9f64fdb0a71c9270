package domain

import "time"

// Entry is a journal thought as held by the store
type Entry struct {
	ID           int64     `json:"id"`
	Text         string    `json:"text"`
	CreatedAt    time.Time `json:"createdAt"`
	Competencies []int64   `json:"competencies"`
}

// Persisted returns the wire form of the entry
func (e Entry) Persisted() PersistedEntry {
	ids := e.Competencies
	if ids == nil {
		ids = []int64{}
	}
	return PersistedEntry{
		ID:           e.ID,
		Text:         e.Text,
		CreatedAt:    e.CreatedAt.Format(time.RFC3339Nano),
		Competencies: ids,
	}
}

// PersistedEntry is an entry as served by GET /api/entry.
// CreatedAt is kept raw so a malformed timestamp only degrades its display.
type PersistedEntry struct {
	ID           int64   `json:"id"`
	Text         string  `json:"text"`
	CreatedAt    string  `json:"createdAt"`
	Competencies []int64 `json:"competencies"`
}

// Competency is a named skill that can be tagged onto an entry
type Competency struct {
	ID          int64  `json:"id"`
	Skill       string `json:"skill"`
	Description string `json:"description"`
}
