package tui

import "github.com/pbaille/journal/internal/domain"

// ThoughtsLoadedMsg carries the result of the entries read.
type ThoughtsLoadedMsg struct {
	Entries []domain.PersistedEntry
	Err     error
}

// CompetenciesLoadedMsg carries the result of the competency catalog read.
type CompetenciesLoadedMsg struct {
	Competencies []domain.Competency
	Err          error
}

// EntryDeletedMsg reports a finished delete request.
type EntryDeletedMsg struct {
	ID  int64
	Err error
}

// EntryUpdatedMsg reports a finished edit request.
type EntryUpdatedMsg struct {
	ID    int64
	Entry *domain.PersistedEntry
	Err   error
}

// ClearStatusMsg clears a transient status line.
type ClearStatusMsg struct{}
