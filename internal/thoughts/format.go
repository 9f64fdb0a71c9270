// Package thoughts turns persisted entries into display rows and holds the
// list state shared by the web page and the terminal page.
package thoughts

import (
	"strings"
	"time"

	"github.com/pbaille/journal/internal/domain"
)

// DisplayLayout renders times as en-US "Mon DD, YYYY, HH:MM AM".
const DisplayLayout = "Jan 02, 2006, 03:04 PM"

// InvalidDate is shown for timestamps that cannot be parsed.
const InvalidDate = "Invalid Date"

// Accepted timestamp layouts, tried in order.
var layouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

// DisplayThought is a display-ready entry.
type DisplayThought struct {
	ID           int64
	Text         string
	Time         string
	Competencies []int64
}

// Transform converts entries into display rows, keeping length and order.
func Transform(entries []domain.PersistedEntry, loc *time.Location) []DisplayThought {
	out := make([]DisplayThought, len(entries))
	for i, e := range entries {
		out[i] = toDisplay(e, loc)
	}
	return out
}

func toDisplay(e domain.PersistedEntry, loc *time.Location) DisplayThought {
	ids := e.Competencies
	if ids == nil {
		ids = []int64{}
	}
	return DisplayThought{
		ID:           e.ID,
		Text:         e.Text,
		Time:         FormatTimestamp(e.CreatedAt, loc),
		Competencies: ids,
	}
}

// FormatTimestamp parses raw and renders it with DisplayLayout in loc.
// Zone-less date-times are read as loc time; a bare date is UTC midnight.
// Unparseable input yields InvalidDate.
func FormatTimestamp(raw string, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	for _, layout := range layouts {
		if t, err := time.ParseInLocation(layout, raw, loc); err == nil {
			return FormatTime(t, loc)
		}
	}
	if t, err := time.Parse(time.DateOnly, raw); err == nil {
		return FormatTime(t, loc)
	}
	return InvalidDate
}

// FormatTime renders t with DisplayLayout in loc (Local when nil).
func FormatTime(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	return t.In(loc).Format(DisplayLayout)
}

// Truncate flattens newlines and shortens s to at most n runes, marking the cut with "...".
func Truncate(s string, n int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	if n <= 3 {
		return string(runes[:max(n, 0)])
	}
	return string(runes[:n-3]) + "..."
}
