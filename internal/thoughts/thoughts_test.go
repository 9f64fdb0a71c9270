package thoughts

import (
	"testing"
	"time"

	"github.com/pbaille/journal/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatTimestamp(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"rfc3339 utc", "2024-03-05T14:07:00Z", "Mar 05, 2024, 02:07 PM"},
		{"rfc3339 nano", "2024-03-05T09:07:00.123456789Z", "Mar 05, 2024, 09:07 AM"},
		{"offset converted", "2024-03-05T14:07:00+02:00", "Mar 05, 2024, 12:07 PM"},
		{"sqlite style", "2024-12-25 00:30:00", "Dec 25, 2024, 12:30 AM"},
		{"date only", "2024-01-09", "Jan 09, 2024, 12:00 AM"},
		{"garbage", "yesterday-ish", InvalidDate},
		{"empty", "", InvalidDate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatTimestamp(tt.raw, time.UTC))
		})
	}
}

func TestFormatTimestampDateOnlyIsUTC(t *testing.T) {
	est := time.FixedZone("EST", -5*3600)

	assert.Equal(t, "Mar 04, 2024, 07:00 PM", FormatTimestamp("2024-03-05", est))
	assert.Equal(t, "Mar 05, 2024, 12:00 AM", FormatTimestamp("2024-03-05 00:00:00", est),
		"zone-less date-times stay in loc")
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		s    string
		n    int
		want string
	}{
		{"short", 10, "short"},
		{"abcdefghijklmnop", 10, "abcdefg..."},
		{"a\nb", 10, "a b"},
		{"héllo wörld", 8, "héllo..."},
		{"abcdef", 3, "abc"},
		{"abcdef", 1, "a"},
		{"abcdef", 0, ""},
		{"abcdef", -1, ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Truncate(tt.s, tt.n), "Truncate(%q, %d)", tt.s, tt.n)
	}
}

func TestFormatTimeUsesLocation(t *testing.T) {
	loc := time.FixedZone("EST", -5*3600)
	ts := time.Date(2024, 7, 4, 3, 15, 0, 0, time.UTC)

	assert.Equal(t, "Jul 03, 2024, 10:15 PM", FormatTime(ts, loc))
}

func TestTransformKeepsOrderAndLength(t *testing.T) {
	entries := []domain.PersistedEntry{
		{ID: 7, Text: "A", CreatedAt: "2024-03-05T14:07:00Z", Competencies: []int64{1, 2}},
		{ID: 3, Text: "B", CreatedAt: "not a date"},
		{ID: 9, Text: "C", CreatedAt: "2024-03-06T08:00:00Z", Competencies: []int64{}},
	}

	got := Transform(entries, time.UTC)

	require.Len(t, got, 3)
	assert.Equal(t, DisplayThought{ID: 7, Text: "A", Time: "Mar 05, 2024, 02:07 PM", Competencies: []int64{1, 2}}, got[0])
	assert.Equal(t, "B", got[1].Text)
	assert.Equal(t, InvalidDate, got[1].Time)
	assert.Equal(t, []int64{}, got[1].Competencies)
	assert.Equal(t, "C", got[2].Text)
}

func TestTransformEmpty(t *testing.T) {
	assert.Empty(t, Transform(nil, time.UTC))
}

func newList(texts ...string) *List {
	entries := make([]domain.PersistedEntry, len(texts))
	for i, text := range texts {
		entries[i] = domain.PersistedEntry{ID: int64(i + 1), Text: text, CreatedAt: "2024-01-01T00:00:00Z"}
	}
	l := &List{}
	l.SetEntries(entries, time.UTC)
	return l
}

func TestListLabels(t *testing.T) {
	l := &List{}
	l.SetCompetencies([]domain.Competency{
		{ID: 1, Skill: "Communication"},
		{ID: 2, Skill: "Teamwork"},
	})

	thought := DisplayThought{Competencies: []int64{2, 42, 1}}

	assert.Equal(t, "Teamwork", l.Label(2))
	assert.Equal(t, "#42", l.Label(42))
	assert.Equal(t, []string{"Teamwork", "#42", "Communication"}, l.Labels(thought))
	assert.Equal(t, "Teamwork, #42, Communication", l.CompetencyLine(thought))
	assert.Equal(t, "", l.CompetencyLine(DisplayThought{Competencies: []int64{}}))
}

func TestListLabelsWithoutCatalog(t *testing.T) {
	l := &List{}

	assert.Equal(t, "#5", l.Label(5))
}

func TestListSelect(t *testing.T) {
	l := newList("A", "B")

	require.NoError(t, l.Select(1))
	assert.Equal(t, 1, l.Target)

	selected, err := l.Selected()
	require.NoError(t, err)
	assert.Equal(t, "B", selected.Text)

	assert.ErrorIs(t, l.Select(2), ErrNoSelection)
	assert.ErrorIs(t, l.Select(-1), ErrNoSelection)
	assert.Equal(t, 1, l.Target, "invalid selection keeps the previous target")
}

func TestListRemoveSelected(t *testing.T) {
	l := newList("A", "B", "C")
	require.NoError(t, l.Select(1))

	removed, err := l.RemoveSelected()
	require.NoError(t, err)

	assert.Equal(t, "B", removed.Text)
	require.Len(t, l.Thoughts, 2)
	assert.Equal(t, "A", l.Thoughts[0].Text)
	assert.Equal(t, "C", l.Thoughts[1].Text)
	assert.Equal(t, 1, l.Target)
}

func TestListRemoveLastClampsTarget(t *testing.T) {
	l := newList("A", "B")
	require.NoError(t, l.Select(1))

	_, err := l.RemoveSelected()
	require.NoError(t, err)
	assert.Equal(t, 0, l.Target)

	_, err = l.RemoveSelected()
	require.NoError(t, err)
	assert.True(t, l.Empty())
	assert.Equal(t, 0, l.Target)

	_, err = l.RemoveSelected()
	assert.ErrorIs(t, err, ErrNoSelection)
}

func TestListRemoveDoesNotAliasPreviousSlice(t *testing.T) {
	l := newList("A", "B", "C")
	before := l.Thoughts

	_, err := l.RemoveSelected()
	require.NoError(t, err)

	assert.Equal(t, "A", before[0].Text, "earlier snapshots are not mutated")
	assert.Equal(t, "B", l.Thoughts[0].Text)
}

func TestListReplaceSelected(t *testing.T) {
	l := newList("A", "B")
	require.NoError(t, l.Select(0))

	err := l.ReplaceSelected(domain.PersistedEntry{
		ID: 1, Text: "A edited", CreatedAt: "2024-01-01T00:00:00Z", Competencies: []int64{3},
	}, time.UTC)
	require.NoError(t, err)

	assert.Equal(t, "A edited", l.Thoughts[0].Text)
	assert.Equal(t, []int64{3}, l.Thoughts[0].Competencies)
	assert.Equal(t, "B", l.Thoughts[1].Text)
}

func TestListSetEntriesClampsTarget(t *testing.T) {
	l := newList("A", "B", "C")
	require.NoError(t, l.Select(2))

	l.SetEntries([]domain.PersistedEntry{{ID: 1, Text: "only"}}, time.UTC)
	assert.Equal(t, 0, l.Target)
	assert.Equal(t, 0, l.IndexOf(1))
	assert.Equal(t, -1, l.IndexOf(2))
}
