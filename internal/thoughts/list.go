package thoughts

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/pbaille/journal/internal/domain"
)

// ErrNoSelection is returned when Target does not point at a row.
var ErrNoSelection = errors.New("no thought selected")

// EmptyPlaceholder is rendered when there are no thoughts.
const EmptyPlaceholder = "No thoughts yet. Start typing!"

// List is the state behind a thoughts page.
// Thoughts and Competencies are replaced wholesale by their loaders and
// never touch each other.
type List struct {
	Thoughts     []DisplayThought
	Competencies []domain.Competency
	Target       int
}

// SetEntries replaces the thoughts with the transformed entries.
func (l *List) SetEntries(entries []domain.PersistedEntry, loc *time.Location) {
	l.Thoughts = Transform(entries, loc)
	l.clampTarget()
}

// SetCompetencies replaces the competency catalog.
func (l *List) SetCompetencies(cs []domain.Competency) {
	l.Competencies = cs
}

// Empty reports whether the placeholder should be rendered.
func (l *List) Empty() bool {
	return len(l.Thoughts) == 0
}

// Label returns the skill for id, or "#<id>" when the catalog has no match.
func (l *List) Label(id int64) string {
	for _, c := range l.Competencies {
		if c.ID == id {
			return c.Skill
		}
	}
	return "#" + strconv.FormatInt(id, 10)
}

// Labels resolves every competency of t, in order.
func (l *List) Labels(t DisplayThought) []string {
	labels := make([]string, len(t.Competencies))
	for i, id := range t.Competencies {
		labels[i] = l.Label(id)
	}
	return labels
}

// CompetencyLine joins the labels of t. It is empty when t has no competencies.
func (l *List) CompetencyLine(t DisplayThought) string {
	return strings.Join(l.Labels(t), ", ")
}

// Select points Target at row i.
func (l *List) Select(i int) error {
	if i < 0 || i >= len(l.Thoughts) {
		return ErrNoSelection
	}
	l.Target = i
	return nil
}

// Selected returns the row at Target.
func (l *List) Selected() (DisplayThought, error) {
	if l.Target < 0 || l.Target >= len(l.Thoughts) {
		return DisplayThought{}, ErrNoSelection
	}
	return l.Thoughts[l.Target], nil
}

// IndexOf returns the row holding entry id, or -1.
func (l *List) IndexOf(id int64) int {
	for i, t := range l.Thoughts {
		if t.ID == id {
			return i
		}
	}
	return -1
}

// RemoveSelected drops the row at Target, keeping the order of the others.
func (l *List) RemoveSelected() (DisplayThought, error) {
	removed, err := l.Selected()
	if err != nil {
		return DisplayThought{}, err
	}

	next := make([]DisplayThought, 0, len(l.Thoughts)-1)
	next = append(next, l.Thoughts[:l.Target]...)
	next = append(next, l.Thoughts[l.Target+1:]...)
	l.Thoughts = next
	l.clampTarget()

	return removed, nil
}

// ReplaceSelected swaps the row at Target for the edited entry.
func (l *List) ReplaceSelected(e domain.PersistedEntry, loc *time.Location) error {
	if _, err := l.Selected(); err != nil {
		return err
	}
	l.Thoughts[l.Target] = toDisplay(e, loc)
	return nil
}

func (l *List) clampTarget() {
	if l.Target >= len(l.Thoughts) {
		l.Target = len(l.Thoughts) - 1
	}
	if l.Target < 0 {
		l.Target = 0
	}
}
