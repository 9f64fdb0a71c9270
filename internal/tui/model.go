// Package tui is the terminal thoughts page: it lists entries fetched from the
// journal API and lets the user edit or delete them.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/pbaille/journal/internal/domain"
	"github.com/pbaille/journal/internal/thoughts"
	"go.uber.org/zap"

	tea "github.com/charmbracelet/bubbletea"
)

// Backend is the API the page talks to. *client.Client satisfies it.
type Backend interface {
	Entries(ctx context.Context) ([]domain.PersistedEntry, error)
	Competencies(ctx context.Context) ([]domain.Competency, error)
	DeleteEntry(ctx context.Context, id int64) error
	UpdateEntry(ctx context.Context, id int64, text string, competencyIDs []int64) (*domain.PersistedEntry, error)
}

// Mode is what the keyboard currently drives.
type Mode int

const (
	ModeList Mode = iota
	ModeConfirmDelete
	ModeEdit
)

// Model is the root bubbletea model for the thoughts page.
type Model struct {
	backend Backend
	loc     *time.Location
	timeout time.Duration
	logger  *zap.Logger

	list thoughts.List

	// Loading state, one flag per independent read
	loadingThoughts     bool
	loadingCompetencies bool

	// Pending write, 0 when idle
	pendingID int64

	mode   Mode
	editor textinput.Model

	statusText   string
	errorMessage string
	clearAfter   time.Duration

	width  int
	height int
}

// New creates a Model. Nothing is fetched until Init.
func New(backend Backend, loc *time.Location, timeout time.Duration, logger *zap.Logger) Model {
	ti := textinput.New()
	ti.Prompt = "│ "
	ti.CharLimit = 4096
	ti.Width = 72

	if logger == nil {
		logger = zap.NewNop()
	}

	return Model{
		backend:             backend,
		loc:                 loc,
		timeout:             timeout,
		logger:              logger,
		loadingThoughts:     true,
		loadingCompetencies: true,
		editor:              ti,
		clearAfter:          4 * time.Second,
	}
}

// Init fires the two independent reads.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		loadThoughtsCmd(m.backend, m.timeout),
		fetchCompetenciesCmd(m.backend, m.timeout),
	)
}

// List exposes the page state.
func (m Model) List() thoughts.List {
	return m.list
}

// Mode reports the current input mode.
func (m Model) Mode() Mode {
	return m.mode
}

// requestContext bounds one backend call. A non-positive timeout means no deadline.
func requestContext(timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(context.Background())
	}
	return context.WithTimeout(context.Background(), timeout)
}

func loadThoughtsCmd(b Backend, timeout time.Duration) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := requestContext(timeout)
		defer cancel()
		entries, err := b.Entries(ctx)
		return ThoughtsLoadedMsg{Entries: entries, Err: err}
	}
}

func fetchCompetenciesCmd(b Backend, timeout time.Duration) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := requestContext(timeout)
		defer cancel()
		competencies, err := b.Competencies(ctx)
		return CompetenciesLoadedMsg{Competencies: competencies, Err: err}
	}
}

func deleteEntryCmd(b Backend, timeout time.Duration, id int64) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := requestContext(timeout)
		defer cancel()
		return EntryDeletedMsg{ID: id, Err: b.DeleteEntry(ctx, id)}
	}
}

func updateEntryCmd(b Backend, timeout time.Duration, id int64, text string, ids []int64) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := requestContext(timeout)
		defer cancel()
		entry, err := b.UpdateEntry(ctx, id, text, ids)
		return EntryUpdatedMsg{ID: id, Entry: entry, Err: err}
	}
}

// clearStatusCmd fires after d to clear the status line. Zero keeps it.
func clearStatusCmd(d time.Duration) tea.Cmd {
	if d <= 0 {
		return nil
	}
	return tea.Tick(d, func(time.Time) tea.Msg {
		return ClearStatusMsg{}
	})
}

// Update processes messages and returns the updated model and any commands.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.editor.Width = max(20, msg.Width-4)
		return m, nil

	case ThoughtsLoadedMsg:
		m.loadingThoughts = false
		if msg.Err != nil {
			m.logger.Warn("load thoughts", zap.Error(msg.Err))
			m.errorMessage = "Could not load thoughts: " + msg.Err.Error()
			return m, nil
		}
		m.list.SetEntries(msg.Entries, m.loc)
		m.logger.Debug("loaded thoughts", zap.Int("count", len(msg.Entries)))
		return m, nil

	case CompetenciesLoadedMsg:
		m.loadingCompetencies = false
		if msg.Err != nil {
			m.logger.Warn("load competencies", zap.Error(msg.Err))
			m.errorMessage = "Could not load competencies: " + msg.Err.Error()
			return m, nil
		}
		m.list.SetCompetencies(msg.Competencies)
		return m, nil

	case EntryDeletedMsg:
		m.pendingID = 0
		if msg.Err != nil {
			m.logger.Error("delete thought", zap.Int64("id", msg.ID), zap.Error(msg.Err))
			m.errorMessage = "Delete failed: " + msg.Err.Error()
			return m, nil
		}
		if err := m.list.Select(m.list.IndexOf(msg.ID)); err == nil {
			m.list.RemoveSelected()
		}
		m.statusText = "Thought deleted"
		return m, clearStatusCmd(m.clearAfter)

	case EntryUpdatedMsg:
		m.pendingID = 0
		if msg.Err != nil {
			m.logger.Error("edit thought", zap.Int64("id", msg.ID), zap.Error(msg.Err))
			m.errorMessage = "Edit failed: " + msg.Err.Error()
			return m, nil
		}
		if err := m.list.Select(m.list.IndexOf(msg.ID)); err == nil {
			m.list.ReplaceSelected(*msg.Entry, m.loc)
		}
		m.statusText = "Thought saved"
		return m, clearStatusCmd(m.clearAfter)

	case ClearStatusMsg:
		m.statusText = ""
		return m, nil
	}

	if m.mode == ModeEdit {
		var cmd tea.Cmd
		m.editor, cmd = m.editor.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	if key == KeyCtrlC {
		return m, tea.Quit
	}

	switch m.mode {
	case ModeEdit:
		return m.handleEditKey(msg)
	case ModeConfirmDelete:
		return m.handleConfirmKey(key)
	}

	switch key {
	case KeyQuit:
		return m, tea.Quit

	case KeyUp, KeyK:
		m.list.Select(m.list.Target - 1)

	case KeyDown, KeyJ:
		m.list.Select(m.list.Target + 1)

	case KeyReload:
		if m.loadingThoughts || m.loadingCompetencies {
			return m, nil
		}
		m.loadingThoughts = true
		m.loadingCompetencies = true
		m.errorMessage = ""
		return m, m.Init()

	case KeyDelete:
		if m.pendingID != 0 {
			return m, nil
		}
		if _, err := m.list.Selected(); err != nil {
			return m, nil
		}
		m.mode = ModeConfirmDelete

	case KeyEdit:
		if m.pendingID != 0 {
			return m, nil
		}
		selected, err := m.list.Selected()
		if err != nil {
			return m, nil
		}
		m.mode = ModeEdit
		m.editor.SetValue(selected.Text)
		m.editor.CursorEnd()
		return m, m.editor.Focus()
	}

	return m, nil
}

func (m Model) handleConfirmKey(key string) (tea.Model, tea.Cmd) {
	m.mode = ModeList
	if key != KeyYes {
		return m, nil
	}

	selected, err := m.list.Selected()
	if err != nil {
		return m, nil
	}
	m.pendingID = selected.ID
	m.errorMessage = ""
	return m, deleteEntryCmd(m.backend, m.timeout, selected.ID)
}

func (m Model) handleEditKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case KeyEsc:
		m.mode = ModeList
		m.editor.Blur()
		return m, nil

	case KeyEnter:
		text := strings.TrimSpace(m.editor.Value())
		if text == "" {
			m.errorMessage = "A thought needs some text."
			return m, nil
		}
		selected, err := m.list.Selected()
		if err != nil {
			m.mode = ModeList
			return m, nil
		}
		m.mode = ModeList
		m.editor.Blur()
		m.pendingID = selected.ID
		m.errorMessage = ""
		return m, updateEntryCmd(m.backend, m.timeout, selected.ID, text, selected.Competencies)
	}

	var cmd tea.Cmd
	m.editor, cmd = m.editor.Update(msg)
	return m, cmd
}

// View renders the page.
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(TitleStyle.Render("All My Thoughts"))
	b.WriteString("\n")

	if m.errorMessage != "" {
		b.WriteString(ErrorStyle.Render(m.errorMessage))
		b.WriteString("\n")
	}
	if m.statusText != "" {
		b.WriteString(StatusStyle.Render(m.statusText))
		b.WriteString("\n")
	}

	switch {
	case m.loadingThoughts:
		b.WriteString(PlaceholderStyle.Render("Loading thoughts..."))
		b.WriteString("\n")
	case m.list.Empty():
		b.WriteString(PlaceholderStyle.Render(thoughts.EmptyPlaceholder))
		b.WriteString("\n")
	default:
		for i, t := range m.list.Thoughts {
			b.WriteString(m.renderThought(i, t))
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	b.WriteString(m.renderFooter())
	return b.String()
}

func (m Model) renderThought(index int, t thoughts.DisplayThought) string {
	var b strings.Builder

	cursor := "  "
	textStyle := TextStyle
	if index == m.list.Target {
		cursor = "> "
		textStyle = SelectedTextStyle
	}

	if m.mode == ModeEdit && index == m.list.Target {
		b.WriteString(cursor + m.editor.View())
	} else {
		b.WriteString(cursor + textStyle.Render(t.Text))
	}
	b.WriteString("\n  " + TimeStyle.Render(t.Time) + "\n")

	if len(t.Competencies) > 0 {
		b.WriteString("  " + CompetencyLabelStyle.Render("Competencies: ") + m.list.CompetencyLine(t) + "\n")
	}
	return b.String()
}

func (m Model) renderFooter() string {
	key := func(k, desc string) string {
		return FooterKeyStyle.Render(k) + " " + FooterDescStyle.Render(desc)
	}

	switch m.mode {
	case ModeConfirmDelete:
		selected, _ := m.list.Selected()
		return DeleteKeyStyle.Render("Delete") + fmt.Sprintf(" %q? ", thoughts.Truncate(selected.Text, 40)) +
			key(KeyYes, "yes") + "  " + key(KeyNo, "no")
	case ModeEdit:
		return key(KeyEnter, "save") + "  " + key(KeyEsc, "cancel")
	}

	parts := []string{
		key("↑/↓", "select"),
		EditKeyStyle.Render(KeyEdit) + " " + FooterDescStyle.Render("edit"),
		DeleteKeyStyle.Render(KeyDelete) + " " + FooterDescStyle.Render("delete"),
		key(KeyReload, "reload"),
		key(KeyQuit, "quit"),
	}
	return strings.Join(parts, "  ")
}

// ErrNoBackend is returned by Run when the page has nothing to talk to.
var ErrNoBackend = errors.New("no backend configured")

// Run starts the page on the terminal and blocks until the user quits.
func Run(m Model) error {
	if m.backend == nil {
		return ErrNoBackend
	}
	_, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}
