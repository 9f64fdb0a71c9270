package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pbaille/journal/internal/domain"
)

//go:embed schema.sql
var schema string

var (
	// ErrNotFound is returned when an entry or competency does not exist
	ErrNotFound = errors.New("not found")
	// ErrUnknownCompetency is returned when a write references a competency outside the catalog
	ErrUnknownCompetency = errors.New("unknown competency")
	// ErrEmptyText is returned when an entry has no text
	ErrEmptyText = errors.New("text is required")
)

// Store handles database operations
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// New creates a new Store with the given database path
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", "file:"+dbPath+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Initialize schema and seed the competency catalog
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return &Store{db: db, now: time.Now}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// AddEntry creates a new entry and returns it
func (s *Store) AddEntry(ctx context.Context, text string, competencyIDs []int64) (*domain.Entry, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyText
	}
	ids := dedupe(competencyIDs)
	now := s.now().UTC()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if err := checkCompetencies(ctx, tx, ids); err != nil {
		return nil, err
	}

	res, err := tx.ExecContext(ctx,
		"INSERT INTO entries (text, created_at) VALUES (?, ?)",
		text, now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert entry: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("insert entry: %w", err)
	}

	if err := linkCompetencies(ctx, tx, id, ids); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	return &domain.Entry{
		ID:           id,
		Text:         text,
		CreatedAt:    now,
		Competencies: ids,
	}, nil
}

// GetEntry retrieves an entry by ID with its competencies
func (s *Store) GetEntry(ctx context.Context, id int64) (*domain.Entry, error) {
	var entry domain.Entry
	err := s.db.QueryRowContext(ctx,
		"SELECT id, text, created_at FROM entries WHERE id = ?",
		id,
	).Scan(&entry.ID, &entry.Text, &entry.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("entry %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get entry: %w", err)
	}

	ids, err := s.entryCompetencies(ctx, id)
	if err != nil {
		return nil, err
	}
	entry.Competencies = ids

	return &entry, nil
}

// ListEntries returns entries in creation order. A limit <= 0 returns all of them.
func (s *Store) ListEntries(ctx context.Context, limit, offset int) ([]domain.Entry, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, text, created_at FROM entries ORDER BY id ASC LIMIT ? OFFSET ?",
		limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	entries, err := scanEntries(rows)
	if err != nil {
		return nil, err
	}
	return s.attachCompetencies(ctx, entries)
}

// SearchEntries performs a simple text search
func (s *Store) SearchEntries(ctx context.Context, query string) ([]domain.Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, text, created_at FROM entries WHERE text LIKE ? ORDER BY id ASC",
		"%"+query+"%",
	)
	if err != nil {
		return nil, fmt.Errorf("search entries: %w", err)
	}
	entries, err := scanEntries(rows)
	if err != nil {
		return nil, err
	}
	return s.attachCompetencies(ctx, entries)
}

// UpdateEntry replaces the text and competencies of an entry
func (s *Store) UpdateEntry(ctx context.Context, id int64, text string, competencyIDs []int64) (*domain.Entry, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyText
	}
	ids := dedupe(competencyIDs)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if err := checkCompetencies(ctx, tx, ids); err != nil {
		return nil, err
	}

	res, err := tx.ExecContext(ctx, "UPDATE entries SET text = ? WHERE id = ?", text, id)
	if err != nil {
		return nil, fmt.Errorf("update entry: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return nil, fmt.Errorf("update entry: %w", err)
	} else if n == 0 {
		return nil, fmt.Errorf("entry %d: %w", id, ErrNotFound)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM entry_competencies WHERE entry_id = ?", id); err != nil {
		return nil, fmt.Errorf("clear competencies: %w", err)
	}
	if err := linkCompetencies(ctx, tx, id, ids); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	return s.GetEntry(ctx, id)
}

// DeleteEntry removes an entry and its competency links
func (s *Store) DeleteEntry(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM entries WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete entry: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete entry: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("entry %d: %w", id, ErrNotFound)
	}
	return nil
}

// ListCompetencies returns the competency catalog ordered by id
func (s *Store) ListCompetencies(ctx context.Context) ([]domain.Competency, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, skill, description FROM competencies ORDER BY id",
	)
	if err != nil {
		return nil, fmt.Errorf("list competencies: %w", err)
	}
	defer rows.Close()

	var competencies []domain.Competency
	for rows.Next() {
		var c domain.Competency
		if err := rows.Scan(&c.ID, &c.Skill, &c.Description); err != nil {
			return nil, fmt.Errorf("scan competency: %w", err)
		}
		competencies = append(competencies, c)
	}

	return competencies, rows.Err()
}

// GetCompetency retrieves a single competency
func (s *Store) GetCompetency(ctx context.Context, id int64) (*domain.Competency, error) {
	var c domain.Competency
	err := s.db.QueryRowContext(ctx,
		"SELECT id, skill, description FROM competencies WHERE id = ?",
		id,
	).Scan(&c.ID, &c.Skill, &c.Description)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("competency %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get competency: %w", err)
	}
	return &c, nil
}

func (s *Store) entryCompetencies(ctx context.Context, entryID int64) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT competency_id FROM entry_competencies WHERE entry_id = ? ORDER BY position",
		entryID,
	)
	if err != nil {
		return nil, fmt.Errorf("get entry competencies: %w", err)
	}
	defer rows.Close()

	ids := []int64{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan competency id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// linkBatchSize bounds the ids bound in one IN query, well under SQLite's variable limit
var linkBatchSize = 500

// attachCompetencies loads the links for all entries, one query per batch of ids
func (s *Store) attachCompetencies(ctx context.Context, entries []domain.Entry) ([]domain.Entry, error) {
	index := make(map[int64]int, len(entries))
	for i, e := range entries {
		index[e.ID] = i
		entries[i].Competencies = []int64{}
	}

	for start := 0; start < len(entries); start += linkBatchSize {
		end := min(start+linkBatchSize, len(entries))
		if err := s.attachBatch(ctx, entries, index, entries[start:end]); err != nil {
			return nil, err
		}
	}
	return entries, nil
}

func (s *Store) attachBatch(ctx context.Context, entries []domain.Entry, index map[int64]int, batch []domain.Entry) error {
	args := make([]any, len(batch))
	for i, e := range batch {
		args[i] = e.ID
	}

	query := "SELECT entry_id, competency_id FROM entry_competencies WHERE entry_id IN (" +
		placeholders(len(args)) + ") ORDER BY entry_id, position"
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("list entry competencies: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var entryID, competencyID int64
		if err := rows.Scan(&entryID, &competencyID); err != nil {
			return fmt.Errorf("scan entry competency: %w", err)
		}
		i := index[entryID]
		entries[i].Competencies = append(entries[i].Competencies, competencyID)
	}
	return rows.Err()
}

func scanEntries(rows *sql.Rows) ([]domain.Entry, error) {
	defer rows.Close()

	entries := []domain.Entry{}
	for rows.Next() {
		var e domain.Entry
		if err := rows.Scan(&e.ID, &e.Text, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func checkCompetencies(ctx context.Context, tx *sql.Tx, ids []int64) error {
	for _, id := range ids {
		var exists int
		err := tx.QueryRowContext(ctx, "SELECT 1 FROM competencies WHERE id = ?", id).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("competency %d: %w", id, ErrUnknownCompetency)
		}
		if err != nil {
			return fmt.Errorf("check competency: %w", err)
		}
	}
	return nil
}

func linkCompetencies(ctx context.Context, tx *sql.Tx, entryID int64, ids []int64) error {
	for pos, id := range ids {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO entry_competencies (entry_id, competency_id, position) VALUES (?, ?, ?)",
			entryID, id, pos,
		)
		if err != nil {
			return fmt.Errorf("link competency %d: %w", id, err)
		}
	}
	return nil
}

// dedupe drops repeated ids, keeping first-seen order
func dedupe(ids []int64) []int64 {
	out := make([]int64, 0, len(ids))
	seen := make(map[int64]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
