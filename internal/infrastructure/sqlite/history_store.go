package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/zjrosen/waypoint/internal/log"
	"github.com/zjrosen/waypoint/internal/view"
)

// HistoryStore is a view.History persisted in SQLite, so the last screen
// and the back/forward trail survive restarts. Entries are grouped by
// scope, one per itinerary file.
type HistoryStore struct {
	db         *sql.DB
	scope      string
	maxEntries int

	mu        sync.Mutex
	listeners map[int]func(view.Entry)
	nextID    int
}

var _ view.History = (*HistoryStore)(nil)

// HistoryStore returns a store for scope. maxEntries bounds the kept
// entries; zero keeps all.
func (db *DB) HistoryStore(scope string, maxEntries int) *HistoryStore {
	return &HistoryStore{
		db:         db.conn,
		scope:      scope,
		maxEntries: maxEntries,
		listeners:  make(map[int]func(view.Entry)),
	}
}

func scanHistory(scanner interface{ Scan(...any) error }) (*HistoryModel, error) {
	var m HistoryModel
	err := scanner.Scan(&m.ID, &m.Scope, &m.Position, &m.View, &m.Data, &m.Token, &m.CreatedAt)
	return &m, err
}

const historyColumns = `id, scope, position, view, data, token, created_at`

// cursor returns the current position, or -1 for an empty history.
func (s *HistoryStore) cursor(ctx context.Context, q interface {
	QueryRowContext(context.Context, string, ...any) *sql.Row
}) (int64, error) {
	var pos int64
	err := q.QueryRowContext(ctx, `SELECT position FROM history_cursors WHERE scope = ?`, s.scope).Scan(&pos)
	if errors.Is(err, sql.ErrNoRows) {
		return -1, nil
	}
	return pos, err
}

// Read returns the entry at the cursor.
func (s *HistoryStore) Read() (view.Entry, bool) {
	ctx := context.Background()
	row := s.db.QueryRowContext(ctx,
		`SELECT e.id, e.scope, e.position, e.view, e.data, e.token, e.created_at FROM history_entries e
		 JOIN history_cursors c ON c.scope = e.scope AND c.position = e.position
		 WHERE e.scope = ?`, s.scope)
	m, err := scanHistory(row)
	if errors.Is(err, sql.ErrNoRows) {
		return view.Entry{}, false
	}
	if err != nil {
		log.ErrorErr(log.CatDB, "Failed to read history", err, "scope", s.scope)
		return view.Entry{}, false
	}
	return m.toEntry(), true
}

// Write records entry. WritePush drops forward entries and appends;
// WriteReplace overwrites the entry at the cursor. WriteBack moves the
// cursor to the previous entry and overwrites it, or replaces the current
// entry when there is no previous one.
func (s *HistoryStore) Write(entry view.Entry, mode view.WriteMode) error {
	ctx := context.Background()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin history write: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	pos, err := s.cursor(ctx, tx)
	if err != nil {
		return fmt.Errorf("read history cursor: %w", err)
	}

	now := time.Now().Unix()
	if mode == view.WriteBack && pos > 0 {
		var exists int
		err := tx.QueryRowContext(ctx,
			`SELECT 1 FROM history_entries WHERE scope = ? AND position = ?`, s.scope, pos-1).Scan(&exists)
		switch {
		case err == nil:
			pos--
			if err := s.setCursor(ctx, tx, pos, now); err != nil {
				return err
			}
		case !errors.Is(err, sql.ErrNoRows):
			return fmt.Errorf("read previous history entry: %w", err)
		}
	}
	if mode != view.WritePush && pos >= 0 {
		m, err := toHistoryModel(s.scope, pos, entry, now)
		if err != nil {
			return fmt.Errorf("encode history entry: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE history_entries SET view = ?, data = ?, token = ?, created_at = ? WHERE scope = ? AND position = ?`,
			m.View, m.Data, m.Token, m.CreatedAt, s.scope, pos,
		); err != nil {
			return fmt.Errorf("replace history entry: %w", err)
		}
		return tx.Commit()
	}

	next := pos + 1
	if _, err := tx.ExecContext(ctx, `DELETE FROM history_entries WHERE scope = ? AND position >= ?`, s.scope, next); err != nil {
		return fmt.Errorf("truncate forward history: %w", err)
	}
	m, err := toHistoryModel(s.scope, next, entry, now)
	if err != nil {
		return fmt.Errorf("encode history entry: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO history_entries (scope, position, view, data, token, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		m.Scope, m.Position, m.View, m.Data, m.Token, m.CreatedAt,
	); err != nil {
		return fmt.Errorf("insert history entry: %w", err)
	}
	if err := s.setCursor(ctx, tx, next, now); err != nil {
		return err
	}
	if s.maxEntries > 0 {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM history_entries WHERE scope = ? AND position <= ?`,
			s.scope, next-int64(s.maxEntries),
		); err != nil {
			return fmt.Errorf("trim history: %w", err)
		}
	}
	return tx.Commit()
}

func (s *HistoryStore) setCursor(ctx context.Context, tx *sql.Tx, pos, now int64) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO history_cursors (scope, position, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(scope) DO UPDATE SET position = excluded.position, updated_at = excluded.updated_at`,
		s.scope, pos, now,
	)
	if err != nil {
		return fmt.Errorf("update history cursor: %w", err)
	}
	return nil
}

// OnExternalChange registers fn for Back and Forward moves.
func (s *HistoryStore) OnExternalChange(fn func(view.Entry)) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

// Back moves the cursor one entry back and notifies listeners.
func (s *HistoryStore) Back() (bool, error) {
	return s.move(-1)
}

// Forward moves the cursor one entry forward and notifies listeners.
func (s *HistoryStore) Forward() (bool, error) {
	return s.move(1)
}

func (s *HistoryStore) move(delta int64) (bool, error) {
	ctx := context.Background()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin history move: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	pos, err := s.cursor(ctx, tx)
	if err != nil {
		return false, fmt.Errorf("read history cursor: %w", err)
	}
	if pos < 0 {
		return false, nil
	}

	row := tx.QueryRowContext(ctx,
		`SELECT `+historyColumns+` FROM history_entries WHERE scope = ? AND position = ?`,
		s.scope, pos+delta)
	m, err := scanHistory(row)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read history entry: %w", err)
	}
	if err := s.setCursor(ctx, tx, m.Position, time.Now().Unix()); err != nil {
		return false, err
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit history move: %w", err)
	}

	entry := m.toEntry()
	s.mu.Lock()
	listeners := make([]func(view.Entry), 0, len(s.listeners))
	for _, fn := range s.listeners {
		listeners = append(listeners, fn)
	}
	s.mu.Unlock()

	log.Debug(log.CatHistory, "History moved", "scope", s.scope, "view", entry.View, "delta", delta)
	for _, fn := range listeners {
		fn(entry)
	}
	return true, nil
}

// Entries returns every stored entry, oldest first.
func (s *HistoryStore) Entries() ([]view.Entry, error) {
	rows, err := s.db.QueryContext(context.Background(),
		`SELECT `+historyColumns+` FROM history_entries WHERE scope = ? ORDER BY position`, s.scope)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []view.Entry
	for rows.Next() {
		m, err := scanHistory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		entries = append(entries, m.toEntry())
	}
	return entries, rows.Err()
}

// Clear removes every entry and the cursor for the scope.
func (s *HistoryStore) Clear() error {
	ctx := context.Background()
	if _, err := s.db.ExecContext(ctx, `DELETE FROM history_entries WHERE scope = ?`, s.scope); err != nil {
		return fmt.Errorf("clear history: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM history_cursors WHERE scope = ?`, s.scope); err != nil {
		return fmt.Errorf("clear history cursor: %w", err)
	}
	return nil
}
