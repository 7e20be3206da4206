package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"

	_ "modernc.org/sqlite" // pure Go driver, no CGO

	"github.com/caesar-terminal/offerwatch/internal/poll"
	"github.com/caesar-terminal/offerwatch/internal/tradeoffer"
)

// SQLiteStore keeps the cursor in two tables: a single-row poll_cursor and
// one offer_states row per tracked offer. Offer ids are stored as text
// since they may not fit a signed 64-bit column.
type SQLiteStore struct {
	db *sql.DB
	mu sync.Mutex
}

func NewSQLiteStore(path string) (*SQLiteStore, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := createTables(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: create tables: %w", err)
	}
	slog.Info("sqlite store initialised", "path", path)
	return &SQLiteStore{db: db}, nil
}

func createTables(db *sql.DB) error {
	_, err := db.Exec(`
	CREATE TABLE IF NOT EXISTS poll_cursor (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		offers_since INTEGER NOT NULL DEFAULT 0,
		last_poll INTEGER NOT NULL DEFAULT 0,
		last_poll_full_update INTEGER NOT NULL DEFAULT 0
	);
	CREATE TABLE IF NOT EXISTS offer_states (
		offer_id TEXT PRIMARY KEY,
		state INTEGER NOT NULL
	);`)
	return err
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Load(ctx context.Context) (poll.Data, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d := poll.NewData()
	var since, last, full int64
	err := s.db.QueryRowContext(ctx,
		`SELECT offers_since, last_poll, last_poll_full_update FROM poll_cursor WHERE id = 1`,
	).Scan(&since, &last, &full)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return d, nil
	case err != nil:
		return poll.Data{}, fmt.Errorf("store: query cursor: %w", err)
	}
	d.OffersSince = fromUnix(since)
	d.LastPoll = fromUnix(last)
	d.LastPollFullUpdate = fromUnix(full)

	rows, err := s.db.QueryContext(ctx, `SELECT offer_id, state FROM offer_states`)
	if err != nil {
		return poll.Data{}, fmt.Errorf("store: query states: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var idText string
		var state int64
		if err := rows.Scan(&idText, &state); err != nil {
			return poll.Data{}, fmt.Errorf("store: scan state: %w", err)
		}
		id, err := strconv.ParseUint(idText, 10, 64)
		if err != nil {
			return poll.Data{}, fmt.Errorf("store: offer id %q: %w", idText, err)
		}
		d.StateMap[id] = tradeoffer.State(state)
	}
	if err := rows.Err(); err != nil {
		return poll.Data{}, fmt.Errorf("store: iterate states: %w", err)
	}
	return d, nil
}

// Save replaces the stored cursor in one transaction.
func (s *SQLiteStore) Save(ctx context.Context, d poll.Data) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO poll_cursor (id, offers_since, last_poll, last_poll_full_update)
		VALUES (1, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			offers_since = excluded.offers_since,
			last_poll = excluded.last_poll,
			last_poll_full_update = excluded.last_poll_full_update`,
		unixOrZero(d.OffersSince), unixOrZero(d.LastPoll), unixOrZero(d.LastPollFullUpdate))
	if err != nil {
		return fmt.Errorf("store: write cursor: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM offer_states`); err != nil {
		return fmt.Errorf("store: clear states: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO offer_states (offer_id, state) VALUES (?, ?)`)
	if err != nil {
		return fmt.Errorf("store: prepare: %w", err)
	}
	defer stmt.Close()
	for id, state := range d.StateMap {
		if _, err := stmt.ExecContext(ctx, strconv.FormatUint(id, 10), int64(state)); err != nil {
			return fmt.Errorf("store: write state %d: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: commit: %w", err)
	}
	return nil
}

var _ poll.Store = (*SQLiteStore)(nil)
