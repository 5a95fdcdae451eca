package eventstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"sync"
	"time"

	"git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS build_events (
	seq         INTEGER PRIMARY KEY AUTOINCREMENT,
	build_id    TEXT    NOT NULL,
	type        TEXT    NOT NULL,
	occurred_at INTEGER NOT NULL,
	payload     BLOB    NOT NULL,
	metadata    TEXT
);
CREATE INDEX IF NOT EXISTS idx_build_events_build ON build_events(build_id);
CREATE INDEX IF NOT EXISTS idx_build_events_at ON build_events(occurred_at);
`

const selectEvents = "SELECT seq, build_id, type, occurred_at, payload, metadata FROM build_events "

// SQLiteStore implements Store on a SQLite database.
type SQLiteStore struct {
	db *sql.DB
	mu sync.RWMutex
}

// NewSQLiteStore opens (creating if needed) the history database at
// dbPath. ":memory:" gives a private in-memory database.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, storeError(err, "open build history database").WithContext("path", dbPath).Build()
	}
	// An in-memory database lives only as long as its connection.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, storeError(err, "initialize build history schema").WithContext("path", dbPath).Build()
	}
	return &SQLiteStore{db: db}, nil
}

func storeError(err error, msg string) *errors.ErrorBuilder {
	return errors.WrapError(err, errors.CategoryEventStore, msg)
}

// Append writes events in one transaction. Events with a zero At are
// stamped with the current time.
func (s *SQLiteStore) Append(ctx context.Context, events ...Event) error {
	if len(events) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return storeError(err, "begin append").Build()
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO build_events (build_id, type, occurred_at, payload, metadata) VALUES (?, ?, ?, ?, ?)")
	if err != nil {
		return storeError(err, "prepare append").Build()
	}
	defer func() { _ = stmt.Close() }()

	for _, e := range events {
		at := e.At
		if at.IsZero() {
			at = time.Now()
		}
		var meta []byte
		if len(e.Metadata) > 0 {
			if meta, err = json.Marshal(e.Metadata); err != nil {
				return storeError(err, "marshal event metadata").Build()
			}
		}
		payload := []byte(e.Payload)
		if payload == nil {
			payload = []byte("null")
		}
		if _, err := stmt.ExecContext(ctx, e.BuildID, e.Type, at.UnixNano(), payload, meta); err != nil {
			return storeError(err, "append event").
				WithContext("build_id", e.BuildID).
				WithContext("event_type", e.Type).
				Build()
		}
	}
	if err := tx.Commit(); err != nil {
		return storeError(err, "commit append").Build()
	}
	return nil
}

// ByBuild returns the events of buildID.
func (s *SQLiteStore) ByBuild(ctx context.Context, buildID string) ([]Event, error) {
	return s.query(ctx, selectEvents+"WHERE build_id = ? ORDER BY seq", buildID)
}

// Between returns the events that occurred in [from, to].
func (s *SQLiteStore) Between(ctx context.Context, from, to time.Time) ([]Event, error) {
	var lo int64
	if !from.IsZero() {
		lo = from.UnixNano()
	}
	return s.query(ctx, selectEvents+"WHERE occurred_at >= ? AND occurred_at <= ? ORDER BY seq", lo, to.UnixNano())
}

// Prune keeps the events of the keep builds recorded last.
func (s *SQLiteStore) Prune(ctx context.Context, keep int) (int64, error) {
	if keep < 0 {
		keep = 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		DELETE FROM build_events WHERE build_id NOT IN (
			SELECT build_id FROM build_events GROUP BY build_id ORDER BY MAX(seq) DESC LIMIT ?
		)`, keep)
	if err != nil {
		return 0, storeError(err, "prune build history").Build()
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, storeError(err, "prune build history").Build()
	}
	return n, nil
}

func (s *SQLiteStore) query(ctx context.Context, q string, args ...any) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, storeError(err, "query build history").Build()
	}
	defer func() { _ = rows.Close() }()

	var events []Event
	for rows.Next() {
		var (
			e             Event
			at            int64
			payload, meta []byte
		)
		if err := rows.Scan(&e.Seq, &e.BuildID, &e.Type, &at, &payload, &meta); err != nil {
			return nil, storeError(err, "scan event").Build()
		}
		e.At = time.Unix(0, at)
		e.Payload = payload
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &e.Metadata); err != nil {
				return nil, storeError(err, "decode event metadata").WithContext("seq", e.Seq).Build()
			}
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, storeError(err, "read build history").Build()
	}
	return events, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}
