package eventstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS build_events (
	seq         INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id      TEXT    NOT NULL,
	type        TEXT    NOT NULL,
	recorded_at INTEGER NOT NULL,
	payload     BLOB    NOT NULL,
	metadata    TEXT
);
CREATE INDEX IF NOT EXISTS build_events_run ON build_events(run_id, seq);
CREATE INDEX IF NOT EXISTS build_events_time ON build_events(recorded_at);
`

const selectEvents = "SELECT seq, run_id, type, recorded_at, payload, metadata FROM build_events"

// SQLiteStore implements Store on a single SQLite file.
type SQLiteStore struct {
	db  *sql.DB
	mu  sync.RWMutex
	now func() time.Time
}

// NewSQLiteStore opens (and creates when needed) the log at dbPath.
// ":memory:" gives a throwaway log for tests.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, wrap(ErrDatabaseOpenFailed, err)
	}
	// One writer at a time; for ":memory:" every extra connection would
	// also see its own empty database.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, wrap(ErrInitializeSchemaFailed, err)
	}
	return &SQLiteStore{db: db, now: time.Now}, nil
}

func (s *SQLiteStore) Append(ctx context.Context, runID, eventType string, payload []byte, metadata map[string]string) error {
	var meta []byte
	if len(metadata) > 0 {
		var err error
		if meta, err = json.Marshal(metadata); err != nil {
			return wrap(ErrMarshalPayloadFailed, err)
		}
	}
	if payload == nil {
		payload = []byte("{}")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO build_events (run_id, type, recorded_at, payload, metadata) VALUES (?, ?, ?, ?, ?)",
		runID, eventType, s.now().UnixMilli(), payload, meta)
	if err != nil {
		return wrap(ErrEventAppendFailed, err)
	}
	return nil
}

func (s *SQLiteStore) GetByRunID(ctx context.Context, runID string) ([]Event, error) {
	return s.query(ctx, selectEvents+" WHERE run_id = ? ORDER BY seq", runID)
}

func (s *SQLiteStore) GetRange(ctx context.Context, start, end time.Time) ([]Event, error) {
	return s.query(ctx, selectEvents+" WHERE recorded_at BETWEEN ? AND ? ORDER BY seq",
		start.UnixMilli(), end.UnixMilli())
}

func (s *SQLiteStore) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Whole runs go at once so History never sees a run without its start.
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM build_events WHERE run_id IN (
			SELECT run_id FROM build_events GROUP BY run_id HAVING MIN(recorded_at) < ?
		)`, cutoff.UnixMilli())
	if err != nil {
		return 0, wrap(ErrPruneFailed, err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

func (s *SQLiteStore) query(ctx context.Context, q string, args ...any) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, wrap(ErrEventQueryFailed, err)
	}
	defer func() { _ = rows.Close() }()

	var events []Event
	for rows.Next() {
		var (
			e    Event
			at   int64
			meta []byte
		)
		if err := rows.Scan(&e.ID, &e.RunID, &e.Type, &at, &e.Payload, &meta); err != nil {
			return nil, wrap(ErrEventScanFailed, err)
		}
		e.At = time.UnixMilli(at)
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &e.Metadata); err != nil {
				return nil, wrap(ErrEventScanFailed, err)
			}
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap(ErrEventScanFailed, err)
	}
	return events, nil
}

func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}
