// Package store implements the embedded event store: four append-only event
// tables plus the ingestion cursor, reachable over sqlite (default), mysql
// or postgresql backends.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/fedora-infra/orphanstats/schema"
	_ "github.com/go-sql-driver/mysql" // MySQL driver
	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver
	_ "github.com/mattn/go-sqlite3"    // SQLite driver
)

// TimeFormat is the canonical representation of event timestamps in the
// store. Everything is normalized to UTC before formatting, so stored
// values compare correctly as strings across all backends.
const TimeFormat = time.RFC3339

// validTableName guards identifiers that get interpolated into SQL.
var validTableName = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// Store is a handle on the event database.
type Store struct {
	db      *sql.DB
	backend schema.DatabaseBackend
}

// Open connects to the event store, verifies the connection and brings the
// schema up to date. For the sqlite backend connStr is the database file
// path; for mysql and postgresql it is the driver DSN.
func Open(backend schema.DatabaseBackend, connStr string) (*Store, error) {
	db, err := openDB(backend, connStr)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to %s event store: %w", backend, err)
	}

	if err := migrateUp(db, backend); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &Store{db: db, backend: backend}
	if err := s.ensureIndexes(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func openDB(backend schema.DatabaseBackend, connStr string) (*sql.DB, error) {
	switch backend {
	case schema.SQLiteBackend:
		db, err := sql.Open("sqlite3", connStr)
		if err != nil {
			return nil, fmt.Errorf("failed to open SQLite event store at %q: %w", connStr, err)
		}
		// A single connection avoids "database is locked" errors; the whole
		// pipeline is sequential anyway.
		db.SetMaxOpenConns(1)
		return db, nil

	case schema.MySQLBackend:
		db, err := sql.Open("mysql", connStr)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to MySQL event store: %w. Check connection format: user:password@tcp(host:port)/dbname", err)
		}
		return db, nil

	case schema.PostgreSQLBackend:
		db, err := sql.Open("pgx", connStr)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to PostgreSQL event store: %w. Check connection format: host=localhost port=5432 user=postgres dbname=mydb", err)
		}
		return db, nil

	default:
		return nil, fmt.Errorf("unsupported event store backend: %s. Must be sqlite, mysql or postgresql", backend)
	}
}

// DB exposes the underlying connection for read-only aggregation queries.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Backend returns the backend the store was opened with.
func (s *Store) Backend() schema.DatabaseBackend {
	return s.backend
}

// Close closes the underlying connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Rebind converts a query written with ? placeholders to the placeholder
// style of the backend.
func (s *Store) Rebind(query string) string {
	return Rebind(s.backend, query)
}

// Rebind converts ? placeholders to $n for postgresql; sqlite and mysql
// keep them as is.
func Rebind(backend schema.DatabaseBackend, query string) string {
	if backend != schema.PostgreSQLBackend {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Cursor is the resumable ingestion position for one topic: the timestamp
// of the last event committed durably. Restarting from it re-fetches a
// window that overlaps the last page; msgid dedup absorbs the overlap.
type Cursor struct {
	Topic    string
	LastTime time.Time
}

// insertQuery returns the duplicate-tolerant insert for the backend.
// Re-inserting an already-seen msgid is a silent no-op, never an error.
func (s *Store) insertQuery(table string) string {
	const cols = "(msgid, timestamp, year, month, actor, package) VALUES (?, ?, ?, ?, ?, ?)"
	switch s.backend {
	case schema.MySQLBackend:
		return fmt.Sprintf("INSERT IGNORE INTO %s %s", table, cols)
	case schema.PostgreSQLBackend:
		return s.Rebind(fmt.Sprintf("INSERT INTO %s %s ON CONFLICT (msgid) DO NOTHING", table, cols))
	default: // SQLite
		return fmt.Sprintf("INSERT OR IGNORE INTO %s %s", table, cols)
	}
}

// TableEvents pairs an event table with the records destined for it.
type TableEvents struct {
	Table  string
	Events []schema.Event
}

// SaveBatch stores one ingested page for a single table; see SavePage.
func (s *Store) SaveBatch(ctx context.Context, table string, events []schema.Event, cursor *Cursor) (int, error) {
	return s.SavePage(ctx, []TableEvents{{Table: table, Events: events}}, cursor)
}

// SavePage stores one ingested page atomically: every batch is inserted
// into its table (duplicate msgids ignored) and, when cursor is non-nil,
// the topic cursor is advanced in the same transaction. It returns the
// number of rows actually inserted.
func (s *Store) SavePage(ctx context.Context, batches []TableEvents, cursor *Cursor) (int, error) {
	for _, b := range batches {
		if !validTableName.MatchString(b.Table) {
			return 0, fmt.Errorf("invalid table name: %q", b.Table)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	inserted := 0
	for _, b := range batches {
		query := s.insertQuery(b.Table)
		for _, ev := range b.Events {
			res, err := tx.ExecContext(ctx, query,
				ev.MsgID,
				ev.Timestamp.UTC().Format(TimeFormat),
				ev.Year,
				ev.Month,
				ev.Actor,
				ev.Package,
			)
			if err != nil {
				return 0, fmt.Errorf("failed to insert event %s into %s: %w", ev.MsgID, b.Table, err)
			}
			if n, err := res.RowsAffected(); err == nil {
				inserted += int(n)
			}
		}
	}

	if cursor != nil {
		if err := s.saveCursorTx(ctx, tx, cursor); err != nil {
			return 0, err
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit page: %w", err)
	}
	return inserted, nil
}

// cursorUpsertQuery returns the backend-specific upsert for ingest_cursor.
func (s *Store) cursorUpsertQuery() string {
	switch s.backend {
	case schema.MySQLBackend:
		return `INSERT INTO ingest_cursor (topic, last_time) VALUES (?, ?) AS new
			ON DUPLICATE KEY UPDATE last_time = new.last_time`
	case schema.PostgreSQLBackend:
		return `INSERT INTO ingest_cursor (topic, last_time) VALUES ($1, $2)
			ON CONFLICT (topic) DO UPDATE SET last_time = EXCLUDED.last_time`
	default: // SQLite
		return `INSERT OR REPLACE INTO ingest_cursor (topic, last_time) VALUES (?, ?)`
	}
}

func (s *Store) saveCursorTx(ctx context.Context, tx *sql.Tx, cursor *Cursor) error {
	_, err := tx.ExecContext(ctx, s.cursorUpsertQuery(), cursor.Topic, cursor.LastTime.UTC().Format(TimeFormat))
	if err != nil {
		return fmt.Errorf("failed to save cursor for %s: %w", cursor.Topic, err)
	}
	return nil
}

// CursorFor returns the stored cursor time for a topic. The second return
// is false when no cursor has been recorded yet.
func (s *Store) CursorFor(ctx context.Context, topic string) (time.Time, bool, error) {
	var raw string
	query := s.Rebind("SELECT last_time FROM ingest_cursor WHERE topic = ?")
	err := s.db.QueryRowContext(ctx, query, topic).Scan(&raw)
	if err == sql.ErrNoRows {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("failed to read cursor for %s: %w", topic, err)
	}
	ts, err := time.Parse(TimeFormat, raw)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("corrupt cursor value %q for %s: %w", raw, topic, err)
	}
	return ts, true, nil
}

// TableStatus is the row count and time span of one event table.
type TableStatus struct {
	Table string
	Rows  int
	First time.Time
	Last  time.Time
}

// Status reports row counts and time spans for every event table.
func (s *Store) Status(ctx context.Context) ([]TableStatus, error) {
	statuses := make([]TableStatus, 0, len(schema.EventTables))
	for _, table := range schema.EventTables {
		st := TableStatus{Table: table}
		query := fmt.Sprintf("SELECT COUNT(*), COALESCE(MIN(timestamp), ''), COALESCE(MAX(timestamp), '') FROM %s", table)
		var first, last string
		if err := s.db.QueryRowContext(ctx, query).Scan(&st.Rows, &first, &last); err != nil {
			return nil, fmt.Errorf("failed to inspect %s: %w", table, err)
		}
		if first != "" {
			st.First, _ = time.Parse(TimeFormat, first)
			st.Last, _ = time.Parse(TimeFormat, last)
		}
		statuses = append(statuses, st)
	}
	return statuses, nil
}
