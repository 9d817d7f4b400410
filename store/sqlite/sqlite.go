/*
Package sqlite provides a SQLite-backed attendance event store.

PURPOSE:
  Keeps imported attendance events so a month can be uploaded in several
  pieces (one export per week, corrections later) and computed once. It
  implements ingest.EventStore.

KEY TABLES:
  students:          One row per student ID, latest known names
  attendance_events: One row per (student, date, entry, exit)
  holidays:          Closed days excluded from the working-day count

IDEMPOTENCY:
  Re-importing the same export is harmless. Events are unique on
  (student_id, date, entry, exit) and duplicates are ignored.

READ PATH:
  Stored events are served as an ingest.Table (Source) and go through
  ingest.Normalize, exactly like an uploaded file. Times are stored as
  HH:MM[:SS] text; a missing exit is stored as "00:00".

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. SQLite is opened in WAL mode so
  readers don't block the single writer.

USAGE:
  store, err := sqlite.New("./data/stipend.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  n, err := store.SaveEvents(ctx, batch.Events)
  table, err := store.Source(generic.MonthPeriod(2024, time.April)).ReadTable(ctx)

SEE ALSO:
  - ingest/store.go: EventStore interface
  - store/memory: In-memory implementation for tests and dev
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/kollel/stipend-engine/generic"
	"github.com/kollel/stipend-engine/ingest"
	"github.com/kollel/stipend-engine/stipend"
)

// QueryObserver receives query timings. *metrics.Service satisfies it.
type QueryObserver interface {
	ObserveDBQuery(query string, elapsed time.Duration)
}

// Store implements ingest.EventStore using SQLite.
type Store struct {
	db       *sql.DB
	mu       sync.RWMutex
	observer QueryObserver
}

var _ ingest.EventStore = (*Store)(nil)

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A second connection to ":memory:" would see an empty database.
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate: %w", err)
	}
	return store, nil
}

// WithObserver attaches a query timing observer.
func (s *Store) WithObserver(o QueryObserver) *Store {
	s.observer = o
	return s
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS students (
		id TEXT PRIMARY KEY,
		last_name TEXT NOT NULL DEFAULT '',
		first_name TEXT NOT NULL DEFAULT '',
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS attendance_events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		student_id TEXT NOT NULL REFERENCES students(id),
		date TEXT NOT NULL,
		entry TEXT NOT NULL,
		exit TEXT NOT NULL,
		continuous BOOLEAN NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_events_unique
		ON attendance_events(student_id, date, entry, exit);

	CREATE INDEX IF NOT EXISTS idx_events_date
		ON attendance_events(date, student_id);

	CREATE TABLE IF NOT EXISTS holidays (
		date TEXT PRIMARY KEY,
		name TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *Store) observe(query string, start time.Time) {
	if s.observer != nil {
		s.observer.ObserveDBQuery(query, time.Since(start))
	}
}

// =============================================================================
// EVENTS
// =============================================================================

// SaveEvents stores events atomically. Names are upserted per student, with
// blank names never overwriting known ones. Returns the number of events
// that were not already stored.
func (s *Store) SaveEvents(ctx context.Context, events []stipend.AttendanceEvent) (int, error) {
	defer s.observe("save_events", time.Now())
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC().Format(time.RFC3339)
	inserted := 0
	for _, ev := range events {
		if ev.StudentID == "" || ev.Date.IsZero() {
			continue
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO students (id, last_name, first_name, updated_at)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				last_name = CASE WHEN excluded.last_name <> '' THEN excluded.last_name ELSE students.last_name END,
				first_name = CASE WHEN excluded.first_name <> '' THEN excluded.first_name ELSE students.first_name END,
				updated_at = excluded.updated_at
		`, string(ev.StudentID), ev.LastName, ev.FirstName, now)
		if err != nil {
			return 0, fmt.Errorf("failed to save student %s: %w", ev.StudentID, err)
		}

		res, err := tx.ExecContext(ctx, `
			INSERT OR IGNORE INTO attendance_events (student_id, date, entry, exit, continuous, created_at)
			VALUES (?, ?, ?, ?, ?, ?)
		`, string(ev.StudentID), ev.Date.String(), ev.Entry.String(), ev.Exit.String(), ev.Continuous, now)
		if err != nil {
			return 0, fmt.Errorf("failed to save event: %w", err)
		}
		if n, err := res.RowsAffected(); err == nil {
			inserted += int(n)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit events: %w", err)
	}
	return inserted, nil
}

// DeleteEvents removes the events dated within period.
func (s *Store) DeleteEvents(ctx context.Context, period generic.Period) (int, error) {
	defer s.observe("delete_events", time.Now())
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		"DELETE FROM attendance_events WHERE date >= ? AND date <= ?",
		period.Start.String(), period.End.String())
	if err != nil {
		return 0, fmt.Errorf("failed to delete events: %w", err)
	}
	n, err := res.RowsAffected()
	return int(n), err
}

// Source returns a table source over the events dated within period.
func (s *Store) Source(period generic.Period) ingest.Source {
	return &periodSource{store: s, period: period}
}

type periodSource struct {
	store  *Store
	period generic.Period
}

func (p *periodSource) ReadTable(ctx context.Context) (*ingest.Table, error) {
	return p.store.readTable(ctx, p.period)
}

func (s *Store) readTable(ctx context.Context, period generic.Period) (*ingest.Table, error) {
	defer s.observe("read_events", time.Now())
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT e.student_id, s.last_name, s.first_name, e.date, e.entry, e.exit, e.continuous
		FROM attendance_events e
		JOIN students s ON s.id = e.student_id
		WHERE e.date >= ? AND e.date <= ?
		ORDER BY e.student_id ASC, e.date ASC, e.entry ASC
	`, period.Start.String(), period.End.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	table := &ingest.Table{Header: append([]string(nil), ingest.EventHeader...)}
	for rows.Next() {
		var id, last, first, date, entry, exit string
		var continuous bool
		if err := rows.Scan(&id, &last, &first, &date, &entry, &exit, &continuous); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		table.Rows = append(table.Rows, []any{id, last, first, date, entry, exit, continuous})
	}
	return table, rows.Err()
}

// CountEvents returns the number of stored events within period.
func (s *Store) CountEvents(ctx context.Context, period generic.Period) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM attendance_events WHERE date >= ? AND date <= ?",
		period.Start.String(), period.End.String(),
	).Scan(&count)
	return count, err
}

// =============================================================================
// HOLIDAY CALENDAR
// =============================================================================

// SaveHoliday saves a holiday; saving the same date again renames it.
func (s *Store) SaveHoliday(ctx context.Context, h generic.Holiday) error {
	defer s.observe("save_holiday", time.Now())
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO holidays (date, name, created_at)
		VALUES (?, ?, ?)
		ON CONFLICT(date) DO UPDATE SET name = excluded.name
	`, h.Date.String(), h.Name, time.Now().UTC().Format(time.RFC3339))
	return err
}

// Holidays returns the holidays within period, ordered by date.
func (s *Store) Holidays(ctx context.Context, period generic.Period) ([]generic.Holiday, error) {
	defer s.observe("holidays", time.Now())
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT date, name FROM holidays WHERE date >= ? AND date <= ? ORDER BY date ASC",
		period.Start.String(), period.End.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query holidays: %w", err)
	}
	defer rows.Close()

	var holidays []generic.Holiday
	for rows.Next() {
		var date, name string
		if err := rows.Scan(&date, &name); err != nil {
			return nil, err
		}
		d, err := generic.ParseDate(date)
		if err != nil {
			return nil, fmt.Errorf("stored holiday %q: %w", date, err)
		}
		holidays = append(holidays, generic.Holiday{Date: d, Name: name})
	}
	return holidays, rows.Err()
}
