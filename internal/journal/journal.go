// Package journal records which dataset versions each command loaded and
// saved, in a SQLite database under the project directory. Every CLI
// invocation that touches data becomes a run; every successful load or
// save becomes an event under that run.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Operation names recorded on events.
const (
	OpLoad = "load"
	OpSave = "save"
)

// Run is one CLI invocation that touched data.
type Run struct {
	ID          string    `json:"id" yaml:"id"`
	Project     string    `json:"project" yaml:"project"`
	Environment string    `json:"environment" yaml:"environment"`
	Command     string    `json:"command" yaml:"command"`
	StartedAt   time.Time `json:"started_at" yaml:"started_at"`
	Events      int       `json:"events" yaml:"events"`
}

// Event is one load or save performed during a run.
type Event struct {
	ID         int64     `json:"id" yaml:"id"`
	RunID      string    `json:"run_id" yaml:"run_id"`
	Dataset    string    `json:"dataset" yaml:"dataset"`
	Operation  string    `json:"operation" yaml:"operation"`
	Version    string    `json:"version,omitempty" yaml:"version,omitempty"`
	Location   string    `json:"location,omitempty" yaml:"location,omitempty"`
	RecordedAt time.Time `json:"recorded_at" yaml:"recorded_at"`
}

// Store is the journal database.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open opens (and migrates) the journal database at dsn. Use ":memory:"
// for an in-memory journal. File paths get their parent directory created
// and WAL mode enabled.
func Open(dsn string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	if dsn != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dsn), 0750); err != nil {
			return nil, fmt.Errorf("failed to create journal directory: %w", err)
		}
		dsn = fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)", dsn)
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal database: %w", err)
	}
	// The modernc driver is file-locked per connection; a single
	// connection also keeps :memory: databases from vanishing between
	// pool checkouts.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping journal database: %w", err)
	}
	if err := Migrate(db); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db, logger: logger}, nil
}

// Close closes the journal database.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Begin starts a recorder for one command invocation. The run row is not
// inserted until the first event arrives, so commands that touch no data
// leave no trace.
func (s *Store) Begin(project, env, command string) *Recorder {
	return &Recorder{
		store: s,
		run: Run{
			ID:          uuid.New().String(),
			Project:     project,
			Environment: env,
			Command:     command,
			StartedAt:   time.Now().UTC(),
		},
	}
}

// Recorder accumulates events for a single run.
type Recorder struct {
	store *Store
	run   Run

	mu       sync.Mutex
	inserted bool
}

// RunID returns the run's identifier.
func (r *Recorder) RunID() string { return r.run.ID }

// RecordLoad records a load event for the run.
func (r *Recorder) RecordLoad(ctx context.Context, dataset, version, location string) error {
	return r.record(ctx, OpLoad, dataset, version, location)
}

// RecordSave records a save event for the run.
func (r *Recorder) RecordSave(ctx context.Context, dataset, version, location string) error {
	return r.record(ctx, OpSave, dataset, version, location)
}

func (r *Recorder) record(ctx context.Context, op, dataset, version, location string) error {
	if r == nil || r.store == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.inserted {
		_, err := r.store.db.ExecContext(ctx,
			`INSERT INTO runs (id, project, environment, command, started_at) VALUES (?, ?, ?, ?, ?)`,
			r.run.ID, r.run.Project, r.run.Environment, r.run.Command, r.run.StartedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert run: %w", err)
		}
		r.inserted = true
	}

	var versionPtr, locationPtr *string
	if version != "" {
		versionPtr = &version
	}
	if location != "" {
		locationPtr = &location
	}

	_, err := r.store.db.ExecContext(ctx,
		`INSERT INTO events (run_id, dataset, operation, version, location, recorded_at) VALUES (?, ?, ?, ?, ?, ?)`,
		r.run.ID, dataset, op, versionPtr, locationPtr, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert event: %w", err)
	}

	r.store.logger.Debug("journal event recorded",
		slog.String("run_id", r.run.ID),
		slog.String("operation", op),
		slog.String("dataset", dataset))
	return nil
}

// Runs returns the most recent runs, newest first, with their event
// counts. limit <= 0 means all runs.
func (s *Store) Runs(ctx context.Context, limit int) ([]*Run, error) {
	query := `SELECT r.id, r.project, r.environment, r.command, r.started_at, COUNT(e.id)
	          FROM runs r LEFT JOIN events e ON e.run_id = r.id
	          GROUP BY r.id ORDER BY r.started_at DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run := &Run{}
		if err := rows.Scan(&run.ID, &run.Project, &run.Environment, &run.Command, &run.StartedAt, &run.Events); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// Events returns the events of one run in the order they were recorded.
func (s *Store) Events(ctx context.Context, runID string) ([]*Event, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, run_id, dataset, operation, version, location, recorded_at
		 FROM events WHERE run_id = ? ORDER BY id`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

// DatasetHistory returns the most recent events touching a dataset,
// newest first. limit <= 0 means all events.
func (s *Store) DatasetHistory(ctx context.Context, dataset string, limit int) ([]*Event, error) {
	query := `SELECT id, run_id, dataset, operation, version, location, recorded_at
	          FROM events WHERE dataset = ? ORDER BY recorded_at DESC, id DESC`
	args := []any{dataset}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list dataset history: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

func scanEvents(rows *sql.Rows) ([]*Event, error) {
	var events []*Event
	for rows.Next() {
		ev := &Event{}
		var version, location sql.NullString
		if err := rows.Scan(&ev.ID, &ev.RunID, &ev.Dataset, &ev.Operation, &version, &location, &ev.RecordedAt); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		if version.Valid {
			ev.Version = version.String
		}
		if location.Valid {
			ev.Location = location.String
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}
