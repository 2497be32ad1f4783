package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

var ErrNotFound = errors.New("run not found")

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id                TEXT PRIMARY KEY,
	trace_name        TEXT NOT NULL,
	started_at        TEXT NOT NULL,
	elapsed_ms        INTEGER NOT NULL,
	streams           INTEGER NOT NULL,
	nodes             INTEGER NOT NULL,
	edges             INTEGER NOT NULL,
	rejected_edges    INTEGER NOT NULL,
	violations        INTEGER NOT NULL,
	iteration_time_ms REAL NOT NULL,
	critical_path_ms  REAL NOT NULL,
	overlap_ratio     REAL NOT NULL,
	overlap_mode      TEXT NOT NULL,
	artifact_dir      TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS runs_started_at ON runs (started_at);
`

// Run is one row of the run history.
type Run struct {
	ID              string
	TraceName       string
	StartedAt       time.Time
	ElapsedMs       int64
	Streams         int
	Nodes           int
	Edges           int
	RejectedEdges   int
	Violations      int
	IterationTimeMs float64
	CriticalPathMs  float64
	OverlapRatio    float64
	OverlapMode     string
	ArtifactDir     string
}

// Store persists run history in SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens or creates the database at path. ":memory:" gives a private
// in-memory database.
func Open(path string) (*Store, error) {
	dsn := path
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
			return nil, fmt.Errorf("create store directory: %w", err)
		}
		dsn = "file:" + path
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	// A single connection serializes writers and keeps :memory: databases shared.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{db: db, path: path}, nil
}

func (s *Store) Path() string {
	return s.path
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Record inserts run, replacing an earlier row with the same id.
func (s *Store) Record(ctx context.Context, run Run) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO runs (
			id, trace_name, started_at, elapsed_ms, streams, nodes, edges, rejected_edges,
			violations, iteration_time_ms, critical_path_ms, overlap_ratio, overlap_mode, artifact_dir
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.TraceName, run.StartedAt.UTC().Format(time.RFC3339Nano), run.ElapsedMs,
		run.Streams, run.Nodes, run.Edges, run.RejectedEdges, run.Violations,
		run.IterationTimeMs, run.CriticalPathMs, run.OverlapRatio, run.OverlapMode, run.ArtifactDir,
	)
	if err != nil {
		return fmt.Errorf("record run %s: %w", run.ID, err)
	}
	return nil
}

const selectRuns = `
	SELECT id, trace_name, started_at, elapsed_ms, streams, nodes, edges, rejected_edges,
		violations, iteration_time_ms, critical_path_ms, overlap_ratio, overlap_mode, artifact_dir
	FROM runs`

// List returns the most recent runs first. A limit <= 0 returns all runs.
// A non-empty traceName keeps only runs of that trace.
func (s *Store) List(ctx context.Context, traceName string, limit int) ([]Run, error) {
	query := selectRuns
	args := make([]any, 0, 2)
	if traceName != "" {
		query += " WHERE trace_name = ?"
		args = append(args, traceName)
	}
	query += " ORDER BY started_at DESC, id"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	runs := make([]Run, 0)
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func (s *Store) Get(ctx context.Context, id string) (Run, error) {
	run, err := scanRun(s.db.QueryRowContext(ctx, selectRuns+" WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return run, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (Run, error) {
	var run Run
	var startedAt string
	err := row.Scan(&run.ID, &run.TraceName, &startedAt, &run.ElapsedMs, &run.Streams, &run.Nodes,
		&run.Edges, &run.RejectedEdges, &run.Violations, &run.IterationTimeMs, &run.CriticalPathMs,
		&run.OverlapRatio, &run.OverlapMode, &run.ArtifactDir)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Run{}, err
		}
		return Run{}, fmt.Errorf("scan run: %w", err)
	}
	run.StartedAt, err = time.Parse(time.RFC3339Nano, startedAt)
	if err != nil {
		return Run{}, fmt.Errorf("parse started_at of %s: %w", run.ID, err)
	}
	return run, nil
}
