// Package store provides SQLite-backed persistence for the history of
// documentation runs.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/julianshen/autodoc/internal/docgen"
)

// DefaultKeep is how many runs are retained when no limit is configured.
const DefaultKeep = 10

var (
	// ErrNotFound is returned when no run matches an id.
	ErrNotFound = errors.New("run not found")
	// ErrAmbiguousID is returned when an id prefix matches several runs.
	ErrAmbiguousID = errors.New("ambiguous run id")
)

// Run is the summary row of one stored documentation run.
type Run struct {
	ID           string
	Project      string
	CreatedAt    time.Time
	Executor     string
	FileCount    int
	FailedCount  int
	FileTypes    []string
	HasOverview  bool
	HasStructure bool
	SizeKB       float64
	DurationMs   int64
}

// Store wraps a SQLite database holding run history.
type Store struct {
	db *sql.DB
}

// NewStore opens (or creates) a SQLite database at dbPath and ensures
// all required tables exist. Use ":memory:" for an in-memory database.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// A single connection keeps ":memory:" databases coherent and serialises
	// writers.
	db.SetMaxOpenConns(1)

	if err := createTables(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func createTables(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id            TEXT PRIMARY KEY,
			project       TEXT NOT NULL,
			created_at    INTEGER NOT NULL,
			executor      TEXT NOT NULL,
			file_count    INTEGER NOT NULL,
			failed_count  INTEGER NOT NULL,
			file_types    TEXT NOT NULL,
			has_overview  INTEGER NOT NULL,
			has_structure INTEGER NOT NULL,
			size_kb       REAL NOT NULL,
			duration_ms   INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS entries (
			run_id    TEXT NOT NULL,
			key       TEXT NOT NULL,
			text      TEXT NOT NULL,
			succeeded INTEGER NOT NULL,
			err       TEXT NOT NULL,
			PRIMARY KEY (run_id, key)
		)`,
		`CREATE INDEX IF NOT EXISTS runs_created_at ON runs (created_at DESC)`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("exec %q: %w", stmt[:40], err)
		}
	}
	return nil
}

// SaveRun records a finished run under project and prunes the history down
// to the newest keep runs. A non-positive keep uses DefaultKeep.
func (s *Store) SaveRun(ctx context.Context, project string, rep *docgen.Report, keep int) (Run, error) {
	if rep == nil {
		return Run{}, errors.New("save run: nil report")
	}
	if keep <= 0 {
		keep = DefaultKeep
	}

	run := summarize(project, rep)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Run{}, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, project, created_at, executor, file_count, failed_count,
		                   file_types, has_overview, has_structure, size_kb, duration_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Project, run.CreatedAt.UnixNano(), run.Executor, run.FileCount, run.FailedCount,
		strings.Join(run.FileTypes, ","), run.HasOverview, run.HasStructure, run.SizeKB, run.DurationMs,
	)
	if err != nil {
		return Run{}, fmt.Errorf("insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO entries (run_id, key, text, succeeded, err) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return Run{}, fmt.Errorf("prepare entries: %w", err)
	}
	defer stmt.Close()
	for key, e := range rep.Entries {
		if _, err := stmt.ExecContext(ctx, run.ID, key, e.Text, e.Succeeded, e.Err); err != nil {
			return Run{}, fmt.Errorf("insert entry %s: %w", key, err)
		}
	}

	if err := prune(ctx, tx, keep); err != nil {
		return Run{}, err
	}

	if err := tx.Commit(); err != nil {
		return Run{}, fmt.Errorf("commit: %w", err)
	}
	return run, nil
}

func prune(ctx context.Context, tx *sql.Tx, keep int) error {
	const stale = `SELECT id FROM runs ORDER BY created_at DESC, id DESC LIMIT -1 OFFSET ?`
	if _, err := tx.ExecContext(ctx, `DELETE FROM entries WHERE run_id IN (`+stale+`)`, keep); err != nil {
		return fmt.Errorf("prune entries: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM runs WHERE id IN (`+stale+`)`, keep); err != nil {
		return fmt.Errorf("prune runs: %w", err)
	}
	return nil
}

// ListRuns returns every stored run, newest first.
func (s *Store) ListRuns(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, selectRuns+` ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// GetRun returns the run whose id equals or starts with id, together with
// its entries.
func (s *Store) GetRun(ctx context.Context, id string) (Run, map[string]docgen.Result, error) {
	run, err := s.resolve(ctx, id)
	if err != nil {
		return Run{}, nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT key, text, succeeded, err FROM entries WHERE run_id = ?`, run.ID)
	if err != nil {
		return Run{}, nil, fmt.Errorf("get entries: %w", err)
	}
	defer rows.Close()

	entries := make(map[string]docgen.Result)
	for rows.Next() {
		var e docgen.Result
		if err := rows.Scan(&e.Key, &e.Text, &e.Succeeded, &e.Err); err != nil {
			return Run{}, nil, fmt.Errorf("scan entry: %w", err)
		}
		entries[e.Key] = e
	}
	if err := rows.Err(); err != nil {
		return Run{}, nil, err
	}
	return run, entries, nil
}

// DeleteRun removes the run whose id equals or starts with id.
func (s *Store) DeleteRun(ctx context.Context, id string) (Run, error) {
	run, err := s.resolve(ctx, id)
	if err != nil {
		return Run{}, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Run{}, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM entries WHERE run_id = ?`, run.ID); err != nil {
		return Run{}, fmt.Errorf("delete entries: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, run.ID); err != nil {
		return Run{}, fmt.Errorf("delete run: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return Run{}, fmt.Errorf("commit: %w", err)
	}
	return run, nil
}

// Clear removes every stored run.
func (s *Store) Clear(ctx context.Context) error {
	for _, stmt := range []string{`DELETE FROM entries`, `DELETE FROM runs`} {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("clear history: %w", err)
		}
	}
	return nil
}

const selectRuns = `SELECT id, project, created_at, executor, file_count, failed_count,
	file_types, has_overview, has_structure, size_kb, duration_ms FROM runs`

func (s *Store) resolve(ctx context.Context, id string) (Run, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Run{}, ErrNotFound
	}
	rows, err := s.db.QueryContext(ctx, selectRuns+` WHERE id = ? OR id LIKE ? || '%' LIMIT 2`, id, id)
	if err != nil {
		return Run{}, fmt.Errorf("get run: %w", err)
	}
	defer rows.Close()

	var matches []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return Run{}, err
		}
		if r.ID == id {
			return r, nil
		}
		matches = append(matches, r)
	}
	if err := rows.Err(); err != nil {
		return Run{}, err
	}
	switch len(matches) {
	case 0:
		return Run{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	case 1:
		return matches[0], nil
	default:
		return Run{}, fmt.Errorf("%w: %s", ErrAmbiguousID, id)
	}
}

func scanRun(rows *sql.Rows) (Run, error) {
	var (
		r         Run
		createdAt int64
		fileTypes string
	)
	err := rows.Scan(&r.ID, &r.Project, &createdAt, &r.Executor, &r.FileCount, &r.FailedCount,
		&fileTypes, &r.HasOverview, &r.HasStructure, &r.SizeKB, &r.DurationMs)
	if err != nil {
		return Run{}, fmt.Errorf("scan run: %w", err)
	}
	r.CreatedAt = time.Unix(0, createdAt)
	if fileTypes != "" {
		r.FileTypes = strings.Split(fileTypes, ",")
	}
	return r, nil
}

// summarize derives the history row for rep.
func summarize(project string, rep *docgen.Report) Run {
	id := rep.RunID
	if id == uuid.Nil {
		id = uuid.New()
	}
	created := rep.StartedAt
	if created.IsZero() {
		created = time.Now()
	}
	if project == "" {
		project = "Project_" + created.Format("150405")
	}

	types := map[string]bool{}
	var size int
	run := Run{
		ID:         id.String(),
		Project:    project,
		CreatedAt:  created,
		Executor:   string(rep.Executor),
		DurationMs: rep.Duration.Milliseconds(),
	}
	for key, e := range rep.Entries {
		size += len(e.Text)
		switch key {
		case docgen.KeyProjectOverview:
			run.HasOverview = true
			continue
		case docgen.KeyDirectoryStructure:
			run.HasStructure = true
			continue
		case docgen.KeyMermaidDiagram:
			continue
		}
		run.FileCount++
		if !e.Succeeded {
			run.FailedCount++
		}
		if ext := strings.TrimPrefix(strings.ToLower(path.Ext(key)), "."); ext != "" {
			types[ext] = true
		}
	}
	for ext := range types {
		run.FileTypes = append(run.FileTypes, ext)
	}
	sort.Strings(run.FileTypes)
	run.SizeKB = math.Round(float64(size)/1024*10) / 10
	return run
}
