package runlog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver
	_ "modernc.org/sqlite"             // pure go sqlite driver
)

// sqlStore persists each run as a JSON payload in a single table, keyed by
// run id. Placeholder syntax differs between the two backends.
type sqlStore struct {
	db          *sql.DB
	placeholder func(int) string
}

// OpenSQLite opens (and if needed initialises) a SQLite-backed run log at path.
func OpenSQLite(path string) (Store, error) {
	if path == "" {
		path = "labsynth-runs.db"
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil && !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("create dirs: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	s := &sqlStore{db: db, placeholder: func(int) string { return "?" }}
	if err := s.init(context.Background(), "BLOB"); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// OpenPostgres opens a Postgres-backed run log using the given DSN.
func OpenPostgres(ctx context.Context, dsn string) (Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres dsn required")
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	s := &sqlStore{db: db, placeholder: func(i int) string { return fmt.Sprintf("$%d", i) }}
	if err := s.init(ctx, "JSONB"); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *sqlStore) init(ctx context.Context, payloadType string) error {
	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS generation_runs (
		id TEXT PRIMARY KEY,
		started_at TEXT NOT NULL,
		payload %s NOT NULL
	)`, payloadType)
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create generation_runs table: %w", err)
	}
	return nil
}

func (s *sqlStore) Record(ctx context.Context, run Run) error {
	payload, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("encode run: %w", err)
	}
	stmt := fmt.Sprintf(`INSERT INTO generation_runs (id, started_at, payload) VALUES (%s, %s, %s)`,
		s.placeholder(1), s.placeholder(2), s.placeholder(3))
	if _, err := s.db.ExecContext(ctx, stmt, run.ID, run.StartedAt.UTC().Format(time.RFC3339Nano), payload); err != nil {
		return fmt.Errorf("insert run %s: %w", run.ID, err)
	}
	return nil
}

func (s *sqlStore) Get(ctx context.Context, id string) (Run, bool, error) {
	stmt := fmt.Sprintf(`SELECT payload FROM generation_runs WHERE id = %s`, s.placeholder(1))
	var payload []byte
	err := s.db.QueryRowContext(ctx, stmt, id).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, false, nil
	}
	if err != nil {
		return Run{}, false, fmt.Errorf("select run %s: %w", id, err)
	}
	var run Run
	if err := json.Unmarshal(payload, &run); err != nil {
		return Run{}, false, fmt.Errorf("decode run %s: %w", id, err)
	}
	return run, true, nil
}

func (s *sqlStore) List(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT payload FROM generation_runs ORDER BY started_at`)
	if err != nil {
		return nil, fmt.Errorf("select runs: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var runs []Run
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		var run Run
		if err := json.Unmarshal(payload, &run); err != nil {
			return nil, fmt.Errorf("decode run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func (s *sqlStore) Close() error { return s.db.Close() }
