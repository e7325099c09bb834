package db

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib" // driver: pgx
	_ "modernc.org/sqlite"             // driver: sqlite
)

type Driver string

const (
	DriverSQLite   Driver = "sqlite"
	DriverPostgres Driver = "postgres"
)

// Open opens the journal database and ensures the schema exists.
func Open(ctx context.Context, driver Driver, dsn string) (*sql.DB, error) {
	var drvName string
	switch driver {
	case DriverSQLite:
		drvName = "sqlite" // modernc driver
		if dsn == "" {
			dsn = "file:quiz-journal.db?cache=shared&mode=rwc&_pragma=busy_timeout(5000)"
		}
	case DriverPostgres:
		drvName = "pgx" // pgx stdlib driver
		if dsn == "" {
			dsn = "postgres://localhost:5432/mindengage_quiz?sslmode=disable"
		}
	default:
		return nil, fmt.Errorf("unsupported driver: %s", driver)
	}

	db, err := sql.Open(drvName, dsn)
	if err != nil {
		return nil, err
	}
	if driver == DriverSQLite {
		// one writer; also keeps ":memory:" databases alive across calls
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}

	if err := ensureSchema(ctx, db, driver); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return db, nil
}

func ensureSchema(ctx context.Context, db *sql.DB, driver Driver) error {
	var schema string
	switch driver {
	case DriverSQLite:
		schema = schemaSQLite
	case DriverPostgres:
		schema = schemaPostgres
	}
	_, err := db.ExecContext(ctx, schema)
	return err
}

const schemaSQLite = `
CREATE TABLE IF NOT EXISTS session_attempts (
  id TEXT PRIMARY KEY,
  instance_id TEXT NOT NULL,
  student_id TEXT NOT NULL,
  attempt_index INTEGER NOT NULL,
  score REAL NOT NULL,
  answers_json TEXT NOT NULL,
  time_spent_sec INTEGER,
  submitted_at INTEGER NOT NULL,
  UNIQUE (instance_id, student_id, attempt_index)
);

CREATE TABLE IF NOT EXISTS handoff_status (
  instance_id TEXT NOT NULL,
  student_id TEXT NOT NULL,
  status TEXT NOT NULL CHECK (status IN ('pending','ok','failed')),
  retries INTEGER NOT NULL DEFAULT 0,
  last_error TEXT,
  updated_at INTEGER NOT NULL,
  PRIMARY KEY (instance_id, student_id)
);
`

const schemaPostgres = `
CREATE TABLE IF NOT EXISTS session_attempts (
  id TEXT PRIMARY KEY,
  instance_id TEXT NOT NULL,
  student_id TEXT NOT NULL,
  attempt_index INT NOT NULL,
  score DOUBLE PRECISION NOT NULL,
  answers_json TEXT NOT NULL,
  time_spent_sec INT,
  submitted_at BIGINT NOT NULL,
  UNIQUE (instance_id, student_id, attempt_index)
);

CREATE TABLE IF NOT EXISTS handoff_status (
  instance_id TEXT NOT NULL,
  student_id TEXT NOT NULL,
  status TEXT NOT NULL CHECK (status IN ('pending','ok','failed')),
  retries INT NOT NULL DEFAULT 0,
  last_error TEXT,
  updated_at BIGINT NOT NULL,
  PRIMARY KEY (instance_id, student_id)
);
`
