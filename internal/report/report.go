// Package report persists check results to a SQLite database so runs
// can be audited later. Persistence lives entirely outside the
// semantic core; the core itself never performs I/O.
package report

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/thunderstruck-community/thunderstruck-dev-tools/internal/semantics"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	program    TEXT NOT NULL,
	started_at TEXT NOT NULL,
	errors     INTEGER NOT NULL,
	warnings   INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS diagnostics (
	id       INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id   INTEGER NOT NULL REFERENCES runs(id),
	level    TEXT NOT NULL,
	message  TEXT NOT NULL,
	element  TEXT,
	variable TEXT,
	line     INTEGER,
	col      INTEGER
);
`

type Store struct {
	db *sql.DB
}

func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open report database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize report database: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// RecordRun stores one check run and its diagnostics, returning the
// run ID.
func (s *Store) RecordRun(program string, diags []semantics.Diagnostic) (int64, error) {
	errors, warnings := 0, 0
	for _, d := range diags {
		if d.Level == semantics.LevelError {
			errors++
		} else {
			warnings++
		}
	}

	tx, err := s.db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	res, err := tx.Exec(
		`INSERT INTO runs (program, started_at, errors, warnings) VALUES (?, ?, ?, ?)`,
		program, time.Now().UTC().Format(time.RFC3339), errors, warnings)
	if err != nil {
		return 0, err
	}
	runID, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	stmt, err := tx.Prepare(
		`INSERT INTO diagnostics (run_id, level, message, element, variable, line, col) VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	for _, d := range diags {
		level := "error"
		if d.Level == semantics.LevelWarning {
			level = "warning"
		}
		if _, err := stmt.Exec(runID, level, d.Message, d.Element, d.Variable,
			d.Position.Line, d.Position.Column); err != nil {
			return 0, err
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return runID, nil
}
