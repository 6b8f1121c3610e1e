package store

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pevans/issuewatch/issue"
)

// SQLiteBackend persists records in an SQLite table keyed by issue identity.
type SQLiteBackend struct {
	db  *sql.DB
	dsn string
}

// NewSQLiteBackend opens (or creates) the database at dsn.
func NewSQLiteBackend(dsn string) (*SQLiteBackend, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	backend := &SQLiteBackend{db: db, dsn: dsn}
	if err := backend.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return backend, nil
}

// initSchema creates the issues table if it doesn't exist.
func (s *SQLiteBackend) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS issues (
		volume INTEGER NOT NULL,
		issue INTEGER NOT NULL,
		month TEXT NOT NULL,
		numerical_month INTEGER NOT NULL,
		year INTEGER NOT NULL,
		isnumber TEXT NOT NULL,
		PRIMARY KEY (volume, issue, year)
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *SQLiteBackend) Close() error {
	return s.db.Close()
}

// Describe implements Backend.
func (s *SQLiteBackend) Describe() string {
	return "sqlite:" + s.dsn
}

// Load returns every stored issue in chronological order.
func (s *SQLiteBackend) Load() ([]issue.Record, error) {
	query := `
		SELECT volume, issue, month, numerical_month, year, isnumber
		FROM issues
		ORDER BY year, volume, numerical_month, issue
	`

	rows, err := s.db.Query(query)
	if err != nil {
		return nil, &CorruptionError{Source: s.Describe(), Err: err}
	}
	defer rows.Close()

	var records []issue.Record
	for rows.Next() {
		var r issue.Record
		if err := rows.Scan(&r.Volume, &r.Issue, &r.Month, &r.NumericalMonth, &r.Year, &r.ISNumber); err != nil {
			return nil, &CorruptionError{Source: s.Describe(), Err: err}
		}
		records = append(records, r)
	}

	if err := rows.Err(); err != nil {
		return nil, &CorruptionError{Source: s.Describe(), Err: err}
	}

	return records, nil
}

// Save replaces the table contents with records inside one transaction.
func (s *SQLiteBackend) Save(records []issue.Record) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM issues"); err != nil {
		return fmt.Errorf("failed to clear issues: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO issues (volume, issue, month, numerical_month, year, isnumber)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range records {
		if _, err := stmt.Exec(r.Volume, r.Issue, r.Month, r.NumericalMonth, r.Year, r.ISNumber); err != nil {
			return fmt.Errorf("failed to insert issue %s: %w", r, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit issues: %w", err)
	}

	return nil
}
