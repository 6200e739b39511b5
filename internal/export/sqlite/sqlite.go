// Package sqlite stores exported PPL models in a SQLite database through the
// pure-Go modernc.org/sqlite driver.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/signalsfoundry/ppl-reader/internal/export"
	"github.com/signalsfoundry/ppl-reader/model"
	_ "modernc.org/sqlite"
)

const driverName = "sqlite"

const schema = `
CREATE TABLE IF NOT EXISTS attributes (
	name  TEXT PRIMARY KEY,
	value TEXT NOT NULL,
	type  TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS datasets (
	path        TEXT PRIMARY KEY,
	kind        TEXT NOT NULL,
	index_names TEXT NOT NULL,
	columns     TEXT NOT NULL,
	row_count   INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS table_index (
	path  TEXT NOT NULL,
	row   INTEGER NOT NULL,
	level INTEGER NOT NULL,
	value REAL,
	PRIMARY KEY (path, row, level)
);
CREATE TABLE IF NOT EXISTS table_values (
	path  TEXT NOT NULL,
	row   INTEGER NOT NULL,
	col   INTEGER NOT NULL,
	value REAL,
	PRIMARY KEY (path, row, col)
);
CREATE TABLE IF NOT EXISTS record_values (
	path  TEXT NOT NULL,
	row   INTEGER NOT NULL,
	col   INTEGER NOT NULL,
	value TEXT NOT NULL,
	PRIMARY KEY (path, row, col)
);
`

var clearStatements = []string{
	"DELETE FROM attributes",
	"DELETE FROM datasets",
	"DELETE FROM table_index",
	"DELETE FROM table_values",
	"DELETE FROM record_values",
}

const (
	kindTable   = "table"
	kindRecords = "records"
)

// ErrClosed is returned by writes after Commit or Close.
var ErrClosed = errors.New("sqlite sink: closed")

// Sink writes one model into a single transaction. Any previous export in
// the same database is replaced when the transaction commits.
type Sink struct {
	db *sql.DB
	tx *sql.Tx
}

var _ export.Sink = (*Sink)(nil)

// Create opens (or creates) the database at dsn and starts the export
// transaction.
func Create(ctx context.Context, dsn string) (*Sink, error) {
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// A single connection keeps ":memory:" databases coherent.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	for _, stmt := range clearStatements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			tx.Rollback()
			db.Close()
			return nil, fmt.Errorf("clear previous export: %w", err)
		}
	}
	return &Sink{db: db, tx: tx}, nil
}

func (s *Sink) Name() string { return "sqlite" }

// SetAttribute stores value as text alongside its type name.
func (s *Sink) SetAttribute(ctx context.Context, name string, value any) error {
	if s.tx == nil {
		return ErrClosed
	}
	text, typ, err := encodeAttribute(value)
	if err != nil {
		return err
	}
	_, err = s.tx.ExecContext(ctx,
		"INSERT INTO attributes (name, value, type) VALUES (?, ?, ?) ON CONFLICT(name) DO UPDATE SET value = excluded.value, type = excluded.type",
		name, text, typ)
	return err
}

func encodeAttribute(value any) (string, string, error) {
	switch v := value.(type) {
	case string:
		return v, "string", nil
	case int:
		return strconv.Itoa(v), "int", nil
	case int64:
		return strconv.FormatInt(v, 10), "int", nil
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64), "float", nil
	case bool:
		return strconv.FormatBool(v), "bool", nil
	default:
		return "", "", fmt.Errorf("unsupported attribute type %T", value)
	}
}

// WriteTable stores t under path.
func (s *Sink) WriteTable(ctx context.Context, path string, t *model.Table) error {
	if s.tx == nil {
		return ErrClosed
	}
	if err := s.dataset(ctx, path, kindTable, t.IndexNames, t.Columns, t.Rows()); err != nil {
		return err
	}

	indexStmt, err := s.tx.PrepareContext(ctx, "INSERT INTO table_index (path, row, level, value) VALUES (?, ?, ?, ?)")
	if err != nil {
		return err
	}
	defer indexStmt.Close()
	valueStmt, err := s.tx.PrepareContext(ctx, "INSERT INTO table_values (path, row, col, value) VALUES (?, ?, ?, ?)")
	if err != nil {
		return err
	}
	defer valueStmt.Close()

	for r := range t.Values {
		for l, v := range t.Index[r] {
			if _, err := indexStmt.ExecContext(ctx, path, r, l, sqlReal(v)); err != nil {
				return fmt.Errorf("row %d index %d: %w", r, l, err)
			}
		}
		for c, v := range t.Values[r] {
			if _, err := valueStmt.ExecContext(ctx, path, r, c, sqlReal(v)); err != nil {
				return fmt.Errorf("row %d column %d: %w", r, c, err)
			}
		}
	}
	return nil
}

// WriteRecords stores a string table under path.
func (s *Sink) WriteRecords(ctx context.Context, path string, columns []string, rows [][]string) error {
	if s.tx == nil {
		return ErrClosed
	}
	if err := s.dataset(ctx, path, kindRecords, nil, columns, len(rows)); err != nil {
		return err
	}
	stmt, err := s.tx.PrepareContext(ctx, "INSERT INTO record_values (path, row, col, value) VALUES (?, ?, ?, ?)")
	if err != nil {
		return err
	}
	defer stmt.Close()
	for r, row := range rows {
		if len(row) != len(columns) {
			return fmt.Errorf("row %d: %d values, want %d", r, len(row), len(columns))
		}
		for c, v := range row {
			if _, err := stmt.ExecContext(ctx, path, r, c, v); err != nil {
				return fmt.Errorf("row %d column %d: %w", r, c, err)
			}
		}
	}
	return nil
}

func (s *Sink) dataset(ctx context.Context, path, kind string, indexNames, columns []string, rows int) error {
	idx, err := json.Marshal(nonNil(indexNames))
	if err != nil {
		return err
	}
	cols, err := json.Marshal(nonNil(columns))
	if err != nil {
		return err
	}
	_, err = s.tx.ExecContext(ctx,
		"INSERT INTO datasets (path, kind, index_names, columns, row_count) VALUES (?, ?, ?, ?, ?)",
		path, kind, string(idx), string(cols), rows)
	if err != nil {
		return fmt.Errorf("register dataset %s: %w", path, err)
	}
	return nil
}

// Commit makes the export durable and closes the database.
func (s *Sink) Commit() error {
	if s.tx == nil {
		return ErrClosed
	}
	err := s.tx.Commit()
	s.tx = nil
	if cerr := s.db.Close(); err == nil {
		err = cerr
	}
	return err
}

// Close abandons an uncommitted export. It is a no-op after Commit.
func (s *Sink) Close() error {
	if s.tx == nil {
		return nil
	}
	err := s.tx.Rollback()
	s.tx = nil
	if cerr := s.db.Close(); err == nil {
		err = cerr
	}
	return err
}

// SQLite turns NaN into NULL; store it as NULL explicitly and read NULL
// back as NaN.
func sqlReal(v float64) any {
	if math.IsNaN(v) {
		return nil
	}
	return v
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
