package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/signalsfoundry/ppl-reader/internal/export"
	"github.com/signalsfoundry/ppl-reader/model"
)

// ErrNotFound is returned when a dataset path does not exist.
var ErrNotFound = errors.New("sqlite: dataset not found")

// Reader reads back an exported model.
type Reader struct {
	db *sql.DB
}

// Open opens an existing export database for reading.
func Open(ctx context.Context, dsn string) (*Reader, error) {
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("open database: %w", err)
	}
	return &Reader{db: db}, nil
}

// Close closes the database.
func (r *Reader) Close() error { return r.db.Close() }

// Attributes returns every stored attribute as text.
func (r *Reader) Attributes(ctx context.Context) (map[string]string, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT name, value FROM attributes")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var name, value string
		if err := rows.Scan(&name, &value); err != nil {
			return nil, err
		}
		out[name] = value
	}
	return out, rows.Err()
}

// Paths returns every dataset path in lexical order.
func (r *Reader) Paths(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT path FROM datasets ORDER BY path")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

type datasetInfo struct {
	kind       string
	indexNames []string
	columns    []string
	rows       int
}

func (r *Reader) dataset(ctx context.Context, path, kind string) (datasetInfo, error) {
	var (
		info      datasetInfo
		idx, cols string
	)
	err := r.db.QueryRowContext(ctx,
		"SELECT kind, index_names, columns, row_count FROM datasets WHERE path = ?", path).
		Scan(&info.kind, &idx, &cols, &info.rows)
	if errors.Is(err, sql.ErrNoRows) {
		return info, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	if err != nil {
		return info, err
	}
	if info.kind != kind {
		return info, fmt.Errorf("dataset %s is %s, not %s", path, info.kind, kind)
	}
	if err := json.Unmarshal([]byte(idx), &info.indexNames); err != nil {
		return info, fmt.Errorf("dataset %s index names: %w", path, err)
	}
	if err := json.Unmarshal([]byte(cols), &info.columns); err != nil {
		return info, fmt.Errorf("dataset %s columns: %w", path, err)
	}
	return info, nil
}

// Table reads the numeric table at path.
func (r *Reader) Table(ctx context.Context, path string) (*model.Table, error) {
	info, err := r.dataset(ctx, path, kindTable)
	if err != nil {
		return nil, err
	}
	t := &model.Table{
		IndexNames: info.indexNames,
		Index:      make([][]float64, info.rows),
		Columns:    info.columns,
		Values:     make([][]float64, info.rows),
	}
	for i := 0; i < info.rows; i++ {
		t.Index[i] = make([]float64, len(info.indexNames))
		t.Values[i] = make([]float64, len(info.columns))
	}
	if err := r.fill(ctx, "SELECT row, level, value FROM table_index WHERE path = ?", path, t.Index); err != nil {
		return nil, err
	}
	if err := r.fill(ctx, "SELECT row, col, value FROM table_values WHERE path = ?", path, t.Values); err != nil {
		return nil, err
	}
	return t, nil
}

func (r *Reader) fill(ctx context.Context, query, path string, dst [][]float64) error {
	rows, err := r.db.QueryContext(ctx, query, path)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			row, col int
			v        sql.NullFloat64
		)
		if err := rows.Scan(&row, &col, &v); err != nil {
			return err
		}
		if row < 0 || row >= len(dst) || col < 0 || col >= len(dst[row]) {
			return fmt.Errorf("dataset %s: cell (%d, %d) out of range", path, row, col)
		}
		if v.Valid {
			dst[row][col] = v.Float64
		} else {
			dst[row][col] = math.NaN()
		}
	}
	return rows.Err()
}

// Records reads the string table at path.
func (r *Reader) Records(ctx context.Context, path string) (export.Records, error) {
	info, err := r.dataset(ctx, path, kindRecords)
	if err != nil {
		return export.Records{}, err
	}
	out := export.Records{Columns: info.columns, Rows: make([][]string, info.rows)}
	for i := range out.Rows {
		out.Rows[i] = make([]string, len(info.columns))
	}
	rows, err := r.db.QueryContext(ctx, "SELECT row, col, value FROM record_values WHERE path = ?", path)
	if err != nil {
		return export.Records{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			row, col int
			v        string
		)
		if err := rows.Scan(&row, &col, &v); err != nil {
			return export.Records{}, err
		}
		if row < 0 || row >= len(out.Rows) || col < 0 || col >= len(info.columns) {
			return export.Records{}, fmt.Errorf("dataset %s: cell (%d, %d) out of range", path, row, col)
		}
		out.Rows[row][col] = v
	}
	return out, rows.Err()
}
