package io

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"time"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/go-sql-driver/mysql"
	"github.com/paveg/movers/internal/table"
	_ "modernc.org/sqlite"
)

// SQL driver names accepted by OpenSQL
const (
	DriverSQLite = "sqlite"
	DriverMySQL  = "mysql"
)

// OpenSQL opens a database handle for one of the supported drivers.
// MySQL DSNs are validated and get parseTime enabled.
func OpenSQL(driver, dsn string) (*sql.DB, error) {
	switch driver {
	case DriverSQLite:
	case DriverMySQL:
		cfg, err := mysql.ParseDSN(dsn)
		if err != nil {
			return nil, fmt.Errorf("parsing mysql dsn: %w", err)
		}
		cfg.ParseTime = true
		dsn = cfg.FormatDSN()
	default:
		return nil, fmt.Errorf("unsupported SQL driver: %s", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening %s database: %w", driver, err)
	}
	return db, nil
}

// SQLReader runs a query and converts its result set to a Table
type SQLReader struct {
	db    *sql.DB
	query string
	args  []any
	mem   memory.Allocator
}

// NewSQLReader creates a reader for query; args bind its placeholders
func NewSQLReader(db *sql.DB, query string, mem memory.Allocator, args ...any) *SQLReader {
	return &SQLReader{
		db:    db,
		query: query,
		args:  args,
		mem:   mem,
	}
}

// Read runs the query with a background context
func (r *SQLReader) Read() (*table.Table, error) {
	return r.ReadContext(context.Background())
}

// ReadContext runs the query and returns its rows as a Table. Column types
// are inferred from the returned values; text values that parse as numbers
// become numbers, as they would in CSV.
func (r *SQLReader) ReadContext(ctx context.Context) (*table.Table, error) {
	mem := r.mem
	if mem == nil {
		mem = memory.NewGoAllocator()
	}

	rows, err := r.db.QueryContext(ctx, r.query, r.args...)
	if err != nil {
		return nil, fmt.Errorf("running query: %w", err)
	}
	defer rows.Close()

	names, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("reading result columns: %w", err)
	}

	columns := make([][]cell, len(names))
	dest := make([]any, len(names))
	ptrs := make([]any, len(names))
	for i := range dest {
		ptrs[i] = &dest[i]
	}

	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		for i, v := range dest {
			columns[i] = append(columns[i], sqlCell(v))
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating rows: %w", err)
	}

	seriesList, err := buildColumns(names, columns, mem)
	if err != nil {
		return nil, fmt.Errorf("creating columns: %w", err)
	}
	return table.New(seriesList...), nil
}

// sqlCell normalizes a driver value
func sqlCell(v any) cell {
	switch val := v.(type) {
	case nil:
		return cell{}
	case int64:
		return cell{value: val, text: strconv.FormatInt(val, 10)}
	case float64:
		return cell{value: val, text: strconv.FormatFloat(val, 'f', -1, 64)}
	case bool:
		return cell{value: val, text: strconv.FormatBool(val)}
	case []byte:
		return textCell(string(val))
	case string:
		return textCell(val)
	case time.Time:
		s := val.Format(time.RFC3339)
		return cell{value: s, text: s}
	default:
		s := fmt.Sprint(val)
		return cell{value: s, text: s}
	}
}
