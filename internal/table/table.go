// Package table provides the columnar row set the ranking engine reads.
//
// A Table is an ordered collection of named Arrow-backed columns of equal
// length. Each row is one survey observation: dimension fields (region,
// sub-district, zone, category), a period field and numeric metric fields.
package table

import (
	"fmt"
	"strings"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/paveg/movers/internal/errors"
	"github.com/paveg/movers/internal/series"
)

// ISeries provides a type-erased interface for Series of any type
type ISeries = series.Column

// Table represents a set of rows with typed columns
type Table struct {
	columns map[string]ISeries
	order   []string // Maintains column order
}

// New creates a new Table from a slice of ISeries.
// The Table takes ownership of the series.
func New(columns ...ISeries) *Table {
	byName := make(map[string]ISeries, len(columns))
	order := make([]string, 0, len(columns))

	for _, s := range columns {
		name := s.Name()
		if _, dup := byName[name]; !dup {
			order = append(order, name)
		}
		byName[name] = s
	}

	return &Table{
		columns: byName,
		order:   order,
	}
}

// Columns returns the names of all columns in order
func (t *Table) Columns() []string {
	if len(t.order) == 0 {
		return []string{}
	}
	return append([]string(nil), t.order...)
}

// Len returns the number of rows (assumes all columns have same length)
func (t *Table) Len() int {
	if len(t.order) == 0 {
		return 0
	}
	return t.columns[t.order[0]].Len()
}

// Width returns the number of columns
func (t *Table) Width() int {
	return len(t.columns)
}

// Column returns the series for the given column name
func (t *Table) Column(name string) (ISeries, bool) {
	s, exists := t.columns[name]
	return s, exists
}

// HasColumn checks if a column exists
func (t *Table) HasColumn(name string) bool {
	_, exists := t.columns[name]
	return exists
}

// Select returns a new Table holding copies of the named columns, in the
// order given
func (t *Table) Select(mem memory.Allocator, names ...string) (*Table, error) {
	if mem == nil {
		mem = memory.NewGoAllocator()
	}

	indices := make([]int, t.Len())
	for i := range indices {
		indices[i] = i
	}

	out := make([]ISeries, 0, len(names))
	for _, name := range names {
		col, ok := t.Column(name)
		if !ok {
			releaseAll(out)
			return nil, errors.NewUnknownFieldError("Select", name)
		}
		copied, err := take(col, name, indices, mem)
		if err != nil {
			releaseAll(out)
			return nil, err
		}
		out = append(out, copied)
	}
	return New(out...), nil
}

// StringAt renders the cell at row of the named column; nulls render as ""
func (t *Table) StringAt(name string, row int) (string, bool) {
	col, ok := t.columns[name]
	if !ok {
		return "", false
	}
	return col.GetAsString(row), true
}

// Validate checks that every column has the same number of rows
func (t *Table) Validate() error {
	n := t.Len()
	for _, name := range t.order {
		if l := t.columns[name].Len(); l != n {
			return fmt.Errorf("column %s has %d rows, expected %d", name, l, n)
		}
	}
	return nil
}

// String returns a string representation of the Table
func (t *Table) String() string {
	if len(t.columns) == 0 {
		return "Table[empty]"
	}

	parts := []string{fmt.Sprintf("Table[%dx%d]", t.Len(), t.Width())}

	for _, name := range t.order {
		parts = append(parts, fmt.Sprintf("  %s: %s", name, t.columns[name].DataType().String()))
	}

	return strings.Join(parts, "\n")
}

// Release releases all column memory
func (t *Table) Release() {
	for _, s := range t.columns {
		s.Release()
	}
}
