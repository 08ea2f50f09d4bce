// Package movers ranks the top movers of a table of observations: it sums a
// metric per group key and period, computes the percentage change between a
// baseline and a current period and keeps the largest changes, optionally
// once per value of an axis field.
// This package is the public API of the module.
package movers

import (
	"io"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/paveg/movers/internal/errors"
	mio "github.com/paveg/movers/internal/io"
	"github.com/paveg/movers/internal/ranking"
	"github.com/paveg/movers/internal/series"
	"github.com/paveg/movers/internal/table"
)

// ISeries provides a type-erased interface for a column of any type
type ISeries = series.Column

// Table is a set of named, typed columns
type Table = table.Table

// UnpivotColumn maps a wide value column to the axis label of its values
type UnpivotColumn = table.UnpivotColumn

// Engine types
type (
	Query            = ranking.Query
	Ratio            = ranking.Ratio
	GroupKey         = ranking.GroupKey
	Measure          = ranking.Measure
	Aggregation      = ranking.Aggregation
	AggregatedGroup  = ranking.AggregatedGroup
	ComparisonRecord = ranking.ComparisonRecord
	RankedResult     = ranking.RankedResult
	AxisRanking      = ranking.AxisRanking
	AxisResult       = ranking.AxisResult
	ResultFormat     = mio.ResultFormat
)

// ErrInvalidArgument matches every error caused by invalid caller input,
// such as a non-positive limit or an unknown field.
var ErrInvalidArgument = errors.ErrInvalidArgument

// NewSeries creates a new column from a slice of values
func NewSeries[T series.Element](name string, values []T, mem memory.Allocator) ISeries {
	return series.New(name, values, mem)
}

// NewTable creates a table that takes ownership of the given columns
func NewTable(columns ...ISeries) *Table {
	return table.New(columns...)
}

// Aggregate sums metrics per groupBy key over the rows whose periodField
// equals period.
func Aggregate(tbl *Table, periodField, period string, groupBy []string, metrics ...string) (*Aggregation, error) {
	return ranking.Aggregate(tbl, periodField, period, groupBy, metrics...)
}

// Derive adds the per-group ratio numerator / denominator as a new metric
func Derive(agg *Aggregation, numerator, denominator, as string) (*Aggregation, error) {
	return ranking.Derive(agg, numerator, denominator, as)
}

// CompareAndRank ranks the keys of two aggregations by the percentage change
// of metric, largest first, keeping at most limit records.
func CompareAndRank(baseline, current *Aggregation, metric string, limit int) (*RankedResult, error) {
	return ranking.CompareAndRank(baseline, current, metric, limit)
}

// Rank runs q over the whole table, ignoring any axis
func Rank(tbl *Table, q Query) (*RankedResult, error) {
	return ranking.Rank(tbl, q)
}

// RankByAxis runs q once per value of q.Axis
func RankByAxis(tbl *Table, q Query) (*AxisRanking, error) {
	return ranking.RankByAxis(tbl, q)
}

// ReadCSV reads a CSV document with a header row, inferring column types
func ReadCSV(r io.Reader, mem memory.Allocator) (*Table, error) {
	return mio.NewCSVReader(r, mio.DefaultCSVOptions(), mem).Read()
}

// ReadJSON reads a JSON array of objects
func ReadJSON(r io.Reader, mem memory.Allocator) (*Table, error) {
	return mio.NewJSONReader(r, mio.DefaultJSONOptions(), mem).Read()
}

// ReadParquet reads a Parquet file
func ReadParquet(r io.Reader, mem memory.Allocator) (*Table, error) {
	return mio.NewParquetReader(r, mio.DefaultParquetOptions(), mem).Read()
}

// DefaultResultFormat returns the default output record layout
func DefaultResultFormat() ResultFormat {
	return mio.DefaultResultFormat()
}

// WriteJSON writes a ranking as indented JSON keyed by axis value
func WriteJSON(w io.Writer, r *AxisRanking, format ResultFormat) error {
	return mio.NewResultWriter(w, format, nil).Write(r)
}

// WriteCSV writes a ranking with one row per ranked record
func WriteCSV(w io.Writer, r *AxisRanking, format ResultFormat) error {
	return mio.NewResultWriter(w, format, nil).WriteCSV(r)
}
