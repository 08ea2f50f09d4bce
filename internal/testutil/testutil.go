// Package testutil provides common testing utilities shared by the ranking,
// io and runner tests.
//
// It consolidates:
// - Memory allocator setup and cleanup
// - Survey table fixtures (region, subdistrict, period, category, metrics)
// - Common table assertions
package testutil

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/paveg/movers/internal/series"
	"github.com/paveg/movers/internal/table"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Survey fixture column names
const (
	RegionField      = "region"
	SubdistrictField = "subdistrict"
	PeriodField      = "period"
	CategoryField    = "category"
	StoresField      = "stores"
	SalesField       = "sales"
)

// TestMemoryContext provides memory allocator with automatic cleanup.
type TestMemoryContext struct {
	Allocator memory.Allocator
	cleanup   func()
}

// Release performs cleanup of the memory context.
func (tmc *TestMemoryContext) Release() {
	if tmc.cleanup != nil {
		tmc.cleanup()
	}
}

// SetupMemoryTest creates a checked allocator for tests. Release asserts
// that every Arrow buffer allocated through it was freed.
//
// Example usage:
//
//	mem := testutil.SetupMemoryTest(t)
//	defer mem.Release()
func SetupMemoryTest(tb testing.TB) *TestMemoryContext {
	tb.Helper()
	allocator := memory.NewCheckedAllocator(memory.NewGoAllocator())

	return &TestMemoryContext{
		Allocator: allocator,
		cleanup: func() {
			allocator.AssertSize(tb, 0)
		},
	}
}

// SurveyRow is one fixture observation
type SurveyRow struct {
	Region      string
	Subdistrict string
	Period      int64
	Category    string
	Stores      int64
	Sales       float64
}

// CreateSurveyTable builds a table with columns region, subdistrict, period
// (int64), category, stores (int64) and sales (float64).
func CreateSurveyTable(allocator memory.Allocator, rows []SurveyRow) *table.Table {
	regions := make([]string, len(rows))
	subdistricts := make([]string, len(rows))
	periods := make([]int64, len(rows))
	categories := make([]string, len(rows))
	stores := make([]int64, len(rows))
	sales := make([]float64, len(rows))

	for i, r := range rows {
		regions[i] = r.Region
		subdistricts[i] = r.Subdistrict
		periods[i] = r.Period
		categories[i] = r.Category
		stores[i] = r.Stores
		sales[i] = r.Sales
	}

	return table.New(
		series.New(RegionField, regions, allocator),
		series.New(SubdistrictField, subdistricts, allocator),
		series.New(PeriodField, periods, allocator),
		series.New(CategoryField, categories, allocator),
		series.New(StoresField, stores, allocator),
		series.New(SalesField, sales, allocator),
	)
}

// DefaultSurvey is a small two-period dataset over two regions and two
// categories. Between 20233 and 20234:
//
//	광진구/화양동 food:   100 → 150  (+50%)
//	광진구/자양동 food:   200 → 180  (-10%)
//	성동구/성수동 food:     0 → 40   (zero baseline)
//	광진구/화양동 retail:  80 → 120  (+50%)
//	성동구/성수동 retail:  50 → 100  (+100%)
//	성동구/왕십리 retail:  30 only in 20234
func DefaultSurvey() []SurveyRow {
	return []SurveyRow{
		{"광진구", "화양동", 20233, "food", 4, 100},
		{"광진구", "화양동", 20234, "food", 5, 150},
		{"광진구", "자양동", 20233, "food", 2, 200},
		{"광진구", "자양동", 20234, "food", 2, 180},
		{"성동구", "성수동", 20233, "food", 1, 0},
		{"성동구", "성수동", 20234, "food", 1, 40},
		{"광진구", "화양동", 20233, "retail", 2, 80},
		{"광진구", "화양동", 20234, "retail", 3, 120},
		{"성동구", "성수동", 20233, "retail", 1, 50},
		{"성동구", "성수동", 20234, "retail", 2, 100},
		{"성동구", "왕십리", 20234, "retail", 1, 30},
	}
}

// CreateTestSurvey builds the DefaultSurvey table.
func CreateTestSurvey(allocator memory.Allocator) *table.Table {
	return CreateSurveyTable(allocator, DefaultSurvey())
}

// WriteSurveyCSV writes rows as a CSV file named name inside dir and returns
// its path.
func WriteSurveyCSV(tb testing.TB, dir, name string, rows []SurveyRow) string {
	tb.Helper()

	var sb strings.Builder
	sb.WriteString(strings.Join([]string{
		RegionField, SubdistrictField, PeriodField, CategoryField, StoresField, SalesField,
	}, ","))
	sb.WriteByte('\n')
	for _, r := range rows {
		sb.WriteString(strings.Join([]string{
			r.Region,
			r.Subdistrict,
			strconv.FormatInt(r.Period, 10),
			r.Category,
			strconv.FormatInt(r.Stores, 10),
			strconv.FormatFloat(r.Sales, 'f', -1, 64),
		}, ","))
		sb.WriteByte('\n')
	}

	path := filepath.Join(dir, name)
	require.NoError(tb, os.WriteFile(path, []byte(sb.String()), 0o600))
	return path
}

// AssertTableHasColumns verifies that a table has the expected columns in order.
func AssertTableHasColumns(t *testing.T, tbl *table.Table, expectedColumns []string) {
	t.Helper()

	require.NotNil(t, tbl, "table should not be nil")
	assert.Equal(t, expectedColumns, tbl.Columns(), "columns should match")
}

// AssertColumnStrings verifies the rendered cells of a column.
func AssertColumnStrings(t *testing.T, tbl *table.Table, name string, expected []string) {
	t.Helper()

	col, ok := tbl.Column(name)
	require.True(t, ok, "column %s should exist", name)
	require.Equal(t, len(expected), col.Len(), "column %s length", name)

	actual := make([]string, col.Len())
	for i := range actual {
		actual[i] = col.GetAsString(i)
	}
	assert.Equal(t, expected, actual, "column %s values", name)
}
