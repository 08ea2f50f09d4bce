package io_test

import (
	"strings"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/paveg/movers/internal/io"
	"github.com/paveg/movers/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONReader_Array(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	data := `[
		{"region": "광진구", "period": 20233, "sales": 100, "tags": ["a"]},
		{"region": "광진구", "period": 20234, "sales": 150.5, "stores": null},
		{"period": 20234, "region": "성동구", "sales": 80, "stores": 2}
	]`

	tbl, err := io.NewJSONReader(strings.NewReader(data), io.DefaultJSONOptions(), mem).Read()
	require.NoError(t, err)
	defer tbl.Release()

	assert.Equal(t, []string{"region", "period", "sales", "tags", "stores"}, tbl.Columns())
	assert.Equal(t, 3, tbl.Len())

	period, _ := tbl.Column("period")
	assert.Equal(t, arrow.INT64, period.DataType().ID())
	sales, _ := tbl.Column("sales")
	assert.Equal(t, arrow.FLOAT64, sales.DataType().ID())

	stores, _ := tbl.Column("stores")
	assert.True(t, stores.IsNull(0), "missing key is null")
	assert.True(t, stores.IsNull(1), "explicit null")
	testutil.AssertColumnStrings(t, tbl, "tags", []string{`["a"]`, "", ""})
}

func TestJSONReader_Lines(t *testing.T) {
	mem := memory.NewGoAllocator()
	data := "{\"k\": \"a\", \"v\": 1}\n\n{\"k\": \"b\", \"v\": 2}\n{\"k\": \"c\", \"v\": 3}\n"

	opts := io.JSONOptions{Format: io.JSONLines, MaxRecords: 2}
	tbl, err := io.NewJSONReader(strings.NewReader(data), opts, mem).Read()
	require.NoError(t, err)
	defer tbl.Release()

	assert.Equal(t, 2, tbl.Len())
	testutil.AssertColumnStrings(t, tbl, "k", []string{"a", "b"})
}

func TestJSONReader_Errors(t *testing.T) {
	mem := memory.NewGoAllocator()

	tests := []struct {
		name string
		data string
		opts io.JSONOptions
	}{
		{"not an array", `{"k": 1}`, io.DefaultJSONOptions()},
		{"array of scalars", `[1, 2]`, io.DefaultJSONOptions()},
		{"broken line", "{\"k\": 1}\n{oops}\n", io.JSONOptions{Format: io.JSONLines}},
		{"unknown format", `[]`, io.JSONOptions{Format: io.JSONFormat(9)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := io.NewJSONReader(strings.NewReader(tt.data), tt.opts, mem).Read()
			assert.Error(t, err)
		})
	}

	t.Run("empty array", func(t *testing.T) {
		tbl, err := io.NewJSONReader(strings.NewReader(`[]`), io.DefaultJSONOptions(), mem).Read()
		require.NoError(t, err)
		assert.Equal(t, 0, tbl.Len())
	})
}
