package io_test

import (
	"context"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/paveg/movers/internal/io"
	"github.com/paveg/movers/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLReader_SQLite(t *testing.T) {
	db, err := io.OpenSQL(io.DriverSQLite, ":memory:")
	require.NoError(t, err)
	defer db.Close()
	db.SetMaxOpenConns(1)

	ctx := context.Background()
	_, err = db.ExecContext(ctx, `CREATE TABLE sales (
		region TEXT, period INTEGER, amount REAL, stores INTEGER, code TEXT)`)
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, `INSERT INTO sales VALUES
		('광진구', 20233, 100.5, 3, '20233'),
		('성동구', 20234, 80, NULL, '20234')`)
	require.NoError(t, err)

	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	reader := io.NewSQLReader(db, `SELECT region, period, amount, stores, code FROM sales WHERE period >= ? ORDER BY period`, mem, 20000)
	tbl, err := reader.ReadContext(ctx)
	require.NoError(t, err)
	defer tbl.Release()

	assert.Equal(t, 2, tbl.Len())
	testutil.AssertTableHasColumns(t, tbl, []string{"region", "period", "amount", "stores", "code"})
	testutil.AssertColumnStrings(t, tbl, "region", []string{"광진구", "성동구"})

	period, _ := tbl.Column("period")
	assert.Equal(t, arrow.INT64, period.DataType().ID())
	amount, _ := tbl.Column("amount")
	assert.Equal(t, arrow.FLOAT64, amount.DataType().ID())
	stores, _ := tbl.Column("stores")
	assert.True(t, stores.IsNull(1))
	code, _ := tbl.Column("code")
	assert.Equal(t, arrow.INT64, code.DataType().ID(), "numeric text is parsed")
}

func TestSQLReader_Errors(t *testing.T) {
	db, err := io.OpenSQL(io.DriverSQLite, ":memory:")
	require.NoError(t, err)
	defer db.Close()

	_, err = io.NewSQLReader(db, "SELECT * FROM missing_table", nil).Read()
	assert.Error(t, err)
}

func TestOpenSQL(t *testing.T) {
	t.Run("unknown driver", func(t *testing.T) {
		_, err := io.OpenSQL("postgres", "host=x")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unsupported SQL driver")
	})

	t.Run("mysql dsn is validated", func(t *testing.T) {
		_, err := io.OpenSQL(io.DriverMySQL, "no-slash-here")
		assert.Error(t, err)
	})

	t.Run("mysql open is lazy", func(t *testing.T) {
		db, err := io.OpenSQL(io.DriverMySQL, "user:pw@tcp(127.0.0.1:3306)/survey")
		require.NoError(t, err)
		require.NoError(t, db.Close())
	})
}
