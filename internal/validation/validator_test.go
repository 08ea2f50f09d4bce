package validation_test

import (
	"testing"

	"github.com/apache/arrow-go/v18/arrow/memory"
	rerrors "github.com/paveg/movers/internal/errors"
	"github.com/paveg/movers/internal/series"
	"github.com/paveg/movers/internal/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockSource implements ColumnProvider for testing.
type mockSource struct {
	columns map[string]series.Column
}

func newMockSource() *mockSource {
	mem := memory.NewGoAllocator()
	return &mockSource{columns: map[string]series.Column{
		"region": series.New("region", []string{"광진구"}, mem),
		"stores": series.New("stores", []int64{3}, mem),
		"sales":  series.New("sales", []float64{1.5}, mem),
		"open":   series.New("open", []bool{true}, mem),
	}}
}

func (m *mockSource) HasColumn(name string) bool {
	_, ok := m.columns[name]
	return ok
}

func (m *mockSource) Column(name string) (series.Column, bool) {
	c, ok := m.columns[name]
	return c, ok
}

func TestColumnValidator(t *testing.T) {
	src := newMockSource()

	t.Run("Valid fields", func(t *testing.T) {
		require.NoError(t, validation.NewColumnValidator(src, "Aggregate", "region", "stores").Validate())
	})

	t.Run("Unknown field", func(t *testing.T) {
		err := validation.NewColumnValidator(src, "Aggregate", "zone").Validate()
		require.Error(t, err)

		var re *rerrors.RankingError
		require.ErrorAs(t, err, &re)
		assert.Equal(t, "Aggregate", re.Op)
		assert.Equal(t, "zone", re.Field)
		assert.ErrorIs(t, err, rerrors.ErrInvalidArgument)
	})
}

func TestNumericValidator(t *testing.T) {
	src := newMockSource()

	tests := []struct {
		name    string
		fields  []string
		wantErr string
	}{
		{"int64 metric", []string{"stores"}, ""},
		{"float64 metric", []string{"sales"}, ""},
		{"string metric", []string{"region"}, "unsupported type: utf8"},
		{"bool metric", []string{"open"}, "unsupported type: bool"},
		{"missing metric", []string{"traffic"}, "field does not exist"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validation.ValidateNumeric(src, "Aggregate", tt.fields...)
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
			assert.ErrorIs(t, err, rerrors.ErrInvalidArgument)
		})
	}
}

func TestLimitValidator(t *testing.T) {
	require.NoError(t, validation.ValidateLimit(1, "CompareAndRank"))
	require.NoError(t, validation.ValidateLimit(10, "CompareAndRank"))

	for _, limit := range []int{0, -1, -10} {
		err := validation.ValidateLimit(limit, "CompareAndRank")
		require.Error(t, err)
		assert.ErrorIs(t, err, rerrors.ErrInvalidArgument)
	}
}

func TestFieldSetValidator(t *testing.T) {
	tests := []struct {
		name     string
		fields   []string
		reserved []string
		wantErr  bool
	}{
		{"valid pair", []string{"region", "subdistrict"}, []string{"weekday"}, false},
		{"empty list", nil, nil, true},
		{"empty name", []string{"region", ""}, nil, true},
		{"duplicate", []string{"region", "region"}, nil, true},
		{"axis inside group key", []string{"region", "weekday"}, []string{"weekday"}, true},
		{"empty reserved name ignored", []string{"region"}, []string{""}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validation.NewFieldSetValidator(tt.fields, "RankByAxis", tt.reserved...).Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, rerrors.ErrInvalidArgument)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestRequiredValidator(t *testing.T) {
	require.NoError(t, validation.NewRequiredValidator("RankByAxis", "baseline", "20233", "current", "20234").Validate())

	err := validation.NewRequiredValidator("RankByAxis", "baseline", "20233", "current", "").Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "current is required")
}

func TestCompoundValidator(t *testing.T) {
	src := newMockSource()

	t.Run("first failure wins", func(t *testing.T) {
		err := validation.NewCompoundValidator(
			validation.NewColumnValidator(src, "RankByAxis", "region"),
			validation.NewLimitValidator(0, "RankByAxis"),
			validation.NewColumnValidator(src, "RankByAxis", "zone"),
		).Validate()

		require.Error(t, err)
		assert.Contains(t, err.Error(), "limit must be positive")
	})

	t.Run("all pass", func(t *testing.T) {
		err := validation.NewCompoundValidator(
			validation.NewColumnValidator(src, "RankByAxis", "region"),
			validation.NewLimitValidator(3, "RankByAxis"),
		).Validate()
		require.NoError(t, err)
	})
}
