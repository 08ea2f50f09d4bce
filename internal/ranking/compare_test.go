package ranking_test

import (
	"math"
	"math/rand"
	"slices"
	"testing"
	"testing/quick"

	"github.com/apache/arrow-go/v18/arrow/memory"
	rerrors "github.com/paveg/movers/internal/errors"
	"github.com/paveg/movers/internal/ranking"
	"github.com/paveg/movers/internal/series"
	"github.com/paveg/movers/internal/table"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type obs struct {
	key    string
	period int64
	value  float64
}

// aggregatePair builds one table from the observations and aggregates
// periods 1 and 2 by key.
func aggregatePair(t *testing.T, rows []obs) (*ranking.Aggregation, *ranking.Aggregation) {
	t.Helper()
	mem := memory.NewGoAllocator()

	keys := make([]string, len(rows))
	periods := make([]int64, len(rows))
	values := make([]float64, len(rows))
	for i, r := range rows {
		keys[i], periods[i], values[i] = r.key, r.period, r.value
	}
	tbl := table.New(
		series.New("key", keys, mem),
		series.New("period", periods, mem),
		series.New("value", values, mem),
	)
	defer tbl.Release()

	base, err := ranking.Aggregate(tbl, "period", "1", []string{"key"}, "value")
	require.NoError(t, err)
	cur, err := ranking.Aggregate(tbl, "period", "2", []string{"key"}, "value")
	require.NoError(t, err)
	return base, cur
}

func TestCompareAndRankWorkedExample(t *testing.T) {
	mem := memory.NewGoAllocator()
	tbl := table.New(
		series.New("region", []string{"A", "A"}, mem),
		series.New("subdistrict", []string{"X", "X"}, mem),
		series.New("period", []int64{1, 2}, mem),
		series.New("metric", []int64{100, 150}, mem),
	)
	defer tbl.Release()

	groupBy := []string{"region", "subdistrict"}
	base, err := ranking.Aggregate(tbl, "period", "1", groupBy, "metric")
	require.NoError(t, err)
	cur, err := ranking.Aggregate(tbl, "period", "2", groupBy, "metric")
	require.NoError(t, err)

	result, err := ranking.CompareAndRank(base, cur, "metric", 10)
	require.NoError(t, err)
	require.Equal(t, 1, result.Len())

	rec := result.Records[0]
	assert.Equal(t, ranking.GroupKey{"A", "X"}, rec.Key)
	assert.Equal(t, "50", rec.Change.String())
	assert.InDelta(t, 50.0, rec.ChangePercent(), 1e-9)
}

func TestCompareAndRankZeroBaseline(t *testing.T) {
	base, cur := aggregatePair(t, []obs{
		{"z", 1, 0}, {"z", 2, 10},
		{"n", 1, 10}, {"n", 2, 20},
	})

	result, err := ranking.CompareAndRank(base, cur, "value", 10)
	require.NoError(t, err)

	assert.Equal(t, []ranking.GroupKey{{"n"}}, result.Keys())
	assert.Equal(t, 2, result.Candidates)
	assert.Equal(t, 1, result.Excluded)
	for _, rec := range result.Records {
		assert.False(t, rec.Baseline.Sum.IsZero())
	}
}

func TestCompareAndRankNonFinite(t *testing.T) {
	base, cur := aggregatePair(t, []obs{
		{"inf", 1, 10}, {"inf", 2, math.Inf(1)},
		{"ok", 1, 10}, {"ok", 2, 5},
	})

	result, err := ranking.CompareAndRank(base, cur, "value", 10)
	require.NoError(t, err)

	assert.Equal(t, []ranking.GroupKey{{"ok"}}, result.Keys())
	assert.Equal(t, 1, result.Excluded)
	assert.Equal(t, "-50.00", result.Records[0].Change.StringFixed(2))
}

func TestCompareAndRankDerivedZeroDenominator(t *testing.T) {
	mem := memory.NewGoAllocator()
	tbl := table.New(
		series.New("region", []string{"ok", "ok", "gone", "gone", "both", "both", "solo"}, mem),
		series.New("period", []int64{1, 2, 1, 2, 1, 2, 2}, mem),
		series.New("sales", []int64{100, 300, 50, 80, 10, 10, 40}, mem),
		series.New("stores", []int64{2, 3, 1, 0, 0, 0, 0}, mem),
	)
	defer tbl.Release()

	derive := func(period string) *ranking.Aggregation {
		agg, err := ranking.Aggregate(tbl, "period", period, []string{"region"}, "sales", "stores")
		require.NoError(t, err)
		derived, err := ranking.Derive(agg, "sales", "stores", "avg")
		require.NoError(t, err)
		return derived
	}
	base, cur := derive("1"), derive("2")
	require.Equal(t, 1, base.Dropped())
	require.Equal(t, 3, cur.Dropped())

	result, err := ranking.CompareAndRank(base, cur, "avg", 10)
	require.NoError(t, err)

	assert.Equal(t, []ranking.GroupKey{{"ok"}}, result.Keys())
	assert.Equal(t, 3, result.Candidates, "ok, gone and both are present in both periods")
	assert.Equal(t, 2, result.Excluded, "gone and both have a zero store count")
	assert.Equal(t, 1, result.Unmatched, "solo exists only in the current period")
}

func TestCompareAndRankInnerJoin(t *testing.T) {
	base, cur := aggregatePair(t, []obs{
		{"both", 1, 10}, {"both", 2, 11},
		{"old", 1, 10},
		{"new", 2, 10},
	})

	result, err := ranking.CompareAndRank(base, cur, "value", 10)
	require.NoError(t, err)

	assert.Equal(t, []ranking.GroupKey{{"both"}}, result.Keys())
	assert.Equal(t, 2, result.Unmatched)
	assert.Equal(t, 1, result.Candidates)
}

func TestCompareAndRankLimit(t *testing.T) {
	base, cur := aggregatePair(t, []obs{
		{"a", 1, 10}, {"a", 2, 20},
		{"b", 1, 10}, {"b", 2, 30},
		{"c", 1, 10}, {"c", 2, 5},
	})

	t.Run("fewer qualifying than limit", func(t *testing.T) {
		result, err := ranking.CompareAndRank(base, cur, "value", 10)
		require.NoError(t, err)
		assert.Equal(t, 3, result.Len())
		assert.Equal(t, []ranking.GroupKey{{"b"}, {"a"}, {"c"}}, result.Keys())
	})

	t.Run("truncates", func(t *testing.T) {
		result, err := ranking.CompareAndRank(base, cur, "value", 2)
		require.NoError(t, err)
		assert.Equal(t, []ranking.GroupKey{{"b"}, {"a"}}, result.Keys())
	})

	t.Run("non-positive limit", func(t *testing.T) {
		for _, limit := range []int{0, -3} {
			_, err := ranking.CompareAndRank(base, cur, "value", limit)
			require.ErrorIs(t, err, rerrors.ErrInvalidArgument)
		}
	})

	t.Run("unknown metric", func(t *testing.T) {
		_, err := ranking.CompareAndRank(base, cur, "sales", 3)
		require.ErrorIs(t, err, rerrors.ErrInvalidArgument)
	})
}

func TestCompareAndRankTieBreak(t *testing.T) {
	base, cur := aggregatePair(t, []obs{
		{"delta", 1, 10}, {"delta", 2, 20},
		{"alpha", 1, 5}, {"alpha", 2, 10},
		{"charlie", 1, 1}, {"charlie", 2, 2},
		{"bravo", 1, 4}, {"bravo", 2, 2},
	})

	result, err := ranking.CompareAndRank(base, cur, "value", 10)
	require.NoError(t, err)
	assert.Equal(t, []ranking.GroupKey{{"alpha"}, {"charlie"}, {"delta"}, {"bravo"}}, result.Keys())

	cut, err := ranking.CompareAndRank(base, cur, "value", 2)
	require.NoError(t, err)
	assert.Equal(t, []ranking.GroupKey{{"alpha"}, {"charlie"}}, cut.Keys())
}

func TestCompareAndRankRounding(t *testing.T) {
	tests := []struct {
		name     string
		baseline float64
		current  float64
		want     string
	}{
		{"repeating positive", 3, 4, "33.33"},
		{"repeating negative", 3, 2, "-33.33"},
		{"two thirds", 3, 5, "66.67"},
		{"half rounds up", 8, 8.0004, "0.01"},
		{"negative half rounds away from zero", 8, 7.9996, "-0.01"},
		{"no change", 7, 7, "0.00"},
		{"double", 0.1, 0.2, "100.00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			base, cur := aggregatePair(t, []obs{{"k", 1, tt.baseline}, {"k", 2, tt.current}})

			result, err := ranking.CompareAndRank(base, cur, "value", 1)
			require.NoError(t, err)
			require.Equal(t, 1, result.Len())
			assert.Equal(t, tt.want, result.Records[0].Change.StringFixed(2))
		})
	}
}

func TestCompareAndRankEmpty(t *testing.T) {
	base, cur := aggregatePair(t, nil)

	result, err := ranking.CompareAndRank(base, cur, "value", 5)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Len())
	assert.Equal(t, 0, result.Candidates)
}

// Properties over random inputs: the result never exceeds the limit, is
// ordered by non-increasing change, and never carries a zero baseline.
func TestCompareAndRankProperties(t *testing.T) {
	property := func(seed int64, rawLimit uint8) bool {
		rng := rand.New(rand.NewSource(seed))
		limit := int(rawLimit%12) + 1

		var rows []obs
		for i := range rng.Intn(40) {
			key := string(rune('a' + rng.Intn(8)))
			value := float64(rng.Intn(5)) * rng.Float64() * 100
			rows = append(rows, obs{key: key, period: int64(1 + i%2), value: value})
		}
		base, cur := aggregatePair(t, rows)

		result, err := ranking.CompareAndRank(base, cur, "value", limit)
		if err != nil {
			return false
		}
		if result.Len() > limit {
			return false
		}
		for i, rec := range result.Records {
			if rec.Baseline.Sum.IsZero() {
				return false
			}
			if i > 0 && result.Records[i-1].Change.LessThan(rec.Change) {
				return false
			}
		}
		return result.Len() == min(limit, result.Candidates-result.Excluded)
	}

	require.NoError(t, quick.Check(property, &quick.Config{MaxCount: 200}))
}

func TestCompareAndRankIdempotent(t *testing.T) {
	rows := []obs{
		{"a", 1, 3}, {"a", 2, 4},
		{"b", 1, 3}, {"b", 2, 4},
		{"c", 1, 9}, {"c", 2, 1},
	}

	var runs [][]ranking.GroupKey
	for range 5 {
		slices.Reverse(rows)
		base, cur := aggregatePair(t, rows)
		result, err := ranking.CompareAndRank(base, cur, "value", 10)
		require.NoError(t, err)
		runs = append(runs, result.Keys())
	}
	for _, keys := range runs[1:] {
		assert.Equal(t, runs[0], keys)
	}
}
