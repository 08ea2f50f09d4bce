package ranking

import (
	"slices"

	"github.com/paveg/movers/internal/errors"
	"github.com/paveg/movers/internal/validation"
	"github.com/shopspring/decimal"
)

// changePrecision is the number of decimal places a change is rounded to
const changePrecision = 2

var hundred = decimal.NewFromInt(100)

// ComparisonRecord is one group present in both periods
type ComparisonRecord struct {
	Key      GroupKey
	Baseline Measure
	Current  Measure
	Change   decimal.Decimal // percent, rounded half away from zero to 2 places
}

// ChangePercent returns the change as a float64
func (r ComparisonRecord) ChangePercent() float64 {
	f, _ := r.Change.Float64()
	return f
}

// RankedResult is the ordered, truncated list of movers for one partition
type RankedResult struct {
	Axis    string
	Metric  string
	Records []ComparisonRecord

	// Candidates counts keys present in both periods.
	Candidates int
	// Excluded counts joined keys that failed the rankable check.
	Excluded int
	// Unmatched counts keys present in only one period.
	Unmatched int
}

// Len returns the number of ranked records
func (r *RankedResult) Len() int {
	return len(r.Records)
}

// Keys returns the ranked keys in order
func (r *RankedResult) Keys() []GroupKey {
	keys := make([]GroupKey, len(r.Records))
	for i, rec := range r.Records {
		keys[i] = rec.Key
	}
	return keys
}

// rankable reports whether a joined pair yields a meaningful change.
// A zero baseline has no defined ratio and non-finite inputs have no value.
func rankable(baseline, current Measure) bool {
	return baseline.Finite() && current.Finite() && !baseline.Sum.IsZero()
}

// percentChange computes (current - baseline) / baseline * 100 rounded once,
// half away from zero. baseline must be non-zero.
func percentChange(baseline, current decimal.Decimal) decimal.Decimal {
	return current.Sub(baseline).Mul(hundred).DivRound(baseline, changePrecision)
}

// CompareAndRank joins two aggregations on their keys, computes the percentage
// change of metric, ranks descending and keeps the first limit records.
// Ties are broken by ascending key. Keys with a zero baseline or a non-finite
// value are dropped and counted, never reported as errors. A key Derive removed
// from one side counts as Excluded when the other side has it too.
func CompareAndRank(baseline, current *Aggregation, metric string, limit int) (*RankedResult, error) {
	const op = "CompareAndRank"

	if err := validation.ValidateLimit(limit, op); err != nil {
		return nil, err
	}
	if baseline == nil || current == nil {
		return nil, errors.NewInvalidArgumentError(op, "both aggregations are required")
	}
	if !slices.Equal(baseline.groupBy, current.groupBy) {
		return nil, errors.NewInvalidArgumentError(op, "aggregations are grouped by different fields")
	}
	for _, agg := range []*Aggregation{baseline, current} {
		if !agg.HasMetric(metric) {
			return nil, errors.NewUnknownFieldError(op, metric)
		}
	}

	result := &RankedResult{Metric: metric}
	records := make([]ComparisonRecord, 0, min(baseline.Len(), current.Len()))

	for _, cur := range current.groups {
		base, ok := baseline.Lookup(cur.Key)
		if !ok {
			if baseline.wasDropped(cur.Key) {
				result.Candidates++
				result.Excluded++
			}
			continue
		}
		result.Candidates++

		b, c := base.Values[metric], cur.Values[metric]
		if !rankable(b, c) {
			result.Excluded++
			continue
		}
		records = append(records, ComparisonRecord{
			Key:      cur.Key,
			Baseline: b,
			Current:  c,
			Change:   percentChange(b.Sum, c.Sum),
		})
	}
	for _, key := range current.dropped.keys {
		if _, ok := baseline.Lookup(key); ok || baseline.wasDropped(key) {
			result.Candidates++
			result.Excluded++
		}
	}
	result.Unmatched = baseline.Len() + baseline.Dropped() + current.Len() + current.Dropped() - 2*result.Candidates

	sortRecords(records)
	if len(records) > limit {
		records = records[:limit]
	}
	result.Records = slices.Clip(records)

	return result, nil
}

// sortRecords orders by change descending, then key ascending
func sortRecords(records []ComparisonRecord) {
	slices.SortStableFunc(records, func(a, b ComparisonRecord) int {
		if c := b.Change.Cmp(a.Change); c != 0 {
			return c
		}
		return a.Key.Compare(b.Key)
	})
}
