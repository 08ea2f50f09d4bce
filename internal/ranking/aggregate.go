// Package ranking implements the period-over-period "top movers" engine.
//
// Rows are partitioned by a GroupKey, metrics are summed per partition for a
// baseline and a current period, both sides are joined on the key, and the
// percentage change is ranked descending and truncated to a limit. RankByAxis
// repeats that pipeline independently for every value of an axis field.
//
// All sums are exact decimals, so results do not depend on row order.
package ranking

import (
	"math"
	"slices"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/paveg/movers/internal/errors"
	"github.com/paveg/movers/internal/series"
	"github.com/paveg/movers/internal/validation"
	"github.com/shopspring/decimal"
)

// Source is a columnar row set the engine can read
type Source interface {
	Len() int
	HasColumn(name string) bool
	Column(name string) (series.Column, bool)
}

// Measure is one aggregated metric value.
// Infinite is set once any contributing cell was ±Inf; Sum is then meaningless.
type Measure struct {
	Sum      decimal.Decimal
	Infinite bool
}

// Finite reports whether the measure holds a usable value
func (m Measure) Finite() bool {
	return !m.Infinite
}

// Float64 returns the sum as a float64, or +Inf for an infinite measure
func (m Measure) Float64() float64 {
	if m.Infinite {
		return math.Inf(1)
	}
	f, _ := m.Sum.Float64()
	return f
}

// AggregatedGroup is the per-key result of aggregating one period
type AggregatedGroup struct {
	Key    GroupKey
	Rows   int
	Values map[string]Measure
}

// Value returns the measure of a metric
func (g AggregatedGroup) Value(metric string) (Measure, bool) {
	m, ok := g.Values[metric]
	return m, ok
}

// Aggregation maps every GroupKey of one period to its AggregatedGroup.
// Groups iterate in ascending key order.
type Aggregation struct {
	groupBy []string
	metrics []string
	period  string
	groups  []AggregatedGroup
	index   *keyIndex
	// dropped holds the keys Derive removed for a zero denominator
	dropped *keyIndex
}

// GroupBy returns the key fields
func (a *Aggregation) GroupBy() []string { return slices.Clone(a.groupBy) }

// Metrics returns the metric names every group carries
func (a *Aggregation) Metrics() []string { return slices.Clone(a.metrics) }

// Period returns the period identifier the rows were filtered by
func (a *Aggregation) Period() string { return a.period }

// Len returns the number of groups
func (a *Aggregation) Len() int { return len(a.groups) }

// Dropped returns how many groups Derive removed for a zero denominator
func (a *Aggregation) Dropped() int { return a.dropped.len() }

// wasDropped reports whether Derive removed key
func (a *Aggregation) wasDropped(key GroupKey) bool {
	_, ok := a.dropped.find(key)
	return ok
}

// Groups returns the groups in ascending key order
func (a *Aggregation) Groups() []AggregatedGroup {
	return slices.Clone(a.groups)
}

// Lookup finds the group for key
func (a *Aggregation) Lookup(key GroupKey) (AggregatedGroup, bool) {
	slot, ok := a.index.find(key)
	if !ok {
		return AggregatedGroup{}, false
	}
	return a.groups[slot], true
}

// HasMetric reports whether metric was aggregated or derived
func (a *Aggregation) HasMetric(metric string) bool {
	return slices.Contains(a.metrics, metric)
}

// Total sums a metric over every group
func (a *Aggregation) Total(metric string) Measure {
	var total Measure
	for _, g := range a.groups {
		m := g.Values[metric]
		total.Sum = total.Sum.Add(m.Sum)
		total.Infinite = total.Infinite || m.Infinite
	}
	return total
}

// Aggregate filters src to rows whose periodField renders as period, partitions
// them by the groupBy fields and sums every metric per partition.
// Null and NaN metric cells contribute nothing. Rows with a null groupBy cell
// belong to no group.
func Aggregate(src Source, periodField, period string, groupBy []string, metrics ...string) (*Aggregation, error) {
	const op = "Aggregate"

	if err := validateAggregate(op, src, periodField, period, groupBy, metrics); err != nil {
		return nil, err
	}

	periodCol, _ := src.Column(periodField)
	rows := matchingRows(periodCol, period, src.Len())

	return aggregateRows(src, rows, period, groupBy, metrics)
}

func validateAggregate(op string, src Source, periodField, period string, groupBy, metrics []string) error {
	if len(metrics) == 0 {
		return errors.NewInvalidArgumentError(op, "at least one metric is required")
	}
	return validation.NewCompoundValidator(
		validation.NewRequiredValidator(op, "period field", periodField, "period", period),
		validation.NewFieldSetValidator(groupBy, op, periodField),
		validation.NewColumnValidator(src, op, append(slices.Clone(groupBy), periodField)...),
		validation.NewNumericValidator(src, op, metrics...),
	).Validate()
}

// matchingRows returns the rows whose cell renders as value, trimmed
func matchingRows(col series.Column, value string, n int) []int {
	want := strings.TrimSpace(value)
	rows := make([]int, 0, n)
	for row := range n {
		if strings.TrimSpace(col.GetAsString(row)) == want {
			rows = append(rows, row)
		}
	}
	return rows
}

// aggregateRows sums metrics over the given rows. Inputs are already validated.
func aggregateRows(src Source, rows []int, period string, groupBy, metrics []string) (*Aggregation, error) {
	dims := make([]series.Column, len(groupBy))
	for i, field := range groupBy {
		dims[i], _ = src.Column(field)
	}

	readers := make([]metricReader, len(metrics))
	for i, metric := range metrics {
		col, _ := src.Column(metric)
		r, err := newMetricReader(col)
		if err != nil {
			for _, opened := range readers[:i] {
				opened.release()
			}
			return nil, err
		}
		readers[i] = r
	}
	defer func() {
		for _, r := range readers {
			r.release()
		}
	}()

	index := newKeyIndex(len(rows) / 4)
	var groups []AggregatedGroup
	key := make(GroupKey, len(groupBy))

next:
	for _, row := range rows {
		for i, dim := range dims {
			if dim.IsNull(row) {
				continue next
			}
			key[i] = dim.GetAsString(row)
		}

		slot, created := index.insert(key)
		if created {
			values := make(map[string]Measure, len(metrics))
			for _, metric := range metrics {
				values[metric] = Measure{}
			}
			groups = append(groups, AggregatedGroup{Key: index.keys[slot], Values: values})
		}

		g := &groups[slot]
		g.Rows++
		for i, r := range readers {
			v, state := r.at(row)
			if state == cellSkip {
				continue
			}
			m := g.Values[metrics[i]]
			if state == cellInfinite {
				m.Infinite = true
			} else {
				m.Sum = m.Sum.Add(v)
			}
			g.Values[metrics[i]] = m
		}
	}

	return newAggregation(groupBy, metrics, period, groups, newKeyIndex(0)), nil
}

// newAggregation sorts groups by key and indexes them
func newAggregation(groupBy, metrics []string, period string, groups []AggregatedGroup, dropped *keyIndex) *Aggregation {
	slices.SortFunc(groups, func(a, b AggregatedGroup) int {
		return a.Key.Compare(b.Key)
	})

	index := newKeyIndex(len(groups))
	for i := range groups {
		index.insert(groups[i].Key)
	}

	return &Aggregation{
		groupBy: slices.Clone(groupBy),
		metrics: slices.Clone(metrics),
		period:  period,
		groups:  groups,
		index:   index,
		dropped: dropped,
	}
}

type cellState int

const (
	cellValue cellState = iota
	cellSkip
	cellInfinite
)

// metricReader reads numeric cells of an int64 or float64 column as decimals
type metricReader struct {
	arr    arrow.Array
	ints   *array.Int64
	floats *array.Float64
}

func newMetricReader(col series.Column) (metricReader, error) {
	arr := col.Array()
	switch typed := arr.(type) {
	case *array.Int64:
		return metricReader{arr: arr, ints: typed}, nil
	case *array.Float64:
		return metricReader{arr: arr, floats: typed}, nil
	default:
		arr.Release()
		return metricReader{}, errors.NewUnsupportedTypeError("Aggregate", col.Name(), col.DataType().String())
	}
}

func (r metricReader) at(row int) (decimal.Decimal, cellState) {
	if r.arr.IsNull(row) {
		return decimal.Decimal{}, cellSkip
	}
	if r.ints != nil {
		return decimal.NewFromInt(r.ints.Value(row)), cellValue
	}
	f := r.floats.Value(row)
	switch {
	case math.IsNaN(f):
		return decimal.Decimal{}, cellSkip
	case math.IsInf(f, 0):
		return decimal.Decimal{}, cellInfinite
	default:
		return decimal.NewFromFloat(f), cellValue
	}
}

func (r metricReader) release() {
	if r.arr != nil {
		r.arr.Release()
	}
}

// Derive adds metric as = Σnumerator / Σdenominator to every group of agg.
// The ratio is taken after aggregation, never per row. Groups whose
// denominator sums to zero are dropped and counted in Dropped; CompareAndRank
// reports a joined key dropped on either side as Excluded.
func Derive(agg *Aggregation, numerator, denominator, as string) (*Aggregation, error) {
	const op = "Derive"

	if agg == nil {
		return nil, errors.NewInvalidArgumentError(op, "aggregation is nil")
	}
	if as == "" {
		return nil, errors.NewInvalidArgumentError(op, "derived metric needs a name")
	}
	if agg.HasMetric(as) {
		return nil, errors.NewValidationError(op, as, "derived metric name already in use")
	}
	for _, metric := range []string{numerator, denominator} {
		if !agg.HasMetric(metric) {
			return nil, errors.NewUnknownFieldError(op, metric)
		}
	}

	groups := make([]AggregatedGroup, 0, len(agg.groups))
	dropped := newKeyIndex(agg.dropped.len())
	for _, key := range agg.dropped.keys {
		dropped.insert(key)
	}
	for _, g := range agg.groups {
		num, den := g.Values[numerator], g.Values[denominator]
		if den.Finite() && den.Sum.IsZero() {
			dropped.insert(g.Key)
			continue
		}

		derived := Measure{Infinite: num.Infinite || den.Infinite}
		if derived.Finite() {
			derived.Sum = num.Sum.DivRound(den.Sum, derivePrecision)
		}

		values := make(map[string]Measure, len(g.Values)+1)
		for k, v := range g.Values {
			values[k] = v
		}
		values[as] = derived
		groups = append(groups, AggregatedGroup{Key: g.Key, Rows: g.Rows, Values: values})
	}

	return newAggregation(agg.groupBy, append(slices.Clone(agg.metrics), as), agg.period, groups, dropped), nil
}

// derivePrecision is the number of fractional digits kept by Derive
const derivePrecision = 16
