package ranking

import (
	"bytes"
	"slices"
	"strings"

	"github.com/paveg/movers/internal/errors"
	"github.com/paveg/movers/internal/series"
	"github.com/paveg/movers/internal/validation"
)

// Ratio names a metric derived after aggregation as Σnumerator / Σdenominator
type Ratio struct {
	Numerator   string `json:"numerator" yaml:"numerator"`
	Denominator string `json:"denominator" yaml:"denominator"`
}

// Query describes one ranking run
type Query struct {
	PeriodField string
	Baseline    string
	Current     string

	// Axis partitions rows before ranking; empty means one unkeyed partition.
	Axis string
	// AxisValues fixes the partitions and their order. When empty, the
	// distinct axis values are used in first-seen row order.
	AxisValues []string
	// SortAxis orders discovered axis values ascending instead of first-seen.
	SortAxis bool

	GroupBy []string
	// Metric is the ranked field, or the name given to the Ratio when set.
	Metric string
	Ratio  *Ratio
	Limit  int
}

// Validate checks the query against a row source
func (q Query) Validate(src Source) error {
	const op = "RankByAxis"

	if q.Metric == "" {
		return errors.NewInvalidArgumentError(op, "metric is required")
	}

	fields := append(slices.Clone(q.GroupBy), q.PeriodField)
	if q.Axis != "" {
		fields = append(fields, q.Axis)
	}
	numeric := []string{q.Metric}
	if q.Ratio != nil {
		numeric = []string{q.Ratio.Numerator, q.Ratio.Denominator}
		if q.Metric == q.Ratio.Numerator || q.Metric == q.Ratio.Denominator {
			return errors.NewValidationError(op, q.Metric, "derived metric shadows its input")
		}
		if q.Ratio.Numerator == q.Ratio.Denominator {
			return errors.NewValidationError(op, q.Ratio.Numerator, "ratio needs two distinct fields")
		}
	}

	seen := make(map[string]bool, len(q.AxisValues))
	for _, v := range q.AxisValues {
		if seen[v] {
			return errors.NewValidationError(op, q.Axis, "axis value listed twice: "+v)
		}
		seen[v] = true
	}
	if len(q.AxisValues) > 0 && q.Axis == "" {
		return errors.NewInvalidArgumentError(op, "axis values given without an axis field")
	}

	return validation.NewCompoundValidator(
		validation.NewLimitValidator(q.Limit, op),
		validation.NewRequiredValidator(op,
			"period field", q.PeriodField, "baseline period", q.Baseline, "current period", q.Current),
		validation.NewFieldSetValidator(q.GroupBy, op, q.Axis, q.PeriodField),
		validation.NewColumnValidator(src, op, fields...),
		validation.NewNumericValidator(src, op, numeric...),
	).Validate()
}

func (q Query) aggregated() []string {
	if q.Ratio != nil {
		return []string{q.Ratio.Numerator, q.Ratio.Denominator}
	}
	return []string{q.Metric}
}

// AxisResult pairs an axis value with its ranking
type AxisResult struct {
	Axis   string
	Result *RankedResult
}

// AxisRanking holds one RankedResult per axis value, in axis order
type AxisRanking struct {
	Axis     string
	GroupBy  []string
	Metric   string
	Baseline string
	Current  string
	results  []AxisResult
}

// Len returns the number of axis values
func (r *AxisRanking) Len() int { return len(r.results) }

// Keys returns the axis values in order
func (r *AxisRanking) Keys() []string {
	keys := make([]string, len(r.results))
	for i, ar := range r.results {
		keys[i] = ar.Axis
	}
	return keys
}

// Results returns the per-axis rankings in order
func (r *AxisRanking) Results() []AxisResult {
	return slices.Clone(r.results)
}

// Get returns the ranking for one axis value
func (r *AxisRanking) Get(axis string) (*RankedResult, bool) {
	for _, ar := range r.results {
		if ar.Axis == axis {
			return ar.Result, true
		}
	}
	return nil, false
}

// MarshalJSON encodes the ranking as an object keyed by axis value, in axis
// order. Each record lists its key fields followed by the unrounded baseline
// and current sums and the change. Result files written by the io package use
// the same record layout with configurable value fields and no baseline.
func (r *AxisRanking) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, ar := range r.results {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := appendMember(&buf, ar.Axis); err != nil {
			return nil, err
		}
		buf.WriteByte('[')
		for j, rec := range ar.Result.Records {
			if j > 0 {
				buf.WriteByte(',')
			}
			err := AppendRecordJSON(&buf, r.GroupBy, rec,
				Field{Name: "baseline", Value: rec.Baseline.Sum.String()},
				Field{Name: "current", Value: rec.Current.Sum.String()},
				Field{Name: "change", Value: rec.Change.StringFixed(changePrecision)},
			)
			if err != nil {
				return nil, err
			}
		}
		buf.WriteByte(']')
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// axisPartition holds the baseline and current rows of one axis value
type axisPartition struct {
	baseline []int
	current  []int
}

// RankByAxis partitions src by q.Axis and ranks every partition independently.
// Axis values without qualifying rows map to empty results.
func RankByAxis(src Source, q Query) (*AxisRanking, error) {
	if err := q.Validate(src); err != nil {
		return nil, err
	}

	order, parts := partition(src, q)
	switch {
	case len(q.AxisValues) > 0:
		order = slices.Clone(q.AxisValues)
	case q.SortAxis:
		slices.Sort(order)
	}

	ranking := &AxisRanking{
		Axis:     q.Axis,
		GroupBy:  slices.Clone(q.GroupBy),
		Metric:   q.Metric,
		Baseline: q.Baseline,
		Current:  q.Current,
		results:  make([]AxisResult, 0, len(order)),
	}

	for _, axis := range order {
		part := parts[axis]
		result, err := rankPartition(src, q, part)
		if err != nil {
			return nil, err
		}
		result.Axis = axis
		ranking.results = append(ranking.results, AxisResult{Axis: axis, Result: result})
	}

	return ranking, nil
}

// Rank runs an unkeyed query and returns its single result.
// q.Axis, when set, is ignored.
func Rank(src Source, q Query) (*RankedResult, error) {
	q.Axis = ""
	q.AxisValues = nil
	ranking, err := RankByAxis(src, q)
	if err != nil {
		return nil, err
	}
	return ranking.results[0].Result, nil
}

// partition splits row indices by axis value and period in one pass.
// order lists axis values as first seen across all rows. Rows with a null
// axis cell are skipped.
func partition(src Source, q Query) ([]string, map[string]*axisPartition) {
	periodCol, _ := src.Column(q.PeriodField)
	var axisCol series.Column
	if q.Axis != "" {
		axisCol, _ = src.Column(q.Axis)
	}

	baseline, current := strings.TrimSpace(q.Baseline), strings.TrimSpace(q.Current)
	parts := make(map[string]*axisPartition)
	var order []string

	if axisCol == nil {
		parts[""] = &axisPartition{}
		order = append(order, "")
	}

	for row := range src.Len() {
		axis := ""
		if axisCol != nil {
			if axisCol.IsNull(row) {
				continue
			}
			axis = axisCol.GetAsString(row)
		}
		part, ok := parts[axis]
		if !ok {
			part = &axisPartition{}
			parts[axis] = part
			order = append(order, axis)
		}

		period := strings.TrimSpace(periodCol.GetAsString(row))
		if period == baseline {
			part.baseline = append(part.baseline, row)
		}
		if period == current {
			part.current = append(part.current, row)
		}
	}

	return order, parts
}

func rankPartition(src Source, q Query, part *axisPartition) (*RankedResult, error) {
	if part == nil {
		part = &axisPartition{}
	}
	metrics := q.aggregated()

	base, err := aggregateRows(src, part.baseline, q.Baseline, q.GroupBy, metrics)
	if err != nil {
		return nil, err
	}
	cur, err := aggregateRows(src, part.current, q.Current, q.GroupBy, metrics)
	if err != nil {
		return nil, err
	}

	if q.Ratio != nil {
		if base, err = Derive(base, q.Ratio.Numerator, q.Ratio.Denominator, q.Metric); err != nil {
			return nil, err
		}
		if cur, err = Derive(cur, q.Ratio.Numerator, q.Ratio.Denominator, q.Metric); err != nil {
			return nil, err
		}
	}

	return CompareAndRank(base, cur, q.Metric, q.Limit)
}
