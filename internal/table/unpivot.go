package table

import (
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/paveg/movers/internal/errors"
	"github.com/paveg/movers/internal/series"
)

// UnpivotColumn maps one wide value column to the axis label its values get
type UnpivotColumn struct {
	Label  string `json:"label" yaml:"label"`
	Column string `json:"column" yaml:"column"`
}

// Unpivot reshapes wide per-label value columns (one sales column per
// weekday) into long form: every input row yields one output row per value
// column, with the label in the axis column and the cell in the value column.
//
// Output rows are ordered by value column, then by input row. Value columns
// the table does not have are skipped and their labels returned.
func (t *Table) Unpivot(
	ids []string, values []UnpivotColumn, axis, value string, mem memory.Allocator,
) (*Table, []string, error) {
	const op = "Unpivot"

	if mem == nil {
		mem = memory.NewGoAllocator()
	}
	if axis == "" || value == "" || axis == value {
		return nil, nil, errors.NewInvalidArgumentError(op, "axis and value column names must be distinct and non-empty")
	}
	for _, id := range ids {
		if !t.HasColumn(id) {
			return nil, nil, errors.NewUnknownFieldError(op, id)
		}
		if id == axis || id == value {
			return nil, nil, errors.NewValidationError(op, id, "id column collides with an output column")
		}
	}

	var present []ISeries
	var labels, missing []string
	useFloat := false
	for _, vc := range values {
		col, ok := t.Column(vc.Column)
		if !ok {
			missing = append(missing, vc.Label)
			continue
		}
		switch col.DataType().ID() {
		case arrow.INT64:
		case arrow.FLOAT64:
			useFloat = true
		default:
			return nil, nil, errors.NewUnsupportedTypeError(op, vc.Column, col.DataType().String())
		}
		present = append(present, col)
		labels = append(labels, vc.Label)
	}

	n := t.Len()
	indices := make([]int, 0, n*len(present))
	axisValues := make([]string, 0, n*len(present))
	for _, label := range labels {
		for row := 0; row < n; row++ {
			indices = append(indices, row)
			axisValues = append(axisValues, label)
		}
	}

	out := make([]ISeries, 0, len(ids)+2)
	for _, id := range ids {
		col, _ := t.Column(id)
		taken, err := take(col, id, indices, mem)
		if err != nil {
			releaseAll(out)
			return nil, nil, err
		}
		out = append(out, taken)
	}
	out = append(out, series.New(axis, axisValues, mem))

	valueCol, err := stackNumeric(present, value, n, useFloat, mem)
	if err != nil {
		releaseAll(out)
		return nil, nil, err
	}
	out = append(out, valueCol)

	return New(out...), missing, nil
}

// take builds a new column holding col's cells at the given row indices
func take(col ISeries, name string, indices []int, mem memory.Allocator) (ISeries, error) {
	arr := col.Array()
	defer arr.Release()

	valid := make([]bool, len(indices))
	for i, idx := range indices {
		valid[i] = !arr.IsNull(idx)
	}

	switch typed := arr.(type) {
	case *array.String:
		vals := make([]string, len(indices))
		for i, idx := range indices {
			vals[i] = typed.Value(idx)
		}
		return series.Build("Take", name, vals, valid, mem)
	case *array.Int64:
		vals := make([]int64, len(indices))
		for i, idx := range indices {
			vals[i] = typed.Value(idx)
		}
		return series.Build("Take", name, vals, valid, mem)
	case *array.Float64:
		vals := make([]float64, len(indices))
		for i, idx := range indices {
			vals[i] = typed.Value(idx)
		}
		return series.Build("Take", name, vals, valid, mem)
	case *array.Boolean:
		vals := make([]bool, len(indices))
		for i, idx := range indices {
			vals[i] = typed.Value(idx)
		}
		return series.Build("Take", name, vals, valid, mem)
	default:
		return nil, errors.NewUnsupportedTypeError("Unpivot", name, arr.DataType().String())
	}
}

// stackNumeric concatenates numeric columns of n rows each into one column
func stackNumeric(cols []ISeries, name string, n int, useFloat bool, mem memory.Allocator) (ISeries, error) {
	valid := make([]bool, 0, n*len(cols))
	ints := make([]int64, 0, n*len(cols))
	floats := make([]float64, 0, n*len(cols))

	for _, col := range cols {
		arr := col.Array()
		for row := 0; row < n; row++ {
			valid = append(valid, !arr.IsNull(row))
			switch typed := arr.(type) {
			case *array.Int64:
				ints = append(ints, typed.Value(row))
				floats = append(floats, float64(typed.Value(row)))
			case *array.Float64:
				floats = append(floats, typed.Value(row))
			}
		}
		arr.Release()
	}

	if useFloat {
		return series.Build("Unpivot", name, floats, valid, mem)
	}
	return series.Build("Unpivot", name, ints, valid, mem)
}

func releaseAll(cols []ISeries) {
	for _, c := range cols {
		c.Release()
	}
}
