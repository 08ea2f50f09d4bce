package io

import (
	"strconv"
	"strings"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/paveg/movers/internal/series"
)

// Type constants for data type inference.
const (
	typeNull    = "null"
	typeInt64   = "int64"
	typeFloat64 = "float64"
	typeBool    = "bool"
	typeString  = "string"
)

// cell is one decoded value: nil, int64, float64, bool or string.
// text keeps the source spelling for columns that end up as strings.
type cell struct {
	value any
	text  string
}

// textCell parses delimited text. Empty text is null; numbers and booleans
// are recognized after trimming surrounding space.
func textCell(s string) cell {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return cell{}
	}
	if i, err := strconv.ParseInt(trimmed, 10, 64); err == nil {
		return cell{value: i, text: s}
	}
	if f, err := strconv.ParseFloat(trimmed, 64); err == nil {
		return cell{value: f, text: s}
	}
	if strings.EqualFold(trimmed, "true") || strings.EqualFold(trimmed, "false") {
		return cell{value: strings.EqualFold(trimmed, "true"), text: s}
	}
	return cell{value: s, text: s}
}

// inferType picks the narrowest type holding every non-null cell.
// int64 and float64 widen to float64; any other mix falls back to string.
func inferType(cells []cell) string {
	inferred := typeNull
	for _, c := range cells {
		var t string
		switch c.value.(type) {
		case nil:
			continue
		case int64:
			t = typeInt64
		case float64:
			t = typeFloat64
		case bool:
			t = typeBool
		default:
			t = typeString
		}

		switch {
		case inferred == typeNull || inferred == t:
			inferred = t
		case (inferred == typeInt64 && t == typeFloat64) || (inferred == typeFloat64 && t == typeInt64):
			inferred = typeFloat64
		default:
			return typeString
		}
	}
	return inferred
}

// buildColumn creates a series of the inferred type from decoded cells
func buildColumn(name string, cells []cell, mem memory.Allocator) (series.Column, error) {
	valid := make([]bool, len(cells))
	for i, c := range cells {
		valid[i] = c.value != nil
	}

	switch inferType(cells) {
	case typeInt64:
		values := make([]int64, len(cells))
		for i, c := range cells {
			values[i], _ = c.value.(int64)
		}
		return series.Build("BuildColumn", name, values, valid, mem)
	case typeFloat64:
		values := make([]float64, len(cells))
		for i, c := range cells {
			switch v := c.value.(type) {
			case int64:
				values[i] = float64(v)
			case float64:
				values[i] = v
			}
		}
		return series.Build("BuildColumn", name, values, valid, mem)
	case typeBool:
		values := make([]bool, len(cells))
		for i, c := range cells {
			values[i], _ = c.value.(bool)
		}
		return series.Build("BuildColumn", name, values, valid, mem)
	default:
		values := make([]string, len(cells))
		for i, c := range cells {
			values[i] = c.text
		}
		return series.Build("BuildColumn", name, values, valid, mem)
	}
}

// buildColumns builds one series per named column, releasing partial work on error
func buildColumns(names []string, columns [][]cell, mem memory.Allocator) ([]series.Column, error) {
	out := make([]series.Column, 0, len(names))
	for i, name := range names {
		s, err := buildColumn(name, columns[i], mem)
		if err != nil {
			for _, built := range out {
				built.Release()
			}
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}
