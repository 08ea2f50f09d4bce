package io

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/paveg/movers/internal/ranking"
	"github.com/paveg/movers/internal/table"
	"github.com/shopspring/decimal"
)

// ResultFormat controls the record layout of written rankings.
//
// LatestField and ChangeField are templates: {axis} expands to the axis
// value, {column} to the source column unpivoted into that axis value,
// {baseline} and {current} to the period identifiers and {metric} to the
// ranked metric.
type ResultFormat struct {
	LatestField string
	ChangeField string
	// LatestPrecision rounds the latest value half away from zero; negative keeps every digit.
	LatestPrecision int
	Indent          string
}

// DefaultResultFormat returns the default record layout
func DefaultResultFormat() ResultFormat {
	return ResultFormat{
		LatestField:     "current",
		ChangeField:     "change",
		LatestPrecision: -1,
		Indent:          DefaultIndent,
	}
}

// ResultWriter writes an AxisRanking as JSON or CSV
type ResultWriter struct {
	writer      io.Writer
	format      ResultFormat
	axisColumns map[string]string
}

// NewResultWriter creates a writer. axisColumns maps unpivot labels back to
// their source columns for the {column} placeholder and may be nil.
func NewResultWriter(writer io.Writer, format ResultFormat, axisColumns []table.UnpivotColumn) *ResultWriter {
	cols := make(map[string]string, len(axisColumns))
	for _, c := range axisColumns {
		cols[c.Label] = c.Column
	}
	return &ResultWriter{
		writer:      writer,
		format:      format,
		axisColumns: cols,
	}
}

// fieldNames expands the latest and change templates for one axis value
func (w *ResultWriter) fieldNames(r *ranking.AxisRanking, axis string) (string, string) {
	column := w.axisColumns[axis]
	if column == "" {
		column = r.Metric
	}
	replacer := strings.NewReplacer(
		"{axis}", axis,
		"{column}", column,
		"{baseline}", r.Baseline,
		"{current}", r.Current,
		"{metric}", r.Metric,
	)
	return replacer.Replace(w.format.LatestField), replacer.Replace(w.format.ChangeField)
}

func (w *ResultWriter) latest(m ranking.Measure) string {
	if w.format.LatestPrecision < 0 {
		return m.Sum.String()
	}
	p := int32(w.format.LatestPrecision)
	return m.Sum.Round(p).StringFixed(p)
}

// Write encodes the ranking as an indented JSON object keyed by axis value in
// axis order. An unkeyed ranking is written as a bare array of records.
// Records hold the key fields, the latest value and the change under the
// names the format expands. The AxisRanking JSON encoding carries the same
// keys plus the baseline, unrounded and under fixed names.
// Non-ASCII text is written as is.
func (w *ResultWriter) Write(r *ranking.AxisRanking) error {
	var compact bytes.Buffer

	keyed := r.Axis != ""
	if keyed {
		compact.WriteByte('{')
	}
	for i, ar := range r.Results() {
		if keyed {
			if i > 0 {
				compact.WriteByte(',')
			}
			if err := ranking.AppendJSONString(&compact, ar.Axis); err != nil {
				return err
			}
			compact.WriteByte(':')
		}
		if err := w.appendRecords(&compact, r, ar); err != nil {
			return err
		}
	}
	if keyed {
		compact.WriteByte('}')
	} else if r.Len() == 0 {
		compact.WriteString("[]")
	}

	var out bytes.Buffer
	if err := json.Indent(&out, compact.Bytes(), "", w.format.Indent); err != nil {
		return fmt.Errorf("indenting ranking JSON: %w", err)
	}
	out.WriteByte('\n')

	if _, err := w.writer.Write(out.Bytes()); err != nil {
		return fmt.Errorf("writing ranking: %w", err)
	}
	return nil
}

func (w *ResultWriter) appendRecords(buf *bytes.Buffer, r *ranking.AxisRanking, ar ranking.AxisResult) error {
	latestField, changeField := w.fieldNames(r, ar.Axis)

	buf.WriteByte('[')
	for i, rec := range ar.Result.Records {
		if i > 0 {
			buf.WriteByte(',')
		}
		err := ranking.AppendRecordJSON(buf, r.GroupBy, rec,
			ranking.Field{Name: latestField, Value: w.latest(rec.Current)},
			ranking.Field{Name: changeField, Value: changeString(rec.Change)},
		)
		if err != nil {
			return err
		}
	}
	buf.WriteByte(']')
	return nil
}

func changeString(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// WriteCSV writes one row per ranked record: the axis value (when keyed),
// the key fields, the 1-based rank, baseline, current and change.
func (w *ResultWriter) WriteCSV(r *ranking.AxisRanking) error {
	cw := csv.NewWriter(w.writer)

	var header []string
	if r.Axis != "" {
		header = append(header, r.Axis)
	}
	header = append(header, r.GroupBy...)
	header = append(header, "rank", "baseline", "current", "change")
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("writing headers: %w", err)
	}

	for _, ar := range r.Results() {
		for i, rec := range ar.Result.Records {
			row := make([]string, 0, len(header))
			if r.Axis != "" {
				row = append(row, ar.Axis)
			}
			row = append(row, rec.Key...)
			row = append(row,
				strconv.Itoa(i+1),
				w.latest(rec.Baseline),
				w.latest(rec.Current),
				changeString(rec.Change),
			)
			if err := cw.Write(row); err != nil {
				return fmt.Errorf("writing row: %w", err)
			}
		}
	}

	cw.Flush()
	return cw.Error()
}
