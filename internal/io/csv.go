package io

import (
	"encoding/csv"
	"fmt"
	"strings"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/paveg/movers/internal/table"
)

// utf8BOM prefixes spreadsheet CSV exports
const utf8BOM = "\ufeff"

// Read reads CSV data and returns a Table
func (r *CSVReader) Read() (*table.Table, error) {
	mem := r.mem
	if mem == nil {
		mem = memory.NewGoAllocator()
	}

	csvReader := csv.NewReader(r.reader)
	csvReader.Comma = r.options.Delimiter
	csvReader.Comment = r.options.Comment
	csvReader.TrimLeadingSpace = r.options.SkipInitialSpace
	csvReader.FieldsPerRecord = -1

	records, err := csvReader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading CSV: %w", err)
	}

	if len(records) == 0 {
		return table.New(), nil
	}

	var headers []string
	dataRows := records
	if r.options.Header {
		headers = records[0]
		headers[0] = strings.TrimPrefix(headers[0], utf8BOM)
		dataRows = records[1:]
	} else {
		headers = make([]string, len(records[0]))
		for i := range headers {
			headers[i] = fmt.Sprintf("column_%d", i)
		}
	}

	// Transpose into columns; short rows pad with nulls
	columns := make([][]cell, len(headers))
	for i := range columns {
		columns[i] = make([]cell, len(dataRows))
		for j, row := range dataRows {
			if i < len(row) {
				columns[i][j] = textCell(row[i])
			}
		}
	}

	seriesList, err := buildColumns(headers, columns, mem)
	if err != nil {
		return nil, fmt.Errorf("creating columns: %w", err)
	}

	return table.New(seriesList...), nil
}
