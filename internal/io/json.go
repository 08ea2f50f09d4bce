package io

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/paveg/movers/internal/table"
)

// Read reads JSON records and returns a Table. Columns appear in the order
// their keys are first seen; a key missing from a record is null there.
func (r *JSONReader) Read() (*table.Table, error) {
	mem := r.mem
	if mem == nil {
		mem = memory.NewGoAllocator()
	}

	dec := json.NewDecoder(r.reader)
	dec.UseNumber()

	switch r.options.Format {
	case JSONArray:
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("reading JSON array: %w", err)
		}
		if d, ok := tok.(json.Delim); !ok || d != '[' {
			return nil, fmt.Errorf("reading JSON array: expected '[', got %v", tok)
		}
	case JSONLines:
	default:
		return nil, fmt.Errorf("unsupported JSON format: %d", r.options.Format)
	}

	var (
		names   []string
		indexOf = make(map[string]int)
		columns [][]cell
		count   int
	)

	for dec.More() {
		if r.options.MaxRecords > 0 && count >= r.options.MaxRecords {
			break
		}
		keys, values, err := decodeRecord(dec)
		if err != nil {
			return nil, fmt.Errorf("decoding record %d: %w", count+1, err)
		}

		for i, key := range keys {
			col, ok := indexOf[key]
			if !ok {
				col = len(names)
				indexOf[key] = col
				names = append(names, key)
				columns = append(columns, make([]cell, count))
			}
			columns[col] = append(columns[col], values[i])
		}
		count++
		// pad columns this record did not mention
		for i := range columns {
			if len(columns[i]) < count {
				columns[i] = append(columns[i], cell{})
			}
		}
	}

	seriesList, err := buildColumns(names, columns, mem)
	if err != nil {
		return nil, fmt.Errorf("creating columns: %w", err)
	}
	return table.New(seriesList...), nil
}

// decodeRecord reads one object, keeping key order. A key repeated within
// an object keeps its last value.
func decodeRecord(dec *json.Decoder) ([]string, []cell, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, nil, fmt.Errorf("expected object, got %v", tok)
	}

	var keys []string
	var values []cell
	seen := make(map[string]int)
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, nil, err
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, nil, errors.New("object key is not a string")
		}

		var raw any
		if err := dec.Decode(&raw); err != nil {
			return nil, nil, fmt.Errorf("value of %q: %w", key, err)
		}

		c, err := jsonCell(raw)
		if err != nil {
			return nil, nil, fmt.Errorf("value of %q: %w", key, err)
		}
		if i, dup := seen[key]; dup {
			values[i] = c
			continue
		}
		seen[key] = len(keys)
		keys = append(keys, key)
		values = append(values, c)
	}

	if _, err := dec.Token(); err != nil && !errors.Is(err, io.EOF) {
		return nil, nil, err
	}
	return keys, values, nil
}

// jsonCell normalizes a decoded JSON value. Nested values are kept as text.
func jsonCell(raw any) (cell, error) {
	switch v := raw.(type) {
	case nil:
		return cell{}, nil
	case bool:
		return cell{value: v, text: strconv.FormatBool(v)}, nil
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return cell{value: i, text: v.String()}, nil
		}
		f, err := v.Float64()
		if err != nil {
			return cell{}, err
		}
		return cell{value: f, text: v.String()}, nil
	case string:
		return cell{value: v, text: v}, nil
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return cell{}, err
		}
		return cell{value: string(b), text: string(b)}, nil
	}
}
