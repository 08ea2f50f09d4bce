package io

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/compress"
	"github.com/apache/arrow-go/v18/parquet/file"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"
	"github.com/paveg/movers/internal/series"
	"github.com/paveg/movers/internal/table"
)

// Read reads Parquet data and returns a Table.
func (r *ParquetReader) Read() (*table.Table, error) {
	mem := r.mem
	if mem == nil {
		mem = memory.NewGoAllocator()
	}

	data, err := io.ReadAll(r.reader)
	if err != nil {
		return nil, fmt.Errorf("reading data: %w", err)
	}

	pqReader, err := file.NewParquetReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("creating parquet file reader: %w", err)
	}
	defer pqReader.Close()

	arrowReader, err := pqarrow.NewFileReader(pqReader, pqarrow.ArrowReadProperties{
		BatchSize: int64(r.options.BatchSize),
	}, mem)
	if err != nil {
		return nil, fmt.Errorf("creating arrow file reader: %w", err)
	}

	tbl, err := arrowReader.ReadTable(context.Background())
	if err != nil {
		return nil, fmt.Errorf("reading table: %w", err)
	}
	defer tbl.Release()

	return arrowTableToTable(tbl, mem)
}

// arrowTableToTable copies every column of an Arrow table, across all chunks.
func arrowTableToTable(tbl arrow.Table, mem memory.Allocator) (*table.Table, error) {
	schema := tbl.Schema()
	out := make([]series.Column, 0, tbl.NumCols())

	for i := range int(tbl.NumCols()) {
		field := schema.Field(i)
		s, err := chunkedToSeries(field.Name, tbl.Column(i).Data(), mem)
		if err != nil {
			for _, built := range out {
				built.Release()
			}
			return nil, fmt.Errorf("converting column %s: %w", field.Name, err)
		}
		out = append(out, s)
	}

	return table.New(out...), nil
}

// chunkedToSeries flattens a chunked column into a Series. Narrow integer
// and float types widen to int64 and float64.
func chunkedToSeries(name string, chunked *arrow.Chunked, mem memory.Allocator) (series.Column, error) {
	n := chunked.Len()
	valid := make([]bool, 0, n)

	//nolint:exhaustive // Only handling supported types
	switch chunked.DataType().ID() {
	case arrow.INT8, arrow.INT16, arrow.INT32, arrow.INT64,
		arrow.UINT8, arrow.UINT16, arrow.UINT32, arrow.UINT64:
		values := make([]int64, 0, n)
		for _, chunk := range chunked.Chunks() {
			for j := range chunk.Len() {
				valid = append(valid, chunk.IsValid(j))
				values = append(values, intAt(chunk, j))
			}
		}
		return series.Build("ReadParquet", name, values, valid, mem)
	case arrow.FLOAT32, arrow.FLOAT64:
		values := make([]float64, 0, n)
		for _, chunk := range chunked.Chunks() {
			for j := range chunk.Len() {
				valid = append(valid, chunk.IsValid(j))
				switch c := chunk.(type) {
				case *array.Float32:
					values = append(values, float64(c.Value(j)))
				case *array.Float64:
					values = append(values, c.Value(j))
				}
			}
		}
		return series.Build("ReadParquet", name, values, valid, mem)
	case arrow.STRING, arrow.LARGE_STRING:
		values := make([]string, 0, n)
		for _, chunk := range chunked.Chunks() {
			for j := range chunk.Len() {
				valid = append(valid, chunk.IsValid(j))
				values = append(values, chunk.ValueStr(j))
			}
		}
		for i := range values {
			if !valid[i] {
				values[i] = ""
			}
		}
		return series.Build("ReadParquet", name, values, valid, mem)
	case arrow.BOOL:
		values := make([]bool, 0, n)
		for _, chunk := range chunked.Chunks() {
			c := chunk.(*array.Boolean)
			for j := range chunk.Len() {
				valid = append(valid, chunk.IsValid(j))
				values = append(values, c.Value(j))
			}
		}
		return series.Build("ReadParquet", name, values, valid, mem)
	default:
		return nil, fmt.Errorf("unsupported Arrow type: %s", chunked.DataType())
	}
}

func intAt(arr arrow.Array, i int) int64 {
	switch c := arr.(type) {
	case *array.Int8:
		return int64(c.Value(i))
	case *array.Int16:
		return int64(c.Value(i))
	case *array.Int32:
		return int64(c.Value(i))
	case *array.Int64:
		return c.Value(i)
	case *array.Uint8:
		return int64(c.Value(i))
	case *array.Uint16:
		return int64(c.Value(i))
	case *array.Uint32:
		return int64(c.Value(i))
	case *array.Uint64:
		return int64(c.Value(i))
	default:
		return 0
	}
}

// sink hides Close from the parquet file writer, which otherwise closes a
// sink that implements io.Closer. The caller owns the destination.
type sink struct {
	io.Writer
}

// Write writes the Table to Parquet format. The destination is left open.
func (w *ParquetWriter) Write(tbl *table.Table) error {
	arrowTable := tableToArrowTable(tbl)
	defer arrowTable.Release()

	props := parquet.NewWriterProperties(
		parquet.WithCompression(compressionCodec(w.options.Compression)),
		parquet.WithBatchSize(int64(w.options.BatchSize)),
	)
	arrowProps := pqarrow.NewArrowWriterProperties(pqarrow.WithAllocator(memory.NewGoAllocator()))

	writer, err := pqarrow.NewFileWriter(arrowTable.Schema(), sink{w.writer}, props, arrowProps)
	if err != nil {
		return fmt.Errorf("creating file writer: %w", err)
	}

	chunkSize := int64(w.options.BatchSize)
	if chunkSize <= 0 {
		chunkSize = DefaultBatchSize
	}
	if err := writer.WriteTable(arrowTable, chunkSize); err != nil {
		_ = writer.Close()
		return fmt.Errorf("writing table: %w", err)
	}

	if err := writer.Close(); err != nil {
		return fmt.Errorf("closing parquet writer: %w", err)
	}
	return nil
}

func compressionCodec(name string) compress.Compression {
	switch name {
	case "gzip":
		return compress.Codecs.Gzip
	case "lz4":
		return compress.Codecs.Lz4Raw
	case "zstd":
		return compress.Codecs.Zstd
	case "uncompressed":
		return compress.Codecs.Uncompressed
	default:
		return compress.Codecs.Snappy
	}
}

// tableToArrowTable wraps the Table's arrays in an Arrow table without copying
func tableToArrowTable(tbl *table.Table) arrow.Table {
	names := tbl.Columns()
	fields := make([]arrow.Field, 0, len(names))
	columns := make([]arrow.Column, 0, len(names))

	for _, name := range names {
		col, _ := tbl.Column(name)
		arr := col.Array()

		field := arrow.Field{Name: name, Type: arr.DataType(), Nullable: true}
		chunked := arrow.NewChunked(arr.DataType(), []arrow.Array{arr})
		arr.Release()

		column := arrow.NewColumn(field, chunked)
		chunked.Release()

		fields = append(fields, field)
		columns = append(columns, *column)
	}

	out := array.NewTable(arrow.NewSchema(fields, nil), columns, int64(tbl.Len()))
	for i := range columns {
		columns[i].Release()
	}
	return out
}
