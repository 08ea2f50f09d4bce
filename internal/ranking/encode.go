package ranking

import (
	"bytes"
	"encoding/json"
)

// Field is a named raw JSON value written after a record's key fields
type Field struct {
	Name  string
	Value string
}

// AppendRecordJSON appends rec as a JSON object: one string field per groupBy
// column, then fields in order. Both the AxisRanking encoding and the
// published result files lay records out this way and differ only in fields.
func AppendRecordJSON(buf *bytes.Buffer, groupBy []string, rec ComparisonRecord, fields ...Field) error {
	buf.WriteByte('{')
	for k, field := range groupBy {
		if err := appendMember(buf, field); err != nil {
			return err
		}
		if err := AppendJSONString(buf, rec.Key[k]); err != nil {
			return err
		}
		buf.WriteByte(',')
	}
	for i, f := range fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := appendMember(buf, f.Name); err != nil {
			return err
		}
		buf.WriteString(f.Value)
	}
	if len(fields) == 0 && len(groupBy) > 0 {
		buf.Truncate(buf.Len() - 1)
	}
	buf.WriteByte('}')
	return nil
}

// AppendJSONString appends s as a JSON string without HTML escaping
func AppendJSONString(buf *bytes.Buffer, s string) error {
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return err
	}
	buf.Truncate(buf.Len() - 1) // Encode appends a newline
	return nil
}

func appendMember(buf *bytes.Buffer, name string) error {
	if err := AppendJSONString(buf, name); err != nil {
		return err
	}
	buf.WriteByte(':')
	return nil
}
