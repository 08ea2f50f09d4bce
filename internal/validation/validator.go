// Package validation provides input validation utilities for ranking operations.
// This package implements a small validation framework with reusable
// validators for the checks every engine entry point repeats: field
// existence, numeric metric types, positive limits and well-formed field sets.
package validation

import (
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/paveg/movers/internal/errors"
	"github.com/paveg/movers/internal/series"
)

// Validator interface for input validation
type Validator interface {
	Validate() error
}

// ColumnProvider interface for row sources that expose named columns
type ColumnProvider interface {
	HasColumn(name string) bool
	Column(name string) (series.Column, bool)
}

// ColumnValidator validates field existence
type ColumnValidator struct {
	src    ColumnProvider
	fields []string
	op     string
}

// NewColumnValidator creates a validator for field lookups
func NewColumnValidator(src ColumnProvider, op string, fields ...string) *ColumnValidator {
	return &ColumnValidator{
		src:    src,
		fields: fields,
		op:     op,
	}
}

// Validate checks if all fields exist in the row source
func (v *ColumnValidator) Validate() error {
	for _, field := range v.fields {
		if !v.src.HasColumn(field) {
			return errors.NewUnknownFieldError(v.op, field)
		}
	}
	return nil
}

// NumericValidator validates that metric fields hold int64 or float64 values
type NumericValidator struct {
	src    ColumnProvider
	fields []string
	op     string
}

// NewNumericValidator creates a validator for metric fields
func NewNumericValidator(src ColumnProvider, op string, fields ...string) *NumericValidator {
	return &NumericValidator{
		src:    src,
		fields: fields,
		op:     op,
	}
}

// Validate checks that each field exists and is numeric
func (v *NumericValidator) Validate() error {
	for _, field := range v.fields {
		col, ok := v.src.Column(field)
		if !ok {
			return errors.NewUnknownFieldError(v.op, field)
		}
		switch col.DataType().ID() {
		case arrow.INT64, arrow.FLOAT64:
		default:
			return errors.NewUnsupportedTypeError(v.op, field, col.DataType().String())
		}
	}
	return nil
}

// LimitValidator validates a top-N limit
type LimitValidator struct {
	limit int
	op    string
}

// NewLimitValidator creates a validator for top-N limits
func NewLimitValidator(limit int, op string) *LimitValidator {
	return &LimitValidator{
		limit: limit,
		op:    op,
	}
}

// Validate checks that the limit is positive
func (v *LimitValidator) Validate() error {
	if v.limit <= 0 {
		return errors.NewInvalidLimitError(v.op, v.limit)
	}
	return nil
}

// FieldSetValidator validates a group-key field list: non-empty, no
// duplicates, and none of the reserved fields (axis, period) inside it
type FieldSetValidator struct {
	fields   []string
	reserved []string
	op       string
}

// NewFieldSetValidator creates a validator for group-key field lists
func NewFieldSetValidator(fields []string, op string, reserved ...string) *FieldSetValidator {
	return &FieldSetValidator{
		fields:   fields,
		reserved: reserved,
		op:       op,
	}
}

// Validate checks the field list shape
func (v *FieldSetValidator) Validate() error {
	if len(v.fields) == 0 {
		return errors.NewInvalidArgumentError(v.op, "group key needs at least one field")
	}

	seen := make(map[string]bool, len(v.fields))
	for _, field := range v.fields {
		if field == "" {
			return errors.NewInvalidArgumentError(v.op, "group key contains an empty field name")
		}
		if seen[field] {
			return errors.NewValidationError(v.op, field, "field listed twice in group key")
		}
		seen[field] = true
	}

	for _, r := range v.reserved {
		if r != "" && seen[r] {
			return errors.NewValidationError(v.op, r, "field cannot be part of the group key")
		}
	}
	return nil
}

// RequiredValidator validates that named arguments are non-empty
type RequiredValidator struct {
	values map[string]string
	order  []string
	op     string
}

// NewRequiredValidator creates a validator over name/value pairs
func NewRequiredValidator(op string, pairs ...string) *RequiredValidator {
	v := &RequiredValidator{values: make(map[string]string), op: op}
	for i := 0; i+1 < len(pairs); i += 2 {
		v.values[pairs[i]] = pairs[i+1]
		v.order = append(v.order, pairs[i])
	}
	return v
}

// Validate checks that every value is set
func (v *RequiredValidator) Validate() error {
	for _, name := range v.order {
		if v.values[name] == "" {
			return errors.NewInvalidArgumentError(v.op, fmt.Sprintf("%s is required", name))
		}
	}
	return nil
}

// CompoundValidator combines multiple validators
type CompoundValidator struct {
	validators []Validator
}

// NewCompoundValidator creates a validator that checks multiple conditions
func NewCompoundValidator(validators ...Validator) *CompoundValidator {
	return &CompoundValidator{
		validators: validators,
	}
}

// Validate runs all validators and returns the first error encountered
func (v *CompoundValidator) Validate() error {
	for _, validator := range v.validators {
		if err := validator.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Convenience validation functions

// ValidateColumns is a convenience function for field validation
func ValidateColumns(src ColumnProvider, op string, fields ...string) error {
	return NewColumnValidator(src, op, fields...).Validate()
}

// ValidateNumeric is a convenience function for metric validation
func ValidateNumeric(src ColumnProvider, op string, fields ...string) error {
	return NewNumericValidator(src, op, fields...).Validate()
}

// ValidateLimit is a convenience function for limit validation
func ValidateLimit(limit int, op string) error {
	return NewLimitValidator(limit, op).Validate()
}
