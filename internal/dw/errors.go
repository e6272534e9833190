//-------------------------------------------------------------------------
//
// pgEdge Sales Warehouse Loader
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package dw

import (
	"errors"
	"fmt"
)

// ErrSchemaMissing is returned when the warehouse lacks an expected table or
// column. It aborts the run.
var ErrSchemaMissing = errors.New("warehouse schema missing")

// ErrDuplicateNaturalKey is returned by the loader when a batch holds the
// same natural key twice.
var ErrDuplicateNaturalKey = errors.New("duplicate natural key in batch")

// SourceQueryError reports a failed read against the operational store.
// Callers may substitute a fallback dataset instead of aborting.
type SourceQueryError struct {
	Query string
	Err   error
}

func (e *SourceQueryError) Error() string {
	return fmt.Sprintf("source query %q failed: %v", e.Query, e.Err)
}

func (e *SourceQueryError) Unwrap() error { return e.Err }

// ResolutionGapError records a fact row whose natural key has no member in
// the dimension. The row is kept and points at UnknownKey.
type ResolutionGapError struct {
	Dimension   string
	NaturalKey  int64
	OrderLineID int64
}

func (e *ResolutionGapError) Error() string {
	return fmt.Sprintf("order line %d: %s %d not found in warehouse",
		e.OrderLineID, e.Dimension, e.NaturalKey)
}

// LoadConflictError reports a write the warehouse rejected outside the
// expected conflict path. It is fatal for the run.
type LoadConflictError struct {
	Table      string
	Constraint string
	Err        error
}

func (e *LoadConflictError) Error() string {
	if e.Constraint != "" {
		return fmt.Sprintf("load into %s rejected by constraint %s: %v",
			e.Table, e.Constraint, e.Err)
	}
	return fmt.Sprintf("load into %s rejected: %v", e.Table, e.Err)
}

func (e *LoadConflictError) Unwrap() error { return e.Err }

// MeasureComputationError reports a sales line whose measures cannot be
// computed. The line is skipped.
type MeasureComputationError struct {
	OrderLineID int64
	Field       string
	Reason      string
}

func (e *MeasureComputationError) Error() string {
	return fmt.Sprintf("order line %d: %s %s", e.OrderLineID, e.Field, e.Reason)
}
