//-------------------------------------------------------------------------
//
// pgEdge Sales Warehouse Loader
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package load writes dimension records into the warehouse.
package load

import (
	"context"
	"fmt"
	"strings"

	"github.com/pgEdge/pgedge-salesdw/internal/db"
	"github.com/pgEdge/pgedge-salesdw/internal/dw"
	"github.com/pgEdge/pgedge-salesdw/internal/logging"
)

// Mode selects what happens when a natural key already exists.
type Mode int

const (
	// ModeReplace overwrites every non-key column of the existing row when
	// any attribute differs.
	ModeReplace Mode = iota
	// ModeInsertOnly leaves the existing row untouched.
	ModeInsertOnly
)

// String returns the mode name.
func (m Mode) String() string {
	if m == ModeInsertOnly {
		return "insert-only"
	}
	return "replace"
}

// DefaultBatchSize is the number of rows per INSERT statement.
const DefaultBatchSize = 5000

// Config configures the upserter.
type Config struct {
	// BatchSize is the number of rows per statement.
	BatchSize int

	// ProgressInterval is how often to log progress (in rows).
	ProgressInterval int64
}

// DefaultConfig returns default loader configuration.
func DefaultConfig() Config {
	return Config{
		BatchSize:        DefaultBatchSize,
		ProgressInterval: 50000,
	}
}

// Upserter writes dimension records using native ON CONFLICT upserts.
type Upserter struct {
	store db.Store
	cfg   Config
}

// NewUpserter creates an upserter over the warehouse store.
func NewUpserter(store db.Store, cfg Config) *Upserter {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	return &Upserter{store: store, cfg: cfg}
}

// Result reports the outcome of an upsert.
type Result struct {
	// Rows is the number of records submitted.
	Rows int
	// Affected is the number of rows inserted or changed. Rows whose
	// attributes already match are not updated.
	Affected int64
}

// Upsert writes records into the table of dim. The whole call runs in one
// transaction, chunked by batch size. Records sharing a natural key are
// rejected with dw.ErrDuplicateNaturalKey before anything is written.
func (u *Upserter) Upsert(ctx context.Context, dim dw.Dimension, records []dw.Record, mode Mode) (Result, error) {
	res := Result{Rows: len(records)}
	if len(records) == 0 {
		return res, nil
	}

	d := u.store.Dialect()
	if !d.Upsert {
		return res, fmt.Errorf("warehouse upsert is not supported on %s", d.Name)
	}
	if err := checkKeys(dim, records); err != nil {
		return res, err
	}

	cols := dim.Columns()
	progress := logging.NewProgressReporter(dim.Table, "Loading",
		int64(len(records)), u.cfg.ProgressInterval)

	batch := d.RowsPerStatement(u.cfg.BatchSize, len(cols))

	err := db.RunInTx(ctx, u.store, func(tx db.Tx) error {
		for start := 0; start < len(records); start += batch {
			end := min(start+batch, len(records))
			stmt, args := upsertStatement(d, dim, cols, records[start:end], mode)

			n, err := tx.Exec(ctx, stmt, args...)
			if err != nil {
				return conflictError(dim.Table, err)
			}
			res.Affected += n
			progress.Update(int64(end - start))
		}
		return nil
	})
	if err != nil {
		return Result{Rows: len(records)}, err
	}

	progress.Done()
	logging.Debug().
		Str("table", dim.Table).
		Str("mode", mode.String()).
		Int("rows", res.Rows).
		Int64("affected", res.Affected).
		Msg("Dimension upserted")

	return res, nil
}

// checkKeys rejects records with a missing or repeated natural key.
func checkKeys(dim dw.Dimension, records []dw.Record) error {
	seen := make(map[int64]struct{}, len(records))
	for i, r := range records {
		nk, ok := r.Int64(dim.NaturalKey)
		if !ok {
			return fmt.Errorf("%s record %d has no natural key %s", dim.Name, i, dim.NaturalKey)
		}
		if _, dup := seen[nk]; dup {
			return fmt.Errorf("%w: %s %s=%d", dw.ErrDuplicateNaturalKey, dim.Table, dim.NaturalKey, nk)
		}
		seen[nk] = struct{}{}
	}
	return nil
}

// upsertStatement builds a multi-row INSERT ... ON CONFLICT for one chunk.
func upsertStatement(d db.Dialect, dim dw.Dimension, cols []string, chunk []dw.Record, mode Mode) (string, []any) {
	tuples := make([]string, len(chunk))
	args := make([]any, 0, len(chunk)*len(cols))
	for i, r := range chunk {
		tuples[i] = d.Tuple(len(args)+1, len(cols))
		for _, c := range cols {
			args = append(args, r[c])
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "INSERT INTO %s (%s) VALUES %s ON CONFLICT (%s) ",
		dim.Table, d.IdentList(cols), strings.Join(tuples, ", "), d.Ident(dim.NaturalKey))

	if mode == ModeInsertOnly || len(cols) == 1 {
		b.WriteString("DO NOTHING")
		return b.String(), args
	}

	sets := make([]string, 0, len(cols)-1)
	changed := make([]string, 0, len(cols)-1)
	for _, c := range cols {
		if c == dim.NaturalKey {
			continue
		}
		sets = append(sets, fmt.Sprintf("%s = EXCLUDED.%s", d.Ident(c), d.Ident(c)))
		if c != dw.ColUpdatedAt {
			changed = append(changed, fmt.Sprintf("%s.%s IS DISTINCT FROM EXCLUDED.%s",
				dim.Table, d.Ident(c), d.Ident(c)))
		}
	}
	b.WriteString("DO UPDATE SET ")
	b.WriteString(strings.Join(sets, ", "))

	// Unchanged rows keep their updated_at and are not counted.
	if len(changed) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(changed, " OR "))
	}
	return b.String(), args
}

// conflictError wraps a write the warehouse rejected on a constraint. The
// constraint name is filled in when the driver reports one. Other
// failures, such as cancellation or a lost connection, are wrapped as is.
func conflictError(table string, err error) error {
	name, ok := db.ConstraintViolation(err)
	if !ok {
		return fmt.Errorf("failed to write %s: %w", table, err)
	}
	return &dw.LoadConflictError{Table: table, Constraint: name, Err: err}
}
