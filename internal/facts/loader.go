//-------------------------------------------------------------------------
//
// pgEdge Sales Warehouse Loader
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package facts

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pgEdge/pgedge-salesdw/internal/db"
	"github.com/pgEdge/pgedge-salesdw/internal/dw"
	"github.com/pgEdge/pgedge-salesdw/internal/logging"
	"github.com/pgEdge/pgedge-salesdw/internal/warehouse"
)

// ConflictPolicy decides what happens to a line already in the fact table.
type ConflictPolicy string

// Conflict policies.
const (
	// Ignore keeps the existing fact row.
	Ignore ConflictPolicy = "ignore"
	// Replace overwrites the existing fact row.
	Replace ConflictPolicy = "replace"
)

// ParseConflictPolicy validates a policy name. An empty name means Ignore.
func ParseConflictPolicy(s string) (ConflictPolicy, error) {
	switch p := ConflictPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return Ignore, nil
	case Ignore, Replace:
		return p, nil
	default:
		return "", fmt.Errorf("invalid fact conflict policy: %s (valid: ignore, replace)", s)
	}
}

// LoadResult reports the outcome of a fact load.
type LoadResult struct {
	// Rows is the number of fact rows submitted.
	Rows int
	// Written is the number of rows inserted, or inserted and replaced.
	Written int64
	// Ignored is the number of rows already present and left untouched.
	Ignored int64
}

// Loader inserts fact rows keyed by order_line_id.
type Loader struct {
	store     db.Store
	policy    ConflictPolicy
	batchSize int
	runID     string
	now       func() time.Time
}

// NewLoader creates a fact loader. Every row is stamped with runID.
func NewLoader(store db.Store, policy ConflictPolicy, batchSize int, runID string) *Loader {
	if policy == "" {
		policy = Ignore
	}
	if batchSize <= 0 {
		batchSize = 5000
	}
	return &Loader{
		store:     store,
		policy:    policy,
		batchSize: batchSize,
		runID:     runID,
		now:       time.Now,
	}
}

// Load writes rows in one transaction. Lines already loaded are skipped
// or replaced according to the conflict policy.
func (l *Loader) Load(ctx context.Context, rows []Row) (LoadResult, error) {
	res := LoadResult{Rows: len(rows)}
	if len(rows) == 0 {
		return res, nil
	}

	d := l.store.Dialect()
	if !d.Upsert {
		return res, fmt.Errorf("fact load is not supported on %s", d.Name)
	}

	rows = uniqueLines(rows)
	res.Ignored = int64(res.Rows - len(rows))

	cols := warehouse.FactColumns
	batch := d.RowsPerStatement(l.batchSize, len(cols))
	loadedAt := l.now().UTC()
	progress := logging.NewProgressReporter(warehouse.FactTable, "Loading",
		int64(len(rows)), 50000)

	err := db.RunInTx(ctx, l.store, func(tx db.Tx) error {
		for start := 0; start < len(rows); start += batch {
			end := min(start+batch, len(rows))
			stmt, args := l.statement(d, rows[start:end], loadedAt)

			n, err := tx.Exec(ctx, stmt, args...)
			if err != nil {
				name, ok := db.ConstraintViolation(err)
				if !ok {
					return fmt.Errorf("failed to write %s: %w", warehouse.FactTable, err)
				}
				return &dw.LoadConflictError{Table: warehouse.FactTable, Constraint: name, Err: err}
			}
			res.Written += n
			progress.Update(int64(end - start))
		}
		return nil
	})
	if err != nil {
		return LoadResult{Rows: res.Rows}, err
	}

	if l.policy == Ignore {
		res.Ignored += int64(len(rows)) - res.Written
	}
	progress.Done()

	return res, nil
}

func (l *Loader) statement(d db.Dialect, chunk []Row, loadedAt time.Time) (string, []any) {
	cols := warehouse.FactColumns
	tuples := make([]string, len(chunk))
	args := make([]any, 0, len(chunk)*len(cols))
	for i, r := range chunk {
		tuples[i] = d.Tuple(len(args)+1, len(cols))
		args = append(args,
			r.OrderLineID,
			r.DateKey,
			r.OrderKey,
			r.ProductKey.arg(),
			r.CustomerKey.arg(),
			r.SalespersonKey.arg(),
			r.TerritoryKey.arg(),
			r.OrderQty,
			r.UnitPrice,
			r.Discount,
			r.StandardCost,
			r.LineTotal,
			r.GrossMargin,
			l.runID,
			loadedAt,
		)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "INSERT INTO %s (%s) VALUES %s ON CONFLICT (order_line_id) ",
		warehouse.FactTable, d.IdentList(cols), strings.Join(tuples, ", "))

	if l.policy == Ignore {
		b.WriteString("DO NOTHING")
		return b.String(), args
	}

	sets := make([]string, 0, len(cols)-1)
	for _, c := range cols[1:] {
		sets = append(sets, fmt.Sprintf("%s = EXCLUDED.%s", d.Ident(c), d.Ident(c)))
	}
	b.WriteString("DO UPDATE SET ")
	b.WriteString(strings.Join(sets, ", "))
	return b.String(), args
}

// uniqueLines drops repeated order lines, keeping the first.
func uniqueLines(rows []Row) []Row {
	seen := make(map[int64]struct{}, len(rows))
	out := rows[:0:0]
	for _, r := range rows {
		if _, dup := seen[r.OrderLineID]; dup {
			continue
		}
		seen[r.OrderLineID] = struct{}{}
		out = append(out, r)
	}
	return out
}
