//-------------------------------------------------------------------------
//
// pgEdge Sales Warehouse Loader
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package warehouse

import (
	"context"
	"fmt"
	"time"

	"github.com/pgEdge/pgedge-salesdw/internal/db"
	"github.com/pgEdge/pgedge-salesdw/internal/dw"
)

// UnknownMember returns the reserved unknown row of a dimension, keyed by
// column name and including the surrogate key.
func UnknownMember(d dw.Dimension, now time.Time) dw.Record {
	rec := dw.Record{d.NaturalKey: dw.UnknownKey}
	if d.SurrogateKey != d.NaturalKey {
		rec[d.SurrogateKey] = dw.UnknownKey
	}
	for _, a := range d.Attributes {
		switch {
		case a.Default != nil:
			rec[a.Name] = a.Default
		case a.Kind == dw.KindText:
			rec[a.Name] = "Unknown"
		case a.Kind == dw.KindBool:
			rec[a.Name] = false
		default:
			rec[a.Name] = nil
		}
	}
	if d.Sourced {
		rec[dw.ColInferred] = true
		rec[dw.ColUpdatedAt] = now
	}
	return rec
}

// SeedUnknownMembers inserts the unknown member into every dimension. It
// is safe to run more than once.
func SeedUnknownMembers(ctx context.Context, q db.Querier, dialect db.Dialect) error {
	now := time.Now().UTC()
	for _, d := range dw.Dimensions() {
		rec := UnknownMember(d, now)

		cols := d.Columns()
		if d.SurrogateKey != d.NaturalKey {
			cols = append([]string{d.SurrogateKey}, cols...)
		}
		args := make([]any, len(cols))
		for i, c := range cols {
			args[i] = rec[c]
		}

		stmt := fmt.Sprintf("INSERT INTO %s (%s) VALUES %s ON CONFLICT DO NOTHING",
			d.Table, dialect.IdentList(cols), dialect.Tuple(1, len(cols)))
		if _, err := q.Exec(ctx, stmt, args...); err != nil {
			return fmt.Errorf("failed to seed unknown %s: %w", d.Name, err)
		}
	}
	return nil
}
