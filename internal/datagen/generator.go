//-------------------------------------------------------------------------
//
// pgEdge Sales Warehouse Loader
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package datagen

import (
	"context"
	"fmt"
	"strings"

	"github.com/pgEdge/pgedge-salesdw/internal/db"
	"github.com/pgEdge/pgedge-salesdw/internal/logging"
)

// BatchInsertConfig configures batch insert behavior.
type BatchInsertConfig struct {
	// BatchSize is the number of rows per batch insert.
	BatchSize int

	// ProgressInterval is how often to log progress (in rows).
	ProgressInterval int64
}

// DefaultBatchConfig returns default batch insert configuration.
func DefaultBatchConfig() BatchInsertConfig {
	return BatchInsertConfig{
		BatchSize:        200,
		ProgressInterval: 100000,
	}
}

// CreateSourceSchema creates the operational tables.
func CreateSourceSchema(ctx context.Context, q db.Querier) error {
	for _, stmt := range SourceSchemaSQL {
		if _, err := q.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create source schema: %w", err)
		}
	}
	return nil
}

// Insert writes the generated tables with multi-row INSERT statements.
func Insert(ctx context.Context, q db.Querier, dialect db.Dialect, tables []*Table, cfg BatchInsertConfig) error {
	for _, t := range tables {
		if err := insertTable(ctx, q, dialect, t, cfg); err != nil {
			return err
		}
	}
	return nil
}

func insertTable(ctx context.Context, q db.Querier, dialect db.Dialect, t *Table, cfg BatchInsertConfig) error {
	batchSize := dialect.RowsPerStatement(cfg.BatchSize, len(t.Columns))
	progress := logging.NewProgressReporter(t.Name, "Generating data",
		int64(len(t.Rows)), cfg.ProgressInterval)

	for start := 0; start < len(t.Rows); start += batchSize {
		end := min(start+batchSize, len(t.Rows))
		batch := t.Rows[start:end]

		tuples := make([]string, len(batch))
		args := make([]any, 0, len(batch)*len(t.Columns))
		for i, row := range batch {
			tuples[i] = dialect.Tuple(len(args)+1, len(t.Columns))
			args = append(args, row...)
		}

		stmt := fmt.Sprintf("INSERT INTO %s (%s) VALUES %s",
			t.Name, strings.Join(t.Columns, ", "), strings.Join(tuples, ", "))
		if _, err := q.Exec(ctx, stmt, args...); err != nil {
			return fmt.Errorf("failed to insert into %s: %w", t.Name, err)
		}
		progress.Update(int64(len(batch)))
	}

	progress.Done()
	return nil
}
