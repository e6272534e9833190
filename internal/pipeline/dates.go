//-------------------------------------------------------------------------
//
// pgEdge Sales Warehouse Loader
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package pipeline

import (
	"context"
	"time"

	"github.com/pgEdge/pgedge-salesdw/internal/datedim"
	"github.com/pgEdge/pgedge-salesdw/internal/db"
	"github.com/pgEdge/pgedge-salesdw/internal/dw"
	"github.com/pgEdge/pgedge-salesdw/internal/load"
	"github.com/pgEdge/pgedge-salesdw/internal/logging"
	"github.com/pgEdge/pgedge-salesdw/internal/warehouse"
)

// LoadDateRange fills dim_date with every day from start to end
// inclusive. Existing dates are left untouched.
func LoadDateRange(ctx context.Context, wh db.Store, start, end time.Time, batchSize int) (load.Result, error) {
	if err := warehouse.VerifySchema(ctx, wh); err != nil {
		return load.Result{}, err
	}

	rows, err := datedim.Range(start, end)
	if err != nil {
		return load.Result{}, err
	}

	cfg := load.DefaultConfig()
	if batchSize > 0 {
		cfg.BatchSize = batchSize
	}

	res, err := load.NewUpserter(wh, cfg).Upsert(ctx, dw.Date, datedim.Records(rows), load.ModeInsertOnly)
	if err != nil {
		return res, err
	}

	logging.Info().
		Str("start", start.Format(time.DateOnly)).
		Str("end", end.Format(time.DateOnly)).
		Int("days", res.Rows).
		Int64("added", res.Affected).
		Msg("Date dimension populated")

	return res, nil
}
