//-------------------------------------------------------------------------
//
// pgEdge Sales Warehouse Loader
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

//go:build integration
// +build integration

// Integration tests against PostgreSQL.
// Run with: go test -tags=integration ./internal/pipeline/...
// Set PGEDGE_TEST_CONN environment variable to override connection string.

package pipeline_test

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/pgEdge/pgedge-salesdw/internal/datagen"
	"github.com/pgEdge/pgedge-salesdw/internal/db"
	"github.com/pgEdge/pgedge-salesdw/internal/dw"
	"github.com/pgEdge/pgedge-salesdw/internal/facts"
	"github.com/pgEdge/pgedge-salesdw/internal/pipeline"
	"github.com/pgEdge/pgedge-salesdw/internal/testutil"
	"github.com/pgEdge/pgedge-salesdw/internal/warehouse"
)

// openPostgres creates a scratch database and returns a store on it.
func openPostgres(t *testing.T, baseConnStr, purpose string) db.Store {
	t.Helper()

	connStr := testutil.CreateTestDB(t, baseConnStr, purpose)
	cleanup := testutil.NewTestCleanup(t, baseConnStr, testutil.GetDBNameFromConnStr(connStr))
	t.Cleanup(cleanup.Cleanup)

	s, err := db.Open(context.Background(), "postgres", connStr)
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}
	cleanup.OnCleanup(s.Close)
	return s
}

func TestPostgresPipeline(t *testing.T) {
	baseConnStr := testutil.SkipIfNoPostgres(t)
	ctx := context.Background()

	src := openPostgres(t, baseConnStr, "source")
	wh := openPostgres(t, baseConnStr, "warehouse")

	if err := datagen.CreateSourceSchema(ctx, src); err != nil {
		t.Fatalf("Failed to create source schema: %v", err)
	}
	testutil.SeedSource(t, src, datagen.DefaultSizes())
	lines := testutil.Count(t, src, "sales_salesorderdetail", "")

	t.Run("CreateSchema", func(t *testing.T) {
		if err := warehouse.CreateSchema(ctx, wh, false); err != nil {
			t.Fatalf("CreateSchema failed: %v", err)
		}
		if err := warehouse.CreateSchema(ctx, wh, false); err != nil {
			t.Fatalf("CreateSchema is not repeatable: %v", err)
		}
	})

	t.Run("FirstRun", func(t *testing.T) {
		sum, err := pipeline.New(src, wh, pipeline.DefaultConfig()).Run(ctx)
		if err != nil {
			t.Fatalf("Run failed: %v", err)
		}
		if sum.FactsWritten != lines {
			t.Errorf("Expected %d facts written, got %d", lines, sum.FactsWritten)
		}
	})

	t.Run("SecondRun", func(t *testing.T) {
		sum, err := pipeline.New(src, wh, pipeline.DefaultConfig()).Run(ctx)
		if err != nil {
			t.Fatalf("Run failed: %v", err)
		}
		if sum.FactsWritten != 0 || sum.FactsIgnored != lines {
			t.Errorf("Expected every line ignored, got %d written and %d ignored",
				sum.FactsWritten, sum.FactsIgnored)
		}
		if n := testutil.Count(t, wh, "fact_sales", ""); n != lines {
			t.Errorf("Expected %d fact rows, got %d", lines, n)
		}
	})

	t.Run("Measures", func(t *testing.T) {
		n := testutil.Count(t, wh, "fact_sales",
			"line_total <> ROUND(unit_price * order_qty * (1 - unit_price_discount), 4)")
		if n != 0 {
			t.Errorf("Expected line_total to match its formula, got %d mismatches", n)
		}
		n = testutil.Count(t, wh, "fact_sales",
			"gross_margin <> ROUND(line_total - standard_cost * order_qty, 4)")
		if n != 0 {
			t.Errorf("Expected gross_margin to match its formula, got %d mismatches", n)
		}
	})

	t.Run("ReplaceRun", func(t *testing.T) {
		cfg := pipeline.DefaultConfig()
		cfg.FactConflict = facts.Replace
		sum, err := pipeline.New(src, wh, cfg).Run(ctx)
		if err != nil {
			t.Fatalf("Run failed: %v", err)
		}
		if sum.FactsWritten != lines {
			t.Errorf("Expected %d facts replaced, got %d", lines, sum.FactsWritten)
		}
	})
}

func TestPostgresFactConflict(t *testing.T) {
	baseConnStr := testutil.SkipIfNoPostgres(t)
	ctx := context.Background()

	wh := openPostgres(t, baseConnStr, "conflict")
	if err := warehouse.CreateSchema(ctx, wh, false); err != nil {
		t.Fatalf("CreateSchema failed: %v", err)
	}

	row := facts.Row{
		OrderLineID: 1,
		DateKey:     19990101,
		OrderKey:    dw.UnknownKey,
		OrderQty:    1,
		UnitPrice:   decimal.NewFromInt(10),
		LineTotal:   decimal.NewFromInt(10),
	}
	_, err := facts.NewLoader(wh, facts.Ignore, 100, "run").Load(ctx, []facts.Row{row})

	var lce *dw.LoadConflictError
	if !errors.As(err, &lce) {
		t.Fatalf("Expected LoadConflictError, got %v", err)
	}
	if lce.Table != "fact_sales" || lce.Constraint == "" {
		t.Errorf("Expected a named constraint on fact_sales, got %+v", lce)
	}
}
