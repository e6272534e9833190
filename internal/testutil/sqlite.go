//-------------------------------------------------------------------------
//
// pgEdge Sales Warehouse Loader
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package testutil

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/pgEdge/pgedge-salesdw/internal/datagen"
	"github.com/pgEdge/pgedge-salesdw/internal/db"
	"github.com/pgEdge/pgedge-salesdw/internal/warehouse"
)

// FixtureSeed is the gofakeit seed used for source fixtures.
const FixtureSeed uint64 = 20030715

// SQLiteDSN returns a database file path inside the test's temp dir.
func SQLiteDSN(t *testing.T, name string) string {
	t.Helper()
	return filepath.Join(t.TempDir(), name+".db")
}

// NewSQLiteStore opens a fresh SQLite store closed at test end.
func NewSQLiteStore(t *testing.T) *db.SQLStore {
	t.Helper()

	s, err := db.OpenSQL(context.Background(), db.SQLite, SQLiteDSN(t, "store"))
	if err != nil {
		t.Fatalf("Failed to open sqlite store: %v", err)
	}
	t.Cleanup(s.Close)
	return s
}

// NewWarehouse opens a SQLite store with the warehouse schema created.
func NewWarehouse(t *testing.T) *db.SQLStore {
	t.Helper()

	s := NewSQLiteStore(t)
	if err := warehouse.CreateSchema(context.Background(), s, false); err != nil {
		t.Fatalf("Failed to create warehouse schema: %v", err)
	}
	return s
}

// NewSource opens a SQLite store holding an empty operational schema.
func NewSource(t *testing.T) *db.SQLStore {
	t.Helper()

	s := NewSQLiteStore(t)
	if err := datagen.CreateSourceSchema(context.Background(), s); err != nil {
		t.Fatalf("Failed to create source schema: %v", err)
	}
	return s
}

// SeedSource fills the source store with generated data and returns the
// generated tables.
func SeedSource(t *testing.T, s db.Store, sizes datagen.Sizes) []*datagen.Table {
	t.Helper()

	tables := datagen.GenerateSource(datagen.NewFakerWithSeed(FixtureSeed), sizes)
	if err := datagen.Insert(context.Background(), s, s.Dialect(), tables,
		datagen.DefaultBatchConfig()); err != nil {
		t.Fatalf("Failed to seed source: %v", err)
	}
	return tables
}

// MustExec runs a statement or fails the test.
func MustExec(t *testing.T, q db.Querier, sql string, args ...any) {
	t.Helper()
	if _, err := q.Exec(context.Background(), sql, args...); err != nil {
		t.Fatalf("Exec failed: %v\n%s", err, sql)
	}
}

// Count returns SELECT COUNT(*) for the given table and optional WHERE
// clause.
func Count(t *testing.T, q db.Querier, table, where string, args ...any) int64 {
	t.Helper()

	sql := "SELECT COUNT(*) AS n FROM " + table
	if where != "" {
		sql += " WHERE " + where
	}
	rs, err := q.Query(context.Background(), sql, args...)
	if err != nil {
		t.Fatalf("Count on %s failed: %v", table, err)
	}
	n, _ := rs.Records()[0].Int64("n")
	return n
}
