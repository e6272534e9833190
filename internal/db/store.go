//-------------------------------------------------------------------------
//
// pgEdge Sales Warehouse Loader
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package db

import (
	"context"
	"strings"

	"github.com/pgEdge/pgedge-salesdw/internal/dw"
)

// Querier runs statements against a store or an open transaction.
type Querier interface {
	// Query runs a statement and buffers every row.
	Query(ctx context.Context, sql string, args ...any) (*ResultSet, error)

	// Exec runs a statement and returns the number of rows affected.
	Exec(ctx context.Context, sql string, args ...any) (int64, error)
}

// Tx is an open transaction. Rollback after Commit is a no-op.
type Tx interface {
	Querier
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// Store is a connection to a source or warehouse database.
type Store interface {
	Querier
	Dialect() Dialect
	Begin(ctx context.Context) (Tx, error)
	Close()
}

// ResultSet is a fully buffered query result.
type ResultSet struct {
	// Columns holds lower-cased column names.
	Columns []string
	Rows    [][]any
}

// Records converts the result into records keyed by column name.
func (rs *ResultSet) Records() []dw.Record {
	out := make([]dw.Record, 0, len(rs.Rows))
	for _, row := range rs.Rows {
		rec := make(dw.Record, len(rs.Columns))
		for i, col := range rs.Columns {
			rec[col] = row[i]
		}
		out = append(out, rec)
	}
	return out
}

// Len returns the number of rows.
func (rs *ResultSet) Len() int {
	return len(rs.Rows)
}

func lowerAll(names []string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = strings.ToLower(n)
	}
	return out
}

// RunInTx runs fn inside a transaction on s. The transaction is committed
// when fn returns nil and rolled back otherwise.
func RunInTx(ctx context.Context, s Store, fn func(Tx) error) error {
	tx, err := s.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
