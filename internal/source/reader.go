//-------------------------------------------------------------------------
//
// pgEdge Sales Warehouse Loader
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package source reads master data and sales lines from the operational
// database.
package source

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pgEdge/pgedge-salesdw/internal/db"
	"github.com/pgEdge/pgedge-salesdw/internal/dw"
	"github.com/pgEdge/pgedge-salesdw/internal/logging"
)

// Window bounds the sales lines read by order date: From inclusive, To
// exclusive. Zero times leave that side open.
type Window struct {
	From time.Time
	To   time.Time
}

// String renders the window for logs.
func (w Window) String() string {
	f, t := "-inf", "+inf"
	if !w.From.IsZero() {
		f = w.From.Format(time.DateOnly)
	}
	if !w.To.IsZero() {
		t = w.To.Format(time.DateOnly)
	}
	return "[" + f + ", " + t + ")"
}

// Reader runs the fixed extraction queries.
type Reader struct {
	store db.Store
}

// NewReader creates a reader over the given source store.
func NewReader(store db.Store) *Reader {
	return &Reader{store: store}
}

// Products reads products with their category and subcategory.
func (r *Reader) Products(ctx context.Context) ([]dw.Record, error) {
	return r.read(ctx, "products", productsSQL)
}

// Customers reads customers joined to person, store and address. A
// customer with several addresses appears once per address.
func (r *Reader) Customers(ctx context.Context) ([]dw.Record, error) {
	return r.read(ctx, "customers", customersSQL)
}

// Salespeople reads employees with their person names.
func (r *Reader) Salespeople(ctx context.Context) ([]dw.Record, error) {
	return r.read(ctx, "salespeople", salespeopleSQL)
}

// Territories reads sales territories.
func (r *Reader) Territories(ctx context.Context) ([]dw.Record, error) {
	return r.read(ctx, "territories", territoriesSQL)
}

// SalesLines reads order lines joined to their headers, restricted to w.
func (r *Reader) SalesLines(ctx context.Context, w Window) ([]dw.Record, error) {
	d := r.store.Dialect()

	var (
		conds []string
		args  []any
	)
	if !w.From.IsZero() {
		args = append(args, w.From)
		conds = append(conds, "h.orderdate >= "+d.Placeholder(len(args)))
	}
	if !w.To.IsZero() {
		args = append(args, w.To)
		conds = append(conds, "h.orderdate < "+d.Placeholder(len(args)))
	}

	sql := salesLinesSQL
	if len(conds) > 0 {
		sql += "\nWHERE " + strings.Join(conds, " AND ")
	}
	sql += salesLinesOrder

	return r.read(ctx, "sales_lines", sql, args...)
}

// Dimension reads the source rows of a sourced dimension.
func (r *Reader) Dimension(ctx context.Context, d dw.Dimension) ([]dw.Record, error) {
	switch d.Name {
	case dw.Product.Name:
		return r.Products(ctx)
	case dw.Customer.Name:
		return r.Customers(ctx)
	case dw.Salesperson.Name:
		return r.Salespeople(ctx)
	case dw.Territory.Name:
		return r.Territories(ctx)
	default:
		return nil, fmt.Errorf("dimension %s has no source query", d.Name)
	}
}

func (r *Reader) read(ctx context.Context, name, sql string, args ...any) ([]dw.Record, error) {
	start := time.Now()

	rs, err := r.store.Query(ctx, sql, args...)
	if err != nil {
		return nil, &dw.SourceQueryError{Query: name, Err: err}
	}

	logging.Debug().
		Str("query", name).
		Int("rows", rs.Len()).
		Dur("elapsed", time.Since(start)).
		Msg("Source query complete")

	return rs.Records(), nil
}
