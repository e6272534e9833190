//-------------------------------------------------------------------------
//
// pgEdge Sales Warehouse Loader
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package facts builds and loads sales fact rows.
package facts

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/pgEdge/pgedge-salesdw/internal/datedim"
	"github.com/pgEdge/pgedge-salesdw/internal/dw"
	"github.com/pgEdge/pgedge-salesdw/internal/resolve"
)

// MeasureScale is the number of decimal places kept on computed measures.
const MeasureScale = 4

// Key is a nullable surrogate key.
type Key struct {
	Value int64
	Valid bool
}

func (k Key) arg() any {
	if !k.Valid {
		return nil
	}
	return k.Value
}

// Row is one fact_sales row.
type Row struct {
	OrderLineID    int64
	DateKey        int64
	OrderKey       int64
	ProductKey     Key
	CustomerKey    Key
	SalespersonKey Key
	TerritoryKey   Key

	OrderQty     int64
	UnitPrice    decimal.Decimal
	Discount     decimal.Decimal
	StandardCost decimal.NullDecimal
	LineTotal    decimal.Decimal
	GrossMargin  decimal.NullDecimal
}

// Measures holds the computed measures of one line.
type Measures struct {
	LineTotal   decimal.Decimal
	GrossMargin decimal.NullDecimal
}

// Compute returns line_total = price*qty*(1-discount) and, when cost is
// known, gross_margin = line_total - cost*qty. Both are rounded to
// MeasureScale places.
func Compute(price decimal.Decimal, qty int64, discount decimal.Decimal, cost decimal.NullDecimal) Measures {
	q := decimal.NewFromInt(qty)
	lineTotal := price.Mul(q).Mul(decimal.NewFromInt(1).Sub(discount)).Round(MeasureScale)

	m := Measures{LineTotal: lineTotal}
	if cost.Valid {
		m.GrossMargin = decimal.NewNullDecimal(lineTotal.Sub(cost.Decimal.Mul(q)).Round(MeasureScale))
	}
	return m
}

// Result is the output of an assembly pass.
type Result struct {
	Rows []Row

	// Skipped holds one error per line whose measures could not be
	// computed.
	Skipped []*dw.MeasureComputationError

	// Unresolved counts rows with at least one key pointing at the
	// unknown member.
	Unresolved int
}

// Assembler turns sales lines into fact rows.
type Assembler struct {
	resolver *resolve.Resolver
}

// NewAssembler creates an assembler using the resolver's key maps.
func NewAssembler(r *resolve.Resolver) *Assembler {
	return &Assembler{resolver: r}
}

// Assemble converts every line. Lines failing validation are skipped and
// reported, never fatal.
func (a *Assembler) Assemble(lines []dw.Record) Result {
	var res Result
	res.Rows = make([]Row, 0, len(lines))

	for _, line := range lines {
		row, unresolved, err := a.assembleLine(line)
		if err != nil {
			res.Skipped = append(res.Skipped, err)
			continue
		}
		if unresolved {
			res.Unresolved++
		}
		res.Rows = append(res.Rows, row)
	}
	return res
}

func (a *Assembler) assembleLine(line dw.Record) (Row, bool, *dw.MeasureComputationError) {
	lineID, ok := line.Int64("order_line_id")
	if !ok {
		return Row{}, false, &dw.MeasureComputationError{Field: "order_line_id", Reason: "is missing"}
	}
	fail := func(field, reason string) (Row, bool, *dw.MeasureComputationError) {
		return Row{}, false, &dw.MeasureComputationError{OrderLineID: lineID, Field: field, Reason: reason}
	}

	orderDate, ok := line.Time("order_date")
	if !ok {
		return fail("order_date", "is missing")
	}
	if line.IsNull("order_id") {
		return fail("order_id", "is missing")
	}

	price, ok := line.Decimal("unit_price")
	if !ok {
		return fail("unit_price", "is missing")
	}
	if price.IsNegative() {
		return fail("unit_price", "is negative")
	}

	qty, ok := line.Int64("order_qty")
	if !ok {
		return fail("order_qty", "is missing")
	}
	if qty <= 0 {
		return fail("order_qty", "is not positive")
	}

	discount := decimal.Zero
	if !line.IsNull("unit_price_discount") {
		d, ok := line.Decimal("unit_price_discount")
		if !ok || d.IsNegative() || d.GreaterThan(decimal.NewFromInt(1)) {
			return fail("unit_price_discount", "is outside [0, 1]")
		}
		discount = d
	}

	row := Row{
		OrderLineID: lineID,
		DateKey:     datedim.Key(orderDate),
		OrderQty:    qty,
		UnitPrice:   price,
		Discount:    discount,
	}

	gaps := 0
	resolveKey := func(dim dw.Dimension, col string) Key {
		sk, valid := a.resolver.Resolve(dim, line[col], lineID)
		if valid && sk == dw.UnknownKey {
			if nk, _ := line.Int64(col); nk != dw.UnknownKey {
				gaps++
			}
		}
		return Key{Value: sk, Valid: valid}
	}

	row.OrderKey = resolveKey(dw.Order, "order_id").Value
	row.ProductKey = resolveKey(dw.Product, "product_id")
	row.CustomerKey = resolveKey(dw.Customer, "customer_id")
	row.SalespersonKey = resolveKey(dw.Salesperson, "salesperson_id")
	row.TerritoryKey = resolveKey(dw.Territory, "territory_id")

	if row.ProductKey.Valid {
		if c, ok := a.resolver.Cost(row.ProductKey.Value); ok {
			row.StandardCost = decimal.NewNullDecimal(decimal.NewFromFloat(c))
		}
	}

	m := Compute(row.UnitPrice, qty, discount, row.StandardCost)
	row.LineTotal = m.LineTotal
	row.GrossMargin = m.GrossMargin

	return row, gaps > 0, nil
}

// Dates returns the order dates of lines, skipping NULLs.
func Dates(lines []dw.Record) []time.Time {
	out := make([]time.Time, 0, len(lines))
	for _, l := range lines {
		if d, ok := l.Time("order_date"); ok {
			out = append(out, d)
		}
	}
	return out
}
