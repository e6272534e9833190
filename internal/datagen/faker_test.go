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
	"testing"
	"time"
)

func TestNewFakerWithSeed(t *testing.T) {
	seed := uint64(12345)
	f1 := NewFakerWithSeed(seed)
	f2 := NewFakerWithSeed(seed)

	// Same seed should produce same sequence
	for i := 0; i < 10; i++ {
		v1 := f1.Int(0, 1000)
		v2 := f2.Int(0, 1000)
		if v1 != v2 {
			t.Errorf("Same seed produced different values: %d != %d", v1, v2)
		}
	}
}

func TestFakerDateRange(t *testing.T) {
	f := NewFakerWithSeed(1)
	start := time.Date(2003, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2003, 12, 31, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 100; i++ {
		d := f.DateRange(start, end)
		if d.Before(start) || d.After(end) {
			t.Errorf("DateRange returned %v outside [%v, %v]", d, start, end)
		}
	}
}

func TestChoose(t *testing.T) {
	f := NewFakerWithSeed(1)
	items := []string{"a", "b", "c"}

	for i := 0; i < 50; i++ {
		got := Choose(f, items)
		if got != "a" && got != "b" && got != "c" {
			t.Errorf("Choose returned unexpected value %q", got)
		}
	}

	if got := Choose(f, []string{}); got != "" {
		t.Errorf("Expected zero value for empty slice, got %q", got)
	}
}

func TestChooseWeighted(t *testing.T) {
	f := NewFakerWithSeed(1)

	// A zero weight is never chosen.
	for i := 0; i < 100; i++ {
		if got := ChooseWeighted(f, []int{1, 2}, []int{0, 1}); got != 2 {
			t.Fatalf("Expected 2, got %d", got)
		}
	}
}

func TestGenerateSource(t *testing.T) {
	sizes := DefaultSizes()
	tables := GenerateSource(NewFakerWithSeed(7), sizes)

	byName := make(map[string]*Table, len(tables))
	for _, tbl := range tables {
		byName[tbl.Name] = tbl
		for i, row := range tbl.Rows {
			if len(row) != len(tbl.Columns) {
				t.Fatalf("%s row %d has %d values for %d columns",
					tbl.Name, i, len(row), len(tbl.Columns))
			}
		}
	}

	if n := len(byName["production_product"].Rows); n != sizes.Products {
		t.Errorf("Expected %d products, got %d", sizes.Products, n)
	}
	if n := len(byName["sales_customer"].Rows); n != sizes.Customers {
		t.Errorf("Expected %d customers, got %d", sizes.Customers, n)
	}
	if n := len(byName["sales_salesorderheader"].Rows); n != sizes.Orders {
		t.Errorf("Expected %d orders, got %d", sizes.Orders, n)
	}

	details := byName["sales_salesorderdetail"].Rows
	if len(details) < sizes.Orders {
		t.Errorf("Expected at least one line per order, got %d lines", len(details))
	}
	for _, row := range details {
		productID := row[2].(int)
		if productID < 1 || productID > sizes.Products {
			t.Errorf("Line references product %d outside generated range", productID)
		}
	}

	for _, row := range byName["sales_salesorderheader"].Rows {
		d := row[1].(time.Time)
		if d.Before(sizes.OrderStart) || !d.Before(sizes.OrderEnd) {
			t.Errorf("Order date %v outside window", d)
		}
	}
}
