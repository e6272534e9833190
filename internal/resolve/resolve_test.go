package resolve_test

import (
	"context"
	"testing"

	"github.com/pgEdge/pgedge-salesdw/internal/dw"
	"github.com/pgEdge/pgedge-salesdw/internal/load"
	"github.com/pgEdge/pgedge-salesdw/internal/resolve"
	"github.com/pgEdge/pgedge-salesdw/internal/testutil"
	"github.com/pgEdge/pgedge-salesdw/internal/transform"
)

func TestResolve(t *testing.T) {
	r := resolve.NewResolver()
	r.SetKeyMap(dw.Product, resolve.KeyMap{707: 12, dw.UnknownKey: dw.UnknownKey})

	tests := []struct {
		name      string
		nk        any
		wantKey   int64
		wantValid bool
	}{
		{"known", int64(707), 12, true},
		{"known as float", 707.0, 12, true},
		{"unknown member", int64(-1), dw.UnknownKey, true},
		{"unresolved", int64(999), dw.UnknownKey, true},
		{"null", nil, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sk, valid := r.Resolve(dw.Product, tt.nk, 1)
			if valid != tt.wantValid {
				t.Fatalf("Expected valid=%v, got %v", tt.wantValid, valid)
			}
			if valid && sk != tt.wantKey {
				t.Errorf("Expected key %d, got %d", tt.wantKey, sk)
			}
		})
	}

	gaps := r.Gaps()
	if gaps["product"] != 1 {
		t.Errorf("Expected 1 product gap, got %d", gaps["product"])
	}
	samples := r.GapSamples()
	if len(samples) != 1 || samples[0].NaturalKey != 999 {
		t.Errorf("Expected a gap sample for 999, got %v", samples)
	}
}

func TestResolveMissingDimensionMap(t *testing.T) {
	r := resolve.NewResolver()
	sk, valid := r.Resolve(dw.Territory, int64(4), 7)
	if !valid || sk != dw.UnknownKey {
		t.Errorf("Expected unknown key for unloaded map, got %d valid=%v", sk, valid)
	}
	if r.Gaps()["territory"] != 1 {
		t.Errorf("Expected territory gap, got %v", r.Gaps())
	}
}

func TestLoadAllFromWarehouse(t *testing.T) {
	ctx := context.Background()
	s := testutil.NewWarehouse(t)
	u := load.NewUpserter(s, load.DefaultConfig())
	tr := transform.New(transform.FirstWins)

	recs := tr.Transform(dw.Product, []dw.Record{
		{"product_id": int64(707), "product_name": "Helmet", "standard_cost": 13.08},
		{"product_id": int64(708), "product_name": "Helmet, Black", "standard_cost": 13.09},
	}).Records
	if _, err := u.Upsert(ctx, dw.Product, recs, load.ModeReplace); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	inferred := tr.Infer(dw.Product, []int64{800})
	if _, err := u.Upsert(ctx, dw.Product, inferred, load.ModeInsertOnly); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	r := resolve.NewResolver()
	if err := r.LoadAll(ctx, s, dw.Product, dw.Customer); err != nil {
		t.Fatalf("LoadAll failed: %v", err)
	}

	sk, valid := r.Resolve(dw.Product, int64(707), 1)
	if !valid || sk == dw.UnknownKey {
		t.Fatalf("Expected 707 to resolve, got %d", sk)
	}
	if cost, ok := r.Cost(sk); !ok || cost != 13.08 {
		t.Errorf("Expected cost 13.08, got %v (ok=%v)", cost, ok)
	}

	inferredKey, _ := r.Resolve(dw.Product, int64(800), 2)
	if _, ok := r.Cost(inferredKey); ok {
		t.Error("Expected no cost for an inferred product")
	}
	if _, ok := r.Cost(dw.UnknownKey); ok {
		t.Error("Expected no cost for the unknown product")
	}

	if sk, _ := r.Resolve(dw.Customer, int64(-1), 3); sk != dw.UnknownKey {
		t.Errorf("Expected unknown customer to resolve to -1, got %d", sk)
	}
	if len(r.Gaps()) != 0 {
		t.Errorf("Expected no gaps, got %v", r.Gaps())
	}
}
