package load_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/pgEdge/pgedge-salesdw/internal/db"
	"github.com/pgEdge/pgedge-salesdw/internal/dw"
	"github.com/pgEdge/pgedge-salesdw/internal/load"
	"github.com/pgEdge/pgedge-salesdw/internal/testutil"
	"github.com/pgEdge/pgedge-salesdw/internal/transform"
)

func products(t *testing.T, rows ...dw.Record) []dw.Record {
	t.Helper()
	return transform.New(transform.FirstWins).Transform(dw.Product, rows).Records
}

func productRow(t *testing.T, s db.Store, id int64) dw.Record {
	t.Helper()
	rs, err := s.Query(context.Background(),
		"SELECT product_key, product_name, list_price, is_inferred FROM dim_product WHERE product_id = ?", id)
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if rs.Len() != 1 {
		t.Fatalf("Expected one row for product %d, got %d", id, rs.Len())
	}
	return rs.Records()[0]
}

func TestUpsertReplace(t *testing.T) {
	ctx := context.Background()
	s := testutil.NewWarehouse(t)
	u := load.NewUpserter(s, load.DefaultConfig())

	first := products(t, dw.Record{"product_id": int64(707), "product_name": "Helmet", "list_price": 50.0})
	if _, err := u.Upsert(ctx, dw.Product, first, load.ModeReplace); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	before := productRow(t, s, 707)

	second := products(t, dw.Record{"product_id": int64(707), "product_name": "Helmet", "list_price": 60.0})
	if _, err := u.Upsert(ctx, dw.Product, second, load.ModeReplace); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	after := productRow(t, s, 707)

	if n := testutil.Count(t, s, "dim_product", "product_id = 707"); n != 1 {
		t.Errorf("Expected exactly one row for 707, got %d", n)
	}
	if v, _ := after.Float64("list_price"); v != 60 {
		t.Errorf("Expected list_price 60, got %v", v)
	}
	k1, _ := before.Int64("product_key")
	k2, _ := after.Int64("product_key")
	if k1 != k2 {
		t.Errorf("Expected surrogate key to survive replace: %d != %d", k1, k2)
	}
	if k1 <= 0 {
		t.Errorf("Expected a positive surrogate key, got %d", k1)
	}
}

func TestUpsertIdempotent(t *testing.T) {
	ctx := context.Background()
	s := testutil.NewWarehouse(t)
	u := load.NewUpserter(s, load.Config{BatchSize: 2})

	recs := products(t,
		dw.Record{"product_id": int64(1), "product_name": "A"},
		dw.Record{"product_id": int64(2), "product_name": "B"},
		dw.Record{"product_id": int64(3), "product_name": "C"},
	)

	for i := 0; i < 2; i++ {
		res, err := u.Upsert(ctx, dw.Product, recs, load.ModeReplace)
		if err != nil {
			t.Fatalf("Upsert %d failed: %v", i, err)
		}
		if res.Rows != 3 {
			t.Errorf("Expected 3 rows submitted, got %d", res.Rows)
		}
	}

	// Three products plus the unknown member.
	if n := testutil.Count(t, s, "dim_product", ""); n != 4 {
		t.Errorf("Expected 4 rows, got %d", n)
	}
}

func TestUpsertSkipsUnchangedRows(t *testing.T) {
	ctx := context.Background()
	s := testutil.NewWarehouse(t)
	u := load.NewUpserter(s, load.DefaultConfig())

	row := dw.Record{"product_id": int64(707), "product_name": "Helmet", "list_price": 50.0}
	if _, err := u.Upsert(ctx, dw.Product, products(t, row), load.ModeReplace); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	stamp := updatedAt(t, s, 707)

	// A fresh transform stamps a new updated_at on identical attributes.
	time.Sleep(10 * time.Millisecond)
	res, err := u.Upsert(ctx, dw.Product, products(t, row), load.ModeReplace)
	if err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	if res.Affected != 0 {
		t.Errorf("Expected no rows affected for unchanged input, got %d", res.Affected)
	}
	if got := updatedAt(t, s, 707); got != stamp {
		t.Errorf("Expected updated_at to stay %s, got %s", stamp, got)
	}

	time.Sleep(10 * time.Millisecond)
	row["list_price"] = 55.0
	res, err = u.Upsert(ctx, dw.Product, products(t, row), load.ModeReplace)
	if err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	if res.Affected != 1 {
		t.Errorf("Expected 1 row affected for a changed price, got %d", res.Affected)
	}
	if got := updatedAt(t, s, 707); got == stamp {
		t.Error("Expected updated_at to move when an attribute changes")
	}
}

func updatedAt(t *testing.T, s db.Store, id int64) string {
	t.Helper()
	rs, err := s.Query(context.Background(), "SELECT updated_at FROM dim_product WHERE product_id = ?", id)
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if rs.Len() != 1 {
		t.Fatalf("Expected one row for product %d, got %d", id, rs.Len())
	}
	return fmt.Sprint(rs.Rows[0][0])
}

func TestUpsertInsertOnly(t *testing.T) {
	ctx := context.Background()
	s := testutil.NewWarehouse(t)
	u := load.NewUpserter(s, load.DefaultConfig())

	sourced := products(t, dw.Record{"product_id": int64(9), "product_name": "Real Bike"})
	if _, err := u.Upsert(ctx, dw.Product, sourced, load.ModeReplace); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	inferred := transform.New(transform.FirstWins).Infer(dw.Product, []int64{9, 10})
	if _, err := u.Upsert(ctx, dw.Product, inferred, load.ModeInsertOnly); err != nil {
		t.Fatalf("Insert-only upsert failed: %v", err)
	}

	if name, _ := productRow(t, s, 9).String("product_name"); name != "Real Bike" {
		t.Errorf("Expected placeholder not to overwrite real row, got %q", name)
	}
	placeholder := productRow(t, s, 10)
	if name, _ := placeholder.String("product_name"); name != "Product #10" {
		t.Errorf("Expected placeholder name, got %q", name)
	}
	if v, _ := placeholder.Bool("is_inferred"); !v {
		t.Error("Expected placeholder to be flagged inferred")
	}

	// A later real row replaces the placeholder.
	later := products(t, dw.Record{"product_id": int64(10), "product_name": "Late Arrival"})
	if _, err := u.Upsert(ctx, dw.Product, later, load.ModeReplace); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	row := productRow(t, s, 10)
	if v, _ := row.Bool("is_inferred"); v {
		t.Error("Expected is_inferred cleared by real row")
	}
}

func TestUpsertRejectsDuplicateKeys(t *testing.T) {
	ctx := context.Background()
	s := testutil.NewWarehouse(t)
	u := load.NewUpserter(s, load.DefaultConfig())

	recs := products(t, dw.Record{"product_id": int64(5), "product_name": "A"})
	recs = append(recs, recs[0].Clone())

	_, err := u.Upsert(ctx, dw.Product, recs, load.ModeReplace)
	if !errors.Is(err, dw.ErrDuplicateNaturalKey) {
		t.Fatalf("Expected ErrDuplicateNaturalKey, got %v", err)
	}
	if n := testutil.Count(t, s, "dim_product", "product_id = 5"); n != 0 {
		t.Errorf("Expected nothing written, got %d rows", n)
	}
}

func TestUpsertAtomic(t *testing.T) {
	ctx := context.Background()
	s := testutil.NewWarehouse(t)
	u := load.NewUpserter(s, load.Config{BatchSize: 2})

	recs := products(t,
		dw.Record{"product_id": int64(1), "product_name": "A"},
		dw.Record{"product_id": int64(2), "product_name": "B"},
		dw.Record{"product_id": int64(3), "product_name": "C"},
	)
	// is_inferred is NOT NULL; the failing row sits in the second chunk.
	recs[2][dw.ColInferred] = nil

	_, err := u.Upsert(ctx, dw.Product, recs, load.ModeReplace)
	var conflict *dw.LoadConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("Expected LoadConflictError, got %v", err)
	}
	if conflict.Table != "dim_product" {
		t.Errorf("Expected table dim_product, got %s", conflict.Table)
	}

	if n := testutil.Count(t, s, "dim_product", "product_id > 0"); n != 0 {
		t.Errorf("Expected first chunk rolled back, found %d rows", n)
	}
}

func TestUpsertWriteFailureIsNotConflict(t *testing.T) {
	// No warehouse schema: the write fails without violating a constraint.
	s := testutil.NewSQLiteStore(t)
	u := load.NewUpserter(s, load.DefaultConfig())

	recs := products(t, dw.Record{"product_id": int64(1), "product_name": "A"})
	_, err := u.Upsert(context.Background(), dw.Product, recs, load.ModeReplace)
	if err == nil {
		t.Fatal("Expected an error without a dim_product table")
	}
	var conflict *dw.LoadConflictError
	if errors.As(err, &conflict) {
		t.Errorf("Expected a plain write error, got LoadConflictError %v", err)
	}
}

func TestUpsertEmpty(t *testing.T) {
	s := testutil.NewWarehouse(t)
	u := load.NewUpserter(s, load.DefaultConfig())

	res, err := u.Upsert(context.Background(), dw.Product, nil, load.ModeReplace)
	if err != nil {
		t.Fatalf("Expected no error for empty input, got %v", err)
	}
	if res.Rows != 0 || res.Affected != 0 {
		t.Errorf("Expected zero result, got %+v", res)
	}
}
