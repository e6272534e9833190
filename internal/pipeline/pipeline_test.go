package pipeline_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/pgEdge/pgedge-salesdw/internal/datagen"
	"github.com/pgEdge/pgedge-salesdw/internal/db"
	"github.com/pgEdge/pgedge-salesdw/internal/dw"
	"github.com/pgEdge/pgedge-salesdw/internal/facts"
	"github.com/pgEdge/pgedge-salesdw/internal/pipeline"
	"github.com/pgEdge/pgedge-salesdw/internal/resolve"
	"github.com/pgEdge/pgedge-salesdw/internal/source"
	"github.com/pgEdge/pgedge-salesdw/internal/testutil"
)

const linesJoin = "sales_salesorderdetail d JOIN sales_salesorderheader h ON h.salesorderid = d.salesorderid"

func setup(t *testing.T) (src, wh *db.SQLStore, sizes datagen.Sizes) {
	t.Helper()
	sizes = datagen.DefaultSizes()
	src = testutil.NewSource(t)
	testutil.SeedSource(t, src, sizes)
	wh = testutil.NewWarehouse(t)
	return src, wh, sizes
}

func run(t *testing.T, src, wh db.Store, cfg pipeline.Config) *pipeline.Summary {
	t.Helper()
	sum, err := pipeline.New(src, wh, cfg).Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	return sum
}

func keyMap(t *testing.T, q db.Querier, dim dw.Dimension) resolve.KeyMap {
	t.Helper()
	m, err := resolve.Load(context.Background(), q, dim)
	if err != nil {
		t.Fatalf("Failed to load %s keys: %v", dim.Name, err)
	}
	return m
}

// tableRows returns every row of a dimension table, ordered by surrogate
// key and rendered as text.
func tableRows(t *testing.T, q db.Querier, d dw.Dimension) []string {
	t.Helper()
	rs, err := q.Query(context.Background(),
		fmt.Sprintf("SELECT * FROM %s ORDER BY %s", d.Table, d.SurrogateKey))
	if err != nil {
		t.Fatalf("Failed to read %s: %v", d.Table, err)
	}
	out := make([]string, rs.Len())
	for i, row := range rs.Rows {
		out[i] = fmt.Sprintf("%v", row)
	}
	return out
}

func TestRunLoadsWarehouse(t *testing.T) {
	src, wh, sizes := setup(t)
	lines := testutil.Count(t, src, "sales_salesorderdetail", "")

	sum := run(t, src, wh, pipeline.DefaultConfig())

	if int64(sum.Extracted) != lines {
		t.Errorf("Expected %d lines extracted, got %d", lines, sum.Extracted)
	}
	if sum.FactsWritten != lines {
		t.Errorf("Expected %d facts written, got %d", lines, sum.FactsWritten)
	}
	if sum.Skipped != 0 || sum.Unresolved != 0 {
		t.Errorf("Expected no skipped or unresolved rows, got %d and %d", sum.Skipped, sum.Unresolved)
	}
	if sum.RunID == "" {
		t.Error("Expected a run id")
	}

	counts := []struct {
		table string
		want  int
	}{
		{"dim_product", sizes.Products + 1},
		{"dim_customer", sizes.Customers + 1},
		{"dim_salesperson", sizes.Employees + 1},
		{"dim_territory", sizes.Territories + 1},
		{"dim_order", sizes.Orders + 1},
	}
	for _, c := range counts {
		if n := testutil.Count(t, wh, c.table, ""); n != int64(c.want) {
			t.Errorf("Expected %d rows in %s, got %d", c.want, c.table, n)
		}
	}

	if n := testutil.Count(t, wh, "fact_sales", ""); n != lines {
		t.Errorf("Expected %d fact rows, got %d", lines, n)
	}
	if n := testutil.Count(t, wh, "fact_sales", "product_key = -1 OR customer_key = -1"); n != 0 {
		t.Errorf("Expected no facts on unknown members, got %d", n)
	}
	if n := testutil.Count(t, wh, "fact_sales", "gross_margin IS NULL"); n != 0 {
		t.Errorf("Expected every fact to carry a margin, got %d without", n)
	}
	if n := testutil.Count(t, wh, "fact_sales f JOIN dim_date d ON d.date_key = f.date_key", ""); n != lines {
		t.Errorf("Expected every fact to join dim_date, got %d", n)
	}

	runID, ok, err := db.GetMetadataValue(context.Background(), wh, wh.Dialect(), pipeline.MetaLastRunID)
	if err != nil || !ok || runID != sum.RunID {
		t.Errorf("Expected metadata run id %s, got %q (ok=%v, err=%v)", sum.RunID, runID, ok, err)
	}
}

func TestRunIsIdempotent(t *testing.T) {
	src, wh, _ := setup(t)
	lines := testutil.Count(t, src, "sales_salesorderdetail", "")

	first := run(t, src, wh, pipeline.DefaultConfig())
	productKeys := keyMap(t, wh, dw.Product)
	customers := testutil.Count(t, wh, "dim_customer", "")

	before := make(map[string][]string)
	for _, d := range dw.Dimensions() {
		before[d.Table] = tableRows(t, wh, d)
	}

	second := run(t, src, wh, pipeline.DefaultConfig())

	if n := second.Upserted(); n != 0 {
		t.Errorf("Expected no dimension rows written on an identical rerun, got %d", n)
	}
	for _, d := range dw.Dimensions() {
		after := tableRows(t, wh, d)
		if len(after) != len(before[d.Table]) {
			t.Errorf("Expected %d rows in %s after rerun, got %d", len(before[d.Table]), d.Table, len(after))
			continue
		}
		changed := 0
		for i := range after {
			if after[i] != before[d.Table][i] {
				changed++
			}
		}
		if changed > 0 {
			t.Errorf("Expected %s unchanged after rerun, %d of %d rows differ", d.Table, changed, len(after))
		}
	}

	if second.RunID == first.RunID {
		t.Error("Expected a new run id per run")
	}
	if second.FactsWritten != 0 || second.FactsIgnored != lines {
		t.Errorf("Expected 0 written and %d ignored, got %d and %d",
			lines, second.FactsWritten, second.FactsIgnored)
	}
	if n := testutil.Count(t, wh, "fact_sales", ""); n != lines {
		t.Errorf("Expected %d fact rows after rerun, got %d", lines, n)
	}
	if n := testutil.Count(t, wh, "dim_customer", ""); n != customers {
		t.Errorf("Expected %d customers after rerun, got %d", customers, n)
	}

	after := keyMap(t, wh, dw.Product)
	for nk, sk := range productKeys {
		if after[nk] != sk {
			t.Errorf("Expected product %d to keep key %d, got %d", nk, sk, after[nk])
		}
	}
}

func TestRunPicksUpSourceChanges(t *testing.T) {
	src, wh, _ := setup(t)
	run(t, src, wh, pipeline.DefaultConfig())

	testutil.MustExec(t, src, "UPDATE production_product SET name = 'Renamed Helmet', standardcost = 1 WHERE productid = 1")

	cfg := pipeline.DefaultConfig()
	cfg.FactConflict = facts.Replace
	sum := run(t, src, wh, cfg)

	rs, err := wh.Query(context.Background(), "SELECT product_name, standard_cost FROM dim_product WHERE product_id = 1")
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	rec := rs.Records()[0]
	if name, _ := rec.String("product_name"); name != "Renamed Helmet" {
		t.Errorf("Expected renamed product, got %s", name)
	}
	if cost, _ := rec.Float64("standard_cost"); cost != 1 {
		t.Errorf("Expected cost 1, got %v", cost)
	}
	if int64(sum.Extracted) != sum.FactsWritten {
		t.Errorf("Expected replace to rewrite every fact, got %d of %d", sum.FactsWritten, sum.Extracted)
	}

	bad := testutil.Count(t, wh,
		"fact_sales f JOIN dim_product p ON p.product_key = f.product_key",
		"p.product_id = 1 AND f.standard_cost <> 1")
	if bad != 0 {
		t.Errorf("Expected replaced facts to use the new cost, got %d stale rows", bad)
	}
}

func TestRunFallsBackToInferredCustomers(t *testing.T) {
	src, wh, _ := setup(t)
	testutil.MustExec(t, src, "DROP TABLE sales_customer")

	sum := run(t, src, wh, pipeline.DefaultConfig())

	stats := sum.Dimensions[dw.Customer.Name]
	if !stats.Fallback {
		t.Fatal("Expected customer dimension to use the fallback")
	}
	distinct := testutil.Count(t, src,
		"(SELECT DISTINCT customerid FROM sales_salesorderheader) c", "")
	if int64(stats.Inferred) != distinct {
		t.Errorf("Expected %d inferred customers, got %d", distinct, stats.Inferred)
	}
	if n := testutil.Count(t, wh, "dim_customer", "is_inferred AND customer_key <> -1"); n != distinct {
		t.Errorf("Expected %d inferred rows in dim_customer, got %d", distinct, n)
	}
	if n := testutil.Count(t, wh, "dim_customer", "customer_key <> -1 AND customer_name NOT LIKE 'Customer #%'"); n != 0 {
		t.Errorf("Expected placeholder names, got %d other rows", n)
	}
	if sum.Unresolved != 0 {
		t.Errorf("Expected every customer to resolve, got %d unresolved", sum.Unresolved)
	}
	if sum.Dimensions[dw.Product.Name].Fallback {
		t.Error("Expected products to load from the source")
	}
}

func TestRunFallbackKeepsRealMembers(t *testing.T) {
	src, wh, _ := setup(t)
	run(t, src, wh, pipeline.DefaultConfig())

	testutil.MustExec(t, src, "DROP TABLE sales_customer")
	run(t, src, wh, pipeline.DefaultConfig())

	if n := testutil.Count(t, wh, "dim_customer", "is_inferred AND customer_key <> -1"); n != 0 {
		t.Errorf("Expected inferred members not to overwrite real ones, got %d inferred", n)
	}
}

func TestRunWindow(t *testing.T) {
	src, wh, _ := setup(t)

	from := time.Date(2003, 7, 1, 0, 0, 0, 0, time.UTC)
	want := testutil.Count(t, src, linesJoin, "h.orderdate >= ?", from)

	cfg := pipeline.DefaultConfig()
	cfg.Window = source.Window{From: from}
	sum := run(t, src, wh, cfg)

	if int64(sum.Extracted) != want {
		t.Errorf("Expected %d lines in window, got %d", want, sum.Extracted)
	}
	if n := testutil.Count(t, wh, "fact_sales", "date_key < 20030701"); n != 0 {
		t.Errorf("Expected no facts before the window, got %d", n)
	}

	window, _, _ := db.GetMetadataValue(context.Background(), wh, wh.Dialect(), pipeline.MetaLastWindow)
	if window != "[2003-07-01, +inf)" {
		t.Errorf("Expected window recorded in metadata, got %q", window)
	}
}

func TestRunWithoutSchema(t *testing.T) {
	src := testutil.NewSource(t)
	wh := testutil.NewSQLiteStore(t)

	sum, err := pipeline.New(src, wh, pipeline.DefaultConfig()).Run(context.Background())
	if !errors.Is(err, dw.ErrSchemaMissing) {
		t.Fatalf("Expected ErrSchemaMissing, got %v", err)
	}
	if sum == nil {
		t.Error("Expected a summary on failure")
	}
}

func TestRunWithUnreadableSalesLines(t *testing.T) {
	src, wh, _ := setup(t)
	testutil.MustExec(t, src, "DROP TABLE sales_salesorderdetail")

	_, err := pipeline.New(src, wh, pipeline.DefaultConfig()).Run(context.Background())
	var sqe *dw.SourceQueryError
	if !errors.As(err, &sqe) {
		t.Fatalf("Expected SourceQueryError, got %v", err)
	}
	if sqe.Query != "sales_lines" {
		t.Errorf("Expected sales_lines query, got %s", sqe.Query)
	}
}

func TestLoadDateRange(t *testing.T) {
	ctx := context.Background()
	wh := testutil.NewWarehouse(t)

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)

	res, err := pipeline.LoadDateRange(ctx, wh, start, end, 100)
	if err != nil {
		t.Fatalf("LoadDateRange failed: %v", err)
	}
	if res.Rows != 366 || res.Affected != 366 {
		t.Errorf("Expected 366 days added, got %+v", res)
	}

	again, err := pipeline.LoadDateRange(ctx, wh, start, end, 100)
	if err != nil {
		t.Fatalf("Second LoadDateRange failed: %v", err)
	}
	if again.Affected != 0 {
		t.Errorf("Expected no days added on rerun, got %d", again.Affected)
	}
	if n := testutil.Count(t, wh, "dim_date", "date_key <> -1"); n != 366 {
		t.Errorf("Expected 366 dates, got %d", n)
	}
	if n := testutil.Count(t, wh, "dim_date", "is_weekend"); n != 104 {
		t.Errorf("Expected 104 weekend days in 2024, got %d", n)
	}

	if _, err := pipeline.LoadDateRange(ctx, wh, end, start, 100); err == nil {
		t.Error("Expected error for reversed range")
	}
}
