package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/pgEdge/pgedge-salesdw/internal/datagen"
	"github.com/pgEdge/pgedge-salesdw/internal/db"
	"github.com/pgEdge/pgedge-salesdw/internal/testutil"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		initDropExisting = false
		datesStart, datesEnd = "", ""
		runFrom, runTo = "", ""
	})

	err := rootCmd.Execute()
	return out.String(), err
}

func seededSource(t *testing.T) string {
	t.Helper()

	path := testutil.SQLiteDSN(t, "source")
	s, err := db.OpenSQL(context.Background(), db.SQLite, path)
	if err != nil {
		t.Fatalf("Failed to open source: %v", err)
	}
	defer s.Close()

	if err := datagen.CreateSourceSchema(context.Background(), s); err != nil {
		t.Fatalf("Failed to create source schema: %v", err)
	}
	testutil.SeedSource(t, s, datagen.DefaultSizes())
	return path
}

func countIn(t *testing.T, path, table, where string) int64 {
	t.Helper()

	s, err := db.OpenSQL(context.Background(), db.SQLite, path)
	if err != nil {
		t.Fatalf("Failed to open %s: %v", path, err)
	}
	defer s.Close()
	return testutil.Count(t, s, table, where)
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	if err != nil {
		t.Fatalf("version failed: %v", err)
	}
	if !strings.Contains(out, "pgedge-salesdw") {
		t.Errorf("Expected version output, got %q", out)
	}
}

func TestDimensionsCommand(t *testing.T) {
	out, err := execute(t, "dimensions")
	if err != nil {
		t.Fatalf("dimensions failed: %v", err)
	}
	for _, want := range []string{"dim_product", "dim_customer", "dim_date", "customer_id"} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected %q in output", want)
		}
	}
}

func TestDimensionsCommandByName(t *testing.T) {
	out, err := execute(t, "dimensions", "territory")
	if err != nil {
		t.Fatalf("dimensions failed: %v", err)
	}
	if !strings.Contains(out, "dim_territory") || strings.Contains(out, "dim_product") {
		t.Errorf("Expected only the territory dimension, got %q", out)
	}

	if _, err := execute(t, "dimensions", "warehouse"); err == nil {
		t.Error("Expected error for an unknown dimension")
	}
}

func TestInitRequiresWarehouse(t *testing.T) {
	if _, err := execute(t, "init", "--warehouse", ""); err == nil {
		t.Error("Expected error without a warehouse connection")
	}
}

func TestInitDatesAndRun(t *testing.T) {
	src := seededSource(t)
	wh := testutil.SQLiteDSN(t, "warehouse")
	common := []string{"--warehouse-driver", "sqlite", "--warehouse", wh, "--log-level", "error"}

	if _, err := execute(t, append([]string{"init"}, common...)...); err != nil {
		t.Fatalf("init failed: %v", err)
	}
	if n := countIn(t, wh, "dim_product", ""); n != 1 {
		t.Errorf("Expected only the unknown product after init, got %d", n)
	}

	args := append([]string{"dates", "--start", "2003-01-01", "--end", "2003-12-31"}, common...)
	if _, err := execute(t, args...); err != nil {
		t.Fatalf("dates failed: %v", err)
	}
	if n := countIn(t, wh, "dim_date", "date_key <> -1"); n != 365 {
		t.Errorf("Expected 365 dates, got %d", n)
	}

	args = append([]string{"run", "--source-driver", "sqlite", "--source", src}, common...)
	if _, err := execute(t, args...); err != nil {
		t.Fatalf("run failed: %v", err)
	}

	lines := countIn(t, src, "sales_salesorderdetail", "")
	if n := countIn(t, wh, "fact_sales", ""); n != lines {
		t.Errorf("Expected %d facts, got %d", lines, n)
	}
}

func TestRunRejectsBadWindow(t *testing.T) {
	wh := testutil.SQLiteDSN(t, "warehouse")
	_, err := execute(t, "run", "--source-driver", "sqlite", "--source", "src.db",
		"--warehouse-driver", "sqlite", "--warehouse", wh,
		"--from", "2004-01-01", "--to", "2003-01-01")
	if err == nil || !strings.Contains(err.Error(), "run.to") {
		t.Errorf("Expected window error, got %v", err)
	}
}
