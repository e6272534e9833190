//-------------------------------------------------------------------------
//
// pgEdge Sales Warehouse Loader
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package warehouse creates, drops and verifies the star schema.
package warehouse

import (
	"context"
	"fmt"
	"strings"

	"github.com/pgEdge/pgedge-salesdw/internal/db"
	"github.com/pgEdge/pgedge-salesdw/internal/dw"
	"github.com/pgEdge/pgedge-salesdw/internal/logging"
)

// FactTable is the sales fact table.
const FactTable = "fact_sales"

// Fact table columns written by the loader.
var FactColumns = []string{
	"order_line_id",
	"date_key",
	"order_key",
	"product_key",
	"customer_key",
	"salesperson_key",
	"territory_key",
	"order_qty",
	"unit_price",
	"unit_price_discount",
	"standard_cost",
	"line_total",
	"gross_margin",
	"run_id",
	"loaded_at",
}

// typeMap maps attribute kinds to column types per dialect.
var typeMap = map[string]map[dw.Kind]string{
	db.Postgres.Name: {
		dw.KindText:  "VARCHAR(255)",
		dw.KindFloat: "NUMERIC(19,4)",
		dw.KindInt:   "INTEGER",
		dw.KindBool:  "BOOLEAN",
		dw.KindDate:  "DATE",
	},
	db.SQLite.Name: {
		dw.KindText:  "TEXT",
		dw.KindFloat: "REAL",
		dw.KindInt:   "INTEGER",
		dw.KindBool:  "BOOLEAN",
		dw.KindDate:  "DATE",
	},
}

type ddl struct {
	identity  string
	key       string
	money     string
	flag      string
	timestamp string
	now       string
	cascade   string
}

var ddlFor = map[string]ddl{
	db.Postgres.Name: {
		identity:  "BIGINT GENERATED BY DEFAULT AS IDENTITY PRIMARY KEY",
		key:       "BIGINT",
		money:     "NUMERIC(19,4)",
		flag:      "BOOLEAN NOT NULL DEFAULT FALSE",
		timestamp: "TIMESTAMPTZ",
		now:       "now()",
		cascade:   " CASCADE",
	},
	db.SQLite.Name: {
		identity:  "INTEGER PRIMARY KEY AUTOINCREMENT",
		key:       "INTEGER",
		money:     "REAL",
		flag:      "BOOLEAN NOT NULL DEFAULT 0",
		timestamp: "TIMESTAMP",
		now:       "CURRENT_TIMESTAMP",
	},
}

// Tables returns the warehouse tables in creation order.
func Tables() []string {
	tables := make([]string, 0, len(dw.Dimensions())+1)
	for _, d := range dw.Dimensions() {
		tables = append(tables, d.Table)
	}
	return append(tables, FactTable)
}

// CreateSchemaSQL returns the DDL statements for the given dialect.
func CreateSchemaSQL(dialect db.Dialect) ([]string, error) {
	types, ok := typeMap[dialect.Name]
	if !ok {
		return nil, fmt.Errorf("warehouse is not supported on %s", dialect.Name)
	}
	x := ddlFor[dialect.Name]

	var stmts []string
	for _, d := range dw.Dimensions() {
		var cols []string
		if d.SurrogateKey == d.NaturalKey {
			cols = append(cols, fmt.Sprintf("    %s INTEGER PRIMARY KEY", d.NaturalKey))
		} else {
			cols = append(cols,
				fmt.Sprintf("    %s %s", d.SurrogateKey, x.identity),
				fmt.Sprintf("    %s %s NOT NULL UNIQUE", d.NaturalKey, x.key))
		}
		for _, a := range d.Attributes {
			cols = append(cols, fmt.Sprintf("    %s %s", a.Name, types[a.Kind]))
		}
		if d.Sourced {
			cols = append(cols,
				fmt.Sprintf("    %s %s", dw.ColInferred, x.flag),
				fmt.Sprintf("    %s %s NOT NULL DEFAULT %s", dw.ColUpdatedAt, x.timestamp, x.now))
		}
		stmts = append(stmts, fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n%s\n)",
			d.Table, strings.Join(cols, ",\n")))
	}

	ref := func(d dw.Dimension) string {
		return fmt.Sprintf("REFERENCES %s(%s)", d.Table, d.SurrogateKey)
	}
	stmts = append(stmts, fmt.Sprintf(`CREATE TABLE IF NOT EXISTS fact_sales (
    sales_key           %[1]s,
    order_line_id       %[2]s NOT NULL UNIQUE,
    date_key            INTEGER NOT NULL %[5]s,
    order_key           %[2]s NOT NULL %[6]s,
    product_key         %[2]s %[7]s,
    customer_key        %[2]s %[8]s,
    salesperson_key     %[2]s %[9]s,
    territory_key       %[2]s %[10]s,
    order_qty           INTEGER NOT NULL,
    unit_price          %[3]s NOT NULL,
    unit_price_discount %[3]s NOT NULL DEFAULT 0,
    standard_cost       %[3]s,
    line_total          %[3]s NOT NULL,
    gross_margin        %[3]s,
    run_id              VARCHAR(36) NOT NULL,
    loaded_at           %[4]s NOT NULL
)`, x.identity, x.key, x.money, x.timestamp,
		ref(dw.Date), ref(dw.Order), ref(dw.Product), ref(dw.Customer),
		ref(dw.Salesperson), ref(dw.Territory)))

	stmts = append(stmts,
		"CREATE INDEX IF NOT EXISTS idx_fact_sales_date ON fact_sales(date_key)")

	return stmts, nil
}

// DropSchemaSQL returns the statements that drop the warehouse.
func DropSchemaSQL(dialect db.Dialect) []string {
	cascade := ddlFor[dialect.Name].cascade
	tables := Tables()
	stmts := make([]string, 0, len(tables)+1)
	for i := len(tables) - 1; i >= 0; i-- {
		stmts = append(stmts, fmt.Sprintf("DROP TABLE IF EXISTS %s%s", tables[i], cascade))
	}
	return append(stmts, fmt.Sprintf("DROP TABLE IF EXISTS %s", db.MetadataTable))
}

// CreateSchema creates the warehouse tables, the metadata table and the
// unknown members in one transaction. With dropExisting the old tables
// are dropped first.
func CreateSchema(ctx context.Context, s db.Store, dropExisting bool) error {
	stmts, err := CreateSchemaSQL(s.Dialect())
	if err != nil {
		return err
	}

	err = db.RunInTx(ctx, s, func(tx db.Tx) error {
		if dropExisting {
			if err := execAll(ctx, tx, DropSchemaSQL(s.Dialect())); err != nil {
				return fmt.Errorf("failed to drop schema: %w", err)
			}
		}
		if err := execAll(ctx, tx, stmts); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
		if err := db.CreateMetadata(ctx, tx); err != nil {
			return err
		}
		return SeedUnknownMembers(ctx, tx, s.Dialect())
	})
	if err != nil {
		return err
	}

	logging.Info().
		Str("driver", s.Dialect().Name).
		Int("tables", len(Tables())).
		Msg("Warehouse schema created")
	return nil
}

// DropSchema drops every warehouse table.
func DropSchema(ctx context.Context, s db.Store) error {
	return db.RunInTx(ctx, s, func(tx db.Tx) error {
		return execAll(ctx, tx, DropSchemaSQL(s.Dialect()))
	})
}

// VerifySchema checks that every table and loader column exists. It
// returns an error wrapping dw.ErrSchemaMissing when one does not.
func VerifySchema(ctx context.Context, q db.Querier) error {
	check := func(table string, cols []string) error {
		sql := fmt.Sprintf("SELECT %s FROM %s WHERE 1 = 0", strings.Join(cols, ", "), table)
		if _, err := q.Query(ctx, sql); err != nil {
			if db.UndefinedObject(err) {
				return fmt.Errorf("%w: %s: %v", dw.ErrSchemaMissing, table, err)
			}
			return fmt.Errorf("failed to verify %s: %w", table, err)
		}
		return nil
	}

	for _, d := range dw.Dimensions() {
		cols := append([]string{d.SurrogateKey}, d.Columns()...)
		if d.SurrogateKey == d.NaturalKey {
			cols = d.Columns()
		}
		if err := check(d.Table, cols); err != nil {
			return err
		}
	}
	return check(FactTable, append([]string{"sales_key"}, FactColumns...))
}

func execAll(ctx context.Context, q db.Querier, stmts []string) error {
	for _, stmt := range stmts {
		if _, err := q.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
