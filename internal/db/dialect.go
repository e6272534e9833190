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
	"fmt"
	"strconv"
	"strings"
)

// Dialect captures the SQL differences between supported backends.
type Dialect struct {
	// Name is the driver name accepted in configuration.
	Name string

	// SQLDriver is the database/sql driver name; empty for pgx.
	SQLDriver string

	// Upsert is true when the backend supports INSERT ... ON CONFLICT.
	Upsert bool

	// MaxParams is the bind parameter limit of one statement.
	MaxParams int

	placeholder func(n int) string
}

// Supported dialects.
var (
	Postgres = Dialect{
		Name:        "postgres",
		Upsert:      true,
		MaxParams:   65535,
		placeholder: func(n int) string { return "$" + strconv.Itoa(n) },
	}
	SQLite = Dialect{
		Name:        "sqlite",
		SQLDriver:   "sqlite",
		Upsert:      true,
		MaxParams:   32766,
		placeholder: func(int) string { return "?" },
	}
	SQLServer = Dialect{
		Name:        "sqlserver",
		SQLDriver:   "sqlserver",
		MaxParams:   2100,
		placeholder: func(n int) string { return "@p" + strconv.Itoa(n) },
	}
)

// DialectFor returns the dialect for a configured driver name.
func DialectFor(driver string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "postgres", "postgresql", "pgx":
		return Postgres, nil
	case "sqlite", "sqlite3":
		return SQLite, nil
	case "sqlserver", "mssql":
		return SQLServer, nil
	default:
		return Dialect{}, fmt.Errorf("unsupported driver: %q", driver)
	}
}

// Placeholder returns the bind marker for the n-th (1-based) argument.
func (d Dialect) Placeholder(n int) string {
	return d.placeholder(n)
}

// RowsPerStatement caps a batch of rows with width columns so that one
// statement stays under MaxParams.
func (d Dialect) RowsPerStatement(batchSize, width int) int {
	if width <= 0 {
		return max(1, batchSize)
	}
	return max(1, min(batchSize, d.MaxParams/width))
}

// Tuple returns a parenthesised list of count placeholders numbered from
// start, e.g. "($4, $5, $6)".
func (d Dialect) Tuple(start, count int) string {
	var b strings.Builder
	b.WriteByte('(')
	for i := 0; i < count; i++ {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(d.placeholder(start + i))
	}
	b.WriteByte(')')
	return b.String()
}

// Ident quotes a single identifier.
func (d Dialect) Ident(name string) string {
	if d.Name == SQLServer.Name {
		return "[" + strings.ReplaceAll(name, "]", "]]") + "]"
	}
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// IdentList quotes and joins identifiers with ", ".
func (d Dialect) IdentList(names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = d.Ident(n)
	}
	return strings.Join(quoted, ", ")
}
