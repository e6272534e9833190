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
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	mssql "github.com/microsoft/go-mssqldb"
	"modernc.org/sqlite"
)

// SQLite primary result code for constraint violations.
const sqliteConstraint = 19

// SQL Server error numbers for constraint violations.
var mssqlConstraintErrors = map[int32]bool{
	515:  true, // NULL into NOT NULL
	547:  true, // foreign key / check
	2601: true, // unique index
	2627: true, // unique constraint
}

// ConstraintViolation reports whether err is an integrity constraint
// violation and returns the constraint name when the driver exposes one.
func ConstraintViolation(err error) (string, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if strings.HasPrefix(pgErr.Code, "23") {
			return pgErr.ConstraintName, true
		}
		return "", false
	}

	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		return "", liteErr.Code()&0xff == sqliteConstraint
	}

	var msErr mssql.Error
	if errors.As(err, &msErr) {
		return "", mssqlConstraintErrors[msErr.Number]
	}

	return "", false
}

// UndefinedObject reports whether err says a table or column is missing.
func UndefinedObject(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// 42P01 undefined_table, 42703 undefined_column
		return pgErr.Code == "42P01" || pgErr.Code == "42703"
	}

	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "no such table") ||
		strings.Contains(msg, "no such column") ||
		strings.Contains(msg, "invalid object name") ||
		strings.Contains(msg, "invalid column name")
}
