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
	"context"
	"database/sql"
	"fmt"

	// Registers the "sqlserver" driver.
	_ "github.com/microsoft/go-mssqldb"
	// Registers the "sqlite" driver.
	_ "modernc.org/sqlite"

	"github.com/pgEdge/pgedge-salesdw/internal/logging"
)

// sqlQuerier is the subset of *sql.DB and *sql.Tx used here.
type sqlQuerier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// SQLStore is a Store backed by database/sql. It serves the SQLite and
// SQL Server dialects.
type SQLStore struct {
	db      *sql.DB
	dialect Dialect
}

// OpenSQL opens a database/sql store for the given dialect.
func OpenSQL(ctx context.Context, dialect Dialect, dsn string) (*SQLStore, error) {
	if dialect.SQLDriver == "" {
		return nil, fmt.Errorf("dialect %s has no database/sql driver", dialect.Name)
	}

	logging.Debug().
		Str("driver", dialect.Name).
		Msg("Connecting to database")

	sqlDB, err := sql.Open(dialect.SQLDriver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", dialect.Name, err)
	}

	if dialect.Name == SQLite.Name {
		// SQLite allows a single writer.
		sqlDB.SetMaxOpenConns(1)
	}

	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if dialect.Name == SQLite.Name {
		if _, err := sqlDB.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
			_ = sqlDB.Close()
			return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
		}
	}

	logging.Info().
		Str("driver", dialect.Name).
		Msg("Connected to database")

	return &SQLStore{db: sqlDB, dialect: dialect}, nil
}

// Dialect implements Store.
func (s *SQLStore) Dialect() Dialect {
	return s.dialect
}

// Query implements Querier.
func (s *SQLStore) Query(ctx context.Context, query string, args ...any) (*ResultSet, error) {
	return sqlQuery(ctx, s.db, query, args...)
}

// Exec implements Querier.
func (s *SQLStore) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	return sqlExec(ctx, s.db, query, args...)
}

// Begin implements Store.
func (s *SQLStore) Begin(ctx context.Context) (Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return &sqlTx{tx: tx}, nil
}

// Close implements Store.
func (s *SQLStore) Close() {
	_ = s.db.Close()
}

type sqlTx struct {
	tx   *sql.Tx
	done bool
}

func (t *sqlTx) Query(ctx context.Context, query string, args ...any) (*ResultSet, error) {
	return sqlQuery(ctx, t.tx, query, args...)
}

func (t *sqlTx) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	return sqlExec(ctx, t.tx, query, args...)
}

func (t *sqlTx) Commit(context.Context) error {
	t.done = true
	return t.tx.Commit()
}

func (t *sqlTx) Rollback(context.Context) error {
	if t.done {
		return nil
	}
	t.done = true
	return t.tx.Rollback()
}

func sqlQuery(ctx context.Context, q sqlQuerier, query string, args ...any) (*ResultSet, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	rs := &ResultSet{Columns: lowerAll(cols)}
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		for i, v := range values {
			if b, ok := v.([]byte); ok {
				values[i] = string(b)
			}
		}
		rs.Rows = append(rs.Rows, values)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return rs, nil
}

func sqlExec(ctx context.Context, q sqlQuerier, query string, args ...any) (int64, error) {
	res, err := q.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, nil
	}
	return n, nil
}
