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
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// pgQuerier is the subset of pgxpool.Pool and pgx.Tx used here.
type pgQuerier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PgStore is a Store backed by a pgx connection pool.
type PgStore struct {
	pool *pgxpool.Pool
}

// NewPgStore wraps an existing pool. The store owns the pool from then on.
func NewPgStore(pool *pgxpool.Pool) *PgStore {
	return &PgStore{pool: pool}
}

// Dialect implements Store.
func (s *PgStore) Dialect() Dialect {
	return Postgres
}

// Query implements Querier.
func (s *PgStore) Query(ctx context.Context, sql string, args ...any) (*ResultSet, error) {
	return pgQuery(ctx, s.pool, sql, args...)
}

// Exec implements Querier.
func (s *PgStore) Exec(ctx context.Context, sql string, args ...any) (int64, error) {
	return pgExec(ctx, s.pool, sql, args...)
}

// Begin implements Store.
func (s *PgStore) Begin(ctx context.Context) (Tx, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return &pgTx{tx: tx}, nil
}

// Close implements Store.
func (s *PgStore) Close() {
	s.pool.Close()
}

type pgTx struct {
	tx pgx.Tx
}

func (t *pgTx) Query(ctx context.Context, sql string, args ...any) (*ResultSet, error) {
	return pgQuery(ctx, t.tx, sql, args...)
}

func (t *pgTx) Exec(ctx context.Context, sql string, args ...any) (int64, error) {
	return pgExec(ctx, t.tx, sql, args...)
}

func (t *pgTx) Commit(ctx context.Context) error {
	return t.tx.Commit(ctx)
}

func (t *pgTx) Rollback(ctx context.Context) error {
	err := t.tx.Rollback(ctx)
	if errors.Is(err, pgx.ErrTxClosed) {
		return nil
	}
	return err
}

func pgQuery(ctx context.Context, q pgQuerier, sql string, args ...any) (*ResultSet, error) {
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.Name
	}

	rs := &ResultSet{Columns: lowerAll(names)}
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, err
		}
		for i, v := range values {
			values[i] = normalizePgValue(v)
		}
		rs.Rows = append(rs.Rows, values)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return rs, nil
}

func pgExec(ctx context.Context, q pgQuerier, sql string, args ...any) (int64, error) {
	tag, err := q.Exec(ctx, sql, args...)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// normalizePgValue maps pgx decoded values onto plain Go scalars.
func normalizePgValue(v any) any {
	switch t := v.(type) {
	case pgtype.Numeric:
		if !t.Valid {
			return nil
		}
		f, err := t.Float64Value()
		if err != nil || !f.Valid {
			return nil
		}
		return f.Float64
	case int32:
		return int64(t)
	case int16:
		return int64(t)
	case float32:
		return float64(t)
	case []byte:
		return string(t)
	default:
		return v
	}
}
