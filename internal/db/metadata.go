//-------------------------------------------------------------------------
//
// pgEdge Sales Warehouse Loader
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package db

import (
	"context"
	"fmt"
	"sort"

	"github.com/pgEdge/pgedge-salesdw/internal/dw"
	"github.com/pgEdge/pgedge-salesdw/internal/logging"
	"github.com/pgEdge/pgedge-salesdw/pkg/version"
)

// MetadataTable holds run bookkeeping in the warehouse.
const MetadataTable = "salesdw_metadata"

// createMetadataTableSQL creates the metadata table if it doesn't exist.
const createMetadataTableSQL = `
CREATE TABLE IF NOT EXISTS salesdw_metadata (
    key   VARCHAR(128) PRIMARY KEY,
    value TEXT NOT NULL
)`

// CreateMetadata creates the metadata table.
func CreateMetadata(ctx context.Context, q Querier) error {
	if _, err := q.Exec(ctx, createMetadataTableSQL); err != nil {
		return fmt.Errorf("failed to create metadata table: %w", err)
	}
	return nil
}

// SaveMetadata records key/value pairs in the warehouse. The current
// version is always stored alongside.
func SaveMetadata(ctx context.Context, s Store, values map[string]string) error {
	if !s.Dialect().Upsert {
		return fmt.Errorf("metadata is not supported on %s", s.Dialect().Name)
	}

	metadata := make(map[string]string, len(values)+1)
	for k, v := range values {
		metadata[k] = v
	}
	metadata["version"] = version.Short()

	keys := make([]string, 0, len(metadata))
	for k := range metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	d := s.Dialect()
	stmt := fmt.Sprintf(`
        INSERT INTO salesdw_metadata (key, value) VALUES (%s, %s)
        ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value
    `, d.Placeholder(1), d.Placeholder(2))

	err := RunInTx(ctx, s, func(tx Tx) error {
		if err := CreateMetadata(ctx, tx); err != nil {
			return err
		}
		for _, key := range keys {
			if _, err := tx.Exec(ctx, stmt, key, metadata[key]); err != nil {
				return fmt.Errorf("failed to save metadata %s: %w", key, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	logging.Debug().
		Int("keys", len(keys)).
		Msg("Saved metadata")

	return nil
}

// GetMetadataValue retrieves a single metadata value by key. A missing key
// yields ("", false, nil).
func GetMetadataValue(ctx context.Context, q Querier, d Dialect, key string) (string, bool, error) {
	rs, err := q.Query(ctx,
		"SELECT value FROM salesdw_metadata WHERE key = "+d.Placeholder(1), key)
	if err != nil {
		return "", false, err
	}
	if rs.Len() == 0 {
		return "", false, nil
	}
	v, _ := dw.ToString(rs.Rows[0][0])
	return v, true, nil
}

// GetAllMetadata retrieves all metadata as a map.
func GetAllMetadata(ctx context.Context, q Querier) (map[string]string, error) {
	rs, err := q.Query(ctx, `SELECT key, value FROM salesdw_metadata`)
	if err != nil {
		return nil, err
	}

	metadata := make(map[string]string, rs.Len())
	for _, row := range rs.Rows {
		k, _ := dw.ToString(row[0])
		v, _ := dw.ToString(row[1])
		metadata[k] = v
	}
	return metadata, nil
}

// DropMetadata drops the metadata table.
func DropMetadata(ctx context.Context, q Querier) error {
	_, err := q.Exec(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s", MetadataTable))
	return err
}
