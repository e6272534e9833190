//-------------------------------------------------------------------------
//
// pgEdge Sales Warehouse Loader
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package resolve maps natural keys to warehouse surrogate keys.
package resolve

import (
	"context"
	"fmt"
	"sort"

	"github.com/pgEdge/pgedge-salesdw/internal/db"
	"github.com/pgEdge/pgedge-salesdw/internal/dw"
	"github.com/pgEdge/pgedge-salesdw/internal/logging"
)

// maxGapSamples bounds the gap errors kept for reporting.
const maxGapSamples = 20

// KeyMap maps natural keys to surrogate keys for one dimension.
type KeyMap map[int64]int64

// Load reads the key map of dim from the warehouse.
func Load(ctx context.Context, q db.Querier, dim dw.Dimension) (KeyMap, error) {
	sql := fmt.Sprintf("SELECT %s AS sk, %s AS nk FROM %s",
		dim.SurrogateKey, dim.NaturalKey, dim.Table)
	rs, err := q.Query(ctx, sql)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s keys: %w", dim.Table, err)
	}

	m := make(KeyMap, rs.Len())
	for _, row := range rs.Rows {
		sk, ok1 := dw.ToInt64(row[0])
		nk, ok2 := dw.ToInt64(row[1])
		if ok1 && ok2 {
			m[nk] = sk
		}
	}
	return m, nil
}

// Resolver owns the key maps of every dimension used by the fact table,
// plus the product cost lookup.
type Resolver struct {
	maps  map[string]KeyMap
	costs map[int64]float64
	gaps  map[string]int
	// samples keeps the first few gaps for the run log.
	samples []*dw.ResolutionGapError
}

// NewResolver creates an empty resolver.
func NewResolver() *Resolver {
	return &Resolver{
		maps:  make(map[string]KeyMap),
		costs: make(map[int64]float64),
		gaps:  make(map[string]int),
	}
}

// LoadAll reads the key maps of dims and the product costs. It must run
// after the dimension load so new members are visible.
func (r *Resolver) LoadAll(ctx context.Context, q db.Querier, dims ...dw.Dimension) error {
	for _, d := range dims {
		m, err := Load(ctx, q, d)
		if err != nil {
			return err
		}
		r.maps[d.Name] = m

		logging.Debug().
			Str("dimension", d.Name).
			Int("keys", len(m)).
			Msg("Loaded key map")
	}
	return r.LoadCosts(ctx, q)
}

// LoadCosts reads standard_cost per product surrogate key. Inferred and
// unknown members have no cost.
func (r *Resolver) LoadCosts(ctx context.Context, q db.Querier) error {
	rs, err := q.Query(ctx, `
        SELECT product_key, standard_cost FROM dim_product
        WHERE product_key <> -1 AND standard_cost IS NOT NULL
          AND NOT is_inferred`)
	if err != nil {
		return fmt.Errorf("failed to read product costs: %w", err)
	}

	for _, row := range rs.Rows {
		k, ok1 := dw.ToInt64(row[0])
		c, ok2 := dw.ToFloat64(row[1])
		if ok1 && ok2 {
			r.costs[k] = c
		}
	}
	return nil
}

// SetKeyMap installs a key map directly.
func (r *Resolver) SetKeyMap(dim dw.Dimension, m KeyMap) {
	r.maps[dim.Name] = m
}

// SetCost installs the standard cost of a product surrogate key.
func (r *Resolver) SetCost(productKey int64, cost float64) {
	r.costs[productKey] = cost
}

// Resolve maps the natural key nk of dim to its surrogate key. A NULL nk
// yields valid=false. A key with no member yields dw.UnknownKey and is
// recorded as a gap against lineID.
func (r *Resolver) Resolve(dim dw.Dimension, nk any, lineID int64) (sk int64, valid bool) {
	k, ok := dw.ToInt64(nk)
	if !ok {
		return 0, false
	}
	if sk, found := r.maps[dim.Name][k]; found {
		return sk, true
	}

	r.gaps[dim.Name]++
	if len(r.samples) < maxGapSamples {
		r.samples = append(r.samples, &dw.ResolutionGapError{
			Dimension:   dim.Name,
			NaturalKey:  k,
			OrderLineID: lineID,
		})
	}
	return dw.UnknownKey, true
}

// Cost returns the standard cost of a product surrogate key.
func (r *Resolver) Cost(productKey int64) (float64, bool) {
	c, ok := r.costs[productKey]
	return c, ok
}

// Gaps returns the number of unresolved keys per dimension name.
func (r *Resolver) Gaps() map[string]int {
	out := make(map[string]int, len(r.gaps))
	for k, v := range r.gaps {
		out[k] = v
	}
	return out
}

// GapSamples returns the first recorded gaps, ordered by line.
func (r *Resolver) GapSamples() []*dw.ResolutionGapError {
	out := append([]*dw.ResolutionGapError(nil), r.samples...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].OrderLineID < out[j].OrderLineID })
	return out
}
