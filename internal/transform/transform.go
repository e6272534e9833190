//-------------------------------------------------------------------------
//
// pgEdge Sales Warehouse Loader
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package transform reshapes source rows into dimension records.
package transform

import (
	"fmt"
	"strings"
	"time"

	"github.com/pgEdge/pgedge-salesdw/internal/dw"
)

// Policy decides which source row wins when a natural key repeats.
type Policy string

// Dedup policies.
const (
	// FirstWins keeps the first row seen for a key.
	FirstWins Policy = "first-wins"
	// LastWins keeps the last row seen for a key.
	LastWins Policy = "last-wins"
	// Coalesce merges duplicates field by field, taking the first
	// non-null value.
	Coalesce Policy = "coalesce"
)

// ParsePolicy validates a policy name. An empty name means FirstWins.
func ParsePolicy(s string) (Policy, error) {
	switch p := Policy(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return FirstWins, nil
	case FirstWins, LastWins, Coalesce:
		return p, nil
	default:
		return "", fmt.Errorf("invalid dedup policy: %s (valid: first-wins, last-wins, coalesce)", s)
	}
}

// Result is the output of a transform.
type Result struct {
	Records []dw.Record

	// NullKeys counts source rows dropped for a null natural key.
	NullKeys int

	// Duplicates counts source rows folded into an earlier key.
	Duplicates int
}

// Transformer maps, deduplicates and default-fills dimension rows.
type Transformer struct {
	policy Policy
	now    func() time.Time
}

// New creates a transformer using the given dedup policy.
func New(policy Policy) *Transformer {
	if policy == "" {
		policy = FirstWins
	}
	return &Transformer{policy: policy, now: time.Now}
}

// Policy returns the dedup policy in use.
func (t *Transformer) Policy() Policy {
	return t.policy
}

// Transform converts source rows of dim into warehouse records. Records
// come out in first-seen natural key order.
func (t *Transformer) Transform(dim dw.Dimension, rows []dw.Record) Result {
	mapper := mapperFor(dim)

	var (
		res   Result
		order []int64
		byKey = make(map[int64]dw.Record, len(rows))
	)
	for _, src := range rows {
		rec := coerce(dim, mapper(src))

		nk, ok := rec.Int64(dim.NaturalKey)
		if !ok {
			res.NullKeys++
			continue
		}

		prev, seen := byKey[nk]
		if !seen {
			byKey[nk] = rec
			order = append(order, nk)
			continue
		}

		res.Duplicates++
		switch t.policy {
		case LastWins:
			byKey[nk] = rec
		case Coalesce:
			for _, a := range dim.Attributes {
				if prev.IsNull(a.Name) && !rec.IsNull(a.Name) {
					prev[a.Name] = rec[a.Name]
				}
			}
		}
	}

	now := t.now().UTC()
	res.Records = make([]dw.Record, 0, len(order))
	for _, nk := range order {
		rec := fillDefaults(dim, byKey[nk])
		if dim.Sourced {
			rec[dw.ColInferred] = false
			rec[dw.ColUpdatedAt] = now
		}
		res.Records = append(res.Records, rec)
	}
	return res
}

// Infer builds placeholder members for natural keys that have no source
// row. Each gets the name "<Label> #<id>" and is flagged inferred. Keys
// are deduplicated and UnknownKey is skipped.
func (t *Transformer) Infer(dim dw.Dimension, ids []int64) []dw.Record {
	now := t.now().UTC()
	seen := make(map[int64]struct{}, len(ids))
	out := make([]dw.Record, 0, len(ids))
	for _, id := range ids {
		if id == dw.UnknownKey {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}

		rec := dw.Record{dim.NaturalKey: id}
		if dim.NameColumn != "" {
			rec[dim.NameColumn] = fmt.Sprintf("%s #%d", dim.Label, id)
		}
		rec = fillDefaults(dim, rec)
		if dim.Sourced {
			rec[dw.ColInferred] = true
			rec[dw.ColUpdatedAt] = now
		}
		out = append(out, rec)
	}
	return out
}

// NaturalKeys returns the distinct non-null values of col in first-seen
// order.
func NaturalKeys(rows []dw.Record, col string) []int64 {
	seen := make(map[int64]struct{})
	var keys []int64
	for _, r := range rows {
		k, ok := r.Int64(col)
		if !ok {
			continue
		}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		keys = append(keys, k)
	}
	return keys
}

func fillDefaults(dim dw.Dimension, rec dw.Record) dw.Record {
	out := rec.Clone()
	for _, a := range dim.Attributes {
		if out.IsNull(a.Name) {
			out[a.Name] = a.Default
		}
	}
	return out
}

// coerce converts each attribute to its declared kind. Values that do not
// convert become NULL.
func coerce(dim dw.Dimension, rec dw.Record) dw.Record {
	out := make(dw.Record, len(dim.Attributes)+1)
	if nk, ok := rec.Int64(dim.NaturalKey); ok {
		out[dim.NaturalKey] = nk
	}
	for _, a := range dim.Attributes {
		out[a.Name] = coerceValue(a.Kind, rec[a.Name])
	}
	return out
}

func coerceValue(kind dw.Kind, v any) any {
	switch kind {
	case dw.KindText:
		s, ok := dw.ToString(v)
		if !ok {
			return nil
		}
		s = strings.TrimSpace(s)
		if s == "" {
			return nil
		}
		return s
	case dw.KindFloat:
		if f, ok := dw.ToFloat64(v); ok {
			return f
		}
	case dw.KindInt:
		if i, ok := dw.ToInt64(v); ok {
			return i
		}
	case dw.KindBool:
		if b, ok := dw.ToBool(v); ok {
			return b
		}
	case dw.KindDate:
		if ts, ok := dw.ToTime(v); ok {
			return time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, time.UTC)
		}
	}
	return nil
}
