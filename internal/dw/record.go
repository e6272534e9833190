//-------------------------------------------------------------------------
//
// pgEdge Sales Warehouse Loader
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package dw holds the warehouse model shared by every pipeline stage:
// records, dimension definitions and the error taxonomy.
package dw

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Record is one row keyed by warehouse column name. Missing keys and nil
// values both mean SQL NULL.
type Record map[string]any

// Clone returns a shallow copy of the record.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// IsNull reports whether the column is absent or nil.
func (r Record) IsNull(col string) bool {
	v, ok := r[col]
	return !ok || v == nil
}

// Int64 returns the column as an int64. ok is false for NULL or values
// that cannot be represented as an integer.
func (r Record) Int64(col string) (int64, bool) {
	return ToInt64(r[col])
}

// Float64 returns the column as a float64.
func (r Record) Float64(col string) (float64, bool) {
	return ToFloat64(r[col])
}

// Decimal returns the column as an exact decimal. Numeric text is parsed
// as written.
func (r Record) Decimal(col string) (decimal.Decimal, bool) {
	return ToDecimal(r[col])
}

// String returns the column as a string. NULL yields ("", false).
func (r Record) String(col string) (string, bool) {
	return ToString(r[col])
}

// Time returns the column as a time.Time.
func (r Record) Time(col string) (time.Time, bool) {
	return ToTime(r[col])
}

// Bool returns the column as a bool.
func (r Record) Bool(col string) (bool, bool) {
	return ToBool(r[col])
}

// ToInt64 coerces driver values to int64.
func ToInt64(v any) (int64, bool) {
	switch t := v.(type) {
	case nil:
		return 0, false
	case int64:
		return t, true
	case int:
		return int64(t), true
	case int32:
		return int64(t), true
	case int16:
		return int64(t), true
	case int8:
		return int64(t), true
	case uint8:
		return int64(t), true
	case uint16:
		return int64(t), true
	case uint32:
		return int64(t), true
	case float64:
		if t != math.Trunc(t) {
			return 0, false
		}
		return int64(t), true
	case float32:
		return ToInt64(float64(t))
	case bool:
		if t {
			return 1, true
		}
		return 0, true
	case string:
		i, err := strconv.ParseInt(strings.TrimSpace(t), 10, 64)
		if err != nil {
			return 0, false
		}
		return i, true
	case []byte:
		return ToInt64(string(t))
	default:
		return 0, false
	}
}

// ToFloat64 coerces driver values to float64.
func ToFloat64(v any) (float64, bool) {
	switch t := v.(type) {
	case nil:
		return 0, false
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int64:
		return float64(t), true
	case int:
		return float64(t), true
	case int32:
		return float64(t), true
	case int16:
		return float64(t), true
	case int8:
		return float64(t), true
	case uint8:
		return float64(t), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	case []byte:
		return ToFloat64(string(t))
	default:
		return 0, false
	}
}

// ToDecimal coerces driver values to decimal.Decimal.
func ToDecimal(v any) (decimal.Decimal, bool) {
	switch t := v.(type) {
	case nil:
		return decimal.Decimal{}, false
	case decimal.Decimal:
		return t, true
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(t))
		if err != nil {
			return decimal.Decimal{}, false
		}
		return d, true
	case []byte:
		return ToDecimal(string(t))
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return decimal.Decimal{}, false
		}
		return decimal.NewFromFloat(t), true
	case float32:
		return ToDecimal(float64(t))
	default:
		i, ok := ToInt64(v)
		if !ok {
			return decimal.Decimal{}, false
		}
		return decimal.NewFromInt(i), true
	}
}

// ToString coerces driver values to string.
func ToString(v any) (string, bool) {
	switch t := v.(type) {
	case nil:
		return "", false
	case string:
		return t, true
	case []byte:
		return string(t), true
	case time.Time:
		return t.Format(time.RFC3339), true
	default:
		return fmt.Sprint(t), true
	}
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999 -0700 MST",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// ToTime coerces driver values to time.Time. SQLite hands back dates as
// text, so several layouts are tried.
func ToTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case nil:
		return time.Time{}, false
	case time.Time:
		return t, true
	case string:
		s := strings.TrimSpace(t)
		for _, layout := range timeLayouts {
			if ts, err := time.Parse(layout, s); err == nil {
				return ts, true
			}
		}
		return time.Time{}, false
	case []byte:
		return ToTime(string(t))
	default:
		return time.Time{}, false
	}
}

// ToBool coerces driver values to bool. SQLite stores booleans as 0/1.
func ToBool(v any) (bool, bool) {
	switch t := v.(type) {
	case nil:
		return false, false
	case bool:
		return t, true
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(t))
		if err != nil {
			return false, false
		}
		return b, true
	case []byte:
		return ToBool(string(t))
	default:
		if i, ok := ToInt64(v); ok {
			return i != 0, true
		}
		return false, false
	}
}
