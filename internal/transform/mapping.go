//-------------------------------------------------------------------------
//
// pgEdge Sales Warehouse Loader
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package transform

import (
	"strings"

	"github.com/pgEdge/pgedge-salesdw/internal/dw"
)

type mapper func(src dw.Record) dw.Record

// mapperFor returns the column mapping of a dimension. Columns already
// carry warehouse names; mappers derive the rest.
func mapperFor(dim dw.Dimension) mapper {
	switch dim.Name {
	case dw.Product.Name:
		return mapProduct
	case dw.Customer.Name:
		return mapCustomer
	case dw.Salesperson.Name:
		return mapSalesperson
	default:
		return func(src dw.Record) dw.Record { return src }
	}
}

func mapProduct(src dw.Record) dw.Record {
	out := src.Clone()
	if _, ok := src["discontinued"]; !ok {
		out["discontinued"] = !src.IsNull("discontinued_date")
	}
	return out
}

func mapCustomer(src dw.Record) dw.Record {
	out := src.Clone()
	if src.IsNull("customer_name") {
		name := fullName(src)
		if name == "" {
			name, _ = src.String("store_name")
		}
		out["customer_name"] = name
	}
	return out
}

func mapSalesperson(src dw.Record) dw.Record {
	out := src.Clone()
	if src.IsNull("salesperson_name") {
		out["salesperson_name"] = fullName(src)
	}
	return out
}

func fullName(src dw.Record) string {
	first, _ := src.String("first_name")
	last, _ := src.String("last_name")
	return strings.TrimSpace(strings.TrimSpace(first) + " " + strings.TrimSpace(last))
}
