//-------------------------------------------------------------------------
//
// pgEdge Sales Warehouse Loader
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package dw

import "fmt"

// UnknownKey is both the natural and the surrogate key of the reserved
// "unknown" member seeded in every dimension. Fact rows that reference a
// member the warehouse does not know point here.
const UnknownKey int64 = -1

// Audit columns maintained by the loader on sourced dimensions.
const (
	ColInferred  = "is_inferred"
	ColUpdatedAt = "updated_at"
)

// Kind is the warehouse type of a dimension attribute.
type Kind int

// Attribute kinds.
const (
	KindText Kind = iota
	KindFloat
	KindInt
	KindBool
	KindDate
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindFloat:
		return "float"
	case KindInt:
		return "int"
	case KindBool:
		return "bool"
	case KindDate:
		return "date"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Column describes one descriptive attribute.
type Column struct {
	Name string
	Kind Kind

	// Default replaces NULL source values. A nil Default keeps NULL.
	Default any
}

// Dimension describes a warehouse dimension table.
type Dimension struct {
	// Name is the short dimension name, e.g. "product".
	Name string

	// Label prefixes the names of inferred members, e.g. "Product #42".
	Label string

	Table        string
	NaturalKey   string
	SurrogateKey string

	// NameColumn receives the placeholder name of inferred members.
	NameColumn string

	Attributes []Column

	// Sourced dimensions carry is_inferred/updated_at and a seeded
	// unknown member. The date dimension is derived and does not.
	Sourced bool
}

// Columns returns the columns written by the loader, natural key first.
func (d Dimension) Columns() []string {
	cols := make([]string, 0, len(d.Attributes)+3)
	cols = append(cols, d.NaturalKey)
	for _, a := range d.Attributes {
		cols = append(cols, a.Name)
	}
	if d.Sourced {
		cols = append(cols, ColInferred, ColUpdatedAt)
	}
	return cols
}

const unknown = "Unknown"

// Product is the product dimension.
var Product = Dimension{
	Name:         "product",
	Label:        "Product",
	Table:        "dim_product",
	NaturalKey:   "product_id",
	SurrogateKey: "product_key",
	NameColumn:   "product_name",
	Sourced:      true,
	Attributes: []Column{
		{Name: "product_name", Kind: KindText, Default: unknown},
		{Name: "product_number", Kind: KindText, Default: unknown},
		{Name: "category", Kind: KindText, Default: unknown},
		{Name: "subcategory", Kind: KindText, Default: unknown},
		{Name: "color", Kind: KindText, Default: unknown},
		{Name: "size", Kind: KindText, Default: unknown},
		{Name: "standard_cost", Kind: KindFloat, Default: 0.0},
		{Name: "list_price", Kind: KindFloat, Default: 0.0},
		{Name: "discontinued", Kind: KindBool, Default: false},
	},
}

// Customer is the customer dimension.
var Customer = Dimension{
	Name:         "customer",
	Label:        "Customer",
	Table:        "dim_customer",
	NaturalKey:   "customer_id",
	SurrogateKey: "customer_key",
	NameColumn:   "customer_name",
	Sourced:      true,
	Attributes: []Column{
		{Name: "customer_name", Kind: KindText, Default: unknown},
		{Name: "account_number", Kind: KindText, Default: unknown},
		{Name: "email", Kind: KindText, Default: unknown},
		{Name: "city", Kind: KindText, Default: unknown},
		{Name: "state_province", Kind: KindText, Default: unknown},
		{Name: "country", Kind: KindText, Default: unknown},
		{Name: "postal_code", Kind: KindText, Default: unknown},
	},
}

// Salesperson is the employee/salesperson dimension.
var Salesperson = Dimension{
	Name:         "salesperson",
	Label:        "Salesperson",
	Table:        "dim_salesperson",
	NaturalKey:   "salesperson_id",
	SurrogateKey: "salesperson_key",
	NameColumn:   "salesperson_name",
	Sourced:      true,
	Attributes: []Column{
		{Name: "salesperson_name", Kind: KindText, Default: unknown},
		{Name: "job_title", Kind: KindText, Default: unknown},
		{Name: "hire_date", Kind: KindDate},
	},
}

// Territory is the sales territory dimension.
var Territory = Dimension{
	Name:         "territory",
	Label:        "Territory",
	Table:        "dim_territory",
	NaturalKey:   "territory_id",
	SurrogateKey: "territory_key",
	NameColumn:   "territory_name",
	Sourced:      true,
	Attributes: []Column{
		{Name: "territory_name", Kind: KindText, Default: unknown},
		{Name: "country_region_code", Kind: KindText, Default: unknown},
	},
}

// Order is the order header dimension, built from the sales lines.
var Order = Dimension{
	Name:         "order",
	Label:        "Order",
	Table:        "dim_order",
	NaturalKey:   "order_id",
	SurrogateKey: "order_key",
	Sourced:      true,
	Attributes: []Column{
		{Name: "order_date", Kind: KindDate},
		{Name: "due_date", Kind: KindDate},
		{Name: "ship_date", Kind: KindDate},
		{Name: "status", Kind: KindInt, Default: int64(0)},
		{Name: "online_order_flag", Kind: KindBool, Default: false},
	},
}

// Date is the calendar dimension. Its natural key is also its surrogate.
var Date = Dimension{
	Name:         "date",
	Label:        "Date",
	Table:        "dim_date",
	NaturalKey:   "date_key",
	SurrogateKey: "date_key",
	Attributes: []Column{
		{Name: "full_date", Kind: KindDate},
		{Name: "year", Kind: KindInt},
		{Name: "quarter", Kind: KindInt},
		{Name: "month", Kind: KindInt},
		{Name: "month_name", Kind: KindText},
		{Name: "day", Kind: KindInt},
		{Name: "weekday", Kind: KindInt},
		{Name: "day_name", Kind: KindText},
		{Name: "is_weekend", Kind: KindBool},
	},
}

// Dimensions returns every dimension in load order.
func Dimensions() []Dimension {
	return []Dimension{Product, Customer, Salesperson, Territory, Date, Order}
}

// SourcedDimensions returns the dimensions read from the source system.
func SourcedDimensions() []Dimension {
	return []Dimension{Product, Customer, Salesperson, Territory}
}

// Lookup returns the dimension with the given short name.
func Lookup(name string) (Dimension, error) {
	for _, d := range Dimensions() {
		if d.Name == name {
			return d, nil
		}
	}
	return Dimension{}, fmt.Errorf("unknown dimension: %s", name)
}
