//-------------------------------------------------------------------------
//
// pgEdge Sales Warehouse Loader
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package datagen

import (
	"fmt"
	"time"
)

// SourceSchemaSQL creates a flattened AdventureWorks operational schema.
// The types are accepted by both PostgreSQL and SQLite. No foreign keys
// are declared so fixtures can hold dangling references.
var SourceSchemaSQL = []string{
	`CREATE TABLE IF NOT EXISTS production_productcategory (
    productcategoryid    INTEGER PRIMARY KEY,
    name                 VARCHAR(50) NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS production_productsubcategory (
    productsubcategoryid INTEGER PRIMARY KEY,
    productcategoryid    INTEGER NOT NULL,
    name                 VARCHAR(50) NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS production_product (
    productid            INTEGER PRIMARY KEY,
    name                 VARCHAR(50) NOT NULL,
    productnumber        VARCHAR(25) NOT NULL,
    color                VARCHAR(15),
    size                 VARCHAR(5),
    standardcost         NUMERIC(19,4),
    listprice            NUMERIC(19,4),
    productsubcategoryid INTEGER,
    discontinueddate     TIMESTAMP
)`,
	`CREATE TABLE IF NOT EXISTS person_person (
    businessentityid     INTEGER PRIMARY KEY,
    firstname            VARCHAR(50) NOT NULL,
    lastname             VARCHAR(50) NOT NULL,
    emailaddress         VARCHAR(50)
)`,
	`CREATE TABLE IF NOT EXISTS sales_store (
    businessentityid     INTEGER PRIMARY KEY,
    name                 VARCHAR(50) NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS person_countryregion (
    countryregioncode    VARCHAR(3) PRIMARY KEY,
    name                 VARCHAR(50) NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS person_stateprovince (
    stateprovinceid      INTEGER PRIMARY KEY,
    name                 VARCHAR(50) NOT NULL,
    countryregioncode    VARCHAR(3) NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS person_address (
    addressid            INTEGER PRIMARY KEY,
    city                 VARCHAR(30) NOT NULL,
    postalcode           VARCHAR(15) NOT NULL,
    stateprovinceid      INTEGER NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS sales_customer (
    customerid           INTEGER PRIMARY KEY,
    personid             INTEGER,
    storeid              INTEGER,
    accountnumber        VARCHAR(10)
)`,
	`CREATE TABLE IF NOT EXISTS sales_customeraddress (
    customerid           INTEGER NOT NULL,
    addressid            INTEGER NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS humanresources_employee (
    businessentityid     INTEGER PRIMARY KEY,
    jobtitle             VARCHAR(50),
    hiredate             TIMESTAMP
)`,
	`CREATE TABLE IF NOT EXISTS sales_salesterritory (
    territoryid          INTEGER PRIMARY KEY,
    name                 VARCHAR(50) NOT NULL,
    countryregioncode    VARCHAR(3) NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS sales_salesorderheader (
    salesorderid         INTEGER PRIMARY KEY,
    orderdate            TIMESTAMP,
    duedate              TIMESTAMP,
    shipdate             TIMESTAMP,
    status               INTEGER,
    onlineorderflag      BOOLEAN,
    customerid           INTEGER,
    salespersonid        INTEGER,
    territoryid          INTEGER
)`,
	`CREATE TABLE IF NOT EXISTS sales_salesorderdetail (
    salesorderdetailid   INTEGER PRIMARY KEY,
    salesorderid         INTEGER NOT NULL,
    productid            INTEGER,
    orderqty             INTEGER,
    unitprice            NUMERIC(19,4),
    unitpricediscount    NUMERIC(19,4)
)`,
}

// Table is a generated table ready for batch insert.
type Table struct {
	Name    string
	Columns []string
	Rows    [][]any
}

func (t *Table) add(values ...any) {
	t.Rows = append(t.Rows, values)
}

// Sizes controls how much source data is generated.
type Sizes struct {
	Products      int
	Customers     int
	Employees     int
	Territories   int
	Orders        int
	LinesPerOrder int

	// Orders are dated uniformly inside [OrderStart, OrderEnd).
	OrderStart time.Time
	OrderEnd   time.Time
}

// DefaultSizes returns a small dataset suitable for tests.
func DefaultSizes() Sizes {
	return Sizes{
		Products:      25,
		Customers:     40,
		Employees:     6,
		Territories:   5,
		Orders:        60,
		LinesPerOrder: 4,
		OrderStart:    time.Date(2003, 1, 1, 0, 0, 0, 0, time.UTC),
		OrderEnd:      time.Date(2004, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

var (
	categories = []string{"Bikes", "Components", "Clothing", "Accessories"}
	colors     = []string{"Black", "Red", "Silver", "Blue", "Yellow", "Multi"}
	bikeSizes  = []string{"S", "M", "L", "XL", "44", "48", "52", "58"}
	jobTitles  = []string{"Sales Representative", "North American Sales Manager",
		"European Sales Manager", "Pacific Sales Manager", "Vice President of Sales"}
	regions = []struct{ code, name string }{
		{"US", "United States"}, {"CA", "Canada"}, {"FR", "France"},
		{"DE", "Germany"}, {"AU", "Australia"}, {"GB", "United Kingdom"},
	}
)

// GenerateSource builds a complete operational dataset. Every foreign
// reference points at a generated row.
func GenerateSource(f *Faker, sizes Sizes) []*Table {
	category := &Table{Name: "production_productcategory",
		Columns: []string{"productcategoryid", "name"}}
	subcategory := &Table{Name: "production_productsubcategory",
		Columns: []string{"productsubcategoryid", "productcategoryid", "name"}}
	for i, name := range categories {
		category.add(i+1, name)
		for j := 0; j < 3; j++ {
			subcategory.add(i*3+j+1, i+1, f.Word()+" "+name)
		}
	}

	product := &Table{Name: "production_product", Columns: []string{
		"productid", "name", "productnumber", "color", "size", "standardcost",
		"listprice", "productsubcategoryid", "discontinueddate"}}
	for i := 1; i <= sizes.Products; i++ {
		cost := round2(f.Float64(5, 1500))
		list := round2(cost * f.Float64(1.2, 2.5))

		var color, size, discontinued any
		if f.Int(0, 4) > 0 {
			color = Choose(f, colors)
		}
		if f.Int(0, 2) == 0 {
			size = Choose(f, bikeSizes)
		}
		if f.Int(0, 9) == 0 {
			discontinued = f.DateRange(sizes.OrderStart, sizes.OrderEnd)
		}
		product.add(i, fmt.Sprintf("%s %d", f.ProductName(), i),
			fmt.Sprintf("%s-%04d", f.Letters(2), i), color, size, cost, list,
			f.Int(1, len(categories)*3), discontinued)
	}

	country := &Table{Name: "person_countryregion",
		Columns: []string{"countryregioncode", "name"}}
	state := &Table{Name: "person_stateprovince",
		Columns: []string{"stateprovinceid", "name", "countryregioncode"}}
	for i, r := range regions {
		country.add(r.code, r.name)
		state.add(i+1, f.State(), r.code)
	}

	territory := &Table{Name: "sales_salesterritory",
		Columns: []string{"territoryid", "name", "countryregioncode"}}
	for i := 1; i <= sizes.Territories; i++ {
		r := regions[(i-1)%len(regions)]
		territory.add(i, fmt.Sprintf("%s %d", r.name, i), r.code)
	}

	person := &Table{Name: "person_person",
		Columns: []string{"businessentityid", "firstname", "lastname", "emailaddress"}}
	employee := &Table{Name: "humanresources_employee",
		Columns: []string{"businessentityid", "jobtitle", "hiredate"}}
	for i := 1; i <= sizes.Employees; i++ {
		first, last := f.FirstName(), f.LastName()
		person.add(i, first, last, f.Email())
		employee.add(i, Choose(f, jobTitles),
			f.DateRange(sizes.OrderStart.AddDate(-8, 0, 0), sizes.OrderStart))
	}

	store := &Table{Name: "sales_store", Columns: []string{"businessentityid", "name"}}
	address := &Table{Name: "person_address",
		Columns: []string{"addressid", "city", "postalcode", "stateprovinceid"}}
	customer := &Table{Name: "sales_customer",
		Columns: []string{"customerid", "personid", "storeid", "accountnumber"}}
	custAddr := &Table{Name: "sales_customeraddress",
		Columns: []string{"customerid", "addressid"}}
	nextEntity := sizes.Employees + 1
	for i := 1; i <= sizes.Customers; i++ {
		entity := nextEntity
		nextEntity++

		var personID, storeID any
		if f.Int(0, 3) == 0 {
			store.add(entity, f.Company())
			storeID = entity
		} else {
			person.add(entity, f.FirstName(), f.LastName(), f.Email())
			personID = entity
		}
		customer.add(i, personID, storeID, fmt.Sprintf("AW%08d", i))

		address.add(i, f.City(), f.Zip(), f.Int(1, len(regions)))
		custAddr.add(i, i)
	}

	header := &Table{Name: "sales_salesorderheader", Columns: []string{
		"salesorderid", "orderdate", "duedate", "shipdate", "status",
		"onlineorderflag", "customerid", "salespersonid", "territoryid"}}
	detail := &Table{Name: "sales_salesorderdetail", Columns: []string{
		"salesorderdetailid", "salesorderid", "productid", "orderqty",
		"unitprice", "unitpricediscount"}}
	line := 1
	for i := 1; i <= sizes.Orders; i++ {
		orderID := 43658 + i
		orderDate := truncateDay(f.DateRange(sizes.OrderStart, sizes.OrderEnd.Add(-time.Nanosecond)))
		online := f.Bool()

		var salesperson any
		if !online && sizes.Employees > 0 {
			salesperson = f.Int(1, sizes.Employees)
		}
		header.add(orderID, orderDate, orderDate.AddDate(0, 0, 12), orderDate.AddDate(0, 0, 7),
			5, online, f.Int(1, sizes.Customers), salesperson, f.Int(1, sizes.Territories))

		lines := f.Int(1, max(1, sizes.LinesPerOrder))
		for j := 0; j < lines; j++ {
			discount := 0.0
			if f.Int(0, 4) == 0 {
				discount = ChooseWeighted(f, []float64{0.02, 0.05, 0.1}, []int{5, 3, 1})
			}
			detail.add(line, orderID, f.Int(1, sizes.Products), f.Int(1, 10),
				round2(f.Float64(2, 3500)), discount)
			line++
		}
	}

	return []*Table{category, subcategory, product, country, state, territory,
		person, employee, store, address, customer, custAddr, header, detail}
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func round2(v float64) float64 {
	return float64(int64(v*100+0.5)) / 100
}
