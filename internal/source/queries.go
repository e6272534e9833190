//-------------------------------------------------------------------------
//
// pgEdge Sales Warehouse Loader
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package source

// Source queries against the flattened AdventureWorks schema. Every column
// is aliased to the name the transformer expects. Dimension money columns
// are cast to FLOAT so all drivers return a plain number. Sales line
// prices are read as numeric text so fact measures stay exact.

const productsSQL = `
SELECT p.productid                      AS product_id,
       p.name                           AS product_name,
       p.productnumber                  AS product_number,
       pc.name                          AS category,
       ps.name                          AS subcategory,
       p.color                          AS color,
       p.size                           AS size,
       CAST(p.standardcost AS FLOAT)    AS standard_cost,
       CAST(p.listprice AS FLOAT)       AS list_price,
       p.discontinueddate               AS discontinued_date
FROM production_product p
LEFT JOIN production_productsubcategory ps
       ON p.productsubcategoryid = ps.productsubcategoryid
LEFT JOIN production_productcategory pc
       ON ps.productcategoryid = pc.productcategoryid
ORDER BY p.productid`

const customersSQL = `
SELECT c.customerid       AS customer_id,
       p.firstname        AS first_name,
       p.lastname         AS last_name,
       s.name             AS store_name,
       c.accountnumber    AS account_number,
       p.emailaddress     AS email,
       a.city             AS city,
       sp.name            AS state_province,
       cr.name            AS country,
       a.postalcode       AS postal_code
FROM sales_customer c
LEFT JOIN person_person p ON c.personid = p.businessentityid
LEFT JOIN sales_store s ON c.storeid = s.businessentityid
LEFT JOIN sales_customeraddress ca ON ca.customerid = c.customerid
LEFT JOIN person_address a ON a.addressid = ca.addressid
LEFT JOIN person_stateprovince sp ON sp.stateprovinceid = a.stateprovinceid
LEFT JOIN person_countryregion cr ON cr.countryregioncode = sp.countryregioncode
ORDER BY c.customerid, ca.addressid`

const salespeopleSQL = `
SELECT e.businessentityid AS salesperson_id,
       p.firstname        AS first_name,
       p.lastname         AS last_name,
       e.jobtitle         AS job_title,
       e.hiredate         AS hire_date
FROM humanresources_employee e
LEFT JOIN person_person p ON e.businessentityid = p.businessentityid
ORDER BY e.businessentityid`

const territoriesSQL = `
SELECT t.territoryid        AS territory_id,
       t.name               AS territory_name,
       t.countryregioncode  AS country_region_code
FROM sales_salesterritory t
ORDER BY t.territoryid`

const salesLinesSQL = `
SELECT d.salesorderdetailid              AS order_line_id,
       h.salesorderid                    AS order_id,
       h.orderdate                       AS order_date,
       h.duedate                         AS due_date,
       h.shipdate                        AS ship_date,
       h.status                          AS status,
       h.onlineorderflag                 AS online_order_flag,
       h.customerid                      AS customer_id,
       h.salespersonid                   AS salesperson_id,
       h.territoryid                     AS territory_id,
       d.productid                       AS product_id,
       d.orderqty                        AS order_qty,
       CAST(CAST(d.unitprice AS DECIMAL(19,4)) AS VARCHAR(40))         AS unit_price,
       CAST(CAST(d.unitpricediscount AS DECIMAL(19,4)) AS VARCHAR(40)) AS unit_price_discount
FROM sales_salesorderheader h
JOIN sales_salesorderdetail d ON h.salesorderid = d.salesorderid`

const salesLinesOrder = `
ORDER BY d.salesorderdetailid`
