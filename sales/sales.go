// Copyright 2019 eBay Inc.
// Primary authors: Simon Fell, Diego Ongaro,
//                  Raymond Kroeker, and Sathish Kandasamy.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
// https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package sales is the canned sales-domain definition: the class hierarchy,
// properties, reasoning rules and record mapping for flat sales exports
// (one row per sale with embedded customer, product and rep columns), plus
// the standard insight queries over the loaded graph. It exists so hosts
// and tools can stand up the whole domain with one Spec; nothing in it is
// special-cased by the engine.
package sales

import (
	"fmt"

	"github.com/ebay/kanaga/config"
	"github.com/ebay/kanaga/query"
	"github.com/ebay/kanaga/query/parser"
)

// Spec returns the sales-domain configuration. Build it once at startup.
func Spec() *config.Spec {
	return &config.Spec{
		Classes: []config.ClassSpec{
			{Name: "Sale"},
			{Name: "Customer"},
			{Name: "EnterpriseCustomer", Parent: "Customer"},
			{Name: "MidMarketCustomer", Parent: "Customer"},
			{Name: "SMBCustomer", Parent: "Customer"},
			{Name: "Product"},
			{Name: "ElectronicsProduct", Parent: "Product"},
			{Name: "FurnitureProduct", Parent: "Product"},
			{Name: "SalesRepresentative"},
			{Name: "Region"},
			{Name: "Category"},
			{Name: "Industry"},
			// Reasoning concepts, derived by the rules below.
			{Name: "HighValueCustomer", Parent: "Customer"},
			{Name: "FrequentBuyer", Parent: "Customer"},
			{Name: "PremiumProduct", Parent: "Product"},
			{Name: "BudgetProduct", Parent: "Product"},
			{Name: "ExperiencedRep", Parent: "SalesRepresentative"},
		},
		Properties: []config.PropertySpec{
			{Name: "soldTo", Domain: "Sale", Range: "entity:Customer"},
			{Name: "soldBy", Domain: "Sale", Range: "entity:SalesRepresentative"},
			{Name: "productSold", Domain: "Sale", Range: "entity:Product"},
			{Name: "locatedIn", Domain: "Customer", Range: "entity:Region"},
			{Name: "operatesIn", Domain: "SalesRepresentative", Range: "entity:Region"},
			{Name: "belongsToCategory", Domain: "Product", Range: "entity:Category"},
			{Name: "belongsToIndustry", Domain: "Customer", Range: "entity:Industry"},

			{Name: "saleDate", Domain: "Sale", Range: "date"},
			{Name: "quantity", Domain: "Sale", Range: "int"},
			{Name: "grossRevenue", Domain: "Sale", Range: "float"},
			{Name: "netRevenue", Domain: "Sale", Range: "float"},
			{Name: "discountPercentage", Domain: "Sale", Range: "float"},
			{Name: "status", Domain: "Sale", Range: "string"},

			{Name: "customerName", Domain: "Customer", Range: "string"},
			{Name: "customerType", Domain: "Customer", Range: "string"},
			{Name: "productName", Domain: "Product", Range: "string"},
			{Name: "unitPrice", Domain: "Product", Range: "float"},
			{Name: "repName", Domain: "SalesRepresentative", Range: "string"},
			{Name: "experienceYears", Domain: "SalesRepresentative", Range: "int"},
		},
		Rules: []config.RuleSpec{
			// Customer with average deal size > $5000.
			{Name: "HighValueCustomer", Source: "netRevenue", GroupBy: "soldTo",
				Aggregate: "average", Comparator: "gt", Threshold: 5000,
				Class: "HighValueCustomer"},
			// Customer with many purchases.
			{Name: "FrequentBuyer", Source: "netRevenue", GroupBy: "soldTo",
				Aggregate: "count", Comparator: "gt", Threshold: 10,
				Class: "FrequentBuyer"},
			// Product price bands.
			{Name: "PremiumProduct", Source: "unitPrice",
				Aggregate: "average", Comparator: "gt", Threshold: 400,
				Class: "PremiumProduct"},
			{Name: "BudgetProduct", Source: "unitPrice",
				Aggregate: "average", Comparator: "lt", Threshold: 100,
				Class: "BudgetProduct"},
			// Sales rep with > 5 years experience.
			{Name: "ExperiencedRep", Source: "experienceYears",
				Aggregate: "max", Comparator: "gt", Threshold: 5,
				Class: "ExperiencedRep"},
		},
		Mapping: &config.MappingSpec{
			TransactionClass: "Sale",
			Key:              "sale_id",
			Dimensions: []config.DimensionSpec{
				{Class: "Customer", Key: "customer_id", Predicate: "soldTo",
					Fields: []config.FieldSpec{
						{Column: "customer_name", Predicate: "customerName"},
						{Column: "customer_type", Predicate: "customerType"},
					},
					References: []config.ReferenceSpec{
						{Class: "Region", Key: "customer_region", Predicate: "locatedIn"},
						{Class: "Industry", Key: "customer_industry", Predicate: "belongsToIndustry"},
					}},
				{Class: "Product", Key: "product_id", Predicate: "productSold",
					Fields: []config.FieldSpec{
						{Column: "product_name", Predicate: "productName"},
						{Column: "unit_price", Predicate: "unitPrice"},
					},
					References: []config.ReferenceSpec{
						{Class: "Category", Key: "product_category", Predicate: "belongsToCategory"},
					}},
				// Reps are assigned to the customer's region, so the row's
				// customer_region column is also the rep's territory.
				{Class: "SalesRepresentative", Key: "sales_rep_id", Predicate: "soldBy",
					Fields: []config.FieldSpec{
						{Column: "sales_rep_name", Predicate: "repName"},
						{Column: "sales_rep_experience", Predicate: "experienceYears"},
					},
					References: []config.ReferenceSpec{
						{Class: "Region", Key: "customer_region", Predicate: "operatesIn"},
					}},
			},
			Fields: []config.FieldSpec{
				{Column: "date", Predicate: "saleDate"},
				{Column: "quantity", Predicate: "quantity"},
				{Column: "gross_revenue", Predicate: "grossRevenue"},
				{Column: "net_revenue", Predicate: "netRevenue"},
				{Column: "discount_percentage", Predicate: "discountPercentage"},
				{Column: "status", Predicate: "status"},
			},
		},
	}
}

// completedSales is the pattern prefix shared by the insight queries: only
// completed sales count toward revenue.
const completedSales = `?sale <netRevenue> ?revenue
?sale <status> ?status
?status <eq> "Completed"
`

func mustParse(text string) *query.Query {
	q, err := parser.Parse(text)
	if err != nil {
		panic(fmt.Sprintf("sales: bad insight query: %v", err))
	}
	return q
}

func sum(of, as string) *query.Aggregate {
	return &query.Aggregate{Func: query.AggSum,
		Of: &query.Variable{Name: of}, As: &query.Variable{Name: as}}
}

func avg(of, as string) *query.Aggregate {
	return &query.Aggregate{Func: query.AggAverage,
		Of: &query.Variable{Name: of}, As: &query.Variable{Name: as}}
}

func count(as string) *query.Aggregate {
	return &query.Aggregate{Func: query.AggCount, As: &query.Variable{Name: as}}
}

func descBy(name string) query.OrderCond {
	return query.OrderCond{On: &query.Variable{Name: name}}
}

// RevenueByRegion totals completed-sale revenue per customer region,
// biggest first. Columns: region, totalRevenue, saleCount.
func RevenueByRegion() *query.Query {
	q := mustParse(completedSales + `?sale <soldTo> ?customer
?customer <locatedIn> ?region`)
	region := &query.Variable{Name: "region"}
	q.Select = []query.SelectItem{region,
		sum("revenue", "totalRevenue"), count("saleCount")}
	q.GroupBy = []*query.Variable{region}
	q.OrderBy = []query.OrderCond{descBy("totalRevenue")}
	return q
}

// TopProducts ranks products by completed-sale revenue. Columns: product,
// totalRevenue, unitsSold.
func TopProducts(limit uint64) *query.Query {
	q := mustParse(completedSales + `?sale <productSold> ?product
?sale <quantity> ?qty`)
	product := &query.Variable{Name: "product"}
	q.Select = []query.SelectItem{product,
		sum("revenue", "totalRevenue"), sum("qty", "unitsSold")}
	q.GroupBy = []*query.Variable{product}
	q.OrderBy = []query.OrderCond{descBy("totalRevenue")}
	q.Limit = &limit
	return q
}

// RevenueByCustomerType breaks revenue down by the customer's business
// size. Columns: type, totalRevenue, avgRevenue.
func RevenueByCustomerType() *query.Query {
	q := mustParse(completedSales + `?sale <soldTo> ?customer
?customer <customerType> ?type`)
	typ := &query.Variable{Name: "type"}
	q.Select = []query.SelectItem{typ,
		sum("revenue", "totalRevenue"), avg("revenue", "avgRevenue")}
	q.GroupBy = []*query.Variable{typ}
	q.OrderBy = []query.OrderCond{descBy("totalRevenue")}
	return q
}

// RepEffectiveness relates rep experience and territory to deal size, best
// average deal first. Columns: rep, experience, region, salesCount,
// totalRevenue, avgDeal.
func RepEffectiveness() *query.Query {
	q := mustParse(completedSales + `?sale <soldBy> ?rep
?rep <experienceYears> ?experience
?rep <operatesIn> ?region`)
	rep := &query.Variable{Name: "rep"}
	experience := &query.Variable{Name: "experience"}
	region := &query.Variable{Name: "region"}
	q.Select = []query.SelectItem{rep, experience, region, count("salesCount"),
		sum("revenue", "totalRevenue"), avg("revenue", "avgDeal")}
	q.GroupBy = []*query.Variable{rep, experience, region}
	q.OrderBy = []query.OrderCond{descBy("avgDeal")}
	return q
}

// DiscountPatterns reports how discounting relates to deal size per customer
// type, over completed sales that actually carried a discount. Columns:
// type, avgDiscount, avgRevenue, salesCount.
func DiscountPatterns() *query.Query {
	q := mustParse(completedSales + `?sale <soldTo> ?customer
?customer <customerType> ?type
?sale <discountPercentage> ?discount
?discount <gt> 0`)
	typ := &query.Variable{Name: "type"}
	q.Select = []query.SelectItem{typ, avg("discount", "avgDiscount"),
		avg("revenue", "avgRevenue"), count("salesCount")}
	q.GroupBy = []*query.Variable{typ}
	return q
}

// Classified lists the entities carrying a reasoning class, e.g.
// HighValueCustomer. Column: entity.
func Classified(class string) *query.Query {
	return mustParse(fmt.Sprintf("?entity <InstanceOf> <%s>", class))
}
