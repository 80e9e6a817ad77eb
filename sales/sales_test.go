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

package sales

import (
	"testing"

	"github.com/ebay/kanaga/facts"
	"github.com/ebay/kanaga/infer"
	"github.com/ebay/kanaga/load"
	"github.com/ebay/kanaga/query/exec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func saleRow(id, date, custID, custName, custType, region, industry,
	prodID, prodName, category, price, qty, gross, discount, net,
	repID, repName, repExp, status string) load.Row {
	return load.Row{
		"sale_id": id, "date": date,
		"customer_id": custID, "customer_name": custName,
		"customer_type": custType, "customer_region": region,
		"customer_industry": industry,
		"product_id":        prodID, "product_name": prodName,
		"product_category": category, "unit_price": price,
		"quantity": qty, "gross_revenue": gross,
		"discount_percentage": discount, "net_revenue": net,
		"sales_rep_id": repID, "sales_rep_name": repName,
		"sales_rep_experience": repExp, "status": status,
	}
}

func testRows() []load.Row {
	return []load.Row{
		saleRow("S0001", "2024-01-10", "C001", "Acme", "Enterprise", "North America", "Technology",
			"P001", "Laptop Pro", "Electronics", "1200", "10", "12000", "0", "12000",
			"R001", "Alice Chen", "8", "Completed"),
		saleRow("S0002", "2024-02-02", "C001", "Acme", "Enterprise", "North America", "Technology",
			"P001", "Laptop Pro", "Electronics", "1200", "5", "6000", "0", "6000",
			"R001", "Alice Chen", "8", "Completed"),
		saleRow("S0003", "2024-02-20", "C002", "Globex", "SMB", "EMEA", "Retail",
			"P002", "Standing Desk", "Furniture", "80", "6", "533.33", "10", "480",
			"R002", "Bob Diaz", "2", "Completed"),
		saleRow("S0004", "2024-03-01", "C002", "Globex", "SMB", "EMEA", "Retail",
			"P001", "Laptop Pro", "Electronics", "1200", "1", "1500", "20", "1200",
			"R002", "Bob Diaz", "2", "Cancelled"),
	}
}

// loadedStore builds the domain, loads the fixture rows, and runs the
// reasoning rules, mirroring the startup sequence of a host application.
func loadedStore(t *testing.T) *facts.Store {
	t.Helper()
	sys, err := Spec().Build()
	require.NoError(t, err)
	store := facts.NewStore(sys.Registry)
	report, err := load.Load(store, sys.Mapping, testRows())
	require.NoError(t, err)
	require.Empty(t, report.Skipped)
	require.Equal(t, 4, report.RowsLoaded)
	_, err = infer.Run(store, sys.Rules)
	require.NoError(t, err)
	return store
}

func TestReasoningRules(t *testing.T) {
	store := loadedStore(t)
	classified := func(class string) []string {
		rs, err := exec.Evaluate(store, Classified(class))
		require.NoError(t, err)
		var out []string
		for i := 0; i < rs.NumRows(); i++ {
			out = append(out, store.ExternalID(rs.Get(i, "entity").ValKID()))
		}
		return out
	}
	// Acme averages $9000 a deal; Globex's completed average is $480.
	assert.Equal(t, []string{"C001"}, classified("HighValueCustomer"))
	// Nobody has more than 10 purchases in the fixture.
	assert.Empty(t, classified("FrequentBuyer"))
	assert.Equal(t, []string{"P001"}, classified("PremiumProduct"))
	assert.Equal(t, []string{"P002"}, classified("BudgetProduct"))
	assert.Equal(t, []string{"R001"}, classified("ExperiencedRep"))
}

func TestRevenueByRegion(t *testing.T) {
	store := loadedStore(t)
	rs, err := exec.Evaluate(store, RevenueByRegion())
	require.NoError(t, err)
	require.Equal(t, 2, rs.NumRows())
	// The cancelled sale contributes nothing.
	assert.Equal(t, "North America", store.ExternalID(rs.Get(0, "region").ValKID()))
	assert.Equal(t, 18000.0, rs.Get(0, "totalRevenue").ValFloat64())
	assert.Equal(t, int64(2), rs.Get(0, "saleCount").ValInt64())
	assert.Equal(t, "EMEA", store.ExternalID(rs.Get(1, "region").ValKID()))
	assert.Equal(t, 480.0, rs.Get(1, "totalRevenue").ValFloat64())
}

func TestTopProducts(t *testing.T) {
	store := loadedStore(t)
	rs, err := exec.Evaluate(store, TopProducts(1))
	require.NoError(t, err)
	require.Equal(t, 1, rs.NumRows())
	assert.Equal(t, "P001", store.ExternalID(rs.Get(0, "product").ValKID()))
	assert.Equal(t, 18000.0, rs.Get(0, "totalRevenue").ValFloat64())
	assert.Equal(t, 15.0, rs.Get(0, "unitsSold").ValFloat64())
}

func TestRevenueByCustomerType(t *testing.T) {
	store := loadedStore(t)
	rs, err := exec.Evaluate(store, RevenueByCustomerType())
	require.NoError(t, err)
	require.Equal(t, 2, rs.NumRows())
	assert.Equal(t, "Enterprise", rs.Get(0, "type").ValString())
	assert.Equal(t, 18000.0, rs.Get(0, "totalRevenue").ValFloat64())
	assert.Equal(t, 9000.0, rs.Get(0, "avgRevenue").ValFloat64())
	assert.Equal(t, "SMB", rs.Get(1, "type").ValString())
}

func TestRepEffectiveness(t *testing.T) {
	store := loadedStore(t)
	rs, err := exec.Evaluate(store, RepEffectiveness())
	require.NoError(t, err)
	require.Equal(t, 2, rs.NumRows())
	assert.Equal(t, "R001", store.ExternalID(rs.Get(0, "rep").ValKID()))
	assert.Equal(t, int64(8), rs.Get(0, "experience").ValInt64())
	assert.Equal(t, "North America", store.ExternalID(rs.Get(0, "region").ValKID()))
	assert.Equal(t, int64(2), rs.Get(0, "salesCount").ValInt64())
	assert.Equal(t, 9000.0, rs.Get(0, "avgDeal").ValFloat64())
	assert.Equal(t, "EMEA", store.ExternalID(rs.Get(1, "region").ValKID()))
}

func TestDiscountPatterns(t *testing.T) {
	store := loadedStore(t)
	rs, err := exec.Evaluate(store, DiscountPatterns())
	require.NoError(t, err)
	// Acme's sales carry no discount and the discounted Globex sale S0004
	// was cancelled, so only S0003 qualifies.
	require.Equal(t, 1, rs.NumRows())
	assert.Equal(t, "SMB", rs.Get(0, "type").ValString())
	assert.Equal(t, 10.0, rs.Get(0, "avgDiscount").ValFloat64())
	assert.Equal(t, 480.0, rs.Get(0, "avgRevenue").ValFloat64())
	assert.Equal(t, int64(1), rs.Get(0, "salesCount").ValInt64())
}
