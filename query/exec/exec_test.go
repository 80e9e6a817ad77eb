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

package exec

import (
	"testing"

	"github.com/ebay/kanaga/facts"
	"github.com/ebay/kanaga/query"
	"github.com/ebay/kanaga/query/parser"
	"github.com/ebay/kanaga/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// salesGraph builds the standard test fixture: 2 regions, 2 customers,
// 3 sales. Acme (North America) has sales of 100 and 500, Globex (EMEA)
// has one sale of 400. Sale s1 additionally carries a discount of 10.
func salesGraph(t *testing.T) *facts.Store {
	t.Helper()
	r := schema.NewRegistry()
	_, err := r.DefineClass("Sale", "")
	require.NoError(t, err)
	customer, err := r.DefineClass("Customer", "")
	require.NoError(t, err)
	region, err := r.DefineClass("Region", "")
	require.NoError(t, err)

	define := func(name, domain string, rng schema.Range) {
		_, err := r.DefineProperty(name, domain, rng, schema.SingleValued)
		require.NoError(t, err)
	}
	define("soldTo", "Sale", schema.Range{Kind: schema.RangeEntity, Class: customer})
	define("locatedIn", "Customer", schema.Range{Kind: schema.RangeEntity, Class: region})
	define("netRevenue", "Sale", schema.Range{Kind: schema.RangeFloat})
	define("discount", "Sale", schema.Range{Kind: schema.RangeFloat})

	store := facts.NewStore(r)
	newEntity := func(class uint64, extID string) uint64 {
		kid, err := store.NewEntity(class, extID)
		require.NoError(t, err)
		return kid
	}
	assertFact := func(s uint64, p string, o facts.KGObject) {
		_, err := store.Assert(s, r.PropertyNamed(p).KID, o)
		require.NoError(t, err)
	}
	na := newEntity(region, "North America")
	emea := newEntity(region, "EMEA")
	acme := newEntity(customer, "Acme")
	globex := newEntity(customer, "Globex")
	assertFact(acme, "locatedIn", facts.AKID(na))
	assertFact(globex, "locatedIn", facts.AKID(emea))

	sale := r.ClassNamed("Sale").KID
	s1 := newEntity(sale, "s1")
	s2 := newEntity(sale, "s2")
	s3 := newEntity(sale, "s3")
	assertFact(s1, "soldTo", facts.AKID(acme))
	assertFact(s1, "netRevenue", facts.AFloat64(100))
	assertFact(s1, "discount", facts.AFloat64(10))
	assertFact(s2, "soldTo", facts.AKID(acme))
	assertFact(s2, "netRevenue", facts.AFloat64(500))
	assertFact(s3, "soldTo", facts.AKID(globex))
	assertFact(s3, "netRevenue", facts.AFloat64(400))
	return store
}

func kid(t *testing.T, store *facts.Store, extID string) uint64 {
	t.Helper()
	k, ok := store.ResolveExternalID(extID)
	require.True(t, ok, "no entity with external ID %q", extID)
	return k
}

func parseQuery(t *testing.T, text string) *query.Query {
	t.Helper()
	q, err := parser.Parse(text)
	require.NoError(t, err)
	return q
}

func u64(v uint64) *uint64 { return &v }

func TestJoinTwoPatterns(t *testing.T) {
	store := salesGraph(t)
	q := parseQuery(t, "?s <soldTo> ?c\n?c <locatedIn> ?r")
	rs, err := Evaluate(store, q)
	require.NoError(t, err)
	assert.Equal(t, []string{"s", "c", "r"}, rs.Columns)
	require.Equal(t, 3, rs.NumRows())

	// Each sale ends up in its customer's region.
	na, emea := kid(t, store, "North America"), kid(t, store, "EMEA")
	want := map[uint64]uint64{
		kid(t, store, "s1"): na,
		kid(t, store, "s2"): na,
		kid(t, store, "s3"): emea,
	}
	for i := 0; i < rs.NumRows(); i++ {
		s := rs.Get(i, "s").ValKID()
		assert.Equal(t, want[s], rs.Get(i, "r").ValKID(), "sale %d", s)
	}
}

func TestBoundEntity(t *testing.T) {
	store := salesGraph(t)
	rs, err := Evaluate(store, parseQuery(t, "?s <soldTo> <Acme>"))
	require.NoError(t, err)
	assert.Equal(t, 2, rs.NumRows())
}

func TestInstanceOfPattern(t *testing.T) {
	store := salesGraph(t)
	rs, err := Evaluate(store, parseQuery(t, "?c <InstanceOf> <Customer>"))
	require.NoError(t, err)
	require.Equal(t, 2, rs.NumRows())
	got := []uint64{rs.Get(0, "c").ValKID(), rs.Get(1, "c").ValKID()}
	assert.ElementsMatch(t, []uint64{kid(t, store, "Acme"), kid(t, store, "Globex")}, got)
}

func TestUnknownExternalIDMatchesNothing(t *testing.T) {
	store := salesGraph(t)
	rs, err := Evaluate(store, parseQuery(t, "?s <soldTo> <Nonesuch>"))
	require.NoError(t, err)
	assert.Equal(t, 0, rs.NumRows())
}

func TestFilterLiteral(t *testing.T) {
	store := salesGraph(t)
	rs, err := Evaluate(store, parseQuery(t, "?s <netRevenue> ?rev\n?rev <gt> 150.0"))
	require.NoError(t, err)
	assert.Equal(t, 2, rs.NumRows())
}

func TestFilterIntAgainstFloat(t *testing.T) {
	// An int literal filters a float column numerically.
	store := salesGraph(t)
	rs, err := Evaluate(store, parseQuery(t, "?s <netRevenue> ?rev\n?rev <gte> 400"))
	require.NoError(t, err)
	assert.Equal(t, 2, rs.NumRows())
}

func TestFilterVariableRHS(t *testing.T) {
	store := salesGraph(t)
	q := parseQuery(t, "?s <netRevenue> ?rev\n?s <discount> ?d\n?rev <gt> ?d")
	rs, err := Evaluate(store, q)
	require.NoError(t, err)
	require.Equal(t, 1, rs.NumRows())
	assert.Equal(t, kid(t, store, "s1"), rs.Get(0, "s").ValKID())
}

func TestOptionalMatch(t *testing.T) {
	store := salesGraph(t)
	q := parseQuery(t, "?s <netRevenue> ?rev\n?s <discount>? ?d")
	rs, err := Evaluate(store, q)
	require.NoError(t, err)
	require.Equal(t, 3, rs.NumRows())
	unbound := 0
	for i := 0; i < rs.NumRows(); i++ {
		if rs.Get(i, "d").ValueType() == facts.KtNil {
			unbound++
		} else {
			assert.Equal(t, kid(t, store, "s1"), rs.Get(i, "s").ValKID())
		}
	}
	assert.Equal(t, 2, unbound)
}

func TestOptionalUnboundFailsFilter(t *testing.T) {
	store := salesGraph(t)
	q := parseQuery(t, "?s <netRevenue> ?rev\n?s <discount>? ?d\n?d <lt> 100.0")
	rs, err := Evaluate(store, q)
	require.NoError(t, err)
	// Only s1 has a discount at all; unbound ?d never passes a filter.
	assert.Equal(t, 1, rs.NumRows())
}

func TestSelectSubset(t *testing.T) {
	store := salesGraph(t)
	q := parseQuery(t, "?s <soldTo> ?c")
	q.Select = []query.SelectItem{&query.Variable{Name: "c"}}
	rs, err := Evaluate(store, q)
	require.NoError(t, err)
	assert.Equal(t, []string{"c"}, rs.Columns)
	assert.Equal(t, 3, rs.NumRows())
}

func sumByCustomer(t *testing.T) *query.Query {
	t.Helper()
	q := parseQuery(t, "?s <soldTo> ?c\n?s <netRevenue> ?rev")
	c := &query.Variable{Name: "c"}
	q.Select = []query.SelectItem{
		c,
		&query.Aggregate{Func: query.AggSum, Of: &query.Variable{Name: "rev"},
			As: &query.Variable{Name: "total"}},
	}
	q.GroupBy = []*query.Variable{c}
	return q
}

func TestSumGroupBy(t *testing.T) {
	store := salesGraph(t)
	rs, err := Evaluate(store, sumByCustomer(t))
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "total"}, rs.Columns)
	require.Equal(t, 2, rs.NumRows())
	totals := make(map[uint64]float64)
	for i := 0; i < rs.NumRows(); i++ {
		totals[rs.Get(i, "c").ValKID()] = rs.Get(i, "total").ValFloat64()
	}
	assert.Equal(t, 600.0, totals[kid(t, store, "Acme")])
	assert.Equal(t, 400.0, totals[kid(t, store, "Globex")])
}

func TestTopCustomer(t *testing.T) {
	store := salesGraph(t)
	q := sumByCustomer(t)
	q.OrderBy = []query.OrderCond{{On: &query.Variable{Name: "total"}}}
	q.Limit = u64(1)
	rs, err := Evaluate(store, q)
	require.NoError(t, err)
	require.Equal(t, 1, rs.NumRows())
	assert.Equal(t, kid(t, store, "Acme"), rs.Get(0, "c").ValKID())
	assert.Equal(t, 600.0, rs.Get(0, "total").ValFloat64())
}

func TestOrderByTieBreak(t *testing.T) {
	// Three customers with totals 600, 600, 400. The DESC sort is stable,
	// so the tied groups keep their first-encountered (KID) order.
	store := salesGraph(t)
	r := store.Registry()
	customer := r.ClassNamed("Customer").KID
	sale := r.ClassNamed("Sale").KID
	initech, err := store.NewEntity(customer, "Initech")
	require.NoError(t, err)
	s4, err := store.NewEntity(sale, "s4")
	require.NoError(t, err)
	_, err = store.Assert(s4, r.PropertyNamed("soldTo").KID, facts.AKID(initech))
	require.NoError(t, err)
	_, err = store.Assert(s4, r.PropertyNamed("netRevenue").KID, facts.AFloat64(600))
	require.NoError(t, err)

	q := sumByCustomer(t)
	q.OrderBy = []query.OrderCond{{On: &query.Variable{Name: "total"}}}
	q.Limit = u64(1)
	rs, err := Evaluate(store, q)
	require.NoError(t, err)
	require.Equal(t, 1, rs.NumRows())
	// Acme was created before Initech, so it wins the 600/600 tie.
	assert.Equal(t, kid(t, store, "Acme"), rs.Get(0, "c").ValKID())
}

func TestOrderAscending(t *testing.T) {
	store := salesGraph(t)
	q := parseQuery(t, "?s <netRevenue> ?rev")
	q.OrderBy = []query.OrderCond{{On: &query.Variable{Name: "rev"}, Direction: query.SortAsc}}
	rs, err := Evaluate(store, q)
	require.NoError(t, err)
	require.Equal(t, 3, rs.NumRows())
	assert.Equal(t, 100.0, rs.Get(0, "rev").ValFloat64())
	assert.Equal(t, 500.0, rs.Get(2, "rev").ValFloat64())
}

func TestOrderByUnselectedVariable(t *testing.T) {
	store := salesGraph(t)
	q := parseQuery(t, "?s <netRevenue> ?rev")
	q.Select = []query.SelectItem{&query.Variable{Name: "s"}}
	q.OrderBy = []query.OrderCond{{On: &query.Variable{Name: "rev"}}}
	rs, err := Evaluate(store, q)
	require.NoError(t, err)
	require.Equal(t, 3, rs.NumRows())
	assert.Equal(t, kid(t, store, "s2"), rs.Get(0, "s").ValKID())
}

func TestLimitOffset(t *testing.T) {
	store := salesGraph(t)
	q := parseQuery(t, "?s <netRevenue> ?rev")
	q.OrderBy = []query.OrderCond{{On: &query.Variable{Name: "rev"}}}
	q.Limit = u64(1)
	q.Offset = u64(1)
	rs, err := Evaluate(store, q)
	require.NoError(t, err)
	require.Equal(t, 1, rs.NumRows())
	assert.Equal(t, 400.0, rs.Get(0, "rev").ValFloat64())

	q.Offset = u64(10)
	rs, err = Evaluate(store, q)
	require.NoError(t, err)
	assert.Equal(t, 0, rs.NumRows())
}

func TestCountRows(t *testing.T) {
	store := salesGraph(t)
	q := parseQuery(t, "?s <netRevenue> ?rev")
	q.Select = []query.SelectItem{
		&query.Aggregate{Func: query.AggCount, As: &query.Variable{Name: "n"}},
	}
	rs, err := Evaluate(store, q)
	require.NoError(t, err)
	require.Equal(t, 1, rs.NumRows())
	assert.Equal(t, int64(3), rs.Get(0, "n").ValInt64())
}

func TestCountSkipsUnbound(t *testing.T) {
	store := salesGraph(t)
	q := parseQuery(t, "?s <netRevenue> ?rev\n?s <discount>? ?d")
	q.Select = []query.SelectItem{
		&query.Aggregate{Func: query.AggCount, Of: &query.Variable{Name: "d"},
			As: &query.Variable{Name: "n"}},
	}
	rs, err := Evaluate(store, q)
	require.NoError(t, err)
	require.Equal(t, 1, rs.NumRows())
	assert.Equal(t, int64(1), rs.Get(0, "n").ValInt64())
}

func TestMinMaxAverage(t *testing.T) {
	store := salesGraph(t)
	q := parseQuery(t, "?s <netRevenue> ?rev")
	rev := &query.Variable{Name: "rev"}
	q.Select = []query.SelectItem{
		&query.Aggregate{Func: query.AggMin, Of: rev, As: &query.Variable{Name: "lo"}},
		&query.Aggregate{Func: query.AggMax, Of: rev, As: &query.Variable{Name: "hi"}},
		&query.Aggregate{Func: query.AggAverage, Of: rev, As: &query.Variable{Name: "avg"}},
	}
	rs, err := Evaluate(store, q)
	require.NoError(t, err)
	require.Equal(t, 1, rs.NumRows())
	assert.Equal(t, 100.0, rs.Get(0, "lo").ValFloat64())
	assert.Equal(t, 500.0, rs.Get(0, "hi").ValFloat64())
	assert.InDelta(t, 333.33, rs.Get(0, "avg").ValFloat64(), 0.01)
}

func TestMalformedQueries(t *testing.T) {
	store := salesGraph(t)
	for _, test := range []struct {
		name string
		q    *query.Query
	}{
		{"empty", &query.Query{}},
		{"unknown predicate", parseQuery(t, "?s <frobnicate> ?o")},
		{"filter on unbound var", func() *query.Query {
			q := parseQuery(t, "?s <netRevenue> ?rev")
			q.Filters = append(q.Filters, &query.Filter{
				Var: &query.Variable{Name: "ghost"}, Op: query.OpGreater,
				Literal: &query.Literal{Value: facts.AInt64(1)}})
			return q
		}()},
		{"aggregate without output", func() *query.Query {
			q := parseQuery(t, "?s <netRevenue> ?rev")
			q.Select = []query.SelectItem{
				&query.Aggregate{Func: query.AggSum, Of: &query.Variable{Name: "rev"}}}
			return q
		}()},
		{"sum over star", func() *query.Query {
			q := parseQuery(t, "?s <netRevenue> ?rev")
			q.Select = []query.SelectItem{
				&query.Aggregate{Func: query.AggSum, As: &query.Variable{Name: "total"}}}
			return q
		}()},
		{"selected var not grouped", func() *query.Query {
			q := sumByCustomer(t)
			q.Select = append(q.Select, &query.Variable{Name: "s"})
			return q
		}()},
		{"order by unknown var", func() *query.Query {
			q := parseQuery(t, "?s <netRevenue> ?rev")
			q.OrderBy = []query.OrderCond{{On: &query.Variable{Name: "ghost"}}}
			return q
		}()},
	} {
		t.Run(test.name, func(t *testing.T) {
			_, err := Evaluate(store, test.q)
			require.Error(t, err)
			assert.IsType(t, &query.MalformedQueryError{}, err)
		})
	}
}

func TestRepeatedVariableUnifies(t *testing.T) {
	// (?x locatedIn ?x) can never match: no entity is its own region.
	store := salesGraph(t)
	rs, err := Evaluate(store, parseQuery(t, "?x <locatedIn> ?x"))
	require.NoError(t, err)
	assert.Equal(t, 0, rs.NumRows())
}
