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
	"sort"
	"strings"

	"github.com/ebay/kanaga/facts"
	"github.com/ebay/kanaga/query"
)

// project turns the binding table into the final result columns, running
// grouping and aggregation when the query asks for them.
func project(table *bindings, q *query.Query) (*ResultSet, error) {
	if len(q.GroupBy) > 0 || hasAggregates(q) {
		return groupAndAggregate(table, q)
	}
	// Plain projection. Sorting happens on the full binding table so that
	// ORDER BY can use a variable the select list drops.
	full := &ResultSet{Columns: table.columns, Rows: table.rows}
	orderBy(full, q.OrderBy)
	if len(q.Select) == 0 {
		return full, nil
	}
	out := &ResultSet{}
	var srcIdx []int
	for _, item := range q.Select {
		v := item.(*query.Variable)
		out.Columns = append(out.Columns, v.Name)
		srcIdx = append(srcIdx, table.colIdx[v.Name])
	}
	for _, row := range full.Rows {
		projected := make([]facts.KGObject, len(srcIdx))
		for i, idx := range srcIdx {
			projected[i] = row[idx]
		}
		out.Rows = append(out.Rows, projected)
	}
	return out, nil
}

func hasAggregates(q *query.Query) bool {
	for _, item := range q.Select {
		if _, ok := item.(*query.Aggregate); ok {
			return true
		}
	}
	return false
}

// group holds the binding rows sharing one set of GroupBy values. Groups
// are kept in first-encounter order, which makes tie-breaks in ORDER BY
// deterministic.
type group struct {
	key  []facts.KGObject
	rows [][]facts.KGObject
}

func groupAndAggregate(table *bindings, q *query.Query) (*ResultSet, error) {
	keyIdx := make([]int, len(q.GroupBy))
	for i, v := range q.GroupBy {
		keyIdx[i] = table.colIdx[v.Name]
	}

	var groups []*group
	if len(q.GroupBy) == 0 {
		// Aggregates without GROUP BY fold the whole table into one group.
		groups = []*group{{rows: table.rows}}
	} else {
		byKey := make(map[string]*group)
		for _, row := range table.rows {
			key := make([]facts.KGObject, len(keyIdx))
			var sb strings.Builder
			for i, idx := range keyIdx {
				key[i] = row[idx]
				sb.WriteString(row[idx].String())
				sb.WriteByte('\x00')
			}
			g, exists := byKey[sb.String()]
			if !exists {
				g = &group{key: key}
				byKey[sb.String()] = g
				groups = append(groups, g)
			}
			g.rows = append(g.rows, row)
		}
	}

	out := &ResultSet{}
	for _, item := range q.Select {
		switch it := item.(type) {
		case *query.Variable:
			out.Columns = append(out.Columns, it.Name)
		case *query.Aggregate:
			out.Columns = append(out.Columns, it.As.Name)
		}
	}
	for _, g := range groups {
		row := make([]facts.KGObject, 0, len(q.Select))
		for _, item := range q.Select {
			switch it := item.(type) {
			case *query.Variable:
				// A grouped-by variable: constant within the group.
				row = append(row, g.rows[0][table.colIdx[it.Name]])
			case *query.Aggregate:
				row = append(row, aggregate(table, g, it))
			}
		}
		out.Rows = append(out.Rows, row)
	}
	orderBy(out, q.OrderBy)
	return out, nil
}

// aggregate computes one aggregate over a group. Unbound values are
// skipped; SUM and AVERAGE coerce ints to float so mixed columns still
// total correctly.
func aggregate(table *bindings, g *group, agg *query.Aggregate) facts.KGObject {
	values := g.rows
	colIdx := -1
	if agg.Of != nil {
		colIdx = table.colIdx[agg.Of.Name]
	}
	switch agg.Func {
	case query.AggCount:
		n := int64(0)
		for _, row := range values {
			if colIdx == -1 || row[colIdx].ValueType() != facts.KtNil {
				n++
			}
		}
		return facts.AInt64(n)

	case query.AggSum, query.AggAverage:
		total := 0.0
		n := 0
		for _, row := range values {
			if f, ok := row[colIdx].Float64(); ok {
				total += f
				n++
			}
		}
		if agg.Func == query.AggAverage {
			if n == 0 {
				return facts.KGObject{}
			}
			return facts.AFloat64(total / float64(n))
		}
		return facts.AFloat64(total)

	case query.AggMin, query.AggMax:
		best := facts.KGObject{}
		for _, row := range values {
			v := row[colIdx]
			if v.ValueType() == facts.KtNil {
				continue
			}
			if best.ValueType() == facts.KtNil {
				best = v
				continue
			}
			cmp, ok := compare(v, best)
			if !ok {
				continue
			}
			if (agg.Func == query.AggMin && cmp < 0) ||
				(agg.Func == query.AggMax && cmp > 0) {
				best = v
			}
		}
		return best
	}
	return facts.KGObject{}
}

// orderBy sorts the result rows. The sort is stable, so rows that compare
// equal keep their first-encountered order. Descending is the default
// direction, matching how ranked insight queries are usually read.
func orderBy(rs *ResultSet, conds []query.OrderCond) {
	if len(conds) == 0 {
		return
	}
	idx := make([]int, len(conds))
	for i, c := range conds {
		idx[i] = rs.IndexOf(c.On.Name)
	}
	sort.SliceStable(rs.Rows, func(a, b int) bool {
		for i, c := range conds {
			if idx[i] == -1 {
				continue
			}
			va, vb := rs.Rows[a][idx[i]], rs.Rows[b][idx[i]]
			cmp, ok := compare(va, vb)
			if !ok {
				cmp = va.Compare(vb)
			}
			if cmp == 0 {
				continue
			}
			if c.Direction == query.SortAsc {
				return cmp < 0
			}
			return cmp > 0
		}
		return false
	})
}
