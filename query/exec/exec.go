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

// Package exec evaluates pattern queries against a fact store. Patterns are
// processed left to right over a growing table of partial variable bindings:
// each pattern substitutes the variables already bound in a row, consults
// the store's indices, and extends the row with the newly bound positions.
// Required patterns have inner-join semantics; optional patterns keep the
// row and leave their variables unbound. After the joins come post-filters,
// grouping with aggregates, ordering, and pagination. Evaluation never
// mutates the store and is safe to run concurrently with other evaluations.
package exec

import (
	"math"

	"github.com/ebay/kanaga/facts"
	"github.com/ebay/kanaga/query"
)

// bindings is the working table of partial solutions. Columns are assigned
// as variables first appear, in pattern order; unbound slots are KtNil.
type bindings struct {
	colIdx  map[string]int
	columns []string
	rows    [][]facts.KGObject
}

func (b *bindings) addColumn(name string) int {
	idx, exists := b.colIdx[name]
	if exists {
		return idx
	}
	idx = len(b.columns)
	b.colIdx[name] = idx
	b.columns = append(b.columns, name)
	for i, row := range b.rows {
		b.rows[i] = append(row, facts.KGObject{})
	}
	return idx
}

// Evaluate runs the query against the store and returns the ordered result
// set. Structural problems (undeclared properties, variables no pattern
// binds, aggregate misuse) are reported as MalformedQueryError before any
// matching work happens; a query that matches nothing returns an empty
// result set and no error.
func Evaluate(store *facts.Store, q *query.Query) (*ResultSet, error) {
	if err := validate(q); err != nil {
		return nil, err
	}
	patterns, err := resolvePatterns(store, q)
	if err != nil {
		return nil, err
	}

	table := &bindings{colIdx: make(map[string]int)}
	table.rows = [][]facts.KGObject{nil} // one seed row, nothing bound
	for i := range patterns {
		joinPattern(store, table, &patterns[i])
		if len(table.rows) == 0 {
			break
		}
	}

	applyFilters(table, q.Filters)

	out, err := project(table, q)
	if err != nil {
		return nil, err
	}
	return paginate(out, q.Limit, q.Offset), nil
}

// joinPattern extends every row of the table with the pattern's matches.
func joinPattern(store *facts.Store, table *bindings, p *pattern) {
	// Assign columns for any variables this pattern introduces before
	// scanning, so all rows share the same shape.
	for _, t := range []term{p.subject, p.predicate, p.object} {
		if t.isVariable() {
			table.addColumn(t.variable.Name)
		}
	}
	var extended [][]facts.KGObject
	for _, row := range table.rows {
		matches := matchesFor(store, table, row, p)
		if len(matches) == 0 {
			if p.specificity == query.MatchOptional {
				extended = append(extended, row)
			}
			continue
		}
		for _, f := range matches {
			next := make([]facts.KGObject, len(row))
			copy(next, row)
			// bindPosition fails only when the same variable appears twice
			// in this pattern and the fact gives it two different values.
			if bindPosition(table, next, p.subject, facts.AKID(f.Subject)) &&
				bindPosition(table, next, p.predicate, facts.AKID(f.Predicate)) &&
				bindPosition(table, next, p.object, f.Object) {
				extended = append(extended, next)
			}
		}
	}
	table.rows = extended
}

// matchesFor queries the store for the pattern with the row's bound
// variables substituted in. A pattern containing a noMatch term, or a
// substitution that is not an entity in a subject/predicate position,
// matches nothing.
func matchesFor(store *facts.Store, table *bindings, row []facts.KGObject, p *pattern) []facts.Fact {
	if p.subject.noMatch || p.predicate.noMatch || p.object.noMatch {
		return nil
	}
	kidOf := func(t term) (uint64, bool) {
		val := t.value
		if t.isVariable() {
			val = row[table.colIdx[t.variable.Name]]
		}
		if val.ValueType() == facts.KtNil {
			return 0, true // unbound, match anything
		}
		if val.ValueType() != facts.KtKID {
			return 0, false
		}
		return val.ValKID(), true
	}
	subject, ok := kidOf(p.subject)
	if !ok {
		return nil
	}
	predicate, ok := kidOf(p.predicate)
	if !ok {
		return nil
	}
	object := p.object.value
	if p.object.isVariable() {
		object = row[table.colIdx[p.object.variable.Name]]
	}
	return store.Lookup(subject, predicate, object)
}

// bindPosition writes the matched value into the row if the term is a
// variable. It reports false if the slot already holds a different value.
func bindPosition(table *bindings, row []facts.KGObject, t term, val facts.KGObject) bool {
	if !t.isVariable() {
		return true
	}
	idx := table.colIdx[t.variable.Name]
	if row[idx].ValueType() != facts.KtNil && !row[idx].Equal(val) {
		return false
	}
	row[idx] = val
	return true
}

// paginate applies OFFSET then LIMIT to the result set.
func paginate(rs *ResultSet, limit, offset *uint64) *ResultSet {
	lim := uint64(math.MaxUint64)
	if limit != nil {
		lim = *limit
	}
	off := uint64(0)
	if offset != nil {
		off = *offset
	}
	if off >= uint64(len(rs.Rows)) {
		rs.Rows = nil
		return rs
	}
	rows := rs.Rows[off:]
	if uint64(len(rows)) > lim {
		rows = rows[:lim]
	}
	rs.Rows = rows
	return rs
}
