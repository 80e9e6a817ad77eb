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
	"github.com/ebay/kanaga/facts"
	"github.com/ebay/kanaga/query"
)

// applyFilters drops the rows that fail any filter. A row with an unbound
// filter variable (possible after an optional match) fails the filter.
func applyFilters(table *bindings, filters []*query.Filter) {
	if len(filters) == 0 {
		return
	}
	kept := table.rows[:0]
	for _, row := range table.rows {
		ok := true
		for _, f := range filters {
			if !passes(table, row, f) {
				ok = false
				break
			}
		}
		if ok {
			kept = append(kept, row)
		}
	}
	table.rows = kept
}

func passes(table *bindings, row []facts.KGObject, f *query.Filter) bool {
	left := row[table.colIdx[f.Var.Name]]
	var right facts.KGObject
	if f.RVar != nil {
		right = row[table.colIdx[f.RVar.Name]]
	} else {
		right = f.Literal.Value
	}
	if left.ValueType() == facts.KtNil || right.ValueType() == facts.KtNil {
		return false
	}
	cmp, ok := compare(left, right)
	if !ok {
		return false
	}
	switch f.Op {
	case query.OpEqual:
		return cmp == 0
	case query.OpNotEqual:
		return cmp != 0
	case query.OpLess:
		return cmp < 0
	case query.OpLessOrEqual:
		return cmp <= 0
	case query.OpGreater:
		return cmp > 0
	case query.OpGreaterOrEqual:
		return cmp >= 0
	}
	return false
}

// compare orders two values for filtering. Mixed int/float pairs compare
// numerically; other mixed-type pairs are incomparable and fail the
// filter rather than falling back to an arbitrary type order.
func compare(a, b facts.KGObject) (int, bool) {
	if a.ValueType() != b.ValueType() {
		af, aok := a.Float64()
		bf, bok := b.Float64()
		if !aok || !bok {
			return 0, false
		}
		switch {
		case af < bf:
			return -1, true
		case af > bf:
			return 1, true
		}
		return 0, true
	}
	return a.Compare(b), true
}
