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
	"fmt"
	"strings"

	"github.com/ebay/kanaga/facts"
)

// ResultSet is the ordered output of a query evaluation: one row per
// solution, one column per selected variable. Entity values are KIDs; use
// the store's ExternalID / ClassesOf / Lookup accessors to resolve them for
// display.
type ResultSet struct {
	Columns []string
	Rows    [][]facts.KGObject
}

// NumRows returns the number of result rows.
func (rs *ResultSet) NumRows() int {
	return len(rs.Rows)
}

// IndexOf returns the column index for the variable name, or -1.
func (rs *ResultSet) IndexOf(column string) int {
	for i, c := range rs.Columns {
		if c == column {
			return i
		}
	}
	return -1
}

// Get returns the value in the named column of row i. It panics on an
// unknown column, like indexing out of range would.
func (rs *ResultSet) Get(i int, column string) facts.KGObject {
	idx := rs.IndexOf(column)
	if idx < 0 {
		panic(fmt.Sprintf("exec: result set has no column %q", column))
	}
	return rs.Rows[i][idx]
}

// AsMaps returns the rows as name→value mappings. This is the flat
// structured form handed to presentation layers.
func (rs *ResultSet) AsMaps() []map[string]facts.KGObject {
	out := make([]map[string]facts.KGObject, len(rs.Rows))
	for i, row := range rs.Rows {
		m := make(map[string]facts.KGObject, len(rs.Columns))
		for j, c := range rs.Columns {
			m[c] = row[j]
		}
		out[i] = m
	}
	return out
}

func (rs *ResultSet) String() string {
	var b strings.Builder
	b.WriteString(strings.Join(rs.Columns, " | "))
	b.WriteByte('\n')
	for _, row := range rs.Rows {
		for j, v := range row {
			if j > 0 {
				b.WriteString(" | ")
			}
			b.WriteString(v.String())
		}
		b.WriteByte('\n')
	}
	return b.String()
}
