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

// Package query defines the declarative pattern-query model: an ordered list
// of triple patterns with shared variables, optional comparison filters, and
// solution modifiers (grouping, aggregates, ordering, pagination). Queries
// are plain data; the exec package evaluates them against a store, and the
// parser package builds the pattern part from a compact text notation.
package query

import (
	"fmt"
	"strings"

	"github.com/ebay/kanaga/facts"
)

// A Term is one position of a triple pattern: a variable, a reference to a
// named entity/class/property, or a literal.
type Term interface {
	// Marker method to prevent other types from implementing Term.
	aTerm()
	// String returns a parseable representation of the Term.
	String() string
}

// Variable is a named query variable. The same name appearing in multiple
// pattern positions forces those positions to unify.
type Variable struct {
	Name string
}

func (*Variable) aTerm()           {}
func (v *Variable) String() string { return "?" + v.Name }

// Entity references a node by name: an external ID, or a schema class or
// property name. Resolution to a KID happens when the query is evaluated.
type Entity struct {
	Value string
}

func (*Entity) aTerm()           {}
func (e *Entity) String() string { return "<" + e.Value + ">" }

// Literal is a typed literal value.
type Literal struct {
	Value facts.KGObject
}

func (*Literal) aTerm()           {}
func (l *Literal) String() string { return l.Value.String() }

// MatchSpecificity says whether a pattern must match for a row to survive.
type MatchSpecificity int

const (
	// MatchRequired patterns drop rows they cannot extend (inner join).
	MatchRequired MatchSpecificity = iota
	// MatchOptional patterns leave their new variables unbound on rows they
	// cannot extend, rather than dropping the row.
	MatchOptional
)

// Pattern is a single triple pattern in a query's where list.
type Pattern struct {
	Subject     Term
	Predicate   Term
	Object      Term
	Specificity MatchSpecificity
}

func (p *Pattern) String() string {
	opt := ""
	if p.Specificity == MatchOptional {
		opt = "?"
	}
	return fmt.Sprintf("%v %v%s %v", p.Subject, p.Predicate, opt, p.Object)
}

// Operator is a comparison operator usable in filters.
type Operator int

// The comparison operators.
const (
	OpEqual Operator = iota + 1
	OpNotEqual
	OpLess
	OpLessOrEqual
	OpGreater
	OpGreaterOrEqual
)

func (o Operator) String() string {
	switch o {
	case OpEqual:
		return "<eq>"
	case OpNotEqual:
		return "<notEqual>"
	case OpLess:
		return "<lt>"
	case OpLessOrEqual:
		return "<lte>"
	case OpGreater:
		return "<gt>"
	case OpGreaterOrEqual:
		return "<gte>"
	}
	return fmt.Sprintf("Operator(%d)", int(o))
}

// Filter is a post-join comparison over a bound variable. Exactly one of
// Literal and RVar is set as the right-hand side.
type Filter struct {
	Var     *Variable
	Op      Operator
	Literal *Literal
	RVar    *Variable
}

func (f *Filter) String() string {
	if f.RVar != nil {
		return fmt.Sprintf("%v %v %v", f.Var, f.Op, f.RVar)
	}
	return fmt.Sprintf("%v %v %v", f.Var, f.Op, f.Literal)
}

// AggFunc enumerates the aggregate functions.
type AggFunc int

// The aggregate functions.
const (
	AggCount AggFunc = iota + 1
	AggSum
	AggAverage
	AggMin
	AggMax
)

func (f AggFunc) String() string {
	switch f {
	case AggCount:
		return "COUNT"
	case AggSum:
		return "SUM"
	case AggAverage:
		return "AVERAGE"
	case AggMin:
		return "MIN"
	case AggMax:
		return "MAX"
	}
	return fmt.Sprintf("AggFunc(%d)", int(f))
}

// SelectItem is an entry in a query's select list: a *Variable or an
// *Aggregate.
type SelectItem interface {
	isSelectItem()
	String() string
}

func (*Variable) isSelectItem() {}

// Aggregate is a computed select item, e.g. SUM(?rev) AS ?total. Of may be
// nil for COUNT, which then counts rows.
type Aggregate struct {
	Func AggFunc
	Of   *Variable
	As   *Variable
}

func (*Aggregate) isSelectItem() {}

func (a *Aggregate) String() string {
	of := "*"
	if a.Of != nil {
		of = a.Of.String()
	}
	return fmt.Sprintf("(%v(%s) AS %v)", a.Func, of, a.As)
}

// SortDirection is the direction of an ORDER BY condition.
type SortDirection int

const (
	// SortDesc is the default: largest first.
	SortDesc SortDirection = iota
	// SortAsc sorts smallest first.
	SortAsc
)

// OrderCond is a single ORDER BY condition.
type OrderCond struct {
	On        *Variable
	Direction SortDirection
}

func (c OrderCond) String() string {
	if c.Direction == SortAsc {
		return fmt.Sprintf("ASC(%v)", c.On)
	}
	return fmt.Sprintf("DESC(%v)", c.On)
}

// Query is a complete pattern query. Only Where is mandatory. An empty
// Select selects every variable in order of first appearance.
type Query struct {
	Select  []SelectItem
	Where   []*Pattern
	Filters []*Filter
	GroupBy []*Variable
	OrderBy []OrderCond
	Limit   *uint64
	Offset  *uint64
}

func (q *Query) String() string {
	var b strings.Builder
	for _, p := range q.Where {
		fmt.Fprintf(&b, "%v\n", p)
	}
	for _, f := range q.Filters {
		fmt.Fprintf(&b, "%v\n", f)
	}
	return b.String()
}

// Vars returns the query's pattern variables in order of first appearance.
func (q *Query) Vars() []*Variable {
	seen := make(map[string]struct{})
	var out []*Variable
	add := func(t Term) {
		if v, isVar := t.(*Variable); isVar {
			if _, dup := seen[v.Name]; !dup {
				seen[v.Name] = struct{}{}
				out = append(out, v)
			}
		}
	}
	for _, p := range q.Where {
		add(p.Subject)
		add(p.Predicate)
		add(p.Object)
	}
	return out
}

// MalformedQueryError reports a structurally invalid query: an undeclared
// property or entity name, or a variable used in a modifier that no pattern
// binds. These indicate a programming error in the caller and are rejected
// before evaluation.
type MalformedQueryError struct {
	// Offending identifies the pattern or clause that failed.
	Offending string
	Reason    string
}

func (e *MalformedQueryError) Error() string {
	return fmt.Sprintf("query: %s (in %q)", e.Reason, e.Offending)
}
