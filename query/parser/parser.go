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

// Package parser parses the compact pattern notation into a query.Query. One
// triple pattern per line, variables spelled ?name, entity/class/property
// references spelled <name>, literal objects as numbers, double-quoted
// strings or single-quoted dates, and comparison lines like
//
//	?s <soldTo> ?c
//	?c <locatedIn>? ?r
//	?rev <gt> 5000.0
//	# comment
//
// A '?' suffix on the predicate marks the pattern optional. Operator
// predicates (<eq> <notEqual> <lt> <lte> <gt> <gte>) turn the line into a
// post-join filter. Solution modifiers (select, group by, order by, limit)
// are set on the returned Query through the structured API; this notation
// deliberately stops short of a full query language.
package parser

import (
	"fmt"
	"strconv"
	"time"

	"github.com/ebay/kanaga/facts"
	"github.com/ebay/kanaga/query"
	p "github.com/vektah/goparsify"
)

var (
	// patternLines is the parser function called by Parse. It extracts the
	// whole pattern list including filter lines.
	patternLines p.Parser
	// term is the parser function called by ParseTerm. It extracts a single
	// variable, entity, operator or literal.
	term p.Parser
)

func init() {
	// If you need to debug what the parser is doing, you can enable
	// goparsify's built in debug support by building with -tags debug. See
	// the docs for more details https://github.com/vektah/goparsify#debugging-parsers
	//
	// The debug.go file will setup sending the parser debug output to stdOut
	// when the debug tag is used.

	// unbroken character sequence used by variables
	id := p.Chars("A-Za-z0-9_", 1)
	// entity character sequence includes additional special characters,
	// spaces included so external IDs like <North America> parse
	entityID := p.Chars("A-Za-z0-9%()_\\-.,: ", 1)
	// character sequence separating query lines
	lineSep := p.Chars("\n \t", 1)
	// character sequence separating query terms
	termSep := p.Chars(" \t", 1)

	variable := p.Seq("?", id).Map(func(n *p.Result) { // ?c
		n.Result = &query.Variable{Name: n.Child[1].Token}
	})

	opEQ := p.Exact("<eq>").Map(bindOpResult(query.OpEqual))
	opNEQ := p.Exact("<notEqual>").Map(bindOpResult(query.OpNotEqual))
	opGT := p.Exact("<gt>").Map(bindOpResult(query.OpGreater))
	opGTE := p.Exact("<gte>").Map(bindOpResult(query.OpGreaterOrEqual))
	opLT := p.Exact("<lt>").Map(bindOpResult(query.OpLess))
	opLTE := p.Exact("<lte>").Map(bindOpResult(query.OpLessOrEqual))
	operator := p.Any(opEQ, opGT, opGTE, opLT, opLTE, opNEQ)

	entity := p.Seq("<", p.Cut(), entityID, ">").Map(func(n *p.Result) { // <soldTo>
		n.Result = &query.Entity{Value: n.Child[2].Token}
	})

	literalNumber := p.NumberLit().Map(literalNumber)    // 9 || 3.14159
	literalString := p.StringLit(`"`).Map(literalString) // "Acme Corp"
	literalDate := p.Seq("'", fixedLengthInt(4), "-", fixedLengthInt(2), "-",
		fixedLengthInt(2), "'").Map(literalDate) // '2024-03-15'

	term = p.Any(variable, operator, entity, literalString, literalDate, literalNumber)
	optionalMatch := p.Maybe(p.Bind(p.Exact("?"), query.MatchOptional))
	termLine := p.Seq(term, termSep, term, optionalMatch, termSep, term).Map(termLine)
	// comment line starts with '#' followed by a white space
	comment := p.Seq("# ", p.Until("\n"))
	line := p.Any(termLine, comment)
	patternLines = p.NoAutoWS(p.Seq(p.Maybe(lineSep), p.Many(line, lineSep),
		p.Maybe(lineSep))).Map(lines)
}

// bindOpResult returns a map function that sets the op as the node result.
func bindOpResult(op query.Operator) func(n *p.Result) {
	return func(n *p.Result) {
		n.Result = op
	}
}

func literalNumber(n *p.Result) {
	switch v := n.Result.(type) {
	case float64:
		n.Result = &query.Literal{Value: facts.AFloat64(v)}
	case int64:
		n.Result = &query.Literal{Value: facts.AInt64(v)}
	case int:
		n.Result = &query.Literal{Value: facts.AInt64(int64(v))}
	default:
		panic(fmt.Sprintf("unsupported number literal: '%s' %v", n.Token, v))
	}
}

func literalString(n *p.Result) {
	n.Result = &query.Literal{Value: facts.AString(n.Token)}
}

func literalDate(n *p.Result) {
	y := n.Child[1].Result.(int)
	m := n.Child[3].Result.(int)
	d := n.Child[5].Result.(int)
	ts := time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
	n.Result = &query.Literal{Value: facts.ATimestamp(ts)}
}

// termLine builds either a *query.Pattern or a *query.Filter from the three
// terms of a line.
func termLine(n *p.Result) {
	subject := n.Child[0].Result.(query.Term)
	object := n.Child[5].Result.(query.Term)
	if op, isOp := n.Child[2].Result.(query.Operator); isOp {
		filter := &query.Filter{Op: op}
		if v, isVar := subject.(*query.Variable); isVar {
			filter.Var = v
		}
		switch rhs := object.(type) {
		case *query.Literal:
			filter.Literal = rhs
		case *query.Variable:
			filter.RVar = rhs
		}
		n.Result = filter
		return
	}
	pattern := &query.Pattern{
		Subject:   subject,
		Predicate: n.Child[2].Result.(query.Term),
		Object:    object,
	}
	if spec, isOptional := n.Child[3].Result.(query.MatchSpecificity); isOptional {
		pattern.Specificity = spec
	}
	n.Result = pattern
}

// lines assembles the parsed lines into a *query.Query, in input order.
func lines(n *p.Result) {
	q := &query.Query{}
	for _, child := range n.Child[1].Child {
		switch r := child.Result.(type) {
		case *query.Pattern:
			q.Where = append(q.Where, r)
		case *query.Filter:
			q.Filters = append(q.Filters, r)
		}
	}
	n.Result = q
}

// fixedLengthInt parses out fixed length integers
func fixedLengthInt(length int) p.Parser {
	description := fmt.Sprintf("fixedLengthInt:%d", length)
	return p.NewParser(description, func(ps *p.State, node *p.Result) {
		maxPos := ps.Pos
		end := len(ps.Input)
		for i := 0; i < length; i++ {
			if maxPos < end && ps.Input[maxPos] >= '0' && ps.Input[maxPos] <= '9' {
				maxPos++
			}
		}
		var err error
		node.Result, err = strconv.Atoi(ps.Input[ps.Pos:maxPos])
		if err != nil {
			ps.ErrorHere(description)
			return
		}
		ps.Pos = maxPos
	})
}

// Parse parses the pattern notation into a Query holding the where list and
// any filter lines. The result is structurally validated (filters must
// compare a variable) but names are not resolved against a schema; that
// happens at evaluation time.
func Parse(input string) (*query.Query, error) {
	result, err := p.Run(patternLines, input, p.ASCIIWhitespace)
	if err != nil {
		return nil, fmt.Errorf("parser: %v", err)
	}
	q := result.(*query.Query)
	if len(q.Where) == 0 {
		return nil, fmt.Errorf("parser: query contains no patterns")
	}
	for _, f := range q.Filters {
		if f.Var == nil {
			return nil, fmt.Errorf("parser: filter %v must compare a variable", f)
		}
		if f.Literal == nil && f.RVar == nil {
			return nil, fmt.Errorf("parser: filter %v must compare against a literal or variable", f)
		}
	}
	return q, nil
}

// ParseTerm parses a single term: a variable, entity reference, or literal.
// Comparison operators parse but are not terms and return an error.
func ParseTerm(input string) (query.Term, error) {
	result, err := p.Run(term, input, p.ASCIIWhitespace)
	if err != nil {
		return nil, fmt.Errorf("parser: %v", err)
	}
	t, ok := result.(query.Term)
	if !ok {
		return nil, fmt.Errorf("parser: invalid result type: %T", result)
	}
	return t, nil
}
