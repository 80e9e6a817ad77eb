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

// term is a pattern position after name resolution: a variable, a fixed
// value, or a reference that named nothing in the store (noMatch). noMatch
// terms make the pattern matchless rather than failing the query; a typo in
// an external ID is an empty result, not a malformed query.
type term struct {
	variable *query.Variable
	value    facts.KGObject
	noMatch  bool
}

func (t *term) isVariable() bool {
	return t.variable != nil
}

// pattern is a query.Pattern with all three positions resolved.
type pattern struct {
	subject, predicate, object term
	specificity                query.MatchSpecificity
	src                        *query.Pattern
}

// resolvePatterns resolves entity and property names in the where list
// against the schema and the store. Predicate-position names must be
// declared properties (or well-known predicates); anything else is a
// MalformedQueryError identifying the pattern.
func resolvePatterns(store *facts.Store, q *query.Query) ([]pattern, error) {
	registry := store.Registry()
	resolveNode := func(e *query.Entity) term {
		// A node reference may name a class, a property (for metafact
		// queries), or an entity's external ID.
		if def := registry.ClassNamed(e.Value); def != nil {
			return term{value: facts.AKID(def.KID)}
		}
		if def := registry.PropertyNamed(e.Value); def != nil {
			return term{value: facts.AKID(def.KID)}
		}
		if kid, ok := store.ResolveExternalID(e.Value); ok {
			return term{value: facts.AKID(kid)}
		}
		return term{noMatch: true}
	}
	resolveTerm := func(t query.Term, predicatePos bool, p *query.Pattern) (term, error) {
		switch t := t.(type) {
		case *query.Variable:
			return term{variable: t}, nil
		case *query.Literal:
			return term{value: t.Value}, nil
		case *query.Entity:
			if !predicatePos {
				return resolveNode(t), nil
			}
			if kid := facts.WellKnownKID(t.Value); kid != 0 {
				return term{value: facts.AKID(kid)}, nil
			}
			if def := registry.PropertyNamed(t.Value); def != nil {
				return term{value: facts.AKID(def.KID)}, nil
			}
			return term{}, &query.MalformedQueryError{Offending: p.String(),
				Reason: "predicate <" + t.Value + "> is not a declared property"}
		}
		return term{}, &query.MalformedQueryError{Offending: p.String(),
			Reason: "unsupported term"}
	}

	out := make([]pattern, 0, len(q.Where))
	for _, p := range q.Where {
		var rp pattern
		var err error
		rp.src = p
		rp.specificity = p.Specificity
		if rp.subject, err = resolveTerm(p.Subject, false, p); err != nil {
			return nil, err
		}
		if rp.predicate, err = resolveTerm(p.Predicate, true, p); err != nil {
			return nil, err
		}
		if rp.object, err = resolveTerm(p.Object, false, p); err != nil {
			return nil, err
		}
		out = append(out, rp)
	}
	return out, nil
}

// validate checks that every variable referenced by filters and solution
// modifiers is bound by some pattern (or is an aggregate output), before any
// evaluation work happens.
func validate(q *query.Query) error {
	bound := make(map[string]struct{})
	for _, v := range q.Vars() {
		bound[v.Name] = struct{}{}
	}
	requireBound := func(v *query.Variable, clause string) error {
		if _, ok := bound[v.Name]; !ok {
			return &query.MalformedQueryError{Offending: clause,
				Reason: "variable " + v.String() + " is not bound by any pattern"}
		}
		return nil
	}
	if len(q.Where) == 0 {
		return &query.MalformedQueryError{Offending: "(empty)",
			Reason: "query contains no patterns"}
	}
	for _, f := range q.Filters {
		if err := requireBound(f.Var, f.String()); err != nil {
			return err
		}
		if f.RVar != nil {
			if err := requireBound(f.RVar, f.String()); err != nil {
				return err
			}
		}
	}
	for _, g := range q.GroupBy {
		if err := requireBound(g, "GROUP BY "+g.String()); err != nil {
			return err
		}
	}
	aggOutputs := make(map[string]struct{})
	grouped := len(q.GroupBy) > 0
	for _, item := range q.Select {
		switch item := item.(type) {
		case *query.Variable:
			if err := requireBound(item, "SELECT "+item.String()); err != nil {
				return err
			}
		case *query.Aggregate:
			grouped = true
			if item.As == nil {
				return &query.MalformedQueryError{Offending: item.String(),
					Reason: "aggregate has no output variable"}
			}
			if _, clash := bound[item.As.Name]; clash {
				return &query.MalformedQueryError{Offending: item.String(),
					Reason: "aggregate output " + item.As.String() + " clashes with a pattern variable"}
			}
			if item.Of != nil {
				if err := requireBound(item.Of, item.String()); err != nil {
					return err
				}
			} else if item.Func != query.AggCount {
				return &query.MalformedQueryError{Offending: item.String(),
					Reason: "only COUNT may aggregate over *"}
			}
			aggOutputs[item.As.Name] = struct{}{}
		}
	}
	if grouped && len(q.Select) == 0 {
		return &query.MalformedQueryError{Offending: "(select)",
			Reason: "grouped queries must declare a select list"}
	}
	if grouped {
		groupedVars := make(map[string]struct{})
		for _, g := range q.GroupBy {
			groupedVars[g.Name] = struct{}{}
		}
		for _, item := range q.Select {
			if v, isVar := item.(*query.Variable); isVar {
				if _, ok := groupedVars[v.Name]; !ok {
					return &query.MalformedQueryError{Offending: "SELECT " + v.String(),
						Reason: "selected variable is neither grouped nor aggregated"}
				}
			}
		}
	}
	for _, cond := range q.OrderBy {
		_, isAgg := aggOutputs[cond.On.Name]
		_, isBound := bound[cond.On.Name]
		if !isAgg && !isBound {
			return &query.MalformedQueryError{Offending: "ORDER BY " + cond.On.String(),
				Reason: "variable " + cond.On.String() + " is not bound by any pattern or aggregate"}
		}
	}
	return nil
}
