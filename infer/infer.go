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

// Package infer derives new facts from threshold rules. A rule computes one
// aggregate (sum, count, average, min, max of a literal property) per group
// entity and asserts its output triple for every group whose aggregate
// passes the threshold comparison. Rules are data, interpreted by one
// generic evaluator; a rule list runs sequentially in declared order, so a
// later rule can read facts an earlier rule derived. Rules are idempotent:
// re-running a rule over unchanged facts derives nothing new.
package infer

import (
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/ebay/kanaga/facts"
	"github.com/ebay/kanaga/query"
	"github.com/ebay/kanaga/query/exec"
)

// Template is the output triple a rule asserts for each passing group
// entity (as subject). Exactly one of Class and Predicate is set: Class
// derives a class membership, Predicate with Object derives a relationship
// or attribute fact.
type Template struct {
	Class     string
	Predicate string
	Object    facts.KGObject
}

// Rule is one declarative threshold rule.
type Rule struct {
	// Name identifies the rule in derivation markers and logs.
	Name string
	// Source is the literal property the aggregate runs over. It may be
	// empty for COUNT rules, which then count the GroupBy facts themselves.
	Source string
	// GroupBy is an entity-valued property on the source subjects; its
	// value is the entity classified by the rule. An empty GroupBy groups
	// by the subject carrying the source property, for rules that classify
	// an entity on its own attribute (a product by its own price).
	GroupBy string
	// Aggregate folds the group's source values into one number.
	Aggregate query.AggFunc
	// Comparator and Threshold decide whether a group passes.
	Comparator query.Operator
	Threshold  float64
	// Output is asserted for each passing group entity.
	Output Template
}

// Query returns the aggregate query the rule evaluates: every group entity
// with its aggregate, in the columns target and agg.
func (r *Rule) Query() *query.Query {
	target := &query.Variable{Name: "target"}
	q := &query.Query{
		Select: []query.SelectItem{
			target,
			&query.Aggregate{Func: r.Aggregate, As: &query.Variable{Name: "agg"}},
		},
		GroupBy: []*query.Variable{target},
	}
	agg := q.Select[1].(*query.Aggregate)
	switch {
	case r.Source == "":
		// COUNT the grouping facts themselves.
		q.Where = []*query.Pattern{{
			Subject:   &query.Variable{Name: "s"},
			Predicate: &query.Entity{Value: r.GroupBy},
			Object:    target,
		}}
	case r.GroupBy == "":
		// Group by the carrying subject.
		q.Where = []*query.Pattern{{
			Subject:   target,
			Predicate: &query.Entity{Value: r.Source},
			Object:    &query.Variable{Name: "v"},
		}}
		agg.Of = &query.Variable{Name: "v"}
	default:
		q.Where = []*query.Pattern{
			{
				Subject:   &query.Variable{Name: "s"},
				Predicate: &query.Entity{Value: r.Source},
				Object:    &query.Variable{Name: "v"},
			},
			{
				Subject:   &query.Variable{Name: "s"},
				Predicate: &query.Entity{Value: r.GroupBy},
				Object:    target,
			},
		}
		agg.Of = &query.Variable{Name: "v"}
	}
	return q
}

func (r *Rule) check(store *facts.Store) error {
	if r.Name == "" {
		return fmt.Errorf("infer: rule has no name")
	}
	if r.Source == "" && r.Aggregate != query.AggCount {
		return fmt.Errorf("infer: rule %s: only COUNT rules may omit the source property", r.Name)
	}
	if r.Source == "" && r.GroupBy == "" {
		return fmt.Errorf("infer: rule %s: needs a source or group-by property", r.Name)
	}
	registry := store.Registry()
	switch {
	case r.Output.Class != "":
		if r.Output.Predicate != "" {
			return fmt.Errorf("infer: rule %s: output declares both a class and a predicate", r.Name)
		}
		if registry.ClassNamed(r.Output.Class) == nil {
			return fmt.Errorf("infer: rule %s: output class %s is not declared", r.Name, r.Output.Class)
		}
	case r.Output.Predicate != "":
		if registry.PropertyNamed(r.Output.Predicate) == nil {
			return fmt.Errorf("infer: rule %s: output predicate %s is not declared", r.Name, r.Output.Predicate)
		}
	default:
		return fmt.Errorf("infer: rule %s: output declares neither a class nor a predicate", r.Name)
	}
	return nil
}

// Apply evaluates the rule over the store's current facts and asserts its
// output triple for every passing group, each new fact tagged with a
// derivation marker naming the rule. It returns the number of output
// triples newly asserted; already-derived facts are left alone and not
// counted, which makes Apply idempotent.
func Apply(store *facts.Store, rule *Rule) (int, error) {
	if err := rule.check(store); err != nil {
		return 0, err
	}
	rs, err := exec.Evaluate(store, rule.Query())
	if err != nil {
		return 0, fmt.Errorf("infer: rule %s: %v", rule.Name, err)
	}

	registry := store.Registry()
	predicate := facts.InstanceOf
	object := facts.KGObject{}
	if rule.Output.Class != "" {
		object = facts.AKID(registry.ClassNamed(rule.Output.Class).KID)
	} else {
		predicate = registry.PropertyNamed(rule.Output.Predicate).KID
		object = rule.Output.Object
	}

	derived := 0
	for i := 0; i < rs.NumRows(); i++ {
		agg, ok := rs.Get(i, "agg").Float64()
		if !ok {
			continue
		}
		if !passes(agg, rule.Comparator, rule.Threshold) {
			continue
		}
		target := rs.Get(i, "target").ValKID()
		before := store.NumFacts()
		fact, err := store.Assert(target, predicate, object)
		if err != nil {
			return derived, fmt.Errorf("infer: rule %s: %v", rule.Name, err)
		}
		if store.NumFacts() == before {
			continue // already derived (or asserted as a base fact)
		}
		if _, err := store.Assert(fact.Id, facts.DerivedBy, facts.AString(rule.Name)); err != nil {
			return derived, fmt.Errorf("infer: rule %s: %v", rule.Name, err)
		}
		derived++
	}
	return derived, nil
}

func passes(val float64, op query.Operator, threshold float64) bool {
	switch op {
	case query.OpEqual:
		return val == threshold
	case query.OpNotEqual:
		return val != threshold
	case query.OpLess:
		return val < threshold
	case query.OpLessOrEqual:
		return val <= threshold
	case query.OpGreater:
		return val > threshold
	case query.OpGreaterOrEqual:
		return val >= threshold
	}
	return false
}

// Run applies the rules sequentially in declared order and returns the
// total number of derived facts. Order matters: a later rule sees what an
// earlier one derived. Run stops at the first failing rule.
func Run(store *facts.Store, rules []*Rule) (int, error) {
	total := 0
	for _, rule := range rules {
		derived, err := Apply(store, rule)
		if err != nil {
			return total, err
		}
		log.Debugf("rule %s derived %d facts", rule.Name, derived)
		total += derived
	}
	return total, nil
}
