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

// Package config holds the one-time startup configuration: the classes and
// properties of the schema, the inference rules, and the record mapping,
// supplied as data so a deployment can swap its domain without touching the
// engine. A Spec is plain declarative text; Build turns it into the live
// registry, rules and mapping the engine components take.
package config

import (
	"fmt"
	"strings"

	"github.com/ebay/kanaga/infer"
	"github.com/ebay/kanaga/load"
	"github.com/ebay/kanaga/query"
	"github.com/ebay/kanaga/schema"
)

// Spec is the full declarative configuration.
type Spec struct {
	Classes    []ClassSpec    `json:"classes"`
	Properties []PropertySpec `json:"properties"`
	Rules      []RuleSpec     `json:"rules,omitempty"`
	Mapping    *MappingSpec   `json:"mapping,omitempty"`
}

// ClassSpec declares one entity class.
type ClassSpec struct {
	Name string `json:"name"`
	// Parent names the superclass, empty for a root class. Parents must be
	// declared before their subclasses.
	Parent string `json:"parent,omitempty"`
}

// PropertySpec declares one property.
type PropertySpec struct {
	Name   string `json:"name"`
	Domain string `json:"domain"`
	// Range is one of string, int, float, date, or entity:ClassName.
	Range string `json:"range"`
	// MultiValued permits many current values per subject; the default is
	// single-valued with supersede semantics.
	MultiValued bool `json:"multiValued,omitempty"`
}

// RuleSpec declares one threshold inference rule.
type RuleSpec struct {
	Name string `json:"name"`
	// Source is the literal property aggregated, omitted for COUNT rules
	// that count the groupBy facts.
	Source string `json:"source,omitempty"`
	// GroupBy is the entity property naming the classified target, omitted
	// to group by the carrying subject.
	GroupBy string `json:"groupBy,omitempty"`
	// Aggregate is one of count, sum, average, min, max.
	Aggregate string `json:"aggregate"`
	// Comparator is one of eq, notEqual, lt, lte, gt, gte.
	Comparator string  `json:"comparator"`
	Threshold  float64 `json:"threshold"`
	// Class is the derived class membership; alternatively Predicate and
	// Object give a derived relationship or attribute fact. Object is
	// parsed using the predicate's declared range.
	Class     string `json:"class,omitempty"`
	Predicate string `json:"predicate,omitempty"`
	Object    string `json:"object,omitempty"`
}

// FieldSpec maps one record column onto a literal property.
type FieldSpec struct {
	Column    string `json:"column"`
	Predicate string `json:"predicate"`
}

// ReferenceSpec links a dimension to another deduplicated entity.
type ReferenceSpec struct {
	Class     string `json:"class"`
	Key       string `json:"key"`
	Predicate string `json:"predicate"`
}

// DimensionSpec maps one record reference onto a deduplicated entity.
type DimensionSpec struct {
	Class      string          `json:"class"`
	Key        string          `json:"key"`
	Predicate  string          `json:"predicate"`
	Fields     []FieldSpec     `json:"fields,omitempty"`
	References []ReferenceSpec `json:"references,omitempty"`
}

// MappingSpec declares the record-to-graph mapping.
type MappingSpec struct {
	TransactionClass string          `json:"transactionClass"`
	Key              string          `json:"key,omitempty"`
	Dimensions       []DimensionSpec `json:"dimensions,omitempty"`
	Fields           []FieldSpec     `json:"fields,omitempty"`
}

// System is a built Spec: the live engine inputs.
type System struct {
	Registry *schema.Registry
	Rules    []*infer.Rule
	Mapping  *load.Mapping
}

// Build constructs the registry, rules and mapping the Spec declares.
// Classes and properties are defined in declared order, so KID assignment
// is deterministic for a given Spec.
func (s *Spec) Build() (*System, error) {
	registry := schema.NewRegistry()
	for _, c := range s.Classes {
		if _, err := registry.DefineClass(c.Name, c.Parent); err != nil {
			return nil, err
		}
	}
	for _, p := range s.Properties {
		rng, err := parseRange(registry, p.Range)
		if err != nil {
			return nil, fmt.Errorf("config: property %s: %v", p.Name, err)
		}
		card := schema.SingleValued
		if p.MultiValued {
			card = schema.MultiValued
		}
		if _, err := registry.DefineProperty(p.Name, p.Domain, rng, card); err != nil {
			return nil, err
		}
	}
	sys := &System{Registry: registry}
	for i := range s.Rules {
		rule, err := s.Rules[i].build(registry)
		if err != nil {
			return nil, err
		}
		sys.Rules = append(sys.Rules, rule)
	}
	if s.Mapping != nil {
		sys.Mapping = s.Mapping.build()
	}
	return sys, nil
}

func parseRange(registry *schema.Registry, s string) (schema.Range, error) {
	if class, isEntity := strings.CutPrefix(s, "entity:"); isEntity {
		def := registry.ClassNamed(class)
		if def == nil {
			return schema.Range{}, fmt.Errorf("range class %s is not declared", class)
		}
		return schema.Range{Kind: schema.RangeEntity, Class: def.KID}, nil
	}
	switch s {
	case "string":
		return schema.Range{Kind: schema.RangeString}, nil
	case "int":
		return schema.Range{Kind: schema.RangeInt}, nil
	case "float":
		return schema.Range{Kind: schema.RangeFloat}, nil
	case "date":
		return schema.Range{Kind: schema.RangeDate}, nil
	}
	return schema.Range{}, fmt.Errorf("unknown range %q", s)
}

var aggFuncs = map[string]query.AggFunc{
	"count":   query.AggCount,
	"sum":     query.AggSum,
	"average": query.AggAverage,
	"min":     query.AggMin,
	"max":     query.AggMax,
}

var comparators = map[string]query.Operator{
	"eq":       query.OpEqual,
	"notEqual": query.OpNotEqual,
	"lt":       query.OpLess,
	"lte":      query.OpLessOrEqual,
	"gt":       query.OpGreater,
	"gte":      query.OpGreaterOrEqual,
}

func (r *RuleSpec) build(registry *schema.Registry) (*infer.Rule, error) {
	agg, ok := aggFuncs[r.Aggregate]
	if !ok {
		return nil, fmt.Errorf("config: rule %s: unknown aggregate %q", r.Name, r.Aggregate)
	}
	op, ok := comparators[r.Comparator]
	if !ok {
		return nil, fmt.Errorf("config: rule %s: unknown comparator %q", r.Name, r.Comparator)
	}
	rule := &infer.Rule{
		Name:       r.Name,
		Source:     r.Source,
		GroupBy:    r.GroupBy,
		Aggregate:  agg,
		Comparator: op,
		Threshold:  r.Threshold,
		Output:     infer.Template{Class: r.Class, Predicate: r.Predicate},
	}
	if r.Predicate != "" {
		obj, err := load.Convert(registry, r.Predicate, r.Object)
		if err != nil {
			return nil, fmt.Errorf("config: rule %s: %v", r.Name, err)
		}
		rule.Output.Object = obj
	} else if r.Object != "" {
		return nil, fmt.Errorf("config: rule %s: object without a predicate", r.Name)
	}
	return rule, nil
}

func (m *MappingSpec) build() *load.Mapping {
	mapping := &load.Mapping{
		TransactionClass: m.TransactionClass,
		Key:              m.Key,
		Fields:           fields(m.Fields),
	}
	for _, d := range m.Dimensions {
		dim := load.Dimension{
			Class:     d.Class,
			Key:       d.Key,
			Predicate: d.Predicate,
			Fields:    fields(d.Fields),
		}
		for _, r := range d.References {
			dim.References = append(dim.References, load.Reference{
				Class:     r.Class,
				Key:       r.Key,
				Predicate: r.Predicate,
			})
		}
		mapping.Dimensions = append(mapping.Dimensions, dim)
	}
	return mapping
}

func fields(specs []FieldSpec) []load.Field {
	out := make([]load.Field, len(specs))
	for i, f := range specs {
		out[i] = load.Field{Column: f.Column, Predicate: f.Predicate}
	}
	return out
}
