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

// Package schema implements the class & property registry for the graph. The
// registry is pure metadata: it declares entity classes, a single-inheritance
// class hierarchy, and the closed set of properties that facts may use, each
// with a declared domain class, range and cardinality. It holds no facts
// itself. A Registry must be fully built before the loader or query engine
// touch the store, and is read-only from then on.
package schema

import (
	"fmt"
	"sort"
)

// FirstKID is the first KID handed out by a Registry for classes and
// properties. KIDs below FirstKID are reserved for the well-known subjects
// defined in the facts package.
const FirstKID uint64 = 100

// Cardinality says how many current values a (subject, predicate) pair may
// have.
type Cardinality int

const (
	// SingleValued properties have at most one current value per subject. A
	// later assert supersedes the earlier value.
	SingleValued Cardinality = iota
	// MultiValued properties may accumulate any number of distinct values per
	// subject.
	MultiValued
)

func (c Cardinality) String() string {
	switch c {
	case SingleValued:
		return "single"
	case MultiValued:
		return "multi"
	}
	return fmt.Sprintf("Cardinality(%d)", int(c))
}

// RangeKind enumerates the kinds of values a property range can declare.
type RangeKind int

const (
	// RangeEntity ranges over references to entities of a declared class.
	RangeEntity RangeKind = iota
	// RangeString ranges over string literals.
	RangeString
	// RangeInt ranges over int64 literals.
	RangeInt
	// RangeFloat ranges over float64 literals.
	RangeFloat
	// RangeDate ranges over date literals.
	RangeDate
)

func (k RangeKind) String() string {
	switch k {
	case RangeEntity:
		return "entity"
	case RangeString:
		return "string"
	case RangeInt:
		return "int"
	case RangeFloat:
		return "float"
	case RangeDate:
		return "date"
	}
	return fmt.Sprintf("RangeKind(%d)", int(k))
}

// Range is a property's declared range: a literal kind, or a class for
// entity-valued properties.
type Range struct {
	Kind RangeKind
	// Class is the range class KID for RangeEntity ranges, zero otherwise.
	Class uint64
}

// ClassDef describes one declared entity class.
type ClassDef struct {
	KID  uint64
	Name string
	// Parent is the KID of the superclass, or zero for a root class.
	Parent uint64
}

// PropertyDef describes one declared predicate.
type PropertyDef struct {
	KID    uint64
	Name   string
	Domain uint64
	Range  Range
	Card   Cardinality
}

// IsObjectProperty returns true if the property relates two entities rather
// than attaching a literal.
func (p *PropertyDef) IsObjectProperty() bool {
	return p.Range.Kind == RangeEntity
}

// SchemaError reports a conflicting or dangling schema definition. These are
// programming errors in the caller's startup configuration and are always
// fatal.
type SchemaError struct {
	Reason string
}

func (e *SchemaError) Error() string {
	return "schema: " + e.Reason
}

func schemaErrorf(format string, args ...interface{}) error {
	return &SchemaError{Reason: fmt.Sprintf(format, args...)}
}

// Registry holds the full class & property schema. Build one with NewRegistry
// and the Define calls; afterwards it is safe for concurrent readers.
type Registry struct {
	nextKID    uint64
	classes    map[string]*ClassDef
	classByKID map[uint64]*ClassDef
	props      map[string]*PropertyDef
	propByKID  map[uint64]*PropertyDef
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		nextKID:    FirstKID,
		classes:    make(map[string]*ClassDef),
		classByKID: make(map[uint64]*ClassDef),
		props:      make(map[string]*PropertyDef),
		propByKID:  make(map[uint64]*PropertyDef),
	}
}

// DefineClass declares a class with an optional parent class (parent may be
// empty for a root class). Redefining a class with the same parent is a no-op
// returning the existing KID; redefining with a different parent is a
// SchemaError, as is naming an undeclared parent.
func (r *Registry) DefineClass(name, parent string) (uint64, error) {
	if name == "" {
		return 0, schemaErrorf("class name cannot be empty")
	}
	var parentKID uint64
	if parent != "" {
		p, exists := r.classes[parent]
		if !exists {
			return 0, schemaErrorf("class %q references undeclared parent %q", name, parent)
		}
		parentKID = p.KID
	}
	if existing, exists := r.classes[name]; exists {
		if existing.Parent != parentKID {
			return 0, schemaErrorf("class %q redefined with conflicting parent %q",
				name, parent)
		}
		return existing.KID, nil
	}
	def := &ClassDef{KID: r.allocKID(), Name: name, Parent: parentKID}
	r.classes[name] = def
	r.classByKID[def.KID] = def
	return def.KID, nil
}

// DefineProperty declares a predicate with its domain class, range and
// cardinality. The domain class and any range class must already be declared.
// Redefinition with identical domain/range/cardinality is a no-op; any
// conflict is a SchemaError.
func (r *Registry) DefineProperty(name, domain string, rng Range, card Cardinality) (uint64, error) {
	if name == "" {
		return 0, schemaErrorf("property name cannot be empty")
	}
	dom, exists := r.classes[domain]
	if !exists {
		return 0, schemaErrorf("property %q references undeclared domain class %q", name, domain)
	}
	if rng.Kind == RangeEntity {
		if _, exists := r.classByKID[rng.Class]; !exists {
			return 0, schemaErrorf("property %q references undeclared range class #%d", name, rng.Class)
		}
	} else if rng.Class != 0 {
		return 0, schemaErrorf("property %q declares a range class on a literal range", name)
	}
	if existing, exists := r.props[name]; exists {
		if existing.Domain != dom.KID || existing.Range != rng || existing.Card != card {
			return 0, schemaErrorf("property %q redefined with conflicting definition", name)
		}
		return existing.KID, nil
	}
	def := &PropertyDef{
		KID:    r.allocKID(),
		Name:   name,
		Domain: dom.KID,
		Range:  rng,
		Card:   card,
	}
	r.props[name] = def
	r.propByKID[def.KID] = def
	return def.KID, nil
}

func (r *Registry) allocKID() uint64 {
	kid := r.nextKID
	r.nextKID++
	return kid
}

// ClassNamed returns the class definition for name, or nil if not declared.
func (r *Registry) ClassNamed(name string) *ClassDef {
	return r.classes[name]
}

// Class returns the class definition for the KID, or nil.
func (r *Registry) Class(kid uint64) *ClassDef {
	return r.classByKID[kid]
}

// PropertyNamed returns the property definition for name, or nil if not
// declared.
func (r *Registry) PropertyNamed(name string) *PropertyDef {
	return r.props[name]
}

// Property returns the property definition for the KID, or nil.
func (r *Registry) Property(kid uint64) *PropertyDef {
	return r.propByKID[kid]
}

// IsSubclassOf reports whether class a is b or a descendant of b. It is
// reflexive and transitive. Unknown KIDs are not subclasses of anything.
func (r *Registry) IsSubclassOf(a, b uint64) bool {
	for kid := a; kid != 0; {
		if kid == b {
			return true
		}
		def := r.classByKID[kid]
		if def == nil {
			return false
		}
		kid = def.Parent
	}
	return false
}

// Ancestors returns the KIDs of every proper ancestor of the class, nearest
// first. A root class has no ancestors.
func (r *Registry) Ancestors(class uint64) []uint64 {
	var out []uint64
	def := r.classByKID[class]
	if def == nil {
		return nil
	}
	for kid := def.Parent; kid != 0; {
		out = append(out, kid)
		parent := r.classByKID[kid]
		if parent == nil {
			break
		}
		kid = parent.Parent
	}
	return out
}

// SubclassClosure returns the class plus every declared descendant, in
// ascending KID order. Queries for a class must match instances asserted only
// as a subclass, so lookups expand over this closure.
func (r *Registry) SubclassClosure(class uint64) []uint64 {
	if r.classByKID[class] == nil {
		return nil
	}
	out := []uint64{class}
	for i := 0; i < len(out); i++ {
		for _, def := range r.classByKID {
			if def.Parent == out[i] {
				out = append(out, def.KID)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// PropertiesOf returns the property definitions whose domain is the class or
// one of its ancestors, sorted by KID. This is the full set of predicates an
// instance of the class may carry.
func (r *Registry) PropertiesOf(class uint64) []*PropertyDef {
	var out []*PropertyDef
	for _, def := range r.props {
		if r.IsSubclassOf(class, def.Domain) {
			out = append(out, def)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].KID < out[j].KID })
	return out
}
