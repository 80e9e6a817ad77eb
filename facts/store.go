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

// Package facts implements the in-memory typed triple store. Facts are held
// in two btree orderings, (subject, predicate, object) and (predicate,
// object, subject), so that point lookups and predicate scans are both
// sub-linear. The store is single-writer: the loader and the inference pass
// populate it sequentially, after which it serves read-only lookups and is
// safe for concurrent readers.
package facts

import (
	"fmt"
	"sort"

	"github.com/ebay/kanaga/schema"
	"github.com/google/btree"
)

// UnknownPropertyError reports an assert whose predicate is not a well-known
// KID and not declared in the schema.
type UnknownPropertyError struct {
	Predicate uint64
}

func (e *UnknownPropertyError) Error() string {
	return fmt.Sprintf("facts: predicate #%d is not declared in the schema", e.Predicate)
}

// RangeMismatchError reports an assert whose object type does not match the
// predicate's declared range.
type RangeMismatchError struct {
	Predicate uint64
	Name      string
	Declared  schema.RangeKind
	Got       ValueType
}

func (e *RangeMismatchError) Error() string {
	return fmt.Sprintf("facts: predicate %s(#%d) declares range %v, object is %v",
		e.Name, e.Predicate, e.Declared, e.Got)
}

// Store is the btree-indexed fact set. Construct with NewStore; a Store owns
// its registry reference but never mutates it.
type Store struct {
	registry *schema.Registry
	spo      *btree.BTreeG[*Fact]
	pos      *btree.BTreeG[*Fact]
	nextKID  uint64
	extIDs   map[string]uint64
	extByKID map[uint64]string
}

// NewStore returns an empty Store validating asserts against the supplied
// registry.
func NewStore(registry *schema.Registry) *Store {
	return &Store{
		registry: registry,
		spo:      btree.NewG(16, spoLess),
		pos:      btree.NewG(16, posLess),
		nextKID:  FirstEntityKID,
		extIDs:   make(map[string]uint64),
		extByKID: make(map[uint64]string),
	}
}

// Registry returns the schema registry the store validates against.
func (s *Store) Registry() *schema.Registry {
	return s.registry
}

// NumFacts returns the number of facts currently indexed, metafacts included.
func (s *Store) NumFacts() int {
	return s.spo.Len()
}

// NewEntity allocates a KID for a new entity of the given class, asserting
// its InstanceOf fact and, if externalID is non-empty, its HasExternalID
// fact. It fails if the external ID is already taken; callers that want
// reuse-by-natural-key should ResolveExternalID first.
func (s *Store) NewEntity(class uint64, externalID string) (uint64, error) {
	if s.registry.Class(class) == nil {
		return 0, fmt.Errorf("facts: new entity references undeclared class #%d", class)
	}
	if externalID != "" {
		if kid, exists := s.extIDs[externalID]; exists {
			return 0, fmt.Errorf("facts: external ID %q already names entity #%d", externalID, kid)
		}
	}
	kid := s.allocKID()
	if _, err := s.Assert(kid, InstanceOf, AKID(class)); err != nil {
		return 0, err
	}
	if externalID != "" {
		if _, err := s.Assert(kid, HasExternalID, AString(externalID)); err != nil {
			return 0, err
		}
		s.extIDs[externalID] = kid
		s.extByKID[kid] = externalID
	}
	return kid, nil
}

// ResolveExternalID returns the KID previously assigned to the external ID.
func (s *Store) ResolveExternalID(externalID string) (uint64, bool) {
	kid, exists := s.extIDs[externalID]
	return kid, exists
}

// ExternalID returns the external ID of an entity, or "" if it has none.
func (s *Store) ExternalID(kid uint64) string {
	return s.extByKID[kid]
}

func (s *Store) allocKID() uint64 {
	kid := s.nextKID
	s.nextKID++
	return kid
}

// Assert adds the triple to the store and returns the indexed fact. An exact
// duplicate of an existing fact is a no-op returning the existing fact. For
// single-valued predicates any prior value for (subject, predicate) is
// superseded: the old fact is dropped from the indices and the new one takes
// its place.
func (s *Store) Assert(subject, predicate uint64, object KGObject) (Fact, error) {
	card, err := s.checkPredicate(predicate, object)
	if err != nil {
		return Fact{}, err
	}
	existing := s.factsSP(subject, predicate)
	for _, f := range existing {
		if f.Object.Equal(object) {
			return *f, nil
		}
	}
	if card == schema.SingleValued {
		for _, old := range existing {
			s.spo.Delete(old)
			s.pos.Delete(old)
		}
	}
	fact := &Fact{
		Id:        s.allocKID(),
		Subject:   subject,
		Predicate: predicate,
		Object:    object,
	}
	s.spo.ReplaceOrInsert(fact)
	s.pos.ReplaceOrInsert(fact)
	return *fact, nil
}

// checkPredicate validates predicate and object against the well-known
// predicates or the schema, returning the predicate's cardinality.
func (s *Store) checkPredicate(predicate uint64, object KGObject) (schema.Cardinality, error) {
	switch predicate {
	case InstanceOf:
		if object.ValueType() != KtKID {
			return 0, &RangeMismatchError{Predicate: predicate,
				Name: WellKnownName(predicate), Declared: schema.RangeEntity,
				Got: object.ValueType()}
		}
		if s.registry.Class(object.ValKID()) == nil {
			return 0, fmt.Errorf("facts: instanceOf object #%d is not a declared class", object.ValKID())
		}
		return schema.MultiValued, nil
	case HasExternalID, DerivedBy:
		if object.ValueType() != KtString {
			return 0, &RangeMismatchError{Predicate: predicate,
				Name: WellKnownName(predicate), Declared: schema.RangeString,
				Got: object.ValueType()}
		}
		if predicate == DerivedBy {
			return schema.MultiValued, nil
		}
		return schema.SingleValued, nil
	}
	def := s.registry.Property(predicate)
	if def == nil {
		return 0, &UnknownPropertyError{Predicate: predicate}
	}
	if !rangeAccepts(def.Range.Kind, object.ValueType()) {
		return 0, &RangeMismatchError{Predicate: predicate, Name: def.Name,
			Declared: def.Range.Kind, Got: object.ValueType()}
	}
	return def.Card, nil
}

func rangeAccepts(kind schema.RangeKind, vt ValueType) bool {
	switch kind {
	case schema.RangeEntity:
		return vt == KtKID
	case schema.RangeString:
		return vt == KtString
	case schema.RangeInt:
		return vt == KtInt64
	case schema.RangeFloat:
		return vt == KtFloat64 || vt == KtInt64
	case schema.RangeDate:
		return vt == KtTimestamp
	}
	return false
}

// factsSP returns the facts for (subject, predicate) in object order.
func (s *Store) factsSP(subject, predicate uint64) []*Fact {
	var out []*Fact
	pivot := &Fact{Subject: subject, Predicate: predicate}
	s.spo.AscendGreaterOrEqual(pivot, func(f *Fact) bool {
		if f.Subject != subject || f.Predicate != predicate {
			return false
		}
		out = append(out, f)
		return true
	})
	return out
}

// Lookup returns all facts matching the given positions, in index order. A
// zero subject or predicate and a KtNil object each match everything.
// Lookups through InstanceOf reason over the class hierarchy: querying for a
// class matches instances asserted only as one of its subclasses, with the
// matched fact rewritten to the queried class.
func (s *Store) Lookup(subject, predicate uint64, object KGObject) []Fact {
	if predicate == InstanceOf {
		return s.lookupInstanceOf(subject, object)
	}
	var out []Fact
	match := func(f *Fact) bool {
		if object.ValueType() != KtNil && !f.Object.Equal(object) {
			return false
		}
		return true
	}
	switch {
	case subject != 0:
		// With a zero predicate the pivot sits at the start of the subject's
		// whole range, so the same scan covers both shapes.
		pivot := &Fact{Subject: subject, Predicate: predicate}
		s.spo.AscendGreaterOrEqual(pivot, func(f *Fact) bool {
			if f.Subject != subject {
				return false
			}
			if predicate != 0 && f.Predicate != predicate {
				return false
			}
			if match(f) {
				out = append(out, *f)
			}
			return true
		})
	case predicate != 0:
		pivot := &Fact{Predicate: predicate, Object: object}
		s.pos.AscendGreaterOrEqual(pivot, func(f *Fact) bool {
			if f.Predicate != predicate {
				return false
			}
			if object.ValueType() != KtNil && !f.Object.Equal(object) {
				return false
			}
			out = append(out, *f)
			return true
		})
	default:
		s.spo.Ascend(func(f *Fact) bool {
			if match(f) {
				out = append(out, *f)
			}
			return true
		})
	}
	return out
}

// lookupInstanceOf implements Lookup for the InstanceOf predicate, expanding
// subclass closures (object bound) or ancestor chains (object unbound).
func (s *Store) lookupInstanceOf(subject uint64, object KGObject) []Fact {
	var out []Fact
	if object.ValueType() == KtKID {
		class := object.ValKID()
		if subject != 0 {
			for _, asserted := range s.factsSP(subject, InstanceOf) {
				if s.registry.IsSubclassOf(asserted.Object.ValKID(), class) {
					out = append(out, Fact{Id: asserted.Id, Subject: subject,
						Predicate: InstanceOf, Object: AKID(class)})
					break
				}
			}
			return out
		}
		seen := make(map[uint64]struct{})
		for _, sub := range s.registry.SubclassClosure(class) {
			pivot := &Fact{Predicate: InstanceOf, Object: AKID(sub)}
			s.pos.AscendGreaterOrEqual(pivot, func(f *Fact) bool {
				if f.Predicate != InstanceOf || !f.Object.Equal(AKID(sub)) {
					return false
				}
				if _, dup := seen[f.Subject]; !dup {
					seen[f.Subject] = struct{}{}
					out = append(out, Fact{Id: f.Id, Subject: f.Subject,
						Predicate: InstanceOf, Object: AKID(class)})
				}
				return true
			})
		}
		return out
	}
	// Object unbound: return asserted memberships plus the inferred ancestor
	// memberships for each subject.
	appendWithAncestors := func(f *Fact) {
		out = append(out, *f)
		for _, anc := range s.registry.Ancestors(f.Object.ValKID()) {
			out = append(out, Fact{Id: f.Id, Subject: f.Subject,
				Predicate: InstanceOf, Object: AKID(anc)})
		}
	}
	if subject != 0 {
		seen := make(map[uint64]struct{})
		for _, f := range s.factsSP(subject, InstanceOf) {
			appendWithAncestors(f)
		}
		return dedupByObject(out, seen)
	}
	pivot := &Fact{Predicate: InstanceOf}
	s.pos.AscendGreaterOrEqual(pivot, func(f *Fact) bool {
		if f.Predicate != InstanceOf {
			return false
		}
		appendWithAncestors(f)
		return true
	})
	return dedupInstanceFacts(out)
}

// dedupByObject drops facts repeating an object class, preserving order.
func dedupByObject(in []Fact, seen map[uint64]struct{}) []Fact {
	out := in[:0]
	for _, f := range in {
		class := f.Object.ValKID()
		if _, dup := seen[class]; dup {
			continue
		}
		seen[class] = struct{}{}
		out = append(out, f)
	}
	return out
}

// dedupInstanceFacts drops repeated (subject, class) memberships, preserving
// order.
func dedupInstanceFacts(in []Fact) []Fact {
	type sc struct{ subject, class uint64 }
	seen := make(map[sc]struct{}, len(in))
	out := in[:0]
	for _, f := range in {
		key := sc{f.Subject, f.Object.ValKID()}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, f)
	}
	return out
}

// ClassesOf returns every class the entity belongs to, asserted classes and
// their ancestors included, deduplicated, in ascending KID order.
func (s *Store) ClassesOf(entity uint64) []uint64 {
	seen := make(map[uint64]struct{})
	var out []uint64
	add := func(kid uint64) {
		if _, dup := seen[kid]; !dup {
			seen[kid] = struct{}{}
			out = append(out, kid)
		}
	}
	for _, f := range s.factsSP(entity, InstanceOf) {
		add(f.Object.ValKID())
		for _, anc := range s.registry.Ancestors(f.Object.ValKID()) {
			add(anc)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
