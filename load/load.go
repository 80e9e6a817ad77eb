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

// Package load turns flat tabular records into graph facts, driven by a
// declarative Mapping. Each record produces exactly one new transaction
// entity plus one entity per referenced dimension; dimension entities are
// deduplicated by their natural key, so two records naming the same
// customer share one customer node. A bad record is skipped and reported,
// never fatal. Loading is deterministic: the same records through the same
// mapping build structurally identical graphs.
package load

import (
	"fmt"
	"strconv"

	log "github.com/sirupsen/logrus"

	"github.com/ebay/kanaga/facts"
	"github.com/ebay/kanaga/schema"
)

// Row is one flat input record, column name to raw text value. Values are
// converted to the typed object each target property's range declares.
type Row map[string]string

// Field copies one record column onto an entity as a literal fact.
type Field struct {
	// Column is the record column read.
	Column string
	// Predicate names the property asserted. Its declared range drives the
	// text conversion.
	Predicate string
}

// Reference links a dimension to another deduplicated entity, a customer
// to its region. The referent is created on first use like a dimension,
// with its natural key as its only fact besides the class tag.
type Reference struct {
	// Class is the referent's class.
	Class string
	// Key is the record column holding the referent's natural key.
	Key string
	// Predicate is the object property asserted from the dimension to the
	// referent.
	Predicate string
}

// Dimension declares one entity a record references: a customer, product,
// region. Dimensions are deduplicated across records by natural key.
type Dimension struct {
	// Class is the dimension entity's class.
	Class string
	// Key is the record column holding the natural key. It doubles as the
	// entity's external ID.
	Key string
	// Predicate is the entity-valued property asserted from the transaction
	// to the dimension.
	Predicate string
	// Fields are literal facts asserted on the dimension entity itself.
	Fields []Field
	// References are links from this dimension to other entities.
	References []Reference
}

// Mapping declares how records become facts.
type Mapping struct {
	// TransactionClass is the class of the entity created for each record.
	TransactionClass string
	// Key is the record column whose value becomes the transaction's
	// external ID. If empty, IDs are synthesized from the class name and
	// the record's position.
	Key string
	// Dimensions are the entities each record references.
	Dimensions []Dimension
	// Fields are literal facts asserted on the transaction entity.
	Fields []Field
}

// RowError records one skipped record.
type RowError struct {
	// Row is the zero-based position of the record in the input.
	Row int
	Err error
}

func (e RowError) Error() string {
	return fmt.Sprintf("row %d: %v", e.Row, e.Err)
}

// Report summarizes one load.
type Report struct {
	// RowsLoaded counts the records that produced a transaction entity.
	RowsLoaded int
	// EntitiesCreated counts new entities, transactions and dimensions both.
	EntitiesCreated int
	// FactsAsserted counts the facts added to the store.
	FactsAsserted int
	// Skipped lists the records rejected with their reasons.
	Skipped []RowError
}

// typedFact is a fully validated fact waiting to be asserted.
type typedFact struct {
	subject   func() uint64 // resolved after entity creation
	predicate uint64
	object    facts.KGObject
}

// Load runs the records through the mapping into the store. Records are
// processed in input order; a record that fails validation (missing key or
// column, unconvertible value, undeclared property) is skipped, logged, and
// recorded in the report, and the load continues. A skipped record asserts
// nothing, though a dimension entity it shares with valid records may still
// exist. Load only returns an error for a broken mapping, never for bad
// records.
func Load(store *facts.Store, mapping *Mapping, rows []Row) (*Report, error) {
	registry := store.Registry()
	txClass := registry.ClassNamed(mapping.TransactionClass)
	if txClass == nil {
		return nil, fmt.Errorf("load: transaction class %s is not declared", mapping.TransactionClass)
	}
	for _, d := range mapping.Dimensions {
		if registry.ClassNamed(d.Class) == nil {
			return nil, fmt.Errorf("load: dimension class %s is not declared", d.Class)
		}
		if def := registry.PropertyNamed(d.Predicate); def == nil || !def.IsObjectProperty() {
			return nil, fmt.Errorf("load: dimension predicate %s is not a declared object property", d.Predicate)
		}
		for _, ref := range d.References {
			if registry.ClassNamed(ref.Class) == nil {
				return nil, fmt.Errorf("load: reference class %s is not declared", ref.Class)
			}
			if def := registry.PropertyNamed(ref.Predicate); def == nil || !def.IsObjectProperty() {
				return nil, fmt.Errorf("load: reference predicate %s is not a declared object property", ref.Predicate)
			}
		}
	}

	report := &Report{}
	for i, row := range rows {
		if err := loadRow(store, mapping, i, row, report); err != nil {
			report.Skipped = append(report.Skipped, RowError{Row: i, Err: err})
			log.WithError(err).Warnf("skipping row %d", i)
		}
	}
	return report, nil
}

// loadRow validates the whole record first and only then mutates the
// store, so a skipped record leaves no partial transaction behind.
func loadRow(store *facts.Store, mapping *Mapping, idx int, row Row, report *Report) error {
	registry := store.Registry()

	// Validation pass: resolve keys and convert every literal up front.
	type refEntity struct {
		ref *Reference
		key string
	}
	type dimEntity struct {
		dim  *Dimension
		key  string
		kid  uint64 // zero until created or resolved
		refs []refEntity
	}
	dims := make([]dimEntity, len(mapping.Dimensions))
	var pending []typedFact
	for di := range mapping.Dimensions {
		d := &mapping.Dimensions[di]
		key, ok := row[d.Key]
		if !ok || key == "" {
			return fmt.Errorf("missing %s key %q", d.Class, d.Key)
		}
		dims[di] = dimEntity{dim: d, key: key}
		for ri := range d.References {
			ref := &d.References[ri]
			refKey, ok := row[ref.Key]
			if !ok || refKey == "" {
				return fmt.Errorf("missing %s key %q", ref.Class, ref.Key)
			}
			dims[di].refs = append(dims[di].refs, refEntity{ref: ref, key: refKey})
		}
		subject := &dims[di].kid
		for _, f := range d.Fields {
			raw, ok := row[f.Column]
			if !ok {
				return fmt.Errorf("missing column %q", f.Column)
			}
			obj, err := Convert(registry, f.Predicate, raw)
			if err != nil {
				return err
			}
			pending = append(pending, typedFact{
				subject:   func() uint64 { return *subject },
				predicate: registry.PropertyNamed(f.Predicate).KID,
				object:    obj,
			})
		}
	}
	var txKID uint64
	for _, f := range mapping.Fields {
		raw, ok := row[f.Column]
		if !ok {
			return fmt.Errorf("missing column %q", f.Column)
		}
		obj, err := Convert(registry, f.Predicate, raw)
		if err != nil {
			return err
		}
		pending = append(pending, typedFact{
			subject:   func() uint64 { return txKID },
			predicate: registry.PropertyNamed(f.Predicate).KID,
			object:    obj,
		})
	}
	txID := fmt.Sprintf("%s-%d", mapping.TransactionClass, idx+1)
	if mapping.Key != "" {
		txID = row[mapping.Key]
		if txID == "" {
			return fmt.Errorf("missing transaction key %q", mapping.Key)
		}
	}
	if _, exists := store.ResolveExternalID(txID); exists {
		return fmt.Errorf("duplicate transaction ID %q", txID)
	}

	// Mutation pass: every value is already typed, only entity creation
	// can still fail and only for schema-level reasons.
	entityFor := func(class, key string) (uint64, error) {
		kid, exists := store.ResolveExternalID(key)
		if exists {
			return kid, nil
		}
		kid, err := store.NewEntity(registry.ClassNamed(class).KID, key)
		if err != nil {
			return 0, err
		}
		report.EntitiesCreated++
		report.FactsAsserted += 2 // InstanceOf + HasExternalID
		return kid, nil
	}
	for di := range dims {
		d := &dims[di]
		kid, err := entityFor(d.dim.Class, d.key)
		if err != nil {
			return err
		}
		d.kid = kid
		for _, r := range d.refs {
			refKID, err := entityFor(r.ref.Class, r.key)
			if err != nil {
				return err
			}
			before := store.NumFacts()
			if _, err := store.Assert(kid, registry.PropertyNamed(r.ref.Predicate).KID, facts.AKID(refKID)); err != nil {
				return err
			}
			report.FactsAsserted += store.NumFacts() - before
		}
	}
	var err error
	txKID, err = store.NewEntity(registry.ClassNamed(mapping.TransactionClass).KID, txID)
	if err != nil {
		return err
	}
	report.EntitiesCreated++
	report.FactsAsserted += 2
	for di := range dims {
		d := &dims[di]
		before := store.NumFacts()
		if _, err := store.Assert(txKID, registry.PropertyNamed(d.dim.Predicate).KID, facts.AKID(d.kid)); err != nil {
			return err
		}
		report.FactsAsserted += store.NumFacts() - before
	}
	for _, f := range pending {
		before := store.NumFacts()
		if _, err := store.Assert(f.subject(), f.predicate, f.object); err != nil {
			return err
		}
		report.FactsAsserted += store.NumFacts() - before
	}
	report.RowsLoaded++
	return nil
}

// Convert parses raw column text into the typed object the property's
// declared range calls for.
func Convert(registry *schema.Registry, predicate, raw string) (facts.KGObject, error) {
	def := registry.PropertyNamed(predicate)
	if def == nil {
		return facts.KGObject{}, fmt.Errorf("property %s is not declared", predicate)
	}
	switch def.Range.Kind {
	case schema.RangeString:
		return facts.AString(raw), nil
	case schema.RangeInt:
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return facts.KGObject{}, fmt.Errorf("%s: %q is not an int", predicate, raw)
		}
		return facts.AInt64(v), nil
	case schema.RangeFloat:
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return facts.KGObject{}, fmt.Errorf("%s: %q is not a number", predicate, raw)
		}
		return facts.AFloat64(v), nil
	case schema.RangeDate:
		obj, err := facts.ParseDate(raw)
		if err != nil {
			return facts.KGObject{}, fmt.Errorf("%s: %q is not a %s date", predicate, raw, facts.DatePattern)
		}
		return obj, nil
	}
	return facts.KGObject{}, fmt.Errorf("property %s is entity-valued, not a literal field", predicate)
}
