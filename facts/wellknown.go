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

package facts

// Well-known KIDs needed to bootstrap any graph. These predicates exist in
// every store regardless of the schema configuration, below schema.FirstKID.
const (
	// InstanceOf declares that a subject is an instance of a class. An entity
	// may carry several InstanceOf facts (multi-classification), and lookups
	// through InstanceOf reason over the class hierarchy.
	InstanceOf uint64 = 2

	// HasExternalID attaches the caller-supplied external identifier to an
	// entity. External IDs are unique within a store.
	HasExternalID uint64 = 4

	// DerivedBy marks a fact as produced by an inference rule. The subject is
	// the derived fact's own id; the object is the rule name. Facts without a
	// DerivedBy marker were loaded as base data.
	DerivedBy uint64 = 7
)

// FirstEntityKID is the first KID a Store assigns to entities and facts.
// Schema definitions live between schema.FirstKID and here.
const FirstEntityKID uint64 = 10000

var wellKnownNames = map[uint64]string{
	InstanceOf:    "InstanceOf",
	HasExternalID: "HasExternalID",
	DerivedBy:     "DerivedBy",
}

// WellKnownName returns the display name of a well-known KID, or "" if the
// KID is not well-known.
func WellKnownName(kid uint64) string {
	return wellKnownNames[kid]
}

// WellKnownKID returns the KID for a well-known predicate name, or zero.
func WellKnownKID(name string) uint64 {
	for kid, n := range wellKnownNames {
		if n == name {
			return kid
		}
	}
	return 0
}
