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

import "fmt"

// Fact is a single (subject, predicate, object) triple. Every fact has its
// own id KID, so facts can themselves be the subject of metafacts (the
// derivation markers use this).
type Fact struct {
	Id        uint64
	Subject   uint64
	Predicate uint64
	Object    KGObject
}

func (f Fact) String() string {
	return fmt.Sprintf("{id:%d s:%d p:%d o:%v}", f.Id, f.Subject, f.Predicate, f.Object)
}

// spoLess orders facts by (subject, predicate, object, id). It backs the
// store's subject index.
func spoLess(a, b *Fact) bool {
	if a.Subject != b.Subject {
		return a.Subject < b.Subject
	}
	if a.Predicate != b.Predicate {
		return a.Predicate < b.Predicate
	}
	if c := a.Object.Compare(b.Object); c != 0 {
		return c < 0
	}
	return a.Id < b.Id
}

// posLess orders facts by (predicate, object, subject, id). It backs the
// store's predicate and predicate+object indices.
func posLess(a, b *Fact) bool {
	if a.Predicate != b.Predicate {
		return a.Predicate < b.Predicate
	}
	if c := a.Object.Compare(b.Object); c != 0 {
		return c < 0
	}
	if a.Subject != b.Subject {
		return a.Subject < b.Subject
	}
	return a.Id < b.Id
}
