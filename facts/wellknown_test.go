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

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// The names must resolve back to their KIDs: pattern queries reference these
// predicates by name, as in "?e <InstanceOf> <Customer>".
func Test_WellKnownNames(t *testing.T) {
	for kid, name := range wellKnownNames {
		assert.Equal(t, kid, WellKnownKID(name), name)
		assert.Equal(t, name, WellKnownName(kid))
	}
	assert.Equal(t, InstanceOf, WellKnownKID("InstanceOf"))
	assert.Equal(t, HasExternalID, WellKnownKID("HasExternalID"))
	assert.Equal(t, DerivedBy, WellKnownKID("DerivedBy"))
	assert.Zero(t, WellKnownKID("instanceOf"))
	assert.Empty(t, WellKnownName(99))
}
