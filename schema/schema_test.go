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

package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildTestRegistry(t *testing.T) *Registry {
	r := NewRegistry()
	mustClass := func(name, parent string) uint64 {
		kid, err := r.DefineClass(name, parent)
		require.NoError(t, err)
		return kid
	}
	mustClass("Customer", "")
	mustClass("EnterpriseCustomer", "Customer")
	mustClass("SMBCustomer", "Customer")
	mustClass("Region", "")
	_, err := r.DefineProperty("customerName", "Customer", Range{Kind: RangeString}, SingleValued)
	require.NoError(t, err)
	_, err = r.DefineProperty("locatedIn", "Customer",
		Range{Kind: RangeEntity, Class: r.ClassNamed("Region").KID}, SingleValued)
	require.NoError(t, err)
	return r
}

func Test_DefineClass(t *testing.T) {
	r := buildTestRegistry(t)

	t.Run("redefinition with same parent is a no-op", func(t *testing.T) {
		existing := r.ClassNamed("EnterpriseCustomer").KID
		kid, err := r.DefineClass("EnterpriseCustomer", "Customer")
		assert.NoError(t, err)
		assert.Equal(t, existing, kid)
	})

	t.Run("conflicting parent", func(t *testing.T) {
		_, err := r.DefineClass("EnterpriseCustomer", "Region")
		require.Error(t, err)
		assert.IsType(t, &SchemaError{}, err)
	})

	t.Run("undeclared parent", func(t *testing.T) {
		_, err := r.DefineClass("PublicSectorCustomer", "Government")
		require.Error(t, err)
		assert.IsType(t, &SchemaError{}, err)
	})

	t.Run("kids start at FirstKID", func(t *testing.T) {
		assert.Equal(t, FirstKID, r.ClassNamed("Customer").KID)
	})
}

func Test_DefineProperty(t *testing.T) {
	r := buildTestRegistry(t)

	t.Run("undeclared domain", func(t *testing.T) {
		_, err := r.DefineProperty("orbitsAround", "Planet", Range{Kind: RangeString}, SingleValued)
		require.Error(t, err)
		assert.IsType(t, &SchemaError{}, err)
	})

	t.Run("conflicting redefinition", func(t *testing.T) {
		_, err := r.DefineProperty("customerName", "Customer", Range{Kind: RangeInt}, SingleValued)
		require.Error(t, err)
		assert.IsType(t, &SchemaError{}, err)
	})

	t.Run("range class on literal range", func(t *testing.T) {
		_, err := r.DefineProperty("weird", "Customer",
			Range{Kind: RangeString, Class: r.ClassNamed("Region").KID}, SingleValued)
		require.Error(t, err)
	})

	t.Run("matching redefinition is a no-op", func(t *testing.T) {
		existing := r.PropertyNamed("customerName").KID
		kid, err := r.DefineProperty("customerName", "Customer", Range{Kind: RangeString}, SingleValued)
		assert.NoError(t, err)
		assert.Equal(t, existing, kid)
	})
}

func Test_IsSubclassOf(t *testing.T) {
	r := buildTestRegistry(t)
	customer := r.ClassNamed("Customer").KID
	enterprise := r.ClassNamed("EnterpriseCustomer").KID
	region := r.ClassNamed("Region").KID

	assert.True(t, r.IsSubclassOf(enterprise, customer))
	assert.True(t, r.IsSubclassOf(customer, customer), "reflexive")
	assert.False(t, r.IsSubclassOf(customer, enterprise))
	assert.False(t, r.IsSubclassOf(enterprise, region))
	assert.False(t, r.IsSubclassOf(12345, customer), "unknown KID")
}

func Test_AncestorsAndClosure(t *testing.T) {
	r := buildTestRegistry(t)
	customer := r.ClassNamed("Customer").KID
	enterprise := r.ClassNamed("EnterpriseCustomer").KID
	smb := r.ClassNamed("SMBCustomer").KID

	assert.Equal(t, []uint64{customer}, r.Ancestors(enterprise))
	assert.Empty(t, r.Ancestors(customer))
	assert.Equal(t, []uint64{customer, enterprise, smb}, r.SubclassClosure(customer))
	assert.Equal(t, []uint64{enterprise}, r.SubclassClosure(enterprise))
	assert.Nil(t, r.SubclassClosure(999))
}

func Test_PropertiesOf(t *testing.T) {
	r := buildTestRegistry(t)
	enterprise := r.ClassNamed("EnterpriseCustomer").KID

	names := []string{}
	for _, def := range r.PropertiesOf(enterprise) {
		names = append(names, def.Name)
	}
	// Inherited from Customer.
	assert.Equal(t, []string{"customerName", "locatedIn"}, names)

	assert.Empty(t, r.PropertiesOf(r.ClassNamed("Region").KID))
}
