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

package table

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_PrettyPrint_utf8(t *testing.T) {
	assert := assert.New(t)
	var buf strings.Builder
	PrettyPrint(&buf, [][]string{
		{"Café Río"},
		{"A longer name"},
	}, RightJustify)
	assert.Equal(`
      Café Río |
 A longer name |
`, "\n"+buf.String())
}

func Test_PrettyPrintJustify(t *testing.T) {
	table := [][]string{
		{"customer", "revenue"},
		{"Acme", "600"},
	}
	// default is left
	t.Run("Left", func(t *testing.T) {
		buf := strings.Builder{}
		PrettyPrint(&buf, table, HeaderRow)
		assert.Equal(t, `
 customer | revenue |
 -------- | ------- |
 Acme     | 600     |
`, "\n"+buf.String())
	})
	t.Run("Right", func(t *testing.T) {
		buf := strings.Builder{}
		PrettyPrint(&buf, table, HeaderRow|RightJustify)
		assert.Equal(t, `
 customer | revenue |
 -------- | ------- |
     Acme |     600 |
`, "\n"+buf.String())
	})
}

func Test_PrettyPrintMultiLine(t *testing.T) {
	buf := strings.Builder{}
	PrettyPrint(&buf, [][]string{
		{"customer", "contact"},
		{"Acme", "buy@acme.test\npo@acme.test"},
	}, HeaderRow)
	assert.Equal(t, `
 customer | contact       |
 -------- | ------------- |
 Acme     | buy@acme.test |
          | po@acme.test  |
`, "\n"+buf.String())
}

func Test_SkipEmpty(t *testing.T) {
	assert := assert.New(t)
	headers := [][]string{
		{"customer", "revenue"},
	}
	buf := strings.Builder{}
	PrettyPrint(&buf, headers, SkipEmpty|HeaderRow)
	assert.Equal("", buf.String())

	buf.Reset()
	PrettyPrint(&buf, headers, HeaderRow)
	assert.Equal(`
 customer | revenue |
 -------- | ------- |
`, "\n"+buf.String())

	buf.Reset()
	PrettyPrint(&buf, nil, 0)
	assert.Equal("", buf.String())
}
