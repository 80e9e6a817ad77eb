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
	"fmt"
	"time"
)

// ValueType describes the type of value held in a KGObject.
type ValueType int

// The possible KGObject value types. KtNil is the zero KGObject.
const (
	KtNil ValueType = iota
	KtKID
	KtString
	KtInt64
	KtFloat64
	KtTimestamp
)

func (v ValueType) String() string {
	switch v {
	case KtNil:
		return "nil"
	case KtKID:
		return "kid"
	case KtString:
		return "string"
	case KtInt64:
		return "int64"
	case KtFloat64:
		return "float64"
	case KtTimestamp:
		return "timestamp"
	}
	return fmt.Sprintf("ValueType(%d)", int(v))
}

// DatePattern is the time layout used for date literals. Dates are held at
// day precision.
const DatePattern = "2006-01-02"

// KGObject is the typed object position of a fact: either a reference to
// another node in the graph (a KID), or a literal. The zero value is KtNil,
// which matches nothing and appears only as the unbound-variable marker in
// query results.
type KGObject struct {
	vt  ValueType
	kid uint64
	str string
	i64 int64
	f64 float64
	ts  time.Time
}

// AKID returns a KGObject holding a reference to the node with the given KID.
func AKID(kid uint64) KGObject {
	return KGObject{vt: KtKID, kid: kid}
}

// AString returns a KGObject holding a string literal.
func AString(s string) KGObject {
	return KGObject{vt: KtString, str: s}
}

// AInt64 returns a KGObject holding an int64 literal.
func AInt64(i int64) KGObject {
	return KGObject{vt: KtInt64, i64: i}
}

// AFloat64 returns a KGObject holding a float64 literal.
func AFloat64(f float64) KGObject {
	return KGObject{vt: KtFloat64, f64: f}
}

// ATimestamp returns a KGObject holding a date literal, truncated to day
// precision in UTC.
func ATimestamp(t time.Time) KGObject {
	y, m, d := t.Date()
	return KGObject{vt: KtTimestamp, ts: time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

// ParseDate returns a date KGObject parsed from the 2006-01-02 layout.
func ParseDate(s string) (KGObject, error) {
	t, err := time.Parse(DatePattern, s)
	if err != nil {
		return KGObject{}, err
	}
	return ATimestamp(t), nil
}

// ValueType returns the type of the value held in this KGObject.
func (o KGObject) ValueType() ValueType {
	return o.vt
}

// IsLiteral returns true for string/int/float/timestamp values.
func (o KGObject) IsLiteral() bool {
	switch o.vt {
	case KtString, KtInt64, KtFloat64, KtTimestamp:
		return true
	}
	return false
}

// ValKID returns the KID held in this KGObject, or zero if it isn't a KID.
func (o KGObject) ValKID() uint64 {
	if o.vt == KtKID {
		return o.kid
	}
	return 0
}

// ValString returns the string held in this KGObject, or "" if it isn't a
// string.
func (o KGObject) ValString() string {
	if o.vt == KtString {
		return o.str
	}
	return ""
}

// ValInt64 returns the int64 held in this KGObject, or zero.
func (o KGObject) ValInt64() int64 {
	if o.vt == KtInt64 {
		return o.i64
	}
	return 0
}

// ValFloat64 returns the float64 held in this KGObject, or zero.
func (o KGObject) ValFloat64() float64 {
	if o.vt == KtFloat64 {
		return o.f64
	}
	return 0
}

// ValTimestamp returns the date held in this KGObject, or the zero time.
func (o KGObject) ValTimestamp() time.Time {
	if o.vt == KtTimestamp {
		return o.ts
	}
	return time.Time{}
}

// Float64 returns the numeric value of an int or float KGObject as a float64.
// ok is false for non-numeric values.
func (o KGObject) Float64() (val float64, ok bool) {
	switch o.vt {
	case KtInt64:
		return float64(o.i64), true
	case KtFloat64:
		return o.f64, true
	}
	return 0, false
}

// Equal returns true if this KGObject holds the same typed value as other.
func (o KGObject) Equal(other KGObject) bool {
	if o.vt != other.vt {
		return false
	}
	switch o.vt {
	case KtNil:
		return true
	case KtKID:
		return o.kid == other.kid
	case KtString:
		return o.str == other.str
	case KtInt64:
		return o.i64 == other.i64
	case KtFloat64:
		return o.f64 == other.f64
	case KtTimestamp:
		return o.ts.Equal(other.ts)
	}
	panic(fmt.Sprintf("Unknown KGObject type %v", o.vt))
}

// Less returns true if this KGObject sorts before other. Values of different
// types order by type; within a type the natural value order applies. This is
// the ordering used by the store's indices and by ORDER BY.
func (o KGObject) Less(other KGObject) bool {
	return o.Compare(other) < 0
}

// Compare returns an integer comparing two KGObjects: 0 if o==other, -1 if
// o sorts before other, +1 after.
func (o KGObject) Compare(other KGObject) int {
	if o.vt != other.vt {
		if o.vt < other.vt {
			return -1
		}
		return 1
	}
	switch o.vt {
	case KtNil:
		return 0
	case KtKID:
		return compareUint64(o.kid, other.kid)
	case KtString:
		switch {
		case o.str < other.str:
			return -1
		case o.str > other.str:
			return 1
		}
		return 0
	case KtInt64:
		switch {
		case o.i64 < other.i64:
			return -1
		case o.i64 > other.i64:
			return 1
		}
		return 0
	case KtFloat64:
		switch {
		case o.f64 < other.f64:
			return -1
		case o.f64 > other.f64:
			return 1
		}
		return 0
	case KtTimestamp:
		switch {
		case o.ts.Before(other.ts):
			return -1
		case o.ts.After(other.ts):
			return 1
		}
		return 0
	}
	panic(fmt.Sprintf("Unknown KGObject type %v", o.vt))
}

func compareUint64(a, b uint64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func (o KGObject) String() string {
	switch o.vt {
	case KtNil:
		return "(nil)"
	case KtKID:
		return fmt.Sprintf("#%d", o.kid)
	case KtString:
		return fmt.Sprintf("'%s'", o.str)
	case KtInt64:
		return fmt.Sprintf("%d", o.i64)
	case KtFloat64:
		return fmt.Sprintf("%f", o.f64)
	case KtTimestamp:
		return o.ts.Format(DatePattern)
	}
	panic(fmt.Sprintf("Unknown KGObject type %v", o.vt))
}
