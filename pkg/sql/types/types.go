// Copyright 2024 The Cockroach Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or
// implied. See the License for the specific language governing
// permissions and limitations under the License.

// Package types describes the column types known to the optimizer. The
// optimizer only needs enough type information to reason about value domains:
// whether a column is boolean or integer-like, and how a native minimum or
// maximum value maps onto the float64 number line used by statistics.
package types

import (
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
)

// Family groups types that share a physical representation.
type Family uint8

const (
	UnknownFamily Family = iota
	BoolFamily
	TinyIntFamily
	SmallIntFamily
	IntFamily
	BigIntFamily
	RealFamily
	DoubleFamily
	DecimalFamily
	DateFamily
	TimestampFamily
	VarcharFamily
	CharFamily
	VarbinaryFamily
	ArrayFamily
	MapFamily
	RowFamily

	numFamilies
)

var familyNames = [numFamilies]string{
	UnknownFamily:   "unknown",
	BoolFamily:      "boolean",
	TinyIntFamily:   "tinyint",
	SmallIntFamily:  "smallint",
	IntFamily:       "integer",
	BigIntFamily:    "bigint",
	RealFamily:      "real",
	DoubleFamily:    "double",
	DecimalFamily:   "decimal",
	DateFamily:      "date",
	TimestampFamily: "timestamp",
	VarcharFamily:   "varchar",
	CharFamily:      "char",
	VarbinaryFamily: "varbinary",
	ArrayFamily:     "array",
	MapFamily:       "map",
	RowFamily:       "row",
}

func (f Family) String() string {
	if int(f) < len(familyNames) {
		return familyNames[f]
	}
	return fmt.Sprintf("family(%d)", f)
}

// T is a column type. Types are compared by value; use Identical to compare
// two types.
type T struct {
	Family Family
	// Precision is the decimal precision or the maximum character width. Zero
	// means unbounded.
	Precision int32
	// Scale is the number of fractional digits of a decimal.
	Scale int32
	// ArrayContents is the element type of an array.
	ArrayContents *T
	// MapKey and MapValue are the key and value types of a map.
	MapKey, MapValue *T
	// RowFields are the field types of a row.
	RowFields []*T
}

// Commonly used types.
var (
	Unknown   = &T{Family: UnknownFamily}
	Bool      = &T{Family: BoolFamily}
	TinyInt   = &T{Family: TinyIntFamily}
	SmallInt  = &T{Family: SmallIntFamily}
	Int       = &T{Family: IntFamily}
	BigInt    = &T{Family: BigIntFamily}
	Real      = &T{Family: RealFamily}
	Double    = &T{Family: DoubleFamily}
	Date      = &T{Family: DateFamily}
	Timestamp = &T{Family: TimestampFamily}
	Varchar   = &T{Family: VarcharFamily}
	Varbinary = &T{Family: VarbinaryFamily}
)

// MakeDecimal returns a decimal type with the given precision and scale.
func MakeDecimal(precision, scale int32) *T {
	if scale > precision && precision != 0 {
		panic(errors.AssertionFailedf("decimal scale %d exceeds precision %d", scale, precision))
	}
	return &T{Family: DecimalFamily, Precision: precision, Scale: scale}
}

// MakeVarchar returns a varchar type bounded to width characters.
func MakeVarchar(width int32) *T {
	return &T{Family: VarcharFamily, Precision: width}
}

// MakeChar returns a fixed-width char type.
func MakeChar(width int32) *T {
	return &T{Family: CharFamily, Precision: width}
}

// MakeArray returns an array type with the given element type.
func MakeArray(contents *T) *T {
	return &T{Family: ArrayFamily, ArrayContents: contents}
}

// MakeMap returns a map type with the given key and value types.
func MakeMap(key, value *T) *T {
	return &T{Family: MapFamily, MapKey: key, MapValue: value}
}

// MakeRow returns a row type with the given field types.
func MakeRow(fields ...*T) *T {
	return &T{Family: RowFamily, RowFields: fields}
}

// IsInteger returns true for the fixed-width integer types.
func (t *T) IsInteger() bool {
	switch t.Family {
	case TinyIntFamily, SmallIntFamily, IntFamily, BigIntFamily:
		return true
	}
	return false
}

// IsNumeric returns true for the integer, floating point and decimal types.
func (t *T) IsNumeric() bool {
	switch t.Family {
	case RealFamily, DoubleFamily, DecimalFamily:
		return true
	}
	return t.IsInteger()
}

// IsDiscrete returns true if the values of the type form a discrete domain,
// so that a [low, high] range contains at most high-low+1 distinct values.
func (t *T) IsDiscrete() bool {
	return t.IsInteger() || t.Family == DateFamily
}

// Identical returns true if the two types are exactly the same.
func (t *T) Identical(other *T) bool {
	if t == other {
		return true
	}
	if t == nil || other == nil {
		return false
	}
	if t.Family != other.Family || t.Precision != other.Precision || t.Scale != other.Scale {
		return false
	}
	if !identicalOrNil(t.ArrayContents, other.ArrayContents) ||
		!identicalOrNil(t.MapKey, other.MapKey) ||
		!identicalOrNil(t.MapValue, other.MapValue) {
		return false
	}
	if len(t.RowFields) != len(other.RowFields) {
		return false
	}
	for i := range t.RowFields {
		if !t.RowFields[i].Identical(other.RowFields[i]) {
			return false
		}
	}
	return true
}

func identicalOrNil(a, b *T) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Identical(b)
}

// SQLString returns the type as it would be written in a SQL statement.
func (t *T) SQLString() string {
	switch t.Family {
	case DecimalFamily:
		if t.Precision == 0 {
			return "decimal"
		}
		return fmt.Sprintf("decimal(%d,%d)", t.Precision, t.Scale)
	case VarcharFamily, CharFamily:
		if t.Precision == 0 {
			return t.Family.String()
		}
		return fmt.Sprintf("%s(%d)", t.Family, t.Precision)
	case ArrayFamily:
		return fmt.Sprintf("array(%s)", t.ArrayContents.SQLString())
	case MapFamily:
		return fmt.Sprintf("map(%s,%s)", t.MapKey.SQLString(), t.MapValue.SQLString())
	case RowFamily:
		var b strings.Builder
		b.WriteString("row(")
		for i, f := range t.RowFields {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(f.SQLString())
		}
		b.WriteByte(')')
		return b.String()
	}
	return t.Family.String()
}

func (t *T) String() string {
	return t.SQLString()
}
