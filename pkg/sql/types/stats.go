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

package types

import (
	"math"
	"math/big"

	"github.com/cockroachdb/apd/v3"
)

// SupportsStatsRange returns true if native minimum and maximum values of the
// type can be projected onto the float64 number line by StatsRepresentation.
func (t *T) SupportsStatsRange() bool {
	switch t.Family {
	case TinyIntFamily, SmallIntFamily, IntFamily, BigIntFamily,
		RealFamily, DoubleFamily, DecimalFamily, DateFamily:
		return true
	}
	return false
}

// StatsRepresentation converts a native value of type t into the float64
// representation used for statistics low and high values. The accepted
// native representations are:
//
//   - integers and dates: any Go integer (dates are days since the epoch)
//   - double: float64
//   - real: float32, float64, or the int64 holding the float32 bits
//   - decimal: the unscaled value as an int64 or *big.Int (scaled by
//     t.Scale), or an *apd.Decimal
//
// It returns false if the type has no numeric projection, the value has an
// unexpected representation, or the result would not be finite.
func StatsRepresentation(t *T, native interface{}) (float64, bool) {
	if native == nil {
		return 0, false
	}
	var f float64
	switch t.Family {
	case TinyIntFamily, SmallIntFamily, IntFamily, BigIntFamily, DateFamily:
		i, ok := asInt64(native)
		if !ok {
			return 0, false
		}
		f = float64(i)

	case DoubleFamily:
		d, ok := native.(float64)
		if !ok {
			return 0, false
		}
		f = d

	case RealFamily:
		switch v := native.(type) {
		case float32:
			f = float64(v)
		case float64:
			f = v
		case int64:
			f = float64(math.Float32frombits(uint32(v)))
		default:
			return 0, false
		}

	case DecimalFamily:
		d, ok := asDecimal(native, t.Scale)
		if !ok {
			return 0, false
		}
		var err error
		if f, err = d.Float64(); err != nil {
			return 0, false
		}

	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func asInt64(native interface{}) (int64, bool) {
	switch v := native.(type) {
	case int:
		return int64(v), true
	case int8:
		return int64(v), true
	case int16:
		return int64(v), true
	case int32:
		return int64(v), true
	case int64:
		return v, true
	}
	return 0, false
}

func asDecimal(native interface{}, scale int32) (*apd.Decimal, bool) {
	switch v := native.(type) {
	case *apd.Decimal:
		return v, v != nil
	case apd.Decimal:
		return &v, true
	case *big.Int:
		if v == nil {
			return nil, false
		}
		var coeff apd.BigInt
		coeff.SetMathBigInt(v)
		return apd.NewWithBigInt(&coeff, -scale), true
	}
	if i, ok := asInt64(native); ok {
		return apd.New(i, -scale), true
	}
	return nil, false
}
