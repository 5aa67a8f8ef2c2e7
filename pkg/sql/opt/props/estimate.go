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

package props

import (
	"math"
	"strconv"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/redact"
)

// Estimate is a numeric estimate that may be unknown. Unknown is distinct
// from zero and propagates through arithmetic: any operation with an unknown
// operand yields an unknown result. A known estimate is never NaN.
//
// The zero value is unknown.
type Estimate struct {
	value float64
	known bool
}

// UnknownEstimate returns the unknown estimate.
func UnknownEstimate() Estimate {
	return Estimate{}
}

// ZeroEstimate returns the known estimate 0.
func ZeroEstimate() Estimate {
	return Estimate{known: true}
}

// MakeEstimate returns a known estimate of v, or the unknown estimate if v is
// NaN.
func MakeEstimate(v float64) Estimate {
	if math.IsNaN(v) {
		return Estimate{}
	}
	return Estimate{value: v, known: true}
}

// IsUnknown returns true if the estimate is unknown.
func (e Estimate) IsUnknown() bool {
	return !e.known
}

// Value returns the value of a known estimate. It panics with an assertion
// failure if the estimate is unknown; callers must check IsUnknown first.
func (e Estimate) Value() float64 {
	if !e.known {
		panic(errors.AssertionFailedf("value of unknown estimate requested"))
	}
	return e.value
}

// ValueOr returns the value of the estimate, or def if it is unknown.
func (e Estimate) ValueOr(def float64) float64 {
	if !e.known {
		return def
	}
	return e.value
}

// Map applies f to the value of a known estimate. The unknown estimate maps
// to itself, and a NaN result becomes unknown.
func (e Estimate) Map(f func(float64) float64) Estimate {
	if !e.known {
		return e
	}
	return MakeEstimate(f(e.value))
}

func (e Estimate) combine(other Estimate, f func(a, b float64) float64) Estimate {
	if !e.known || !other.known {
		return Estimate{}
	}
	return MakeEstimate(f(e.value, other.value))
}

// Add returns e + other.
func (e Estimate) Add(other Estimate) Estimate {
	return e.combine(other, func(a, b float64) float64 { return a + b })
}

// Subtract returns e - other.
func (e Estimate) Subtract(other Estimate) Estimate {
	return e.combine(other, func(a, b float64) float64 { return a - b })
}

// Multiply returns e * other.
func (e Estimate) Multiply(other Estimate) Estimate {
	return e.combine(other, func(a, b float64) float64 { return a * b })
}

// Divide returns e / other. Division by a known zero is unknown.
func (e Estimate) Divide(other Estimate) Estimate {
	if other.known && other.value == 0 {
		return Estimate{}
	}
	return e.combine(other, func(a, b float64) float64 { return a / b })
}

// Min returns the smaller of the two estimates.
func (e Estimate) Min(other Estimate) Estimate {
	return e.combine(other, math.Min)
}

// Max returns the larger of the two estimates.
func (e Estimate) Max(other Estimate) Estimate {
	return e.combine(other, math.Max)
}

// Equals returns true if both estimates are unknown, or both are known with
// the same value.
func (e Estimate) Equals(other Estimate) bool {
	return e.known == other.known && e.value == other.value
}

// AlmostEquals is like Equals but tolerates a relative error of epsilon
// between known values.
func (e Estimate) AlmostEquals(other Estimate, epsilon float64) bool {
	if e.known != other.known {
		return false
	}
	if !e.known || e.value == other.value {
		return true
	}
	diff := math.Abs(e.value - other.value)
	scale := math.Max(math.Abs(e.value), math.Abs(other.value))
	return diff <= epsilon*scale
}

func (e Estimate) String() string {
	if !e.known {
		return "?"
	}
	return strconv.FormatFloat(e.value, 'g', 6, 64)
}

// SafeFormat implements redact.SafeFormatter. Estimates never contain user
// data.
func (e Estimate) SafeFormat(s redact.SafePrinter, _ rune) {
	s.SafeString(redact.SafeString(e.String()))
}
