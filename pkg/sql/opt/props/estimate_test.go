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
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"
)

var sampleValues = []float64{0, 1, -1, 0.5, 3, 1e9, -2.25}

func TestEstimateUnknownPropagation(t *testing.T) {
	unknown := UnknownEstimate()
	for _, v := range sampleValues {
		known := MakeEstimate(v)
		for _, pair := range [][2]Estimate{{unknown, known}, {known, unknown}, {unknown, unknown}} {
			a, b := pair[0], pair[1]
			require.True(t, a.Add(b).IsUnknown())
			require.True(t, a.Subtract(b).IsUnknown())
			require.True(t, a.Multiply(b).IsUnknown())
			require.True(t, a.Divide(b).IsUnknown())
			require.True(t, a.Min(b).IsUnknown())
			require.True(t, a.Max(b).IsUnknown())
		}
	}
	require.True(t, unknown.Map(func(float64) float64 { return 1 }).IsUnknown())
}

func TestEstimateMap(t *testing.T) {
	fns := []func(float64) float64{
		func(x float64) float64 { return x + 1 },
		func(x float64) float64 { return x * x },
		math.Abs,
		math.Sqrt,
	}
	for _, v := range sampleValues {
		for _, f := range fns {
			require.True(t, MakeEstimate(v).Map(f).Equals(MakeEstimate(f(v))), "%v", v)
		}
	}
	// sqrt(-1) is NaN, which is unknown rather than a known NaN.
	require.True(t, MakeEstimate(-1).Map(math.Sqrt).IsUnknown())
}

func TestEstimateArithmetic(t *testing.T) {
	a, b := MakeEstimate(6), MakeEstimate(4)
	require.Equal(t, 10.0, a.Add(b).Value())
	require.Equal(t, 2.0, a.Subtract(b).Value())
	require.Equal(t, 24.0, a.Multiply(b).Value())
	require.Equal(t, 1.5, a.Divide(b).Value())
	require.Equal(t, 4.0, a.Min(b).Value())
	require.Equal(t, 6.0, a.Max(b).Value())

	// Division by zero is unknown, not infinite.
	require.True(t, a.Divide(ZeroEstimate()).IsUnknown())
	require.True(t, ZeroEstimate().Divide(ZeroEstimate()).IsUnknown())

	require.True(t, MakeEstimate(math.NaN()).IsUnknown())
	require.False(t, ZeroEstimate().IsUnknown())
	require.Equal(t, 0.0, ZeroEstimate().Value())
	require.Equal(t, 7.0, UnknownEstimate().ValueOr(7))

	var zero Estimate
	require.True(t, zero.IsUnknown())
}

func TestEstimateValuePanicsOnUnknown(t *testing.T) {
	defer func() {
		r := recover()
		err, ok := r.(error)
		require.True(t, ok)
		require.True(t, errors.HasAssertionFailure(err))
	}()
	_ = UnknownEstimate().Value()
}

func TestEstimateString(t *testing.T) {
	require.Equal(t, "?", UnknownEstimate().String())
	require.Equal(t, "1000", MakeEstimate(1000).String())
	require.Equal(t, "0.333333", MakeEstimate(1.0/3).String())
	require.Equal(t, "1e+07", MakeEstimate(1e7).String())
}

func TestEstimateAlmostEquals(t *testing.T) {
	require.True(t, MakeEstimate(100).AlmostEquals(MakeEstimate(100.0000001), 1e-6))
	require.False(t, MakeEstimate(100).AlmostEquals(MakeEstimate(101), 1e-6))
	require.True(t, UnknownEstimate().AlmostEquals(UnknownEstimate(), 1e-6))
	require.False(t, UnknownEstimate().AlmostEquals(ZeroEstimate(), 1e-6))
}
