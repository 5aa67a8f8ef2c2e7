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

package humanizeutil

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIBytes(t *testing.T) {
	require.Equal(t, "1.0 KiB", IBytes(1024))
	require.Equal(t, "-1.0 KiB", IBytes(-1024))
	require.Equal(t, "0 B", IBytes(0))
}

func TestCount(t *testing.T) {
	require.Equal(t, "1,234,567", Count(1234567))
	require.Equal(t, "12.35", Count(12.345678))
	require.Equal(t, "12.34", Count(12.344))
	require.Equal(t, "3", Count(2.999))
	require.Equal(t, "0", Count(0))
	require.Equal(t, "+Inf", Count(1/zero()))
}

func TestFraction(t *testing.T) {
	require.Equal(t, "25%", Fraction(0.25))
	require.Equal(t, "12.5%", Fraction(0.125))
	require.Equal(t, "66.67%", Fraction(2.0/3))
}

func zero() float64 { return 0 }
