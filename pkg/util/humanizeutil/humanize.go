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

// Package humanizeutil renders estimates for people to read.
package humanizeutil

import (
	"fmt"
	"math"

	"github.com/dustin/go-humanize"
)

// IBytes is an int64 version of go-humanize's IBytes.
func IBytes(value int64) string {
	if value < 0 {
		return fmt.Sprintf("-%s", humanize.IBytes(uint64(-value)))
	}
	return humanize.IBytes(uint64(value))
}

// Count formats a row or value count with thousands separators. Fractional
// counts are rounded to two decimals.
func Count(value float64) string {
	if math.IsInf(value, 0) || math.IsNaN(value) {
		return fmt.Sprint(value)
	}
	value = roundToHundredths(value)
	if value == math.Trunc(value) && math.Abs(value) < 1<<53 {
		return humanize.Comma(int64(value))
	}
	return humanize.CommafWithDigits(value, 2)
}

// Fraction formats a value in [0, 1] as a percentage rounded to two
// decimals.
func Fraction(value float64) string {
	return humanize.FtoaWithDigits(roundToHundredths(value*100), 2) + "%"
}

// roundToHundredths rounds half away from zero. The humanize formatters
// truncate extra digits.
func roundToHundredths(value float64) float64 {
	if math.Abs(value) >= 1<<53 {
		return value
	}
	return math.Round(value*100) / 100
}
