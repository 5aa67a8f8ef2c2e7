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

import "fmt"

// ColumnStatistics describes the distribution of the values of a single
// column. Any field may be unknown. LowValue and HighValue are bounds on the
// non-null values of the column, projected onto the float64 number line; an
// unknown bound means the range is not bounded on that side.
type ColumnStatistics struct {
	// DistinctValuesCount is the number of distinct non-null values.
	DistinctValuesCount Estimate
	// NullsFraction is the fraction of rows in which the column is null. It is
	// in [0, 1] when known.
	NullsFraction Estimate
	LowValue      Estimate
	HighValue     Estimate
	// AverageRowSize is the average size in bytes of the non-null values.
	AverageRowSize Estimate
}

// UnknownColumnStatistics returns statistics with every field unknown.
func UnknownColumnStatistics() ColumnStatistics {
	return ColumnStatistics{}
}

// ZeroColumnStatistics returns the statistics of a column of an empty
// relation: no distinct values, every (nonexistent) row null, and no size.
func ZeroColumnStatistics() ColumnStatistics {
	return ColumnStatistics{
		DistinctValuesCount: ZeroEstimate(),
		NullsFraction:       MakeEstimate(1),
		AverageRowSize:      ZeroEstimate(),
	}
}

// IsUnknown returns true if every field is unknown.
func (c ColumnStatistics) IsUnknown() bool {
	return c.DistinctValuesCount.IsUnknown() &&
		c.NullsFraction.IsUnknown() &&
		c.LowValue.IsUnknown() &&
		c.HighValue.IsUnknown() &&
		c.AverageRowSize.IsUnknown()
}

// MapNullsFraction returns a copy with f applied to the nulls fraction.
func (c ColumnStatistics) MapNullsFraction(f func(float64) float64) ColumnStatistics {
	c.NullsFraction = c.NullsFraction.Map(f)
	return c
}

// MapDistinctValuesCount returns a copy with f applied to the distinct
// values count.
func (c ColumnStatistics) MapDistinctValuesCount(f func(float64) float64) ColumnStatistics {
	c.DistinctValuesCount = c.DistinctValuesCount.Map(f)
	return c
}

// NonNullFraction returns 1 - NullsFraction.
func (c ColumnStatistics) NonNullFraction() Estimate {
	return c.NullsFraction.Map(func(f float64) float64 { return 1 - f })
}

// Equals returns true if all fields are equal.
func (c ColumnStatistics) Equals(other ColumnStatistics) bool {
	return c.DistinctValuesCount.Equals(other.DistinctValuesCount) &&
		c.NullsFraction.Equals(other.NullsFraction) &&
		c.LowValue.Equals(other.LowValue) &&
		c.HighValue.Equals(other.HighValue) &&
		c.AverageRowSize.Equals(other.AverageRowSize)
}

func (c ColumnStatistics) String() string {
	return fmt.Sprintf(
		"distinct=%s nulls=%s range=[%s, %s] size=%s",
		c.DistinctValuesCount, c.NullsFraction, c.LowValue, c.HighValue, c.AverageRowSize,
	)
}
