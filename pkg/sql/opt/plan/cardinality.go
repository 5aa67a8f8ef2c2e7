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

package plan

import (
	"fmt"
	"math"
)

// Cardinality is the number of rows that can be returned by a plan node. It
// is a bound derived from the structure of the plan alone, independent of
// statistics, and is used to prove that a subtree returns exactly one row.
//
// If Max is math.MaxUint32, then the cardinality is unbounded.
type Cardinality struct {
	Min uint32
	Max uint32
}

// AnyCardinality indicates that any number of rows can be returned.
var AnyCardinality = Cardinality{Min: 0, Max: math.MaxUint32}

// ZeroCardinality indicates that no rows will be returned.
var ZeroCardinality = Cardinality{}

// OneCardinality indicates that exactly one row will be returned.
var OneCardinality = Cardinality{Min: 1, Max: 1}

// IsZero returns true if the node never returns any rows.
func (c Cardinality) IsZero() bool {
	return c.Min == 0 && c.Max == 0
}

// IsOne returns true if the node always returns exactly one row.
func (c Cardinality) IsOne() bool {
	return c.Min == 1 && c.Max == 1
}

// IsZeroOrOne returns true if the node returns at most one row.
func (c Cardinality) IsZeroOrOne() bool {
	return c.Max <= 1
}

// IsUnbounded returns true if there is no upper bound.
func (c Cardinality) IsUnbounded() bool {
	return c.Max == math.MaxUint32
}

// AsLowAs ratchets the min bound downwards so that it's no greater than the
// given bound.
func (c Cardinality) AsLowAs(min uint32) Cardinality {
	if c.Min > min {
		c.Min = min
	}
	return c
}

// AtLeast ratchets the bounds upwards so that they're at least as large as
// the given bound.
func (c Cardinality) AtLeast(min uint32) Cardinality {
	if c.Min < min {
		c.Min = min
	}
	if c.Max < min {
		c.Max = min
	}
	return c
}

// AtMost ratchets the bounds downwards so that they're no bigger than the
// given bound.
func (c Cardinality) AtMost(max uint32) Cardinality {
	if c.Min > max {
		c.Min = max
	}
	if c.Max > max {
		c.Max = max
	}
	return c
}

// Add sums the min and max bounds of two cardinalities, saturating at
// math.MaxUint32.
func (c Cardinality) Add(other Cardinality) Cardinality {
	return Cardinality{Min: saturatingAdd(c.Min, other.Min), Max: saturatingAdd(c.Max, other.Max)}
}

// Product multiplies the min and max bounds of two cardinalities, saturating
// at math.MaxUint32.
func (c Cardinality) Product(other Cardinality) Cardinality {
	return Cardinality{Min: saturatingMul(c.Min, other.Min), Max: saturatingMul(c.Max, other.Max)}
}

func (c Cardinality) String() string {
	if c.IsUnbounded() {
		return fmt.Sprintf("[%d - ]", c.Min)
	}
	return fmt.Sprintf("[%d - %d]", c.Min, c.Max)
}

func saturatingAdd(a, b uint32) uint32 {
	sum := uint64(a) + uint64(b)
	if sum > math.MaxUint32 {
		return math.MaxUint32
	}
	return uint32(sum)
}

func saturatingMul(a, b uint32) uint32 {
	prod := uint64(a) * uint64(b)
	if prod > math.MaxUint32 {
		return math.MaxUint32
	}
	return uint32(prod)
}

func clampCount(n int64) uint32 {
	if n < 0 {
		return 0
	}
	if n > math.MaxUint32 {
		return math.MaxUint32
	}
	return uint32(n)
}

// DeriveCardinality returns bounds on the number of rows the node returns.
// Group references are resolved through the lookup.
func DeriveCardinality(n Node, lookup Lookup) Cardinality {
	switch t := n.(type) {
	case *GroupReference:
		resolved := lookup.Resolve(t)
		if _, ok := resolved.(*GroupReference); ok {
			return AnyCardinality
		}
		return DeriveCardinality(resolved, lookup)

	case *Values:
		rows := clampCount(int64(len(t.Rows)))
		return Cardinality{Min: rows, Max: rows}

	case *EnforceSingleRow, *TableFinish, *StatisticsWriter, *ExplainAnalyze:
		return OneCardinality

	case *Filter:
		return DeriveCardinality(t.Source, lookup).AsLowAs(0)

	case *Project, *Sort, *AssignUniqueID, *MarkDistinct, *Window, *Output, *SemiJoin, *Apply:
		return DeriveCardinality(n.Children()[0], lookup)

	case *Limit:
		source := DeriveCardinality(t.Source, lookup)
		if t.TiesResolvingScheme != nil {
			// Ties may return more rows than the limit.
			return source.AsLowAs(clampCount(t.Count))
		}
		return source.AtMost(clampCount(t.Count))

	case *TopN:
		return DeriveCardinality(t.Source, lookup).AtMost(clampCount(t.Count))

	case *DistinctLimit:
		return DeriveCardinality(t.Source, lookup).AsLowAs(1).AtMost(clampCount(t.Limit))

	case *Aggregation:
		if t.HasSingleGlobalGroupingSet() && (t.Step == SingleStep || t.Step == FinalStep) {
			return OneCardinality
		}
		if t.GroupingSets.SetCount() != 1 {
			return AnyCardinality
		}
		return DeriveCardinality(t.Source, lookup).AsLowAs(1)

	case *RowNumber:
		source := DeriveCardinality(t.Source, lookup)
		if t.MaxRowCountPerPartition.Valid {
			return source.AsLowAs(1)
		}
		return source

	case *TopNRowNumber:
		return DeriveCardinality(t.Source, lookup).AsLowAs(1)

	case *Union:
		return sumCardinality(t.Sources, lookup)

	case *Exchange:
		return sumCardinality(t.Sources, lookup)

	case *Join:
		if t.IsCrossJoin() {
			return DeriveCardinality(t.Left, lookup).Product(DeriveCardinality(t.Right, lookup))
		}
		return AnyCardinality

	case *LateralJoin:
		input := DeriveCardinality(t.Input, lookup)
		if IsScalar(t.Subquery, lookup) {
			return input
		}
		return AnyCardinality
	}
	return AnyCardinality
}

func sumCardinality(sources []Node, lookup Lookup) Cardinality {
	var res Cardinality
	for _, source := range sources {
		res = res.Add(DeriveCardinality(source, lookup))
	}
	return res
}

// IsScalar returns true if the node is guaranteed to return exactly one row.
func IsScalar(n Node, lookup Lookup) bool {
	return DeriveCardinality(n, lookup).IsOne()
}

// IsAtMostScalar returns true if the node returns at most one row.
func IsAtMostScalar(n Node, lookup Lookup) bool {
	return DeriveCardinality(n, lookup).IsZeroOrOne()
}
