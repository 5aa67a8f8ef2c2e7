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

	"github.com/cockroachdb/optcore/pkg/sql/opt"
	"github.com/cockroachdb/optcore/pkg/sql/types"
)

// Normalize restores the internal consistency of statistics produced by an
// estimation rule for a node with the given outputs:
//
//   - columns that are not outputs are dropped, and outputs without
//     statistics get unknown statistics;
//   - a negative row count becomes unknown;
//   - when the row count is zero, every column gets ZeroColumnStatistics;
//   - nulls fractions outside [0, 1], negative distinct counts and negative
//     sizes become unknown;
//   - a low bound above the high bound discards both bounds;
//   - distinct counts are clamped to the size of the column's domain
//     (2 for booleans, high-low+1 for discrete types with known bounds);
//   - distinct counts are clamped to the number of non-null rows;
//   - a column with no distinct values is entirely null.
//
// Normalize is idempotent.
func Normalize(s *Statistics, outputs opt.SymbolList, typs opt.TypeProvider) *Statistics {
	if typs == nil {
		typs = opt.SymbolTypes(nil)
	}
	rowCount := s.RowCount()
	if !rowCount.IsUnknown() && (rowCount.Value() < 0 || math.IsInf(rowCount.Value(), 0)) {
		rowCount = UnknownEstimate()
	}

	b := NewStatisticsBuilder().SetRowCount(rowCount)
	for _, sym := range outputs {
		if !rowCount.IsUnknown() && rowCount.Value() == 0 {
			b.AddColumn(sym, ZeroColumnStatistics())
			continue
		}
		b.AddColumn(sym, normalizeColumn(s.ColumnStatistics(sym), rowCount, typs.TypeOf(sym)))
	}
	return b.Build()
}

func normalizeColumn(c ColumnStatistics, rowCount Estimate, typ *types.T) ColumnStatistics {
	if c.IsUnknown() {
		return c
	}
	if nf := c.NullsFraction; !nf.IsUnknown() && (nf.Value() < 0 || nf.Value() > 1) {
		c.NullsFraction = UnknownEstimate()
	}
	if d := c.DistinctValuesCount; !d.IsUnknown() && d.Value() < 0 {
		c.DistinctValuesCount = UnknownEstimate()
	}
	if sz := c.AverageRowSize; !sz.IsUnknown() && sz.Value() < 0 {
		c.AverageRowSize = UnknownEstimate()
	}
	if !c.LowValue.IsUnknown() && !c.HighValue.IsUnknown() && c.LowValue.Value() > c.HighValue.Value() {
		c.LowValue = UnknownEstimate()
		c.HighValue = UnknownEstimate()
	}

	if !c.DistinctValuesCount.IsUnknown() {
		if maxDistinct, ok := maxDistinctValuesByDomain(c, typ); ok {
			c.DistinctValuesCount = c.DistinctValuesCount.Min(MakeEstimate(maxDistinct))
		}
		if !rowCount.IsUnknown() && c.DistinctValuesCount.Value() >= rowCount.Value() {
			c.DistinctValuesCount = MakeEstimate(rowCount.Value() * (1 - c.NullsFraction.ValueOr(0)))
		}
		if c.DistinctValuesCount.Value() == 0 {
			return ZeroColumnStatistics()
		}
	}
	return c
}

// maxDistinctValuesByDomain returns the number of distinct values in the
// domain of the column, if it is bounded.
func maxDistinctValuesByDomain(c ColumnStatistics, typ *types.T) (float64, bool) {
	if typ.Family == types.BoolFamily {
		return 2, true
	}
	if !typ.IsDiscrete() || c.LowValue.IsUnknown() || c.HighValue.IsUnknown() {
		return 0, false
	}
	low, high := c.LowValue.Value(), c.HighValue.Value()
	if math.IsInf(low, 0) || math.IsInf(high, 0) {
		return 0, false
	}
	return high - low + 1, true
}
