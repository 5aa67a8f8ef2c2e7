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
	"fmt"
	"strings"

	"github.com/cockroachdb/optcore/pkg/sql/opt"
)

// Statistics is the estimated output of a plan node: its row count and the
// distribution of each of its output columns. Statistics are immutable once
// built; use a StatisticsBuilder to derive new statistics.
//
// After normalization, the columns of the statistics are exactly the output
// symbols of the node they describe.
type Statistics struct {
	rowCount Estimate
	columns  map[opt.Symbol]ColumnStatistics
}

// UnknownStatistics returns statistics with an unknown row count and unknown
// statistics for every given output symbol.
func UnknownStatistics(outputs opt.SymbolList) *Statistics {
	b := NewStatisticsBuilder()
	for _, sym := range outputs {
		b.AddColumn(sym, UnknownColumnStatistics())
	}
	return b.Build()
}

// RowCount returns the estimated number of output rows.
func (s *Statistics) RowCount() Estimate {
	return s.rowCount
}

// ColumnStatistics returns the statistics of the given column, or unknown
// statistics if the column is not described.
func (s *Statistics) ColumnStatistics(sym opt.Symbol) ColumnStatistics {
	if c, ok := s.columns[sym]; ok {
		return c
	}
	return UnknownColumnStatistics()
}

// HasColumn returns true if the statistics describe the given column.
func (s *Statistics) HasColumn(sym opt.Symbol) bool {
	_, ok := s.columns[sym]
	return ok
}

// Symbols returns the described columns, sorted by name.
func (s *Statistics) Symbols() opt.SymbolList {
	var set opt.SymbolSet
	for sym := range s.columns {
		set.Add(sym)
	}
	return set.Ordered()
}

// IsUnknown returns true if the row count and every column are unknown.
func (s *Statistics) IsUnknown() bool {
	if !s.rowCount.IsUnknown() {
		return false
	}
	for _, c := range s.columns {
		if !c.IsUnknown() {
			return false
		}
	}
	return true
}

// MapSymbols returns statistics with every column renamed by f. Columns for
// which f returns NoSymbol are dropped.
func (s *Statistics) MapSymbols(f func(opt.Symbol) opt.Symbol) *Statistics {
	b := NewStatisticsBuilder().SetRowCount(s.rowCount)
	for _, sym := range s.Symbols() {
		if mapped := f(sym); mapped.Exists() {
			b.AddColumn(mapped, s.columns[sym])
		}
	}
	return b.Build()
}

// ToBuilder returns a builder initialized with a copy of the statistics.
func (s *Statistics) ToBuilder() *StatisticsBuilder {
	b := NewStatisticsBuilder().SetRowCount(s.rowCount)
	for sym, c := range s.columns {
		b.columns[sym] = c
	}
	return b
}

// Equals returns true if the two statistics have the same row count and
// describe the same columns identically.
func (s *Statistics) Equals(other *Statistics) bool {
	if !s.rowCount.Equals(other.rowCount) || len(s.columns) != len(other.columns) {
		return false
	}
	for sym, c := range s.columns {
		oc, ok := other.columns[sym]
		if !ok || !c.Equals(oc) {
			return false
		}
	}
	return true
}

// Lines returns a description of the statistics, one line for the row count
// followed by one line per column in symbol order.
func (s *Statistics) Lines() []string {
	lines := []string{fmt.Sprintf("rows: %s", s.rowCount)}
	for _, sym := range s.Symbols() {
		lines = append(lines, fmt.Sprintf("%s: %s", sym, s.columns[sym]))
	}
	return lines
}

func (s *Statistics) String() string {
	return strings.Join(s.Lines(), "\n")
}

// StatisticsBuilder accumulates the row count and column statistics of a
// Statistics. A builder is meant to be used within a single function and
// discarded after Build.
type StatisticsBuilder struct {
	rowCount Estimate
	columns  map[opt.Symbol]ColumnStatistics
}

// NewStatisticsBuilder returns an empty builder with an unknown row count.
func NewStatisticsBuilder() *StatisticsBuilder {
	return &StatisticsBuilder{columns: make(map[opt.Symbol]ColumnStatistics)}
}

// SetRowCount sets the row count.
func (b *StatisticsBuilder) SetRowCount(rowCount Estimate) *StatisticsBuilder {
	b.rowCount = rowCount
	return b
}

// RowCount returns the row count set so far.
func (b *StatisticsBuilder) RowCount() Estimate {
	return b.rowCount
}

// AddColumn sets the statistics of a column, replacing any previous value.
func (b *StatisticsBuilder) AddColumn(sym opt.Symbol, c ColumnStatistics) *StatisticsBuilder {
	b.columns[sym] = c
	return b
}

// RemoveColumn removes a column.
func (b *StatisticsBuilder) RemoveColumn(sym opt.Symbol) *StatisticsBuilder {
	delete(b.columns, sym)
	return b
}

// Build returns the accumulated statistics. The builder may continue to be
// used without affecting the returned value.
func (b *StatisticsBuilder) Build() *Statistics {
	columns := make(map[opt.Symbol]ColumnStatistics, len(b.columns))
	for sym, c := range b.columns {
		columns[sym] = c
	}
	return &Statistics{rowCount: b.rowCount, columns: columns}
}
