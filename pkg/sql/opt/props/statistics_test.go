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
	"math/rand"
	"testing"

	"github.com/cockroachdb/optcore/pkg/sql/opt"
	"github.com/cockroachdb/optcore/pkg/sql/types"
	"github.com/stretchr/testify/require"
)

func TestStatisticsBuilder(t *testing.T) {
	b := NewStatisticsBuilder().SetRowCount(MakeEstimate(100))
	b.AddColumn("a", ColumnStatistics{DistinctValuesCount: MakeEstimate(10)})
	s := b.Build()

	// Mutating the builder after Build does not affect the result.
	b.AddColumn("b", ColumnStatistics{DistinctValuesCount: MakeEstimate(5)})
	b.SetRowCount(MakeEstimate(1))
	require.Equal(t, opt.SymbolList{"a"}, s.Symbols())
	require.Equal(t, 100.0, s.RowCount().Value())

	require.Equal(t, 10.0, s.ColumnStatistics("a").DistinctValuesCount.Value())
	require.True(t, s.ColumnStatistics("zz").IsUnknown())
	require.False(t, s.HasColumn("zz"))

	derived := s.ToBuilder().RemoveColumn("a").Build()
	require.True(t, s.HasColumn("a"))
	require.False(t, derived.HasColumn("a"))
}

func TestUnknownStatistics(t *testing.T) {
	s := UnknownStatistics(opt.SymbolList{"b", "a"})
	require.True(t, s.IsUnknown())
	require.Equal(t, opt.SymbolList{"a", "b"}, s.Symbols())
	require.Equal(t, "rows: ?\na: distinct=? nulls=? range=[?, ?] size=?\nb: distinct=? nulls=? range=[?, ?] size=?", s.String())
}

func TestMapSymbols(t *testing.T) {
	s := NewStatisticsBuilder().
		SetRowCount(MakeEstimate(10)).
		AddColumn("a", ColumnStatistics{DistinctValuesCount: MakeEstimate(3)}).
		AddColumn("b", ColumnStatistics{DistinctValuesCount: MakeEstimate(4)}).
		Build()
	mapped := s.MapSymbols(func(sym opt.Symbol) opt.Symbol {
		if sym == "a" {
			return "x"
		}
		return opt.NoSymbol
	})
	require.Equal(t, opt.SymbolList{"x"}, mapped.Symbols())
	require.Equal(t, 3.0, mapped.ColumnStatistics("x").DistinctValuesCount.Value())
	require.Equal(t, 10.0, mapped.RowCount().Value())
}

func TestColumnStatisticsTransforms(t *testing.T) {
	c := ColumnStatistics{DistinctValuesCount: MakeEstimate(4), NullsFraction: MakeEstimate(0.25)}
	halved := c.MapNullsFraction(func(f float64) float64 { return f / 2 })
	require.Equal(t, 0.125, halved.NullsFraction.Value())
	require.Equal(t, 0.25, c.NullsFraction.Value())
	require.Equal(t, 5.0, c.MapDistinctValuesCount(func(d float64) float64 { return d + 1 }).DistinctValuesCount.Value())
	require.Equal(t, 0.75, c.NonNullFraction().Value())
	require.True(t, UnknownColumnStatistics().IsUnknown())
	require.False(t, ZeroColumnStatistics().IsUnknown())
}

func TestNormalize(t *testing.T) {
	typs := opt.SymbolTypes{"b": types.Bool, "i": types.BigInt, "d": types.Double}
	outputs := opt.SymbolList{"b", "i", "d", "missing"}

	raw := NewStatisticsBuilder().
		SetRowCount(MakeEstimate(50)).
		AddColumn("b", ColumnStatistics{DistinctValuesCount: MakeEstimate(7), NullsFraction: MakeEstimate(0)}).
		AddColumn("i", ColumnStatistics{
			DistinctValuesCount: MakeEstimate(40),
			LowValue:            MakeEstimate(1),
			HighValue:           MakeEstimate(10),
		}).
		AddColumn("d", ColumnStatistics{
			DistinctValuesCount: MakeEstimate(80),
			NullsFraction:       MakeEstimate(0.2),
			AverageRowSize:      MakeEstimate(-3),
		}).
		AddColumn("dropped", ColumnStatistics{DistinctValuesCount: MakeEstimate(1)}).
		Build()

	n := Normalize(raw, outputs, typs)
	require.Equal(t, opt.SymbolList{"b", "d", "i", "missing"}, n.Symbols())
	require.Equal(t, 2.0, n.ColumnStatistics("b").DistinctValuesCount.Value())
	require.Equal(t, 10.0, n.ColumnStatistics("i").DistinctValuesCount.Value())
	require.Equal(t, 40.0, n.ColumnStatistics("d").DistinctValuesCount.Value())
	require.True(t, n.ColumnStatistics("d").AverageRowSize.IsUnknown())
	require.True(t, n.ColumnStatistics("missing").IsUnknown())

	// Impossible values become unknown.
	bad := NewStatisticsBuilder().
		SetRowCount(MakeEstimate(-5)).
		AddColumn("d", ColumnStatistics{
			NullsFraction:       MakeEstimate(1.5),
			DistinctValuesCount: MakeEstimate(-1),
			LowValue:            MakeEstimate(5),
			HighValue:           MakeEstimate(1),
		}).
		Build()
	n = Normalize(bad, opt.SymbolList{"d"}, typs)
	require.True(t, n.RowCount().IsUnknown())
	require.True(t, n.ColumnStatistics("d").IsUnknown())

	// An empty relation has empty columns.
	empty := NewStatisticsBuilder().
		SetRowCount(ZeroEstimate()).
		AddColumn("i", ColumnStatistics{DistinctValuesCount: MakeEstimate(3)}).
		Build()
	n = Normalize(empty, opt.SymbolList{"i"}, typs)
	require.True(t, n.ColumnStatistics("i").Equals(ZeroColumnStatistics()))
}

func randomEstimate(rng *rand.Rand, min, max float64) Estimate {
	if rng.Intn(4) == 0 {
		return UnknownEstimate()
	}
	return MakeEstimate(min + rng.Float64()*(max-min))
}

func TestNormalizeIdempotent(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	typs := opt.SymbolTypes{"a": types.Bool, "b": types.Int, "c": types.Double, "d": types.Date}
	outputs := opt.SymbolList{"a", "b", "c", "d"}
	for i := 0; i < 1000; i++ {
		b := NewStatisticsBuilder().SetRowCount(randomEstimate(rng, -10, 100))
		if rng.Intn(10) == 0 {
			b.SetRowCount(ZeroEstimate())
		}
		for _, sym := range append(outputs, "extra") {
			b.AddColumn(sym, ColumnStatistics{
				DistinctValuesCount: randomEstimate(rng, -5, 200),
				NullsFraction:       randomEstimate(rng, -0.5, 1.5),
				LowValue:            randomEstimate(rng, -50, 50),
				HighValue:           randomEstimate(rng, -50, 50),
				AverageRowSize:      randomEstimate(rng, -8, 64),
			})
		}
		once := Normalize(b.Build(), outputs, typs)
		twice := Normalize(once, outputs, typs)
		require.True(t, once.Equals(twice), "iteration %d:\n%s\n---\n%s", i, once, twice)

		// Distinct counts never exceed the row count.
		if rc := once.RowCount(); !rc.IsUnknown() {
			for _, sym := range outputs {
				d := once.ColumnStatistics(sym).DistinctValuesCount
				require.True(t, d.IsUnknown() || d.Value() <= rc.Value())
			}
		}
	}
}
