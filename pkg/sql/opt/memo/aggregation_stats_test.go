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

package memo_test

import (
	"context"
	"math"
	"math/rand"
	"testing"

	"github.com/cockroachdb/optcore/pkg/sql/opt"
	"github.com/cockroachdb/optcore/pkg/sql/opt/memo"
	"github.com/cockroachdb/optcore/pkg/sql/opt/plan"
	"github.com/cockroachdb/optcore/pkg/sql/opt/props"
	"github.com/cockroachdb/optcore/pkg/sql/types"
	"github.com/stretchr/testify/require"
)

func aggregate(source plan.Node, keys ...opt.Symbol) *plan.Aggregation {
	return &plan.Aggregation{
		ID:           source.NodeID() + 1,
		Source:       source,
		GroupingSets: plan.SingleGroupingSet(keys...),
		Aggregations: []plan.AggregationItem{
			{Symbol: "n", Aggregation: plan.AggregateCall{Function: "count"}},
		},
	}
}

func TestAggregationRowCount(t *testing.T) {
	ctx := context.Background()
	calc := memo.DefaultStatsCalculator(nil, nil)
	keys := opt.SymbolList{"k1", "k2", "k3"}
	typs := opt.SymbolTypes{"k1": types.BigInt, "k2": types.BigInt, "k3": types.BigInt}
	rng := rand.New(rand.NewSource(7))

	for i := 0; i < 500; i++ {
		numKeys := 1 + rng.Intn(len(keys))
		sourceRows := float64(1 + rng.Intn(1000))
		b := props.NewStatisticsBuilder().SetRowCount(props.MakeEstimate(sourceRows))
		groups := 1.0
		for _, k := range keys[:numKeys] {
			distinct := float64(1 + rng.Intn(50))
			nulls := 0.0
			if rng.Intn(2) == 0 {
				nulls = 0.1
				groups *= distinct + 1
			} else {
				groups *= distinct
			}
			b.AddColumn(k, props.ColumnStatistics{
				DistinctValuesCount: props.MakeEstimate(distinct),
				NullsFraction:       props.MakeEstimate(nulls),
			})
		}
		source := scanOf(1, keys[:numKeys]...)
		agg := aggregate(source, keys[:numKeys]...)

		stats, ok := calc.Calculate(ctx, agg, fixedProvider{1: b.Build()}, nil, nil, typs)
		require.True(t, ok)
		require.InDelta(t, math.Min(groups, sourceRows), stats.RowCount().Value(), 1e-9, "iteration %d", i)
		require.True(t, stats.ColumnStatistics("n").IsUnknown())
	}
}

func TestAggregationNullGroup(t *testing.T) {
	source := props.NewStatisticsBuilder().
		SetRowCount(props.MakeEstimate(1000)).
		AddColumn("k", props.ColumnStatistics{
			DistinctValuesCount: props.MakeEstimate(10),
			NullsFraction:       props.MakeEstimate(0.2),
			LowValue:            props.MakeEstimate(0),
			HighValue:           props.MakeEstimate(99),
		}).
		Build()
	calc := memo.DefaultStatsCalculator(nil, nil)
	stats, ok := calc.Calculate(
		context.Background(), aggregate(scanOf(1, "k"), "k"), fixedProvider{1: source}, nil, nil, nil,
	)
	require.True(t, ok)
	require.Equal(t, 11.0, stats.RowCount().Value())
	k := stats.ColumnStatistics("k")
	require.InDelta(t, 1.0/11, k.NullsFraction.Value(), 1e-12)
	require.Equal(t, 10.0, k.DistinctValuesCount.Value())
	require.Equal(t, 99.0, k.HighValue.Value())
}

func TestGlobalAggregation(t *testing.T) {
	calc := memo.DefaultStatsCalculator(nil, nil)
	unknown := props.UnknownStatistics(opt.SymbolList{"a"})
	stats, ok := calc.Calculate(
		context.Background(), aggregate(scanOf(1, "a")), fixedProvider{1: unknown}, nil, nil, nil,
	)
	require.True(t, ok)
	require.Equal(t, 1.0, stats.RowCount().Value())
}

func TestUnnestStats(t *testing.T) {
	ctx := context.Background()
	calc := memo.DefaultStatsCalculator(nil, nil)
	x := props.ColumnStatistics{
		DistinctValuesCount: props.MakeEstimate(1),
		NullsFraction:       props.ZeroEstimate(),
		LowValue:            props.MakeEstimate(4),
		HighValue:           props.MakeEstimate(4),
		AverageRowSize:      props.MakeEstimate(8),
	}
	sourceStats := func(rows props.Estimate) *props.Statistics {
		return props.NewStatisticsBuilder().
			SetRowCount(rows).
			AddColumn("x", x).
			AddColumn("arr", props.ColumnStatistics{AverageRowSize: props.MakeEstimate(24)}).
			Build()
	}
	unnest := &plan.Unnest{
		ID:               2,
		Source:           scanOf(1, "x", "arr"),
		ReplicateSymbols: opt.SymbolList{"x"},
		UnnestSymbols:    []plan.UnnestMapping{{Input: "arr", Outputs: opt.SymbolList{"e"}}},
		OrdinalitySymbol: "o",
	}
	typs := opt.SymbolTypes{"x": types.BigInt, "o": types.BigInt}

	stats, ok := calc.Calculate(ctx, unnest, fixedProvider{1: sourceStats(props.MakeEstimate(1))}, nil, nil, typs)
	require.True(t, ok)
	require.Equal(t, 1.0, stats.RowCount().Value())
	require.True(t, stats.ColumnStatistics("x").Equals(x))
	require.Equal(t, 24.0, stats.ColumnStatistics("e").AverageRowSize.Value())
	require.True(t, stats.ColumnStatistics("e").DistinctValuesCount.IsUnknown())
	o := stats.ColumnStatistics("o")
	require.Equal(t, 0.0, o.NullsFraction.Value())
	require.Equal(t, 0.0, o.LowValue.Value())

	// Larger sources are not estimated.
	stats, ok = calc.Calculate(ctx, unnest, fixedProvider{1: sourceStats(props.MakeEstimate(2))}, nil, nil, typs)
	require.False(t, ok)
	require.True(t, stats.RowCount().IsUnknown())

	stats, ok = calc.Calculate(ctx, unnest, fixedProvider{1: sourceStats(props.UnknownEstimate())}, nil, nil, typs)
	require.True(t, ok)
	require.True(t, stats.RowCount().IsUnknown())
}
