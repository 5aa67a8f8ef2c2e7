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
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/optcore/pkg/sql/opt"
	"github.com/cockroachdb/optcore/pkg/sql/opt/scalar"
	"github.com/stretchr/testify/require"
)

func TestNewValuesArity(t *testing.T) {
	one := scalar.NewConstant(int64(1))
	require.NotPanics(t, func() {
		NewValues(1, opt.SymbolList{"a", "b"}, [][]scalar.Expr{{one, one}, {}})
	})

	defer func() {
		r := recover()
		require.NotNil(t, r)
		err, ok := r.(error)
		require.True(t, ok)
		require.True(t, errors.HasAssertionFailure(err))
	}()
	NewValues(1, opt.SymbolList{"a", "b"}, [][]scalar.Expr{{one}})
}

func TestOutputSymbols(t *testing.T) {
	scan := &TableScan{
		ID:          1,
		Table:       "t",
		Outputs:     opt.SymbolList{"a", "b", "c"},
		Assignments: map[opt.Symbol]ColumnHandle{"a": "col_a", "b": "col_b", "c": "col_c"},
	}
	testCases := []struct {
		node     Node
		expected string
	}{
		{node: scan, expected: "[a, b, c]"},
		{node: &Filter{ID: 2, Source: scan, Predicate: scalar.MustParse("(gt a 1)")}, expected: "[a, b, c]"},
		{
			node: &Aggregation{
				ID:           3,
				Source:       scan,
				GroupingSets: SingleGroupingSet("a"),
				HashSymbol:   "h",
				Aggregations: []AggregationItem{{Symbol: "s", Aggregation: AggregateCall{Function: "sum"}}},
			},
			expected: "[a, h, s]",
		},
		{node: &AssignUniqueID{ID: 4, Source: scan, IDSymbol: "u"}, expected: "[a, b, c, u]"},
		{node: &MarkDistinct{ID: 5, Source: scan, MarkerSymbol: "m"}, expected: "[a, b, c, m]"},
		{
			node: &Unnest{
				ID:               6,
				Source:           scan,
				ReplicateSymbols: opt.SymbolList{"a"},
				UnnestSymbols:    []UnnestMapping{{Input: "c", Outputs: opt.SymbolList{"e1", "e2"}}},
				OrdinalitySymbol: "ord",
			},
			expected: "[a, e1, e2, ord]",
		},
		{
			node: &GroupID{
				ID:                   7,
				Source:               scan,
				GroupingSets:         []opt.SymbolList{{"a", "b"}, {"a"}, {}},
				AggregationArguments: opt.SymbolList{"c"},
				GroupIDSymbol:        "gid",
			},
			expected: "[a, b, c, gid]",
		},
		{node: &DistinctLimit{ID: 8, Source: scan, Limit: 2, DistinctSymbols: opt.SymbolList{"b"}}, expected: "[b]"},
		{
			node: &TableWriter{
				ID: 9, Source: scan, RowCountSymbol: "rows", FragmentSymbol: "frag",
				StatisticsAggregation: &StatisticAggregations{
					GroupingSymbols: opt.SymbolList{"a"},
					Aggregations:    []AggregationItem{{Symbol: "ndv_b"}},
				},
			},
			expected: "[rows, frag, a, ndv_b]",
		},
		{
			node:     &SemiJoin{ID: 10, Source: scan, FilteringSource: scan, SemiJoinOutput: "match"},
			expected: "[a, b, c, match]",
		},
		{
			node: &Apply{
				ID: 11, Input: scan, Subquery: scan,
				SubqueryAssignments: Assignments{{Symbol: "q", Expr: scalar.MustParse("(exists a)")}},
			},
			expected: "[a, b, c, q]",
		},
	}
	for _, tc := range testCases {
		t.Run(tc.node.Op().String(), func(t *testing.T) {
			require.Equal(t, tc.expected, tc.node.OutputSymbols().String())
		})
	}
}

func TestReplaceChildren(t *testing.T) {
	scan1 := &TableScan{ID: 1, Table: "t", Outputs: opt.SymbolList{"a"}}
	scan2 := &TableScan{ID: 2, Table: "u", Outputs: opt.SymbolList{"a"}}
	filter := &Filter{ID: 3, Source: scan1, Predicate: scalar.MustParse("(gt a 1)")}

	replaced := filter.ReplaceChildren([]Node{scan2}).(*Filter)
	require.Equal(t, NodeID(3), replaced.NodeID())
	require.Same(t, scan2, replaced.Source)
	// The original is unchanged.
	require.Same(t, scan1, filter.Source)

	union := &Union{ID: 4, SetOperation: SetOperation{
		Sources: []Node{scan1, scan2},
		Mapping: []SetOperationMapping{{Output: "o", Inputs: opt.SymbolList{"a", "a"}}},
	}}
	swapped := union.ReplaceChildren([]Node{scan2, scan1}).(*Union)
	require.Same(t, scan2, swapped.Sources[0])
	require.Equal(t, union.Mapping, swapped.Mapping)

	require.Panics(t, func() { filter.ReplaceChildren(nil) })
	require.Panics(t, func() { scan1.ReplaceChildren([]Node{scan2}) })
}

func TestAssignments(t *testing.T) {
	a := Assignments{
		{Symbol: "x", Expr: scalar.MustParse("x")},
		{Symbol: "y", Expr: scalar.MustParse("(add x z)")},
	}
	require.Equal(t, opt.SymbolList{"x", "y"}, a.Symbols())
	require.True(t, a.IsIdentity("x"))
	require.False(t, a.IsIdentity("y"))
	require.Equal(t, "(x, z)", a.ReferencedSymbols().String())
	require.Equal(t, opt.SymbolList{"y"}, a.Filter(opt.MakeSymbolSet("y")).Symbols())
	_, ok := a.Get("w")
	require.False(t, ok)
}

func TestIntrinsicSymbols(t *testing.T) {
	scan := &TableScan{ID: 1, Table: "t", Outputs: opt.SymbolList{"a", "b", "c"}}
	join := &Join{
		ID:       2,
		Type:     InnerJoin,
		Left:     scan,
		Right:    scan,
		Criteria: []EquiJoinClause{{Left: "a", Right: "b"}},
		Filter:   scalar.MustParse("(lt c 3)"),
	}
	require.Equal(t, "(a, b, c)", IntrinsicSymbols(join).String())

	exchange := &Exchange{
		ID: 3,
		PartitioningScheme: PartitioningScheme{
			Partitioning: Partitioning{
				Handle:    FixedHashDistribution,
				Arguments: []PartitioningArgument{{Symbol: "a"}, {Constant: scalar.NewConstant(int64(1))}},
			},
			HashColumn: "h",
		},
		OrderingScheme: &OrderingScheme{OrderBy: opt.SymbolList{"b"}},
	}
	require.Equal(t, "(a, b, h)", IntrinsicSymbols(exchange).String())
	require.True(t, IntrinsicSymbols(scan).Empty())
}
