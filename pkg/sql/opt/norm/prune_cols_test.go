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

package norm_test

import (
	"context"
	"testing"

	"github.com/cockroachdb/optcore/pkg/sql/opt"
	"github.com/cockroachdb/optcore/pkg/sql/opt/norm"
	"github.com/cockroachdb/optcore/pkg/sql/opt/plan"
	"github.com/cockroachdb/optcore/pkg/sql/opt/scalar"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/require"
)

var planCmpOpts = []cmp.Option{
	cmpopts.EquateEmpty(),
	cmp.Comparer(func(a, b opt.SymbolSet) bool { return a.Equals(b) }),
}

func scan(id plan.NodeID, syms ...opt.Symbol) *plan.TableScan {
	assignments := make(map[opt.Symbol]plan.ColumnHandle, len(syms))
	for _, sym := range syms {
		assignments[sym] = plan.ColumnHandle("col_" + sym.Name())
	}
	return &plan.TableScan{ID: id, Table: "t", Outputs: syms, Assignments: assignments}
}

func assign(sym opt.Symbol, expr string) plan.Assignment {
	return plan.Assignment{Symbol: sym, Expr: scalar.MustParse(expr)}
}

func prune(t *testing.T, n plan.Node, required ...opt.Symbol) plan.Node {
	t.Helper()
	res, err := norm.PruneUnreferencedOutputs(context.Background(), n, required)
	require.NoError(t, err)
	return res
}

func TestPruneProjectChain(t *testing.T) {
	project := &plan.Project{
		ID:     2,
		Source: scan(1, "x", "y"),
		Assignments: plan.Assignments{
			assign("a", "(add x 1)"),
			assign("b", "(add y 1)"),
		},
	}

	res := prune(t, project, "a").(*plan.Project)
	require.Equal(t, opt.SymbolList{"a"}, res.OutputSymbols())
	require.Equal(t, opt.SymbolList{"x"}, res.Source.OutputSymbols())
	require.Equal(t, map[opt.Symbol]plan.ColumnHandle{"x": "col_x"}, res.Source.(*plan.TableScan).Assignments)
	require.Equal(t, plan.NodeID(2), res.ID)
	require.Equal(t, plan.NodeID(1), res.Source.NodeID())

	// The input plan is untouched.
	require.Len(t, project.Assignments, 2)
	require.Equal(t, opt.SymbolList{"x", "y"}, project.Source.OutputSymbols())

	// An output node asks for exactly its own outputs.
	output := &plan.Output{ID: 3, Source: project, ColumnNames: []string{"a"}, Outputs: opt.SymbolList{"a"}}
	res2 := prune(t, output).(*plan.Output)
	require.Equal(t, opt.SymbolList{"a"}, res2.Source.OutputSymbols())
	require.Equal(t, opt.SymbolList{"x"}, res2.Source.(*plan.Project).Source.OutputSymbols())
}

func TestPruneRequiredSymbolMissing(t *testing.T) {
	_, err := norm.PruneUnreferencedOutputs(context.Background(), scan(1, "x"), opt.SymbolList{"z"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "does not produce required symbols")
}

func TestPruneFilterKeepsPredicateInputs(t *testing.T) {
	filter := &plan.Filter{ID: 2, Source: scan(1, "x", "y", "z"), Predicate: scalar.MustParse("(gt y 3)")}
	res := prune(t, filter, "x").(*plan.Filter)
	require.Equal(t, opt.SymbolList{"x", "y"}, res.Source.OutputSymbols())
}

func TestPruneValues(t *testing.T) {
	values := plan.NewValues(1, opt.SymbolList{"a", "b", "c"}, [][]scalar.Expr{
		{scalar.NewConstant(int64(1)), scalar.NewConstant(int64(2)), scalar.NewConstant(int64(3))},
		{},
	})
	res := prune(t, values, "c", "a").(*plan.Values)
	require.Equal(t, opt.SymbolList{"a", "c"}, res.Outputs)
	require.Equal(t, "1", res.Rows[0][0].String())
	require.Equal(t, "3", res.Rows[0][1].String())
	require.Empty(t, res.Rows[1])
}

func TestPruneAggregation(t *testing.T) {
	agg := &plan.Aggregation{
		ID:     2,
		Source: scan(1, "k", "v", "w", "m"),
		Aggregations: []plan.AggregationItem{
			{Symbol: "s", Aggregation: plan.AggregateCall{Function: "sum", Args: []scalar.Expr{scalar.NewVariable("v")}, Mask: "m"}},
			{Symbol: "c", Aggregation: plan.AggregateCall{Function: "count", Args: []scalar.Expr{scalar.NewVariable("w")}}},
		},
		GroupingSets: plan.SingleGroupingSet("k"),
	}
	res := prune(t, agg, "s").(*plan.Aggregation)
	require.Equal(t, opt.SymbolList{"k", "s"}, res.OutputSymbols())
	require.Equal(t, opt.SymbolList{"k", "v", "m"}, res.Source.OutputSymbols())
}

func TestPruneDeadComputations(t *testing.T) {
	source := scan(1, "a", "b")

	t.Run("window", func(t *testing.T) {
		window := &plan.Window{
			ID:     2,
			Source: source,
			Specification: plan.WindowSpecification{
				PartitionBy: opt.SymbolList{"b"},
			},
			Functions: []plan.WindowFunction{{Symbol: "r", Name: "rank"}},
		}
		res := prune(t, window, "a")
		require.Equal(t, opt.TableScanOp, res.Op())
		// The partitioning symbol is still read from the source; the scan is
		// pruned before the window is dropped.
		require.Equal(t, opt.SymbolList{"a", "b"}, res.OutputSymbols())

		kept := prune(t, window, "a", "r").(*plan.Window)
		require.Len(t, kept.Functions, 1)
	})

	t.Run("assign-unique-id", func(t *testing.T) {
		n := &plan.AssignUniqueID{ID: 2, Source: source, IDSymbol: "id"}
		res := prune(t, n, "a")
		require.Equal(t, opt.TableScanOp, res.Op())
		require.Equal(t, opt.SymbolList{"a"}, res.OutputSymbols())

		kept := prune(t, n, "id")
		require.Equal(t, opt.SymbolList{"id"}, kept.OutputSymbols())
	})

	t.Run("mark-distinct", func(t *testing.T) {
		n := &plan.MarkDistinct{ID: 2, Source: source, MarkerSymbol: "m", DistinctSymbols: opt.SymbolList{"b"}}
		res := prune(t, n, "a")
		require.Equal(t, opt.TableScanOp, res.Op())

		kept := prune(t, n, "a", "m").(*plan.MarkDistinct)
		require.Equal(t, opt.SymbolList{"a", "b"}, kept.Source.OutputSymbols())
	})

	t.Run("apply", func(t *testing.T) {
		sub := &plan.Filter{ID: 4, Source: scan(3, "s"), Predicate: scalar.MustParse("(eq s a)")}
		n := &plan.Apply{
			ID:                  2,
			Input:               source,
			Subquery:            sub,
			SubqueryAssignments: plan.Assignments{assign("e", "(in b s)")},
			Correlation:         opt.SymbolList{"a"},
		}
		res := prune(t, n, "b")
		require.Equal(t, opt.TableScanOp, res.Op())
		require.Equal(t, opt.SymbolList{"b"}, res.OutputSymbols())

		kept := prune(t, n, "e").(*plan.Apply)
		require.Equal(t, opt.SymbolList{"a"}, kept.Correlation)
		require.Equal(t, opt.SymbolList{"a", "b"}, kept.Input.OutputSymbols())
	})
}

func singleRow(id plan.NodeID, sym opt.Symbol) plan.Node {
	return plan.NewValues(id, opt.SymbolList{sym}, [][]scalar.Expr{{scalar.NewConstant(int64(1))}})
}

func TestPruneLateralJoin(t *testing.T) {
	t.Run("unused scalar subquery", func(t *testing.T) {
		n := &plan.LateralJoin{ID: 2, Input: scan(1, "a"), Subquery: singleRow(3, "s"), Type: plan.InnerJoin}
		res := prune(t, n, "a")
		require.Equal(t, opt.TableScanOp, res.Op())
	})

	t.Run("unused scalar input", func(t *testing.T) {
		sub := &plan.Filter{ID: 4, Source: scan(3, "s"), Predicate: scalar.MustParse("(gt s 0)")}
		n := &plan.LateralJoin{ID: 2, Input: singleRow(1, "a"), Subquery: sub, Type: plan.InnerJoin}
		res := prune(t, n, "s")
		require.Equal(t, opt.FilterOp, res.Op())
	})

	t.Run("unused correlation", func(t *testing.T) {
		sub := &plan.Filter{ID: 4, Source: scan(3, "s"), Predicate: scalar.MustParse("(gt s 0)")}
		n := &plan.LateralJoin{
			ID:          2,
			Input:       scan(1, "a", "b"),
			Subquery:    sub,
			Correlation: opt.SymbolList{"b"},
			Type:        plan.LeftJoin,
		}
		res := prune(t, n, "a", "s").(*plan.LateralJoin)
		require.Empty(t, res.Correlation)
		require.Equal(t, opt.SymbolList{"a"}, res.Input.OutputSymbols())
	})
}

func TestPruneJoin(t *testing.T) {
	join := &plan.Join{
		ID:       3,
		Type:     plan.InnerJoin,
		Left:     scan(1, "a", "b"),
		Right:    scan(2, "c", "d"),
		Criteria: []plan.EquiJoinClause{{Left: "a", Right: "c"}},
		Outputs:  opt.SymbolList{"a", "b", "c", "d"},
	}
	res := prune(t, join, "b").(*plan.Join)
	require.Equal(t, opt.SymbolList{"b"}, res.Outputs)
	require.Equal(t, opt.SymbolList{"a", "b"}, res.Left.OutputSymbols())
	require.Equal(t, opt.SymbolList{"c"}, res.Right.OutputSymbols())

	cross := *join
	cross.Criteria = nil
	res = prune(t, &cross, "b").(*plan.Join)
	require.Equal(t, opt.SymbolList{"b"}, res.Left.OutputSymbols())
	require.Empty(t, res.Right.OutputSymbols())
	require.Equal(t, opt.SymbolList{"b"}, res.Outputs)

	res = prune(t, &cross, "b", "d").(*plan.Join)
	require.Equal(t, opt.SymbolList{"b", "d"}, res.Outputs)
}

func TestPruneExchange(t *testing.T) {
	exchange := &plan.Exchange{
		ID:    3,
		Type:  plan.RepartitionExchange,
		Scope: plan.RemoteExchange,
		PartitioningScheme: plan.PartitioningScheme{
			Partitioning: plan.Partitioning{
				Handle:    plan.FixedHashDistribution,
				Arguments: []plan.PartitioningArgument{{Symbol: "k"}},
			},
			OutputLayout: opt.SymbolList{"k", "v", "w"},
			HashColumn:   "h",
		},
		Sources: []plan.Node{scan(1, "k1", "v1", "w1"), scan(2, "k2", "v2", "w2")},
		Inputs:  []opt.SymbolList{{"k1", "v1", "w1"}, {"k2", "v2", "w2"}},
	}
	res := prune(t, exchange, "w").(*plan.Exchange)
	require.Equal(t, opt.SymbolList{"k", "w"}, res.PartitioningScheme.OutputLayout)
	require.Equal(t, []opt.SymbolList{{"k1", "w1"}, {"k2", "w2"}}, res.Inputs)
	require.Equal(t, opt.SymbolList{"k1", "w1"}, res.Sources[0].OutputSymbols())
	require.Equal(t, opt.SymbolList{"k2", "w2"}, res.Sources[1].OutputSymbols())
	require.Equal(t, opt.Symbol("h"), res.PartitioningScheme.HashColumn)
}

func TestPruneUnion(t *testing.T) {
	union := &plan.Union{
		ID: 3,
		SetOperation: plan.SetOperation{
			Sources: []plan.Node{scan(1, "a1", "b1"), scan(2, "a2", "b2")},
			Mapping: []plan.SetOperationMapping{
				{Output: "a", Inputs: opt.SymbolList{"a1", "a2"}},
				{Output: "b", Inputs: opt.SymbolList{"b1", "b2"}},
			},
		},
	}
	res := prune(t, union, "b").(*plan.Union)
	require.Equal(t, opt.SymbolList{"b"}, res.OutputSymbols())
	require.Equal(t, opt.SymbolList{"b1"}, res.Sources[0].OutputSymbols())
	require.Equal(t, opt.SymbolList{"b2"}, res.Sources[1].OutputSymbols())
}

func TestPruneWritersIgnoreContext(t *testing.T) {
	finish := &plan.TableFinish{
		ID:             3,
		Target:         "t",
		RowCountSymbol: "rows",
		Source: &plan.TableWriter{
			ID:             2,
			Source:         scan(1, "a", "b", "c"),
			Target:         "t",
			RowCountSymbol: "partial_rows",
			FragmentSymbol: "fragment",
			Columns:        opt.SymbolList{"a", "c"},
			ColumnNames:    []string{"a", "c"},
		},
	}
	res := prune(t, finish).(*plan.TableFinish)
	writer := res.Source.(*plan.TableWriter)
	require.Equal(t, opt.SymbolList{"partial_rows", "fragment"}, writer.OutputSymbols())
	require.Equal(t, opt.SymbolList{"a", "c"}, writer.Source.OutputSymbols())
}

// testPlans returns plans covering most node variants, along with the symbols
// required of their roots.
func testPlans() map[string]struct {
	root     plan.Node
	required opt.SymbolList
} {
	var ids plan.IDAllocator
	next := ids.Next
	scanABC := func() *plan.TableScan { return scan(next(), "a", "b", "c") }

	project := &plan.Project{ID: next(), Source: scanABC(), Assignments: plan.Assignments{
		assign("x", "(add a 1)"), assign("y", "b"), assign("z", "(multiply c 2)"),
	}}
	window := &plan.Window{
		ID:     next(),
		Source: &plan.Sort{ID: next(), Source: scanABC(), OrderingScheme: plan.OrderingScheme{OrderBy: opt.SymbolList{"c"}}},
		Specification: plan.WindowSpecification{
			PartitionBy:    opt.SymbolList{"a"},
			OrderingScheme: &plan.OrderingScheme{OrderBy: opt.SymbolList{"b"}},
		},
		Functions: []plan.WindowFunction{
			{Symbol: "r", Name: "rank"},
			{Symbol: "m", Name: "max", Args: []scalar.Expr{scalar.NewVariable("c")}},
		},
	}
	join := &plan.Join{
		ID:       next(),
		Type:     plan.LeftJoin,
		Left:     &plan.Filter{ID: next(), Source: scanABC(), Predicate: scalar.MustParse("(gt c 5)")},
		Right:    scan(next(), "d", "e"),
		Criteria: []plan.EquiJoinClause{{Left: "a", Right: "d"}},
		Filter:   scalar.MustParse("(lt b e)"),
		Outputs:  opt.SymbolList{"a", "b", "c", "d", "e"},
	}
	unnest := &plan.Unnest{
		ID:               next(),
		Source:           scan(next(), "k", "arr", "other"),
		ReplicateSymbols: opt.SymbolList{"k", "other"},
		UnnestSymbols:    []plan.UnnestMapping{{Input: "arr", Outputs: opt.SymbolList{"elem"}}},
		OrdinalitySymbol: "ord",
	}
	apply := &plan.Apply{
		ID:    next(),
		Input: scanABC(),
		Subquery: &plan.Filter{
			ID:        next(),
			Source:    scan(next(), "s", "u"),
			Predicate: scalar.MustParse("(eq s a)"),
		},
		SubqueryAssignments: plan.Assignments{assign("e", "(in b u)")},
		Correlation:         opt.SymbolList{"a", "c"},
	}
	groupID := &plan.Aggregation{
		ID: next(),
		Source: &plan.GroupID{
			ID:                   next(),
			Source:               scanABC(),
			GroupingSets:         []opt.SymbolList{{"ga"}, {"ga", "gb"}},
			GroupingColumns:      []plan.GroupingColumn{{Output: "ga", Input: "a"}, {Output: "gb", Input: "b"}},
			AggregationArguments: opt.SymbolList{"c"},
			GroupIDSymbol:        "gid",
		},
		Aggregations: []plan.AggregationItem{
			{Symbol: "total", Aggregation: plan.AggregateCall{Function: "sum", Args: []scalar.Expr{scalar.NewVariable("c")}}},
		},
		GroupingSets: plan.GroupingSetDescriptor{Keys: opt.SymbolList{"ga", "gb", "gid"}, Count: 2},
	}
	exchange := &plan.Exchange{
		ID:    next(),
		Type:  plan.GatherExchange,
		Scope: plan.RemoteExchange,
		PartitioningScheme: plan.PartitioningScheme{
			Partitioning: plan.Partitioning{Handle: plan.SingleDistribution},
			OutputLayout: opt.SymbolList{"a", "b", "c", "id"},
		},
		Sources:        []plan.Node{&plan.AssignUniqueID{ID: next(), Source: scanABC(), IDSymbol: "id"}},
		Inputs:         []opt.SymbolList{{"a", "b", "c", "id"}},
		OrderingScheme: &plan.OrderingScheme{OrderBy: opt.SymbolList{"b"}},
	}

	return map[string]struct {
		root     plan.Node
		required opt.SymbolList
	}{
		"project":  {root: project, required: opt.SymbolList{"x"}},
		"window":   {root: window, required: opt.SymbolList{"m"}},
		"join":     {root: join, required: opt.SymbolList{"c"}},
		"unnest":   {root: unnest, required: opt.SymbolList{"elem"}},
		"apply":    {root: apply, required: opt.SymbolList{"e"}},
		"group-id": {root: groupID, required: opt.SymbolList{"total", "ga"}},
		"exchange": {root: exchange, required: opt.SymbolList{"a"}},
		"limit": {root: &plan.Limit{
			ID:                  next(),
			Source:              project,
			Count:               10,
			TiesResolvingScheme: &plan.OrderingScheme{OrderBy: opt.SymbolList{"z"}},
		}, required: opt.SymbolList{"y"}},
	}
}

func TestPruneIdempotent(t *testing.T) {
	for name, tc := range testPlans() {
		t.Run(name, func(t *testing.T) {
			once := prune(t, tc.root, tc.required...)
			twice := prune(t, once, tc.required...)
			if diff := cmp.Diff(once, twice, planCmpOpts...); diff != "" {
				t.Fatalf("pruning is not idempotent (-once +twice):\n%s\n%s", diff, plan.Format(once))
			}
		})
	}
}

func TestPruneSound(t *testing.T) {
	for name, tc := range testPlans() {
		t.Run(name, func(t *testing.T) {
			res := prune(t, tc.root, tc.required...)
			require.True(t, tc.required.ToSet().SubsetOf(res.OutputSymbols().ToSet()))
			checkSound(t, res, opt.SymbolSet{})
		})
	}
}

// checkSound verifies that every symbol a node reads is produced by one of
// its children, or by an enclosing input for correlated subqueries.
func checkSound(t *testing.T, n plan.Node, outer opt.SymbolSet) {
	t.Helper()
	available := outer.Copy()
	for _, c := range n.Children() {
		available.AddList(c.OutputSymbols())
	}
	missing := plan.IntrinsicSymbols(n).Difference(available)
	require.True(t, missing.Empty(), "%s node %d reads missing symbols %s:\n%s",
		n.Op(), n.NodeID(), missing, plan.Format(n))

	for i, c := range n.Children() {
		childOuter := outer
		switch n.Op() {
		case opt.ApplyOp, opt.LateralJoinOp:
			if i == 1 {
				childOuter = outer.Union(n.Children()[0].OutputSymbols().ToSet())
			}
		}
		checkSound(t, c, childOuter)
	}
}
