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

// Package norm contains normalizing rewrites that apply to a whole plan.
package norm

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/optcore/pkg/sql/opt"
	"github.com/cockroachdb/optcore/pkg/sql/opt/plan"
	"github.com/cockroachdb/optcore/pkg/sql/opt/scalar"
	"github.com/cockroachdb/optcore/pkg/util/log"
	"github.com/cockroachdb/redact"
)

// PruneUnreferencedOutputs rewrites the plan so that every node produces
// only the symbols needed by its parent, and reads only the symbols it needs
// from its children. The root keeps at least the required symbols, which
// must all be produced by it. Computations whose results are never used are
// removed. Node ids are preserved and the input plan is not modified.
//
// Output, TableWriter, TableFinish, StatisticsWriter, Delete and
// ExplainAnalyze compute their input requirements independently of what is
// required of them. Cross joins keep every symbol their inputs produce.
func PruneUnreferencedOutputs(
	ctx context.Context, root plan.Node, required opt.SymbolList,
) (_ plan.Node, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = opt.CatchOptimizerError(r)
		}
	}()
	p := pruner{ctx: ctx, refs: make(map[plan.Node]opt.SymbolSet)}
	res, _ := p.prune(root, required.ToSet())
	return res, nil
}

type pruner struct {
	ctx context.Context

	// refs caches, for every rebuilt node, the symbols referenced by the
	// computations of its subtree. Correlated references to symbols produced
	// outside the subtree are included.
	refs map[plan.Node]opt.SymbolSet
}

// prune rebuilds n so that it produces the required symbols, and returns the
// rebuilt node along with the symbols its subtree references.
func (p *pruner) prune(n plan.Node, required opt.SymbolSet) (plan.Node, opt.SymbolSet) {
	outputs := n.OutputSymbols().ToSet()
	if !required.SubsetOf(outputs) {
		panic(errors.AssertionFailedf(
			"%s node %d does not produce required symbols %s",
			n.Op(), n.NodeID(), redact.Safe(required.Difference(outputs).String()),
		))
	}
	res := p.rewrite(n, required)
	return res, p.referenced(res)
}

// child prunes a child of a node, asking it for the needed symbols it
// produces. Needed symbols it does not produce are outer references that are
// satisfied elsewhere.
func (p *pruner) child(n plan.Node, needed opt.SymbolSet) plan.Node {
	res, _ := p.prune(n, needed.Intersection(n.OutputSymbols().ToSet()))
	return res
}

func (p *pruner) referenced(n plan.Node) opt.SymbolSet {
	if refs, ok := p.refs[n]; ok {
		return refs
	}
	refs := plan.IntrinsicSymbols(n)
	for _, c := range n.Children() {
		refs.UnionWith(p.referenced(c))
	}
	p.refs[n] = refs
	return refs
}

// removed logs that a node was dropped from the plan because nothing reads
// what it computes.
func (p *pruner) removed(n plan.Node) {
	log.VEventf(p.ctx, 2, "pruned unused %s node %d", n.Op(), n.NodeID())
}

func (p *pruner) rewrite(n plan.Node, required opt.SymbolSet) plan.Node {
	switch t := n.(type) {
	case *plan.TableScan:
		cp := *t
		cp.Outputs = t.Outputs.Filter(required)
		cp.Assignments = make(map[opt.Symbol]plan.ColumnHandle, len(cp.Outputs))
		for _, sym := range cp.Outputs {
			cp.Assignments[sym] = t.Assignments[sym]
		}
		return &cp

	case *plan.IndexSource:
		cp := *t
		cp.Outputs = t.Outputs.Filter(required)
		cp.LookupSymbols = t.LookupSymbols.Intersection(required)
		cp.Assignments = make(map[opt.Symbol]plan.ColumnHandle, len(cp.Outputs))
		for _, sym := range cp.Outputs {
			cp.Assignments[sym] = t.Assignments[sym]
		}
		return &cp

	case *plan.Values:
		return pruneValues(t, required)

	case *plan.GroupReference:
		// The group is shared with other plans and cannot be narrowed here.
		return t

	case *plan.Filter:
		cp := *t
		cp.Source = p.child(t.Source, required.Union(plan.IntrinsicSymbols(t)))
		return &cp

	case *plan.Project:
		cp := *t
		cp.Assignments = t.Assignments.Filter(required)
		cp.Source = p.child(t.Source, cp.Assignments.ReferencedSymbols())
		return &cp

	case *plan.Aggregation:
		cp := *t
		needed := t.GroupingSets.Keys.ToSet()
		needed.Add(t.HashSymbol)
		cp.Aggregations = nil
		for i := range t.Aggregations {
			if required.Contains(t.Aggregations[i].Symbol) {
				cp.Aggregations = append(cp.Aggregations, t.Aggregations[i])
				needed.UnionWith(t.Aggregations[i].Aggregation.ReferencedSymbols())
			}
		}
		cp.Source = p.child(t.Source, needed)
		return &cp

	case *plan.GroupID:
		return p.pruneGroupID(t, required)

	case *plan.MarkDistinct:
		if !required.Contains(t.MarkerSymbol) {
			p.removed(t)
			return p.child(t.Source, required)
		}
		cp := *t
		needed := required.Copy()
		needed.Remove(t.MarkerSymbol)
		needed.UnionWith(plan.IntrinsicSymbols(t))
		cp.Source = p.child(t.Source, needed)
		return &cp

	case *plan.Window:
		return p.pruneWindow(t, required)

	case *plan.RowNumber:
		cp := *t
		cp.Source = p.child(t.Source, required.Union(plan.IntrinsicSymbols(t)))
		return &cp

	case *plan.TopNRowNumber:
		cp := *t
		cp.Source = p.child(t.Source, required.Union(plan.IntrinsicSymbols(t)))
		return &cp

	case *plan.Sort:
		cp := *t
		cp.Source = p.child(t.Source, required.Union(plan.IntrinsicSymbols(t)))
		return &cp

	case *plan.TopN:
		cp := *t
		cp.Source = p.child(t.Source, required.Union(plan.IntrinsicSymbols(t)))
		return &cp

	case *plan.Limit:
		cp := *t
		cp.Source = p.child(t.Source, required.Union(plan.IntrinsicSymbols(t)))
		return &cp

	case *plan.DistinctLimit:
		cp := *t
		cp.Source = p.child(t.Source, plan.IntrinsicSymbols(t))
		return &cp

	case *plan.Unnest:
		cp := *t
		cp.ReplicateSymbols = t.ReplicateSymbols.Filter(required)
		if !required.Contains(t.OrdinalitySymbol) {
			cp.OrdinalitySymbol = opt.NoSymbol
		}
		needed := cp.ReplicateSymbols.ToSet()
		needed.UnionWith(plan.IntrinsicSymbols(t))
		cp.Source = p.child(t.Source, needed)
		return &cp

	case *plan.AssignUniqueID:
		if !required.Contains(t.IDSymbol) {
			p.removed(t)
			return p.child(t.Source, required)
		}
		cp := *t
		cp.Source = p.child(t.Source, required)
		return &cp

	case *plan.EnforceSingleRow:
		cp := *t
		cp.Source = p.child(t.Source, required)
		return &cp

	case *plan.Output:
		cp := *t
		cp.Source = p.child(t.Source, t.Outputs.ToSet())
		return &cp

	case *plan.TableWriter:
		cp := *t
		cp.Source = p.child(t.Source, plan.IntrinsicSymbols(t))
		return &cp

	case *plan.Delete:
		cp := *t
		cp.Source = p.child(t.Source, plan.IntrinsicSymbols(t))
		return &cp

	case *plan.TableFinish:
		cp := *t
		cp.Source = p.child(t.Source, t.Source.OutputSymbols().ToSet())
		return &cp

	case *plan.StatisticsWriter:
		cp := *t
		cp.Source = p.child(t.Source, t.Source.OutputSymbols().ToSet())
		return &cp

	case *plan.ExplainAnalyze:
		cp := *t
		cp.Source = p.child(t.Source, t.Source.OutputSymbols().ToSet())
		return &cp

	case *plan.Join:
		return p.pruneJoin(t, required)

	case *plan.SemiJoin:
		cp := *t
		needed := required.Copy()
		needed.Add(t.SourceJoinSymbol)
		needed.Add(t.SourceHashSymbol)
		cp.Source = p.child(t.Source, needed)
		cp.FilteringSource = p.child(t.FilteringSource,
			opt.MakeSymbolSet(t.FilteringSourceJoinSymbol, t.FilteringSourceHashSymbol))
		return &cp

	case *plan.SpatialJoin:
		cp := *t
		needed := required.Union(plan.IntrinsicSymbols(t))
		cp.Left = p.child(t.Left, needed)
		cp.Right = p.child(t.Right, needed)
		cp.Outputs = t.Outputs.Filter(required).Distinct()
		return &cp

	case *plan.IndexJoin:
		cp := *t
		probe, index := required.Copy(), required.Copy()
		for _, c := range t.Criteria {
			probe.Add(c.Probe)
			index.Add(c.Index)
		}
		probe.Add(t.ProbeHashSymbol)
		index.Add(t.IndexHashSymbol)
		cp.ProbeSource = p.child(t.ProbeSource, probe)
		cp.IndexSource = p.child(t.IndexSource, index)
		return &cp

	case *plan.Union:
		return &plan.Union{ID: t.ID, SetOperation: p.pruneSetOperation(&t.SetOperation, required)}

	case *plan.Intersect:
		return &plan.Intersect{ID: t.ID, SetOperation: p.pruneSetOperation(&t.SetOperation, required)}

	case *plan.Except:
		return &plan.Except{ID: t.ID, SetOperation: p.pruneSetOperation(&t.SetOperation, required)}

	case *plan.Exchange:
		return p.pruneExchange(t, required)

	case *plan.Apply:
		return p.pruneApply(t, required)

	case *plan.LateralJoin:
		return p.pruneLateralJoin(t, required)
	}
	panic(errors.AssertionFailedf("unhandled plan node %s", n.Op()))
}

func pruneValues(n *plan.Values, required opt.SymbolSet) plan.Node {
	var keep []int
	for i, sym := range n.Outputs {
		if required.Contains(sym) {
			keep = append(keep, i)
		}
	}
	outputs := make(opt.SymbolList, len(keep))
	for i, pos := range keep {
		outputs[i] = n.Outputs[pos]
	}
	rows := make([][]scalar.Expr, len(n.Rows))
	for i, row := range n.Rows {
		if len(row) == 0 {
			continue
		}
		rows[i] = make([]scalar.Expr, len(keep))
		for j, pos := range keep {
			rows[i][j] = row[pos]
		}
	}
	return plan.NewValues(n.ID, outputs, rows)
}

func (p *pruner) pruneGroupID(n *plan.GroupID, required opt.SymbolSet) plan.Node {
	cp := *n
	cp.AggregationArguments = n.AggregationArguments.Filter(required)
	needed := cp.AggregationArguments.ToSet()

	var kept opt.SymbolSet
	cp.GroupingSets = make([]opt.SymbolList, len(n.GroupingSets))
	for i, set := range n.GroupingSets {
		cp.GroupingSets[i] = set.Filter(required)
		kept.AddList(cp.GroupingSets[i])
	}
	cp.GroupingColumns = nil
	for _, c := range n.GroupingColumns {
		if kept.Contains(c.Output) {
			cp.GroupingColumns = append(cp.GroupingColumns, c)
			needed.Add(c.Input)
		}
	}
	cp.Source = p.child(n.Source, needed)
	return &cp
}

func (p *pruner) pruneWindow(n *plan.Window, required opt.SymbolSet) plan.Node {
	needed := required.Union(n.Specification.Symbols())
	needed.Add(n.HashSymbol)
	var functions []plan.WindowFunction
	for i := range n.Functions {
		if required.Contains(n.Functions[i].Symbol) {
			functions = append(functions, n.Functions[i])
			needed.UnionWith(n.Functions[i].ReferencedSymbols())
		}
	}
	source := p.child(n.Source, needed)
	if len(functions) == 0 {
		p.removed(n)
		return source
	}
	cp := *n
	cp.Source = source
	cp.Functions = functions
	return &cp
}

func (p *pruner) pruneJoin(n *plan.Join, required opt.SymbolSet) plan.Node {
	filterSymbols := scalar.ExtractSymbols(n.Filter)
	left := required.Union(filterSymbols)
	right := left.Copy()
	for _, c := range n.Criteria {
		left.Add(c.Left)
		right.Add(c.Right)
	}
	left.Add(n.LeftHashSymbol)
	right.Add(n.RightHashSymbol)

	cp := *n
	cp.Left = p.child(n.Left, left)
	cp.Right = p.child(n.Right, right)
	if n.IsCrossJoin() {
		// Nested loop joins cannot select their outputs.
		cp.Outputs = append(append(opt.SymbolList(nil), cp.Left.OutputSymbols()...), cp.Right.OutputSymbols()...)
	} else {
		cp.Outputs = n.Outputs.Filter(required).Distinct()
	}
	return &cp
}

func (p *pruner) pruneSetOperation(s *plan.SetOperation, required opt.SymbolSet) plan.SetOperation {
	var res plan.SetOperation
	for _, m := range s.Mapping {
		if required.Contains(m.Output) {
			res.Mapping = append(res.Mapping, m)
		}
	}
	res.Sources = make([]plan.Node, len(s.Sources))
	for i, src := range s.Sources {
		res.Sources[i] = p.child(src, res.SourceInputs(i).ToSet())
	}
	return res
}

func (p *pruner) pruneExchange(n *plan.Exchange, required opt.SymbolSet) plan.Node {
	// The exchange always needs the symbols it partitions, hashes and sorts
	// on, even if its parent does not.
	keep := required.Union(plan.IntrinsicSymbols(n))

	cp := *n
	cp.PartitioningScheme.OutputLayout = nil
	cp.Inputs = make([]opt.SymbolList, len(n.Inputs))
	for i, sym := range n.PartitioningScheme.OutputLayout {
		if !keep.Contains(sym) {
			continue
		}
		cp.PartitioningScheme.OutputLayout = append(cp.PartitioningScheme.OutputLayout, sym)
		for src := range n.Inputs {
			cp.Inputs[src] = append(cp.Inputs[src], n.Inputs[src][i])
		}
	}
	cp.Sources = make([]plan.Node, len(n.Sources))
	for i, src := range n.Sources {
		cp.Sources[i] = p.child(src, cp.Inputs[i].ToSet())
	}
	cp.CheckInputs()
	return &cp
}

func (p *pruner) pruneApply(n *plan.Apply, required opt.SymbolSet) plan.Node {
	assignments := n.SubqueryAssignments.Filter(required)
	if len(assignments) == 0 {
		p.removed(n)
		return p.child(n.Input, required)
	}
	assignmentSymbols := assignments.ReferencedSymbols()
	subquery, subqueryRefs := p.prune(n.Subquery,
		assignmentSymbols.Intersection(n.Subquery.OutputSymbols().ToSet()))
	correlation := n.Correlation.Filter(subqueryRefs)

	needed := required.Union(assignmentSymbols)
	needed.AddList(correlation)

	cp := *n
	cp.Input = p.child(n.Input, needed)
	cp.Subquery = subquery
	cp.SubqueryAssignments = assignments
	cp.Correlation = correlation
	return &cp
}

func (p *pruner) pruneLateralJoin(n *plan.LateralJoin, required opt.SymbolSet) plan.Node {
	subquery, subqueryRefs := p.prune(n.Subquery,
		required.Intersection(n.Subquery.OutputSymbols().ToSet()))
	if !required.Intersects(subquery.OutputSymbols().ToSet()) && plan.IsScalar(subquery, plan.NoLookup) {
		p.removed(n)
		return p.child(n.Input, required)
	}

	correlation := n.Correlation.Filter(subqueryRefs)
	needed := required.Copy()
	needed.AddList(correlation)
	input := p.child(n.Input, needed)
	if !needed.Intersects(input.OutputSymbols().ToSet()) && plan.IsScalar(input, plan.NoLookup) {
		p.removed(n)
		return subquery
	}

	cp := *n
	cp.Input = input
	cp.Subquery = subquery
	cp.Correlation = correlation
	return &cp
}
