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
	"github.com/cockroachdb/optcore/pkg/sql/opt"
	"github.com/cockroachdb/optcore/pkg/sql/opt/scalar"
)

// IntrinsicSymbols returns the input symbols the node reads for its own
// computation, regardless of which of its outputs are used. Symbols that are
// only passed through to the outputs are not included. For nodes whose
// computation depends on which outputs are used (projections, aggregations,
// window functions and the like), the symbols needed by every output are
// included.
func IntrinsicSymbols(n Node) opt.SymbolSet {
	var res opt.SymbolSet
	switch t := n.(type) {
	case *Filter:
		res = scalar.ExtractSymbols(t.Predicate)

	case *Project:
		res = t.Assignments.ReferencedSymbols()

	case *Aggregation:
		res.AddList(t.GroupingSets.Keys)
		res.Add(t.HashSymbol)
		for i := range t.Aggregations {
			res.UnionWith(t.Aggregations[i].Aggregation.ReferencedSymbols())
		}
		// The group id symbol is one of the grouping keys.

	case *GroupID:
		for _, c := range t.GroupingColumns {
			res.Add(c.Input)
		}
		res.AddList(t.AggregationArguments)

	case *MarkDistinct:
		res.AddList(t.DistinctSymbols)
		res.Add(t.HashSymbol)

	case *Window:
		res = t.Specification.Symbols()
		res.Add(t.HashSymbol)
		for i := range t.Functions {
			res.UnionWith(t.Functions[i].ReferencedSymbols())
		}

	case *RowNumber:
		res.AddList(t.PartitionBy)
		res.Add(t.HashSymbol)

	case *TopNRowNumber:
		res = t.Specification.Symbols()
		res.Add(t.HashSymbol)

	case *Sort:
		res = t.OrderingScheme.Symbols()

	case *TopN:
		res = t.OrderingScheme.Symbols()

	case *Limit:
		res = t.TiesResolvingScheme.Symbols()

	case *DistinctLimit:
		res.AddList(t.DistinctSymbols)
		res.Add(t.HashSymbol)

	case *Unnest:
		for _, m := range t.UnnestSymbols {
			res.Add(m.Input)
		}

	case *Output:
		res.AddList(t.Outputs)

	case *TableWriter:
		res.AddList(t.Columns)
		if t.PartitioningScheme != nil {
			res.UnionWith(t.PartitioningScheme.Partitioning.Symbols())
			res.Add(t.PartitioningScheme.HashColumn)
		}
		res.UnionWith(t.StatisticsAggregation.ReferencedSymbols())

	case *TableFinish:
		res.UnionWith(t.StatisticsAggregation.ReferencedSymbols())

	case *StatisticsWriter:
		res = t.Descriptor.ReferencedSymbols()

	case *Delete:
		res.Add(t.RowID)

	case *Join:
		for _, c := range t.Criteria {
			res.Add(c.Left)
			res.Add(c.Right)
		}
		res.UnionWith(scalar.ExtractSymbols(t.Filter))
		res.Add(t.LeftHashSymbol)
		res.Add(t.RightHashSymbol)

	case *SemiJoin:
		res.Add(t.SourceJoinSymbol)
		res.Add(t.FilteringSourceJoinSymbol)
		res.Add(t.SourceHashSymbol)
		res.Add(t.FilteringSourceHashSymbol)

	case *SpatialJoin:
		res = scalar.ExtractSymbols(t.Filter)
		res.Add(t.LeftPartitionSymbol)
		res.Add(t.RightPartitionSymbol)

	case *IndexJoin:
		for _, c := range t.Criteria {
			res.Add(c.Probe)
			res.Add(c.Index)
		}
		res.Add(t.ProbeHashSymbol)
		res.Add(t.IndexHashSymbol)

	case *IndexSource:
		res = t.LookupSymbols.Copy()

	case *Exchange:
		res = t.PartitioningScheme.Partitioning.Symbols()
		res.Add(t.PartitioningScheme.HashColumn)
		res.UnionWith(t.OrderingScheme.Symbols())

	case *Apply:
		res = t.SubqueryAssignments.ReferencedSymbols()
		res.AddList(t.Correlation)

	case *LateralJoin:
		res.AddList(t.Correlation)
	}
	return res
}
