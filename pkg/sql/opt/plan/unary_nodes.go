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

// Filter passes through the rows of its source for which Predicate is true.
type Filter struct {
	ID        NodeID
	Source    Node
	Predicate scalar.Expr
}

// Project computes one output column per assignment.
type Project struct {
	ID          NodeID
	Source      Node
	Assignments Assignments
}

// Aggregation groups the rows of its source by the grouping keys and
// computes aggregate functions over every group. Its outputs are the grouping
// keys, the optional hash symbol and the aggregation symbols, in that order.
type Aggregation struct {
	ID            NodeID
	Source        Node
	Aggregations  []AggregationItem
	GroupingSets  GroupingSetDescriptor
	Step          AggregationStep
	HashSymbol    opt.Symbol
	GroupIDSymbol opt.Symbol
}

// GroupingColumn maps a grouping column produced by a GroupID node to the
// source column it copies.
type GroupingColumn struct {
	Output opt.Symbol
	Input  opt.Symbol
}

// GroupID replicates each source row once per grouping set, nulling out the
// grouping columns that are not part of the set and tagging each copy with
// the set index in GroupIDSymbol.
type GroupID struct {
	ID                   NodeID
	Source               Node
	GroupingSets         []opt.SymbolList
	GroupingColumns      []GroupingColumn
	AggregationArguments opt.SymbolList
	GroupIDSymbol        opt.Symbol
}

// MarkDistinct adds a boolean column that is true for the first row of every
// distinct combination of DistinctSymbols.
type MarkDistinct struct {
	ID              NodeID
	Source          Node
	MarkerSymbol    opt.Symbol
	DistinctSymbols opt.SymbolList
	HashSymbol      opt.Symbol
}

// Window computes window functions over partitions of its source.
type Window struct {
	ID                   NodeID
	Source               Node
	Specification        WindowSpecification
	Functions            []WindowFunction
	HashSymbol           opt.Symbol
	PrePartitionedInputs opt.SymbolSet
	PreSortedOrderPrefix int
}

// RowNumber numbers the rows of every partition, optionally keeping only
// the first rows of each.
type RowNumber struct {
	ID                      NodeID
	Source                  Node
	PartitionBy             opt.SymbolList
	RowNumberSymbol         opt.Symbol
	MaxRowCountPerPartition RowNumberLimit
	HashSymbol              opt.Symbol
}

// TopNRowNumber keeps the first MaxRowCountPerPartition rows of every
// partition according to the ordering of its window specification.
type TopNRowNumber struct {
	ID                      NodeID
	Source                  Node
	Specification           WindowSpecification
	RowNumberSymbol         opt.Symbol
	MaxRowCountPerPartition int64
	Partial                 bool
	HashSymbol              opt.Symbol
}

// Sort orders the rows of its source.
type Sort struct {
	ID             NodeID
	Source         Node
	OrderingScheme OrderingScheme
	Partial        bool
}

// TopN returns the first Count rows of its source according to an ordering.
type TopN struct {
	ID             NodeID
	Source         Node
	Count          int64
	OrderingScheme OrderingScheme
	Partial        bool
}

// Limit returns at most Count rows of its source. When TiesResolvingScheme
// is set, rows tied with the last returned row are returned as well.
type Limit struct {
	ID                  NodeID
	Source              Node
	Count               int64
	TiesResolvingScheme *OrderingScheme
	Partial             bool
}

// DistinctLimit returns at most Limit distinct combinations of
// DistinctSymbols.
type DistinctLimit struct {
	ID              NodeID
	Source          Node
	Limit           int64
	Partial         bool
	DistinctSymbols opt.SymbolList
	HashSymbol      opt.Symbol
}

// Unnest expands collection-valued columns into rows. Replicated columns are
// repeated for every produced row and OrdinalitySymbol, if set, numbers the
// elements.
type Unnest struct {
	ID               NodeID
	Source           Node
	ReplicateSymbols opt.SymbolList
	UnnestSymbols    []UnnestMapping
	OrdinalitySymbol opt.Symbol
}

// AssignUniqueID adds a column holding a value unique to every row.
type AssignUniqueID struct {
	ID       NodeID
	Source   Node
	IDSymbol opt.Symbol
}

// EnforceSingleRow fails at execution time if its source produces more than
// one row, and produces a row of nulls if it produces none.
type EnforceSingleRow struct {
	ID     NodeID
	Source Node
}

// Output is the root of a query plan. It names the columns returned to the
// client.
type Output struct {
	ID          NodeID
	Source      Node
	ColumnNames []string
	Outputs     opt.SymbolList
}

// TableWriter writes the rows of its source into a table.
type TableWriter struct {
	ID                    NodeID
	Source                Node
	Target                string
	RowCountSymbol        opt.Symbol
	FragmentSymbol        opt.Symbol
	Columns               opt.SymbolList
	ColumnNames           []string
	PartitioningScheme    *PartitioningScheme
	StatisticsAggregation *StatisticAggregations
}

// TableFinish commits the fragments written by table writers.
type TableFinish struct {
	ID                    NodeID
	Source                Node
	Target                string
	RowCountSymbol        opt.Symbol
	StatisticsAggregation *StatisticAggregations
}

// StatisticsDescriptor lists the symbols holding collected statistics.
type StatisticsDescriptor struct {
	Grouping         opt.SymbolList
	TableStatistics  opt.SymbolList
	ColumnStatistics opt.SymbolList
}

// ReferencedSymbols returns every symbol named by the descriptor.
func (d *StatisticsDescriptor) ReferencedSymbols() opt.SymbolSet {
	res := d.Grouping.ToSet()
	res.AddList(d.TableStatistics)
	res.AddList(d.ColumnStatistics)
	return res
}

// StatisticsWriter stores statistics computed by its source.
type StatisticsWriter struct {
	ID              NodeID
	Source          Node
	Target          string
	RowCountSymbol  opt.Symbol
	RowCountEnabled bool
	Descriptor      StatisticsDescriptor
}

// Delete deletes the rows identified by RowID.
type Delete struct {
	ID      NodeID
	Source  Node
	Target  string
	RowID   opt.Symbol
	Outputs opt.SymbolList
}

// ExplainAnalyze runs its source and returns a description of the execution.
type ExplainAnalyze struct {
	ID           NodeID
	Source       Node
	OutputSymbol opt.Symbol
	Verbose      bool
}

var _ Node = &Filter{}
var _ Node = &Project{}
var _ Node = &Aggregation{}
var _ Node = &GroupID{}
var _ Node = &MarkDistinct{}
var _ Node = &Window{}
var _ Node = &RowNumber{}
var _ Node = &TopNRowNumber{}
var _ Node = &Sort{}
var _ Node = &TopN{}
var _ Node = &Limit{}
var _ Node = &DistinctLimit{}
var _ Node = &Unnest{}
var _ Node = &AssignUniqueID{}
var _ Node = &EnforceSingleRow{}
var _ Node = &Output{}
var _ Node = &TableWriter{}
var _ Node = &TableFinish{}
var _ Node = &StatisticsWriter{}
var _ Node = &Delete{}
var _ Node = &ExplainAnalyze{}

func (*Filter) node()           {}
func (*Project) node()          {}
func (*Aggregation) node()      {}
func (*GroupID) node()          {}
func (*MarkDistinct) node()     {}
func (*Window) node()           {}
func (*RowNumber) node()        {}
func (*TopNRowNumber) node()    {}
func (*Sort) node()             {}
func (*TopN) node()             {}
func (*Limit) node()            {}
func (*DistinctLimit) node()    {}
func (*Unnest) node()           {}
func (*AssignUniqueID) node()   {}
func (*EnforceSingleRow) node() {}
func (*Output) node()           {}
func (*TableWriter) node()      {}
func (*TableFinish) node()      {}
func (*StatisticsWriter) node() {}
func (*Delete) node()           {}
func (*ExplainAnalyze) node()   {}

func (n *Filter) NodeID() NodeID                { return n.ID }
func (n *Filter) Op() opt.Operator              { return opt.FilterOp }
func (n *Filter) Children() []Node              { return []Node{n.Source} }
func (n *Filter) OutputSymbols() opt.SymbolList { return n.Source.OutputSymbols() }
func (n *Filter) ReplaceChildren(children []Node) Node {
	checkChildCount(n, children, 1)
	cp := *n
	cp.Source = children[0]
	return &cp
}

func (n *Project) NodeID() NodeID                { return n.ID }
func (n *Project) Op() opt.Operator              { return opt.ProjectOp }
func (n *Project) Children() []Node              { return []Node{n.Source} }
func (n *Project) OutputSymbols() opt.SymbolList { return n.Assignments.Symbols() }
func (n *Project) ReplaceChildren(children []Node) Node {
	checkChildCount(n, children, 1)
	cp := *n
	cp.Source = children[0]
	return &cp
}

func (n *Aggregation) NodeID() NodeID   { return n.ID }
func (n *Aggregation) Op() opt.Operator { return opt.AggregationOp }
func (n *Aggregation) Children() []Node { return []Node{n.Source} }
func (n *Aggregation) OutputSymbols() opt.SymbolList {
	return appendSymbols(n.GroupingSets.Keys, optional(n.HashSymbol), n.AggregationSymbols())
}
func (n *Aggregation) ReplaceChildren(children []Node) Node {
	checkChildCount(n, children, 1)
	cp := *n
	cp.Source = children[0]
	return &cp
}

// AggregationSymbols returns the symbols receiving the aggregate results.
func (n *Aggregation) AggregationSymbols() opt.SymbolList {
	res := make(opt.SymbolList, len(n.Aggregations))
	for i := range n.Aggregations {
		res[i] = n.Aggregations[i].Symbol
	}
	return res
}

// HasSingleGlobalGroupingSet returns true if the aggregation has exactly one
// grouping set and that set has no keys.
func (n *Aggregation) HasSingleGlobalGroupingSet() bool {
	return n.GroupingSets.SetCount() == 1 && len(n.GroupingSets.Keys) == 0
}

func (n *GroupID) NodeID() NodeID   { return n.ID }
func (n *GroupID) Op() opt.Operator { return opt.GroupIDOp }
func (n *GroupID) Children() []Node { return []Node{n.Source} }
func (n *GroupID) OutputSymbols() opt.SymbolList {
	return appendSymbols(n.DistinctGroupingSetSymbols(), n.AggregationArguments, optional(n.GroupIDSymbol))
}
func (n *GroupID) ReplaceChildren(children []Node) Node {
	checkChildCount(n, children, 1)
	cp := *n
	cp.Source = children[0]
	return &cp
}

// DistinctGroupingSetSymbols returns the symbols of all grouping sets, each
// listed once, in order of first appearance.
func (n *GroupID) DistinctGroupingSetSymbols() opt.SymbolList {
	var all opt.SymbolList
	for _, set := range n.GroupingSets {
		all = append(all, set...)
	}
	return all.Distinct()
}

// GroupingColumnInput returns the source symbol copied into the given
// grouping column.
func (n *GroupID) GroupingColumnInput(output opt.Symbol) (opt.Symbol, bool) {
	for _, c := range n.GroupingColumns {
		if c.Output == output {
			return c.Input, true
		}
	}
	return opt.NoSymbol, false
}

func (n *MarkDistinct) NodeID() NodeID   { return n.ID }
func (n *MarkDistinct) Op() opt.Operator { return opt.MarkDistinctOp }
func (n *MarkDistinct) Children() []Node { return []Node{n.Source} }
func (n *MarkDistinct) OutputSymbols() opt.SymbolList {
	return appendSymbols(n.Source.OutputSymbols(), optional(n.MarkerSymbol))
}
func (n *MarkDistinct) ReplaceChildren(children []Node) Node {
	checkChildCount(n, children, 1)
	cp := *n
	cp.Source = children[0]
	return &cp
}

func (n *Window) NodeID() NodeID   { return n.ID }
func (n *Window) Op() opt.Operator { return opt.WindowOp }
func (n *Window) Children() []Node { return []Node{n.Source} }
func (n *Window) OutputSymbols() opt.SymbolList {
	return appendSymbols(n.Source.OutputSymbols(), n.FunctionSymbols())
}
func (n *Window) ReplaceChildren(children []Node) Node {
	checkChildCount(n, children, 1)
	cp := *n
	cp.Source = children[0]
	return &cp
}

// FunctionSymbols returns the symbols receiving the window function results.
func (n *Window) FunctionSymbols() opt.SymbolList {
	res := make(opt.SymbolList, len(n.Functions))
	for i := range n.Functions {
		res[i] = n.Functions[i].Symbol
	}
	return res
}

func (n *RowNumber) NodeID() NodeID   { return n.ID }
func (n *RowNumber) Op() opt.Operator { return opt.RowNumberOp }
func (n *RowNumber) Children() []Node { return []Node{n.Source} }
func (n *RowNumber) OutputSymbols() opt.SymbolList {
	return appendSymbols(n.Source.OutputSymbols(), optional(n.RowNumberSymbol))
}
func (n *RowNumber) ReplaceChildren(children []Node) Node {
	checkChildCount(n, children, 1)
	cp := *n
	cp.Source = children[0]
	return &cp
}

func (n *TopNRowNumber) NodeID() NodeID   { return n.ID }
func (n *TopNRowNumber) Op() opt.Operator { return opt.TopNRowNumberOp }
func (n *TopNRowNumber) Children() []Node { return []Node{n.Source} }
func (n *TopNRowNumber) OutputSymbols() opt.SymbolList {
	return appendSymbols(n.Source.OutputSymbols(), optional(n.RowNumberSymbol))
}
func (n *TopNRowNumber) ReplaceChildren(children []Node) Node {
	checkChildCount(n, children, 1)
	cp := *n
	cp.Source = children[0]
	return &cp
}

func (n *Sort) NodeID() NodeID                { return n.ID }
func (n *Sort) Op() opt.Operator              { return opt.SortOp }
func (n *Sort) Children() []Node              { return []Node{n.Source} }
func (n *Sort) OutputSymbols() opt.SymbolList { return n.Source.OutputSymbols() }
func (n *Sort) ReplaceChildren(children []Node) Node {
	checkChildCount(n, children, 1)
	cp := *n
	cp.Source = children[0]
	return &cp
}

func (n *TopN) NodeID() NodeID                { return n.ID }
func (n *TopN) Op() opt.Operator              { return opt.TopNOp }
func (n *TopN) Children() []Node              { return []Node{n.Source} }
func (n *TopN) OutputSymbols() opt.SymbolList { return n.Source.OutputSymbols() }
func (n *TopN) ReplaceChildren(children []Node) Node {
	checkChildCount(n, children, 1)
	cp := *n
	cp.Source = children[0]
	return &cp
}

func (n *Limit) NodeID() NodeID                { return n.ID }
func (n *Limit) Op() opt.Operator              { return opt.LimitOp }
func (n *Limit) Children() []Node              { return []Node{n.Source} }
func (n *Limit) OutputSymbols() opt.SymbolList { return n.Source.OutputSymbols() }
func (n *Limit) ReplaceChildren(children []Node) Node {
	checkChildCount(n, children, 1)
	cp := *n
	cp.Source = children[0]
	return &cp
}

func (n *DistinctLimit) NodeID() NodeID   { return n.ID }
func (n *DistinctLimit) Op() opt.Operator { return opt.DistinctLimitOp }
func (n *DistinctLimit) Children() []Node { return []Node{n.Source} }
func (n *DistinctLimit) OutputSymbols() opt.SymbolList {
	return appendSymbols(n.DistinctSymbols, optional(n.HashSymbol))
}
func (n *DistinctLimit) ReplaceChildren(children []Node) Node {
	checkChildCount(n, children, 1)
	cp := *n
	cp.Source = children[0]
	return &cp
}

func (n *Unnest) NodeID() NodeID   { return n.ID }
func (n *Unnest) Op() opt.Operator { return opt.UnnestOp }
func (n *Unnest) Children() []Node { return []Node{n.Source} }
func (n *Unnest) OutputSymbols() opt.SymbolList {
	res := append(opt.SymbolList(nil), n.ReplicateSymbols...)
	for _, m := range n.UnnestSymbols {
		res = append(res, m.Outputs...)
	}
	return append(res, optional(n.OrdinalitySymbol)...)
}
func (n *Unnest) ReplaceChildren(children []Node) Node {
	checkChildCount(n, children, 1)
	cp := *n
	cp.Source = children[0]
	return &cp
}

func (n *AssignUniqueID) NodeID() NodeID   { return n.ID }
func (n *AssignUniqueID) Op() opt.Operator { return opt.AssignUniqueIDOp }
func (n *AssignUniqueID) Children() []Node { return []Node{n.Source} }
func (n *AssignUniqueID) OutputSymbols() opt.SymbolList {
	return appendSymbols(n.Source.OutputSymbols(), optional(n.IDSymbol))
}
func (n *AssignUniqueID) ReplaceChildren(children []Node) Node {
	checkChildCount(n, children, 1)
	cp := *n
	cp.Source = children[0]
	return &cp
}

func (n *EnforceSingleRow) NodeID() NodeID                { return n.ID }
func (n *EnforceSingleRow) Op() opt.Operator              { return opt.EnforceSingleRowOp }
func (n *EnforceSingleRow) Children() []Node              { return []Node{n.Source} }
func (n *EnforceSingleRow) OutputSymbols() opt.SymbolList { return n.Source.OutputSymbols() }
func (n *EnforceSingleRow) ReplaceChildren(children []Node) Node {
	checkChildCount(n, children, 1)
	cp := *n
	cp.Source = children[0]
	return &cp
}

func (n *Output) NodeID() NodeID                { return n.ID }
func (n *Output) Op() opt.Operator              { return opt.OutputOp }
func (n *Output) Children() []Node              { return []Node{n.Source} }
func (n *Output) OutputSymbols() opt.SymbolList { return n.Outputs }
func (n *Output) ReplaceChildren(children []Node) Node {
	checkChildCount(n, children, 1)
	cp := *n
	cp.Source = children[0]
	return &cp
}

func (n *TableWriter) NodeID() NodeID   { return n.ID }
func (n *TableWriter) Op() opt.Operator { return opt.TableWriterOp }
func (n *TableWriter) Children() []Node { return []Node{n.Source} }
func (n *TableWriter) OutputSymbols() opt.SymbolList {
	return appendSymbols(
		optional(n.RowCountSymbol), optional(n.FragmentSymbol), n.StatisticsAggregation.Symbols(),
	)
}
func (n *TableWriter) ReplaceChildren(children []Node) Node {
	checkChildCount(n, children, 1)
	cp := *n
	cp.Source = children[0]
	return &cp
}

func (n *TableFinish) NodeID() NodeID                { return n.ID }
func (n *TableFinish) Op() opt.Operator              { return opt.TableFinishOp }
func (n *TableFinish) Children() []Node              { return []Node{n.Source} }
func (n *TableFinish) OutputSymbols() opt.SymbolList { return optional(n.RowCountSymbol) }
func (n *TableFinish) ReplaceChildren(children []Node) Node {
	checkChildCount(n, children, 1)
	cp := *n
	cp.Source = children[0]
	return &cp
}

func (n *StatisticsWriter) NodeID() NodeID                { return n.ID }
func (n *StatisticsWriter) Op() opt.Operator              { return opt.StatisticsWriterOp }
func (n *StatisticsWriter) Children() []Node              { return []Node{n.Source} }
func (n *StatisticsWriter) OutputSymbols() opt.SymbolList { return optional(n.RowCountSymbol) }
func (n *StatisticsWriter) ReplaceChildren(children []Node) Node {
	checkChildCount(n, children, 1)
	cp := *n
	cp.Source = children[0]
	return &cp
}

func (n *Delete) NodeID() NodeID                { return n.ID }
func (n *Delete) Op() opt.Operator              { return opt.DeleteOp }
func (n *Delete) Children() []Node              { return []Node{n.Source} }
func (n *Delete) OutputSymbols() opt.SymbolList { return n.Outputs }
func (n *Delete) ReplaceChildren(children []Node) Node {
	checkChildCount(n, children, 1)
	cp := *n
	cp.Source = children[0]
	return &cp
}

func (n *ExplainAnalyze) NodeID() NodeID                { return n.ID }
func (n *ExplainAnalyze) Op() opt.Operator              { return opt.ExplainAnalyzeOp }
func (n *ExplainAnalyze) Children() []Node              { return []Node{n.Source} }
func (n *ExplainAnalyze) OutputSymbols() opt.SymbolList { return optional(n.OutputSymbol) }
func (n *ExplainAnalyze) ReplaceChildren(children []Node) Node {
	checkChildCount(n, children, 1)
	cp := *n
	cp.Source = children[0]
	return &cp
}
