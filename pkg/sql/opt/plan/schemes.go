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

// TableHandle names a table known to a connector.
type TableHandle string

// ColumnHandle names a column of a table known to a connector.
type ColumnHandle string

// Assignment binds a symbol to the expression that computes it.
type Assignment struct {
	Symbol opt.Symbol
	Expr   scalar.Expr
}

// Assignments is an ordered list of symbol assignments. Symbols are unique
// within the list.
type Assignments []Assignment

// Symbols returns the assigned symbols, in order.
func (a Assignments) Symbols() opt.SymbolList {
	res := make(opt.SymbolList, len(a))
	for i := range a {
		res[i] = a[i].Symbol
	}
	return res
}

// Get returns the expression assigned to sym.
func (a Assignments) Get(sym opt.Symbol) (scalar.Expr, bool) {
	for i := range a {
		if a[i].Symbol == sym {
			return a[i].Expr, true
		}
	}
	return nil, false
}

// Filter returns the assignments whose symbol is in the given set, keeping
// their order.
func (a Assignments) Filter(keep opt.SymbolSet) Assignments {
	res := make(Assignments, 0, len(a))
	for i := range a {
		if keep.Contains(a[i].Symbol) {
			res = append(res, a[i])
		}
	}
	return res
}

// ReferencedSymbols returns the symbols referenced by the assigned
// expressions.
func (a Assignments) ReferencedSymbols() opt.SymbolSet {
	var res opt.SymbolSet
	for i := range a {
		res.UnionWith(scalar.ExtractSymbols(a[i].Expr))
	}
	return res
}

// IsIdentity returns true if sym is assigned a reference to itself.
func (a Assignments) IsIdentity(sym opt.Symbol) bool {
	e, ok := a.Get(sym)
	if !ok {
		return false
	}
	v, ok := e.(*scalar.Variable)
	return ok && v.Symbol == sym
}

// IdentityAssignments returns assignments that pass each symbol through
// unchanged.
func IdentityAssignments(syms opt.SymbolList) Assignments {
	res := make(Assignments, len(syms))
	for i, sym := range syms {
		res[i] = Assignment{Symbol: sym, Expr: scalar.NewVariable(sym)}
	}
	return res
}

// SortOrder is the direction and null placement of an ordering column.
type SortOrder uint8

const (
	AscNullsFirst SortOrder = iota
	AscNullsLast
	DescNullsFirst
	DescNullsLast
)

var sortOrderNames = [...]string{
	AscNullsFirst:  "asc-nulls-first",
	AscNullsLast:   "asc-nulls-last",
	DescNullsFirst: "desc-nulls-first",
	DescNullsLast:  "desc-nulls-last",
}

func (o SortOrder) String() string {
	if int(o) < len(sortOrderNames) {
		return sortOrderNames[o]
	}
	return "unknown"
}

// OrderingScheme is a list of ordering symbols together with their sort
// orders.
type OrderingScheme struct {
	OrderBy   opt.SymbolList
	Orderings map[opt.Symbol]SortOrder
}

// Ordering returns the sort order of sym. Symbols without an explicit order
// sort ascending with nulls last.
func (o *OrderingScheme) Ordering(sym opt.Symbol) SortOrder {
	if order, ok := o.Orderings[sym]; ok {
		return order
	}
	return AscNullsLast
}

// Symbols returns the ordering symbols as a set. It is safe to call on a nil
// scheme.
func (o *OrderingScheme) Symbols() opt.SymbolSet {
	if o == nil {
		return opt.SymbolSet{}
	}
	return o.OrderBy.ToSet()
}

// PartitioningHandle identifies a data distribution.
type PartitioningHandle string

// Well-known partitioning handles.
const (
	SingleDistribution         PartitioningHandle = "single"
	FixedHashDistribution      PartitioningHandle = "hash"
	FixedArbitraryDistribution PartitioningHandle = "arbitrary"
	FixedBroadcastDistribution PartitioningHandle = "broadcast"
	SourceDistribution         PartitioningHandle = "source"
)

// PartitioningArgument is either a column reference or a constant.
type PartitioningArgument struct {
	Symbol   opt.Symbol
	Constant *scalar.Constant
}

// IsConstant returns true if the argument is a constant.
func (a PartitioningArgument) IsConstant() bool {
	return a.Constant != nil
}

func (a PartitioningArgument) String() string {
	if a.IsConstant() {
		return a.Constant.String()
	}
	return string(a.Symbol)
}

// Partitioning describes how rows are distributed: a handle and the
// arguments the distribution function is applied to.
type Partitioning struct {
	Handle    PartitioningHandle
	Arguments []PartitioningArgument
}

// Symbols returns the column arguments of the partitioning.
func (p *Partitioning) Symbols() opt.SymbolSet {
	var res opt.SymbolSet
	for _, arg := range p.Arguments {
		if !arg.IsConstant() {
			res.Add(arg.Symbol)
		}
	}
	return res
}

// PartitioningScheme describes the distribution and the layout of the rows
// produced by an exchange or written by a table writer.
type PartitioningScheme struct {
	Partitioning         Partitioning
	OutputLayout         opt.SymbolList
	HashColumn           opt.Symbol
	ReplicateNullsAndAny bool
	BucketToPartition    []int
}

// ExchangeType is the way an exchange redistributes rows.
type ExchangeType uint8

const (
	GatherExchange ExchangeType = iota
	RepartitionExchange
	ReplicateExchange
)

func (t ExchangeType) String() string {
	switch t {
	case GatherExchange:
		return "gather"
	case RepartitionExchange:
		return "repartition"
	case ReplicateExchange:
		return "replicate"
	}
	return "unknown"
}

// ExchangeScope tells whether an exchange moves rows between tasks on the
// same worker or across the network.
type ExchangeScope uint8

const (
	LocalExchange ExchangeScope = iota
	RemoteExchange
)

func (s ExchangeScope) String() string {
	if s == RemoteExchange {
		return "remote"
	}
	return "local"
}

// JoinType is the type of a join.
type JoinType uint8

const (
	InnerJoin JoinType = iota
	LeftJoin
	RightJoin
	FullJoin
)

func (t JoinType) String() string {
	switch t {
	case InnerJoin:
		return "inner"
	case LeftJoin:
		return "left"
	case RightJoin:
		return "right"
	case FullJoin:
		return "full"
	}
	return "unknown"
}

// EquiJoinClause is an equality condition between a left and a right symbol.
type EquiJoinClause struct {
	Left  opt.Symbol
	Right opt.Symbol
}

// Flip returns the clause with both sides swapped.
func (c EquiJoinClause) Flip() EquiJoinClause {
	return EquiJoinClause{Left: c.Right, Right: c.Left}
}

// AggregationStep is the phase of a distributed aggregation.
type AggregationStep uint8

const (
	SingleStep AggregationStep = iota
	PartialStep
	IntermediateStep
	FinalStep
)

func (s AggregationStep) String() string {
	switch s {
	case SingleStep:
		return "single"
	case PartialStep:
		return "partial"
	case IntermediateStep:
		return "intermediate"
	case FinalStep:
		return "final"
	}
	return "unknown"
}

// AggregateCall is a call to an aggregate function.
type AggregateCall struct {
	Function string
	Args     []scalar.Expr
	Distinct bool
	// Filter and Mask are optional boolean symbols restricting the rows that
	// are aggregated.
	Filter opt.Symbol
	Mask   opt.Symbol
	// OrderingScheme is the optional ordering of the aggregated rows.
	OrderingScheme *OrderingScheme
}

// ReferencedSymbols returns the symbols the aggregation reads.
func (a *AggregateCall) ReferencedSymbols() opt.SymbolSet {
	res := scalar.ExtractSymbolsFromAll(a.Args...)
	res.Add(a.Filter)
	res.Add(a.Mask)
	res.UnionWith(a.OrderingScheme.Symbols())
	return res
}

// AggregationItem binds an aggregation to the symbol receiving its result.
type AggregationItem struct {
	Symbol      opt.Symbol
	Aggregation AggregateCall
}

// GroupingSetDescriptor describes the grouping sets of an aggregation: the
// keys of all sets, the number of sets and which sets are global (have no
// keys).
type GroupingSetDescriptor struct {
	Keys opt.SymbolList
	// Count is the number of grouping sets. Zero is treated as one.
	Count int
	// GlobalSets are the indexes of the sets without keys.
	GlobalSets []int
}

// SingleGroupingSet returns the descriptor of an aggregation with exactly one
// grouping set over the given keys.
func SingleGroupingSet(keys ...opt.Symbol) GroupingSetDescriptor {
	d := GroupingSetDescriptor{Keys: keys, Count: 1}
	if len(keys) == 0 {
		d.GlobalSets = []int{0}
	}
	return d
}

// SetCount returns the number of grouping sets.
func (d *GroupingSetDescriptor) SetCount() int {
	if d.Count <= 0 {
		return 1
	}
	return d.Count
}

// WindowFrameType is the unit of a window frame.
type WindowFrameType uint8

const (
	RangeFrame WindowFrameType = iota
	RowsFrame
)

// FrameBoundType is the kind of a window frame bound.
type FrameBoundType uint8

const (
	UnboundedPreceding FrameBoundType = iota
	Preceding
	CurrentRow
	Following
	UnboundedFollowing
)

// Frame is a window frame. StartValue and EndValue are the optional symbols
// holding the offsets of Preceding and Following bounds.
type Frame struct {
	Type       WindowFrameType
	StartType  FrameBoundType
	StartValue opt.Symbol
	EndType    FrameBoundType
	EndValue   opt.Symbol
}

// WindowSpecification is the partitioning and ordering of a window.
type WindowSpecification struct {
	PartitionBy    opt.SymbolList
	OrderingScheme *OrderingScheme
}

// Symbols returns the partitioning and ordering symbols.
func (s *WindowSpecification) Symbols() opt.SymbolSet {
	res := s.PartitionBy.ToSet()
	res.UnionWith(s.OrderingScheme.Symbols())
	return res
}

// WindowFunction is a window function call and its frame.
type WindowFunction struct {
	Symbol opt.Symbol
	Name   string
	Args   []scalar.Expr
	Frame  Frame
}

// ReferencedSymbols returns the symbols the function reads.
func (f *WindowFunction) ReferencedSymbols() opt.SymbolSet {
	res := scalar.ExtractSymbolsFromAll(f.Args...)
	res.Add(f.Frame.StartValue)
	res.Add(f.Frame.EndValue)
	return res
}

// UnnestMapping maps a collection-valued input symbol to the symbols that
// receive its elements.
type UnnestMapping struct {
	Input   opt.Symbol
	Outputs opt.SymbolList
}

// SetOperationMapping maps an output symbol of a set operation to the input
// symbol of each source, index aligned with the sources.
type SetOperationMapping struct {
	Output opt.Symbol
	Inputs opt.SymbolList
}

// IndexJoinClause is an equality condition between a probe symbol and an
// index symbol.
type IndexJoinClause struct {
	Probe opt.Symbol
	Index opt.Symbol
}

// StatisticAggregations are the aggregations computed while writing a table
// so that statistics can be collected.
type StatisticAggregations struct {
	Aggregations    []AggregationItem
	GroupingSymbols opt.SymbolList
}

// Symbols returns the output symbols of the statistic aggregations.
func (s *StatisticAggregations) Symbols() opt.SymbolList {
	if s == nil {
		return nil
	}
	res := append(opt.SymbolList(nil), s.GroupingSymbols...)
	for i := range s.Aggregations {
		res = append(res, s.Aggregations[i].Symbol)
	}
	return res
}

// ReferencedSymbols returns the symbols the statistic aggregations read.
func (s *StatisticAggregations) ReferencedSymbols() opt.SymbolSet {
	var res opt.SymbolSet
	if s == nil {
		return res
	}
	res.AddList(s.GroupingSymbols)
	for i := range s.Aggregations {
		res.UnionWith(s.Aggregations[i].Aggregation.ReferencedSymbols())
	}
	return res
}

// RowNumberLimit is an optional per-partition row cap. The zero value means
// no cap.
type RowNumberLimit struct {
	Valid bool
	Count int64
}

// MakeRowNumberLimit returns a row cap of n rows per partition.
func MakeRowNumberLimit(n int64) RowNumberLimit {
	return RowNumberLimit{Valid: true, Count: n}
}
