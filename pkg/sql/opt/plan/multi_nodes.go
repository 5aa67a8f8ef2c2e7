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
	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/optcore/pkg/sql/opt"
	"github.com/cockroachdb/optcore/pkg/sql/opt/scalar"
	"github.com/cockroachdb/redact"
)

// DistributionType is the way the inputs of a join are distributed.
type DistributionType uint8

const (
	UnspecifiedDistribution DistributionType = iota
	PartitionedDistribution
	ReplicatedDistribution
)

// Join joins two inputs on equi-join criteria and an optional residual
// filter. Outputs lists the produced symbols, taken from either input.
type Join struct {
	ID               NodeID
	Type             JoinType
	Left             Node
	Right            Node
	Criteria         []EquiJoinClause
	Outputs          opt.SymbolList
	Filter           scalar.Expr
	LeftHashSymbol   opt.Symbol
	RightHashSymbol  opt.Symbol
	DistributionType DistributionType
}

// IsCrossJoin returns true for an inner join without any condition.
func (n *Join) IsCrossJoin() bool {
	return n.Type == InnerJoin && len(n.Criteria) == 0 && n.Filter == nil
}

// SemiJoin adds a boolean column telling whether the source join symbol of
// each source row has a match in the filtering source.
type SemiJoin struct {
	ID                        NodeID
	Source                    Node
	FilteringSource           Node
	SourceJoinSymbol          opt.Symbol
	FilteringSourceJoinSymbol opt.Symbol
	SemiJoinOutput            opt.Symbol
	SourceHashSymbol          opt.Symbol
	FilteringSourceHashSymbol opt.Symbol
}

// SpatialJoin joins two inputs on a spatial predicate.
type SpatialJoin struct {
	ID                   NodeID
	Type                 JoinType
	Left                 Node
	Right                Node
	Outputs              opt.SymbolList
	Filter               scalar.Expr
	LeftPartitionSymbol  opt.Symbol
	RightPartitionSymbol opt.Symbol
}

// IndexJoin looks up rows of an index for every probe row.
type IndexJoin struct {
	ID              NodeID
	Type            JoinType
	ProbeSource     Node
	IndexSource     Node
	Criteria        []IndexJoinClause
	ProbeHashSymbol opt.Symbol
	IndexHashSymbol opt.Symbol
}

// SetOperation holds the inputs and the output-to-input symbol mapping shared
// by Union, Intersect and Except.
type SetOperation struct {
	Sources []Node
	Mapping []SetOperationMapping
}

// Outputs returns the output symbols of the set operation.
func (s *SetOperation) Outputs() opt.SymbolList {
	res := make(opt.SymbolList, len(s.Mapping))
	for i := range s.Mapping {
		res[i] = s.Mapping[i].Output
	}
	return res
}

// SourceInputs returns the symbols of the i-th source that feed the outputs,
// in output order.
func (s *SetOperation) SourceInputs(i int) opt.SymbolList {
	res := make(opt.SymbolList, len(s.Mapping))
	for j := range s.Mapping {
		res[j] = s.Mapping[j].Inputs[i]
	}
	return res
}

// SourceSymbol returns the symbol of the i-th source feeding the output.
func (s *SetOperation) SourceSymbol(i int, output opt.Symbol) (opt.Symbol, bool) {
	for j := range s.Mapping {
		if s.Mapping[j].Output == output {
			return s.Mapping[j].Inputs[i], true
		}
	}
	return opt.NoSymbol, false
}

func (s *SetOperation) withSources(n Node, children []Node) SetOperation {
	checkChildCount(n, children, len(s.Sources))
	return SetOperation{Sources: children, Mapping: s.Mapping}
}

// Union concatenates the rows of its sources.
type Union struct {
	ID NodeID
	SetOperation
}

// Intersect returns the rows present in all of its sources.
type Intersect struct {
	ID NodeID
	SetOperation
}

// Except returns the rows of its first source that are absent from the
// others.
type Except struct {
	ID NodeID
	SetOperation
}

// Exchange redistributes the rows of its sources according to a
// partitioning scheme. Inputs holds, for every source, the symbols of that
// source feeding the output layout, index aligned with it.
type Exchange struct {
	ID                 NodeID
	Type               ExchangeType
	Scope              ExchangeScope
	PartitioningScheme PartitioningScheme
	Sources            []Node
	Inputs             []opt.SymbolList
	OrderingScheme     *OrderingScheme
}

// Apply evaluates a correlated subquery for every input row and binds the
// subquery results through SubqueryAssignments.
type Apply struct {
	ID                  NodeID
	Input               Node
	Subquery            Node
	SubqueryAssignments Assignments
	Correlation         opt.SymbolList
	OriginSubqueryError string
}

// LateralJoin joins every input row with the rows its correlated subquery
// produces for it.
type LateralJoin struct {
	ID                  NodeID
	Input               Node
	Subquery            Node
	Correlation         opt.SymbolList
	Type                JoinType
	OriginSubqueryError string
}

var _ Node = &Join{}
var _ Node = &SemiJoin{}
var _ Node = &SpatialJoin{}
var _ Node = &IndexJoin{}
var _ Node = &Union{}
var _ Node = &Intersect{}
var _ Node = &Except{}
var _ Node = &Exchange{}
var _ Node = &Apply{}
var _ Node = &LateralJoin{}

func (*Join) node()        {}
func (*SemiJoin) node()    {}
func (*SpatialJoin) node() {}
func (*IndexJoin) node()   {}
func (*Union) node()       {}
func (*Intersect) node()   {}
func (*Except) node()      {}
func (*Exchange) node()    {}
func (*Apply) node()       {}
func (*LateralJoin) node() {}

func (n *Join) NodeID() NodeID                { return n.ID }
func (n *Join) Op() opt.Operator              { return opt.JoinOp }
func (n *Join) Children() []Node              { return []Node{n.Left, n.Right} }
func (n *Join) OutputSymbols() opt.SymbolList { return n.Outputs }
func (n *Join) ReplaceChildren(children []Node) Node {
	checkChildCount(n, children, 2)
	cp := *n
	cp.Left, cp.Right = children[0], children[1]
	return &cp
}

func (n *SemiJoin) NodeID() NodeID   { return n.ID }
func (n *SemiJoin) Op() opt.Operator { return opt.SemiJoinOp }
func (n *SemiJoin) Children() []Node { return []Node{n.Source, n.FilteringSource} }
func (n *SemiJoin) OutputSymbols() opt.SymbolList {
	return appendSymbols(n.Source.OutputSymbols(), optional(n.SemiJoinOutput))
}
func (n *SemiJoin) ReplaceChildren(children []Node) Node {
	checkChildCount(n, children, 2)
	cp := *n
	cp.Source, cp.FilteringSource = children[0], children[1]
	return &cp
}

func (n *SpatialJoin) NodeID() NodeID                { return n.ID }
func (n *SpatialJoin) Op() opt.Operator              { return opt.SpatialJoinOp }
func (n *SpatialJoin) Children() []Node              { return []Node{n.Left, n.Right} }
func (n *SpatialJoin) OutputSymbols() opt.SymbolList { return n.Outputs }
func (n *SpatialJoin) ReplaceChildren(children []Node) Node {
	checkChildCount(n, children, 2)
	cp := *n
	cp.Left, cp.Right = children[0], children[1]
	return &cp
}

func (n *IndexJoin) NodeID() NodeID   { return n.ID }
func (n *IndexJoin) Op() opt.Operator { return opt.IndexJoinOp }
func (n *IndexJoin) Children() []Node { return []Node{n.ProbeSource, n.IndexSource} }
func (n *IndexJoin) OutputSymbols() opt.SymbolList {
	return appendSymbols(n.ProbeSource.OutputSymbols(), n.IndexSource.OutputSymbols())
}
func (n *IndexJoin) ReplaceChildren(children []Node) Node {
	checkChildCount(n, children, 2)
	cp := *n
	cp.ProbeSource, cp.IndexSource = children[0], children[1]
	return &cp
}

func (n *Union) NodeID() NodeID                { return n.ID }
func (n *Union) Op() opt.Operator              { return opt.UnionOp }
func (n *Union) Children() []Node              { return n.Sources }
func (n *Union) OutputSymbols() opt.SymbolList { return n.Outputs() }
func (n *Union) ReplaceChildren(children []Node) Node {
	return &Union{ID: n.ID, SetOperation: n.withSources(n, children)}
}

func (n *Intersect) NodeID() NodeID                { return n.ID }
func (n *Intersect) Op() opt.Operator              { return opt.IntersectOp }
func (n *Intersect) Children() []Node              { return n.Sources }
func (n *Intersect) OutputSymbols() opt.SymbolList { return n.Outputs() }
func (n *Intersect) ReplaceChildren(children []Node) Node {
	return &Intersect{ID: n.ID, SetOperation: n.withSources(n, children)}
}

func (n *Except) NodeID() NodeID                { return n.ID }
func (n *Except) Op() opt.Operator              { return opt.ExceptOp }
func (n *Except) Children() []Node              { return n.Sources }
func (n *Except) OutputSymbols() opt.SymbolList { return n.Outputs() }
func (n *Except) ReplaceChildren(children []Node) Node {
	return &Except{ID: n.ID, SetOperation: n.withSources(n, children)}
}

func (n *Exchange) NodeID() NodeID                { return n.ID }
func (n *Exchange) Op() opt.Operator              { return opt.ExchangeOp }
func (n *Exchange) Children() []Node              { return n.Sources }
func (n *Exchange) OutputSymbols() opt.SymbolList { return n.PartitioningScheme.OutputLayout }
func (n *Exchange) ReplaceChildren(children []Node) Node {
	checkChildCount(n, children, len(n.Sources))
	cp := *n
	cp.Sources = children
	return &cp
}

// CheckInputs verifies that Inputs has one list per source and that every
// list is aligned with the output layout.
func (n *Exchange) CheckInputs() {
	if len(n.Inputs) != len(n.Sources) {
		panic(errors.AssertionFailedf(
			"exchange %d has %d sources but %d input lists",
			n.ID, redact.Safe(len(n.Sources)), redact.Safe(len(n.Inputs)),
		))
	}
	for i, inputs := range n.Inputs {
		if len(inputs) != len(n.PartitioningScheme.OutputLayout) {
			panic(errors.AssertionFailedf(
				"exchange %d input list %d has %d symbols, output layout has %d",
				n.ID, redact.Safe(i), redact.Safe(len(inputs)),
				redact.Safe(len(n.PartitioningScheme.OutputLayout)),
			))
		}
	}
}

func (n *Apply) NodeID() NodeID   { return n.ID }
func (n *Apply) Op() opt.Operator { return opt.ApplyOp }
func (n *Apply) Children() []Node { return []Node{n.Input, n.Subquery} }
func (n *Apply) OutputSymbols() opt.SymbolList {
	return appendSymbols(n.Input.OutputSymbols(), n.SubqueryAssignments.Symbols())
}
func (n *Apply) ReplaceChildren(children []Node) Node {
	checkChildCount(n, children, 2)
	cp := *n
	cp.Input, cp.Subquery = children[0], children[1]
	return &cp
}

func (n *LateralJoin) NodeID() NodeID   { return n.ID }
func (n *LateralJoin) Op() opt.Operator { return opt.LateralJoinOp }
func (n *LateralJoin) Children() []Node { return []Node{n.Input, n.Subquery} }
func (n *LateralJoin) OutputSymbols() opt.SymbolList {
	return appendSymbols(n.Input.OutputSymbols(), n.Subquery.OutputSymbols())
}
func (n *LateralJoin) ReplaceChildren(children []Node) Node {
	checkChildCount(n, children, 2)
	cp := *n
	cp.Input, cp.Subquery = children[0], children[1]
	return &cp
}
