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

// Package plan contains the logical plan tree operated on by the optimizer
// core. A plan is an immutable tree of nodes; rewrites build new nodes that
// share unchanged subtrees with the original. Every node has an id that is
// stable across rewrites and is used to memoize derived properties such as
// statistics.
//
// The set of node variants is closed: Node has an unexported method, so only
// this package can add variants, and code that switches over node types can
// rely on the list below being complete.
package plan

import (
	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/optcore/pkg/sql/opt"
	"github.com/cockroachdb/redact"
)

// NodeID identifies a plan node. Ids are unique within a plan and are
// preserved by rewrites that replace a node with an equivalent one.
type NodeID int64

// SafeValue implements redact.SafeValue.
func (NodeID) SafeValue() {}

// IDAllocator hands out increasing node ids.
type IDAllocator struct {
	next NodeID
}

// Next returns a new unique id.
func (a *IDAllocator) Next() NodeID {
	a.next++
	return a.next
}

// Node is a plan node.
type Node interface {
	// NodeID returns the id of the node.
	NodeID() NodeID

	// Op returns the variant of the node.
	Op() opt.Operator

	// Children returns the inputs of the node, in a fixed order.
	Children() []Node

	// OutputSymbols returns the ordered list of symbols the node produces.
	OutputSymbols() opt.SymbolList

	// ReplaceChildren returns a copy of the node with its inputs replaced by
	// the given nodes. The number of children must match Children().
	ReplaceChildren(children []Node) Node

	node()
}

// Lookup resolves group references to the nodes they stand for. Nodes that
// are not group references are returned unchanged.
type Lookup interface {
	Resolve(n Node) Node
}

// NoLookup is a Lookup for plans without group references.
var NoLookup Lookup = noLookup{}

type noLookup struct{}

func (noLookup) Resolve(n Node) Node { return n }

func checkChildCount(n Node, children []Node, expected int) {
	if len(children) != expected {
		panic(errors.AssertionFailedf(
			"%s node expects %d children, got %d",
			n.Op(), redact.Safe(expected), redact.Safe(len(children)),
		))
	}
}

func appendSymbols(lists ...opt.SymbolList) opt.SymbolList {
	var n int
	for _, l := range lists {
		n += len(l)
	}
	res := make(opt.SymbolList, 0, n)
	for _, l := range lists {
		res = append(res, l...)
	}
	return res
}

// optional returns a one element list holding sym, or nil if sym is
// NoSymbol.
func optional(sym opt.Symbol) opt.SymbolList {
	if !sym.Exists() {
		return nil
	}
	return opt.SymbolList{sym}
}
