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

package xform

import (
	"github.com/cockroachdb/optcore/pkg/sql/opt"
	"github.com/cockroachdb/optcore/pkg/sql/opt/pattern"
	"github.com/cockroachdb/optcore/pkg/sql/opt/plan"
)

// PushUpAssignUniqueIDThroughRemoteExchange moves an AssignUniqueID above the
// remote exchange that consumes it:
//
//	Exchange(remote)             AssignUniqueID
//	  AssignUniqueID      =>       Exchange(remote)
//	    source                       source
//
// Ids are then assigned after the rows have crossed the network, so the id
// column is not shipped. The rule does not apply when the exchange
// distributes or orders rows by the id column.
type PushUpAssignUniqueIDThroughRemoteExchange struct{}

var _ Rule = PushUpAssignUniqueIDThroughRemoteExchange{}

var assignUniqueIDCapture = pattern.NewCapture[*plan.AssignUniqueID]("assignUniqueId")

var pushUpAssignUniqueIDPattern = pattern.TypeOf(opt.ExchangeOp).
	Matching(pattern.Where(func(e *plan.Exchange) bool { return e.Scope == plan.RemoteExchange })).
	WithSource(pattern.TypeOf(opt.AssignUniqueIDOp).CapturedAs(assignUniqueIDCapture))

// Name is part of the Rule interface.
func (PushUpAssignUniqueIDThroughRemoteExchange) Name() string {
	return "push-up-assign-unique-id-through-remote-exchange"
}

// Pattern is part of the Rule interface.
func (PushUpAssignUniqueIDThroughRemoteExchange) Pattern() *pattern.Pattern {
	return pushUpAssignUniqueIDPattern
}

// Apply is part of the Rule interface.
func (PushUpAssignUniqueIDThroughRemoteExchange) Apply(
	n plan.Node, caps pattern.Captures, _ *RuleContext,
) (plan.Node, bool) {
	exchange := n.(*plan.Exchange)
	assign := pattern.Get(caps, assignUniqueIDCapture)

	// The id column may be renamed by the exchange; locate it by position.
	pos := -1
	for i, sym := range exchange.Inputs[0] {
		if sym == assign.IDSymbol {
			pos = i
			break
		}
	}
	if pos < 0 {
		return nil, false
	}
	id := exchange.PartitioningScheme.OutputLayout[pos]
	if exchange.PartitioningScheme.Partitioning.Symbols().Contains(id) ||
		exchange.PartitioningScheme.HashColumn == id ||
		exchange.OrderingScheme.Symbols().Contains(id) {
		return nil, false
	}

	scheme := exchange.PartitioningScheme
	scheme.OutputLayout = removeAt(scheme.OutputLayout, pos)
	pushed := &plan.Exchange{
		ID:                 exchange.ID,
		Type:               exchange.Type,
		Scope:              exchange.Scope,
		PartitioningScheme: scheme,
		Sources:            []plan.Node{assign.Source},
		Inputs:             []opt.SymbolList{removeAt(exchange.Inputs[0], pos)},
		OrderingScheme:     exchange.OrderingScheme,
	}
	pushed.CheckInputs()
	return &plan.AssignUniqueID{ID: assign.ID, Source: pushed, IDSymbol: id}, true
}

func removeAt(l opt.SymbolList, i int) opt.SymbolList {
	res := make(opt.SymbolList, 0, len(l)-1)
	res = append(res, l[:i]...)
	return append(res, l[i+1:]...)
}
