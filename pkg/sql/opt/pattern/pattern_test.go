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

package pattern_test

import (
	"testing"

	"github.com/cockroachdb/optcore/pkg/sql/opt"
	"github.com/cockroachdb/optcore/pkg/sql/opt/pattern"
	"github.com/cockroachdb/optcore/pkg/sql/opt/plan"
	"github.com/stretchr/testify/require"
)

type groupLookup map[int]plan.Node

func (l groupLookup) Resolve(n plan.Node) plan.Node {
	if ref, ok := n.(*plan.GroupReference); ok {
		return l[ref.Group]
	}
	return n
}

func remoteExchangeOver(source plan.Node) *plan.Exchange {
	return &plan.Exchange{
		ID:    3,
		Type:  plan.GatherExchange,
		Scope: plan.RemoteExchange,
		PartitioningScheme: plan.PartitioningScheme{
			Partitioning: plan.Partitioning{Handle: plan.SingleDistribution},
			OutputLayout: source.OutputSymbols(),
		},
		Sources: []plan.Node{source},
		Inputs:  []opt.SymbolList{source.OutputSymbols()},
	}
}

func TestMatch(t *testing.T) {
	scan := &plan.TableScan{ID: 1, Table: "t", Outputs: opt.SymbolList{"a"}}
	assign := &plan.AssignUniqueID{ID: 2, Source: scan, IDSymbol: "id"}
	exchange := remoteExchangeOver(assign)

	assignCapture := pattern.NewCapture[*plan.AssignUniqueID]("assignUniqueId")
	p := pattern.TypeOf(opt.ExchangeOp).
		Matching(pattern.Where(func(e *plan.Exchange) bool { return e.Scope == plan.RemoteExchange })).
		WithSource(pattern.TypeOf(opt.AssignUniqueIDOp).CapturedAs(assignCapture))
	require.Equal(t, opt.ExchangeOp, p.Op())

	caps, ok := p.Match(exchange, plan.NoLookup)
	require.True(t, ok)
	require.Equal(t, 1, caps.Len())
	require.Same(t, assign, pattern.Get(caps, assignCapture))

	// Wrong operator at the top.
	_, ok = p.Match(assign, plan.NoLookup)
	require.False(t, ok)

	// Predicate fails.
	local := *exchange
	local.Scope = plan.LocalExchange
	_, ok = p.Match(&local, plan.NoLookup)
	require.False(t, ok)

	// Source pattern fails.
	_, ok = p.Match(remoteExchangeOver(scan), plan.NoLookup)
	require.False(t, ok)

	// More than one source never matches a source pattern.
	multi := *exchange
	multi.Sources = []plan.Node{assign, assign}
	multi.Inputs = []opt.SymbolList{assign.OutputSymbols(), assign.OutputSymbols()}
	_, ok = p.Match(&multi, plan.NoLookup)
	require.False(t, ok)
}

func TestMatchResolvesGroupReferences(t *testing.T) {
	scan := &plan.TableScan{ID: 1, Table: "t", Outputs: opt.SymbolList{"a"}}
	assign := &plan.AssignUniqueID{ID: 2, Source: scan, IDSymbol: "id"}
	ref := &plan.GroupReference{ID: 10, Group: 7, Outputs: assign.OutputSymbols()}
	lookup := groupLookup{7: assign}

	c := pattern.NewCapture[*plan.AssignUniqueID]("assign")
	p := pattern.TypeOf(opt.ExchangeOp).WithSource(pattern.TypeOf(opt.AssignUniqueIDOp).CapturedAs(c))

	caps, ok := p.Match(remoteExchangeOver(ref), lookup)
	require.True(t, ok)
	require.Same(t, assign, pattern.Get(caps, c))

	// Without a lookup the reference is opaque.
	_, ok = p.Match(remoteExchangeOver(ref), plan.NoLookup)
	require.False(t, ok)
}

func TestCaptures(t *testing.T) {
	scan := &plan.TableScan{ID: 1, Table: "t", Outputs: opt.SymbolList{"a"}}
	bound := pattern.NewCapture[*plan.TableScan]("scan")
	unbound := pattern.NewCapture[*plan.TableScan]("scan")

	caps, ok := pattern.TypeOf(opt.TableScanOp).CapturedAs(bound).Match(scan, nil)
	require.True(t, ok)

	// Captures are compared by identity, not by description.
	_, ok = pattern.Lookup(caps, unbound)
	require.False(t, ok)
	require.Panics(t, func() { pattern.Get(caps, unbound) })

	got, ok := pattern.Lookup(caps, bound)
	require.True(t, ok)
	require.Same(t, scan, got)

	// A capture of the wrong node type is a programming error.
	wrong := pattern.NewCapture[*plan.Filter]("filter")
	require.Panics(t, func() {
		pattern.TypeOf(opt.TableScanOp).CapturedAs(wrong).Match(scan, nil)
	})
}
