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

// Package pattern matches plan nodes against structural patterns. A pattern
// is a node type plus optional predicates and a sub-pattern for the node's
// single source. Matched nodes can be bound to typed captures, which rules
// read back after a successful match.
package pattern

import (
	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/optcore/pkg/sql/opt"
	"github.com/cockroachdb/optcore/pkg/sql/opt/plan"
	"github.com/cockroachdb/redact"
)

// Pattern matches plan nodes. Patterns are immutable: every builder method
// returns a new pattern.
type Pattern struct {
	op      opt.Operator
	preds   []func(plan.Node) bool
	source  *Pattern
	capture capture
}

// TypeOf returns a pattern matching every node of the given operator.
func TypeOf(op opt.Operator) *Pattern {
	return &Pattern{op: op}
}

// Op returns the operator matched by the pattern.
func (p *Pattern) Op() opt.Operator {
	return p.op
}

// Matching returns a pattern that additionally requires pred to hold.
func (p *Pattern) Matching(pred func(plan.Node) bool) *Pattern {
	cp := *p
	cp.preds = append(append([]func(plan.Node) bool(nil), p.preds...), pred)
	return &cp
}

// WithSource returns a pattern that additionally requires the node to have
// exactly one source, matching child.
func (p *Pattern) WithSource(child *Pattern) *Pattern {
	cp := *p
	cp.source = child
	return &cp
}

// CapturedAs returns a pattern that binds the matched node to c.
func (p *Pattern) CapturedAs(c capture) *Pattern {
	cp := *p
	cp.capture = c
	return &cp
}

// Where adapts a predicate over a concrete node type. The predicate is
// false for nodes of any other type.
func Where[T plan.Node](pred func(T) bool) func(plan.Node) bool {
	return func(n plan.Node) bool {
		t, ok := n.(T)
		return ok && pred(t)
	}
}

// Match matches n against the pattern. Group references, both at the top
// and in sources, are resolved through lookup first. On success it returns
// the bound captures.
func (p *Pattern) Match(n plan.Node, lookup plan.Lookup) (Captures, bool) {
	var caps Captures
	if !p.match(n, lookup, &caps) {
		return Captures{}, false
	}
	return caps, true
}

func (p *Pattern) match(n plan.Node, lookup plan.Lookup, caps *Captures) bool {
	if lookup == nil {
		lookup = plan.NoLookup
	}
	n = lookup.Resolve(n)
	if n.Op() != p.op {
		return false
	}
	for _, pred := range p.preds {
		if !pred(n) {
			return false
		}
	}
	if p.source != nil {
		children := n.Children()
		if len(children) != 1 || !p.source.match(children[0], lookup, caps) {
			return false
		}
	}
	if p.capture != nil {
		if !p.capture.accepts(n) {
			panic(errors.AssertionFailedf(
				"capture %s cannot hold a %s node", redact.Safe(p.capture.name()), n.Op(),
			))
		}
		caps.bind(p.capture, n)
	}
	return true
}
