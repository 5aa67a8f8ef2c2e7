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

// Package xform contains plan rewrite rules. A rule matches a pattern at a
// node and, when it applies, returns an equivalent replacement for it.
package xform

import (
	"context"

	"github.com/cockroachdb/optcore/pkg/sql/opt"
	"github.com/cockroachdb/optcore/pkg/sql/opt/pattern"
	"github.com/cockroachdb/optcore/pkg/sql/opt/plan"
	"github.com/cockroachdb/optcore/pkg/util/log"
)

// Rule is a plan rewrite rule.
type Rule interface {
	// Name identifies the rule in logs.
	Name() string

	// Pattern returns the pattern a node must match for the rule to be tried.
	Pattern() *pattern.Pattern

	// Apply returns the replacement for n, which matched the pattern with the
	// given captures. It returns false if the rule does not apply after all.
	// The replacement produces the same rows and output symbols as n.
	Apply(n plan.Node, caps pattern.Captures, rc *RuleContext) (plan.Node, bool)
}

// RuleContext carries what a rule may consult while rewriting.
type RuleContext struct {
	Ctx    context.Context
	Lookup plan.Lookup
}

// ApplyOnce tries the rule at n, without descending into its children. It
// returns the replacement and true if the rule applied, or n and false if it
// did not. Invariant violations raised by the rule are returned as errors.
func ApplyOnce(
	ctx context.Context, rule Rule, n plan.Node, lookup plan.Lookup,
) (_ plan.Node, _ bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = opt.CatchOptimizerError(r)
		}
	}()
	if lookup == nil {
		lookup = plan.NoLookup
	}
	caps, ok := rule.Pattern().Match(n, lookup)
	if !ok {
		return n, false, nil
	}
	res, ok := rule.Apply(lookup.Resolve(n), caps, &RuleContext{Ctx: ctx, Lookup: lookup})
	if !ok {
		return n, false, nil
	}
	if log.V(2) {
		log.VEventf(log.WithTag(ctx, "rule", rule.Name()), 2, "rewrote %s node %d", n.Op(), n.NodeID())
	}
	return res, true, nil
}

// ApplyBottomUp tries each rule at every node of the plan, children first,
// and returns the rewritten plan with the number of rewrites. A node
// replaced by a rule is not revisited. Group references are left as they
// are: their groups are rewritten on their own.
func ApplyBottomUp(
	ctx context.Context, n plan.Node, lookup plan.Lookup, rules ...Rule,
) (plan.Node, int, error) {
	children := n.Children()
	var replaced []plan.Node
	var count int
	for i, child := range children {
		res, c, err := ApplyBottomUp(ctx, child, lookup, rules...)
		if err != nil {
			return nil, 0, err
		}
		count += c
		if res != child && replaced == nil {
			replaced = append([]plan.Node(nil), children...)
		}
		if replaced != nil {
			replaced[i] = res
		}
	}
	if replaced != nil {
		n = n.ReplaceChildren(replaced)
	}
	for _, rule := range rules {
		res, ok, err := ApplyOnce(ctx, rule, n, lookup)
		if err != nil {
			return nil, 0, err
		}
		if ok {
			return res, count + 1, nil
		}
	}
	return n, count, nil
}
