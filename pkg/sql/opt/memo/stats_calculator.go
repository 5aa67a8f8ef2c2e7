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

package memo

import (
	"context"

	"github.com/cockroachdb/optcore/pkg/sql/opt"
	"github.com/cockroachdb/optcore/pkg/sql/opt/pattern"
	"github.com/cockroachdb/optcore/pkg/sql/opt/plan"
	"github.com/cockroachdb/optcore/pkg/sql/opt/props"
	"github.com/cockroachdb/optcore/pkg/sql/sessiondata"
	"github.com/cockroachdb/optcore/pkg/util/log"
	"github.com/cockroachdb/redact"
)

// StatsRule estimates the statistics of the nodes matching its pattern.
// Calculate returns false when the rule cannot estimate the particular node;
// the calculator then tries the next rule.
type StatsRule interface {
	Name() string
	Pattern() *pattern.Pattern
	Calculate(n plan.Node, caps pattern.Captures, sc *StatsContext) (*props.Statistics, bool)
}

// typedStatsRule is a StatsRule for nodes of the concrete type T.
type typedStatsRule[T plan.Node] struct {
	name    string
	pattern *pattern.Pattern
	calc    func(n T, caps pattern.Captures, sc *StatsContext) (*props.Statistics, bool)
}

func (r *typedStatsRule[T]) Name() string              { return r.name }
func (r *typedStatsRule[T]) Pattern() *pattern.Pattern { return r.pattern }

func (r *typedStatsRule[T]) Calculate(
	n plan.Node, caps pattern.Captures, sc *StatsContext,
) (*props.Statistics, bool) {
	return r.calc(n.(T), caps, sc)
}

// newRule returns a rule applying calc to every node of the given operator.
func newRule[T plan.Node](
	name string, op opt.Operator, calc func(T, pattern.Captures, *StatsContext) (*props.Statistics, bool),
) StatsRule {
	return &typedStatsRule[T]{name: name, pattern: pattern.TypeOf(op), calc: calc}
}

// StatsCalculator computes the statistics of a plan node by dispatching to
// the rules registered for the node's operator. Rules are tried in
// registration order and the first one producing an estimate wins.
//
// A StatsCalculator is immutable once built and is safe for concurrent use.
type StatsCalculator struct {
	rules   [opt.NumOperators][]StatsRule
	metrics *Metrics
}

// NewStatsCalculator returns a calculator using the given rules.
func NewStatsCalculator(metrics *Metrics, rules ...StatsRule) *StatsCalculator {
	c := &StatsCalculator{metrics: metrics}
	for _, r := range rules {
		op := r.Pattern().Op()
		c.rules[op] = append(c.rules[op], r)
	}
	return c
}

// DefaultStatsCalculator returns a calculator with a rule for every operator
// that can be estimated. Table scans read their statistics from tables.
func DefaultStatsCalculator(tables TableStatsSource, metrics *Metrics) *StatsCalculator {
	return NewStatsCalculator(metrics, DefaultStatsRules(tables)...)
}

// Rules returns the rules registered for op, in the order they are tried.
func (c *StatsCalculator) Rules(op opt.Operator) []StatsRule {
	return c.rules[op]
}

// Calculate estimates the statistics of n. Group references are resolved
// through lookup. Child statistics are fetched from provider.
//
// The result is always normalized against the outputs of n. If no rule
// produces an estimate, Calculate returns unknown statistics for the outputs
// of n and false.
func (c *StatsCalculator) Calculate(
	ctx context.Context,
	n plan.Node,
	provider StatsProvider,
	lookup plan.Lookup,
	session *sessiondata.SessionData,
	typs opt.TypeProvider,
) (*props.Statistics, bool) {
	if lookup == nil {
		lookup = plan.NoLookup
	}
	if session == nil {
		session = sessiondata.Default()
	}
	if typs == nil {
		typs = opt.SymbolTypes{}
	}
	n = lookup.Resolve(n)
	sc := &StatsContext{Ctx: ctx, Provider: provider, Lookup: lookup, Session: session, Types: typs}

	for _, rule := range c.rules[n.Op()] {
		caps, ok := rule.Pattern().Match(n, lookup)
		if !ok {
			continue
		}
		stats, ok := rule.Calculate(n, caps, sc)
		if !ok {
			continue
		}
		c.metrics.ruleApplied(rule.Name())
		stats = props.Normalize(stats, n.OutputSymbols(), typs)
		if log.V(2) {
			log.VEventf(ctx, 2, "%s %d estimated by %s: rows=%s",
				n.Op(), n.NodeID(), redact.Safe(rule.Name()), stats.RowCount())
		}
		return stats, true
	}

	c.metrics.fellBack(n.Op())
	log.VEventf(ctx, 3, "no estimate for %s %d", n.Op(), n.NodeID())
	return props.UnknownStatistics(n.OutputSymbols()), false
}
