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

package main

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/optcore/pkg/sql/opt"
	"github.com/cockroachdb/optcore/pkg/sql/opt/memo"
	"github.com/cockroachdb/optcore/pkg/sql/opt/plan"
	"github.com/cockroachdb/optcore/pkg/sql/opt/props"
	"github.com/cockroachdb/optcore/pkg/sql/opt/testutils/testplan"
	"github.com/cockroachdb/optcore/pkg/util/humanizeutil"
	"github.com/cockroachdb/optcore/pkg/util/log"
	"github.com/olekukonko/tablewriter"
	"github.com/prometheus/client_golang/prometheus"
)

type estimator struct {
	ctx      context.Context
	def      *testplan.Definition
	provider *memo.CachingStatsProvider
}

func newEstimator(ctx context.Context, def *testplan.Definition, metrics *memo.Metrics) *estimator {
	ctx = log.WithTag(ctx, "estimate", nil)
	calc := memo.DefaultStatsCalculator(def.Tables, metrics)
	return &estimator{
		ctx:      ctx,
		def:      def,
		provider: memo.NewCachingStatsProvider(ctx, calc, def.Lookup, def.Session, def.Types, metrics),
	}
}

// printTree writes the plan with the estimated row count of every node.
func (e *estimator) printTree(w io.Writer) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = opt.CatchOptimizerError(r)
		}
	}()
	out := plan.FormatAnnotated(e.def.Plan, func(n plan.Node) []string {
		return []string{"rows: " + formatCount(e.provider.Stats(n).RowCount())}
	})
	_, err = io.WriteString(w, out)
	log.VEventf(e.ctx, 1, "estimated %d nodes", e.provider.Len())
	return err
}

// printColumns writes the column statistics of the root as a table.
func (e *estimator) printColumns(w io.Writer) {
	stats := e.provider.Stats(e.def.Plan)
	table := tablewriter.NewWriter(w)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetBorder(false)
	table.SetHeader([]string{"symbol", "distinct", "nulls", "low", "high", "size"})
	for _, sym := range stats.Symbols() {
		c := stats.ColumnStatistics(sym)
		table.Append([]string{
			string(sym),
			formatCount(c.DistinctValuesCount),
			formatFraction(c.NullsFraction),
			c.LowValue.String(),
			c.HighValue.String(),
			formatSize(c.AverageRowSize),
		})
	}
	table.Render()
}

func formatCount(e props.Estimate) string {
	if e.IsUnknown() {
		return "?"
	}
	return humanizeutil.Count(e.Value())
}

func formatFraction(e props.Estimate) string {
	if e.IsUnknown() {
		return "?"
	}
	return humanizeutil.Fraction(e.Value())
}

func formatSize(e props.Estimate) string {
	if e.IsUnknown() {
		return "?"
	}
	return humanizeutil.IBytes(int64(e.Value()))
}

// printMetrics writes the value of every counter of the registry, one per
// line, sorted by name and labels.
func printMetrics(w io.Writer, reg *prometheus.Registry) error {
	families, err := reg.Gather()
	if err != nil {
		return errors.Wrap(err, "gathering metrics")
	}
	var lines []string
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			var labels []string
			for _, lp := range m.GetLabel() {
				labels = append(labels, fmt.Sprintf("%s=%q", lp.GetName(), lp.GetValue()))
			}
			name := mf.GetName()
			if len(labels) > 0 {
				name += "{" + strings.Join(labels, ",") + "}"
			}
			lines = append(lines, fmt.Sprintf("%s %g", name, m.GetCounter().GetValue()))
		}
	}
	sort.Strings(lines)
	for _, l := range lines {
		if _, err := fmt.Fprintln(w, l); err != nil {
			return err
		}
	}
	return nil
}
