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

package testutils

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"testing"
	"text/tabwriter"

	"github.com/cockroachdb/datadriven"
	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/optcore/pkg/sql/opt"
	"github.com/cockroachdb/optcore/pkg/sql/opt/memo"
	"github.com/cockroachdb/optcore/pkg/sql/opt/norm"
	"github.com/cockroachdb/optcore/pkg/sql/opt/plan"
	"github.com/cockroachdb/optcore/pkg/sql/opt/testutils/testplan"
	"github.com/cockroachdb/optcore/pkg/sql/opt/xform"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

// OptTester is a helper for testing the various optimizer components. It
// contains the boiler-plate code for the following useful tasks:
//   - Build a plan from its YAML description
//   - Estimate and print the statistics of every node of a plan
//   - Prune the outputs of a plan that are not referenced
//   - Apply the exchange rewrite rules to a plan
//
// The OptTester is used by tests in various sub-packages of the opt package.
type OptTester struct {
	Flags OptTesterFlags

	ctx context.Context
	// catalog holds the types, tables and session sections shared by every
	// plan of a test file.
	catalog string
}

// OptTesterFlags are control knobs for tests. They are reset before every
// command, which can then set them through its arguments.
type OptTesterFlags struct {
	// DisableStats turns off the use of table statistics, as the
	// optimizer_use_statistics session setting does.
	DisableStats bool

	// DefaultFilterFactor, if set, enables the default filter factor with
	// the given selectivity.
	DefaultFilterFactor float64

	// Required overrides the symbols the prune command must preserve.
	Required opt.SymbolList

	// Columns prints the column statistics of every node, in addition to its
	// row count.
	Columns bool

	// Verbose indicates whether verbose test debugging information will be
	// output to stdout when commands run.
	Verbose bool
}

// NewOptTester constructs a new instance of the OptTester with an empty
// catalog.
func NewOptTester() *OptTester {
	return &OptTester{ctx: context.Background()}
}

// RunCommand implements commands that are used by most tests:
//
//   - catalog
//
//     Sets the types, tables and session sections used by the plans of the
//     commands that follow. The input is a YAML document without a plan.
//
//   - build [flags]
//
//     Builds the plan described by the input and outputs it.
//
//   - stats [flags]
//
//     Builds the plan and outputs it annotated with the statistics estimated
//     for every node.
//
//   - prune [flags]
//
//     Builds the plan, removes the outputs that are neither required nor
//     referenced, and outputs the result.
//
//   - pushup [flags]
//
//     Builds the plan, applies the exchange rewrite rules bottom-up, and
//     outputs the result.
//
//   - rulestats [flags]
//
//     Estimates the statistics of the plan and outputs how many times each
//     stats rule was applied, followed by the memo hit and miss counts.
//
// Supported flags:
//
//   - disable-stats: ignore table statistics.
//
//   - default-filter-factor: enable the default filter factor. The optional
//     value is the selectivity, which otherwise keeps its default. Example:
//     stats default-filter-factor=0.5
//
//   - required: the symbols prune must preserve, instead of the required
//     section of the document. Example:
//     prune required=(a,b)
//
//   - columns: print the statistics of every column.
func (ot *OptTester) RunCommand(tb testing.TB, d *datadriven.TestData) string {
	// Allow testcases to override the flags.
	ot.Flags = OptTesterFlags{}
	for _, a := range d.CmdArgs {
		if err := ot.Flags.Set(a); err != nil {
			d.Fatalf(tb, "%s", err)
		}
	}

	ot.Flags.Verbose = testing.Verbose()

	switch d.Cmd {
	case "catalog":
		if err := ot.SetCatalog(d.Input); err != nil {
			d.Fatalf(tb, "%v", err)
		}
		return ""

	case "build":
		def, err := ot.Build(d.Input)
		if err != nil {
			return formatError(err)
		}
		return plan.Format(def.Plan)

	case "stats":
		result, err := ot.Stats(d.Input)
		if err != nil {
			return formatError(err)
		}
		return result

	case "prune":
		result, err := ot.Prune(d.Input)
		if err != nil {
			return formatError(err)
		}
		return result

	case "pushup":
		result, err := ot.PushUp(d.Input)
		if err != nil {
			return formatError(err)
		}
		return result

	case "rulestats":
		result, err := ot.RuleStats(d.Input)
		if err != nil {
			d.Fatalf(tb, "%v", err)
		}
		return result

	default:
		d.Fatalf(tb, "unsupported command: %s", d.Cmd)
		return ""
	}
}

func formatError(err error) string {
	return fmt.Sprintf("error: %s\n", strings.TrimSpace(err.Error()))
}

// Set parses an argument that refers to a flag.
// See OptTester.RunCommand for supported flags.
func (f *OptTesterFlags) Set(arg datadriven.CmdArg) error {
	switch arg.Key {
	case "disable-stats":
		f.DisableStats = true

	case "default-filter-factor":
		f.DefaultFilterFactor = -1
		if len(arg.Vals) > 1 {
			return fmt.Errorf("default-filter-factor takes at most one value")
		}
		if len(arg.Vals) == 1 {
			v, err := strconv.ParseFloat(arg.Vals[0], 64)
			if err != nil {
				return errors.Wrap(err, "default-filter-factor")
			}
			f.DefaultFilterFactor = v
		}

	case "required":
		if len(arg.Vals) == 0 {
			return fmt.Errorf("required flag requires value(s)")
		}
		f.Required = make(opt.SymbolList, len(arg.Vals))
		for i, v := range arg.Vals {
			f.Required[i] = opt.Symbol(v)
		}

	case "columns":
		f.Columns = true

	default:
		return fmt.Errorf("unknown argument: %s", arg.Key)
	}
	return nil
}

// SetCatalog validates and stores the sections shared by later plans.
func (ot *OptTester) SetCatalog(input string) error {
	if _, err := testplan.Parse([]byte(input + "\nplan: {op: values}\n")); err != nil {
		return err
	}
	ot.catalog = input
	return nil
}

// Build parses the plan described by input together with the catalog and
// applies the session flags.
func (ot *OptTester) Build(input string) (*testplan.Definition, error) {
	def, err := testplan.Parse([]byte(ot.catalog + "\n" + input))
	if err != nil {
		return nil, err
	}
	if ot.Flags.DisableStats {
		def.Session.OptimizerUseStatistics = false
	}
	if ot.Flags.DefaultFilterFactor != 0 {
		def.Session.DefaultFilterFactorEnabled = true
		if ot.Flags.DefaultFilterFactor > 0 {
			def.Session.DefaultFilterFactor = ot.Flags.DefaultFilterFactor
		}
		if err := def.Session.Validate(); err != nil {
			return nil, err
		}
	}
	if ot.Flags.Required != nil {
		def.Required = ot.Flags.Required
	}
	return def, nil
}

// estimate builds the plan and a caching provider over it.
func (ot *OptTester) estimate(
	input string,
) (*testplan.Definition, *memo.CachingStatsProvider, *memo.StatsCalculator, *memo.Metrics, error) {
	def, err := ot.Build(input)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	metrics := memo.NewMetrics(prometheus.NewRegistry())
	calc := memo.DefaultStatsCalculator(def.Tables, metrics)
	provider := memo.NewCachingStatsProvider(ot.ctx, calc, def.Lookup, def.Session, def.Types, metrics)
	return def, provider, calc, metrics, nil
}

// Stats outputs the plan with the statistics of every node.
func (ot *OptTester) Stats(input string) (_ string, err error) {
	def, provider, _, _, err := ot.estimate(input)
	if err != nil {
		return "", err
	}
	defer func() {
		if r := recover(); r != nil {
			err = opt.CatchOptimizerError(r)
		}
	}()
	return plan.FormatAnnotated(def.Plan, func(n plan.Node) []string {
		lines := provider.Stats(n).Lines()
		if !ot.Flags.Columns {
			lines = lines[:1]
		}
		return lines
	}), nil
}

// Prune outputs the plan with its unreferenced outputs removed.
func (ot *OptTester) Prune(input string) (string, error) {
	def, err := ot.Build(input)
	if err != nil {
		return "", err
	}
	res, err := norm.PruneUnreferencedOutputs(ot.ctx, def.Plan, def.Required)
	if err != nil {
		return "", err
	}
	return plan.Format(res), nil
}

// PushUp outputs the plan after applying the exchange rewrite rules.
func (ot *OptTester) PushUp(input string) (string, error) {
	def, err := ot.Build(input)
	if err != nil {
		return "", err
	}
	res, count, err := xform.ApplyBottomUp(
		ot.ctx, def.Plan, def.Lookup, &xform.PushUpAssignUniqueIDThroughRemoteExchange{},
	)
	if err != nil {
		return "", err
	}
	if ot.Flags.Verbose {
		fmt.Printf("%d rewrites\n", count)
	}
	return plan.Format(res), nil
}

// RuleStats estimates the statistics of every node of the plan and reports
// which rules produced them.
func (ot *OptTester) RuleStats(input string) (_ string, err error) {
	def, provider, calc, metrics, err := ot.estimate(input)
	if err != nil {
		return "", err
	}
	defer func() {
		if r := recover(); r != nil {
			err = opt.CatchOptimizerError(r)
		}
	}()

	seen := make(map[opt.Operator]struct{})
	var visit func(n plan.Node)
	visit = func(n plan.Node) {
		provider.Stats(n)
		seen[def.Lookup.Resolve(n).Op()] = struct{}{}
		for _, c := range n.Children() {
			visit(c)
		}
	}
	visit(def.Plan)
	// Estimating the root again hits the memo.
	provider.Stats(def.Plan)

	ops := make([]opt.Operator, 0, len(seen))
	for op := range seen {
		ops = append(ops, op)
	}
	sort.Slice(ops, func(i, j int) bool { return ops[i] < ops[j] })

	var buf bytes.Buffer
	tw := tabwriter.NewWriter(&buf, 1, 1, 1, ' ', 0)
	fmt.Fprintf(tw, "rule\tapplied\n")
	fmt.Fprintf(tw, "----\t-------\n")
	for _, op := range ops {
		for _, rule := range calc.Rules(op) {
			applied := testutil.ToFloat64(metrics.RuleApplications.WithLabelValues(rule.Name()))
			fmt.Fprintf(tw, "%s\t%d\n", rule.Name(), int(applied))
		}
		if fallbacks := testutil.ToFloat64(metrics.Fallbacks.WithLabelValues(op.String())); fallbacks > 0 {
			fmt.Fprintf(tw, "(unknown %s)\t%d\n", op, int(fallbacks))
		}
	}
	_ = tw.Flush()
	fmt.Fprintf(&buf, "memo: %d hits, %d misses\n",
		int(testutil.ToFloat64(metrics.CacheHits)), int(testutil.ToFloat64(metrics.CacheMisses)))
	return buf.String(), nil
}
