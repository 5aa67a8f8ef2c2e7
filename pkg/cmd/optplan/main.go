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

// optplan estimates the statistics of plans and applies the plan rewrites to
// them. Plans are read from YAML documents; see package testplan for the
// format.
package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/optcore/pkg/sql/opt"
	"github.com/cockroachdb/optcore/pkg/sql/opt/memo"
	"github.com/cockroachdb/optcore/pkg/sql/opt/norm"
	"github.com/cockroachdb/optcore/pkg/sql/opt/plan"
	"github.com/cockroachdb/optcore/pkg/sql/opt/testutils/testplan"
	"github.com/cockroachdb/optcore/pkg/sql/opt/xform"
	"github.com/cockroachdb/optcore/pkg/sql/sessiondata"
	"github.com/cockroachdb/optcore/pkg/util/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

type globalConfig struct {
	verbosity  int
	redactable bool
	color      bool
}

func makeOptPlanCommand(out io.Writer) *cobra.Command {
	var config globalConfig
	command := &cobra.Command{
		Use:   "optplan [command] (flags)",
		Short: "optplan estimates and rewrites query plans described in YAML.",
		Long: `optplan estimates and rewrites query plans described in YAML.

Typical usage:
    optplan estimate plan.yaml --columns
        Print the plan with the estimated row count of every node, followed by
        the column statistics of the root.

    optplan prune plan.yaml --required=a,b
        Remove the outputs that are neither required nor read.

    optplan pushup plan.yaml
        Move unique id generation above remote exchanges.
`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(*cobra.Command, []string) {
			log.SetVerbosity(log.Level(config.verbosity))
			log.SetRedactable(config.redactable)
			log.SetColor(config.color)
		},
	}
	command.PersistentFlags().IntVarP(&config.verbosity, "verbosity", "v", 0, "logging verbosity")
	command.PersistentFlags().BoolVar(&config.redactable, "redactable-logs", false, "keep redaction markers in log entries")
	command.PersistentFlags().BoolVar(&config.color, "log-color", false, "color the severity of log entries")
	command.SetOut(out)

	command.AddCommand(makeEstimateCommand())
	command.AddCommand(makePruneCommand())
	command.AddCommand(makePushUpCommand())
	return command
}

// load reads a plan document and applies the session flags given on the
// command line on top of the session section of the document.
func load(cmd *cobra.Command, path string) (*testplan.Definition, error) {
	def, err := testplan.Load(path)
	if err != nil {
		return nil, err
	}
	session := pflag.NewFlagSet("session", pflag.ContinueOnError)
	def.Session.RegisterFlags(session)
	cmd.Flags().Visit(func(f *pflag.Flag) {
		if target := session.Lookup(f.Name); target != nil && err == nil {
			err = errors.Wrapf(target.Value.Set(f.Value.String()), "--%s", f.Name)
		}
	})
	if err != nil {
		return nil, err
	}
	return def, def.Session.Validate()
}

func registerSessionFlags(cmd *cobra.Command) {
	sessiondata.Default().RegisterFlags(cmd.Flags())
}

func makeEstimateCommand() *cobra.Command {
	var columns, metrics bool
	cmd := &cobra.Command{
		Use:   "estimate <plan.yaml>",
		Short: "Print the estimated statistics of every node of a plan.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			def, err := load(cmd, args[0])
			if err != nil {
				return err
			}
			reg := prometheus.NewRegistry()
			e := newEstimator(context.Background(), def, memo.NewMetrics(reg))
			if err := e.printTree(cmd.OutOrStdout()); err != nil {
				return err
			}
			if columns {
				e.printColumns(cmd.OutOrStdout())
			}
			if metrics {
				return printMetrics(cmd.OutOrStdout(), reg)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&columns, "columns", false, "print the column statistics of the root")
	cmd.Flags().BoolVar(&metrics, "metrics", false, "print the estimation counters")
	registerSessionFlags(cmd)
	return cmd
}

func makePruneCommand() *cobra.Command {
	var required []string
	cmd := &cobra.Command{
		Use:   "prune <plan.yaml>",
		Short: "Remove the outputs of a plan that are not referenced.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			def, err := load(cmd, args[0])
			if err != nil {
				return err
			}
			if len(required) > 0 {
				def.Required = make(opt.SymbolList, len(required))
				for i, r := range required {
					def.Required[i] = opt.Symbol(r)
				}
			}
			res, err := norm.PruneUnreferencedOutputs(context.Background(), def.Plan, def.Required)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), plan.Format(res))
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&required, "required", nil, "symbols the root must keep producing; defaults to the required section")
	return cmd
}

func makePushUpCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pushup <plan.yaml>",
		Short: "Move unique id generation above remote exchanges.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			def, err := load(cmd, args[0])
			if err != nil {
				return err
			}
			res, count, err := xform.ApplyBottomUp(
				context.Background(), def.Plan, def.Lookup, xform.PushUpAssignUniqueIDThroughRemoteExchange{},
			)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), plan.Format(res))
			fmt.Fprintf(cmd.OutOrStdout(), "(%d rewrite%s)\n", count, plural(count))
			return nil
		},
	}
	return cmd
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}

func main() {
	cmd := makeOptPlanCommand(os.Stdout)
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %+v\n", err)
		os.Exit(1)
	}
}
