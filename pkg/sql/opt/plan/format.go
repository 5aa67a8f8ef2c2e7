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
	"fmt"
	"strings"

	"github.com/cockroachdb/optcore/pkg/sql/opt"
	"github.com/cockroachdb/optcore/pkg/sql/opt/scalar"
)

// Annotator returns extra lines printed underneath a node, such as its
// statistics.
type Annotator func(n Node) []string

// Format renders the plan as an indented tree, one node per line:
//
//	filter [2] (gt a 1)
//	 └── table-scan [1] t columns=(a:=col_a)
func Format(n Node) string {
	return FormatAnnotated(n, nil)
}

// FormatAnnotated is like Format but prints the lines returned by annotate
// underneath every node.
func FormatAnnotated(n Node, annotate Annotator) string {
	f := formatter{annotate: annotate}
	f.format(n, "", "")
	return f.buf.String()
}

type formatter struct {
	buf      strings.Builder
	annotate Annotator
}

func (f *formatter) format(n Node, firstPrefix, restPrefix string) {
	f.buf.WriteString(firstPrefix)
	f.buf.WriteString(Describe(n))
	f.buf.WriteByte('\n')

	children := n.Children()
	var lines []string
	if f.annotate != nil {
		lines = f.annotate(n)
	}
	for _, line := range lines {
		f.buf.WriteString(restPrefix)
		if len(children) > 0 {
			f.buf.WriteString(" │   ")
		} else {
			f.buf.WriteString("     ")
		}
		f.buf.WriteString(line)
		f.buf.WriteByte('\n')
	}
	for i, child := range children {
		if i == len(children)-1 {
			f.format(child, restPrefix+" └── ", restPrefix+"     ")
		} else {
			f.format(child, restPrefix+" ├── ", restPrefix+" │   ")
		}
	}
}

// Describe returns a one line description of the node, without its
// children.
func Describe(n Node) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s [%d]", n.Op(), n.NodeID())
	w := func(format string, args ...interface{}) {
		b.WriteByte(' ')
		fmt.Fprintf(&b, format, args...)
	}

	switch t := n.(type) {
	case *TableScan:
		w("%s", t.Table)
		w("columns=%s", formatColumns(t.Outputs, t.Assignments))

	case *IndexSource:
		w("%s", t.Table)
		w("lookup=%s", t.LookupSymbols)
		w("columns=%s", formatColumns(t.Outputs, t.Assignments))

	case *Values:
		w("outputs=%s rows=%d", t.Outputs, len(t.Rows))

	case *GroupReference:
		w("group=%d outputs=%s", t.Group, t.Outputs)

	case *Filter:
		w("%s", t.Predicate)

	case *Project:
		w("%s", formatAssignments(t.Assignments))

	case *Aggregation:
		w("%s keys=%s", t.Step, t.GroupingSets.Keys)
		if t.GroupingSets.SetCount() != 1 {
			w("sets=%d", t.GroupingSets.SetCount())
		}
		for _, item := range t.Aggregations {
			w("%s:=%s", item.Symbol, formatAggregation(&item.Aggregation))
		}
		writeOptional(w, "hash", t.HashSymbol)
		writeOptional(w, "group-id", t.GroupIDSymbol)

	case *GroupID:
		for _, set := range t.GroupingSets {
			w("set=%s", set)
		}
		w("args=%s", t.AggregationArguments)
		writeOptional(w, "group-id", t.GroupIDSymbol)

	case *MarkDistinct:
		w("%s:=distinct%s", t.MarkerSymbol, t.DistinctSymbols)
		writeOptional(w, "hash", t.HashSymbol)

	case *Window:
		w("partition=%s", t.Specification.PartitionBy)
		if t.Specification.OrderingScheme != nil {
			w("order=%s", formatOrdering(t.Specification.OrderingScheme))
		}
		for _, fn := range t.Functions {
			w("%s:=(%s%s)", fn.Symbol, fn.Name, formatArgs(fn.Args))
		}
		writeOptional(w, "hash", t.HashSymbol)

	case *RowNumber:
		w("%s partition=%s", t.RowNumberSymbol, t.PartitionBy)
		if t.MaxRowCountPerPartition.Valid {
			w("max=%d", t.MaxRowCountPerPartition.Count)
		}
		writeOptional(w, "hash", t.HashSymbol)

	case *TopNRowNumber:
		w("%s partition=%s", t.RowNumberSymbol, t.Specification.PartitionBy)
		if t.Specification.OrderingScheme != nil {
			w("order=%s", formatOrdering(t.Specification.OrderingScheme))
		}
		w("max=%d", t.MaxRowCountPerPartition)

	case *Sort:
		w("order=%s", formatOrdering(&t.OrderingScheme))

	case *TopN:
		w("count=%d order=%s", t.Count, formatOrdering(&t.OrderingScheme))

	case *Limit:
		w("count=%d", t.Count)
		if t.TiesResolvingScheme != nil {
			w("ties=%s", formatOrdering(t.TiesResolvingScheme))
		}

	case *DistinctLimit:
		w("limit=%d distinct=%s", t.Limit, t.DistinctSymbols)
		writeOptional(w, "hash", t.HashSymbol)

	case *Unnest:
		w("replicate=%s", t.ReplicateSymbols)
		for _, m := range t.UnnestSymbols {
			w("%s->%s", m.Input, m.Outputs)
		}
		writeOptional(w, "ordinality", t.OrdinalitySymbol)

	case *AssignUniqueID:
		w("%s", t.IDSymbol)

	case *Output:
		w("columns=%s outputs=%s", strings.Join(t.ColumnNames, ","), t.Outputs)

	case *TableWriter:
		w("%s columns=%s", t.Target, t.Columns)

	case *TableFinish:
		w("%s", t.Target)

	case *StatisticsWriter:
		w("%s", t.Target)

	case *Delete:
		w("%s row-id=%s", t.Target, t.RowID)

	case *Join:
		w("%s", t.Type)
		for _, c := range t.Criteria {
			w("%s=%s", c.Left, c.Right)
		}
		if t.Filter != nil {
			w("filter=%s", t.Filter)
		}
		w("outputs=%s", t.Outputs)

	case *SemiJoin:
		w("%s:=%s in %s", t.SemiJoinOutput, t.SourceJoinSymbol, t.FilteringSourceJoinSymbol)

	case *SpatialJoin:
		w("%s filter=%s outputs=%s", t.Type, t.Filter, t.Outputs)

	case *IndexJoin:
		w("%s", t.Type)
		for _, c := range t.Criteria {
			w("%s=%s", c.Probe, c.Index)
		}

	case *Union:
		w("%s", formatSetOperation(&t.SetOperation))

	case *Intersect:
		w("%s", formatSetOperation(&t.SetOperation))

	case *Except:
		w("%s", formatSetOperation(&t.SetOperation))

	case *Exchange:
		w("%s %s %s", t.Scope, t.Type, t.PartitioningScheme.Partitioning.Handle)
		if args := t.PartitioningScheme.Partitioning.Arguments; len(args) > 0 {
			strs := make([]string, len(args))
			for i := range args {
				strs[i] = args[i].String()
			}
			w("on=[%s]", strings.Join(strs, ", "))
		}
		w("layout=%s", t.PartitioningScheme.OutputLayout)
		for i, in := range t.Inputs {
			w("in%d=%s", i, in)
		}
		writeOptional(w, "hash", t.PartitioningScheme.HashColumn)
		if t.OrderingScheme != nil {
			w("order=%s", formatOrdering(t.OrderingScheme))
		}

	case *Apply:
		w("%s correlation=%s", formatAssignments(t.SubqueryAssignments), t.Correlation)

	case *LateralJoin:
		w("%s correlation=%s", t.Type, t.Correlation)
	}
	return b.String()
}

func writeOptional(w func(string, ...interface{}), label string, sym opt.Symbol) {
	if sym.Exists() {
		w("%s=%s", label, sym)
	}
}

func formatColumns(outputs opt.SymbolList, assignments map[opt.Symbol]ColumnHandle) string {
	strs := make([]string, len(outputs))
	for i, sym := range outputs {
		strs[i] = fmt.Sprintf("%s:=%s", sym, assignments[sym])
	}
	return "(" + strings.Join(strs, ", ") + ")"
}

func formatAssignments(a Assignments) string {
	strs := make([]string, len(a))
	for i := range a {
		strs[i] = fmt.Sprintf("%s:=%s", a[i].Symbol, a[i].Expr)
	}
	return "(" + strings.Join(strs, ", ") + ")"
}

func formatOrdering(o *OrderingScheme) string {
	strs := make([]string, len(o.OrderBy))
	for i, sym := range o.OrderBy {
		strs[i] = fmt.Sprintf("%s %s", sym, o.Ordering(sym))
	}
	return "[" + strings.Join(strs, ", ") + "]"
}

func formatAggregation(a *AggregateCall) string {
	var b strings.Builder
	b.WriteByte('(')
	b.WriteString(a.Function)
	if a.Distinct {
		b.WriteString(" distinct")
	}
	b.WriteString(formatArgs(a.Args))
	b.WriteByte(')')
	if a.Filter.Exists() {
		fmt.Fprintf(&b, "[filter=%s]", a.Filter)
	}
	if a.Mask.Exists() {
		fmt.Fprintf(&b, "[mask=%s]", a.Mask)
	}
	return b.String()
}

func formatArgs(args []scalar.Expr) string {
	var b strings.Builder
	for _, arg := range args {
		b.WriteByte(' ')
		b.WriteString(arg.String())
	}
	return b.String()
}

func formatSetOperation(s *SetOperation) string {
	strs := make([]string, len(s.Mapping))
	for i, m := range s.Mapping {
		strs[i] = fmt.Sprintf("%s<-%s", m.Output, m.Inputs)
	}
	return "(" + strings.Join(strs, ", ") + ")"
}
