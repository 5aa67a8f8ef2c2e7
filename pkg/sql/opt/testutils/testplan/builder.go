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

package testplan

import (
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/optcore/pkg/sql/opt"
	"github.com/cockroachdb/optcore/pkg/sql/opt/plan"
	"github.com/cockroachdb/optcore/pkg/sql/opt/scalar"
	"gopkg.in/yaml.v2"
)

// NodeDef is the YAML form of a plan node. Which fields are read depends on
// the operator.
type NodeDef struct {
	Op string `yaml:"op"`

	Source    *NodeDef   `yaml:"source"`
	Sources   []*NodeDef `yaml:"sources"`
	Left      *NodeDef   `yaml:"left"`
	Right     *NodeDef   `yaml:"right"`
	Filtering *NodeDef   `yaml:"filtering"`
	Subquery  *NodeDef   `yaml:"subquery"`

	Table       string          `yaml:"table"`
	Columns     yaml.MapSlice   `yaml:"columns"`
	Lookup      []string        `yaml:"lookup"`
	Group       int             `yaml:"group"`
	Outputs     []string        `yaml:"outputs"`
	ColumnNames []string        `yaml:"column_names"`
	Rows        [][]interface{} `yaml:"rows"`

	Predicate   string        `yaml:"predicate"`
	Assignments yaml.MapSlice `yaml:"assignments"`

	Keys             []string      `yaml:"keys"`
	GroupingSetCount int           `yaml:"grouping_set_count"`
	GlobalSets       []int         `yaml:"global_sets"`
	Step             string        `yaml:"step"`
	Aggregations     yaml.MapSlice `yaml:"aggregations"`
	GroupingSets     [][]string    `yaml:"grouping_sets"`
	GroupingColumns  yaml.MapSlice `yaml:"grouping_columns"`
	Arguments        []string      `yaml:"arguments"`

	Symbol      string            `yaml:"symbol"`
	Distinct    []string          `yaml:"distinct"`
	PartitionBy []string          `yaml:"partition_by"`
	OrderBy     []string          `yaml:"order_by"`
	Orderings   map[string]string `yaml:"orderings"`
	Functions   yaml.MapSlice     `yaml:"functions"`
	Count       int64             `yaml:"count"`
	MaxRows     *int64            `yaml:"max_rows_per_partition"`
	WithTies    bool              `yaml:"with_ties"`
	Partial     bool              `yaml:"partial"`

	Replicate  []string      `yaml:"replicate"`
	Unnest     yaml.MapSlice `yaml:"unnest"`
	Ordinality string        `yaml:"ordinality"`

	Type         string        `yaml:"type"`
	Criteria     []string      `yaml:"criteria"`
	SourceKey    string        `yaml:"source_key"`
	FilteringKey string        `yaml:"filtering_key"`
	Correlation  []string      `yaml:"correlation"`
	Mapping      yaml.MapSlice `yaml:"mapping"`

	Scope        string     `yaml:"scope"`
	Partitioning string     `yaml:"partitioning"`
	PartitionOn  []string   `yaml:"partition_on"`
	HashColumn   string     `yaml:"hash_column"`
	Inputs       [][]string `yaml:"inputs"`
}

type builder struct {
	types opt.SymbolTypes
	ids   plan.IDAllocator
}

func (b *builder) build(d *NodeDef) (plan.Node, error) {
	if d == nil {
		return nil, errors.New("missing node")
	}
	op, ok := opt.ParseOperator(d.Op)
	if !ok {
		return nil, errors.Newf("unknown operator %q", d.Op)
	}
	// Ids are assigned before children are built, giving pre-order ids.
	id := b.ids.Next()
	n, err := b.buildOp(id, op, d)
	return n, errors.Wrapf(err, "%s node %d", op, id)
}

func (b *builder) buildOp(id plan.NodeID, op opt.Operator, d *NodeDef) (plan.Node, error) {
	switch op {
	case opt.TableScanOp, opt.IndexSourceOp:
		outputs, assignments, err := columnAssignments(d.Columns)
		if err != nil {
			return nil, err
		}
		if op == opt.IndexSourceOp {
			return &plan.IndexSource{
				ID:            id,
				Table:         plan.TableHandle(d.Table),
				LookupSymbols: toSymbols(d.Lookup).ToSet(),
				Outputs:       outputs,
				Assignments:   assignments,
			}, nil
		}
		return &plan.TableScan{
			ID:          id,
			Table:       plan.TableHandle(d.Table),
			Outputs:     outputs,
			Assignments: assignments,
		}, nil

	case opt.ValuesOp:
		rows := make([][]scalar.Expr, len(d.Rows))
		for i, row := range d.Rows {
			rows[i] = make([]scalar.Expr, len(row))
			for j, v := range row {
				e, err := parseValue(v)
				if err != nil {
					return nil, err
				}
				rows[i][j] = e
			}
		}
		return plan.NewValues(id, toSymbols(d.Outputs), rows), nil

	case opt.GroupReferenceOp:
		return &plan.GroupReference{ID: id, Group: d.Group, Outputs: toSymbols(d.Outputs)}, nil
	}

	if op >= opt.JoinOp {
		return b.buildMulti(id, op, d)
	}

	source, err := b.build(d.Source)
	if err != nil {
		return nil, err
	}
	switch op {
	case opt.FilterOp:
		pred, err := scalar.Parse(d.Predicate)
		if err != nil {
			return nil, err
		}
		return &plan.Filter{ID: id, Source: source, Predicate: pred}, nil

	case opt.ProjectOp:
		assignments, err := parseAssignments(d.Assignments)
		if err != nil {
			return nil, err
		}
		return &plan.Project{ID: id, Source: source, Assignments: assignments}, nil

	case opt.AggregationOp:
		aggs, err := parseAggregations(d.Aggregations)
		if err != nil {
			return nil, err
		}
		step, err := parseEnum(d.Step, plan.SingleStep, plan.PartialStep, plan.IntermediateStep, plan.FinalStep)
		if err != nil {
			return nil, err
		}
		count := d.GroupingSetCount
		if count == 0 {
			count = 1
		}
		return &plan.Aggregation{
			ID:           id,
			Source:       source,
			Aggregations: aggs,
			GroupingSets: plan.GroupingSetDescriptor{
				Keys:       toSymbols(d.Keys),
				Count:      count,
				GlobalSets: d.GlobalSets,
			},
			Step: step,
		}, nil

	case opt.GroupIDOp:
		sets := make([]opt.SymbolList, len(d.GroupingSets))
		for i, s := range d.GroupingSets {
			sets[i] = toSymbols(s)
		}
		var cols []plan.GroupingColumn
		for _, item := range d.GroupingColumns {
			output, err := symbolOf(item.Key)
			if err != nil {
				return nil, err
			}
			input, err := symbolOf(item.Value)
			if err != nil {
				return nil, err
			}
			cols = append(cols, plan.GroupingColumn{Output: output, Input: input})
		}
		return &plan.GroupID{
			ID:                   id,
			Source:               source,
			GroupingSets:         sets,
			GroupingColumns:      cols,
			AggregationArguments: toSymbols(d.Arguments),
			GroupIDSymbol:        opt.Symbol(d.Symbol),
		}, nil

	case opt.MarkDistinctOp:
		return &plan.MarkDistinct{
			ID:              id,
			Source:          source,
			MarkerSymbol:    opt.Symbol(d.Symbol),
			DistinctSymbols: toSymbols(d.Distinct),
		}, nil

	case opt.WindowOp:
		ordering, err := d.ordering()
		if err != nil {
			return nil, err
		}
		var fns []plan.WindowFunction
		for _, item := range d.Functions {
			sym, err := symbolOf(item.Key)
			if err != nil {
				return nil, err
			}
			call, err := parseCall(item.Value)
			if err != nil {
				return nil, err
			}
			fns = append(fns, plan.WindowFunction{
				Symbol: sym,
				Name:   call.Name,
				Args:   call.Args,
				Frame: plan.Frame{
					Type:      plan.RangeFrame,
					StartType: plan.UnboundedPreceding,
					EndType:   plan.CurrentRow,
				},
			})
		}
		return &plan.Window{
			ID:     id,
			Source: source,
			Specification: plan.WindowSpecification{
				PartitionBy:    toSymbols(d.PartitionBy),
				OrderingScheme: ordering,
			},
			Functions: fns,
		}, nil

	case opt.RowNumberOp:
		var limit plan.RowNumberLimit
		if d.MaxRows != nil {
			limit = plan.MakeRowNumberLimit(*d.MaxRows)
		}
		return &plan.RowNumber{
			ID:                      id,
			Source:                  source,
			PartitionBy:             toSymbols(d.PartitionBy),
			RowNumberSymbol:         opt.Symbol(d.Symbol),
			MaxRowCountPerPartition: limit,
		}, nil

	case opt.TopNRowNumberOp:
		ordering, err := d.ordering()
		if err != nil {
			return nil, err
		}
		return &plan.TopNRowNumber{
			ID:     id,
			Source: source,
			Specification: plan.WindowSpecification{
				PartitionBy:    toSymbols(d.PartitionBy),
				OrderingScheme: ordering,
			},
			RowNumberSymbol:         opt.Symbol(d.Symbol),
			MaxRowCountPerPartition: d.Count,
			Partial:                 d.Partial,
		}, nil

	case opt.SortOp, opt.TopNOp:
		ordering, err := d.ordering()
		if err != nil {
			return nil, err
		}
		if ordering == nil {
			return nil, errors.New("order_by is required")
		}
		if op == opt.SortOp {
			return &plan.Sort{ID: id, Source: source, OrderingScheme: *ordering, Partial: d.Partial}, nil
		}
		return &plan.TopN{ID: id, Source: source, Count: d.Count, OrderingScheme: *ordering, Partial: d.Partial}, nil

	case opt.LimitOp:
		n := &plan.Limit{ID: id, Source: source, Count: d.Count, Partial: d.Partial}
		if d.WithTies {
			if n.TiesResolvingScheme, err = d.ordering(); err != nil {
				return nil, err
			}
		}
		return n, nil

	case opt.DistinctLimitOp:
		return &plan.DistinctLimit{
			ID:              id,
			Source:          source,
			Limit:           d.Count,
			Partial:         d.Partial,
			DistinctSymbols: toSymbols(d.Distinct),
		}, nil

	case opt.UnnestOp:
		var mappings []plan.UnnestMapping
		for _, item := range d.Unnest {
			input, err := symbolOf(item.Key)
			if err != nil {
				return nil, err
			}
			outputs, err := symbolList(item.Value)
			if err != nil {
				return nil, err
			}
			mappings = append(mappings, plan.UnnestMapping{
				Input:   input,
				Outputs: outputs,
			})
		}
		return &plan.Unnest{
			ID:               id,
			Source:           source,
			ReplicateSymbols: toSymbols(d.Replicate),
			UnnestSymbols:    mappings,
			OrdinalitySymbol: opt.Symbol(d.Ordinality),
		}, nil

	case opt.AssignUniqueIDOp:
		return &plan.AssignUniqueID{ID: id, Source: source, IDSymbol: opt.Symbol(d.Symbol)}, nil

	case opt.EnforceSingleRowOp:
		return &plan.EnforceSingleRow{ID: id, Source: source}, nil

	case opt.OutputOp:
		outputs := toSymbols(d.Outputs)
		names := d.ColumnNames
		if names == nil {
			names = make([]string, len(outputs))
			for i, sym := range outputs {
				names[i] = sym.Name()
			}
		}
		return &plan.Output{ID: id, Source: source, ColumnNames: names, Outputs: outputs}, nil

	case opt.TableFinishOp:
		return &plan.TableFinish{ID: id, Source: source, Target: d.Table, RowCountSymbol: opt.Symbol(d.Symbol)}, nil

	case opt.ExplainAnalyzeOp:
		return &plan.ExplainAnalyze{ID: id, Source: source, OutputSymbol: opt.Symbol(d.Symbol)}, nil
	}
	return nil, errors.Newf("operator %s is not supported in plan documents", op)
}

func (b *builder) buildMulti(id plan.NodeID, op opt.Operator, d *NodeDef) (plan.Node, error) {
	switch op {
	case opt.JoinOp, opt.IndexJoinOp:
		left, err := b.build(d.Left)
		if err != nil {
			return nil, err
		}
		right, err := b.build(d.Right)
		if err != nil {
			return nil, err
		}
		typ, err := parseEnum(d.Type, plan.InnerJoin, plan.LeftJoin, plan.RightJoin, plan.FullJoin)
		if err != nil {
			return nil, err
		}
		clauses, err := parseCriteria(d.Criteria)
		if err != nil {
			return nil, err
		}
		if op == opt.IndexJoinOp {
			criteria := make([]plan.IndexJoinClause, len(clauses))
			for i, c := range clauses {
				criteria[i] = plan.IndexJoinClause{Probe: c.Left, Index: c.Right}
			}
			return &plan.IndexJoin{ID: id, Type: typ, ProbeSource: left, IndexSource: right, Criteria: criteria}, nil
		}
		n := &plan.Join{ID: id, Type: typ, Left: left, Right: right, Criteria: clauses}
		if d.Predicate != "" {
			if n.Filter, err = scalar.Parse(d.Predicate); err != nil {
				return nil, err
			}
		}
		if d.Outputs != nil {
			n.Outputs = toSymbols(d.Outputs)
		} else {
			n.Outputs = append(append(opt.SymbolList(nil), left.OutputSymbols()...), right.OutputSymbols()...)
		}
		return n, nil

	case opt.SemiJoinOp:
		source, err := b.build(d.Source)
		if err != nil {
			return nil, err
		}
		filtering, err := b.build(d.Filtering)
		if err != nil {
			return nil, err
		}
		return &plan.SemiJoin{
			ID:                        id,
			Source:                    source,
			FilteringSource:           filtering,
			SourceJoinSymbol:          opt.Symbol(d.SourceKey),
			FilteringSourceJoinSymbol: opt.Symbol(d.FilteringKey),
			SemiJoinOutput:            opt.Symbol(d.Symbol),
		}, nil

	case opt.UnionOp, opt.IntersectOp, opt.ExceptOp:
		sources, err := b.buildAll(d.Sources)
		if err != nil {
			return nil, err
		}
		setOp := plan.SetOperation{Sources: sources}
		for _, item := range d.Mapping {
			inputs, err := symbolList(item.Value)
			if err != nil {
				return nil, err
			}
			if len(inputs) != len(sources) {
				return nil, errors.Newf("mapping of %v has %d inputs for %d sources", item.Key, len(inputs), len(sources))
			}
			output, err := symbolOf(item.Key)
			if err != nil {
				return nil, err
			}
			setOp.Mapping = append(setOp.Mapping, plan.SetOperationMapping{
				Output: output,
				Inputs: inputs,
			})
		}
		switch op {
		case opt.UnionOp:
			return &plan.Union{ID: id, SetOperation: setOp}, nil
		case opt.IntersectOp:
			return &plan.Intersect{ID: id, SetOperation: setOp}, nil
		default:
			return &plan.Except{ID: id, SetOperation: setOp}, nil
		}

	case opt.ExchangeOp:
		sources, err := b.buildAll(d.Sources)
		if err != nil {
			return nil, err
		}
		typ, err := parseEnum(d.Type, plan.GatherExchange, plan.RepartitionExchange, plan.ReplicateExchange)
		if err != nil {
			return nil, err
		}
		scope, err := parseEnum(d.Scope, plan.LocalExchange, plan.RemoteExchange)
		if err != nil {
			return nil, err
		}
		handle := plan.PartitioningHandle(d.Partitioning)
		if handle == "" {
			handle = plan.SingleDistribution
		}
		partitioning := plan.Partitioning{Handle: handle}
		for _, sym := range d.PartitionOn {
			partitioning.Arguments = append(partitioning.Arguments, plan.PartitioningArgument{Symbol: opt.Symbol(sym)})
		}
		layout := toSymbols(d.Outputs)
		inputs := make([]opt.SymbolList, len(sources))
		for i, src := range sources {
			switch {
			case d.Inputs != nil:
				if i < len(d.Inputs) {
					inputs[i] = toSymbols(d.Inputs[i])
				}
			case layout != nil:
				inputs[i] = layout
			default:
				inputs[i] = src.OutputSymbols()
			}
		}
		if layout == nil && len(sources) > 0 {
			layout = inputs[0]
		}
		ordering, err := d.ordering()
		if err != nil {
			return nil, err
		}
		n := &plan.Exchange{
			ID:    id,
			Type:  typ,
			Scope: scope,
			PartitioningScheme: plan.PartitioningScheme{
				Partitioning: partitioning,
				OutputLayout: layout,
				HashColumn:   opt.Symbol(d.HashColumn),
			},
			Sources:        sources,
			Inputs:         inputs,
			OrderingScheme: ordering,
		}
		n.CheckInputs()
		return n, nil

	case opt.ApplyOp, opt.LateralJoinOp:
		input, err := b.build(d.Source)
		if err != nil {
			return nil, err
		}
		subquery, err := b.build(d.Subquery)
		if err != nil {
			return nil, err
		}
		if op == opt.LateralJoinOp {
			typ, err := parseEnum(d.Type, plan.InnerJoin, plan.LeftJoin, plan.RightJoin, plan.FullJoin)
			if err != nil {
				return nil, err
			}
			return &plan.LateralJoin{
				ID:          id,
				Input:       input,
				Subquery:    subquery,
				Correlation: toSymbols(d.Correlation),
				Type:        typ,
			}, nil
		}
		assignments, err := parseAssignments(d.Assignments)
		if err != nil {
			return nil, err
		}
		return &plan.Apply{
			ID:                  id,
			Input:               input,
			Subquery:            subquery,
			SubqueryAssignments: assignments,
			Correlation:         toSymbols(d.Correlation),
		}, nil
	}
	return nil, errors.Newf("operator %s is not supported in plan documents", op)
}

func (b *builder) buildAll(defs []*NodeDef) ([]plan.Node, error) {
	res := make([]plan.Node, len(defs))
	for i, d := range defs {
		n, err := b.build(d)
		if err != nil {
			return nil, err
		}
		res[i] = n
	}
	return res, nil
}

func (d *NodeDef) ordering() (*plan.OrderingScheme, error) {
	if len(d.OrderBy) == 0 {
		return nil, nil
	}
	scheme := &plan.OrderingScheme{
		OrderBy:   toSymbols(d.OrderBy),
		Orderings: make(map[opt.Symbol]plan.SortOrder, len(d.Orderings)),
	}
	for sym, name := range d.Orderings {
		order, err := parseEnum(name, plan.AscNullsLast, plan.AscNullsFirst, plan.DescNullsFirst, plan.DescNullsLast)
		if err != nil {
			return nil, err
		}
		scheme.Orderings[opt.Symbol(sym)] = order
	}
	return scheme, nil
}

// parseEnum finds the value whose String form is name. An empty name
// selects the first value.
func parseEnum[T fmt.Stringer](name string, values ...T) (T, error) {
	if name == "" {
		return values[0], nil
	}
	for _, v := range values {
		if v.String() == name {
			return v, nil
		}
	}
	var zero T
	names := make([]string, len(values))
	for i, v := range values {
		names[i] = v.String()
	}
	return zero, errors.Newf("unknown value %q, expected one of %s", name, strings.Join(names, ", "))
}

func columnAssignments(items yaml.MapSlice) (opt.SymbolList, map[opt.Symbol]plan.ColumnHandle, error) {
	outputs := make(opt.SymbolList, 0, len(items))
	assignments := make(map[opt.Symbol]plan.ColumnHandle, len(items))
	for _, item := range items {
		sym, err := symbolOf(item.Key)
		if err != nil {
			return nil, nil, err
		}
		handle, ok := item.Value.(string)
		if !ok {
			return nil, nil, errors.Newf("column of %s must be a string, got %v", sym, item.Value)
		}
		if _, ok := assignments[sym]; ok {
			return nil, nil, errors.Newf("duplicate column %s", sym)
		}
		outputs = append(outputs, sym)
		assignments[sym] = plan.ColumnHandle(handle)
	}
	return outputs, assignments, nil
}

func parseAssignments(items yaml.MapSlice) (plan.Assignments, error) {
	res := make(plan.Assignments, 0, len(items))
	for _, item := range items {
		sym, err := symbolOf(item.Key)
		if err != nil {
			return nil, err
		}
		e, err := parseValue(item.Value)
		if err != nil {
			return nil, err
		}
		res = append(res, plan.Assignment{Symbol: sym, Expr: e})
	}
	return res, nil
}

func parseAggregations(items yaml.MapSlice) ([]plan.AggregationItem, error) {
	var res []plan.AggregationItem
	for _, item := range items {
		sym, err := symbolOf(item.Key)
		if err != nil {
			return nil, err
		}
		call, err := parseCall(item.Value)
		if err != nil {
			return nil, err
		}
		res = append(res, plan.AggregationItem{
			Symbol:      sym,
			Aggregation: plan.AggregateCall{Function: call.Name, Args: call.Args},
		})
	}
	return res, nil
}

func parseCall(v interface{}) (*scalar.Call, error) {
	e, err := parseValue(v)
	if err != nil {
		return nil, err
	}
	call, ok := e.(*scalar.Call)
	if !ok {
		return nil, errors.Newf("expected a function call, got %s", e)
	}
	return call, nil
}

// parseValue parses an expression. YAML numbers and booleans are accepted as
// constants.
func parseValue(v interface{}) (scalar.Expr, error) {
	if v == nil {
		return scalar.Null, nil
	}
	return scalar.Parse(fmt.Sprint(v))
}

func parseCriteria(criteria []string) ([]plan.EquiJoinClause, error) {
	res := make([]plan.EquiJoinClause, len(criteria))
	for i, c := range criteria {
		left, right, ok := strings.Cut(c, "=")
		if !ok {
			return nil, errors.Newf("criterion %q is not of the form left = right", c)
		}
		res[i] = plan.EquiJoinClause{
			Left:  opt.Symbol(strings.TrimSpace(left)),
			Right: opt.Symbol(strings.TrimSpace(right)),
		}
	}
	return res, nil
}

func symbolList(v interface{}) (opt.SymbolList, error) {
	list, ok := v.([]interface{})
	if !ok {
		return nil, errors.Newf("expected a list of symbols, got %v", v)
	}
	res := make(opt.SymbolList, len(list))
	for i, s := range list {
		sym, err := symbolOf(s)
		if err != nil {
			return nil, err
		}
		res[i] = sym
	}
	return res, nil
}

// symbolOf returns the symbol named by a YAML scalar. YAML resolves unquoted
// n, y, on, off and numbers to other types, so those names must be quoted.
func symbolOf(v interface{}) (opt.Symbol, error) {
	s, ok := v.(string)
	if !ok || s == "" {
		return "", errors.Newf("symbol %v must be a non-empty string; quote names such as \"n\" or \"on\"", v)
	}
	return opt.Symbol(s), nil
}
