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

// Package testplan reads plans, table statistics and column types from YAML
// documents. It is used by tests and by the optplan tool.
//
// A document looks like:
//
//	types:
//	  a: bigint
//	tables:
//	  t:
//	    rows: 100
//	    columns:
//	      a: {distinct: 10, nulls: 0, min: 1, max: 10, size: 800}
//	required: [a]
//	plan:
//	  op: output
//	  outputs: [a]
//	  source:
//	    op: table-scan
//	    table: t
//	    columns: {a: a}
//
// Node ids are assigned in pre-order starting at 1. Operators are named as
// printed by opt.Operator.
package testplan

import (
	"os"

	"github.com/cockroachdb/apd/v3"
	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/optcore/pkg/sql/opt"
	"github.com/cockroachdb/optcore/pkg/sql/opt/memo"
	"github.com/cockroachdb/optcore/pkg/sql/opt/plan"
	"github.com/cockroachdb/optcore/pkg/sql/opt/props"
	"github.com/cockroachdb/optcore/pkg/sql/sessiondata"
	"github.com/cockroachdb/optcore/pkg/sql/types"
	"gopkg.in/yaml.v2"
)

// Definition is a parsed document.
type Definition struct {
	Plan     plan.Node
	Types    opt.SymbolTypes
	Tables   memo.TableStatsMap
	Lookup   memo.MapLookup
	Required opt.SymbolList
	Session  *sessiondata.SessionData
}

type document struct {
	Types    map[string]string        `yaml:"types"`
	Tables   map[string]tableDef      `yaml:"tables"`
	Session  *sessiondata.SessionData `yaml:"session"`
	Required []string                 `yaml:"required"`
	Groups   map[int]*NodeDef         `yaml:"groups"`
	Plan     *NodeDef                 `yaml:"plan"`
}

type tableDef struct {
	Rows    *float64             `yaml:"rows"`
	Columns map[string]columnDef `yaml:"columns"`
}

type columnDef struct {
	Distinct *float64    `yaml:"distinct"`
	Nulls    *float64    `yaml:"nulls"`
	Size     *float64    `yaml:"size"`
	Min      interface{} `yaml:"min"`
	Max      interface{} `yaml:"max"`
}

// Load reads a document from a file.
func Load(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", path)
	}
	def, err := Parse(data)
	return def, errors.Wrapf(err, "in %s", path)
}

// Parse reads a document.
func Parse(data []byte) (_ *Definition, err error) {
	doc := document{Session: sessiondata.Default()}
	if err := yaml.UnmarshalStrict(data, &doc); err != nil {
		return nil, errors.Wrap(err, "parsing plan document")
	}
	if err := doc.Session.Validate(); err != nil {
		return nil, err
	}

	def := &Definition{
		Types:    make(opt.SymbolTypes, len(doc.Types)),
		Tables:   make(memo.TableStatsMap, len(doc.Tables)),
		Lookup:   make(memo.MapLookup, len(doc.Groups)),
		Required: toSymbols(doc.Required),
		Session:  doc.Session,
	}
	for name, typ := range doc.Types {
		t, err := types.Parse(typ)
		if err != nil {
			return nil, errors.Wrapf(err, "type of %s", name)
		}
		def.Types[opt.Symbol(name)] = t
	}
	for name, t := range doc.Tables {
		ts, err := tableStatistics(t)
		if err != nil {
			return nil, errors.Wrapf(err, "table %s", name)
		}
		def.Tables[plan.TableHandle(name)] = ts
	}

	// Node constructors report malformed input by panicking.
	defer func() {
		if r := recover(); r != nil {
			err = opt.CatchOptimizerError(r)
		}
	}()
	b := builder{types: def.Types}
	for group, n := range doc.Groups {
		node, err := b.build(n)
		if err != nil {
			return nil, errors.Wrapf(err, "group %d", group)
		}
		def.Lookup[group] = node
	}
	if doc.Plan == nil {
		return nil, errors.New("document has no plan")
	}
	if def.Plan, err = b.build(doc.Plan); err != nil {
		return nil, err
	}
	if len(def.Required) == 0 {
		def.Required = def.Plan.OutputSymbols()
	}
	return def, nil
}

func tableStatistics(t tableDef) (props.TableStatistics, error) {
	ts := props.TableStatistics{
		RowCount: optionalEstimate(t.Rows),
		Columns:  make(map[string]props.TableColumnStatistics, len(t.Columns)),
	}
	for name, c := range t.Columns {
		lo, err := nativeValue(c.Min)
		if err != nil {
			return ts, errors.Wrapf(err, "min of %s", name)
		}
		hi, err := nativeValue(c.Max)
		if err != nil {
			return ts, errors.Wrapf(err, "max of %s", name)
		}
		ts.Columns[name] = props.TableColumnStatistics{
			DistinctValuesCount: optionalEstimate(c.Distinct),
			NullsFraction:       optionalEstimate(c.Nulls),
			DataSize:            optionalEstimate(c.Size),
			Min:                 lo,
			Max:                 hi,
		}
	}
	return ts, ts.Validate()
}

// nativeValue converts a YAML scalar into the native representation of a
// column value. Strings are decimals.
func nativeValue(v interface{}) (interface{}, error) {
	switch t := v.(type) {
	case nil, int, int64, float64:
		return t, nil
	case string:
		d, _, err := apd.NewFromString(t)
		if err != nil {
			return nil, errors.Wrapf(err, "parsing decimal %q", t)
		}
		return d, nil
	}
	return nil, errors.Newf("unsupported value %v", v)
}

func optionalEstimate(f *float64) props.Estimate {
	if f == nil {
		return props.UnknownEstimate()
	}
	return props.MakeEstimate(*f)
}

func toSymbols(names []string) opt.SymbolList {
	if len(names) == 0 {
		return nil
	}
	res := make(opt.SymbolList, len(names))
	for i, n := range names {
		res[i] = opt.Symbol(n)
	}
	return res
}
