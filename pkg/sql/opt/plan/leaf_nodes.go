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
	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/optcore/pkg/sql/opt"
	"github.com/cockroachdb/optcore/pkg/sql/opt/scalar"
	"github.com/cockroachdb/redact"
)

// TableScan reads columns of a table. Assignments maps each output symbol to
// the column it reads.
type TableScan struct {
	ID          NodeID
	Table       TableHandle
	Outputs     opt.SymbolList
	Assignments map[opt.Symbol]ColumnHandle
}

// Values produces a fixed list of rows. Every row has one expression per
// output symbol, except that rows of arity zero are allowed when the node
// has no outputs that are read.
type Values struct {
	ID      NodeID
	Outputs opt.SymbolList
	Rows    [][]scalar.Expr
}

// NewValues constructs a Values node, checking that every row has the same
// arity as the outputs. Rows of arity zero are accepted.
func NewValues(id NodeID, outputs opt.SymbolList, rows [][]scalar.Expr) *Values {
	for i, row := range rows {
		if len(row) != 0 && len(row) != len(outputs) {
			panic(errors.AssertionFailedf(
				"values row %d has %d expressions, expected %d",
				redact.Safe(i), redact.Safe(len(row)), redact.Safe(len(outputs)),
			))
		}
	}
	return &Values{ID: id, Outputs: outputs, Rows: rows}
}

// IndexSource reads an index using the lookup symbols provided by the probe
// side of an index join.
type IndexSource struct {
	ID            NodeID
	Table         TableHandle
	LookupSymbols opt.SymbolSet
	Outputs       opt.SymbolList
	Assignments   map[opt.Symbol]ColumnHandle
}

// GroupReference stands for a group of equivalent plans in the memo. It must
// be resolved through a Lookup before its contents can be inspected.
type GroupReference struct {
	ID      NodeID
	Group   int
	Outputs opt.SymbolList
}

var _ Node = &TableScan{}
var _ Node = &Values{}
var _ Node = &IndexSource{}
var _ Node = &GroupReference{}

func (*TableScan) node()      {}
func (*Values) node()         {}
func (*IndexSource) node()    {}
func (*GroupReference) node() {}

// NodeID is part of the Node interface.
func (n *TableScan) NodeID() NodeID { return n.ID }

// Op is part of the Node interface.
func (n *TableScan) Op() opt.Operator { return opt.TableScanOp }

// Children is part of the Node interface.
func (n *TableScan) Children() []Node { return nil }

// OutputSymbols is part of the Node interface.
func (n *TableScan) OutputSymbols() opt.SymbolList { return n.Outputs }

// ReplaceChildren is part of the Node interface.
func (n *TableScan) ReplaceChildren(children []Node) Node {
	checkChildCount(n, children, 0)
	return n
}

// NodeID is part of the Node interface.
func (n *Values) NodeID() NodeID { return n.ID }

// Op is part of the Node interface.
func (n *Values) Op() opt.Operator { return opt.ValuesOp }

// Children is part of the Node interface.
func (n *Values) Children() []Node { return nil }

// OutputSymbols is part of the Node interface.
func (n *Values) OutputSymbols() opt.SymbolList { return n.Outputs }

// ReplaceChildren is part of the Node interface.
func (n *Values) ReplaceChildren(children []Node) Node {
	checkChildCount(n, children, 0)
	return n
}

// NodeID is part of the Node interface.
func (n *IndexSource) NodeID() NodeID { return n.ID }

// Op is part of the Node interface.
func (n *IndexSource) Op() opt.Operator { return opt.IndexSourceOp }

// Children is part of the Node interface.
func (n *IndexSource) Children() []Node { return nil }

// OutputSymbols is part of the Node interface.
func (n *IndexSource) OutputSymbols() opt.SymbolList { return n.Outputs }

// ReplaceChildren is part of the Node interface.
func (n *IndexSource) ReplaceChildren(children []Node) Node {
	checkChildCount(n, children, 0)
	return n
}

// NodeID is part of the Node interface.
func (n *GroupReference) NodeID() NodeID { return n.ID }

// Op is part of the Node interface.
func (n *GroupReference) Op() opt.Operator { return opt.GroupReferenceOp }

// Children is part of the Node interface.
func (n *GroupReference) Children() []Node { return nil }

// OutputSymbols is part of the Node interface.
func (n *GroupReference) OutputSymbols() opt.SymbolList { return n.Outputs }

// ReplaceChildren is part of the Node interface.
func (n *GroupReference) ReplaceChildren(children []Node) Node {
	checkChildCount(n, children, 0)
	return n
}
