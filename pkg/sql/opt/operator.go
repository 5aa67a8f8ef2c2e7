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

package opt

import (
	"fmt"

	"github.com/cockroachdb/redact"
)

// Operator identifies the variant of a plan node. Rule tables are keyed by
// operator so that dispatch does not depend on reflection.
type Operator uint8

const (
	UnknownOp Operator = iota

	// -- Leaf operators --

	TableScanOp
	ValuesOp
	IndexSourceOp
	// GroupReferenceOp is a placeholder for a memo group. It is resolved to a
	// concrete node through a lookup before being inspected.
	GroupReferenceOp

	// -- Single-input operators --

	FilterOp
	ProjectOp
	AggregationOp
	GroupIDOp
	MarkDistinctOp
	WindowOp
	RowNumberOp
	TopNRowNumberOp
	SortOp
	TopNOp
	LimitOp
	DistinctLimitOp
	UnnestOp
	AssignUniqueIDOp
	EnforceSingleRowOp
	OutputOp
	TableWriterOp
	TableFinishOp
	StatisticsWriterOp
	DeleteOp
	ExplainAnalyzeOp

	// -- Multi-input operators --

	JoinOp
	SemiJoinOp
	SpatialJoinOp
	IndexJoinOp
	UnionOp
	IntersectOp
	ExceptOp
	ExchangeOp
	ApplyOp
	LateralJoinOp

	// NumOperators tracks the total count of operators. It must be last.
	NumOperators
)

var operatorNames = [NumOperators]string{
	UnknownOp:          "unknown",
	TableScanOp:        "table-scan",
	ValuesOp:           "values",
	IndexSourceOp:      "index-source",
	GroupReferenceOp:   "group-reference",
	FilterOp:           "filter",
	ProjectOp:          "project",
	AggregationOp:      "aggregation",
	GroupIDOp:          "group-id",
	MarkDistinctOp:     "mark-distinct",
	WindowOp:           "window",
	RowNumberOp:        "row-number",
	TopNRowNumberOp:    "top-n-row-number",
	SortOp:             "sort",
	TopNOp:             "top-n",
	LimitOp:            "limit",
	DistinctLimitOp:    "distinct-limit",
	UnnestOp:           "unnest",
	AssignUniqueIDOp:   "assign-unique-id",
	EnforceSingleRowOp: "enforce-single-row",
	OutputOp:           "output",
	TableWriterOp:      "table-writer",
	TableFinishOp:      "table-finish",
	StatisticsWriterOp: "statistics-writer",
	DeleteOp:           "delete",
	ExplainAnalyzeOp:   "explain-analyze",
	JoinOp:             "join",
	SemiJoinOp:         "semi-join",
	SpatialJoinOp:      "spatial-join",
	IndexJoinOp:        "index-join",
	UnionOp:            "union",
	IntersectOp:        "intersect",
	ExceptOp:           "except",
	ExchangeOp:         "exchange",
	ApplyOp:            "apply",
	LateralJoinOp:      "lateral-join",
}

func (op Operator) String() string {
	if op >= NumOperators {
		return fmt.Sprintf("operator(%d)", op)
	}
	return operatorNames[op]
}

// SafeFormat implements redact.SafeFormatter. Operator names never contain
// user data.
func (op Operator) SafeFormat(s redact.SafePrinter, _ rune) {
	s.SafeString(redact.SafeString(op.String()))
}

// ParseOperator returns the operator with the given name.
func ParseOperator(name string) (Operator, bool) {
	for op := UnknownOp + 1; op < NumOperators; op++ {
		if operatorNames[op] == name {
			return op, true
		}
	}
	return UnknownOp, false
}
