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
	"testing"

	"github.com/cockroachdb/optcore/pkg/sql/opt"
	"github.com/cockroachdb/optcore/pkg/sql/opt/scalar"
	"github.com/stretchr/testify/require"
)

func TestFormat(t *testing.T) {
	left := &TableScan{
		ID:          1,
		Table:       "t",
		Outputs:     opt.SymbolList{"a", "b"},
		Assignments: map[opt.Symbol]ColumnHandle{"a": "col_a", "b": "col_b"},
	}
	right := NewValues(2, opt.SymbolList{"c"}, [][]scalar.Expr{{scalar.NewConstant(int64(1))}})
	join := &Join{
		ID:       3,
		Type:     LeftJoin,
		Left:     left,
		Right:    right,
		Criteria: []EquiJoinClause{{Left: "a", Right: "c"}},
		Outputs:  opt.SymbolList{"a", "b", "c"},
	}
	root := &Filter{ID: 4, Source: join, Predicate: scalar.MustParse("(gt b 10)")}

	expected := `filter [4] (gt b 10)
 └── join [3] left a=c outputs=[a, b, c]
      ├── table-scan [1] t columns=(a:=col_a, b:=col_b)
      └── values [2] outputs=[c] rows=1
`
	require.Equal(t, expected, Format(root))

	annotated := FormatAnnotated(root, func(n Node) []string {
		return []string{fmt.Sprintf("id: %d", n.NodeID())}
	})
	expected = `filter [4] (gt b 10)
 │   id: 4
 └── join [3] left a=c outputs=[a, b, c]
      │   id: 3
      ├── table-scan [1] t columns=(a:=col_a, b:=col_b)
      │        id: 1
      └── values [2] outputs=[c] rows=1
               id: 2
`
	require.Equal(t, expected, annotated)
}
