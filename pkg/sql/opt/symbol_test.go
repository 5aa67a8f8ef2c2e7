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

package opt_test

import (
	"fmt"
	"strings"
	"testing"

	"github.com/cockroachdb/optcore/pkg/sql/opt"
	"github.com/cockroachdb/optcore/pkg/sql/types"
	"github.com/stretchr/testify/require"
)

func TestSymbolNominalEquality(t *testing.T) {
	// Symbols built independently from equal names are the same column.
	a := opt.Symbol("x")
	b := opt.Symbol(strings.Join([]string{"", "x"}, ""))
	c := opt.Symbol(fmt.Sprintf("%c", 'x'))
	require.Equal(t, a, b)

	var s opt.SymbolSet
	s.Add(a)
	s.Add(b)
	s.Add(c)
	require.Equal(t, 1, s.Len())
	require.True(t, s.Contains(opt.Symbol("x")))

	m := map[opt.Symbol]int{a: 1}
	m[c] = 2
	require.Len(t, m, 1)
	require.Equal(t, 2, m[b])
}

func TestSymbolSet(t *testing.T) {
	s := opt.MakeSymbolSet("c", "a", "b")
	require.Equal(t, "(a, b, c)", s.String())
	require.Equal(t, opt.SymbolList{"a", "b", "c"}, s.Ordered())

	other := opt.MakeSymbolSet("b", "d")
	require.Equal(t, "(a, b, c, d)", s.Union(other).String())
	require.Equal(t, "(b)", s.Intersection(other).String())
	require.Equal(t, "(a, c)", s.Difference(other).String())
	require.True(t, s.Intersects(other))
	require.False(t, s.Intersects(opt.MakeSymbolSet("z")))
	require.True(t, opt.MakeSymbolSet("a").SubsetOf(s))
	require.False(t, other.SubsetOf(s))
	require.True(t, s.Equals(opt.MakeSymbolSet("a", "b", "c")))

	// Operations return new sets.
	require.Equal(t, 3, s.Len())
	require.Equal(t, 2, other.Len())

	// NoSymbol is never added.
	s.Add(opt.NoSymbol)
	require.Equal(t, 3, s.Len())

	var empty opt.SymbolSet
	require.True(t, empty.Empty())
	require.True(t, empty.SubsetOf(s))
	require.Equal(t, "()", empty.String())

	cp := s.Copy()
	cp.Remove("a")
	require.True(t, s.Contains("a"))
	require.False(t, cp.Contains("a"))

	var visited []opt.Symbol
	s.ForEach(func(sym opt.Symbol) { visited = append(visited, sym) })
	require.Equal(t, []opt.Symbol{"a", "b", "c"}, visited)
}

func TestSymbolList(t *testing.T) {
	l := opt.SymbolList{"b", "a", "b", "c"}
	require.True(t, l.Contains("c"))
	require.False(t, l.Contains("d"))
	require.Equal(t, opt.SymbolList{"a", "c"}, l.Remove("b"))
	require.Equal(t, opt.SymbolList{"b", "a", "c"}, l.Distinct())
	require.Equal(t, opt.SymbolList{"b", "b", "c"}, l.Filter(opt.MakeSymbolSet("b", "c")))
	require.Equal(t, 3, l.ToSet().Len())
	require.Equal(t, "[b, a, b, c]", l.String())
	require.True(t, l.Equals(opt.SymbolList{"b", "a", "b", "c"}))
	require.False(t, l.Equals(opt.SymbolList{"a", "b", "b", "c"}))
}

func TestSymbolTypes(t *testing.T) {
	st := opt.SymbolTypes{"x": types.BigInt}
	require.Equal(t, types.BigInt, st.TypeOf("x"))
	require.Equal(t, types.Unknown, st.TypeOf("y"))
}

func TestOperatorNames(t *testing.T) {
	for op := opt.UnknownOp + 1; op < opt.NumOperators; op++ {
		name := op.String()
		require.NotEmpty(t, name, "operator %d has no name", op)
		parsed, ok := opt.ParseOperator(name)
		require.True(t, ok)
		require.Equal(t, op, parsed)
	}
	_, ok := opt.ParseOperator("nonsense")
	require.False(t, ok)
}
