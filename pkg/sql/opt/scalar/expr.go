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

// Package scalar contains the scalar expressions that appear inside plan
// nodes: filter predicates, projections and aggregate arguments. The
// optimizer core only inspects them to find referenced symbols and to
// recognize a handful of simple predicate shapes for selectivity estimation.
package scalar

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/optcore/pkg/sql/opt"
	"github.com/cockroachdb/optcore/pkg/sql/types"
	"github.com/cockroachdb/redact"
)

// Well-known function names.
const (
	Eq        = "eq"
	Ne        = "ne"
	Lt        = "lt"
	Le        = "le"
	Gt        = "gt"
	Ge        = "ge"
	And       = "and"
	Or        = "or"
	Not       = "not"
	IsNull    = "is_null"
	IsNotNull = "is_not_null"
	Add       = "add"
	Subtract  = "subtract"
	Multiply  = "multiply"
)

// Expr is a scalar expression. Implementations are immutable.
type Expr interface {
	fmt.Stringer

	// ChildCount returns the number of sub-expressions.
	ChildCount() int
	// Child returns the nth sub-expression.
	Child(nth int) Expr

	expr()
}

// Variable is a reference to a column by symbol.
type Variable struct {
	Symbol opt.Symbol
}

// Constant is a literal value. A nil Value is the SQL NULL.
type Constant struct {
	Value interface{}
	Type  *types.T
}

// Call is a function or operator applied to arguments.
type Call struct {
	Name string
	Args []Expr
}

var _ Expr = &Variable{}
var _ Expr = &Constant{}
var _ Expr = &Call{}

func (*Variable) expr() {}
func (*Constant) expr() {}
func (*Call) expr()     {}

// ChildCount is part of the Expr interface.
func (*Variable) ChildCount() int { return 0 }

// Child is part of the Expr interface.
func (v *Variable) Child(nth int) Expr { panic(childOutOfRange(v, nth)) }

// ChildCount is part of the Expr interface.
func (*Constant) ChildCount() int { return 0 }

// Child is part of the Expr interface.
func (c *Constant) Child(nth int) Expr { panic(childOutOfRange(c, nth)) }

// ChildCount is part of the Expr interface.
func (c *Call) ChildCount() int { return len(c.Args) }

// Child is part of the Expr interface.
func (c *Call) Child(nth int) Expr { return c.Args[nth] }

// NewVariable returns a reference to the given symbol.
func NewVariable(sym opt.Symbol) *Variable {
	return &Variable{Symbol: sym}
}

// NewConstant returns a constant, inferring its type from the Go value.
func NewConstant(value interface{}) *Constant {
	return &Constant{Value: value, Type: inferType(value)}
}

// Null is the untyped NULL constant.
var Null = &Constant{Type: types.Unknown}

// NewCall returns a call of the named function.
func NewCall(name string, args ...Expr) *Call {
	return &Call{Name: name, Args: args}
}

// IsNull returns true if the constant is the SQL NULL.
func (c *Constant) IsNull() bool {
	return c.Value == nil
}

// Float returns the numeric value of the constant as a float64, if it has
// one.
func (c *Constant) Float() (float64, bool) {
	switch v := c.Value.(type) {
	case int64:
		return float64(v), true
	case int:
		return float64(v), true
	case float64:
		return v, true
	}
	return 0, false
}

func inferType(value interface{}) *types.T {
	switch value.(type) {
	case nil:
		return types.Unknown
	case bool:
		return types.Bool
	case int, int64:
		return types.BigInt
	case float64:
		return types.Double
	case string:
		return types.Varchar
	}
	return types.Unknown
}

func (v *Variable) String() string {
	return string(v.Symbol)
}

func (c *Constant) String() string {
	switch v := c.Value.(type) {
	case nil:
		return "null"
	case string:
		return "'" + strings.ReplaceAll(v, "'", "''") + "'"
	case float64:
		s := strconv.FormatFloat(v, 'g', -1, 64)
		if !strings.ContainsAny(s, ".eEnI") {
			// Keep floats distinguishable from integers.
			s += ".0"
		}
		return s
	default:
		return fmt.Sprint(v)
	}
}

func (c *Call) String() string {
	var b strings.Builder
	b.WriteByte('(')
	b.WriteString(c.Name)
	for _, arg := range c.Args {
		b.WriteByte(' ')
		b.WriteString(arg.String())
	}
	b.WriteByte(')')
	return b.String()
}

// ExtractSymbols returns the set of symbols referenced by the expression.
func ExtractSymbols(e Expr) opt.SymbolSet {
	var res opt.SymbolSet
	collectSymbols(e, &res)
	return res
}

// ExtractSymbolsFromAll returns the union of the symbols referenced by the
// given expressions.
func ExtractSymbolsFromAll(exprs ...Expr) opt.SymbolSet {
	var res opt.SymbolSet
	for _, e := range exprs {
		collectSymbols(e, &res)
	}
	return res
}

func collectSymbols(e Expr, res *opt.SymbolSet) {
	if e == nil {
		return
	}
	if v, ok := e.(*Variable); ok {
		res.Add(v.Symbol)
		return
	}
	for i, n := 0, e.ChildCount(); i < n; i++ {
		collectSymbols(e.Child(i), res)
	}
}

// Equal returns true if the two expressions are structurally identical.
func Equal(a, b Expr) bool {
	if a == nil || b == nil {
		return a == b
	}
	switch a := a.(type) {
	case *Variable:
		bv, ok := b.(*Variable)
		return ok && a.Symbol == bv.Symbol
	case *Constant:
		bc, ok := b.(*Constant)
		return ok && a.Value == bc.Value && a.Type.Identical(bc.Type)
	case *Call:
		bc, ok := b.(*Call)
		if !ok || a.Name != bc.Name || len(a.Args) != len(bc.Args) {
			return false
		}
		for i := range a.Args {
			if !Equal(a.Args[i], bc.Args[i]) {
				return false
			}
		}
		return true
	}
	return false
}

func childOutOfRange(e Expr, nth int) error {
	return errors.AssertionFailedf("child index %d out of range for leaf expression %s", redact.Safe(nth), e)
}
