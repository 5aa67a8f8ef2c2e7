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

package scalar

import (
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/optcore/pkg/sql/opt"
)

// Parse parses an expression written in the s-expression syntax produced by
// String:
//
//	x                 variable
//	42, -1.5          numeric constants
//	'abc'             string constant ('' escapes a quote)
//	true, false, null boolean and null constants
//	(name arg...)     call
func Parse(s string) (Expr, error) {
	p := parser{s: s}
	e, err := p.parseExpr()
	if err != nil {
		return nil, errors.Wrapf(err, "parsing expression %q", s)
	}
	p.skipSpace()
	if p.pos != len(p.s) {
		return nil, errors.Newf("parsing expression %q: unexpected trailing input at %d", s, p.pos)
	}
	return e, nil
}

// MustParse is like Parse but panics on error. It is intended for tests.
func MustParse(s string) Expr {
	e, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return e
}

type parser struct {
	s   string
	pos int
}

func (p *parser) skipSpace() {
	for p.pos < len(p.s) {
		switch p.s[p.pos] {
		case ' ', '\t', '\n', '\r':
			p.pos++
		default:
			return
		}
	}
}

func (p *parser) parseExpr() (Expr, error) {
	p.skipSpace()
	if p.pos >= len(p.s) {
		return nil, errors.New("unexpected end of input")
	}
	switch c := p.s[p.pos]; {
	case c == '(':
		p.pos++
		name := p.token()
		if name == "" {
			return nil, errors.Newf("expected function name at %d", p.pos)
		}
		call := &Call{Name: name}
		for {
			p.skipSpace()
			if p.pos >= len(p.s) {
				return nil, errors.Newf("unterminated call to %s", name)
			}
			if p.s[p.pos] == ')' {
				p.pos++
				return call, nil
			}
			arg, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			call.Args = append(call.Args, arg)
		}

	case c == '\'':
		return p.parseString()

	case c == ')':
		return nil, errors.Newf("unexpected ')' at %d", p.pos)
	}

	tok := p.token()
	switch tok {
	case "null":
		return Null, nil
	case "true":
		return NewConstant(true), nil
	case "false":
		return NewConstant(false), nil
	}
	if c := tok[0]; c == '-' || (c >= '0' && c <= '9') {
		if i, err := strconv.ParseInt(tok, 10, 64); err == nil {
			return NewConstant(i), nil
		}
		if f, err := strconv.ParseFloat(tok, 64); err == nil {
			return NewConstant(f), nil
		}
		return nil, errors.Newf("invalid number %q", tok)
	}
	return NewVariable(opt.Symbol(tok)), nil
}

// token reads up to the next space or parenthesis.
func (p *parser) token() string {
	start := p.pos
	for p.pos < len(p.s) && !strings.ContainsRune(" \t\n\r()'", rune(p.s[p.pos])) {
		p.pos++
	}
	return p.s[start:p.pos]
}

func (p *parser) parseString() (Expr, error) {
	// Skip the opening quote.
	p.pos++
	var b strings.Builder
	for p.pos < len(p.s) {
		c := p.s[p.pos]
		p.pos++
		if c != '\'' {
			b.WriteByte(c)
			continue
		}
		if p.pos < len(p.s) && p.s[p.pos] == '\'' {
			b.WriteByte('\'')
			p.pos++
			continue
		}
		return NewConstant(b.String()), nil
	}
	return nil, errors.New("unterminated string constant")
}
