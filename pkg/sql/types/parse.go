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

package types

import (
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
)

// Parse parses a type name such as "bigint", "decimal(10,2)",
// "array(varchar)" or "map(varchar,bigint)".
func Parse(s string) (*T, error) {
	p := typeParser{s: strings.ToLower(strings.TrimSpace(s))}
	t, err := p.parse()
	if err != nil {
		return nil, errors.Wrapf(err, "parsing type %q", s)
	}
	if p.pos != len(p.s) {
		return nil, errors.Newf("parsing type %q: unexpected trailing input %q", s, p.s[p.pos:])
	}
	return t, nil
}

// MustParse is like Parse but panics on error. It is intended for tests.
func MustParse(s string) *T {
	t, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return t
}

type typeParser struct {
	s   string
	pos int
}

func (p *typeParser) skipSpace() {
	for p.pos < len(p.s) && p.s[p.pos] == ' ' {
		p.pos++
	}
}

func (p *typeParser) ident() string {
	p.skipSpace()
	start := p.pos
	for p.pos < len(p.s) {
		c := p.s[p.pos]
		if (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') || c == '_' {
			p.pos++
			continue
		}
		break
	}
	return p.s[start:p.pos]
}

func (p *typeParser) accept(c byte) bool {
	p.skipSpace()
	if p.pos < len(p.s) && p.s[p.pos] == c {
		p.pos++
		return true
	}
	return false
}

func (p *typeParser) expect(c byte) error {
	if !p.accept(c) {
		return errors.Newf("expected %q at position %d", c, p.pos)
	}
	return nil
}

func (p *typeParser) int32() (int32, error) {
	n, err := strconv.ParseInt(p.ident(), 10, 32)
	if err != nil {
		return 0, err
	}
	return int32(n), nil
}

func (p *typeParser) parse() (*T, error) {
	name := p.ident()
	switch name {
	case "boolean", "bool":
		return Bool, nil
	case "tinyint":
		return TinyInt, nil
	case "smallint":
		return SmallInt, nil
	case "integer", "int":
		return Int, nil
	case "bigint":
		return BigInt, nil
	case "real":
		return Real, nil
	case "double":
		return Double, nil
	case "date":
		return Date, nil
	case "timestamp":
		return Timestamp, nil
	case "varbinary":
		return Varbinary, nil
	case "unknown":
		return Unknown, nil

	case "decimal":
		if !p.accept('(') {
			return MakeDecimal(0, 0), nil
		}
		precision, err := p.int32()
		if err != nil {
			return nil, err
		}
		var scale int32
		if p.accept(',') {
			if scale, err = p.int32(); err != nil {
				return nil, err
			}
		}
		if err := p.expect(')'); err != nil {
			return nil, err
		}
		if scale > precision {
			return nil, errors.Newf("decimal scale %d exceeds precision %d", scale, precision)
		}
		return MakeDecimal(precision, scale), nil

	case "varchar", "char":
		var width int32
		if p.accept('(') {
			var err error
			if width, err = p.int32(); err != nil {
				return nil, err
			}
			if err := p.expect(')'); err != nil {
				return nil, err
			}
		}
		if name == "char" {
			return MakeChar(width), nil
		}
		return MakeVarchar(width), nil

	case "array":
		if err := p.expect('('); err != nil {
			return nil, err
		}
		elem, err := p.parse()
		if err != nil {
			return nil, err
		}
		if err := p.expect(')'); err != nil {
			return nil, err
		}
		return MakeArray(elem), nil

	case "map":
		if err := p.expect('('); err != nil {
			return nil, err
		}
		key, err := p.parse()
		if err != nil {
			return nil, err
		}
		if err := p.expect(','); err != nil {
			return nil, err
		}
		value, err := p.parse()
		if err != nil {
			return nil, err
		}
		if err := p.expect(')'); err != nil {
			return nil, err
		}
		return MakeMap(key, value), nil

	case "row":
		if err := p.expect('('); err != nil {
			return nil, err
		}
		var fields []*T
		for {
			f, err := p.parse()
			if err != nil {
				return nil, err
			}
			fields = append(fields, f)
			if !p.accept(',') {
				break
			}
		}
		if err := p.expect(')'); err != nil {
			return nil, err
		}
		return MakeRow(fields...), nil
	}
	return nil, errors.Newf("unknown type name %q", name)
}
