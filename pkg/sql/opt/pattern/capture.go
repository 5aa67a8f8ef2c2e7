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

package pattern

import (
	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/optcore/pkg/sql/opt/plan"
	"github.com/cockroachdb/redact"
)

type capture interface {
	name() string
	accepts(n plan.Node) bool
}

// Capture names a node bound during a match. T is the concrete node type the
// capture holds.
type Capture[T plan.Node] struct {
	desc string
}

// NewCapture returns a new capture. Captures are compared by identity, so
// two captures with the same description are distinct.
func NewCapture[T plan.Node](desc string) *Capture[T] {
	return &Capture[T]{desc: desc}
}

func (c *Capture[T]) name() string { return c.desc }

func (c *Capture[T]) accepts(n plan.Node) bool {
	_, ok := n.(T)
	return ok
}

// Captures holds the nodes bound by a successful match.
type Captures struct {
	m map[capture]plan.Node
}

func (c *Captures) bind(key capture, n plan.Node) {
	if c.m == nil {
		c.m = make(map[capture]plan.Node)
	}
	c.m[key] = n
}

// Len returns the number of bound captures.
func (c Captures) Len() int {
	return len(c.m)
}

// Get returns the node bound to key. It panics if the pattern that produced
// the captures did not bind key.
func Get[T plan.Node](c Captures, key *Capture[T]) T {
	n, ok := c.m[key]
	if !ok {
		panic(errors.AssertionFailedf("capture %s is not bound", redact.Safe(key.desc)))
	}
	return n.(T)
}

// Lookup returns the node bound to key, if any.
func Lookup[T plan.Node](c Captures, key *Capture[T]) (T, bool) {
	n, ok := c.m[key]
	if !ok {
		var zero T
		return zero, false
	}
	return n.(T), true
}
