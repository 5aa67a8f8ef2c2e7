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
	"sort"
	"strings"
)

// Symbol identifies a column within the scope of a single plan. Symbols are
// nominal: two symbols are the same column if and only if their names are
// equal, regardless of where or how they were constructed. This lets the
// layers of a plan refer to the same logical column without sharing any
// object.
//
// The empty symbol is reserved to mean "no symbol". It is used by plan nodes
// for optional columns such as hash columns, masks and ordinality columns.
type Symbol string

// NoSymbol is the reserved "no symbol" value.
const NoSymbol Symbol = ""

// Name returns the name of the symbol.
func (s Symbol) Name() string {
	return string(s)
}

// Exists returns true if the symbol is not the reserved NoSymbol.
func (s Symbol) Exists() bool {
	return s != NoSymbol
}

// SymbolList is an ordered list of symbols.
type SymbolList []Symbol

// ToSet converts the list to a set.
func (l SymbolList) ToSet() SymbolSet {
	var s SymbolSet
	for _, sym := range l {
		s.Add(sym)
	}
	return s
}

// Contains returns true if the list contains the given symbol.
func (l SymbolList) Contains(sym Symbol) bool {
	for _, s := range l {
		if s == sym {
			return true
		}
	}
	return false
}

// Remove returns a new list that contains every symbol of the list except
// the given one. The receiver is not modified.
func (l SymbolList) Remove(sym Symbol) SymbolList {
	res := make(SymbolList, 0, len(l))
	for _, s := range l {
		if s != sym {
			res = append(res, s)
		}
	}
	return res
}

// Filter returns a new list containing the symbols of the list that are in
// the given set, in their original order. Duplicates are kept.
func (l SymbolList) Filter(set SymbolSet) SymbolList {
	res := make(SymbolList, 0, len(l))
	for _, s := range l {
		if set.Contains(s) {
			res = append(res, s)
		}
	}
	return res
}

// Distinct returns a new list with duplicate symbols removed, keeping the
// first occurrence of each.
func (l SymbolList) Distinct() SymbolList {
	var seen SymbolSet
	res := make(SymbolList, 0, len(l))
	for _, s := range l {
		if !seen.Contains(s) {
			seen.Add(s)
			res = append(res, s)
		}
	}
	return res
}

// Equals returns true if the two lists contain the same symbols in the same
// order.
func (l SymbolList) Equals(other SymbolList) bool {
	if len(l) != len(other) {
		return false
	}
	for i := range l {
		if l[i] != other[i] {
			return false
		}
	}
	return true
}

func (l SymbolList) String() string {
	var b strings.Builder
	b.WriteByte('[')
	for i, s := range l {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(string(s))
	}
	b.WriteByte(']')
	return b.String()
}

// SymbolSet is an unordered set of symbols. The zero value is an empty set
// that is ready to use. Iteration is always in sorted name order so that
// anything derived from a set is deterministic.
type SymbolSet struct {
	m map[Symbol]struct{}
}

// MakeSymbolSet returns a set containing the given symbols.
func MakeSymbolSet(syms ...Symbol) SymbolSet {
	var s SymbolSet
	for _, sym := range syms {
		s.Add(sym)
	}
	return s
}

// Add adds a symbol to the set. Adding NoSymbol is a no-op, which lets
// callers add optional symbols without checking them first.
func (s *SymbolSet) Add(sym Symbol) {
	if !sym.Exists() {
		return
	}
	if s.m == nil {
		s.m = make(map[Symbol]struct{})
	}
	s.m[sym] = struct{}{}
}

// AddList adds every symbol in the list to the set.
func (s *SymbolSet) AddList(l SymbolList) {
	for _, sym := range l {
		s.Add(sym)
	}
}

// Remove removes a symbol from the set.
func (s *SymbolSet) Remove(sym Symbol) {
	delete(s.m, sym)
}

// Contains returns true if the set contains the symbol.
func (s SymbolSet) Contains(sym Symbol) bool {
	_, ok := s.m[sym]
	return ok
}

// Len returns the number of symbols in the set.
func (s SymbolSet) Len() int {
	return len(s.m)
}

// Empty returns true if the set is empty.
func (s SymbolSet) Empty() bool {
	return len(s.m) == 0
}

// Copy returns a copy of the set that can be modified independently.
func (s SymbolSet) Copy() SymbolSet {
	var res SymbolSet
	for sym := range s.m {
		res.Add(sym)
	}
	return res
}

// UnionWith adds every symbol of other to the set.
func (s *SymbolSet) UnionWith(other SymbolSet) {
	for sym := range other.m {
		s.Add(sym)
	}
}

// Union returns the union of the two sets as a new set.
func (s SymbolSet) Union(other SymbolSet) SymbolSet {
	res := s.Copy()
	res.UnionWith(other)
	return res
}

// Intersection returns the symbols that are in both sets as a new set.
func (s SymbolSet) Intersection(other SymbolSet) SymbolSet {
	var res SymbolSet
	for sym := range s.m {
		if other.Contains(sym) {
			res.Add(sym)
		}
	}
	return res
}

// Difference returns the symbols of s that are not in other as a new set.
func (s SymbolSet) Difference(other SymbolSet) SymbolSet {
	var res SymbolSet
	for sym := range s.m {
		if !other.Contains(sym) {
			res.Add(sym)
		}
	}
	return res
}

// Intersects returns true if the two sets have at least one symbol in common.
func (s SymbolSet) Intersects(other SymbolSet) bool {
	for sym := range s.m {
		if other.Contains(sym) {
			return true
		}
	}
	return false
}

// SubsetOf returns true if every symbol of s is in other.
func (s SymbolSet) SubsetOf(other SymbolSet) bool {
	for sym := range s.m {
		if !other.Contains(sym) {
			return false
		}
	}
	return true
}

// Equals returns true if the two sets contain the same symbols.
func (s SymbolSet) Equals(other SymbolSet) bool {
	return s.Len() == other.Len() && s.SubsetOf(other)
}

// Ordered returns the symbols of the set sorted by name.
func (s SymbolSet) Ordered() SymbolList {
	res := make(SymbolList, 0, len(s.m))
	for sym := range s.m {
		res = append(res, sym)
	}
	sort.Slice(res, func(i, j int) bool { return res[i] < res[j] })
	return res
}

// ForEach calls f for every symbol of the set, in sorted order.
func (s SymbolSet) ForEach(f func(sym Symbol)) {
	for _, sym := range s.Ordered() {
		f(sym)
	}
}

func (s SymbolSet) String() string {
	var b strings.Builder
	b.WriteByte('(')
	for i, sym := range s.Ordered() {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(string(sym))
	}
	b.WriteByte(')')
	return b.String()
}
