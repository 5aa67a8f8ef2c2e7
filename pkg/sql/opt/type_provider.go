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

import "github.com/cockroachdb/optcore/pkg/sql/types"

// TypeProvider maps symbols to their column types.
type TypeProvider interface {
	// TypeOf returns the type of the given symbol, or types.Unknown if the
	// symbol is not known to the provider.
	TypeOf(sym Symbol) *types.T
}

// SymbolTypes is a TypeProvider backed by a map.
type SymbolTypes map[Symbol]*types.T

var _ TypeProvider = SymbolTypes(nil)

// TypeOf is part of the TypeProvider interface.
func (st SymbolTypes) TypeOf(sym Symbol) *types.T {
	if t, ok := st[sym]; ok && t != nil {
		return t
	}
	return types.Unknown
}
