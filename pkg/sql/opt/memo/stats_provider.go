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

package memo

import (
	"context"

	"github.com/cockroachdb/optcore/pkg/sql/opt"
	"github.com/cockroachdb/optcore/pkg/sql/opt/plan"
	"github.com/cockroachdb/optcore/pkg/sql/opt/props"
	"github.com/cockroachdb/optcore/pkg/sql/sessiondata"
	"github.com/cockroachdb/optcore/pkg/sql/types"
)

// StatsProvider returns the statistics of plan nodes. Rules use it to fetch
// the statistics of the children of the node they estimate.
type StatsProvider interface {
	Stats(n plan.Node) *props.Statistics
}

// TableStatsSource supplies connector statistics for the columns of a
// table. Columns are identified by their handles.
type TableStatsSource interface {
	TableStatistics(
		ctx context.Context, table plan.TableHandle, columns []plan.ColumnHandle,
	) (props.TableStatistics, error)
}

// TableStatsMap is a TableStatsSource backed by a map. Tables that are
// absent have empty statistics.
type TableStatsMap map[plan.TableHandle]props.TableStatistics

var _ TableStatsSource = TableStatsMap{}

// TableStatistics is part of the TableStatsSource interface.
func (m TableStatsMap) TableStatistics(
	_ context.Context, table plan.TableHandle, _ []plan.ColumnHandle,
) (props.TableStatistics, error) {
	if ts, ok := m[table]; ok {
		return ts, nil
	}
	return props.EmptyTableStatistics(), nil
}

// MapLookup resolves group references by group number.
type MapLookup map[int]plan.Node

var _ plan.Lookup = MapLookup{}

// Resolve is part of the plan.Lookup interface. References to unknown
// groups are returned unchanged.
func (l MapLookup) Resolve(n plan.Node) plan.Node {
	if ref, ok := n.(*plan.GroupReference); ok {
		if resolved, ok := l[ref.Group]; ok {
			return resolved
		}
	}
	return n
}

// StatsContext is the environment a stats rule runs in.
type StatsContext struct {
	Ctx      context.Context
	Provider StatsProvider
	Lookup   plan.Lookup
	Session  *sessiondata.SessionData
	Types    opt.TypeProvider
}

// Stats returns the statistics of n, which is usually a child of the node
// being estimated.
func (sc *StatsContext) Stats(n plan.Node) *props.Statistics {
	return sc.Provider.Stats(n)
}

// TypeOf returns the type of sym.
func (sc *StatsContext) TypeOf(sym opt.Symbol) *types.T {
	return sc.Types.TypeOf(sym)
}
