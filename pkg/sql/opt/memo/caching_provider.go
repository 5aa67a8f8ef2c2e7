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
	"fmt"

	"github.com/cockroachdb/optcore/pkg/sql/opt"
	"github.com/cockroachdb/optcore/pkg/sql/opt/plan"
	"github.com/cockroachdb/optcore/pkg/sql/opt/props"
	"github.com/cockroachdb/optcore/pkg/sql/sessiondata"
	"github.com/cockroachdb/optcore/pkg/util/log"
	"github.com/cockroachdb/optcore/pkg/util/syncutil"
	"golang.org/x/sync/singleflight"
)

// CachingStatsProvider is a StatsProvider that memoizes the statistics of
// every node by node id. Concurrent requests for the same node share a
// single computation. Since estimation is a pure function of the plan,
// recomputing an evicted or racing entry yields the same statistics.
//
// An entry is only served for the node it was computed for. Rewrites such as
// pruning keep node ids while changing outputs, so a different node with a
// cached id is estimated again and replaces the entry.
type CachingStatsProvider struct {
	ctx     context.Context
	calc    *StatsCalculator
	lookup  plan.Lookup
	session *sessiondata.SessionData
	types   opt.TypeProvider
	metrics *Metrics

	group singleflight.Group

	mu struct {
		syncutil.Mutex
		stats map[plan.NodeID]cachedStats
	}
}

type cachedStats struct {
	node  plan.Node
	stats *props.Statistics
}

var _ StatsProvider = &CachingStatsProvider{}

// NewCachingStatsProvider returns a provider computing statistics with calc.
// The context is used for logging and for fetching table statistics.
func NewCachingStatsProvider(
	ctx context.Context,
	calc *StatsCalculator,
	lookup plan.Lookup,
	session *sessiondata.SessionData,
	typs opt.TypeProvider,
	metrics *Metrics,
) *CachingStatsProvider {
	if lookup == nil {
		lookup = plan.NoLookup
	}
	p := &CachingStatsProvider{
		ctx:     ctx,
		calc:    calc,
		lookup:  lookup,
		session: session,
		types:   typs,
		metrics: metrics,
	}
	p.mu.stats = make(map[plan.NodeID]cachedStats)
	return p
}

// Stats is part of the StatsProvider interface.
func (p *CachingStatsProvider) Stats(n plan.Node) *props.Statistics {
	n = p.lookup.Resolve(n)
	id := n.NodeID()
	if s, ok := p.cached(n); ok {
		p.metrics.cacheHit()
		return s
	}

	res, _, _ := p.group.Do(fmt.Sprintf("%d/%p", id, n), func() (interface{}, error) {
		// Another caller may have finished computing between the lookup above
		// and joining the group.
		if s, ok := p.cached(n); ok {
			return s, nil
		}
		p.metrics.cacheMiss()
		s, _ := p.calc.Calculate(p.ctx, n, p, p.lookup, p.session, p.types)
		p.mu.Lock()
		defer p.mu.Unlock()
		p.mu.stats[id] = cachedStats{node: n, stats: s}
		return s, nil
	})
	return res.(*props.Statistics)
}

func (p *CachingStatsProvider) cached(n plan.Node) (*props.Statistics, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	e, ok := p.mu.stats[n.NodeID()]
	if !ok || e.node != n {
		return nil, false
	}
	return e.stats, true
}

// Invalidate drops the cached statistics of the node with the given id, for
// use when the memo replaces the contents of a group.
func (p *CachingStatsProvider) Invalidate(id plan.NodeID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.mu.stats[id]; ok {
		log.VEventf(p.ctx, 2, "invalidating statistics of node %d", id)
		delete(p.mu.stats, id)
	}
}

// Len returns the number of cached entries.
func (p *CachingStatsProvider) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.mu.stats)
}
