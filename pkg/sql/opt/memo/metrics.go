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
	"github.com/cockroachdb/optcore/pkg/sql/opt"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts the work done by the statistics calculator and the caching
// provider.
type Metrics struct {
	// RuleApplications counts the estimates produced by each rule.
	RuleApplications *prometheus.CounterVec
	// Fallbacks counts the nodes, by operator, for which no rule produced an
	// estimate.
	Fallbacks   *prometheus.CounterVec
	CacheHits   prometheus.Counter
	CacheMisses prometheus.Counter
}

// NewMetrics creates the metrics and registers them with reg, if it is not
// nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RuleApplications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "optcore",
			Subsystem: "stats",
			Name:      "rule_applications_total",
			Help:      "Number of statistics estimates produced, by rule.",
		}, []string{"rule"}),
		Fallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "optcore",
			Subsystem: "stats",
			Name:      "unknown_fallbacks_total",
			Help:      "Number of nodes for which no rule produced an estimate, by operator.",
		}, []string{"operator"}),
		CacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "optcore",
			Subsystem: "stats",
			Name:      "cache_hits_total",
			Help:      "Number of statistics served from the memo.",
		}),
		CacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "optcore",
			Subsystem: "stats",
			Name:      "cache_misses_total",
			Help:      "Number of statistics computed for the memo.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.RuleApplications, m.Fallbacks, m.CacheHits, m.CacheMisses)
	}
	return m
}

func (m *Metrics) ruleApplied(name string) {
	if m != nil {
		m.RuleApplications.WithLabelValues(name).Inc()
	}
}

func (m *Metrics) fellBack(op opt.Operator) {
	if m != nil {
		m.Fallbacks.WithLabelValues(op.String()).Inc()
	}
}

func (m *Metrics) cacheHit() {
	if m != nil {
		m.CacheHits.Inc()
	}
}

func (m *Metrics) cacheMiss() {
	if m != nil {
		m.CacheMisses.Inc()
	}
}
