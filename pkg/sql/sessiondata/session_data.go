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

package sessiondata

import (
	"io"

	"github.com/cockroachdb/errors"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v2"
)

// SessionData contains the session parameters read by the optimizer. They
// are all user-configurable.
type SessionData struct {
	// OptimizerUseStatistics indicates whether connector table statistics are
	// used for cardinality estimation. When false, every estimate that would
	// be derived from table statistics is unknown.
	OptimizerUseStatistics bool `yaml:"optimizer_use_statistics"`
	// DefaultFilterFactorEnabled indicates whether filters whose selectivity
	// cannot be estimated are assumed to keep DefaultFilterFactor of their
	// input rows, rather than producing an unknown row count.
	DefaultFilterFactorEnabled bool `yaml:"default_filter_factor_enabled"`
	// DefaultFilterFactor is the selectivity assumed for filters that cannot
	// be estimated when DefaultFilterFactorEnabled is set.
	DefaultFilterFactor float64 `yaml:"default_filter_factor"`
}

// DefaultFilterFactor is the default value of the session setting of the
// same name.
const DefaultFilterFactor = 0.9

// Default returns the default session parameters.
func Default() *SessionData {
	return &SessionData{
		OptimizerUseStatistics: true,
		DefaultFilterFactor:    DefaultFilterFactor,
	}
}

// Load reads session parameters from YAML. Parameters absent from the input
// keep their default values.
func Load(r io.Reader) (*SessionData, error) {
	sd := Default()
	buf, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "reading session data")
	}
	if err := yaml.UnmarshalStrict(buf, sd); err != nil {
		return nil, errors.Wrap(err, "parsing session data")
	}
	if err := sd.Validate(); err != nil {
		return nil, err
	}
	return sd, nil
}

// Validate checks that the parameters are in range.
func (sd *SessionData) Validate() error {
	if sd.DefaultFilterFactor < 0 || sd.DefaultFilterFactor > 1 {
		return errors.Newf("default_filter_factor must be in [0, 1], got %v", sd.DefaultFilterFactor)
	}
	return nil
}

// RegisterFlags binds the parameters to command line flags.
func (sd *SessionData) RegisterFlags(fs *pflag.FlagSet) {
	fs.BoolVar(&sd.OptimizerUseStatistics, "optimizer-use-statistics", sd.OptimizerUseStatistics,
		"use table statistics for cardinality estimation")
	fs.BoolVar(&sd.DefaultFilterFactorEnabled, "default-filter-factor-enabled", sd.DefaultFilterFactorEnabled,
		"assume a fixed selectivity for filters that cannot be estimated")
	fs.Float64Var(&sd.DefaultFilterFactor, "default-filter-factor", sd.DefaultFilterFactor,
		"selectivity assumed when default-filter-factor-enabled is set")
}

// Copy returns a copy of the session data.
func (sd *SessionData) Copy() *SessionData {
	cp := *sd
	return &cp
}
