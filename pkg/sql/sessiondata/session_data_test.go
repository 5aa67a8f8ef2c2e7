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
	"strings"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	sd, err := Load(strings.NewReader("default_filter_factor_enabled: true\n"))
	require.NoError(t, err)
	require.True(t, sd.OptimizerUseStatistics)
	require.True(t, sd.DefaultFilterFactorEnabled)
	require.Equal(t, DefaultFilterFactor, sd.DefaultFilterFactor)

	sd, err = Load(strings.NewReader("optimizer_use_statistics: false\ndefault_filter_factor: 0.5\n"))
	require.NoError(t, err)
	require.False(t, sd.OptimizerUseStatistics)
	require.Equal(t, 0.5, sd.DefaultFilterFactor)

	_, err = Load(strings.NewReader("no_such_setting: 1\n"))
	require.Error(t, err)

	_, err = Load(strings.NewReader("default_filter_factor: 2\n"))
	require.Error(t, err)
}

func TestRegisterFlags(t *testing.T) {
	sd := Default()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	sd.RegisterFlags(fs)
	require.NoError(t, fs.Parse([]string{"--optimizer-use-statistics=false", "--default-filter-factor=0.25"}))
	require.False(t, sd.OptimizerUseStatistics)
	require.Equal(t, 0.25, sd.DefaultFilterFactor)

	cp := sd.Copy()
	cp.OptimizerUseStatistics = true
	require.False(t, sd.OptimizerUseStatistics)
}
