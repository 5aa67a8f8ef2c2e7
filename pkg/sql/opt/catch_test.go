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

package opt_test

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/optcore/pkg/sql/opt"
	"github.com/stretchr/testify/require"
)

func catching(f func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = opt.CatchOptimizerError(r)
		}
	}()
	f()
	return nil
}

func TestCatchOptimizerError(t *testing.T) {
	require.NoError(t, catching(func() {}))
	require.NoError(t, opt.CatchOptimizerError(nil))

	err := catching(func() {
		panic(errors.AssertionFailedf("bad plan"))
	})
	require.Error(t, err)
	require.True(t, errors.HasAssertionFailure(err))

	// Runtime errors become assertion failures.
	err = catching(func() {
		var m map[string]int
		m["x"] = 1
	})
	require.Error(t, err)
	require.True(t, errors.HasAssertionFailure(err))

	// Non-error panics are not recoverable.
	require.Panics(t, func() {
		_ = catching(func() { panic("not an error") })
	})
}
