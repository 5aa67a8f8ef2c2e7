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

package syncutil

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAssertHeld(t *testing.T) {
	var m Mutex
	require.Panics(t, m.AssertHeld)
	m.Lock()
	require.NotPanics(t, m.AssertHeld)
	m.Unlock()

	var rw RWMutex
	require.Panics(t, rw.AssertHeld)
	rw.Lock()
	require.NotPanics(t, rw.AssertHeld)
	rw.Unlock()
	rw.RLock()
	require.Panics(t, rw.AssertHeld)
	rw.RUnlock()
}
