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

// Package syncutil wraps the sync primitives with lock assertions.
package syncutil

import (
	"sync"

	"github.com/cockroachdb/errors"
)

// A Mutex is a mutual exclusion lock.
type Mutex struct {
	sync.Mutex
}

// AssertHeld panics if the mutex is not locked. Functions which require that
// their callers hold a particular lock may use this to enforce this
// requirement more directly than relying on the race detector.
//
// Note that we do not require the lock to be held by any particular
// goroutine, just that some goroutine holds the lock.
func (m *Mutex) AssertHeld() {
	if m.TryLock() {
		m.Unlock()
		panic(errors.AssertionFailedf("mutex is not locked"))
	}
}

// An RWMutex is a reader/writer mutual exclusion lock.
type RWMutex struct {
	sync.RWMutex
}

// AssertHeld panics if the mutex is not locked for writing.
func (rw *RWMutex) AssertHeld() {
	if rw.TryRLock() {
		rw.RUnlock()
		panic(errors.AssertionFailedf("mutex is not write locked"))
	}
}
