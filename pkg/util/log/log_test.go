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

package log

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/cockroachdb/redact"
	"github.com/stretchr/testify/require"
)

func captureOutput(t *testing.T) *bytes.Buffer {
	var buf bytes.Buffer
	restore := SetOutput(&buf)
	logging.mu.Lock()
	prevNow := logging.mu.now
	logging.mu.now = func() time.Time {
		return time.Date(2024, 10, 18, 9, 30, 0, 123456000, time.UTC)
	}
	logging.mu.Unlock()
	t.Cleanup(func() {
		restore()
		logging.mu.Lock()
		logging.mu.now = prevNow
		logging.mu.Unlock()
	})
	return &buf
}

func TestOutputFormat(t *testing.T) {
	buf := captureOutput(t)
	ctx := WithTag(context.Background(), "n", 1)
	ctx = WithTag(ctx, "rule", "aggregation")
	ctx = WithTag(ctx, "fallback", nil)

	Infof(ctx, "estimated %d rows", 42)
	Warningf(context.Background(), "no rule for %s", redact.Safe("window"))
	require.Equal(t,
		"I241018 09:30:00.123456 [n1,rule=aggregation,fallback] estimated 42 rows\n"+
			"W241018 09:30:00.123456 no rule for window\n",
		buf.String())
}

func TestRedactable(t *testing.T) {
	buf := captureOutput(t)
	SetRedactable(true)
	defer SetRedactable(false)

	Errorf(context.Background(), "table %s, step %s", "secret", redact.Safe("final"))
	require.Equal(t, "E241018 09:30:00.123456 table ‹secret›, step final\n", buf.String())
}

func TestVerbosity(t *testing.T) {
	buf := captureOutput(t)
	prev := SetVerbosity(1)
	defer SetVerbosity(prev)

	require.True(t, V(1))
	require.False(t, V(2))
	VEventf(context.Background(), 2, "hidden")
	VEventf(context.Background(), 1, "shown")
	require.Equal(t, "I241018 09:30:00.123456 shown\n", buf.String())
}

func TestFormatWithContextTags(t *testing.T) {
	ctx := WithTag(context.Background(), "node", 7)
	require.Equal(t, "[node=7] hello world", FormatWithContextTags(ctx, "hello %s", "world"))
	require.Equal(t, "plain", FormatWithContextTags(context.Background(), "plain"))
}

func TestEveryN(t *testing.T) {
	e := Every(time.Minute)
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	require.True(t, e.shouldLog(start))
	require.False(t, e.shouldLog(start.Add(time.Second)))

	prev := SetVerbosity(2)
	defer SetVerbosity(prev)
	require.True(t, e.shouldLog(start.Add(2*time.Second)))
}

func TestColorPrefix(t *testing.T) {
	buf := captureOutput(t)
	SetColor(true)
	defer SetColor(false)

	Warningf(context.Background(), "careful")
	require.Equal(t, "\033[0;33;49mW241018 09:30:00.123456\033[0m careful\n", buf.String())
}
