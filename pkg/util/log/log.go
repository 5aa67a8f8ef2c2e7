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

// Package log is a small leveled logger. Entries carry the logging tags of
// the context they are logged with, and arguments are formatted with
// redaction markers so that unsafe values can be stripped before logs leave
// the process.
package log

import (
	"context"
	"io"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/redact"
)

// Severity is the severity of a log entry.
type Severity int32

const (
	INFO Severity = iota
	WARNING
	ERROR
)

func (s Severity) String() string {
	switch s {
	case INFO:
		return "INFO"
	case WARNING:
		return "WARNING"
	case ERROR:
		return "ERROR"
	}
	return "UNKNOWN"
}

// letter is the one-character severity prefix of an entry.
func (s Severity) letter() byte {
	return s.String()[0]
}

// Level is a verbosity level. Messages logged at a level are emitted when
// the configured verbosity is at least that level.
type Level int32

type loggerT struct {
	verbosity  atomic.Int32
	redactable atomic.Bool

	mu struct {
		sync.Mutex
		out   io.Writer
		color *colorProfile
		now   func() time.Time
	}
}

var logging = func() *loggerT {
	l := &loggerT{}
	l.mu.out = os.Stderr
	l.mu.now = time.Now
	return l
}()

// SetOutput redirects log output to w and returns a function restoring the
// previous output.
func SetOutput(w io.Writer) (restore func()) {
	logging.mu.Lock()
	defer logging.mu.Unlock()
	prev := logging.mu.out
	logging.mu.out = w
	return func() {
		logging.mu.Lock()
		defer logging.mu.Unlock()
		logging.mu.out = prev
	}
}

// SetVerbosity sets the verbosity level and returns the previous one.
func SetVerbosity(level Level) Level {
	return Level(logging.verbosity.Swap(int32(level)))
}

// SetRedactable controls whether entries keep their redaction markers.
// When false, markers are stripped and all values are printed verbatim.
func SetRedactable(redactable bool) {
	logging.redactable.Store(redactable)
}

// SetColor enables or disables colored severity prefixes.
func SetColor(enabled bool) {
	logging.mu.Lock()
	defer logging.mu.Unlock()
	if enabled {
		logging.mu.color = colorProfile8
	} else {
		logging.mu.color = nil
	}
}

// V returns true if the logging verbosity is set to the specified level or
// higher.
func V(level Level) bool {
	return logging.verbosity.Load() >= int32(level)
}

// Infof logs to the INFO severity.
func Infof(ctx context.Context, format string, args ...interface{}) {
	logging.output(ctx, INFO, format, args)
}

// Warningf logs to the WARNING severity.
func Warningf(ctx context.Context, format string, args ...interface{}) {
	logging.output(ctx, WARNING, format, args)
}

// Errorf logs to the ERROR severity.
func Errorf(ctx context.Context, format string, args ...interface{}) {
	logging.output(ctx, ERROR, format, args)
}

// VEventf logs an INFO entry if the verbosity is at least level.
func VEventf(ctx context.Context, level Level, format string, args ...interface{}) {
	if V(level) {
		logging.output(ctx, INFO, format, args)
	}
}

// FormatWithContextTags formats the string and prepends the context
// tags.
//
// Redaction markers are *not* inserted. The resulting
// string is generally unsafe for reporting.
func FormatWithContextTags(ctx context.Context, format string, args ...interface{}) string {
	var buf strings.Builder
	formatTags(ctx, &buf)
	buf.WriteString(redact.Sprintf(format, args...).StripMarkers())
	return buf.String()
}

func (l *loggerT) output(ctx context.Context, sev Severity, format string, args []interface{}) {
	msg := redact.Sprintf(format, args...)
	var body string
	if l.redactable.Load() {
		body = string(msg)
	} else {
		body = msg.StripMarkers()
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	var buf strings.Builder
	if l.mu.color != nil {
		buf.Write(l.mu.color.prefix(sev))
	}
	buf.WriteByte(sev.letter())
	buf.WriteString(l.mu.now().UTC().Format("060102 15:04:05.000000"))
	if l.mu.color != nil {
		buf.Write(colorReset)
	}
	buf.WriteByte(' ')
	formatTags(ctx, &buf)
	buf.WriteString(strings.TrimSuffix(body, "\n"))
	buf.WriteByte('\n')
	// Logging never fails the caller.
	_, _ = io.WriteString(l.mu.out, buf.String())
}
