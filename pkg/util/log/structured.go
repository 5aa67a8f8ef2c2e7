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
	"context"
	"strings"

	"github.com/cockroachdb/logtags"
)

// WithTag returns a context carrying an additional logging tag. A nil value
// produces a tag without a value.
func WithTag(ctx context.Context, key string, value interface{}) context.Context {
	return logtags.AddTag(ctx, key, value)
}

// formatTags writes the logging tags of the context, in brackets followed by
// a space. Nothing is written if the context has no tags.
func formatTags(ctx context.Context, buf *strings.Builder) {
	tags := logtags.FromContext(ctx)
	if tags == nil {
		return
	}
	list := tags.Get()
	if len(list) == 0 {
		return
	}
	buf.WriteByte('[')
	for i, t := range list {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteString(t.Key())
		if v := t.Value(); v != nil {
			if len(t.Key()) > 1 {
				buf.WriteByte('=')
			}
			buf.WriteString(t.ValueStr())
		}
	}
	buf.WriteString("] ")
}
