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

package props

import (
	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/redact"
)

// TableColumnStatistics are the statistics a connector reports for one
// column of a table. Min and Max are native values of the column type; see
// types.StatsRepresentation for the accepted representations.
type TableColumnStatistics struct {
	NullsFraction       Estimate
	DistinctValuesCount Estimate
	// DataSize is the total size in bytes of the non-null values.
	DataSize Estimate
	Min      interface{}
	Max      interface{}
}

// TableStatistics are the statistics a connector reports for a table,
// keyed by column name.
type TableStatistics struct {
	RowCount Estimate
	Columns  map[string]TableColumnStatistics
}

// EmptyTableStatistics returns statistics with nothing known.
func EmptyTableStatistics() TableStatistics {
	return TableStatistics{}
}

// Validate checks that the reported values are in range.
func (t *TableStatistics) Validate() error {
	if !t.RowCount.IsUnknown() && t.RowCount.Value() < 0 {
		return errors.Newf("row count must be greater than or equal to zero: %s", t.RowCount)
	}
	for name, c := range t.Columns {
		if nf := c.NullsFraction; !nf.IsUnknown() && (nf.Value() < 0 || nf.Value() > 1) {
			return errors.Newf("column %s: nulls fraction must be in [0, 1]: %s", redact.Safe(name), nf)
		}
		if d := c.DistinctValuesCount; !d.IsUnknown() && d.Value() < 0 {
			return errors.Newf("column %s: distinct values count must be non-negative: %s", redact.Safe(name), d)
		}
		if sz := c.DataSize; !sz.IsUnknown() && sz.Value() < 0 {
			return errors.Newf("column %s: data size must be non-negative: %s", redact.Safe(name), sz)
		}
	}
	return nil
}
