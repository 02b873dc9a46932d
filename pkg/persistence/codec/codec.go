// Copyright 2025 UMH Systems GmbH
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package codec converts between the values callers work with (booleans,
// times, slices, maps, structs) and the primitive column values the store
// accepts, in both directions.
package codec

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/united-manufacturing-hub/htapp/pkg/persistence/basic"
	"github.com/united-manufacturing-hub/htapp/pkg/persistence/schema"
	"github.com/united-manufacturing-hub/htapp/pkg/safejson"
)

// TimeLayout is the ISO-8601 layout used for time values written to the store.
const TimeLayout = "2006-01-02T15:04:05.000Z"

// EncodeValue converts a value for binding into a statement: nil stays nil,
// booleans become 1 or 0, times become ISO-8601 UTC text, and slices, arrays,
// maps and structs become JSON text. []byte and everything else pass through.
func EncodeValue(v any) (any, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case bool:
		if t {
			return int64(1), nil
		}

		return int64(0), nil
	case time.Time:
		return t.UTC().Format(TimeLayout), nil
	case *time.Time:
		if t == nil {
			return nil, nil
		}

		return t.UTC().Format(TimeLayout), nil
	case []byte, string, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return v, nil
	}

	rv := reflect.ValueOf(v)

	if rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return nil, nil
		}

		return EncodeValue(rv.Elem().Interface())
	}

	switch rv.Kind() {
	case reflect.Slice, reflect.Array, reflect.Map, reflect.Struct:
		if rv.Kind() == reflect.Slice && rv.IsNil() {
			return "[]", nil
		}

		encoded, err := safejson.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("failed to encode %T as json: %w", v, err)
		}

		return string(encoded), nil
	case reflect.Bool:
		return EncodeValue(rv.Bool())
	case reflect.String:
		return rv.String(), nil
	default:
		return v, nil
	}
}

// EncodeMap encodes every value of a column map. The input is not modified.
func EncodeMap(m map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(m))

	for k, v := range m {
		encoded, err := EncodeValue(v)
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", k, err)
		}

		out[k] = encoded
	}

	return out, nil
}

// EncodeParams encodes positional statement parameters.
func EncodeParams(params []any) ([]any, error) {
	out := make([]any, len(params))

	for i, p := range params {
		encoded, err := EncodeValue(p)
		if err != nil {
			return nil, fmt.Errorf("parameter %d: %w", i+1, err)
		}

		out[i] = encoded
	}

	return out, nil
}

// IsBooleanName reports whether a column name follows the boolean naming
// convention: completed, is_*, can_* or *_enabled.
func IsBooleanName(column string) bool {
	return column == "completed" ||
		strings.HasPrefix(column, "is_") ||
		strings.HasPrefix(column, "can_") ||
		strings.HasSuffix(column, "_enabled")
}

// DecodeRow returns a copy of row with JSON columns parsed and boolean
// columns coerced. table may be nil for ad-hoc tables, in which case only the
// naming convention applies. Unparsable JSON is left as the raw string.
func DecodeRow(table *schema.Table, row basic.Row) basic.Row {
	if row == nil {
		return nil
	}

	out := make(basic.Row, len(row))

	for col, v := range row {
		out[col] = decodeValue(table, col, v)
	}

	return out
}

// DecodeRows applies DecodeRow to every row.
func DecodeRows(table *schema.Table, rows []basic.Row) []basic.Row {
	out := make([]basic.Row, len(rows))

	for i, r := range rows {
		out[i] = DecodeRow(table, r)
	}

	return out
}

func decodeValue(table *schema.Table, col string, v any) any {
	encoding := schema.Primitive
	if table != nil {
		encoding = table.EncodingOf(col)
	}

	switch {
	case encoding == schema.JSONText:
		s, ok := v.(string)
		if !ok {
			return v
		}

		parsed, err := safejson.DecodeAny([]byte(s))
		if err != nil {
			return v
		}

		return parsed
	case encoding == schema.BoolInt || IsBooleanName(col):
		if n, ok := v.(int64); ok && (n == 0 || n == 1) {
			return n == 1
		}

		return v
	default:
		return v
	}
}
