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

// Package safejson wraps goccy/go-json with a stdlib fallback and a number
// preserving decoder for untyped payloads.
package safejson

import (
	"bytes"
	jsonstd "encoding/json"
	"errors"
	"fmt"
	"math"
	"reflect"
	"strconv"

	"github.com/goccy/go-json"
	"go.uber.org/zap"
)

// Marshal encodes val with goccy and falls back to the stdlib encoder if goccy panics.
func Marshal(val any) (encoded []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			zap.S().Warnf("goccy failed to encode, attempting to use stdlib, error: %v", r)

			encoded, err = jsonstd.Marshal(val)
		}
	}()

	return json.Marshal(val)
}

// Unmarshal decodes into a typed destination.
func Unmarshal(data []byte, decoded any) (err error) {
	valuePtr := reflect.ValueOf(decoded)
	if !valuePtr.IsValid() || valuePtr.Kind() != reflect.Ptr || valuePtr.IsNil() {
		return errors.New("decoded must be a non-nil pointer")
	}

	defer func() {
		if r := recover(); r != nil {
			zap.S().Warnf("goccy failed to decode, attempting to use stdlib, error: %v", r)

			err = jsonstd.Unmarshal(data, decoded)
		}
	}()

	return json.Unmarshal(data, decoded)
}

// DecodeAny decodes an untyped JSON document. Integral numbers become int64
// and other numbers float64, so large ids and counters are not widened.
func DecodeAny(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var out any
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode json: %w", err)
	}

	return NormalizeNumbers(out), nil
}

// NormalizeNumbers walks v and replaces every json.Number with int64 or float64.
func NormalizeNumbers(v any) any {
	switch t := v.(type) {
	case json.Number:
		return normalizeNumber(string(t))
	case map[string]any:
		for k, item := range t {
			t[k] = NormalizeNumbers(item)
		}

		return t
	case []any:
		for i, item := range t {
			t[i] = NormalizeNumbers(item)
		}

		return t
	default:
		return v
	}
}

func normalizeNumber(s string) any {
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return s
	}

	if f == math.Trunc(f) && math.Abs(f) < 1<<53 {
		return int64(f)
	}

	return f
}
