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

package safejson

import (
	"bytes"
	"fmt"

	"github.com/goccy/go-json"
)

// Normalizer is implemented by payload types holding untyped values that
// must have their json.Number leaves converted after decoding.
type Normalizer interface {
	NormalizeNumbers()
}

// UnmarshalNumbers decodes into a typed destination, keeping untyped numbers
// as json.Number. When the destination implements Normalizer the numbers are
// converted to int64 or float64 afterwards.
func UnmarshalNumbers(data []byte, decoded any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	if err := dec.Decode(decoded); err != nil {
		return fmt.Errorf("failed to decode json: %w", err)
	}

	if n, ok := decoded.(Normalizer); ok {
		n.NormalizeNumbers()
	}

	return nil
}

// NormalizeMap converts the json.Number values of m in place and returns it.
func NormalizeMap(m map[string]any) map[string]any {
	for k, v := range m {
		m[k] = NormalizeNumbers(v)
	}

	return m
}

// NormalizeSlice converts the json.Number values of s in place and returns it.
func NormalizeSlice(s []any) []any {
	for i, v := range s {
		s[i] = NormalizeNumbers(v)
	}

	return s
}
