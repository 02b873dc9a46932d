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

package client

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/united-manufacturing-hub/htapp/pkg/persistence/codec"
	"github.com/united-manufacturing-hub/htapp/pkg/persistence/schema"
	"github.com/united-manufacturing-hub/htapp/pkg/safejson"
)

var null = []byte("null")

func encodeArgs(args []any) ([]any, error) {
	if len(args) == 0 {
		return []any{}, nil
	}

	return codec.EncodeParams(args)
}

func isNull(data json.RawMessage) bool {
	return len(data) == 0 || bytes.Equal(bytes.TrimSpace(data), null)
}

// decodeRows turns a boundary row list into rows with JSON text parsed and
// booleans restored per the table definition. def may be nil.
func decodeRows(def *schema.Table, data json.RawMessage) ([]Row, error) {
	if isNull(data) {
		return []Row{}, nil
	}

	var raw []map[string]any
	if err := safejson.UnmarshalNumbers(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode rows: %w", err)
	}

	rows := make([]Row, len(raw))
	for i, r := range raw {
		rows[i] = safejson.NormalizeMap(r)
	}

	return codec.DecodeRows(def, rows), nil
}

func decodeRow(def *schema.Table, data json.RawMessage) (Row, error) {
	if isNull(data) {
		return nil, nil
	}

	var raw map[string]any
	if err := safejson.UnmarshalNumbers(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode row: %w", err)
	}

	return codec.DecodeRow(def, safejson.NormalizeMap(raw)), nil
}

// Decode maps rows onto T through their JSON form.
func Decode[T any](rows []Row) ([]T, error) {
	out := make([]T, 0, len(rows))
	if len(rows) == 0 {
		return out, nil
	}

	encoded, err := safejson.Marshal(rows)
	if err != nil {
		return nil, err
	}

	if err := safejson.Unmarshal(encoded, &out); err != nil {
		return nil, fmt.Errorf("failed to decode rows as %T: %w", out, err)
	}

	return out, nil
}

// DecodeOne maps a row onto T. A nil row yields nil.
func DecodeOne[T any](row Row) (*T, error) {
	if row == nil {
		return nil, nil
	}

	encoded, err := safejson.Marshal(row)
	if err != nil {
		return nil, err
	}

	var out T
	if err := safejson.Unmarshal(encoded, &out); err != nil {
		return nil, fmt.Errorf("failed to decode row as %T: %w", out, err)
	}

	return &out, nil
}
