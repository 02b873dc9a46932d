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

package ipc

import "github.com/united-manufacturing-hub/htapp/pkg/safejson"

// StatementPayload is carried by db:query and db:get.
type StatementPayload struct {
	SQL    string `json:"sql"`
	Params []any  `json:"params"`
}

func (p *StatementPayload) NormalizeNumbers() {
	p.Params = safejson.NormalizeSlice(p.Params)
}

// InsertPayload is carried by db:insert.
type InsertPayload struct {
	Table string         `json:"table"`
	Data  map[string]any `json:"data"`
}

func (p *InsertPayload) NormalizeNumbers() {
	p.Data = safejson.NormalizeMap(p.Data)
}

// UpdatePayload is carried by db:update.
type UpdatePayload struct {
	Table string         `json:"table"`
	Data  map[string]any `json:"data"`
	Where map[string]any `json:"where"`
}

func (p *UpdatePayload) NormalizeNumbers() {
	p.Data = safejson.NormalizeMap(p.Data)
	p.Where = safejson.NormalizeMap(p.Where)
}

// DeletePayload is carried by db:delete.
type DeletePayload struct {
	Table string         `json:"table"`
	Where map[string]any `json:"where"`
}

func (p *DeletePayload) NormalizeNumbers() {
	p.Where = safejson.NormalizeMap(p.Where)
}

// SaveFilePayload is carried by storage:saveFile.
type SaveFilePayload struct {
	Bucket      string `json:"bucket"`
	FileName    string `json:"fileName"`
	Base64Data  string `json:"base64Data"`
	ContentType string `json:"contentType"`
}

// FilePayload is carried by storage:readFile, storage:getFileUrl and storage:deleteFile.
type FilePayload struct {
	Bucket   string `json:"bucket"`
	FileName string `json:"fileName"`
}

// BucketPayload is carried by storage:listFiles.
type BucketPayload struct {
	Bucket string `json:"bucket"`
}
