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

// Package ipc defines the message-passing boundary between the UI side and
// the access gateway: named channels, JSON request/response envelopes and
// the transports that carry them.
package ipc

import (
	"encoding/json"
	"fmt"

	"github.com/united-manufacturing-hub/htapp/pkg/safejson"
)

// Channel names a request type.
type Channel string

const (
	ChannelQuery  Channel = "db:query"
	ChannelGet    Channel = "db:get"
	ChannelInsert Channel = "db:insert"
	ChannelUpdate Channel = "db:update"
	ChannelDelete Channel = "db:delete"

	ChannelSaveFile    Channel = "storage:saveFile"
	ChannelReadFile    Channel = "storage:readFile"
	ChannelGetFileURL  Channel = "storage:getFileUrl"
	ChannelDeleteFile  Channel = "storage:deleteFile"
	ChannelListFiles   Channel = "storage:listFiles"
	ChannelStorageInfo Channel = "storage:getInfo"
)

// Channels lists every channel the gateway serves.
var Channels = []Channel{
	ChannelQuery, ChannelGet, ChannelInsert, ChannelUpdate, ChannelDelete,
	ChannelSaveFile, ChannelReadFile, ChannelGetFileURL, ChannelDeleteFile, ChannelListFiles, ChannelStorageInfo,
}

// Valid reports whether c is a known channel.
func (c Channel) Valid() bool {
	for _, known := range Channels {
		if c == known {
			return true
		}
	}

	return false
}

// Request is one message from the UI side. Payload is plain JSON.
type Request struct {
	ID      string          `json:"id"`
	Channel Channel         `json:"channel"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Response answers a Request. Exactly one of Data or Error is meaningful:
// a nil Error means success, in which case Data may still be JSON null.
type Response struct {
	ID    string          `json:"id"`
	Data  json.RawMessage `json:"data"`
	Error *string         `json:"error"`
}

// NewRequest marshals payload into a request.
func NewRequest(id string, channel Channel, payload any) (Request, error) {
	raw, err := safejson.Marshal(payload)
	if err != nil {
		return Request{}, fmt.Errorf("failed to encode %s payload: %w", channel, err)
	}

	return Request{ID: id, Channel: channel, Payload: raw}, nil
}

// ErrorResponse builds a failed response. An empty message is replaced so
// the error string is never empty.
func ErrorResponse(id string, msg string) Response {
	if msg == "" {
		msg = "unknown error"
	}

	return Response{ID: id, Data: json.RawMessage("null"), Error: &msg}
}

// DataResponse builds a successful response.
func DataResponse(id string, data any) Response {
	raw, err := safejson.Marshal(data)
	if err != nil {
		return ErrorResponse(id, fmt.Sprintf("failed to encode response: %v", err))
	}

	return Response{ID: id, Data: raw}
}

// Failed reports whether the response carries an error.
func (r Response) Failed() bool {
	return r.Error != nil
}

// ErrorMessage returns the error string or "".
func (r Response) ErrorMessage() string {
	if r.Error == nil {
		return ""
	}

	return *r.Error
}
