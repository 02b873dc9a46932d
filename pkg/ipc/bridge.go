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

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// Bridge exposes one typed call per channel. Calls always resolve: a
// transport failure becomes an error response.
type Bridge struct {
	transport Transport
}

// NewBridge returns a bridge over t.
func NewBridge(t Transport) *Bridge {
	return &Bridge{transport: t}
}

// Call sends payload on channel and returns the response.
func (b *Bridge) Call(ctx context.Context, channel Channel, payload any) Response {
	id := uuid.NewString()

	if !channel.Valid() {
		return ErrorResponse(id, fmt.Sprintf("unknown channel %q", channel))
	}

	req, err := NewRequest(id, channel, payload)
	if err != nil {
		return ErrorResponse(id, err.Error())
	}

	resp, err := b.transport.RoundTrip(ctx, req)
	if err != nil {
		return ErrorResponse(id, err.Error())
	}

	return resp
}

func (b *Bridge) Query(ctx context.Context, sql string, params []any) Response {
	return b.Call(ctx, ChannelQuery, StatementPayload{SQL: sql, Params: params})
}

func (b *Bridge) Get(ctx context.Context, sql string, params []any) Response {
	return b.Call(ctx, ChannelGet, StatementPayload{SQL: sql, Params: params})
}

func (b *Bridge) Insert(ctx context.Context, table string, data map[string]any) Response {
	return b.Call(ctx, ChannelInsert, InsertPayload{Table: table, Data: data})
}

func (b *Bridge) Update(ctx context.Context, table string, data, where map[string]any) Response {
	return b.Call(ctx, ChannelUpdate, UpdatePayload{Table: table, Data: data, Where: where})
}

func (b *Bridge) Delete(ctx context.Context, table string, where map[string]any) Response {
	return b.Call(ctx, ChannelDelete, DeletePayload{Table: table, Where: where})
}

func (b *Bridge) SaveFile(ctx context.Context, bucket, fileName, base64Data, contentType string) Response {
	return b.Call(ctx, ChannelSaveFile, SaveFilePayload{
		Bucket:      bucket,
		FileName:    fileName,
		Base64Data:  base64Data,
		ContentType: contentType,
	})
}

func (b *Bridge) ReadFile(ctx context.Context, bucket, fileName string) Response {
	return b.Call(ctx, ChannelReadFile, FilePayload{Bucket: bucket, FileName: fileName})
}

func (b *Bridge) FileURL(ctx context.Context, bucket, fileName string) Response {
	return b.Call(ctx, ChannelGetFileURL, FilePayload{Bucket: bucket, FileName: fileName})
}

func (b *Bridge) DeleteFile(ctx context.Context, bucket, fileName string) Response {
	return b.Call(ctx, ChannelDeleteFile, FilePayload{Bucket: bucket, FileName: fileName})
}

func (b *Bridge) ListFiles(ctx context.Context, bucket string) Response {
	return b.Call(ctx, ChannelListFiles, BucketPayload{Bucket: bucket})
}

func (b *Bridge) StorageInfo(ctx context.Context) Response {
	return b.Call(ctx, ChannelStorageInfo, struct{}{})
}
