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

package gateway

import (
	"context"
	"fmt"

	"github.com/united-manufacturing-hub/htapp/pkg/ipc"
	"github.com/united-manufacturing-hub/htapp/pkg/safejson"
)

// Handle answers one boundary request.
func (s *Service) Handle(ctx context.Context, req ipc.Request) ipc.Response {
	res := s.dispatch(ctx, req)
	if res.Failed() {
		return ipc.ErrorResponse(req.ID, *res.Error)
	}

	return ipc.DataResponse(req.ID, res.Data)
}

func (s *Service) dispatch(ctx context.Context, req ipc.Request) Result {
	switch req.Channel {
	case ipc.ChannelQuery, ipc.ChannelGet:
		var p ipc.StatementPayload
		if err := decodePayload(req, &p); err != nil {
			return failure(err)
		}

		if req.Channel == ipc.ChannelGet {
			return s.Get(ctx, p.SQL, p.Params)
		}

		return s.Query(ctx, p.SQL, p.Params)
	case ipc.ChannelInsert:
		var p ipc.InsertPayload
		if err := decodePayload(req, &p); err != nil {
			return failure(err)
		}

		return s.Insert(ctx, p.Table, p.Data)
	case ipc.ChannelUpdate:
		var p ipc.UpdatePayload
		if err := decodePayload(req, &p); err != nil {
			return failure(err)
		}

		return s.Update(ctx, p.Table, p.Data, p.Where)
	case ipc.ChannelDelete:
		var p ipc.DeletePayload
		if err := decodePayload(req, &p); err != nil {
			return failure(err)
		}

		return s.Delete(ctx, p.Table, p.Where)
	case ipc.ChannelSaveFile:
		var p ipc.SaveFilePayload
		if err := decodePayload(req, &p); err != nil {
			return failure(err)
		}

		return s.SaveFile(ctx, p.Bucket, p.FileName, p.Base64Data, p.ContentType)
	case ipc.ChannelReadFile, ipc.ChannelGetFileURL, ipc.ChannelDeleteFile:
		var p ipc.FilePayload
		if err := decodePayload(req, &p); err != nil {
			return failure(err)
		}

		switch req.Channel {
		case ipc.ChannelReadFile:
			return s.ReadFile(ctx, p.Bucket, p.FileName)
		case ipc.ChannelGetFileURL:
			return s.FileURL(ctx, p.Bucket, p.FileName)
		default:
			return s.DeleteFile(ctx, p.Bucket, p.FileName)
		}
	case ipc.ChannelListFiles:
		var p ipc.BucketPayload
		if err := decodePayload(req, &p); err != nil {
			return failure(err)
		}

		return s.ListFiles(ctx, p.Bucket)
	case ipc.ChannelStorageInfo:
		return s.StorageInfo(ctx)
	default:
		return failure(fmt.Errorf("unknown channel %q", req.Channel))
	}
}

func decodePayload(req ipc.Request, v any) error {
	if len(req.Payload) == 0 {
		return fmt.Errorf("%s: missing payload", req.Channel)
	}

	if err := safejson.UnmarshalNumbers(req.Payload, v); err != nil {
		return fmt.Errorf("%s: %w", req.Channel, err)
	}

	return nil
}
