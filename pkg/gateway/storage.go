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
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/united-manufacturing-hub/htapp/pkg/filestore"
)

// SaveFile decodes base64 content and stores it under a unique name.
func (s *Service) SaveFile(ctx context.Context, bucket, fileName, base64Data, contentType string) Result {
	return s.run(ctx, "storage:saveFile", func(context.Context) (any, error) {
		data, err := base64.StdEncoding.DecodeString(base64Data)
		if err != nil {
			return nil, fmt.Errorf("invalid base64 content: %w", err)
		}

		return s.files.Save(bucket, fileName, data, contentType)
	})
}

// ReadFile yields the file content, or nil data when the file is absent.
func (s *Service) ReadFile(ctx context.Context, bucket, fileName string) Result {
	return s.run(ctx, "storage:readFile", func(context.Context) (any, error) {
		content, err := s.files.Read(bucket, fileName)
		if errors.Is(err, filestore.ErrFileNotFound) {
			return nil, nil
		}

		if err != nil {
			return nil, err
		}

		return content, nil
	})
}

// FileURL yields a file:// URL, or nil data when the file is absent.
func (s *Service) FileURL(ctx context.Context, bucket, fileName string) Result {
	return s.run(ctx, "storage:getFileUrl", func(context.Context) (any, error) {
		u, err := s.files.URL(bucket, fileName)
		if errors.Is(err, filestore.ErrFileNotFound) {
			return nil, nil
		}

		if err != nil {
			return nil, err
		}

		return u, nil
	})
}

// DeleteFile removes a file and yields true, also when it was already gone.
func (s *Service) DeleteFile(ctx context.Context, bucket, fileName string) Result {
	return s.run(ctx, "storage:deleteFile", func(context.Context) (any, error) {
		if err := s.files.Delete(bucket, fileName); err != nil {
			return nil, err
		}

		return true, nil
	})
}

// ListFiles yields the files of a bucket.
func (s *Service) ListFiles(ctx context.Context, bucket string) Result {
	return s.run(ctx, "storage:listFiles", func(context.Context) (any, error) {
		return s.files.List(bucket)
	})
}

// StorageInfo yields the storage paths. Capacity is left at zero when the
// volume cannot be queried.
func (s *Service) StorageInfo(ctx context.Context) Result {
	return s.run(ctx, "storage:getInfo", func(context.Context) (any, error) {
		info, err := s.files.Info()
		if err != nil {
			s.logger.Warnf("storage capacity unavailable: %v", err)
		}

		return info, nil
	})
}
