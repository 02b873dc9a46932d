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
	"context"
	"encoding/base64"
	"errors"
	"strings"

	"github.com/united-manufacturing-hub/htapp/pkg/filestore"
	"github.com/united-manufacturing-hub/htapp/pkg/ipc"
	"github.com/united-manufacturing-hub/htapp/pkg/safejson"
)

// ErrInvalidURL is returned by DeleteURL for anything but a local-file URL.
var ErrInvalidURL = errors.New("invalid URL format")

// Upload is the result of storing a file.
type Upload struct {
	Path     string `json:"path"`
	URL      string `json:"url"`
	FileName string `json:"fileName"`
}

// Storage is the file storage facade. Names may also be given as logical
// local-file:// URLs, which override the bucket argument.
type Storage struct {
	bridge *ipc.Bridge
}

func call[T any](resp ipc.Response) (T, error) {
	var out T
	if resp.Failed() {
		return out, errors.New(resp.ErrorMessage())
	}

	if isNull(resp.Data) {
		return out, nil
	}

	if err := safejson.Unmarshal(resp.Data, &out); err != nil {
		return out, err
	}

	return out, nil
}

func locate(bucket, name string) (string, string) {
	if b, n, ok := filestore.ParseURL(name); ok {
		return b, n
	}

	return bucket, name
}

// Upload stores data under a unique name derived from fileName.
func (s *Storage) Upload(ctx context.Context, bucket, fileName string, data []byte, contentType string) (Upload, error) {
	return s.UploadBase64(ctx, bucket, fileName, base64.StdEncoding.EncodeToString(data), contentType)
}

// UploadBase64 stores already encoded content. A data URL prefix such as
// "data:image/png;base64," is stripped.
func (s *Storage) UploadBase64(ctx context.Context, bucket, fileName, base64Data, contentType string) (Upload, error) {
	if strings.HasPrefix(base64Data, "data:") {
		if _, rest, ok := strings.Cut(base64Data, ","); ok {
			base64Data = rest
		}
	}

	saved, err := call[filestore.SavedFile](s.bridge.SaveFile(ctx, bucket, fileName, base64Data, contentType))
	if err != nil {
		return Upload{}, err
	}

	return Upload{Path: saved.URL, URL: saved.URL, FileName: saved.FileName}, nil
}

// URL returns an openable file:// URL, or "" when the file does not exist.
func (s *Storage) URL(ctx context.Context, bucket, name string) (string, error) {
	bucket, name = locate(bucket, name)

	return call[string](s.bridge.FileURL(ctx, bucket, name))
}

// Read returns the file content, or nil when the file does not exist.
func (s *Storage) Read(ctx context.Context, bucket, name string) (*filestore.FileContent, error) {
	bucket, name = locate(bucket, name)

	return call[*filestore.FileContent](s.bridge.ReadFile(ctx, bucket, name))
}

// Delete removes a file. Deleting a missing file succeeds.
func (s *Storage) Delete(ctx context.Context, bucket, name string) error {
	bucket, name = locate(bucket, name)
	_, err := call[bool](s.bridge.DeleteFile(ctx, bucket, name))

	return err
}

// DeleteURL removes the file behind a logical URL.
func (s *Storage) DeleteURL(ctx context.Context, url string) error {
	bucket, name, ok := filestore.ParseURL(url)
	if !ok {
		return ErrInvalidURL
	}

	return s.Delete(ctx, bucket, name)
}

// List describes the files of a bucket.
func (s *Storage) List(ctx context.Context, bucket string) ([]filestore.FileInfo, error) {
	files, err := call[[]filestore.FileInfo](s.bridge.ListFiles(ctx, bucket))
	if files == nil && err == nil {
		files = []filestore.FileInfo{}
	}

	return files, err
}

// Info reports the storage paths and free space.
func (s *Storage) Info(ctx context.Context) (filestore.Info, error) {
	return call[filestore.Info](s.bridge.StorageInfo(ctx))
}

// ResolveURL turns a stored URL into something a viewer can open. file://
// URLs and foreign URLs are returned unchanged; a local-file URL becomes
// its file:// URL, or stays as is when the file is gone.
func (s *Storage) ResolveURL(ctx context.Context, raw string) string {
	if raw == "" || strings.HasPrefix(raw, "file://") {
		return raw
	}

	bucket, name, ok := filestore.ParseURL(raw)
	if !ok {
		return raw
	}

	u, err := s.URL(ctx, bucket, name)
	if err != nil || u == "" {
		return raw
	}

	return u
}
