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

// Package filestore persists binary attachments under a storage root,
// addressed by a logical bucket and a file name.
package filestore

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/gabriel-vasile/mimetype"
	"github.com/shirou/gopsutil/v3/disk"
	"go.uber.org/zap"

	"github.com/united-manufacturing-hub/htapp/pkg/constants"
	"github.com/united-manufacturing-hub/htapp/pkg/logger"
	"github.com/united-manufacturing-hub/htapp/pkg/metrics"
)

var (
	// ErrFileNotFound is returned by Read and URL when the file does not exist.
	ErrFileNotFound = errors.New("file not found")
	// ErrInvalidName is returned for bucket or file names that would escape the bucket directory.
	ErrInvalidName = errors.New("invalid name")
)

// Well-known buckets. Any other valid name maps to its own directory.
const (
	BucketLessonAttachments = "lesson-attachments"
	BucketAttachments       = "attachments"
	BucketAppAssets         = "app-assets"
	BucketImages            = "images"
)

// SavedFile is the result of Save.
type SavedFile struct {
	URL         string `json:"path"`     // Logical URL, local-file://bucket/name
	FullPath    string `json:"fullPath"` // Absolute path on disk
	FileName    string `json:"fileName"` // Stored (unique) name
	ContentType string `json:"contentType"`
	Size        int    `json:"size"`
}

// FileContent is the result of Read.
type FileContent struct {
	Base64Data  string `json:"base64Data"`
	ContentType string `json:"contentType"`
	FileName    string `json:"fileName"`
	Size        int    `json:"size"`
}

// FileInfo describes one stored file.
type FileInfo struct {
	Name     string    `json:"name"`
	Size     int64     `json:"size"`
	Created  time.Time `json:"created"`
	Modified time.Time `json:"modified"`
}

// Info describes the storage layout and the free space of its volume.
type Info struct {
	BasePath        string `json:"basePath"`
	AttachmentsPath string `json:"attachmentsPath"`
	ImagesPath      string `json:"imagesPath"`
	TotalBytes      uint64 `json:"totalBytes"`
	FreeBytes       uint64 `json:"freeBytes"`
}

// Store is the local file store. It is safe for concurrent use.
type Store struct {
	base   string
	now    func() time.Time
	logger *zap.SugaredLogger
}

// New returns a store rooted at base. Call EnsureDirs before use.
func New(base string) (*Store, error) {
	abs, err := filepath.Abs(base)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve storage path: %w", err)
	}

	return &Store{
		base:   abs,
		now:    time.Now,
		logger: logger.For(logger.ComponentFileStore),
	}, nil
}

// EnsureDirs creates the storage root and the two well-known directories.
func (s *Store) EnsureDirs() error {
	for _, dir := range []string{s.base, s.attachmentsDir(), s.imagesDir()} {
		if err := os.MkdirAll(dir, constants.StorageDirPerm); err != nil {
			return fmt.Errorf("failed to create storage directory %s: %w", dir, err)
		}
	}

	return nil
}

func (s *Store) attachmentsDir() string {
	return filepath.Join(s.base, constants.AttachmentsDirName)
}

func (s *Store) imagesDir() string {
	return filepath.Join(s.base, constants.ImagesDirName)
}

// BucketDir resolves a bucket to its directory.
func (s *Store) BucketDir(bucket string) (string, error) {
	if err := validateName(bucket); err != nil {
		return "", fmt.Errorf("bucket: %w", err)
	}

	switch bucket {
	case BucketLessonAttachments, BucketAttachments:
		return s.attachmentsDir(), nil
	case BucketAppAssets, BucketImages:
		return s.imagesDir(), nil
	default:
		return filepath.Join(s.base, bucket), nil
	}
}

func (s *Store) filePath(bucket, fileName string) (string, error) {
	dir, err := s.BucketDir(bucket)
	if err != nil {
		return "", err
	}

	if err := validateName(fileName); err != nil {
		return "", fmt.Errorf("file name: %w", err)
	}

	return filepath.Join(dir, fileName), nil
}

func validateName(name string) error {
	if name == "" || name == "." || name == ".." {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}

	if strings.ContainsAny(name, `/\`) || strings.ContainsRune(name, 0) {
		return fmt.Errorf("%w: %q must not contain path separators", ErrInvalidName, name)
	}

	return nil
}

// Save writes data under a unique name derived from fileName. An existing
// file is never overwritten. An empty contentType is detected from the content.
func (s *Store) Save(bucket, fileName string, data []byte, contentType string) (SavedFile, error) {
	dir, err := s.BucketDir(bucket)
	if err != nil {
		return SavedFile{}, err
	}

	if err := validateName(fileName); err != nil {
		return SavedFile{}, fmt.Errorf("file name: %w", err)
	}

	if err := os.MkdirAll(dir, constants.StorageDirPerm); err != nil {
		return SavedFile{}, fmt.Errorf("failed to create bucket directory: %w", err)
	}

	start := time.Now()
	ext := filepath.Ext(fileName)
	baseName := strings.TrimSuffix(fileName, ext)
	stamp := strconv.FormatInt(s.now().UnixNano(), 10)

	for attempt := 0; attempt < constants.UniqueNameAttempts; attempt++ {
		unique := UniqueName(baseName, ext, stamp, attempt)
		path := filepath.Join(dir, unique)

		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, constants.StorageFilePerm)
		if errors.Is(err, fs.ErrExist) {
			continue
		}

		if err != nil {
			return SavedFile{}, fmt.Errorf("failed to create file: %w", err)
		}

		if _, err := f.Write(data); err != nil {
			_ = f.Close()
			_ = os.Remove(path)

			return SavedFile{}, fmt.Errorf("failed to write file: %w", err)
		}

		if err := f.Close(); err != nil {
			_ = os.Remove(path)

			return SavedFile{}, fmt.Errorf("failed to close file: %w", err)
		}

		if contentType == "" {
			contentType = mimetype.Detect(data).String()
		}

		metrics.AddFileStoreBytes("write", bucket, len(data))
		s.logger.Debugf("saved %s/%s (%d bytes)", bucket, unique, len(data))

		if elapsed := time.Since(start); elapsed > constants.StorageSlowOpThreshold {
			s.logger.Warnf("slow write of %s/%s took %s", bucket, unique, elapsed)
		}

		return SavedFile{
			URL:         FormatURL(bucket, unique),
			FullPath:    path,
			FileName:    unique,
			ContentType: contentType,
			Size:        len(data),
		}, nil
	}

	err = fmt.Errorf("failed to find a free name for %s after %d attempts", fileName, constants.UniqueNameAttempts)
	metrics.IncErrorCountAndLog(metrics.ComponentFileStore, "save", err, s.logger)

	return SavedFile{}, err
}

// UniqueName builds `<base>_<8 hex><ext>` from a hash of the stamp, the
// original name and the attempt number.
func UniqueName(baseName, ext, stamp string, attempt int) string {
	seed := stamp + baseName + ext
	if attempt > 0 {
		seed += "#" + strconv.Itoa(attempt)
	}

	return fmt.Sprintf("%s_%08x%s", baseName, uint32(xxhash.Sum64String(seed)), ext)
}

// Read returns the content of a file as base64 together with a content
// type inferred from the extension.
func (s *Store) Read(bucket, fileName string) (FileContent, error) {
	path, err := s.filePath(bucket, fileName)
	if err != nil {
		return FileContent{}, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return FileContent{}, ErrFileNotFound
		}

		return FileContent{}, fmt.Errorf("failed to read file: %w", err)
	}

	metrics.AddFileStoreBytes("read", bucket, len(data))

	return FileContent{
		Base64Data:  base64.StdEncoding.EncodeToString(data),
		ContentType: ContentTypeFor(fileName),
		FileName:    fileName,
		Size:        len(data),
	}, nil
}

// URL returns a file:// URL for the file.
func (s *Store) URL(bucket, fileName string) (string, error) {
	path, err := s.filePath(bucket, fileName)
	if err != nil {
		return "", err
	}

	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", ErrFileNotFound
		}

		return "", fmt.Errorf("failed to stat file: %w", err)
	}

	u := url.URL{Scheme: "file", Path: filepath.ToSlash(path)}
	if !strings.HasPrefix(u.Path, "/") {
		u.Path = "/" + u.Path
	}

	return u.String(), nil
}

// Delete removes a file. A missing file is not an error.
func (s *Store) Delete(bucket, fileName string) error {
	path, err := s.filePath(bucket, fileName)
	if err != nil {
		return err
	}

	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete file: %w", err)
	}

	s.logger.Debugf("deleted %s/%s", bucket, fileName)

	return nil
}

// List describes every regular file in a bucket, sorted by name. A missing
// bucket directory yields an empty list.
func (s *Store) List(bucket string) ([]FileInfo, error) {
	dir, err := s.BucketDir(bucket)
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []FileInfo{}, nil
		}

		return nil, fmt.Errorf("failed to list bucket: %w", err)
	}

	files := make([]FileInfo, 0, len(entries))

	for _, e := range entries {
		if e.IsDir() {
			continue
		}

		info, err := e.Info()
		if err != nil {
			// Removed between ReadDir and Info.
			continue
		}

		files = append(files, FileInfo{
			Name:     e.Name(),
			Size:     info.Size(),
			Created:  createdTime(info),
			Modified: info.ModTime(),
		})
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })

	return files, nil
}

// Info reports the storage paths and the capacity of the volume holding them.
func (s *Store) Info() (Info, error) {
	info := Info{
		BasePath:        s.base,
		AttachmentsPath: s.attachmentsDir(),
		ImagesPath:      s.imagesDir(),
	}

	usage, err := disk.Usage(s.base)
	if err != nil {
		return info, fmt.Errorf("failed to read disk usage: %w", err)
	}

	info.TotalBytes = usage.Total
	info.FreeBytes = usage.Free

	return info, nil
}

// FormatURL builds the logical URL stored in database rows.
func FormatURL(bucket, fileName string) string {
	return constants.LocalFileScheme + "://" + bucket + "/" + fileName
}

// ParseURL splits a logical URL into bucket and file name.
func ParseURL(raw string) (bucket, fileName string, ok bool) {
	rest, found := strings.CutPrefix(raw, constants.LocalFileScheme+"://")
	if !found {
		return "", "", false
	}

	bucket, fileName, found = strings.Cut(rest, "/")
	if !found || bucket == "" || fileName == "" {
		return "", "", false
	}

	return bucket, fileName, true
}
