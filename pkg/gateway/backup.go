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
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
)

// Backup writes a consistent, zstd-compressed snapshot of the database to w.
func (s *Service) Backup(ctx context.Context, w io.Writer) error {
	if !s.serving() {
		return fmt.Errorf("gateway is not serving (state=%s)", s.State())
	}

	dir, err := os.MkdirTemp("", "htapp-backup-")
	if err != nil {
		return fmt.Errorf("failed to create backup directory: %w", err)
	}
	defer os.RemoveAll(dir)

	snapshot := filepath.Join(dir, "snapshot.db")
	if err := s.store.Backup(ctx, snapshot); err != nil {
		return err
	}

	f, err := os.Open(snapshot)
	if err != nil {
		return fmt.Errorf("failed to open snapshot: %w", err)
	}
	defer f.Close()

	enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return fmt.Errorf("failed to create encoder: %w", err)
	}

	if _, err := io.Copy(enc, f); err != nil {
		return errors.Join(fmt.Errorf("failed to write backup: %w", err), enc.Close())
	}

	return enc.Close()
}

// Restore decompresses a backup produced by Backup into path. The gateway
// must not have path open.
func Restore(r io.Reader, path string) error {
	dec, err := zstd.NewReader(r)
	if err != nil {
		return fmt.Errorf("failed to create decoder: %w", err)
	}
	defer dec.Close()

	tmp := path + ".restore"

	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("failed to create restore file: %w", err)
	}

	if _, err := io.Copy(f, dec); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)

		return fmt.Errorf("failed to decompress backup: %w", err)
	}

	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)

		return err
	}

	// A leftover write-ahead log belongs to the replaced database.
	for _, suffix := range []string{"-wal", "-shm"} {
		if err := os.Remove(path + suffix); err != nil && !errors.Is(err, fs.ErrNotExist) {
			_ = os.Remove(tmp)

			return fmt.Errorf("failed to remove %s: %w", path+suffix, err)
		}
	}

	return os.Rename(tmp, path)
}
