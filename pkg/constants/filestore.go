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

package constants

import "time"

const (
	// StorageDirName is the root directory of the local file store inside the data directory.
	StorageDirName = "storage"

	// AttachmentsDirName holds lesson attachments.
	AttachmentsDirName = "attachments"

	// ImagesDirName holds application assets and images.
	ImagesDirName = "images"

	// LocalFileScheme is the scheme of logical file URLs persisted in the database.
	LocalFileScheme = "local-file"

	// StorageDirPerm and StorageFilePerm are the permissions of created directories and files.
	StorageDirPerm  = 0o755
	StorageFilePerm = 0o644

	// UniqueNameAttempts bounds the number of salted retries when a generated
	// file name already exists.
	UniqueNameAttempts = 8

	// StorageSlowOpThreshold defines when a file store operation is logged as slow.
	StorageSlowOpThreshold = 50 * time.Millisecond
)
