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

package basic

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/shirou/gopsutil/v3/disk"
)

// IsNetworkFSType checks if a filesystem type name indicates a network
// filesystem, using case-insensitive substring matching since type names vary
// across platforms ("nfs4", "smbfs", "cifs", "webdav").
func IsNetworkFSType(fsType string) bool {
	networkTypes := []string{"nfs", "cifs", "smb", "webdav", "afp"}
	fsTypeLower := strings.ToLower(fsType)

	for _, nt := range networkTypes {
		if strings.Contains(fsTypeLower, nt) {
			return true
		}
	}

	return false
}

// IsNetworkFilesystem reports whether path lives on a network mount. The
// mount is the partition with the longest mount point that prefixes the
// path's directory.
func IsNetworkFilesystem(path string) (bool, string, error) {
	abs, err := filepath.Abs(filepath.Dir(path))
	if err != nil {
		return false, "", fmt.Errorf("failed to resolve %s: %w", path, err)
	}

	partitions, err := disk.Partitions(true)
	if err != nil {
		return false, "", fmt.Errorf("failed to list partitions: %w", err)
	}

	best := ""
	fsType := ""

	for _, p := range partitions {
		if !withinMount(abs, p.Mountpoint) || len(p.Mountpoint) < len(best) {
			continue
		}

		best = p.Mountpoint
		fsType = p.Fstype
	}

	if best == "" {
		return false, "", fmt.Errorf("no mount point found for %s", abs)
	}

	return IsNetworkFSType(fsType), fsType, nil
}

func withinMount(path, mountpoint string) bool {
	if mountpoint == "/" || path == mountpoint {
		return true
	}

	return strings.HasPrefix(path, strings.TrimSuffix(mountpoint, string(filepath.Separator))+string(filepath.Separator))
}
