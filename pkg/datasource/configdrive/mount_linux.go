// Copyright (c) 2025, NVIDIA CORPORATION.  All rights reserved.
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

//go:build linux

package configdrive

import (
	"fmt"

	"golang.org/x/sys/unix"
)

var driveFSTypes = []string{"vfat", "iso9660"}

type systemMounter struct{}

// Mount tries each known config drive filesystem type read-only.
func (systemMounter) Mount(device, target string) error {
	var lastErr error
	for _, fstype := range driveFSTypes {
		err := unix.Mount(device, target, fstype, unix.MS_RDONLY, "")
		if err == nil {
			return nil
		}
		lastErr = err
	}
	return fmt.Errorf("unable to mount %s on %s: %w", device, target, lastErr)
}

func (systemMounter) Unmount(target string) error {
	return unix.Unmount(target, 0)
}
