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

package configdrive

import (
	"bytes"
	"context"
	"os/exec"
	"strings"
)

// blkidVFAT lists devices whose filesystem type is vfat.
func blkidVFAT(ctx context.Context) ([]string, error) {
	var out bytes.Buffer
	cmd := exec.CommandContext(ctx, "blkid", "-t", "TYPE=vfat", "-o", "device")
	cmd.Stdout = &out
	if err := cmd.Run(); err != nil {
		// blkid exits 2 when nothing matches
		if ee, ok := err.(*exec.ExitError); ok && ee.ExitCode() == 2 {
			return nil, nil
		}
		return nil, err
	}
	return strings.Fields(out.String()), nil
}
