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

package semaphore

import (
	"fmt"
	"strings"
)

// Frequency is the idempotency scope of an action.
type Frequency string

const (
	// Always actions run on every invocation and never leave a marker.
	Always Frequency = "always"
	// PerInstance actions run once for each distinct instance id.
	PerInstance Frequency = "once-per-instance"
	// Once actions run once for the lifetime of the data directory.
	Once Frequency = "once"
)

// String returns the string representation of the Frequency.
func (f Frequency) String() string {
	return string(f)
}

// IsValid reports whether f is one of the known frequencies.
func (f Frequency) IsValid() bool {
	switch f {
	case Always, PerInstance, Once:
		return true
	default:
		return false
	}
}

// ParseFrequency converts configuration text into a Frequency. The short
// aliases used by the per-* script directories are accepted as well.
func ParseFrequency(s string) (Frequency, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "always", "per-boot", "per-always":
		return Always, nil
	case "once-per-instance", "per-instance", "instance":
		return PerInstance, nil
	case "once", "per-once", "once-ever":
		return Once, nil
	default:
		return "", fmt.Errorf("unknown frequency %q", s)
	}
}
