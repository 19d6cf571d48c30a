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

// Package defaults provides centralized configuration constants for condense.
//
// This package defines filesystem locations, file modes, timeout values and
// retry parameters used across the codebase. Centralizing these values
// ensures consistency and makes tuning easier.
//
// # Timeout Categories
//
// Timeouts are organized by component:
//
//   - Probe timeouts: For data source discovery (blkid scans, whole probes)
//   - Metadata timeouts: For network metadata services
//   - Module timeouts: For external commands and phone-home retries
//   - HTTP client timeouts: For outbound HTTP requests
//
// # Usage
//
// Import and use constants directly:
//
//	import "github.com/NVIDIA/condense/pkg/defaults"
//
//	ctx, cancel := context.WithTimeout(ctx, defaults.ProbeTimeout)
//	defer cancel()
//
// # Timeout Guidelines
//
// When choosing timeout values:
//
//   - A probe must cover the metadata wait of the slowest network provider
//   - A single metadata request must fit inside the overall wait budget
//   - Boot stages are bounded by CLIStageTimeout so a hung module cannot
//     block the boot sequence indefinitely
package defaults
