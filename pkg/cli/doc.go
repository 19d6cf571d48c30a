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

// Package cli implements the condense command-line interface.
//
// # Commands
//
// One command per boot stage, invoked in order by the service manager:
//
//	condense start-local
//	condense start
//	condense config
//	condense final
//
// The init stages (start-local, start) discover the data source, refresh the
// instance cache, consume user data and run cloud_init_modules. The config and
// final stages reuse the cached data source and run their module lists.
//
// query prints the cached instance state:
//
//	condense query [--format yaml|json|table] [--output FILE]
//
// # Global Flags
//
//   - --config: system configuration file (CONDENSE_CONFIG)
//   - --log-level: debug, info, warn or error (LOG_LEVEL)
//   - --data-dir: root of persisted state (CONDENSE_DATA_DIR)
//
// # Exit Codes
//
// A stage exits with the number of modules that failed. An init stage that
// finds no data source exits 1. Everything else that completes exits 0.
//
// Stage logs go to stderr and, when writable, to /var/log/condense.<stage>.log.
package cli
