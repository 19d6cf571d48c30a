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

// Package semaphore implements the filesystem idempotency guard used by every
// boot stage.
//
// # Overview
//
// An action is identified by a name and a Frequency. Before running it the
// caller checks HasRun, acquires a marker file, runs the action and, when
// asked to, clears the marker again on failure. RunGuarded combines these
// steps.
//
// # Frequencies
//
//   - Always: never recorded, the action runs on every invocation
//   - PerInstance: recorded under instances/<id>/sem/<name>
//   - Once: recorded under sem/<name>.once, shared across instances
//
// # Usage
//
//	store := semaphore.New(layout.ForInstance(iid, layout.Sem), layout.Shared(layout.Sem))
//	ran, err := store.RunGuarded("config-set-hostname", semaphore.PerInstance, func() error {
//	    return setHostname(ctx)
//	}, false)
//
// # Markers
//
// A marker holds the acquisition timestamp (Unix seconds), the owning process
// id and, when configured, the invocation run id, one per line.
package semaphore
