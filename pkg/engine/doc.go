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

// Package engine drives the boot stages.
//
// An Engine owns one invocation. The init stage (Start) discovers a data
// source, makes its instance current, caches the snapshot and user data,
// feeds the decoded user data to the part handlers and runs
// cloud_init_modules. Later stages (Continue) restore the data source
// from the cache and run cloud_<stage>_modules. Every config module runs
// under a semaphore, so re-running a stage repeats only always modules.
//
// Stage failures surface as *StageError whose ExitCode is the number of
// failed modules, or 1 when no data source was found. Probe, module and
// stage metrics are registered with the default Prometheus registry and,
// when metrics_textfile is configured, written there after each stage.
package engine
