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

// Package handler dispatches decoded user-data parts to part handlers.
//
// A Dispatcher maps content types to PartHandlers in registration order.
// Each dispatch drives every admitted handler through Begin, HandlePart for
// each matching part, and End. A handler admits a dispatch when its own
// frequency is always, or when both it and the dispatch are
// once-per-instance. Failures are collected and reported, never fatal.
//
// Two handlers are built in. CloudConfig joins all text/cloud-config parts
// into cloud-config.txt for the module pipeline. ShellScript stores
// text/x-shellscript parts in the instance scripts directory.
package handler
