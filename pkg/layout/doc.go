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

// Package layout computes the on-disk locations used by condense.
//
// All persisted state lives below one data directory (/var/lib/condense by
// default). Each instance gets its own directory under instances/, and the
// "instance" symlink points at the one currently booted, so per-instance
// state resets whenever the instance id changes while shared state under
// sem/ and data/ survives.
package layout
