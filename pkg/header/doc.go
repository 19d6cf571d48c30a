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

// Package header defines the envelope fields shared by condense documents.
//
// Persisted state such as the instance snapshot, and the output of the query
// command, start with a Header naming the document kind and schema version:
//
//	{
//	  "kind": "InstanceSnapshot",
//	  "apiVersion": "condense.nvidia.com/v1",
//	  "metadata": {"timestamp": "2026-01-02T10:30:00Z", "version": "v0.3.0"}
//	}
//
// Readers check Matches before trusting the payload, so a document written
// by an incompatible release is treated as absent rather than misread.
package header
