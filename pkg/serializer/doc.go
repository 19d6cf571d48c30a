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

// Package serializer encodes and decodes documents as JSON, YAML or tables.
//
// # Formats
//
// JSON is used for persisted state such as the instance snapshot. YAML is
// the config file format. Table flattens nested values into sorted
// FIELD/VALUE rows for terminal output and is write-only.
//
// # Usage
//
//	w := serializer.NewFileWriterOrStdout(serializer.FormatYAML, "")
//	if err := w.Serialize(ctx, result); err != nil {
//	    return err
//	}
//
//	snap, err := serializer.ReadFile[Snapshot](serializer.FormatJSON, path)
//
// WriteFileAtomic is the one way state files are written: a temporary file
// in the same directory is renamed over the target, so a crash mid-write
// leaves the previous content intact.
package serializer
