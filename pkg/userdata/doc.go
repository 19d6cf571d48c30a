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

// Package userdata turns raw user data into typed parts.
//
// User data arrives as opaque bytes: a cloud-config document, a shell
// script, a gzip-compressed blob, or a MIME multipart message mixing
// several of these. Decode normalizes all of them into a concrete ordered
// list of Part values:
//
//  1. gzip input is decompressed, anything else is used as is
//  2. a MIME-Version header within the first 4 KiB marks a MIME document
//  3. MIME documents are walked depth first; multipart containers are
//     transparent and each leaf becomes one Part
//  4. text/plain leaves, and non-MIME input, are typed by signature:
//     "#cloud-config" is text/cloud-config and "#!" is text/x-shellscript
//  5. parts without a filename are named part-000, part-001, ... by leaf position
//
// A malformed MIME document is not an error; it is treated as one part.
// Encode writes parts back out as a canonical MIME document, which is what
// gets stored as user-data.txt.i.
package userdata
