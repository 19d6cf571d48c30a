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

// Package cache persists the chosen data source across invocations.
//
// The first boot stage that finds a data source stores a plain snapshot of
// it (provider, metadata, raw user data, config object) as obj-snapshot in
// the instance directory. Later stages restore it instead of probing again.
// Restore never fails hard: anything unreadable is treated as absent.
package cache
