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

// Package modules runs ordered lists of named configuration modules.
//
// A module list is read from the merged configuration with ParseList. Each
// entry names a module registered in a Registry and may override its
// frequency and pass arguments:
//
//	cloud_config_modules:
//	  - timezone
//	  - [bootcmd, always]
//	  - [final-message, always, "booted in $UPTIME s"]
//
// Runner resolves each name and runs it under the semaphore
// "config-<name>", so a per-instance module runs once for each instance
// and an always module on every stage. A failed attempt keeps its marker.
// Failures, including unknown names, are collected in Result.Failures and
// never stop the remaining modules.
package modules
