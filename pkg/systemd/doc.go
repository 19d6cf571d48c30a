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

// Package systemd integrates the boot stages with the service manager.
//
// Notifier sends READY and STATUS notifications through sd_notify so a
// Type=notify unit for a stage completes when the stage does. Units starts
// follow-up units over D-Bus once the init stage has a data source, and
// reports their active state for the query command.
package systemd
