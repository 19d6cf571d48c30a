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

// Package builtin provides the configuration modules shipped with the
// binary.
//
//   - bootcmd (always): runs the bootcmd list through /bin/sh with
//     INSTANCE_ID set.
//   - set-hostname (per instance): applies hostname or fqdn unless
//     preserve_hostname is set.
//   - update-etc-hosts (always): renders /etc/hosts when manage_etc_hosts is
//     true or template.
//   - timezone (per instance): installs a zone from the zoneinfo tree.
//   - phone-home (per instance): posts instance facts to a url.
//   - scripts-user (per instance): runs scripts saved from user data.
//   - final-message (always): logs a completion message and writes the
//     boot-finished marker.
//
// Host access goes through a root prefix and a Commander so the modules
// can run against a scratch tree.
package builtin
