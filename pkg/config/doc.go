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

// Package config loads and merges YAML configuration documents.
//
// The system configuration is read from /etc/condense/condense.cfg with the
// *.cfg files of its conf.d directory layered over it, and the builtin
// defaults layered underneath. Merging never overwrites: a key that is already
// set keeps its value, so documents are merged from most to least specific.
//
// Usage:
//
//	cfg, err := config.Load(defaults.SystemConfig)
//	if err != nil {
//	    cfg = config.Config{}
//	}
//	config.Merge(cfg, config.Builtin())
//	sources := cfg.StringList("datasource_list")
package config
