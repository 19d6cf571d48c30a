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

// Package datasource discovers where instance data comes from.
//
// Providers are grouped into families (ConfigDrive, Ec2). Each variant
// declares the capabilities it needs with a Descriptor: FILESYSTEM only for
// sources readable before networking, FILESYSTEM and NETWORK for the rest.
// A boot stage asks the Registry for the variants matching what is available
// and hands them to a Finder, which probes them in order and stops at the
// first success:
//
//	reg := datasource.NewRegistry()
//	configdrive.Register(reg)
//	candidates := reg.List(cfg.StringList("datasource_list"),
//	    datasource.Dependencies{datasource.DepFilesystem}, datasource.MatchExact)
//	ds, err := (&datasource.Finder{}).Find(ctx, candidates, cfg)
//
// Probes distinguish "not here" (ErrNotFound) from real failures; both move
// the loop on, and only exhausting every candidate is an error.
package datasource
