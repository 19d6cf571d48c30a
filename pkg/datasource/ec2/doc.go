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

// Package ec2 implements the Ec2 data source, which reads an EC2-compatible
// instance metadata service once networking is up.
//
// The provider first waits for <url>/<version>/meta-data/instance-id to
// answer, pacing attempts with a rate limiter, for at most max_wait seconds.
// An unreachable service is reported as not found. Once reachable it reads
// every flat meta-data key and the raw user-data; a missing user-data
// document is treated as empty.
package ec2
