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

package defaults

import "time"

// Probe timeouts for data source discovery.
const (
	// ProbeTimeout bounds each candidate provider's discovery attempt on its
	// own, so a slow candidate cannot use up the time of the ones after it.
	ProbeTimeout = 2 * time.Minute

	// BlockDeviceScanTimeout bounds the blkid scan for config drive devices.
	BlockDeviceScanTimeout = 10 * time.Second
)

// Metadata service timeouts for network data sources.
const (
	// MetadataMaxWait is how long a network provider waits for its metadata
	// service to answer before giving up on the candidate.
	MetadataMaxWait = 120 * time.Second

	// MetadataRequestTimeout bounds a single metadata request.
	MetadataRequestTimeout = 50 * time.Second

	// MetadataRetryInterval is the minimum spacing between metadata attempts.
	MetadataRetryInterval = 2 * time.Second
)

// Module timeouts for builtin config modules.
const (
	// CommandTimeout bounds external commands (hostname, /bin/sh) run by modules.
	CommandTimeout = 5 * time.Minute

	// PhoneHomeRetryInterval is the spacing between phone-home attempts.
	PhoneHomeRetryInterval = 3 * time.Second

	// PhoneHomeTries is the default number of phone-home attempts.
	PhoneHomeTries = 10
)

// HTTP client timeouts for outbound requests.
const (
	// HTTPClientTimeout is the default total timeout for HTTP requests.
	HTTPClientTimeout = 30 * time.Second

	// HTTPConnectTimeout is the timeout for establishing connections.
	HTTPConnectTimeout = 5 * time.Second

	// HTTPTLSHandshakeTimeout is the timeout for TLS handshake.
	HTTPTLSHandshakeTimeout = 5 * time.Second

	// HTTPResponseHeaderTimeout is the timeout for reading response headers.
	HTTPResponseHeaderTimeout = 10 * time.Second

	// HTTPIdleConnTimeout is the timeout for idle connections in the pool.
	HTTPIdleConnTimeout = 90 * time.Second

	// HTTPKeepAlive is the keep-alive duration for connections.
	HTTPKeepAlive = 30 * time.Second
)

// CLI timeouts for command-line operations.
const (
	// CLIStageTimeout is the upper bound for a complete boot stage.
	CLIStageTimeout = 30 * time.Minute
)
