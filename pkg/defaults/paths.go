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

import "os"

// AppName is used for directory, config and log file names.
const AppName = "condense"

// Filesystem locations.
const (
	// DataDir is the root of all persisted state.
	DataDir = "/var/lib/" + AppName

	// SystemConfig is the main system configuration file.
	SystemConfig = "/etc/" + AppName + "/" + AppName + ".cfg"

	// LogFileTemplate is formatted with the stage name.
	LogFileTemplate = "/var/log/" + AppName + ".%s.log"

	// ZoneInfoDir holds compiled timezone files.
	ZoneInfoDir = "/usr/share/zoneinfo"
)

// Environment variables.
const (
	// EnvConfigDriveDevice overrides config drive device discovery.
	EnvConfigDriveDevice = "CLOUD_INIT_CONFIG_DRIVE_DEVICE"

	// EnvConfig overrides the system configuration path.
	EnvConfig = "CONDENSE_CONFIG"

	// EnvDataDir overrides the data directory.
	EnvDataDir = "CONDENSE_DATA_DIR"

	// EnvLogLevel sets logging verbosity.
	EnvLogLevel = "LOG_LEVEL"
)

// File modes for persisted artifacts.
const (
	DirMode        os.FileMode = 0o755
	FileMode       os.FileMode = 0o644
	PrivateMode    os.FileMode = 0o600
	SnapshotMode   os.FileMode = 0o400
	ExecutableMode os.FileMode = 0o700
)
