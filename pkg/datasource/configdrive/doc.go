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

// Package configdrive implements the ConfigDrive data source family.
//
// A config drive is either a seed directory under the data directory or a
// small vfat block device attached to the instance. Either way it must hold
// a meta.js JSON document; anything else is reported as not found so the
// next candidate is probed. The ConfigDrive variant needs only the
// filesystem and claims drives with dsmode "local". ConfigDriveNet runs
// once networking is up and claims dsmode "net". Drives without a dsmode
// default to "pass" and are claimed by neither.
//
// The block device defaults to the lexically last whole device reported by
// blkid with TYPE=vfat. The CLOUD_INIT_CONFIG_DRIVE_DEVICE environment
// variable or the datasource.ConfigDrive.device setting overrides the scan.
package configdrive
