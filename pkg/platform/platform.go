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

package platform

import (
	"fmt"
	"os"
	"strings"
)

var (
	filePathReleasePrimary  = "/etc/os-release"
	filePathReleaseFallback = "/usr/lib/os-release"
	filePathUptime          = "/proc/uptime"
	filePathHosts           = "/etc/hosts"
)

// Family groups distributions that share configuration file conventions.
type Family string

const (
	FamilyDebian  Family = "debian"
	FamilyRHEL    Family = "rhel"
	FamilyUnknown Family = "unknown"
)

var familyLookups = map[string]Family{
	"debian": FamilyDebian,
	"ubuntu": FamilyDebian,
	"rhel":   FamilyRHEL,
	"fedora": FamilyRHEL,
	"centos": FamilyRHEL,
	"rocky":  FamilyRHEL,
	"amzn":   FamilyRHEL,
}

// Release returns the os-release fields, trying /etc/os-release first and
// /usr/lib/os-release second.
func Release() (map[string]string, error) {
	path := filePathReleasePrimary
	if _, err := os.Stat(path); os.IsNotExist(err) {
		path = filePathReleaseFallback
	}

	parser := NewParser(WithVTrimChars(`"'`))
	params, err := parser.GetMap(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read os release from %s: %w", path, err)
	}
	return params, nil
}

// DetectFamily maps the running distribution to a Family using the os-release
// ID and ID_LIKE fields.
func DetectFamily() Family {
	rel, err := Release()
	if err != nil {
		return FamilyUnknown
	}
	return FamilyOf(rel)
}

// FamilyOf maps os-release fields to a Family.
func FamilyOf(rel map[string]string) Family {
	ids := append([]string{rel["ID"]}, strings.Fields(rel["ID_LIKE"])...)
	for _, id := range ids {
		if f, ok := familyLookups[strings.ToLower(id)]; ok {
			return f
		}
	}
	return FamilyUnknown
}

// Uptime returns the first field of /proc/uptime, or "na" when it is
// unreadable.
func Uptime() string {
	b, err := os.ReadFile(filePathUptime)
	if err != nil {
		return "na"
	}
	fields := strings.Fields(string(b))
	if len(fields) == 0 {
		return "na"
	}
	return fields[0]
}

// FQDNFromHosts returns the canonical name of the first hosts entry that
// lists hostname as an alias. It mirrors "hostname -f" when the resolver
// consults files only. A missing file yields "".
func FQDNFromHosts(path, hostname string) string {
	if path == "" {
		path = filePathHosts
	}
	lines, err := NewParser(WithInlineComments(true)).GetLines(path)
	if err != nil {
		return ""
	}
	for _, line := range lines {
		toks := strings.Fields(line)
		// ip, canonical, alias...
		if len(toks) < 3 {
			continue
		}
		for _, alias := range toks[2:] {
			if alias == hostname {
				return toks[1]
			}
		}
	}
	return ""
}
