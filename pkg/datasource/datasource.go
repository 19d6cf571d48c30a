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

package datasource

import (
	"fmt"
	"os"
	"strings"

	"github.com/NVIDIA/condense/pkg/config"
	"github.com/NVIDIA/condense/pkg/platform"
)

const (
	defaultInstanceID = "iid-datasource"
	defaultDomain     = "localdomain"
	defaultHost       = "localhost"

	// Metadata keys shared by providers.
	KeyInstanceID    = "instance-id"
	KeyLocalHostname = "local-hostname"
	KeyPublicKeys    = "public-keys"
)

var (
	osHostname = os.Hostname
	hostsFile  = "/etc/hosts"
)

// Snapshot is the plain data a provider discovered. It is what gets
// persisted between invocations.
type Snapshot struct {
	Provider    string         `json:"provider" yaml:"provider"`
	Mode        string         `json:"mode,omitempty" yaml:"mode,omitempty"`
	Seed        string         `json:"seed,omitempty" yaml:"seed,omitempty"`
	Metadata    map[string]any `json:"metadata" yaml:"metadata"`
	UserDataRaw []byte         `json:"userDataRaw,omitempty" yaml:"userDataRaw,omitempty"`
	Config      map[string]any `json:"config,omitempty" yaml:"config,omitempty"`
}

// DataSource is the live handle over a Snapshot.
type DataSource struct {
	snap Snapshot
}

// New wraps snap. The instance id is fixed for the lifetime of the handle.
func New(snap *Snapshot) *DataSource {
	s := *snap
	if s.Metadata == nil {
		s.Metadata = map[string]any{}
	}
	return &DataSource{snap: s}
}

// Snapshot returns a copy of the underlying data.
func (d *DataSource) Snapshot() *Snapshot {
	s := d.snap
	return &s
}

// Name returns the provider variant name.
func (d *DataSource) Name() string {
	return d.snap.Provider
}

// Metadata returns the metadata mapping.
func (d *DataSource) Metadata() map[string]any {
	return d.snap.Metadata
}

// UserDataRaw returns the undecoded user data.
func (d *DataSource) UserDataRaw() []byte {
	return d.snap.UserDataRaw
}

// ConfigObject returns configuration the platform supplied outside of
// user data.
func (d *DataSource) ConfigObject() config.Config {
	if d.snap.Config == nil {
		return config.Config{}
	}
	return config.Config(d.snap.Config)
}

// InstanceID returns the instance-id metadata value or iid-datasource.
func (d *DataSource) InstanceID() string {
	v, ok := d.snap.Metadata[KeyInstanceID]
	if !ok || v == nil || fmt.Sprint(v) == "" {
		return defaultInstanceID
	}
	return fmt.Sprint(v)
}

// PublicKeys returns the public-keys metadata value as a list.
func (d *DataSource) PublicKeys() []string {
	switch v := d.snap.Metadata[KeyPublicKeys].(type) {
	case string:
		return []string{v}
	case []any:
		out := make([]string, 0, len(v))
		for _, k := range v {
			out = append(out, fmt.Sprint(k))
		}
		return out
	case []string:
		return v
	case map[string]any:
		out := make([]string, 0, len(v))
		for _, k := range v {
			out = append(out, fmt.Sprint(k))
		}
		return out
	default:
		return nil
	}
}

// Hostname returns the short hostname, or the fully qualified name when fqdn
// is set. An IPv4 local-hostname becomes ip-a-b-c-d. Without local-hostname
// the running host name is used, qualified through /etc/hosts when possible.
func (d *DataSource) Hostname(fqdn bool) string {
	var toks []string
	if lh, ok := d.snap.Metadata[KeyLocalHostname].(string); ok && lh != "" {
		if platform.IsIPv4(lh) {
			toks = []string{"ip-" + strings.ReplaceAll(lh, ".", "-")}
		} else {
			toks = strings.Split(lh, ".")
		}
	} else {
		host, _ := osHostname()
		full := ""
		if host != "" {
			full = platform.FQDNFromHosts(hostsFile, host)
		}
		switch {
		case strings.Index(full, ".") > 0:
			toks = strings.Split(full, ".")
		case host != "":
			toks = []string{host, defaultDomain}
		default:
			toks = []string{defaultHost, defaultDomain}
		}
	}

	host, domain := toks[0], defaultDomain
	if len(toks) > 1 {
		domain = strings.Join(toks[1:], ".")
	}
	if fqdn {
		return host + "." + domain
	}
	return host
}

// String identifies the source as Name[mode] [seed=path].
func (d *DataSource) String() string {
	s := d.snap.Provider
	if d.snap.Mode != "" {
		s += "[" + d.snap.Mode + "]"
	}
	if d.snap.Seed != "" {
		s += " [seed=" + d.snap.Seed + "]"
	}
	return s
}
