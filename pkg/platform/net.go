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
	"net"
	"strings"
)

// Interface summarizes one network interface.
type Interface struct {
	Name      string   `json:"name" yaml:"name"`
	Up        bool     `json:"up" yaml:"up"`
	HWAddress string   `json:"hwAddress,omitempty" yaml:"hwAddress,omitempty"`
	Addresses []string `json:"addresses,omitempty" yaml:"addresses,omitempty"`
}

// Interfaces lists the host's network interfaces with their addresses.
func Interfaces() ([]Interface, error) {
	ifs, err := net.Interfaces()
	if err != nil {
		return nil, err
	}
	out := make([]Interface, 0, len(ifs))
	for _, ifc := range ifs {
		item := Interface{
			Name:      ifc.Name,
			Up:        ifc.Flags&net.FlagUp != 0,
			HWAddress: ifc.HardwareAddr.String(),
		}
		if addrs, err := ifc.Addrs(); err == nil {
			for _, a := range addrs {
				item.Addresses = append(item.Addresses, a.String())
			}
		}
		out = append(out, item)
	}
	return out, nil
}

// NetSummary renders interfaces as a compact single-line description used in
// stage start logs.
func NetSummary(ifs []Interface) string {
	parts := make([]string, 0, len(ifs))
	for _, i := range ifs {
		state := "down"
		if i.Up {
			state = "up"
		}
		addrs := "."
		if len(i.Addresses) > 0 {
			addrs = strings.Join(i.Addresses, ",")
		}
		parts = append(parts, i.Name+"("+state+" "+addrs+")")
	}
	return strings.Join(parts, " ")
}

// IsIPv4 reports whether s is a dotted quad with every octet in 1..255.
func IsIPv4(s string) bool {
	toks := strings.Split(s, ".")
	if len(toks) != 4 {
		return false
	}
	for _, t := range toks {
		if t == "" || len(t) > 3 {
			return false
		}
		n := 0
		for _, c := range t {
			if c < '0' || c > '9' {
				return false
			}
			n = n*10 + int(c-'0')
		}
		if n < 1 || n > 255 {
			return false
		}
	}
	return true
}
