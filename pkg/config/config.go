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

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is a parsed YAML configuration document.
type Config map[string]any

// builtinConfig is used underneath the system config and as the fallback
// when the system config cannot be read.
const builtinConfig = `
datasource_list: [ConfigDrive, Ec2]
manual_cache_clean: false
cloud_init_modules:
  - bootcmd
  - set-hostname
  - update-etc-hosts
cloud_config_modules:
  - timezone
cloud_final_modules:
  - scripts-user
  - phone-home
  - final-message
`

// Builtin returns the compiled-in default configuration.
func Builtin() Config {
	cfg, err := Parse([]byte(builtinConfig))
	if err != nil {
		panic(fmt.Sprintf("invalid builtin config: %v", err))
	}
	return cfg
}

// Parse decodes a YAML document. An empty document yields an empty Config.
// A key repeated within one mapping keeps its last value, so documents
// joined from several sources still parse.
func Parse(data []byte) (Config, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if doc.Kind == 0 {
		return Config{}, nil
	}
	dedupeKeys(&doc)

	var raw any
	if err := doc.Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if raw == nil {
		return Config{}, nil
	}
	m, ok := normalize(raw).(map[string]any)
	if !ok {
		return nil, fmt.Errorf("config document is %T, not a mapping", raw)
	}
	return Config(m), nil
}

// dedupeKeys drops all but the last occurrence of each scalar key in every
// mapping below n. Merge keys are left alone.
func dedupeKeys(n *yaml.Node) {
	if n.Kind == yaml.MappingNode {
		last := make(map[string]int, len(n.Content)/2)
		for i := 0; i+1 < len(n.Content); i += 2 {
			if k := n.Content[i]; k.Kind == yaml.ScalarNode && k.Value != "<<" {
				last[k.Value] = i
			}
		}
		kept := n.Content[:0]
		for i := 0; i+1 < len(n.Content); i += 2 {
			k := n.Content[i]
			if j, ok := last[k.Value]; ok && k.Kind == yaml.ScalarNode && j != i {
				continue
			}
			kept = append(kept, k, n.Content[i+1])
		}
		n.Content = kept
	}
	for _, c := range n.Content {
		dedupeKeys(c)
	}
}

// ReadFile parses the YAML file at path. A missing file is an empty Config.
func ReadFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Config{}, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Load reads the system config at path, then merges the *.cfg files of its
// conf.d directory over it. The directory defaults to "<path>.d" and may be
// overridden by the conf_d key. Files are applied in lexical order so later
// names win.
func Load(path string) (Config, error) {
	cfg, err := ReadFile(path)
	if err != nil {
		return nil, err
	}

	dir := path + ".d"
	if d := cfg.String("conf_d", ""); d != "" {
		dir = d
	}
	files, err := filepath.Glob(filepath.Join(dir, "*.cfg"))
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", dir, err)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(files)))

	merged := Config{}
	for _, f := range files {
		part, err := ReadFile(f)
		if err != nil {
			return nil, err
		}
		Merge(merged, part)
	}
	Merge(merged, cfg)
	return merged, nil
}

// LoadSystem loads the system config at path with the builtin defaults
// merged underneath. An unreadable config falls back to the builtin one.
func LoadSystem(path string) Config {
	cfg, err := Load(path)
	if err != nil {
		slog.Error("failed to load system config, falling back to builtin", "path", path, "error", err)
		return Builtin()
	}
	return Merge(cfg, Builtin())
}

// Merge copies keys of src that dst does not already have into dst. Nested
// mappings present in both are merged recursively with the same rule.
func Merge(dst, src Config) Config {
	for k, sv := range src {
		dv, ok := dst[k]
		if !ok {
			dst[k] = sv
			continue
		}
		dm, dok := dv.(map[string]any)
		sm, sok := sv.(map[string]any)
		if dok && sok {
			Merge(dm, sm)
		}
	}
	return dst
}

// Clone returns a deep copy of c.
func (c Config) Clone() Config {
	out := Config{}
	for k, v := range c {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		m := make(map[string]any, len(t))
		for k, val := range t {
			m[k] = cloneValue(val)
		}
		return m
	case []any:
		s := make([]any, len(t))
		for i, val := range t {
			s[i] = cloneValue(val)
		}
		return s
	default:
		return v
	}
}

// Lookup resolves a dotted key path such as "datasource.ConfigDrive.device".
func (c Config) Lookup(path string) (any, bool) {
	var cur any = map[string]any(c)
	for _, part := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		if cur, ok = m[part]; !ok {
			return nil, false
		}
	}
	return cur, true
}

// Has reports whether key is set.
func (c Config) Has(key string) bool {
	_, ok := c.Lookup(key)
	return ok
}

// String returns key as a string, or def when unset or not a scalar.
func (c Config) String(key, def string) string {
	v, ok := c.Lookup(key)
	if !ok || v == nil {
		return def
	}
	switch t := v.(type) {
	case string:
		return t
	case int, int64, float64, bool:
		return fmt.Sprint(t)
	default:
		return def
	}
}

// Bool returns key as a boolean. Strings such as "yes" and "on" are accepted.
func (c Config) Bool(key string, def bool) bool {
	v, ok := c.Lookup(key)
	if !ok {
		return def
	}
	switch t := v.(type) {
	case bool:
		return t
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "true", "yes", "on", "1":
			return true
		case "false", "no", "off", "0":
			return false
		}
	case int:
		return t != 0
	}
	return def
}

// Int returns key as an integer.
func (c Config) Int(key string, def int) int {
	v, ok := c.Lookup(key)
	if !ok {
		return def
	}
	switch t := v.(type) {
	case int:
		return t
	case int64:
		return int(t)
	case float64:
		return int(t)
	case string:
		var n int
		if _, err := fmt.Sscan(t, &n); err == nil {
			return n
		}
	}
	return def
}

// List returns key as a list. A scalar is wrapped in a one-element list.
func (c Config) List(key string) []any {
	v, ok := c.Lookup(key)
	if !ok || v == nil {
		return nil
	}
	if l, ok := v.([]any); ok {
		return l
	}
	return []any{v}
}

// StringList returns key as a list of strings, skipping non-scalar entries.
func (c Config) StringList(key string) []string {
	var out []string
	for _, v := range c.List(key) {
		switch t := v.(type) {
		case map[string]any, []any, nil:
			continue
		default:
			out = append(out, fmt.Sprint(t))
		}
	}
	return out
}

// Map returns key as a nested Config, or nil.
func (c Config) Map(key string) Config {
	v, ok := c.Lookup(key)
	if !ok {
		return nil
	}
	if m, ok := v.(map[string]any); ok {
		return Config(m)
	}
	return nil
}

// normalize converts the map[any]any values yaml can produce for non-string
// keys into map[string]any.
func normalize(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, val := range t {
			t[k] = normalize(val)
		}
		return t
	case map[any]any:
		m := make(map[string]any, len(t))
		for k, val := range t {
			m[fmt.Sprint(k)] = normalize(val)
		}
		return m
	case []any:
		for i, val := range t {
			t[i] = normalize(val)
		}
		return t
	default:
		return v
	}
}
