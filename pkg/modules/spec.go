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

package modules

import (
	"fmt"

	"github.com/NVIDIA/condense/pkg/config"
	cerrors "github.com/NVIDIA/condense/pkg/errors"
	"github.com/NVIDIA/condense/pkg/semaphore"
)

// Spec is one entry of a module list.
type Spec struct {
	Name string `json:"name" yaml:"name"`
	// Frequency overrides the module default when set.
	Frequency semaphore.Frequency `json:"frequency,omitempty" yaml:"frequency,omitempty"`
	Args      []string            `json:"args,omitempty" yaml:"args,omitempty"`
}

// ParseList reads the module list stored under key. Each item is either a
// bare name or a list of name, optional frequency and arguments. A missing
// key yields an empty list.
func ParseList(cfg config.Config, key string) ([]Spec, error) {
	items := cfg.List(key)
	specs := make([]Spec, 0, len(items))
	for i, item := range items {
		spec, err := parseItem(item)
		if err != nil {
			return nil, cerrors.WrapWithContext(cerrors.ErrCodeInvalidRequest,
				fmt.Sprintf("failed to read %s item %d", key, i), err,
				map[string]any{"key": key, "index": i})
		}
		specs = append(specs, spec)
	}
	return specs, nil
}

func parseItem(item any) (Spec, error) {
	switch t := item.(type) {
	case string:
		if t == "" {
			return Spec{}, fmt.Errorf("empty module name")
		}
		return Spec{Name: t}, nil
	case []any:
		if len(t) == 0 {
			return Spec{}, fmt.Errorf("empty module entry")
		}
		name, ok := t[0].(string)
		if !ok || name == "" {
			return Spec{}, fmt.Errorf("module name must be a string, got %T", t[0])
		}
		spec := Spec{Name: name}
		if len(t) > 1 && t[1] != nil {
			if s := fmt.Sprint(t[1]); s != "" {
				freq, err := semaphore.ParseFrequency(s)
				if err != nil {
					return Spec{}, err
				}
				spec.Frequency = freq
			}
		}
		for _, a := range t[min(len(t), 2):] {
			spec.Args = append(spec.Args, fmt.Sprint(a))
		}
		return spec, nil
	default:
		return Spec{}, fmt.Errorf("unsupported module entry type %T", item)
	}
}
