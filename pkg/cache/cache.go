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

package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/NVIDIA/condense/pkg/datasource"
	"github.com/NVIDIA/condense/pkg/defaults"
	"github.com/NVIDIA/condense/pkg/header"
	"github.com/NVIDIA/condense/pkg/layout"
	"github.com/NVIDIA/condense/pkg/serializer"
)

// document is the on-disk form of a cached data source.
type document struct {
	header.Header
	Data datasource.Snapshot `json:"data"`
}

// Cache persists the chosen data source between invocations.
type Cache struct {
	layout  *layout.Layout
	version string
}

// New returns a Cache over l. version is recorded in each stored document.
func New(l *layout.Layout, version string) *Cache {
	return &Cache{layout: l, version: version}
}

// Path returns the snapshot location behind the current-instance link.
func (c *Cache) Path() string {
	return c.layout.Current(layout.Snapshot)
}

// Exists reports whether a snapshot is present for the current instance.
func (c *Cache) Exists() bool {
	_, err := os.Stat(c.Path())
	return err == nil
}

// Store writes ds as the current instance snapshot, readable only by root.
func (c *Cache) Store(ds *datasource.DataSource) error {
	doc := document{Data: *ds.Snapshot()}
	doc.Init(header.KindInstanceSnapshot, c.version)
	doc.Metadata["instance-id"] = ds.InstanceID()

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	if err := serializer.WriteFileAtomic(c.Path(), data, defaults.SnapshotMode); err != nil {
		return fmt.Errorf("failed to store snapshot: %w", err)
	}
	slog.Debug("stored instance snapshot", "path", c.Path(), "source", ds.String())
	return nil
}

// Restore reads the current instance snapshot. A missing, unreadable or
// foreign document is reported as not found so discovery runs again.
func (c *Cache) Restore() (*datasource.DataSource, bool) {
	path := c.Path()
	doc, err := serializer.ReadFile[document](serializer.FormatJSON, path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			slog.Warn("ignoring unreadable instance snapshot", "path", path, "error", err)
		}
		return nil, false
	}
	if !doc.Matches(header.KindInstanceSnapshot) || doc.Data.Provider == "" {
		slog.Warn("ignoring unrecognized instance snapshot", "path", path,
			"kind", doc.Kind, "apiVersion", doc.APIVersion)
		return nil, false
	}

	ds := datasource.New(&doc.Data)
	slog.Debug("restored instance snapshot", "path", path, "source", ds.String())
	return ds, true
}

// Purge removes boot-finished and, when removeCurrent is set, the
// current-instance link so the next probe starts clean. Nothing to remove
// is not an error.
func (c *Cache) Purge(removeCurrent bool) error {
	return c.layout.Purge(removeCurrent)
}
