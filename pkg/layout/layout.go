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

package layout

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/NVIDIA/condense/pkg/defaults"
	cerrors "github.com/NVIDIA/condense/pkg/errors"
)

// Item names a well-known location inside the data directory or inside an
// instance directory.
type Item string

const (
	Root        Item = ""
	Handlers    Item = "handlers"
	Scripts     Item = "scripts"
	Sem         Item = "sem"
	Data        Item = "data"
	Seed        Item = "seed"
	UserDataRaw Item = "user-data.txt"
	UserData    Item = "user-data.txt.i"
	Snapshot    Item = "obj-snapshot"
	CloudConfig Item = "cloud-config.txt"
	DataSource  Item = "datasource"
	Finished    Item = "boot-finished"
)

const (
	instancesDir = "instances"
	currentLink  = "instance"
)

// Layout computes paths below a data directory:
//
//	<root>/instances/<id>/{obj-snapshot, data/, sem/, handlers/, scripts/, ...}
//	<root>/instance -> ./instances/<id>
//	<root>/{sem, data, seed, handlers, scripts/per-*}
type Layout struct {
	root string
}

// New returns a Layout rooted at dir, or at the default data directory when
// dir is empty.
func New(dir string) *Layout {
	if dir == "" {
		dir = defaults.DataDir
	}
	return &Layout{root: dir}
}

// Dir returns the data directory.
func (l *Layout) Dir() string {
	return l.root
}

// Shared returns item below the data directory.
func (l *Layout) Shared(item Item) string {
	return filepath.Join(l.root, string(item))
}

// InstanceLink returns the path of the current-instance symlink.
func (l *Layout) InstanceLink() string {
	return filepath.Join(l.root, currentLink)
}

// Current returns item below the current-instance link.
func (l *Layout) Current(item Item) string {
	return filepath.Join(l.InstanceLink(), string(item))
}

// ForInstance returns item below the directory of instance id. An id that
// cannot name a directory is escaped so the result stays below instances/.
func (l *Layout) ForInstance(id string, item Item) string {
	return filepath.Join(l.root, instancesDir, instanceDirName(id), string(item))
}

// ValidateInstanceID rejects ids that would not name a single directory
// entry below instances/.
func ValidateInstanceID(id string) error {
	if id == "" || id == "." || id == ".." || strings.ContainsAny(id, "/\\\x00") {
		return cerrors.NewWithContext(cerrors.ErrCodeInvalidRequest,
			"instance id cannot be used as a directory name", map[string]any{"instanceId": id})
	}
	return nil
}

var idEscaper = strings.NewReplacer("/", "_", "\\", "_", "\x00", "_", ".", "_")

func instanceDirName(id string) string {
	if ValidateInstanceID(id) == nil {
		return id
	}
	return "_" + idEscaper.Replace(id)
}

// BootFinished returns the boot-finished marker of the current instance.
func (l *Layout) BootFinished() string {
	return l.Current(Finished)
}

// NoNet returns the marker written when the network stage is not needed.
func (l *Layout) NoNet() string {
	return filepath.Join(l.Shared(Data), "no-net")
}

// Init creates the shared directory skeleton.
func (l *Layout) Init() error {
	dirs := []string{
		filepath.Join(string(Scripts), "per-instance"),
		filepath.Join(string(Scripts), "per-once"),
		filepath.Join(string(Scripts), "per-boot"),
		string(Seed),
		instancesDir,
		string(Handlers),
		string(Sem),
		string(Data),
	}
	for _, d := range dirs {
		if err := os.MkdirAll(filepath.Join(l.root, d), defaults.DirMode); err != nil {
			return fmt.Errorf("failed to create %s: %w", d, err)
		}
	}
	return nil
}

// SetCurrent points the current-instance link at instance id and creates the
// per-instance directories. Ids rejected by ValidateInstanceID leave the
// existing link alone.
func (l *Layout) SetCurrent(id string) error {
	if err := ValidateInstanceID(id); err != nil {
		return err
	}
	link := l.InstanceLink()
	if err := os.Remove(link); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove %s: %w", link, err)
	}
	if err := os.MkdirAll(l.ForInstance(id, Root), defaults.DirMode); err != nil {
		return fmt.Errorf("failed to create instance directory: %w", err)
	}
	if err := os.Symlink(filepath.Join(".", instancesDir, id), link); err != nil {
		return fmt.Errorf("failed to link current instance: %w", err)
	}
	for _, item := range []Item{Handlers, Scripts, Sem} {
		if err := os.MkdirAll(l.ForInstance(id, item), defaults.DirMode); err != nil {
			return fmt.Errorf("failed to create %s: %w", item, err)
		}
	}
	return nil
}

// CurrentID returns the instance id the current-instance link points at.
func (l *Layout) CurrentID() (string, bool) {
	target, err := os.Readlink(l.InstanceLink())
	if err != nil {
		return "", false
	}
	return filepath.Base(target), true
}

// Purge removes the boot-finished marker and, when removeCurrent is set, the
// current-instance link. Missing entries are not errors.
func (l *Layout) Purge(removeCurrent bool) error {
	targets := []string{l.BootFinished()}
	if removeCurrent {
		targets = append(targets, l.InstanceLink())
	}
	for _, t := range targets {
		if err := os.Remove(t); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to remove %s: %w", t, err)
		}
	}
	return nil
}
