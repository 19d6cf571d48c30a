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

package configdrive

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/NVIDIA/condense/pkg/config"
	"github.com/NVIDIA/condense/pkg/datasource"
	"github.com/NVIDIA/condense/pkg/defaults"
)

const (
	// Family is the datasource_list name of this provider family.
	Family = "ConfigDrive"

	NameLocal = "ConfigDrive"
	NameNet   = "ConfigDriveNet"

	ModeLocal = "local"
	ModeNet   = "net"

	defaultInstanceID = "iid-dsconfigdrive"
	defaultMode       = "pass"
	metaFile          = "meta.js"
	deviceConfigKey   = "datasource.ConfigDrive.device"
)

// Keys copied from meta.js into the metadata mapping.
var copiedKeys = []string{"dsmode", datasource.KeyInstanceID, "dscfg",
	datasource.KeyLocalHostname, datasource.KeyPublicKeys}

// Mounter attaches a block device read-only at a directory and detaches it.
type Mounter interface {
	Mount(device, target string) error
	Unmount(target string) error
}

// DeviceFinder lists block devices carrying a vfat filesystem.
type DeviceFinder func(ctx context.Context) ([]string, error)

// Option configures a Provider.
type Option func(*Provider)

// WithMounter replaces the system mounter.
func WithMounter(m Mounter) Option {
	return func(p *Provider) {
		p.mounter = m
	}
}

// WithDeviceFinder replaces the blkid device scan.
func WithDeviceFinder(f DeviceFinder) Option {
	return func(p *Provider) {
		p.findDevices = f
	}
}

// Provider reads a config drive from a seed directory or a block device.
// It claims the drive only when the drive's dsmode matches its own mode.
type Provider struct {
	name        string
	mode        string
	seedDir     string
	device      string
	mounter     Mounter
	findDevices DeviceFinder
}

// New returns a provider for mode, reading seedDir first.
func New(name, mode, seedDir string, sysCfg config.Config, opts ...Option) *Provider {
	p := &Provider{
		name:        name,
		mode:        mode,
		seedDir:     seedDir,
		device:      sysCfg.String(deviceConfigKey, ""),
		mounter:     systemMounter{},
		findDevices: blkidVFAT,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Register adds the ConfigDrive (filesystem) and ConfigDriveNet (filesystem
// and network) variants to reg. The seed directory is <dataDir>/seed/config_drive.
func Register(reg *datasource.Registry, dataDir string, opts ...Option) {
	seed := filepath.Join(dataDir, "seed", "config_drive")
	reg.Register(Family,
		datasource.Descriptor{
			Name:         NameLocal,
			Dependencies: datasource.Dependencies{datasource.DepFilesystem},
			New: func(cfg config.Config) datasource.Provider {
				return New(NameLocal, ModeLocal, seed, cfg, opts...)
			},
		},
		datasource.Descriptor{
			Name:         NameNet,
			Dependencies: datasource.Dependencies{datasource.DepFilesystem, datasource.DepNetwork},
			New: func(cfg config.Config) datasource.Provider {
				return New(NameNet, ModeNet, seed, cfg, opts...)
			},
		},
	)
}

// Probe implements datasource.Provider.
func (p *Provider) Probe(ctx context.Context) (*datasource.Snapshot, error) {
	var (
		md    map[string]any
		ud    []byte
		found string
	)

	if fi, err := os.Stat(p.seedDir); err == nil && fi.IsDir() {
		m, u, err := p.readDir(p.seedDir)
		switch {
		case err == nil:
			md, ud, found = m, u, p.seedDir
		case datasource.IsNotFound(err):
			slog.Info("seed directory is not a config drive, skipping", "path", p.seedDir)
		default:
			return nil, err
		}
	}

	if found == "" {
		dev, err := p.deviceName(ctx)
		if err != nil {
			return nil, err
		}
		if dev != "" {
			slog.Info("attempting to mount possible config drive", "device", dev)
			m, u, err := p.readDevice(dev)
			if err != nil {
				slog.Info("device is not a config drive, skipping", "device", dev, "error", err)
			} else {
				md, ud, found = m, u, dev
			}
		}
	}

	if found == "" {
		return nil, datasource.NotFound(p.name, "no config drive found")
	}

	if _, ok := md["dsmode"]; !ok {
		md["dsmode"] = defaultMode
	}
	if _, ok := md[datasource.KeyInstanceID]; !ok {
		md[datasource.KeyInstanceID] = defaultInstanceID
	}

	var cfg map[string]any
	if c, ok := md["dscfg"].(map[string]any); ok {
		cfg = c
	}

	if mode := fmt.Sprint(md["dsmode"]); mode != p.mode {
		slog.Debug("not claiming config drive", "provider", p.name, "dsmode", mode)
		return nil, datasource.NotFound(p.name, "dsmode "+mode+" does not match "+p.mode)
	}

	return &datasource.Snapshot{
		Provider:    p.name,
		Mode:        p.mode,
		Seed:        found,
		Metadata:    md,
		UserDataRaw: ud,
		Config:      cfg,
	}, nil
}

// deviceName returns the override device, or the lexically last whole
// block device carrying vfat. Newly attached volumes sort last.
func (p *Provider) deviceName(ctx context.Context) (string, error) {
	if dev := os.Getenv(defaults.EnvConfigDriveDevice); dev != "" {
		return dev, nil
	}
	if p.device != "" {
		return p.device, nil
	}

	scanCtx, cancel := context.WithTimeout(ctx, defaults.BlockDeviceScanTimeout)
	defer cancel()

	devs, err := p.findDevices(scanCtx)
	if err != nil {
		slog.Debug("block device scan failed", "error", err)
		return "", nil
	}
	return lastWholeDevice(devs), nil
}

func lastWholeDevice(devs []string) string {
	whole := make([]string, 0, len(devs))
	for _, d := range devs {
		if d == "" {
			continue
		}
		if c := d[len(d)-1]; c >= 'a' && c <= 'z' {
			whole = append(whole, d)
		}
	}
	if len(whole) == 0 {
		return ""
	}
	sort.Strings(whole)
	return whole[len(whole)-1]
}

// readDevice mounts dev on a scratch directory, reads it, and always
// unmounts before returning.
func (p *Provider) readDevice(dev string) (map[string]any, []byte, error) {
	tmp, err := os.MkdirTemp("", defaults.AppName+"-cd-")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create mount point: %w", err)
	}
	defer os.Remove(tmp)

	if err := p.mounter.Mount(dev, tmp); err != nil {
		return nil, nil, fmt.Errorf("failed to mount %s: %w", dev, err)
	}
	defer func() {
		if err := p.mounter.Unmount(tmp); err != nil {
			slog.Warn("failed to unmount config drive", "device", dev, "path", tmp, "error", err)
		}
	}()

	return p.readDir(tmp)
}

// readDir reads meta.js from dir. A directory without a readable JSON
// meta.js is not a config drive.
func (p *Provider) readDir(dir string) (map[string]any, []byte, error) {
	path := filepath.Join(dir, metaFile)
	fi, err := os.Stat(path)
	if err != nil || !fi.Mode().IsRegular() {
		return nil, nil, datasource.NotFound(p.name, dir+": no "+metaFile)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil, datasource.NotFound(p.name, dir+": no "+metaFile)
		}
		return nil, nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var meta map[string]any
	if err := json.Unmarshal(content, &meta); err != nil {
		return nil, nil, datasource.NotFound(p.name, dir+": invalid json in "+metaFile)
	}

	md := map[string]any{"meta_js": string(content)}
	for _, k := range copiedKeys {
		if v, ok := meta[k]; ok {
			md[k] = v
		}
	}

	var ud []byte
	if v, ok := meta["user-data"].(string); ok {
		ud = []byte(v)
	}
	return md, ud, nil
}
