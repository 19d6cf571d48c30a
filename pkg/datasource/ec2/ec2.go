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

package ec2

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/NVIDIA/condense/pkg/config"
	"github.com/NVIDIA/condense/pkg/datasource"
	"github.com/NVIDIA/condense/pkg/defaults"
	"github.com/NVIDIA/condense/pkg/fetch"
)

const (
	// Family is the datasource_list name of this provider.
	Family = "Ec2"
	Name   = "Ec2"

	DefaultURL     = "http://169.254.169.254"
	DefaultVersion = "2009-04-04"
)

// Option configures a Provider.
type Option func(*Provider)

// WithClient replaces the HTTP client.
func WithClient(c *fetch.Client) Option {
	return func(p *Provider) {
		p.client = c
	}
}

// WithRetryInterval sets the pause between metadata service attempts.
func WithRetryInterval(d time.Duration) Option {
	return func(p *Provider) {
		p.interval = d
	}
}

// Provider reads instance data from an EC2-compatible metadata service.
type Provider struct {
	baseURL  string
	version  string
	maxWait  time.Duration
	timeout  time.Duration
	interval time.Duration
	client   *fetch.Client
}

// New builds a provider from the datasource.Ec2 settings: metadata_url,
// version, max_wait and timeout (seconds).
func New(sysCfg config.Config, opts ...Option) *Provider {
	ds := sysCfg.Map("datasource." + Family)
	p := &Provider{
		baseURL:  strings.TrimRight(ds.String("metadata_url", DefaultURL), "/"),
		version:  ds.String("version", DefaultVersion),
		maxWait:  seconds(ds.Int("max_wait", -1), defaults.MetadataMaxWait),
		timeout:  seconds(ds.Int("timeout", -1), defaults.MetadataRequestTimeout),
		interval: defaults.MetadataRetryInterval,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.client == nil {
		p.client = fetch.New(fetch.WithTotalTimeout(p.timeout))
	}
	return p
}

func seconds(n int, def time.Duration) time.Duration {
	if n < 0 {
		return def
	}
	return time.Duration(n) * time.Second
}

// Register adds the Ec2 variant, which needs filesystem and network.
func Register(reg *datasource.Registry, opts ...Option) {
	reg.Register(Family, datasource.Descriptor{
		Name:         Name,
		Dependencies: datasource.Dependencies{datasource.DepFilesystem, datasource.DepNetwork},
		New: func(cfg config.Config) datasource.Provider {
			return New(cfg, opts...)
		},
	})
}

func (p *Provider) url(path string) string {
	return p.baseURL + "/" + p.version + "/" + path
}

// Probe implements datasource.Provider.
func (p *Provider) Probe(ctx context.Context) (*datasource.Snapshot, error) {
	if !p.waitForService(ctx) {
		return nil, datasource.NotFound(Name, "metadata service unreachable at "+p.baseURL)
	}

	md, err := p.metadata(ctx)
	if err != nil {
		return nil, err
	}

	ud, err := p.client.Get(ctx, p.url("user-data"))
	if err != nil {
		if !fetch.IsStatus(err, http.StatusNotFound) {
			return nil, err
		}
		ud = nil
	}

	return &datasource.Snapshot{
		Provider:    Name,
		Seed:        p.baseURL,
		Metadata:    md,
		UserDataRaw: ud,
	}, nil
}

// waitForService polls the instance-id endpoint, at most once per interval,
// until it answers or maxWait elapses.
func (p *Provider) waitForService(ctx context.Context) bool {
	if p.maxWait > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.maxWait)
		defer cancel()
	}

	limiter := rate.NewLimiter(rate.Every(p.interval), 1)
	target := p.url("meta-data/instance-id")
	for attempt := 1; ; attempt++ {
		if err := limiter.Wait(ctx); err != nil {
			slog.Debug("giving up on metadata service", "url", target, "attempts", attempt-1)
			return false
		}
		_, err := p.client.Get(ctx, target)
		if err == nil {
			slog.Debug("metadata service reachable", "url", target, "attempts", attempt)
			return true
		}
		slog.Debug("metadata service not ready", "url", target, "attempt", attempt, "error", err)
		if p.maxWait <= 0 {
			return false
		}
	}
}

// metadata reads the flat meta-data listing. Directory entries are skipped.
func (p *Provider) metadata(ctx context.Context) (map[string]any, error) {
	listing, err := p.client.Get(ctx, p.url("meta-data/"))
	if err != nil {
		return nil, err
	}

	md := map[string]any{}
	for _, line := range strings.Split(string(listing), "\n") {
		key := strings.TrimSpace(line)
		if key == "" || strings.HasSuffix(key, "/") {
			continue
		}
		val, err := p.client.Get(ctx, p.url("meta-data/"+key))
		if err != nil {
			if fetch.IsStatus(err, http.StatusNotFound) {
				continue
			}
			return nil, err
		}
		md[key] = strings.TrimSpace(string(val))
	}
	return md, nil
}
