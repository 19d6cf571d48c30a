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

package builtin

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"

	"golang.org/x/time/rate"

	"github.com/NVIDIA/condense/pkg/config"
	"github.com/NVIDIA/condense/pkg/defaults"
	"github.com/NVIDIA/condense/pkg/modules"
)

// notAvailable is posted for requested keys that have no value.
const notAvailable = "N/A"

var defaultPostKeys = []string{"pub_key_dsa", "pub_key_rsa", "pub_key_ecdsa", "instance_id", "hostname"}

var hostKeyFiles = map[string]string{
	"pub_key_dsa":   "/etc/ssh/ssh_host_dsa_key.pub",
	"pub_key_rsa":   "/etc/ssh/ssh_host_rsa_key.pub",
	"pub_key_ecdsa": "/etc/ssh/ssh_host_ecdsa_key.pub",
}

type phoneHome struct {
	env *env
}

// Handle posts instance facts to the phone_home url. The settings come
// from the file named by the first argument or the phone_home key.
func (p *phoneHome) Handle(ctx context.Context, _ string, cfg config.Config, cloud modules.Cloud, log *slog.Logger, args []string) error {
	var ph config.Config
	if len(args) > 0 {
		c, err := config.ReadFile(args[0])
		if err != nil {
			return err
		}
		ph = c
	} else {
		if !cfg.Has("phone_home") {
			return nil
		}
		ph = cfg.Map("phone_home")
	}

	target := ph.String("url", "")
	if target == "" {
		log.Warn("no url in phone_home")
		return nil
	}

	tries := ph.Int("tries", defaults.PhoneHomeTries)
	if tries < 1 {
		log.Warn("tries is not a positive integer, using default", "tries", tries)
		tries = defaults.PhoneHomeTries
	}

	postList := defaultPostKeys
	if ph.String("post", "all") != "all" {
		postList = ph.StringList("post")
	}

	all := map[string]string{
		"instance_id": cloud.InstanceID(),
		"hostname":    cloud.Hostname(false),
	}
	for k, path := range hostKeyFiles {
		b, err := os.ReadFile(p.env.path(path))
		if err != nil {
			log.Warn("failed to read host key", "path", path, "error", err)
			continue
		}
		all[k] = string(b)
	}

	submit := url.Values{}
	for _, k := range postList {
		v, ok := all[k]
		if !ok {
			log.Warn("requested key from post list not available", "key", k)
			v = notAvailable
		}
		submit.Set(k, v)
	}

	target = Render(target, map[string]string{"INSTANCE_ID": all["instance_id"]})
	return p.post(ctx, target, submit, tries, log)
}

func (p *phoneHome) post(ctx context.Context, target string, values url.Values, tries int, log *slog.Logger) error {
	limiter := rate.NewLimiter(rate.Every(p.env.retryInterval), 1)
	var lastErr error
	for i := 1; i <= tries; i++ {
		if err := limiter.Wait(ctx); err != nil {
			if lastErr == nil {
				lastErr = err
			}
			break
		}
		if _, err := p.env.client.PostForm(ctx, target, values); err != nil {
			log.Warn("failed to post phone home", "url", target, "try", i, "error", err)
			lastErr = err
			continue
		}
		log.Debug("posted phone home", "url", target, "try", i)
		return nil
	}
	return fmt.Errorf("failed to post to %s in %d tries: %w", target, tries, lastErr)
}
