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

package handler

import (
	"bytes"
	"context"
	"log/slog"

	"github.com/NVIDIA/condense/pkg/defaults"
	"github.com/NVIDIA/condense/pkg/semaphore"
	"github.com/NVIDIA/condense/pkg/serializer"
	"github.com/NVIDIA/condense/pkg/userdata"
)

// CloudConfig joins every text/cloud-config part into one document, each
// chunk preceded by a "#<filename>" line, and writes it on End.
type CloudConfig struct {
	path string
	buf  bytes.Buffer
}

// NewCloudConfig returns a handler writing the joined document to path.
func NewCloudConfig(path string) *CloudConfig {
	return &CloudConfig{path: path}
}

func (c *CloudConfig) Name() string { return "cloud-config" }

func (c *CloudConfig) ContentTypes() []string { return []string{userdata.TypeCloudConfig} }

func (c *CloudConfig) Frequency() semaphore.Frequency { return semaphore.Always }

func (c *CloudConfig) Begin(context.Context) error {
	c.buf.Reset()
	return nil
}

func (c *CloudConfig) HandlePart(_ context.Context, part userdata.Part) error {
	c.buf.WriteString("\n#")
	c.buf.WriteString(part.Filename)
	c.buf.WriteString("\n")
	c.buf.Write(part.Payload)
	return nil
}

func (c *CloudConfig) End(context.Context) error {
	slog.Debug("writing cloud-config", "path", c.path, "bytes", c.buf.Len())
	return serializer.WriteFileAtomic(c.path, c.buf.Bytes(), defaults.PrivateMode)
}
