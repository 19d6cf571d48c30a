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
	"context"
	"fmt"
	"log/slog"
	"slices"

	"go.uber.org/multierr"

	cerrors "github.com/NVIDIA/condense/pkg/errors"
	"github.com/NVIDIA/condense/pkg/semaphore"
	"github.com/NVIDIA/condense/pkg/userdata"
)

// PartHandler consumes user-data parts of the content types it lists.
//
// For each dispatch, Begin is called once before any part, HandlePart once
// per matching part, and End once after the last part, even when earlier
// calls failed. All three are skipped when the handler's frequency does not
// admit the dispatch frequency.
type PartHandler interface {
	Name() string
	ContentTypes() []string
	Frequency() semaphore.Frequency
	Begin(ctx context.Context) error
	HandlePart(ctx context.Context, part userdata.Part) error
	End(ctx context.Context) error
}

// Dispatcher routes parts to registered handlers by content type.
type Dispatcher struct {
	handlers []PartHandler
	byType   map[string][]PartHandler
}

// NewDispatcher returns an empty Dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{byType: make(map[string][]PartHandler)}
}

// Register adds h for each of its content types. Handlers registered
// earlier are called first for a shared type, so built-in handlers are
// registered before any others. Registering the same handler twice is a
// no-op.
func (d *Dispatcher) Register(h PartHandler) {
	if slices.Contains(d.handlers, h) {
		return
	}
	d.handlers = append(d.handlers, h)
	for _, ct := range h.ContentTypes() {
		d.byType[ct] = append(d.byType[ct], h)
	}
}

// Handlers returns the registered handlers in registration order.
func (d *Dispatcher) Handlers() []PartHandler {
	return append([]PartHandler(nil), d.handlers...)
}

// admits reports whether a handler of frequency hf takes part in a
// dispatch at frequency run.
func admits(hf, run semaphore.Frequency) bool {
	return hf == semaphore.Always || (hf == semaphore.PerInstance && run == semaphore.PerInstance)
}

// Dispatch runs the begin, handle and end phases over parts at frequency
// freq. Handler failures are logged and collected but never stop the walk;
// the returned error aggregates them.
func (d *Dispatcher) Dispatch(ctx context.Context, parts []userdata.Part, freq semaphore.Frequency) error {
	var errs error
	record := func(h PartHandler, phase string, part *userdata.Part, err error) {
		if err == nil {
			return
		}
		ctxInfo := map[string]any{"handler": h.Name(), "phase": phase}
		if part != nil {
			ctxInfo["contentType"] = part.ContentType
			ctxInfo["filename"] = part.Filename
		}
		wrapped := cerrors.WrapWithContext(cerrors.ErrCodeHandlerFailure,
			fmt.Sprintf("part handler %s failed in %s", h.Name(), phase), err, ctxInfo)
		slog.Warn("part handler failed", "handler", h.Name(), "phase", phase, "error", err)
		errs = multierr.Append(errs, wrapped)
	}

	active := make([]PartHandler, 0, len(d.handlers))
	for _, h := range d.handlers {
		if admits(h.Frequency(), freq) {
			active = append(active, h)
		}
	}

	for _, h := range active {
		record(h, "begin", nil, h.Begin(ctx))
	}

	for i := range parts {
		part := &parts[i]
		handlers := d.byType[part.ContentType]
		if len(handlers) == 0 {
			slog.Debug("no handler for part", "contentType", part.ContentType, "filename", part.Filename)
			continue
		}
		for _, h := range handlers {
			if !admits(h.Frequency(), freq) {
				continue
			}
			record(h, "handle", part, h.HandlePart(ctx, *part))
		}
	}

	for _, h := range active {
		record(h, "end", nil, h.End(ctx))
	}

	return errs
}
