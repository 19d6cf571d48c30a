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

package systemd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/coreos/go-systemd/v22/dbus"
	"go.uber.org/multierr"
)

// jobModeReplace queues the start job, replacing conflicting jobs.
const jobModeReplace = "replace"

// Notify sends a state string to the service manager. It reports false
// when the process was not started with a notification socket.
type Notify func(unsetEnvironment bool, state string) (bool, error)

// Notifier reports readiness and progress to the service manager.
type Notifier struct {
	notify Notify
}

// NewNotifier returns a Notifier using sd_notify, or fn when not nil.
func NewNotifier(fn Notify) *Notifier {
	if fn == nil {
		fn = daemon.SdNotify
	}
	return &Notifier{notify: fn}
}

// Ready signals that the stage completed with a human readable status.
func (n *Notifier) Ready(status string) {
	n.send(daemon.SdNotifyReady + "\nSTATUS=" + status)
}

// Status updates the status line shown by systemctl.
func (n *Notifier) Status(status string) {
	n.send("STATUS=" + status)
}

func (n *Notifier) send(state string) {
	sent, err := n.notify(false, state)
	switch {
	case err != nil:
		slog.Warn("failed to notify service manager", "error", err)
	case !sent:
		slog.Debug("notification socket not available, skipping notify")
	}
}

// UnitConn is the subset of the systemd D-Bus API used to start units.
type UnitConn interface {
	StartUnitContext(ctx context.Context, name, mode string, ch chan<- string) (int, error)
	GetUnitPropertyContext(ctx context.Context, unit, propertyName string) (*dbus.Property, error)
	Close()
}

// Connect opens a UnitConn.
type Connect func(ctx context.Context) (UnitConn, error)

// Units starts and inspects systemd units over D-Bus.
type Units struct {
	connect Connect
}

// NewUnits returns Units using the system bus, or connect when not nil.
func NewUnits(connect Connect) *Units {
	if connect == nil {
		connect = func(ctx context.Context) (UnitConn, error) {
			return dbus.NewSystemdConnectionContext(ctx)
		}
	}
	return &Units{connect: connect}
}

// Start starts every unit in order and waits for each job to finish. A
// unit that fails to start does not prevent the remaining ones.
func (u *Units) Start(ctx context.Context, units []string) error {
	if len(units) == 0 {
		return nil
	}

	conn, err := u.connect(ctx)
	if err != nil {
		return fmt.Errorf("failed to connect to systemd: %w", err)
	}
	defer conn.Close()

	var errs error
	for _, unit := range units {
		done := make(chan string, 1)
		if _, err := conn.StartUnitContext(ctx, unit, jobModeReplace, done); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("failed to start %s: %w", unit, err))
			continue
		}
		select {
		case result := <-done:
			if result != "done" {
				errs = multierr.Append(errs, fmt.Errorf("start job for %s finished with %s", unit, result))
				continue
			}
			slog.Info("started unit", "unit", unit)
		case <-ctx.Done():
			return multierr.Append(errs, ctx.Err())
		}
	}
	return errs
}

// ActiveStates returns the ActiveState property of each unit. Units whose
// state cannot be read are reported as "unknown".
func (u *Units) ActiveStates(ctx context.Context, units []string) (map[string]string, error) {
	states := make(map[string]string, len(units))
	if len(units) == 0 {
		return states, nil
	}

	conn, err := u.connect(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to systemd: %w", err)
	}
	defer conn.Close()

	for _, unit := range units {
		prop, err := conn.GetUnitPropertyContext(ctx, unit, "ActiveState")
		if err != nil || prop == nil {
			slog.Debug("failed to read unit state", "unit", unit, "error", err)
			states[unit] = "unknown"
			continue
		}
		states[unit] = fmt.Sprint(prop.Value.Value())
	}
	return states, nil
}
