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

package semaphore

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	cerrors "github.com/NVIDIA/condense/pkg/errors"
)

// Marker is the content of an acquired semaphore file.
type Marker struct {
	Acquired time.Time
	PID      int
	RunID    string
}

// Option is a functional option for configuring a Store.
type Option func(*Store)

// WithRunID records the invocation id in every marker written by the store.
func WithRunID(id string) Option {
	return func(s *Store) {
		s.runID = id
	}
}

// WithClock overrides the time source used for marker timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// Store is a filesystem-backed idempotency guard.
//
// Markers for PerInstance actions live in the instance semaphore directory,
// which changes whenever the instance id changes. Markers for every other
// frequency live in the shared directory as "<name>.<frequency>".
//
// Acquisition uses exclusive file creation, so two processes racing for the
// same marker cannot both succeed. There is no lock beyond that: a process
// that dies after acquiring leaves the marker in place.
type Store struct {
	instanceDir string
	sharedDir   string
	runID       string
	now         func() time.Time
}

// New creates a Store. instanceDir may be empty before an instance is known,
// in which case PerInstance markers cannot be acquired.
func New(instanceDir, sharedDir string, opts ...Option) *Store {
	s := &Store{
		instanceDir: instanceDir,
		sharedDir:   sharedDir,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Path returns the marker file for name at freq.
func (s *Store) Path(name string, freq Frequency) string {
	if freq == PerInstance {
		return filepath.Join(s.instanceDir, name)
	}
	return filepath.Join(s.sharedDir, name+"."+string(freq))
}

// HasRun reports whether name already ran at freq. Always never has.
func (s *Store) HasRun(name string, freq Frequency) bool {
	if freq == Always {
		return false
	}
	if freq == PerInstance && s.instanceDir == "" {
		return false
	}
	_, err := os.Stat(s.Path(name, freq))
	return err == nil
}

// Acquire creates the marker for name at freq. It returns false when a marker
// already exists or the marker cannot be written. Always succeeds without
// touching the filesystem.
func (s *Store) Acquire(name string, freq Frequency) bool {
	if freq == Always {
		return true
	}
	if freq == PerInstance && s.instanceDir == "" {
		slog.Warn("no current instance, cannot acquire semaphore", "name", name)
		return false
	}

	path := s.Path(name, freq)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		slog.Warn("failed to create semaphore directory", "path", path, "error", err)
		return false
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if !errors.Is(err, fs.ErrExist) {
			slog.Warn("failed to create semaphore", "path", path, "error", err)
		}
		return false
	}
	defer f.Close()

	if _, err := f.Write(s.encode()); err != nil {
		slog.Warn("failed to write semaphore", "path", path, "error", err)
		_ = os.Remove(path)
		return false
	}

	slog.Debug("acquired semaphore", "path", path)
	return true
}

// Clear removes the marker for name at freq. A missing marker is success.
func (s *Store) Clear(name string, freq Frequency) bool {
	if freq == Always {
		return true
	}
	path := s.Path(name, freq)
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("failed to clear semaphore", "path", path, "error", err)
		return false
	}
	slog.Debug("cleared semaphore", "path", path)
	return true
}

// Read returns the marker recorded for name at freq.
func (s *Store) Read(name string, freq Frequency) (*Marker, error) {
	b, err := os.ReadFile(s.Path(name, freq))
	if err != nil {
		return nil, err
	}
	return decode(b)
}

// RunGuarded runs action unless name already ran at freq. It reports whether
// action was invoked. When the marker cannot be acquired action is not run and
// a LOCK_NOT_ACQUIRED error is returned. When action fails and clearOnFailure
// is set the marker is removed so the next invocation retries; otherwise the
// failed attempt stays recorded.
func (s *Store) RunGuarded(name string, freq Frequency, action func() error, clearOnFailure bool) (bool, error) {
	if s.HasRun(name, freq) {
		slog.Debug("already ran", "name", name, "frequency", freq)
		return false, nil
	}

	if !s.Acquire(name, freq) {
		return false, cerrors.NewWithContext(cerrors.ErrCodeLockNotAcquired,
			fmt.Sprintf("failed to acquire lock on %s", name),
			map[string]any{"frequency": string(freq), "path": s.Path(name, freq)})
	}

	if err := action(); err != nil {
		if clearOnFailure {
			s.Clear(name, freq)
		}
		return true, err
	}
	return true, nil
}

// List returns the names of markers present in both namespaces, instance
// markers first, each sorted by name.
func (s *Store) List() []string {
	var out []string
	for _, dir := range []string{s.instanceDir, s.sharedDir} {
		if dir == "" {
			continue
		}
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, e := range entries {
			if !e.IsDir() {
				out = append(out, e.Name())
			}
		}
	}
	return out
}

func (s *Store) encode() []byte {
	ts := float64(s.now().UnixNano()) / float64(time.Second)
	lines := []string{
		strconv.FormatFloat(ts, 'f', 6, 64),
		strconv.Itoa(os.Getpid()),
	}
	if s.runID != "" {
		lines = append(lines, s.runID)
	}
	return []byte(strings.Join(lines, "\n"))
}

func decode(b []byte) (*Marker, error) {
	sc := bufio.NewScanner(bytes.NewReader(b))
	var lines []string
	for sc.Scan() {
		lines = append(lines, strings.TrimSpace(sc.Text()))
	}
	if len(lines) < 2 {
		return nil, fmt.Errorf("malformed semaphore marker: %d lines", len(lines))
	}

	ts, err := strconv.ParseFloat(lines[0], 64)
	if err != nil {
		return nil, fmt.Errorf("malformed semaphore timestamp: %w", err)
	}
	pid, err := strconv.Atoi(lines[1])
	if err != nil {
		return nil, fmt.Errorf("malformed semaphore pid: %w", err)
	}

	m := &Marker{
		Acquired: time.Unix(0, int64(ts*float64(time.Second))),
		PID:      pid,
	}
	if len(lines) > 2 {
		m.RunID = lines[2]
	}
	return m, nil
}
