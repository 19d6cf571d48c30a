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

package logging

import (
	"io"
	"log"
	"log/slog"
	"os"
	"strings"
)

const (
	keyModule  = "module"
	keyVersion = "version"
)

// ParseLogLevel converts a case-insensitive level name into a slog.Level.
// Unknown or empty values map to INFO.
func ParseLogLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewStructuredLogger creates a JSON logger writing to stderr with module and
// version attributes attached to every record.
func NewStructuredLogger(module, version, level string) *slog.Logger {
	return NewStructuredLoggerWithOutput(module, version, level, os.Stderr)
}

// NewStructuredLoggerWithOutput is NewStructuredLogger with an explicit writer.
func NewStructuredLoggerWithOutput(module, version, level string, w io.Writer) *slog.Logger {
	if w == nil {
		w = os.Stderr
	}
	lvl := ParseLogLevel(level)
	h := slog.NewJSONHandler(w, &slog.HandlerOptions{
		AddSource: lvl <= slog.LevelDebug,
		Level:     lvl,
	})
	return slog.New(h).With(
		slog.String(keyModule, module),
		slog.String(keyVersion, version),
	)
}

// SetDefaultStructuredLogger installs a structured logger as the slog default,
// taking the level from LOG_LEVEL.
func SetDefaultStructuredLogger(module, version string) {
	SetDefaultStructuredLoggerWithLevel(module, version, os.Getenv("LOG_LEVEL"))
}

// SetDefaultStructuredLoggerWithLevel installs a structured logger with an
// explicit level as the slog default.
func SetDefaultStructuredLoggerWithLevel(module, version, level string) {
	slog.SetDefault(NewStructuredLogger(module, version, level))
}

// SetDefaultStructuredLoggerWithOutput installs a structured logger writing to w
// as the slog default.
func SetDefaultStructuredLoggerWithOutput(module, version, level string, w io.Writer) {
	slog.SetDefault(NewStructuredLoggerWithOutput(module, version, level, w))
}

// NewLogLogger returns a standard library logger that forwards to the default
// slog handler at the given level.
func NewLogLogger(level slog.Level, withFlags bool) *log.Logger {
	l := slog.NewLogLogger(slog.Default().Handler(), level)
	if !withFlags {
		l.SetFlags(0)
	}
	return l
}

// OpenLogFile opens path for appending and returns a writer that duplicates
// output to stderr. When the file cannot be opened, stderr is returned alone
// together with the error so the caller can decide whether to warn.
func OpenLogFile(path string) (io.Writer, io.Closer, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return os.Stderr, io.NopCloser(nil), err
	}
	return io.MultiWriter(os.Stderr, f), f, nil
}
