// Copyright 2024 Google, LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


// Package telemetry wires structured logging, tracing and metrics for the
// composer. Logs are JSON in the Cloud Logging structured format and carry
// the trace of the run that produced them.
package telemetry

import (
	"context"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"strings"

	"github.com/jaycherian/gcp-go-media-composer/internal/cloud"
	"go.opentelemetry.io/otel/trace"
)

// traceHandler adds the Cloud Logging trace fields to records logged with a
// span in their context.
type traceHandler struct {
	slog.Handler
	projectId string
}

func (h *traceHandler) Handle(ctx context.Context, record slog.Record) error {
	if s := trace.SpanContextFromContext(ctx); s.IsValid() {
		traceId := s.TraceID().String()
		if h.projectId != "" {
			traceId = fmt.Sprintf("projects/%s/traces/%s", h.projectId, traceId)
		}
		record.AddAttrs(
			slog.String("logging.googleapis.com/trace", traceId),
			slog.String("logging.googleapis.com/spanId", s.SpanID().String()),
			slog.Bool("logging.googleapis.com/trace_sampled", s.TraceFlags().IsSampled()),
		)
	}
	return h.Handler.Handle(ctx, record)
}

func (h *traceHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &traceHandler{Handler: h.Handler.WithAttrs(attrs), projectId: h.projectId}
}

func (h *traceHandler) WithGroup(name string) slog.Handler {
	return &traceHandler{Handler: h.Handler.WithGroup(name), projectId: h.projectId}
}

// cloudLoggingKeys renames the slog keys to the ones Cloud Logging parses.
// https://cloud.google.com/logging/docs/structured-logging#special-payload-fields
func cloudLoggingKeys(_ []string, a slog.Attr) slog.Attr {
	switch a.Key {
	case slog.LevelKey:
		a.Key = "severity"
		if level, ok := a.Value.Any().(slog.Level); ok && level == slog.LevelWarn {
			a.Value = slog.StringValue("WARNING")
		}
	case slog.TimeKey:
		a.Key = "timestamp"
	case slog.MessageKey:
		a.Key = "message"
	}
	return a
}

// ParseLevel maps a configured level name to a slog.Level. Unknown names
// are treated as info.
func ParseLevel(name string) slog.Level {
	switch strings.ToLower(name) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// SetupLogging installs the default slog logger and points the standard log
// package at the same output. When the config names a log file it receives
// a copy of everything written to stdout. The returned func closes it.
func SetupLogging(config *cloud.Config) (func() error, error) {
	var out io.Writer = os.Stdout
	closer := func() error { return nil }
	if name := config.Application.LogFile; name != "" {
		file, err := os.OpenFile(name, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return closer, fmt.Errorf("failed to open log file %s: %w", name, err)
		}
		out = io.MultiWriter(os.Stdout, file)
		closer = file.Close
	}

	log.SetOutput(out)
	log.SetPrefix("[composer] ")
	log.SetFlags(log.Ldate | log.Ltime)

	handler := slog.NewJSONHandler(out, &slog.HandlerOptions{
		Level:       ParseLevel(config.Application.LogLevel),
		ReplaceAttr: cloudLoggingKeys,
	})
	slog.SetDefault(slog.New(&traceHandler{Handler: handler, projectId: config.Application.GoogleProjectId}))
	return closer, nil
}
