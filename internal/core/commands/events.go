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

package commands

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jaycherian/gcp-go-media-composer/internal/core/cor"
	"github.com/jaycherian/gcp-go-media-composer/internal/core/model"
)

// Emit publishes a progress event to the sink stored under KeyEvents and
// mirrors it to slog at the matching level.
func Emit(ctx cor.Context, stage model.Stage, severity model.Severity, format string, args ...any) {
	event := model.ProgressEvent{
		Stage:    stage,
		Severity: severity,
		Message:  fmt.Sprintf(format, args...),
		Time:     time.Now(),
	}
	if p := projectFrom(ctx); p != nil {
		event.RunId = p.RunId
	}

	level := slog.LevelInfo
	switch severity {
	case model.SeverityWarning:
		level = slog.LevelWarn
	case model.SeverityError:
		level = slog.LevelError
	}
	goCtx := ctx.GetContext()
	if goCtx == nil {
		goCtx = context.Background()
	}
	slog.Log(goCtx, level, event.Message, "stage", stage, "run_id", event.RunId)

	if sink, ok := ctx.Get(KeyEvents).(model.EventSink); ok && sink != nil {
		sink.Publish(event)
	}
}
