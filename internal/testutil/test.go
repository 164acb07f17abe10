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

// Package test provides configuration helpers, sample payloads and in-memory
// fakes so the suites can run a whole project without cloud access.
package test

import (
	"context"
	"sync"

	"github.com/jaycherian/gcp-go-media-composer/internal/cloud"
	"github.com/jaycherian/gcp-go-media-composer/internal/core/cor"
	"github.com/jaycherian/gcp-go-media-composer/internal/core/model"
)

// NewConfig is a configuration for runs against the fakes: no cloud project,
// a 30 second default target and background music disabled.
func NewConfig() *cloud.Config {
	config := cloud.NewConfig()
	config.Application.Name = "media-composer-test"
	config.Assembly.DefaultTargetDuration = 30
	return config
}

// GetTestProjectMessageText is a Pub/Sub project request whose only file is
// staged in GCS.
func GetTestProjectMessageText() string {
	return `{
  "run_id": "test-run-001",
  "description": "A product demo of the new espresso machine",
  "target_duration": 30,
  "files": [
    {
      "name": "demo-intro.mp4",
      "description": "Unboxing and first shot",
      "bucket": "media_composer_uploads",
      "object": "incoming/demo-intro.mp4"
    }
  ]
}`
}

// NewChainContext returns a cor context carrying a background Go context and
// an EventRecorder under the events key.
func NewChainContext(eventsKey string) (cor.Context, *EventRecorder) {
	rec := &EventRecorder{}
	chCtx := cor.NewBaseContext()
	chCtx.SetContext(context.Background())
	chCtx.Add(eventsKey, model.EventSink(rec))
	return chCtx, rec
}

// EventRecorder is a model.EventSink that keeps every event.
type EventRecorder struct {
	mu     sync.Mutex
	events []model.ProgressEvent
}

func (r *EventRecorder) Publish(event model.ProgressEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *EventRecorder) Events() []model.ProgressEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.ProgressEvent(nil), r.events...)
}

// Count returns how many events have the given severity.
func (r *EventRecorder) Count(severity model.Severity) int {
	n := 0
	for _, e := range r.Events() {
		if e.Severity == severity {
			n++
		}
	}
	return n
}
