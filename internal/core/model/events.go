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

package model

import "time"

type Stage string

const (
	StageIngestion  Stage = "ingestion"
	StagePlanning   Stage = "planning"
	StageGeneration Stage = "generation"
	StageAssembly   Stage = "assembly"
	StageRender     Stage = "render"
	StageComplete   Stage = "complete"
)

type Severity string

const (
	SeverityInfo    Severity = "info"
	SeveritySuccess Severity = "success"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// ProgressEvent is one status update of a run. The core publishes events and
// never renders them.
type ProgressEvent struct {
	RunId    string    `json:"run_id"`
	Stage    Stage     `json:"stage"`
	Message  string    `json:"message"`
	Severity Severity  `json:"severity"`
	Time     time.Time `json:"time"`
}

// EventSink receives the progress events of a run.
type EventSink interface {
	Publish(event ProgressEvent)
}

// EventSinkFunc adapts a function to an EventSink.
type EventSinkFunc func(event ProgressEvent)

func (f EventSinkFunc) Publish(event ProgressEvent) {
	f(event)
}

// DiscardEvents drops everything.
var DiscardEvents EventSink = EventSinkFunc(func(ProgressEvent) {})
