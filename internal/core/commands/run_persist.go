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

// This file defines the command that records a finished project run.
//
// Logic Flow:
// The workflow finalizes the *model.ProjectRun under KeyRun and runs this
// command last, whatever the outcome of the run. The record is handed to a
// RunRecorder (BigQuery in production, see services.RunStore) and a failed
// write is reported without changing the run's status.
package commands

import (
	"context"
	"fmt"

	"github.com/jaycherian/gcp-go-media-composer/internal/core/cor"
	"github.com/jaycherian/gcp-go-media-composer/internal/core/model"
)

// RunRecorder stores finished runs.
type RunRecorder interface {
	Save(ctx context.Context, run *model.ProjectRun) error
}

type RunPersist struct {
	cor.BaseCommand
	recorder RunRecorder
}

func NewRunPersist(name string, recorder RunRecorder) *RunPersist {
	out := &RunPersist{BaseCommand: *cor.NewBaseCommand(name), recorder: recorder}
	out.InputParamName = KeyRun
	return out
}

func (c *RunPersist) IsExecutable(chCtx cor.Context) bool {
	return c.recorder != nil && c.BaseCommand.IsExecutable(chCtx)
}

func (c *RunPersist) Execute(chCtx cor.Context) {
	run, ok := chCtx.Get(KeyRun).(*model.ProjectRun)
	if !ok {
		chCtx.AddError(c.GetName(), fmt.Errorf("%s is not a project run", KeyRun))
		return
	}
	if err := c.recorder.Save(chCtx.GetContext(), run); err != nil {
		c.GetErrorCounter().Add(chCtx.GetContext(), 1)
		Emit(chCtx, model.StageComplete, model.SeverityWarning, "Failed to record run %s: %v", run.Id, err)
		chCtx.AddError(c.GetName(), fmt.Errorf("run %s: %w", run.Id, err))
		return
	}
	c.GetSuccessCounter().Add(chCtx.GetContext(), 1)
	chCtx.Add(c.GetOutputParam(), run)
}
