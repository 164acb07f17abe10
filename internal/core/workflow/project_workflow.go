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

// Package workflow chains the commands of a project run into one pipeline
// and turns its outcome into a finished model.ProjectRun.
package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"text/template"
	"time"

	"cloud.google.com/go/storage"
	"github.com/jaycherian/gcp-go-media-composer/internal/cloud"
	"github.com/jaycherian/gcp-go-media-composer/internal/core/commands"
	"github.com/jaycherian/gcp-go-media-composer/internal/core/cor"
	"github.com/jaycherian/gcp-go-media-composer/internal/core/model"
	"github.com/jaycherian/gcp-go-media-composer/internal/core/services"
	"github.com/jaycherian/gcp-go-media-composer/internal/media"
	"github.com/samber/lo"
	"go.opentelemetry.io/otel/attribute"
)

// Dependencies are the collaborators of a ProjectWorkflow. Only Media is
// required: without Planner every run uses the fallback plan, without Stager
// files are uploaded directly, without Recorder runs are not persisted and
// without Storage GCS-staged files cannot be downloaded.
type Dependencies struct {
	Media    media.Service
	Planner  commands.Completer
	Stager   commands.Stager
	Storage  *storage.Client
	Recorder commands.RunRecorder
	Tracker  *services.RunTracker
}

// ProjectWorkflow executes one project run:
//
//  1. ingest every uploaded file into the media service,
//  2. plan the edit with the language model (or the fallback plan),
//  3. generate the voice-over and other requested content,
//  4. assemble the render timeline,
//  5. render it through the fallback ladder,
//
// and then records the run as completed, no_result or failed. As a
// cor.Command it is the Pub/Sub entry point: the trigger message is parsed
// and GCS-staged files are downloaded before the run starts.
type ProjectWorkflow struct {
	cor.BaseCommand
	config   *cloud.Config
	deps     Dependencies
	trigger  cor.Chain
	stages   cor.Chain
	recorder *commands.RunPersist
	slots    chan struct{} // nil means unbounded
}

func NewProjectWorkflow(config *cloud.Config, deps Dependencies) (*ProjectWorkflow, error) {
	planPrompt, err := commands.NewPlanPromptTemplate(config.PromptTemplates.ContentPlan)
	if err != nil {
		return nil, fmt.Errorf("content plan prompt: %w", err)
	}
	var scenePrompt *template.Template
	if config.PromptTemplates.SceneIndex != "" {
		if scenePrompt, err = template.New("scene-index").Parse(config.PromptTemplates.SceneIndex); err != nil {
			return nil, fmt.Errorf("scene index prompt: %w", err)
		}
	}

	w := &ProjectWorkflow{
		BaseCommand: *cor.NewBaseCommand("project-workflow"),
		config:      config,
		deps:        deps,
	}

	trigger := cor.NewBaseChain("project-trigger")
	trigger.AddCommand(commands.NewProjectTriggerReader("project-trigger-reader", config.TargetDurationOrDefault(0)))
	trigger.AddCommand(commands.NewStagedFilesToTemp("staged-files-to-temp", deps.Storage, "project-upload-"))
	w.trigger = trigger

	stages := cor.NewBaseChain("project-stages")
	stages.AddCommand(commands.NewAssetIngestion("asset-ingestion", deps.Media, deps.Stager, scenePrompt))
	stages.AddCommand(commands.NewContentPlanner("content-planner", deps.Planner, planPrompt))
	stages.AddCommand(commands.NewContentGenerator("content-generator", deps.Media,
		config.Assembly.EnableBackgroundMusic, config.Assembly.MusicPrompt))
	stages.AddCommand(commands.NewTimelineAssembler("timeline-assembler", config.Assembly.EnableBackgroundMusic))
	stages.AddCommand(commands.NewRenderLadder("render-ladder", deps.Media))
	w.stages = stages

	if deps.Recorder != nil {
		w.recorder = commands.NewRunPersist("run-persist", deps.Recorder)
	}
	if n := config.Application.ThreadPoolSize; n > 0 {
		w.slots = make(chan struct{}, n)
	}
	return w, nil
}

// Execute runs a Pub/Sub triggered project. CtxIn holds the message text.
func (w *ProjectWorkflow) Execute(chCtx cor.Context) {
	w.trigger.Execute(chCtx)
	if chCtx.HasErrors() {
		return
	}
	req, ok := chCtx.Get(commands.KeyProject).(*model.ProjectRequest)
	if !ok {
		chCtx.AddError(w.GetName(), fmt.Errorf("no project request under %s", commands.KeyProject))
		return
	}
	w.execute(chCtx, req)
}

// Start registers a run for req with the tracker and returns it, so callers
// can hand out the run id before Run is called.
func (w *ProjectWorkflow) Start(req *model.ProjectRequest) *model.ProjectRun {
	req.TargetDuration = w.config.TargetDurationOrDefault(req.TargetDuration)
	run := model.NewProjectRun(req)
	if w.deps.Tracker != nil {
		w.deps.Tracker.Track(run)
	}
	return run
}

// Run executes req to completion on a fresh chain context and returns the
// finished run record.
func (w *ProjectWorkflow) Run(ctx context.Context, req *model.ProjectRequest) *model.ProjectRun {
	chCtx := cor.NewBaseContext()
	defer chCtx.Close()
	chCtx.SetContext(ctx)
	return w.execute(chCtx, req)
}

// execute waits for a free slot when the number of concurrent runs is
// capped by application.thread_pool_size.
func (w *ProjectWorkflow) execute(chCtx cor.Context, req *model.ProjectRequest) *model.ProjectRun {
	run := w.tracked(req)
	if err := w.acquire(chCtx.GetContext()); err != nil {
		return w.abort(chCtx, run, err)
	}
	defer w.release()

	run.Status = model.RunRunning
	w.update(run)

	parentCtx := chCtx.GetContext()
	ctx, span := w.Tracer.Start(parentCtx, "project-run")
	defer span.End()
	span.SetAttributes(attribute.String("run_id", run.Id))
	chCtx.SetContext(ctx)
	defer chCtx.SetContext(parentCtx)

	chCtx.Add(commands.KeyProject, req)
	chCtx.Add(commands.KeyEvents, w.sink())

	w.stages.Execute(chCtx)
	w.finalize(chCtx, run)

	if w.recorder != nil {
		chCtx.Add(commands.KeyRun, run)
		if w.recorder.IsExecutable(chCtx) {
			w.recorder.Execute(chCtx)
		}
	}
	if w.deps.Tracker != nil {
		w.deps.Tracker.Finish(run)
	}
	slog.InfoContext(ctx, "project run finished", "run_id", run.Id, "status", run.Status, "strategy", run.RenderStrategy)
	return run
}

func (w *ProjectWorkflow) acquire(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if w.slots == nil {
		return nil
	}
	select {
	case w.slots <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *ProjectWorkflow) release() {
	if w.slots != nil {
		<-w.slots
	}
}

// abort finishes a run that never started.
func (w *ProjectWorkflow) abort(chCtx cor.Context, run *model.ProjectRun, err error) *model.ProjectRun {
	run.Status = model.RunFailed
	run.Errors = append(run.Errors, fmt.Sprintf("%s: %v", w.GetName(), err))
	run.CompleteDate = time.Now()
	chCtx.AddError(w.GetName(), err)
	if w.deps.Tracker != nil {
		w.deps.Tracker.Finish(run)
	}
	slog.Warn("project run aborted", "run_id", run.Id, "error", err)
	return run
}

func (w *ProjectWorkflow) tracked(req *model.ProjectRequest) *model.ProjectRun {
	if w.deps.Tracker != nil && req.RunId != "" {
		if run, ok := w.deps.Tracker.Get(req.RunId); ok {
			return run
		}
	}
	return w.Start(req)
}

func (w *ProjectWorkflow) update(run *model.ProjectRun) {
	if w.deps.Tracker != nil {
		w.deps.Tracker.Update(run)
	}
}

func (w *ProjectWorkflow) sink() model.EventSink {
	if w.deps.Tracker != nil {
		return w.deps.Tracker
	}
	return model.DiscardEvents
}

// finalize copies the outcome of the stages onto run.
func (w *ProjectWorkflow) finalize(chCtx cor.Context, run *model.ProjectRun) {
	assets, _ := chCtx.Get(commands.KeyAssets).([]model.MediaAsset)
	generated, _ := chCtx.Get(commands.KeyGenerated).([]model.MediaAsset)
	run.Assets = model.NewAssetViews(append(append([]model.MediaAsset{}, assets...), generated...))
	run.PlanSource = commands.PlanSource(chCtx)
	if req, ok := chCtx.Get(commands.KeyRenderRequest).(*model.RenderRequest); ok {
		run.AdjustedDuration = req.AdjustedDuration
		run.TimelineDuration = req.Timeline.Duration()
	}
	run.CompleteDate = time.Now()

	url, _ := chCtx.Get(commands.KeyRenderURL).(string)
	switch {
	case chCtx.HasErrors():
		run.Status = model.RunFailed
		run.Errors = lo.MapToSlice(chCtx.GetErrors(), func(k string, err error) string {
			return fmt.Sprintf("%s: %v", k, err)
		})
		run.Hints = append([]string(nil), model.RemediationHints...)
		commands.Emit(chCtx, model.StageComplete, model.SeverityError, "Video creation failed")
	case url != "":
		run.Status = model.RunCompleted
		run.RenderURL = url
		run.RenderStrategy, _ = chCtx.Get(cor.WinnerParam).(string)
		commands.Emit(chCtx, model.StageComplete, model.SeveritySuccess, "Video ready: %s", url)
	default:
		run.Status = model.RunNoResult
		run.Hints = append([]string(nil), model.RemediationHints...)
		commands.Emit(chCtx, model.StageComplete, model.SeverityWarning, "No video could be rendered")
	}
}
