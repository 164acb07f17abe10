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
	"errors"
	"log/slog"
	"strings"
	"text/template"

	"github.com/jaycherian/gcp-go-media-composer/internal/core/cor"
	"github.com/jaycherian/gcp-go-media-composer/internal/core/model"
	"go.opentelemetry.io/otel/attribute"
)

// Completer is the language model as the planner sees it.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

const (
	PlanSourceModel    = "model"
	PlanSourceFallback = "fallback"
)

// ContentPlanner asks the language model for a content plan and falls back
// to FallbackPlan whenever the call fails or the answer cannot be parsed. It
// never records an error on the context.
type ContentPlanner struct {
	cor.BaseCommand
	completer Completer
	prompt    *template.Template
}

// NewContentPlanner uses DefaultContentPlanPrompt when prompt is nil. A nil
// completer always produces the fallback plan.
func NewContentPlanner(name string, completer Completer, prompt *template.Template) *ContentPlanner {
	if prompt == nil {
		prompt = template.Must(NewPlanPromptTemplate(""))
	}
	out := &ContentPlanner{
		BaseCommand: *cor.NewBaseCommand(name),
		completer:   completer,
		prompt:      prompt,
	}
	out.InputParamName = KeyAssets
	return out
}

func (c *ContentPlanner) Execute(chCtx cor.Context) {
	project := projectFrom(chCtx)
	assets := assetsFrom(chCtx, KeyAssets)
	description, target := "", model.DefaultTargetDuration
	if project != nil {
		description, target = project.Description, project.TargetDuration
	}

	Emit(chCtx, model.StagePlanning, model.SeverityInfo, "Planning content for %d assets", len(assets))
	plan, err := c.plan(chCtx.GetContext(), assets, description, target)
	if err != nil {
		slog.WarnContext(chCtx.GetContext(), "content planning failed, using fallback plan", "error", err)
		Emit(chCtx, model.StagePlanning, model.SeverityWarning, "Using a basic content plan: %v", err)
		plan = FallbackPlan(assets, description, target)
	}

	source := PlanSourceModel
	if plan.Fallback {
		source = PlanSourceFallback
	}
	Emit(chCtx, model.StagePlanning, model.SeveritySuccess, "Content plan ready: %d segments, %d items to generate",
		len(plan.TimelineStructure), len(plan.ContentToGenerate))

	c.GetSuccessCounter().Add(chCtx.GetContext(), 1)
	chCtx.Add(KeyPlan, plan)
	chCtx.Add(c.GetOutputParam(), plan)
	chCtx.Add(KeyPlanSource, source)
}

// PlanSource returns PlanSourceModel or PlanSourceFallback for the plan the
// run used, or "" before planning.
func PlanSource(chCtx cor.Context) string {
	s, _ := chCtx.Get(KeyPlanSource).(string)
	return s
}

func (c *ContentPlanner) plan(ctx context.Context, assets []model.MediaAsset, description string, target int) (*model.ContentPlan, error) {
	if c.completer == nil {
		return nil, errors.New("no language model configured")
	}

	ctx, span := c.Tracer.Start(ctx, "content-plan-completion")
	defer span.End()

	var prompt strings.Builder
	if err := c.prompt.Execute(&prompt, newPromptData(assets, description, target)); err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Int("prompt_length", prompt.Len()))

	answer, err := c.completer.Complete(ctx, prompt.String())
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	plan, err := ParsePlan(answer)
	if err != nil {
		span.RecordError(err)
		slog.DebugContext(ctx, "unparsable plan", "answer", truncateRunes(answer, 500))
		return nil, err
	}
	return plan, nil
}
