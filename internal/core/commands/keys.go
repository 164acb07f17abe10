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

// Package commands holds the concrete cor.Command implementations of a
// project run: reading the trigger, ingesting assets, planning, generating
// missing content, assembling the timeline and rendering it through a ladder
// of fallback strategies.
//
// Commands exchange data through the well-known context keys below. Each
// stage also writes its result to its output parameter so a BaseChain can
// pipe it forward.
package commands

import (
	"errors"

	"github.com/jaycherian/gcp-go-media-composer/internal/core/cor"
	"github.com/jaycherian/gcp-go-media-composer/internal/core/model"
)

const (
	KeyProject       = "__PROJECT__"        // *model.ProjectRequest
	KeyAssets        = "__ASSETS__"         // []model.MediaAsset, ingested
	KeyPlan          = "__PLAN__"           // *model.ContentPlan
	KeyPlanSource    = "__PLAN_SOURCE__"    // PlanSourceModel or PlanSourceFallback
	KeyGenerated     = "__GENERATED__"      // []model.MediaAsset, generated
	KeyTimeline      = "__TIMELINE__"       // *model.RenderTimeline
	KeyRenderRequest = "__RENDER_REQUEST__" // *model.RenderRequest
	KeyRenderURL     = "__RENDER_URL__"     // string
	KeyEvents        = "__EVENTS__"         // model.EventSink
	KeyRun           = "__RUN__"            // *model.ProjectRun
)

// ErrNoAssets stops a run when not a single file could be ingested.
var ErrNoAssets = errors.New("no asset could be ingested")

func projectFrom(ctx cor.Context) *model.ProjectRequest {
	if p, ok := ctx.Get(KeyProject).(*model.ProjectRequest); ok {
		return p
	}
	return nil
}

func assetsFrom(ctx cor.Context, key string) []model.MediaAsset {
	if a, ok := ctx.Get(key).([]model.MediaAsset); ok {
		return a
	}
	return nil
}

func planFrom(ctx cor.Context) *model.ContentPlan {
	if p, ok := ctx.Get(KeyPlan).(*model.ContentPlan); ok {
		return p
	}
	return nil
}

func renderRequestFrom(ctx cor.Context) *model.RenderRequest {
	if r, ok := ctx.Get(KeyRenderRequest).(*model.RenderRequest); ok {
		return r
	}
	return nil
}
