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
	"fmt"

	"github.com/jaycherian/gcp-go-media-composer/internal/core/cor"
	"github.com/jaycherian/gcp-go-media-composer/internal/core/model"
	"github.com/jaycherian/gcp-go-media-composer/internal/media"
	"go.opentelemetry.io/otel/attribute"
)

// MinURLLength is the length a URL must exceed to count as a render result.
const MinURLLength = 10

var (
	ErrImplausibleURL = errors.New("render returned an implausible url")
	ErrNoPrimaryVideo = errors.New("no original video to stream")
)

// RenderFunc renders req through svc and returns a playable URL.
type RenderFunc func(ctx context.Context, svc media.Service, req *model.RenderRequest) (string, error)

// RenderStrategy is one rung of the render ladder. A rung with
// NeedsTimeline set only runs against a renderable assembled timeline;
// the others only need the primary video.
type RenderStrategy struct {
	Name          string
	Render        RenderFunc
	NeedsTimeline bool
}

// DefaultRenderStrategies lists the rungs from most to least ambitious.
func DefaultRenderStrategies() []RenderStrategy {
	return []RenderStrategy{
		{Name: "full-timeline", Render: renderFullTimeline, NeedsTimeline: true},
		{Name: "video-only-timeline", Render: renderVideoOnly, NeedsTimeline: true},
		{Name: "direct-stream", Render: renderDirectStream},
		{Name: "truncated-stream", Render: renderTruncatedStream},
		{Name: "single-clip-timeline", Render: renderSingleClip},
		{Name: "play-url", Render: renderPlayURL},
	}
}

func renderFullTimeline(ctx context.Context, svc media.Service, req *model.RenderRequest) (string, error) {
	return svc.RenderTimeline(ctx, req.Timeline)
}

func renderVideoOnly(ctx context.Context, svc media.Service, req *model.RenderRequest) (string, error) {
	return svc.RenderTimeline(ctx, req.Timeline.VideoOnly())
}

func renderDirectStream(ctx context.Context, svc media.Service, req *model.RenderRequest) (string, error) {
	if req.Primary == nil {
		return "", ErrNoPrimaryVideo
	}
	return svc.Stream(ctx, req.Primary.AssetId, nil)
}

func renderTruncatedStream(ctx context.Context, svc media.Service, req *model.RenderRequest) (string, error) {
	if req.Primary == nil {
		return "", ErrNoPrimaryVideo
	}
	end := min(req.TargetDuration, sourceDuration(req.Primary.Duration))
	return svc.Stream(ctx, req.Primary.AssetId, []model.TimeRange{{Start: 0, End: end}})
}

func renderSingleClip(ctx context.Context, svc media.Service, req *model.RenderRequest) (string, error) {
	if req.Primary == nil {
		return "", ErrNoPrimaryVideo
	}
	end := min(req.TargetDuration, sourceDuration(req.Primary.Duration)*SingleVideoFraction)
	tl := model.NewRenderTimeline()
	if err := tl.AddInline(inlineVideo(*req.Primary, 0, end)); err != nil {
		return "", err
	}
	return svc.RenderTimeline(ctx, tl)
}

func renderPlayURL(ctx context.Context, svc media.Service, req *model.RenderRequest) (string, error) {
	if req.Primary == nil {
		return "", ErrNoPrimaryVideo
	}
	return svc.Play(ctx, req.Primary.AssetId)
}

// RenderRung adapts a RenderStrategy to a cor.Command and writes the URL to
// KeyRenderURL.
type RenderRung struct {
	cor.BaseCommand
	service  media.Service
	strategy RenderStrategy
}

func NewRenderRung(service media.Service, strategy RenderStrategy) *RenderRung {
	out := &RenderRung{BaseCommand: *cor.NewBaseCommand(strategy.Name), service: service, strategy: strategy}
	out.InputParamName = KeyRenderRequest
	out.OutputParamName = KeyRenderURL
	return out
}

func (c *RenderRung) IsExecutable(chCtx cor.Context) bool {
	if !c.BaseCommand.IsExecutable(chCtx) {
		return false
	}
	req := renderRequestFrom(chCtx)
	if req == nil {
		return false
	}
	if c.strategy.NeedsTimeline {
		return req.Timeline.IsRenderable()
	}
	return req.Primary != nil
}

func (c *RenderRung) Execute(chCtx cor.Context) {
	req := renderRequestFrom(chCtx)
	ctx, span := c.Tracer.Start(chCtx.GetContext(), fmt.Sprintf("%s_render", c.GetName()))
	defer span.End()

	url, err := c.strategy.Render(ctx, c.service, req)
	if err == nil && len(url) <= MinURLLength {
		err = fmt.Errorf("%w: %q", ErrImplausibleURL, url)
	}
	if err != nil {
		span.RecordError(err)
		c.GetErrorCounter().Add(ctx, 1)
		Emit(chCtx, model.StageRender, model.SeverityWarning, "Render strategy %s failed: %v", c.GetName(), err)
		chCtx.AddError(c.GetName(), err)
		return
	}

	span.SetAttributes(attribute.String("url", url))
	c.GetSuccessCounter().Add(ctx, 1)
	Emit(chCtx, model.StageRender, model.SeveritySuccess, "Rendered with %s", c.GetName())
	chCtx.Add(c.GetOutputParam(), url)
}

// NewRenderLadder chains the strategies so the first one producing a URL
// wins. The URL lands in KeyRenderURL and the winning strategy's name in
// cor.WinnerParam. When every rung fails the ladder records no error and
// KeyRenderURL stays unset.
func NewRenderLadder(name string, service media.Service, strategies ...RenderStrategy) *cor.FirstSuccessChain {
	if len(strategies) == 0 {
		strategies = DefaultRenderStrategies()
	}
	ladder := cor.NewFirstSuccessChain(name)
	ladder.OutputParamName = KeyRenderURL
	for _, s := range strategies {
		ladder.AddCommand(NewRenderRung(service, s))
	}
	return ladder
}
