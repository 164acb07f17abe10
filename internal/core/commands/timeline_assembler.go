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

// This file defines the command that maps the content plan and the assets
// onto a single render timeline.
//
// Logic Flow:
//  1. Budget: the requested length is capped by the footage that exists
//     (AdjustedDuration).
//  2. Clips: with two or more videos, up to three are cut to plan-weighted or
//     equal shares (AllocateClips). With one video it is used alone
//     (SingleVideoClip). When nothing could be added, three fallback tiers
//     are tried in order: the first video or image of any kind, the first
//     uploaded video, the first uploaded image.
//  3. Audio: the first usable voice-over is laid over the timeline from 0.
//     Background music is only considered when enabled and no voice-over was
//     attached, so a timeline never carries more than one overlay.
//
// The result is a model.RenderRequest for the render ladder. The assembler
// records no error on the context: an empty timeline simply leaves the
// ladder nothing to render.
package commands

import (
	"github.com/jaycherian/gcp-go-media-composer/internal/core/cor"
	"github.com/jaycherian/gcp-go-media-composer/internal/core/model"
	"github.com/samber/lo"
)

type TimelineAssembler struct {
	cor.BaseCommand
	enableMusic bool
}

func NewTimelineAssembler(name string, enableMusic bool) *TimelineAssembler {
	out := &TimelineAssembler{BaseCommand: *cor.NewBaseCommand(name), enableMusic: enableMusic}
	out.InputParamName = KeyPlan
	return out
}

func (c *TimelineAssembler) Execute(chCtx cor.Context) {
	project := projectFrom(chCtx)
	assets := assetsFrom(chCtx, KeyAssets)
	generated := assetsFrom(chCtx, KeyGenerated)
	plan := planFrom(chCtx)

	target := float64(model.DefaultTargetDuration)
	if project != nil {
		target = float64(project.TargetDuration)
	}
	all := append(append(make([]model.MediaAsset, 0, len(assets)+len(generated)), assets...), generated...)

	total := model.TotalVideoDuration(assets)
	adjusted := AdjustedDuration(target, total)
	Emit(chCtx, model.StageAssembly, model.SeverityInfo, "Adjusting video length: target %.0fs, using %.1fs (%.1fs of footage available)", target, adjusted, total)

	tl := model.NewRenderTimeline()
	c.addClips(chCtx, tl, all, plan, adjusted)
	if tl.IsEmpty() {
		c.addFallbackClip(chCtx, tl, all, assets, adjusted)
	}
	if tl.IsEmpty() {
		Emit(chCtx, model.StageAssembly, model.SeverityWarning, "No video content was added to the timeline")
	} else {
		Emit(chCtx, model.StageAssembly, model.SeveritySuccess, "Timeline ready: %d clips, %.1fs", len(tl.Inline), tl.Duration())
		c.addAudio(chCtx, tl, all, adjusted)
	}

	req := &model.RenderRequest{
		Timeline:         tl,
		AdjustedDuration: adjusted,
		TargetDuration:   target,
	}
	if videos := model.Videos(assets); len(videos) > 0 {
		req.Primary = &videos[0]
	}

	c.GetSuccessCounter().Add(chCtx.GetContext(), 1)
	chCtx.Add(KeyTimeline, tl)
	chCtx.Add(KeyRenderRequest, req)
	chCtx.Add(c.GetOutputParam(), req)
}

func (c *TimelineAssembler) addClips(chCtx cor.Context, tl *model.RenderTimeline, all []model.MediaAsset, plan *model.ContentPlan, adjusted float64) {
	videos := model.Videos(all)
	switch {
	case len(videos) >= 2:
		var segments []model.TimelineSegment
		if plan != nil {
			segments = plan.TimelineStructure
		}
		allocations := AllocateClips(videos, segments, adjusted)
		added := c.addAllocations(chCtx, tl, allocations)
		if added == 0 && lo.SomeBy(allocations, func(a ClipAllocation) bool { return a.Weighted }) {
			Emit(chCtx, model.StageAssembly, model.SeverityWarning, "Plan-weighted clips failed, using equal durations")
			c.addAllocations(chCtx, tl, AllocateClips(videos, nil, adjusted))
		}
	case len(videos) == 1:
		v := videos[0]
		use := SingleVideoClip(v.Duration, adjusted)
		if err := tl.AddInline(inlineVideo(v, 0, use)); err != nil {
			Emit(chCtx, model.StageAssembly, model.SeverityWarning, "Failed to add %s: %v", v.Name, err)
			return
		}
		Emit(chCtx, model.StageAssembly, model.SeverityInfo, "Using single video %s for %.1fs (source %.1fs)", v.Name, use, v.Duration)
	}
}

func (c *TimelineAssembler) addAllocations(chCtx cor.Context, tl *model.RenderTimeline, allocations []ClipAllocation) int {
	added := 0
	for _, a := range allocations {
		if err := tl.AddInline(inlineVideo(a.Video, a.Start, a.Duration)); err != nil {
			Emit(chCtx, model.StageAssembly, model.SeverityWarning, "Failed to add %s: %v", a.Video.Name, err)
			continue
		}
		added++
		mode := "equal share"
		if a.Weighted {
			mode = "plan weighted"
		}
		Emit(chCtx, model.StageAssembly, model.SeverityInfo, "Added %s: %.1fs from %.1fs (%s)", a.Video.Name, a.Duration, a.Start, mode)
	}
	return added
}

// addFallbackClip tries the last-resort tiers until one segment is added.
func (c *TimelineAssembler) addFallbackClip(chCtx cor.Context, tl *model.RenderTimeline, all, originals []model.MediaAsset, adjusted float64) {
	tiers := []func() (model.InlineSegment, bool){
		func() (model.InlineSegment, bool) {
			a, ok := lo.Find(all, func(a model.MediaAsset) bool {
				return a.MediaType() == model.MediaTypeVideo || a.MediaType() == model.MediaTypeImage
			})
			if !ok {
				return model.InlineSegment{}, false
			}
			if v, isVideo := a.(model.Video); isVideo {
				return inlineVideo(v, 0, fallbackVideoClip(v.Duration, adjusted)), true
			}
			return inlineImage(a.Base(), fallbackImageDuration(adjusted)), true
		},
		func() (model.InlineSegment, bool) {
			videos := model.Videos(originals)
			if len(videos) == 0 {
				return model.InlineSegment{}, false
			}
			return inlineVideo(videos[0], 0, fallbackVideoClip(videos[0].Duration, adjusted)), true
		},
		func() (model.InlineSegment, bool) {
			images := model.Images(originals)
			if len(images) == 0 {
				return model.InlineSegment{}, false
			}
			return inlineImage(images[0].AssetBase, adjusted), true
		},
	}

	for _, tier := range tiers {
		seg, ok := tier()
		if !ok {
			continue
		}
		if err := tl.AddInline(seg); err != nil {
			Emit(chCtx, model.StageAssembly, model.SeverityWarning, "Fallback %s failed: %v", seg.AssetName, err)
			continue
		}
		Emit(chCtx, model.StageAssembly, model.SeverityInfo, "Using fallback %s (%.1fs)", seg.AssetName, seg.Duration())
		return
	}
}

func (c *TimelineAssembler) addAudio(chCtx cor.Context, tl *model.RenderTimeline, all []model.MediaAsset, adjusted float64) {
	res := AttachAudioOverlay(tl, model.Voiceovers(all), adjusted)
	for _, reason := range res.Skipped {
		Emit(chCtx, model.StageAssembly, model.SeverityWarning, "Voiceover skipped: %s", reason)
	}
	if res.Attached {
		Emit(chCtx, model.StageAssembly, model.SeverityInfo, "Voiceover %s synced for %.1fs, covering %.1f%% of the timeline", res.Asset.Name, res.Window, res.Coverage)
		if res.Coverage < LowCoveragePercent {
			Emit(chCtx, model.StageAssembly, model.SeverityWarning, "Audio only covers %.1f%% of the video, the rest plays without narration", res.Coverage)
		}
		return
	}
	if !c.enableMusic {
		return
	}

	music := lo.FilterMap(all, func(a model.MediaAsset, _ int) (model.Audio, bool) {
		au, ok := a.(model.Audio)
		return au, ok && au.GenerationType == model.GenerationBackgroundMusic
	})
	res = AttachAudioOverlay(tl, music, adjusted)
	if res.Attached {
		Emit(chCtx, model.StageAssembly, model.SeverityInfo, "Background music %s added for %.1fs", res.Asset.Name, res.Window)
	}
}

func inlineVideo(v model.Video, start, duration float64) model.InlineSegment {
	return model.InlineSegment{
		AssetId:   v.AssetId,
		AssetName: v.Name,
		MediaType: model.MediaTypeVideo,
		Range:     model.TimeRange{Start: start, End: start + duration},
	}
}

func inlineImage(b model.AssetBase, duration float64) model.InlineSegment {
	return model.InlineSegment{
		AssetId:   b.AssetId,
		AssetName: b.Name,
		MediaType: model.MediaTypeImage,
		Range:     model.TimeRange{Start: 0, End: duration},
	}
}
