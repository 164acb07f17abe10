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

package commands_test

import (
	"math"
	"testing"

	"github.com/jaycherian/gcp-go-media-composer/internal/core/commands"
	"github.com/jaycherian/gcp-go-media-composer/internal/core/cor"
	"github.com/jaycherian/gcp-go-media-composer/internal/core/model"
	test "github.com/jaycherian/gcp-go-media-composer/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func voiceover(name string, duration float64) model.Audio {
	return model.NewAudio(model.AssetBase{
		Name:           name,
		AssetId:        "asset-" + name,
		Duration:       duration,
		Generated:      true,
		GenerationType: model.GenerationVoiceover,
	})
}

func timelineOf(durations ...float64) *model.RenderTimeline {
	tl := model.NewRenderTimeline()
	for i, d := range durations {
		_ = tl.AddInline(model.InlineSegment{AssetId: string(rune('a' + i)), Range: model.TimeRange{Start: 0, End: d}})
	}
	return tl
}

func TestAttachAudioOverlayTrimsToTimeline(t *testing.T) {
	tl := timelineOf(10, 10)
	res := commands.AttachAudioOverlay(tl, []model.Audio{voiceover("vo.mp3", 32)}, 30)
	require.True(t, res.Attached)
	assert.Equal(t, 20.0, res.Window)
	assert.Equal(t, 100.0, res.Coverage)
	require.Len(t, tl.Overlays, 1)
	assert.Equal(t, model.TimeRange{Start: 0, End: 20}, tl.Overlays[0].Range)
	assert.Equal(t, model.GenerationVoiceover, tl.Overlays[0].Kind)
}

func TestAttachAudioOverlayShortAudio(t *testing.T) {
	tl := timelineOf(20)
	res := commands.AttachAudioOverlay(tl, []model.Audio{voiceover("vo.mp3", 10.5)}, 20)
	require.True(t, res.Attached)
	assert.Equal(t, 10.0, res.Window)
	assert.Equal(t, 50.0, res.Coverage)
}

func TestAttachAudioOverlayAtMostOne(t *testing.T) {
	tl := timelineOf(15)
	candidates := []model.Audio{
		voiceover("silent.mp3", 0),
		voiceover("tiny.mp3", 0.4),
		voiceover("good.mp3", 30),
		voiceover("also-good.mp3", 30),
	}
	res := commands.AttachAudioOverlay(tl, candidates, 15)
	require.True(t, res.Attached)
	assert.Equal(t, "good.mp3", res.Asset.Name)
	assert.Len(t, res.Skipped, 2)
	assert.Len(t, tl.Overlays, 1)
}

func TestAttachAudioOverlayOnEmptyTimeline(t *testing.T) {
	tl := model.NewRenderTimeline()
	res := commands.AttachAudioOverlay(tl, []model.Audio{voiceover("vo.mp3", 30)}, 20)
	assert.False(t, res.Attached)
	assert.Len(t, res.Skipped, 1)
	assert.Empty(t, tl.Overlays)
}

func assemble(t *testing.T, enableMusic bool, target int, assets, generated []model.MediaAsset, plan *model.ContentPlan) (*model.RenderRequest, *test.EventRecorder, cor.Context) {
	chCtx, rec := test.NewChainContext(commands.KeyEvents)
	chCtx.Add(commands.KeyProject, &model.ProjectRequest{RunId: "run-1", Description: "demo", TargetDuration: target})
	chCtx.Add(commands.KeyAssets, assets)
	chCtx.Add(commands.KeyGenerated, generated)
	if plan == nil {
		plan = &model.ContentPlan{}
	}
	chCtx.Add(commands.KeyPlan, plan)

	asm := commands.NewTimelineAssembler("assembler", enableMusic)
	require.True(t, asm.IsExecutable(chCtx))
	asm.Execute(chCtx)
	require.False(t, chCtx.HasErrors())

	req, ok := chCtx.Get(commands.KeyRenderRequest).(*model.RenderRequest)
	require.True(t, ok)
	assert.Same(t, req.Timeline, chCtx.Get(commands.KeyTimeline))
	return req, rec, chCtx
}

func TestTimelineAssemblerThreeVideos(t *testing.T) {
	assets := []model.MediaAsset{video("c.mp4", 20), video("a.mp4", 8), video("b.mp4", 12)}
	generated := []model.MediaAsset{voiceover("generated_voiceover_0.mp3", 40), voiceover("generated_voiceover_1.mp3", 40)}

	req, rec, _ := assemble(t, false, 30, assets, generated, nil)
	assert.Equal(t, 30.0, req.AdjustedDuration)
	assert.Equal(t, 30.0, req.TargetDuration)
	require.NotNil(t, req.Primary)
	assert.Equal(t, "c.mp4", req.Primary.Name)

	tl := req.Timeline
	require.Len(t, tl.Inline, 3)
	assert.Equal(t, "asset-a.mp4", tl.Inline[0].AssetId)
	assert.InDelta(t, 27.2, tl.Duration(), 1e-9)

	require.Len(t, tl.Overlays, 1)
	assert.Equal(t, "asset-generated_voiceover_0.mp3", tl.Overlays[0].AssetId)
	assert.InDelta(t, 27.2, tl.Overlays[0].Range.End, 1e-9)
	assert.Equal(t, 0, rec.Count(model.SeverityWarning))
}

func TestTimelineAssemblerSingleVideo(t *testing.T) {
	assets := []model.MediaAsset{video("only.mp4", 5)}
	req, _, _ := assemble(t, false, 60, assets, nil, nil)

	assert.Equal(t, 15.0, req.AdjustedDuration)
	require.Len(t, req.Timeline.Inline, 1)
	assert.InDelta(t, 4.75, req.Timeline.Duration(), 1e-9)
	assert.Empty(t, req.Timeline.Overlays)
}

func TestTimelineAssemblerImageOnly(t *testing.T) {
	assets := []model.MediaAsset{model.NewImage(model.AssetBase{Name: "poster.png", AssetId: "img-1"})}
	req, _, _ := assemble(t, false, 60, assets, nil, nil)

	require.Len(t, req.Timeline.Inline, 1)
	assert.Equal(t, model.MediaTypeImage, req.Timeline.Inline[0].MediaType)
	assert.Equal(t, 15.0, req.Timeline.Duration())
	assert.Nil(t, req.Primary)
}

func TestTimelineAssemblerLowCoverageWarning(t *testing.T) {
	assets := []model.MediaAsset{video("a.mp4", 30), video("b.mp4", 30)}
	generated := []model.MediaAsset{voiceover("generated_voiceover_0.mp3", 10.5)}
	req, rec, _ := assemble(t, false, 30, assets, generated, nil)

	require.Len(t, req.Timeline.Overlays, 1)
	assert.Equal(t, 10.0, req.Timeline.Overlays[0].Range.End)
	assert.Equal(t, 1, rec.Count(model.SeverityWarning))
}

func TestTimelineAssemblerMusicOnlyWithoutVoiceover(t *testing.T) {
	assets := []model.MediaAsset{video("a.mp4", 30), video("b.mp4", 30)}
	music := model.NewAudio(model.AssetBase{Name: "generated_music_0.mp3", AssetId: "m1", Duration: 60, Generated: true, GenerationType: model.GenerationBackgroundMusic})

	req, _, _ := assemble(t, true, 30, assets, []model.MediaAsset{music}, nil)
	require.Len(t, req.Timeline.Overlays, 1)
	assert.Equal(t, model.GenerationBackgroundMusic, req.Timeline.Overlays[0].Kind)

	req, _, _ = assemble(t, true, 30, assets, []model.MediaAsset{voiceover("generated_voiceover_0.mp3", 60), music}, nil)
	require.Len(t, req.Timeline.Overlays, 1)
	assert.Equal(t, model.GenerationVoiceover, req.Timeline.Overlays[0].Kind)

	req, _, _ = assemble(t, false, 30, assets, []model.MediaAsset{music}, nil)
	assert.Empty(t, req.Timeline.Overlays)
}

func TestTimelineAssemblerNothingToShow(t *testing.T) {
	assets := []model.MediaAsset{model.NewAudio(model.AssetBase{Name: "song.mp3", AssetId: "s1", Duration: 90})}
	req, rec, _ := assemble(t, false, 30, assets, nil, nil)
	assert.True(t, req.Timeline.IsEmpty())
	assert.Equal(t, 1, rec.Count(model.SeverityWarning))
}

func TestTimelineAssemblerNonFinitePlanWeights(t *testing.T) {
	answers := map[string]string{
		"quoted infinity": `{"timeline_structure":[{"asset_name":"a.mp4","importance":"Infinity","recommended_duration":10},{"asset_name":"b.mp4","importance":1,"recommended_duration":10}]}`,
		"huge numbers":    `{"timeline_structure":[{"asset_name":"a.mp4","importance":1e308,"recommended_duration":1e308},{"asset_name":"b.mp4","importance":1,"recommended_duration":10}]}`,
	}
	for name, answer := range answers {
		t.Run(name, func(t *testing.T) {
			plan, err := commands.ParsePlan(answer)
			require.NoError(t, err)

			assets := []model.MediaAsset{video("a.mp4", 60), video("b.mp4", 60)}
			generated := []model.MediaAsset{voiceover("generated_voiceover_0.mp3", 40)}
			req, _, _ := assemble(t, false, 30, assets, generated, plan)

			require.Len(t, req.Timeline.Inline, 2)
			for _, seg := range req.Timeline.Inline {
				assert.True(t, seg.Range.IsValid())
				assert.GreaterOrEqual(t, seg.Duration(), commands.MinClip)
				assert.LessOrEqual(t, seg.Duration(), commands.MaxClip)
			}
			assert.True(t, req.Timeline.IsRenderable())
			require.Len(t, req.Timeline.Overlays, 1)
			assert.True(t, req.Timeline.Overlays[0].Range.IsValid())

			svc := test.NewFakeMediaService()
			chCtx := runLadder(svc, req)
			assert.Equal(t, "full-timeline", chCtx.Get(cor.WinnerParam))
			assert.NotEmpty(t, chCtx.Get(commands.KeyRenderURL))
		})
	}
}

func TestAttachAudioOverlaySkipsNonFiniteAudio(t *testing.T) {
	tl := timelineOf(20)
	candidates := []model.Audio{voiceover("nan.mp3", math.NaN()), voiceover("inf.mp3", math.Inf(1)), voiceover("vo.mp3", 30)}
	res := commands.AttachAudioOverlay(tl, candidates, 20)
	require.True(t, res.Attached)
	assert.Equal(t, "vo.mp3", res.Asset.Name)
	assert.Len(t, res.Skipped, 2)
	assert.Equal(t, 20.0, res.Window)
}
