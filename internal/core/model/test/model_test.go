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

package model_test

import (
	"encoding/json"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jaycherian/gcp-go-media-composer/internal/core/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	zassert "github.com/zeebo/assert"
)

func TestNewProjectRun(t *testing.T) {
	req := &model.ProjectRequest{Description: "coffee tutorial", TargetDuration: 45}
	run := model.NewProjectRun(req)

	_, err := uuid.Parse(run.Id)
	assert.NoError(t, err)
	assert.Equal(t, req.RunId, run.Id)
	assert.Equal(t, model.RunPending, run.Status)
	assert.WithinDuration(t, time.Now(), run.CreateDate, time.Second)
	assert.Equal(t, 0, len(run.Assets))
	assert.False(t, run.IsFinal())
}

func TestNewProjectRunKeepsId(t *testing.T) {
	req := &model.ProjectRequest{RunId: "run-1", Description: "x", TargetDuration: 60}
	assert.Equal(t, "run-1", model.NewProjectRun(req).Id)
}

func TestNewVideoAppliesFloor(t *testing.T) {
	v := model.NewVideo(model.AssetBase{Name: "a.mp4", AssetId: "m-1", Duration: 2}, "")
	zassert.Equal(t, v.Duration, model.MinVideoDuration)

	v = model.NewVideo(model.AssetBase{Name: "b.mp4", AssetId: "m-2", Duration: 12.5}, "hello")
	zassert.Equal(t, v.Duration, 12.5)
	zassert.Equal(t, v.MediaType(), model.MediaTypeVideo)
}

func TestClassifyExtension(t *testing.T) {
	cases := map[string]model.MediaType{
		"clip.MP4":     model.MediaTypeVideo,
		"clip.webm":    model.MediaTypeVideo,
		"photo.jpeg":   model.MediaTypeImage,
		"song.m4a":     model.MediaTypeAudio,
		"no-extension": model.MediaTypeVideo,
	}
	for name, want := range cases {
		got, _ := model.ClassifyExtension(name)
		assert.Equal(t, want, got, name)
	}
	_, known := model.ClassifyExtension("clip.webm")
	assert.False(t, known)
}

func TestAssetFilters(t *testing.T) {
	assets := []model.MediaAsset{
		model.NewVideo(model.AssetBase{Name: "a.mp4", AssetId: "1", Duration: 8}, ""),
		model.NewImage(model.AssetBase{Name: "b.png", AssetId: "2"}),
		model.NewVideo(model.AssetBase{Name: "c.mov", AssetId: "3", Duration: 12}, ""),
		model.NewAudio(model.AssetBase{Name: "vo.mp3", AssetId: "4", Duration: 30, Generated: true, GenerationType: model.GenerationVoiceover}),
		model.NewAudio(model.AssetBase{Name: "music.mp3", AssetId: "5", Duration: 30, Generated: true, GenerationType: model.GenerationBackgroundMusic}),
	}

	assert.Len(t, model.Videos(assets), 2)
	assert.Len(t, model.Images(assets), 1)
	assert.Len(t, model.Voiceovers(assets), 1)
	assert.InDelta(t, 20.0, model.TotalVideoDuration(assets), 1e-9)
	assert.Equal(t, "c", model.Videos(assets)[1].Stem())
}

func TestNumberAcceptsLooseJSON(t *testing.T) {
	var seg model.TimelineSegment
	err := json.Unmarshal([]byte(`{"asset_name":"clip1.mp4","importance":"3","recommended_duration":"12.5s","start_time":null,"end_time":7}`), &seg)
	require.NoError(t, err)
	assert.Equal(t, 3.0, seg.Importance.Float())
	assert.Equal(t, 12.5, seg.RecommendedDuration.Float())
	assert.Equal(t, 0.0, seg.StartTime.Float())
	assert.Equal(t, 7.0, seg.EndTime.Float())

	err = json.Unmarshal([]byte(`{"importance":"high"}`), &seg)
	assert.Error(t, err)
}

func TestRenderTimelineValidation(t *testing.T) {
	tl := model.NewRenderTimeline()
	assert.True(t, errors.Is(tl.AddInline(model.InlineSegment{Range: model.TimeRange{End: 4}}), model.ErrMissingAssetId))
	assert.True(t, errors.Is(tl.AddInline(model.InlineSegment{AssetId: "v", Range: model.TimeRange{Start: 3, End: 3}}), model.ErrInvalidRange))

	require.NoError(t, tl.AddInline(model.InlineSegment{AssetId: "v1", Range: model.TimeRange{Start: 1, End: 8}}))
	require.NoError(t, tl.AddInline(model.InlineSegment{AssetId: "v2", Range: model.TimeRange{Start: 0, End: 3}}))
	assert.InDelta(t, 10.0, tl.Duration(), 1e-9)

	assert.Error(t, tl.AddOverlay(model.AudioOverlay{AssetId: "a", Range: model.TimeRange{End: 10.5}}))
	require.NoError(t, tl.AddOverlay(model.AudioOverlay{AssetId: "a", Range: model.TimeRange{End: 9.5}}))

	videoOnly := tl.VideoOnly()
	assert.Len(t, videoOnly.Overlays, 0)
	assert.Len(t, videoOnly.Inline, 2)
	assert.Len(t, tl.Overlays, 1)
}

func TestExampleContentPlanRoundTrips(t *testing.T) {
	var plan model.ContentPlan
	require.NoError(t, json.Unmarshal([]byte(model.GetExampleContentPlanJSON()), &plan))
	assert.Equal(t, model.GetExampleContentPlan().TimelineStructure, plan.TimelineStructure)
	assert.Len(t, plan.Voiceovers(), 1)
}

func TestNumberDropsNonFiniteValues(t *testing.T) {
	for _, raw := range []string{`"Infinity"`, `"-Inf"`, `"NaN"`, `"+inf"`} {
		var n model.Number
		require.NoError(t, json.Unmarshal([]byte(raw), &n), raw)
		assert.Equal(t, 0.0, n.Float(), raw)
	}

	var seg model.TimelineSegment
	require.NoError(t, json.Unmarshal([]byte(`{"asset_name":"a.mp4","importance":1e308,"recommended_duration":1e308}`), &seg))
	assert.Equal(t, 1e308, seg.Importance.Float())
}

func TestRenderTimelineRejectsNonFiniteRanges(t *testing.T) {
	nan, inf := math.NaN(), math.Inf(1)
	tl := model.NewRenderTimeline()
	for _, r := range []model.TimeRange{{Start: 0, End: nan}, {Start: nan, End: 4}, {Start: 0, End: inf}} {
		assert.True(t, errors.Is(tl.AddInline(model.InlineSegment{AssetId: "v", Range: r}), model.ErrInvalidRange))
	}
	assert.True(t, tl.IsEmpty())
	assert.False(t, tl.IsRenderable())

	require.NoError(t, tl.AddInline(model.InlineSegment{AssetId: "v", Range: model.TimeRange{Start: 0, End: 10}}))
	assert.True(t, tl.IsRenderable())
	assert.True(t, errors.Is(tl.AddOverlay(model.AudioOverlay{AssetId: "a", Range: model.TimeRange{Start: 0, End: nan}}), model.ErrInvalidRange))
	assert.True(t, errors.Is(tl.AddOverlay(model.AudioOverlay{AssetId: "a", Offset: nan, Range: model.TimeRange{Start: 0, End: 5}}), model.ErrInvalidRange))
	assert.Empty(t, tl.Overlays)

	broken := &model.RenderTimeline{Inline: []model.InlineSegment{{AssetId: "v", Range: model.TimeRange{Start: 0, End: nan}}}}
	assert.False(t, broken.IsRenderable())
	var missing *model.RenderTimeline
	assert.False(t, missing.IsRenderable())
}
