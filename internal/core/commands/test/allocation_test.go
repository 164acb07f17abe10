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
	"github.com/jaycherian/gcp-go-media-composer/internal/core/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func video(name string, duration float64) model.Video {
	return model.NewVideo(model.AssetBase{Name: name, AssetId: "asset-" + name, Duration: duration}, "")
}

func TestAllocateClipsEqualShare(t *testing.T) {
	videos := []model.Video{video("a.mp4", 8), video("b.mp4", 12), video("c.mp4", 20)}
	adjusted := commands.AdjustedDuration(30, 40)
	require.InDelta(t, 30.0, adjusted, 1e-9)

	allocations := commands.AllocateClips(videos, nil, adjusted)
	require.Len(t, allocations, 3)

	durations := []float64{allocations[0].Duration, allocations[1].Duration, allocations[2].Duration}
	assert.InDeltaSlice(t, []float64{7.2, 10, 10}, durations, 1e-9)

	total := 0.0
	for _, a := range allocations {
		total += a.Duration
		assert.False(t, a.Weighted)
	}
	assert.InDelta(t, 27.2, total, 1e-9)

	assert.Equal(t, 0.0, allocations[0].Start)
	assert.Equal(t, 0.0, allocations[1].Start)
	assert.Equal(t, 1.0, allocations[2].Start)
}

func TestSingleVideoClip(t *testing.T) {
	adjusted := commands.AdjustedDuration(60, 5)
	assert.Equal(t, 15.0, adjusted)
	assert.InDelta(t, 4.75, commands.SingleVideoClip(5, adjusted), 1e-9)
	assert.InDelta(t, 15.0, commands.SingleVideoClip(100, adjusted), 1e-9)
	assert.InDelta(t, 9.5, commands.SingleVideoClip(0, adjusted), 1e-9)
}

func TestDurationBudgetBounds(t *testing.T) {
	for _, target := range []float64{15, 30, 60, 120, 300} {
		for _, total := range []float64{0, 4, 10, 18.75, 40, 100, 1000} {
			adjusted := commands.AdjustedDuration(target, total)
			assert.LessOrEqual(t, adjusted, target)
			assert.GreaterOrEqual(t, adjusted, 15.0)
			assert.LessOrEqual(t, adjusted, max(total*0.8, 15))
		}
	}
}

func TestClipClampBounds(t *testing.T) {
	for _, source := range []float64{5, 6, 10, 33, 50, 100, 400} {
		for _, share := range []float64{0, 1, 2.5, 10, 30, 44, 90, 300} {
			clip := commands.ClampClip(share, source)
			assert.GreaterOrEqual(t, clip, commands.MinClip)
			assert.LessOrEqual(t, clip, commands.MaxClip)
			assert.LessOrEqual(t, clip, source*commands.UsableFraction)

			start := commands.StartOffset(source, clip)
			assert.LessOrEqual(t, start+clip, source)
		}
	}
}

func TestAllocateClipsWeightedByPlan(t *testing.T) {
	videos := []model.Video{video("intro.mp4", 60), video("pour.mov", 60)}
	segments := []model.TimelineSegment{
		{AssetName: "intro.mp4", Importance: 1, RecommendedDuration: 10},
		{AssetName: "pour.mp4", Importance: 3, RecommendedDuration: 10},
	}

	allocations := commands.AllocateClips(videos, segments, 40)
	require.Len(t, allocations, 2)
	assert.True(t, allocations[0].Weighted)
	assert.True(t, allocations[1].Weighted)
	assert.InDelta(t, 10.0, allocations[0].Duration, 1e-9)
	assert.InDelta(t, 30.0, allocations[1].Duration, 1e-9)
	assert.Equal(t, 1.0, allocations[0].Start)
}

func TestAllocateClipsMixedMatch(t *testing.T) {
	videos := []model.Video{video("a.mp4", 60), video("b.mp4", 60)}
	segments := []model.TimelineSegment{{AssetName: "a.mp4"}}

	allocations := commands.AllocateClips(videos, segments, 30)
	require.Len(t, allocations, 2)
	assert.True(t, allocations[0].Weighted)
	assert.InDelta(t, 30.0, allocations[0].Duration, 1e-9)
	assert.False(t, allocations[1].Weighted)
	assert.InDelta(t, 15.0, allocations[1].Duration, 1e-9)
}

func TestSelectClipsSortsAndLimits(t *testing.T) {
	videos := []model.Video{video("d.mp4", 10), video("b.mp4", 10), video("a.mp4", 10), video("c.mp4", 10)}
	selected := commands.SelectClips(videos)
	require.Len(t, selected, commands.MaxClips)
	assert.Equal(t, "a.mp4", selected[0].Name)
	assert.Equal(t, "b.mp4", selected[1].Name)
	assert.Equal(t, "c.mp4", selected[2].Name)
	assert.Equal(t, "d.mp4", videos[0].Name)
}

func TestRangeOfAllocation(t *testing.T) {
	a := commands.ClipAllocation{Start: 1, Duration: 9}
	assert.Equal(t, model.TimeRange{Start: 1, End: 10}, a.Range())
}

func TestAllocateClipsNonFiniteWeights(t *testing.T) {
	videos := []model.Video{video("a.mp4", 60), video("b.mp4", 60)}
	cases := map[string][]model.TimelineSegment{
		"infinite importance": {
			{AssetName: "a.mp4", Importance: model.Number(math.Inf(1)), RecommendedDuration: 10},
			{AssetName: "b.mp4", Importance: 1, RecommendedDuration: 10},
		},
		"overflowing product": {
			{AssetName: "a.mp4", Importance: 1e308, RecommendedDuration: 1e308},
			{AssetName: "b.mp4", Importance: 1, RecommendedDuration: 10},
		},
		"nan duration": {
			{AssetName: "a.mp4", Importance: 1, RecommendedDuration: model.Number(math.NaN())},
			{AssetName: "b.mp4", Importance: 1, RecommendedDuration: 10},
		},
	}
	for name, segments := range cases {
		t.Run(name, func(t *testing.T) {
			allocations := commands.AllocateClips(videos, segments, 40)
			require.Len(t, allocations, 2)
			for _, a := range allocations {
				assert.True(t, a.Weighted)
				assert.InDelta(t, 20.0, a.Duration, 1e-9)
				assert.True(t, a.Range().IsValid())
			}
		})
	}
}

func TestAllocateClipsOverflowingTotalWeight(t *testing.T) {
	videos := []model.Video{video("a.mp4", 60), video("b.mp4", 60), video("c.mp4", 60)}
	segments := []model.TimelineSegment{
		{AssetName: "a.mp4", Importance: 1e308, RecommendedDuration: 1},
		{AssetName: "b.mp4", Importance: 1e308, RecommendedDuration: 1},
		{AssetName: "c.mp4", Importance: 1e308, RecommendedDuration: 1},
	}

	allocations := commands.AllocateClips(videos, segments, 30)
	require.Len(t, allocations, 3)
	for _, a := range allocations {
		assert.False(t, a.Weighted)
		assert.InDelta(t, 10.0, a.Duration, 1e-9)
	}
}

func TestClampClipNaN(t *testing.T) {
	assert.Equal(t, commands.MinClip, commands.ClampClip(math.NaN(), 20))
	assert.Equal(t, commands.MaxClip, commands.ClampClip(math.Inf(1), 100))
	assert.InDelta(t, 9.0, commands.ClampClip(20, math.NaN()), 1e-9)
}
