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
	"math"
	"slices"
	"strings"

	"github.com/jaycherian/gcp-go-media-composer/internal/core/model"
	"github.com/samber/lo"
)

// Duration arithmetic of the timeline assembler. Source durations are never
// trusted: every clip is kept inside a window well short of what the source
// claims to hold.
const (
	BudgetFraction        = 0.8
	MinBudget             = 15.0
	MaxClips              = 3
	MinClip               = 3.0
	MaxClip               = 45.0
	UsableFraction        = 0.9
	SingleVideoFraction   = 0.95
	MinSingleVideo        = 5.0
	DefaultSourceDuration = 10.0
	MaxStartOffset        = 1.0
	StartOffsetFraction   = 0.1
	StartOffsetSlack      = 2.0
	DefaultImportance     = 1.0
	DefaultRecommended    = 10.0
	MaxImageDuration      = 30.0
	DefaultImageDuration  = 15.0
)

// AdjustedDuration caps target at 80% of the video footage available, with
// a 15 second floor on that cap.
func AdjustedDuration(target, totalVideo float64) float64 {
	return min(target, max(totalVideo*BudgetFraction, MinBudget))
}

// ClipAllocation is one inline clip cut from a source video.
type ClipAllocation struct {
	Video    model.Video
	Start    float64
	Duration float64
	// Weighted is set when the duration came from a matching plan segment.
	Weighted bool
}

func (a ClipAllocation) Range() model.TimeRange {
	return model.TimeRange{Start: a.Start, End: a.Start + a.Duration}
}

func sourceDuration(d float64) float64 {
	if !positiveFinite(d) {
		return DefaultSourceDuration
	}
	return d
}

// ClampClip keeps a clip at most 90% of its source, then at least 3 seconds,
// then at most 45 seconds. A NaN clip is treated as MinClip.
func ClampClip(clip, source float64) float64 {
	source = sourceDuration(source)
	if math.IsNaN(clip) {
		clip = MinClip
	}
	clip = min(clip, source*UsableFraction)
	clip = max(clip, MinClip)
	return min(clip, MaxClip)
}

// StartOffset skips the first second, or the first 10% of a short source,
// when the clip still fits with room to spare. Otherwise the clip starts at 0.
func StartOffset(source, clip float64) float64 {
	source = sourceDuration(source)
	if source > clip+StartOffsetSlack {
		return min(MaxStartOffset, source*StartOffsetFraction)
	}
	return 0
}

// SelectClips sorts videos by name and keeps the first MaxClips.
func SelectClips(videos []model.Video) []model.Video {
	sorted := slices.Clone(videos)
	slices.SortStableFunc(sorted, func(a, b model.Video) int {
		return strings.Compare(a.Name, b.Name)
	})
	return sorted[:min(len(sorted), MaxClips)]
}

// matchSegment returns the first plan segment whose asset name, without its
// extension, equals the video's.
func matchSegment(v model.Video, segments []model.TimelineSegment) (model.TimelineSegment, bool) {
	stem := v.Stem()
	return lo.Find(segments, func(s model.TimelineSegment) bool {
		return s.AssetName != "" && model.StemName(s.AssetName) == stem
	})
}

// segmentWeight is importance x recommended duration. Missing or non-finite
// factors take their defaults, and a product that overflows falls back to
// the default weight.
func segmentWeight(s model.TimelineSegment) float64 {
	importance := s.Importance.Float()
	if !positiveFinite(importance) {
		importance = DefaultImportance
	}
	recommended := s.RecommendedDuration.Float()
	if !positiveFinite(recommended) {
		recommended = DefaultRecommended
	}
	weight := importance * recommended
	if !positiveFinite(weight) {
		return DefaultImportance * DefaultRecommended
	}
	return weight
}

// AllocateClips splits adjusted across up to three videos taken in name
// order.
//
// A video whose name matches a plan segment gets a share proportional to
// importance x recommended duration over the total weight of all matched
// videos. Videos without a match, and every video when nothing matches or
// there is no plan, get an equal share. So does every video when the
// weights sum past the float range. Every share is then clamped with
// ClampClip and given a StartOffset.
func AllocateClips(videos []model.Video, segments []model.TimelineSegment, adjusted float64) []ClipAllocation {
	selected := SelectClips(videos)
	if len(selected) == 0 {
		return nil
	}
	equal := adjusted / float64(len(selected))

	type match struct {
		weight float64
		ok     bool
	}
	matches := lo.Map(selected, func(v model.Video, _ int) match {
		seg, ok := matchSegment(v, segments)
		if !ok {
			return match{}
		}
		return match{weight: segmentWeight(seg), ok: true}
	})
	totalWeight := lo.SumBy(matches, func(m match) float64 { return m.weight })

	out := make([]ClipAllocation, 0, len(selected))
	for i, v := range selected {
		share := equal
		weighted := false
		if matches[i].ok && positiveFinite(totalWeight) {
			if w := matches[i].weight / totalWeight * adjusted; !math.IsNaN(w) && !math.IsInf(w, 0) {
				share = w
				weighted = true
			}
		}
		clip := ClampClip(share, v.Duration)
		out = append(out, ClipAllocation{
			Video:    v,
			Start:    StartOffset(v.Duration, clip),
			Duration: clip,
			Weighted: weighted,
		})
	}
	return out
}

// SingleVideoClip is the length used when only one video exists: 95% of the
// source capped by adjusted, never longer than the source itself.
func SingleVideoClip(source, adjusted float64) float64 {
	source = sourceDuration(source)
	use := min(adjusted, source*SingleVideoFraction)
	if use <= 0 {
		use = min(adjusted, DefaultSourceDuration)
	}
	if use <= 0 {
		use = DefaultSourceDuration
	}
	if use > source {
		use = max(source*UsableFraction, MinSingleVideo)
	}
	return use
}

// fallbackVideoClip is the length of a video used by the last-resort tiers.
func fallbackVideoClip(source, adjusted float64) float64 {
	source = sourceDuration(source)
	use := min(adjusted, source)
	if use <= 0 {
		use = DefaultSourceDuration
	}
	if use > source {
		use = max(source*UsableFraction, MinSingleVideo)
	}
	return use
}

func fallbackImageDuration(adjusted float64) float64 {
	d := min(adjusted, MaxImageDuration)
	if d <= 0 {
		return DefaultImageDuration
	}
	return d
}
