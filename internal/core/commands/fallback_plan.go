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
	"fmt"
	"strings"

	"github.com/jaycherian/gcp-go-media-composer/internal/core/model"
	"github.com/samber/lo"
)

const minFallbackSegment = 5

var (
	keyWords     = []string{"main", "key", "important", "focus", "primary", "central"}
	activeWords  = []string{"process", "action", "making", "pouring", "grinding", "brewing"}
	processWords = []string{"grinding", "process", "making", "preparation"}
	resultWords  = []string{"final", "finished", "result", "cup"}
	actionWords  = []string{"pouring", "action", "technique"}
	contentWords = []string{"grinding", "pouring", "making"}
)

// FallbackPlan builds a content plan from the assets alone. It is a pure
// function of its inputs: the same assets, description and target always
// yield the same plan.
//
// Every asset gets one segment of target/len(assets) seconds (integer
// division, at least 5), in input order. Importance and recommended duration
// come from keywords in the asset description, or its name when there is no
// description. A single voice-over covering the target is requested when at
// least one asset has a description.
func FallbackPlan(assets []model.MediaAsset, description string, target int) *model.ContentPlan {
	if len(assets) == 0 {
		return &model.ContentPlan{
			ProjectAnalysis:     fmt.Sprintf("Creating basic video content: %s...", truncateRunes(description, 100)),
			TargetAudience:      "General audience",
			ContentToGenerate:   make([]model.GenerationRequest, 0),
			TimelineStructure:   make([]model.TimelineSegment, 0),
			EditingInstructions: &model.EditingInstructions{Style: "professional", Transitions: "smooth"},
			Fallback:            true,
		}
	}

	segment := max(minFallbackSegment, target/len(assets))
	seg := float64(segment)

	timeline := make([]model.TimelineSegment, 0, len(assets))
	for i, a := range assets {
		b := a.Base()
		text := b.Description
		if text == "" {
			text = b.Name
		}
		text = strings.ToLower(text)

		clipEnd := b.Duration
		if clipEnd <= 0 {
			clipEnd = seg
		}
		notes := b.Description
		if notes == "" {
			notes = "Showing " + b.Name
		}
		overlay := "none"
		if i > 0 {
			overlay = "background_music"
		}
		contentType := "result"
		if containsAny(text, contentWords) {
			contentType = "process"
		}

		timeline = append(timeline, model.TimelineSegment{
			Sequence:            model.Number(i + 1),
			AssetName:           b.Name,
			StartTime:           model.Number(i * segment),
			EndTime:             model.Number((i + 1) * segment),
			ClipStart:           0,
			ClipEnd:             model.Number(min(seg, clipEnd)),
			Importance:          model.Number(importanceOf(text)),
			RecommendedDuration: model.Number(recommendedDuration(text, seg)),
			Description:         notes,
			EditingNotes:        "Use full clip, adjust timing as needed",
			AudioOverlay:        overlay,
			ContentType:         contentType,
		})
	}

	generate := make([]model.GenerationRequest, 0, 1)
	described := lo.FilterMap(assets, func(a model.MediaAsset, _ int) (string, bool) {
		d := a.Base().Description
		return d, d != ""
	})
	if len(described) > 0 {
		generate = append(generate, model.GenerationRequest{
			Type:        model.GenerationVoiceover,
			Description: "Professional narration explaining the content",
			Script:      fmt.Sprintf("This video demonstrates %s. ", description) + strings.Join(described, " "),
			VoiceStyle:  "friendly_female",
			Duration:    model.Number(target),
			Placement:   "overlay",
		})
	}

	return &model.ContentPlan{
		ProjectAnalysis:   fmt.Sprintf("Creating video content based on: %s...", truncateRunes(description, 100)),
		TargetAudience:    "General audience",
		ContentToGenerate: generate,
		TimelineStructure: timeline,
		EditingInstructions: &model.EditingInstructions{
			Style:         "professional",
			Transitions:   "smooth",
			AudioMixing:   "balanced",
			VisualEffects: "none",
		},
		Fallback: true,
	}
}

func importanceOf(text string) int {
	switch {
	case containsAny(text, keyWords):
		return 3
	case containsAny(text, activeWords):
		return 2
	}
	return 1
}

func recommendedDuration(text string, segment float64) float64 {
	switch {
	case containsAny(text, processWords):
		return min(segment*1.2, 15)
	case containsAny(text, resultWords):
		return min(segment*0.8, 10)
	case containsAny(text, actionWords):
		return min(segment*1.5, 18)
	}
	return segment
}

func containsAny(text string, words []string) bool {
	return lo.SomeBy(words, func(w string) bool { return strings.Contains(text, w) })
}
