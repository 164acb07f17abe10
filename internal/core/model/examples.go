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

package model

import "encoding/json"

// GetExampleContentPlan returns a filled-in plan. The planner serialises it
// into the prompt so the model sees the exact shape it has to answer with.
func GetExampleContentPlan() *ContentPlan {
	return &ContentPlan{
		ProjectAnalysis: "Short tutorial that walks through brewing a pour-over coffee",
		TargetAudience:  "Home baristas new to manual brewing",
		ContentToGenerate: []GenerationRequest{
			{
				Type:        GenerationVoiceover,
				Description: "Narration for the cropped grinding and pouring segments",
				Duration:    30,
				Placement:   "overlay",
				VoiceStyle:  "friendly_female",
				Script:      "We start by grinding fresh beans to a medium-fine texture...",
			},
		},
		TimelineStructure: []TimelineSegment{
			{
				Sequence:            1,
				AssetName:           "clip1.mp4",
				StartTime:           0,
				EndTime:             12,
				ClipStart:           1,
				ClipEnd:             13,
				Importance:          2,
				RecommendedDuration: 12,
				Description:         "Beans going through the grinder",
				EditingNotes:        "Trim the first second",
				AudioOverlay:        "voiceover",
			},
			{
				Sequence:            2,
				AssetName:           "clip2.mp4",
				StartTime:           12,
				EndTime:             30,
				ClipStart:           1,
				ClipEnd:             19,
				Importance:          3,
				RecommendedDuration: 18,
				Description:         "Slow spiral pour over the grounds",
				AudioOverlay:        "voiceover",
			},
		},
		EditingInstructions: &EditingInstructions{
			Style:         "educational",
			Transitions:   "smooth",
			AudioMixing:   "voiceover prominent over original audio",
			VisualEffects: "none",
		},
	}
}

// GetExampleContentPlanJSON is GetExampleContentPlan rendered as indented JSON.
func GetExampleContentPlanJSON() string {
	out, err := json.MarshalIndent(GetExampleContentPlan(), "", "  ")
	if err != nil {
		return "{}"
	}
	return string(out)
}
