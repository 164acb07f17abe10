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
	"strings"
	"text/template"

	"github.com/jaycherian/gcp-go-media-composer/internal/core/model"
)

const (
	// WordsPerMinute is the narration pace the voice-over script is sized for.
	WordsPerMinute          = 160
	videoTranscriptExcerpt  = 300
	cropUsableFraction      = 0.90
	cropStartFraction       = 0.10
	cropMaxStartOffsetInSec = 1.0
)

// DefaultContentPlanPrompt is the planner prompt. It tells the model which
// window of each video survives the edit so the narration only describes
// footage that will be shown.
const DefaultContentPlanPrompt = `You are an expert multimedia content creator and video editor. Based on the project description and available assets, create a content plan focused on professional video editing and sequencing.

CRITICAL: The videos will be CROPPED to use only their best portion (starting about 10% into each video and using at most 90% of it). Your voiceover script must describe the CROPPED content that will actually appear in the final video, NOT the full original uploads.

PROJECT DESCRIPTION:
{{.Description}}

TARGET DURATION: {{.TargetDuration}} seconds

AVAILABLE ASSETS (with cropping information):
{{range $i, $a := .Assets}}{{if $i}}---
{{end}}Asset: {{$a.Name}} ({{$a.MediaType}})
Description: {{$a.Description}}
{{if $a.Cropped}}Original Duration: {{printf "%.1f" $a.Duration}}s
IMPORTANT - Cropped Segment: Will use {{printf "%.1f" $a.UsableDuration}}s starting from {{printf "%.1f" $a.StartOffset}}s (skipping beginning/end)
Actual Content Window: {{printf "%.1f" $a.StartOffset}}s to {{printf "%.1f" $a.WindowEnd}}s of the original video
{{end}}{{if $a.Transcript}}Full Video Transcript (NOTE: Only the middle portion will be used in the final video): {{$a.Transcript}}...
{{end}}{{end}}
Do NOT plan background music or title images. Focus on:
1. Cropping, clipping and sequencing the available video clips
2. A voiceover that matches the CROPPED video segments
3. A timeline structure with good pacing
4. A professional narrative flow across the available assets

Return a single JSON object with this structure:
{
  "project_analysis": "Brief analysis of the project goals and editing approach",
  "target_audience": "Who this content is for",
  "content_to_generate": [
    {
      "type": "voiceover",
      "description": "Description of the narration, matching the cropped content",
      "duration": {{.TargetDuration}},
      "placement": "beginning|middle|end|overlay",
      "voice_style": "friendly_female|professional_male|...",
      "script": "The complete narration text"
    }
  ],
  "timeline_structure": [
    {
      "sequence": 1,
      "asset_name": "existing asset name or generated_X",
      "start_time": 0,
      "end_time": 5,
      "importance": 2,
      "recommended_duration": 5,
      "description": "What happens in this CROPPED segment",
      "editing_notes": "Crop, adjust, overlay instructions",
      "audio_overlay": "voiceover|none"
    }
  ],
  "editing_instructions": {
    "style": "professional|casual|cinematic|educational",
    "transitions": "smooth|quick|creative",
    "audio_mixing": "music volume, voiceover prominence",
    "visual_effects": "any special effects or adjustments"
  }
}

A complete answer for a different project looks like this:
{{.Example}}

importance is 1 (filler) to 3 (essential). The voiceover script must be long enough to narrate the full {{.TargetDuration}} seconds: at about {{.WordsPerMinute}} words per minute that is roughly {{.WordTarget}} words. Open with a short introduction, narrate each CROPPED segment, and close with a brief summary. Never reference content from the beginning or end of a video that the edit cuts out.`

// NewPlanPromptTemplate parses override, or DefaultContentPlanPrompt when
// override is empty.
func NewPlanPromptTemplate(override string) (*template.Template, error) {
	text := override
	if strings.TrimSpace(text) == "" {
		text = DefaultContentPlanPrompt
	}
	return template.New("content_plan").Parse(text)
}

type promptAsset struct {
	Name           string
	MediaType      model.MediaType
	Description    string
	IsVideo        bool
	Cropped        bool
	Duration       float64
	UsableDuration float64
	StartOffset    float64
	WindowEnd      float64
	Transcript     string
}

type promptData struct {
	Description    string
	TargetDuration int
	WordsPerMinute int
	WordTarget     int
	Assets         []promptAsset
	Example        string
}

// WordTarget is the script length that fills targetSeconds of narration.
func WordTarget(targetSeconds int) int {
	return int(float64(targetSeconds) / 60 * WordsPerMinute)
}

func newPromptData(assets []model.MediaAsset, description string, target int) promptData {
	out := promptData{
		Description:    description,
		TargetDuration: target,
		WordsPerMinute: WordsPerMinute,
		WordTarget:     WordTarget(target),
		Assets:         make([]promptAsset, 0, len(assets)),
		Example:        model.GetExampleContentPlanJSON(),
	}
	for _, a := range assets {
		b := a.Base()
		pa := promptAsset{
			Name:        b.Name,
			MediaType:   a.MediaType(),
			Description: b.Description,
			Duration:    b.Duration,
		}
		if v, ok := a.(model.Video); ok {
			pa.IsVideo = true
			pa.Transcript = truncateRunes(v.Transcript, videoTranscriptExcerpt)
			if b.Duration > 0 {
				pa.Cropped = true
				pa.UsableDuration = b.Duration * cropUsableFraction
				pa.StartOffset = min(cropMaxStartOffsetInSec, b.Duration*cropStartFraction)
				pa.WindowEnd = pa.StartOffset + pa.UsableDuration
			}
		}
		out.Assets = append(out.Assets, pa)
	}
	return out
}

func truncateRunes(in string, n int) string {
	r := []rune(in)
	if len(r) <= n {
		return in
	}
	return string(r[:n])
}
