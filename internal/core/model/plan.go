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

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ContentPlan is what the planner decides: what to generate and how the
// assets should be sequenced. It comes either from the language model or
// from the deterministic fallback and is read-only afterwards.
type ContentPlan struct {
	ProjectAnalysis     string               `json:"project_analysis"`
	TargetAudience      string               `json:"target_audience"`
	ContentToGenerate   []GenerationRequest  `json:"content_to_generate"`
	TimelineStructure   []TimelineSegment    `json:"timeline_structure"`
	EditingInstructions *EditingInstructions `json:"editing_instructions,omitempty"`
	// Fallback is set when the plan was synthesised locally.
	Fallback bool `json:"-"`
}

type GenerationRequest struct {
	Type        GenerationType `json:"type"`
	Description string         `json:"description"`
	Duration    Number         `json:"duration"`
	Placement   string         `json:"placement,omitempty"`
	VoiceStyle  string         `json:"voice_style,omitempty"`
	Script      string         `json:"script,omitempty"`
}

// TimelineSegment is one proposed slot of the timeline. AssetName may or may
// not match a real asset.
type TimelineSegment struct {
	Sequence            Number `json:"sequence,omitempty"`
	AssetName           string `json:"asset_name"`
	StartTime           Number `json:"start_time"`
	EndTime             Number `json:"end_time"`
	ClipStart           Number `json:"clip_start"`
	ClipEnd             Number `json:"clip_end"`
	Importance          Number `json:"importance"`
	RecommendedDuration Number `json:"recommended_duration"`
	Description         string `json:"description"`
	EditingNotes        string `json:"editing_notes,omitempty"`
	AudioOverlay        string `json:"audio_overlay,omitempty"`
	ContentType         string `json:"content_type,omitempty"`
}

type EditingInstructions struct {
	Style         string `json:"style,omitempty"`
	Transitions   string `json:"transitions,omitempty"`
	AudioMixing   string `json:"audio_mixing,omitempty"`
	VisualEffects string `json:"visual_effects,omitempty"`
}

// Number is a float64 that also accepts quoted numbers and null, which
// language models emit often enough to matter. NaN and infinities decode to
// 0 so the caller's defaults apply.
type Number float64

func (n Number) Float() float64 {
	return float64(n)
}

func (n *Number) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*n = 0
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		s = strings.TrimSuffix(strings.TrimSpace(s), "s")
		if s == "" {
			*n = 0
			return nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("invalid number %q: %w", s, err)
		}
		*n = finiteNumber(f)
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*n = finiteNumber(f)
	return nil
}

func finiteNumber(f float64) Number {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return Number(f)
}

// Voiceovers returns the voice-over requests of the plan.
func (p *ContentPlan) Voiceovers() []GenerationRequest {
	out := make([]GenerationRequest, 0)
	for _, r := range p.ContentToGenerate {
		if r.Type == GenerationVoiceover {
			out = append(out, r)
		}
	}
	return out
}
