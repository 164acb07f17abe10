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
	"math"

	"github.com/jaycherian/gcp-go-media-composer/internal/core/model"
)

const (
	AudioSafetyBuffer  = 0.5
	LowCoveragePercent = 90.0
)

// OverlayResult describes the outcome of AttachAudioOverlay.
type OverlayResult struct {
	Attached bool
	Asset    model.Audio
	Window   float64
	// Coverage is the share of the timeline the audio plays over, in percent.
	Coverage float64
	// Skipped lists why earlier candidates were passed over.
	Skipped []string
}

// AttachAudioOverlay adds the first usable candidate to tl as an overlay
// starting at 0 and ignores the rest. A candidate is unusable when its
// duration minus AudioSafetyBuffer is not positive or the timeline rejects
// it. The window is the shorter of the timeline (or fallback when the
// timeline is still empty) and the buffered audio.
func AttachAudioOverlay(tl *model.RenderTimeline, candidates []model.Audio, fallback float64) OverlayResult {
	out := OverlayResult{Skipped: make([]string, 0)}

	base := tl.Duration()
	if !positiveFinite(base) {
		base = fallback
	}
	for _, a := range candidates {
		if !positiveFinite(a.Duration) {
			out.Skipped = append(out.Skipped, fmt.Sprintf("%s has no usable duration (%.1fs)", a.Name, a.Duration))
			continue
		}
		safe := a.Duration - AudioSafetyBuffer
		if safe <= 0 {
			out.Skipped = append(out.Skipped, fmt.Sprintf("%s is too short after the safety buffer (%.1fs)", a.Name, safe))
			continue
		}
		window := min(base, safe)
		if !positiveFinite(window) {
			out.Skipped = append(out.Skipped, fmt.Sprintf("%s yields an empty audio window", a.Name))
			continue
		}

		err := tl.AddOverlay(model.AudioOverlay{
			AssetId: a.AssetId,
			Offset:  0,
			Range:   model.TimeRange{Start: 0, End: window},
			Kind:    a.GenerationType,
		})
		if err != nil {
			out.Skipped = append(out.Skipped, fmt.Sprintf("%s rejected by timeline: %v", a.Name, err))
			continue
		}

		out.Attached = true
		out.Asset = a
		out.Window = window
		out.Coverage = window / base * 100
		return out
	}
	return out
}

func positiveFinite(f float64) bool {
	return f > 0 && !math.IsInf(f, 0)
}
