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
	"errors"
	"fmt"
	"math"
)

var (
	ErrMissingAssetId = errors.New("segment has no asset id")
	ErrInvalidRange   = errors.New("segment range is empty, negative or not finite")
)

// TimeRange is a [Start, End) window in seconds within a source asset.
type TimeRange struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

func (r TimeRange) Duration() float64 {
	return r.End - r.Start
}

// IsValid reports whether the range is finite, starts at or after 0 and is
// not empty.
func (r TimeRange) IsValid() bool {
	return isFinite(r.Start) && isFinite(r.End) && r.Start >= 0 && r.End > r.Start
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// InlineSegment is a clip placed back to back with its neighbours. Video
// segments use Range; image segments only have a Duration.
type InlineSegment struct {
	AssetId   string    `json:"asset_id"`
	AssetName string    `json:"-"`
	MediaType MediaType `json:"media_type"`
	Range     TimeRange `json:"range"`
}

func (s InlineSegment) Duration() float64 {
	return s.Range.Duration()
}

// AudioOverlay is an audio track mixed over the timeline from Offset.
type AudioOverlay struct {
	AssetId           string         `json:"asset_id"`
	Offset            float64        `json:"offset"`
	Range             TimeRange      `json:"range"`
	DisableOtherAudio bool           `json:"disable_other_tracks"`
	Kind              GenerationType `json:"kind"`
}

// RenderTimeline is the request sent to the remote renderer: inline segments
// that never overlap and the overlays anchored on top of them.
type RenderTimeline struct {
	Inline   []InlineSegment `json:"inline"`
	Overlays []AudioOverlay  `json:"overlays"`
}

func NewRenderTimeline() *RenderTimeline {
	return &RenderTimeline{
		Inline:   make([]InlineSegment, 0),
		Overlays: make([]AudioOverlay, 0),
	}
}

// AddInline appends a segment after the current end of the timeline.
func (t *RenderTimeline) AddInline(seg InlineSegment) error {
	if seg.AssetId == "" {
		return fmt.Errorf("%s: %w", seg.AssetName, ErrMissingAssetId)
	}
	if !seg.Range.IsValid() {
		return fmt.Errorf("%s [%.2f, %.2f]: %w", seg.AssetName, seg.Range.Start, seg.Range.End, ErrInvalidRange)
	}
	t.Inline = append(t.Inline, seg)
	return nil
}

// AddOverlay anchors an audio track; it must end inside the timeline.
func (t *RenderTimeline) AddOverlay(overlay AudioOverlay) error {
	if overlay.AssetId == "" {
		return ErrMissingAssetId
	}
	if !overlay.Range.IsValid() || !isFinite(overlay.Offset) || overlay.Offset < 0 {
		return fmt.Errorf("overlay [%.2f, %.2f]: %w", overlay.Range.Start, overlay.Range.End, ErrInvalidRange)
	}
	if end := overlay.Offset + overlay.Range.Duration(); end > t.Duration() {
		return fmt.Errorf("overlay ends at %.2fs past timeline end %.2fs: %w", end, t.Duration(), ErrInvalidRange)
	}
	t.Overlays = append(t.Overlays, overlay)
	return nil
}

// Duration is the sum of the inline segment durations.
func (t *RenderTimeline) Duration() float64 {
	total := 0.0
	for _, s := range t.Inline {
		total += s.Duration()
	}
	return total
}

// VideoOnly returns a copy of the timeline without overlays.
func (t *RenderTimeline) VideoOnly() *RenderTimeline {
	out := NewRenderTimeline()
	out.Inline = append(out.Inline, t.Inline...)
	return out
}

func (t *RenderTimeline) IsEmpty() bool {
	return len(t.Inline) == 0
}

// IsRenderable reports whether the timeline has at least one segment and a
// finite, positive duration.
func (t *RenderTimeline) IsRenderable() bool {
	if t == nil || t.IsEmpty() {
		return false
	}
	d := t.Duration()
	return isFinite(d) && d > 0
}

// RenderRequest is everything the render strategies need to produce a URL.
type RenderRequest struct {
	Timeline         *RenderTimeline
	AdjustedDuration float64
	TargetDuration   float64
	// Primary is the first original video asset, the subject of the
	// direct-stream strategies. It is nil when no video was ingested.
	Primary *Video
}
