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

// Package model holds the data types that flow through a project run: the
// ingested and generated media assets, the content plan, the render timeline
// and the run record persisted at the end.
package model

import (
	"path/filepath"
	"strings"

	"github.com/samber/lo"
)

type MediaType string

const (
	MediaTypeVideo MediaType = "video"
	MediaTypeImage MediaType = "image"
	MediaTypeAudio MediaType = "audio"
)

type GenerationType string

const (
	GenerationVoiceover       GenerationType = "voiceover"
	GenerationVideoClip       GenerationType = "video_clip"
	GenerationBackgroundMusic GenerationType = "background_music"
	GenerationTitleImage      GenerationType = "title_image"
)

// MinVideoDuration is the floor applied to every video duration estimate.
const MinVideoDuration = 5.0

// AssetBase is the record shared by every kind of asset. Duration is a best
// effort estimate in seconds and is never authoritative.
type AssetBase struct {
	Name           string
	AssetId        string
	Description    string
	Duration       float64
	Generated      bool
	GenerationType GenerationType
}

func (b AssetBase) Base() AssetBase {
	return b
}

// Stem is the asset name without its file extension.
func (b AssetBase) Stem() string {
	return StemName(b.Name)
}

// MediaAsset is a Video, an Image or an Audio. Assets are values: once built
// they are only read.
type MediaAsset interface {
	Base() AssetBase
	MediaType() MediaType
	sealed()
}

type Video struct {
	AssetBase
	Transcript string
}

type Image struct {
	AssetBase
}

type Audio struct {
	AssetBase
}

// NewVideo returns a Video whose duration honours MinVideoDuration.
func NewVideo(base AssetBase, transcript string) Video {
	if base.Duration < MinVideoDuration {
		base.Duration = MinVideoDuration
	}
	return Video{AssetBase: base, Transcript: transcript}
}

func NewImage(base AssetBase) Image {
	return Image{AssetBase: base}
}

func NewAudio(base AssetBase) Audio {
	return Audio{AssetBase: base}
}

func (Video) MediaType() MediaType { return MediaTypeVideo }
func (Image) MediaType() MediaType { return MediaTypeImage }
func (Audio) MediaType() MediaType { return MediaTypeAudio }

func (Video) sealed() {}
func (Image) sealed() {}
func (Audio) sealed() {}

// StemName strips the extension from a file name.
func StemName(name string) string {
	return strings.TrimSuffix(name, filepath.Ext(name))
}

// Videos returns the video assets in their original order.
func Videos(assets []MediaAsset) []Video {
	return lo.FilterMap(assets, func(a MediaAsset, _ int) (Video, bool) {
		v, ok := a.(Video)
		return v, ok
	})
}

// Images returns the image assets in their original order.
func Images(assets []MediaAsset) []Image {
	return lo.FilterMap(assets, func(a MediaAsset, _ int) (Image, bool) {
		i, ok := a.(Image)
		return i, ok
	})
}

// TotalVideoDuration sums the positive durations of all video assets.
func TotalVideoDuration(assets []MediaAsset) float64 {
	return lo.SumBy(Videos(assets), func(v Video) float64 {
		return max(v.Duration, 0)
	})
}

// Voiceovers returns the generated voice-over tracks in generation order.
func Voiceovers(assets []MediaAsset) []Audio {
	return lo.FilterMap(assets, func(a MediaAsset, _ int) (Audio, bool) {
		au, ok := a.(Audio)
		return au, ok && au.GenerationType == GenerationVoiceover
	})
}

// AssetView is the flat, serialisable form of a MediaAsset used by the API and
// the run history table.
type AssetView struct {
	Name           string  `json:"name" bigquery:"name"`
	AssetId        string  `json:"asset_id" bigquery:"asset_id"`
	MediaType      string  `json:"media_type" bigquery:"media_type"`
	Description    string  `json:"description" bigquery:"description"`
	Transcript     string  `json:"transcript,omitempty" bigquery:"transcript"`
	Duration       float64 `json:"duration" bigquery:"duration"`
	Generated      bool    `json:"generated" bigquery:"generated"`
	GenerationType string  `json:"generation_type,omitempty" bigquery:"generation_type"`
}

func NewAssetView(a MediaAsset) AssetView {
	b := a.Base()
	out := AssetView{
		Name:           b.Name,
		AssetId:        b.AssetId,
		MediaType:      string(a.MediaType()),
		Description:    b.Description,
		Duration:       b.Duration,
		Generated:      b.Generated,
		GenerationType: string(b.GenerationType),
	}
	if v, ok := a.(Video); ok {
		out.Transcript = v.Transcript
	}
	return out
}

func NewAssetViews(assets []MediaAsset) []AssetView {
	return lo.Map(assets, func(a MediaAsset, _ int) AssetView { return NewAssetView(a) })
}
