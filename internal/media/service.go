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

// Package media is the port to the remote media-processing service. The
// composer never touches media bytes itself: uploads, indexing, generation,
// and rendering are all calls on Service.
package media

import (
	"context"
	"errors"

	"github.com/jaycherian/gcp-go-media-composer/internal/core/model"
)

// ErrNotFound is returned when the service does not know the asset.
var ErrNotFound = errors.New("media asset not found")

// UploadRequest describes one file to upload. Exactly one of Path and
// SourceURL is set: Path for a local file, SourceURL for an object the
// service can fetch itself (e.g. a signed Cloud Storage URL).
type UploadRequest struct {
	Name        string
	MediaType   model.MediaType
	Path        string
	SourceURL   string
	ContentType string
}

// UploadResult is the service's view of an uploaded asset. Duration and
// Length are whatever the service reported; either may be zero.
type UploadResult struct {
	AssetId  string  `json:"id"`
	Duration float64 `json:"duration"`
	Length   float64 `json:"length"`
}

type AssetInfo struct {
	Duration float64 `json:"duration"`
	Length   float64 `json:"length"`
}

// Generated is an asset produced by a generation call.
type Generated struct {
	AssetId  string  `json:"id"`
	Duration float64 `json:"duration"`
}

// Shot is one search hit: a window of an indexed video, best match first.
type Shot struct {
	VideoId string  `json:"video_id"`
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Text    string  `json:"text"`
	Score   float64 `json:"search_score"`
}

// Service is the set of remote operations the composer relies on.
type Service interface {
	Upload(ctx context.Context, req UploadRequest) (UploadResult, error)

	IndexSpokenWords(ctx context.Context, assetId string) error
	IndexScenes(ctx context.Context, assetId string, prompt string) error
	Transcript(ctx context.Context, assetId string) (string, error)
	Describe(ctx context.Context, assetId string) (AssetInfo, error)
	// Search runs a semantic query over the indexed videos of the
	// collection and returns the matching shots ranked by relevance.
	Search(ctx context.Context, query string) ([]Shot, error)

	GenerateVoice(ctx context.Context, text string, voice string) (Generated, error)
	GenerateMusic(ctx context.Context, prompt string, duration float64) (Generated, error)
	GenerateVideo(ctx context.Context, prompt string, duration float64) (Generated, error)

	// RenderTimeline compiles a timeline and returns its stream URL.
	RenderTimeline(ctx context.Context, timeline *model.RenderTimeline) (string, error)
	// Stream returns a stream URL for an asset. An empty ranges list streams
	// the whole asset.
	Stream(ctx context.Context, assetId string, ranges []model.TimeRange) (string, error)
	Play(ctx context.Context, assetId string) (string, error)
}
