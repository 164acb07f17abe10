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
	"context"
	"errors"
	"log/slog"
	"os"
	"strings"
	"text/template"

	"github.com/h2non/filetype"
	"github.com/jaycherian/gcp-go-media-composer/internal/core/cor"
	"github.com/jaycherian/gcp-go-media-composer/internal/core/model"
	"github.com/jaycherian/gcp-go-media-composer/internal/media"
	"github.com/samber/lo"
)

const (
	// DefaultSceneIndexPrompt is rendered with the uploaded file as data.
	DefaultSceneIndexPrompt = "Analyze this video: {{.Description}}"
	// DefaultVideoDuration is used when nothing reports a video's length.
	DefaultVideoDuration = 10.0
)

// Stager copies a local upload somewhere the media service can fetch it and
// returns the URL to fetch it from.
type Stager interface {
	Stage(ctx context.Context, runId string, name string, path string, contentType string) (string, error)
}

// AssetIngestion uploads every file of the project to the media service and
// turns each into a model.MediaAsset.
//
// Logic Flow:
//  1. The media type comes from the file extension; unknown extensions are
//     uploaded as video but not indexed.
//  2. When a Stager is configured, local files are staged first and uploaded
//     by URL. A staging failure falls back to a direct upload.
//  3. Videos are indexed for speech and scenes and their transcript fetched.
//     The first indexing failure ends indexing for that file and leaves the
//     transcript empty.
//  4. A video's duration is the reported duration, else the reported length,
//     else the service metadata, else DefaultVideoDuration.
//  5. A file that fails to upload is skipped. Local files are deleted once
//     processed whatever the outcome.
//
// The run fails with ErrNoAssets only when nothing was ingested.
type AssetIngestion struct {
	cor.BaseCommand
	service     media.Service
	stager      Stager
	scenePrompt *template.Template
}

func NewAssetIngestion(name string, service media.Service, stager Stager, scenePrompt *template.Template) *AssetIngestion {
	if scenePrompt == nil {
		scenePrompt = template.Must(template.New("scene").Parse(DefaultSceneIndexPrompt))
	}
	out := &AssetIngestion{
		BaseCommand: *cor.NewBaseCommand(name),
		service:     service,
		stager:      stager,
		scenePrompt: scenePrompt,
	}
	out.InputParamName = KeyProject
	return out
}

func (c *AssetIngestion) Execute(chCtx cor.Context) {
	project := projectFrom(chCtx)
	assets := make([]model.MediaAsset, 0, len(project.Files))

	Emit(chCtx, model.StageIngestion, model.SeverityInfo, "Uploading %d files", len(project.Files))
	for _, f := range project.Files {
		asset, err := c.ingest(chCtx, project.RunId, f)
		if err != nil {
			c.GetErrorCounter().Add(chCtx.GetContext(), 1)
			Emit(chCtx, model.StageIngestion, model.SeverityWarning, "Failed to upload %s: %v", f.Name, err)
			continue
		}
		assets = append(assets, asset)
		Emit(chCtx, model.StageIngestion, model.SeveritySuccess, "Uploaded %s (%s, %.1fs)", f.Name, asset.MediaType(), asset.Base().Duration)
	}

	if len(assets) == 0 {
		c.GetErrorCounter().Add(chCtx.GetContext(), 1)
		Emit(chCtx, model.StageIngestion, model.SeverityError, "No media could be uploaded")
		chCtx.AddError(c.GetName(), ErrNoAssets)
		return
	}

	c.reportDurations(chCtx, assets)
	c.GetSuccessCounter().Add(chCtx.GetContext(), 1)
	chCtx.Add(KeyAssets, assets)
	chCtx.Add(c.GetOutputParam(), assets)
}

func (c *AssetIngestion) ingest(chCtx cor.Context, runId string, f model.UploadedFile) (model.MediaAsset, error) {
	ctx := chCtx.GetContext()
	if f.Path != "" {
		defer removeLocal(f.Path)
	}

	mediaType, known := model.ClassifyExtension(f.Name)
	req := media.UploadRequest{
		Name:        f.Name,
		MediaType:   mediaType,
		Path:        f.Path,
		SourceURL:   f.SourceURL,
		ContentType: sniffContentType(f.Path),
	}
	if req.SourceURL == "" && req.Path != "" && c.stager != nil {
		signed, err := c.stager.Stage(ctx, runId, f.Name, f.Path, req.ContentType)
		if err != nil {
			slog.WarnContext(ctx, "staging failed, uploading directly", "file", f.Name, "error", err)
		} else {
			req.SourceURL = signed
			req.Path = ""
		}
	}

	res, err := c.service.Upload(ctx, req)
	if err != nil {
		return nil, err
	}

	base := model.AssetBase{
		Name:        f.Name,
		AssetId:     res.AssetId,
		Description: f.Description,
	}
	switch mediaType {
	case model.MediaTypeImage:
		base.Duration = max(res.Duration, 0)
		return model.NewImage(base), nil
	case model.MediaTypeAudio:
		base.Duration = max(res.Duration, 0)
		return model.NewAudio(base), nil
	}

	transcript := ""
	if known {
		transcript = c.index(ctx, res.AssetId, f)
	}
	base.Duration = c.videoDuration(ctx, res)
	return model.NewVideo(base, transcript), nil
}

// index runs speech indexing, scene indexing and transcript retrieval in
// order. Any failure stops the sequence and yields an empty transcript.
func (c *AssetIngestion) index(ctx context.Context, assetId string, f model.UploadedFile) string {
	if err := c.service.IndexSpokenWords(ctx, assetId); err != nil {
		slog.WarnContext(ctx, "speech indexing failed", "file", f.Name, "error", err)
		return ""
	}
	var prompt strings.Builder
	if err := c.scenePrompt.Execute(&prompt, f); err != nil {
		slog.WarnContext(ctx, "scene prompt failed", "file", f.Name, "error", err)
		return ""
	}
	if err := c.service.IndexScenes(ctx, assetId, prompt.String()); err != nil {
		slog.WarnContext(ctx, "scene indexing failed", "file", f.Name, "error", err)
		return ""
	}
	transcript, err := c.service.Transcript(ctx, assetId)
	if err != nil {
		slog.WarnContext(ctx, "transcript retrieval failed", "file", f.Name, "error", err)
		return ""
	}
	return transcript
}

func (c *AssetIngestion) videoDuration(ctx context.Context, res media.UploadResult) float64 {
	if res.Duration > 0 {
		return res.Duration
	}
	if res.Length > 0 {
		return res.Length
	}
	info, err := c.service.Describe(ctx, res.AssetId)
	if err != nil {
		slog.WarnContext(ctx, "asset metadata lookup failed", "asset_id", res.AssetId, "error", err)
		return DefaultVideoDuration
	}
	if info.Duration > 0 {
		return info.Duration
	}
	if info.Length > 0 {
		return info.Length
	}
	return DefaultVideoDuration
}

func (c *AssetIngestion) reportDurations(chCtx cor.Context, assets []model.MediaAsset) {
	videos := model.Videos(assets)
	if len(videos) == 0 {
		return
	}
	total := model.TotalVideoDuration(assets)
	average := total / float64(len(videos))
	Emit(chCtx, model.StageIngestion, model.SeverityInfo, "Total video content: %.1fs across %d videos (average %.1fs)", total, len(videos), average)

	names := lo.Map(videos, func(v model.Video, _ int) string { return v.Name })
	slog.InfoContext(chCtx.GetContext(), "ingested videos", "videos", names, "total", total)

	switch {
	case total < 15:
		Emit(chCtx, model.StageIngestion, model.SeverityWarning, "Short videos detected: %.1fs of footage in total, the edit will be brief", total)
	case total < 30:
		Emit(chCtx, model.StageIngestion, model.SeverityInfo, "Moderate video length: %.1fs of footage available", total)
	default:
		Emit(chCtx, model.StageIngestion, model.SeveritySuccess, "Great content length: %.1fs of footage available", total)
	}
}

func sniffContentType(path string) string {
	if path == "" {
		return ""
	}
	kind, err := filetype.MatchFile(path)
	if err != nil || kind == filetype.Unknown {
		return ""
	}
	return kind.MIME.Value
}

func removeLocal(path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("failed to remove local upload", "file", path, "error", err)
	}
}
