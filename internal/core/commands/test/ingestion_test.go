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

package commands_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/jaycherian/gcp-go-media-composer/internal/core/commands"
	"github.com/jaycherian/gcp-go-media-composer/internal/core/cor"
	"github.com/jaycherian/gcp-go-media-composer/internal/core/model"
	test "github.com/jaycherian/gcp-go-media-composer/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStager struct {
	err    error
	staged []string
}

func (s *fakeStager) Stage(_ context.Context, runId, name, _, _ string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	s.staged = append(s.staged, name)
	return "https://storage.example.com/" + runId + "/" + name, nil
}

func localFile(t *testing.T, name string) string {
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte("not really media"), 0o600))
	return p
}

func ingest(t *testing.T, svc *test.FakeMediaService, stager commands.Stager, files ...model.UploadedFile) (cor.Context, *test.EventRecorder) {
	chCtx, rec := test.NewChainContext(commands.KeyEvents)
	chCtx.Add(commands.KeyProject, &model.ProjectRequest{RunId: "run-1", Description: "demo", TargetDuration: 30, Files: files})
	cmd := commands.NewAssetIngestion("ingestion", svc, stager, nil)
	require.True(t, cmd.IsExecutable(chCtx))
	cmd.Execute(chCtx)
	return chCtx, rec
}

func TestAssetIngestionClassifiesAndIndexes(t *testing.T) {
	svc := test.NewFakeMediaService()
	svc.Durations["intro.mp4"] = 22
	svc.Durations["song.mp3"] = 40
	svc.Transcripts[test.AssetId("intro.mp4")] = "welcome to the demo"

	video := localFile(t, "intro.mp4")
	chCtx, _ := ingest(t, svc, nil,
		model.UploadedFile{Name: "intro.mp4", Description: "Opening shot", Path: video},
		model.UploadedFile{Name: "logo.png", Path: localFile(t, "logo.png")},
		model.UploadedFile{Name: "song.mp3", Path: localFile(t, "song.mp3")},
	)
	require.False(t, chCtx.HasErrors())

	assets := chCtx.Get(commands.KeyAssets).([]model.MediaAsset)
	require.Len(t, assets, 3)

	v, ok := assets[0].(model.Video)
	require.True(t, ok)
	assert.Equal(t, 22.0, v.Duration)
	assert.Equal(t, "welcome to the demo", v.Transcript)
	assert.Equal(t, "Opening shot", v.Description)

	assert.Equal(t, model.MediaTypeImage, assets[1].MediaType())
	assert.Equal(t, 0.0, assets[1].Base().Duration)
	assert.Equal(t, 40.0, assets[2].Base().Duration)

	assert.Equal(t, 1, svc.Called("IndexSpokenWords"))
	assert.Equal(t, 1, svc.Called("IndexScenes"))

	_, err := os.Stat(video)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestAssetIngestionVideoDurationFallbacks(t *testing.T) {
	svc := test.NewFakeMediaService()
	svc.Lengths["described.mov"] = 18
	chCtx, _ := ingest(t, svc, nil,
		model.UploadedFile{Name: "described.mov", SourceURL: "https://example.com/described.mov"},
		model.UploadedFile{Name: "unknown.mp4", SourceURL: "https://example.com/unknown.mp4"},
		model.UploadedFile{Name: "clip.webm", SourceURL: "https://example.com/clip.webm"},
	)
	require.False(t, chCtx.HasErrors())

	assets := chCtx.Get(commands.KeyAssets).([]model.MediaAsset)
	require.Len(t, assets, 3)
	assert.Equal(t, 18.0, assets[0].Base().Duration)
	assert.Equal(t, commands.DefaultVideoDuration, assets[1].Base().Duration)
	assert.Equal(t, model.MediaTypeVideo, assets[2].MediaType())
	assert.Equal(t, 2, svc.Called("IndexSpokenWords"))
}

func TestAssetIngestionIndexFailureKeepsAsset(t *testing.T) {
	svc := test.NewFakeMediaService()
	svc.Durations["a.mp4"] = 12
	svc.Fail["IndexSpokenWords"] = test.ErrFake

	chCtx, _ := ingest(t, svc, nil, model.UploadedFile{Name: "a.mp4", SourceURL: "https://example.com/a.mp4"})
	require.False(t, chCtx.HasErrors())
	assets := chCtx.Get(commands.KeyAssets).([]model.MediaAsset)
	require.Len(t, assets, 1)
	assert.Empty(t, assets[0].(model.Video).Transcript)
	assert.Equal(t, 0, svc.Called("IndexScenes"))
	assert.Equal(t, 0, svc.Called("Transcript"))
}

func TestAssetIngestionSkipsFailedUploads(t *testing.T) {
	svc := test.NewFakeMediaService()
	svc.Fail["Upload"] = test.ErrFake

	paths := []string{localFile(t, "a.mp4"), localFile(t, "b.mp4")}
	for _, p := range paths {
		_, err := os.Stat(p)
		require.NoError(t, err)
	}

	chCtx, rec := ingest(t, svc, nil,
		model.UploadedFile{Name: "a.mp4", Path: paths[0]},
		model.UploadedFile{Name: "b.mp4", Path: paths[1]},
	)
	require.True(t, chCtx.HasErrors())
	assert.True(t, errors.Is(chCtx.GetErrors()["ingestion"], commands.ErrNoAssets))
	assert.Nil(t, chCtx.Get(commands.KeyAssets))
	assert.Equal(t, 2, rec.Count(model.SeverityWarning))
	assert.Equal(t, 1, rec.Count(model.SeverityError))

	for _, p := range paths {
		_, err := os.Stat(p)
		assert.True(t, errors.Is(err, os.ErrNotExist), p)
	}
}

func TestAssetIngestionStagesLocalFiles(t *testing.T) {
	svc := test.NewFakeMediaService()
	stager := &fakeStager{}
	_, _ = ingest(t, svc, stager, model.UploadedFile{Name: "a.mp4", Path: localFile(t, "a.mp4")})

	require.Len(t, svc.Uploads, 1)
	assert.Equal(t, "https://storage.example.com/run-1/a.mp4", svc.Uploads[0].SourceURL)
	assert.Empty(t, svc.Uploads[0].Path)
	assert.Equal(t, []string{"a.mp4"}, stager.staged)
}

func TestAssetIngestionStagingFailureUploadsDirectly(t *testing.T) {
	svc := test.NewFakeMediaService()
	path := localFile(t, "a.mp4")
	_, _ = ingest(t, svc, &fakeStager{err: test.ErrFake}, model.UploadedFile{Name: "a.mp4", Path: path})

	require.Len(t, svc.Uploads, 1)
	assert.Empty(t, svc.Uploads[0].SourceURL)
	assert.Equal(t, path, svc.Uploads[0].Path)
}

func TestProjectTriggerReader(t *testing.T) {
	chCtx := cor.NewBaseContext()
	chCtx.SetContext(context.Background())
	chCtx.Add(cor.CtxIn, test.GetTestProjectMessageText())

	reader := commands.NewProjectTriggerReader("trigger", 60)
	reader.Execute(chCtx)
	require.False(t, chCtx.HasErrors())

	project := chCtx.Get(commands.KeyProject).(*model.ProjectRequest)
	assert.Equal(t, "test-run-001", project.RunId)
	assert.Equal(t, 30, project.TargetDuration)
	require.Len(t, project.Files, 1)
	assert.Equal(t, "incoming/demo-intro.mp4", project.Files[0].Object)
}

func TestProjectTriggerReaderSplitsGCSURLs(t *testing.T) {
	chCtx := cor.NewBaseContext()
	chCtx.SetContext(context.Background())
	chCtx.Add(cor.CtxIn, `{"description": "x", "files": [
		{"name": "a.mp4", "source_url": "gs://uploads/runs/a.mp4"},
		{"name": "b.mp4", "source_url": "https://cdn.example.com/b.mp4"}]}`)

	commands.NewProjectTriggerReader("trigger", 60).Execute(chCtx)
	require.False(t, chCtx.HasErrors())

	project := chCtx.Get(commands.KeyProject).(*model.ProjectRequest)
	assert.Equal(t, 60, project.TargetDuration)
	assert.Equal(t, model.UploadedFile{Name: "a.mp4", Bucket: "uploads", Object: "runs/a.mp4"}, project.Files[0])
	assert.Equal(t, "https://cdn.example.com/b.mp4", project.Files[1].SourceURL)
}

func TestProjectTriggerReaderRejectsInvalid(t *testing.T) {
	for _, msg := range []string{
		`not json`,
		`{"description": "x", "target_duration": 5, "files": [{"name": "a.mp4", "path": "/tmp/a.mp4"}]}`,
		`{"description": "x", "files": []}`,
		`{"description": "x", "files": [{"name": "a.mp4", "source_url": "gs://bucket-only"}]}`,
	} {
		chCtx := cor.NewBaseContext()
		chCtx.SetContext(context.Background())
		chCtx.Add(cor.CtxIn, msg)
		commands.NewProjectTriggerReader("trigger", 60).Execute(chCtx)
		assert.True(t, chCtx.HasErrors(), msg)
	}
}
