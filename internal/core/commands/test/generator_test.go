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
	"strings"
	"testing"

	"github.com/jaycherian/gcp-go-media-composer/internal/core/commands"
	"github.com/jaycherian/gcp-go-media-composer/internal/core/model"
	test "github.com/jaycherian/gcp-go-media-composer/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEstimateVoiceDuration(t *testing.T) {
	script := strings.TrimSpace(strings.Repeat("word ", 80))
	d, ok := commands.EstimateVoiceDuration(script)
	require.True(t, ok)
	assert.InDelta(t, 32.0, d, 1e-9)

	d, ok = commands.EstimateVoiceDuration("just three words")
	require.True(t, ok)
	assert.Equal(t, commands.MinEstimatedVoiceover, d)

	_, ok = commands.EstimateVoiceDuration("   ")
	assert.False(t, ok)
}

func runGenerator(t *testing.T, svc *test.FakeMediaService, enableMusic bool, plan *model.ContentPlan) ([]model.MediaAsset, *test.EventRecorder) {
	chCtx, rec := test.NewChainContext(commands.KeyEvents)
	chCtx.Add(commands.KeyPlan, plan)
	gen := commands.NewContentGenerator("generator", svc, enableMusic, "")
	require.True(t, gen.IsExecutable(chCtx))
	gen.Execute(chCtx)
	assert.False(t, chCtx.HasErrors())
	return chCtx.Get(commands.KeyGenerated).([]model.MediaAsset), rec
}

func TestContentGeneratorEstimatesVoiceover(t *testing.T) {
	svc := test.NewFakeMediaService()
	plan := &model.ContentPlan{ContentToGenerate: []model.GenerationRequest{
		{Type: model.GenerationVoiceover, Script: strings.TrimSpace(strings.Repeat("coffee ", 80))},
	}}

	generated, rec := runGenerator(t, svc, false, plan)
	require.Len(t, generated, 1)
	vo, ok := generated[0].(model.Audio)
	require.True(t, ok)
	assert.Equal(t, "generated_voiceover_0.mp3", vo.Name)
	assert.Equal(t, model.GenerationVoiceover, vo.GenerationType)
	assert.True(t, vo.Generated)
	assert.InDelta(t, 32.0, vo.Duration, 1e-9)
	assert.Equal(t, 0, rec.Count(model.SeverityWarning))
}

func TestContentGeneratorWarnsOnShortVoiceover(t *testing.T) {
	svc := test.NewFakeMediaService()
	svc.VoiceDuration = 12
	plan := &model.ContentPlan{ContentToGenerate: []model.GenerationRequest{
		{Type: model.GenerationVoiceover, Script: "A short line"},
	}}

	generated, rec := runGenerator(t, svc, false, plan)
	require.Len(t, generated, 1)
	assert.Equal(t, 12.0, generated[0].Base().Duration)
	assert.Equal(t, 1, rec.Count(model.SeverityWarning))
}

func TestContentGeneratorSkipsAndContinues(t *testing.T) {
	svc := test.NewFakeMediaService()
	svc.VideoDuration = 6
	svc.Fail["GenerateVoice"] = test.ErrFake
	plan := &model.ContentPlan{ContentToGenerate: []model.GenerationRequest{
		{Type: model.GenerationVoiceover, Script: "fails"},
		{Type: model.GenerationTitleImage, Description: "title"},
		{Type: model.GenerationBackgroundMusic, Description: "jazz"},
		{Type: model.GenerationVideoClip, Description: "steam rising", Duration: 4},
	}}

	generated, rec := runGenerator(t, svc, false, plan)
	require.Len(t, generated, 1)
	v, ok := generated[0].(model.Video)
	require.True(t, ok)
	assert.Equal(t, "generated_video_3.mp4", v.Name)
	assert.Equal(t, 6.0, v.Duration)
	assert.Equal(t, 0, svc.Called("GenerateMusic"))
	assert.Equal(t, 1, rec.Count(model.SeverityWarning))
}

func TestContentGeneratorMusicWhenEnabled(t *testing.T) {
	svc := test.NewFakeMediaService()
	plan := &model.ContentPlan{ContentToGenerate: []model.GenerationRequest{
		{Type: model.GenerationBackgroundMusic, Duration: 20},
	}}

	generated, _ := runGenerator(t, svc, true, plan)
	require.Len(t, generated, 1)
	music := generated[0].(model.Audio)
	assert.Equal(t, model.GenerationBackgroundMusic, music.GenerationType)
	assert.Equal(t, 20.0, music.Duration)
	assert.Equal(t, commands.DefaultMusicPrompt, music.Description)
}
