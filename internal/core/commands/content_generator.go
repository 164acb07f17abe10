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
	"fmt"
	"strings"

	"github.com/jaycherian/gcp-go-media-composer/internal/core/cor"
	"github.com/jaycherian/gcp-go-media-composer/internal/core/model"
	"github.com/jaycherian/gcp-go-media-composer/internal/media"
)

const (
	DefaultVoiceStyle       = "Default"
	SecondsPerWord          = 0.4
	MinEstimatedVoiceover   = 10.0
	UnknownVoiceoverLength  = 30.0
	ShortVoiceoverThreshold = 20.0
	DefaultGeneratedClip    = 5.0
	DefaultMusicPrompt      = "Calm instrumental background music"
)

// EstimateVoiceDuration guesses the narration length of script from its
// word count. It reports false when the script has no words to count.
func EstimateVoiceDuration(script string) (float64, bool) {
	words := len(strings.Fields(script))
	if words == 0 {
		return 0, false
	}
	return max(MinEstimatedVoiceover, float64(words)*SecondsPerWord), true
}

// ContentGenerator produces the assets the plan asks for. Voice-overs and
// video clips are always generated; background music only when enabled.
// Title images and unknown types are skipped. A failed request is reported
// and skipped; the command itself never fails.
type ContentGenerator struct {
	cor.BaseCommand
	service     media.Service
	enableMusic bool
	musicPrompt string
}

func NewContentGenerator(name string, service media.Service, enableMusic bool, musicPrompt string) *ContentGenerator {
	if musicPrompt == "" {
		musicPrompt = DefaultMusicPrompt
	}
	out := &ContentGenerator{
		BaseCommand: *cor.NewBaseCommand(name),
		service:     service,
		enableMusic: enableMusic,
		musicPrompt: musicPrompt,
	}
	out.InputParamName = KeyPlan
	return out
}

func (c *ContentGenerator) Execute(chCtx cor.Context) {
	plan := planFrom(chCtx)
	generated := make([]model.MediaAsset, 0, len(plan.ContentToGenerate))

	for i, req := range plan.ContentToGenerate {
		asset, err := c.generate(chCtx, i, req)
		if err != nil {
			c.GetErrorCounter().Add(chCtx.GetContext(), 1)
			Emit(chCtx, model.StageGeneration, model.SeverityWarning, "Failed to generate %s: %v", req.Type, err)
			continue
		}
		if asset == nil {
			continue
		}
		generated = append(generated, asset)
		Emit(chCtx, model.StageGeneration, model.SeveritySuccess, "Generated %s (%.1fs)", asset.Base().Name, asset.Base().Duration)
	}

	Emit(chCtx, model.StageGeneration, model.SeverityInfo, "Generated %d new assets", len(generated))
	c.GetSuccessCounter().Add(chCtx.GetContext(), 1)
	chCtx.Add(KeyGenerated, generated)
	chCtx.Add(c.GetOutputParam(), generated)
}

func (c *ContentGenerator) generate(chCtx cor.Context, i int, req model.GenerationRequest) (model.MediaAsset, error) {
	ctx := chCtx.GetContext()
	switch req.Type {
	case model.GenerationVoiceover:
		return c.voiceover(chCtx, i, req)
	case model.GenerationVideoClip:
		duration := req.Duration.Float()
		if duration <= 0 {
			duration = DefaultGeneratedClip
		}
		gen, err := c.service.GenerateVideo(ctx, req.Description, duration)
		if err != nil {
			return nil, err
		}
		if gen.Duration > 0 {
			duration = gen.Duration
		}
		return model.NewVideo(model.AssetBase{
			Name:           fmt.Sprintf("generated_video_%d.mp4", i),
			AssetId:        gen.AssetId,
			Description:    req.Description,
			Duration:       duration,
			Generated:      true,
			GenerationType: model.GenerationVideoClip,
		}, ""), nil
	case model.GenerationBackgroundMusic:
		if !c.enableMusic {
			Emit(chCtx, model.StageGeneration, model.SeverityInfo, "Skipping background music generation")
			return nil, nil
		}
		return c.music(ctx, i, req)
	default:
		Emit(chCtx, model.StageGeneration, model.SeverityInfo, "Skipping %s generation", req.Type)
		return nil, nil
	}
}

func (c *ContentGenerator) voiceover(chCtx cor.Context, i int, req model.GenerationRequest) (model.MediaAsset, error) {
	text := req.Script
	if text == "" {
		text = req.Description
	}
	voice := req.VoiceStyle
	if voice == "" {
		voice = DefaultVoiceStyle
	}
	gen, err := c.service.GenerateVoice(chCtx.GetContext(), text, voice)
	if err != nil {
		return nil, err
	}

	duration := gen.Duration
	if duration <= 0 {
		estimate, ok := EstimateVoiceDuration(text)
		if !ok {
			estimate = UnknownVoiceoverLength
			Emit(chCtx, model.StageGeneration, model.SeverityWarning, "Could not estimate voiceover duration, using %.0fs", estimate)
		}
		duration = estimate
	}
	if duration < ShortVoiceoverThreshold {
		Emit(chCtx, model.StageGeneration, model.SeverityWarning, "Voiceover is only %.1fs and may not cover the whole video", duration)
	}

	return model.NewAudio(model.AssetBase{
		Name:           fmt.Sprintf("generated_voiceover_%d.mp3", i),
		AssetId:        gen.AssetId,
		Description:    req.Description,
		Duration:       duration,
		Generated:      true,
		GenerationType: model.GenerationVoiceover,
	}), nil
}

func (c *ContentGenerator) music(ctx context.Context, i int, req model.GenerationRequest) (model.MediaAsset, error) {
	prompt := req.Description
	if prompt == "" {
		prompt = c.musicPrompt
	}
	duration := req.Duration.Float()
	if duration <= 0 {
		duration = float64(model.DefaultTargetDuration)
	}
	gen, err := c.service.GenerateMusic(ctx, prompt, duration)
	if err != nil {
		return nil, err
	}
	if gen.Duration > 0 {
		duration = gen.Duration
	}
	return model.NewAudio(model.AssetBase{
		Name:           fmt.Sprintf("generated_music_%d.mp3", i),
		AssetId:        gen.AssetId,
		Description:    prompt,
		Duration:       duration,
		Generated:      true,
		GenerationType: model.GenerationBackgroundMusic,
	}), nil
}
