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

// Package cloud wires the composer to Google Cloud and to its remote
// collaborators. This file holds the configuration model decoded from the
// .env.toml files.
//
// Structs:
//   - Storage: the bucket uploads are staged in before the media service pulls them.
//   - BigQueryDataSource: where finished runs are recorded.
//   - PromptTemplates: text/template sources for the planner and scene index prompts.
//   - MediaService: endpoint, credentials and limits of the remote media service.
//   - Assembly: defaults for target length and the optional music pass.
//   - VertexAiLLMModel: settings of one generative model.
//   - TopicSubscription: one Pub/Sub subscription.
//   - Config: the root of it all.
package cloud

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"google.golang.org/genai"
)

// DefaultSafetySettings leaves every harm category unblocked. Prompts only
// carry user descriptions and transcripts of the user's own uploads.
var DefaultSafetySettings = []*genai.SafetySetting{
	{
		Category:  genai.HarmCategoryDangerousContent,
		Threshold: genai.HarmBlockThresholdBlockNone,
	},
	{
		Category:  genai.HarmCategoryHarassment,
		Threshold: genai.HarmBlockThresholdBlockNone,
	},
	{
		Category:  genai.HarmCategoryHateSpeech,
		Threshold: genai.HarmBlockThresholdBlockNone,
	},
	{
		Category:  genai.HarmCategorySexuallyExplicit,
		Threshold: genai.HarmBlockThresholdBlockNone,
	},
}

const (
	GenAIBackendVertex = "vertex"
	GenAIBackendGemini = "gemini"
)

type BigQueryDataSource struct {
	DatasetName string `toml:"dataset"`
	RunTable    string `toml:"run_table"`
}

type PromptTemplates struct {
	ContentPlan string `toml:"content_plan"` // empty means the built-in planner prompt
	SceneIndex  string `toml:"scene_index"`
}

type VertexAiLLMModel struct {
	Model              string  `toml:"model" validate:"required"`
	SystemInstructions string  `toml:"system_instructions"`
	Temperature        float32 `toml:"temperature"`
	TopP               float32 `toml:"top_p"`
	TopK               float32 `toml:"top_k"`
	MaxTokens          int32   `toml:"max_tokens"`
	OutputFormat       string  `toml:"output_format"`
	RateLimit          int     `toml:"rate_limit" validate:"gte=1"` // requests per second
}

type TopicSubscription struct {
	Name             string `toml:"name" validate:"required"`
	DeadLetterTopic  string `toml:"dead_letter_topic"`
	TimeoutInSeconds int    `toml:"timeout_in_seconds"`
}

type Storage struct {
	StagingBucket        string `toml:"staging_bucket"`
	StagingPrefix        string `toml:"staging_prefix"`
	SignedURLTTLInMinute int    `toml:"signed_url_ttl_in_minutes"`
}

// MediaService describes the remote media-processing service. The API key is
// never stored in TOML; APIKeyEnv names the environment variable holding it.
type MediaService struct {
	BaseURL          string  `toml:"base_url" validate:"required,url"`
	APIKeyEnv        string  `toml:"api_key_env" validate:"required"`
	Collection       string  `toml:"collection"`
	TimeoutInSeconds int     `toml:"timeout_in_seconds" validate:"gte=0"`
	RateLimit        float64 `toml:"rate_limit" validate:"gte=0"` // requests per second, 0 disables
	DefaultVoice     string  `toml:"default_voice"`
}

type Assembly struct {
	DefaultTargetDuration int    `toml:"default_target_duration" validate:"omitempty,gte=15,lte=300"`
	EnableBackgroundMusic bool   `toml:"enable_background_music"`
	MusicPrompt           string `toml:"music_prompt"`
}

// Config is the root configuration.
type Config struct {
	Application struct {
		Name                      string `toml:"name" validate:"required"`
		GoogleProjectId           string `toml:"google_project_id"`
		GoogleLocation            string `toml:"location"`
		GenAIBackend              string `toml:"genai_backend" validate:"omitempty,oneof=vertex gemini"`
		GenAIAPIKeyEnv            string `toml:"genai_api_key_env"`
		PlannerModel              string `toml:"planner_model"` // key into AgentModels
		ThreadPoolSize            int    `toml:"thread_pool_size"`
		RunRetentionInMinutes     int    `toml:"run_retention_in_minutes" validate:"gte=0"`
		SignerServiceAccountEmail string `toml:"signer_service_account_email"`
		ListenAddress             string `toml:"listen_address"`
		LogLevel                  string `toml:"log_level" validate:"omitempty,oneof=debug info warn error"`
		LogFile                   string `toml:"log_file"`
	} `toml:"application"`
	Storage            Storage                      `toml:"storage"`
	BigQueryDataSource BigQueryDataSource           `toml:"big_query_data_source"`
	PromptTemplates    PromptTemplates              `toml:"prompt_templates"`
	MediaService       MediaService                 `toml:"media_service"`
	Assembly           Assembly                     `toml:"assembly"`
	TopicSubscriptions map[string]TopicSubscription `toml:"topic_subscriptions" validate:"dive"`
	AgentModels        map[string]VertexAiLLMModel  `toml:"agent_models" validate:"dive"`
}

func NewConfig() *Config {
	return &Config{
		TopicSubscriptions: make(map[string]TopicSubscription),
		AgentModels:        make(map[string]VertexAiLLMModel),
	}
}

// ValidateConfig checks the decoded configuration and that the planner model
// it names exists.
func ValidateConfig(config *Config) error {
	if err := validator.New().Struct(config); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if name := config.Application.PlannerModel; name != "" {
		if _, ok := config.AgentModels[name]; !ok {
			return fmt.Errorf("invalid configuration: planner model %q is not defined in agent_models", name)
		}
	}
	return nil
}

// TargetDurationOrDefault returns target when it is set, otherwise the
// configured default.
func (c *Config) TargetDurationOrDefault(target int) int {
	if target > 0 {
		return target
	}
	if c.Assembly.DefaultTargetDuration > 0 {
		return c.Assembly.DefaultTargetDuration
	}
	return 60
}
