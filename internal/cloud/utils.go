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

// Package cloud provides components for interacting with Google Cloud services.
// This file contains the configuration loader and the resilient call helper
// for the generative model.
//
// Functions:
//   - LoadDotEnv: loads secrets from a local .env file into the environment.
//   - LoadConfig: decodes the base .env.toml and then the runtime override,
//     e.g. .env.local.toml, into the same struct.
//   - GenerateMultiModalResponse: calls a model with retries and records token
//     usage.
//   - NewTextPart: wraps a string prompt as genai content.
package cloud

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"go.opentelemetry.io/otel/metric"
	"google.golang.org/genai"
)

const (
	ConfigFileBaseName  = ".env"
	ConfigFileExtension = ".toml"
	ConfigSeparator     = "."
	EnvConfigFilePrefix = "GCP_CONFIG_PREFIX" // directory holding the config files
	EnvConfigRuntime    = "GCP_RUNTIME"       // e.g. "local", "test", "prod"
	MaxRetries          = 3
)

// RetryBackoff is the pause before the first retry; it doubles on each
// following attempt.
var RetryBackoff = 2 * time.Second

func fileExists(in string) bool {
	_, err := os.Stat(in)
	return !errors.Is(err, os.ErrNotExist)
}

func configPrefix() string {
	prefix := os.Getenv(EnvConfigFilePrefix)
	if len(prefix) > 0 && !strings.HasSuffix(prefix, string(os.PathSeparator)) {
		prefix = prefix + string(os.PathSeparator)
	}
	return prefix
}

// LoadDotEnv reads <prefix>.env into the process environment without
// overriding variables that are already set. A missing file is not an error.
func LoadDotEnv() error {
	name := configPrefix() + ConfigFileBaseName
	if !fileExists(name) {
		return nil
	}
	if err := godotenv.Load(name); err != nil {
		return fmt.Errorf("failed to load %s: %w", name, err)
	}
	slog.Info("loaded environment file", "file", name)
	return nil
}

// LoadConfig decodes the base configuration file and then the runtime
// specific one into baseConfig; values in the second override the first.
// The runtime defaults to "test".
func LoadConfig(baseConfig interface{}) error {
	prefix := configPrefix()

	runtimeEnvironment := os.Getenv(EnvConfigRuntime)
	if runtimeEnvironment == "" {
		runtimeEnvironment = "test"
	}

	baseConfigFileName := prefix + ConfigFileBaseName + ConfigFileExtension
	envConfigFileName := prefix + ConfigFileBaseName + ConfigSeparator + runtimeEnvironment + ConfigFileExtension
	slog.Info("loading configuration", "base", baseConfigFileName, "override", envConfigFileName)

	if fileExists(baseConfigFileName) {
		if _, err := toml.DecodeFile(baseConfigFileName, baseConfig); err != nil {
			return fmt.Errorf("failed to decode base configuration file %s: %w", baseConfigFileName, err)
		}
	}

	if fileExists(envConfigFileName) {
		if _, err := toml.DecodeFile(envConfigFileName, baseConfig); err != nil {
			return fmt.Errorf("failed to decode environment configuration file %s: %w", envConfigFileName, err)
		}
	}
	return nil
}

// ContentGenerator is the single call GenerateMultiModalResponse needs.
type ContentGenerator interface {
	GenerateContent(ctx context.Context, content []*genai.Content) (*genai.GenerateContentResponse, error)
}

// GenerateMultiModalResponse calls model, retrying up to MaxRetries times with
// an exponential pause, and returns the concatenated text of all candidates.
func GenerateMultiModalResponse(
	ctx context.Context,
	inputTokenCounter metric.Int64Counter,
	outputTokenCounter metric.Int64Counter,
	retryCounter metric.Int64Counter,
	tryCount int,
	model ContentGenerator,
	content []*genai.Content) (value string, err error) {

	resp, err := model.GenerateContent(ctx, content)
	if err != nil {
		if tryCount >= MaxRetries || ctx.Err() != nil {
			return "", err
		}
		retryCounter.Add(ctx, 1)
		slog.WarnContext(ctx, "generative model call failed, retrying", "attempt", tryCount+1, "error", err)

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(RetryBackoff << tryCount):
		}
		return GenerateMultiModalResponse(ctx, inputTokenCounter, outputTokenCounter, retryCounter, tryCount+1, model, content)
	}

	if resp.UsageMetadata != nil {
		inputTokenCounter.Add(ctx, int64(resp.UsageMetadata.PromptTokenCount))
		outputTokenCounter.Add(ctx, int64(resp.UsageMetadata.CandidatesTokenCount))
	}

	var sb strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			sb.WriteString(part.Text)
		}
	}
	return sb.String(), nil
}

// NewTextPart wraps a plain prompt as user content.
func NewTextPart(in string) []*genai.Content {
	return genai.Text(in)
}
