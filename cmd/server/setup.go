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


package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/jaycherian/gcp-go-media-composer/internal/cloud"
	"github.com/jaycherian/gcp-go-media-composer/internal/core/commands"
	"github.com/jaycherian/gcp-go-media-composer/internal/core/services"
	"github.com/jaycherian/gcp-go-media-composer/internal/core/workflow"
	"github.com/jaycherian/gcp-go-media-composer/internal/media"
)

// StateManager holds what the handlers and listeners share.
type StateManager struct {
	config   *cloud.Config
	cloud    *cloud.ServiceClients
	tracker  *services.RunTracker
	runStore *services.RunStore
	workflow *workflow.ProjectWorkflow
}

var state = &StateManager{}

// SetupOS points the configuration loader at configs/ and defaults the
// runtime to "local" when GCP_RUNTIME is not set.
func SetupOS() error {
	if err := os.Setenv(cloud.EnvConfigFilePrefix, "configs"); err != nil {
		return err
	}
	if os.Getenv(cloud.EnvConfigRuntime) == "" {
		return os.Setenv(cloud.EnvConfigRuntime, "local")
	}
	return nil
}

// GetConfig loads .env, the base configuration and the runtime override
// once, and validates the result.
func GetConfig() (*cloud.Config, error) {
	if state.config != nil {
		return state.config, nil
	}
	if err := SetupOS(); err != nil {
		return nil, fmt.Errorf("failed to setup os: %w", err)
	}
	if err := cloud.LoadDotEnv(); err != nil {
		return nil, err
	}
	config := cloud.NewConfig()
	if err := cloud.LoadConfig(config); err != nil {
		return nil, err
	}
	if err := cloud.ValidateConfig(config); err != nil {
		return nil, err
	}
	state.config = config
	return config, nil
}

// InitState creates the cloud clients, the media service client and the
// project workflow, then starts the Pub/Sub listeners.
func InitState(ctx context.Context, config *cloud.Config) error {
	creds, err := cloud.CheckCredentials(config)
	if err != nil {
		return err
	}

	cloudClients, err := cloud.NewCloudServiceClients(ctx, config, creds)
	if err != nil {
		return err
	}
	state.cloud = cloudClients

	mediaClient, err := media.NewClientFromConfig(config, creds)
	if err != nil {
		return fmt.Errorf("media service client: %w", err)
	}

	state.tracker = services.NewRunTrackerWithRetention(time.Duration(config.Application.RunRetentionInMinutes) * time.Minute)
	state.runStore = &services.RunStore{
		BigqueryClient: cloudClients.BiqQueryClient,
		DatasetName:    config.BigQueryDataSource.DatasetName,
		RunTable:       config.BigQueryDataSource.RunTable,
	}

	deps := workflow.Dependencies{
		Media:    mediaClient,
		Storage:  cloudClients.StorageClient,
		Recorder: state.runStore,
		Tracker:  state.tracker,
	}
	if planner, ok := cloudClients.AgentModels[config.Application.PlannerModel]; ok {
		deps.Planner = planner
	} else {
		slog.Warn("no planner model configured, every run uses the fallback plan")
	}
	if bucket := config.Storage.StagingBucket; bucket != "" {
		deps.Stager = &services.StagingService{
			StorageClient: cloudClients.StorageClient,
			IAMClient:     cloudClients.IAMClient,
			SignerEmail:   config.Application.SignerServiceAccountEmail,
			Bucket:        bucket,
			Prefix:        config.Storage.StagingPrefix,
			TTL:           time.Duration(config.Storage.SignedURLTTLInMinute) * time.Minute,
		}
	}

	state.workflow, err = workflow.NewProjectWorkflow(config, deps)
	if err != nil {
		return err
	}

	SetupListeners(ctx, cloudClients, state.workflow)
	return nil
}

var (
	_ commands.RunRecorder = (*services.RunStore)(nil)
	_ commands.Stager      = (*services.StagingService)(nil)
)
