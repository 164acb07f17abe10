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
	"log/slog"

	"github.com/jaycherian/gcp-go-media-composer/internal/cloud"
	"github.com/jaycherian/gcp-go-media-composer/internal/core/cor"
)

// ProjectTopic is the subscription key of project requests in
// topic_subscriptions.
const ProjectTopic = "ProjectTopic"

// SetupListeners attaches the project workflow to the project subscription
// and starts receiving.
func SetupListeners(ctx context.Context, cloudClients *cloud.ServiceClients, project cor.Command) {
	listener, ok := cloudClients.PubSubListeners[ProjectTopic]
	if !ok {
		slog.Warn("no project subscription configured, pub/sub trigger disabled", "key", ProjectTopic)
		return
	}
	listener.SetCommand(project)
	listener.Listen(ctx)
}
