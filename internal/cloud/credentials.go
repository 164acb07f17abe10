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

package cloud

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

// ErrMissingCredentials is the one condition that stops the process: without
// credentials for the media service or the language model nothing can run.
var ErrMissingCredentials = errors.New("missing credentials")

// Credentials are the secrets resolved from the environment.
type Credentials struct {
	MediaServiceAPIKey string
	GenAIAPIKey        string
}

// CheckCredentials resolves the secrets named by the configuration. It
// returns ErrMissingCredentials listing every variable that is unset.
//
// For the Vertex backend no API key is needed; the project id must be set and
// application default credentials are left to the client libraries.
func CheckCredentials(config *Config) (*Credentials, error) {
	missing := make([]string, 0)
	out := &Credentials{}

	if env := config.MediaService.APIKeyEnv; env != "" {
		out.MediaServiceAPIKey = os.Getenv(env)
		if out.MediaServiceAPIKey == "" {
			missing = append(missing, env)
		}
	} else {
		missing = append(missing, "media_service.api_key_env")
	}

	switch config.Application.GenAIBackend {
	case GenAIBackendGemini:
		env := config.Application.GenAIAPIKeyEnv
		if env == "" {
			env = "GEMINI_API_KEY"
		}
		out.GenAIAPIKey = os.Getenv(env)
		if out.GenAIAPIKey == "" {
			missing = append(missing, env)
		}
	default:
		if config.Application.GoogleProjectId == "" {
			missing = append(missing, "application.google_project_id")
		}
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingCredentials, strings.Join(missing, ", "))
	}
	return out, nil
}
