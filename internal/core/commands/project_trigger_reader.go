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
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/jaycherian/gcp-go-media-composer/internal/cloud"
	"github.com/jaycherian/gcp-go-media-composer/internal/core/cor"
	"github.com/jaycherian/gcp-go-media-composer/internal/core/model"
)

// ProjectTriggerReader is the entry point of a Pub/Sub triggered run. It
// parses the raw message into a model.ProjectRequest and validates it.
//
// A missing target duration is replaced with defaultTarget and gs:// source
// URLs are turned into bucket and object before validation. The request is
// stored under KeyProject and written to the output parameter.
type ProjectTriggerReader struct {
	cor.BaseCommand
	defaultTarget int
	validate      *validator.Validate
}

func NewProjectTriggerReader(name string, defaultTarget int) *ProjectTriggerReader {
	return &ProjectTriggerReader{
		BaseCommand:   *cor.NewBaseCommand(name),
		defaultTarget: defaultTarget,
		validate:      validator.New(),
	}
}

func (c *ProjectTriggerReader) Execute(context cor.Context) {
	in, ok := context.Get(c.GetInputParam()).(string)
	if !ok {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), fmt.Errorf("expected message text under %s", c.GetInputParam()))
		return
	}

	var out model.ProjectRequest
	if err := json.Unmarshal([]byte(in), &out); err != nil {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), fmt.Errorf("failed to unmarshal project request: %w", err))
		return
	}
	if out.TargetDuration == 0 {
		out.TargetDuration = c.defaultTarget
	}
	for i, f := range out.Files {
		if !strings.HasPrefix(f.SourceURL, "gs://") {
			continue
		}
		obj, err := cloud.ParseGCSURI(f.SourceURL)
		if err != nil {
			c.GetErrorCounter().Add(context.GetContext(), 1)
			context.AddError(c.GetName(), err)
			return
		}
		out.Files[i].Bucket, out.Files[i].Object, out.Files[i].SourceURL = obj.Bucket, obj.Name, ""
	}
	if err := c.validate.Struct(&out); err != nil {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), fmt.Errorf("invalid project request: %w", err))
		return
	}

	c.GetSuccessCounter().Add(context.GetContext(), 1)
	context.Add(KeyProject, &out)
	context.Add(c.GetOutputParam(), &out)
}
