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
	"errors"
	"fmt"
	"strings"

	"github.com/jaycherian/gcp-go-media-composer/internal/core/model"
)

// ErrUnparsablePlan is returned by ParsePlan when the model's answer holds no
// usable JSON object.
var ErrUnparsablePlan = errors.New("content plan is not parsable")

const jsonFence = "```json"

// ExtractJSON pulls the JSON candidate out of a model answer. It prefers a
// ```json fenced block, then the span from the first '{' to the last '}',
// and otherwise returns the trimmed text unchanged.
func ExtractJSON(text string) string {
	text = strings.TrimSpace(text)

	if i := strings.Index(text, jsonFence); i >= 0 {
		rest := text[i+len(jsonFence):]
		if j := strings.Index(rest, "```"); j >= 0 {
			rest = rest[:j]
		}
		return strings.TrimSpace(rest)
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end >= 0 {
		if end < start {
			return ""
		}
		return text[start : end+1]
	}
	return text
}

// ParsePlan extracts and decodes a content plan from a model answer.
func ParsePlan(text string) (*model.ContentPlan, error) {
	candidate := ExtractJSON(text)
	if candidate == "" {
		return nil, fmt.Errorf("%w: empty answer", ErrUnparsablePlan)
	}
	var plan model.ContentPlan
	if err := json.Unmarshal([]byte(candidate), &plan); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnparsablePlan, err)
	}
	if plan.ContentToGenerate == nil {
		plan.ContentToGenerate = make([]model.GenerationRequest, 0)
	}
	if plan.TimelineStructure == nil {
		plan.TimelineStructure = make([]model.TimelineSegment, 0)
	}
	return &plan, nil
}
