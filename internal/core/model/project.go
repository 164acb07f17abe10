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

package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	MinTargetDuration     = 15
	MaxTargetDuration     = 300
	DefaultTargetDuration = 60
)

// ProjectRequest is one unit of work: a description, a target length and
// the files to edit together.
type ProjectRequest struct {
	RunId          string         `json:"run_id"`
	Description    string         `json:"description" validate:"required,max=4000"`
	TargetDuration int            `json:"target_duration" validate:"gte=15,lte=300"`
	Files          []UploadedFile `json:"files" validate:"required,min=1,dive"`
}

// UploadedFile names one input. Exactly where the bytes live depends on the
// entry point: a local staging path for HTTP uploads, a GCS object for
// Pub/Sub requests, or a URL the media service can fetch itself.
type UploadedFile struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
	Path        string `json:"path,omitempty" validate:"required_without_all=Object SourceURL"`
	Bucket      string `json:"bucket,omitempty" validate:"required_with=Object"`
	Object      string `json:"object,omitempty"`
	SourceURL   string `json:"source_url,omitempty" validate:"omitempty,url"`
}

// ClassifyExtension maps a file name to its media type. Unknown extensions
// are treated as video; the boolean reports whether the extension was known.
func ClassifyExtension(name string) (MediaType, bool) {
	ext := name
	if i := strings.LastIndex(name, "."); i >= 0 {
		ext = name[i+1:]
	}
	switch strings.ToLower(ext) {
	case "mp4", "mov", "avi", "mkv", "wmv":
		return MediaTypeVideo, true
	case "jpg", "jpeg", "png", "gif", "bmp":
		return MediaTypeImage, true
	case "mp3", "wav", "aac", "m4a":
		return MediaTypeAudio, true
	default:
		return MediaTypeVideo, false
	}
}

type RunStatus string

const (
	RunPending   RunStatus = "pending"
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunNoResult  RunStatus = "no_result"
	RunFailed    RunStatus = "failed"
)

// RemediationHints are shown when no render strategy produced a URL.
var RemediationHints = []string{
	"Check your internet connection",
	"Verify your API keys are correct",
	"Try with smaller media files",
	"Ensure media files are in supported formats",
	"Simplify your project description",
}

// ProjectRun is the record of one run, kept in memory while it executes and
// written to BigQuery when it finishes.
type ProjectRun struct {
	Id               string      `json:"id" bigquery:"id"`
	Description      string      `json:"description" bigquery:"description"`
	TargetDuration   int         `json:"target_duration" bigquery:"target_duration"`
	AdjustedDuration float64     `json:"adjusted_duration" bigquery:"adjusted_duration"`
	TimelineDuration float64     `json:"timeline_duration" bigquery:"timeline_duration"`
	Status           RunStatus   `json:"status" bigquery:"status"`
	PlanSource       string      `json:"plan_source,omitempty" bigquery:"plan_source"`
	RenderStrategy   string      `json:"render_strategy,omitempty" bigquery:"render_strategy"`
	RenderURL        string      `json:"render_url,omitempty" bigquery:"render_url"`
	Assets           []AssetView `json:"assets" bigquery:"assets"`
	Hints            []string    `json:"hints,omitempty" bigquery:"hints"`
	Errors           []string    `json:"errors,omitempty" bigquery:"errors"`
	CreateDate       time.Time   `json:"create_date" bigquery:"create_date"`
	CompleteDate     time.Time   `json:"complete_date" bigquery:"complete_date"`
}

// NewProjectRun starts a pending run for req, assigning a run id when the
// request does not carry one.
func NewProjectRun(req *ProjectRequest) *ProjectRun {
	if req.RunId == "" {
		req.RunId = uuid.NewString()
	}
	return &ProjectRun{
		Id:             req.RunId,
		Description:    req.Description,
		TargetDuration: req.TargetDuration,
		Status:         RunPending,
		Assets:         make([]AssetView, 0),
		Hints:          make([]string, 0),
		Errors:         make([]string, 0),
		CreateDate:     time.Now(),
	}
}

// IsFinal reports whether the run reached a terminal status.
func (r *ProjectRun) IsFinal() bool {
	switch r.Status {
	case RunCompleted, RunNoResult, RunFailed:
		return true
	}
	return false
}
