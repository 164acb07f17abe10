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


// Package api holds the HTTP surface of the composer: project submission,
// run status, live progress over server-sent events and run statistics.
package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/jaycherian/gcp-go-media-composer/internal/core/model"
	"github.com/jaycherian/gcp-go-media-composer/internal/core/services"
	"go.opentelemetry.io/otel/trace"
)

// Runner starts and executes project runs.
type Runner interface {
	Start(req *model.ProjectRequest) *model.ProjectRun
	Run(ctx context.Context, req *model.ProjectRequest) *model.ProjectRun
}

// RunReader looks up finished runs that are no longer tracked in memory.
type RunReader interface {
	Get(ctx context.Context, id string) (*model.ProjectRun, error)
	Recent(ctx context.Context, limit int) ([]*model.ProjectRun, error)
}

// Handlers serves the project routes. Runs are executed on BaseContext so a
// run outlives the request that submitted it but not the server.
type Handlers struct {
	BaseContext context.Context
	Runner      Runner
	Tracker     *services.RunTracker
	Store       RunReader
	UploadDir   string

	validate *validator.Validate
}

func NewHandlers(ctx context.Context, runner Runner, tracker *services.RunTracker, store RunReader) *Handlers {
	return &Handlers{
		BaseContext: ctx,
		Runner:      runner,
		Tracker:     tracker,
		Store:       store,
		UploadDir:   os.TempDir(),
		validate:    validator.New(),
	}
}

// ProjectRouter registers:
//
//	POST /projects             submit a project (multipart form)
//	GET  /projects/:id         run status and result
//	GET  /projects/:id/events  progress as server-sent events
//	GET  /stats                outcome counts over recent runs
func ProjectRouter(r *gin.RouterGroup, h *Handlers) {
	projects := r.Group("/projects")
	{
		projects.POST("", h.CreateProject)
		projects.GET("/:id", h.GetProject)
		projects.GET("/:id/events", h.ProjectEvents)
	}
	Dashboard(r, h)
}

// CreateProject accepts the form fields description, target_duration and
// files. A per-file description may be sent as descriptions[<file name>].
// The run starts in the background and its id is returned with 202.
func (h *Handlers) CreateProject(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid form: %v", err)})
		return
	}

	req := &model.ProjectRequest{Description: c.PostForm("description")}
	if v := c.PostForm("target_duration"); v != "" {
		target, err := strconv.Atoi(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "target_duration must be a whole number of seconds"})
			return
		}
		req.TargetDuration = target
	}
	descriptions := c.PostFormMap("descriptions")

	dir, err := os.MkdirTemp(h.UploadDir, "project-")
	if err != nil {
		slog.ErrorContext(c, "failed to create upload dir", "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}
	for _, fh := range form.File["files"] {
		f, err := saveUpload(c, fh, dir)
		if err != nil {
			_ = os.RemoveAll(dir)
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		f.Description = descriptions[f.Name]
		req.Files = append(req.Files, f)
	}

	run := h.Runner.Start(req)
	if err := h.validate.Struct(req); err != nil {
		_ = os.RemoveAll(dir)
		if h.Tracker != nil {
			run.Status = model.RunFailed
			run.Errors = append(run.Errors, err.Error())
			h.Tracker.Finish(run)
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := trace.ContextWithSpan(h.BaseContext, trace.SpanFromContext(c.Request.Context()))
	go func() {
		defer func() { _ = os.RemoveAll(dir) }()
		h.Runner.Run(ctx, req)
	}()

	c.JSON(http.StatusAccepted, gin.H{"id": run.Id, "status": run.Status})
}

func saveUpload(c *gin.Context, fh *multipart.FileHeader, dir string) (model.UploadedFile, error) {
	name := filepath.Base(fh.Filename)
	if name == "." || name == string(filepath.Separator) {
		return model.UploadedFile{}, fmt.Errorf("invalid file name %q", fh.Filename)
	}
	path := filepath.Join(dir, name)
	if err := c.SaveUploadedFile(fh, path); err != nil {
		return model.UploadedFile{}, fmt.Errorf("failed to save %s: %w", name, err)
	}
	return model.UploadedFile{Name: name, Path: path}, nil
}

// GetProject returns the tracked run, falling back to the run store.
func (h *Handlers) GetProject(c *gin.Context) {
	id := c.Param("id")
	if h.Tracker != nil {
		if run, ok := h.Tracker.Get(id); ok {
			c.JSON(http.StatusOK, run)
			return
		}
	}
	if h.Store == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "run not found"})
		return
	}
	run, err := h.Store.Get(c, id)
	switch {
	case errors.Is(err, services.ErrRunNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "run not found"})
	case err != nil:
		slog.ErrorContext(c, "failed to load run", "run_id", id, "error", err)
		c.Status(http.StatusInternalServerError)
	default:
		c.JSON(http.StatusOK, run)
	}
}

// ProjectEvents replays the events of a tracked run and then streams new
// ones. A final "done" event carries the run once it finishes.
func (h *Handlers) ProjectEvents(c *gin.Context) {
	id := c.Param("id")
	if h.Tracker == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "run not found"})
		return
	}
	history, events, cancel, ok := h.Tracker.Subscribe(id)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "run not found"})
		return
	}
	defer cancel()

	for _, e := range history {
		c.SSEvent("progress", e)
	}
	c.Stream(func(_ io.Writer) bool {
		select {
		case e, open := <-events:
			if !open {
				if run, ok := h.Tracker.Get(id); ok {
					c.SSEvent("done", run)
				}
				return false
			}
			c.SSEvent("progress", e)
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}
