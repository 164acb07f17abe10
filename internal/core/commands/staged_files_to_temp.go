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
	"io"
	"log/slog"
	"os"

	"cloud.google.com/go/storage"
	"github.com/jaycherian/gcp-go-media-composer/internal/core/cor"
	"github.com/jaycherian/gcp-go-media-composer/internal/core/model"
)

// StagedFilesToTemp downloads every file of the project that references a
// Cloud Storage object into a local temp file and points the file's Path at
// it. Files that already have a Path or a SourceURL are left alone.
//
// Each temp file is registered on the context so it is removed when the run
// closes, even if ingestion never gets to it. A failed download is reported
// as a warning and the file is dropped from the request; ingestion decides
// whether enough is left to continue.
type StagedFilesToTemp struct {
	cor.BaseCommand
	client         *storage.Client
	tempFilePrefix string
}

func NewStagedFilesToTemp(name string, client *storage.Client, tempFilePrefix string) *StagedFilesToTemp {
	out := &StagedFilesToTemp{
		BaseCommand:    *cor.NewBaseCommand(name),
		client:         client,
		tempFilePrefix: tempFilePrefix,
	}
	out.InputParamName = KeyProject
	return out
}

func (c *StagedFilesToTemp) IsExecutable(chCtx cor.Context) bool {
	return c.client != nil && c.BaseCommand.IsExecutable(chCtx)
}

func (c *StagedFilesToTemp) Execute(chCtx cor.Context) {
	project := projectFrom(chCtx)
	kept := make([]model.UploadedFile, 0, len(project.Files))

	for _, f := range project.Files {
		if f.Object == "" || f.Path != "" || f.SourceURL != "" {
			kept = append(kept, f)
			continue
		}
		path, written, err := c.download(chCtx.GetContext(), f.Bucket, f.Object)
		if path != "" {
			chCtx.AddTempFile(path)
		}
		if err != nil {
			c.GetErrorCounter().Add(chCtx.GetContext(), 1)
			Emit(chCtx, model.StageIngestion, model.SeverityWarning, "Failed to download %s: %v", f.Name, err)
			continue
		}
		slog.InfoContext(chCtx.GetContext(), "downloaded staged file", "object", fmt.Sprintf("gs://%s/%s", f.Bucket, f.Object), "file", path, "bytes", written)
		f.Path = path
		kept = append(kept, f)
	}

	c.GetSuccessCounter().Add(chCtx.GetContext(), 1)
	project.Files = kept
	chCtx.Add(c.GetOutputParam(), project)
}

func (c *StagedFilesToTemp) download(ctx context.Context, bucket, object string) (string, int64, error) {
	reader, err := c.client.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		return "", 0, fmt.Errorf("failed to create GCS reader for gs://%s/%s: %w", bucket, object, err)
	}
	defer func(reader *storage.Reader) {
		if err := reader.Close(); err != nil {
			slog.Warn("failed to close GCS reader", "error", err)
		}
	}(reader)

	tempFile, err := os.CreateTemp("", c.tempFilePrefix)
	if err != nil {
		return "", 0, fmt.Errorf("could not create temp file: %w", err)
	}
	written, err := io.Copy(tempFile, reader)
	_ = tempFile.Close()
	if err != nil {
		return tempFile.Name(), written, fmt.Errorf("copy failed after %d bytes: %w", written, err)
	}
	return tempFile.Name(), written, nil
}
