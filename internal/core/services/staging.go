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

package services

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"time"

	credentials "cloud.google.com/go/iam/credentials/apiv1"
	"cloud.google.com/go/iam/credentials/apiv1/credentialspb"
	"cloud.google.com/go/storage"
	"github.com/google/uuid"
)

// DefaultSignedURLTTL applies when the configured TTL is not positive.
const DefaultSignedURLTTL = 60 * time.Minute

// StagingService copies local uploads into a GCS bucket and hands out V4
// signed URLs, so the media service can fetch large files by URL instead of
// receiving them inline. It satisfies commands.Stager.
type StagingService struct {
	StorageClient *storage.Client
	IAMClient     *credentials.IamCredentialsClient // signs URLs when SignerEmail is set
	SignerEmail   string
	Bucket        string
	Prefix        string
	TTL           time.Duration
}

// ObjectName is the staging object for a file of a run:
// <prefix>/<runId>/<uuid>-<base name>.
func ObjectName(prefix, runId, name string) string {
	return path.Join(prefix, runId, fmt.Sprintf("%s-%s", uuid.NewString(), filepath.Base(name)))
}

// Stage uploads the file at localPath and returns a signed GET URL for it.
func (s *StagingService) Stage(ctx context.Context, runId, name, localPath, contentType string) (string, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return "", err
	}
	defer f.Close()

	object := ObjectName(s.Prefix, runId, name)
	w := s.StorageClient.Bucket(s.Bucket).Object(object).NewWriter(ctx)
	w.ContentType = contentType
	if _, err = io.Copy(w, f); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("io.Copy to gs://%s/%s: %w", s.Bucket, object, err)
	}
	if err = w.Close(); err != nil {
		return "", fmt.Errorf("Writer.Close gs://%s/%s: %w", s.Bucket, object, err)
	}
	return s.GenerateSignedURL(ctx, s.Bucket, object)
}

// GenerateSignedURL creates a time-limited GET URL for a private object. With
// a signer email the blob is signed through the IAM Credentials API, which
// needs no local key; otherwise the storage client's own credentials sign it.
func (s *StagingService) GenerateSignedURL(ctx context.Context, bucket, object string) (string, error) {
	ttl := s.TTL
	if ttl <= 0 {
		ttl = DefaultSignedURLTTL
	}
	opts := &storage.SignedURLOptions{
		Scheme:  storage.SigningSchemeV4,
		Method:  "GET",
		Expires: time.Now().Add(ttl),
	}
	if s.SignerEmail != "" && s.IAMClient != nil {
		opts.GoogleAccessID = s.SignerEmail
		opts.SignBytes = func(b []byte) ([]byte, error) {
			req := &credentialspb.SignBlobRequest{
				Name:    fmt.Sprintf("projects/-/serviceAccounts/%s", s.SignerEmail),
				Payload: b,
			}
			resp, err := s.IAMClient.SignBlob(ctx, req)
			if err != nil {
				return nil, fmt.Errorf("IAMClient.SignBlob: %w", err)
			}
			return resp.SignedBlob, nil
		}
	}

	u, err := s.StorageClient.Bucket(bucket).SignedURL(object, opts)
	if err != nil {
		return "", fmt.Errorf("Bucket(%q).Object(%q).SignedURL: %w", bucket, object, err)
	}
	return u, nil
}
