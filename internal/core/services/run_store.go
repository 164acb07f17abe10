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
	"errors"
	"fmt"
	"strings"

	"cloud.google.com/go/bigquery"
	"github.com/jaycherian/gcp-go-media-composer/internal/core/model"
	"google.golang.org/api/iterator"
)

var ErrRunNotFound = errors.New("run not found")

// RunStore keeps the history of finished runs in a BigQuery table. It
// satisfies commands.RunRecorder.
type RunStore struct {
	BigqueryClient *bigquery.Client
	DatasetName    string
	RunTable       string
}

// GetFQN returns the run table name in project.dataset.table form.
func (s *RunStore) GetFQN() string {
	fqn := s.BigqueryClient.Dataset(s.DatasetName).Table(s.RunTable).FullyQualifiedName()
	return strings.Replace(fqn, ":", ".", -1)
}

// Save streams run into the run table.
func (s *RunStore) Save(ctx context.Context, run *model.ProjectRun) error {
	i := s.BigqueryClient.Dataset(s.DatasetName).Table(s.RunTable).Inserter()
	if err := i.Put(ctx, run); err != nil {
		return fmt.Errorf("bigquery insert failed for run %s: %w", run.Id, err)
	}
	return nil
}

// Get returns the latest record of run id, or ErrRunNotFound.
func (s *RunStore) Get(ctx context.Context, id string) (*model.ProjectRun, error) {
	q := s.BigqueryClient.Query(fmt.Sprintf(QryFindRunById, s.GetFQN()))
	q.Parameters = []bigquery.QueryParameter{{Name: "id", Value: id}}
	itr, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read from BigQuery: %w", err)
	}
	run := &model.ProjectRun{}
	err = itr.Next(run)
	if errors.Is(err, iterator.Done) {
		return nil, fmt.Errorf("%s: %w", id, ErrRunNotFound)
	}
	if err != nil {
		return nil, err
	}
	return run, nil
}

// Recent returns up to limit runs, newest first.
func (s *RunStore) Recent(ctx context.Context, limit int) ([]*model.ProjectRun, error) {
	out := make([]*model.ProjectRun, 0)
	q := s.BigqueryClient.Query(fmt.Sprintf(QryRecentRuns, s.GetFQN()))
	q.Parameters = []bigquery.QueryParameter{{Name: "limit", Value: limit}}
	itr, err := q.Read(ctx)
	if err != nil {
		return out, fmt.Errorf("failed to read from BigQuery: %w", err)
	}
	for {
		r := &model.ProjectRun{}
		err := itr.Next(r)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return out, fmt.Errorf("failed to iterate results: %w", err)
		}
		out = append(out, r)
	}
	return out, nil
}
