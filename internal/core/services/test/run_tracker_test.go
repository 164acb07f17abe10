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

package services_test

import (
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jaycherian/gcp-go-media-composer/internal/core/model"
	"github.com/jaycherian/gcp-go-media-composer/internal/core/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRun(id string) *model.ProjectRun {
	return model.NewProjectRun(&model.ProjectRequest{RunId: id, Description: "demo", TargetDuration: 30})
}

func event(runId, msg string) model.ProgressEvent {
	return model.ProgressEvent{RunId: runId, Stage: model.StageAssembly, Severity: model.SeverityInfo, Message: msg}
}

func TestRunTrackerGetReturnsCopy(t *testing.T) {
	tracker := services.NewRunTracker()
	run := newRun("r1")
	tracker.Track(run)

	got, ok := tracker.Get("r1")
	require.True(t, ok)
	got.Status = model.RunFailed

	again, _ := tracker.Get("r1")
	assert.Equal(t, model.RunPending, again.Status)

	_, ok = tracker.Get("missing")
	assert.False(t, ok)
}

func TestRunTrackerSubscribeReplaysAndStreams(t *testing.T) {
	tracker := services.NewRunTracker()
	run := newRun("r1")
	tracker.Track(run)
	tracker.Publish(event("r1", "first"))
	tracker.Publish(event("other", "ignored"))

	history, events, cancel, ok := tracker.Subscribe("r1")
	require.True(t, ok)
	defer cancel()
	require.Len(t, history, 1)
	assert.Equal(t, "first", history[0].Message)

	tracker.Publish(event("r1", "second"))
	got := <-events
	assert.Equal(t, "second", got.Message)

	run.Status = model.RunCompleted
	tracker.Finish(run)
	_, open := <-events
	assert.False(t, open)

	assert.Len(t, tracker.Events("r1"), 2)
	final, _ := tracker.Get("r1")
	assert.Equal(t, model.RunCompleted, final.Status)
}

func TestRunTrackerSubscribeToFinishedRun(t *testing.T) {
	tracker := services.NewRunTracker()
	run := newRun("r1")
	tracker.Track(run)
	tracker.Publish(event("r1", "only"))
	run.Status = model.RunNoResult
	tracker.Finish(run)

	history, events, _, ok := tracker.Subscribe("r1")
	require.True(t, ok)
	assert.Len(t, history, 1)
	_, open := <-events
	assert.False(t, open)

	_, _, _, ok = tracker.Subscribe("missing")
	assert.False(t, ok)
}

func TestRunTrackerCancelStopsDelivery(t *testing.T) {
	tracker := services.NewRunTracker()
	tracker.Track(newRun("r1"))

	_, events, cancel, ok := tracker.Subscribe("r1")
	require.True(t, ok)
	cancel()
	cancel()
	_, open := <-events
	assert.False(t, open)

	assert.NotPanics(t, func() { tracker.Publish(event("r1", "after cancel")) })
}

func TestRunTrackerConcurrentPublish(t *testing.T) {
	tracker := services.NewRunTracker()
	tracker.Track(newRun("r1"))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tracker.Publish(event("r1", "tick"))
		}()
	}
	wg.Wait()
	assert.Len(t, tracker.Events("r1"), 20)
}

func TestRunTrackerPrunesFinishedRuns(t *testing.T) {
	tracker := services.NewRunTrackerWithRetention(time.Minute)
	done := newRun("done")
	tracker.Track(done)
	tracker.Publish(event("done", "only"))
	done.Status = model.RunCompleted
	tracker.Finish(done)
	tracker.Track(newRun("active"))

	assert.Equal(t, 0, tracker.Prune(time.Now()))
	assert.Equal(t, 2, tracker.Len())

	assert.Equal(t, 1, tracker.Prune(time.Now().Add(2*time.Minute)))
	_, ok := tracker.Get("done")
	assert.False(t, ok)
	assert.Nil(t, tracker.Events("done"))
	_, _, _, ok = tracker.Subscribe("done")
	assert.False(t, ok)

	assert.Equal(t, 0, tracker.Prune(time.Now().Add(24*time.Hour)))
	_, ok = tracker.Get("active")
	assert.True(t, ok)
}

func TestRunTrackerEvictsOnTrack(t *testing.T) {
	tracker := services.NewRunTrackerWithRetention(time.Millisecond)
	for i := 0; i < 50; i++ {
		run := newRun(fmt.Sprintf("r%d", i))
		tracker.Track(run)
		run.Status = model.RunCompleted
		tracker.Finish(run)
	}
	time.Sleep(5 * time.Millisecond)

	tracker.Track(newRun("latest"))
	assert.Equal(t, 1, tracker.Len())
	_, ok := tracker.Get("latest")
	assert.True(t, ok)
}

func TestRunTrackerDefaultRetention(t *testing.T) {
	tracker := services.NewRunTrackerWithRetention(0)
	run := newRun("r1")
	tracker.Track(run)
	run.Status = model.RunFailed
	tracker.Finish(run)

	assert.Equal(t, 0, tracker.Prune(time.Now().Add(services.DefaultRunRetention/2)))
	assert.Equal(t, 1, tracker.Prune(time.Now().Add(services.DefaultRunRetention+time.Second)))
}

func TestObjectName(t *testing.T) {
	name := services.ObjectName("uploads", "run-1", "/tmp/dir/clip.mp4")
	assert.True(t, strings.HasPrefix(name, "uploads/run-1/"))
	assert.True(t, strings.HasSuffix(name, "-clip.mp4"))
	assert.NotEqual(t, name, services.ObjectName("uploads", "run-1", "/tmp/dir/clip.mp4"))
}
