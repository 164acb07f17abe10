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
	"log/slog"
	"sync"
	"time"

	"github.com/jaycherian/gcp-go-media-composer/internal/core/model"
)

// SubscriberBuffer is the channel capacity of each event subscriber. Events
// for a subscriber that falls this far behind are dropped.
const SubscriberBuffer = 64

// DefaultRunRetention is how long a finished run stays queryable.
const DefaultRunRetention = time.Hour

// RunTracker is the in-memory state of the runs this process executes. It
// keeps each run's record and event history, and fans new events out to
// subscribers until the run finishes. It is an model.EventSink keyed by the
// event's RunId and is safe for concurrent use.
//
// Finished runs are evicted once they are older than the retention period,
// lazily whenever a new run is tracked or explicitly through Prune.
type RunTracker struct {
	mu        sync.RWMutex
	runs      map[string]*trackedRun
	retention time.Duration
}

type trackedRun struct {
	run         model.ProjectRun
	events      []model.ProgressEvent
	subscribers map[int]chan model.ProgressEvent
	nextSub     int
	finishedAt  time.Time
}

func NewRunTracker() *RunTracker {
	return NewRunTrackerWithRetention(DefaultRunRetention)
}

// NewRunTrackerWithRetention keeps finished runs for retention. A
// non-positive retention uses DefaultRunRetention.
func NewRunTrackerWithRetention(retention time.Duration) *RunTracker {
	if retention <= 0 {
		retention = DefaultRunRetention
	}
	return &RunTracker{runs: make(map[string]*trackedRun), retention: retention}
}

// Track registers run, replacing any earlier record with the same id.
func (t *RunTracker) Track(run *model.ProjectRun) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pruneLocked(time.Now())
	t.runs[run.Id] = &trackedRun{
		run:         *run,
		events:      make([]model.ProgressEvent, 0),
		subscribers: make(map[int]chan model.ProgressEvent),
	}
}

// Update stores a new snapshot of run. Untracked runs are ignored.
func (t *RunTracker) Update(run *model.ProjectRun) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if tr, ok := t.runs[run.Id]; ok {
		tr.run = *run
	}
}

// Finish stores the final snapshot of run and closes every subscriber.
func (t *RunTracker) Finish(run *model.ProjectRun) {
	t.mu.Lock()
	defer t.mu.Unlock()
	tr, ok := t.runs[run.Id]
	if !ok {
		return
	}
	tr.run = *run
	tr.finishedAt = time.Now()
	for id, ch := range tr.subscribers {
		close(ch)
		delete(tr.subscribers, id)
	}
}

// Prune drops the finished runs whose retention expired before now and
// returns how many it removed.
func (t *RunTracker) Prune(now time.Time) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.pruneLocked(now)
}

func (t *RunTracker) pruneLocked(now time.Time) int {
	removed := 0
	for id, tr := range t.runs {
		if tr.finishedAt.IsZero() || now.Sub(tr.finishedAt) < t.retention {
			continue
		}
		delete(t.runs, id)
		removed++
	}
	if removed > 0 {
		slog.Debug("evicted finished runs", "count", removed, "remaining", len(t.runs))
	}
	return removed
}

// Len is the number of runs currently held.
func (t *RunTracker) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.runs)
}

// Get returns a copy of the run record.
func (t *RunTracker) Get(id string) (*model.ProjectRun, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	tr, ok := t.runs[id]
	if !ok {
		return nil, false
	}
	run := tr.run
	return &run, true
}

// Publish records event against its run and forwards it to subscribers.
func (t *RunTracker) Publish(event model.ProgressEvent) {
	t.mu.Lock()
	defer t.mu.Unlock()
	tr, ok := t.runs[event.RunId]
	if !ok {
		return
	}
	tr.events = append(tr.events, event)
	for _, ch := range tr.subscribers {
		select {
		case ch <- event:
		default:
			slog.Warn("dropping progress event for slow subscriber", "run_id", event.RunId)
		}
	}
}

// Events returns a copy of the event history of run id.
func (t *RunTracker) Events(id string) []model.ProgressEvent {
	t.mu.RLock()
	defer t.mu.RUnlock()
	tr, ok := t.runs[id]
	if !ok {
		return nil
	}
	return append([]model.ProgressEvent(nil), tr.events...)
}

// Subscribe returns the events published so far and a channel of the ones to
// come. The channel is closed when the run finishes, or immediately when it
// already has. cancel releases the subscription early. ok is false for an
// unknown run.
func (t *RunTracker) Subscribe(id string) (history []model.ProgressEvent, events <-chan model.ProgressEvent, cancel func(), ok bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	tr, ok := t.runs[id]
	if !ok {
		return nil, nil, func() {}, false
	}

	history = append([]model.ProgressEvent(nil), tr.events...)
	ch := make(chan model.ProgressEvent, SubscriberBuffer)
	if tr.run.IsFinal() {
		close(ch)
		return history, ch, func() {}, true
	}

	subId := tr.nextSub
	tr.nextSub++
	tr.subscribers[subId] = ch
	cancel = func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		if c, found := tr.subscribers[subId]; found {
			close(c)
			delete(tr.subscribers, subId)
		}
	}
	return history, ch, cancel, true
}
