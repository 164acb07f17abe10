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

package test

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/jaycherian/gcp-go-media-composer/internal/core/model"
	"github.com/jaycherian/gcp-go-media-composer/internal/media"
)

var ErrFake = errors.New("fake failure")

// FakeMediaService is an in-memory media.Service. Uploaded assets get the id
// "asset-<base name>". Any method named in Fail returns that error; the
// render hooks, when set, replace the default URLs.
type FakeMediaService struct {
	mu sync.Mutex

	Durations   map[string]float64 // by base name, reported on upload
	Lengths     map[string]float64 // by base name, reported by Describe
	Transcripts map[string]string  // by asset id
	Shots       []media.Shot       // returned by Search
	Fail        map[string]error   // by method name

	VoiceDuration float64
	MusicDuration float64
	VideoDuration float64

	RenderFunc func(tl *model.RenderTimeline) (string, error)
	StreamFunc func(id string, ranges []model.TimeRange) (string, error)
	PlayFunc   func(id string) (string, error)

	Calls     []string
	Uploads   []media.UploadRequest
	Rendered  []*model.RenderTimeline
	generated int
}

var _ media.Service = (*FakeMediaService)(nil)

func NewFakeMediaService() *FakeMediaService {
	return &FakeMediaService{
		Durations:   make(map[string]float64),
		Lengths:     make(map[string]float64),
		Transcripts: make(map[string]string),
		Fail:        make(map[string]error),
	}
}

func (f *FakeMediaService) record(method string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = append(f.Calls, method)
	return f.Fail[method]
}

// Called reports how many times method was invoked.
func (f *FakeMediaService) Called(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.Calls {
		if c == method {
			n++
		}
	}
	return n
}

func AssetId(name string) string {
	return "asset-" + filepath.Base(name)
}

func (f *FakeMediaService) Upload(_ context.Context, req media.UploadRequest) (media.UploadResult, error) {
	if err := f.record("Upload"); err != nil {
		return media.UploadResult{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Uploads = append(f.Uploads, req)
	base := filepath.Base(req.Name)
	return media.UploadResult{AssetId: AssetId(base), Duration: f.Durations[base]}, nil
}

func (f *FakeMediaService) IndexSpokenWords(context.Context, string) error {
	return f.record("IndexSpokenWords")
}

func (f *FakeMediaService) IndexScenes(context.Context, string, string) error {
	return f.record("IndexScenes")
}

func (f *FakeMediaService) Transcript(_ context.Context, id string) (string, error) {
	if err := f.record("Transcript"); err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Transcripts[id], nil
}

func (f *FakeMediaService) Search(_ context.Context, _ string) ([]media.Shot, error) {
	if err := f.record("Search"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append(make([]media.Shot, 0, len(f.Shots)), f.Shots...), nil
}

func (f *FakeMediaService) Describe(_ context.Context, id string) (media.AssetInfo, error) {
	if err := f.record("Describe"); err != nil {
		return media.AssetInfo{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for name, length := range f.Lengths {
		if AssetId(name) == id {
			return media.AssetInfo{Length: length}, nil
		}
	}
	return media.AssetInfo{}, media.ErrNotFound
}

func (f *FakeMediaService) nextId(kind string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.generated++
	return fmt.Sprintf("gen-%s-%d", kind, f.generated)
}

func (f *FakeMediaService) GenerateVoice(context.Context, string, string) (media.Generated, error) {
	if err := f.record("GenerateVoice"); err != nil {
		return media.Generated{}, err
	}
	return media.Generated{AssetId: f.nextId("voice"), Duration: f.VoiceDuration}, nil
}

func (f *FakeMediaService) GenerateMusic(context.Context, string, float64) (media.Generated, error) {
	if err := f.record("GenerateMusic"); err != nil {
		return media.Generated{}, err
	}
	return media.Generated{AssetId: f.nextId("music"), Duration: f.MusicDuration}, nil
}

func (f *FakeMediaService) GenerateVideo(context.Context, string, float64) (media.Generated, error) {
	if err := f.record("GenerateVideo"); err != nil {
		return media.Generated{}, err
	}
	return media.Generated{AssetId: f.nextId("video"), Duration: f.VideoDuration}, nil
}

func (f *FakeMediaService) RenderTimeline(_ context.Context, tl *model.RenderTimeline) (string, error) {
	if err := f.record("RenderTimeline"); err != nil {
		return "", err
	}
	f.mu.Lock()
	f.Rendered = append(f.Rendered, tl)
	f.mu.Unlock()
	if f.RenderFunc != nil {
		return f.RenderFunc(tl)
	}
	return "https://stream.example.com/render/timeline.m3u8", nil
}

func (f *FakeMediaService) Stream(_ context.Context, id string, ranges []model.TimeRange) (string, error) {
	if err := f.record("Stream"); err != nil {
		return "", err
	}
	if f.StreamFunc != nil {
		return f.StreamFunc(id, ranges)
	}
	return "https://stream.example.com/" + id + ".m3u8", nil
}

func (f *FakeMediaService) Play(_ context.Context, id string) (string, error) {
	if err := f.record("Play"); err != nil {
		return "", err
	}
	if f.PlayFunc != nil {
		return f.PlayFunc(id)
	}
	return "https://player.example.com/" + id, nil
}

// FakeCompleter answers every prompt with Response or Err and keeps the
// prompts it was given.
type FakeCompleter struct {
	mu       sync.Mutex
	Response string
	Err      error
	Prompts  []string
}

func (f *FakeCompleter) Complete(_ context.Context, prompt string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Prompts = append(f.Prompts, prompt)
	return f.Response, f.Err
}

// FakeRunRecorder keeps saved runs in memory.
type FakeRunRecorder struct {
	mu   sync.Mutex
	Err  error
	Runs []model.ProjectRun
}

func (f *FakeRunRecorder) Save(_ context.Context, run *model.ProjectRun) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return f.Err
	}
	f.Runs = append(f.Runs, *run)
	return nil
}
