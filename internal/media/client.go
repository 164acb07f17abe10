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

package media

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jaycherian/gcp-go-media-composer/internal/cloud"
	"github.com/jaycherian/gcp-go-media-composer/internal/core/model"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/time/rate"
)

const (
	authHeader       = "x-access-token"
	defaultTimeout   = 120 * time.Second
	defaultVoiceName = "Default"
)

// Options configures a Client.
type Options struct {
	BaseURL      string
	APIKey       string
	Collection   string
	DefaultVoice string
	Timeout      time.Duration
	RateLimit    float64 // requests per second, 0 disables
	HTTPClient   *http.Client
}

// Client talks to the media service over its JSON REST API. Every response is
// wrapped in an envelope {success, data, message}.
type Client struct {
	baseURL      string
	apiKey       string
	collection   string
	defaultVoice string
	timeout      time.Duration
	limiter      *rate.Limiter
	httpClient   *http.Client
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

type streamURL struct {
	StreamURL string `json:"stream_url"`
	PlayerURL string `json:"player_url"`
}

var _ Service = (*Client)(nil)

func NewClient(opts Options) (*Client, error) {
	if strings.TrimSpace(opts.BaseURL) == "" {
		return nil, errors.New("media client: base url is required")
	}
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, fmt.Errorf("media client: %w", cloud.ErrMissingCredentials)
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	limit := rate.Inf
	burst := 1
	if opts.RateLimit > 0 {
		limit = rate.Limit(opts.RateLimit)
		burst = max(1, int(opts.RateLimit))
	}
	collection := opts.Collection
	if collection == "" {
		collection = "default"
	}
	voice := opts.DefaultVoice
	if voice == "" {
		voice = defaultVoiceName
	}
	return &Client{
		baseURL:      strings.TrimRight(opts.BaseURL, "/"),
		apiKey:       strings.TrimSpace(opts.APIKey),
		collection:   collection,
		defaultVoice: voice,
		timeout:      timeout,
		limiter:      rate.NewLimiter(limit, burst),
		httpClient:   httpClient,
	}, nil
}

// NewClientFromConfig builds a Client from the media_service section.
func NewClientFromConfig(config *cloud.Config, creds *cloud.Credentials) (*Client, error) {
	ms := config.MediaService
	return NewClient(Options{
		BaseURL:      ms.BaseURL,
		APIKey:       creds.MediaServiceAPIKey,
		Collection:   ms.Collection,
		DefaultVoice: ms.DefaultVoice,
		Timeout:      time.Duration(ms.TimeoutInSeconds) * time.Second,
		RateLimit:    ms.RateLimit,
	})
}

func (c *Client) Upload(ctx context.Context, req UploadRequest) (UploadResult, error) {
	var out UploadResult
	path := c.collectionPath("upload")

	var err error
	switch {
	case req.SourceURL != "":
		err = c.doJSON(ctx, http.MethodPost, path, map[string]any{
			"name":       req.Name,
			"media_type": req.MediaType,
			"url":        req.SourceURL,
		}, &out)
	case req.Path != "":
		err = c.doMultipart(ctx, path, req, &out)
	default:
		return out, fmt.Errorf("upload %s: neither path nor source url given", req.Name)
	}
	if err != nil {
		return out, fmt.Errorf("upload %s: %w", req.Name, err)
	}
	if out.AssetId == "" {
		return out, fmt.Errorf("upload %s: service returned no asset id", req.Name)
	}
	return out, nil
}

func (c *Client) IndexSpokenWords(ctx context.Context, assetId string) error {
	return c.doJSON(ctx, http.MethodPost, c.assetPath(assetId, "index"), map[string]any{"index_type": "spoken_word"}, nil)
}

func (c *Client) IndexScenes(ctx context.Context, assetId string, prompt string) error {
	return c.doJSON(ctx, http.MethodPost, c.assetPath(assetId, "index", "scene"), map[string]any{"prompt": prompt}, nil)
}

func (c *Client) Transcript(ctx context.Context, assetId string) (string, error) {
	var out struct {
		Text string `json:"text"`
	}
	if err := c.doJSON(ctx, http.MethodGet, c.assetPath(assetId, "transcription"), nil, &out); err != nil {
		return "", err
	}
	return out.Text, nil
}

func (c *Client) Describe(ctx context.Context, assetId string) (AssetInfo, error) {
	var out AssetInfo
	err := c.doJSON(ctx, http.MethodGet, c.assetPath(assetId), nil, &out)
	return out, err
}

func (c *Client) Search(ctx context.Context, query string) ([]Shot, error) {
	if strings.TrimSpace(query) == "" {
		return nil, errors.New("search: empty query")
	}
	var out struct {
		Shots []Shot `json:"shots"`
	}
	body := map[string]any{"query": query, "index_type": "spoken_word", "search_type": "semantic"}
	if err := c.doJSON(ctx, http.MethodPost, c.collectionPath("search"), body, &out); err != nil {
		return nil, fmt.Errorf("search %q: %w", query, err)
	}
	if out.Shots == nil {
		out.Shots = make([]Shot, 0)
	}
	return out.Shots, nil
}

func (c *Client) GenerateVoice(ctx context.Context, text string, voice string) (Generated, error) {
	if voice == "" {
		voice = c.defaultVoice
	}
	return c.generate(ctx, "voice", map[string]any{"text": text, "voice_name": voice})
}

func (c *Client) GenerateMusic(ctx context.Context, prompt string, duration float64) (Generated, error) {
	return c.generate(ctx, "music", map[string]any{"prompt": prompt, "duration": duration})
}

func (c *Client) GenerateVideo(ctx context.Context, prompt string, duration float64) (Generated, error) {
	return c.generate(ctx, "video", map[string]any{"prompt": prompt, "duration": duration})
}

func (c *Client) generate(ctx context.Context, kind string, body map[string]any) (Generated, error) {
	var out Generated
	if err := c.doJSON(ctx, http.MethodPost, c.collectionPath("generate", kind), body, &out); err != nil {
		return out, fmt.Errorf("generate %s: %w", kind, err)
	}
	if out.AssetId == "" {
		return out, fmt.Errorf("generate %s: service returned no asset id", kind)
	}
	return out, nil
}

func (c *Client) RenderTimeline(ctx context.Context, timeline *model.RenderTimeline) (string, error) {
	var out streamURL
	if err := c.doJSON(ctx, http.MethodPost, "/timeline/compile", map[string]any{"timeline": timeline}, &out); err != nil {
		return "", err
	}
	return out.StreamURL, nil
}

func (c *Client) Stream(ctx context.Context, assetId string, ranges []model.TimeRange) (string, error) {
	pairs := make([][2]float64, 0, len(ranges))
	for _, r := range ranges {
		pairs = append(pairs, [2]float64{r.Start, r.End})
	}
	var out streamURL
	if err := c.doJSON(ctx, http.MethodPost, c.assetPath(assetId, "stream"), map[string]any{"timeline": pairs}, &out); err != nil {
		return "", err
	}
	return out.StreamURL, nil
}

func (c *Client) Play(ctx context.Context, assetId string) (string, error) {
	var out streamURL
	if err := c.doJSON(ctx, http.MethodGet, c.assetPath(assetId, "player"), nil, &out); err != nil {
		return "", err
	}
	return out.PlayerURL, nil
}

func (c *Client) collectionPath(parts ...string) string {
	return "/collections/" + url.PathEscape(c.collection) + "/" + strings.Join(parts, "/")
}

func (c *Client) assetPath(assetId string, parts ...string) string {
	p := "/assets/" + url.PathEscape(assetId)
	if len(parts) > 0 {
		p += "/" + strings.Join(parts, "/")
	}
	return p
}

func (c *Client) doJSON(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}
	return c.do(ctx, method, path, reader, "application/json", out)
}

// doMultipart streams the file into the request body through a pipe so the
// upload is never held in memory.
func (c *Client) doMultipart(ctx context.Context, path string, req UploadRequest, out any) error {
	f, err := os.Open(req.Path)
	if err != nil {
		return err
	}

	pr, pw := io.Pipe()
	w := multipart.NewWriter(pw)
	go func() {
		defer f.Close()
		pw.CloseWithError(writeUploadForm(w, f, req))
	}()

	err = c.do(ctx, http.MethodPost, path, pr, w.FormDataContentType(), out)
	// Unblocks the writer when the request ended before reading the body.
	pr.Close()
	return err
}

func writeUploadForm(w *multipart.Writer, f io.Reader, req UploadRequest) error {
	if err := w.WriteField("name", req.Name); err != nil {
		return err
	}
	if err := w.WriteField("media_type", string(req.MediaType)); err != nil {
		return err
	}
	if req.ContentType != "" {
		if err := w.WriteField("content_type", req.ContentType); err != nil {
			return err
		}
	}
	part, err := w.CreateFormFile("file", filepath.Base(req.Name))
	if err != nil {
		return err
	}
	if _, err = io.Copy(part, f); err != nil {
		return err
	}
	return w.Close()
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType string, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set(authHeader, c.apiKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s %s: read body: %w", method, path, err)
	}
	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%s %s: %w", method, path, ErrNotFound)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		if resp.StatusCode >= 300 {
			return fmt.Errorf("%s %s: status %d", method, path, resp.StatusCode)
		}
		return fmt.Errorf("%s %s: decode envelope: %w", method, path, err)
	}
	if resp.StatusCode >= 300 || !env.Success {
		slog.WarnContext(ctx, "media service call failed", "method", method, "path", path, "status", resp.StatusCode, "message", env.Message)
		return fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, env.Message)
	}
	if out == nil || len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("%s %s: decode data: %w", method, path, err)
	}
	return nil
}
