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

package cloud

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/time/rate"
	"google.golang.org/genai"
)

// QuotaAwareGenerativeAIModel decorates a generative model with a token
// bucket so a burst of runs cannot exceed the model quota, and with the token
// and retry counters GenerateMultiModalResponse records into.
type QuotaAwareGenerativeAIModel struct {
	GenerativeContentConfig *genai.GenerateContentConfig
	ModelName               string
	ModelHandle             *genai.Models
	RateLimit               *rate.Limiter

	inputTokenCounter  metric.Int64Counter
	outputTokenCounter metric.Int64Counter
	retryCounter       metric.Int64Counter
}

// NewQuotaAwareModel allows requestsPerSecond calls per second with a burst
// of the same size. Values below one are raised to one.
func NewQuotaAwareModel(wrapped *genai.GenerateContentConfig, name string, modelHandle *genai.Models, requestsPerSecond int) *QuotaAwareGenerativeAIModel {
	if requestsPerSecond < 1 {
		requestsPerSecond = 1
	}
	meter := otel.Meter("github.com/jaycherian/gcp-go-media-composer")
	in, err := meter.Int64Counter(fmt.Sprintf("genai.%s.tokens.input", name))
	if err != nil {
		slog.Warn("failed to create token counter", "model", name, "error", err)
	}
	out, err := meter.Int64Counter(fmt.Sprintf("genai.%s.tokens.output", name))
	if err != nil {
		slog.Warn("failed to create token counter", "model", name, "error", err)
	}
	retries, err := meter.Int64Counter(fmt.Sprintf("genai.%s.retry", name))
	if err != nil {
		slog.Warn("failed to create retry counter", "model", name, "error", err)
	}

	return &QuotaAwareGenerativeAIModel{
		GenerativeContentConfig: wrapped,
		ModelName:               name,
		ModelHandle:             modelHandle,
		RateLimit:               rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond),
		inputTokenCounter:       in,
		outputTokenCounter:      out,
		retryCounter:            retries,
	}
}

// GenerateContent blocks until the limiter grants a token or ctx is done,
// then calls the model once.
func (q *QuotaAwareGenerativeAIModel) GenerateContent(ctx context.Context, content []*genai.Content) (*genai.GenerateContentResponse, error) {
	if err := q.RateLimit.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}
	return q.ModelHandle.GenerateContent(ctx, q.ModelName, content, q.GenerativeContentConfig)
}

// Complete sends a text-only prompt and returns the concatenated text of the
// answer, retrying transient failures.
func (q *QuotaAwareGenerativeAIModel) Complete(ctx context.Context, prompt string) (string, error) {
	return GenerateMultiModalResponse(ctx, q.inputTokenCounter, q.outputTokenCounter, q.retryCounter, 0, q, NewTextPart(prompt))
}
