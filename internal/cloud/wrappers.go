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

// Package cloud provides a wrapper for Google's Generative AI models that adds
// rate limiting, bounded retries and token accounting.
//
// Logic Flow:
//  1. A QuotaAwareGenerativeAIModel is created with a base generation config,
//     a model name and a rate limit from the application config.
//  2. The agent runtime calls GenerateContent with the conversation and a
//     per-call config carrying the agent's instruction and tool declarations.
//  3. The wrapper waits for a rate limiter token, merges the per-call config
//     over the base config and calls the model.
//  4. Failed calls are retried up to MaxRetries times with a linear backoff.
//  5. Token usage is recorded on OpenTelemetry counters.
package cloud

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/time/rate"
	"google.golang.org/genai"
)

const (
	MaxRetries   = 3                      // The maximum number of times to retry a failed model call.
	MeterName    = "github.com/jaycherian/gcp-go-asset-agent"
	retryBackoff = 2 * time.Second
)

// ContentGenerator is the subset of *genai.Models used by the wrapper.
type ContentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// QuotaAwareGenerativeAIModel wraps a generative model with a rate limiter so
// that concurrent agent runs stay inside the project quota.
type QuotaAwareGenerativeAIModel struct {
	GenerativeContentConfig *genai.GenerateContentConfig // Base generation settings shared by every call.
	ModelName               string                       // The Vertex AI model identifier.
	ModelHandle             ContentGenerator             // Usually the Models service of a genai.Client.
	RateLimit               *rate.Limiter                // Token bucket controlling request frequency.
	Backoff                 time.Duration                // Delay unit between retries.

	inputTokens  metric.Int64Counter
	outputTokens metric.Int64Counter
	retries      metric.Int64Counter
}

// NewQuotaAwareModel creates a new QuotaAwareGenerativeAIModel.
//
// Inputs:
//   - wrapped: The base generation config.
//   - name: The model identifier, e.g. "gemini-2.5-flash".
//   - modelHandle: The client used to issue calls.
//   - requestsPerSecond: The sustained request rate, also used as the burst size.
//
// Outputs:
//   - *QuotaAwareGenerativeAIModel: A ready to use wrapper.
func NewQuotaAwareModel(wrapped *genai.GenerateContentConfig, name string, modelHandle ContentGenerator, requestsPerSecond int) *QuotaAwareGenerativeAIModel {
	if requestsPerSecond <= 0 {
		requestsPerSecond = 1
	}
	meter := otel.Meter(MeterName)
	in, err := meter.Int64Counter("model.tokens.input")
	if err != nil {
		slog.Warn("failed to create input token counter", "error", err)
	}
	out, err := meter.Int64Counter("model.tokens.output")
	if err != nil {
		slog.Warn("failed to create output token counter", "error", err)
	}
	retries, err := meter.Int64Counter("model.retries")
	if err != nil {
		slog.Warn("failed to create retry counter", "error", err)
	}
	return &QuotaAwareGenerativeAIModel{
		GenerativeContentConfig: wrapped,
		ModelName:               name,
		ModelHandle:             modelHandle,
		RateLimit:               rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond),
		Backoff:                 retryBackoff,
		inputTokens:             in,
		outputTokens:            out,
		retries:                 retries,
	}
}

// Name returns the model identifier.
func (q *QuotaAwareGenerativeAIModel) Name() string {
	return q.ModelName
}

// GenerateContent issues one model call. The instruction and tools in call
// replace those of the base config; every other field comes from the base.
func (q *QuotaAwareGenerativeAIModel) GenerateContent(ctx context.Context, contents []*genai.Content, call *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	config := q.merge(call)
	attrs := metric.WithAttributes(attribute.String("model", q.ModelName))

	var lastErr error
	for attempt := 0; attempt <= MaxRetries; attempt++ {
		if attempt > 0 {
			if q.retries != nil {
				q.retries.Add(ctx, 1, attrs)
			}
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(attempt) * q.Backoff):
			}
		}
		if err := q.RateLimit.Wait(ctx); err != nil {
			return nil, err
		}
		resp, err := q.ModelHandle.GenerateContent(ctx, q.ModelName, contents, config)
		if err != nil {
			lastErr = err
			slog.WarnContext(ctx, "model call failed", "model", q.ModelName, "attempt", attempt+1, "error", err)
			continue
		}
		if resp.UsageMetadata != nil && q.inputTokens != nil && q.outputTokens != nil {
			q.inputTokens.Add(ctx, int64(resp.UsageMetadata.PromptTokenCount), attrs)
			q.outputTokens.Add(ctx, int64(resp.UsageMetadata.CandidatesTokenCount), attrs)
		}
		return resp, nil
	}
	return nil, fmt.Errorf("%w: model %s failed after %d attempts: %v", ErrTransient, q.ModelName, MaxRetries+1, lastErr)
}

func (q *QuotaAwareGenerativeAIModel) merge(call *genai.GenerateContentConfig) *genai.GenerateContentConfig {
	out := &genai.GenerateContentConfig{}
	if q.GenerativeContentConfig != nil {
		*out = *q.GenerativeContentConfig
	}
	if call != nil {
		if call.SystemInstruction != nil {
			out.SystemInstruction = call.SystemInstruction
		}
		if len(call.Tools) > 0 {
			out.Tools = call.Tools
		}
		if call.ToolConfig != nil {
			out.ToolConfig = call.ToolConfig
		}
	}
	return out
}

// NewGenerateContentConfig translates a model entry from the TOML config into
// the base generation settings.
func NewGenerateContentConfig(values VertexAiLLMModel) *genai.GenerateContentConfig {
	return &genai.GenerateContentConfig{
		Temperature:     genai.Ptr[float32](values.Temperature),
		TopP:            genai.Ptr[float32](values.TopP),
		TopK:            genai.Ptr[float32](values.TopK),
		MaxOutputTokens: values.MaxTokens,
		SafetySettings:  DefaultSafetySettings,
	}
}
