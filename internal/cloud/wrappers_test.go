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

package cloud_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/jaycherian/gcp-go-asset-agent/internal/cloud"
)

type flakyGenerator struct {
	failures int
	calls    int
	configs  []*genai.GenerateContentConfig
}

func (f *flakyGenerator) GenerateContent(_ context.Context, model string, _ []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.calls++
	f.configs = append(f.configs, config)
	if f.calls <= f.failures {
		return nil, errors.New("resource exhausted")
	}
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{Content: genai.NewContentFromText("hi from "+model, "model")}},
	}, nil
}

func TestQuotaAwareModelRetries(t *testing.T) {
	gen := &flakyGenerator{failures: 2}
	m := cloud.NewQuotaAwareModel(cloud.NewGenerateContentConfig(cloud.VertexAiLLMModel{Temperature: 0.1, MaxTokens: 10}), "gemini-test", gen, 100)
	m.Backoff = time.Millisecond

	resp, err := m.GenerateContent(context.Background(), genai.Text("hello"), nil)
	require.NoError(t, err)
	assert.Equal(t, 3, gen.calls)
	assert.Equal(t, "hi from gemini-test", resp.Text())
	assert.Equal(t, "gemini-test", m.Name())
}

func TestQuotaAwareModelGivesUp(t *testing.T) {
	gen := &flakyGenerator{failures: 100}
	m := cloud.NewQuotaAwareModel(&genai.GenerateContentConfig{}, "gemini-test", gen, 100)
	m.Backoff = time.Millisecond

	_, err := m.GenerateContent(context.Background(), genai.Text("hello"), nil)
	assert.ErrorIs(t, err, cloud.ErrTransient)
	assert.Equal(t, cloud.MaxRetries+1, gen.calls)
}

func TestQuotaAwareModelMergesCallConfig(t *testing.T) {
	gen := &flakyGenerator{}
	base := cloud.NewGenerateContentConfig(cloud.VertexAiLLMModel{Temperature: 0.3, MaxTokens: 99})
	m := cloud.NewQuotaAwareModel(base, "gemini-test", gen, 100)

	call := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText("be brief", "user"),
		Tools:             []*genai.Tool{{FunctionDeclarations: []*genai.FunctionDeclaration{{Name: "noop"}}}},
	}
	_, err := m.GenerateContent(context.Background(), genai.Text("hello"), call)
	require.NoError(t, err)

	sent := gen.configs[0]
	assert.Equal(t, int32(99), sent.MaxOutputTokens)
	assert.Equal(t, float32(0.3), *sent.Temperature)
	assert.Equal(t, "be brief", sent.SystemInstruction.Parts[0].Text)
	assert.Equal(t, "noop", sent.Tools[0].FunctionDeclarations[0].Name)
	assert.Nil(t, base.SystemInstruction, "base config must not be mutated")
}

func TestQuotaAwareModelHonoursCancellation(t *testing.T) {
	gen := &flakyGenerator{failures: 100}
	m := cloud.NewQuotaAwareModel(&genai.GenerateContentConfig{}, "gemini-test", gen, 100)
	m.Backoff = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	_, err := m.GenerateContent(ctx, genai.Text("hello"), nil)
	assert.ErrorIs(t, err, context.Canceled)
}
