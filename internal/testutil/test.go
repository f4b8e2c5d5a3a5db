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

// Package test provides fakes and fixtures shared by the test suites: a
// scripted model that replays canned Gemini responses, an in-memory object
// store, a valid configuration and sample GCS notifications.
package test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/jaycherian/gcp-go-asset-agent/internal/cloud"
	"github.com/jaycherian/gcp-go-asset-agent/internal/core/agent"
	"github.com/jaycherian/gcp-go-asset-agent/internal/core/artifact"
	"github.com/jaycherian/gcp-go-asset-agent/internal/core/session"
)

// ErrScriptExhausted is returned when a ScriptedModel is called more often than scripted.
var ErrScriptExhausted = errors.New("scripted model has no responses left")

// NewAgent builds an agent declared in a test and stops the test when the
// declaration is invalid.
func NewAgent(t testing.TB, cfg agent.Config) *agent.Agent {
	t.Helper()
	a, err := agent.New(cfg)
	require.NoError(t, err)
	return a
}

// ScriptedModel answers GenerateContent calls with queued responses and
// records every request it receives.
type ScriptedModel struct {
	name      string
	mu        sync.Mutex
	responses []*genai.GenerateContentResponse
	errs      []error
	Requests  [][]*genai.Content
	Configs   []*genai.GenerateContentConfig
}

// NewScriptedModel returns a model that replays responses in order.
func NewScriptedModel(name string, responses ...*genai.GenerateContentResponse) *ScriptedModel {
	return &ScriptedModel{name: name, responses: responses, errs: make([]error, len(responses))}
}

// Then queues another response.
func (m *ScriptedModel) Then(resp *genai.GenerateContentResponse) *ScriptedModel {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = append(m.responses, resp)
	m.errs = append(m.errs, nil)
	return m
}

// ThenFail queues an error.
func (m *ScriptedModel) ThenFail(err error) *ScriptedModel {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = append(m.responses, nil)
	m.errs = append(m.errs, err)
	return m
}

func (m *ScriptedModel) Name() string { return m.name }

func (m *ScriptedModel) GenerateContent(_ context.Context, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Requests = append(m.Requests, contents)
	m.Configs = append(m.Configs, config)
	if len(m.responses) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrScriptExhausted, m.name)
	}
	resp, err := m.responses[0], m.errs[0]
	m.responses, m.errs = m.responses[1:], m.errs[1:]
	return resp, err
}

// Calls returns the number of requests seen so far.
func (m *ScriptedModel) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Requests)
}

// TextResponse is a model turn with a single text part.
func TextResponse(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
		Content:      genai.NewContentFromText(text, "model"),
		FinishReason: genai.FinishReasonStop,
	}}}
}

// CallResponse is a model turn requesting one tool call.
func CallResponse(name string, args map[string]any) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
		Content:      genai.NewContentFromFunctionCall(name, args, "model"),
		FinishReason: genai.FinishReasonStop,
	}}}
}

// BlockedResponse is a prompt rejected by the safety filters.
func BlockedResponse(message string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{PromptFeedback: &genai.GenerateContentResponsePromptFeedback{
		BlockReason:        genai.BlockedReasonSafety,
		BlockReasonMessage: message,
	}}
}

// MemoryObjects is an ObjectReader over a map of "bucket/object" to content.
type MemoryObjects map[string][]byte

func (m MemoryObjects) ReadObject(_ context.Context, bucket string, object string) ([]byte, error) {
	data, ok := m[bucket+"/"+object]
	if !ok {
		return nil, fmt.Errorf("%w: gs://%s/%s", cloud.ErrNotFound, bucket, object)
	}
	return data, nil
}

// FakeWarehouse is a query engine over a fixed table. Statement types are
// taken from the first word of the query.
type FakeWarehouse struct {
	mu      sync.Mutex
	Queries []string
	Rows    []map[string]any
}

func (f *FakeWarehouse) ListDatasetIDs(_ context.Context, _ string) ([]string, error) {
	return []string{"media"}, nil
}

func (f *FakeWarehouse) DatasetInfo(_ context.Context, _ string, datasetID string) (map[string]any, error) {
	return map[string]any{"dataset_id": datasetID}, nil
}

func (f *FakeWarehouse) ListTableIDs(_ context.Context, _ string, _ string) ([]string, error) {
	return []string{"assets"}, nil
}

func (f *FakeWarehouse) TableInfo(_ context.Context, _ string, _ string, tableID string) (map[string]any, error) {
	return map[string]any{"table_id": tableID, "schema": "asset_id STRING REQUIRED, gcs_uri STRING, description STRING"}, nil
}

func (f *FakeWarehouse) StatementType(_ context.Context, _ string, query string) (string, error) {
	verb, _, _ := strings.Cut(strings.TrimSpace(query), " ")
	return strings.ToUpper(verb), nil
}

func (f *FakeWarehouse) Query(_ context.Context, _ string, query string, maxRows int) ([]map[string]any, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Queries = append(f.Queries, query)
	if len(f.Rows) > maxRows {
		return f.Rows[:maxRows], true, nil
	}
	return f.Rows, false, nil
}

// NewConfig returns a configuration that passes Validate without touching the environment.
func NewConfig() *cloud.Config {
	config := cloud.NewConfig()
	config.Application.GoogleProjectId = "test-project"
	config.Application.GoogleLocation = "us-central1"
	config.Application.ServiceURL = "https://worker.example.com"
	config.Application.ServiceAccountEmail = "tasks@test-project.iam.gserviceaccount.com"
	config.Tasks.QueueID = "asset-queue"
	config.BigQueryDataSource.DatasetName = "media"
	config.BigQueryDataSource.AssetTable = "assets"
	return config
}

// GetTestStorageNotification returns the Pub/Sub payload GCS publishes for a
// finalized video.
func GetTestStorageNotification() string {
	return `{
  "kind": "storage#object",
  "id": "media_assets_upload/trailer-001.mp4/1728615848664286",
  "selfLink": "https://www.googleapis.com/storage/v1/b/media_assets_upload/o/trailer-001.mp4",
  "name": "trailer-001.mp4",
  "bucket": "media_assets_upload",
  "generation": "1728615848664286",
  "metageneration": "1",
  "contentType": "video/mp4",
  "timeCreated": "2024-10-11T03:04:08.672Z",
  "updated": "2024-10-11T03:04:08.672Z",
  "storageClass": "STANDARD",
  "size": "259348037",
  "md5Hash": "67c1rAU+1RYZzK5zp8iBkA==",
  "metadata": { "touch": "18" }
}`
}

// ToolContext runs tools outside a Runner. Artifacts are kept in memory
// unless Store is replaced; a nil Store reports an unconfigured service.
type ToolContext struct {
	context.Context
	Agent    string
	Scope    artifact.Key
	Store    artifact.Service
	Values   map[string]any
	Acts     session.EventActions
	Attached []*genai.Content
}

// NewToolContext returns a ToolContext for a fresh session.
func NewToolContext() *ToolContext {
	return &ToolContext{
		Context: context.Background(),
		Agent:   "test_agent",
		Scope:   artifact.Key{AppName: "video_analysis_agent", UserID: "gcs_trigger_user", SessionID: "test-session"},
		Store:   artifact.NewInMemoryService(),
		Values:  map[string]any{},
	}
}

func (c *ToolContext) AgentName() string                    { return c.Agent }
func (c *ToolContext) InvocationID() string                 { return "e-test" }
func (c *ToolContext) FunctionCallID() string               { return "call-test" }
func (c *ToolContext) Key() artifact.Key                    { return c.Scope }
func (c *ToolContext) State() map[string]any                { return c.Values }
func (c *ToolContext) Actions() *session.EventActions       { return &c.Acts }
func (c *ToolContext) Attach(content *genai.Content)        { c.Attached = append(c.Attached, content) }
func (c *ToolContext) Artifacts() agent.Artifacts {
	return agent.NewArtifacts(c.Store, c.Scope, &c.Acts)
}

var _ agent.ToolContext = (*ToolContext)(nil)
