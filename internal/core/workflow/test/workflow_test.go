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

package workflow_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jaycherian/gcp-go-asset-agent/internal/cloud"
	"github.com/jaycherian/gcp-go-asset-agent/internal/core/agent"
	"github.com/jaycherian/gcp-go-asset-agent/internal/core/artifact"
	"github.com/jaycherian/gcp-go-asset-agent/internal/core/commands"
	"github.com/jaycherian/gcp-go-asset-agent/internal/core/cor"
	"github.com/jaycherian/gcp-go-asset-agent/internal/core/model"
	"github.com/jaycherian/gcp-go-asset-agent/internal/core/session"
	"github.com/jaycherian/gcp-go-asset-agent/internal/core/tools"
	"github.com/jaycherian/gcp-go-asset-agent/internal/core/workflow"
	test "github.com/jaycherian/gcp-go-asset-agent/internal/testutil"
)

const (
	bucket     = "media_assets_upload"
	objectName = "trailer-001.mp4"
	assetURI   = "gs://media_assets_upload/trailer-001.mp4"
	confirmed  = "Asset trailer-001.mp4 has been successfully processed and added to the asset table."
)

type scriptedModels struct {
	coordinator *test.ScriptedModel
	description *test.ScriptedModel
	ingestion   *test.ScriptedModel
}

func (s scriptedModels) byKey() map[string]agent.Model {
	return map[string]agent.Model{
		cloud.CoordinatorModelKey: s.coordinator,
		cloud.DescriptionModelKey: s.description,
		cloud.IngestionModelKey:   s.ingestion,
	}
}

// happyPath scripts the five step coordination the root instruction asks for.
func happyPath() scriptedModels {
	return scriptedModels{
		coordinator: test.NewScriptedModel("coordinator",
			test.CallResponse(tools.AddArtifactFromGCSName, map[string]any{"uri": assetURI}),
			test.CallResponse(workflow.DescriptionAgentName, map[string]any{"request": assetURI}),
			test.CallResponse(agent.TransferToolName, map[string]any{"agent_name": workflow.IngestionAgentName}),
		),
		description: test.NewScriptedModel("description",
			test.CallResponse(tools.LoadArtifactsName, map[string]any{"artifact_names": []any{objectName}}),
			test.TextResponse("Audio description:\n[00:00 - 00:04] A red ceramic mug sits on a counter.\n\n[00:04 - 00:09] A hand lifts the mug."),
		),
		ingestion: test.NewScriptedModel("ingestion",
			test.CallResponse(tools.ExecuteSQLName, map[string]any{"query": "INSERT INTO `test-project.media.assets` (asset_id, gcs_uri, description) VALUES ('trailer-001.mp4', 'gs://media_assets_upload/trailer-001.mp4', '...')"}),
			test.TextResponse(confirmed),
		),
	}
}

type harness struct {
	sessions  *session.InMemoryService
	artifacts *artifact.InMemoryService
	warehouse *test.FakeWarehouse
	tree      *workflow.AgentTree
	runner    *agent.Runner
}

func newHarness(t *testing.T, models scriptedModels) *harness {
	t.Helper()
	sessions, err := session.NewInMemoryService(16)
	require.NoError(t, err)
	h := &harness{
		sessions:  sessions,
		artifacts: artifact.NewInMemoryService(),
		warehouse: &test.FakeWarehouse{},
	}
	h.tree, err = workflow.NewAgentTree(workflow.AgentDependencies{
		Config:  config,
		Models:  models.byKey(),
		Objects: test.MemoryObjects{bucket + "/" + objectName: []byte("\x00\x00\x00\x18ftypmp42")},
		Engine:  h.warehouse,
	})
	require.NoError(t, err)
	h.runner, err = agent.NewRunner(agent.RunnerConfig{
		AppName:   config.Application.Name,
		Agent:     h.tree.Root,
		Sessions:  h.sessions,
		Artifacts: h.artifacts,
	})
	require.NoError(t, err)
	return h
}

func toolNames(a *agent.Agent) []string {
	var names []string
	for _, tool := range a.Tools() {
		names = append(names, tool.Name())
	}
	return names
}

func TestAgentTreeShape(t *testing.T) {
	h := newHarness(t, happyPath())

	root := h.tree.Root
	assert.Equal(t, workflow.RootAgentName, root.Name())
	assert.Equal(t, workflow.RootAgentDescription, root.Description())
	assert.Equal(t, []string{workflow.DescriptionAgentName, tools.AddArtifactFromGCSName, tools.ListArtifactsName, tools.LoadArtifactsName}, toolNames(root))
	require.Len(t, root.SubAgents(), 1)
	assert.Same(t, h.tree.Ingestion, root.SubAgents()[0])

	assert.Equal(t, []string{tools.ListArtifactsName, tools.LoadArtifactsName}, toolNames(h.tree.Description))
	assert.Nil(t, h.tree.Description.Parent())
	assert.Contains(t, h.tree.Description.Instruction(), model.GetExampleDescription().String())

	assert.Len(t, h.tree.Ingestion.Tools(), 5)
	assert.Contains(t, h.tree.Ingestion.Instruction(), "test-project.media.assets")
	assert.Same(t, root, h.tree.Ingestion.Parent())
}

func TestAgentTreeRequiresEveryModel(t *testing.T) {
	models := happyPath().byKey()
	delete(models, cloud.IngestionModelKey)

	_, err := workflow.NewAgentTree(workflow.AgentDependencies{Config: config, Models: models, Engine: &test.FakeWarehouse{}})
	assert.True(t, errors.Is(err, cloud.ErrMissingConfig))
}

func TestIngestionInstructionSchema(t *testing.T) {
	withSchema := workflow.IngestionInstruction("p.d.t", "asset_id STRING REQUIRED")
	assert.Contains(t, withSchema, "The schema for the assets table is asset_id STRING REQUIRED")
	assert.Contains(t, withSchema, "the BQ dataset and table that you will be using is p.d.t")

	without := workflow.IngestionInstruction("p.d.t", "")
	assert.Contains(t, without, "get_table_info")
	assert.True(t, strings.HasSuffix(strings.TrimSpace(without), `"Asset <name> has been successfully processed and added to the asset table."`))
}

func TestNormalizeDescription(t *testing.T) {
	out := workflow.NormalizeDescription(ctx, "Sure!\n[00:00 - 00:02]  A mug.\nThanks")
	assert.Equal(t, "[00:00 - 00:02]  A mug.", out)

	out = workflow.NormalizeDescription(ctx, "[00:00-00:05] A mug.\n[00:05 - 00:03] It tips over.")
	assert.Equal(t, "[00:00-00:05] A mug.\n[00:05 - 00:03] It tips over.", out)

	raw := "I could not view the file."
	assert.Equal(t, raw, workflow.NormalizeDescription(ctx, raw))
}

func runProcessing(h *harness, event *model.StorageEvent) cor.Context {
	chainCtx := cor.NewBaseContext()
	chainCtx.SetContext(ctx)
	chainCtx.Add(cor.CtxIn, event)
	workflow.NewAssetProcessingWorkflow(h.sessions, h.runner, config.Application.UserID).Execute(chainCtx)
	return chainCtx
}

func TestAssetProcessingWorkflow(t *testing.T) {
	models := happyPath()
	h := newHarness(t, models)

	chainCtx := runProcessing(h, &model.StorageEvent{Bucket: bucket, Name: objectName})
	require.NoError(t, chainCtx.Err())
	assert.Equal(t, confirmed, chainCtx.Get(commands.FinalResponseKey))
	assert.Equal(t, confirmed, chainCtx.Get(cor.CtxOut))

	// The coordinator sees the serialized event as its only user message.
	first := models.coordinator.Requests[0]
	require.Len(t, first, 1)
	assert.JSONEq(t, `{"bucket":"media_assets_upload","name":"trailer-001.mp4"}`, first[0].Parts[0].Text)

	// The description agent received the artifact bytes after loading them.
	require.Equal(t, 2, models.description.Calls())
	attached := models.description.Requests[1]
	last := attached[len(attached)-1]
	assert.Equal(t, "Artifact trailer-001.mp4 is:", last.Parts[0].Text)
	require.NotNil(t, last.Parts[1].InlineData)
	assert.Equal(t, "video/mp4", last.Parts[1].InlineData.MIMEType)

	// Normalized description text flows back to the coordinator.
	toolResult := models.coordinator.Requests[2]
	var found bool
	for _, c := range toolResult {
		for _, p := range c.Parts {
			if p.FunctionResponse != nil && p.FunctionResponse.Name == workflow.DescriptionAgentName {
				assert.Equal(t, "[00:00 - 00:04] A red ceramic mug sits on a counter.\n[00:04 - 00:09] A hand lifts the mug.", p.FunctionResponse.Response["result"])
				found = true
			}
		}
	}
	assert.True(t, found)

	require.Len(t, h.warehouse.Queries, 1)
	assert.True(t, strings.HasPrefix(h.warehouse.Queries[0], "INSERT INTO"))

	// The session and its artifacts live until the chain context is closed.
	key := artifact.Key{
		AppName:   config.Application.Name,
		UserID:    config.Application.UserID,
		SessionID: chainCtx.Get(commands.SessionIDKey).(string),
	}
	names, err := h.artifacts.List(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, []string{objectName}, names)
	assert.Equal(t, 1, h.sessions.Len())

	chainCtx.Close()
	assert.Equal(t, 0, h.sessions.Len())
	names, err = h.artifacts.List(ctx, key)
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestAssetProcessingUsesFreshSessions(t *testing.T) {
	models := happyPath()
	h := newHarness(t, models)
	// Queue a second run on the same models.
	models.coordinator.
		Then(test.CallResponse(tools.AddArtifactFromGCSName, map[string]any{"uri": "gs://media_assets_upload/other.png"})).
		Then(test.TextResponse("done"))

	one := runProcessing(h, &model.StorageEvent{Bucket: bucket, Name: objectName})
	two := runProcessing(h, &model.StorageEvent{Bucket: bucket, Name: "other.png"})
	defer one.Close()
	defer two.Close()

	first, _ := one.Get(commands.SessionIDKey).(string)
	other, _ := two.Get(commands.SessionIDKey).(string)
	require.NotEmpty(t, first)
	require.NotEmpty(t, other)
	assert.NotEqual(t, first, other)
	assert.Equal(t, 2, h.sessions.Len())
	assert.Equal(t, "done", two.Get(commands.FinalResponseKey))
}

func TestAssetProcessingReportsEscalation(t *testing.T) {
	models := happyPath()
	models.coordinator = test.NewScriptedModel("coordinator", test.BlockedResponse("unsafe upload"))
	h := newHarness(t, models)

	chainCtx := runProcessing(h, &model.StorageEvent{Bucket: bucket, Name: objectName})
	defer chainCtx.Close()
	require.NoError(t, chainCtx.Err())
	assert.Equal(t, "Agent escalated: unsafe upload", chainCtx.Get(commands.FinalResponseKey))
}

func TestAssetProcessingModelFailure(t *testing.T) {
	models := happyPath()
	models.coordinator = test.NewScriptedModel("coordinator").ThenFail(errors.New("quota exhausted"))
	h := newHarness(t, models)

	chainCtx := runProcessing(h, &model.StorageEvent{Bucket: bucket, Name: objectName})
	defer chainCtx.Close()
	require.Error(t, chainCtx.Err())
	assert.Contains(t, chainCtx.Err().Error(), "quota exhausted")
}

type recordingEnqueuer struct {
	events []*model.StorageEvent
	err    error
}

func (r *recordingEnqueuer) Enqueue(_ context.Context, event *model.StorageEvent) (string, error) {
	if r.err != nil {
		return "", r.err
	}
	r.events = append(r.events, event)
	return "projects/test-project/locations/us-central1/queues/asset-queue/tasks/1", nil
}

func TestAssetTriggerWorkflowFromNotification(t *testing.T) {
	enqueuer := &recordingEnqueuer{}
	chainCtx := cor.NewBaseContext()
	chainCtx.SetContext(ctx)
	chainCtx.Add(cor.CtxIn, test.GetTestStorageNotification())
	defer chainCtx.Close()

	workflow.NewAssetTriggerWorkflow(enqueuer).Execute(chainCtx)

	require.NoError(t, chainCtx.Err())
	require.Len(t, enqueuer.events, 1)
	assert.Equal(t, assetURI, enqueuer.events[0].URI())
	assert.Equal(t, "projects/test-project/locations/us-central1/queues/asset-queue/tasks/1", chainCtx.Get(commands.TaskNameKey))
}

func TestAssetTriggerWorkflowFailure(t *testing.T) {
	enqueuer := &recordingEnqueuer{err: errors.New("queue unavailable")}
	chainCtx := cor.NewBaseContext()
	chainCtx.SetContext(ctx)
	chainCtx.Add(cor.CtxIn, &model.StorageEvent{Bucket: "b1", Name: "video.mp4"})
	defer chainCtx.Close()

	workflow.NewAssetTriggerWorkflow(enqueuer).Execute(chainCtx)

	require.Error(t, chainCtx.Err())
	assert.Contains(t, chainCtx.Err().Error(), "Failed to create task: queue unavailable")
}
