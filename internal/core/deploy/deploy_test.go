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

package deploy_test

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"cloud.google.com/go/aiplatform/apiv1/aiplatformpb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/proto"

	"github.com/jaycherian/gcp-go-asset-agent/internal/cloud"
	"github.com/jaycherian/gcp-go-asset-agent/internal/core/deploy"
	"github.com/jaycherian/gcp-go-asset-agent/internal/core/workflow"
	test "github.com/jaycherian/gcp-go-asset-agent/internal/testutil"
)

type memoryStager struct {
	files map[string][]byte
	err   error
}

func (m *memoryStager) Stage(_ context.Context, object string, data []byte, _ string) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	if m.files == nil {
		m.files = map[string][]byte{}
	}
	m.files[object] = data
	return "gs://staging/" + object, nil
}

type fakeEngines struct {
	requests []*aiplatformpb.CreateReasoningEngineRequest
}

func (f *fakeEngines) CreateEngine(_ context.Context, req *aiplatformpb.CreateReasoningEngineRequest) (*aiplatformpb.ReasoningEngine, error) {
	f.requests = append(f.requests, req)
	engine := proto.Clone(req.GetReasoningEngine()).(*aiplatformpb.ReasoningEngine)
	engine.Name = req.GetParent() + "/reasoningEngines/123"
	return engine, nil
}

func buildManifest(t *testing.T, config *cloud.Config) *deploy.Manifest {
	t.Helper()
	tree, err := workflow.NewAgentTree(workflow.AgentDependencies{
		Config: config,
		Models: deploy.DeclaredModels(config),
		Engine: &test.FakeWarehouse{},
	})
	require.NoError(t, err)
	return deploy.BuildManifest(config, tree.Root)
}

func TestManifestDescribesAgentTree(t *testing.T) {
	config := test.NewConfig()
	m := buildManifest(t, config)

	assert.Equal(t, "video_analysis_agent", m.DisplayName)
	assert.Equal(t, workflow.RootAgentName, m.Root.Name)
	assert.Equal(t, "gemini-2.5-flash", m.Root.Model)
	require.Len(t, m.Root.SubAgents, 1)
	assert.Equal(t, workflow.IngestionAgentName, m.Root.SubAgents[0].Name)
	assert.Equal(t, "gemini-2.5-pro", m.Root.SubAgents[0].Model)

	raw, err := m.JSON()
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Contains(t, decoded, "root_agent")
}

func TestDeclaredModelsCannotGenerate(t *testing.T) {
	models := deploy.DeclaredModels(test.NewConfig())
	m := models[cloud.DescriptionModelKey]
	require.NotNil(t, m)
	assert.Equal(t, "gemini-3-pro-preview", m.Name())
	_, err := m.GenerateContent(context.Background(), nil, nil)
	assert.True(t, errors.Is(err, deploy.ErrDeclarationOnly))
}

func TestDeployStagesAndRegisters(t *testing.T) {
	config := test.NewConfig()
	stager := &memoryStager{}
	engines := &fakeEngines{}

	engine, err := deploy.NewRegistrar(config, stager, engines).Deploy(context.Background(), buildManifest(t, config))
	require.NoError(t, err)
	assert.Equal(t, "projects/test-project/locations/us-central1/reasoningEngines/123", engine.GetName())

	require.Len(t, stager.files, 2)
	var manifestURI, requirementsURI string
	for object, data := range stager.files {
		switch {
		case strings.HasSuffix(object, deploy.ManifestFileName):
			manifestURI = "gs://staging/" + object
		case strings.HasSuffix(object, deploy.RequirementsFileName):
			requirementsURI = "gs://staging/" + object
			assert.Contains(t, string(data), "google-cloud-storage\n")
		}
	}

	require.Len(t, engines.requests, 1)
	req := engines.requests[0]
	assert.Equal(t, "projects/test-project/locations/us-central1", req.GetParent())
	assert.Equal(t, "video_analysis_agent", req.GetReasoningEngine().GetDisplayName())
	assert.Equal(t, "Agent used to inspect and ingest digital assets", req.GetReasoningEngine().GetDescription())
	pkg := req.GetReasoningEngine().GetSpec().GetPackageSpec()
	assert.Equal(t, manifestURI, pkg.GetDependencyFilesGcsUri())
	assert.Equal(t, requirementsURI, pkg.GetRequirementsGcsUri())
}

func TestDeployStopsOnStagingFailure(t *testing.T) {
	config := test.NewConfig()
	engines := &fakeEngines{}

	_, err := deploy.NewRegistrar(config, &memoryStager{err: errors.New("bucket missing")}, engines).Deploy(context.Background(), buildManifest(t, config))
	require.Error(t, err)
	assert.Empty(t, engines.requests)
}
