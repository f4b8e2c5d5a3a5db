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

// Package workflow defines the agents of the asset pipeline and the chains
// that run them.
//
// Logic Flow:
//  1. `NewAgentTree` builds the three agents: the coordinator (root_agent), the
//     description agent it calls as a tool and the ingestion agent it transfers to.
//  2. `NewAssetTriggerWorkflow` parses a storage event and enqueues a task for it.
//  3. `NewAssetProcessingWorkflow` opens a session and runs the coordinator
//     with the serialized event as the only user message.
package workflow

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jaycherian/gcp-go-asset-agent/internal/cloud"
	"github.com/jaycherian/gcp-go-asset-agent/internal/core/agent"
	"github.com/jaycherian/gcp-go-asset-agent/internal/core/model"
	"github.com/jaycherian/gcp-go-asset-agent/internal/core/tools"
)

// AgentDependencies are the collaborators the agent tree is built from.
type AgentDependencies struct {
	Config  *cloud.Config          // Table names, write mode and row limits.
	Models  map[string]agent.Model // Agent models keyed by cloud.*ModelKey.
	Objects cloud.ObjectReader     // Source of uploaded assets.
	Engine  tools.QueryEngine      // Warehouse behind the BigQuery toolset.
	Schema  string                 // Asset table schema text. Optional.
}

// AgentTree holds the built agents. Root is the one handed to the runner.
type AgentTree struct {
	Root        *agent.Agent
	Description *agent.Agent
	Ingestion   *agent.Agent
}

// NewAgentTree builds the coordinator with its tool and sub-agent.
//
// Inputs:
//   - deps: Models for the three keys must be present.
//
// Outputs:
//   - *AgentTree: The built agents.
//   - error: A missing model or an invalid tree.
func NewAgentTree(deps AgentDependencies) (*AgentTree, error) {
	models := make(map[string]agent.Model, 3)
	for _, key := range []string{cloud.CoordinatorModelKey, cloud.DescriptionModelKey, cloud.IngestionModelKey} {
		m, ok := deps.Models[key]
		if !ok || m == nil {
			return nil, fmt.Errorf("%w: agent model %q", cloud.ErrMissingConfig, key)
		}
		models[key] = m
	}

	schema := deps.Schema
	if schema == "" {
		schema = deps.Config.BigQueryDataSource.AssetTableSchema
	}
	toolset := tools.NewBigQueryToolset(deps.Engine, tools.BigQueryToolsetConfig{
		ProjectID: deps.Config.Application.GoogleProjectId,
		WriteMode: deps.Config.BigQueryDataSource.WriteMode,
		MaxRows:   deps.Config.BigQueryDataSource.MaxResultRows,
	})

	ingestion, err := agent.New(agent.Config{
		Name:        IngestionAgentName,
		Description: SpecialistDescription,
		Model:       models[cloud.IngestionModelKey],
		Instruction: IngestionInstruction(deps.Config.AssetTableFQN(), schema),
		Tools:       toolset.Tools(),
	})
	if err != nil {
		return nil, err
	}

	description, err := agent.New(agent.Config{
		Name:        DescriptionAgentName,
		Description: SpecialistDescription,
		Model:       models[cloud.DescriptionModelKey],
		Instruction: DescriptionInstruction(),
		Tools:       []agent.Tool{tools.NewListArtifacts(), tools.NewLoadArtifacts()},
		AfterAgent:  NormalizeDescription,
	})
	if err != nil {
		return nil, err
	}

	root, err := agent.New(agent.Config{
		Name:        RootAgentName,
		Description: RootAgentDescription,
		Model:       models[cloud.CoordinatorModelKey],
		Instruction: RootInstruction,
		Tools: []agent.Tool{
			agent.NewAgentTool(description),
			tools.NewAddArtifactFromGCS(deps.Objects),
			tools.NewListArtifacts(),
			tools.NewLoadArtifacts(),
		},
		SubAgents: []*agent.Agent{ingestion},
	})
	if err != nil {
		return nil, err
	}
	return &AgentTree{Root: root, Description: description, Ingestion: ingestion}, nil
}

// AgentModels adapts the rate limited models from the service clients.
func AgentModels(clients *cloud.ServiceClients) map[string]agent.Model {
	out := make(map[string]agent.Model, len(clients.AgentModels))
	for key, m := range clients.AgentModels {
		out[key] = m
	}
	return out
}

// NormalizeDescription keeps only the timestamped lines of a description,
// each exactly as the model wrote it. Text without any is returned unchanged.
func NormalizeDescription(ctx context.Context, text string) string {
	d := model.ParseDescription(text)
	if len(d.Lines) == 0 {
		slog.WarnContext(ctx, "description has no timestamped lines", "agent", DescriptionAgentName)
		return text
	}
	if err := d.Validate(); err != nil {
		slog.WarnContext(ctx, "description has an invalid span", "agent", DescriptionAgentName, "error", err)
	}
	return d.String()
}
