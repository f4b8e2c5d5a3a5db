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

// Package deploy registers the coordinator agent with Vertex AI Agent Engine.
//
// Logic Flow:
//  1. `BuildManifest` renders the agent tree (names, models, instructions,
//     tools and sub-agents) and the deployment settings as JSON.
//  2. `Registrar.Deploy` uploads the manifest and a requirements file to the
//     staging bucket.
//  3. It creates a reasoning engine pointing at the staged files and waits
//     for the long running operation to finish.
package deploy

import (
	"context"
	"encoding/json"
	"errors"

	"google.golang.org/genai"

	"github.com/jaycherian/gcp-go-asset-agent/internal/cloud"
	"github.com/jaycherian/gcp-go-asset-agent/internal/core/agent"
)

// ErrDeclarationOnly is returned by a model that exists only to be described.
var ErrDeclarationOnly = errors.New("model is a declaration and cannot generate content")

// ToolManifest describes one tool.
type ToolManifest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// AgentManifest describes one agent and, recursively, its sub-agents.
type AgentManifest struct {
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Model       string           `json:"model"`
	Instruction string           `json:"instruction"`
	Tools       []ToolManifest   `json:"tools"`
	SubAgents   []*AgentManifest `json:"sub_agents,omitempty"`
}

// Manifest is what gets staged for the reasoning engine.
type Manifest struct {
	DisplayName  string         `json:"display_name"`
	Description  string         `json:"description"`
	Requirements []string       `json:"requirements"`
	Root         *AgentManifest `json:"root_agent"`
}

// BuildManifest describes root with the deployment settings from config.
func BuildManifest(config *cloud.Config, root *agent.Agent) *Manifest {
	return &Manifest{
		DisplayName:  config.Deployment.DisplayName,
		Description:  config.Deployment.Description,
		Requirements: config.Deployment.Requirements,
		Root:         describeAgent(root),
	}
}

func describeAgent(a *agent.Agent) *AgentManifest {
	out := &AgentManifest{
		Name:        a.Name(),
		Description: a.Description(),
		Model:       a.Model().Name(),
		Instruction: a.Instruction(),
		Tools:       make([]ToolManifest, 0, len(a.Tools())),
	}
	for _, t := range a.Tools() {
		out.Tools = append(out.Tools, ToolManifest{Name: t.Name(), Description: t.Description()})
	}
	for _, sub := range a.SubAgents() {
		out.SubAgents = append(out.SubAgents, describeAgent(sub))
	}
	return out
}

// JSON renders the manifest indented for humans.
func (m *Manifest) JSON() ([]byte, error) {
	return json.MarshalIndent(m, "", "  ")
}

// declaredModel carries a model name for manifests without a backend.
type declaredModel struct {
	name string
}

func (d declaredModel) Name() string { return d.name }

func (d declaredModel) GenerateContent(context.Context, []*genai.Content, *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	return nil, ErrDeclarationOnly
}

// DeclaredModels returns a name only model per configured agent model key,
// enough to build the agent tree for a manifest without any client.
func DeclaredModels(config *cloud.Config) map[string]agent.Model {
	out := make(map[string]agent.Model, len(config.AgentModels))
	for key, values := range config.AgentModels {
		out[key] = declaredModel{name: values.Model}
	}
	return out
}
