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

// Package agent runs declarative LLM agents on the Gemini function calling
// API. An agent is plain data: a name, a model, an instruction and the tools
// and sub-agents it may use. The Runner hands that record to the model, runs
// the tools the model asks for, and follows transfers between agents. The
// order in which an agent works is decided by the model from its instruction
// text; nothing here encodes a particular workflow.
//
// Logic Flow:
//  1. The Runner appends the user message to the session.
//  2. The current agent's history, instruction and tool declarations are sent to its model.
//  3. A response without tool calls is the agent's final answer and ends the run.
//  4. Otherwise every requested tool runs and the results are appended to the session.
//  5. A transfer_to_agent call hands the rest of the run to the named agent.
//  6. Steps 2 to 5 repeat until a final answer or the round limit.
package agent

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"

	"github.com/jaycherian/gcp-go-asset-agent/internal/core/session"
)

var (
	// ErrMaxRounds is returned when an agent keeps calling tools past the round limit.
	ErrMaxRounds = errors.New("max tool rounds exceeded")
	// ErrUnknownAgent is returned for a transfer to an agent outside the tree.
	ErrUnknownAgent = errors.New("unknown agent")
)

// Model generates the next turn of a conversation. *cloud.QuotaAwareGenerativeAIModel
// implements it for Vertex AI.
type Model interface {
	Name() string
	GenerateContent(ctx context.Context, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// AfterAgentCallback may rewrite an agent's final text before it is recorded.
type AfterAgentCallback func(ctx context.Context, text string) string

// Config declares an agent.
type Config struct {
	Name        string             // Unique within the agent tree; also the AgentTool function name.
	Description string             // Shown to other agents deciding whether to delegate.
	Model       Model              // The model that interprets the instruction.
	Instruction string             // System instruction.
	Tools       []Tool             // Capabilities the model may call.
	SubAgents   []*Agent           // Agents this one may transfer the run to.
	AfterAgent  AfterAgentCallback // Optional final text rewrite.
}

// Agent is a validated agent declaration linked into a tree.
type Agent struct {
	name        string
	description string
	model       Model
	instruction string
	tools       []Tool
	subAgents   []*Agent
	afterAgent  AfterAgentCallback
	parent      *Agent
}

// New validates cfg and adopts its sub-agents. A sub-agent can have only one parent.
func New(cfg Config) (*Agent, error) {
	if cfg.Name == "" {
		return nil, errors.New("agent name is required")
	}
	if cfg.Name == session.AuthorUser {
		return nil, fmt.Errorf("agent name %q is reserved", cfg.Name)
	}
	if cfg.Model == nil {
		return nil, fmt.Errorf("agent %s has no model", cfg.Name)
	}
	a := &Agent{
		name:        cfg.Name,
		description: cfg.Description,
		model:       cfg.Model,
		instruction: cfg.Instruction,
		tools:       cfg.Tools,
		subAgents:   cfg.SubAgents,
		afterAgent:  cfg.AfterAgent,
	}
	seen := map[string]bool{a.name: true}
	for _, sub := range cfg.SubAgents {
		if sub.parent != nil {
			return nil, fmt.Errorf("agent %s already has parent %s", sub.name, sub.parent.name)
		}
		for _, n := range sub.names() {
			if seen[n] {
				return nil, fmt.Errorf("duplicate agent name %s under %s", n, a.name)
			}
			seen[n] = true
		}
	}
	names := map[string]bool{}
	for _, t := range a.allTools() {
		if names[t.Name()] {
			return nil, fmt.Errorf("agent %s declares tool %s twice", a.name, t.Name())
		}
		names[t.Name()] = true
	}
	for _, sub := range cfg.SubAgents {
		sub.parent = a
	}
	return a, nil
}

// Accessors for the agent definition. Agents are immutable once built.

func (a *Agent) Name() string        { return a.name }
func (a *Agent) Description() string { return a.description }
func (a *Agent) Instruction() string { return a.instruction }
func (a *Agent) Model() Model        { return a.model }
func (a *Agent) Tools() []Tool       { return a.tools }
func (a *Agent) SubAgents() []*Agent { return a.subAgents }
func (a *Agent) Parent() *Agent      { return a.parent }

// FindAgent searches this agent's subtree, this agent included.
func (a *Agent) FindAgent(name string) *Agent {
	if a.name == name {
		return a
	}
	for _, sub := range a.subAgents {
		if found := sub.FindAgent(name); found != nil {
			return found
		}
	}
	return nil
}

func (a *Agent) names() []string {
	out := []string{a.name}
	for _, sub := range a.subAgents {
		out = append(out, sub.names()...)
	}
	return out
}

// transferTargets are the agents a transfer from a may reach: its sub-agents
// and its parent.
func (a *Agent) transferTargets() []*Agent {
	out := append([]*Agent(nil), a.subAgents...)
	if a.parent != nil {
		out = append(out, a.parent)
	}
	return out
}

// allTools returns the declared tools plus transfer_to_agent when the agent
// has somewhere to transfer to.
func (a *Agent) allTools() []Tool {
	tools := append([]Tool(nil), a.tools...)
	if len(a.transferTargets()) > 0 {
		tools = append(tools, &transferTool{from: a})
	}
	return tools
}

// systemInstruction is the agent's instruction plus a note on transfers.
func (a *Agent) systemInstruction() *genai.Content {
	text := a.instruction
	if targets := a.transferTargets(); len(targets) > 0 {
		text += "\n\n" + transferInstruction(a, targets)
	}
	return &genai.Content{Parts: []*genai.Part{{Text: text}}}
}
