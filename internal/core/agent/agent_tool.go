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

package agent

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"google.golang.org/genai"

	"github.com/jaycherian/gcp-go-asset-agent/internal/core/session"
)

// AgentTool lets one agent call another like a function. The called agent
// runs in its own history, sees the caller's artifacts, and its final text
// is returned as {"result": text}.
type AgentTool struct {
	agent *Agent
}

// NewAgentTool wraps a. The tool takes the name and description of a.
func NewAgentTool(a *Agent) *AgentTool {
	return &AgentTool{agent: a}
}

// Name is the wrapped agent's name.
func (t *AgentTool) Name() string { return t.agent.name }

// Description is the wrapped agent's description.
func (t *AgentTool) Description() string { return t.agent.description }

// Declaration takes a single request string argument.
func (t *AgentTool) Declaration() *genai.FunctionDeclaration {
	return &genai.FunctionDeclaration{
		Name:        t.agent.name,
		Description: t.agent.description,
		Parameters: ObjectSchema(map[string]*genai.Schema{
			"request": StringProperty("The request for the agent."),
		}, "request"),
	}
}

// Run executes the wrapped agent as a child of the calling invocation and
// returns its final text as the result. The child shares the artifact scope
// and the model call budget of the caller.
func (t *AgentTool) Run(ctx ToolContext, args map[string]any) (map[string]any, error) {
	tc, ok := ctx.(*toolContext)
	if !ok {
		return nil, fmt.Errorf("agent tool %s needs a runner tool context", t.agent.name)
	}
	request, ok := args["request"].(string)
	if !ok {
		raw, err := json.Marshal(args)
		if err != nil {
			return nil, err
		}
		request = string(raw)
	}

	child, err := tc.inv.child(tc)
	if err != nil {
		return nil, err
	}
	if err := child.append(tc, session.NewEvent(child.id, session.AuthorUser, genai.NewContentFromText(request, "user"))); err != nil {
		return nil, err
	}

	var final string
	for ev, err := range child.run(tc, t.agent) {
		if err != nil {
			return nil, err
		}
		slog.DebugContext(tc, "agent tool event", "tool", t.agent.name, "author", ev.Author, "final", ev.IsFinalResponse())
		if ev.Actions.ArtifactDelta != nil {
			if tc.actions.ArtifactDelta == nil {
				tc.actions.ArtifactDelta = make(map[string]int64)
			}
			for k, v := range ev.Actions.ArtifactDelta {
				tc.actions.ArtifactDelta[k] = v
			}
		}
		if ev.IsFinalResponse() {
			final = ev.Text()
		}
	}
	return map[string]any{"result": final}, nil
}
