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
	"fmt"
	"slices"
	"strings"

	"google.golang.org/genai"
)

// TransferToolName is the function the model calls to hand the run to another agent.
const TransferToolName = "transfer_to_agent"

type transferTool struct {
	from *Agent
}

func (t *transferTool) Name() string { return TransferToolName }

func (t *transferTool) Description() string {
	return "Transfer the question to another agent. Use it when another agent is better suited to answer or continue the task."
}

func (t *transferTool) Declaration() *genai.FunctionDeclaration {
	names := make([]string, 0)
	for _, target := range t.from.transferTargets() {
		names = append(names, target.name)
	}
	return &genai.FunctionDeclaration{
		Name:        TransferToolName,
		Description: t.Description(),
		Parameters: ObjectSchema(map[string]*genai.Schema{
			"agent_name": {Type: genai.TypeString, Description: "The agent to transfer to.", Enum: names},
		}, "agent_name"),
	}
}

func (t *transferTool) Run(ctx ToolContext, args map[string]any) (map[string]any, error) {
	name, err := StringArg(args, "agent_name")
	if err != nil {
		return nil, err
	}
	if !slices.ContainsFunc(t.from.transferTargets(), func(a *Agent) bool { return a.name == name }) {
		return nil, fmt.Errorf("%w: %s cannot transfer to %q", ErrUnknownAgent, t.from.name, name)
	}
	ctx.Actions().TransferToAgent = name
	return map[string]any{}, nil
}

func transferInstruction(a *Agent, targets []*Agent) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are an agent. Your internal name is %q.\n\n", a.name)
	b.WriteString("You have a list of other agents to transfer to:\n\n")
	for _, target := range targets {
		fmt.Fprintf(&b, "Agent name: %s\nAgent description: %s\n\n", target.name, target.description)
	}
	fmt.Fprintf(&b, "If another agent is better for answering the question according to its description, call the %s function to transfer the question to that agent. When transferring, do not generate any text other than the function call.", TransferToolName)
	return b.String()
}
