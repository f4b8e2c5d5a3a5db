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

package commands

import (
	"fmt"
	"log/slog"

	"google.golang.org/genai"

	"github.com/jaycherian/gcp-go-asset-agent/internal/core/agent"
	"github.com/jaycherian/gcp-go-asset-agent/internal/core/cor"
	"github.com/jaycherian/gcp-go-asset-agent/internal/core/model"
	"github.com/jaycherian/gcp-go-asset-agent/internal/core/session"
)

// DefaultFinalResponse is reported when the coordinator never gives a final answer.
const DefaultFinalResponse = "Agent did not produce a final response."

// CoordinatorRunner sends the serialized event to the root agent and keeps
// the text of the first final response. The text is the output.
type CoordinatorRunner struct {
	cor.BaseCommand
	runner *agent.Runner
	userID string
}

// NewCoordinatorRunner creates the step that runs the root agent.
//
// Inputs:
//   - name: The command name, used for its span and counters.
//   - runner: A runner over the coordinator agent.
//   - userID: The user the session was created for.
//
// Outputs:
//   - *CoordinatorRunner: The command.
func NewCoordinatorRunner(name string, runner *agent.Runner, userID string) *CoordinatorRunner {
	return &CoordinatorRunner{BaseCommand: *cor.NewBaseCommand(name), runner: runner, userID: userID}
}

// IsExecutable requires a session id from an earlier step.
func (c *CoordinatorRunner) IsExecutable(context cor.Context) bool {
	_, ok := context.Get(SessionIDKey).(string)
	return ok && c.BaseCommand.IsExecutable(context)
}

// Execute runs the coordinator until its first final response. A run error
// fails the context; an escalation is reported as text.
func (c *CoordinatorRunner) Execute(context cor.Context) {
	event, ok := context.Get(c.GetInputParam()).(*model.StorageEvent)
	if !ok {
		c.Fail(context, fmt.Errorf("expected *model.StorageEvent input, got %T", context.Get(c.GetInputParam())))
		return
	}
	sessionID := context.Get(SessionIDKey).(string)
	body, err := event.JSON()
	if err != nil {
		c.Fail(context, err)
		return
	}

	ctx := context.GetContext()
	final := DefaultFinalResponse
	msg := genai.NewContentFromText(string(body), "user")
	for ev, err := range c.runner.Run(ctx, c.userID, sessionID, msg) {
		if err != nil {
			c.Fail(context, err)
			return
		}
		if ev.IsFinalResponse() {
			final = FinalText(ev)
			break
		}
	}

	slog.InfoContext(ctx, "Agent finished processing", "session", sessionID, "asset", event.FileName(), "response", final)
	c.Succeed(context)
	context.Add(FinalResponseKey, final)
	context.Add(c.GetOutputParam(), final)
}

// FinalText is the reply reported for a final event: its first text part, or
// an escalation notice when the agent gave up without content.
func FinalText(ev *session.Event) string {
	if ev.Content != nil && len(ev.Content.Parts) > 0 {
		for _, p := range ev.Content.Parts {
			if p != nil && !p.Thought {
				return p.Text
			}
		}
	}
	if ev.Actions.Escalate {
		msg := ev.ErrorMessage
		if msg == "" {
			msg = "No specific message."
		}
		return "Agent escalated: " + msg
	}
	return DefaultFinalResponse
}
