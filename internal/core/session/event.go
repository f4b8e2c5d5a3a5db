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

package session

import (
	"time"

	"github.com/google/uuid"
	"google.golang.org/genai"
)

// Author of events that carry the inbound user message.
const AuthorUser = "user"

// EventActions are side effects requested while producing an event.
type EventActions struct {
	Escalate        bool             `json:"escalate,omitempty"`          // The agent gave up on the invocation.
	TransferToAgent string           `json:"transfer_to_agent,omitempty"` // Hand the invocation to this agent.
	ArtifactDelta   map[string]int64 `json:"artifact_delta,omitempty"`    // File name to the version saved.
	StateDelta      map[string]any   `json:"state_delta,omitempty"`       // Keys written to the session state.
}

// Event is one entry of a session history: the user message, a model turn,
// or the tool results of a model turn.
type Event struct {
	ID           string         `json:"id"`
	InvocationID string         `json:"invocation_id"`
	Author       string         `json:"author"`
	Branch       string         `json:"branch,omitempty"`
	Content      *genai.Content `json:"content,omitempty"`
	Actions      EventActions   `json:"actions"`
	ErrorCode    string         `json:"error_code,omitempty"`
	ErrorMessage string         `json:"error_message,omitempty"`
	Partial      bool           `json:"partial,omitempty"`
	Timestamp    time.Time      `json:"timestamp"`
}

// NewEvent creates an event with a fresh id and the current time.
func NewEvent(invocationID string, author string, content *genai.Content) *Event {
	return &Event{
		ID:           uuid.NewString(),
		InvocationID: invocationID,
		Author:       author,
		Content:      content,
		Timestamp:    time.Now(),
	}
}

// FunctionCalls returns the tool calls requested by this event.
func (e *Event) FunctionCalls() []*genai.FunctionCall {
	var out []*genai.FunctionCall
	if e.Content == nil {
		return out
	}
	for _, p := range e.Content.Parts {
		if p != nil && p.FunctionCall != nil {
			out = append(out, p.FunctionCall)
		}
	}
	return out
}

// FunctionResponses returns the tool results carried by this event.
func (e *Event) FunctionResponses() []*genai.FunctionResponse {
	var out []*genai.FunctionResponse
	if e.Content == nil {
		return out
	}
	for _, p := range e.Content.Parts {
		if p != nil && p.FunctionResponse != nil {
			out = append(out, p.FunctionResponse)
		}
	}
	return out
}

// IsFinalResponse reports whether the event ends the agent's turn: it is
// complete and neither requests tools nor carries tool results.
func (e *Event) IsFinalResponse() bool {
	if e.Partial {
		return false
	}
	return len(e.FunctionCalls()) == 0 && len(e.FunctionResponses()) == 0
}

// Text concatenates the text parts of the event, skipping model thoughts.
func (e *Event) Text() string {
	if e.Content == nil {
		return ""
	}
	var out string
	for _, p := range e.Content.Parts {
		if p != nil && !p.Thought {
			out += p.Text
		}
	}
	return out
}
