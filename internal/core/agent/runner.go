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
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"log/slog"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"google.golang.org/genai"

	"github.com/jaycherian/gcp-go-asset-agent/internal/core/artifact"
	"github.com/jaycherian/gcp-go-asset-agent/internal/core/session"
)

const (
	// DefaultMaxRounds bounds the model calls a single agent makes in one run.
	DefaultMaxRounds = 20
	// DefaultMaxModelCalls bounds the model calls of a whole run, across
	// transfers and agent tools.
	DefaultMaxModelCalls = 60
)

// errStopped ends a run when the consumer stops iterating.
var errStopped = errors.New("iteration stopped")

// RunnerConfig wires a root agent to its session and artifact backends.
type RunnerConfig struct {
	AppName   string
	Agent     *Agent
	Sessions  session.Service
	Artifacts artifact.Service // Optional; artifact tools fail without it.
	MaxRounds int              // DefaultMaxRounds when zero.
	// MaxModelCalls caps one Run, DefaultMaxModelCalls when zero. Agents that
	// transfer back and forth stop here instead of looping until a deadline.
	MaxModelCalls int
}

// Runner executes a root agent against stored sessions.
type Runner struct {
	appName   string
	root      *Agent
	sessions  session.Service
	artifacts     artifact.Service
	maxRounds     int
	maxModelCalls int
}

// NewRunner validates cfg and builds a runner.
//
// Inputs:
//   - cfg: The app name, root agent and session service are required.
//     Zero limits take their defaults.
//
// Outputs:
//   - *Runner: The runner. It is safe for concurrent Run calls.
//   - error: An error naming the missing field.
func NewRunner(cfg RunnerConfig) (*Runner, error) {
	if cfg.AppName == "" {
		return nil, errors.New("runner requires an app name")
	}
	if cfg.Agent == nil {
		return nil, errors.New("runner requires a root agent")
	}
	if cfg.Sessions == nil {
		return nil, errors.New("runner requires a session service")
	}
	if cfg.MaxRounds <= 0 {
		cfg.MaxRounds = DefaultMaxRounds
	}
	if cfg.MaxModelCalls <= 0 {
		cfg.MaxModelCalls = DefaultMaxModelCalls
	}
	return &Runner{
		appName:   cfg.AppName,
		root:      cfg.Agent,
		sessions:  cfg.Sessions,
		artifacts:     cfg.Artifacts,
		maxRounds:     cfg.MaxRounds,
		maxModelCalls: cfg.MaxModelCalls,
	}, nil
}

// AppName is the application name sessions and artifacts are scoped to.
func (r *Runner) AppName() string { return r.appName }

// Root returns the agent every run starts with.
func (r *Runner) Root() *Agent { return r.root }

// Artifacts returns the artifact backend of every run, nil when none is set.
func (r *Runner) Artifacts() artifact.Service { return r.artifacts }

// Run appends msg to the session and runs the root agent. Every event stored
// in the session is yielded in order; a failure is yielded once as an error
// and ends the sequence. The session must exist.
func (r *Runner) Run(ctx context.Context, userID string, sessionID string, msg *genai.Content) iter.Seq2[*session.Event, error] {
	return func(yield func(*session.Event, error) bool) {
		s, err := r.sessions.Get(ctx, r.appName, userID, sessionID)
		if err != nil {
			yield(nil, err)
			return
		}
		inv := &invocation{
			id:          "e-" + uuid.NewString(),
			sessions:    r.sessions,
			session:     s,
			artifacts:   r.artifacts,
			artifactKey: artifact.Key{AppName: r.appName, UserID: userID, SessionID: sessionID},
			maxRounds:   r.maxRounds,
			budget:      &callBudget{limit: r.maxModelCalls},
		}
		if msg != nil {
			if msg.Role == "" {
				msg.Role = "user"
			}
			if err := inv.append(ctx, session.NewEvent(inv.id, session.AuthorUser, msg)); err != nil {
				yield(nil, err)
				return
			}
		}
		for ev, err := range inv.run(ctx, r.root) {
			if !yield(ev, err) {
				return
			}
		}
	}
}

// invocation is the state of one Run call.
type invocation struct {
	id          string
	sessions    session.Service
	session     *session.Session
	artifacts   artifact.Service
	artifactKey artifact.Key
	maxRounds   int
	budget      *callBudget
}

// callBudget counts the model calls of one Run. Child invocations share it.
type callBudget struct {
	limit int
	used  int
}

func (b *callBudget) take() bool {
	if b.used >= b.limit {
		return false
	}
	b.used++
	return true
}

// child starts a detached history that shares the artifact scope of inv.
func (inv *invocation) child(ctx context.Context) (*invocation, error) {
	sessions, err := session.NewInMemoryService(1)
	if err != nil {
		return nil, err
	}
	s, err := sessions.Create(ctx, inv.session.AppName, inv.session.UserID, uuid.NewString())
	if err != nil {
		return nil, err
	}
	return &invocation{
		id:          inv.id,
		sessions:    sessions,
		session:     s,
		artifacts:   inv.artifacts,
		artifactKey: inv.artifactKey,
		maxRounds:   inv.maxRounds,
		budget:      inv.budget,
	}, nil
}

func (inv *invocation) append(ctx context.Context, ev *session.Event) error {
	return inv.sessions.AppendEvent(ctx, inv.session, ev)
}

// run executes start and every agent the run is transferred to.
func (inv *invocation) run(ctx context.Context, start *Agent) iter.Seq2[*session.Event, error] {
	return func(yield func(*session.Event, error) bool) {
		for current := start; current != nil; {
			next, err := inv.runAgent(ctx, current, yield)
			if err != nil {
				if !errors.Is(err, errStopped) {
					yield(nil, err)
				}
				return
			}
			current = next
		}
	}
}

// runAgent drives one agent until it answers, escalates, or transfers. The
// transfer target is returned.
func (inv *invocation) runAgent(ctx context.Context, a *Agent, yield func(*session.Event, error) bool) (*Agent, error) {
	ctx, span := otel.Tracer("agent-runner").Start(ctx, "agent_run")
	defer span.End()
	span.SetAttributes(attribute.String("agent", a.name), attribute.String("model", a.model.Name()))

	emit := func(ev *session.Event) error {
		if err := inv.append(ctx, ev); err != nil {
			return err
		}
		slog.DebugContext(ctx, "agent event", "agent", a.name, "event", ev.ID, "calls", len(ev.FunctionCalls()), "final", ev.IsFinalResponse())
		if !yield(ev, nil) {
			return errStopped
		}
		return nil
	}

	tools := newRegistry(a.allTools())
	config := &genai.GenerateContentConfig{
		SystemInstruction: a.systemInstruction(),
		Tools:             tools.declarations(),
	}

	var pending []*genai.Content
	for round := 0; round < inv.maxRounds; round++ {
		contents := append(buildContents(inv.session.Events, a.name), pending...)
		pending = nil

		if !inv.budget.take() {
			span.SetStatus(codes.Error, ErrMaxRounds.Error())
			return nil, fmt.Errorf("%w: run stopped after %d model calls in agent %s", ErrMaxRounds, inv.budget.limit, a.name)
		}
		resp, err := a.model.GenerateContent(ctx, contents, config)
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
			return nil, fmt.Errorf("agent %s: %w", a.name, err)
		}
		ev := modelEvent(inv.id, a.name, resp)
		calls := ev.FunctionCalls()
		if len(calls) == 0 && !ev.Actions.Escalate && a.afterAgent != nil {
			ev.Content = genai.NewContentFromText(a.afterAgent(ctx, ev.Text()), "model")
		}
		if err := emit(ev); err != nil {
			return nil, err
		}
		if len(calls) == 0 {
			return nil, nil
		}

		results, attachments := inv.callTools(ctx, a, tools, calls)
		if err := emit(results); err != nil {
			return nil, err
		}
		if name := results.Actions.TransferToAgent; name != "" {
			target := rootOf(a).FindAgent(name)
			if target == nil {
				return nil, fmt.Errorf("%w: %s", ErrUnknownAgent, name)
			}
			slog.InfoContext(ctx, "transferring", "from", a.name, "to", name)
			return target, nil
		}
		if results.Actions.Escalate {
			final := session.NewEvent(inv.id, a.name, nil)
			final.Actions.Escalate = true
			return nil, emit(final)
		}
		pending = attachments
	}
	span.SetStatus(codes.Error, ErrMaxRounds.Error())
	return nil, fmt.Errorf("%w: agent %s stopped after %d rounds", ErrMaxRounds, a.name, inv.maxRounds)
}

// callTools runs every call in order and gathers the results in one event.
func (inv *invocation) callTools(ctx context.Context, a *Agent, tools *registry, calls []*genai.FunctionCall) (*session.Event, []*genai.Content) {
	actions := session.EventActions{}
	parts := make([]*genai.Part, 0, len(calls))
	var attachments []*genai.Content

	for _, call := range calls {
		result := inv.callTool(ctx, a, tools, call, &actions, &attachments)
		parts = append(parts, &genai.Part{FunctionResponse: &genai.FunctionResponse{ID: call.ID, Name: call.Name, Response: result}})
	}
	ev := session.NewEvent(inv.id, a.name, &genai.Content{Role: "user", Parts: parts})
	ev.Actions = actions
	return ev, attachments
}

func (inv *invocation) callTool(ctx context.Context, a *Agent, tools *registry, call *genai.FunctionCall, actions *session.EventActions, attachments *[]*genai.Content) map[string]any {
	ctx, span := otel.Tracer("agent-runner").Start(ctx, "tool_call")
	defer span.End()
	span.SetAttributes(attribute.String("agent", a.name), attribute.String("tool", call.Name))

	tool, ok := tools.get(call.Name)
	if !ok {
		span.SetStatus(codes.Error, "unknown tool")
		return map[string]any{"error": fmt.Sprintf("tool %q is not available to agent %s", call.Name, a.name)}
	}
	tc := newToolContext(ctx, inv, a, call.ID, actions)
	result, err := tool.Run(tc, call.Args)
	*attachments = append(*attachments, tc.attachments...)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		slog.WarnContext(ctx, "tool failed", "agent", a.name, "tool", call.Name, "error", err)
		return map[string]any{"error": err.Error()}
	}
	if result == nil {
		result = map[string]any{}
	}
	return result
}

func rootOf(a *Agent) *Agent {
	for a.parent != nil {
		a = a.parent
	}
	return a
}

// modelEvent converts the first candidate into an event. A response without
// candidates, or one stopped for a reason other than STOP with nothing to
// show, escalates.
func modelEvent(invocationID string, author string, resp *genai.GenerateContentResponse) *session.Event {
	ev := session.NewEvent(invocationID, author, nil)
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0] == nil {
		ev.Actions.Escalate = true
		if resp != nil && resp.PromptFeedback != nil {
			ev.ErrorCode = string(resp.PromptFeedback.BlockReason)
			ev.ErrorMessage = resp.PromptFeedback.BlockReasonMessage
		}
		if ev.ErrorMessage == "" {
			ev.ErrorMessage = "model returned no candidates"
		}
		return ev
	}

	cand := resp.Candidates[0]
	parts := make([]*genai.Part, 0)
	if cand.Content != nil {
		for _, p := range cand.Content.Parts {
			if p == nil {
				continue
			}
			if p.FunctionCall != nil && p.FunctionCall.ID == "" {
				p.FunctionCall.ID = "call-" + uuid.NewString()
			}
			parts = append(parts, p)
		}
	}
	if len(parts) == 0 {
		if cand.FinishReason != "" && cand.FinishReason != genai.FinishReasonStop {
			ev.Actions.Escalate = true
			ev.ErrorCode = string(cand.FinishReason)
			ev.ErrorMessage = cand.FinishMessage
		}
		return ev
	}
	ev.Content = &genai.Content{Role: "model", Parts: parts}
	return ev
}

// buildContents turns the session history into the request for agent. Turns
// of other agents are rewritten as user context so the model does not take
// them for its own.
func buildContents(events []*session.Event, agentName string) []*genai.Content {
	out := make([]*genai.Content, 0, len(events))
	for _, ev := range events {
		if ev.Content == nil || len(ev.Content.Parts) == 0 {
			continue
		}
		if ev.Author == session.AuthorUser || ev.Author == agentName {
			out = append(out, ev.Content)
			continue
		}
		if c := foreignContent(ev); c != nil {
			out = append(out, c)
		}
	}
	return out
}

func foreignContent(ev *session.Event) *genai.Content {
	parts := []*genai.Part{{Text: "For context:"}}
	for _, p := range ev.Content.Parts {
		switch {
		case p == nil || p.Thought:
		case p.Text != "":
			parts = append(parts, &genai.Part{Text: fmt.Sprintf("[%s] said: %s", ev.Author, p.Text)})
		case p.FunctionCall != nil:
			parts = append(parts, &genai.Part{Text: fmt.Sprintf("[%s] called tool `%s` with parameters: %s", ev.Author, p.FunctionCall.Name, compactJSON(p.FunctionCall.Args))})
		case p.FunctionResponse != nil:
			parts = append(parts, &genai.Part{Text: fmt.Sprintf("[%s] `%s` tool returned result: %s", ev.Author, p.FunctionResponse.Name, compactJSON(p.FunctionResponse.Response))})
		default:
			parts = append(parts, p)
		}
	}
	if len(parts) == 1 {
		return nil
	}
	return &genai.Content{Role: "user", Parts: parts}
}

func compactJSON(v map[string]any) string {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(raw)
}
