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
	"errors"
	"maps"

	"google.golang.org/genai"

	"github.com/jaycherian/gcp-go-asset-agent/internal/core/artifact"
	"github.com/jaycherian/gcp-go-asset-agent/internal/core/session"
)

// ErrNoArtifactService is returned by artifact calls when the runner has no artifact backend.
var ErrNoArtifactService = errors.New("artifact service is not configured")

// toolContext is handed to one tool call.
type toolContext struct {
	context.Context
	inv         *invocation
	agent       *Agent
	callID      string
	actions     *session.EventActions
	attachments []*genai.Content
}

func newToolContext(ctx context.Context, inv *invocation, a *Agent, callID string, actions *session.EventActions) *toolContext {
	return &toolContext{Context: ctx, inv: inv, agent: a, callID: callID, actions: actions}
}

func (c *toolContext) AgentName() string              { return c.agent.name }
func (c *toolContext) InvocationID() string           { return c.inv.id }
func (c *toolContext) FunctionCallID() string         { return c.callID }
func (c *toolContext) Key() artifact.Key              { return c.inv.artifactKey }
func (c *toolContext) State() map[string]any          { return maps.Clone(c.inv.session.State) }
func (c *toolContext) Actions() *session.EventActions { return c.actions }
func (c *toolContext) Attach(content *genai.Content)  { c.attachments = append(c.attachments, content) }

func (c *toolContext) Artifacts() Artifacts {
	return NewArtifacts(c.inv.artifacts, c.inv.artifactKey, c.actions)
}

// NewArtifacts binds service to key. Saved versions are recorded in actions.
// A nil service makes every call fail with ErrNoArtifactService.
func NewArtifacts(service artifact.Service, key artifact.Key, actions *session.EventActions) Artifacts {
	return &scopedArtifacts{service: service, key: key, actions: actions}
}

// scopedArtifacts binds an artifact service to the session of the run and
// records saved versions in the event actions.
type scopedArtifacts struct {
	service artifact.Service
	key     artifact.Key
	actions *session.EventActions
}

func (s *scopedArtifacts) Save(ctx context.Context, fileName string, part *genai.Part) (int64, error) {
	if s.service == nil {
		return 0, ErrNoArtifactService
	}
	version, err := s.service.Save(ctx, &artifact.SaveRequest{Key: s.key, FileName: fileName, Part: part})
	if err != nil {
		return 0, err
	}
	if s.actions.ArtifactDelta == nil {
		s.actions.ArtifactDelta = make(map[string]int64)
	}
	s.actions.ArtifactDelta[fileName] = version
	return version, nil
}

func (s *scopedArtifacts) Load(ctx context.Context, fileName string, version int64) (*genai.Part, error) {
	if s.service == nil {
		return nil, ErrNoArtifactService
	}
	return s.service.Load(ctx, &artifact.LoadRequest{Key: s.key, FileName: fileName, Version: version})
}

func (s *scopedArtifacts) List(ctx context.Context) ([]string, error) {
	if s.service == nil {
		return nil, ErrNoArtifactService
	}
	return s.service.List(ctx, s.key)
}
