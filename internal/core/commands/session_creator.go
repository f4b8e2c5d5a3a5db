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
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/jaycherian/gcp-go-asset-agent/internal/core/artifact"
	"github.com/jaycherian/gcp-go-asset-agent/internal/core/cor"
	"github.com/jaycherian/gcp-go-asset-agent/internal/core/model"
	"github.com/jaycherian/gcp-go-asset-agent/internal/core/session"
)

// SessionCreator opens a fresh agent session for the event. The session and
// its session scoped artifacts are deleted when the chain context is closed.
// The event passes through unchanged.
type SessionCreator struct {
	cor.BaseCommand
	sessions  session.Service
	artifacts artifact.Service
	appName   string
	userID    string
	newID     func() string
}

// NewSessionCreator creates the first step of the processing workflow.
//
// Inputs:
//   - name: The command name, used for its span and counters.
//   - sessions: The registry sessions are created in.
//   - artifacts: The backend the run saves artifacts to. May be nil.
//   - appName: The application the session belongs to.
//   - userID: The static user of the storage trigger path.
//
// Outputs:
//   - *SessionCreator: The command.
func NewSessionCreator(name string, sessions session.Service, artifacts artifact.Service, appName string, userID string) *SessionCreator {
	return &SessionCreator{
		BaseCommand: *cor.NewBaseCommand(name),
		sessions:    sessions,
		artifacts:   artifacts,
		appName:     appName,
		userID:      userID,
		newID:       uuid.NewString,
	}
}

// Execute creates a session with a new random id and registers its cleanup.
// The id is stored under SessionIDKey.
func (c *SessionCreator) Execute(chCtx cor.Context) {
	event, ok := chCtx.Get(c.GetInputParam()).(*model.StorageEvent)
	if !ok {
		c.Fail(chCtx, fmt.Errorf("expected *model.StorageEvent input, got %T", chCtx.Get(c.GetInputParam())))
		return
	}

	sessionID := c.newID()
	if _, err := c.sessions.Create(chCtx.GetContext(), c.appName, c.userID, sessionID); err != nil {
		c.Fail(chCtx, fmt.Errorf("failed to create session: %w", err))
		return
	}
	chCtx.AddCleanup(func(ctx context.Context) error {
		err := c.deleteArtifacts(ctx, sessionID)
		slog.DebugContext(ctx, "deleting session", "session", sessionID)
		return errors.Join(err, c.sessions.Delete(ctx, c.appName, c.userID, sessionID))
	})

	c.Succeed(chCtx)
	chCtx.Add(SessionIDKey, sessionID)
	chCtx.Add(StorageEventKey, event)
	chCtx.Add(c.GetOutputParam(), event)
}

// deleteArtifacts removes every artifact of the session. User scoped artifacts
// outlive the session and are kept.
func (c *SessionCreator) deleteArtifacts(ctx context.Context, sessionID string) error {
	if c.artifacts == nil {
		return nil
	}
	key := artifact.Key{AppName: c.appName, UserID: c.userID, SessionID: sessionID}
	names, err := c.artifacts.List(ctx, key)
	if err != nil {
		return fmt.Errorf("failed to list artifacts of session %s: %w", sessionID, err)
	}
	var errs error
	for _, name := range names {
		if artifact.IsUserScoped(name) {
			continue
		}
		versions, err := c.artifacts.Versions(ctx, key, name)
		if err != nil && !errors.Is(err, artifact.ErrArtifactNotFound) {
			errs = errors.Join(errs, err)
			continue
		}
		slog.DebugContext(ctx, "deleting artifact", "session", sessionID, "filename", name, "versions", len(versions))
		errs = errors.Join(errs, c.artifacts.Delete(ctx, key, name))
	}
	return errs
}
