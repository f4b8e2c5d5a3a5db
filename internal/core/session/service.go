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

// Package session keeps the conversation history of agent runs. A session
// belongs to one app and user and accumulates the events of every invocation
// made against it.
package session

import (
	"context"
	"errors"
	"maps"
	"time"
)

var (
	// ErrSessionNotFound is returned for reads and appends on a missing session.
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionExists is returned when Create reuses a session id.
	ErrSessionExists = errors.New("session already exists")
)

// Session is a conversation between a user and an app's agents.
type Session struct {
	AppName    string         `json:"app_name"`
	UserID     string         `json:"user_id"`
	ID         string         `json:"id"`
	State      map[string]any `json:"state"`
	Events     []*Event       `json:"events"`
	LastUpdate time.Time      `json:"last_update"`
}

// Service is implemented by every session backend. Get returns a snapshot;
// AppendEvent records the event in the backend and in the snapshot passed in.
type Service interface {
	Create(ctx context.Context, appName string, userID string, sessionID string) (*Session, error)
	Get(ctx context.Context, appName string, userID string, sessionID string) (*Session, error)
	AppendEvent(ctx context.Context, s *Session, event *Event) error
	Delete(ctx context.Context, appName string, userID string, sessionID string) error
}

func newSession(appName string, userID string, sessionID string) *Session {
	return &Session{
		AppName:    appName,
		UserID:     userID,
		ID:         sessionID,
		State:      make(map[string]any),
		Events:     make([]*Event, 0),
		LastUpdate: time.Now(),
	}
}

// apply folds the event into the session.
func (s *Session) apply(event *Event) {
	if s.State == nil {
		s.State = make(map[string]any)
	}
	maps.Copy(s.State, event.Actions.StateDelta)
	s.Events = append(s.Events, event)
	s.LastUpdate = event.Timestamp
}

// snapshot copies the session header, state and event slice.
func (s *Session) snapshot() *Session {
	out := *s
	out.State = maps.Clone(s.State)
	if out.State == nil {
		out.State = make(map[string]any)
	}
	out.Events = append(make([]*Event, 0, len(s.Events)), s.Events...)
	return &out
}

func sessionKey(appName string, userID string, sessionID string) string {
	return appName + "/" + userID + "/" + sessionID
}
