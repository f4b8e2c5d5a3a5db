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
	"context"
	"errors"
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// InMemoryService keeps sessions in a bounded LRU cache. When the cache is full
// the least recently used session is evicted.
type InMemoryService struct {
	mu       sync.Mutex
	sessions *lru.Cache[string, *Session]
}

// NewInMemoryService creates a registry holding at most size sessions.
func NewInMemoryService(size int) (*InMemoryService, error) {
	if size <= 0 {
		return nil, errors.New("session cache size must be positive")
	}
	cache, err := lru.New[string, *Session](size)
	if err != nil {
		return nil, err
	}
	return &InMemoryService{sessions: cache}, nil
}

// Create stores an empty session. It fails with ErrSessionExists when the
// id is taken.
func (m *InMemoryService) Create(_ context.Context, appName string, userID string, sessionID string) (*Session, error) {
	key := sessionKey(appName, userID, sessionID)
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sessions.Contains(key) {
		return nil, fmt.Errorf("%w: %s", ErrSessionExists, sessionID)
	}
	s := newSession(appName, userID, sessionID)
	m.sessions.Add(key, s)
	return s.snapshot(), nil
}

// Get returns a copy of the session with its events and state.
func (m *InMemoryService) Get(_ context.Context, appName string, userID string, sessionID string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions.Get(sessionKey(appName, userID, sessionID))
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	return s.snapshot(), nil
}

// AppendEvent records a non-partial event and applies its state delta to
// both the stored session and s.
func (m *InMemoryService) AppendEvent(_ context.Context, s *Session, event *Event) error {
	if event.Partial {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.sessions.Get(sessionKey(s.AppName, s.UserID, s.ID))
	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, s.ID)
	}
	stored.apply(event)
	s.apply(event)
	return nil
}

// Delete removes the session. Deleting a missing session is not an error.
func (m *InMemoryService) Delete(_ context.Context, appName string, userID string, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions.Remove(sessionKey(appName, userID, sessionID))
	return nil
}

// Len returns the number of sessions currently held.
func (m *InMemoryService) Len() int {
	return m.sessions.Len()
}

var _ Service = (*InMemoryService)(nil)
