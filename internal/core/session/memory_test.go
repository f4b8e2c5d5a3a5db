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

package session_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/jaycherian/gcp-go-asset-agent/internal/core/session"
)

func newService(t *testing.T, size int) *session.InMemoryService {
	t.Helper()
	svc, err := session.NewInMemoryService(size)
	require.NoError(t, err)
	return svc
}

func TestCreateGetDelete(t *testing.T) {
	ctx := context.Background()
	svc := newService(t, 10)

	s, err := svc.Create(ctx, "app", "u", "s1")
	require.NoError(t, err)
	assert.Equal(t, "s1", s.ID)
	assert.Empty(t, s.Events)

	_, err = svc.Create(ctx, "app", "u", "s1")
	assert.ErrorIs(t, err, session.ErrSessionExists)

	got, err := svc.Get(ctx, "app", "u", "s1")
	require.NoError(t, err)
	assert.Equal(t, "app", got.AppName)

	require.NoError(t, svc.Delete(ctx, "app", "u", "s1"))
	_, err = svc.Get(ctx, "app", "u", "s1")
	assert.ErrorIs(t, err, session.ErrSessionNotFound)
}

func TestAppendEvent(t *testing.T) {
	ctx := context.Background()
	svc := newService(t, 10)
	s, err := svc.Create(ctx, "app", "u", "s1")
	require.NoError(t, err)

	ev := session.NewEvent("inv", session.AuthorUser, genai.NewContentFromText("hello", "user"))
	ev.Actions.StateDelta = map[string]any{"seen": true}
	require.NoError(t, svc.AppendEvent(ctx, s, ev))
	assert.Len(t, s.Events, 1)

	partial := session.NewEvent("inv", "agent", genai.NewContentFromText("hel", "model"))
	partial.Partial = true
	require.NoError(t, svc.AppendEvent(ctx, s, partial))

	got, err := svc.Get(ctx, "app", "u", "s1")
	require.NoError(t, err)
	require.Len(t, got.Events, 1)
	assert.Equal(t, "hello", got.Events[0].Text())
	assert.Equal(t, true, got.State["seen"])
}

func TestAppendToMissingSession(t *testing.T) {
	svc := newService(t, 10)
	err := svc.AppendEvent(context.Background(), &session.Session{AppName: "app", UserID: "u", ID: "ghost"}, session.NewEvent("i", "a", nil))
	assert.ErrorIs(t, err, session.ErrSessionNotFound)
}

func TestSessionsAreIsolated(t *testing.T) {
	ctx := context.Background()
	svc := newService(t, 10)
	a, err := svc.Create(ctx, "app", "u", "a")
	require.NoError(t, err)
	_, err = svc.Create(ctx, "app", "u", "b")
	require.NoError(t, err)

	require.NoError(t, svc.AppendEvent(ctx, a, session.NewEvent("i", session.AuthorUser, genai.NewContentFromText("only a", "user"))))
	b, err := svc.Get(ctx, "app", "u", "b")
	require.NoError(t, err)
	assert.Empty(t, b.Events)
}

func TestEvictsLeastRecentlyUsed(t *testing.T) {
	ctx := context.Background()
	svc := newService(t, 2)
	for i := 0; i < 3; i++ {
		_, err := svc.Create(ctx, "app", "u", fmt.Sprintf("s%d", i))
		require.NoError(t, err)
	}
	assert.Equal(t, 2, svc.Len())
	_, err := svc.Get(ctx, "app", "u", "s0")
	assert.ErrorIs(t, err, session.ErrSessionNotFound)
}

func TestRejectsNonPositiveSize(t *testing.T) {
	_, err := session.NewInMemoryService(0)
	assert.Error(t, err)
}

func TestIsFinalResponse(t *testing.T) {
	text := session.NewEvent("i", "agent", genai.NewContentFromText("done", "model"))
	assert.True(t, text.IsFinalResponse())

	call := session.NewEvent("i", "agent", genai.NewContentFromFunctionCall("list_artifacts", map[string]any{}, "model"))
	assert.False(t, call.IsFinalResponse())
	assert.Len(t, call.FunctionCalls(), 1)

	result := session.NewEvent("i", "agent", genai.NewContentFromFunctionResponse("list_artifacts", map[string]any{"result": "x"}, "user"))
	assert.False(t, result.IsFinalResponse())

	partial := session.NewEvent("i", "agent", genai.NewContentFromText("do", "model"))
	partial.Partial = true
	assert.False(t, partial.IsFinalResponse())

	escalation := session.NewEvent("i", "agent", nil)
	escalation.Actions.Escalate = true
	assert.True(t, escalation.IsFinalResponse())
	assert.Equal(t, "", escalation.Text())
}
