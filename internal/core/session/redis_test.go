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
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/jaycherian/gcp-go-asset-agent/internal/core/session"
)

// Runs against a live server only when REDIS_ADDR is set.
func TestRedisService(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	ctx := context.Background()
	client := session.NewRedisClient(addr, "", 0)
	defer func() { _ = client.Close() }()
	svc := session.NewRedisService(client, time.Minute)

	id := uuid.NewString()
	s, err := svc.Create(ctx, "app", "u", id)
	require.NoError(t, err)
	_, err = svc.Create(ctx, "app", "u", id)
	assert.ErrorIs(t, err, session.ErrSessionExists)

	ev := session.NewEvent("inv", session.AuthorUser, genai.NewContentFromText("hello", "user"))
	ev.Actions.StateDelta = map[string]any{"count": 2.0}
	require.NoError(t, svc.AppendEvent(ctx, s, ev))

	got, err := svc.Get(ctx, "app", "u", id)
	require.NoError(t, err)
	require.Len(t, got.Events, 1)
	assert.Equal(t, "hello", got.Events[0].Text())
	assert.Equal(t, 2.0, got.State["count"])

	require.NoError(t, svc.Delete(ctx, "app", "u", id))
	_, err = svc.Get(ctx, "app", "u", id)
	assert.ErrorIs(t, err, session.ErrSessionNotFound)
}
