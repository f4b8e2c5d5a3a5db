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
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	redisCreatedField = "created"
	redisStatePrefix  = "state:"
)

// RedisService persists sessions in Redis so that several worker instances can
// share them and a restart does not lose history. Each session uses a hash
// "session:<app>:<user>:<id>" for its header and state and a list
// "session:<app>:<user>:<id>:events" for its events.
type RedisService struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewRedisService creates a session registry on client. Keys expire ttl after
// the last write; a zero ttl keeps them forever.
func NewRedisService(client redis.UniversalClient, ttl time.Duration) *RedisService {
	return &RedisService{client: client, ttl: ttl}
}

// NewRedisClient opens a client for a single Redis server.
func NewRedisClient(addr string, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}

func redisKey(appName string, userID string, sessionID string) string {
	return fmt.Sprintf("session:%s:%s:%s", appName, userID, sessionID)
}

// Create stores an empty session. It fails with ErrSessionExists when the
// id is taken.
func (r *RedisService) Create(ctx context.Context, appName string, userID string, sessionID string) (*Session, error) {
	key := redisKey(appName, userID, sessionID)
	s := newSession(appName, userID, sessionID)
	created, err := r.client.HSetNX(ctx, key, redisCreatedField, s.LastUpdate.Format(time.RFC3339Nano)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to create session %s: %w", sessionID, err)
	}
	if !created {
		return nil, fmt.Errorf("%w: %s", ErrSessionExists, sessionID)
	}
	if r.ttl > 0 {
		if err := r.client.Expire(ctx, key, r.ttl).Err(); err != nil {
			return nil, fmt.Errorf("failed to set session expiry: %w", err)
		}
	}
	return s, nil
}

// Get returns a copy of the session with its events and state.
func (r *RedisService) Get(ctx context.Context, appName string, userID string, sessionID string) (*Session, error) {
	key := redisKey(appName, userID, sessionID)
	fields, err := r.client.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read session %s: %w", sessionID, err)
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	s := newSession(appName, userID, sessionID)
	for field, raw := range fields {
		name, ok := strings.CutPrefix(field, redisStatePrefix)
		if !ok {
			continue
		}
		var v any
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			return nil, fmt.Errorf("failed to decode state %s: %w", name, err)
		}
		s.State[name] = v
	}

	raws, err := r.client.LRange(ctx, key+":events", 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read events of %s: %w", sessionID, err)
	}
	for _, raw := range raws {
		event := &Event{}
		if err := json.Unmarshal([]byte(raw), event); err != nil {
			return nil, fmt.Errorf("failed to decode event of %s: %w", sessionID, err)
		}
		s.Events = append(s.Events, event)
		s.LastUpdate = event.Timestamp
	}
	return s, nil
}

// AppendEvent records a non-partial event and applies its state delta to
// both the stored session and s.
func (r *RedisService) AppendEvent(ctx context.Context, s *Session, event *Event) error {
	if event.Partial {
		return nil
	}
	key := redisKey(s.AppName, s.UserID, s.ID)
	exists, err := r.client.Exists(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("failed to check session %s: %w", s.ID, err)
	}
	if exists == 0 {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, s.ID)
	}

	raw, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}
	state := make([]any, 0, 2*len(event.Actions.StateDelta))
	for k, v := range event.Actions.StateDelta {
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("failed to encode state %s: %w", k, err)
		}
		state = append(state, redisStatePrefix+k, string(b))
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, key+":events", string(raw))
		if len(state) > 0 {
			pipe.HSet(ctx, key, state...)
		}
		if r.ttl > 0 {
			pipe.Expire(ctx, key, r.ttl)
			pipe.Expire(ctx, key+":events", r.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to append event to %s: %w", s.ID, err)
	}
	s.apply(event)
	return nil
}

// Delete removes the session. Deleting a missing session is not an error.
func (r *RedisService) Delete(ctx context.Context, appName string, userID string, sessionID string) error {
	key := redisKey(appName, userID, sessionID)
	if err := r.client.Del(ctx, key, key+":events").Err(); err != nil {
		return fmt.Errorf("failed to delete session %s: %w", sessionID, err)
	}
	return nil
}

var _ Service = (*RedisService)(nil)
