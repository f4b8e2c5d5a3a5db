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

// Package artifact stores versioned binary parts (files, images, videos) that
// agents create and read during a run. An artifact is addressed by app, user,
// session and file name; file names prefixed with "user:" are shared by every
// session of the same user.
package artifact

import (
	"context"
	"errors"
	"strings"

	"google.golang.org/genai"
)

// ErrArtifactNotFound is returned when a file name or version does not exist.
var ErrArtifactNotFound = errors.New("artifact not found")

// UserScopePrefix moves an artifact from the session scope to the user scope.
const UserScopePrefix = "user:"

// userScopeSegment stands in for the session id of user scoped artifacts.
const userScopeSegment = "user"

// Key identifies the session an artifact belongs to.
type Key struct {
	AppName   string
	UserID    string
	SessionID string
}

// SaveRequest stores a new version of FileName.
type SaveRequest struct {
	Key
	FileName string
	Part     *genai.Part
}

// LoadRequest reads FileName. A zero Version reads the latest version.
type LoadRequest struct {
	Key
	FileName string
	Version  int64
}

// Service is implemented by every artifact backend. Versions start at 1 and
// increase by one on every save of the same file name.
type Service interface {
	Save(ctx context.Context, req *SaveRequest) (int64, error)
	Load(ctx context.Context, req *LoadRequest) (*genai.Part, error)
	List(ctx context.Context, key Key) ([]string, error)
	Versions(ctx context.Context, key Key, fileName string) ([]int64, error)
	Delete(ctx context.Context, key Key, fileName string) error
}

// IsUserScoped reports whether fileName is shared across sessions.
func IsUserScoped(fileName string) bool {
	return strings.HasPrefix(fileName, UserScopePrefix)
}

// scopePath returns "<app>/<user>/<session or user>" for fileName.
func scopePath(key Key, fileName string) string {
	scope := key.SessionID
	if IsUserScoped(fileName) {
		scope = userScopeSegment
	}
	return key.AppName + "/" + key.UserID + "/" + scope
}

func validate(key Key, fileName string) error {
	if key.AppName == "" || key.UserID == "" || key.SessionID == "" {
		return errors.New("artifact key requires app name, user id and session id")
	}
	if fileName == "" || strings.Contains(fileName, "/") {
		return errors.New("artifact file name must be non-empty and contain no '/'")
	}
	return nil
}

// clonePart copies the part so stored versions are not changed by callers.
func clonePart(p *genai.Part) *genai.Part {
	if p == nil {
		return nil
	}
	out := *p
	if p.InlineData != nil {
		blob := *p.InlineData
		blob.Data = append([]byte(nil), p.InlineData.Data...)
		out.InlineData = &blob
	}
	return &out
}
