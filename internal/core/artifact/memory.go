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

package artifact

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"google.golang.org/genai"
)

// InMemoryService keeps artifacts in process memory. Everything is lost when
// the process exits.
type InMemoryService struct {
	mu        sync.RWMutex
	artifacts map[string][]*genai.Part // "<scope path>/<file name>" to versions, index 0 is version 1
}

func NewInMemoryService() *InMemoryService {
	return &InMemoryService{artifacts: make(map[string][]*genai.Part)}
}

func (s *InMemoryService) Save(_ context.Context, req *SaveRequest) (int64, error) {
	if err := validate(req.Key, req.FileName); err != nil {
		return 0, err
	}
	if req.Part == nil {
		return 0, errors.New("artifact part is required")
	}
	path := scopePath(req.Key, req.FileName) + "/" + req.FileName

	s.mu.Lock()
	defer s.mu.Unlock()
	s.artifacts[path] = append(s.artifacts[path], clonePart(req.Part))
	return int64(len(s.artifacts[path])), nil
}

func (s *InMemoryService) Load(_ context.Context, req *LoadRequest) (*genai.Part, error) {
	if err := validate(req.Key, req.FileName); err != nil {
		return nil, err
	}
	path := scopePath(req.Key, req.FileName) + "/" + req.FileName

	s.mu.RLock()
	defer s.mu.RUnlock()
	versions := s.artifacts[path]
	if len(versions) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrArtifactNotFound, req.FileName)
	}
	v := req.Version
	if v == 0 {
		v = int64(len(versions))
	}
	if v < 1 || v > int64(len(versions)) {
		return nil, fmt.Errorf("%w: %s version %d", ErrArtifactNotFound, req.FileName, req.Version)
	}
	return clonePart(versions[v-1]), nil
}

func (s *InMemoryService) List(_ context.Context, key Key) ([]string, error) {
	sessionPrefix := scopePath(key, "") + "/"
	userPrefix := scopePath(key, UserScopePrefix) + "/"

	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0)
	for path := range s.artifacts {
		for _, prefix := range []string{sessionPrefix, userPrefix} {
			if name, ok := strings.CutPrefix(path, prefix); ok && !strings.Contains(name, "/") {
				out = append(out, name)
			}
		}
	}
	slices.Sort(out)
	return slices.Compact(out), nil
}

func (s *InMemoryService) Versions(_ context.Context, key Key, fileName string) ([]int64, error) {
	if err := validate(key, fileName); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := len(s.artifacts[scopePath(key, fileName)+"/"+fileName])
	if n == 0 {
		return nil, fmt.Errorf("%w: %s", ErrArtifactNotFound, fileName)
	}
	out := make([]int64, n)
	for i := range out {
		out[i] = int64(i + 1)
	}
	return out, nil
}

func (s *InMemoryService) Delete(_ context.Context, key Key, fileName string) error {
	if err := validate(key, fileName); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.artifacts, scopePath(key, fileName)+"/"+fileName)
	return nil
}

var _ Service = (*InMemoryService)(nil)
