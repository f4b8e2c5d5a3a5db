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

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jaycherian/gcp-go-asset-agent/internal/core/model"
	"github.com/jaycherian/gcp-go-asset-agent/internal/core/workflow"
	test "github.com/jaycherian/gcp-go-asset-agent/internal/testutil"
)

func TestReplayPostsEventWithToken(t *testing.T) {
	var gotAuth, gotType string
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotType = r.Header.Get("Content-Type")
		gotBody, _ = io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"success","response":"ok"}`))
	}))
	defer srv.Close()

	status, body, err := replay(context.Background(), srv.Client(), srv.URL+"/process-asset", "tok", &model.StorageEvent{Bucket: "b1", Name: "video.mp4"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"status":"success","response":"ok"}`, body)
	assert.Equal(t, "Bearer tok", gotAuth)
	assert.Equal(t, "application/json", gotType)
	assert.JSONEq(t, `{"bucket":"b1","name":"video.mp4"}`, string(gotBody))
}

func TestReplayWithoutToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	status, _, err := replay(context.Background(), srv.Client(), srv.URL, "", &model.StorageEvent{Bucket: "b1", Name: "video.mp4"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, status)
}

func TestDescribePrintsManifest(t *testing.T) {
	m, err := manifest(test.NewConfig())
	require.NoError(t, err)
	raw, err := m.JSON()
	require.NoError(t, err)

	var decoded struct {
		Root struct {
			Name      string `json:"name"`
			SubAgents []struct {
				Name string `json:"name"`
			} `json:"sub_agents"`
		} `json:"root_agent"`
	}
	require.NoError(t, json.NewDecoder(bytes.NewReader(raw)).Decode(&decoded))
	assert.Equal(t, workflow.RootAgentName, decoded.Root.Name)
	require.Len(t, decoded.Root.SubAgents, 1)
	assert.Equal(t, workflow.IngestionAgentName, decoded.Root.SubAgents[0].Name)
}
