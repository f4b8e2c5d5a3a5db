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
package cloud_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jaycherian/gcp-go-asset-agent/internal/cloud"
)

func env(values map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := values[key]
		return v, ok
	}
}

func validConfig(t *testing.T) *cloud.Config {
	t.Helper()
	c := cloud.NewConfig()
	require.NoError(t, cloud.ApplyEnvironment(c, env(map[string]string{
		cloud.EnvProject:             "p",
		cloud.EnvLocation:            "us-central1",
		cloud.EnvQueueID:             "q",
		cloud.EnvServiceURL:          "https://svc.example.com/",
		cloud.EnvServiceAccountEmail: "sa@p.iam.gserviceaccount.com",
		cloud.EnvDataset:             "d",
		cloud.EnvAssetTable:          "assets",
		cloud.EnvPort:                "9090",
	})))
	return c
}

func TestNewConfigDefaults(t *testing.T) {
	c := cloud.NewConfig()
	assert.Equal(t, 8080, c.Application.Port)
	assert.Equal(t, "video_analysis_agent", c.Application.Name)
	assert.Equal(t, "gcs_trigger_user", c.Application.UserID)
	assert.Equal(t, 1800, c.Tasks.DispatchDeadlineSeconds)
	assert.Equal(t, cloud.WriteModeInsertOnly, c.BigQueryDataSource.WriteMode)
	assert.Equal(t, "gemini-2.5-flash", c.AgentModels[cloud.CoordinatorModelKey].Model)
	assert.Equal(t, "gemini-3-pro-preview", c.AgentModels[cloud.DescriptionModelKey].Model)
	assert.Equal(t, "gemini-2.5-pro", c.AgentModels[cloud.IngestionModelKey].Model)
}

func TestApplyEnvironment(t *testing.T) {
	c := validConfig(t)
	assert.Equal(t, "p", c.Application.GoogleProjectId)
	assert.Equal(t, 9090, c.Application.Port)
	assert.Equal(t, "https://svc.example.com/process-asset", c.ProcessURL())
	assert.Equal(t, "p.d.assets", c.AssetTableFQN())
	assert.NoError(t, c.Validate())
}

func TestApplyEnvironmentRejectsBadPort(t *testing.T) {
	c := cloud.NewConfig()
	err := cloud.ApplyEnvironment(c, env(map[string]string{cloud.EnvPort: "eighty"}))
	assert.Error(t, err)
}

func TestValidateReportsEveryMissingValue(t *testing.T) {
	c := cloud.NewConfig()
	err := c.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, cloud.ErrMissingConfig))
	for _, name := range []string{cloud.EnvProject, cloud.EnvQueueID, cloud.EnvServiceURL, cloud.EnvServiceAccountEmail, cloud.EnvDataset, cloud.EnvAssetTable} {
		assert.Contains(t, err.Error(), name)
	}
}

func TestValidateChecksEnumerations(t *testing.T) {
	c := validConfig(t)
	c.BigQueryDataSource.WriteMode = "sometimes"
	assert.Error(t, c.Validate())

	c = validConfig(t)
	c.Session.Backend = cloud.SessionBackendRedis
	assert.ErrorIs(t, c.Validate(), cloud.ErrMissingConfig)
	c.Session.RedisAddr = "localhost:6379"
	assert.NoError(t, c.Validate())
}

func TestValidateDeployment(t *testing.T) {
	c := validConfig(t)
	err := c.ValidateDeployment()
	require.Error(t, err)
	assert.Contains(t, err.Error(), cloud.EnvStagingBucket)
	c.Storage.StagingBucket = "staging"
	assert.NoError(t, c.ValidateDeployment())
}

func TestLoadConfigFromFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, ".env.toml", "[application]\ngoogle_project_id = \"from-file\"\nlocation = \"europe-west1\"\n")
	writeFile(t, dir, ".env.unit.toml", "[tasks]\nqueue_id = \"unit-queue\"\n")
	t.Setenv(cloud.EnvConfigFilePrefix, dir)
	t.Setenv(cloud.EnvConfigRuntime, "unit")
	t.Setenv(cloud.EnvDotEnvFile, dir+"/absent.env")
	t.Setenv(cloud.EnvProject, "from-env")
	t.Setenv(cloud.EnvLocation, "")
	t.Setenv(cloud.EnvQueueID, "")

	c := cloud.NewConfig()
	require.NoError(t, cloud.LoadConfig(c))
	assert.Equal(t, "from-env", c.Application.GoogleProjectId)
	assert.Equal(t, "europe-west1", c.Application.GoogleLocation)
	assert.Equal(t, "unit-queue", c.Tasks.QueueID)
}
