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
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jaycherian/gcp-go-asset-agent/internal/api"
	"github.com/jaycherian/gcp-go-asset-agent/internal/cloud"
	"github.com/jaycherian/gcp-go-asset-agent/internal/core/agent"
	"github.com/jaycherian/gcp-go-asset-agent/internal/core/artifact"
	"github.com/jaycherian/gcp-go-asset-agent/internal/core/services"
	"github.com/jaycherian/gcp-go-asset-agent/internal/core/session"
	"github.com/jaycherian/gcp-go-asset-agent/internal/core/workflow"
)

// StateManager holds the components shared by the routes and listeners.
type StateManager struct {
	config     *cloud.Config
	cloud      *cloud.ServiceClients
	redis      *redis.Client
	sessions   session.Service
	artifacts  artifact.Service
	warehouse  *services.Warehouse
	runner     *agent.Runner
	trigger    *workflow.AssetTriggerWorkflow
	processing *workflow.AssetProcessingWorkflow
}

var state = &StateManager{}

// SetupOS points the config loader at ./configs with the local runtime
// unless the environment already chose.
func SetupOS() error {
	if _, ok := os.LookupEnv(cloud.EnvConfigFilePrefix); !ok {
		if err := os.Setenv(cloud.EnvConfigFilePrefix, "configs"); err != nil {
			return err
		}
	}
	if _, ok := os.LookupEnv(cloud.EnvConfigRuntime); !ok {
		return os.Setenv(cloud.EnvConfigRuntime, "local")
	}
	return nil
}

// GetConfig loads the configuration once.
func GetConfig() (*cloud.Config, error) {
	if state.config == nil {
		config := cloud.NewConfig()
		if err := cloud.LoadConfig(config); err != nil {
			return nil, err
		}
		state.config = config
	}
	return state.config, nil
}

// InitState creates the cloud clients, backends, agents and workflows.
func InitState(ctx context.Context, config *cloud.Config) (err error) {
	defer func() {
		if err != nil {
			_ = state.Close()
		}
	}()

	if state.cloud, err = cloud.NewCloudServiceClients(ctx, config); err != nil {
		return err
	}
	if err = setupSessions(config); err != nil {
		return err
	}
	if bucket := config.Storage.ArtifactBucket; bucket != "" {
		state.artifacts = artifact.NewGCSService(state.cloud.StorageClient, bucket, config.Storage.ArtifactPrefix)
		slog.Info("artifacts stored in GCS", "bucket", bucket)
	} else {
		state.artifacts = artifact.NewInMemoryService()
	}

	state.warehouse = &services.Warehouse{
		BigqueryClient: state.cloud.BiqQueryClient,
		ProjectID:      config.Application.GoogleProjectId,
		DatasetName:    config.BigQueryDataSource.DatasetName,
		AssetTable:     config.BigQueryDataSource.AssetTable,
	}
	schema := config.BigQueryDataSource.AssetTableSchema
	if schema == "" {
		if schema, err = state.warehouse.DescribeAssetTable(ctx); err != nil {
			slog.Warn("asset table schema unavailable, the ingestion agent will look it up", "error", err)
			schema, err = "", nil
		}
	}

	tree, err := workflow.NewAgentTree(workflow.AgentDependencies{
		Config:  config,
		Models:  workflow.AgentModels(state.cloud),
		Objects: &cloud.GCSReader{Client: state.cloud.StorageClient},
		Engine:  state.warehouse,
		Schema:  schema,
	})
	if err != nil {
		return err
	}
	state.runner, err = agent.NewRunner(agent.RunnerConfig{
		AppName:       config.Application.Name,
		Agent:         tree.Root,
		Sessions:      state.sessions,
		Artifacts:     state.artifacts,
		MaxRounds:     config.Application.MaxAgentRounds,
		MaxModelCalls: config.Application.MaxModelCalls,
	})
	if err != nil {
		return err
	}

	state.trigger = workflow.NewAssetTriggerWorkflow(cloud.NewTaskEnqueuer(state.cloud.TasksClient, config))
	state.processing = workflow.NewAssetProcessingWorkflow(state.sessions, state.runner, config.Application.UserID)
	return nil
}

func setupSessions(config *cloud.Config) error {
	switch config.Session.Backend {
	case cloud.SessionBackendRedis:
		state.redis = session.NewRedisClient(config.Session.RedisAddr, config.Session.RedisPassword, config.Session.RedisDB)
		state.sessions = session.NewRedisService(state.redis, time.Duration(config.Session.TTLSeconds)*time.Second)
		slog.Info("sessions stored in redis", "addr", config.Session.RedisAddr)
	case cloud.SessionBackendMemory:
		sessions, err := session.NewInMemoryService(config.Session.MaxSessions)
		if err != nil {
			return err
		}
		state.sessions = sessions
	default:
		return fmt.Errorf("unknown session backend %q", config.Session.Backend)
	}
	return nil
}

// Handlers wires the workflows into the HTTP routes.
func (s *StateManager) Handlers() *api.Handlers {
	h := &api.Handlers{
		TriggerWorkflow:    s.trigger,
		ProcessingWorkflow: s.processing,
		Assets:             s.warehouse,
	}
	if s.config.Application.VerifyOIDCToken {
		h.Verifier = cloud.NewOIDCVerifier(s.config)
	}
	return h
}

// Close releases the redis connection and the cloud clients.
func (s *StateManager) Close() error {
	var err error
	if s.redis != nil {
		err = errors.Join(err, s.redis.Close())
	}
	if s.cloud != nil {
		err = errors.Join(err, s.cloud.Close())
	}
	return err
}
