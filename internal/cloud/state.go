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

// Package cloud provides components for interacting with Google Cloud services.
// This file initializes and holds every client object needed to talk to Google
// Cloud. It acts as a dependency injection container: one `ServiceClients`
// struct is created at startup and passed to the components that need it.
//
// Logic Flow:
//  1. `NewCloudServiceClients` is called at application startup with the config.
//  2. It initializes clients for Storage, Pub/Sub, GenAI, BigQuery and Cloud Tasks.
//  3. It creates a Pub/Sub listener when a trigger subscription is configured.
//  4. It wraps every configured agent model in a `QuotaAwareGenerativeAIModel`.
//  5. All clients are bundled into a single `ServiceClients` struct.
package cloud

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"cloud.google.com/go/bigquery"
	cloudtasks "cloud.google.com/go/cloudtasks/apiv2"
	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/storage"
	"google.golang.org/genai"
)

// TriggerListenerKey is the PubSubListeners key of the storage trigger listener.
const TriggerListenerKey = "trigger"

// ServiceClients is the central container for the clients that talk to
// external Google Cloud services.
type ServiceClients struct {
	StorageClient   *storage.Client                         // Client for Google Cloud Storage (GCS).
	PubsubClient    *pubsub.Client                          // Client for Google Cloud Pub/Sub.
	GenAIClient     *genai.Client                           // Client for Gemini on Vertex AI.
	BiqQueryClient  *bigquery.Client                        // Client for Google Cloud BigQuery.
	TasksClient     *cloudtasks.Client                      // Client for Cloud Tasks.
	PubSubListeners map[string]*PubSubListener              // Active Pub/Sub listeners keyed by logical name.
	AgentModels     map[string]*QuotaAwareGenerativeAIModel // Agent models keyed by logical name from the config.
}

// Close shuts down every client connection. Errors are joined.
func (c *ServiceClients) Close() error {
	var err error
	if c.StorageClient != nil {
		err = errors.Join(err, c.StorageClient.Close())
	}
	if c.PubsubClient != nil {
		err = errors.Join(err, c.PubsubClient.Close())
	}
	if c.BiqQueryClient != nil {
		err = errors.Join(err, c.BiqQueryClient.Close())
	}
	if c.TasksClient != nil {
		err = errors.Join(err, c.TasksClient.Close())
	}
	return err
}

// NewCloudServiceClients initializes all required Google Cloud service clients.
//
// Inputs:
//   - ctx: The root context for the application, used to manage the lifecycle of the clients.
//   - config: The loaded and validated application configuration.
//
// Outputs:
//   - *ServiceClients: The initialized clients.
//   - error: An error if any client fails to initialize. Clients created before
//     the failure are closed.
func NewCloudServiceClients(ctx context.Context, config *Config) (cloud *ServiceClients, err error) {
	cloud = &ServiceClients{
		PubSubListeners: make(map[string]*PubSubListener),
		AgentModels:     make(map[string]*QuotaAwareGenerativeAIModel),
	}
	defer func() {
		if err != nil {
			_ = cloud.Close()
			cloud = nil
		}
	}()

	if cloud.StorageClient, err = storage.NewClient(ctx); err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	if cloud.PubsubClient, err = pubsub.NewClient(ctx, config.Application.GoogleProjectId); err != nil {
		return nil, fmt.Errorf("failed to create pubsub client: %w", err)
	}
	if cloud.BiqQueryClient, err = bigquery.NewClient(ctx, config.Application.GoogleProjectId); err != nil {
		return nil, fmt.Errorf("failed to create bigquery client: %w", err)
	}
	if cloud.TasksClient, err = cloudtasks.NewClient(ctx); err != nil {
		return nil, fmt.Errorf("failed to create cloud tasks client: %w", err)
	}
	cloud.GenAIClient, err = genai.NewClient(ctx, &genai.ClientConfig{
		Project:  config.Application.GoogleProjectId,
		Location: config.Application.GoogleLocation,
		Backend:  genai.BackendVertexAI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	if sub := config.Trigger.Subscription; sub != "" {
		listener, err := NewPubSubListener(cloud.PubsubClient, sub, nil)
		if err != nil {
			return nil, err
		}
		cloud.PubSubListeners[TriggerListenerKey] = listener
	}

	for key, values := range config.AgentModels {
		cloud.AgentModels[key] = NewQuotaAwareModel(NewGenerateContentConfig(values), values.Model, cloud.GenAIClient.Models, values.RateLimit)
		slog.Debug("configured agent model", "key", key, "model", values.Model)
	}
	return cloud, nil
}
