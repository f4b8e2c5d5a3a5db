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

// Package cloud defines the data structures for application configuration,
// loaded from TOML files and overridden by the process environment. It provides
// a structured way to manage settings for the Google Cloud services the asset
// agent depends on: Cloud Tasks, Cloud Storage, BigQuery, Pub/Sub and the
// Vertex AI models behind each agent.
//
// Structs:
//   - BigQueryDataSource: The dataset, table and schema text used by the ingestion agent.
//   - VertexAiLLMModel: Configuration for a Vertex AI Large Language Model (LLM).
//   - Tasks: The Cloud Tasks queue and dispatch settings for deferred processing.
//   - Storage: Staging and artifact buckets.
//   - Session: The session registry backend.
//   - Trigger: The optional Pub/Sub subscription that feeds the enqueue path.
//   - Deployment: The Agent Engine registration settings.
//   - Config: The top-level struct that aggregates all other configuration structs.
package cloud

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"google.golang.org/genai"
)

// ErrMissingConfig is returned by Validate when a required value is absent.
var ErrMissingConfig = errors.New("missing required configuration")

// DefaultSafetySettings defines the default content safety thresholds for the
// agent models. Product videos are trusted input, so no category is blocked.
var DefaultSafetySettings = []*genai.SafetySetting{
	{
		Category:  genai.HarmCategoryDangerousContent,
		Threshold: genai.HarmBlockThresholdBlockNone,
	},
	{
		Category:  genai.HarmCategoryHarassment,
		Threshold: genai.HarmBlockThresholdBlockNone,
	},
	{
		Category:  genai.HarmCategoryHateSpeech,
		Threshold: genai.HarmBlockThresholdBlockNone,
	},
	{
		Category:  genai.HarmCategorySexuallyExplicit,
		Threshold: genai.HarmBlockThresholdBlockNone,
	},
}

// Logical keys for the agent models in Config.AgentModels.
const (
	CoordinatorModelKey = "coordinator"
	DescriptionModelKey = "description"
	IngestionModelKey   = "ingestion"
)

// BigQuery write modes accepted by BigQueryDataSource.WriteMode.
const (
	WriteModeBlocked    = "blocked"
	WriteModeInsertOnly = "insert_only"
	WriteModeAllowed    = "allowed"
)

// Session backends accepted by Session.Backend.
const (
	SessionBackendMemory = "memory"
	SessionBackendRedis  = "redis"
)

// BigQueryDataSource represents the warehouse the ingestion agent writes to.
type BigQueryDataSource struct {
	DatasetName      string `toml:"dataset"`            // The name of the BigQuery dataset.
	AssetTable       string `toml:"asset_table"`        // The name of the table holding one row per processed asset.
	AssetTableSchema string `toml:"asset_table_schema"` // Free-form schema text handed to the ingestion agent. Derived from the table when empty.
	WriteMode        string `toml:"write_mode"`         // One of blocked, insert_only or allowed.
	MaxResultRows    int    `toml:"max_result_rows"`    // The number of rows returned to the model for a query.
}

// VertexAiLLMModel represents the configuration for a Vertex AI large language model (LLM).
type VertexAiLLMModel struct {
	Model       string  `toml:"model"`       // The name of the Vertex AI LLM.
	Temperature float32 `toml:"temperature"` // The temperature parameter for the LLM.
	TopP        float32 `toml:"top_p"`       // The top_p parameter for the LLM.
	TopK        float32 `toml:"top_k"`       // The top_k parameter for the LLM.
	MaxTokens   int32   `toml:"max_tokens"`  // The maximum number of tokens for the LLM output.
	RateLimit   int     `toml:"rate_limit"`  // The rate limit for the LLM in requests per second.
}

// Tasks holds the Cloud Tasks settings for the enqueue handler.
type Tasks struct {
	QueueID                 string `toml:"queue_id"`                  // The queue that receives one task per storage event.
	ProcessPath             string `toml:"process_path"`              // The worker route appended to the service URL.
	DispatchDeadlineSeconds int    `toml:"dispatch_deadline_seconds"` // How long the queue waits for the worker to answer.
}

// Storage represents the configuration for storage buckets.
type Storage struct {
	StagingBucket  string `toml:"staging_bucket"`  // The bucket used to stage the agent manifest for deployment.
	ArtifactBucket string `toml:"artifact_bucket"` // When set, artifacts are persisted here instead of in memory.
	ArtifactPrefix string `toml:"artifact_prefix"` // Object name prefix for persisted artifacts.
}

// Session represents the configuration for the session registry.
type Session struct {
	Backend       string `toml:"backend"`        // One of memory or redis.
	MaxSessions   int    `toml:"max_sessions"`   // The capacity of the in-memory registry.
	RedisAddr     string `toml:"redis_addr"`     // host:port of the redis server.
	RedisPassword string `toml:"redis_password"` // Optional redis password.
	RedisDB       int    `toml:"redis_db"`       // The redis logical database.
	TTLSeconds    int    `toml:"ttl_seconds"`    // Expiry for sessions persisted in redis.
}

// Trigger configures the optional Pub/Sub pull path.
type Trigger struct {
	Subscription string `toml:"subscription"` // GCS notification subscription. Empty disables the listener.
}

// Deployment configures registration of the root agent with Agent Engine.
type Deployment struct {
	DisplayName  string   `toml:"display_name"` // The reasoning engine display name.
	Description  string   `toml:"description"`  // The reasoning engine description.
	Requirements []string `toml:"requirements"` // Packages the hosted runtime must install.
}

// Config represents the overall configuration for the application. It is built
// once at startup and passed to every component that needs it.
type Config struct {
	// Application holds general application settings.
	Application struct {
		Name                string   `toml:"name"`                  // The application name used for sessions and telemetry.
		GoogleProjectId     string   `toml:"google_project_id"`     // The Google Cloud project ID.
		GoogleLocation      string   `toml:"location"`              // The Google Cloud location.
		Port                int      `toml:"port"`                  // The HTTP listen port.
		ServiceURL          string   `toml:"service_url"`           // The public base URL of this service.
		ServiceAccountEmail string   `toml:"service_account_email"` // The identity the queue uses to call the worker.
		UserID              string   `toml:"user_id"`               // The static user for the storage trigger path.
		MaxAgentRounds      int      `toml:"max_agent_rounds"`      // Upper bound on model calls per agent run.
		MaxModelCalls       int      `toml:"max_model_calls"`       // Upper bound on model calls per event across every agent.
		AllowedOrigins      []string `toml:"allowed_origins"`       // CORS origins. "*" allows all.
		VerifyOIDCToken     bool     `toml:"verify_oidc_token"`     // Require a Google ID token on the worker route.
		EnableTelemetry     bool     `toml:"enable_telemetry"`      // Export traces and metrics to Google Cloud.
		LogLevel            string   `toml:"log_level"`             // debug, info, warn or error.
	} `toml:"application"`
	Tasks              Tasks                       `toml:"tasks"`                 // Cloud Tasks configuration.
	Storage            Storage                     `toml:"storage"`               // Storage configuration.
	BigQueryDataSource BigQueryDataSource          `toml:"big_query_data_source"` // BigQuery data source configuration.
	Session            Session                     `toml:"session"`               // Session registry configuration.
	Trigger            Trigger                     `toml:"trigger"`               // Pub/Sub trigger configuration.
	Deployment         Deployment                  `toml:"deployment"`            // Agent Engine deployment configuration.
	AgentModels        map[string]VertexAiLLMModel `toml:"agent_models"`          // Agent models keyed by logical name (e.g., "coordinator").
}

// NewConfig creates a Config populated with defaults. Values loaded from files
// and the environment replace these.
//
// Outputs:
//   - *Config: A pointer to a new Config struct with defaults and initialized maps.
func NewConfig() *Config {
	c := &Config{
		AgentModels: map[string]VertexAiLLMModel{
			CoordinatorModelKey: {Model: "gemini-2.5-flash", Temperature: 0.2, TopP: 0.95, TopK: 40, MaxTokens: 8192, RateLimit: 5},
			DescriptionModelKey: {Model: "gemini-3-pro-preview", Temperature: 0.2, TopP: 0.95, TopK: 40, MaxTokens: 32768, RateLimit: 2},
			IngestionModelKey:   {Model: "gemini-2.5-pro", Temperature: 0.0, TopP: 0.95, TopK: 40, MaxTokens: 8192, RateLimit: 2},
		},
	}
	c.Application.Name = "video_analysis_agent"
	c.Application.Port = 8080
	c.Application.UserID = "gcs_trigger_user"
	c.Application.MaxAgentRounds = 20
	c.Application.MaxModelCalls = 60
	c.Application.AllowedOrigins = []string{"http://localhost", "http://localhost:8080", "*"}
	c.Application.LogLevel = "info"
	c.Tasks.ProcessPath = "/process-asset"
	c.Tasks.DispatchDeadlineSeconds = 1800
	c.BigQueryDataSource.WriteMode = WriteModeInsertOnly
	c.BigQueryDataSource.MaxResultRows = 50
	c.Session.Backend = SessionBackendMemory
	c.Session.MaxSessions = 1024
	c.Session.TTLSeconds = 3600
	c.Deployment.DisplayName = "video_analysis_agent"
	c.Deployment.Description = "Agent used to inspect and ingest digital assets"
	c.Deployment.Requirements = []string{"google-cloud-aiplatform[agent_engines,adk]", "google-cloud-storage", "google-genai"}
	return c
}

// ProcessURL is the worker target of every queued task and the OIDC audience.
func (c *Config) ProcessURL() string {
	return strings.TrimSuffix(c.Application.ServiceURL, "/") + c.Tasks.ProcessPath
}

// AssetTableFQN returns project.dataset.table for the asset table.
func (c *Config) AssetTableFQN() string {
	return fmt.Sprintf("%s.%s.%s", c.Application.GoogleProjectId, c.BigQueryDataSource.DatasetName, c.BigQueryDataSource.AssetTable)
}

// Validate checks the values the server cannot start without. Every missing
// value is reported, not just the first.
func (c *Config) Validate() error {
	required := map[string]string{
		EnvProject:             c.Application.GoogleProjectId,
		EnvLocation:            c.Application.GoogleLocation,
		EnvQueueID:             c.Tasks.QueueID,
		EnvServiceURL:          c.Application.ServiceURL,
		EnvServiceAccountEmail: c.Application.ServiceAccountEmail,
		EnvDataset:             c.BigQueryDataSource.DatasetName,
		EnvAssetTable:          c.BigQueryDataSource.AssetTable,
	}
	if err := missing(required); err != nil {
		return err
	}
	switch c.BigQueryDataSource.WriteMode {
	case WriteModeBlocked, WriteModeInsertOnly, WriteModeAllowed:
	default:
		return fmt.Errorf("unknown write mode %q", c.BigQueryDataSource.WriteMode)
	}
	switch c.Session.Backend {
	case SessionBackendMemory:
	case SessionBackendRedis:
		if c.Session.RedisAddr == "" {
			return fmt.Errorf("%w: session.redis_addr", ErrMissingConfig)
		}
	default:
		return fmt.Errorf("unknown session backend %q", c.Session.Backend)
	}
	for _, key := range []string{CoordinatorModelKey, DescriptionModelKey, IngestionModelKey} {
		if m, ok := c.AgentModels[key]; !ok || m.Model == "" {
			return fmt.Errorf("%w: agent_models.%s", ErrMissingConfig, key)
		}
	}
	return nil
}

// ValidateDeployment checks the values agent registration needs.
func (c *Config) ValidateDeployment() error {
	return missing(map[string]string{
		EnvProject:       c.Application.GoogleProjectId,
		EnvLocation:      c.Application.GoogleLocation,
		EnvStagingBucket: c.Storage.StagingBucket,
	})
}

func missing(values map[string]string) error {
	var names []string
	for name, v := range values {
		if strings.TrimSpace(v) == "" {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return nil
	}
	slices.Sort(names)
	return fmt.Errorf("%w: %s", ErrMissingConfig, strings.Join(names, ", "))
}
