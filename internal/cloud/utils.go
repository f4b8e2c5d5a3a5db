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

// Package cloud provides utility functions for loading configuration.
//
// Logic Flow:
//  1. `LoadConfig` reads the base TOML file (e.g., `configs/.env.toml`) into the config.
//  2. The runtime specific file (e.g., `configs/.env.local.toml`) overrides it.
//  3. An optional dotenv file is loaded into the process environment without
//     replacing variables that are already set.
//  4. `ApplyEnvironment` copies the well known environment variables over the
//     file values, so a deployed container can be configured with env alone.
package cloud

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

const (
	ConfigFileBaseName  = ".env"              // The base name for configuration files (e.g., ".env.toml").
	ConfigFileExtension = ".toml"             // The file extension for configuration files.
	ConfigSeparator     = "."                 // The separator used in config file names (e.g., ".env.local.toml").
	EnvConfigFilePrefix = "GCP_CONFIG_PREFIX" // The environment variable for specifying the config directory.
	EnvConfigRuntime    = "GCP_RUNTIME"       // The environment variable for specifying the runtime context (e.g., "local", "test", "prod").
	EnvDotEnvFile       = "GCP_DOTENV_FILE"   // Optional path of a dotenv file. Defaults to ".env".
)

// Environment variables that override file configuration.
const (
	EnvProject             = "GOOGLE_CLOUD_PROJECT"
	EnvLocation            = "GOOGLE_CLOUD_LOCATION"
	EnvQueueID             = "GOOGLE_CLOUD_TASK_QUEUE_ID"
	EnvServiceURL          = "GOOGLE_CLOUD_RUN_URL"
	EnvServiceAccountEmail = "GOOGLE_CLOUD_SERVICE_ACCOUNT_EMAIL"
	EnvDataset             = "BIGQUERY_DATASET"
	EnvAssetTable          = "BIGQUERY_ASSET_TABLE"
	EnvAssetTableSchema    = "ASSET_TABLE_SCHEMA"
	EnvStagingBucket       = "STAGING_BUCKET"
	EnvPort                = "PORT"
)

// fileExists is a helper function to check if a file exists at the given path.
func fileExists(in string) bool {
	_, err := os.Stat(in)
	return !errors.Is(err, os.ErrNotExist)
}

// LoadConfig populates config from the layered TOML files, the dotenv file and
// the process environment, in that order of increasing precedence.
//
// Inputs:
//   - config: A config created with NewConfig. Its defaults survive unless overridden.
//
// Outputs:
//   - error: A decode failure of any present file, or a malformed numeric env value.
func LoadConfig(config *Config) error {
	configurationFilePrefix := os.Getenv(EnvConfigFilePrefix)
	if len(configurationFilePrefix) > 0 && !strings.HasSuffix(configurationFilePrefix, string(os.PathSeparator)) {
		configurationFilePrefix = configurationFilePrefix + string(os.PathSeparator)
	}

	runtimeEnvironment := os.Getenv(EnvConfigRuntime)
	if runtimeEnvironment == "" {
		runtimeEnvironment = "test"
	}

	baseConfigFileName := configurationFilePrefix + ConfigFileBaseName + ConfigFileExtension
	envConfigFileName := configurationFilePrefix + ConfigFileBaseName + ConfigSeparator + runtimeEnvironment + ConfigFileExtension

	for _, fileName := range []string{baseConfigFileName, envConfigFileName} {
		if !fileExists(fileName) {
			continue
		}
		if _, err := toml.DecodeFile(fileName, config); err != nil {
			return fmt.Errorf("failed to decode configuration file %s: %w", fileName, err)
		}
		slog.Debug("loaded configuration file", "file", fileName)
	}

	dotEnv := os.Getenv(EnvDotEnvFile)
	if dotEnv == "" {
		dotEnv = ".env"
	}
	if fileExists(dotEnv) {
		// godotenv.Load never overwrites variables already present in the environment.
		if err := godotenv.Load(dotEnv); err != nil {
			return fmt.Errorf("failed to load dotenv file %s: %w", dotEnv, err)
		}
	}

	return ApplyEnvironment(config, os.LookupEnv)
}

// ApplyEnvironment overlays the well known environment variables onto config.
// lookup is usually os.LookupEnv; tests pass a map backed function.
func ApplyEnvironment(config *Config, lookup func(string) (string, bool)) error {
	strs := map[string]*string{
		EnvProject:             &config.Application.GoogleProjectId,
		EnvLocation:            &config.Application.GoogleLocation,
		EnvQueueID:             &config.Tasks.QueueID,
		EnvServiceURL:          &config.Application.ServiceURL,
		EnvServiceAccountEmail: &config.Application.ServiceAccountEmail,
		EnvDataset:             &config.BigQueryDataSource.DatasetName,
		EnvAssetTable:          &config.BigQueryDataSource.AssetTable,
		EnvAssetTableSchema:    &config.BigQueryDataSource.AssetTableSchema,
		EnvStagingBucket:       &config.Storage.StagingBucket,
	}
	for name, target := range strs {
		if v, ok := lookup(name); ok && v != "" {
			*target = v
		}
	}
	if v, ok := lookup(EnvPort); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", EnvPort, v, err)
		}
		config.Application.Port = port
	}
	return nil
}
