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

// Package main is agentctl, the operator CLI of the asset agent.
//
// Commands:
//   - deploy: Stage the agent manifest and register it with Agent Engine.
//   - describe: Print the agent manifest.
//   - init-table: Create the asset table when it does not exist.
//   - replay: Send a storage event to the worker route as the task queue would.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jaycherian/gcp-go-asset-agent/internal/cloud"
	"github.com/jaycherian/gcp-go-asset-agent/internal/telemetry"
)

var rootCmd = &cobra.Command{
	Use:           "agentctl",
	Short:         "Operate the video analysis agent",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().String("config-dir", "configs", "directory holding .env.toml files")
	rootCmd.PersistentFlags().String("runtime", "local", "runtime selecting .env.<runtime>.toml")
	rootCmd.PersistentFlags().String("log-level", "info", "debug, info, warn or error")
}

// loadConfig reads the layered TOML files and the environment.
func loadConfig(cmd *cobra.Command) (*cloud.Config, error) {
	dir, _ := cmd.Flags().GetString("config-dir")
	runtime, _ := cmd.Flags().GetString("runtime")
	level, _ := cmd.Flags().GetString("log-level")
	telemetry.SetupLogging(level)

	if _, ok := os.LookupEnv(cloud.EnvConfigFilePrefix); !ok {
		if err := os.Setenv(cloud.EnvConfigFilePrefix, dir); err != nil {
			return nil, err
		}
	}
	if _, ok := os.LookupEnv(cloud.EnvConfigRuntime); !ok {
		if err := os.Setenv(cloud.EnvConfigRuntime, runtime); err != nil {
			return nil, err
		}
	}
	config := cloud.NewConfig()
	if err := cloud.LoadConfig(config); err != nil {
		return nil, err
	}
	return config, nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
