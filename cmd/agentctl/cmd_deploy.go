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
	"fmt"

	"cloud.google.com/go/storage"
	"github.com/spf13/cobra"

	"github.com/jaycherian/gcp-go-asset-agent/internal/cloud"
	"github.com/jaycherian/gcp-go-asset-agent/internal/core/deploy"
	"github.com/jaycherian/gcp-go-asset-agent/internal/core/workflow"
)

func init() {
	rootCmd.AddCommand(deployCmd, describeCmd)
}

// manifest builds the agent tree with name only models.
func manifest(config *cloud.Config) (*deploy.Manifest, error) {
	tree, err := workflow.NewAgentTree(workflow.AgentDependencies{
		Config: config,
		Models: deploy.DeclaredModels(config),
	})
	if err != nil {
		return nil, err
	}
	return deploy.BuildManifest(config, tree.Root), nil
}

var describeCmd = &cobra.Command{
	Use:   "describe",
	Short: "Print the agent manifest",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		config, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		m, err := manifest(config)
		if err != nil {
			return err
		}
		raw, err := m.JSON()
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(raw))
		return nil
	},
}

var deployCmd = &cobra.Command{
	Use:   "deploy",
	Short: "Register the root agent with Vertex AI Agent Engine",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		config, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if err := config.ValidateDeployment(); err != nil {
			return err
		}
		m, err := manifest(config)
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		storageClient, err := storage.NewClient(ctx)
		if err != nil {
			return fmt.Errorf("failed to create storage client: %w", err)
		}
		defer storageClient.Close()
		engines, err := deploy.NewReasoningEngines(ctx, config.Application.GoogleLocation)
		if err != nil {
			return err
		}
		defer engines.Close()

		stager := &deploy.GCSStager{Client: storageClient, Bucket: config.Storage.StagingBucket}
		engine, err := deploy.NewRegistrar(config, stager, engines).Deploy(ctx, m)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Registered %s as %s\n", engine.GetDisplayName(), engine.GetName())
		return nil
	},
}
