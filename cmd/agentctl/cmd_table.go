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

	"cloud.google.com/go/bigquery"
	"github.com/spf13/cobra"

	"github.com/jaycherian/gcp-go-asset-agent/internal/core/services"
)

func init() {
	rootCmd.AddCommand(initTableCmd)
}

var initTableCmd = &cobra.Command{
	Use:   "init-table",
	Short: "Create the asset table if it does not exist",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		config, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		client, err := bigquery.NewClient(ctx, config.Application.GoogleProjectId)
		if err != nil {
			return fmt.Errorf("failed to create bigquery client: %w", err)
		}
		defer client.Close()

		warehouse := &services.Warehouse{
			BigqueryClient: client,
			ProjectID:      config.Application.GoogleProjectId,
			DatasetName:    config.BigQueryDataSource.DatasetName,
			AssetTable:     config.BigQueryDataSource.AssetTable,
		}
		created, err := warehouse.EnsureAssetTable(ctx)
		if err != nil {
			return err
		}
		if created {
			fmt.Fprintf(cmd.OutOrStdout(), "Created %s\n", warehouse.GetFQN())
		} else {
			fmt.Fprintf(cmd.OutOrStdout(), "%s already exists\n", warehouse.GetFQN())
		}
		return nil
	},
}
