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
	"fmt"
	"io"
	"net/http"
	"time"

	credentials "cloud.google.com/go/iam/credentials/apiv1"
	"github.com/spf13/cobra"

	"github.com/jaycherian/gcp-go-asset-agent/internal/cloud"
	"github.com/jaycherian/gcp-go-asset-agent/internal/core/model"
)

func init() {
	rootCmd.AddCommand(replayCmd)

	replayCmd.Flags().String("bucket", "", "bucket of the uploaded object (required)")
	replayCmd.Flags().String("name", "", "name of the uploaded object (required)")
	replayCmd.Flags().String("url", "", "worker URL, defaults to the configured process URL")
	replayCmd.Flags().Bool("no-auth", false, "send the request without an ID token")
	replayCmd.Flags().Duration("timeout", 30*time.Minute, "how long to wait for the worker")
	_ = replayCmd.MarkFlagRequired("bucket")
	_ = replayCmd.MarkFlagRequired("name")
}

// replay POSTs event to url the way the task queue does. token may be empty.
func replay(ctx context.Context, client *http.Client, url string, token string, event *model.StorageEvent) (int, string, error) {
	body, err := event.JSON()
	if err != nil {
		return 0, "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return 0, "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := client.Do(req)
	if err != nil {
		return 0, "", err
	}
	defer resp.Body.Close()
	out, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, "", err
	}
	return resp.StatusCode, string(out), nil
}

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Send a storage event to the worker route",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		config, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		bucket, _ := cmd.Flags().GetString("bucket")
		name, _ := cmd.Flags().GetString("name")
		url, _ := cmd.Flags().GetString("url")
		noAuth, _ := cmd.Flags().GetBool("no-auth")
		timeout, _ := cmd.Flags().GetDuration("timeout")
		if url == "" {
			url = config.ProcessURL()
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
		defer cancel()

		var token string
		if !noAuth {
			iam, err := credentials.NewIamCredentialsClient(ctx)
			if err != nil {
				return fmt.Errorf("failed to create iam credentials client: %w", err)
			}
			defer iam.Close()
			minter := &cloud.IDTokenMinter{Client: iam}
			if token, err = minter.Mint(ctx, config.Application.ServiceAccountEmail, config.ProcessURL()); err != nil {
				return err
			}
		}

		status, body, err := replay(ctx, http.DefaultClient, url, token, &model.StorageEvent{Bucket: bucket, Name: name})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d %s\n", status, body)
		if status >= http.StatusBadRequest {
			return fmt.Errorf("worker answered %d", status)
		}
		return nil
	},
}
