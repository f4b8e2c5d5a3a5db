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

// Package services_test contains the test suite for the services package.
package services_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"

	"cloud.google.com/go/bigquery"
	"github.com/google/uuid"
	"github.com/zeebo/assert"

	"github.com/jaycherian/gcp-go-asset-agent/internal/core/model"
	"github.com/jaycherian/gcp-go-asset-agent/internal/core/services"
)

func TestAssetSchema(t *testing.T) {
	schema, err := services.AssetSchema()
	assert.Nil(t, err)
	assert.Equal(t, len(schema), 3)
	assert.Equal(t, schema[0].Name, "asset_id")
	assert.Equal(t, schema[1].Name, "gcs_uri")
	assert.Equal(t, schema[2].Name, "description")
	for _, f := range schema {
		assert.Equal(t, f.Type, bigquery.StringFieldType)
	}
}

func TestFormatSchema(t *testing.T) {
	schema := bigquery.Schema{
		{Name: "asset_id", Type: bigquery.StringFieldType, Required: true},
		{Name: "tags", Type: bigquery.StringFieldType, Repeated: true},
		{Name: "description", Type: bigquery.StringFieldType},
	}
	assert.Equal(t, services.FormatSchema(schema), "asset_id STRING REQUIRED, tags STRING REPEATED, description STRING")
}

func TestGetFQN(t *testing.T) {
	w := &services.Warehouse{ProjectID: "p", DatasetName: "media", AssetTable: "assets"}
	assert.Equal(t, w.GetFQN(), "p.media.assets")
}

// TestWarehouseRoundTrip runs against a live dataset named by BIGQUERY_DATASET.
func TestWarehouseRoundTrip(t *testing.T) {
	if os.Getenv("GCP_INTEGRATION") != "1" {
		t.Skip("set GCP_INTEGRATION=1 to run against BigQuery")
	}
	ctx := context.Background()
	project := os.Getenv("GOOGLE_CLOUD_PROJECT")
	client, err := bigquery.NewClient(ctx, project)
	assert.Nil(t, err)
	defer func() { _ = client.Close() }()

	w := &services.Warehouse{BigqueryClient: client, ProjectID: project, DatasetName: os.Getenv("BIGQUERY_DATASET"), AssetTable: "assets_it"}
	_, err = w.EnsureAssetTable(ctx)
	assert.Nil(t, err)

	statement, err := w.StatementType(ctx, project, "SELECT 1")
	assert.Nil(t, err)
	assert.Equal(t, statement, "SELECT")

	_, err = w.GetAsset(ctx, "does-not-exist.mp4")
	if !errors.Is(err, services.ErrAssetNotFound) {
		t.Errorf("expected ErrAssetNotFound, got %v", err)
	}

	id := uuid.NewString() + ".mp4"
	row := &model.AssetRow{AssetID: id, GCSURI: "gs://it-bucket/" + id, Description: "[00:00 - 00:05] A test card is shown."}
	insert := fmt.Sprintf("INSERT INTO `%s` (asset_id, gcs_uri, description) VALUES ('%s', '%s', '%s')", w.GetFQN(), row.AssetID, row.GCSURI, row.Description)
	_, _, err = w.Query(ctx, project, insert, 1)
	assert.Nil(t, err)
	got, err := w.GetAsset(ctx, id)
	assert.Nil(t, err)
	assert.Equal(t, got.Description, row.Description)
	assert.Equal(t, got.GCSURI, row.GCSURI)
}
