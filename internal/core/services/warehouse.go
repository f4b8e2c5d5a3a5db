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

// Package services contains the business logic for interacting with data sources.
// This file, `warehouse.go`, defines the Warehouse, the BigQuery access layer
// behind the ingestion agent's toolset. It also creates the asset table and
// reads ingested assets back for the API.
package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"

	"github.com/jaycherian/gcp-go-asset-agent/internal/core/model"
)

// ErrAssetNotFound is returned by GetAsset when no row has the id.
var ErrAssetNotFound = errors.New("asset not found")

// Warehouse wraps the BigQuery client for one asset table. It implements
// tools.QueryEngine.
type Warehouse struct {
	BigqueryClient *bigquery.Client // Client for interacting with Google BigQuery.
	ProjectID      string           // Project holding the dataset.
	DatasetName    string           // The name of the BigQuery dataset.
	AssetTable     string           // The name of the table with one row per asset.
}

// GetFQN returns the asset table name as project.dataset.table.
func (w *Warehouse) GetFQN() string {
	return fmt.Sprintf("%s.%s.%s", w.ProjectID, w.DatasetName, w.AssetTable)
}

// AssetSchema is the schema inferred from model.AssetRow.
func AssetSchema() (bigquery.Schema, error) {
	return bigquery.InferSchema(model.AssetRow{})
}

// FormatSchema renders a schema as "name TYPE, ..." for instruction text.
func FormatSchema(schema bigquery.Schema) string {
	fields := make([]string, 0, len(schema))
	for _, f := range schema {
		mode := ""
		if f.Required {
			mode = " REQUIRED"
		}
		if f.Repeated {
			mode = " REPEATED"
		}
		fields = append(fields, fmt.Sprintf("%s %s%s", f.Name, f.Type, mode))
	}
	return strings.Join(fields, ", ")
}

// EnsureAssetTable creates the asset table when it does not exist. It reports
// whether the table was created.
func (w *Warehouse) EnsureAssetTable(ctx context.Context) (bool, error) {
	table := w.BigqueryClient.DatasetInProject(w.ProjectID, w.DatasetName).Table(w.AssetTable)
	if _, err := table.Metadata(ctx); err == nil {
		return false, nil
	} else if !isNotFound(err) {
		return false, fmt.Errorf("failed to read table %s: %w", w.GetFQN(), err)
	}

	schema, err := AssetSchema()
	if err != nil {
		return false, err
	}
	err = table.Create(ctx, &bigquery.TableMetadata{
		Name:        w.AssetTable,
		Description: "One row per processed digital asset.",
		Schema:      schema,
	})
	if err != nil {
		return false, fmt.Errorf("failed to create table %s: %w", w.GetFQN(), err)
	}
	return true, nil
}

// DescribeAssetTable returns the live schema of the asset table as text.
func (w *Warehouse) DescribeAssetTable(ctx context.Context) (string, error) {
	meta, err := w.BigqueryClient.DatasetInProject(w.ProjectID, w.DatasetName).Table(w.AssetTable).Metadata(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to read table %s: %w", w.GetFQN(), err)
	}
	return FormatSchema(meta.Schema), nil
}

// GetAsset reads the row with asset id id.
func (w *Warehouse) GetAsset(ctx context.Context, id string) (*model.AssetRow, error) {
	q := w.BigqueryClient.Query(fmt.Sprintf(QryFindAssetByID, w.GetFQN()))
	q.Parameters = []bigquery.QueryParameter{{Name: "asset_id", Value: id}}
	itr, err := q.Read(ctx)
	if err != nil {
		return nil, err
	}
	row := &model.AssetRow{}
	err = itr.Next(row)
	if errors.Is(err, iterator.Done) {
		return nil, fmt.Errorf("%w: %s", ErrAssetNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return row, nil
}

func (w *Warehouse) ListDatasetIDs(ctx context.Context, projectID string) ([]string, error) {
	itr := w.BigqueryClient.Datasets(ctx)
	itr.ProjectID = projectID
	out := make([]string, 0)
	for {
		ds, err := itr.Next()
		if errors.Is(err, iterator.Done) {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		out = append(out, ds.DatasetID)
	}
}

func (w *Warehouse) DatasetInfo(ctx context.Context, projectID string, datasetID string) (map[string]any, error) {
	md, err := w.BigqueryClient.DatasetInProject(projectID, datasetID).Metadata(ctx)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"dataset_id":    datasetID,
		"project_id":    projectID,
		"name":          md.Name,
		"description":   md.Description,
		"location":      md.Location,
		"labels":        md.Labels,
		"creation_time": md.CreationTime.String(),
	}, nil
}

func (w *Warehouse) ListTableIDs(ctx context.Context, projectID string, datasetID string) ([]string, error) {
	itr := w.BigqueryClient.DatasetInProject(projectID, datasetID).Tables(ctx)
	out := make([]string, 0)
	for {
		t, err := itr.Next()
		if errors.Is(err, iterator.Done) {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		out = append(out, t.TableID)
	}
}

func (w *Warehouse) TableInfo(ctx context.Context, projectID string, datasetID string, tableID string) (map[string]any, error) {
	md, err := w.BigqueryClient.DatasetInProject(projectID, datasetID).Table(tableID).Metadata(ctx)
	if err != nil {
		return nil, err
	}
	fields := make([]map[string]any, 0, len(md.Schema))
	for _, f := range md.Schema {
		mode := "NULLABLE"
		switch {
		case f.Repeated:
			mode = "REPEATED"
		case f.Required:
			mode = "REQUIRED"
		}
		fields = append(fields, map[string]any{"name": f.Name, "type": string(f.Type), "mode": mode, "description": f.Description})
	}
	return map[string]any{
		"table_id":    tableID,
		"dataset_id":  datasetID,
		"project_id":  projectID,
		"type":        string(md.Type),
		"description": md.Description,
		"num_rows":    md.NumRows,
		"schema":      fields,
	}, nil
}

// StatementType dry-runs query and returns BigQuery's statement type.
func (w *Warehouse) StatementType(ctx context.Context, projectID string, query string) (string, error) {
	q := w.BigqueryClient.Query(query)
	q.DefaultProjectID = projectID
	q.DryRun = true
	job, err := q.Run(ctx)
	if err != nil {
		return "", err
	}
	status := job.LastStatus()
	if status == nil || status.Statistics == nil {
		return "", errors.New("dry run returned no statistics")
	}
	stats, ok := status.Statistics.Details.(*bigquery.QueryStatistics)
	if !ok {
		return "", errors.New("dry run returned no query statistics")
	}
	return stats.StatementType, nil
}

// Query runs query and reads at most maxRows rows.
func (w *Warehouse) Query(ctx context.Context, projectID string, query string, maxRows int) ([]map[string]any, bool, error) {
	q := w.BigqueryClient.Query(query)
	q.DefaultProjectID = projectID
	itr, err := q.Read(ctx)
	if err != nil {
		return nil, false, err
	}
	rows := make([]map[string]any, 0)
	for {
		var row map[string]bigquery.Value
		err := itr.Next(&row)
		if errors.Is(err, iterator.Done) {
			return rows, false, nil
		}
		if err != nil {
			return nil, false, err
		}
		if len(rows) == maxRows {
			return rows, true, nil
		}
		out := make(map[string]any, len(row))
		for k, v := range row {
			out[k] = v
		}
		rows = append(rows, out)
	}
}

func isNotFound(err error) bool {
	var apiErr *googleapi.Error
	return errors.As(err, &apiErr) && apiErr.Code == http.StatusNotFound
}
