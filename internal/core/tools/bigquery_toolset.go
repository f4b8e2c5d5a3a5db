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

package tools

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/jaycherian/gcp-go-asset-agent/internal/cloud"
	"github.com/jaycherian/gcp-go-asset-agent/internal/core/agent"
)

// ErrWriteNotAllowed is returned for statements the write mode does not permit.
var ErrWriteNotAllowed = errors.New("statement not allowed by write mode")

// Names of the BigQuery toolset functions.
const (
	ListDatasetIDsName = "list_dataset_ids"
	GetDatasetInfoName = "get_dataset_info"
	ListTableIDsName   = "list_table_ids"
	GetTableInfoName   = "get_table_info"
	ExecuteSQLName     = "execute_sql"
)

// QueryEngine is the warehouse the toolset talks to. services.Warehouse
// implements it with the BigQuery client.
type QueryEngine interface {
	ListDatasetIDs(ctx context.Context, projectID string) ([]string, error)
	DatasetInfo(ctx context.Context, projectID string, datasetID string) (map[string]any, error)
	ListTableIDs(ctx context.Context, projectID string, datasetID string) ([]string, error)
	TableInfo(ctx context.Context, projectID string, datasetID string, tableID string) (map[string]any, error)
	// StatementType dry-runs query and returns its type, e.g. SELECT or INSERT.
	StatementType(ctx context.Context, projectID string, query string) (string, error)
	// Query runs query and returns at most maxRows rows, reporting whether more existed.
	Query(ctx context.Context, projectID string, query string, maxRows int) (rows []map[string]any, truncated bool, err error)
}

// BigQueryToolsetConfig bounds what the toolset may do.
type BigQueryToolsetConfig struct {
	ProjectID string // Used when the model omits project_id.
	WriteMode string // One of the cloud.WriteMode constants.
	MaxRows   int
}

// BigQueryToolset exposes a QueryEngine to an agent.
type BigQueryToolset struct {
	engine QueryEngine
	config BigQueryToolsetConfig
}

func NewBigQueryToolset(engine QueryEngine, config BigQueryToolsetConfig) *BigQueryToolset {
	if config.WriteMode == "" {
		config.WriteMode = cloud.WriteModeInsertOnly
	}
	if config.MaxRows <= 0 {
		config.MaxRows = 50
	}
	return &BigQueryToolset{engine: engine, config: config}
}

// Tools returns the five toolset functions.
func (b *BigQueryToolset) Tools() []agent.Tool {
	project := agent.StringProperty("The Google Cloud project id. Defaults to the configured project.")
	dataset := agent.StringProperty("The BigQuery dataset id.")
	table := agent.StringProperty("The BigQuery table id.")

	return []agent.Tool{
		agent.NewFunctionTool(ListDatasetIDsName, "List BigQuery dataset ids in a Google Cloud project.",
			agent.ObjectSchema(map[string]*genai.Schema{"project_id": project}),
			func(ctx agent.ToolContext, args map[string]any) (map[string]any, error) {
				ids, err := b.engine.ListDatasetIDs(ctx, b.project(args))
				if err != nil {
					return nil, err
				}
				return map[string]any{"dataset_ids": ids}, nil
			}),
		agent.NewFunctionTool(GetDatasetInfoName, "Get metadata information about a BigQuery dataset.",
			agent.ObjectSchema(map[string]*genai.Schema{"project_id": project, "dataset_id": dataset}, "dataset_id"),
			func(ctx agent.ToolContext, args map[string]any) (map[string]any, error) {
				datasetID, err := agent.StringArg(args, "dataset_id")
				if err != nil {
					return nil, err
				}
				return b.engine.DatasetInfo(ctx, b.project(args), datasetID)
			}),
		agent.NewFunctionTool(ListTableIDsName, "List table ids in a BigQuery dataset.",
			agent.ObjectSchema(map[string]*genai.Schema{"project_id": project, "dataset_id": dataset}, "dataset_id"),
			func(ctx agent.ToolContext, args map[string]any) (map[string]any, error) {
				datasetID, err := agent.StringArg(args, "dataset_id")
				if err != nil {
					return nil, err
				}
				ids, err := b.engine.ListTableIDs(ctx, b.project(args), datasetID)
				if err != nil {
					return nil, err
				}
				return map[string]any{"table_ids": ids}, nil
			}),
		agent.NewFunctionTool(GetTableInfoName, "Get metadata information about a BigQuery table, including its schema.",
			agent.ObjectSchema(map[string]*genai.Schema{"project_id": project, "dataset_id": dataset, "table_id": table}, "dataset_id", "table_id"),
			func(ctx agent.ToolContext, args map[string]any) (map[string]any, error) {
				datasetID, err := agent.StringArg(args, "dataset_id")
				if err != nil {
					return nil, err
				}
				tableID, err := agent.StringArg(args, "table_id")
				if err != nil {
					return nil, err
				}
				return b.engine.TableInfo(ctx, b.project(args), datasetID, tableID)
			}),
		agent.NewFunctionTool(ExecuteSQLName, b.executeDescription(),
			agent.ObjectSchema(map[string]*genai.Schema{
				"project_id": project,
				"query":      agent.StringProperty("The BigQuery SQL statement to execute."),
			}, "query"),
			func(ctx agent.ToolContext, args map[string]any) (map[string]any, error) {
				query, err := agent.StringArg(args, "query")
				if err != nil {
					return nil, err
				}
				return b.ExecuteSQL(ctx, b.project(args), query)
			}),
	}
}

// ExecuteSQL checks the statement type against the write mode and runs query.
func (b *BigQueryToolset) ExecuteSQL(ctx context.Context, projectID string, query string) (map[string]any, error) {
	if strings.TrimSpace(query) == "" {
		return nil, errors.New("query is empty")
	}
	if b.config.WriteMode != cloud.WriteModeAllowed {
		statement, err := b.engine.StatementType(ctx, projectID, query)
		if err != nil {
			return nil, err
		}
		if !b.permits(statement) {
			return nil, fmt.Errorf("%w: %s statements are not allowed in %s mode", ErrWriteNotAllowed, statement, b.config.WriteMode)
		}
	}

	rows, truncated, err := b.engine.Query(ctx, projectID, query, b.config.MaxRows)
	if err != nil {
		return nil, err
	}
	result := map[string]any{"status": "SUCCESS", "rows": rows}
	if truncated {
		result["result_is_likely_truncated"] = true
	}
	return result, nil
}

func (b *BigQueryToolset) permits(statement string) bool {
	switch strings.ToUpper(statement) {
	case "SELECT":
		return true
	case "INSERT":
		return b.config.WriteMode == cloud.WriteModeInsertOnly
	default:
		return false
	}
}

func (b *BigQueryToolset) project(args map[string]any) string {
	if p, ok := args["project_id"].(string); ok && p != "" {
		return p
	}
	return b.config.ProjectID
}

func (b *BigQueryToolset) executeDescription() string {
	base := "Run a BigQuery GoogleSQL statement in the project and return the result rows."
	switch b.config.WriteMode {
	case cloud.WriteModeBlocked:
		return base + " Only SELECT statements are allowed."
	case cloud.WriteModeInsertOnly:
		return base + " Only SELECT and INSERT statements are allowed."
	default:
		return base
	}
}
