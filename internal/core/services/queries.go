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
// This file, `queries.go`, centralizes the BigQuery SQL used by the warehouse.
// The queries use `fmt.Sprintf` verbs for table names and named query
// parameters (@name) for values.
package services

const (
	// QryFindAssetByID reads back one ingested asset.
	//
	// Placeholders:
	// - `%s`: The fully qualified name of the asset table.
	//
	// Parameters:
	// - `@asset_id`: The file name the ingestion agent used as the asset id.
	QryFindAssetByID = "SELECT asset_id, gcs_uri, description FROM `%s` WHERE asset_id = @asset_id LIMIT 1"
)
