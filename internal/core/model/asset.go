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

package model

// AssetRow is the logical record the ingestion agent appends to the asset
// table. The agent writes it with SQL it builds itself, so the struct is used
// mostly for table bootstrap and read-back.
type AssetRow struct {
	AssetID     string `json:"asset_id" bigquery:"asset_id"`       // The file name of the asset.
	GCSURI      string `json:"gcs_uri" bigquery:"gcs_uri"`         // The full gs:// location of the asset.
	Description string `json:"description" bigquery:"description"` // The timestamped description, verbatim.
}
