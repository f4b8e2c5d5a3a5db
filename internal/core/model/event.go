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

// Package model defines the core data structures that flow through the asset
// pipeline: the storage event that starts a run, the description produced by
// the description agent, and the warehouse row written by the ingestion agent.
package model

import (
	"encoding/json"
	"fmt"
	"strings"
)

// GCSScheme is the URI scheme for Google Cloud Storage objects.
const GCSScheme = "gs://"

// StorageEvent is the minimal shape of an object-finalized notification. It is
// the request body of both HTTP endpoints and the body of every queued task.
// Any additional fields present in the inbound payload are ignored.
type StorageEvent struct {
	Bucket string `json:"bucket" binding:"required"` // The bucket that received the upload.
	Name   string `json:"name" binding:"required"`   // The object name, possibly containing "/" separators.
}

// URI returns the object location in the form gs://<bucket>/<name>.
func (e *StorageEvent) URI() string {
	return fmt.Sprintf("%s%s/%s", GCSScheme, e.Bucket, e.Name)
}

// FileName returns the last path segment of the object name.
func (e *StorageEvent) FileName() string {
	if i := strings.LastIndex(e.Name, "/"); i >= 0 {
		return e.Name[i+1:]
	}
	return e.Name
}

// JSON serializes the event exactly as it is forwarded to the queue and to the
// coordinator agent.
func (e *StorageEvent) JSON() ([]byte, error) {
	return json.Marshal(e)
}

// ParseStorageEvent decodes a storage event and checks that both fields are set.
func ParseStorageEvent(data []byte) (*StorageEvent, error) {
	out := &StorageEvent{}
	if err := json.Unmarshal(data, out); err != nil {
		return nil, fmt.Errorf("failed to decode storage event: %w", err)
	}
	if out.Bucket == "" || out.Name == "" {
		return nil, fmt.Errorf("storage event requires bucket and name, got bucket=%q name=%q", out.Bucket, out.Name)
	}
	return out, nil
}
