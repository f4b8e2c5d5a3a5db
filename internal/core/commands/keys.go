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

// Package commands provides the concrete Command implementations the asset
// workflows are built from.
package commands

// Context keys shared between commands.
const (
	// StorageEventKey holds the *model.StorageEvent being processed.
	StorageEventKey = "__STORAGE_EVENT__"
	// SessionIDKey holds the id of the agent session created for the event.
	SessionIDKey = "__SESSION_ID__"
	// FinalResponseKey holds the coordinator's final text.
	FinalResponseKey = "__FINAL_RESPONSE__"
	// TaskNameKey holds the name of the queued task.
	TaskNameKey = "__TASK_NAME__"
)
