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

package workflow

import (
	"github.com/jaycherian/gcp-go-asset-agent/internal/core/commands"
	"github.com/jaycherian/gcp-go-asset-agent/internal/core/cor"
)

// AssetTriggerWorkflow turns a storage event into a queued task. It serves
// both the /gcs-trigger route, which places a parsed *model.StorageEvent in
// CtxIn, and the Pub/Sub listener, which places the raw notification body.
type AssetTriggerWorkflow struct {
	cor.BaseCommand
	enqueuer commands.Enqueuer
	chain    cor.Chain
}

func (w *AssetTriggerWorkflow) Execute(context cor.Context) {
	w.chain.Execute(context)
}

func (w *AssetTriggerWorkflow) initializeChain() {
	out := cor.NewBaseChain(w.GetName())
	// Step 1: Accept a parsed event or a GCS notification body.
	out.AddCommand(commands.NewStorageEventReader("storage-event-reader"))
	// Step 2: Create one Cloud Tasks task that calls the worker route.
	out.AddCommand(commands.NewTaskEnqueue("task-enqueue", w.enqueuer))
	w.chain = out
}

// NewAssetTriggerWorkflow builds the enqueue chain.
//
// Inputs:
//   - enqueuer: Usually a *cloud.TaskEnqueuer.
//
// Outputs:
//   - *AssetTriggerWorkflow: The workflow. The task name is its output.
func NewAssetTriggerWorkflow(enqueuer commands.Enqueuer) *AssetTriggerWorkflow {
	w := &AssetTriggerWorkflow{
		BaseCommand: *cor.NewBaseCommand("asset-trigger-workflow"),
		enqueuer:    enqueuer,
	}
	w.initializeChain()
	return w
}
