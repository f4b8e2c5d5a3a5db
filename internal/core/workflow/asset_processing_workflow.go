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
	"github.com/jaycherian/gcp-go-asset-agent/internal/core/agent"
	"github.com/jaycherian/gcp-go-asset-agent/internal/core/commands"
	"github.com/jaycherian/gcp-go-asset-agent/internal/core/cor"
	"github.com/jaycherian/gcp-go-asset-agent/internal/core/session"
)

// AssetProcessingWorkflow is the worker side of the pipeline. Given a
// *model.StorageEvent in CtxIn it opens a fresh session, hands the serialized
// event to the coordinator and leaves the coordinator's final text in CtxOut
// and commands.FinalResponseKey. Closing the context deletes the session and
// its session scoped artifacts.
type AssetProcessingWorkflow struct {
	cor.BaseCommand
	sessions session.Service
	runner   *agent.Runner
	userID   string
	chain    cor.Chain
}

// Execute runs the chain against context.
func (w *AssetProcessingWorkflow) Execute(context cor.Context) {
	w.chain.Execute(context)
}

func (w *AssetProcessingWorkflow) initializeChain() {
	out := cor.NewBaseChain(w.GetName())
	// Step 1: One session per event. Concurrent events never share one.
	out.AddCommand(commands.NewSessionCreator("session-creator", w.sessions, w.runner.Artifacts(), w.runner.AppName(), w.userID))
	// Step 2: Run the coordinator until its first final response.
	out.AddCommand(commands.NewCoordinatorRunner("coordinator-runner", w.runner, w.userID))
	w.chain = out
}

// NewAssetProcessingWorkflow builds the worker chain.
//
// Inputs:
//   - sessions: The registry the runner reads sessions from.
//   - runner: A runner over the coordinator agent.
//   - userID: The static user the storage trigger path runs as.
//
// Outputs:
//   - *AssetProcessingWorkflow: The workflow.
func NewAssetProcessingWorkflow(sessions session.Service, runner *agent.Runner, userID string) *AssetProcessingWorkflow {
	w := &AssetProcessingWorkflow{
		BaseCommand: *cor.NewBaseCommand("asset-processing-workflow"),
		sessions:    sessions,
		runner:      runner,
		userID:      userID,
	}
	w.initializeChain()
	return w
}
