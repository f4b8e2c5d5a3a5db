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

package commands

import (
	"context"
	"fmt"

	"github.com/jaycherian/gcp-go-asset-agent/internal/core/cor"
	"github.com/jaycherian/gcp-go-asset-agent/internal/core/model"
)

// Enqueuer defers the processing of a storage event. *cloud.TaskEnqueuer implements it.
type Enqueuer interface {
	Enqueue(ctx context.Context, event *model.StorageEvent) (string, error)
}

// TaskEnqueue creates one queue task per storage event. The task name is the output.
type TaskEnqueue struct {
	cor.BaseCommand
	enqueuer Enqueuer
}

// NewTaskEnqueue creates the command that defers a storage event to the task queue.
//
// Inputs:
//   - name: the command name, also used for its metrics.
//   - enqueuer: creates the queue task.
//
// Outputs:
//   - *TaskEnqueue: the command.
func NewTaskEnqueue(name string, enqueuer Enqueuer) *TaskEnqueue {
	return &TaskEnqueue{BaseCommand: *cor.NewBaseCommand(name), enqueuer: enqueuer}
}

// Execute enqueues the *model.StorageEvent input and stores the task name
// under TaskNameKey and the output param.
func (c *TaskEnqueue) Execute(context cor.Context) {
	event, ok := context.Get(c.GetInputParam()).(*model.StorageEvent)
	if !ok {
		c.Fail(context, fmt.Errorf("expected *model.StorageEvent input, got %T", context.Get(c.GetInputParam())))
		return
	}
	taskName, err := c.enqueuer.Enqueue(context.GetContext(), event)
	if err != nil {
		c.Fail(context, fmt.Errorf("Failed to create task: %w", err))
		return
	}
	c.Succeed(context)
	context.Add(TaskNameKey, taskName)
	context.Add(c.GetOutputParam(), taskName)
}
