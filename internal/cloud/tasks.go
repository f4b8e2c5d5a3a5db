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

package cloud

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"cloud.google.com/go/cloudtasks/apiv2/cloudtaskspb"
	"github.com/googleapis/gax-go/v2"
	"google.golang.org/protobuf/types/known/durationpb"

	"github.com/jaycherian/gcp-go-asset-agent/internal/core/model"
)

// TaskCreator is the subset of the Cloud Tasks client used to enqueue work.
type TaskCreator interface {
	CreateTask(ctx context.Context, req *cloudtaskspb.CreateTaskRequest, opts ...gax.CallOption) (*cloudtaskspb.Task, error)
}

// TaskEnqueuer turns storage events into HTTP tasks that call the worker route.
type TaskEnqueuer struct {
	client              TaskCreator
	queuePath           string
	targetURL           string
	serviceAccountEmail string
	dispatchDeadline    time.Duration
}

// NewTaskEnqueuer builds an enqueuer for the queue named in config.
//
// Inputs:
//   - client: Usually a *cloudtasks.Client.
//   - config: The application config. Project, location, queue, service URL
//     and service account email must be set.
//
// Outputs:
//   - *TaskEnqueuer: The enqueuer.
func NewTaskEnqueuer(client TaskCreator, config *Config) *TaskEnqueuer {
	return &TaskEnqueuer{
		client:              client,
		queuePath:           fmt.Sprintf("projects/%s/locations/%s/queues/%s", config.Application.GoogleProjectId, config.Application.GoogleLocation, config.Tasks.QueueID),
		targetURL:           config.ProcessURL(),
		serviceAccountEmail: config.Application.ServiceAccountEmail,
		dispatchDeadline:    time.Duration(config.Tasks.DispatchDeadlineSeconds) * time.Second,
	}
}

// BuildTaskRequest creates the task descriptor for event: a POST of the
// serialized event to the worker, authenticated with an OIDC token whose
// audience is the worker URL.
func (e *TaskEnqueuer) BuildTaskRequest(event *model.StorageEvent) (*cloudtaskspb.CreateTaskRequest, error) {
	body, err := event.JSON()
	if err != nil {
		return nil, err
	}
	return &cloudtaskspb.CreateTaskRequest{
		Parent: e.queuePath,
		Task: &cloudtaskspb.Task{
			MessageType: &cloudtaskspb.Task_HttpRequest{
				HttpRequest: &cloudtaskspb.HttpRequest{
					HttpMethod: cloudtaskspb.HttpMethod_POST,
					Url:        e.targetURL,
					Headers:    map[string]string{"Content-type": "application/json"},
					Body:       body,
					AuthorizationHeader: &cloudtaskspb.HttpRequest_OidcToken{
						OidcToken: &cloudtaskspb.OidcToken{
							ServiceAccountEmail: e.serviceAccountEmail,
							Audience:            e.targetURL,
						},
					},
				},
			},
			DispatchDeadline: durationpb.New(e.dispatchDeadline),
		},
	}, nil
}

// Enqueue creates one task for event and returns the task name assigned by
// the queue.
func (e *TaskEnqueuer) Enqueue(ctx context.Context, event *model.StorageEvent) (string, error) {
	req, err := e.BuildTaskRequest(event)
	if err != nil {
		return "", err
	}
	task, err := e.client.CreateTask(ctx, req)
	if err != nil {
		return "", err
	}
	slog.InfoContext(ctx, "Successfully created task for event", "name", event.Name, "task", task.GetName())
	return task.GetName(), nil
}
