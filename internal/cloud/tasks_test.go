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

package cloud_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"cloud.google.com/go/cloudtasks/apiv2/cloudtaskspb"
	"github.com/googleapis/gax-go/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jaycherian/gcp-go-asset-agent/internal/cloud"
	"github.com/jaycherian/gcp-go-asset-agent/internal/core/model"
)

type fakeTaskCreator struct {
	requests []*cloudtaskspb.CreateTaskRequest
	err      error
}

func (f *fakeTaskCreator) CreateTask(_ context.Context, req *cloudtaskspb.CreateTaskRequest, _ ...gax.CallOption) (*cloudtaskspb.Task, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	return &cloudtaskspb.Task{Name: req.GetParent() + "/tasks/1"}, nil
}

func TestBuildTaskRequest(t *testing.T) {
	enqueuer := cloud.NewTaskEnqueuer(&fakeTaskCreator{}, validConfig(t))
	req, err := enqueuer.BuildTaskRequest(&model.StorageEvent{Bucket: "b", Name: "x.mp4"})
	require.NoError(t, err)

	assert.Equal(t, "projects/p/locations/us-central1/queues/q", req.GetParent())
	http := req.GetTask().GetHttpRequest()
	require.NotNil(t, http)
	assert.Equal(t, cloudtaskspb.HttpMethod_POST, http.GetHttpMethod())
	assert.Equal(t, "https://svc.example.com/process-asset", http.GetUrl())
	assert.Equal(t, "application/json", http.GetHeaders()["Content-type"])
	assert.JSONEq(t, `{"bucket":"b","name":"x.mp4"}`, string(http.GetBody()))
	assert.Equal(t, "sa@p.iam.gserviceaccount.com", http.GetOidcToken().GetServiceAccountEmail())
	assert.Equal(t, "https://svc.example.com/process-asset", http.GetOidcToken().GetAudience())
	assert.Equal(t, 1800*time.Second, req.GetTask().GetDispatchDeadline().AsDuration())
}

func TestEnqueue(t *testing.T) {
	creator := &fakeTaskCreator{}
	enqueuer := cloud.NewTaskEnqueuer(creator, validConfig(t))
	name, err := enqueuer.Enqueue(context.Background(), &model.StorageEvent{Bucket: "b", Name: "x.mp4"})
	require.NoError(t, err)
	assert.Equal(t, "projects/p/locations/us-central1/queues/q/tasks/1", name)
	assert.Len(t, creator.requests, 1)
}

func TestEnqueuePropagatesQueueError(t *testing.T) {
	creator := &fakeTaskCreator{err: errors.New("queue unavailable")}
	enqueuer := cloud.NewTaskEnqueuer(creator, validConfig(t))
	_, err := enqueuer.Enqueue(context.Background(), &model.StorageEvent{Bucket: "b", Name: "x.mp4"})
	assert.EqualError(t, err, "queue unavailable")
}
