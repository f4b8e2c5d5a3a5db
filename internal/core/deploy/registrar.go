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

package deploy

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"strings"

	aiplatform "cloud.google.com/go/aiplatform/apiv1"
	"cloud.google.com/go/aiplatform/apiv1/aiplatformpb"
	"cloud.google.com/go/storage"
	"github.com/google/uuid"
	"google.golang.org/api/option"

	"github.com/jaycherian/gcp-go-asset-agent/internal/cloud"
	"github.com/jaycherian/gcp-go-asset-agent/internal/core/model"
)

const (
	ManifestFileName     = "manifest.json"
	RequirementsFileName = "requirements.txt"
	stagingDir           = "agent_engine"
)

// Stager writes a staged file and returns its gs:// location.
type Stager interface {
	Stage(ctx context.Context, object string, data []byte, contentType string) (string, error)
}

// EngineCreator creates a reasoning engine and waits for it.
type EngineCreator interface {
	CreateEngine(ctx context.Context, req *aiplatformpb.CreateReasoningEngineRequest) (*aiplatformpb.ReasoningEngine, error)
}

// GCSStager stages files in a bucket.
type GCSStager struct {
	Client *storage.Client
	Bucket string // Bare name or gs://name.
}

func (s *GCSStager) Stage(ctx context.Context, object string, data []byte, contentType string) (string, error) {
	bucket := strings.TrimSuffix(strings.TrimPrefix(s.Bucket, model.GCSScheme), "/")
	w := s.Client.Bucket(bucket).Object(object).NewWriter(ctx)
	w.ContentType = contentType
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("failed to stage gs://%s/%s: %w", bucket, object, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("failed to stage gs://%s/%s: %w", bucket, object, err)
	}
	return model.GCSScheme + bucket + "/" + object, nil
}

// ReasoningEngines adapts the Agent Engine client to EngineCreator.
type ReasoningEngines struct {
	Client *aiplatform.ReasoningEngineClient
}

// NewReasoningEngines dials the regional Agent Engine endpoint.
func NewReasoningEngines(ctx context.Context, location string) (*ReasoningEngines, error) {
	client, err := aiplatform.NewReasoningEngineClient(ctx, option.WithEndpoint(fmt.Sprintf("%s-aiplatform.googleapis.com:443", location)))
	if err != nil {
		return nil, fmt.Errorf("failed to create reasoning engine client: %w", err)
	}
	return &ReasoningEngines{Client: client}, nil
}

func (r *ReasoningEngines) CreateEngine(ctx context.Context, req *aiplatformpb.CreateReasoningEngineRequest) (*aiplatformpb.ReasoningEngine, error) {
	op, err := r.Client.CreateReasoningEngine(ctx, req)
	if err != nil {
		return nil, err
	}
	slog.InfoContext(ctx, "waiting for reasoning engine", "operation", op.Name())
	return op.Wait(ctx)
}

func (r *ReasoningEngines) Close() error {
	return r.Client.Close()
}

// Registrar stages a manifest and registers it as a reasoning engine.
type Registrar struct {
	stager  Stager
	engines EngineCreator
	parent  string
	newID   func() string
}

// NewRegistrar builds a registrar for the project and location in config.
func NewRegistrar(config *cloud.Config, stager Stager, engines EngineCreator) *Registrar {
	return &Registrar{
		stager:  stager,
		engines: engines,
		parent:  fmt.Sprintf("projects/%s/locations/%s", config.Application.GoogleProjectId, config.Application.GoogleLocation),
		newID:   uuid.NewString,
	}
}

// Deploy uploads m and creates the engine.
//
// Inputs:
//   - ctx: Bounds the upload and the wait for the operation.
//   - m: The manifest from BuildManifest.
//
// Outputs:
//   - *aiplatformpb.ReasoningEngine: The created engine, with its resource name.
//   - error: Staging or creation failures.
func (r *Registrar) Deploy(ctx context.Context, m *Manifest) (*aiplatformpb.ReasoningEngine, error) {
	body, err := m.JSON()
	if err != nil {
		return nil, err
	}
	dir := path.Join(stagingDir, r.newID())

	manifestURI, err := r.stager.Stage(ctx, path.Join(dir, ManifestFileName), body, "application/json")
	if err != nil {
		return nil, err
	}
	requirements := strings.Join(m.Requirements, "\n") + "\n"
	requirementsURI, err := r.stager.Stage(ctx, path.Join(dir, RequirementsFileName), []byte(requirements), "text/plain")
	if err != nil {
		return nil, err
	}
	slog.InfoContext(ctx, "staged agent manifest", "manifest", manifestURI, "requirements", requirementsURI)

	engine, err := r.engines.CreateEngine(ctx, &aiplatformpb.CreateReasoningEngineRequest{
		Parent: r.parent,
		ReasoningEngine: &aiplatformpb.ReasoningEngine{
			DisplayName: m.DisplayName,
			Description: m.Description,
			Spec: &aiplatformpb.ReasoningEngineSpec{
				PackageSpec: &aiplatformpb.ReasoningEngineSpec_PackageSpec{
					DependencyFilesGcsUri: manifestURI,
					RequirementsGcsUri:    requirementsURI,
				},
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create reasoning engine: %w", err)
	}
	slog.InfoContext(ctx, "registered reasoning engine", "name", engine.GetName(), "display_name", engine.GetDisplayName())
	return engine, nil
}
