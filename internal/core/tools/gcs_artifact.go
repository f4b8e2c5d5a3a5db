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

package tools

import (
	"log/slog"
	"path"

	"google.golang.org/genai"

	"github.com/jaycherian/gcp-go-asset-agent/internal/cloud"
	"github.com/jaycherian/gcp-go-asset-agent/internal/core/agent"
)

const AddArtifactFromGCSName = "add_artifact_from_gcs"

const addArtifactDescription = `Adds a specific file from Google Cloud Storage (GCS) to the current session for agent processing.

The file is downloaded and saved as a session artifact named after the last segment of the URI, which makes its content available to other agents and tools in the workflow.

Use this function after you have identified the GCS URI of the file you need to analyze.

Args:
    uri: The complete GCS URI of the file, in the format "gs://bucket_name/path/to/file". Example: "gs://my-doc-bucket/reports/q1_report.pdf"`

// NewAddArtifactFromGCS returns the tool that copies a GCS object into the
// session artifacts.
func NewAddArtifactFromGCS(reader cloud.ObjectReader) agent.Tool {
	return agent.NewFunctionTool(AddArtifactFromGCSName, addArtifactDescription,
		agent.ObjectSchema(map[string]*genai.Schema{
			"uri": agent.StringProperty(`The GCS URI of the file, e.g. "gs://bucket/path/to/file.mp4".`),
		}, "uri"),
		func(ctx agent.ToolContext, args map[string]any) (map[string]any, error) {
			uri, err := agent.StringArg(args, "uri")
			if err != nil {
				return nil, err
			}
			fileName, version, contentType, err := AddArtifactFromGCS(ctx, reader, uri)
			if err != nil {
				return nil, err
			}
			return map[string]any{"filename": fileName, "version": version, "mime_type": contentType}, nil
		})
}

// AddArtifactFromGCS downloads uri and saves it in the session scope under the
// last path segment of the URI.
func AddArtifactFromGCS(ctx agent.ToolContext, reader cloud.ObjectReader, uri string) (fileName string, version int64, contentType string, err error) {
	bucket, object, err := cloud.ParseGCSURI(uri)
	if err != nil {
		return "", 0, "", err
	}
	data, err := reader.ReadObject(ctx, bucket, object)
	if err != nil {
		return "", 0, "", err
	}

	fileName = path.Base(object)
	contentType = DetectContentType(fileName, data)
	version, err = ctx.Artifacts().Save(ctx, fileName, genai.NewPartFromBytes(data, contentType))
	if err != nil {
		return "", 0, "", err
	}
	slog.InfoContext(ctx, "Saved artifact", "filename", fileName, "version", version, "mime_type", contentType)
	return fileName, version, contentType, nil
}
