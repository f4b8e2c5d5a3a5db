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
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/jaycherian/gcp-go-asset-agent/internal/core/agent"
)

const ListArtifactsName = "list_artifacts"

// Sentences returned to the model by list_artifacts.
const (
	NoArtifactsText        = "You have no saved artifacts."
	ArtifactListHeader     = "Here are your available Python artifacts:"
	ListNotConfiguredText  = "Error: Could not list Python artifacts."
	ListUnexpectedFailText = "Error: An unexpected error occurred while listing Python artifacts."
)

// NewListArtifacts returns the tool that lists the session's artifacts. It
// never fails; errors become a sentence the model can read.
func NewListArtifacts() agent.Tool {
	return agent.NewFunctionTool(ListArtifactsName, "Tool to list available artifacts for the user.", nil,
		func(ctx agent.ToolContext, _ map[string]any) (map[string]any, error) {
			return map[string]any{"result": ListArtifactsText(ctx, ctx.Artifacts())}, nil
		})
}

// ListArtifactsText formats the artifact names one per line.
func ListArtifactsText(ctx context.Context, artifacts agent.Artifacts) string {
	names, err := artifacts.List(ctx)
	switch {
	case errors.Is(err, agent.ErrNoArtifactService):
		slog.ErrorContext(ctx, "Error listing artifacts. Is the artifact service configured?", "error", err)
		return ListNotConfiguredText
	case err != nil:
		slog.ErrorContext(ctx, "An unexpected error occurred during artifact list", "error", err)
		return ListUnexpectedFailText
	case len(names) == 0:
		return NoArtifactsText
	}

	var b strings.Builder
	b.WriteString(ArtifactListHeader)
	for _, name := range names {
		b.WriteString("\n- ")
		b.WriteString(name)
	}
	return b.String()
}
