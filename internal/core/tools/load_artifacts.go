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
	"errors"
	"fmt"

	"google.golang.org/genai"

	"github.com/jaycherian/gcp-go-asset-agent/internal/core/agent"
	"github.com/jaycherian/gcp-go-asset-agent/internal/core/artifact"
)

const LoadArtifactsName = "load_artifacts"

// NewLoadArtifacts returns the tool that puts artifact content in front of
// the model. The content is attached to the next request only so large
// videos are not replayed on every turn.
func NewLoadArtifacts() agent.Tool {
	return agent.NewFunctionTool(LoadArtifactsName,
		"Loads the artifacts and adds them to the session. Call it with the names of the artifacts you need to inspect; with no names it returns the available artifacts.",
		agent.ObjectSchema(map[string]*genai.Schema{
			"artifact_names": agent.StringArrayProperty("The names of the artifacts to load."),
		}),
		func(ctx agent.ToolContext, args map[string]any) (map[string]any, error) {
			names, err := agent.StringSliceArg(args, "artifact_names")
			if err != nil {
				return nil, err
			}
			if len(names) == 0 {
				available, err := ctx.Artifacts().List(ctx)
				if err != nil {
					return nil, err
				}
				return map[string]any{"available_artifacts": available}, nil
			}

			loaded := make([]string, 0, len(names))
			missing := make([]string, 0)
			for _, name := range names {
				part, err := ctx.Artifacts().Load(ctx, name, 0)
				if errors.Is(err, artifact.ErrArtifactNotFound) {
					missing = append(missing, name)
					continue
				}
				if err != nil {
					return nil, err
				}
				ctx.Attach(&genai.Content{Role: "user", Parts: []*genai.Part{
					{Text: fmt.Sprintf("Artifact %s is:", name)},
					part,
				}})
				loaded = append(loaded, name)
			}
			result := map[string]any{"artifact_names": loaded}
			if len(missing) > 0 {
				result["missing_artifacts"] = missing
			}
			return result, nil
		})
}
