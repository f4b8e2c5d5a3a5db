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

package agent

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/jaycherian/gcp-go-asset-agent/internal/core/artifact"
	"github.com/jaycherian/gcp-go-asset-agent/internal/core/session"
)

// Tool is a capability an agent's model may call.
type Tool interface {
	Name() string
	Description() string
	Declaration() *genai.FunctionDeclaration
	// Run executes the call. A returned error is reported to the model as
	// {"error": message} and does not end the run.
	Run(ctx ToolContext, args map[string]any) (map[string]any, error)
}

// Artifacts saves and loads files in the scope of the running session.
type Artifacts interface {
	Save(ctx context.Context, fileName string, part *genai.Part) (int64, error)
	Load(ctx context.Context, fileName string, version int64) (*genai.Part, error)
	List(ctx context.Context) ([]string, error)
}

// ToolContext is the context a tool runs in.
type ToolContext interface {
	context.Context
	AgentName() string
	InvocationID() string
	FunctionCallID() string
	Key() artifact.Key
	State() map[string]any
	Artifacts() Artifacts
	// Actions are merged into the event that carries the tool results.
	Actions() *session.EventActions
	// Attach adds content to the next model request only. It is not stored in
	// the session.
	Attach(content *genai.Content)
}

// FunctionHandler implements a FunctionTool.
type FunctionHandler func(ctx ToolContext, args map[string]any) (map[string]any, error)

// FunctionTool adapts a plain function to the Tool interface.
type FunctionTool struct {
	name        string
	description string
	parameters  *genai.Schema
	handler     FunctionHandler
}

// NewFunctionTool declares a tool. parameters may be nil for tools without arguments.
func NewFunctionTool(name string, description string, parameters *genai.Schema, handler FunctionHandler) *FunctionTool {
	return &FunctionTool{name: name, description: description, parameters: parameters, handler: handler}
}

// Name is the function name the model calls.
func (t *FunctionTool) Name() string { return t.name }

// Description tells the model when to call the tool.
func (t *FunctionTool) Description() string { return t.description }

// Declaration is the schema sent to the model in the tool config.
func (t *FunctionTool) Declaration() *genai.FunctionDeclaration {
	return &genai.FunctionDeclaration{
		Name:        t.name,
		Description: t.description,
		Parameters:  t.parameters,
	}
}

// Run invokes the handler with the model supplied arguments.
func (t *FunctionTool) Run(ctx ToolContext, args map[string]any) (map[string]any, error) {
	return t.handler(ctx, args)
}

// ObjectSchema builds the parameter schema of a tool.
func ObjectSchema(properties map[string]*genai.Schema, required ...string) *genai.Schema {
	return &genai.Schema{Type: genai.TypeObject, Properties: properties, Required: required}
}

// StringProperty is a string parameter.
func StringProperty(description string) *genai.Schema {
	return &genai.Schema{Type: genai.TypeString, Description: description}
}

// StringArrayProperty is a list of strings parameter.
func StringArrayProperty(description string) *genai.Schema {
	return &genai.Schema{Type: genai.TypeArray, Description: description, Items: &genai.Schema{Type: genai.TypeString}}
}

// StringArg reads a required string argument.
func StringArg(args map[string]any, name string) (string, error) {
	v, ok := args[name]
	if !ok {
		return "", fmt.Errorf("missing argument %q", name)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("argument %q must be a string, got %T", name, v)
	}
	return s, nil
}

// StringSliceArg reads a list of strings. Decoded JSON arrives as []any.
func StringSliceArg(args map[string]any, name string) ([]string, error) {
	v, ok := args[name]
	if !ok || v == nil {
		return nil, nil
	}
	switch list := v.(type) {
	case []string:
		return list, nil
	case []any:
		out := make([]string, 0, len(list))
		for i, item := range list {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("argument %s[%d] must be a string, got %T", name, i, item)
			}
			out = append(out, s)
		}
		return out, nil
	case string:
		return []string{list}, nil
	default:
		return nil, fmt.Errorf("argument %q must be a list of strings, got %T", name, v)
	}
}

// registry indexes an agent's tools by name.
type registry struct {
	tools map[string]Tool
	order []string
}

func newRegistry(tools []Tool) *registry {
	r := &registry{tools: make(map[string]Tool, len(tools))}
	for _, t := range tools {
		r.tools[t.Name()] = t
		r.order = append(r.order, t.Name())
	}
	return r
}

func (r *registry) get(name string) (Tool, bool) {
	t, ok := r.tools[name]
	return t, ok
}

// declarations converts the tools into the request's tool list.
func (r *registry) declarations() []*genai.Tool {
	if len(r.order) == 0 {
		return nil
	}
	decls := make([]*genai.FunctionDeclaration, 0, len(r.order))
	for _, name := range r.order {
		decls = append(decls, r.tools[name].Declaration())
	}
	return []*genai.Tool{{FunctionDeclarations: decls}}
}
