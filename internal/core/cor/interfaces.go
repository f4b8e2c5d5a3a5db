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

// Package cor (Chain of Responsibility) provides the building blocks the
// request workflows are assembled from. A Command is one step, a Chain runs
// steps in order and is itself a Command, and a Context carries the data,
// errors and cleanups of one execution.
package cor

import (
	"context"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// CtxIn and CtxOut are the keys a BaseChain pipes between commands.
const (
	// CtxIn is the default input key. The chain fills it with the previous
	// command's output.
	CtxIn = "__IN__"
	// CtxOut is the default output key.
	CtxOut = "__OUT__"
)

// CleanupFunc releases something a command acquired, such as a session.
type CleanupFunc func(ctx context.Context) error

// Context is the shared state of one workflow execution.
type Context interface {
	// SetContext sets the Go context used for cancellation and tracing.
	SetContext(context context.Context)
	GetContext() context.Context

	// Add stores a value for later commands.
	Add(key string, value interface{}) Context
	Get(key string) interface{}
	Remove(key string)

	// AddError records an error keyed by the command that produced it.
	AddError(key string, err error)
	GetErrors() map[string]error
	HasErrors() bool
	// Err joins the recorded errors in command name order, or returns nil.
	Err() error

	// AddCleanup registers fn to run when the context is closed. Cleanups
	// run in reverse order of registration.
	AddCleanup(fn CleanupFunc)
	// Close runs the registered cleanups. It should be deferred by whoever
	// created the context.
	Close()
}

// Executable is anything with execution logic.
type Executable interface {
	Execute(context Context)
}

// Command is one unit of work in a chain.
type Command interface {
	Executable

	GetName() string
	// GetInputParam is the key the command reads its primary input from.
	GetInputParam() string
	// GetOutputParam is the key the command writes its primary output to.
	GetOutputParam() string
	// IsExecutable is checked by the chain before Execute.
	IsExecutable(context Context) bool

	GetTracer() trace.Tracer
	GetMeter() metric.Meter
	GetSuccessCounter() metric.Int64Counter
	GetErrorCounter() metric.Int64Counter
}

// Chain is a sequence of commands. It is itself a Command so chains nest.
type Chain interface {
	Command

	// ContinueOnFailure makes the chain run every command even after one fails.
	ContinueOnFailure(bool) Chain
	AddCommand(command Command) Chain
}
