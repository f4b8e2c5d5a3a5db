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

package cor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
)

// BaseContext is the default implementation of the Context interface.
type BaseContext struct {
	data     map[string]interface{} // Values shared between commands.
	errors   map[string]error       // Errors keyed by the command that produced them.
	cleanups []CleanupFunc          // Run by Close in reverse order.
	context  context.Context        // The Go context for cancellation and tracing.
}

// NewBaseContext returns an empty context. A Go context must be set with
// SetContext before the context is executed.
func NewBaseContext() Context {
	return &BaseContext{
		data:     make(map[string]interface{}),
		errors:   make(map[string]error),
		cleanups: make([]CleanupFunc, 0),
	}
}

func (c *BaseContext) SetContext(context context.Context) {
	c.context = context
}

func (c *BaseContext) GetContext() context.Context {
	return c.context
}

// Close runs every cleanup, newest first. Cleanup failures are logged; they
// do not change the outcome of the workflow.
func (c *BaseContext) Close() {
	ctx := c.context
	if ctx == nil {
		ctx = context.Background()
	}
	// Cleanups must run even when the request context is already cancelled.
	ctx = context.WithoutCancel(ctx)
	for i := len(c.cleanups) - 1; i >= 0; i-- {
		if err := c.cleanups[i](ctx); err != nil {
			slog.WarnContext(ctx, "cleanup failed", "error", err)
		}
	}
	c.cleanups = c.cleanups[:0]
}

func (c *BaseContext) Add(key string, value interface{}) Context {
	c.data[key] = value
	return c
}

func (c *BaseContext) AddCleanup(fn CleanupFunc) {
	c.cleanups = append(c.cleanups, fn)
}

func (c *BaseContext) AddError(key string, err error) {
	c.errors[key] = err
}

func (c *BaseContext) GetErrors() map[string]error {
	return c.errors
}

func (c *BaseContext) Err() error {
	if len(c.errors) == 0 {
		return nil
	}
	names := make([]string, 0, len(c.errors))
	for name := range c.errors {
		names = append(names, name)
	}
	slices.Sort(names)
	errs := make([]error, 0, len(names))
	for _, name := range names {
		errs = append(errs, fmt.Errorf("%s: %w", name, c.errors[name]))
	}
	return errors.Join(errs...)
}

func (c *BaseContext) Get(key string) interface{} {
	return c.data[key]
}

func (c *BaseContext) Remove(key string) {
	delete(c.data, key)
}

func (c *BaseContext) HasErrors() bool {
	return len(c.errors) > 0
}
