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

// Package commands provides the concrete implementations of the Chain of
// Responsibility (COR) pattern's Command interface. This file defines the
// first command of the trigger workflow.
//
// Logic Flow:
// GCS publishes an object notification to Pub/Sub when a file is finalized.
//  1. The command receives the raw message body from the context, as a string or
//     bytes. An already parsed *model.StorageEvent passes straight through.
//  2. `model.ParseStorageEvent` reduces the notification to bucket and name and
//     rejects a body missing either.
//  3. The event is stored under StorageEventKey and becomes the next command's input.
package commands

import (
	"fmt"

	"github.com/jaycherian/gcp-go-asset-agent/internal/core/cor"
	"github.com/jaycherian/gcp-go-asset-agent/internal/core/model"
)

// StorageEventReader parses a GCS notification into a StorageEvent.
type StorageEventReader struct {
	cor.BaseCommand
}

// NewStorageEventReader creates the parsing step of the trigger workflow.
//
// Inputs:
//   - name: The command name, used for its span and counters.
//
// Outputs:
//   - *StorageEventReader: The command.
func NewStorageEventReader(name string) *StorageEventReader {
	return &StorageEventReader{BaseCommand: *cor.NewBaseCommand(name)}
}

// Execute reads the input parameter and stores the parsed event. It fails the
// context on an unsupported input type or an incomplete notification.
func (c *StorageEventReader) Execute(context cor.Context) {
	var raw []byte
	switch in := context.Get(c.GetInputParam()).(type) {
	case *model.StorageEvent:
		c.Succeed(context)
		context.Add(StorageEventKey, in)
		context.Add(c.GetOutputParam(), in)
		return
	case string:
		raw = []byte(in)
	case []byte:
		raw = in
	default:
		c.Fail(context, fmt.Errorf("unsupported notification type %T", in))
		return
	}

	event, err := model.ParseStorageEvent(raw)
	if err != nil {
		c.Fail(context, fmt.Errorf("invalid GCS notification: %w", err))
		return
	}

	c.Succeed(context)
	context.Add(StorageEventKey, event)
	context.Add(c.GetOutputParam(), event)
}
