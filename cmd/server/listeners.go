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

// This file attaches the trigger workflow to the optional Pub/Sub listener.
// GCS notifications pulled from the subscription are enqueued exactly like
// requests to /gcs-trigger.
package main

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/jaycherian/gcp-go-asset-agent/internal/cloud"
)

// SetupListeners starts the trigger listener in g when a subscription is
// configured. The listener stops when ctx is cancelled.
func SetupListeners(ctx context.Context, g *errgroup.Group, cloudClients *cloud.ServiceClients) {
	listener, ok := cloudClients.PubSubListeners[cloud.TriggerListenerKey]
	if !ok {
		slog.Info("no trigger subscription configured, Pub/Sub listener disabled")
		return
	}
	listener.SetCommand(state.trigger)
	g.Go(func() error {
		return listener.Listen(ctx)
	})
}
