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

// Package cloud provides a Pub/Sub listener that pulls GCS object notifications
// and hands each one to a chain of commands.
//
// Logic Flow:
//  1. A listener is created for a subscription with NewPubSubListener.
//  2. The trigger workflow is attached with SetCommand.
//  3. Listen blocks, receiving messages until the context is cancelled.
//  4. Each message body becomes the chain input; the message is acked when the
//     chain finishes without errors and nacked otherwise so Pub/Sub redelivers it.
package cloud

import (
	"context"
	"log/slog"

	"cloud.google.com/go/pubsub"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/jaycherian/gcp-go-asset-agent/internal/core/cor"
)

// PubSubListener listens to a subscription and executes a command per message.
type PubSubListener struct {
	client       *pubsub.Client       // The client for interacting with the Pub/Sub service.
	subscription *pubsub.Subscription // The subscription this listener pulls from.
	command      cor.Command          // The command executed for each message.
}

// NewPubSubListener creates a listener for subscriptionID.
//
// Inputs:
//   - pubsubClient: An initialized Pub/Sub client.
//   - subscriptionID: The subscription holding GCS notifications.
//   - command: The command to run per message. May be nil and set later.
//
// Outputs:
//   - *PubSubListener: The listener.
//   - error: Reserved for future validation; currently always nil.
func NewPubSubListener(pubsubClient *pubsub.Client, subscriptionID string, command cor.Command) (*PubSubListener, error) {
	return &PubSubListener{
		client:       pubsubClient,
		subscription: pubsubClient.Subscription(subscriptionID),
		command:      command,
	}, nil
}

// SetCommand attaches the command if none was provided at construction.
func (m *PubSubListener) SetCommand(command cor.Command) {
	if m.command == nil {
		m.command = command
	}
}

// Listen receives messages until ctx is cancelled. It returns the error from
// Receive, which is nil on a clean shutdown.
func (m *PubSubListener) Listen(ctx context.Context) error {
	slog.InfoContext(ctx, "listening", "subscription", m.subscription.ID())
	tracer := otel.Tracer("message-listener")

	return m.subscription.Receive(ctx, func(msgCtx context.Context, msg *pubsub.Message) {
		spanCtx, span := tracer.Start(msgCtx, "receive-message")
		defer span.End()
		span.SetAttributes(attribute.String("msg", string(msg.Data)))

		chainCtx := cor.NewBaseContext()
		chainCtx.SetContext(spanCtx)
		chainCtx.Add(cor.CtxIn, string(msg.Data))
		defer chainCtx.Close()

		m.command.Execute(chainCtx)

		if chainCtx.HasErrors() {
			span.SetStatus(codes.Error, "failed")
			for name, e := range chainCtx.GetErrors() {
				slog.ErrorContext(spanCtx, "error executing chain", "command", name, "error", e)
			}
			msg.Nack()
			return
		}
		span.SetStatus(codes.Ok, "success")
		msg.Ack()
	})
}
