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

// Package main is the asset agent server: the /gcs-trigger enqueue route, the
// /process-asset worker route and the optional Pub/Sub trigger listener.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jaycherian/gcp-go-asset-agent/internal/api"
	"github.com/jaycherian/gcp-go-asset-agent/internal/telemetry"
)

const shutdownTimeout = 5 * time.Second

func main() {
	if err := SetupOS(); err != nil {
		log.Fatalf("failed to setup env: %v", err)
	}
	config, err := GetConfig()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	telemetry.SetupLogging(config.Application.LogLevel)
	if err := config.Validate(); err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := telemetry.SetupOpenTelemetry(ctx, config)
	if err != nil {
		slog.Error("Failed to setup OpenTelemetry", "error", err)
		os.Exit(1)
	}

	if err := InitState(ctx, config); err != nil {
		slog.Error("Failed to initialize state", "error", err)
		os.Exit(1)
	}
	slog.Info("Initialized State")

	router := api.NewRouter(api.RouterConfig{
		ServiceName:    config.Application.Name,
		AllowedOrigins: config.Application.AllowedOrigins,
	}, state.Handlers())
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", config.Application.Port),
		Handler: router,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("Server Ready", "port", config.Application.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("Shutdown Server ...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	SetupListeners(gctx, g, state.cloud)

	if err := g.Wait(); err != nil {
		slog.Error("server stopped with error", "error", err)
	}

	flushCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := shutdownTelemetry(flushCtx); err != nil {
		slog.Error("failed to shutdown telemetry", "error", err)
	}
	if err := state.Close(); err != nil {
		slog.Error("failed to close clients", "error", err)
	}
	slog.Info("Server exiting")
}
