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

package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"slices"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/jaycherian/gcp-go-asset-agent/internal/core/commands"
	"github.com/jaycherian/gcp-go-asset-agent/internal/core/cor"
	"github.com/jaycherian/gcp-go-asset-agent/internal/core/model"
	"github.com/jaycherian/gcp-go-asset-agent/internal/core/services"
)

// AssetReader looks up an ingested asset row. services.Warehouse implements it.
type AssetReader interface {
	GetAsset(ctx context.Context, assetID string) (*model.AssetRow, error)
}

// Handlers serves the asset routes.
type Handlers struct {
	TriggerWorkflow    cor.Command   // Enqueues a task for a *model.StorageEvent.
	ProcessingWorkflow cor.Command   // Runs the coordinator for a *model.StorageEvent.
	Assets             AssetReader   // Optional.
	Verifier           TokenVerifier // Optional. Guards /process-asset.
}

// Trigger enqueues the event. Failures are 500 so the event source redelivers.
func (h *Handlers) Trigger(c *gin.Context) {
	event, ok := bindEvent(c)
	if !ok {
		return
	}
	chainCtx := h.execute(c, h.TriggerWorkflow, event)
	defer chainCtx.Close()

	if chainCtx.HasErrors() {
		detail := errorDetail(chainCtx)
		slog.ErrorContext(c.Request.Context(), "Failed to enqueue asset", "uri", event.URI(), "error", detail)
		c.JSON(http.StatusInternalServerError, gin.H{"detail": detail})
		return
	}
	c.Status(http.StatusNoContent)
}

// Process runs the coordinator. Failures are 500 so the queue retries.
func (h *Handlers) Process(c *gin.Context) {
	event, ok := bindEvent(c)
	if !ok {
		return
	}
	chainCtx := h.execute(c, h.ProcessingWorkflow, event)
	defer chainCtx.Close()

	if chainCtx.HasErrors() {
		detail := errorDetail(chainCtx)
		slog.ErrorContext(c.Request.Context(), "Failed to process asset", "uri", event.URI(), "error", detail)
		c.JSON(http.StatusInternalServerError, gin.H{"detail": detail})
		return
	}
	response, _ := chainCtx.Get(commands.FinalResponseKey).(string)
	c.JSON(http.StatusOK, gin.H{"status": "success", "response": response})
}

// GetAsset returns the stored row for :id.
func (h *Handlers) GetAsset(c *gin.Context) {
	row, err := h.Assets.GetAsset(c.Request.Context(), c.Param("id"))
	if errors.Is(err, services.ErrAssetNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"detail": err.Error()})
		return
	}
	if err != nil {
		slog.ErrorContext(c.Request.Context(), "Failed to read asset", "asset_id", c.Param("id"), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"detail": err.Error()})
		return
	}
	c.JSON(http.StatusOK, row)
}

func (h *Handlers) execute(c *gin.Context, command cor.Command, event *model.StorageEvent) cor.Context {
	chainCtx := cor.NewBaseContext()
	chainCtx.SetContext(c.Request.Context())
	chainCtx.Add(cor.CtxIn, event)
	command.Execute(chainCtx)
	return chainCtx
}

// bindEvent rejects a body that is not {bucket, name} with 400. Retrying such
// a request can never succeed.
func bindEvent(c *gin.Context) (*model.StorageEvent, bool) {
	var event model.StorageEvent
	if err := c.ShouldBindJSON(&event); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return nil, false
	}
	return &event, true
}

// errorDetail joins the recorded error messages in command order.
func errorDetail(chainCtx cor.Context) string {
	errs := chainCtx.GetErrors()
	names := make([]string, 0, len(errs))
	for name := range errs {
		names = append(names, name)
	}
	slices.Sort(names)
	msgs := make([]string, 0, len(names))
	for _, name := range names {
		msgs = append(msgs, errs[name].Error())
	}
	return strings.Join(msgs, "; ")
}
