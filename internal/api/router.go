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

// Package api defines the HTTP front door of the asset agent.
//
// Routes:
//   - GET /: Health check.
//   - POST /gcs-trigger: Enqueues one Cloud Tasks task per storage event (204).
//   - POST /process-asset: Runs the coordinator for one event (200).
//   - GET /assets/:id: Reads back an ingested row, when a reader is configured.
package api

import (
	"net/http"
	"slices"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// HealthMessage is returned by GET /.
const HealthMessage = "Video Analysis Agent is running."

// RouterConfig holds the cross cutting settings of the engine.
type RouterConfig struct {
	ServiceName    string   // Span prefix for otelgin.
	AllowedOrigins []string // "*" allows every origin.
}

// NewRouter builds the gin engine with tracing, CORS and every route.
func NewRouter(config RouterConfig, h *Handlers) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware(config.ServiceName))
	r.Use(cors.New(corsConfig(config.AllowedOrigins)))

	HealthRouter(r)
	AssetRouter(r, h)
	return r
}

func corsConfig(origins []string) cors.Config {
	config := cors.DefaultConfig()
	config.AllowMethods = []string{http.MethodGet, http.MethodPost, http.MethodOptions}
	config.AllowHeaders = []string{"Origin", "Content-Type", "Authorization"}
	if len(origins) == 0 || slices.Contains(origins, "*") {
		config.AllowAllOrigins = true
		return config
	}
	config.AllowOrigins = origins
	config.AllowCredentials = true
	return config
}

// HealthRouter registers GET /.
func HealthRouter(r gin.IRoutes) {
	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": HealthMessage})
	})
}

// AssetRouter registers the trigger, worker and read back routes.
func AssetRouter(r gin.IRoutes, h *Handlers) {
	r.POST("/gcs-trigger", h.Trigger)
	if h.Verifier != nil {
		r.POST("/process-asset", RequireIDToken(h.Verifier), h.Process)
	} else {
		r.POST("/process-asset", h.Process)
	}
	if h.Assets != nil {
		r.GET("/assets/:id", h.GetAsset)
	}
}
