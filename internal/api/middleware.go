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
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// TokenVerifier checks a bearer token. cloud.OIDCVerifier implements it.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) error
}

// RequireIDToken rejects requests without a valid Google ID token.
func RequireIDToken(verifier TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, found := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
		if !found {
			token = ""
		}
		if err := verifier.Verify(c.Request.Context(), strings.TrimSpace(token)); err != nil {
			slog.WarnContext(c.Request.Context(), "rejected worker request", "error", err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": err.Error()})
			return
		}
		c.Next()
	}
}
