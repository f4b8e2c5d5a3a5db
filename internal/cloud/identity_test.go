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

package cloud_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"google.golang.org/api/idtoken"

	"github.com/jaycherian/gcp-go-asset-agent/internal/cloud"
)

func TestOIDCVerifier(t *testing.T) {
	v := cloud.NewOIDCVerifier(validConfig(t))
	var seenAudience string
	v.Validate = func(_ context.Context, token string, audience string) (*idtoken.Payload, error) {
		seenAudience = audience
		switch token {
		case "good":
			return &idtoken.Payload{Claims: map[string]interface{}{"email": "sa@p.iam.gserviceaccount.com"}}, nil
		case "other":
			return &idtoken.Payload{Claims: map[string]interface{}{"email": "intruder@example.com"}}, nil
		}
		return nil, errors.New("bad signature")
	}

	ctx := context.Background()
	assert.NoError(t, v.Verify(ctx, "good"))
	assert.Equal(t, "https://svc.example.com/process-asset", seenAudience)
	assert.ErrorIs(t, v.Verify(ctx, "other"), cloud.ErrUnauthorized)
	assert.ErrorIs(t, v.Verify(ctx, "forged"), cloud.ErrUnauthorized)
	assert.ErrorIs(t, v.Verify(ctx, ""), cloud.ErrUnauthorized)
}
