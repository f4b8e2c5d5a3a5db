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

package cloud

import (
	"context"
	"errors"
	"fmt"

	credentials "cloud.google.com/go/iam/credentials/apiv1"
	"cloud.google.com/go/iam/credentials/apiv1/credentialspb"
	"google.golang.org/api/idtoken"
)

// ErrUnauthorized is returned when a bearer token fails verification.
var ErrUnauthorized = errors.New("unauthorized")

// TokenValidator checks a Google signed ID token for an audience.
type TokenValidator func(ctx context.Context, token string, audience string) (*idtoken.Payload, error)

// OIDCVerifier checks that a request was sent by the task queue on behalf of
// the configured service account.
type OIDCVerifier struct {
	Audience string         // The worker URL the token was minted for.
	Email    string         // The service account the queue impersonates.
	Validate TokenValidator // idtoken.Validate unless replaced in tests.
}

// NewOIDCVerifier creates a verifier for the worker URL in config.
func NewOIDCVerifier(config *Config) *OIDCVerifier {
	return &OIDCVerifier{
		Audience: config.ProcessURL(),
		Email:    config.Application.ServiceAccountEmail,
		Validate: idtoken.Validate,
	}
}

// Verify validates token and checks its email claim.
func (v *OIDCVerifier) Verify(ctx context.Context, token string) error {
	if token == "" {
		return fmt.Errorf("%w: missing bearer token", ErrUnauthorized)
	}
	payload, err := v.Validate(ctx, token, v.Audience)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	if email, _ := payload.Claims["email"].(string); v.Email != "" && email != v.Email {
		return fmt.Errorf("%w: token issued to %q", ErrUnauthorized, email)
	}
	return nil
}

// IDTokenMinter creates ID tokens for a service account through the IAM
// credentials API. It lets operators call the worker the way the queue does.
type IDTokenMinter struct {
	Client *credentials.IamCredentialsClient
}

// Mint returns an ID token for email with the given audience.
func (m *IDTokenMinter) Mint(ctx context.Context, email string, audience string) (string, error) {
	resp, err := m.Client.GenerateIdToken(ctx, &credentialspb.GenerateIdTokenRequest{
		Name:         fmt.Sprintf("projects/-/serviceAccounts/%s", email),
		Audience:     audience,
		IncludeEmail: true,
	})
	if err != nil {
		return "", fmt.Errorf("failed to mint id token for %s: %w", email, err)
	}
	return resp.GetToken(), nil
}
