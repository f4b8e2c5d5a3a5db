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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jaycherian/gcp-go-asset-agent/internal/cloud"
)

func TestParseGCSURI(t *testing.T) {
	bucket, object, err := cloud.ParseGCSURI("gs://b/dir/name.pdf")
	require.NoError(t, err)
	assert.Equal(t, "b", bucket)
	assert.Equal(t, "dir/name.pdf", object)
}

func TestParseGCSURIInvalid(t *testing.T) {
	for _, uri := range []string{"", "s3://b/x", "gs://bucket", "gs:///object", "gs://bucket/", "gs://b/dir/", "gs://b/a/b//", "b/x.mp4"} {
		_, _, err := cloud.ParseGCSURI(uri)
		assert.ErrorIs(t, err, cloud.ErrInvalidURI, uri)
	}
}
