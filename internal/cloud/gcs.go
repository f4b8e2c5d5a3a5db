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

// Package cloud provides the Google Cloud Storage helpers used by the asset
// pipeline: parsing gs:// locations and downloading objects into memory.
package cloud

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"cloud.google.com/go/storage"

	"github.com/jaycherian/gcp-go-asset-agent/internal/core/model"
)

var (
	// ErrInvalidURI marks a location that is not gs://<bucket>/<object>. Retrying will not help.
	ErrInvalidURI = errors.New("invalid gcs uri")
	// ErrNotFound marks an object that does not exist.
	ErrNotFound = errors.New("object not found")
	// ErrTransient marks a failure of a downstream service that may succeed on retry.
	ErrTransient = errors.New("transient downstream failure")
)

// ParseGCSURI splits gs://<bucket>/<object> on the first "/" after the scheme.
// An object path ending in "/" has no file name and is rejected.
func ParseGCSURI(uri string) (bucket string, object string, err error) {
	if !strings.HasPrefix(uri, model.GCSScheme) {
		return "", "", fmt.Errorf("%w: %q does not start with %s", ErrInvalidURI, uri, model.GCSScheme)
	}
	bucket, object, ok := strings.Cut(strings.TrimPrefix(uri, model.GCSScheme), "/")
	if !ok || bucket == "" || object == "" {
		return "", "", fmt.Errorf("%w: %q has no object path", ErrInvalidURI, uri)
	}
	if strings.HasSuffix(object, "/") {
		return "", "", fmt.Errorf("%w: %q names a folder, not an object", ErrInvalidURI, uri)
	}
	return bucket, object, nil
}

// ObjectReader downloads a whole object.
type ObjectReader interface {
	ReadObject(ctx context.Context, bucket string, object string) ([]byte, error)
}

// GCSReader reads objects with a storage client.
type GCSReader struct {
	Client *storage.Client
}

// ReadObject downloads bucket/object into memory. A missing object is reported
// as ErrNotFound and every other failure as ErrTransient.
func (r *GCSReader) ReadObject(ctx context.Context, bucket string, object string) ([]byte, error) {
	reader, err := r.Client.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		return nil, classifyStorageError(bucket, object, err)
	}
	defer func() { _ = reader.Close() }()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, classifyStorageError(bucket, object, err)
	}
	return data, nil
}

func classifyStorageError(bucket string, object string, err error) error {
	if errors.Is(err, storage.ErrObjectNotExist) || errors.Is(err, storage.ErrBucketNotExist) {
		return fmt.Errorf("%w: gs://%s/%s: %v", ErrNotFound, bucket, object, err)
	}
	return fmt.Errorf("%w: reading gs://%s/%s: %v", ErrTransient, bucket, object, err)
}
