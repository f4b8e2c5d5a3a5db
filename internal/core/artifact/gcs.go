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

package artifact

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/genai"
)

// GCSService persists artifacts as objects named
// "<prefix><app>/<user>/<session or user>/<file name>/<version>".
type GCSService struct {
	client *storage.Client
	bucket string
	prefix string
}

// NewGCSService creates a service that stores artifacts in bucket. prefix is
// prepended verbatim to every object name and may be empty.
func NewGCSService(client *storage.Client, bucket string, prefix string) *GCSService {
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return &GCSService{client: client, bucket: bucket, prefix: prefix}
}

func (s *GCSService) fileDir(key Key, fileName string) string {
	return s.prefix + scopePath(key, fileName) + "/" + fileName + "/"
}

// Save writes the next version. The write is conditional on the object not
// existing, so two concurrent saves of the same name never overwrite each other.
func (s *GCSService) Save(ctx context.Context, req *SaveRequest) (int64, error) {
	if err := validate(req.Key, req.FileName); err != nil {
		return 0, err
	}
	if req.Part == nil {
		return 0, errors.New("artifact part is required")
	}
	versions, err := s.versions(ctx, req.Key, req.FileName)
	if err != nil {
		return 0, err
	}
	next := int64(1)
	if len(versions) > 0 {
		next = versions[len(versions)-1] + 1
	}

	data, contentType := partBytes(req.Part)
	obj := s.client.Bucket(s.bucket).Object(s.fileDir(req.Key, req.FileName) + strconv.FormatInt(next, 10))
	w := obj.If(storage.Conditions{DoesNotExist: true}).NewWriter(ctx)
	w.ContentType = contentType
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return 0, fmt.Errorf("gcs write failed for %s: %w", req.FileName, err)
	}
	if err := w.Close(); err != nil {
		return 0, fmt.Errorf("gcs close failed for %s: %w", req.FileName, err)
	}
	return next, nil
}

func (s *GCSService) Load(ctx context.Context, req *LoadRequest) (*genai.Part, error) {
	if err := validate(req.Key, req.FileName); err != nil {
		return nil, err
	}
	version := req.Version
	if version == 0 {
		versions, err := s.versions(ctx, req.Key, req.FileName)
		if err != nil {
			return nil, err
		}
		if len(versions) == 0 {
			return nil, fmt.Errorf("%w: %s", ErrArtifactNotFound, req.FileName)
		}
		version = versions[len(versions)-1]
	}

	obj := s.client.Bucket(s.bucket).Object(s.fileDir(req.Key, req.FileName) + strconv.FormatInt(version, 10))
	reader, err := obj.NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, fmt.Errorf("%w: %s version %d", ErrArtifactNotFound, req.FileName, version)
	}
	if err != nil {
		return nil, fmt.Errorf("gcs get failed for %s: %w", req.FileName, err)
	}
	defer func() { _ = reader.Close() }()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("gcs read failed for %s: %w", req.FileName, err)
	}
	return &genai.Part{InlineData: &genai.Blob{Data: data, MIMEType: reader.Attrs.ContentType}}, nil
}

func (s *GCSService) List(ctx context.Context, key Key) ([]string, error) {
	out := make([]string, 0)
	for _, scope := range []string{scopePath(key, ""), scopePath(key, UserScopePrefix)} {
		prefix := s.prefix + scope + "/"
		it := s.client.Bucket(s.bucket).Objects(ctx, &storage.Query{Prefix: prefix})
		for {
			attrs, err := it.Next()
			if errors.Is(err, iterator.Done) {
				break
			}
			if err != nil {
				return nil, fmt.Errorf("gcs list failed: %w", err)
			}
			rest := strings.TrimPrefix(attrs.Name, prefix)
			if name, _, ok := strings.Cut(rest, "/"); ok {
				out = append(out, name)
			}
		}
	}
	slices.Sort(out)
	return slices.Compact(out), nil
}

func (s *GCSService) Versions(ctx context.Context, key Key, fileName string) ([]int64, error) {
	if err := validate(key, fileName); err != nil {
		return nil, err
	}
	versions, err := s.versions(ctx, key, fileName)
	if err != nil {
		return nil, err
	}
	if len(versions) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrArtifactNotFound, fileName)
	}
	return versions, nil
}

func (s *GCSService) versions(ctx context.Context, key Key, fileName string) ([]int64, error) {
	dir := s.fileDir(key, fileName)
	it := s.client.Bucket(s.bucket).Objects(ctx, &storage.Query{Prefix: dir})
	out := make([]int64, 0)
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("gcs list failed for %s: %w", fileName, err)
		}
		v, err := strconv.ParseInt(strings.TrimPrefix(attrs.Name, dir), 10, 64)
		if err != nil {
			continue
		}
		out = append(out, v)
	}
	slices.Sort(out)
	return out, nil
}

func (s *GCSService) Delete(ctx context.Context, key Key, fileName string) error {
	if err := validate(key, fileName); err != nil {
		return err
	}
	versions, err := s.versions(ctx, key, fileName)
	if err != nil {
		return err
	}
	dir := s.fileDir(key, fileName)
	for _, v := range versions {
		err := s.client.Bucket(s.bucket).Object(dir + strconv.FormatInt(v, 10)).Delete(ctx)
		if err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
			return fmt.Errorf("gcs delete failed for %s version %d: %w", fileName, v, err)
		}
	}
	return nil
}

// partBytes flattens a part into object bytes and a content type.
func partBytes(p *genai.Part) ([]byte, string) {
	if p.InlineData != nil {
		ct := p.InlineData.MIMEType
		if ct == "" {
			ct = "application/octet-stream"
		}
		return p.InlineData.Data, ct
	}
	return []byte(p.Text), "text/plain"
}

var _ Service = (*GCSService)(nil)
