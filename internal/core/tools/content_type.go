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

// Package tools holds the function tools the asset agents call: bringing a
// GCS object into the session as an artifact, listing and loading artifacts,
// and the BigQuery toolset used to write the asset table.
package tools

import (
	"mime"
	"path"
	"strings"

	"github.com/h2non/filetype"
)

// DefaultContentType is used when neither the extension nor the content identify a type.
const DefaultContentType = "application/octet-stream"

// textTypes covers the text formats filetype does not match.
var textTypes = map[string]string{
	"txt":  "text/plain",
	"md":   "text/markdown",
	"csv":  "text/csv",
	"json": "application/json",
	"html": "text/html",
	"htm":  "text/html",
	"xml":  "text/xml",
}

// DetectContentType infers the MIME type of fileName, falling back to the
// leading bytes of data. JSON is reported as text/plain so models read it as
// prose.
func DetectContentType(fileName string, data []byte) string {
	contentType := contentTypeByExtension(fileName)
	if contentType == "" {
		if kind, err := filetype.Match(data); err == nil && kind != filetype.Unknown {
			contentType = kind.MIME.Value
		}
	}
	if contentType == "" {
		contentType = DefaultContentType
	}
	if contentType == "application/json" {
		contentType = "text/plain"
	}
	return contentType
}

func contentTypeByExtension(fileName string) string {
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(fileName), "."))
	if ext == "" {
		return ""
	}
	if t, ok := textTypes[ext]; ok {
		return t
	}
	if kind := filetype.GetType(ext); kind != filetype.Unknown {
		return kind.MIME.Value
	}
	if t := mime.TypeByExtension("." + ext); t != "" {
		if mediaType, _, err := mime.ParseMediaType(t); err == nil {
			return mediaType
		}
	}
	return ""
}
