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

package model_test

import (
	"testing"

	"github.com/jaycherian/gcp-go-asset-agent/internal/core/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStorageEventURI(t *testing.T) {
	e := &model.StorageEvent{Bucket: "b", Name: "dir/name.pdf"}
	assert.Equal(t, "gs://b/dir/name.pdf", e.URI())
	assert.Equal(t, "name.pdf", e.FileName())

	flat := &model.StorageEvent{Bucket: "b", Name: "clip.mp4"}
	assert.Equal(t, "clip.mp4", flat.FileName())
}

func TestStorageEventJSON(t *testing.T) {
	e := &model.StorageEvent{Bucket: "b", Name: "x.mp4"}
	data, err := e.JSON()
	require.NoError(t, err)
	assert.JSONEq(t, `{"bucket":"b","name":"x.mp4"}`, string(data))

	back, err := model.ParseStorageEvent(data)
	require.NoError(t, err)
	assert.Equal(t, e, back)
}

func TestParseStorageEventRejectsIncomplete(t *testing.T) {
	_, err := model.ParseStorageEvent([]byte(`{"bucket":"b"}`))
	assert.Error(t, err)
	_, err = model.ParseStorageEvent([]byte(`not json`))
	assert.Error(t, err)
}

func TestParseStorageEventIgnoresExtraFields(t *testing.T) {
	e, err := model.ParseStorageEvent([]byte(`{"kind":"storage#object","bucket":"b","name":"n","size":"12"}`))
	require.NoError(t, err)
	assert.Equal(t, "gs://b/n", e.URI())
}

func TestParseDescription(t *testing.T) {
	raw := "Audio Description\n\n[00:00 - 00:05] A blue mug sits on a desk.\n  [00:05 - 00:12]   Text on screen reads SALE.  \nthanks!"
	d := model.ParseDescription(raw)
	require.Len(t, d.Lines, 2)
	assert.Equal(t, "00:05", d.Lines[1].Span.Start)
	assert.Equal(t, "00:12", d.Lines[1].Span.End)
	assert.Equal(t, "Text on screen reads SALE.", d.Lines[1].Text)
	assert.Equal(t, "[00:00 - 00:05] A blue mug sits on a desk.\n[00:05 - 00:12]   Text on screen reads SALE.", d.String())
}

func TestParseDescriptionKeepsLinesAsWritten(t *testing.T) {
	d := model.ParseDescription("[00:00-00:05] A mug.\ncontinued on the next line\n[00:05 - 00:09]\tA hand.")
	require.Len(t, d.Lines, 2)
	assert.Equal(t, "[00:00-00:05] A mug.\n[00:05 - 00:09]\tA hand.", d.String())
	assert.Equal(t, "A mug.", d.Lines[0].Text)
}

func TestDescriptionValidate(t *testing.T) {
	assert.NoError(t, model.ParseDescription("[00:00 - 00:05] A.\n[00:05 - 01:10] B.").Validate())

	err := model.ParseDescription("[00:00 - 00:05] A.\n[00:09 - 00:05] B.").Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")
}

func TestParseDescriptionRejectsBadClock(t *testing.T) {
	d := model.ParseDescription("[00:75 - 01:00] Nope.\n[0:05 - 0:09] Short minutes are fine.")
	require.Len(t, d.Lines, 1)
	assert.Equal(t, "0:05", d.Lines[0].Span.Start)
}

func TestTimeSpanSeconds(t *testing.T) {
	start, end, err := model.TimeSpan{Start: "01:05", End: "102:00"}.Seconds()
	require.NoError(t, err)
	assert.Equal(t, 65, start)
	assert.Equal(t, 6120, end)

	_, _, err = model.TimeSpan{Start: "bad", End: "00:01"}.Seconds()
	assert.Error(t, err)
}

func TestExampleDescriptionRoundTrips(t *testing.T) {
	ex := model.GetExampleDescription()
	parsed := model.ParseDescription(ex.String())
	assert.Equal(t, ex.String(), parsed.String())
	require.Len(t, parsed.Lines, len(ex.Lines))
	for i := range ex.Lines {
		assert.Equal(t, ex.Lines[i].Span, parsed.Lines[i].Span)
		assert.Equal(t, ex.Lines[i].Text, parsed.Lines[i].Text)
	}
}
