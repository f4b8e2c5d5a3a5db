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

package model

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// descriptionLinePattern matches "[mm:ss - mm:ss] text". Minutes may run past
// two digits for long videos.
var descriptionLinePattern = regexp.MustCompile(`^\[(\d{1,3}:[0-5]\d)\s*-\s*(\d{1,3}:[0-5]\d)\]\s*(.+)$`)

// TimeSpan represents a time interval within a video in "mm:ss" form.
type TimeSpan struct {
	Start string `json:"start"` // The start of the span, e.g. "00:05".
	End   string `json:"end"`   // The end of the span, e.g. "00:10".
}

// Seconds converts both ends of the span to seconds from the start of the video.
func (t TimeSpan) Seconds() (start int, end int, err error) {
	if start, err = clockToSeconds(t.Start); err != nil {
		return 0, 0, err
	}
	if end, err = clockToSeconds(t.End); err != nil {
		return 0, 0, err
	}
	return start, end, nil
}

func clockToSeconds(in string) (int, error) {
	mm, ss, ok := strings.Cut(in, ":")
	if !ok {
		return 0, fmt.Errorf("invalid timestamp %q", in)
	}
	m, err := strconv.Atoi(mm)
	if err != nil {
		return 0, fmt.Errorf("invalid minutes in %q: %w", in, err)
	}
	s, err := strconv.Atoi(ss)
	if err != nil {
		return 0, fmt.Errorf("invalid seconds in %q: %w", in, err)
	}
	return m*60 + s, nil
}

// DescriptionLine is a single synchronized audio description.
type DescriptionLine struct {
	Span TimeSpan `json:"span"`
	Text string   `json:"text"`
	Raw  string   `json:"-"` // The line as the model wrote it, when parsed.
}

// String returns the line as received, or the canonical form when the line
// was built in code.
func (l DescriptionLine) String() string {
	if l.Raw != "" {
		return l.Raw
	}
	return fmt.Sprintf("[%s - %s] %s", l.Span.Start, l.Span.End, l.Text)
}

// Description is the ordered set of lines produced for one asset. Its string
// form is what gets stored in the asset table.
type Description struct {
	Lines []DescriptionLine `json:"lines"`
}

func (d *Description) String() string {
	out := make([]string, 0, len(d.Lines))
	for _, l := range d.Lines {
		out = append(out, l.String())
	}
	return strings.Join(out, "\n")
}

// Validate reports the first line whose span cannot be read or ends before it
// starts.
func (d *Description) Validate() error {
	for i, l := range d.Lines {
		start, end, err := l.Span.Seconds()
		if err != nil {
			return fmt.Errorf("line %d: %w", i+1, err)
		}
		if end < start {
			return fmt.Errorf("line %d: span %s - %s ends before it starts", i+1, l.Span.Start, l.Span.End)
		}
	}
	return nil
}

// ParseDescription extracts every well formed line from raw model output.
// Headings, blank lines and any other text are dropped. Kept lines lose only
// their surrounding whitespace.
func ParseDescription(raw string) *Description {
	out := &Description{Lines: make([]DescriptionLine, 0)}
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		m := descriptionLinePattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		out.Lines = append(out.Lines, DescriptionLine{
			Span: TimeSpan{Start: m[1], End: m[2]},
			Text: strings.TrimSpace(m[3]),
			Raw:  line,
		})
	}
	return out
}

// GetExampleDescription returns the sample used in the description agent's
// instruction to illustrate a valid response.
func GetExampleDescription() *Description {
	return &Description{Lines: []DescriptionLine{
		{Span: TimeSpan{Start: "00:00", End: "00:05"}, Text: "A person is standing in front of a table."},
		{Span: TimeSpan{Start: "00:05", End: "00:10"}, Text: "A person is sitting at a desk."},
		{Span: TimeSpan{Start: "00:10", End: "00:15"}, Text: "A person is standing in front of a table."},
	}}
}
