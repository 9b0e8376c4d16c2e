package articulation

import (
	"encoding/json"
	"strings"
)

// DefaultCodeLanguage is the language reported for a fence without a tag, so
// renderers never have to special-case an empty language.
const DefaultCodeLanguage = "code"

// SegmentKind discriminates the Segment variants on the wire.
type SegmentKind string

const (
	KindCode SegmentKind = "code"
	KindText SegmentKind = "text"
)

// Segment is one renderable unit of a normalized message: a CodeSegment or a
// TextSegment. The interface is sealed.
type Segment interface {
	Kind() SegmentKind
	isSegment()
}

// CodeSegment is a fenced code block.
type CodeSegment struct {
	Language string
	Code     string
}

func (CodeSegment) Kind() SegmentKind { return KindCode }
func (CodeSegment) isSegment()        {}

// MarshalJSON encodes the segment with its kind discriminator.
func (c CodeSegment) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Kind     SegmentKind `json:"kind"`
		Language string      `json:"language"`
		Code     string      `json:"code"`
	}{KindCode, c.Language, c.Code})
}

// TextSegment is a run of prose with inline links, in source order.
type TextSegment struct {
	Runs []TextRun
}

func (TextSegment) Kind() SegmentKind { return KindText }
func (TextSegment) isSegment()        {}

// MarshalJSON encodes the segment with its kind discriminator.
func (t TextSegment) MarshalJSON() ([]byte, error) {
	runs := t.Runs
	if runs == nil {
		runs = []TextRun{}
	}
	return json.Marshal(struct {
		Kind SegmentKind `json:"kind"`
		Runs []TextRun   `json:"runs"`
	}{KindText, runs})
}

// TextRun is a PlainRun or a LinkRun. The interface is sealed.
type TextRun interface {
	isTextRun()
}

// PlainRun is literal prose.
type PlainRun struct {
	Text string
}

func (PlainRun) isTextRun() {}

// MarshalJSON encodes the run with its kind discriminator.
func (p PlainRun) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Kind string `json:"kind"`
		Text string `json:"text"`
	}{"plain", p.Text})
}

// LinkRun is an inline [label](target) link. Target is passed through
// unvalidated; scheme and route checks belong to whoever navigates.
type LinkRun struct {
	Label  string
	Target string
}

func (LinkRun) isTextRun() {}

// MarshalJSON encodes the run with its kind discriminator.
func (l LinkRun) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Kind   string `json:"kind"`
		Label  string `json:"label"`
		Target string `json:"target"`
	}{"link", l.Label, l.Target})
}

// CodeBlocks returns the code segments of segs in order.
func CodeBlocks(segs []Segment) []CodeSegment {
	var out []CodeSegment
	for _, s := range segs {
		if c, ok := s.(CodeSegment); ok {
			out = append(out, c)
		}
	}
	return out
}

// Links returns every link run of segs in order.
func Links(segs []Segment) []LinkRun {
	var out []LinkRun
	for _, s := range segs {
		t, ok := s.(TextSegment)
		if !ok {
			continue
		}
		for _, r := range t.Runs {
			if l, ok := r.(LinkRun); ok {
				out = append(out, l)
			}
		}
	}
	return out
}

// PlainText flattens segs back into readable text: links become their label,
// code blocks their code. Segments are separated by a blank line.
func PlainText(segs []Segment) string {
	parts := make([]string, 0, len(segs))
	for _, s := range segs {
		switch v := s.(type) {
		case CodeSegment:
			parts = append(parts, v.Code)
		case TextSegment:
			var sb strings.Builder
			for _, r := range v.Runs {
				switch run := r.(type) {
				case PlainRun:
					sb.WriteString(run.Text)
				case LinkRun:
					sb.WriteString(run.Label)
				}
			}
			parts = append(parts, sb.String())
		}
	}
	return strings.Join(parts, "\n\n")
}
