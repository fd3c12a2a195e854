// Package compose merges a page of text with its annotation spans into an
// ordered, non-overlapping sequence of segments that any UI can render.
package compose

import (
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/metcalfc/leaf/internal/span"
)

// Segment is a run of page text, either plain or highlighted by one span.
type Segment struct {
	Text        string
	Highlighted bool
	Variant     span.Variant
	Color       string
	Ref         string
	Note        string
}

// RenderSequence is the composed form of a page.
type RenderSequence []Segment

// Text concatenates every segment. It always equals the composed page text.
func (rs RenderSequence) Text() string {
	var sb strings.Builder
	for _, s := range rs {
		sb.WriteString(s.Text)
	}
	return sb.String()
}

// Highlights returns only the highlighted segments.
func (rs RenderSequence) Highlights() []Segment {
	var out []Segment
	for _, s := range rs {
		if s.Highlighted {
			out = append(out, s)
		}
	}
	return out
}

// Compose resolves spans over pageText.
//
// Spans are ordered by start offset, ties broken by variant priority. When
// spans overlap, the one that starts first keeps the shared region and the
// later one is clipped to what remains after it, or dropped entirely.
func Compose(pageText string, spans []span.Span) RenderSequence {
	active := normalize(pageText, spans)
	if len(active) == 0 {
		return RenderSequence{{Text: pageText}}
	}

	sort.SliceStable(active, func(i, j int) bool {
		if active[i].Start != active[j].Start {
			return active[i].Start < active[j].Start
		}
		return active[i].Variant.Priority() < active[j].Variant.Priority()
	})

	var out RenderSequence
	cursor := 0
	for _, s := range active {
		start := max(s.Start, cursor)
		if start >= s.End {
			continue
		}
		if start > cursor {
			out = append(out, Segment{Text: pageText[cursor:start]})
		}
		out = append(out, Segment{
			Text:        pageText[start:s.End],
			Highlighted: true,
			Variant:     s.Variant,
			Color:       s.Color,
			Ref:         s.Ref,
			Note:        s.Note,
		})
		cursor = s.End
	}
	if cursor < len(pageText) {
		out = append(out, Segment{Text: pageText[cursor:]})
	}
	return out
}

// normalize clamps spans into the page, snaps them onto rune boundaries and
// drops the ones that cover nothing.
func normalize(pageText string, spans []span.Span) []span.Span {
	out := make([]span.Span, 0, len(spans))
	for _, s := range spans {
		s.Start = snap(pageText, clamp(s.Start, 0, len(pageText)))
		s.End = snap(pageText, clamp(s.End, 0, len(pageText)))
		if s.Len() <= 0 {
			continue
		}
		out = append(out, s)
	}
	return out
}

func clamp(v, lo, hi int) int {
	return min(max(v, lo), hi)
}

// snap moves i back to the start of the rune it falls inside.
func snap(s string, i int) int {
	for i > 0 && i < len(s) && !utf8.RuneStart(s[i]) {
		i--
	}
	return i
}
