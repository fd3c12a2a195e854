package main

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/metcalfc/leaf/internal/compose"
	"github.com/metcalfc/leaf/internal/span"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFFFFF"))

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888")).
			Padding(0, 1)

	controlsStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666")).
			Italic(true)

	translationStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#00FF00")).
				Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFAA00")).
			Bold(true)
)

// cursorRange is the byte range of the page under the word cursor.
type cursorRange struct {
	start, end int
}

var noCursor = cursorRange{-1, -1}

type segmentStyles struct {
	highlightFg lipgloss.Color
	cursor      func(lipgloss.Style) lipgloss.Style
}

var defaultSegmentStyles = segmentStyles{
	highlightFg: lipgloss.Color("#000000"),
	cursor: func(s lipgloss.Style) lipgloss.Style {
		return s.Reverse(true)
	},
}

func (st segmentStyles) highlight(seg compose.Segment) lipgloss.Style {
	s := lipgloss.NewStyle().Foreground(st.highlightFg)
	if seg.Color != "" {
		s = s.Background(lipgloss.Color(seg.Color))
	}
	switch seg.Variant {
	case span.VariantComment:
		s = s.Underline(true)
	case span.VariantSelection:
		s = s.Bold(true)
	}
	return s
}

// renderSegments styles a composed page. Text outside highlights is written
// as is; the cursor range is drawn reversed on top of whatever it covers.
func renderSegments(rs compose.RenderSequence, cur cursorRange, st segmentStyles) string {
	var sb strings.Builder
	off := 0
	for _, seg := range rs {
		start, end := off, off+len(seg.Text)
		off = end

		var style *lipgloss.Style
		if seg.Highlighted {
			s := st.highlight(seg)
			style = &s
		}

		cs, ce := max(cur.start, start), min(cur.end, end)
		if cur.start < 0 || cs >= ce {
			writeStyled(&sb, style, seg.Text)
			continue
		}

		cursorStyle := lipgloss.NewStyle()
		if style != nil {
			cursorStyle = *style
		}
		cursorStyle = st.cursor(cursorStyle)

		writeStyled(&sb, style, seg.Text[:cs-start])
		writeStyled(&sb, &cursorStyle, seg.Text[cs-start:ce-start])
		writeStyled(&sb, style, seg.Text[ce-start:])
	}
	return sb.String()
}

// writeStyled renders text line by line so multi-line segments are not
// padded to a common width.
func writeStyled(sb *strings.Builder, style *lipgloss.Style, text string) {
	if style == nil {
		sb.WriteString(text)
		return
	}
	for i, line := range strings.Split(text, "\n") {
		if i > 0 {
			sb.WriteByte('\n')
		}
		if line != "" {
			sb.WriteString(style.Render(line))
		}
	}
}
