package compose

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
)

// HTML renders the sequence as a block of escaped markup. Highlighted
// segments become <mark> elements carrying their variant and color.
func HTML(rs RenderSequence) string {
	var sb strings.Builder
	sb.WriteString(`<div class="page" style="white-space: pre-wrap">`)
	for _, s := range rs {
		text := html.EscapeString(s.Text)
		if !s.Highlighted {
			sb.WriteString(text)
			continue
		}
		fmt.Fprintf(&sb, `<mark data-variant="%s"`, html.EscapeString(string(s.Variant)))
		if s.Ref != "" {
			fmt.Fprintf(&sb, ` data-ref="%s"`, html.EscapeString(s.Ref))
		}
		if s.Note != "" {
			fmt.Fprintf(&sb, ` title="%s"`, html.EscapeString(s.Note))
		}
		if s.Color != "" {
			fmt.Fprintf(&sb, ` style="background-color: %s"`, html.EscapeString(s.Color))
		}
		sb.WriteString(">")
		sb.WriteString(text)
		sb.WriteString("</mark>")
	}
	sb.WriteString("</div>")
	return sb.String()
}
