package compose

import (
	"github.com/metcalfc/leaf/internal/span"
)

// Layers is everything that may highlight a page.
type Layers struct {
	Page            int    // 1-based
	BookID          string // when set, only words saved from this book apply
	Comments        []span.Comment
	ShowComments    bool
	Words           []span.DictionaryWord
	Selection       *span.Selection
	DictionaryColor string
	SelectionColor  string
}

// Collect gathers the spans that apply to the page described by l.
//
// Comments must belong to the page and pass the comment filter. Every
// distinct dictionary word of the book highlights its first occurrence only. The
// selection applies only when it sits on the same page.
func Collect(pageText string, l Layers) []span.Span {
	var out []span.Span

	if l.ShowComments {
		for _, c := range l.Comments {
			if c.PageNumber == l.Page {
				out = append(out, c.Span())
			}
		}
	}

	dictColor := l.DictionaryColor
	if dictColor == "" {
		dictColor = span.DefaultDictionaryColor
	}
	seen := make(map[string]bool, len(l.Words))
	for _, w := range l.Words {
		if l.BookID != "" && w.BookID != l.BookID {
			continue
		}
		key := span.CleanWord(w.Word)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true

		start, end, ok := span.LocateFirstOccurrence(pageText, key)
		if !ok {
			continue
		}
		out = append(out, span.Span{
			Variant: span.VariantDictionary,
			Page:    l.Page,
			Start:   start,
			End:     end,
			Color:   dictColor,
			Ref:     w.ID,
			Note:    w.Translation.FirstMeaning(),
		})
	}

	if sel := l.Selection; sel != nil && sel.Page == l.Page {
		color := l.SelectionColor
		if color == "" {
			color = span.DefaultSelectionColor
		}
		out = append(out, sel.Span(color))
	}

	return out
}
