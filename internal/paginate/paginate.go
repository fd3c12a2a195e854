// Package paginate splits extracted document text into reader pages.
//
// Pages are built from whole paragraphs whenever possible. A paragraph that
// cannot fit on a page by itself is broken at sentence boundaries instead.
// The budget is measured in characters (runes), not bytes.
package paginate

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// DefaultBudget is the target number of characters per page.
const DefaultBudget = 3000

const (
	paragraphSep = "\n\n"
	sentenceSep  = " "
)

// paragraphBreak matches a blank line. Because \s also matches newlines,
// runs of blank lines collapse into a single break.
var paragraphBreak = regexp.MustCompile(`\n\s*\n`)

// Paginate splits text into pages of at most budget characters.
//
// Text that already fits is returned as the only page, untouched. A page can
// exceed the budget only when a single sentence is longer than the budget.
// A budget of zero or less selects DefaultBudget.
func Paginate(text string, budget int) []string {
	if budget <= 0 {
		budget = DefaultBudget
	}
	if utf8.RuneCountInString(text) <= budget {
		return []string{text}
	}

	b := &builder{budget: budget}
	for _, para := range SplitParagraphs(text) {
		if utf8.RuneCountInString(para) > budget {
			b.flush()
			for _, sentence := range SplitSentences(para) {
				b.add(sentence, sentenceSep)
			}
			// The tail of a long paragraph stays open so the next
			// paragraph can share its page.
			continue
		}
		b.add(para, paragraphSep)
	}
	b.flush()

	if len(b.pages) == 0 {
		return []string{strings.TrimSpace(text)}
	}
	return b.pages
}

// SplitParagraphs splits text on blank lines and returns the trimmed,
// non-empty paragraphs in order.
func SplitParagraphs(text string) []string {
	parts := paragraphBreak.Split(text, -1)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// SplitSentences splits a paragraph after every '.', '!' or '?' that is
// followed by whitespace. The whitespace itself is dropped.
func SplitSentences(paragraph string) []string {
	var out []string
	start := 0
	for i := 0; i < len(paragraph); {
		r, size := utf8.DecodeRuneInString(paragraph[i:])
		i += size
		if r != '.' && r != '!' && r != '?' {
			continue
		}

		j := i
		for j < len(paragraph) {
			w, ws := utf8.DecodeRuneInString(paragraph[j:])
			if !unicode.IsSpace(w) {
				break
			}
			j += ws
		}
		if j == i || j == len(paragraph) {
			continue
		}

		out = append(out, paragraph[start:i])
		start = j
		i = j
	}
	if start < len(paragraph) {
		out = append(out, paragraph[start:])
	}
	return out
}

// builder accumulates pieces into the current page and closes pages that
// would overflow.
type builder struct {
	budget  int
	pages   []string
	current strings.Builder
	length  int
}

func (b *builder) add(piece, sep string) {
	n := utf8.RuneCountInString(piece)
	if b.length == 0 {
		b.current.WriteString(piece)
		b.length = n
		return
	}
	if b.length+utf8.RuneCountInString(sep)+n > b.budget {
		b.flush()
		b.current.WriteString(piece)
		b.length = n
		return
	}
	b.current.WriteString(sep)
	b.current.WriteString(piece)
	b.length += utf8.RuneCountInString(sep) + n
}

func (b *builder) flush() {
	if page := strings.TrimSpace(b.current.String()); page != "" {
		b.pages = append(b.pages, page)
	}
	b.current.Reset()
	b.length = 0
}
