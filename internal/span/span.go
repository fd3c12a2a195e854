// Package span models the annotation spans drawn over a reader page:
// saved comments, occurrences of dictionary words and the transient word
// selection used for translation lookups.
package span

import (
	"time"
)

// Variant identifies what produced a span.
type Variant string

const (
	VariantComment    Variant = "comment"
	VariantDictionary Variant = "dictionary"
	VariantSelection  Variant = "selection"
)

// Priority orders variants that start at the same offset. Lower wins.
func (v Variant) Priority() int {
	switch v {
	case VariantComment:
		return 0
	case VariantDictionary:
		return 1
	case VariantSelection:
		return 2
	default:
		return 3
	}
}

// Default display colors. They are hints for the UI only.
const (
	DefaultCommentColor    = "#fff59d"
	DefaultDictionaryColor = "#bbdefb"
	DefaultSelectionColor  = "#ffcc80"
)

// Span is a half-open byte range [Start, End) on a single page.
type Span struct {
	Variant Variant
	Page    int // 1-based
	Start   int
	End     int
	Color   string
	Ref     string // id of the comment or dictionary word, if any
	Note    string // comment text or first meaning
}

// Len returns the number of bytes covered by the span.
func (s Span) Len() int {
	return s.End - s.Start
}

// Comment is a user note attached to a passage of a page.
type Comment struct {
	ID           string    `json:"id"`
	BookID       string    `json:"bookId"`
	PageNumber   int       `json:"pageNumber"`
	StartIndex   int       `json:"startIndex"`
	EndIndex     int       `json:"endIndex"`
	SelectedText string    `json:"selectedText"`
	CommentText  string    `json:"commentText"`
	Color        string    `json:"color"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Span converts the comment into a renderable span.
func (c Comment) Span() Span {
	return Span{
		Variant: VariantComment,
		Page:    c.PageNumber,
		Start:   c.StartIndex,
		End:     c.EndIndex,
		Color:   c.Color,
		Ref:     c.ID,
		Note:    c.CommentText,
	}
}

// Drifted reports whether the stored selection no longer matches the page
// text at the stored offsets. Drifted comments are still rendered.
func (c Comment) Drifted(pageText string) bool {
	if c.StartIndex < 0 || c.EndIndex > len(pageText) || c.StartIndex > c.EndIndex {
		return true
	}
	return pageText[c.StartIndex:c.EndIndex] != c.SelectedText
}

// Translation is a resolved lookup for a single word.
type Translation struct {
	Word             string   `json:"word"`
	Meanings         []string `json:"meanings"`
	Transcription    string   `json:"transcription,omitempty"`
	Examples         []string `json:"examples,omitempty"`
	UserEdited       bool     `json:"isUserEdited,omitempty"`
	OriginalMeanings []string `json:"originalMeanings,omitempty"`
}

// FirstMeaning returns the first meaning or an empty string.
func (t Translation) FirstMeaning() string {
	if len(t.Meanings) == 0 {
		return ""
	}
	return t.Meanings[0]
}

// DictionaryWord is an entry in the user's vocabulary list.
type DictionaryWord struct {
	ID           string      `json:"id"`
	Word         string      `json:"word"`
	OriginalWord string      `json:"originalWord"`
	Translation  Translation `json:"translation"`
	BookID       string      `json:"bookId"`
	PageNumber   int         `json:"pageNumber,omitempty"`
	Position     int         `json:"position"`
	UserExamples []string    `json:"userExamples,omitempty"`
	LastEdited   time.Time   `json:"lastEdited"`
}

// Selection is the word currently clicked for translation. It is never
// persisted.
type Selection struct {
	Seq          uint64
	Word         string // cleaned
	OriginalWord string
	Page         int
	Start        int
	End          int
}

// Span converts the selection into a renderable span.
func (s Selection) Span(color string) Span {
	return Span{
		Variant: VariantSelection,
		Page:    s.Page,
		Start:   s.Start,
		End:     s.End,
		Color:   color,
		Note:    s.Word,
	}
}
