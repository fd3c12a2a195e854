package span

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	// MinWordLength is the shortest cleaned word accepted for lookup.
	MinWordLength = 2
	// MinSelectionLength is the shortest passage that can carry a comment.
	MinSelectionLength = 3
)

// stripped are removed anywhere in a token, not only at its ends.
const stripped = ".,!?;:()\"'`"

// CleanWord prepares a raw token for dictionary and translation lookups.
func CleanWord(raw string) string {
	cleaned := strings.Map(func(r rune) rune {
		if strings.ContainsRune(stripped, r) {
			return -1
		}
		return r
	}, raw)
	return strings.TrimSpace(strings.ToLower(cleaned))
}

// IsLookupCandidate reports whether a cleaned word is long enough to look up.
func IsLookupCandidate(cleaned string) bool {
	return utf8.RuneCountInString(cleaned) >= MinWordLength
}

// LocateFirstOccurrence finds the first case-insensitive whole-word match of
// word in pageText and returns its byte range.
func LocateFirstOccurrence(pageText, word string) (start, end int, ok bool) {
	word = strings.TrimSpace(word)
	if word == "" {
		return 0, 0, false
	}
	n := utf8.RuneCountInString(word)

	prevIsWord := false
	for i := 0; i < len(pageText); {
		r, size := utf8.DecodeRuneInString(pageText[i:])
		if !prevIsWord {
			if j, full := advanceRunes(pageText, i, n); full &&
				strings.EqualFold(pageText[i:j], word) &&
				!wordRuneAt(pageText, j) {
				return i, j, true
			}
		}
		prevIsWord = isWordRune(r)
		i += size
	}
	return 0, 0, false
}

// LocateText finds the first exact occurrence of text in pageText.
func LocateText(pageText, text string) (start, end int, ok bool) {
	if text == "" {
		return 0, 0, false
	}
	idx := strings.Index(pageText, text)
	if idx < 0 {
		return 0, 0, false
	}
	return idx, idx + len(text), true
}

// Token is a whitespace-delimited run of text on a page.
type Token struct {
	Text  string
	Start int
	End   int
}

// Tokens splits pageText on whitespace and keeps byte offsets.
func Tokens(pageText string) []Token {
	var out []Token
	start := -1
	for i, r := range pageText {
		if unicode.IsSpace(r) {
			if start >= 0 {
				out = append(out, Token{Text: pageText[start:i], Start: start, End: i})
				start = -1
			}
			continue
		}
		if start < 0 {
			start = i
		}
	}
	if start >= 0 {
		out = append(out, Token{Text: pageText[start:], Start: start, End: len(pageText)})
	}
	return out
}

// TokenAt returns the index of the token covering byte offset off, or -1.
func TokenAt(tokens []Token, off int) int {
	for i, t := range tokens {
		if off >= t.Start && off < t.End {
			return i
		}
	}
	return -1
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.Is(unicode.Mn, r)
}

func wordRuneAt(s string, i int) bool {
	if i >= len(s) {
		return false
	}
	r, _ := utf8.DecodeRuneInString(s[i:])
	return isWordRune(r)
}

// advanceRunes returns the byte offset n runes after i.
func advanceRunes(s string, i, n int) (int, bool) {
	for ; n > 0; n-- {
		if i >= len(s) {
			return i, false
		}
		_, size := utf8.DecodeRuneInString(s[i:])
		i += size
	}
	return i, true
}
