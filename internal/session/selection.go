package session

import (
	"context"
	"strings"

	"github.com/metcalfc/leaf/internal/span"
	"github.com/metcalfc/leaf/internal/translate"
)

// Lookup is a pending translation for one selection.
type Lookup struct {
	Seq      uint64
	Word     string
	Language string
}

// LookupResult is the outcome of a Lookup.
type LookupResult struct {
	Seq         uint64
	Word        string
	Translation span.Translation
	Err         error
}

// Run translates the word. It does not touch the session and may run on any
// goroutine.
func (l Lookup) Run(ctx context.Context, tr translate.Translator) LookupResult {
	res := LookupResult{Seq: l.Seq, Word: l.Word}
	if tr == nil {
		res.Err = translate.ErrNoTranslation
		return res
	}
	res.Translation, res.Err = tr.Translate(ctx, l.Word, l.Language)
	return res
}

// Select marks raw, found at [start, end) on the current page, as the word
// to translate. Words shorter than two characters after cleaning are
// ignored and ok is false. When the offsets do not lie on the page the
// first occurrence of the word is highlighted instead.
func (s *Session) Select(raw string, start, end int) (Lookup, bool) {
	cleaned := span.CleanWord(raw)
	if !span.IsLookupCandidate(cleaned) {
		return Lookup{}, false
	}

	page := s.PageText()
	if start < 0 || end <= start || end > len(page) {
		var ok bool
		if start, end, ok = span.LocateFirstOccurrence(page, cleaned); !ok {
			start, end = 0, 0
		}
	}

	s.seq++
	s.selection = &span.Selection{
		Seq:          s.seq,
		Word:         cleaned,
		OriginalWord: strings.TrimSpace(raw),
		Page:         s.page,
		Start:        start,
		End:          end,
	}
	s.translation = nil
	s.lookupErr = nil
	s.state = WordSelected

	s.log.Debug().Uint64("seq", s.seq).Str("word", cleaned).Int("page", s.page).Msg("word selected")
	return Lookup{Seq: s.seq, Word: cleaned, Language: s.book.Language}, true
}

// SelectAt selects the whitespace-delimited token covering byte offset pos
// of the current page.
func (s *Session) SelectAt(pos int) (Lookup, bool) {
	tokens := span.Tokens(s.PageText())
	i := span.TokenAt(tokens, pos)
	if i < 0 {
		return Lookup{}, false
	}
	return s.Select(tokens[i].Text, tokens[i].Start, tokens[i].End)
}

// Resolve applies a lookup result if it belongs to the current selection.
// Results for earlier or dismissed selections are dropped and false is
// returned.
func (s *Session) Resolve(res LookupResult) bool {
	if s.state != WordSelected || s.selection == nil || s.selection.Seq != res.Seq {
		s.log.Debug().Uint64("seq", res.Seq).Str("word", res.Word).Msg("dropped stale lookup")
		return false
	}

	if res.Err != nil {
		s.translation = nil
		s.lookupErr = res.Err
		s.log.Debug().Err(res.Err).Str("word", res.Word).Msg("lookup failed")
	} else {
		tr := res.Translation
		s.translation = &tr
		s.lookupErr = nil
	}
	s.state = WordTranslated
	return true
}

// Dismiss clears the selection and any translation.
func (s *Session) Dismiss() {
	s.clearSelection()
}

func (s *Session) clearSelection() {
	s.state = Idle
	s.selection = nil
	s.translation = nil
	s.lookupErr = nil
}
