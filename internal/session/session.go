// Package session holds the state of one open book: the current page, the
// word selected for translation, and the comments and dictionary words
// drawn over the page.
//
// A Session is not safe for concurrent use. Translation lookups run outside
// of it: Select returns a Lookup that can be run on any goroutine, and its
// result is handed back through Resolve, which drops results for a selection
// that is no longer current.
package session

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/metcalfc/leaf/internal/compose"
	"github.com/metcalfc/leaf/internal/library"
	"github.com/metcalfc/leaf/internal/span"
	"github.com/metcalfc/leaf/internal/translate"
)

var (
	// ErrSelectionTooShort rejects comments on fewer than three characters.
	ErrSelectionTooShort = errors.New("selection too short for a comment")
	// ErrAlreadyInDictionary is returned with the existing entry when a word
	// is added twice for the same book.
	ErrAlreadyInDictionary = errors.New("word already in dictionary")
	// ErrWordTooShort rejects dictionary words shorter than two characters.
	ErrWordTooShort = errors.New("word too short")
	// ErrNothingToAdd is returned when no translated selection exists.
	ErrNothingToAdd = errors.New("no translated word selected")
	// ErrWordNotFound is returned when editing an unknown dictionary word.
	ErrWordNotFound = errors.New("dictionary word not found")
)

// State is the selection state of a session.
type State int

const (
	Idle State = iota
	WordSelected
	WordTranslated
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case WordSelected:
		return "word-selected"
	case WordTranslated:
		return "word-translated"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Colors are the highlight colors used for new spans.
type Colors struct {
	Comment    string
	Dictionary string
	Selection  string
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the session logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Session) { s.log = l }
}

// WithClock sets the time source for creation and edit timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

// WithIDs sets the id generator for comments and dictionary words.
func WithIDs(newID func() string) Option {
	return func(s *Session) { s.newID = newID }
}

// WithColors overrides the highlight colors. Empty fields keep defaults.
func WithColors(c Colors) Option {
	return func(s *Session) {
		if c.Comment != "" {
			s.colors.Comment = c.Comment
		}
		if c.Dictionary != "" {
			s.colors.Dictionary = c.Dictionary
		}
		if c.Selection != "" {
			s.colors.Selection = c.Selection
		}
	}
}

// Session is the reader state for one book.
type Session struct {
	book library.Book
	lib  *library.Library
	tr   translate.Translator

	log    zerolog.Logger
	now    func() time.Time
	newID  func() string
	colors Colors

	page         int
	state        State
	seq          uint64
	selection    *span.Selection
	translation  *span.Translation
	lookupErr    error
	showComments bool

	comments []span.Comment
	words    []span.DictionaryWord
}

// New opens a session for book, restoring its comments, the dictionary and
// the last viewed page from lib.
func New(book library.Book, lib *library.Library, tr translate.Translator, opts ...Option) (*Session, error) {
	s := &Session{
		book:  book,
		lib:   lib,
		tr:    tr,
		log:   zerolog.Nop(),
		now:   time.Now,
		newID: uuid.NewString,
		colors: Colors{
			Comment:    span.DefaultCommentColor,
			Dictionary: span.DefaultDictionaryColor,
			Selection:  span.DefaultSelectionColor,
		},
		page:         1,
		showComments: true,
	}
	for _, opt := range opts {
		opt(s)
	}
	if len(s.book.Pages) == 0 {
		s.book.Repaginate(lib.Budget())
	}

	comments, err := lib.Comments(book.ID)
	if err != nil {
		return nil, fmt.Errorf("load comments: %w", err)
	}
	words, err := lib.Dictionary()
	if err != nil {
		return nil, fmt.Errorf("load dictionary: %w", err)
	}
	last, err := lib.LastPage(book.ID)
	if err != nil {
		s.log.Warn().Err(err).Str("book", book.ID).Msg("could not restore last page")
	}

	s.comments = comments
	s.words = words
	s.page = s.clamp(last)

	for _, c := range comments {
		if c.Drifted(s.book.Page(c.PageNumber)) {
			s.log.Warn().Str("comment", c.ID).Int("page", c.PageNumber).Msg("comment text no longer matches page")
		}
	}

	s.log.Debug().
		Str("book", book.ID).
		Int("page", s.page).
		Int("pages", s.TotalPages()).
		Int("comments", len(comments)).
		Msg("session opened")
	return s, nil
}

// Book returns the open book.
func (s *Session) Book() library.Book {
	return s.book
}

// Page returns the current 1-based page.
func (s *Session) Page() int {
	return s.page
}

// TotalPages returns the number of pages in the book.
func (s *Session) TotalPages() int {
	return len(s.book.Pages)
}

// PageText returns the text of the current page.
func (s *Session) PageText() string {
	return s.book.Page(s.page)
}

func (s *Session) clamp(n int) int {
	total := s.TotalPages()
	if n > total {
		n = total
	}
	if n < 1 {
		n = 1
	}
	return n
}

// ChangePage moves to page n, clamped to the book, and returns the page
// shown. The selection is always cleared.
func (s *Session) ChangePage(n int) int {
	s.clearSelection()
	s.page = s.clamp(n)

	if err := s.lib.SetLastPage(s.book.ID, s.page); err != nil {
		s.log.Warn().Err(err).Str("book", s.book.ID).Int("page", s.page).Msg("could not save last page")
	}
	return s.page
}

// NextPage moves forward one page.
func (s *Session) NextPage() int {
	return s.ChangePage(s.page + 1)
}

// PrevPage moves back one page.
func (s *Session) PrevPage() int {
	return s.ChangePage(s.page - 1)
}

// SetShowComments toggles comment highlighting.
func (s *Session) SetShowComments(show bool) {
	s.showComments = show
}

// ShowComments reports whether comments are highlighted.
func (s *Session) ShowComments() bool {
	return s.showComments
}

// Render composes the current page with its comments, dictionary words and
// selection.
func (s *Session) Render() compose.RenderSequence {
	page := s.PageText()
	spans := compose.Collect(page, compose.Layers{
		Page:            s.page,
		BookID:          s.book.ID,
		Comments:        s.comments,
		ShowComments:    s.showComments,
		Words:           s.words,
		Selection:       s.selection,
		DictionaryColor: s.colors.Dictionary,
		SelectionColor:  s.colors.Selection,
	})
	return compose.Compose(page, spans)
}

// Snapshot is a read-only view of the selection state.
type Snapshot struct {
	State        State
	Page         int
	TotalPages   int
	ShowComments bool
	Selection    *span.Selection
	Translation  *span.Translation
	Err          error
}

// Snapshot returns the current state for display.
func (s *Session) Snapshot() Snapshot {
	snap := Snapshot{
		State:        s.state,
		Page:         s.page,
		TotalPages:   s.TotalPages(),
		ShowComments: s.showComments,
		Err:          s.lookupErr,
	}
	if s.selection != nil {
		sel := *s.selection
		snap.Selection = &sel
	}
	if s.translation != nil {
		tr := *s.translation
		snap.Translation = &tr
	}
	return snap
}

// Comments returns the book's comments, optionally only those on the
// current page.
func (s *Session) Comments(onlyCurrentPage bool) []span.Comment {
	out := make([]span.Comment, 0, len(s.comments))
	for _, c := range s.comments {
		if !onlyCurrentPage || c.PageNumber == s.page {
			out = append(out, c)
		}
	}
	return out
}

// Words returns the dictionary. With onlyCurrentPage set only words added
// from the current page of this book are returned.
func (s *Session) Words(onlyCurrentPage bool) []span.DictionaryWord {
	out := make([]span.DictionaryWord, 0, len(s.words))
	for _, w := range s.words {
		if !onlyCurrentPage || (w.BookID == s.book.ID && w.PageNumber == s.page) {
			out = append(out, w)
		}
	}
	return out
}

// AddComment attaches commentText to the first occurrence of selectedText
// on page. When the text is not found the comment covers the first
// len(selectedText) bytes of the page.
func (s *Session) AddComment(selectedText, commentText, color string, page int) (span.Comment, error) {
	if utf8.RuneCountInString(strings.TrimSpace(selectedText)) < span.MinSelectionLength {
		return span.Comment{}, ErrSelectionTooShort
	}
	page = s.clamp(page)

	start, end, ok := span.LocateText(s.book.Page(page), selectedText)
	if !ok {
		start, end = 0, len(selectedText)
		s.log.Debug().Int("page", page).Msg("comment text not found on page")
	}
	return s.addComment(page, start, end, selectedText, commentText, color)
}

// AddCommentAt attaches commentText to the byte range [start, end) of the
// current page.
func (s *Session) AddCommentAt(start, end int, commentText, color string) (span.Comment, error) {
	text := s.PageText()
	start = max(0, min(start, len(text)))
	end = max(start, min(end, len(text)))
	for start < end && !utf8.RuneStart(text[start]) {
		start++
	}
	for end < len(text) && !utf8.RuneStart(text[end]) {
		end++
	}

	selected := text[start:end]
	if utf8.RuneCountInString(strings.TrimSpace(selected)) < span.MinSelectionLength {
		return span.Comment{}, ErrSelectionTooShort
	}
	return s.addComment(s.page, start, end, selected, commentText, color)
}

func (s *Session) addComment(page, start, end int, selected, commentText, color string) (span.Comment, error) {
	if color == "" {
		color = s.colors.Comment
	}
	c := span.Comment{
		ID:           s.newID(),
		BookID:       s.book.ID,
		PageNumber:   page,
		StartIndex:   start,
		EndIndex:     end,
		SelectedText: selected,
		CommentText:  strings.TrimSpace(commentText),
		Color:        color,
		CreatedAt:    s.now(),
	}

	updated := append(slices.Clone(s.comments), c)
	if err := s.lib.SaveComments(s.book.ID, updated); err != nil {
		return span.Comment{}, err
	}
	s.comments = updated

	s.log.Info().Str("comment", c.ID).Int("page", page).Int("start", start).Int("end", end).Msg("comment added")
	return c, nil
}

// DeleteComment removes a comment. It reports whether the comment existed.
func (s *Session) DeleteComment(id string) (bool, error) {
	idx := slices.IndexFunc(s.comments, func(c span.Comment) bool { return c.ID == id })
	if idx < 0 {
		return false, nil
	}

	updated := slices.Delete(slices.Clone(s.comments), idx, idx+1)
	if err := s.lib.SaveComments(s.book.ID, updated); err != nil {
		return false, err
	}
	s.comments = updated

	s.log.Info().Str("comment", id).Msg("comment deleted")
	return true, nil
}

// AddDictionaryWord stores word with its translation. A word already stored
// for this book returns the existing entry and ErrAlreadyInDictionary.
func (s *Session) AddDictionaryWord(word, originalWord string, tr span.Translation, page int) (span.DictionaryWord, error) {
	cleaned := span.CleanWord(word)
	if !span.IsLookupCandidate(cleaned) {
		return span.DictionaryWord{}, ErrWordTooShort
	}
	if existing, ok := s.findWord(cleaned); ok {
		return existing, ErrAlreadyInDictionary
	}

	page = s.clamp(page)
	position := 0
	if start, _, ok := span.LocateFirstOccurrence(s.book.Page(page), cleaned); ok {
		position = start
	}
	if tr.Word == "" {
		tr.Word = cleaned
	}
	if originalWord == "" {
		originalWord = word
	}

	w := span.DictionaryWord{
		ID:           s.newID(),
		Word:         cleaned,
		OriginalWord: strings.TrimSpace(originalWord),
		Translation:  tr,
		BookID:       s.book.ID,
		PageNumber:   page,
		Position:     position,
		LastEdited:   s.now(),
	}

	updated := append(slices.Clone(s.words), w)
	if err := s.lib.SaveDictionary(updated); err != nil {
		return span.DictionaryWord{}, err
	}
	s.words = updated

	s.log.Info().Str("word", cleaned).Int("page", page).Msg("dictionary word added")
	return w, nil
}

func (s *Session) findWord(cleaned string) (span.DictionaryWord, bool) {
	for _, w := range s.words {
		if w.BookID == s.book.ID && span.CleanWord(w.Word) == cleaned {
			return w, true
		}
	}
	return span.DictionaryWord{}, false
}

// AddSelectionToDictionary stores the translated selection and returns to
// Idle.
func (s *Session) AddSelectionToDictionary() (span.DictionaryWord, error) {
	if s.state != WordTranslated || s.selection == nil || s.translation == nil {
		return span.DictionaryWord{}, ErrNothingToAdd
	}

	sel := *s.selection
	w, err := s.AddDictionaryWord(sel.Word, sel.OriginalWord, *s.translation, sel.Page)
	if err != nil && !errors.Is(err, ErrAlreadyInDictionary) {
		return w, err
	}
	s.clearSelection()
	return w, err
}

// DeleteDictionaryWord removes a word. It reports whether the word existed.
func (s *Session) DeleteDictionaryWord(id string) (bool, error) {
	idx := slices.IndexFunc(s.words, func(w span.DictionaryWord) bool { return w.ID == id })
	if idx < 0 {
		return false, nil
	}

	updated := slices.Delete(slices.Clone(s.words), idx, idx+1)
	if err := s.lib.SaveDictionary(updated); err != nil {
		return false, err
	}
	s.words = updated

	s.log.Info().Str("word", id).Msg("dictionary word deleted")
	return true, nil
}

// EditDictionaryWord replaces the meanings and user examples of a word.
// The meanings from the first lookup are kept as the original meanings.
func (s *Session) EditDictionaryWord(id string, meanings, examples []string) (span.DictionaryWord, error) {
	idx := slices.IndexFunc(s.words, func(w span.DictionaryWord) bool { return w.ID == id })
	if idx < 0 {
		return span.DictionaryWord{}, fmt.Errorf("%w: %s", ErrWordNotFound, id)
	}

	updated := slices.Clone(s.words)
	w := updated[idx]
	if !w.Translation.UserEdited {
		w.Translation.OriginalMeanings = slices.Clone(w.Translation.Meanings)
	}
	w.Translation.Meanings = compact(meanings)
	w.Translation.UserEdited = true
	w.UserExamples = compact(examples)
	w.LastEdited = s.now()
	updated[idx] = w

	if err := s.lib.SaveDictionary(updated); err != nil {
		return span.DictionaryWord{}, err
	}
	s.words = updated

	s.log.Info().Str("word", w.Word).Int("meanings", len(w.Translation.Meanings)).Msg("dictionary word edited")
	return w, nil
}

// compact trims entries and drops empty ones.
func compact(in []string) []string {
	var out []string
	for _, v := range in {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// Run performs a lookup with the session's translator.
func (s *Session) Run(ctx context.Context, l Lookup) LookupResult {
	return l.Run(ctx, s.tr)
}
