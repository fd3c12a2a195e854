package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/metcalfc/leaf/internal/library"
	"github.com/metcalfc/leaf/internal/span"
	"github.com/metcalfc/leaf/internal/state"
)

var testNow = time.Date(2024, 6, 1, 9, 30, 0, 0, time.UTC)

type dictTranslator map[string]string

func (d dictTranslator) Translate(_ context.Context, word, _ string) (span.Translation, error) {
	m, ok := d[word]
	if !ok {
		return span.Translation{}, errors.New("unknown word")
	}
	return span.Translation{Word: word, Meanings: []string{m}, Transcription: "[" + word + "]"}, nil
}

type failingStore struct {
	*state.MemoryStore
	fail bool
}

func (f *failingStore) Save(key string, data []byte) error {
	if f.fail {
		return errors.New("read-only")
	}
	return f.MemoryStore.Save(key, data)
}

func testBook() library.Book {
	pages := []string{
		"Once upon a time there was a fox.",
		"I saw the quick fox jump over the quick dog.",
		"The end.",
	}
	return library.Book{
		ID:         "book-1",
		Title:      "Fox",
		Language:   "en",
		Pages:      pages,
		TotalPages: len(pages),
		PageBudget: 50,
	}
}

type fixture struct {
	store *failingStore
	lib   *library.Library
	sess  *Session
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := &failingStore{MemoryStore: state.NewMemoryStore()}
	lib := library.New(store, 50, zerolog.Nop())
	return &fixture{store: store, lib: lib, sess: openSession(t, lib)}
}

func openSession(t *testing.T, lib *library.Library) *Session {
	t.Helper()
	n := 0
	sess, err := New(testBook(), lib, dictTranslator{"quick": "быстрый", "fox": "лиса"},
		WithClock(func() time.Time { return testNow }),
		WithIDs(func() string { n++; return fmt.Sprintf("id-%d", n) }),
	)
	require.NoError(t, err)
	return sess
}

func TestNewStartsAtFirstPage(t *testing.T) {
	f := newFixture(t)

	assert.Equal(t, 1, f.sess.Page())
	assert.Equal(t, 3, f.sess.TotalPages())
	assert.Equal(t, "Once upon a time there was a fox.", f.sess.PageText())
	assert.Equal(t, Idle, f.sess.Snapshot().State)
	assert.True(t, f.sess.ShowComments())
}

func TestNewRestoresLastPage(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.lib.SetLastPage("book-1", 3))
	assert.Equal(t, 3, openSession(t, f.lib).Page())

	require.NoError(t, f.lib.SetLastPage("book-1", 99))
	assert.Equal(t, 3, openSession(t, f.lib).Page(), "stored page is clamped")
}

func TestNewPaginatesBookWithoutPages(t *testing.T) {
	lib := library.New(state.NewMemoryStore(), 3000, zerolog.Nop())
	sess, err := New(library.Book{ID: "x", Content: "Just one page."}, lib, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, sess.TotalPages())
	assert.Equal(t, "Just one page.", sess.PageText())
}

func TestChangePage(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		in   int
		want int
	}{
		{2, 2},
		{3, 3},
		{4, 3},
		{0, 1},
		{-7, 1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, f.sess.ChangePage(tt.in), "ChangePage(%d)", tt.in)
	}

	f.sess.ChangePage(2)
	last, err := f.lib.LastPage("book-1")
	require.NoError(t, err)
	assert.Equal(t, 2, last)

	assert.Equal(t, 3, f.sess.NextPage())
	assert.Equal(t, 3, f.sess.NextPage())
	assert.Equal(t, 2, f.sess.PrevPage())
}

func TestChangePageSurvivesPersistenceFailure(t *testing.T) {
	f := newFixture(t)
	f.store.fail = true
	assert.Equal(t, 2, f.sess.ChangePage(2))
}

func TestChangePageClearsSelection(t *testing.T) {
	f := newFixture(t)
	_, ok := f.sess.Select("fox.", -1, -1)
	require.True(t, ok)
	require.Equal(t, WordSelected, f.sess.Snapshot().State)

	f.sess.ChangePage(2)
	snap := f.sess.Snapshot()
	assert.Equal(t, Idle, snap.State)
	assert.Nil(t, snap.Selection)
}

func TestSelectIgnoresShortWords(t *testing.T) {
	f := newFixture(t)
	for _, raw := range []string{"a", "I,", "", "  ", "...", "\"x\""} {
		_, ok := f.sess.Select(raw, 0, 1)
		assert.False(t, ok, raw)
		assert.Equal(t, Idle, f.sess.Snapshot().State, raw)
	}
}

func TestSelectAndResolve(t *testing.T) {
	f := newFixture(t)
	f.sess.ChangePage(2)

	lookup, ok := f.sess.Select("Quick,", 10, 15)
	require.True(t, ok)
	assert.Equal(t, "quick", lookup.Word)
	assert.Equal(t, "en", lookup.Language)

	snap := f.sess.Snapshot()
	assert.Equal(t, WordSelected, snap.State)
	require.NotNil(t, snap.Selection)
	assert.Equal(t, "Quick,", snap.Selection.OriginalWord)
	assert.Equal(t, 2, snap.Selection.Page)

	res := f.sess.Run(context.Background(), lookup)
	require.True(t, f.sess.Resolve(res))

	snap = f.sess.Snapshot()
	assert.Equal(t, WordTranslated, snap.State)
	require.NotNil(t, snap.Translation)
	assert.Equal(t, []string{"быстрый"}, snap.Translation.Meanings)
	assert.NoError(t, snap.Err)

	hl := f.sess.Render().Highlights()
	require.Len(t, hl, 1)
	assert.Equal(t, span.VariantSelection, hl[0].Variant)
	assert.Equal(t, "quick", hl[0].Text)
}

func TestSelectLocatesWordWhenOffsetsInvalid(t *testing.T) {
	f := newFixture(t)
	f.sess.ChangePage(2)

	_, ok := f.sess.Select("fox", 500, 503)
	require.True(t, ok)
	sel := f.sess.Snapshot().Selection
	require.NotNil(t, sel)
	assert.Equal(t, "fox", f.sess.PageText()[sel.Start:sel.End])
}

func TestSelectAt(t *testing.T) {
	f := newFixture(t)
	f.sess.ChangePage(2)

	lookup, ok := f.sess.SelectAt(11)
	require.True(t, ok)
	assert.Equal(t, "quick", lookup.Word)

	_, ok = f.sess.SelectAt(1)
	assert.False(t, ok, "whitespace has no token")
}

func TestLookupFailureIsNotFatal(t *testing.T) {
	f := newFixture(t)

	lookup, ok := f.sess.Select("Once", 0, 4)
	require.True(t, ok)
	require.True(t, f.sess.Resolve(f.sess.Run(context.Background(), lookup)))

	snap := f.sess.Snapshot()
	assert.Equal(t, WordTranslated, snap.State)
	assert.Error(t, snap.Err)
	assert.Nil(t, snap.Translation)

	f.sess.Dismiss()
	assert.Equal(t, Idle, f.sess.Snapshot().State)
}

func TestLookupWithoutTranslator(t *testing.T) {
	res := Lookup{Seq: 1, Word: "fox"}.Run(context.Background(), nil)
	assert.Error(t, res.Err)
	assert.Equal(t, uint64(1), res.Seq)
}

func TestStaleLookupIsDropped(t *testing.T) {
	f := newFixture(t)
	f.sess.ChangePage(2)

	lookupA, ok := f.sess.Select("quick", -1, -1)
	require.True(t, ok)
	lookupB, ok := f.sess.Select("fox", -1, -1)
	require.True(t, ok)

	// Run both concurrently; B completes first.
	var wg sync.WaitGroup
	var resA, resB LookupResult
	wg.Add(2)
	go func() { defer wg.Done(); resA = f.sess.Run(context.Background(), lookupA) }()
	go func() { defer wg.Done(); resB = f.sess.Run(context.Background(), lookupB) }()
	wg.Wait()

	assert.True(t, f.sess.Resolve(resB))
	assert.False(t, f.sess.Resolve(resA))

	snap := f.sess.Snapshot()
	require.NotNil(t, snap.Translation)
	assert.Equal(t, "fox", snap.Selection.Word)
	assert.Equal(t, []string{"лиса"}, snap.Translation.Meanings)
}

func TestLateResultAfterEarlierSelectionResolvesIsDropped(t *testing.T) {
	f := newFixture(t)

	lookupA, _ := f.sess.Select("fox", -1, -1)
	lookupB, _ := f.sess.Select("upon", -1, -1)
	resA := f.sess.Run(context.Background(), lookupA)

	assert.False(t, f.sess.Resolve(resA))
	assert.Equal(t, WordSelected, f.sess.Snapshot().State)
	assert.Equal(t, lookupB.Seq, f.sess.Snapshot().Selection.Seq)
}

func TestResolveAfterDismissIsDropped(t *testing.T) {
	f := newFixture(t)

	lookup, _ := f.sess.Select("fox", -1, -1)
	f.sess.Dismiss()
	assert.False(t, f.sess.Resolve(f.sess.Run(context.Background(), lookup)))
	assert.Equal(t, Idle, f.sess.Snapshot().State)
}

func TestResolveTwiceIsDropped(t *testing.T) {
	f := newFixture(t)

	lookup, _ := f.sess.Select("fox", -1, -1)
	res := f.sess.Run(context.Background(), lookup)
	require.True(t, f.sess.Resolve(res))
	assert.False(t, f.sess.Resolve(res))
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "idle", Idle.String())
	assert.Equal(t, "word-selected", WordSelected.String())
	assert.Equal(t, "word-translated", WordTranslated.String())
	assert.Equal(t, "State(9)", State(9).String())
}
