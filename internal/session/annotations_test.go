package session

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/metcalfc/leaf/internal/span"
)

func TestAddCommentResolvesOffsets(t *testing.T) {
	f := newFixture(t)

	c, err := f.sess.AddComment("the quick fox", "  nice  ", "", 2)
	require.NoError(t, err)

	assert.Equal(t, "id-1", c.ID)
	assert.Equal(t, "book-1", c.BookID)
	assert.Equal(t, 2, c.PageNumber)
	assert.Equal(t, 6, c.StartIndex)
	assert.Equal(t, 19, c.EndIndex)
	assert.Equal(t, "nice", c.CommentText)
	assert.Equal(t, span.DefaultCommentColor, c.Color)
	assert.Equal(t, testNow, c.CreatedAt)

	stored, err := f.lib.Comments("book-1")
	require.NoError(t, err)
	assert.Equal(t, []span.Comment{c}, stored)
}

func TestAddCommentFallsBackToPrefix(t *testing.T) {
	f := newFixture(t)

	c, err := f.sess.AddComment("not on the page", "hmm", "#abc", 1)
	require.NoError(t, err)
	assert.Equal(t, 0, c.StartIndex)
	assert.Equal(t, len("not on the page"), c.EndIndex)
	assert.Equal(t, "#abc", c.Color)
	assert.True(t, c.Drifted(f.sess.PageText()))
}

func TestAddCommentRejectsShortSelection(t *testing.T) {
	f := newFixture(t)

	for _, sel := range []string{"", "ab", "  x  ", "ox"} {
		_, err := f.sess.AddComment(sel, "note", "", 1)
		assert.ErrorIs(t, err, ErrSelectionTooShort, sel)
	}
	assert.Empty(t, f.sess.Comments(false))
}

func TestAddCommentAt(t *testing.T) {
	f := newFixture(t)
	f.sess.ChangePage(2)

	c, err := f.sess.AddCommentAt(16, 19, "animal", "")
	require.NoError(t, err)
	assert.Equal(t, "fox", c.SelectedText)
	assert.False(t, c.Drifted(f.sess.PageText()))

	c, err = f.sess.AddCommentAt(34, 500, "clamped", "")
	require.NoError(t, err)
	assert.Equal(t, "quick dog.", c.SelectedText)

	_, err = f.sess.AddCommentAt(5, 2, "empty", "")
	assert.ErrorIs(t, err, ErrSelectionTooShort)
}

func TestAddCommentPersistenceFailure(t *testing.T) {
	f := newFixture(t)
	f.store.fail = true

	_, err := f.sess.AddComment("the quick fox", "x", "", 2)
	assert.Error(t, err)
	assert.Empty(t, f.sess.Comments(false))
}

func TestDeleteCommentIsIdempotent(t *testing.T) {
	f := newFixture(t)
	c, err := f.sess.AddComment("upon a time", "x", "", 1)
	require.NoError(t, err)

	ok, err := f.sess.DeleteComment(c.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = f.sess.DeleteComment(c.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = f.sess.DeleteComment("never-existed")
	require.NoError(t, err)
	assert.False(t, ok)

	stored, err := f.lib.Comments("book-1")
	require.NoError(t, err)
	assert.Empty(t, stored)
}

func TestCommentsFilterAndReload(t *testing.T) {
	f := newFixture(t)
	_, err := f.sess.AddComment("upon a time", "one", "", 1)
	require.NoError(t, err)
	_, err = f.sess.AddComment("quick dog", "two", "", 2)
	require.NoError(t, err)

	assert.Len(t, f.sess.Comments(false), 2)
	onPage := f.sess.Comments(true)
	require.Len(t, onPage, 1)
	assert.Equal(t, "one", onPage[0].CommentText)

	reopened := openSession(t, f.lib)
	assert.Len(t, reopened.Comments(false), 2)
}

func TestCommentWinsOverDictionaryWord(t *testing.T) {
	f := newFixture(t)
	f.sess.ChangePage(2)

	_, err := f.sess.AddComment("the quick fox", "note", "", 2)
	require.NoError(t, err)
	_, err = f.sess.AddDictionaryWord("quick", "quick", span.Translation{Meanings: []string{"быстрый"}}, 2)
	require.NoError(t, err)

	rs := f.sess.Render()
	assert.Equal(t, f.sess.PageText(), rs.Text())

	hl := rs.Highlights()
	require.Len(t, hl, 1)
	assert.Equal(t, "the quick fox", hl[0].Text)
	assert.Equal(t, span.VariantComment, hl[0].Variant)

	f.sess.SetShowComments(false)
	hl = f.sess.Render().Highlights()
	require.Len(t, hl, 1)
	assert.Equal(t, "quick", hl[0].Text)
	assert.Equal(t, span.VariantDictionary, hl[0].Variant)
	assert.Equal(t, "быстрый", hl[0].Note)
}

func TestAddDictionaryWordDedup(t *testing.T) {
	f := newFixture(t)
	f.sess.ChangePage(2)
	tr := span.Translation{Meanings: []string{"лиса"}}

	first, err := f.sess.AddDictionaryWord("Fox,", "Fox,", tr, 2)
	require.NoError(t, err)
	assert.Equal(t, "fox", first.Word)
	assert.Equal(t, "Fox,", first.OriginalWord)
	assert.Equal(t, "fox", first.Translation.Word)
	assert.Equal(t, 16, first.Position)
	assert.Equal(t, 2, first.PageNumber)
	assert.Equal(t, testNow, first.LastEdited)

	again, err := f.sess.AddDictionaryWord("FOX", "FOX", tr, 1)
	assert.ErrorIs(t, err, ErrAlreadyInDictionary)
	assert.Equal(t, first.ID, again.ID)

	stored, err := f.lib.Dictionary()
	require.NoError(t, err)
	assert.Len(t, stored, 1)
}

func TestAddDictionaryWordOtherBookIsNotDuplicate(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.lib.SaveDictionary([]span.DictionaryWord{{ID: "other", Word: "fox", BookID: "book-2"}}))
	sess := openSession(t, f.lib)

	_, err := sess.AddDictionaryWord("fox", "fox", span.Translation{}, 1)
	require.NoError(t, err)
	assert.Len(t, sess.Words(false), 2)
}

func TestOtherBookWordsAreNotHighlighted(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.lib.SaveDictionary([]span.DictionaryWord{
		{ID: "w1", Word: "quick", BookID: "other-book"},
		{ID: "w2", Word: "fox", BookID: "book-1"},
	}))
	sess := openSession(t, f.lib)
	sess.ChangePage(2)

	rs := sess.Render()
	assert.Equal(t, sess.PageText(), rs.Text())

	hl := rs.Highlights()
	require.Len(t, hl, 1)
	assert.Equal(t, "fox", hl[0].Text)
	assert.Equal(t, "w2", hl[0].Ref)
	assert.Equal(t, span.VariantDictionary, hl[0].Variant)
}

func TestAddDictionaryWordRejectsShortWord(t *testing.T) {
	f := newFixture(t)
	_, err := f.sess.AddDictionaryWord("a.", "a.", span.Translation{}, 1)
	assert.ErrorIs(t, err, ErrWordTooShort)
}

func TestAddSelectionToDictionary(t *testing.T) {
	f := newFixture(t)
	f.sess.ChangePage(2)

	_, err := f.sess.AddSelectionToDictionary()
	assert.ErrorIs(t, err, ErrNothingToAdd)

	lookup, ok := f.sess.Select("quick", 10, 15)
	require.True(t, ok)
	_, err = f.sess.AddSelectionToDictionary()
	assert.ErrorIs(t, err, ErrNothingToAdd, "lookup still pending")

	require.True(t, f.sess.Resolve(f.sess.Run(context.Background(), lookup)))
	w, err := f.sess.AddSelectionToDictionary()
	require.NoError(t, err)
	assert.Equal(t, "quick", w.Word)
	assert.Equal(t, []string{"быстрый"}, w.Translation.Meanings)
	assert.Equal(t, Idle, f.sess.Snapshot().State)

	lookup, _ = f.sess.Select("quick", 34, 39)
	f.sess.Resolve(f.sess.Run(context.Background(), lookup))
	again, err := f.sess.AddSelectionToDictionary()
	assert.ErrorIs(t, err, ErrAlreadyInDictionary)
	assert.Equal(t, w.ID, again.ID)
	assert.Equal(t, Idle, f.sess.Snapshot().State)
}

func TestAddSelectionAfterFailedLookup(t *testing.T) {
	f := newFixture(t)
	lookup, _ := f.sess.Select("Once", 0, 4)
	f.sess.Resolve(f.sess.Run(context.Background(), lookup))

	_, err := f.sess.AddSelectionToDictionary()
	assert.ErrorIs(t, err, ErrNothingToAdd)
}

func TestDeleteDictionaryWordIsIdempotent(t *testing.T) {
	f := newFixture(t)
	w, err := f.sess.AddDictionaryWord("fox", "fox", span.Translation{}, 1)
	require.NoError(t, err)

	ok, err := f.sess.DeleteDictionaryWord(w.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = f.sess.DeleteDictionaryWord(w.ID)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, f.sess.Words(false))
}

func TestEditDictionaryWord(t *testing.T) {
	f := newFixture(t)
	w, err := f.sess.AddDictionaryWord("fox", "fox", span.Translation{Meanings: []string{"лиса"}}, 1)
	require.NoError(t, err)

	edited, err := f.sess.EditDictionaryWord(w.ID, []string{"лис", " ", "лисица"}, []string{"The fox ran.", ""})
	require.NoError(t, err)
	assert.Equal(t, []string{"лис", "лисица"}, edited.Translation.Meanings)
	assert.Equal(t, []string{"лиса"}, edited.Translation.OriginalMeanings)
	assert.True(t, edited.Translation.UserEdited)
	assert.Equal(t, []string{"The fox ran."}, edited.UserExamples)

	edited, err = f.sess.EditDictionaryWord(w.ID, []string{"хитрец"}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"лиса"}, edited.Translation.OriginalMeanings, "first meanings are kept")

	stored, err := f.lib.Dictionary()
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, []string{"хитрец"}, stored[0].Translation.Meanings)

	_, err = f.sess.EditDictionaryWord("missing", nil, nil)
	assert.ErrorIs(t, err, ErrWordNotFound)
}

func TestWordsFilter(t *testing.T) {
	f := newFixture(t)
	_, err := f.sess.AddDictionaryWord("fox", "fox", span.Translation{}, 1)
	require.NoError(t, err)
	_, err = f.sess.AddDictionaryWord("quick", "quick", span.Translation{}, 2)
	require.NoError(t, err)

	assert.Len(t, f.sess.Words(false), 2)
	onPage := f.sess.Words(true)
	require.Len(t, onPage, 1)
	assert.Equal(t, "fox", onPage[0].Word)
}
