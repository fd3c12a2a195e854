package compose

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/metcalfc/leaf/internal/span"
)

func TestComposeNoSpans(t *testing.T) {
	for _, page := range []string{"", "plain text\n\nwith breaks  "} {
		rs := Compose(page, nil)
		require.Len(t, rs, 1)
		assert.Equal(t, page, rs[0].Text)
		assert.False(t, rs[0].Highlighted)
	}
}

func TestComposeOnlyEmptySpansIsFastPath(t *testing.T) {
	rs := Compose("abc", []span.Span{{Variant: span.VariantComment, Start: 2, End: 2}})
	assert.Equal(t, RenderSequence{{Text: "abc"}}, rs)
}

func TestComposeSingleSpan(t *testing.T) {
	page := "the quick fox"
	rs := Compose(page, []span.Span{{Variant: span.VariantDictionary, Start: 4, End: 9, Color: "blue", Ref: "w1"}})

	require.Len(t, rs, 3)
	assert.Equal(t, Segment{Text: "the "}, rs[0])
	assert.Equal(t, Segment{Text: "quick", Highlighted: true, Variant: span.VariantDictionary, Color: "blue", Ref: "w1"}, rs[1])
	assert.Equal(t, Segment{Text: " fox"}, rs[2])
	assert.Equal(t, page, rs.Text())
}

func TestComposeSortsByStart(t *testing.T) {
	page := "one two three"
	rs := Compose(page, []span.Span{
		{Variant: span.VariantDictionary, Start: 8, End: 13},
		{Variant: span.VariantDictionary, Start: 0, End: 3},
	})

	hl := rs.Highlights()
	require.Len(t, hl, 2)
	assert.Equal(t, "one", hl[0].Text)
	assert.Equal(t, "three", hl[1].Text)
	assert.Equal(t, page, rs.Text())
}

func TestComposeCommentWinsContainedWord(t *testing.T) {
	page := "I saw the quick fox jump"
	comment := span.Comment{ID: "c1", PageNumber: 2, StartIndex: 6, EndIndex: 19, SelectedText: "the quick fox", Color: "yellow"}
	words := []span.DictionaryWord{{ID: "w1", Word: "quick"}}

	spans := Collect(page, Layers{Page: 2, Comments: []span.Comment{comment}, ShowComments: true, Words: words})
	require.Len(t, spans, 2)

	rs := Compose(page, spans)
	hl := rs.Highlights()
	require.Len(t, hl, 1)
	assert.Equal(t, "the quick fox", hl[0].Text)
	assert.Equal(t, span.VariantComment, hl[0].Variant)
	assert.Equal(t, page, rs.Text())
}

func TestComposeTieBreakOnEqualStart(t *testing.T) {
	page := "quick brown"
	rs := Compose(page, []span.Span{
		{Variant: span.VariantSelection, Start: 0, End: 5},
		{Variant: span.VariantDictionary, Start: 0, End: 5},
		{Variant: span.VariantComment, Start: 0, End: 11},
	})

	require.Len(t, rs, 1)
	assert.Equal(t, span.VariantComment, rs[0].Variant)

	rs = Compose(page, []span.Span{
		{Variant: span.VariantSelection, Start: 0, End: 5},
		{Variant: span.VariantDictionary, Start: 0, End: 5},
	})
	require.Len(t, rs, 2)
	assert.Equal(t, span.VariantDictionary, rs[0].Variant)
}

func TestComposePartialOverlapClipsLaterSpan(t *testing.T) {
	page := "abcdefghij"
	rs := Compose(page, []span.Span{
		{Variant: span.VariantComment, Start: 2, End: 6, Ref: "a"},
		{Variant: span.VariantDictionary, Start: 4, End: 8, Ref: "b"},
	})

	require.Len(t, rs, 4)
	assert.Equal(t, "ab", rs[0].Text)
	assert.Equal(t, "cdef", rs[1].Text)
	assert.Equal(t, "a", rs[1].Ref)
	assert.Equal(t, "gh", rs[2].Text)
	assert.Equal(t, "b", rs[2].Ref)
	assert.Equal(t, "ij", rs[3].Text)
}

func TestComposeClampsOutOfRangeSpans(t *testing.T) {
	page := "short"
	rs := Compose(page, []span.Span{
		{Variant: span.VariantComment, Start: -4, End: 2},
		{Variant: span.VariantComment, Start: 3, End: 400},
		{Variant: span.VariantComment, Start: 90, End: 100},
		{Variant: span.VariantComment, Start: 4, End: 1},
	})

	assert.Equal(t, page, rs.Text())
	hl := rs.Highlights()
	require.Len(t, hl, 2)
	assert.Equal(t, "sh", hl[0].Text)
	assert.Equal(t, "rt", hl[1].Text)
}

func TestComposeSnapsToRuneBoundaries(t *testing.T) {
	page := "aé b"
	rs := Compose(page, []span.Span{{Variant: span.VariantComment, Start: 2, End: 3}})
	assert.Equal(t, page, rs.Text())
	for _, s := range rs {
		assert.True(t, strings.ToValidUTF8(s.Text, "?") == s.Text, "segment %q is not valid UTF-8", s.Text)
	}
}

func TestComposePreservesTextRandomized(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	page := strings.Repeat("Lorem ipsum dolor sit amet, größe Übung. ", 8)
	variants := []span.Variant{span.VariantComment, span.VariantDictionary, span.VariantSelection}

	for i := 0; i < 500; i++ {
		var spans []span.Span
		for j := rng.Intn(8); j > 0; j-- {
			a, b := rng.Intn(len(page)+10)-5, rng.Intn(len(page)+10)-5
			spans = append(spans, span.Span{Variant: variants[rng.Intn(3)], Start: a, End: b})
		}
		rs := Compose(page, spans)
		require.Equal(t, page, rs.Text())
		for k := 1; k < len(rs); k++ {
			assert.NotEmpty(t, rs[k].Text)
		}
	}
}

func TestCollectScopesWordsToBook(t *testing.T) {
	page := "the quick fox"
	layers := Layers{
		Page:   1,
		BookID: "book-1",
		Words: []span.DictionaryWord{
			{ID: "w1", Word: "quick", BookID: "other-book"},
			{ID: "w2", Word: "fox", BookID: "book-1"},
			{ID: "w3", Word: "fox", BookID: "other-book"},
		},
	}

	spans := Collect(page, layers)
	require.Len(t, spans, 1)
	assert.Equal(t, "w2", spans[0].Ref)
	assert.Equal(t, 10, spans[0].Start)

	layers.BookID = ""
	assert.Len(t, Collect(page, layers), 2)
}

func TestCollect(t *testing.T) {
	page := "Hello world, hello again. World peace."
	sel := &span.Selection{Page: 3, Start: 6, End: 11, Word: "world"}
	layers := Layers{
		Page: 3,
		Comments: []span.Comment{
			{ID: "on-page", PageNumber: 3, StartIndex: 0, EndIndex: 5},
			{ID: "other-page", PageNumber: 4, StartIndex: 0, EndIndex: 5},
		},
		ShowComments: true,
		Words: []span.DictionaryWord{
			{ID: "w1", Word: "hello", Translation: span.Translation{Meanings: []string{"привет"}}},
			{ID: "w2", Word: "Hello"},
			{ID: "w3", Word: "absent"},
			{ID: "w4", Word: "world"},
		},
		Selection: sel,
	}

	spans := Collect(page, layers)
	require.Len(t, spans, 4)

	assert.Equal(t, "on-page", spans[0].Ref)
	assert.Equal(t, span.VariantDictionary, spans[1].Variant)
	assert.Equal(t, "w1", spans[1].Ref)
	assert.Equal(t, "привет", spans[1].Note)
	assert.Equal(t, 0, spans[1].Start)
	assert.Equal(t, "w4", spans[2].Ref)
	assert.Equal(t, 6, spans[2].Start)
	assert.Equal(t, span.VariantSelection, spans[3].Variant)
	assert.Equal(t, span.DefaultSelectionColor, spans[3].Color)

	layers.ShowComments = false
	layers.Selection = &span.Selection{Page: 9, Start: 0, End: 5}
	spans = Collect(page, layers)
	require.Len(t, spans, 2)
	for _, s := range spans {
		assert.Equal(t, span.VariantDictionary, s.Variant)
	}
}

func TestHTML(t *testing.T) {
	rs := RenderSequence{
		{Text: "a < b "},
		{Text: "quick", Highlighted: true, Variant: span.VariantComment, Color: "#ff0", Ref: "c1", Note: `say "hi"`},
		{Text: " & done"},
	}

	got := HTML(rs)
	assert.Contains(t, got, "a &lt; b ")
	assert.Contains(t, got, `<mark data-variant="comment" data-ref="c1" title="say &#34;hi&#34;" style="background-color: #ff0">quick</mark>`)
	assert.Contains(t, got, " &amp; done")
}
