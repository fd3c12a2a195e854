//go:build gui

package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"fyne.io/fyne/v2"
	fyneapp "fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"github.com/metcalfc/leaf/internal/compose"
	"github.com/metcalfc/leaf/internal/reader"
	"github.com/metcalfc/leaf/internal/session"
	"github.com/metcalfc/leaf/internal/span"
)

type window struct {
	ctx  context.Context
	sess *session.Session

	page        *widget.RichText
	scroll      *container.Scroll
	status      *widget.Label
	translation *widget.Label
	message     *widget.Label
	word        *widget.Entry
	passage     *widget.Entry
	note        *widget.Entry
	goTo        *widget.Entry
}

func variantColor(v span.Variant) fyne.ThemeColorName {
	switch v {
	case span.VariantComment:
		return theme.ColorNameWarning
	case span.VariantDictionary:
		return theme.ColorNamePrimary
	default:
		return theme.ColorNameSuccess
	}
}

// richSegments converts a composed page into RichText segments.
func richSegments(rs compose.RenderSequence) []widget.RichTextSegment {
	var segs []widget.RichTextSegment
	for _, s := range rs {
		style := widget.RichTextStyleInline
		if s.Highlighted {
			style = widget.RichTextStyle{
				Inline:    true,
				ColorName: variantColor(s.Variant),
				TextStyle: fyne.TextStyle{Bold: true, Italic: s.Variant == span.VariantComment},
			}
		}
		segs = append(segs, &widget.TextSegment{Text: s.Text, Style: style})
	}
	return segs
}

func (w *window) updateDisplay() {
	w.page.Segments = richSegments(w.sess.Render())
	w.page.Refresh()

	snap := w.sess.Snapshot()
	comments := ""
	if !snap.ShowComments {
		comments = " | comments hidden"
	}
	w.status.SetText(fmt.Sprintf("%s | Page %d/%d%s", w.sess.Book().Title, snap.Page, snap.TotalPages, comments))

	text := ""
	if snap.Selection != nil {
		word := snap.Selection.Word
		switch {
		case snap.State == session.WordSelected:
			text = word + ": translating..."
		case snap.Err != nil || snap.Translation == nil:
			text = word + ": no translation found"
		default:
			text = fmt.Sprintf("%s %s: %s", word, snap.Translation.Transcription, strings.Join(snap.Translation.Meanings, "; "))
		}
	}
	w.translation.SetText(text)
}

func (w *window) changePage(n int) {
	w.sess.ChangePage(n)
	w.scroll.ScrollToTop()
	w.message.SetText("")
	w.updateDisplay()
}

func (w *window) lookup() {
	l, ok := w.sess.Select(w.word.Text, -1, -1)
	if !ok {
		w.message.SetText("Enter a word of at least two letters")
		return
	}
	w.message.SetText("")
	w.updateDisplay()

	go func() {
		res := w.sess.Run(w.ctx, l)
		fyne.Do(func() {
			if w.sess.Resolve(res) {
				w.updateDisplay()
			}
		})
	}()
}

func (w *window) addWord() {
	added, err := w.sess.AddSelectionToDictionary()
	switch {
	case errors.Is(err, session.ErrNothingToAdd):
		w.message.SetText("Translate a word before adding it")
	case errors.Is(err, session.ErrAlreadyInDictionary):
		w.message.SetText(fmt.Sprintf("%q is already in the dictionary", added.Word))
	case err != nil:
		w.message.SetText(err.Error())
	default:
		w.message.SetText(fmt.Sprintf("Added %q to the dictionary", added.Word))
	}
	w.updateDisplay()
}

func (w *window) addComment() {
	c, err := w.sess.AddComment(w.passage.Text, w.note.Text, "", w.sess.Page())
	switch {
	case errors.Is(err, session.ErrSelectionTooShort):
		w.message.SetText("Select at least three characters to comment on")
	case err != nil:
		w.message.SetText(err.Error())
	default:
		w.message.SetText(fmt.Sprintf("Comment added to %q", c.SelectedText))
		w.passage.SetText("")
		w.note.SetText("")
	}
	w.updateDisplay()
}

func runReader(ctx context.Context, a *app, sess *session.Session, toc []reader.TOCEntry, showTOC bool) error {
	fa := fyneapp.New()

	w := &window{
		ctx:         ctx,
		sess:        sess,
		page:        widget.NewRichText(),
		status:      widget.NewLabel(""),
		translation: widget.NewLabel(""),
		message:     widget.NewLabel(""),
		word:        widget.NewEntry(),
		passage:     widget.NewEntry(),
		note:        widget.NewEntry(),
		goTo:        widget.NewEntry(),
	}
	w.page.Wrapping = fyne.TextWrapWord
	w.scroll = container.NewVScroll(w.page)
	w.status.Alignment = fyne.TextAlignCenter
	w.translation.TextStyle.Bold = true

	w.word.SetPlaceHolder("Word to translate")
	w.word.OnSubmitted = func(string) { w.lookup() }
	w.passage.SetPlaceHolder("Passage on this page")
	w.note.SetPlaceHolder("Comment")
	w.note.OnSubmitted = func(string) { w.addComment() }
	w.goTo.SetPlaceHolder("Page")
	w.goTo.OnSubmitted = func(s string) {
		n, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil {
			w.message.SetText(fmt.Sprintf("Not a page number: %q", s))
			return
		}
		w.goTo.SetText("")
		w.changePage(n)
	}

	showComments := widget.NewCheck("Show comments", func(on bool) {
		sess.SetShowComments(on)
		w.updateDisplay()
	})
	showComments.SetChecked(sess.ShowComments())

	nav := container.NewHBox(
		widget.NewButton("◀ Prev", func() { w.changePage(sess.Page() - 1) }),
		widget.NewButton("Next ▶", func() { w.changePage(sess.Page() + 1) }),
		container.NewGridWrap(fyne.NewSize(80, w.goTo.MinSize().Height), w.goTo),
		showComments,
	)

	lookupRow := container.NewBorder(nil, nil, nil,
		container.NewHBox(
			widget.NewButton("Translate", w.lookup),
			widget.NewButton("Add to dictionary", w.addWord),
			widget.NewButton("Dismiss", func() {
				sess.Dismiss()
				w.updateDisplay()
			}),
		),
		w.word,
	)
	commentRow := container.NewBorder(nil, nil, nil,
		widget.NewButton("Comment", w.addComment),
		container.NewGridWithColumns(2, w.passage, w.note),
	)

	controls := container.NewVBox(
		widget.NewSeparator(),
		w.translation,
		lookupRow,
		commentRow,
		nav,
		w.message,
	)

	readingContent := container.NewBorder(w.status, controls, nil, nil, w.scroll)

	var content fyne.CanvasObject = readingContent
	if len(toc) > 0 {
		tocList := widget.NewList(
			func() int { return len(toc) },
			func() fyne.CanvasObject {
				return container.NewVBox(
					widget.NewLabel("Title"),
					widget.NewLabel("Preview"),
				)
			},
			func(id widget.ListItemID, obj fyne.CanvasObject) {
				entry := toc[id]
				vbox := obj.(*fyne.Container)
				titleLabel := vbox.Objects[0].(*widget.Label)
				previewLabel := vbox.Objects[1].(*widget.Label)

				indent := strings.Repeat("  ", entry.Level)
				titleLabel.SetText(fmt.Sprintf("%s%s (p. %d)", indent, entry.Title, entry.Page))
				titleLabel.TextStyle.Bold = true

				preview := []rune(entry.Preview)
				if len(preview) > 50 {
					preview = append(preview[:50], []rune("...")...)
				}
				previewLabel.SetText(indent + string(preview))
			},
		)
		tocList.OnSelected = func(id widget.ListItemID) {
			if id < len(toc) {
				w.changePage(toc[id].Page)
			}
		}

		tocContainer := container.NewBorder(
			widget.NewLabel("Table of Contents"),
			widget.NewLabel("Click to jump • T to toggle"),
			nil, nil,
			tocList,
		)
		split := container.NewHSplit(tocContainer, readingContent)
		split.Offset = 0.3
		if !showTOC {
			tocContainer.Hide()
		}
		content = split
	}

	win := fa.NewWindow("leaf - " + sess.Book().Title)

	win.Canvas().SetOnTypedKey(func(key *fyne.KeyEvent) {
		switch key.Name {
		case fyne.KeyLeft, fyne.KeyPageUp:
			w.changePage(sess.Page() - 1)
		case fyne.KeyRight, fyne.KeyPageDown:
			w.changePage(sess.Page() + 1)
		case fyne.KeyEscape:
			sess.Dismiss()
			w.updateDisplay()
		case fyne.KeyF:
			win.SetFullScreen(!win.FullScreen())
		case fyne.KeyQ:
			fa.Quit()
		}
	})
	win.Canvas().SetOnTypedRune(func(r rune) {
		switch r {
		case 't', 'T':
			if split, ok := content.(*container.Split); ok {
				if split.Leading.Visible() {
					split.Leading.Hide()
				} else {
					split.Leading.Show()
				}
				split.Refresh()
			}
		case 's', 'S':
			showComments.SetChecked(!sess.ShowComments())
		}
	})

	win.Resize(fyne.NewSize(900, 700))
	win.SetContent(content)
	w.updateDisplay()
	win.ShowAndRun()
	return nil
}
