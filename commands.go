package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"github.com/metcalfc/leaf/internal/compose"
	"github.com/metcalfc/leaf/internal/library"
	"github.com/metcalfc/leaf/internal/reader"
	"github.com/metcalfc/leaf/internal/span"
)

type readCmd struct {
	app   *app
	fresh bool
	toc   bool
}

// flags returns the reader flags. On the root command they are local so
// subcommands do not inherit them.
func (cmd *readCmd) flags(local bool) []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{
			Name:    "page",
			Aliases: []string{"p"},
			Usage:   "open the book at this page",
			Local:   local,
		},
		&cli.BoolFlag{
			Name:        "fresh",
			Usage:       "ignore the saved reading position",
			Destination: &cmd.fresh,
			Local:       local,
		},
		&cli.BoolFlag{
			Name:        "toc",
			Usage:       "show the table of contents at startup",
			Destination: &cmd.toc,
			Local:       local,
		},
	}
}

func (cmd *readCmd) command() *cli.Command {
	return &cli.Command{
		Name:      "read",
		Usage:     "Open a book in the reader",
		ArgsUsage: "[file | book-id]",
		Description: `Opens a file, importing it first if needed, or a book already in the
library. With no argument the text piped to stdin is read.`,
		Flags:  cmd.flags(false),
		Action: cmd.run,
	}
}

func (cmd *readCmd) run(ctx context.Context, c *cli.Command) error {
	if c.Args().Len() > 1 {
		return fmt.Errorf("expected one file or book id, got %d arguments", c.Args().Len())
	}

	var (
		book   library.Book
		source string
		err    error
	)
	if ref := c.Args().First(); ref != "" {
		book, source, err = cmd.app.bookArg(ref)
	} else {
		var text string
		if text, err = readStdin(); err == nil {
			if strings.TrimSpace(text) == "" {
				return errors.New("no text to read")
			}
			book, err = cmd.app.importText(text)
		}
	}
	if err != nil {
		return err
	}
	if len(book.Pages) == 0 {
		return errors.New("no text to read")
	}

	sess, err := cmd.app.openSession(book)
	if err != nil {
		return err
	}
	if cmd.fresh {
		sess.ChangePage(1)
	}
	if p := int(c.Int("page")); p > 0 {
		sess.ChangePage(p)
	}

	var toc []reader.TOCEntry
	if source != "" {
		entries, err := reader.TOC(source)
		if err != nil {
			log.Warn().Err(err).Str("file", source).Msg("could not read table of contents")
		} else {
			toc = reader.PageTOC(entries, sess.Book().Pages)
		}
	}

	return runReader(ctx, cmd.app, sess, toc, cmd.toc)
}

func importCommand(a *app) *cli.Command {
	var force bool
	return &cli.Command{
		Name:      "import",
		Usage:     "Add documents to the library",
		ArgsUsage: "<file>...",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:        "force",
				Aliases:     []string{"f"},
				Usage:       "import again even if the file was imported before",
				Destination: &force,
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			if c.Args().Len() == 0 {
				return errors.New("no files given")
			}
			out := c.Root().Writer
			var failed int
			for _, path := range c.Args().Slice() {
				book, created, err := a.importFile(path, force)
				if err != nil {
					failed++
					fmt.Fprintf(os.Stderr, "%s: %v\n", path, err)
					continue
				}
				verb := "imported"
				if !created {
					verb = "already in library"
				}
				_, _ = fmt.Fprintf(out, "%s  %s (%d pages, %s)\n", shortID(book.ID), book.Title, book.TotalPages, verb)
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d files failed", failed, c.Args().Len())
			}
			return nil
		},
	}
}

// bookInfo is the JSON output format for leaf list --json.
type bookInfo struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	Language   string `json:"language"`
	FileName   string `json:"fileName"`
	TotalPages int    `json:"totalPages"`
	WordCount  int    `json:"wordCount"`
	LastPage   int    `json:"lastPage"`
}

func listCommand(a *app) *cli.Command {
	var jsonOutput bool
	return &cli.Command{
		Name:    "list",
		Aliases: []string{"ls"},
		Usage:   "List books in the library",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:        "json",
				Usage:       "output as JSON lines",
				Destination: &jsonOutput,
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			books, err := a.lib.Books()
			if err != nil {
				return fmt.Errorf("list books: %w", err)
			}
			out := c.Root().Writer

			if len(books) == 0 {
				if !jsonOutput {
					fmt.Fprintln(os.Stderr, "No books found")
				}
				return nil
			}

			if jsonOutput {
				enc := json.NewEncoder(out)
				for _, b := range books {
					last, _ := a.lib.LastPage(b.ID)
					info := bookInfo{
						ID:         b.ID,
						Title:      b.Title,
						Language:   b.Language,
						FileName:   b.FileName,
						TotalPages: b.TotalPages,
						WordCount:  b.WordCount,
						LastPage:   last,
					}
					if err := enc.Encode(info); err != nil {
						return fmt.Errorf("encode book: %w", err)
					}
				}
				return nil
			}

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			_, _ = fmt.Fprintln(w, "ID\tTITLE\tLANG\tPAGE\tWORDS\tADDED")
			for _, b := range books {
				last, _ := a.lib.LastPage(b.ID)
				_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%d/%d\t%d\t%s\n",
					shortID(b.ID), b.Title, b.Language, last, b.TotalPages, b.WordCount, b.UploadDate.Format("2006-01-02"))
			}
			return w.Flush()
		},
	}
}

// composePage renders a stored page with its comments and dictionary words
// without opening a session, so the reading position is left alone.
func (a *app) composePage(book library.Book, page int) (compose.RenderSequence, error) {
	comments, err := a.lib.Comments(book.ID)
	if err != nil {
		return nil, err
	}
	words, err := a.lib.Dictionary()
	if err != nil {
		return nil, err
	}

	text := book.Page(page)
	spans := compose.Collect(text, compose.Layers{
		Page:            page,
		BookID:          book.ID,
		Comments:        comments,
		ShowComments:    true,
		Words:           words,
		DictionaryColor: a.cfg.Colors.Dictionary,
		SelectionColor:  a.cfg.Colors.Selection,
	})
	return compose.Compose(text, spans), nil
}

func showCommand(a *app) *cli.Command {
	return &cli.Command{
		Name:      "show",
		Usage:     "Print a page with its highlights",
		ArgsUsage: "<book-id>",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "page",
				Aliases: []string{"p"},
				Usage:   "page to print (defaults to the last page read)",
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			book, err := a.findBook(c.Args().First())
			if err != nil {
				return err
			}
			page := int(c.Int("page"))
			if page == 0 {
				if page, err = a.lib.LastPage(book.ID); err != nil {
					return err
				}
			}
			if page < 1 || page > book.TotalPages {
				return fmt.Errorf("page %d out of range 1-%d", page, book.TotalPages)
			}

			rs, err := a.composePage(book, page)
			if err != nil {
				return err
			}
			out := c.Root().Writer
			_, _ = fmt.Fprintln(out, statusStyle.Render(fmt.Sprintf("%s | Page %d/%d", book.Title, page, book.TotalPages)))
			_, _ = fmt.Fprintln(out, renderSegments(rs, noCursor, defaultSegmentStyles))
			return nil
		},
	}
}

func exportCommand(a *app) *cli.Command {
	var output string
	return &cli.Command{
		Name:      "export",
		Usage:     "Write a book with its highlights as HTML",
		ArgsUsage: "<book-id>",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "page",
				Aliases: []string{"p"},
				Usage:   "export only this page",
			},
			&cli.StringFlag{
				Name:        "output",
				Aliases:     []string{"o"},
				Usage:       "file to write (defaults to stdout)",
				Destination: &output,
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			book, err := a.findBook(c.Args().First())
			if err != nil {
				return err
			}

			first, last := 1, book.TotalPages
			if p := int(c.Int("page")); p > 0 {
				if p > book.TotalPages {
					return fmt.Errorf("page %d out of range 1-%d", p, book.TotalPages)
				}
				first, last = p, p
			}

			var out io.Writer = c.Root().Writer
			if output != "" {
				f, err := os.Create(output)
				if err != nil {
					return err
				}
				defer f.Close()
				out = f
			}
			return a.writeHTML(out, book, first, last)
		},
	}
}

func (a *app) writeHTML(w io.Writer, book library.Book, first, last int) error {
	var sb strings.Builder
	sb.WriteString("<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n")
	fmt.Fprintf(&sb, "<title>%s</title>\n</head>\n<body>\n", html.EscapeString(book.Title))
	fmt.Fprintf(&sb, "<h1>%s</h1>\n", html.EscapeString(book.Title))
	for page := first; page <= last; page++ {
		rs, err := a.composePage(book, page)
		if err != nil {
			return err
		}
		fmt.Fprintf(&sb, "<section id=\"page-%d\">\n<h2>Page %d</h2>\n%s\n</section>\n", page, page, compose.HTML(rs))
	}
	sb.WriteString("</body>\n</html>\n")
	_, err := io.WriteString(w, sb.String())
	return err
}

func removeCommand(a *app) *cli.Command {
	return &cli.Command{
		Name:      "rm",
		Usage:     "Remove a book from the library",
		ArgsUsage: "<book-id>",
		Action: func(ctx context.Context, c *cli.Command) error {
			book, err := a.findBook(c.Args().First())
			if err != nil {
				return err
			}
			if err := a.lib.DeleteBook(book.ID); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(c.Root().Writer, "Removed %s\n", book.Title)
			return nil
		},
	}
}

func translateCommand(a *app) *cli.Command {
	var from string
	return &cli.Command{
		Name:      "translate",
		Usage:     "Look up a single word",
		ArgsUsage: "<word>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "from",
				Usage:       "source language (defaults to auto)",
				Value:       "auto",
				Destination: &from,
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			word := span.CleanWord(c.Args().First())
			if !span.IsLookupCandidate(word) {
				return fmt.Errorf("%q is too short to look up", c.Args().First())
			}
			tr, err := a.tr.Translate(ctx, word, from)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(c.Root().Writer, "%s %s\n", word, tr.Transcription)
			for _, m := range tr.Meanings {
				_, _ = fmt.Fprintf(c.Root().Writer, "  - %s\n", m)
			}
			return nil
		},
	}
}

func findWord(words []span.DictionaryWord, ref string) (span.DictionaryWord, error) {
	var matches []span.DictionaryWord
	for _, w := range words {
		if w.ID == ref {
			return w, nil
		}
		if ref != "" && strings.HasPrefix(w.ID, ref) {
			matches = append(matches, w)
		}
	}
	switch len(matches) {
	case 0:
		return span.DictionaryWord{}, fmt.Errorf("dictionary word %q not found", ref)
	case 1:
		return matches[0], nil
	default:
		return span.DictionaryWord{}, fmt.Errorf("dictionary word id %q is ambiguous (%d matches)", ref, len(matches))
	}
}

func dictCommand(a *app) *cli.Command {
	var (
		bookRef    string
		jsonOutput bool
		meanings   []string
		examples   []string
	)

	return &cli.Command{
		Name:  "dict",
		Usage: "Manage the dictionary",
		Commands: []*cli.Command{
			{
				Name:    "list",
				Aliases: []string{"ls"},
				Usage:   "List dictionary words",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:        "book",
						Usage:       "only words added from this book",
						Destination: &bookRef,
					},
					&cli.BoolFlag{
						Name:        "json",
						Usage:       "output as JSON lines",
						Destination: &jsonOutput,
					},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					words, err := a.lib.Dictionary()
					if err != nil {
						return err
					}
					if bookRef != "" {
						book, err := a.findBook(bookRef)
						if err != nil {
							return err
						}
						var filtered []span.DictionaryWord
						for _, w := range words {
							if w.BookID == book.ID {
								filtered = append(filtered, w)
							}
						}
						words = filtered
					}

					out := c.Root().Writer
					if jsonOutput {
						enc := json.NewEncoder(out)
						for _, w := range words {
							if err := enc.Encode(w); err != nil {
								return fmt.Errorf("encode word: %w", err)
							}
						}
						return nil
					}
					if len(words) == 0 {
						fmt.Fprintln(os.Stderr, "Dictionary is empty")
						return nil
					}

					tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
					_, _ = fmt.Fprintln(tw, "ID\tWORD\tMEANINGS\tBOOK\tPAGE")
					for _, w := range words {
						_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\n",
							shortID(w.ID), w.Word, strings.Join(w.Translation.Meanings, "; "), shortID(w.BookID), w.PageNumber)
					}
					return tw.Flush()
				},
			},
			{
				Name:      "rm",
				Usage:     "Remove a dictionary word",
				ArgsUsage: "<word-id>",
				Action: func(ctx context.Context, c *cli.Command) error {
					words, err := a.lib.Dictionary()
					if err != nil {
						return err
					}
					w, err := findWord(words, c.Args().First())
					if err != nil {
						return err
					}

					book, err := a.lib.Book(w.BookID)
					if errors.Is(err, library.ErrBookNotFound) {
						// The book is gone; edit the list directly.
						kept := words[:0]
						for _, other := range words {
							if other.ID != w.ID {
								kept = append(kept, other)
							}
						}
						if err := a.lib.SaveDictionary(kept); err != nil {
							return err
						}
					} else if err != nil {
						return err
					} else {
						sess, err := a.openSession(book)
						if err != nil {
							return err
						}
						if _, err := sess.DeleteDictionaryWord(w.ID); err != nil {
							return err
						}
					}
					_, _ = fmt.Fprintf(c.Root().Writer, "Removed %s\n", w.Word)
					return nil
				},
			},
			{
				Name:      "edit",
				Usage:     "Replace the meanings and examples of a word",
				ArgsUsage: "<word-id>",
				Flags: []cli.Flag{
					&cli.StringSliceFlag{
						Name:        "meaning",
						Aliases:     []string{"m"},
						Usage:       "meaning (repeatable)",
						Destination: &meanings,
					},
					&cli.StringSliceFlag{
						Name:        "example",
						Aliases:     []string{"e"},
						Usage:       "usage example (repeatable)",
						Destination: &examples,
					},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					words, err := a.lib.Dictionary()
					if err != nil {
						return err
					}
					w, err := findWord(words, c.Args().First())
					if err != nil {
						return err
					}
					book, err := a.lib.Book(w.BookID)
					if err != nil {
						return err
					}
					sess, err := a.openSession(book)
					if err != nil {
						return err
					}
					edited, err := sess.EditDictionaryWord(w.ID, meanings, examples)
					if err != nil {
						return err
					}
					_, _ = fmt.Fprintf(c.Root().Writer, "%s: %s\n", edited.Word, strings.Join(edited.Translation.Meanings, "; "))
					return nil
				},
			},
		},
	}
}

func commentsCommand(a *app) *cli.Command {
	var (
		selected string
		note     string
	)

	return &cli.Command{
		Name:  "comments",
		Usage: "Manage comments on a book",
		Commands: []*cli.Command{
			{
				Name:      "list",
				Aliases:   []string{"ls"},
				Usage:     "List comments",
				ArgsUsage: "<book-id>",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:    "page",
						Aliases: []string{"p"},
						Usage:   "only comments on this page",
					},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					book, err := a.findBook(c.Args().First())
					if err != nil {
						return err
					}
					comments, err := a.lib.Comments(book.ID)
					if err != nil {
						return err
					}
					page := int(c.Int("page"))

					tw := tabwriter.NewWriter(c.Root().Writer, 0, 0, 2, ' ', 0)
					_, _ = fmt.Fprintln(tw, "ID\tPAGE\tTEXT\tCOMMENT")
					for _, cm := range comments {
						if page > 0 && cm.PageNumber != page {
							continue
						}
						_, _ = fmt.Fprintf(tw, "%s\t%d\t%q\t%s\n", shortID(cm.ID), cm.PageNumber, cm.SelectedText, cm.CommentText)
					}
					return tw.Flush()
				},
			},
			{
				Name:      "add",
				Usage:     "Comment on a passage",
				ArgsUsage: "<book-id>",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:    "page",
						Aliases: []string{"p"},
						Usage:   "page of the passage (defaults to the last page read)",
					},
					&cli.StringFlag{
						Name:        "text",
						Aliases:     []string{"t"},
						Usage:       "passage the comment is attached to",
						Required:    true,
						Destination: &selected,
					},
					&cli.StringFlag{
						Name:        "note",
						Aliases:     []string{"n"},
						Usage:       "the comment",
						Destination: &note,
					},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					book, err := a.findBook(c.Args().First())
					if err != nil {
						return err
					}
					sess, err := a.openSession(book)
					if err != nil {
						return err
					}
					page := int(c.Int("page"))
					if page == 0 {
						page = sess.Page()
					}
					cm, err := sess.AddComment(selected, note, "", page)
					if err != nil {
						return err
					}
					_, _ = fmt.Fprintf(c.Root().Writer, "%s  page %d [%d:%d]\n", shortID(cm.ID), cm.PageNumber, cm.StartIndex, cm.EndIndex)
					return nil
				},
			},
			{
				Name:      "rm",
				Usage:     "Remove a comment",
				ArgsUsage: "<book-id> <comment-id>",
				Action: func(ctx context.Context, c *cli.Command) error {
					book, err := a.findBook(c.Args().Get(0))
					if err != nil {
						return err
					}
					sess, err := a.openSession(book)
					if err != nil {
						return err
					}
					ref := c.Args().Get(1)
					var id string
					for _, cm := range sess.Comments(false) {
						if ref != "" && strings.HasPrefix(cm.ID, ref) {
							id = cm.ID
							break
						}
					}
					ok, err := sess.DeleteComment(id)
					if err != nil {
						return err
					}
					if !ok {
						return fmt.Errorf("comment %q not found", ref)
					}
					_, _ = fmt.Fprintln(c.Root().Writer, "Removed comment")
					return nil
				},
			},
		},
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
