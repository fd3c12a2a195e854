package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime/debug"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"github.com/metcalfc/leaf/internal/config"
	"github.com/metcalfc/leaf/internal/library"
	"github.com/metcalfc/leaf/internal/logging"
	"github.com/metcalfc/leaf/internal/reader"
	"github.com/metcalfc/leaf/internal/session"
	"github.com/metcalfc/leaf/internal/state"
	"github.com/metcalfc/leaf/internal/translate"
)

// Version info (injected via ldflags)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func build() string {
	v, c, d := version, commit, date
	if v == "dev" {
		if info, ok := debug.ReadBuildInfo(); ok {
			if mv := info.Main.Version; mv != "" && mv != "(devel)" {
				v = mv
			}
		}
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", v, c, d)
}

type flags struct {
	LogLevel   string
	LogFile    string
	ConfigPath string
	DataDir    string
}

// app is the wiring shared by every command. It is populated in the root
// Before hook.
type app struct {
	cfg     *config.Config
	lib     *library.Library
	tr      translate.Translator
	closers []func()
}

func (a *app) open(f *flags) error {
	cfg, err := config.Load(f.ConfigPath, f.DataDir)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	a.cfg = cfg

	level := f.LogLevel
	if level == "" {
		level = cfg.LogLevel
	}
	logFile := f.LogFile
	if logFile == "" {
		logFile = filepath.Join(cfg.DataDir, "leaf.log")
	}
	_, closer, err := logging.New(level, logFile)
	if err != nil {
		return fmt.Errorf("setup logger: %w", err)
	}
	a.closers = append(a.closers, closer)

	var store library.Store
	switch cfg.Store {
	case config.StoreSQLite:
		s, err := state.NewSQLiteStore(cfg.DataDir)
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		a.closers = append(a.closers, func() {
			if err := s.Close(); err != nil {
				log.Error().Err(err).Msg("failed to close database")
			}
		})
		store = s
	default:
		s, err := state.NewFileStore(cfg.DataDir)
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		store = s
	}
	a.lib = library.New(store, cfg.PageBudget, logging.Component("library"))

	chain, err := translate.New(cfg.Translation, logging.Component("translate"))
	if err != nil {
		return fmt.Errorf("setup translation: %w", err)
	}
	a.tr = chain

	log.Debug().
		Str("store", cfg.Store).
		Str("data_dir", cfg.DataDir).
		Int("page_budget", cfg.PageBudget).
		Msg("leaf started")
	return nil
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

func (a *app) openSession(book library.Book) (*session.Session, error) {
	return session.New(book, a.lib, a.tr,
		session.WithLogger(logging.Component("session")),
		session.WithColors(session.Colors{
			Comment:    a.cfg.Colors.Comment,
			Dictionary: a.cfg.Colors.Dictionary,
			Selection:  a.cfg.Colors.Selection,
		}),
	)
}

// importFile ingests a document. A file whose content hash was imported
// before returns the stored book unless force is set.
func (a *app) importFile(path string, force bool) (library.Book, bool, error) {
	hash, err := state.ComputeHash(path)
	if err != nil {
		return library.Book{}, false, err
	}

	if !force {
		id, ok, err := a.lib.ImportedBook(hash)
		if err != nil {
			return library.Book{}, false, err
		}
		if ok {
			book, err := a.lib.Book(id)
			if err == nil {
				return book, false, nil
			}
			log.Debug().Str("book", id).Msg("import index points at a deleted book")
		}
	}

	text, err := reader.ExtractText(path)
	if err != nil {
		return library.Book{}, false, err
	}
	if strings.TrimSpace(text) == "" {
		return library.Book{}, false, fmt.Errorf("%s: no text to read", path)
	}

	book := library.NewBook(filepath.Base(path), text, a.cfg.PageBudget, time.Now())
	if err := a.lib.PutBook(book); err != nil {
		return library.Book{}, false, err
	}
	if err := a.lib.RecordImport(hash, book.ID); err != nil {
		return library.Book{}, false, err
	}

	log.Info().Str("book", book.ID).Str("file", path).Int("pages", book.TotalPages).Msg("book imported")
	return book, true, nil
}

// importText ingests text read from a pipe.
func (a *app) importText(text string) (library.Book, error) {
	book := library.NewBook("stdin.txt", reader.Normalize(text), a.cfg.PageBudget, time.Now())
	if _, err := a.lib.Book(book.ID); err == nil {
		return a.lib.Book(book.ID)
	}
	if err := a.lib.PutBook(book); err != nil {
		return library.Book{}, err
	}
	return book, nil
}

// findBook resolves ref as a book id or a unique id prefix.
func (a *app) findBook(ref string) (library.Book, error) {
	books, err := a.lib.Books()
	if err != nil {
		return library.Book{}, err
	}

	var matches []library.Book
	for _, b := range books {
		if b.ID == ref {
			return b, nil
		}
		if ref != "" && strings.HasPrefix(b.ID, ref) {
			matches = append(matches, b)
		}
	}
	switch len(matches) {
	case 0:
		return library.Book{}, fmt.Errorf("%w: %s", library.ErrBookNotFound, ref)
	case 1:
		return matches[0], nil
	default:
		return library.Book{}, fmt.Errorf("book id %q is ambiguous (%d matches)", ref, len(matches))
	}
}

// bookArg resolves a command argument naming either a file to import or a
// stored book.
func (a *app) bookArg(ref string) (library.Book, string, error) {
	if info, err := os.Stat(ref); err == nil && !info.IsDir() {
		book, _, err := a.importFile(ref, false)
		return book, ref, err
	}
	book, err := a.findBook(ref)
	return book, "", err
}

func readStdin() (string, error) {
	stat, _ := os.Stdin.Stat()
	if (stat.Mode() & os.ModeCharDevice) != 0 {
		return "", fmt.Errorf("no input provided. Provide a file, a book id or pipe text to stdin. Try: leaf -h")
	}
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", fmt.Errorf("reading stdin: %w", err)
	}
	return string(data), nil
}

func newCommand(a *app, out io.Writer) *cli.Command {
	f := &flags{}
	rc := &readCmd{app: a}

	root := &cli.Command{
		Name:      "leaf",
		Usage:     "Read foreign-language books with translations, notes and a vocabulary list",
		UsageText: "leaf [global options] [file | book-id]\n   leaf [global options] command [command options]",
		Description: `Leaf splits a document into pages and lets you select words for
translation, keep the ones you want to learn in a dictionary and attach
comments to passages. Supported inputs: ` + strings.Join(reader.SupportedFormats(), ", ") + `.

Run 'leaf book.epub' to open a book, or pipe text to stdin.`,
		Version: build(),
		Writer:  out,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "log-level",
				Usage:       "log level (debug, info, warn, error); overrides the config file",
				Sources:     cli.EnvVars("LEAF_LOG_LEVEL"),
				Destination: &f.LogLevel,
			},
			&cli.StringFlag{
				Name:        "log-file",
				Usage:       "path to log file (defaults to <data-dir>/leaf.log)",
				Sources:     cli.EnvVars("LEAF_LOG_FILE"),
				Destination: &f.LogFile,
			},
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "path to config file",
				Sources:     cli.EnvVars("LEAF_CONFIG"),
				Value:       config.DefaultPath(),
				Destination: &f.ConfigPath,
			},
			&cli.StringFlag{
				Name:        "data-dir",
				Usage:       "path to data directory",
				Sources:     cli.EnvVars("LEAF_DATA_DIR"),
				Value:       state.Dir(),
				Destination: &f.DataDir,
			},
		},
		Before: func(ctx context.Context, c *cli.Command) (context.Context, error) {
			return ctx, a.open(f)
		},
		After: func(ctx context.Context, c *cli.Command) error {
			a.close()
			return nil
		},
		Commands: []*cli.Command{
			rc.command(),
			importCommand(a),
			listCommand(a),
			showCommand(a),
			exportCommand(a),
			removeCommand(a),
			translateCommand(a),
			dictCommand(a),
			commentsCommand(a),
		},
	}

	root.Flags = append(root.Flags, rc.flags(true)...)
	root.Action = rc.run
	return root
}

func main() {
	a := &app{}
	if err := newCommand(a, os.Stdout).Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
