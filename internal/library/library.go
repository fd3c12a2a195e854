package library

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/metcalfc/leaf/internal/span"
)

// Store is the persistence collaborator. Implementations only move bytes.
type Store interface {
	// Load returns the value stored under key. ok is false when the key
	// has never been saved.
	Load(key string) (data []byte, ok bool, err error)
	// Save replaces the value stored under key.
	Save(key string, data []byte) error
}

// ErrBookNotFound is returned when a book id is unknown.
var ErrBookNotFound = errors.New("book not found")

const (
	keyBooks      = "books"
	keyDictionary = "dictionary"
)

func commentsKey(bookID string) string { return "comments/" + bookID }
func lastPageKey(bookID string) string { return "last-page/" + bookID }
func importKey(fileHash string) string { return "imports/" + fileHash }

// Library reads and writes reader data through a Store.
type Library struct {
	store  Store
	budget int
	log    zerolog.Logger
}

// New creates a library. Books loaded from the store are re-paginated when
// their page budget differs from budget.
func New(store Store, budget int, log zerolog.Logger) *Library {
	return &Library{store: store, budget: budget, log: log}
}

// Budget returns the page budget books are paginated with.
func (l *Library) Budget() int {
	return l.budget
}

// Books returns every stored book, normalising legacy records once and
// writing the normalised form back.
func (l *Library) Books() ([]Book, error) {
	data, ok, err := l.store.Load(keyBooks)
	if err != nil {
		return nil, fmt.Errorf("load books: %w", err)
	}
	if !ok {
		return nil, nil
	}

	books, migrated, err := decodeBooks(data)
	if err != nil {
		return nil, fmt.Errorf("decode books: %w", err)
	}

	for i := range books {
		if books[i].Repaginate(l.budget) {
			l.log.Debug().Str("book", books[i].ID).Int("pages", books[i].TotalPages).Msg("repaginated book")
			migrated = true
		}
	}

	if migrated {
		if err := l.saveBooks(books); err != nil {
			return nil, err
		}
	}
	return books, nil
}

// Book returns the book with the given id.
func (l *Library) Book(id string) (Book, error) {
	books, err := l.Books()
	if err != nil {
		return Book{}, err
	}
	for _, b := range books {
		if b.ID == id {
			return b, nil
		}
	}
	return Book{}, fmt.Errorf("%w: %s", ErrBookNotFound, id)
}

// PutBook inserts a book, or replaces the stored book with the same id.
// New books are listed first.
func (l *Library) PutBook(b Book) error {
	books, err := l.Books()
	if err != nil {
		return err
	}
	b.Repaginate(l.budget)

	idx := slices.IndexFunc(books, func(x Book) bool { return x.ID == b.ID })
	if idx >= 0 {
		books[idx] = b
	} else {
		books = append([]Book{b}, books...)
	}
	return l.saveBooks(books)
}

// DeleteBook removes a book. Unknown ids are ignored.
func (l *Library) DeleteBook(id string) error {
	books, err := l.Books()
	if err != nil {
		return err
	}
	kept := slices.DeleteFunc(books, func(b Book) bool { return b.ID == id })
	return l.saveBooks(kept)
}

func (l *Library) saveBooks(books []Book) error {
	if books == nil {
		books = []Book{}
	}
	return l.save(keyBooks, schemaBooks, books)
}

// Comments returns the comments stored for a book.
func (l *Library) Comments(bookID string) ([]span.Comment, error) {
	data, ok, err := l.store.Load(commentsKey(bookID))
	if err != nil {
		return nil, fmt.Errorf("load comments: %w", err)
	}
	if !ok {
		return nil, nil
	}
	comments, err := decodeComments(data)
	if err != nil {
		return nil, fmt.Errorf("decode comments: %w", err)
	}
	return comments, nil
}

// SaveComments replaces the comments stored for a book.
func (l *Library) SaveComments(bookID string, comments []span.Comment) error {
	if comments == nil {
		comments = []span.Comment{}
	}
	return l.save(commentsKey(bookID), schemaComments, comments)
}

// Dictionary returns the dictionary shared by all books.
func (l *Library) Dictionary() ([]span.DictionaryWord, error) {
	data, ok, err := l.store.Load(keyDictionary)
	if err != nil {
		return nil, fmt.Errorf("load dictionary: %w", err)
	}
	if !ok {
		return nil, nil
	}
	words, err := decodeDictionary(data)
	if err != nil {
		return nil, fmt.Errorf("decode dictionary: %w", err)
	}
	return words, nil
}

// SaveDictionary replaces the dictionary.
func (l *Library) SaveDictionary(words []span.DictionaryWord) error {
	if words == nil {
		words = []span.DictionaryWord{}
	}
	return l.save(keyDictionary, schemaDictionary, words)
}

// LastPage returns the last viewed 1-based page of a book, or 1.
func (l *Library) LastPage(bookID string) (int, error) {
	data, ok, err := l.store.Load(lastPageKey(bookID))
	if err != nil {
		return 1, fmt.Errorf("load last page: %w", err)
	}
	if !ok {
		return 1, nil
	}

	var page int
	if env, isEnv := asEnvelope(data); isEnv {
		err = json.Unmarshal(env.Data, &page)
	} else {
		// Legacy values are the bare page number, sometimes quoted.
		var s string
		if json.Unmarshal(data, &s) == nil {
			page, err = strconv.Atoi(s)
		} else {
			err = json.Unmarshal(data, &page)
		}
	}
	if err != nil || page < 1 {
		return 1, nil
	}
	return page, nil
}

// SetLastPage records the last viewed page of a book.
func (l *Library) SetLastPage(bookID string, page int) error {
	return l.save(lastPageKey(bookID), schemaLastPage, page)
}

// ImportedBook returns the id of the book previously imported from a file
// with the given content hash.
func (l *Library) ImportedBook(fileHash string) (string, bool, error) {
	data, ok, err := l.store.Load(importKey(fileHash))
	if err != nil || !ok {
		return "", false, err
	}
	payload, _, err := unwrap(data, schemaImport)
	if err != nil {
		return "", false, err
	}
	var id string
	if err := json.Unmarshal(payload, &id); err != nil {
		return "", false, err
	}
	return id, id != "", nil
}

// RecordImport remembers which book a file produced.
func (l *Library) RecordImport(fileHash, bookID string) error {
	return l.save(importKey(fileHash), schemaImport, bookID)
}

func (l *Library) save(key, schema string, v any) error {
	data, err := encode(schema, v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", schema, err)
	}
	if err := l.store.Save(key, data); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}
