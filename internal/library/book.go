// Package library owns the persisted shapes of the reader: books with their
// pages, per-book comments, the dictionary and reading positions. Values are
// stored through a narrow key/value Store and are versioned so older shapes
// can be normalised once when they are loaded.
package library

import (
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
	"regexp"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/metcalfc/leaf/internal/paginate"
)

// Book is an ingested document and its pages.
type Book struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Content    string    `json:"content"`
	Language   string    `json:"language"`
	FileName   string    `json:"fileName"`
	FileType   string    `json:"fileType"`
	UploadDate time.Time `json:"uploadDate"`
	WordCount  int       `json:"wordCount"`
	Pages      []string  `json:"pages"`
	TotalPages int       `json:"totalPages"`
	PageBudget int       `json:"pageBudget"`
}

// Page returns the text of the 1-based page n, or "" when out of range.
func (b Book) Page(n int) string {
	if n < 1 || n > len(b.Pages) {
		return ""
	}
	return b.Pages[n-1]
}

// Repaginate derives pages from the content with the given budget.
// It reports whether the pages changed.
func (b *Book) Repaginate(budget int) bool {
	if budget <= 0 {
		budget = paginate.DefaultBudget
	}
	if len(b.Pages) > 0 && b.PageBudget == budget && b.TotalPages == len(b.Pages) {
		return false
	}
	b.Pages = paginate.Paginate(b.Content, budget)
	b.TotalPages = len(b.Pages)
	b.PageBudget = budget
	return true
}

// NewBook builds a book from extracted text.
func NewBook(fileName, text string, budget int, now time.Time) Book {
	b := Book{
		ID:         ContentID(text),
		Title:      TitleFromFileName(fileName),
		Content:    text,
		Language:   DetectLanguage(text),
		FileName:   filepath.Base(fileName),
		FileType:   strings.TrimPrefix(strings.ToLower(filepath.Ext(fileName)), "."),
		UploadDate: now,
		WordCount:  len(strings.Fields(text)),
	}
	b.Repaginate(budget)
	return b
}

// ContentID identifies a book by its text so re-importing the same document
// reopens its comments and reading position.
func ContentID(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:16])
}

const (
	maxTitleLen = 200
	untitled    = "Untitled"
)

var (
	titleSeparators = regexp.MustCompile(`[-_]`)
	titleSpaces     = regexp.MustCompile(`\s+`)
)

// TitleFromFileName turns "my-great_book.epub" into "My great book".
func TitleFromFileName(fileName string) string {
	base := filepath.Base(fileName)
	title := strings.TrimSuffix(base, filepath.Ext(base))
	title = titleSeparators.ReplaceAllString(title, " ")
	title = strings.TrimSpace(titleSpaces.ReplaceAllString(title, " "))
	if title == "" || title == "." {
		return untitled
	}

	r, size := utf8.DecodeRuneInString(title)
	title = string(unicode.ToUpper(r)) + title[size:]

	if utf8.RuneCountInString(title) > maxTitleLen {
		runes := []rune(title)
		title = string(runes[:maxTitleLen-3]) + "..."
	}
	return title
}

// DetectLanguage guesses the source language from letters that only occur
// in German, French or Italian. English is the fallback.
func DetectLanguage(text string) string {
	var de, fr, it int
	for _, r := range text {
		switch {
		case strings.ContainsRune("äöüßÄÖÜ", r):
			de++
		case strings.ContainsRune("àâéèêëïîôùûÿç", r):
			fr++
		case strings.ContainsRune("ìíòó", r):
			it++
		}
	}
	switch {
	case de > 0:
		return "de"
	case fr > 0:
		return "fr"
	case it > 0:
		return "it"
	}
	return "en"
}
