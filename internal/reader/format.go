// Package reader extracts plain text from document files.
//
// Formats register themselves by extension. Every extractor returns text in
// which paragraphs are separated by a blank line, the shape the paginator
// splits on.
package reader

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// ErrUnsupportedFormat is returned for files no extractor can read.
var ErrUnsupportedFormat = errors.New("unsupported file format")

// unsupported lists extensions that are recognised but cannot be read.
var unsupported = map[string]bool{".pdf": true, ".doc": true}

// Format defines a file format reader for extracting text.
type Format interface {
	Name() string
	Extensions() []string
	Extract(filename string) (string, error)
}

var registry []Format

// Register adds a format reader to the registry.
func Register(f Format) {
	registry = append(registry, f)
}

func lookup(filename string) (Format, bool) {
	ext := strings.ToLower(filepath.Ext(filename))
	for _, f := range registry {
		for _, e := range f.Extensions() {
			if ext == e {
				return f, true
			}
		}
	}
	return nil, false
}

// ExtractText extracts text from a file, using a registered format or plain
// text fallback. The result is normalised.
func ExtractText(filename string) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if unsupported[ext] {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
	}

	if f, ok := lookup(filename); ok {
		text, err := f.Extract(filename)
		if err != nil {
			return "", err
		}
		return Normalize(text), nil
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		return "", err
	}
	return Normalize(string(data)), nil
}

// SupportedFormats returns registered format names with their extensions.
func SupportedFormats() []string {
	var out []string
	for _, f := range registry {
		out = append(out, f.Name()+" ("+strings.Join(f.Extensions(), ", ")+")")
	}
	return out
}

var (
	trailingSpace = regexp.MustCompile(`[ \t]+\n`)
	blankRun      = regexp.MustCompile(`\n\s*\n\s*\n+`)
)

// Normalize unifies line endings and collapses runs of blank lines into a
// single paragraph break.
func Normalize(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = trailingSpace.ReplaceAllString(text, "\n")
	text = blankRun.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}
