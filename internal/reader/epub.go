package reader

import (
	"fmt"
	"io"
	"strings"

	"github.com/taylorskalyo/goreader/epub"
)

// EPUBFormat implements Format for EPUB files.
type EPUBFormat struct{}

func init() {
	Register(&EPUBFormat{})
}

func (f *EPUBFormat) Name() string         { return "EPUB" }
func (f *EPUBFormat) Extensions() []string { return []string{".epub"} }
func (f *EPUBFormat) Extract(filename string) (string, error) {
	return ExtractTextFromEPUB(filename)
}

// ExtractTextFromEPUB extracts all text content from an EPUB file in spine
// order.
func ExtractTextFromEPUB(filename string) (string, error) {
	sections, err := epubSections(filename)
	if err != nil {
		return "", err
	}

	var parts []string
	for _, s := range sections {
		parts = append(parts, s.text)
	}
	return strings.Join(parts, "\n\n"), nil
}

// section is the text of one spine item.
type section struct {
	href string
	text string
}

func epubSections(filename string) ([]section, error) {
	rc, err := epub.OpenReader(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open epub: %w", err)
	}
	defer rc.Close()

	if len(rc.Rootfiles) == 0 {
		return nil, fmt.Errorf("no rootfiles found in epub")
	}

	book := rc.Rootfiles[0]
	var out []section

	for _, ref := range book.Spine.Itemrefs {
		if ref.Item == nil {
			continue
		}
		r, err := ref.Item.Open()
		if err != nil {
			continue
		}
		data, err := io.ReadAll(r)
		r.Close()
		if err != nil {
			continue
		}
		if text := extractTextFromHTML(string(data)); text != "" {
			out = append(out, section{href: ref.Item.HREF, text: text})
		}
	}

	return out, nil
}
