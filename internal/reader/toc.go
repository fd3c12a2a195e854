package reader

import (
	"strings"
)

// TOCEntry represents a single entry in a table of contents
type TOCEntry struct {
	Title   string
	Preview string
	Level   int
	Page    int // 1-based, set by PageTOC
}

// TOCProvider is an optional interface for formats that support TOC extraction
type TOCProvider interface {
	TOC(filename string) ([]TOCEntry, error)
}

// TOC returns the table of contents of a file, or nil when its format has
// none.
func TOC(filename string) ([]TOCEntry, error) {
	f, ok := lookup(filename)
	if !ok {
		return nil, nil
	}
	p, ok := f.(TOCProvider)
	if !ok {
		return nil, nil
	}
	return p.TOC(filename)
}

// PageTOC assigns each entry the page its heading appears on. Entries are
// searched in order, never before the page of the previous entry; an entry
// that cannot be found inherits that page.
func PageTOC(entries []TOCEntry, pages []string) []TOCEntry {
	folded := make([]string, len(pages))
	for i, p := range pages {
		folded[i] = fold(p)
	}

	out := make([]TOCEntry, len(entries))
	page := 1
	for i, e := range entries {
		if p, ok := findPage(folded, page, fold(e.Title)); ok {
			page = p
		} else if p, ok := findPage(folded, page, fold(strings.TrimSuffix(e.Preview, "..."))); ok {
			page = p
		}
		e.Page = page
		out[i] = e
	}
	return out
}

func findPage(folded []string, from int, needle string) (int, bool) {
	if needle == "" {
		return 0, false
	}
	for i := from - 1; i < len(folded); i++ {
		if i >= 0 && strings.Contains(folded[i], needle) {
			return i + 1, true
		}
	}
	return 0, false
}

// fold lower-cases s and collapses whitespace.
func fold(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
