package reader

import (
	"os"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// MarkdownFormat implements Format for Markdown files.
type MarkdownFormat struct{}

func init() {
	Register(&MarkdownFormat{})
}

func (f *MarkdownFormat) Name() string         { return "Markdown" }
func (f *MarkdownFormat) Extensions() []string { return []string{".md", ".markdown"} }

// Extract renders the document to plain paragraphs, dropping markup.
func (f *MarkdownFormat) Extract(filename string) (string, error) {
	src, err := os.ReadFile(filename)
	if err != nil {
		return "", err
	}
	blocks, _ := markdownBlocks(src)
	return strings.Join(blocks, "\n\n"), nil
}

// TOC lists the document's headings. h1 is level 0.
func (f *MarkdownFormat) TOC(filename string) ([]TOCEntry, error) {
	src, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	_, entries := markdownBlocks(src)
	return entries, nil
}

// markdownBlocks walks the parsed document and returns its text blocks and
// headings. The preview of a heading is the start of the block after it.
func markdownBlocks(src []byte) ([]string, []TOCEntry) {
	doc := goldmark.New().Parser().Parse(text.NewReader(src))

	var blocks []string
	var entries []TOCEntry
	pendingPreview := -1

	add := func(s string) {
		s = strings.TrimSpace(s)
		if s == "" {
			return
		}
		blocks = append(blocks, s)
		if pendingPreview >= 0 {
			entries[pendingPreview].Preview = preview(s)
			pendingPreview = -1
		}
	}

	ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}

		switch node := n.(type) {
		case *ast.Heading:
			var sb strings.Builder
			inlineText(node, src, &sb)
			title := strings.TrimSpace(sb.String())
			add(title)
			if title != "" {
				entries = append(entries, TOCEntry{Title: title, Level: node.Level - 1})
				pendingPreview = len(entries) - 1
			}
			return ast.WalkSkipChildren, nil

		case *ast.Paragraph, *ast.TextBlock:
			var sb strings.Builder
			inlineText(node, src, &sb)
			add(sb.String())
			return ast.WalkSkipChildren, nil

		case *ast.FencedCodeBlock, *ast.CodeBlock:
			var sb strings.Builder
			lines := node.Lines()
			for i := 0; i < lines.Len(); i++ {
				seg := lines.At(i)
				sb.Write(seg.Value(src))
			}
			add(sb.String())
			return ast.WalkSkipChildren, nil

		case *ast.HTMLBlock, *ast.ThematicBreak:
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})

	return blocks, entries
}

// inlineText writes the text of n's inline children, without markup.
func inlineText(n ast.Node, src []byte, sb *strings.Builder) {
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		switch t := c.(type) {
		case *ast.Text:
			sb.Write(t.Segment.Value(src))
			switch {
			case t.HardLineBreak():
				sb.WriteByte('\n')
			case t.SoftLineBreak():
				sb.WriteByte(' ')
			}
		case *ast.String:
			sb.Write(t.Value)
		case *ast.AutoLink:
			sb.Write(t.Label(src))
		case *ast.RawHTML:
			// markup only
		default:
			inlineText(c, src, sb)
		}
	}
}

// preview returns the first ten words of s.
func preview(s string) string {
	words := strings.Fields(s)
	if len(words) > 10 {
		return strings.Join(words[:10], " ") + "..."
	}
	return strings.Join(words, " ")
}
