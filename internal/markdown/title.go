// Package markdown derives document titles from markdown sources.
package markdown

import (
	"bytes"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
	"go.abhg.dev/goldmark/toc"
)

// Titler extracts a human-readable title from a markdown document.
type Titler struct {
	parser goldmark.Markdown
}

// NewTitler creates a Titler configured with the goldmark parser.
func NewTitler() *Titler {
	md := goldmark.New(
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
		),
	)
	return &Titler{parser: md}
}

// Title returns the front matter title if present, otherwise the text of the
// first top-level heading. It returns "" when the document has neither.
func (t *Titler) Title(source []byte) string {
	body := source
	if fm, rest, ok := splitFrontMatter(source); ok {
		if title := frontMatterTitle(fm); title != "" {
			return title
		}
		body = rest
	}

	doc := t.parser.Parser().Parse(text.NewReader(body))
	tree, err := toc.Inspect(doc, body,
		toc.MinDepth(1),
		toc.MaxDepth(6),
		toc.Compact(true), // Shallowest heading level present becomes the top level
	)
	if err != nil || len(tree.Items) == 0 {
		return ""
	}

	return strings.TrimSpace(string(tree.Items[0].Title))
}

var frontMatterDelim = []byte("---")

// splitFrontMatter separates a leading YAML front matter block.
func splitFrontMatter(source []byte) (fm, rest []byte, ok bool) {
	if !bytes.HasPrefix(source, frontMatterDelim) {
		return nil, source, false
	}
	afterOpen := source[len(frontMatterDelim):]
	nl := bytes.IndexByte(afterOpen, '\n')
	if nl < 0 || len(bytes.TrimSpace(afterOpen[:nl])) != 0 {
		return nil, source, false
	}
	afterOpen = afterOpen[nl+1:]

	idx := bytes.Index(afterOpen, append([]byte("\n"), frontMatterDelim...))
	if idx < 0 {
		if bytes.HasPrefix(afterOpen, frontMatterDelim) {
			return nil, skipLine(afterOpen), true
		}
		return nil, source, false
	}
	return afterOpen[:idx], skipLine(afterOpen[idx+1:]), true
}

func skipLine(b []byte) []byte {
	if nl := bytes.IndexByte(b, '\n'); nl >= 0 {
		return b[nl+1:]
	}
	return nil
}

// frontMatterTitle reads a top-level "title:" key.
func frontMatterTitle(fm []byte) string {
	for _, line := range strings.Split(string(fm), "\n") {
		key, value, found := strings.Cut(line, ":")
		if !found || strings.TrimSpace(key) != "title" || strings.HasPrefix(line, " ") {
			continue
		}
		return strings.Trim(strings.TrimSpace(value), `"'`)
	}
	return ""
}
