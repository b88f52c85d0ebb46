// Package markdown extracts the heading structure of markdown documents.
package markdown

import (
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
	"go.abhg.dev/goldmark/toc"
)

// DefaultMaxDepth keeps H1 through H3 in an outline.
const DefaultMaxDepth = 3

// Heading is one entry of a document outline.
type Heading struct {
	Level int    // 1 for H1
	Title string // Heading text without markers
}

// Outliner builds heading outlines with a shared goldmark parser.
type Outliner struct {
	md       goldmark.Markdown
	maxDepth int
}

// NewOutliner creates an Outliner keeping headings up to maxDepth (0 = DefaultMaxDepth).
func NewOutliner(maxDepth int) *Outliner {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	return &Outliner{
		md: goldmark.New(
			goldmark.WithParserOptions(
				parser.WithAutoHeadingID(),
			),
		),
		maxDepth: maxDepth,
	}
}

// Outline returns the document's headings in order, flattened depth-first.
func (o *Outliner) Outline(source []byte) ([]Heading, error) {
	doc := o.md.Parser().Parse(text.NewReader(source))

	tree, err := toc.Inspect(doc, source,
		toc.MinDepth(1),
		toc.MaxDepth(o.maxDepth),
		toc.Compact(true), // Remove empty items
	)
	if err != nil {
		return nil, fmt.Errorf("inspect TOC: %w", err)
	}

	var headings []Heading
	flatten(tree.Items, 1, &headings)
	return headings, nil
}

// flatten walks TOC items depth-first. With Compact, levels with no heading of
// their own are collapsed, so depth is the nesting level rather than the H-number.
func flatten(items toc.Items, depth int, out *[]Heading) {
	for _, item := range items {
		if title := strings.TrimSpace(string(item.Title)); title != "" {
			*out = append(*out, Heading{Level: depth, Title: title})
		}
		if len(item.Items) > 0 {
			flatten(item.Items, depth+1, out)
		}
	}
}

// Titles returns heading titles joined with sep.
func Titles(headings []Heading, sep string) string {
	titles := make([]string, len(headings))
	for i, h := range headings {
		titles[i] = h.Title
	}
	return strings.Join(titles, sep)
}

// Format renders headings as an indented outline, one per line:
// "# Install\n  ## Prerequisites".
func Format(headings []Heading) string {
	lines := make([]string, len(headings))
	for i, h := range headings {
		lines[i] = fmt.Sprintf("%s%s %s", strings.Repeat("  ", h.Level-1), strings.Repeat("#", h.Level), h.Title)
	}
	return strings.Join(lines, "\n")
}
