// Package blockindex splits a host document into block-level tokens and
// caches the result per document version.
package blockindex

import "fmt"

type Kind string

const (
	KindFence       Kind = "fence"
	KindCodeBlock   Kind = "code_block"
	KindHeading     Kind = "heading"
	KindLHeading    Kind = "lheading"
	KindHR          Kind = "hr"
	KindBlockquote  Kind = "blockquote"
	KindList        Kind = "list"
	KindListItem    Kind = "list_item"
	KindParagraph   Kind = "paragraph"
	KindHTMLBlock   Kind = "html_block"
	KindMathBlock   Kind = "math_block"
	KindFrontMatter Kind = "front_matter"
	KindContainer   Kind = "container"
)

// Span is a half-open range of host lines, [Start, End).
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

func (s Span) Contains(line int) bool {
	return line >= s.Start && line < s.End
}

func (s Span) String() string {
	return fmt.Sprintf("[%d,%d)", s.Start, s.End)
}

// Block is one block-level token. Blocks are listed in document order with
// containers ahead of their children.
type Block struct {
	Kind    Kind   `json:"kind"`
	Content string `json:"content"`
	// Info is the fence info string, or the attributes of a container.
	Info   string `json:"info,omitempty"`
	Markup string `json:"markup,omitempty"`
	Span   Span   `json:"span"`
	// Depth is the number of enclosing container blocks.
	Depth int `json:"depth"`
}
