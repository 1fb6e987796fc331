// Package vdoc synthesizes single-language virtual documents from a host
// document and materializes them behind addressable handles.
package vdoc

import (
	"strings"

	"github.com/walteh/embedls/pkg/blockindex"
	"github.com/walteh/embedls/pkg/document"
	"github.com/walteh/embedls/pkg/embedded"
	"github.com/walteh/embedls/pkg/locator"
	"github.com/walteh/embedls/pkg/position"
)

// VirtualDocument is the content of every block of one language, laid out
// on the same lines as in the host and shifted down by the preamble.
type VirtualDocument struct {
	Language *embedded.Language
	Content  string
}

// Build keeps the interior lines of every block written in lang and blanks
// every other host line. The preamble, if any, is prepended.
func Build(doc document.Document, blocks []blockindex.Block, lang *embedded.Language) *VirtualDocument {
	lineCount := doc.LineCount()
	lines := make([]string, lineCount)

	for _, b := range locator.BlocksOf(blocks, lang) {
		for line := b.Span.Start + 1; line < b.Span.End-1 && line < lineCount; line++ {
			lines[line] = doc.LineAt(line)
		}
	}

	if n := lang.PreambleLength(); n > 0 {
		lines = append(append(make([]string, 0, n+lineCount), lang.Preamble...), lines...)
	}

	return &VirtualDocument{
		Language: lang,
		Content:  strings.Join(lines, "\n"),
	}
}

func (v *VirtualDocument) LineCount() int {
	return strings.Count(v.Content, "\n") + 1
}

// Mapper converts positions between host space and this document.
func (v *VirtualDocument) Mapper() position.Mapper {
	return position.ForLanguage(v.Language)
}
