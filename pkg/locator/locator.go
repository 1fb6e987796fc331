// Package locator classifies block tokens and finds the language block under
// a host line.
package locator

import (
	"regexp"
	"strings"

	"github.com/walteh/embedls/pkg/blockindex"
	"github.com/walteh/embedls/pkg/embedded"
)

// MathLanguage is the language id of display math blocks.
const MathLanguage = "tex"

var (
	executableInfo = regexp.MustCompile(`^\{=?([a-zA-Z0-9_\-]+)(?: *[ ,].*?)?\}$`)
	leadingID      = regexp.MustCompile(`^\{?=?([a-zA-Z0-9_\-]+)`)
)

// IsExecutableBlock reports whether b carries an embedded language: a fence
// with a {lang} or {=format} info string, or a display math block.
func IsExecutableBlock(b blockindex.Block) bool {
	switch b.Kind {
	case blockindex.KindMathBlock:
		return true
	case blockindex.KindFence:
		return executableInfo.MatchString(strings.TrimSpace(b.Info))
	}
	return false
}

// LanguageIDOf returns the language id of b. Only the last hyphen-separated
// segment of the id is kept, so {foo-bar} yields "bar".
func LanguageIDOf(b blockindex.Block) (string, bool) {
	if b.Kind == blockindex.KindMathBlock {
		return MathLanguage, true
	}
	m := leadingID.FindStringSubmatch(strings.TrimSpace(b.Info))
	if m == nil {
		return "", false
	}
	parts := strings.Split(m[1], "-")
	id := parts[len(parts)-1]
	return id, id != ""
}

// BlockAt returns the first executable block whose interior contains line.
// Fence lines are excluded unless includeFence is set, which widens each
// span by one line on both sides.
func BlockAt(blocks []blockindex.Block, line int, includeFence bool) (blockindex.Block, bool) {
	for _, b := range blocks {
		if !IsExecutableBlock(b) {
			continue
		}
		start, end := b.Span.Start, b.Span.End
		if includeFence {
			start--
			end++
		}
		if start < line && line < end-1 {
			return b, true
		}
	}
	return blockindex.Block{}, false
}

// LanguageAt returns the language id of the block interior under line.
func LanguageAt(blocks []blockindex.Block, line int) (string, bool) {
	b, ok := BlockAt(blocks, line, false)
	if !ok {
		return "", false
	}
	return LanguageIDOf(b)
}

// BlocksOf returns the executable blocks written in lang.
func BlocksOf(blocks []blockindex.Block, lang *embedded.Language) []blockindex.Block {
	var out []blockindex.Block
	for _, b := range blocks {
		if !IsExecutableBlock(b) {
			continue
		}
		if id, ok := LanguageIDOf(b); ok && lang.Matches(id) {
			out = append(out, b)
		}
	}
	return out
}

// Languages lists the distinct language ids of the executable blocks in
// document order.
func Languages(blocks []blockindex.Block) []string {
	var ids []string
	seen := make(map[string]bool)
	for _, b := range blocks {
		if !IsExecutableBlock(b) {
			continue
		}
		id, ok := LanguageIDOf(b)
		if !ok || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	return ids
}
