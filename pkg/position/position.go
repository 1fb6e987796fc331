package position

import (
	"strings"
	"unicode/utf8"

	"github.com/walteh/embedls/pkg/lsp/protocol"
)

// OffsetOf converts an LSP position, whose character is counted in UTF-16
// code units, into a byte offset in text. Positions past the end of a line
// clamp to the end of that line; lines past the end clamp to len(text).
func OffsetOf(text string, pos protocol.Position) int {
	offset := 0
	for i := uint32(0); i < pos.Line; i++ {
		next := strings.IndexByte(text[offset:], '\n')
		if next < 0 {
			return len(text)
		}
		offset += next + 1
	}

	lineEnd := strings.IndexByte(text[offset:], '\n')
	if lineEnd < 0 {
		lineEnd = len(text)
	} else {
		lineEnd += offset
	}

	units := uint32(0)
	for offset < lineEnd && units < pos.Character {
		r, size := utf8.DecodeRuneInString(text[offset:])
		units += uint32(utf16Len(r))
		offset += size
	}
	return offset
}

// PositionOf is the inverse of OffsetOf.
func PositionOf(text string, offset int) protocol.Position {
	if offset > len(text) {
		offset = len(text)
	}

	var pos protocol.Position
	lineStart := 0
	for i := 0; i < offset; i++ {
		if text[i] == '\n' {
			pos.Line++
			lineStart = i + 1
		}
	}

	for _, r := range text[lineStart:offset] {
		pos.Character += uint32(utf16Len(r))
	}
	return pos
}

// Replace applies a ranged edit to text, as sent by incremental document
// synchronization.
func Replace(text string, rng protocol.Range, newText string) string {
	start := OffsetOf(text, rng.Start)
	end := OffsetOf(text, rng.End)
	if end < start {
		start, end = end, start
	}
	return text[:start] + newText + text[end:]
}

func utf16Len(r rune) int {
	if r >= 0x10000 {
		return 2
	}
	return 1
}

// Before reports whether a sorts strictly before b.
func Before(a, b protocol.Position) bool {
	if a.Line != b.Line {
		return a.Line < b.Line
	}
	return a.Character < b.Character
}
