package semtok

import (
	"sort"
)

// Token is a semantic token in absolute coordinates.
type Token struct {
	Line      uint32
	Start     uint32
	Length    uint32
	Type      uint32
	Modifiers uint32
}

// Decode expands a delta encoded stream. A trailing partial group is ignored.
func Decode(data []uint32) []Token {
	tokens := make([]Token, 0, len(data)/5)

	var line, start uint32
	for i := 0; i+5 <= len(data); i += 5 {
		deltaLine, deltaStart := data[i], data[i+1]
		if deltaLine > 0 {
			line += deltaLine
			start = deltaStart
		} else {
			start += deltaStart
		}
		tokens = append(tokens, Token{
			Line:      line,
			Start:     start,
			Length:    data[i+2],
			Type:      data[i+3],
			Modifiers: data[i+4],
		})
	}
	return tokens
}

// Encode sorts tokens by position and produces the delta encoded stream.
func Encode(tokens []Token) []uint32 {
	sorted := append([]Token(nil), tokens...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Line != sorted[j].Line {
			return sorted[i].Line < sorted[j].Line
		}
		return sorted[i].Start < sorted[j].Start
	})

	data := make([]uint32, 0, len(sorted)*5)
	var prevLine, prevStart uint32
	for _, tok := range sorted {
		deltaLine := tok.Line - prevLine
		deltaStart := tok.Start
		if deltaLine == 0 {
			deltaStart = tok.Start - prevStart
		}
		data = append(data, deltaLine, deltaStart, tok.Length, tok.Type, tok.Modifiers)
		prevLine = tok.Line
		prevStart = tok.Start
	}
	return data
}
