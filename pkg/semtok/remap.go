package semtok

import (
	"github.com/walteh/embedls/pkg/lsp/protocol"
	"github.com/walteh/embedls/pkg/position"
)

// Remap rewrites token classifications from the source legend into the
// target legend. Tokens whose type has no name in the target are removed;
// modifier bits without a target name are cleared.
func Remap(tokens []Token, source, target Legend) []Token {
	typeIndexMap := IndexMap(source.TokenTypes, target.TokenTypes)
	modifierIndexMap := IndexMap(source.TokenModifiers, target.TokenModifiers)

	out := make([]Token, 0, len(tokens))
	for _, tok := range tokens {
		typ, ok := typeIndexMap[tok.Type]
		if !ok {
			continue
		}

		var mods uint32
		for bit := uint32(0); bit < 32; bit++ {
			if tok.Modifiers&(1<<bit) == 0 {
				continue
			}
			if mapped, ok := modifierIndexMap[bit]; ok {
				mods |= 1 << mapped
			}
		}

		tok.Type = typ
		tok.Modifiers = mods
		out = append(out, tok)
	}
	return out
}

// RemapToHost converts a provider's semantic tokens for a virtual document
// into host-space tokens in the universal legend. A nil source legend leaves
// classifications untouched. Tokens on preamble lines are dropped.
func RemapToHost(st *protocol.SemanticTokens, source *Legend, mapper position.Mapper) *protocol.SemanticTokens {
	if st == nil || len(st.Data) == 0 {
		return st
	}

	tokens := Decode(st.Data)
	if source != nil {
		tokens = Remap(tokens, *source, Universal)
	}

	hosted := make([]Token, 0, len(tokens))
	for _, tok := range tokens {
		if mapper.InPreamble(tok.Line) {
			continue
		}
		tok.Line = mapper.LineToHost(tok.Line)
		hosted = append(hosted, tok)
	}

	return &protocol.SemanticTokens{
		ResultID: st.ResultID,
		Data:     Encode(hosted),
	}
}

// Filter keeps the tokens whose line satisfies keep.
func Filter(tokens []Token, keep func(line uint32) bool) []Token {
	out := make([]Token, 0, len(tokens))
	for _, tok := range tokens {
		if keep(tok.Line) {
			out = append(out, tok)
		}
	}
	return out
}
