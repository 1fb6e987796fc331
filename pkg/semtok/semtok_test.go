package semtok_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/walteh/embedls/pkg/lsp/protocol"
	"github.com/walteh/embedls/pkg/position"
	"github.com/walteh/embedls/pkg/semtok"
)

func TestDecodeEncode(t *testing.T) {
	tests := []struct {
		name   string
		data   []uint32
		tokens []semtok.Token
	}{
		{
			name:   "empty",
			data:   []uint32{},
			tokens: []semtok.Token{},
		},
		{
			name: "same_line_accumulates_start",
			data: []uint32{2, 4, 3, 1, 0, 0, 5, 2, 0, 1},
			tokens: []semtok.Token{
				{Line: 2, Start: 4, Length: 3, Type: 1},
				{Line: 2, Start: 9, Length: 2, Type: 0, Modifiers: 1},
			},
		},
		{
			name: "new_line_resets_start",
			data: []uint32{0, 4, 3, 1, 0, 1, 2, 2, 0, 0},
			tokens: []semtok.Token{
				{Line: 0, Start: 4, Length: 3, Type: 1},
				{Line: 1, Start: 2, Length: 2, Type: 0},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := semtok.Decode(tt.data)
			require.Equal(t, tt.tokens, got)
			assert.Equal(t, tt.data, semtok.Encode(got))
		})
	}
}

func TestDecodeIgnoresPartialGroup(t *testing.T) {
	got := semtok.Decode([]uint32{0, 1, 2, 3, 0, 9, 9})
	assert.Len(t, got, 1)
}

func TestEncodeSorts(t *testing.T) {
	data := semtok.Encode([]semtok.Token{
		{Line: 3, Start: 1, Length: 1},
		{Line: 1, Start: 5, Length: 1},
		{Line: 1, Start: 2, Length: 1},
	})
	assert.Equal(t, []uint32{1, 2, 1, 0, 0, 0, 3, 1, 0, 0, 2, 1, 1, 0, 0}, data)
}

func TestRemap(t *testing.T) {
	source := semtok.Legend{
		TokenTypes:     []string{"variable", "pyBuiltin", "function"},
		TokenModifiers: []string{"pyLocal", "readonly", "declaration"},
	}
	target := semtok.Legend{
		TokenTypes:     []string{"function", "variable"},
		TokenModifiers: []string{"declaration", "static", "readonly"},
	}

	tokens := []semtok.Token{
		{Line: 0, Start: 0, Length: 1, Type: 0, Modifiers: 0b011},
		{Line: 0, Start: 2, Length: 1, Type: 1, Modifiers: 0},
		{Line: 1, Start: 0, Length: 4, Type: 2, Modifiers: 0b100},
	}

	got := semtok.Remap(tokens, source, target)

	require.Len(t, got, 2, "a type only known to the source legend is dropped")
	assert.Equal(t, uint32(1), got[0].Type, "variable moves to index 1")
	assert.Equal(t, uint32(0b100), got[0].Modifiers, "readonly moves to bit 2, pyLocal is cleared")
	assert.Equal(t, uint32(0), got[1].Type, "function moves to index 0")
	assert.Equal(t, uint32(0b001), got[1].Modifiers, "declaration moves to bit 0")
}

func TestIndexMap(t *testing.T) {
	got := semtok.IndexMap([]string{"a", "b", "c"}, []string{"c", "a"})
	assert.Equal(t, map[uint32]uint32{0: 1, 2: 0}, got)
}

func TestRemapToHost(t *testing.T) {
	source := &semtok.Legend{
		TokenTypes:     []string{"comment", "variable"},
		TokenModifiers: []string{"readonly"},
	}

	st := &protocol.SemanticTokens{
		ResultID: "7",
		Data: semtok.Encode([]semtok.Token{
			{Line: 0, Start: 0, Length: 14, Type: 0},
			{Line: 5, Start: 0, Length: 1, Type: 1, Modifiers: 1},
		}),
	}

	got := semtok.RemapToHost(st, source, position.NewMapper(2))
	require.NotNil(t, got)
	assert.Equal(t, "7", got.ResultID)

	tokens := semtok.Decode(got.Data)
	require.Len(t, tokens, 1, "tokens on preamble lines have no host line")
	assert.Equal(t, semtok.Token{Line: 3, Start: 0, Length: 1, Type: 8, Modifiers: 1 << 2}, tokens[0])
}

func TestRemapToHostWithoutLegend(t *testing.T) {
	st := &protocol.SemanticTokens{Data: []uint32{4, 1, 2, 99, 7}}

	got := semtok.RemapToHost(st, nil, position.NewMapper(1))
	assert.Equal(t, []uint32{3, 1, 2, 99, 7}, got.Data)

	empty := &protocol.SemanticTokens{ResultID: "x"}
	assert.Same(t, empty, semtok.RemapToHost(empty, nil, position.NewMapper(1)))
	assert.Nil(t, semtok.RemapToHost(nil, nil, position.NewMapper(1)))
}

func TestFilter(t *testing.T) {
	tokens := []semtok.Token{{Line: 1}, {Line: 2}, {Line: 3}}
	got := semtok.Filter(tokens, func(line uint32) bool { return line != 2 })
	assert.Equal(t, []semtok.Token{{Line: 1}, {Line: 3}}, got)
}

func TestUniversalLegendProtocol(t *testing.T) {
	l := semtok.Universal.Protocol()
	assert.Equal(t, "namespace", l.TokenTypes[0])
	assert.Equal(t, "variable", l.TokenTypes[8])
	assert.Equal(t, "readonly", l.TokenModifiers[2])

	empty := semtok.Legend{}.Protocol()
	assert.NotNil(t, empty.TokenTypes)
	assert.NotNil(t, empty.TokenModifiers)
}
