package semtok

import (
	"github.com/walteh/embedls/pkg/lsp/protocol"
)

// Legend is the ordered list of type and modifier names a provider uses to
// encode token classifications.
type Legend struct {
	TokenTypes     []string
	TokenModifiers []string
}

func LegendFromProtocol(l protocol.SemanticTokensLegend) *Legend {
	return &Legend{TokenTypes: l.TokenTypes, TokenModifiers: l.TokenModifiers}
}

func (l Legend) Protocol() protocol.SemanticTokensLegend {
	return protocol.SemanticTokensLegend{
		TokenTypes:     protocol.NonNilSlice(l.TokenTypes),
		TokenModifiers: protocol.NonNilSlice(l.TokenModifiers),
	}
}

// Universal is the legend advertised to the editor: the predefined LSP 3.17
// token types and modifiers, in the order the LSP lists them.
var Universal = Legend{
	TokenTypes: []string{
		"namespace",
		"type",
		"class",
		"enum",
		"interface",
		"struct",
		"typeParameter",
		"parameter",
		"variable",
		"property",
		"enumMember",
		"event",
		"function",
		"method",
		"macro",
		"keyword",
		"modifier",
		"comment",
		"string",
		"number",
		"regexp",
		"operator",
		"decorator",
		"label",
	},
	TokenModifiers: []string{
		"declaration",
		"definition",
		"readonly",
		"static",
		"deprecated",
		"abstract",
		"async",
		"modification",
		"documentation",
		"defaultLibrary",
	},
}

// IndexMap maps source indices to target indices by name. Names missing
// from the target are absent from the map.
func IndexMap(source, target []string) map[uint32]uint32 {
	byName := make(map[string]uint32, len(target))
	for i, name := range target {
		if _, dup := byName[name]; !dup {
			byName[name] = uint32(i)
		}
	}

	out := make(map[uint32]uint32, len(source))
	for i, name := range source {
		if idx, ok := byName[name]; ok {
			out[uint32(i)] = idx
		}
	}
	return out
}
