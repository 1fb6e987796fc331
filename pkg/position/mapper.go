package position

import (
	"github.com/walteh/embedls/pkg/lsp/protocol"
)

// Mapper converts positions between a host document and a virtual document
// whose content starts with a fixed number of injected preamble lines.
type Mapper struct {
	preamble uint32
}

// Preambler is anything that knows how many lines it injects ahead of the
// copied host lines.
type Preambler interface {
	PreambleLength() int
}

func NewMapper(preambleLength int) Mapper {
	if preambleLength < 0 {
		preambleLength = 0
	}
	return Mapper{preamble: uint32(preambleLength)}
}

func ForLanguage(lang Preambler) Mapper {
	if lang == nil {
		return Mapper{}
	}
	return NewMapper(lang.PreambleLength())
}

func (m Mapper) PreambleLength() int {
	return int(m.preamble)
}

func (m Mapper) ToVirtual(pos protocol.Position) protocol.Position {
	return protocol.Position{Line: pos.Line + m.preamble, Character: pos.Character}
}

// ToHost clamps positions inside the preamble to line 0.
func (m Mapper) ToHost(pos protocol.Position) protocol.Position {
	return protocol.Position{Line: m.LineToHost(pos.Line), Character: pos.Character}
}

func (m Mapper) LineToHost(line uint32) uint32 {
	if line < m.preamble {
		return 0
	}
	return line - m.preamble
}

func (m Mapper) RangeToVirtual(rng protocol.Range) protocol.Range {
	return protocol.Range{Start: m.ToVirtual(rng.Start), End: m.ToVirtual(rng.End)}
}

func (m Mapper) RangeToHost(rng protocol.Range) protocol.Range {
	return protocol.Range{Start: m.ToHost(rng.Start), End: m.ToHost(rng.End)}
}

// InPreamble reports whether a virtual-space line has no host counterpart.
func (m Mapper) InPreamble(line uint32) bool {
	return line < m.preamble
}
