package position_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/walteh/embedls/pkg/lsp/protocol"
	"github.com/walteh/embedls/pkg/position"
)

type preamble int

func (p preamble) PreambleLength() int { return int(p) }

func TestMapperRoundTrip(t *testing.T) {
	for _, n := range []int{0, 1, 2, 5} {
		m := position.ForLanguage(preamble(n))
		for _, p := range []protocol.Position{pos(0, 0), pos(3, 7), pos(100, 2)} {
			assert.Equal(t, p, m.ToHost(m.ToVirtual(p)), "preamble %d position %v", n, p)

			rng := protocol.Range{Start: p, End: pos(p.Line+1, 0)}
			assert.Equal(t, rng, m.RangeToHost(m.RangeToVirtual(rng)))
		}
	}
}

func TestMapperShift(t *testing.T) {
	m := position.NewMapper(2)

	assert.Equal(t, pos(6, 3), m.ToVirtual(pos(4, 3)))
	assert.Equal(t, pos(4, 3), m.ToHost(pos(6, 3)))
	assert.Equal(t, 2, m.PreambleLength())
}

func TestMapperPreambleClamps(t *testing.T) {
	m := position.NewMapper(2)

	assert.True(t, m.InPreamble(0))
	assert.True(t, m.InPreamble(1))
	assert.False(t, m.InPreamble(2))
	assert.Equal(t, pos(0, 4), m.ToHost(pos(1, 4)))
}

func TestMapperIdentity(t *testing.T) {
	m := position.ForLanguage(nil)
	assert.Equal(t, pos(3, 3), m.ToVirtual(pos(3, 3)))
	assert.Equal(t, pos(3, 3), m.ToHost(pos(3, 3)))
	assert.Equal(t, 0, position.NewMapper(-3).PreambleLength())
}
