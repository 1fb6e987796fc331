package blocks

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/fatih/color"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/walteh/embedls/pkg/blockindex"
)

const sample = "# title\n\n```{python}\nx = 1\n```\n"

func TestBlocksJSON(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "doc.md", []byte(sample), 0o644))

	h := &Handler{fs: fs, json: true}
	var out bytes.Buffer
	require.NoError(t, h.Run(&out, "doc.md"))

	var got []blockindex.Block
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	require.Len(t, got, 2)
	assert.Equal(t, blockindex.KindHeading, got[0].Kind)
	assert.Equal(t, blockindex.KindFence, got[1].Kind)
	assert.Equal(t, "{python}", got[1].Info)
	assert.Equal(t, blockindex.Span{Start: 2, End: 5}, got[1].Span)
}

func TestBlocksTable(t *testing.T) {
	color.NoColor = true
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "doc.md", []byte(sample), 0o644))

	h := &Handler{fs: fs}
	var out bytes.Buffer
	require.NoError(t, h.Run(&out, "doc.md"))

	assert.Contains(t, out.String(), "fence")
	assert.Contains(t, out.String(), "[2,5)")
	assert.Contains(t, out.String(), "python")
}

func TestMissingFile(t *testing.T) {
	h := &Handler{fs: afero.NewMemMapFs()}
	require.Error(t, h.Run(&bytes.Buffer{}, "nope.md"))
}
