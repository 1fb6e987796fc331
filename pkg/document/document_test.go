package document

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/walteh/embedls/pkg/lsp/protocol"
)

func TestSplitLines(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{name: "empty", text: "", want: []string{""}},
		{name: "single", text: "abc", want: []string{"abc"}},
		{name: "trailing_newline", text: "a\nb\n", want: []string{"a", "b", ""}},
		{name: "crlf", text: "a\r\nb", want: []string{"a", "b"}},
		{name: "lone_cr", text: "a\rb\r\n", want: []string{"a", "b", ""}},
		{name: "blank_lines", text: "\n\n", want: []string{"", "", ""}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SplitLines(tt.text))
		})
	}
}

func TestSnapshot(t *testing.T) {
	doc := NewSnapshot("file:///tmp/a.qmd", 3, "# title\n\nbody\n")

	require.Equal(t, 4, doc.LineCount())
	assert.Equal(t, "file:///tmp/a.qmd", doc.URI())
	assert.Equal(t, int32(3), doc.Version())
	assert.Equal(t, "# title", doc.LineAt(0))
	assert.Equal(t, "body", doc.LineAt(2))
	assert.Equal(t, "", doc.LineAt(3))
	assert.Equal(t, "", doc.LineAt(-1))
	assert.Equal(t, "", doc.LineAt(99))
}

func TestContentHash(t *testing.T) {
	assert.Equal(t, ContentHash("a"), ContentHash("a"))
	assert.NotEqual(t, ContentHash("a"), ContentHash("b"))
	assert.Len(t, ContentHash(""), 64)
}

func TestApplyChanges(t *testing.T) {
	rng := func(sl, sc, el, ec uint32) *protocol.Range {
		return &protocol.Range{
			Start: protocol.Position{Line: sl, Character: sc},
			End:   protocol.Position{Line: el, Character: ec},
		}
	}

	tests := []struct {
		name    string
		text    string
		changes []protocol.TextDocumentContentChangeEvent
		want    string
	}{
		{
			name:    "full_replace",
			text:    "old",
			changes: []protocol.TextDocumentContentChangeEvent{{Text: "new\n"}},
			want:    "new\n",
		},
		{
			name:    "insert",
			text:    "a\nc\n",
			changes: []protocol.TextDocumentContentChangeEvent{{Range: rng(1, 0, 1, 0), Text: "b\n"}},
			want:    "a\nb\nc\n",
		},
		{
			name: "sequence",
			text: "x = 1\n",
			changes: []protocol.TextDocumentContentChangeEvent{
				{Range: rng(0, 4, 0, 5), Text: "2"},
				{Range: rng(0, 0, 0, 1), Text: "y"},
			},
			want: "y = 2\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ApplyChanges(tt.text, tt.changes))
		})
	}
}
