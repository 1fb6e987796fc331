package document

import (
	"github.com/walteh/embedls/pkg/lsp/protocol"
	"github.com/walteh/embedls/pkg/position"
)

// ApplyChanges folds a didChange batch into text. A change without a range
// replaces the whole text.
func ApplyChanges(text string, changes []protocol.TextDocumentContentChangeEvent) string {
	for _, change := range changes {
		if change.Range == nil {
			text = change.Text
			continue
		}
		text = position.Replace(text, *change.Range, change.Text)
	}
	return text
}
