package protocol

// NewPositionParams addresses a single position in the document at uri.
func NewPositionParams(uri DocumentURI, position Position) TextDocumentPositionParams {
	return TextDocumentPositionParams{
		TextDocument: TextDocumentIdentifier{URI: uri},
		Position:     position,
	}
}

func NewHoverParams(uri string, position Position) *HoverParams {
	return &HoverParams{TextDocumentPositionParams: NewPositionParams(DocumentURI(uri), position)}
}
