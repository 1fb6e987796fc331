package lsp

import (
	"context"

	"github.com/walteh/embedls/pkg/document"
	"github.com/walteh/embedls/pkg/lsp/protocol"
	"github.com/walteh/embedls/pkg/router"
)

// target returns the router and the snapshot a request addresses. A false
// result means the request gets an empty answer: the document is unknown,
// unclaimed or the server is not initialized.
func (s *Server) target(ctx context.Context, uri protocol.DocumentURI) (*router.Router, document.Document, bool) {
	sess, err := s.current()
	if err != nil || !s.claims(ctx, uri) {
		return nil, nil, false
	}
	doc, ok := s.documents.Get(uri)
	if !ok {
		return nil, nil, false
	}
	return sess.router, doc, true
}

func (s *Server) Hover(ctx context.Context, params *protocol.HoverParams) (*protocol.Hover, error) {
	r, doc, ok := s.target(ctx, params.TextDocument.URI)
	if !ok {
		return nil, nil
	}
	return r.Hover(ctx, doc, params.Position, nil)
}

func (s *Server) Completion(ctx context.Context, params *protocol.CompletionParams) (*protocol.CompletionList, error) {
	r, doc, ok := s.target(ctx, params.TextDocument.URI)
	if !ok {
		return nil, nil
	}
	return r.Completion(ctx, doc, params.Position, params.Context, nil)
}

func (s *Server) SignatureHelp(ctx context.Context, params *protocol.SignatureHelpParams) (*protocol.SignatureHelp, error) {
	r, doc, ok := s.target(ctx, params.TextDocument.URI)
	if !ok {
		return nil, nil
	}
	return r.SignatureHelp(ctx, doc, params.Position, params.Context, nil)
}

func (s *Server) Definition(ctx context.Context, params *protocol.DefinitionParams) ([]protocol.Location, error) {
	r, doc, ok := s.target(ctx, params.TextDocument.URI)
	if !ok {
		return nil, nil
	}
	return r.Definition(ctx, doc, params.Position, nil)
}

func (s *Server) Formatting(ctx context.Context, params *protocol.DocumentFormattingParams) ([]protocol.TextEdit, error) {
	r, doc, ok := s.target(ctx, params.TextDocument.URI)
	if !ok {
		return nil, nil
	}
	return r.Formatting(ctx, doc, params.Options, nil)
}

func (s *Server) RangeFormatting(ctx context.Context, params *protocol.DocumentRangeFormattingParams) ([]protocol.TextEdit, error) {
	r, doc, ok := s.target(ctx, params.TextDocument.URI)
	if !ok {
		return nil, nil
	}
	return r.RangeFormatting(ctx, doc, params.Range, params.Options, nil)
}

func (s *Server) SemanticTokensFull(ctx context.Context, params *protocol.SemanticTokensParams) (*protocol.SemanticTokens, error) {
	r, doc, ok := s.target(ctx, params.TextDocument.URI)
	if !ok {
		return nil, nil
	}
	return r.SemanticTokensFull(ctx, doc, nil)
}

func (s *Server) SemanticTokensRange(ctx context.Context, params *protocol.SemanticTokensRangeParams) (*protocol.SemanticTokens, error) {
	r, doc, ok := s.target(ctx, params.TextDocument.URI)
	if !ok {
		return nil, nil
	}
	return r.SemanticTokensRange(ctx, doc, params.Range, nil)
}

// Diagnostic always answers with a full report; documents without embedded
// blocks get an empty one.
func (s *Server) Diagnostic(ctx context.Context, params *protocol.DocumentDiagnosticParams) (*protocol.DocumentDiagnosticReport, error) {
	empty := &protocol.DocumentDiagnosticReport{Kind: protocol.DiagnosticFull, Items: []protocol.Diagnostic{}}

	r, doc, ok := s.target(ctx, params.TextDocument.URI)
	if !ok {
		return empty, nil
	}
	report, err := r.Diagnostics(ctx, doc, func(context.Context) (*protocol.DocumentDiagnosticReport, error) {
		return empty, nil
	})
	if err != nil {
		return nil, err
	}
	return report, nil
}
