package lsp

import (
	"context"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/embedls/pkg/document"
	"github.com/walteh/embedls/pkg/lsp/protocol"
)

// claims reports whether uri is a host document the server indexes.
// Virtual documents are never claimed.
func (s *Server) claims(ctx context.Context, uri protocol.DocumentURI) bool {
	if sess, err := s.current(); err == nil && sess.registry.IsVirtual(string(uri)) {
		return false
	}
	if !s.cfg.ClaimsDocument(string(uri)) {
		zerolog.Ctx(ctx).Trace().Str("uri", string(uri)).Msg("ignoring unclaimed document")
		return false
	}
	return true
}

func (s *Server) warm(ctx context.Context, doc document.Document) {
	if _, err := s.index.Parse(ctx, doc); err != nil {
		zerolog.Ctx(ctx).Debug().Err(err).Str("uri", doc.URI()).Msg("indexing document")
	}
}

func (s *Server) DidOpen(ctx context.Context, params *protocol.DidOpenTextDocumentParams) error {
	if !s.claims(ctx, params.TextDocument.URI) {
		return nil
	}
	zerolog.Ctx(ctx).Debug().Str("uri", string(params.TextDocument.URI)).Msg("document opened")

	s.warm(ctx, s.documents.Open(params.TextDocument))
	return nil
}

func (s *Server) DidChange(ctx context.Context, params *protocol.DidChangeTextDocumentParams) error {
	if !s.claims(ctx, params.TextDocument.URI) {
		return nil
	}

	doc, err := s.documents.Change(params.TextDocument, params.ContentChanges)
	if err != nil {
		return errors.Errorf("applying change: %w", err)
	}
	s.warm(ctx, doc)
	return nil
}

func (s *Server) DidClose(ctx context.Context, params *protocol.DidCloseTextDocumentParams) error {
	zerolog.Ctx(ctx).Debug().Str("uri", string(params.TextDocument.URI)).Msg("document closed")

	s.documents.Close(params.TextDocument.URI)
	s.index.Clean(string(params.TextDocument.URI))
	return nil
}

func (s *Server) DidSave(ctx context.Context, params *protocol.DidSaveTextDocumentParams) error {
	if params.Text == nil || !s.claims(ctx, params.TextDocument.URI) {
		return nil
	}

	doc, err := s.documents.Replace(params.TextDocument.URI, *params.Text)
	if err != nil {
		return errors.Errorf("saving: %w", err)
	}
	// the version is unchanged, so the cached parse would still match
	s.index.Clean(string(params.TextDocument.URI))
	s.warm(ctx, doc)
	return nil
}

// TextDocumentContent serves in-memory virtual documents to the editor.
func (s *Server) TextDocumentContent(ctx context.Context, params *protocol.TextDocumentContentParams) (*protocol.TextDocumentContentResult, error) {
	sess, err := s.current()
	if err != nil {
		return nil, err
	}
	text, err := sess.registry.ReadContent(string(params.URI))
	if err != nil {
		return nil, errors.Errorf("reading virtual document: %w", err)
	}
	return &protocol.TextDocumentContentResult{Text: text}, nil
}
