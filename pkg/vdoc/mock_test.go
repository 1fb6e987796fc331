package vdoc

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/walteh/embedls/pkg/embedded"
	"github.com/walteh/embedls/pkg/lsp/protocol"
)

type mockTooling struct {
	mock.Mock
}

var _ Tooling = (*mockTooling)(nil)

func (m *mockTooling) DidOpen(ctx context.Context, lang *embedded.Language, params *protocol.DidOpenTextDocumentParams) error {
	return m.Called(ctx, lang, params).Error(0)
}

func (m *mockTooling) DidChange(ctx context.Context, lang *embedded.Language, params *protocol.DidChangeTextDocumentParams) error {
	return m.Called(ctx, lang, params).Error(0)
}

func (m *mockTooling) DidClose(ctx context.Context, lang *embedded.Language, params *protocol.DidCloseTextDocumentParams) error {
	return m.Called(ctx, lang, params).Error(0)
}

func (m *mockTooling) Hover(ctx context.Context, lang *embedded.Language, params *protocol.HoverParams) (*protocol.Hover, error) {
	args := m.Called(ctx, lang, params)
	hover, _ := args.Get(0).(*protocol.Hover)
	return hover, args.Error(1)
}
