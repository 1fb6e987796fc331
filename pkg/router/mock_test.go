package router_test

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/walteh/embedls/pkg/lsp/protocol"
	"github.com/walteh/embedls/pkg/router"
	"github.com/walteh/embedls/pkg/semtok"
	"github.com/walteh/embedls/pkg/vdoc"
)

type mockExecutor struct {
	mock.Mock
}

var _ router.Executor = (*mockExecutor)(nil)

func (m *mockExecutor) Hover(ctx context.Context, h *vdoc.Handle, pos protocol.Position) (*protocol.Hover, error) {
	args := m.Called(ctx, h, pos)
	hover, _ := args.Get(0).(*protocol.Hover)
	return hover, args.Error(1)
}

func (m *mockExecutor) Completion(ctx context.Context, h *vdoc.Handle, pos protocol.Position, cc *protocol.CompletionContext) (*protocol.CompletionList, error) {
	args := m.Called(ctx, h, pos, cc)
	list, _ := args.Get(0).(*protocol.CompletionList)
	return list, args.Error(1)
}

func (m *mockExecutor) SignatureHelp(ctx context.Context, h *vdoc.Handle, pos protocol.Position, sc *protocol.SignatureHelpContext) (*protocol.SignatureHelp, error) {
	args := m.Called(ctx, h, pos, sc)
	help, _ := args.Get(0).(*protocol.SignatureHelp)
	return help, args.Error(1)
}

func (m *mockExecutor) Definition(ctx context.Context, h *vdoc.Handle, pos protocol.Position) ([]protocol.Location, error) {
	args := m.Called(ctx, h, pos)
	locs, _ := args.Get(0).([]protocol.Location)
	return locs, args.Error(1)
}

func (m *mockExecutor) Formatting(ctx context.Context, h *vdoc.Handle, opts protocol.FormattingOptions) ([]protocol.TextEdit, error) {
	args := m.Called(ctx, h, opts)
	edits, _ := args.Get(0).([]protocol.TextEdit)
	return edits, args.Error(1)
}

func (m *mockExecutor) RangeFormatting(ctx context.Context, h *vdoc.Handle, rng protocol.Range, opts protocol.FormattingOptions) ([]protocol.TextEdit, error) {
	args := m.Called(ctx, h, rng, opts)
	edits, _ := args.Get(0).([]protocol.TextEdit)
	return edits, args.Error(1)
}

func (m *mockExecutor) SemanticTokensFull(ctx context.Context, h *vdoc.Handle) (*protocol.SemanticTokens, *semtok.Legend, error) {
	args := m.Called(ctx, h)
	st, _ := args.Get(0).(*protocol.SemanticTokens)
	legend, _ := args.Get(1).(*semtok.Legend)
	return st, legend, args.Error(2)
}

func (m *mockExecutor) SemanticTokensRange(ctx context.Context, h *vdoc.Handle, rng protocol.Range) (*protocol.SemanticTokens, *semtok.Legend, error) {
	args := m.Called(ctx, h, rng)
	st, _ := args.Get(0).(*protocol.SemanticTokens)
	legend, _ := args.Get(1).(*semtok.Legend)
	return st, legend, args.Error(2)
}

func (m *mockExecutor) Diagnostics(ctx context.Context, h *vdoc.Handle) ([]protocol.Diagnostic, error) {
	args := m.Called(ctx, h)
	diags, _ := args.Get(0).([]protocol.Diagnostic)
	return diags, args.Error(1)
}

// fakeResolver hands out one handle per language and remembers the content
// it was asked to materialize.
type fakeResolver struct {
	mu       sync.Mutex
	err      error
	contents map[string]string
}

func (f *fakeResolver) Resolve(ctx context.Context, vd *vdoc.VirtualDocument, hostURI string) (*vdoc.Handle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	if f.contents == nil {
		f.contents = map[string]string{}
	}
	f.contents[vd.Language.ID()] = vd.Content
	return &vdoc.Handle{
		URI:      protocol.DocumentURI("file:///tmp/embedls/tmp/" + vd.Language.Extension + "/intellisense." + vd.Language.Extension),
		Language: vd.Language,
		Strategy: vd.Language.Strategy,
		HostURI:  hostURI,
	}, nil
}
