package protocol

import (
	"context"
	"encoding/json"

	"github.com/creachadair/jrpc2/handler"
)

// Server is the set of LSP requests and notifications answered by a language
// server. The host bridge implements it, and ServerDispatcher forwards it to
// a downstream language server.
type Server interface {
	Initialize(context.Context, *ParamInitialize) (*InitializeResult, error)
	Initialized(context.Context, *InitializedParams) error
	Shutdown(context.Context) error
	Exit(context.Context) error
	SetTrace(context.Context, *SetTraceParams) error
	DidOpen(context.Context, *DidOpenTextDocumentParams) error
	DidChange(context.Context, *DidChangeTextDocumentParams) error
	DidClose(context.Context, *DidCloseTextDocumentParams) error
	DidSave(context.Context, *DidSaveTextDocumentParams) error
	Hover(context.Context, *HoverParams) (*Hover, error)
	Completion(context.Context, *CompletionParams) (*CompletionList, error)
	SignatureHelp(context.Context, *SignatureHelpParams) (*SignatureHelp, error)
	Definition(context.Context, *DefinitionParams) ([]Location, error)
	Formatting(context.Context, *DocumentFormattingParams) ([]TextEdit, error)
	RangeFormatting(context.Context, *DocumentRangeFormattingParams) ([]TextEdit, error)
	SemanticTokensFull(context.Context, *SemanticTokensParams) (*SemanticTokens, error)
	SemanticTokensRange(context.Context, *SemanticTokensRangeParams) (*SemanticTokens, error)
	Diagnostic(context.Context, *DocumentDiagnosticParams) (*DocumentDiagnosticReport, error)
	TextDocumentContent(context.Context, *TextDocumentContentParams) (*TextDocumentContentResult, error)
}

func buildServerDispatchMap(server Server) handler.Map {
	return handler.Map{
		"$/cancelRequest":                   createEmptyResultHandler(cancelRequest),
		"$/setTrace":                        createEmptyResultHandler(server.SetTrace),
		"exit":                              createEmptyHandler(server.Exit),
		"initialize":                        createHandler(server.Initialize),
		"initialized":                       createEmptyResultHandler(server.Initialized),
		"shutdown":                          createEmptyHandler(server.Shutdown),
		"textDocument/completion":           createHandler(server.Completion),
		"textDocument/definition":           createHandler(server.Definition),
		"textDocument/diagnostic":           createHandler(server.Diagnostic),
		"textDocument/didChange":            createEmptyResultHandler(server.DidChange),
		"textDocument/didClose":             createEmptyResultHandler(server.DidClose),
		"textDocument/didOpen":              createEmptyResultHandler(server.DidOpen),
		"textDocument/didSave":              createEmptyResultHandler(server.DidSave),
		"textDocument/formatting":           createHandler(server.Formatting),
		"textDocument/hover":                createHandler(server.Hover),
		"textDocument/rangeFormatting":      createHandler(server.RangeFormatting),
		"textDocument/semanticTokens/full":  createHandler(server.SemanticTokensFull),
		"textDocument/semanticTokens/range": createHandler(server.SemanticTokensRange),
		"textDocument/signatureHelp":        createHandler(server.SignatureHelp),
		"workspace/textDocumentContent":     createHandler(server.TextDocumentContent),
	}
}

func cancelRequest(ctx context.Context, params *CancelParams) error {
	return nil
}

// ServerDispatcher sends Server calls over a Callbacker, typically a jrpc2
// client connected to a language server process.
type ServerDispatcher struct {
	Callbacker
}

var _ Server = (*ServerDispatcher)(nil)

func NewServerDispatcher(cb Callbacker) *ServerDispatcher {
	return &ServerDispatcher{Callbacker: cb}
}

func (s *ServerDispatcher) Initialize(ctx context.Context, params *ParamInitialize) (*InitializeResult, error) {
	var result *InitializeResult
	if err := createCallback(ctx, s, "initialize", params, &result); err != nil {
		return nil, err
	}
	return result, nil
}
func (s *ServerDispatcher) Initialized(ctx context.Context, params *InitializedParams) error {
	return createNotify(ctx, s, "initialized", params)
}
func (s *ServerDispatcher) Shutdown(ctx context.Context) error {
	return createEmptyCallback(ctx, s, "shutdown")
}
func (s *ServerDispatcher) Exit(ctx context.Context) error {
	return createEmptyNotify(ctx, s, "exit")
}
func (s *ServerDispatcher) SetTrace(ctx context.Context, params *SetTraceParams) error {
	return createNotify(ctx, s, "$/setTrace", params)
}
func (s *ServerDispatcher) DidOpen(ctx context.Context, params *DidOpenTextDocumentParams) error {
	return createNotify(ctx, s, "textDocument/didOpen", params)
}
func (s *ServerDispatcher) DidChange(ctx context.Context, params *DidChangeTextDocumentParams) error {
	return createNotify(ctx, s, "textDocument/didChange", params)
}
func (s *ServerDispatcher) DidClose(ctx context.Context, params *DidCloseTextDocumentParams) error {
	return createNotify(ctx, s, "textDocument/didClose", params)
}
func (s *ServerDispatcher) DidSave(ctx context.Context, params *DidSaveTextDocumentParams) error {
	return createNotify(ctx, s, "textDocument/didSave", params)
}
func (s *ServerDispatcher) Hover(ctx context.Context, params *HoverParams) (*Hover, error) {
	var result *Hover
	if err := createCallback(ctx, s, "textDocument/hover", params, &result); err != nil {
		return nil, err
	}
	return result, nil
}
func (s *ServerDispatcher) Completion(ctx context.Context, params *CompletionParams) (*CompletionList, error) {
	var raw json.RawMessage
	if err := createCallback(ctx, s, "textDocument/completion", params, &raw); err != nil {
		return nil, err
	}
	return DecodeCompletion(raw)
}
func (s *ServerDispatcher) SignatureHelp(ctx context.Context, params *SignatureHelpParams) (*SignatureHelp, error) {
	var result *SignatureHelp
	if err := createCallback(ctx, s, "textDocument/signatureHelp", params, &result); err != nil {
		return nil, err
	}
	return result, nil
}
func (s *ServerDispatcher) Definition(ctx context.Context, params *DefinitionParams) ([]Location, error) {
	var raw json.RawMessage
	if err := createCallback(ctx, s, "textDocument/definition", params, &raw); err != nil {
		return nil, err
	}
	return DecodeLocations(raw)
}
func (s *ServerDispatcher) Formatting(ctx context.Context, params *DocumentFormattingParams) ([]TextEdit, error) {
	var result []TextEdit
	if err := createCallback(ctx, s, "textDocument/formatting", params, &result); err != nil {
		return nil, err
	}
	return result, nil
}
func (s *ServerDispatcher) RangeFormatting(ctx context.Context, params *DocumentRangeFormattingParams) ([]TextEdit, error) {
	var result []TextEdit
	if err := createCallback(ctx, s, "textDocument/rangeFormatting", params, &result); err != nil {
		return nil, err
	}
	return result, nil
}
func (s *ServerDispatcher) SemanticTokensFull(ctx context.Context, params *SemanticTokensParams) (*SemanticTokens, error) {
	var result *SemanticTokens
	if err := createCallback(ctx, s, "textDocument/semanticTokens/full", params, &result); err != nil {
		return nil, err
	}
	return result, nil
}
func (s *ServerDispatcher) SemanticTokensRange(ctx context.Context, params *SemanticTokensRangeParams) (*SemanticTokens, error) {
	var result *SemanticTokens
	if err := createCallback(ctx, s, "textDocument/semanticTokens/range", params, &result); err != nil {
		return nil, err
	}
	return result, nil
}
func (s *ServerDispatcher) Diagnostic(ctx context.Context, params *DocumentDiagnosticParams) (*DocumentDiagnosticReport, error) {
	var result *DocumentDiagnosticReport
	if err := createCallback(ctx, s, "textDocument/diagnostic", params, &result); err != nil {
		return nil, err
	}
	return result, nil
}
func (s *ServerDispatcher) TextDocumentContent(ctx context.Context, params *TextDocumentContentParams) (*TextDocumentContentResult, error) {
	var result *TextDocumentContentResult
	if err := createCallback(ctx, s, "workspace/textDocumentContent", params, &result); err != nil {
		return nil, err
	}
	return result, nil
}
