package protocol

import (
	"context"

	"github.com/creachadair/jrpc2/handler"
)

// Client is the set of server-to-client messages the bridge sends to the
// editor and receives from downstream language servers.
type Client interface {
	Event(context.Context, *any) error
	LogMessage(context.Context, *LogMessageParams) error
	PublishDiagnostics(context.Context, *PublishDiagnosticsParams) error
	Progress(context.Context, *ProgressParams) error
	RegisterCapability(context.Context, *RegistrationParams) error
	WorkDoneProgressCreate(context.Context, *WorkDoneProgressCreateParams) error
	Configuration(context.Context, *ParamConfiguration) ([]LSPAny, error)
	SemanticTokensRefresh(context.Context) error
}

func buildClientDispatchMap(client Client) handler.Map {
	return handler.Map{
		"$/progress":                       createEmptyResultHandler(client.Progress),
		"client/registerCapability":        createEmptyResultHandler(client.RegisterCapability),
		"telemetry/event":                  createEmptyResultHandler(client.Event),
		"textDocument/publishDiagnostics":  createEmptyResultHandler(client.PublishDiagnostics),
		"window/logMessage":                createEmptyResultHandler(client.LogMessage),
		"window/workDoneProgress/create":   createEmptyResultHandler(client.WorkDoneProgressCreate),
		"workspace/configuration":          createHandler(client.Configuration),
		"workspace/semanticTokens/refresh": createEmptyHandler(client.SemanticTokensRefresh),
	}
}

// ClientDispatcher sends Client calls over a Callbacker, typically the push
// side of the host jrpc2 server.
type ClientDispatcher struct {
	Callbacker
}

var _ Client = (*ClientDispatcher)(nil)

func NewClientDispatcher(cb Callbacker) *ClientDispatcher {
	return &ClientDispatcher{Callbacker: cb}
}

func (s *ClientDispatcher) Event(ctx context.Context, params *any) error {
	return createNotify(ctx, s, "telemetry/event", params)
}
func (s *ClientDispatcher) LogMessage(ctx context.Context, params *LogMessageParams) error {
	return createNotify(ctx, s, "window/logMessage", params)
}
func (s *ClientDispatcher) PublishDiagnostics(ctx context.Context, params *PublishDiagnosticsParams) error {
	return createNotify(ctx, s, "textDocument/publishDiagnostics", params)
}
func (s *ClientDispatcher) Progress(ctx context.Context, params *ProgressParams) error {
	return createNotify(ctx, s, "$/progress", params)
}
func (s *ClientDispatcher) RegisterCapability(ctx context.Context, params *RegistrationParams) error {
	return createEmptyResultCallback(ctx, s, "client/registerCapability", params)
}
func (s *ClientDispatcher) WorkDoneProgressCreate(ctx context.Context, params *WorkDoneProgressCreateParams) error {
	return createEmptyResultCallback(ctx, s, "window/workDoneProgress/create", params)
}
func (s *ClientDispatcher) Configuration(ctx context.Context, params *ParamConfiguration) ([]LSPAny, error) {
	var result []LSPAny
	if err := createCallback(ctx, s, "workspace/configuration", params, &result); err != nil {
		return nil, err
	}
	return result, nil
}
func (s *ClientDispatcher) SemanticTokensRefresh(ctx context.Context) error {
	return createEmptyCallback(ctx, s, "workspace/semanticTokens/refresh")
}
