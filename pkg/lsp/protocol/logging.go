package protocol

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/creachadair/jrpc2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/walteh/embedls/pkg/debug"
)

type MultiRPCLogger struct {
	mu      sync.Mutex
	loggers []jrpc2.RPCLogger
}

func (m *MultiRPCLogger) LogRequest(ctx context.Context, req *jrpc2.Request) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, logger := range m.loggers {
		logger.LogRequest(ctx, req)
	}
}

func (m *MultiRPCLogger) LogResponse(ctx context.Context, resp *jrpc2.Response) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, logger := range m.loggers {
		logger.LogResponse(ctx, resp)
	}
}

func (m *MultiRPCLogger) AddLogger(logger jrpc2.RPCLogger) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loggers = append(m.loggers, logger)
}

var myLoggerId = uuid.NewString()

// ApplyServerInstanceToZerolog swaps the context logger for one that forwards
// every entry to the editor as a window/logMessage notification.
func ApplyServerInstanceToZerolog(ctx context.Context, client Client) context.Context {
	// the server must not write to stdout, so logs go to the client
	writer := &logWriter{
		client: client,
		ctx:    ctx,
	}

	level := zerolog.Ctx(ctx).GetLevel()

	return zerolog.New(writer).With().
		Str("id", myLoggerId).
		Str("lsp_role", "server").
		Logger().
		Level(level).
		Hook(debug.CustomTimeHook{WithColor: false}).
		Hook(debug.CustomCallerHook{WithColor: false}).
		WithContext(ctx)
}

// ApplyDownstreamToZerolog tags the context logger with the language whose
// server a message came from.
func ApplyDownstreamToZerolog(ctx context.Context, language string) context.Context {
	return zerolog.Ctx(ctx).With().
		Str("lsp_role", "client").
		Str("downstream", language).
		Logger().
		WithContext(ctx)
}

func ApplyRequestToZerolog(ctx context.Context, req *jrpc2.Request) context.Context {
	return zerolog.Ctx(ctx).With().Str("rpc_method", req.Method()).Str("rpc_id", req.ID()).Logger().WithContext(ctx)
}

type logWriter struct {
	client Client
	mu     sync.Mutex
	ctx    context.Context
}

// Write implements io.Writer
func (w *logWriter) Write(p []byte) (n int, err error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	var logEntry map[string]interface{}
	if err := json.Unmarshal(p, &logEntry); err != nil {
		return len(p), nil
	}

	level := ParseMessageTypeFromZerolog(extractField(logEntry, "level", "info"))
	msg := extractField(logEntry, "message", "")
	source := extractField(logEntry, "caller", "")
	delete(logEntry, "id")
	delete(logEntry, "time")

	if source != "" {
		msg = source + " " + msg
	}
	if len(logEntry) > 0 {
		extra, err := json.Marshal(logEntry)
		if err == nil {
			msg = msg + " " + string(extra)
		}
	}

	if w.client != nil {
		// the client is unreachable before the connection starts; drop those lines
		_ = w.client.LogMessage(w.ctx, &LogMessageParams{Type: level, Message: msg})
	}

	return len(p), nil
}

func extractField(entry map[string]interface{}, key, defaultValue string) string {
	if v, ok := entry[key].(string); ok {
		delete(entry, key)
		return v
	}
	return defaultValue
}

// ParseMessageTypeFromZerolog converts zerolog level to LSP MessageType
func ParseMessageTypeFromZerolog(level string) MessageType {
	switch level {
	case "error", "fatal", "panic":
		return Error
	case "warn":
		return Warning
	case "info":
		return Info
	case "debug", "trace":
		return Debug
	default:
		return Log
	}
}
