package lsp

import (
	"context"
	"io"

	"github.com/creachadair/jrpc2"
	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/embedls/pkg/lsp/protocol"
)

// Serve runs s on the given stream until the client exits or the stream
// closes. Every message is also reported to rpcLog.
func Serve(ctx context.Context, s *Server, r io.Reader, w io.WriteCloser, rpcLog ...jrpc2.RPCLogger) error {
	opts := &jrpc2.ServerOptions{
		Logger: func(msg string) {
			zerolog.Ctx(ctx).Trace().Msg(msg)
		},
	}
	if len(rpcLog) > 0 {
		multi := &protocol.MultiRPCLogger{}
		for _, l := range rpcLog {
			multi.AddLogger(l)
		}
		opts.RPCLog = multi
	}

	instance := protocol.NewServerInstance(ctx, s, opts)

	s.SetCallbackClient(instance.Client())
	onExit := s.onExit
	s.onExit = func() {
		instance.Stop()
		if onExit != nil {
			onExit()
		}
	}

	if err := instance.StartAndWait(r, w); err != nil {
		return errors.Errorf("serving: %w", err)
	}
	return nil
}
