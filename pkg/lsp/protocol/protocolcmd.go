package protocol

import (
	"context"
	"os/exec"

	"github.com/creachadair/jrpc2"
	"github.com/creachadair/jrpc2/channel"
	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
)

// Connection is a client connection to a language server. Requests and
// notifications the server sends back are dispatched into a Client.
type Connection struct {
	*ServerDispatcher

	rpc *jrpc2.Client
	cmd *exec.Cmd
}

// Connect speaks LSP over ch. Messages from the server are handled by
// callbacks.
func Connect(ctx context.Context, ch channel.Channel, callbacks Client, opts *jrpc2.ClientOptions) *Connection {
	if opts == nil {
		opts = &jrpc2.ClientOptions{}
	}

	handlers := buildClientDispatchMap(callbacks)

	opts.OnNotify = func(r *jrpc2.Request) {
		if r == nil {
			return
		}
		h := handlers.Assign(ctx, r.Method())
		if h == nil {
			zerolog.Ctx(ctx).Trace().Str("method", r.Method()).Msg("ignoring notification")
			return
		}
		if _, err := h(ctx, r); err != nil {
			zerolog.Ctx(ctx).Debug().Err(err).Str("method", r.Method()).Msg("handling notification")
		}
	}
	opts.OnCallback = func(cctx context.Context, r *jrpc2.Request) (any, error) {
		h := handlers.Assign(cctx, r.Method())
		if h == nil {
			zerolog.Ctx(ctx).Trace().Str("method", r.Method()).Msg("ignoring callback")
			return nil, nil
		}
		return h(cctx, r)
	}

	rpc := jrpc2.NewClient(ch, opts)
	return &Connection{
		ServerDispatcher: NewServerDispatcher(NewCallbackServer(rpc)),
		rpc:              rpc,
	}
}

// StartCmd starts a language server process and connects to it over its
// stdio pipes.
func StartCmd(ctx context.Context, cmd *exec.Cmd, callbacks Client, opts *jrpc2.ClientOptions) (*Connection, error) {
	out, err := cmd.StdoutPipe()
	if err != nil {
		return nil, errors.Errorf("getting stdout pipe: %w", err)
	}
	in, err := cmd.StdinPipe()
	if err != nil {
		return nil, errors.Errorf("getting stdin pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, errors.Errorf("starting %s: %w", cmd.Path, err)
	}

	conn := Connect(ctx, channel.LSP(out, in), callbacks, opts)
	conn.cmd = cmd
	return conn, nil
}

// Close drops the connection and waits for the server process, if any.
func (c *Connection) Close() error {
	err := c.rpc.Close()
	if c.cmd != nil {
		if werr := c.cmd.Wait(); werr != nil {
			var exit *exec.ExitError
			if !errors.As(werr, &exit) {
				return errors.Errorf("waiting for %s: %w", c.cmd.Path, werr)
			}
		}
	}
	if err != nil {
		return errors.Errorf("closing connection: %w", err)
	}
	return nil
}
