package protocol

import (
	"context"
	"io"
	"sync"

	"github.com/creachadair/jrpc2"
	"github.com/creachadair/jrpc2/channel"
	"gitlab.com/tozd/go/errors"
)

// CallbackServer adapts a jrpc2 client (a connection to a language server) to
// the Callbacker interface.
type CallbackServer struct {
	server *jrpc2.Client
}

func NewCallbackServer(server *jrpc2.Client) *CallbackServer {
	return &CallbackServer{server: server}
}

func (c *CallbackServer) Notify(ctx context.Context, method string, params interface{}) error {
	return c.server.Notify(ctx, method, params)
}

func (c *CallbackServer) Callback(ctx context.Context, method string, params interface{}) (*jrpc2.Response, error) {
	return c.server.Call(ctx, method, params)
}

func (c *CallbackServer) Close() error {
	return c.server.Close()
}

// CallbackClient adapts the push side of a jrpc2 server (messages from the
// bridge to the editor) to the Callbacker interface.
type CallbackClient struct {
	mu     sync.RWMutex
	client *jrpc2.Server
}

func (c *CallbackClient) get() (*jrpc2.Server, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.client == nil {
		return nil, errors.New("server not started")
	}
	return c.client, nil
}

func (c *CallbackClient) Notify(ctx context.Context, method string, params any) error {
	srv, err := c.get()
	if err != nil {
		return err
	}
	return srv.Notify(ctx, method, params)
}

func (c *CallbackClient) Callback(ctx context.Context, method string, params any) (*jrpc2.Response, error) {
	srv, err := c.get()
	if err != nil {
		return nil, err
	}
	return srv.Callback(ctx, method, params)
}

// ServerInstance couples a Server implementation with the jrpc2 server that
// exposes it and the client dispatcher used to talk back to the editor.
type ServerInstance struct {
	methods  jrpc2.Assigner
	opts     *jrpc2.ServerOptions
	callback *CallbackClient

	mu     sync.Mutex
	server *jrpc2.Server
}

func NewServerInstance(ctx context.Context, server Server, opts *jrpc2.ServerOptions) *ServerInstance {
	if opts == nil {
		opts = &jrpc2.ServerOptions{}
	}

	opts.AllowPush = true

	inst := &ServerInstance{
		methods:  buildServerDispatchMap(server),
		opts:     opts,
		callback: &CallbackClient{},
	}

	opts.NewContext = func() context.Context {
		return ApplyServerInstanceToZerolog(ctx, inst.Client())
	}

	return inst
}

// Client returns the editor-facing client. Calls fail until the instance is
// started.
func (s *ServerInstance) Client() Client {
	return NewClientDispatcher(s.callback)
}

func (s *ServerInstance) Start(ch channel.Channel) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.server = jrpc2.NewServer(s.methods, s.opts)

	s.callback.mu.Lock()
	s.callback.client = s.server
	s.callback.mu.Unlock()

	s.server.Start(ch)
}

func (s *ServerInstance) Wait() error {
	s.mu.Lock()
	srv := s.server
	s.mu.Unlock()
	if srv == nil {
		return errors.New("server not started")
	}
	return srv.Wait()
}

// Stop closes the connection; it is safe to call from a handler goroutine.
func (s *ServerInstance) Stop() {
	s.mu.Lock()
	srv := s.server
	s.mu.Unlock()
	if srv != nil {
		go srv.Stop()
	}
}

func (s *ServerInstance) StartAndWait(r io.Reader, w io.WriteCloser) error {
	s.Start(channel.LSP(r, w))
	if err := s.Wait(); err != nil {
		return errors.Errorf("waiting for server: %w", err)
	}
	return nil
}
