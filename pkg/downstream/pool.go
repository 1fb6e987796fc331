package downstream

import (
	"context"
	"os/exec"
	"sync"

	"github.com/creachadair/jrpc2"
	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/walteh/embedls/pkg/embedded"
	"github.com/walteh/embedls/pkg/lsp/protocol"
)

var ErrNoServer = errors.New("no language server configured")

// ContentSource serves the text of in-memory virtual documents and knows
// which URIs are virtual. *vdoc.Registry implements it.
type ContentSource interface {
	ReadContent(raw string) (string, error)
	IsVirtual(uri string) bool
}

// Dialer connects to the language server of lang. Messages the server sends
// back must be dispatched into callbacks.
type Dialer func(ctx context.Context, lang *embedded.Language, callbacks protocol.Client) (*protocol.Connection, error)

// CommandDialer starts the language's server command as a subprocess.
func CommandDialer(ctx context.Context, lang *embedded.Language, callbacks protocol.Client) (*protocol.Connection, error) {
	if lang.Server == nil || lang.Server.Command == "" {
		return nil, ErrNoServer
	}

	logger := zerolog.Ctx(ctx).With().Str("downstream", lang.ID()).Logger()

	cmd := exec.Command(lang.Server.Command, lang.Server.Args...)
	cmd.Stderr = logger

	conn, err := protocol.StartCmd(ctx, cmd, callbacks, &jrpc2.ClientOptions{
		Logger: func(msg string) {
			logger.Trace().Msg(msg)
		},
	})
	if err != nil {
		return nil, errors.Errorf("starting %s server: %w", lang.ID(), err)
	}
	return conn, nil
}

// Pool owns one Client per embedded language, started on first use.
type Pool struct {
	host    protocol.Client
	rootURI protocol.DocumentURI
	dial    Dialer

	mu      sync.Mutex
	content ContentSource
	clients map[string]*Client
	failed  map[string]error
	group   singleflight.Group
}

type PoolOption func(*Pool)

// WithHost forwards filtered diagnostics pushed by language servers to the
// editor.
func WithHost(host protocol.Client) PoolOption {
	return func(p *Pool) { p.host = host }
}

func WithRootURI(root protocol.DocumentURI) PoolOption {
	return func(p *Pool) { p.rootURI = root }
}

func WithDialer(dial Dialer) PoolOption {
	return func(p *Pool) { p.dial = dial }
}

func NewPool(opts ...PoolOption) *Pool {
	p := &Pool{
		dial:    CommandDialer,
		clients: make(map[string]*Client),
		failed:  make(map[string]error),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// UseContent sets where in-memory virtual documents are read from.
func (p *Pool) UseContent(src ContentSource) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.content = src
}

func (p *Pool) contentSource() ContentSource {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.content
}

func (p *Pool) isVirtual(uri string) bool {
	src := p.contentSource()
	return src != nil && src.IsVirtual(uri)
}

// existing returns the started client of lang without starting one.
func (p *Pool) existing(lang *embedded.Language) (*Client, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	c, ok := p.clients[lang.ID()]
	return c, ok
}

// Client returns the initialized client of lang, starting its server on
// first use. A server that failed to start is not retried.
func (p *Pool) Client(ctx context.Context, lang *embedded.Language) (*Client, error) {
	if lang.Server == nil {
		return nil, ErrNoServer
	}

	id := lang.ID()
	p.mu.Lock()
	if c, ok := p.clients[id]; ok {
		p.mu.Unlock()
		return c, nil
	}
	if err, ok := p.failed[id]; ok {
		p.mu.Unlock()
		return nil, err
	}
	p.mu.Unlock()

	v, err, _ := p.group.Do(id, func() (any, error) {
		c, err := p.start(ctx, lang)
		p.mu.Lock()
		defer p.mu.Unlock()
		if err != nil {
			p.failed[id] = err
			return nil, err
		}
		p.clients[id] = c
		return c, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Client), nil
}

func (p *Pool) start(ctx context.Context, lang *embedded.Language) (*Client, error) {
	// the connection outlives the request that started it
	ctx = protocol.ApplyDownstreamToZerolog(context.WithoutCancel(ctx), lang.ID())

	c := &Client{
		lang:      lang,
		opened:    make(map[protocol.DocumentURI]bool),
		published: make(map[protocol.DocumentURI][]protocol.Diagnostic),
	}
	cb := &callbacks{client: c, host: p.host, isVirtual: p.isVirtual}

	conn, err := p.dial(ctx, lang, cb)
	if err != nil {
		return nil, err
	}
	c.conn = conn

	if err := c.initialize(ctx, p.rootURI); err != nil {
		_ = conn.Close()
		return nil, err
	}

	zerolog.Ctx(ctx).Info().Str("language", lang.ID()).Msg("language server started")
	return c, nil
}

// Close shuts every started language server down.
func (p *Pool) Close(ctx context.Context) error {
	p.mu.Lock()
	clients := make([]*Client, 0, len(p.clients))
	for _, c := range p.clients {
		clients = append(clients, c)
	}
	p.clients = make(map[string]*Client)
	p.mu.Unlock()

	var g errgroup.Group
	for _, c := range clients {
		c := c // per-iteration copy: go.mod targets go1.21, before loop vars were per-iteration
		g.Go(func() error {
			return c.shutdown(ctx)
		})
	}
	if err := g.Wait(); err != nil {
		return errors.Errorf("closing language servers: %w", err)
	}
	return nil
}
