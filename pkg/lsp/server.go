// Package lsp serves host documents over the language server protocol and
// answers requests inside embedded code blocks through per-language
// servers.
package lsp

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"gitlab.com/tozd/go/errors"
	"go.uber.org/multierr"

	"github.com/walteh/embedls/pkg/blockindex"
	"github.com/walteh/embedls/pkg/config"
	"github.com/walteh/embedls/pkg/downstream"
	"github.com/walteh/embedls/pkg/embedded"
	"github.com/walteh/embedls/pkg/lsp/protocol"
	"github.com/walteh/embedls/pkg/router"
	"github.com/walteh/embedls/pkg/semtok"
	"github.com/walteh/embedls/pkg/vdoc"
)

const Name = "embedls"

var Version = "dev"

var ErrNotInitialized = errors.New("server not initialized")

// session is everything that only exists between initialize and shutdown.
type session struct {
	registry *vdoc.Registry
	pool     *downstream.Pool
	router   *router.Router
}

// Server implements the host side of the protocol.
type Server struct {
	id        string
	fs        afero.Fs
	cfg       *config.Config
	languages *embedded.Registry
	documents *DocumentManager
	index     *blockindex.Index
	dialer    downstream.Dialer
	onExit    func()

	mu                 sync.Mutex
	session            *session
	shutdown           bool
	clientCapabilities protocol.ClientCapabilities
	callbackClient     protocol.Client
}

var _ protocol.Server = (*Server)(nil)

type Option func(*Server)

func WithFs(fs afero.Fs) Option {
	return func(s *Server) { s.fs = fs }
}

// WithDialer replaces how language servers are reached.
func WithDialer(d downstream.Dialer) Option {
	return func(s *Server) { s.dialer = d }
}

// WithOnExit is called when the client sends exit.
func WithOnExit(fn func()) Option {
	return func(s *Server) { s.onExit = fn }
}

func NewServer(cfg *config.Config, opts ...Option) (*Server, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	s := &Server{
		id:    uuid.NewString(),
		fs:    afero.NewOsFs(),
		cfg:   cfg,
		index: blockindex.NewIndex(),
	}
	for _, opt := range opts {
		opt(s)
	}

	languages, err := cfg.Registry(embedded.DefaultRegistry())
	if err != nil {
		return nil, errors.Errorf("building language registry: %w", err)
	}
	s.languages = languages
	s.documents = NewDocumentManager(s.fs)
	return s, nil
}

func (s *Server) SetCallbackClient(client protocol.Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.callbackClient = client
}

func (s *Server) Documents() *DocumentManager {
	return s.documents
}

func (s *Server) Languages() *embedded.Registry {
	return s.languages
}

func (s *Server) current() (*session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return nil, ErrNotInitialized
	}
	return s.session, nil
}

func (s *Server) tempDir() string {
	if s.cfg.TempDir != "" {
		return s.cfg.TempDir
	}
	return filepath.Join(os.TempDir(), Name)
}

func (s *Server) keying() vdoc.Keying {
	if s.cfg.ContentKeying == config.KeyingDocument {
		return vdoc.KeyByDocument
	}
	return vdoc.KeyByRequest
}

func (s *Server) Initialize(ctx context.Context, params *protocol.ParamInitialize) (*protocol.InitializeResult, error) {
	logger := zerolog.Ctx(ctx)
	logger.Debug().Str("root", string(params.RootURI)).Msg("initializing server")

	s.mu.Lock()
	defer s.mu.Unlock()

	s.clientCapabilities = params.Capabilities

	poolOpts := []downstream.PoolOption{
		downstream.WithHost(s.callbackClient),
		downstream.WithRootURI(params.RootURI),
	}
	if s.dialer != nil {
		poolOpts = append(poolOpts, downstream.WithDialer(s.dialer))
	}
	pool := downstream.NewPool(poolOpts...)
	registry := vdoc.NewRegistry(s.fs, pool.Tooling(), vdoc.WithTempDir(s.tempDir()), vdoc.WithKeying(s.keying()))
	pool.UseContent(registry)

	s.session = &session{
		registry: registry,
		pool:     pool,
		router:   router.New(s.index, s.languages, registry, pool),
	}

	return &protocol.InitializeResult{
		Capabilities: s.capabilities(),
		ServerInfo:   &protocol.ServerInfo{Name: Name, Version: Version},
	}, nil
}

func (s *Server) capabilities() protocol.ServerCapabilities {
	return protocol.ServerCapabilities{
		TextDocumentSync: &protocol.TextDocumentSyncOptions{
			OpenClose: true,
			Change:    protocol.Incremental,
			Save:      &protocol.SaveOptions{IncludeText: true},
		},
		HoverProvider: true,
		CompletionProvider: &protocol.CompletionOptions{
			TriggerCharacters: s.languages.TriggerChars(),
		},
		SignatureHelpProvider: &protocol.SignatureHelpOptions{
			TriggerCharacters: []string{"(", ","},
		},
		DefinitionProvider:              true,
		DocumentFormattingProvider:      true,
		DocumentRangeFormattingProvider: true,
		SemanticTokensProvider: &protocol.SemanticTokensOptions{
			Legend: semtok.Universal.Protocol(),
			Full:   true,
			Range:  true,
		},
		DiagnosticProvider: &protocol.DiagnosticOptions{
			Identifier: Name,
		},
	}
}

func (s *Server) Initialized(ctx context.Context, params *protocol.InitializedParams) error {
	zerolog.Ctx(ctx).Debug().Str("server", s.id).Msg("server initialized")
	return nil
}

// Shutdown removes every virtual file and stops every language server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	sess := s.session
	s.session = nil
	s.shutdown = true
	s.mu.Unlock()

	if sess == nil {
		return nil
	}

	zerolog.Ctx(ctx).Debug().Msg("shutting down")
	err := multierr.Append(sess.registry.Close(ctx), sess.pool.Close(ctx))
	if err != nil {
		return errors.Errorf("shutting down: %w", err)
	}
	return nil
}

func (s *Server) Exit(ctx context.Context) error {
	s.mu.Lock()
	clean := s.shutdown
	s.mu.Unlock()

	if !clean {
		if err := s.Shutdown(ctx); err != nil {
			zerolog.Ctx(ctx).Warn().Err(err).Msg("exit without shutdown")
		}
	}
	if s.onExit != nil {
		s.onExit()
	}
	return nil
}

func (s *Server) SetTrace(ctx context.Context, params *protocol.SetTraceParams) error {
	return nil
}
