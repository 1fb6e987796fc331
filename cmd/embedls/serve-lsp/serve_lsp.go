package serve_lsp

import (
	"context"
	"os"

	"github.com/creachadair/jrpc2"
	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/embedls/pkg/config"
	"github.com/walteh/embedls/pkg/debug"
	"github.com/walteh/embedls/pkg/lsp"
)

type Handler struct {
	debug      bool
	configPath string
	tempDir    string
}

func NewServeLSPCommand() *cobra.Command {
	me := &Handler{}

	cmd := &cobra.Command{
		Use:   "serve-lsp",
		Short: "start the language server on stdio",
	}

	cmd.Flags().BoolVar(&me.debug, "debug", false, "enable debug logging")
	cmd.Flags().StringVar(&me.configPath, "config", "", "path to a .embedls.yaml or .embedls.hcl file (default: discovered in the working directory)")
	cmd.Flags().StringVar(&me.tempDir, "temp-dir", "", "directory for virtual document files")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		return me.Run(cmd.Context())
	}

	return cmd
}

type RPCLogger struct {
}

func (me *RPCLogger) LogRequest(ctx context.Context, req *jrpc2.Request) {
	zerolog.Ctx(ctx).Debug().Str("rpc_params", req.ParamString()).Str("rpc_id", req.ID()).Str("rpc_method", req.Method()).Msg("client request")
}

func (me *RPCLogger) LogResponse(ctx context.Context, res *jrpc2.Response) {
	zerolog.Ctx(ctx).Debug().Str("rpc_params", res.ResultString()).Str("rpc_id", res.ID()).Msg("server response")
}

func (me *Handler) loadConfig(fs afero.Fs) (*config.Config, string, error) {
	if me.configPath != "" {
		cfg, err := config.LoadConfig(fs, me.configPath)
		return cfg, me.configPath, err
	}
	wd, err := os.Getwd()
	if err != nil {
		return nil, "", errors.Errorf("getting working directory: %w", err)
	}
	return config.Discover(fs, wd)
}

func (me *Handler) Run(ctx context.Context) error {
	logger := debug.NewConsoleLogger(os.Stderr, me.debug, !color.NoColor)
	ctx = logger.WithContext(ctx)

	fs := afero.NewOsFs()

	cfg, path, err := me.loadConfig(fs)
	if err != nil {
		return errors.Errorf("loading config: %w", err)
	}
	if me.tempDir != "" {
		cfg.TempDir = me.tempDir
	}
	if path != "" {
		zerolog.Ctx(ctx).Info().Str("config", path).Msg("loaded config")
	}

	server, err := lsp.NewServer(cfg, lsp.WithFs(fs))
	if err != nil {
		return errors.Errorf("creating language server: %w", err)
	}

	if err := lsp.Serve(ctx, server, os.Stdin, os.Stdout, &RPCLogger{}); err != nil {
		return errors.Errorf("error running language server: %w", err)
	}

	return nil
}
