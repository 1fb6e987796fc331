package show_vdoc

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"
	"go.lsp.dev/uri"

	"github.com/walteh/embedls/pkg/blockindex"
	"github.com/walteh/embedls/pkg/config"
	"github.com/walteh/embedls/pkg/document"
	"github.com/walteh/embedls/pkg/embedded"
	"github.com/walteh/embedls/pkg/vdoc"
)

type Handler struct {
	number     bool
	configPath string
	fs         afero.Fs
}

func NewVdocCommand() *cobra.Command {
	me := &Handler{fs: afero.NewOsFs()}

	cmd := &cobra.Command{
		Use:   "vdoc <file> <language>",
		Short: "print the virtual document a language server would see for one embedded language",
		Args:  cobra.ExactArgs(2),
	}

	cmd.Flags().BoolVarP(&me.number, "number", "n", false, "prefix each line with its virtual line number")
	cmd.Flags().StringVar(&me.configPath, "config", "", "path to a .embedls.yaml or .embedls.hcl file (default: discovered next to the file)")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		return me.Run(cmd.OutOrStdout(), args[0], args[1])
	}

	return cmd
}

func (me *Handler) languages(path string) (*embedded.Registry, error) {
	var cfg *config.Config
	var err error
	if me.configPath != "" {
		cfg, err = config.LoadConfig(me.fs, me.configPath)
	} else {
		cfg, _, err = config.Discover(me.fs, filepath.Dir(path))
	}
	if err != nil {
		return nil, errors.Errorf("loading config: %w", err)
	}
	return cfg.Registry(embedded.DefaultRegistry())
}

func (me *Handler) Run(out io.Writer, path, language string) error {
	raw, err := afero.ReadFile(me.fs, path)
	if err != nil {
		return errors.Errorf("reading %s: %w", path, err)
	}

	languages, err := me.languages(path)
	if err != nil {
		return err
	}

	lang, ok := languages.ByID(language)
	if !ok {
		return errors.Errorf("unknown language %q", language)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return errors.Errorf("resolving %s: %w", path, err)
	}

	doc := document.NewSnapshot(string(uri.File(abs)), document.Unversioned, string(raw))
	vd := vdoc.Build(doc, blockindex.Tokenize(doc.Text()), lang)

	if !me.number {
		_, err := io.WriteString(out, vd.Content+"\n")
		return err
	}

	for i, line := range strings.Split(vd.Content, "\n") {
		if _, err := fmt.Fprintf(out, "%4d  %s\n", i, line); err != nil {
			return err
		}
	}
	return nil
}
