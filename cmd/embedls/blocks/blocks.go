package blocks

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/embedls/pkg/blockindex"
	"github.com/walteh/embedls/pkg/locator"
)

type Handler struct {
	json bool
	fs   afero.Fs
}

func NewBlocksCommand() *cobra.Command {
	me := &Handler{fs: afero.NewOsFs()}

	cmd := &cobra.Command{
		Use:   "blocks <file>",
		Short: "print the block index of a markdown or quarto document",
		Args:  cobra.ExactArgs(1),
	}

	cmd.Flags().BoolVar(&me.json, "json", false, "print blocks as json")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		return me.Run(cmd.OutOrStdout(), args[0])
	}

	return cmd
}

func (me *Handler) Run(out io.Writer, path string) error {
	raw, err := afero.ReadFile(me.fs, path)
	if err != nil {
		return errors.Errorf("reading %s: %w", path, err)
	}

	blocks := blockindex.Tokenize(string(raw))

	if me.json {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(blocks); err != nil {
			return errors.Errorf("encoding blocks: %w", err)
		}
		return nil
	}

	exec := color.New(color.FgGreen, color.Bold)
	dim := color.New(color.Faint)

	for _, b := range blocks {
		line := fmt.Sprintf("%s%-12s %-10s", strings.Repeat("  ", b.Depth), b.Kind, b.Span)
		if id, ok := locator.LanguageIDOf(b); ok && locator.IsExecutableBlock(b) {
			fmt.Fprintf(out, "%s %s\n", line, exec.Sprint(id))
			continue
		}
		if b.Info != "" {
			fmt.Fprintf(out, "%s %s\n", line, dim.Sprint(b.Info))
			continue
		}
		fmt.Fprintln(out, line)
	}

	return nil
}
