package downstream

import (
	"path/filepath"
	"strconv"
	"strings"

	"github.com/editorconfig/editorconfig-core-go/v2"
	"go.lsp.dev/uri"

	"github.com/walteh/embedls/pkg/lsp/protocol"
	"github.com/walteh/embedls/pkg/vdoc"
)

// FormattingOptions overlays the .editorconfig settings that apply to a file
// of the handle's language next to the host document. Options are returned
// unchanged for hosts that are not local files.
func FormattingOptions(h *vdoc.Handle, opts protocol.FormattingOptions) protocol.FormattingOptions {
	if !strings.HasPrefix(h.HostURI, "file:") {
		return opts
	}
	dir := filepath.Dir(uri.URI(h.HostURI).Filename())
	def, err := editorconfig.GetDefinitionForFilename(filepath.Join(dir, "embedded."+h.Language.Extension))
	if err != nil || def == nil {
		return opts
	}

	switch def.IndentStyle {
	case editorconfig.IndentStyleSpaces:
		opts.InsertSpaces = true
	case editorconfig.IndentStyleTab:
		opts.InsertSpaces = false
	}
	if n, err := strconv.Atoi(def.IndentSize); err == nil && n > 0 {
		opts.TabSize = uint32(n)
	} else if def.TabWidth > 0 {
		opts.TabSize = uint32(def.TabWidth)
	}
	if def.TrimTrailingWhitespace != nil {
		opts.TrimTrailingWhitespace = *def.TrimTrailingWhitespace
	}
	return opts
}
