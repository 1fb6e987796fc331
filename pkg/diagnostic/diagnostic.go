// Package diagnostic keeps diagnostics about virtual documents away from the
// editor and maps pulled diagnostics back onto the host document.
package diagnostic

import (
	"github.com/walteh/embedls/pkg/lsp/protocol"
	"github.com/walteh/embedls/pkg/position"
)

// VirtualPredicate reports whether a URI addresses a virtual document.
type VirtualPredicate func(uri string) bool

// Filter empties a published batch whose URI is a virtual document. Any
// other batch is returned as is.
func Filter(params *protocol.PublishDiagnosticsParams, isVirtual VirtualPredicate) *protocol.PublishDiagnosticsParams {
	if params == nil || isVirtual == nil || !isVirtual(string(params.URI)) {
		return params
	}
	return &protocol.PublishDiagnosticsParams{
		URI:         params.URI,
		Version:     params.Version,
		Diagnostics: []protocol.Diagnostic{},
	}
}

// ToHost moves diagnostics reported against a virtual document into host
// space. Diagnostics starting in the preamble, or on a host line for which
// keep returns false, are dropped.
func ToHost(items []protocol.Diagnostic, mapper position.Mapper, keep func(line uint32) bool) []protocol.Diagnostic {
	out := make([]protocol.Diagnostic, 0, len(items))
	for _, d := range items {
		if mapper.InPreamble(d.Range.Start.Line) {
			continue
		}
		d.Range = mapper.RangeToHost(d.Range)
		if keep != nil && !keep(d.Range.Start.Line) {
			continue
		}
		out = append(out, d)
	}
	return out
}
