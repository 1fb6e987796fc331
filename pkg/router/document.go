package router

import (
	"context"

	"github.com/walteh/embedls/pkg/blockindex"
	"github.com/walteh/embedls/pkg/diagnostic"
	"github.com/walteh/embedls/pkg/document"
	"github.com/walteh/embedls/pkg/locator"
	"github.com/walteh/embedls/pkg/lsp/protocol"
	"github.com/walteh/embedls/pkg/semtok"
)

// each materializes the virtual document of every known language present in
// doc, in order of first appearance, and calls fn with it. It stops early
// when ctx is done; whatever fn accumulated so far stands.
func (r *Router) each(ctx context.Context, doc document.Document, capability string, fn func(t *target) error) (bool, error) {
	blocks, err := r.blocks(ctx, doc)
	if err != nil {
		return false, err
	}

	found := false
	for _, id := range locator.Languages(blocks) {
		if ctx.Err() != nil {
			break
		}
		lang, ok := r.languages.ByID(id)
		if !ok {
			continue
		}
		found = true

		t, err := r.materialize(ctx, doc, blocks, lang)
		if err != nil {
			providerFailure(ctx, capability, lang, err)
			continue
		}
		if err := fn(t); err != nil {
			providerFailure(ctx, capability, lang, err)
		}
		t.cleanup(ctx)
	}
	return found, nil
}

// Formatting formats every embedded language of doc.
func (r *Router) Formatting(ctx context.Context, doc document.Document, opts protocol.FormattingOptions, next Next[[]protocol.TextEdit]) ([]protocol.TextEdit, error) {
	out := []protocol.TextEdit{}
	found, err := r.each(ctx, doc, "formatting", func(t *target) error {
		edits, err := r.exec.Formatting(ctx, t.handle, opts)
		if err != nil {
			return err
		}
		out = append(out, t.hostEdits(edits)...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !found {
		return next.call(ctx)
	}
	return out, nil
}

// SemanticTokensFull merges the tokens of every embedded language into the
// universal legend.
func (r *Router) SemanticTokensFull(ctx context.Context, doc document.Document, next Next[*protocol.SemanticTokens]) (*protocol.SemanticTokens, error) {
	var tokens []semtok.Token
	found, err := r.each(ctx, doc, "semanticTokens", func(t *target) error {
		st, legend, err := r.exec.SemanticTokensFull(ctx, t.handle)
		if err != nil {
			return err
		}
		tokens = append(tokens, t.hostTokens(st, legend, t.interior)...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !found {
		return next.call(ctx)
	}
	return &protocol.SemanticTokens{Data: semtok.Encode(tokens)}, nil
}

// SemanticTokensRange answers for the language block containing the start
// of rng.
func (r *Router) SemanticTokensRange(ctx context.Context, doc document.Document, rng protocol.Range, next Next[*protocol.SemanticTokens]) (*protocol.SemanticTokens, error) {
	t, ok, err := r.at(ctx, doc, rng.Start.Line, "semanticTokensRange")
	if err != nil || !ok {
		if err != nil {
			return nil, err
		}
		return next.call(ctx)
	}
	if t == nil {
		return nil, nil
	}
	defer t.cleanup(ctx)

	st, legend, err := r.exec.SemanticTokensRange(ctx, t.handle, t.mapper.RangeToVirtual(rng))
	if err != nil {
		providerFailure(ctx, "semanticTokensRange", t.lang, err)
		return nil, nil
	}
	keep := func(line uint32) bool {
		return line >= rng.Start.Line && line <= rng.End.Line && t.interior(line)
	}
	return &protocol.SemanticTokens{Data: semtok.Encode(t.hostTokens(st, legend, keep))}, nil
}

func (t *target) hostTokens(st *protocol.SemanticTokens, legend *semtok.Legend, keep func(line uint32) bool) []semtok.Token {
	hosted := semtok.RemapToHost(st, legend, t.mapper)
	if hosted == nil {
		return nil
	}
	return semtok.Filter(semtok.Decode(hosted.Data), keep)
}

// Diagnostics pulls diagnostics for every embedded language of doc and
// reports the ones that land inside that language's blocks.
func (r *Router) Diagnostics(ctx context.Context, doc document.Document, next Next[*protocol.DocumentDiagnosticReport]) (*protocol.DocumentDiagnosticReport, error) {
	items := []protocol.Diagnostic{}
	found, err := r.each(ctx, doc, "diagnostics", func(t *target) error {
		diags, err := r.exec.Diagnostics(ctx, t.handle)
		if err != nil {
			return err
		}
		items = append(items, diagnostic.ToHost(diags, t.mapper, t.interior)...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !found {
		return next.call(ctx)
	}
	return &protocol.DocumentDiagnosticReport{Kind: protocol.DiagnosticFull, Items: items}, nil
}

// Blocks exposes the parsed block list of doc.
func (r *Router) Blocks(ctx context.Context, doc document.Document) ([]blockindex.Block, error) {
	return r.blocks(ctx, doc)
}
