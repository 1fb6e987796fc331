package router

import (
	"context"

	"github.com/walteh/embedls/pkg/document"
	"github.com/walteh/embedls/pkg/lsp/protocol"
	"github.com/walteh/embedls/pkg/position"
)

func (r *Router) Hover(ctx context.Context, doc document.Document, pos protocol.Position, next Next[*protocol.Hover]) (*protocol.Hover, error) {
	t, ok, err := r.at(ctx, doc, pos.Line, "hover")
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

	hover, err := r.exec.Hover(ctx, t.handle, t.mapper.ToVirtual(pos))
	if err != nil {
		providerFailure(ctx, "hover", t.lang, err)
		return nil, nil
	}
	if hover != nil && hover.Range != nil {
		rng := t.mapper.RangeToHost(*hover.Range)
		hover.Range = &rng
	}
	return hover, nil
}

func (r *Router) Completion(ctx context.Context, doc document.Document, pos protocol.Position, cc *protocol.CompletionContext, next Next[*protocol.CompletionList]) (*protocol.CompletionList, error) {
	t, ok, err := r.at(ctx, doc, pos.Line, "completion")
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

	if cc != nil && cc.TriggerKind == protocol.TriggerCharacter && !t.lang.Triggers(cc.TriggerCharacter) {
		return nil, nil
	}

	list, err := r.exec.Completion(ctx, t.handle, t.mapper.ToVirtual(pos), cc)
	if err != nil {
		providerFailure(ctx, "completion", t.lang, err)
		return nil, nil
	}
	if list == nil {
		return nil, nil
	}
	for i := range list.Items {
		hostCompletionItem(&list.Items[i], t.mapper)
	}
	return list, nil
}

func hostCompletionItem(item *protocol.CompletionItem, m position.Mapper) {
	if te := item.TextEdit; te != nil {
		for _, rng := range []*protocol.Range{te.Range, te.Insert, te.Replace} {
			if rng != nil {
				*rng = m.RangeToHost(*rng)
			}
		}
	}
	for i := range item.AdditionalTextEdits {
		item.AdditionalTextEdits[i].Range = m.RangeToHost(item.AdditionalTextEdits[i].Range)
	}
}

func (r *Router) SignatureHelp(ctx context.Context, doc document.Document, pos protocol.Position, sc *protocol.SignatureHelpContext, next Next[*protocol.SignatureHelp]) (*protocol.SignatureHelp, error) {
	t, ok, err := r.at(ctx, doc, pos.Line, "signatureHelp")
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

	help, err := r.exec.SignatureHelp(ctx, t.handle, t.mapper.ToVirtual(pos), sc)
	if err != nil {
		providerFailure(ctx, "signatureHelp", t.lang, err)
		return nil, nil
	}
	return help, nil
}

// Definition rewrites locations inside the virtual document to the host
// document. Locations on preamble lines are dropped; locations in other
// files pass through.
func (r *Router) Definition(ctx context.Context, doc document.Document, pos protocol.Position, next Next[[]protocol.Location]) ([]protocol.Location, error) {
	t, ok, err := r.at(ctx, doc, pos.Line, "definition")
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

	locs, err := r.exec.Definition(ctx, t.handle, t.mapper.ToVirtual(pos))
	if err != nil {
		providerFailure(ctx, "definition", t.lang, err)
		return nil, nil
	}

	out := make([]protocol.Location, 0, len(locs))
	for _, loc := range locs {
		if loc.URI == t.handle.URI {
			if t.mapper.InPreamble(loc.Range.Start.Line) {
				continue
			}
			loc.URI = protocol.DocumentURI(doc.URI())
			loc.Range = t.mapper.RangeToHost(loc.Range)
		}
		out = append(out, loc)
	}
	return out, nil
}

// RangeFormatting formats the block containing the start of rng. Edits that
// leave the interior of that language's blocks are discarded.
func (r *Router) RangeFormatting(ctx context.Context, doc document.Document, rng protocol.Range, opts protocol.FormattingOptions, next Next[[]protocol.TextEdit]) ([]protocol.TextEdit, error) {
	t, ok, err := r.at(ctx, doc, rng.Start.Line, "rangeFormatting")
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

	// the range may not leave the block it starts in
	if last := uint32(t.block.Span.End - 2); rng.End.Line > last {
		rng.End = protocol.Position{Line: last + 1, Character: 0}
	}

	edits, err := r.exec.RangeFormatting(ctx, t.handle, t.mapper.RangeToVirtual(rng), opts)
	if err != nil {
		providerFailure(ctx, "rangeFormatting", t.lang, err)
		return nil, nil
	}
	return t.hostEdits(edits), nil
}

// hostEdits maps formatting edits to host space and keeps only the ones
// that stay within a single block interior of the target's language.
func (t *target) hostEdits(edits []protocol.TextEdit) []protocol.TextEdit {
	out := make([]protocol.TextEdit, 0, len(edits))
	for _, e := range edits {
		if t.mapper.InPreamble(e.Range.Start.Line) {
			continue
		}
		e.Range = t.mapper.RangeToHost(e.Range)
		if !t.containsEdit(e.Range) {
			continue
		}
		out = append(out, e)
	}
	return out
}

// containsEdit accepts an end position at column 0 of the closing fence
// line, which is how whole-line replacements of the last interior line end.
func (t *target) containsEdit(rng protocol.Range) bool {
	for _, b := range t.langBlocks() {
		first, closing := uint32(b.Span.Start+1), uint32(b.Span.End-1)
		if rng.Start.Line < first || rng.Start.Line >= closing {
			continue
		}
		if rng.End.Line < closing || (rng.End.Line == closing && rng.End.Character == 0) {
			return true
		}
	}
	return false
}
