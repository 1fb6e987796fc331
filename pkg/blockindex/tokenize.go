package blockindex

import (
	"bytes"
	"math"
	"sort"
	"strings"

	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
)

const (
	attrOpen   = "embedls-open"
	attrLast   = "embedls-last"
	attrClosed = "embedls-closed"
	attrFenced = "embedls-fenced"
)

// lineRecorder wraps a block parser and notes on each node the lines it
// opened on and last consumed.
type lineRecorder struct {
	parser.BlockParser
}

func record(bp parser.BlockParser, priority int) util.PrioritizedValue {
	return util.Prioritized(lineRecorder{bp}, priority)
}

func (r lineRecorder) Open(parent ast.Node, reader text.Reader, pc parser.Context) (ast.Node, parser.State) {
	line, _ := reader.Position()
	node, state := r.BlockParser.Open(parent, reader, pc)
	if node != nil {
		node.SetAttributeString(attrOpen, line)
	}
	return node, state
}

func (r lineRecorder) Continue(node ast.Node, reader text.Reader, pc parser.Context) parser.State {
	line, before := reader.Position()
	state := r.BlockParser.Continue(node, reader, pc)
	switch {
	case state&parser.Close != 0:
		// a closing delimiter line is consumed before Close is returned
		if _, after := reader.Position(); after.Start != before.Start || after.Padding != before.Padding {
			node.SetAttributeString(attrLast, line)
			node.SetAttributeString(attrFenced, true)
		}
	case state&parser.HasChildren == 0:
		node.SetAttributeString(attrLast, line)
	}
	return state
}

func (r lineRecorder) Close(node ast.Node, reader text.Reader, pc parser.Context) {
	node.SetAttributeString(attrClosed, true)
	r.BlockParser.Close(node, reader, pc)
}

func isClosed(n ast.Node) bool {
	_, ok := n.AttributeString(attrClosed)
	return ok
}

func intAttr(n ast.Node, name string) (int, bool) {
	v, ok := n.AttributeString(name)
	if !ok {
		return 0, false
	}
	i, ok := v.(int)
	return i, ok
}

// newBlockParser builds a block-only parser. No inline parsers or paragraph
// transformers are registered.
func newBlockParser() parser.Parser {
	return parser.NewParser(parser.WithBlockParsers(
		record(NewFrontMatterParser(), 50),
		record(parser.NewSetextHeadingParser(), 100),
		record(parser.NewThematicBreakParser(), 200),
		record(parser.NewListParser(), 300),
		record(parser.NewListItemParser(), 400),
		record(parser.NewCodeBlockParser(), 500),
		record(parser.NewATXHeadingParser(), 600),
		record(parser.NewFencedCodeBlockParser(), 700),
		record(NewMathBlockParser(), 750),
		record(NewFencedDivParser(), 760),
		record(parser.NewBlockquoteParser(), 800),
		record(parser.NewHTMLBlockParser(), 900),
		record(parser.NewParagraphParser(), 1000),
	))
}

var lineSeparators = strings.NewReplacer("\u2028", "", "\u2029", "")

var lineEndings = strings.NewReplacer("\r\n", "\n", "\r", "\n")

// Normalize removes U+2028 and U+2029 and folds every line terminator to \n.
// Line numbers are unchanged.
func Normalize(src string) string {
	return lineEndings.Replace(lineSeparators.Replace(src))
}

type lineIndex []int

func newLineIndex(source []byte) lineIndex {
	starts := lineIndex{0}
	for i, c := range source {
		if c == '\n' {
			starts = append(starts, i+1)
		}
	}
	return starts
}

func (l lineIndex) lineOf(offset int) int {
	return sort.Search(len(l), func(i int) bool { return l[i] > offset }) - 1
}

func (l lineIndex) text(source []byte, line int) []byte {
	if line < 0 || line >= len(l) {
		return nil
	}
	end := len(source)
	if line+1 < len(l) {
		end = l[line+1] - 1
	}
	return source[l[line]:end]
}

type tokenizer struct {
	source []byte
	lines  lineIndex
	spans  map[ast.Node]Span
}

// Tokenize parses src into block tokens. It does not cache.
func Tokenize(src string) []Block {
	return tokenize(newBlockParser(), src)
}

func tokenize(p parser.Parser, src string) []Block {
	source := []byte(Normalize(src))
	root := p.Parse(text.NewReader(source))

	t := &tokenizer{
		source: source,
		lines:  newLineIndex(source),
		spans:  make(map[ast.Node]Span),
	}
	t.measure(root)

	blocks := []Block{}
	depth := -1
	_ = ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if n.Type() != ast.TypeBlock {
			if n.Type() == ast.TypeDocument {
				return ast.WalkContinue, nil
			}
			return ast.WalkSkipChildren, nil
		}
		if !entering {
			depth--
			return ast.WalkContinue, nil
		}
		depth++
		if blk, ok := t.block(n, depth); ok {
			blocks = append(blocks, blk)
		}
		return ast.WalkContinue, nil
	})
	return blocks
}

func delimited(n ast.Node) bool {
	switch n := n.(type) {
	case *ast.FencedCodeBlock, *FencedDiv:
		return true
	case *MathBlock:
		return !n.SingleLine
	}
	return false
}

// measure computes the span of n and its block descendants. A delimited
// block that reached the end of its parent without a closing line gets one
// extra line, as if the closing delimiter followed its last line.
func (t *tokenizer) measure(n ast.Node) (Span, bool) {
	first, last := math.MaxInt, -1
	add := func(line int) {
		first = min(first, line)
		last = max(last, line)
	}

	if line, ok := intAttr(n, attrOpen); ok {
		add(line)
	}
	if line, ok := intAttr(n, attrLast); ok {
		add(line)
	}
	if n.Type() == ast.TypeBlock {
		segs := n.Lines()
		for i := 0; i < segs.Len(); i++ {
			seg := segs.At(i)
			add(t.lines.lineOf(seg.Start))
			if seg.Stop > seg.Start {
				add(t.lines.lineOf(seg.Stop - 1))
			}
		}
	}
	if h, ok := n.(*ast.HTMLBlock); ok && h.HasClosure() {
		add(t.lines.lineOf(h.ClosureLine.Start))
	}
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if c.Type() != ast.TypeBlock {
			continue
		}
		if span, ok := t.measure(c); ok {
			add(span.Start)
			add(span.End - 1)
		}
	}

	if last < 0 {
		return Span{}, false
	}
	span := Span{Start: first, End: last + 1}
	if _, fenced := n.AttributeString(attrFenced); delimited(n) && !fenced {
		span.End++
	}
	t.spans[n] = span
	return span, true
}

func (t *tokenizer) block(n ast.Node, depth int) (Block, bool) {
	span, ok := t.spans[n]
	if !ok {
		return Block{}, false
	}
	blk := Block{Span: span, Depth: depth}
	opening := bytes.TrimSpace(t.lines.text(t.source, span.Start))

	switch n := n.(type) {
	case *ast.FencedCodeBlock:
		blk.Kind = KindFence
		blk.Content = string(n.Lines().Value(t.source))
		if n.Info != nil {
			blk.Info = string(n.Info.Segment.Value(t.source))
		}
		blk.Markup = string(leadingRun(opening))
	case *ast.CodeBlock:
		blk.Kind = KindCodeBlock
		blk.Content = string(n.Lines().Value(t.source))
	case *ast.Heading:
		blk.Kind = KindHeading
		blk.Markup = strings.Repeat("#", n.Level)
		if open, ok := intAttr(n, attrOpen); ok && open > span.Start {
			blk.Kind = KindLHeading
			blk.Markup = string(leadingRun(bytes.TrimSpace(t.lines.text(t.source, open))))
		}
		blk.Content = string(bytes.TrimSpace(n.Lines().Value(t.source)))
	case *ast.ThematicBreak:
		blk.Kind = KindHR
		blk.Markup = string(opening)
	case *ast.Blockquote:
		blk.Kind = KindBlockquote
		blk.Markup = ">"
		blk.Content = t.spanText(span)
	case *ast.List:
		blk.Kind = KindList
		blk.Markup = string(n.Marker)
		blk.Content = t.spanText(span)
	case *ast.ListItem:
		blk.Kind = KindListItem
		if list, ok := n.Parent().(*ast.List); ok {
			blk.Markup = string(list.Marker)
		}
		blk.Content = t.spanText(span)
	case *ast.Paragraph, *ast.TextBlock:
		blk.Kind = KindParagraph
		blk.Content = string(n.Lines().Value(t.source))
	case *ast.HTMLBlock:
		blk.Kind = KindHTMLBlock
		content := n.Lines().Value(t.source)
		if n.HasClosure() {
			content = append(content, n.ClosureLine.Value(t.source)...)
		}
		blk.Content = string(content)
	case *MathBlock:
		blk.Kind = KindMathBlock
		blk.Markup = string(mathDelim)
		blk.Content = string(n.Lines().Value(t.source))
	case *FrontMatterBlock:
		blk.Kind = KindFrontMatter
		blk.Markup = "---"
		blk.Content = string(n.Lines().Value(t.source))
	case *FencedDiv:
		blk.Kind = KindContainer
		blk.Markup = strings.Repeat(":", n.Colons)
		blk.Info = n.Attrs
		blk.Content = t.spanText(span)
	default:
		return Block{}, false
	}
	return blk, true
}

func (t *tokenizer) spanText(span Span) string {
	parts := make([]string, 0, span.End-span.Start)
	for line := span.Start; line < span.End && line < len(t.lines); line++ {
		parts = append(parts, string(t.lines.text(t.source, line)))
	}
	return strings.Join(parts, "\n")
}

func leadingRun(line []byte) []byte {
	if len(line) == 0 {
		return nil
	}
	i := 1
	for i < len(line) && line[i] == line[0] {
		i++
	}
	return line[:i]
}
