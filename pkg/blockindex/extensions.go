package blockindex

import (
	"bytes"

	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
)

var (
	KindMathBlockNode   = ast.NewNodeKind("MathBlock")
	KindFrontMatterNode = ast.NewNodeKind("FrontMatter")
	KindFencedDivNode   = ast.NewNodeKind("FencedDiv")
)

var mathDelim = []byte("$$")

// MathBlock is a display math block delimited by $$ lines.
type MathBlock struct {
	ast.BaseBlock
	// SingleLine is set for $$...$$ written on one line.
	SingleLine bool
}

func (n *MathBlock) Kind() ast.NodeKind { return KindMathBlockNode }
func (n *MathBlock) IsRaw() bool        { return true }

func (n *MathBlock) Dump(source []byte, level int) {
	ast.DumpHelper(n, source, level, nil, nil)
}

// FrontMatterBlock is the YAML header delimited by --- at the top of a
// document.
type FrontMatterBlock struct {
	ast.BaseBlock
}

func (n *FrontMatterBlock) Kind() ast.NodeKind { return KindFrontMatterNode }
func (n *FrontMatterBlock) IsRaw() bool        { return true }

func (n *FrontMatterBlock) Dump(source []byte, level int) {
	ast.DumpHelper(n, source, level, nil, nil)
}

// FencedDiv is a ::: {attrs} container.
type FencedDiv struct {
	ast.BaseBlock
	Colons int
	Attrs  string
}

func (n *FencedDiv) Kind() ast.NodeKind { return KindFencedDivNode }

func (n *FencedDiv) Dump(source []byte, level int) {
	ast.DumpHelper(n, source, level, map[string]string{"Attrs": n.Attrs}, nil)
}

func newlineLen(line []byte) int {
	if len(line) > 0 && line[len(line)-1] == '\n' {
		return 1
	}
	return 0
}

// consumeLine moves the reader to the end of the current line, leaving the
// newline for the parser loop.
func consumeLine(reader text.Reader) {
	line, segment := reader.PeekLine()
	reader.Advance(segment.Len() - newlineLen(line))
}

type mathBlockParser struct{}

func NewMathBlockParser() parser.BlockParser {
	return &mathBlockParser{}
}

func (b *mathBlockParser) Trigger() []byte {
	return []byte{'$'}
}

func (b *mathBlockParser) Open(parent ast.Node, reader text.Reader, pc parser.Context) (ast.Node, parser.State) {
	line, segment := reader.PeekLine()
	pos := pc.BlockOffset()
	if pos < 0 || !bytes.HasPrefix(line[pos:], mathDelim) {
		return nil, parser.NoChildren
	}

	node := &MathBlock{}
	start := segment.Start - segment.Padding + pos + len(mathDelim)
	rest := line[pos+len(mathDelim):]
	if i := bytes.Index(rest, mathDelim); i >= 0 && util.IsBlank(rest[i+len(mathDelim):]) {
		node.SingleLine = true
		node.Lines().Append(text.NewSegment(start, start+i))
	} else if !util.IsBlank(rest) {
		node.Lines().Append(text.NewSegment(start, segment.Stop))
	}
	consumeLine(reader)
	return node, parser.NoChildren
}

func (b *mathBlockParser) Continue(node ast.Node, reader text.Reader, pc parser.Context) parser.State {
	if node.(*MathBlock).SingleLine {
		return parser.Close
	}

	line, segment := reader.PeekLine()
	trimmed := util.TrimRightSpace(line)
	if bytes.HasSuffix(trimmed, mathDelim) {
		if body := trimmed[:len(trimmed)-len(mathDelim)]; !util.IsBlank(body) {
			node.Lines().Append(text.NewSegment(segment.Start, segment.Start+len(body)))
		}
		consumeLine(reader)
		return parser.Close
	}

	node.Lines().Append(segment)
	consumeLine(reader)
	return parser.Continue | parser.NoChildren
}

func (b *mathBlockParser) Close(node ast.Node, reader text.Reader, pc parser.Context) {}

func (b *mathBlockParser) CanInterruptParagraph() bool { return true }

func (b *mathBlockParser) CanAcceptIndentedLine() bool { return false }

type frontMatterParser struct{}

func NewFrontMatterParser() parser.BlockParser {
	return &frontMatterParser{}
}

func isFrontMatterDelim(line []byte, allowDots bool) bool {
	trimmed := util.TrimRightSpace(line)
	return bytes.Equal(trimmed, []byte("---")) || (allowDots && bytes.Equal(trimmed, []byte("...")))
}

func (b *frontMatterParser) Trigger() []byte {
	return []byte{'-'}
}

func (b *frontMatterParser) Open(parent ast.Node, reader text.Reader, pc parser.Context) (ast.Node, parser.State) {
	lineNum, _ := reader.Position()
	if lineNum != 0 || parent.Kind() != ast.KindDocument || pc.BlockOffset() != 0 {
		return nil, parser.NoChildren
	}
	line, segment := reader.PeekLine()
	if !isFrontMatterDelim(line, false) {
		return nil, parser.NoChildren
	}

	// only a header with a closing delimiter is front matter, otherwise the
	// line is a thematic break
	rest := reader.Source()[segment.Stop:]
	closed := false
	for len(rest) > 0 && !closed {
		next := rest
		if i := bytes.IndexByte(rest, '\n'); i >= 0 {
			next, rest = rest[:i+1], rest[i+1:]
		} else {
			rest = nil
		}
		closed = isFrontMatterDelim(next, true)
	}
	if !closed {
		return nil, parser.NoChildren
	}

	consumeLine(reader)
	return &FrontMatterBlock{}, parser.NoChildren
}

func (b *frontMatterParser) Continue(node ast.Node, reader text.Reader, pc parser.Context) parser.State {
	line, segment := reader.PeekLine()
	if isFrontMatterDelim(line, true) {
		consumeLine(reader)
		return parser.Close
	}
	node.Lines().Append(segment)
	consumeLine(reader)
	return parser.Continue | parser.NoChildren
}

func (b *frontMatterParser) Close(node ast.Node, reader text.Reader, pc parser.Context) {}

func (b *frontMatterParser) CanInterruptParagraph() bool { return false }

func (b *frontMatterParser) CanAcceptIndentedLine() bool { return false }

type fencedDivParser struct{}

func NewFencedDivParser() parser.BlockParser {
	return &fencedDivParser{}
}

func colonRun(line []byte, pos int) int {
	n := 0
	for pos+n < len(line) && line[pos+n] == ':' {
		n++
	}
	return n
}

func (b *fencedDivParser) Trigger() []byte {
	return []byte{':'}
}

func (b *fencedDivParser) Open(parent ast.Node, reader text.Reader, pc parser.Context) (ast.Node, parser.State) {
	line, _ := reader.PeekLine()
	pos := pc.BlockOffset()
	if pos < 0 {
		return nil, parser.NoChildren
	}
	colons := colonRun(line, pos)
	if colons < 3 {
		return nil, parser.NoChildren
	}
	attrs := bytes.TrimSpace(line[pos+colons:])
	attrs = bytes.TrimSpace(bytes.TrimRight(attrs, ":"))
	if len(attrs) == 0 {
		return nil, parser.NoChildren
	}

	consumeLine(reader)
	return &FencedDiv{Colons: colons, Attrs: string(attrs)}, parser.HasChildren
}

func (b *fencedDivParser) Continue(node ast.Node, reader text.Reader, pc parser.Context) parser.State {
	line, _ := reader.PeekLine()
	w, pos := util.IndentWidth(line, reader.LineOffset())
	if w < 4 {
		colons := colonRun(line, pos)
		if colons >= 3 && util.IsBlank(line[pos+colons:]) && !hasOpenFencedDescendant(node) {
			consumeLine(reader)
			return parser.Close
		}
	}
	return parser.Continue | parser.HasChildren
}

func (b *fencedDivParser) Close(node ast.Node, reader text.Reader, pc parser.Context) {}

func (b *fencedDivParser) CanInterruptParagraph() bool { return true }

func (b *fencedDivParser) CanAcceptIndentedLine() bool { return false }

// hasOpenFencedDescendant reports whether a fence, math block or nested div
// on the last-child chain of n is still open. Such a block owns a closing
// ::: line.
func hasOpenFencedDescendant(n ast.Node) bool {
	for c := n.LastChild(); c != nil; c = c.LastChild() {
		switch c.(type) {
		case *ast.FencedCodeBlock, *MathBlock, *FencedDiv:
			if !isClosed(c) {
				return true
			}
		}
	}
	return false
}
