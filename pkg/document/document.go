// Package document holds the read-only view of a host buffer that every
// bridge component consumes.
package document

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Unversioned marks a document that did not come from an editor and so has
// no monotonically increasing version.
const Unversioned int32 = -1

// Document is the accessor over a host buffer.
type Document interface {
	URI() string
	Version() int32
	LineCount() int
	LineAt(line int) string
	Text() string
}

// Snapshot is an immutable Document. Lines are split on \n, \r\n and \r.
type Snapshot struct {
	uri     string
	version int32
	text    string
	lines   []string
}

var _ Document = (*Snapshot)(nil)

func NewSnapshot(uri string, version int32, text string) *Snapshot {
	return &Snapshot{
		uri:     uri,
		version: version,
		text:    text,
		lines:   SplitLines(text),
	}
}

func (s *Snapshot) URI() string    { return s.uri }
func (s *Snapshot) Version() int32 { return s.version }
func (s *Snapshot) Text() string   { return s.text }
func (s *Snapshot) LineCount() int { return len(s.lines) }

// LineAt returns the text of a line without its terminator, or "" when the
// line is out of range.
func (s *Snapshot) LineAt(line int) string {
	if line < 0 || line >= len(s.lines) {
		return ""
	}
	return s.lines[line]
}

// SplitLines splits text the way editors count lines: a trailing terminator
// yields a final empty line.
func SplitLines(text string) []string {
	lines := make([]string, 0, strings.Count(text, "\n")+1)
	start := 0
	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '\n':
			lines = append(lines, text[start:i])
			start = i + 1
		case '\r':
			lines = append(lines, text[start:i])
			if i+1 < len(text) && text[i+1] == '\n' {
				i++
			}
			start = i + 1
		}
	}
	return append(lines, text[start:])
}

// ContentHash identifies a text independent of any version counter.
func ContentHash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}
