// Copyright © 2024 The ELPS authors

package lsp

import (
	"strings"
	"unicode/utf8"

	"github.com/luthersystems/jscheck/jsast"
	protocol "github.com/tliron/glsp/protocol_3_16"
)

// lineMapper converts between byte offsets and LSP positions, whose
// character counts are UTF-16 code units.
type lineMapper struct {
	src   []byte
	index *jsast.LineIndex
}

func newLineMapper(src []byte) *lineMapper {
	return &lineMapper{src: src, index: jsast.NewLineIndex(src)}
}

// position returns the LSP position of a byte offset.
func (m *lineMapper) position(offset int) protocol.Position {
	if offset > len(m.src) {
		offset = len(m.src)
	}
	if offset < 0 {
		offset = 0
	}
	line, _ := m.index.Position(offset)
	start := m.index.LineStart(line)
	units := 0
	for i := start; i < offset; {
		r, size := utf8.DecodeRune(m.src[i:])
		units += utf16Len(r)
		i += size
	}
	return protocol.Position{Line: safeUint(line - 1), Character: safeUint(units)}
}

// offset returns the byte offset of an LSP position, clamped to the line.
func (m *lineMapper) offset(pos protocol.Position) int {
	line := int(pos.Line) + 1
	if line > m.index.LineCount() {
		return len(m.src)
	}
	i := m.index.LineStart(line)
	for units := 0; i < len(m.src) && units < int(pos.Character); {
		r, size := utf8.DecodeRune(m.src[i:])
		if r == '\n' || r == '\r' {
			break
		}
		units += utf16Len(r)
		i += size
	}
	return i
}

// rangeOf returns the LSP range of a byte span.
func (m *lineMapper) rangeOf(span jsast.Span) protocol.Range {
	return protocol.Range{Start: m.position(span.Pos), End: m.position(span.End)}
}

// utf16Len returns the number of UTF-16 code units encoding r. Invalid
// bytes decode as utf8.RuneError and count as one unit.
func utf16Len(r rune) int {
	if r >= 0x10000 {
		return 2
	}
	return 1
}

// safeUint converts a non-negative int to protocol.UInteger, clamping
// negative values to zero.
func safeUint(n int) protocol.UInteger {
	if n < 0 {
		return 0
	}
	return protocol.UInteger(n) // #nosec G115 -- line/col are always small positive ints
}

// refAt returns the innermost identifier node whose span contains offset.
// A cursor just past the end of an identifier still selects it.
func refAt(t *jsast.Tree, offset int) jsast.NodeID {
	best := jsast.NoNode
	for i := range t.Nodes {
		n := &t.Nodes[i]
		if n.Kind != jsast.KindRef || offset < n.Pos || offset > n.End {
			continue
		}
		if !best.Valid() || n.End-n.Pos < t.Nodes[best].End-t.Nodes[best].Pos {
			best = jsast.NodeID(i)
		}
	}
	return best
}

// uriToPath converts a file:// URI to a filesystem path.
func uriToPath(uri string) string {
	if path, ok := strings.CutPrefix(uri, "file://"); ok {
		return path
	}
	return uri
}

// pathToURI converts a filesystem path to a file:// URI.
func pathToURI(path string) string {
	if strings.HasPrefix(path, "/") {
		return "file://" + path
	}
	return path
}
