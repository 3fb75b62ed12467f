// Copyright © 2024 The ELPS authors

package jsast

import "sort"

// LineIndex maps byte offsets to 1-based line and column numbers.
type LineIndex struct {
	starts []int
	size   int
}

// NewLineIndex indexes the line starts of src. "\n", "\r\n" and "\r" all
// terminate a line.
func NewLineIndex(src []byte) *LineIndex {
	starts := []int{0}
	for i := 0; i < len(src); i++ {
		switch src[i] {
		case '\n':
			starts = append(starts, i+1)
		case '\r':
			if i+1 < len(src) && src[i+1] == '\n' {
				i++
			}
			starts = append(starts, i+1)
		}
	}
	return &LineIndex{starts: starts, size: len(src)}
}

// Position returns the 1-based line and column of offset. Columns count
// bytes.
func (x *LineIndex) Position(offset int) (line, col int) {
	if offset < 0 {
		offset = 0
	}
	if offset > x.size {
		offset = x.size
	}
	i := sort.Search(len(x.starts), func(i int) bool { return x.starts[i] > offset }) - 1
	return i + 1, offset - x.starts[i] + 1
}

// LineStart returns the byte offset where 1-based line begins.
func (x *LineIndex) LineStart(line int) int {
	if line < 1 {
		return 0
	}
	if line > len(x.starts) {
		return x.size
	}
	return x.starts[line-1]
}

// LineCount returns the number of lines.
func (x *LineIndex) LineCount() int { return len(x.starts) }
