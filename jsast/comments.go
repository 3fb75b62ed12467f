// Copyright © 2024 The ELPS authors

package jsast

import "sort"

// LiteralSpans returns the spans of string, template and regular expression
// literal text in t, sorted by position.
func LiteralSpans(t *Tree) []Span {
	var spans []Span
	for i := range t.Nodes {
		n := &t.Nodes[i]
		if n.Kind != KindLiteral {
			continue
		}
		if n.Flags&(FlagString|FlagRegExp|FlagTemplate) != 0 && n.End > n.Pos {
			spans = append(spans, Span{Pos: n.Pos, End: n.End})
		}
	}
	sort.Slice(spans, func(i, j int) bool { return spans[i].Pos < spans[j].Pos })
	return spans
}

// Comments scans src for line and block comments, skipping the given sorted
// literal spans. The returned spans include the comment delimiters.
func Comments(src []byte, literals []Span) []Span {
	var comments []Span
	next := 0
	for i := 0; i < len(src); i++ {
		for next < len(literals) && literals[next].End <= i {
			next++
		}
		if next < len(literals) && literals[next].Pos <= i {
			i = literals[next].End - 1
			continue
		}
		switch {
		case src[i] == '`' || src[i] == '"' || src[i] == '\'':
			// Literal delimiters outside any recorded span belong to a
			// template or string the parser did not report.
			i = skipQuoted(src, i)
		case src[i] == '/' && i+1 < len(src) && src[i+1] == '/':
			end := i + 2
			for end < len(src) && src[end] != '\n' && src[end] != '\r' {
				end++
			}
			comments = append(comments, Span{Pos: i, End: end})
			i = end - 1
		case src[i] == '/' && i+1 < len(src) && src[i+1] == '*':
			end := len(src)
			for j := i + 2; j+1 < len(src); j++ {
				if src[j] == '*' && src[j+1] == '/' {
					end = j + 2
					break
				}
			}
			comments = append(comments, Span{Pos: i, End: end})
			i = end - 1
		}
	}
	return comments
}

func skipQuoted(src []byte, i int) int {
	q := src[i]
	for j := i + 1; j < len(src); j++ {
		switch src[j] {
		case '\\':
			j++
		case q:
			return j
		case '\n':
			if q != '`' {
				return j
			}
		}
	}
	return len(src) - 1
}
