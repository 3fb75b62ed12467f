// Copyright © 2024 The ELPS authors

package diagnostic

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Renderer formats diagnostics as annotated source snippets. Spans on one
// line share a single copy of the source line; secondary spans are
// underlined with '-' and spans in other files get their own ":::" header.
type Renderer struct {
	// Color controls ANSI color output. Default is ColorAuto.
	Color ColorMode

	// SourceReader reads source file contents. If nil, os.ReadFile is used.
	SourceReader func(string) ([]byte, error)

	sources map[string][]byte
}

// Render writes a single diagnostic to w.
func (r *Renderer) Render(w io.Writer, d Diagnostic) error {
	p := choosePalette(r.Color, fileFromWriter(w))
	bw := bufio.NewWriter(w)
	ew := &errWriter{w: bw}

	// Header: "error[kind]: message"
	r.writeHeader(ew, d, p)
	r.writeSpans(ew, d.Spans, p)
	for _, note := range d.Notes {
		ew.printf("   %s=%s note: %s\n", p.boldCyan, p.reset, note)
	}

	if ew.err != nil {
		return ew.err
	}
	return bw.Flush()
}

// RenderAll writes all diagnostics to w separated by blank lines.
func (r *Renderer) RenderAll(w io.Writer, diags []Diagnostic) error {
	for i, d := range diags {
		if i > 0 {
			if _, err := io.WriteString(w, "\n"); err != nil {
				return err
			}
		}
		if err := r.Render(w, d); err != nil {
			return err
		}
	}
	return nil
}

// errWriter wraps a writer and captures the first error, short-circuiting
// subsequent writes.
type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) printf(format string, a ...interface{}) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintf(ew.w, format, a...)
}

func (ew *errWriter) print(s string) {
	if ew.err != nil {
		return
	}
	_, ew.err = io.WriteString(ew.w, s)
}

func (r *Renderer) writeHeader(ew *errWriter, d Diagnostic, p palette) {
	var sevColor string
	switch d.Severity {
	case SeverityFatal, SeverityError:
		sevColor = p.boldRed
	case SeverityWarning:
		sevColor = p.yellow
	case SeverityLint, SeverityNote:
		sevColor = p.boldCyan
	}
	code := ""
	if d.Code != "" {
		code = "[" + d.Code + "]"
	}
	ew.printf("%s%s%s%s%s: %s%s%s\n",
		sevColor, p.bold, d.Severity, code, p.reset,
		p.bold, d.Message, p.reset)
}

// mark is an underline on one displayed line, in display columns.
type mark struct {
	start, end int
	secondary  bool
	label      string
}

type sourceLine struct {
	num   int
	text  string
	marks []mark
}

func (r *Renderer) writeSpans(ew *errWriter, spans []Span, p palette) {
	if len(spans) == 0 {
		return
	}
	width := 1
	for _, s := range spans {
		width = max(width, len(strconv.Itoa(max(s.Line, s.EndLine))))
	}
	gutter := strings.Repeat(" ", width)

	var files []string
	byFile := make(map[string][]Span)
	for _, s := range spans {
		if _, ok := byFile[s.File]; !ok {
			files = append(files, s.File)
		}
		byFile[s.File] = append(byFile[s.File], s)
	}
	for i, file := range files {
		arrow := "-->"
		if i > 0 {
			arrow = ":::"
		}
		ew.printf("%s %s%s%s %s\n", gutter, p.boldBlue, arrow, p.reset, byFile[file][0].location())

		lines := r.annotate(byFile[file])
		ew.printf(" %s%s |%s\n", p.boldBlue, gutter, p.reset)
		prev := 0
		for _, l := range lines {
			if prev > 0 && l.num > prev+1 {
				ew.printf("%s...%s\n", p.boldBlue, p.reset)
			}
			prev = l.num
			ew.printf(" %s%*d |%s  %s\n", p.boldBlue, width, l.num, p.reset, strings.ReplaceAll(l.text, "\t", "    "))
			writeMarks(ew, gutter, l.marks, p)
		}
		if len(lines) > 0 {
			ew.printf(" %s%s |%s\n", p.boldBlue, gutter, p.reset)
		}
	}
}

// location formats the span start as "file:line:col".
func (s Span) location() string {
	switch {
	case s.Line <= 0:
		return s.File
	case s.Col <= 0:
		return fmt.Sprintf("%s:%d", s.File, s.Line)
	default:
		return fmt.Sprintf("%s:%d:%d", s.File, s.Line, s.Col)
	}
}

// annotate collects the marks of spans by source line. Lines whose source
// cannot be read are dropped.
func (r *Renderer) annotate(spans []Span) []*sourceLine {
	byNum := make(map[int]*sourceLine)
	line := func(file string, num int) *sourceLine {
		if l, ok := byNum[num]; ok {
			return l
		}
		text, ok := r.readSourceLine(file, num)
		if !ok {
			return nil
		}
		l := &sourceLine{num: num, text: text}
		byNum[num] = l
		return l
	}
	for _, s := range spans {
		first := line(s.File, s.Line)
		if first == nil {
			continue
		}
		col := max(s.Col, 1)
		if s.EndLine <= s.Line {
			start, end := markColumns(first.text, col, s.EndCol)
			first.marks = append(first.marks, mark{start: start, end: end, secondary: s.Secondary, label: s.Label})
			continue
		}
		// A span over several lines marks the rest of its first line and
		// the start of its last.
		start := displayWidth(prefix(first.text, col-1))
		first.marks = append(first.marks, mark{start: start, end: max(displayWidth(first.text), start+1), secondary: s.Secondary})
		last := line(s.File, s.EndLine)
		if last == nil {
			continue
		}
		indent := len(last.text) - len(strings.TrimLeft(last.text, " \t"))
		start = displayWidth(last.text[:indent])
		end := start + 1
		if s.EndCol > indent {
			end = displayWidth(prefix(last.text, s.EndCol))
		}
		last.marks = append(last.marks, mark{start: start, end: end, secondary: s.Secondary, label: s.Label})
	}
	lines := make([]*sourceLine, 0, len(byNum))
	for _, l := range byNum {
		lines = append(lines, l)
	}
	sort.Slice(lines, func(i, j int) bool { return lines[i].num < lines[j].num })
	return lines
}

// markColumns converts a 1-based inclusive byte column range of source to
// display columns. A zero endCol extends over the token at col.
func markColumns(source string, col, endCol int) (int, int) {
	if endCol <= 0 {
		endCol = detectEndCol(source, col)
	}
	endCol = max(endCol, col)
	start := displayWidth(prefix(source, col-1))
	end := displayWidth(prefix(source, endCol))
	if past := endCol - max(len(source), col-1); past > 0 {
		end += past
	}
	return start, max(end, start+1)
}

// writeMarks writes the underline row of a line. The rightmost mark keeps
// its label inline; other labels hang below on their own rows.
func writeMarks(ew *errWriter, gutter string, marks []mark, p palette) {
	if len(marks) == 0 {
		return
	}
	sort.SliceStable(marks, func(i, j int) bool { return marks[i].start < marks[j].start })
	color := func(m mark) string {
		if m.secondary {
			return p.boldBlue
		}
		return p.boldRed
	}
	row := func() {
		ew.printf(" %s%s |%s  ", p.boldBlue, gutter, p.reset)
	}

	row()
	cursor := 0
	for _, m := range marks {
		start := max(m.start, cursor)
		if start >= m.end {
			continue
		}
		ch := "^"
		if m.secondary {
			ch = "-"
		}
		ew.printf("%s%s%s%s", strings.Repeat(" ", start-cursor), color(m), strings.Repeat(ch, m.end-start), p.reset)
		cursor = m.end
	}
	last := marks[len(marks)-1]
	if last.label != "" {
		ew.printf(" %s%s%s", color(last), last.label, p.reset)
	}
	ew.print("\n")

	var hanging []mark
	for _, m := range marks[:len(marks)-1] {
		if m.label != "" {
			hanging = append(hanging, m)
		}
	}
	if len(hanging) == 0 {
		return
	}
	connectors := func(ms []mark) int {
		cursor := 0
		for _, m := range ms {
			ew.printf("%s%s|%s", strings.Repeat(" ", max(m.start-cursor, 0)), color(m), p.reset)
			cursor = max(m.start, cursor) + 1
		}
		return cursor
	}
	row()
	connectors(hanging)
	ew.print("\n")
	// Labels hang rightmost first, below connectors to the marks on their
	// left.
	for n := len(hanging) - 1; n >= 0; n-- {
		row()
		cursor := connectors(hanging[:n])
		m := hanging[n]
		ew.printf("%s%s%s%s\n", strings.Repeat(" ", max(m.start-cursor, 0)), color(m), m.label, p.reset)
	}
}

// readSourceLine returns the text of a 1-based line of file.
func (r *Renderer) readSourceLine(file string, line int) (string, bool) {
	if line <= 0 || file == "" || file == "-" {
		return "", false
	}
	data, ok := r.sources[file]
	if !ok {
		reader := r.SourceReader
		if reader == nil {
			reader = func(name string) ([]byte, error) {
				return os.ReadFile(name) //nolint:gosec // reads user-specified source files for display
			}
		}
		var err error
		data, err = reader(file)
		if err != nil {
			data = nil
		}
		if r.sources == nil {
			r.sources = make(map[string][]byte)
		}
		r.sources[file] = data
	}
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(nil, len(data)+1)
	for i := 1; scanner.Scan(); i++ {
		if i == line {
			return strings.TrimSuffix(scanner.Text(), "\r"), true
		}
	}
	return "", false
}

// detectEndCol returns the 1-based inclusive end column of the identifier
// starting at col, or col itself.
func detectEndCol(source string, col int) int {
	if col <= 0 || col > len(source) {
		return col
	}
	end := col - 1
	for end < len(source) {
		ch, size := utf8.DecodeRuneInString(source[end:])
		if !isIdentRune(ch) {
			break
		}
		end += size
	}
	if end == col-1 {
		return col
	}
	return end
}

func isIdentRune(ch rune) bool {
	return ch == '_' || ch == '$' || unicode.IsLetter(ch) || unicode.IsDigit(ch)
}

func prefix(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if n > len(s) {
		return s
	}
	return s[:n]
}

// displayWidth returns the display width of a string, expanding tabs to 4 spaces.
func displayWidth(s string) int {
	w := 0
	for _, ch := range s {
		if ch == '\t' {
			w += 4
		} else {
			w++
		}
	}
	return w
}

// fileFromWriter extracts an *os.File from a writer for terminal
// detection, or returns nil.
func fileFromWriter(w io.Writer) *os.File {
	if f, ok := w.(*os.File); ok {
		return f
	}
	return nil
}
