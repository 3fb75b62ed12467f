// Copyright © 2024 The ELPS authors

// Package parser converts JavaScript source into a jsast.Tree using the goja
// parser.
package parser

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dop251/goja/ast"
	gojaparser "github.com/dop251/goja/parser"
	"github.com/tliron/commonlog"

	"github.com/luthersystems/jscheck/jsast"
)

var log = commonlog.GetLogger("jscheck.parser")

// functionPrefix wraps sources that use top-level return so that goja
// accepts them. The analysis decides what a top-level return means.
const (
	functionPrefix = "(function(){"
	functionSuffix = "\n})"
)

// Error is a syntax error with a source position.
type Error struct {
	File string
	Line int
	Col  int
	Msg  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s:%d:%d: %s", e.File, e.Line, e.Col, e.Msg)
}

// Parse parses src and returns its syntax tree.
//
// goja rejects top-level return and break or continue statements without a
// matching target. Those are recovered so that the analysis can report them:
// a source with top-level return is reparsed as a function body, and each
// stray branch statement is blanked and restored as a jsast Break or
// Continue node.
func Parse(filename string, src []byte) (*jsast.Tree, error) {
	text := []byte(string(src))
	branches := make(map[int]branch)
	shift := 0
	for {
		parsed := string(text)
		if shift > 0 {
			parsed = functionPrefix + parsed + functionSuffix
		}
		prog, err := gojaparser.ParseFile(nil, filename, parsed, 0, gojaparser.WithDisableSourceMaps)
		if err == nil {
			body := prog.Body
			if shift > 0 {
				var ok bool
				if body, ok = unwrapFunction(prog); !ok {
					return nil, &Error{File: filename, Line: 1, Col: 1, Msg: "unexpected end of input"}
				}
			}
			c := newConverter(filename, src, shift)
			c.branches = branches
			return c.program(body), nil
		}
		if recoverBranches(text, parsed, shift, err, branches) {
			log.Debugf("%s: reparsing without %d unmatched branch statements", filename, len(branches))
			continue
		}
		if shift == 0 && strings.Contains(err.Error(), "Illegal return statement") {
			log.Debugf("%s: reparsing with top-level return", filename)
			shift = len(functionPrefix)
			continue
		}
		return nil, convertError(filename, err, shift)
	}
}

// branch is a break or continue statement removed from the source before
// parsing.
type branch struct {
	kind  jsast.Kind
	label string
	end   int
}

// recoverBranches blanks every break or continue statement reported as
// illegal or as naming an undefined label. It reports whether text changed.
func recoverBranches(text []byte, parsed string, shift int, err error, branches map[int]branch) bool {
	var list gojaparser.ErrorList
	if !errors.As(err, &list) {
		return false
	}
	changed := false
	for _, e := range list {
		if !isBranchError(e.Message) {
			continue
		}
		off := lineColOffset(parsed, e.Position.Line, e.Position.Column) - shift
		if off < 0 || off >= len(text) {
			continue
		}
		if b, ok := blankBranch(text, off); ok {
			branches[off] = b
			changed = true
		}
	}
	return changed
}

func isBranchError(msg string) bool {
	return msg == "Illegal break statement" ||
		msg == "Illegal continue statement" ||
		strings.HasPrefix(msg, "Undefined label ")
}

// blankBranch replaces the branch statement at off with a numeric literal
// statement of the same length, which the converter turns back into a
// branch node.
func blankBranch(text []byte, off int) (branch, bool) {
	var b branch
	rest := text[off:]
	switch {
	case hasKeyword(rest, "break"):
		b.kind = jsast.KindBreak
		b.end = off + len("break")
	case hasKeyword(rest, "continue"):
		b.kind = jsast.KindContinue
		b.end = off + len("continue")
	default:
		return b, false
	}
	i := b.end
	for i < len(text) && (text[i] == ' ' || text[i] == '\t') {
		i++
	}
	j := i
	for j < len(text) && isIdentByte(text[j]) {
		j++
	}
	if j > i {
		b.label = string(text[i:j])
		b.end = j
	}
	for k := off; k < b.end; k++ {
		text[k] = ' '
	}
	text[off] = '0'
	next := b.end
	for next < len(text) && (text[next] == ' ' || text[next] == '\t') {
		next++
	}
	if next >= len(text) || (text[next] != ';' && text[next] != '}') {
		text[off+1] = ';'
	}
	return b, true
}

func hasKeyword(b []byte, kw string) bool {
	if !strings.HasPrefix(string(b), kw) {
		return false
	}
	return len(b) == len(kw) || !isIdentByte(b[len(kw)])
}

func isIdentByte(c byte) bool {
	return c == '_' || c == '$' || c >= 0x80 ||
		'a' <= c && c <= 'z' || 'A' <= c && c <= 'Z' || '0' <= c && c <= '9'
}

// lineColOffset converts a 1-based line and byte column into an offset.
func lineColOffset(text string, line, col int) int {
	off := 0
	for l := 1; l < line; l++ {
		i := strings.IndexByte(text[off:], '\n')
		if i < 0 {
			return -1
		}
		off += i + 1
	}
	return off + col - 1
}

func unwrapFunction(prog *ast.Program) ([]ast.Statement, bool) {
	if len(prog.Body) != 1 {
		return nil, false
	}
	stmt, ok := prog.Body[0].(*ast.ExpressionStatement)
	if !ok {
		return nil, false
	}
	fn, ok := stmt.Expression.(*ast.FunctionLiteral)
	if !ok || fn.Body == nil {
		return nil, false
	}
	return fn.Body.List, true
}

func convertError(filename string, err error, shift int) error {
	var list gojaparser.ErrorList
	if errors.As(err, &list) && len(list) > 0 {
		e := list[0]
		col := e.Position.Column
		if e.Position.Line == 1 {
			col -= shift
		}
		if col < 1 {
			col = 1
		}
		return &Error{File: filename, Line: e.Position.Line, Col: col, Msg: e.Message}
	}
	var single *gojaparser.Error
	if errors.As(err, &single) {
		return &Error{File: filename, Line: single.Position.Line, Col: single.Position.Column, Msg: single.Message}
	}
	return fmt.Errorf("%s: %w", filename, err)
}
