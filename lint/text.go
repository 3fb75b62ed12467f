// Copyright © 2024 The ELPS authors

package lint

import (
	"sort"

	"github.com/luthersystems/jscheck/jsast"
)

// embedHazards are sequences that end or confuse an enclosing HTML script
// element or CDATA section. They are matched case-insensitively.
var embedHazards = []string{"<!", "</script", "]]>"}

// AnalyzerEmbedHazard reports text that breaks a script embedded in HTML.
var AnalyzerEmbedHazard = &Analyzer{
	Name:     "embed-hazard",
	Doc:      "Report `<!`, `</script` or `]]>` inside a string, template, regular expression or comment.\n\nEach occurrence is reported separately with its exact span. Write `<\\/script` or split the string instead.",
	Severity: SeverityWarning,
	Run: func(pass *Pass) error {
		src := pass.Tree.Source
		literals := jsast.LiteralSpans(pass.Tree)
		comments := jsast.Comments(src, literals)
		spans := make([]jsast.Span, 0, len(literals)+len(comments))
		spans = append(spans, literals...)
		spans = append(spans, comments...)
		sort.Slice(spans, func(i, j int) bool { return spans[i].Pos < spans[j].Pos })
		seen := make(map[jsast.Span]bool, len(spans))
		for _, span := range spans {
			if seen[span] {
				continue
			}
			seen[span] = true
			text := lowerASCII(src[span.Pos:span.End])
			for _, h := range embedHazards {
				for i := 0; i+len(h) <= len(text); i++ {
					if string(text[i:i+len(h)]) != h {
						continue
					}
					at := jsast.Span{Pos: span.Pos + i, End: span.Pos + i + len(h)}
					pass.Report(pass.Diagnostic(at, "%q breaks a script embedded in HTML", string(src[at.Pos:at.End])))
				}
			}
		}
		return nil
	},
}

func lowerASCII(b []byte) []byte {
	out := make([]byte, len(b))
	for i, c := range b {
		if 'A' <= c && c <= 'Z' {
			c += 'a' - 'A'
		}
		out[i] = c
	}
	return out
}

// reservedWords are the reserved and future reserved words that old
// interpreters reject as unquoted property names.
var reservedWords = newNameSet([]string{
	"break", "case", "catch", "class", "const", "continue", "debugger",
	"default", "delete", "do", "else", "enum", "export", "extends", "false",
	"finally", "for", "function", "if", "import", "in", "instanceof", "new",
	"null", "return", "super", "switch", "this", "throw", "true", "try",
	"typeof", "var", "void", "while", "with",
	"abstract", "boolean", "byte", "char", "double", "final", "float", "goto",
	"implements", "int", "interface", "long", "native", "package", "private",
	"protected", "public", "short", "static", "synchronized", "throws",
	"transient", "volatile",
})

// AnalyzerBareKeyword reports reserved words used as unquoted property
// names.
var AnalyzerBareKeyword = &Analyzer{
	Name:     "bare-keyword",
	Doc:      "Report a reserved word used as an unquoted property name, as in `o.default` or `{class: 1}`.\n\nOlder interpreters reject these. Quote the name or use bracket access.",
	Severity: SeverityWarning,
	Run: func(pass *Pass) error {
		t := pass.Tree
		for i := range t.Nodes {
			id := jsast.NodeID(i)
			n := t.Node(id)
			switch {
			case n.Kind == jsast.KindLiteral && n.Flags.Has(jsast.FlagIdentKey):
				if reservedWords[n.Value] {
					pass.Reportf(id, "reserved word %s used as a property name", n.Value)
				}
			case t.IsOp(id, jsast.OpDot):
				if reservedWords[n.Name] {
					at := jsast.Span{Pos: n.End - len(n.Name), End: n.End}
					pass.Report(pass.Diagnostic(at, "reserved word %s used as a property name", n.Name))
				}
			}
		}
		return nil
	},
}

// AnalyzerNoSideEffect reports expression statements whose value is
// computed and discarded.
var AnalyzerNoSideEffect = &Analyzer{
	Name:     "no-side-effect",
	Doc:      "Report an expression statement that has no effect.\n\nA statement whose expression is a literal, a reference, an arithmetic combination of those or a function or object constructor does nothing. `&&`, `||` and `??` are judged by their right operand and `?:` by both branches. A comma expression is always reported because its left value is discarded. Directive prologues such as \"use strict\" are exempt.",
	Severity: SeverityWarning,
	Run: func(pass *Pass) error {
		t := pass.Tree
		for i := range t.Nodes {
			id := jsast.NodeID(i)
			if t.Kind(id) != jsast.KindExprStmt || isDirective(pass, id) {
				continue
			}
			x := t.Child(id, 0)
			switch {
			case t.IsOp(x, jsast.OpComma):
				pass.Reportf(id, "comma expression discards the value of its left operand")
			case pure(t, x):
				pass.Reportf(id, "expression statement has no side effects")
			}
		}
		return nil
	},
}

// pure reports whether evaluating id cannot have a visible effect.
func pure(t *jsast.Tree, id jsast.NodeID) bool {
	if !id.Valid() {
		return true
	}
	n := t.Node(id)
	switch n.Kind {
	case jsast.KindLiteral, jsast.KindRef, jsast.KindThis, jsast.KindFunction, jsast.KindClass:
		return true
	case jsast.KindOp:
	default:
		return allPure(t, n.Children)
	}
	switch n.Op {
	case jsast.OpAssign, jsast.OpAssignOp, jsast.OpAssignAnd, jsast.OpAssignOr, jsast.OpAssignCoalesce,
		jsast.OpCall, jsast.OpNew, jsast.OpDelete, jsast.OpInc, jsast.OpDec, jsast.OpYield, jsast.OpAwait:
		return false
	case jsast.OpAnd, jsast.OpOr, jsast.OpCoalesce:
		return pure(t, n.Children[1])
	case jsast.OpHook:
		return pure(t, n.Children[1]) && pure(t, n.Children[2])
	case jsast.OpComma:
		return true
	case jsast.OpTemplate:
		if n.Children[0].Valid() {
			return false
		}
	}
	return allPure(t, n.Children)
}

func allPure(t *jsast.Tree, ids []jsast.NodeID) bool {
	for _, c := range ids {
		if !pure(t, c) {
			return false
		}
	}
	return true
}

// isDirective reports whether stmt belongs to the directive prologue of a
// program or function body.
func isDirective(pass *Pass, stmt jsast.NodeID) bool {
	t := pass.Tree
	parent := pass.Scopes.Parents[stmt]
	if !parent.Valid() {
		return false
	}
	if t.Kind(parent) != jsast.KindProgram && t.Kind(pass.Scopes.Parents[parent]) != jsast.KindFunction {
		return false
	}
	for _, s := range t.Node(parent).Children {
		if !isStringStatement(t, s) {
			return false
		}
		if s == stmt {
			return true
		}
	}
	return false
}

func isStringStatement(t *jsast.Tree, id jsast.NodeID) bool {
	if t.Kind(id) != jsast.KindExprStmt {
		return false
	}
	x := t.Child(id, 0)
	n := t.Node(x)
	return n.Kind == jsast.KindLiteral && n.Flags.Has(jsast.FlagString) && !n.Flags.Has(jsast.FlagTemplate)
}
