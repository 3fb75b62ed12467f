// Copyright © 2024 The ELPS authors

package lint

import (
	"github.com/luthersystems/jscheck/analysis"
	"github.com/luthersystems/jscheck/flow"
	"github.com/luthersystems/jscheck/jsast"
)

// AnalyzerRedefinition reports a name declared more than once in one scope.
var AnalyzerRedefinition = &Analyzer{
	Name:     "redefinition",
	Doc:      "Report a name declared more than once in the same scope.\n\nA second `var`, function or parameter declaration of a name silently replaces the first. Globals listed as overrides may be redeclared.",
	Severity: SeverityError,
	Run: func(pass *Pass) error {
		for _, dup := range pass.Scopes.Duplicates {
			name := dup.Decl.Name
			if dup.Scope == pass.Scopes.Root && pass.Overridden(name) {
				continue
			}
			d := pass.Diagnostic(pass.Tree.Span(dup.Decl.Node), "%s is already declared in this %s scope", name, dup.Scope.Kind)
			if sym := dup.Scope.LookupLocal(name); sym != nil && sym.First() != dup.Decl {
				pass.reportDecl(d, "previous declaration", sym.First())
				continue
			}
			pass.Report(d)
		}
		return nil
	},
}

// AnalyzerMaskedDeclaration reports a declaration hiding one in an enclosing
// scope.
var AnalyzerMaskedDeclaration = &Analyzer{
	Name:     "masked-declaration",
	Doc:      "Report a declaration that masks a declaration of the same name in an enclosing scope.\n\nMasking by a catch parameter is reported as a warning, every other masking as an error.",
	Severity: SeverityError,
	Run: func(pass *Pass) error {
		for _, m := range pass.Scopes.Masks {
			d := pass.Diagnostic(pass.Tree.Span(m.Decl.Node), "%s masks a declaration in an enclosing %s scope", m.Decl.Name, m.Outer.Kind)
			if m.Inner.Kind == analysis.ScopeCatch {
				d.Severity = SeverityWarning
			}
			if sym := m.Outer.LookupLocal(m.Decl.Name); sym != nil {
				pass.reportDecl(d, "masked declaration", sym.First())
				continue
			}
			pass.Report(d)
		}
		return nil
	},
}

// AnalyzerSplitInitialization reports a hoisted initializer that assigns a
// catch parameter of the same name.
var AnalyzerSplitInitialization = &Analyzer{
	Name:     "split-initialization",
	Doc:      "Report `var x = ...` inside `catch (x)`.\n\nThe declaration is hoisted to the function but the initializer assigns the catch parameter, so the function-level variable is never initialized.",
	Severity: SeverityWarning,
	Run: func(pass *Pass) error {
		for _, s := range pass.Scopes.SplitInits {
			pass.Reportf(s.Decl.Node, "initializer of %s assigns the catch parameter, not the variable declared in the enclosing %s", s.Decl.Name, s.Decl.Scope.Kind)
		}
		return nil
	},
}

// AnalyzerOutOfBlockScope reports uses of block-nested var and function
// declarations outside their block.
var AnalyzerOutOfBlockScope = &Analyzer{
	Name:     "out-of-block-scope",
	Doc:      "Report a use of a name whose every declaration sits in a block that does not contain the use.\n\nThe name resolves through function-level hoisting, but a reader (or an interpreter with block-scoped functions) expects it to be confined to the block. Names also declared outside any such block are not reported.",
	Severity: SeverityWarning,
	Run: func(pass *Pass) error {
		for _, u := range pass.Scopes.Uses {
			if u.Symbol == nil || !outOfBlock(pass.Scopes, u) {
				continue
			}
			d := pass.Diagnostic(pass.Tree.Span(u.Node), "%s is used outside the block that declares it", u.Name)
			pass.reportDecl(d, "declared", u.Symbol.First())
		}
		return nil
	},
}

func outOfBlock(r *analysis.Result, u *analysis.Use) bool {
	for _, d := range u.Symbol.Decls {
		switch d.Kind {
		case analysis.DeclVar, analysis.DeclFunction:
		default:
			return false
		}
		if !d.Block.Valid() || r.IsAncestor(d.Block, u.Node) {
			return false
		}
	}
	return true
}

// AnalyzerUseBeforeLive reports reads of local variables that may not have
// been assigned on every path.
var AnalyzerUseBeforeLive = &Analyzer{
	Name:     "use-before-live",
	Doc:      "Report a read of a variable that is not definitely assigned where it is read.\n\nOnly names declared in the same function (or both at top level) are checked. The operand of `typeof`, the key of a for-in or for-of loop and code under `with` or `eval` are exempt.",
	Severity: SeverityWarning,
	Run: func(pass *Pass) error {
		for _, u := range pass.Scopes.Uses {
			if !u.Read || u.Symbol == nil || u.ForInKey || u.TypeofOperand {
				continue
			}
			if u.Scope.Unit() != u.Defining.Unit() || pass.Flow.IsUnanalyzable(u.Node) {
				continue
			}
			live, ok := pass.Flow.LiveAt(u.Node)
			if !ok || live == nil {
				continue
			}
			if !live.Contains(flow.Var{Name: u.Name, Scope: u.Defining}) {
				pass.Reportf(u.Node, "%s may be used before it is assigned", u.Name)
			}
		}
		return nil
	},
}

// AnalyzerDeadCode reports the outermost statements control never reaches.
var AnalyzerDeadCode = &Analyzer{
	Name:     "dead-code",
	Doc:      "Report statements that cannot be reached.\n\nOnly the outermost unreachable statement is reported. Function declarations and `var` declarations without initializers are exempt because they are hoisted. Code under `with` is not analyzed.",
	Severity: SeverityWarning,
	Run: func(pass *Pass) error {
		t, fr := pass.Tree, pass.Flow
		// Only the first dead statement of a statement list is reported.
		reported := make(map[jsast.NodeID]bool)
		for i := range t.Nodes {
			id := jsast.NodeID(i)
			if !deadCandidate(t, id) || fr.Live.Has(id) || fr.IsUnanalyzable(id) {
				continue
			}
			parent := pass.Scopes.Parents[id]
			if !parent.Valid() || !fr.Live.Has(parent) {
				continue
			}
			switch t.Kind(parent) {
			case jsast.KindProgram, jsast.KindBlock, jsast.KindCase:
				if reported[parent] {
					continue
				}
				reported[parent] = true
			}
			pass.Reportf(id, "unreachable code")
		}
		return nil
	},
}

func deadCandidate(t *jsast.Tree, id jsast.NodeID) bool {
	n := t.Node(id)
	switch n.Kind {
	case jsast.KindProgram, jsast.KindCase, jsast.KindCatch, jsast.KindEmpty:
		return false
	case jsast.KindFunction:
		return false
	case jsast.KindVarDecl:
		if n.Flags.Has(jsast.FlagLet) || n.Flags.Has(jsast.FlagConst) {
			return true
		}
		for _, d := range n.Children {
			if t.Child(d, 1).Valid() {
				return true
			}
		}
		return false
	}
	return n.Kind.IsStatement()
}

// AnalyzerUnmatchedLabel reports break and continue statements whose label
// matches no enclosing statement.
var AnalyzerUnmatchedLabel = &Analyzer{
	Name:     "unmatched-label",
	Doc:      "Report `break` or `continue` with no matching enclosing statement.",
	Severity: SeverityError,
	Run: func(pass *Pass) error {
		report := func(ex *flow.ExitModes) {
			for _, k := range ex.Keys() {
				if k.Kind != flow.ExitBreak && k.Kind != flow.ExitContinue {
					continue
				}
				m, _ := ex.Get(k)
				for _, src := range m.Sources {
					if k.Label == "" {
						pass.Reportf(src.Node, "%s outside of a loop or switch", k.Kind)
						continue
					}
					pass.Reportf(src.Node, "%s to unknown label %s", k.Kind, k.Label)
				}
			}
		}
		for i := range pass.Tree.Nodes {
			if ex, ok := pass.Flow.FunctionExits[jsast.NodeID(i)]; ok {
				report(ex)
			}
		}
		report(pass.Flow.ProgramExits)
		return nil
	},
}

// AnalyzerReturnOutsideFunction reports top-level return statements.
var AnalyzerReturnOutsideFunction = &Analyzer{
	Name:     "return-outside-function",
	Doc:      "Report `return` outside of any function.",
	Severity: SeverityError,
	Run: func(pass *Pass) error {
		reportProgramExit(pass, flow.ExitKey{Kind: flow.ExitReturn}, "return outside of a function")
		return nil
	},
}

// AnalyzerUncaughtThrow reports throw statements that escape the program.
var AnalyzerUncaughtThrow = &Analyzer{
	Name:     "uncaught-throw",
	Doc:      "Report a `throw` that reaches the top level uncaught.\n\nThrowing during initialization may be intentional, so this is informational.",
	Severity: SeverityLint,
	Run: func(pass *Pass) error {
		reportProgramExit(pass, flow.ExitKey{Kind: flow.ExitThrow}, "exception is not caught")
		return nil
	},
}

func reportProgramExit(pass *Pass, key flow.ExitKey, msg string) {
	ex := pass.Flow.ProgramExits
	if ex == nil {
		return
	}
	m, ok := ex.Get(key)
	if !ok {
		return
	}
	for _, src := range m.Sources {
		pass.Reportf(src.Node, "%s", msg)
	}
}

// reportDecl records d with decl as a related location, labeled what,
// and a note giving its position.
func (p *Pass) reportDecl(d Diagnostic, what string, decl *analysis.Declaration) {
	span := p.Tree.Span(decl.Node)
	pos := p.Position(span.Pos)
	d.Related = append(d.Related, Related{Pos: pos, EndPos: p.Position(span.End), Message: what})
	p.ReportWithNotes(d, what+" at "+pos.String())
}
