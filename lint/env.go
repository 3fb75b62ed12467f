// Copyright © 2024 The ELPS authors

package lint

import (
	"github.com/luthersystems/jscheck/flow"
)

// AnalyzerUndeclaredGlobal reports reads of globals the file neither
// provides nor requires.
var AnalyzerUndeclaredGlobal = &Analyzer{
	Name:     "undeclared-global",
	Doc:      "Report a read of a global that is not provided, required or built in.\n\nThe operand of `typeof` is exempt so that feature tests such as `typeof window` stay quiet.",
	Severity: SeverityError,
	Run: func(pass *Pass) error {
		for _, u := range pass.Scopes.Free {
			if !u.Read || u.TypeofOperand {
				continue
			}
			if pass.Provided(u.Name) || pass.Required(u.Name) || pass.Builtin(u.Name) {
				continue
			}
			pass.Reportf(u.Node, "%s is not declared", u.Name)
		}
		return nil
	},
}

// AnalyzerInvalidAssignment reports writes to globals the file does not
// provide or override.
var AnalyzerInvalidAssignment = &Analyzer{
	Name:     "invalid-assignment",
	Doc:      "Report an assignment to a global that is neither provided nor overridden.",
	Severity: SeverityError,
	Run: func(pass *Pass) error {
		for _, u := range pass.Scopes.Free {
			if !u.Assigned || pass.Provided(u.Name) || pass.Overridden(u.Name) {
				continue
			}
			pass.Reportf(u.Node, "assignment to undeclared global %s", u.Name)
		}
		return nil
	},
}

// AnalyzerUnusedRequire reports required names that are never read.
var AnalyzerUnusedRequire = &Analyzer{
	Name:     "unused-require",
	Doc:      "Report a required name that the file never reads.",
	Severity: SeverityWarning,
	Run: func(pass *Pass) error {
		read := make(nameSet)
		for _, u := range pass.Scopes.Free {
			if u.Read {
				read[u.Name] = true
			}
		}
		for _, name := range pass.Env.Requires {
			if read[name] {
				continue
			}
			d := pass.Diagnostic(fileStart, "required name %s is never read", name)
			pass.Report(d)
			read[name] = true
		}
		return nil
	},
}

// AnalyzerUnusedProvide reports provided names that are not assigned when
// the program finishes.
var AnalyzerUnusedProvide = &Analyzer{
	Name:     "unused-provide",
	Doc:      "Report a provided name that is not definitely assigned at the end of the program.",
	Severity: SeverityWarning,
	Run: func(pass *Pass) error {
		out := pass.Flow.ProgramOut
		seen := make(nameSet)
		for _, name := range pass.Env.Provides {
			if seen[name] {
				continue
			}
			seen[name] = true
			if out.Contains(flow.Var{Name: name, Scope: pass.Scopes.Root}) {
				continue
			}
			pass.Report(pass.Diagnostic(fileStart, "provided name %s is not assigned at the end of the program", name))
		}
		return nil
	},
}
