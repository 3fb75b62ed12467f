// Copyright © 2024 The ELPS authors

package lint

import (
	"fmt"

	"github.com/luthersystems/jscheck/jsast"
)

// fileStart is the span used for findings about a file as a whole.
var fileStart = jsast.Span{}

// AnalyzerMultiplyProvided describes the cross-input provides check run by
// CheckProvides. It has no per-file Run.
var AnalyzerMultiplyProvided = &Analyzer{
	Name:     "multiply-provided",
	Doc:      "Report a name provided by more than one input.\n\nInputs are checked in order; the second input claiming a name is reported.",
	Severity: SeverityError,
}

// FileProvides is the provides set of one input.
type FileProvides struct {
	File     string
	Provides []string
}

// CheckProvides reports every name claimed by two inputs. It runs once all
// inputs have been analyzed, in input order.
func CheckProvides(files []FileProvides) []Diagnostic {
	owner := make(map[string]string)
	var diags []Diagnostic
	for _, f := range files {
		for _, name := range f.Provides {
			first, ok := owner[name]
			if !ok {
				owner[name] = f.File
				continue
			}
			if first == f.File {
				continue
			}
			pos := Position{File: f.File, Line: 1, Col: 1}
			diags = append(diags, Diagnostic{
				Pos:      pos,
				EndPos:   pos,
				Message:  fmt.Sprintf("%s is already provided by %s", name, first),
				Parts:    []string{name, first},
				Analyzer: AnalyzerMultiplyProvided.Name,
				Severity: AnalyzerMultiplyProvided.Severity,
			})
		}
	}
	Sort(diags)
	return diags
}
