// Copyright © 2024 The ELPS authors

// Package diagnostic provides Rust-style annotated rendering of lint
// findings for CLI output.
package diagnostic

import "github.com/luthersystems/jscheck/lint"

// Severity indicates the severity level of a diagnostic.
type Severity int

const (
	SeverityFatal Severity = iota
	SeverityError
	SeverityWarning
	SeverityLint
	SeverityNote
)

func (s Severity) String() string {
	switch s {
	case SeverityFatal:
		return "fatal"
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	case SeverityLint:
		return "lint"
	case SeverityNote:
		return "note"
	default:
		return "unknown"
	}
}

// Span identifies a region of source code to highlight in the diagnostic.
type Span struct {
	File   string // path for reading source; display name if unreadable
	Line   int    // 1-based line number
	Col    int    // 1-based start column
	EndCol int    // 1-based inclusive end column (0 = auto-detect from source)
	Label  string // text shown under the underline

	// EndLine is the last line of a span covering several lines. EndCol
	// then applies to EndLine.
	EndLine int

	// Secondary spans point at related code and are underlined with '-'.
	Secondary bool
}

// Diagnostic represents a single finding with optional source annotations
// and trailing notes.
type Diagnostic struct {
	Severity Severity
	Code     string // kind shown in brackets after the severity
	Message  string
	Spans    []Span
	Notes    []string // "= note:" lines
}

// FromLint converts a lint finding. Its related locations become labeled
// secondary spans.
func FromLint(d lint.Diagnostic) Diagnostic {
	out := Diagnostic{
		Code:    d.Analyzer,
		Message: d.Message,
		Notes:   d.Notes,
	}
	switch d.Severity {
	case lint.SeverityFatal:
		out.Severity = SeverityFatal
	case lint.SeverityError:
		out.Severity = SeverityError
	case lint.SeverityLint:
		out.Severity = SeverityLint
	default:
		out.Severity = SeverityWarning
	}
	if d.Pos.Line > 0 {
		out.Spans = []Span{lintSpan(d.Pos, d.EndPos)}
	}
	for _, rel := range d.Related {
		if rel.Pos.Line <= 0 {
			continue
		}
		span := lintSpan(rel.Pos, rel.EndPos)
		span.Label = rel.Message
		span.Secondary = true
		out.Spans = append(out.Spans, span)
	}
	return out
}

// lintSpan converts the half-open range [pos, end). A range ending at the
// start of a later line underlines its first token only.
func lintSpan(pos, end lint.Position) Span {
	span := Span{File: pos.File, Line: pos.Line, Col: pos.Col}
	switch {
	case end.Line == pos.Line && end.Col > pos.Col:
		span.EndCol = end.Col - 1
	case end.Line > pos.Line && end.Col > 1:
		span.EndLine = end.Line
		span.EndCol = end.Col - 1
	}
	return span
}

// FromLintAll converts a list of lint findings.
func FromLintAll(diags []lint.Diagnostic) []Diagnostic {
	out := make([]Diagnostic, len(diags))
	for i, d := range diags {
		out[i] = FromLint(d)
	}
	return out
}
