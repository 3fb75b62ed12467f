// Copyright © 2024 The ELPS authors

// Package lint provides static checks for JavaScript source files.
//
// The linter is modeled after go vet: each check is an independent Analyzer
// that receives the parsed tree together with its scope and flow analyses
// and reports diagnostics. The framework handles parsing, running analyzers,
// collecting results, and formatting output.
//
// Analyzers are composable and extensible. Embedders can define custom
// checks alongside the built-in set.
package lint

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/tliron/commonlog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/luthersystems/jscheck/analysis"
	"github.com/luthersystems/jscheck/flow"
	"github.com/luthersystems/jscheck/jsast"
	"github.com/luthersystems/jscheck/parser"
)

var log = commonlog.GetLogger("jscheck.lint")

// TracerName names the tracer used for lint spans.
const TracerName = "github.com/luthersystems/jscheck/lint"

// KindParseError is the kind of the diagnostic reported for a file that
// does not parse.
const KindParseError = "parse-error"

// Severity indicates the severity level of a lint diagnostic. Severities are
// totally ordered: lint < warning < error < fatal.
type Severity int

const (
	severityUnset Severity = iota // unexported zero sentinel for default detection
	SeverityLint
	SeverityWarning
	SeverityError
	SeverityFatal
)

func (s Severity) String() string {
	switch s {
	case SeverityLint:
		return "lint"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	case SeverityFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// ParseSeverity parses the name of a severity.
func ParseSeverity(str string) (Severity, error) {
	switch strings.ToLower(str) {
	case "lint":
		return SeverityLint, nil
	case "warning":
		return SeverityWarning, nil
	case "error":
		return SeverityError, nil
	case "fatal":
		return SeverityFatal, nil
	default:
		return severityUnset, fmt.Errorf("unknown severity: %q", str)
	}
}

// MarshalJSON serializes the severity as a JSON string.
// An unset severity (zero value) is marshaled as "warning".
func (s Severity) MarshalJSON() ([]byte, error) {
	if s == severityUnset {
		return json.Marshal("warning")
	}
	return json.Marshal(s.String())
}

// UnmarshalJSON deserializes a severity from a JSON string.
func (s *Severity) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	sev, err := ParseSeverity(str)
	if err != nil {
		return err
	}
	*s = sev
	return nil
}

// Analyzer defines a single lint check. Its Name is the kind of the
// diagnostics it reports.
type Analyzer struct {
	// Name is a short identifier for this check (e.g. "dead-code").
	Name string

	// Doc is a human-readable description. The first line is a short summary.
	Doc string

	// Severity is the default severity for diagnostics from this analyzer.
	Severity Severity

	// Run executes the check. It should call pass.Report() for each finding.
	// Checks that span several inputs have no Run and are driven by the
	// caller instead.
	Run func(pass *Pass) error
}

// Env holds the names a file declares to the outside world, taken from a
// manifest or the command line, and the names its host environment defines.
type Env struct {
	Provides  []string `yaml:"provides,omitempty" json:"provides,omitempty"`
	Requires  []string `yaml:"requires,omitempty" json:"requires,omitempty"`
	Overrides []string `yaml:"overrides,omitempty" json:"overrides,omitempty"`
	Builtins  []string `yaml:"builtins,omitempty" json:"builtins,omitempty"`
}

// Merge returns the union of e and o.
func (e Env) Merge(o Env) Env {
	return Env{
		Provides:  append(append([]string(nil), e.Provides...), o.Provides...),
		Requires:  append(append([]string(nil), e.Requires...), o.Requires...),
		Overrides: append(append([]string(nil), e.Overrides...), o.Overrides...),
		Builtins:  append(append([]string(nil), e.Builtins...), o.Builtins...),
	}
}

type nameSet map[string]bool

func newNameSet(names []string) nameSet {
	s := make(nameSet, len(names))
	for _, n := range names {
		s[n] = true
	}
	return s
}

type envIndex struct {
	provides  nameSet
	requires  nameSet
	overrides nameSet
	builtins  nameSet
}

func (e Env) index() *envIndex {
	return &envIndex{
		provides:  newNameSet(e.Provides),
		requires:  newNameSet(e.Requires),
		overrides: newNameSet(e.Overrides),
		builtins:  newNameSet(e.Builtins),
	}
}

// Pass provides context to a running analyzer.
type Pass struct {
	// Analyzer is the currently running check.
	Analyzer *Analyzer

	// Filename is the source file being analyzed.
	Filename string

	// Tree is the parsed source.
	Tree *jsast.Tree

	// Scopes holds the scope tree, symbol tables and scope events.
	Scopes *analysis.Result

	// Flow holds liveness and exit modes.
	Flow *flow.Result

	// Env is the file's declared environment.
	Env Env

	env         *envIndex
	diagnostics []Diagnostic
}

// Provided reports whether the file provides name.
func (p *Pass) Provided(name string) bool { return p.env.provides[name] }

// Required reports whether the file requires name.
func (p *Pass) Required(name string) bool { return p.env.requires[name] }

// Overridden reports whether the file may redefine the global name.
func (p *Pass) Overridden(name string) bool { return p.env.overrides[name] }

// Builtin reports whether the host environment defines name.
func (p *Pass) Builtin(name string) bool { return p.env.builtins[name] }

// Report records a diagnostic finding.
func (p *Pass) Report(d Diagnostic) {
	d.Analyzer = p.Analyzer.Name
	if d.Severity == severityUnset {
		d.Severity = p.Analyzer.Severity
	}
	if d.Pos.File == "" {
		d.Pos.File = p.Filename
	}
	if d.EndPos.File == "" {
		d.EndPos.File = d.Pos.File
	}
	p.diagnostics = append(p.diagnostics, d)
}

// ReportWithNotes records a diagnostic with additional hint text.
func (p *Pass) ReportWithNotes(d Diagnostic, notes ...string) {
	d.Notes = append(d.Notes, notes...)
	p.Report(d)
}

// Reportf is a convenience for reporting a diagnostic covering a node. The
// formatted arguments are kept as the diagnostic's substitution parts.
func (p *Pass) Reportf(id jsast.NodeID, format string, args ...interface{}) {
	p.Report(p.Diagnostic(p.Tree.Span(id), format, args...))
}

// Diagnostic builds an unreported diagnostic covering span.
func (p *Pass) Diagnostic(span jsast.Span, format string, args ...interface{}) Diagnostic {
	var parts []string
	for _, a := range args {
		parts = append(parts, fmt.Sprint(a))
	}
	return Diagnostic{
		Pos:     p.Position(span.Pos),
		EndPos:  p.Position(span.End),
		Message: fmt.Sprintf(format, args...),
		Parts:   parts,
	}
}

// Position converts a byte offset in the current file.
func (p *Pass) Position(offset int) Position {
	line, col := p.Tree.Lines().Position(offset)
	return Position{File: p.Filename, Line: line, Col: col, Offset: offset}
}

// Diagnostic is a single reported problem.
type Diagnostic struct {
	// Pos and EndPos delimit the source text of the problem.
	Pos    Position `json:"pos"`
	EndPos Position `json:"end"`

	// Message is a human-readable description of the problem.
	Message string `json:"message"`

	// Parts are the values substituted into the message.
	Parts []string `json:"parts,omitempty"`

	// Analyzer is the name of the check that found this problem.
	Analyzer string `json:"analyzer"`

	// Severity is the severity level of the diagnostic.
	Severity Severity `json:"severity"`

	// Notes are optional hint text lines for the user.
	Notes []string `json:"notes,omitempty"`

	// Related are other locations involved in the problem, such as an
	// earlier declaration of the same name.
	Related []Related `json:"related,omitempty"`
}

// Related is a secondary location of a diagnostic.
type Related struct {
	Pos     Position `json:"pos"`
	EndPos  Position `json:"end"`
	Message string   `json:"message"`
}

// Position identifies a location in source code.
type Position struct {
	File   string `json:"file"`
	Line   int    `json:"line"`
	Col    int    `json:"col,omitempty"`
	Offset int    `json:"offset"`
}

// String returns the position in file:line:col format.
func (p Position) String() string {
	if p.Line == 0 {
		return p.File
	}
	if p.Col > 0 {
		return fmt.Sprintf("%s:%d:%d", p.File, p.Line, p.Col)
	}
	return fmt.Sprintf("%s:%d", p.File, p.Line)
}

// String returns the diagnostic in go vet style: file:line:col: message
// (analyzer) with optional note lines appended.
func (d Diagnostic) String() string {
	s := fmt.Sprintf("%s: %s: %s (%s)", d.Pos, d.Severity, d.Message, d.Analyzer)
	for _, n := range d.Notes {
		s += "\n  = note: " + n
	}
	return s
}

// Linter runs a set of analyzers over source files.
type Linter struct {
	Analyzers []*Analyzer

	// Config controls scope construction. Nil means the default.
	Config *analysis.Config

	// Env is the environment used by LintFile.
	Env Env

	tracer trace.Tracer
}

// Option configures a Linter.
type Option func(*Linter)

// WithAnalyzers replaces the default analyzers.
func WithAnalyzers(analyzers ...*Analyzer) Option {
	return func(l *Linter) { l.Analyzers = analyzers }
}

// WithConfig sets the scope configuration.
func WithConfig(cfg *analysis.Config) Option {
	return func(l *Linter) { l.Config = cfg }
}

// WithEnv sets the default environment.
func WithEnv(env Env) Option {
	return func(l *Linter) { l.Env = env }
}

// WithTracerProvider records spans with tp instead of the global provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(l *Linter) { l.tracer = tp.Tracer(TracerName) }
}

// New returns a linter running DefaultAnalyzers, modified by opts.
func New(opts ...Option) *Linter {
	l := &Linter{Analyzers: DefaultAnalyzers()}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Linter) getTracer() trace.Tracer {
	if l.tracer != nil {
		return l.tracer
	}
	return otel.GetTracerProvider().Tracer(TracerName)
}

// LintFile analyzes a single source file with the linter's environment and
// returns all diagnostics.
func (l *Linter) LintFile(source []byte, filename string) ([]Diagnostic, error) {
	return l.Lint(context.Background(), filename, source, l.Env)
}

// Lint parses, analyzes, and lints a source file. A syntax error is reported
// as a single fatal diagnostic rather than an error; errors are reserved for
// analyzers that fail.
func (l *Linter) Lint(ctx context.Context, filename string, source []byte, env Env) ([]Diagnostic, error) {
	ctx, span := l.getTracer().Start(ctx, "lint", trace.WithAttributes(semconv.CodeFilepath(filename)))
	defer span.End()

	_, ps := l.getTracer().Start(ctx, "parse")
	tree, err := parser.Parse(filename, source)
	ps.End()
	if err != nil {
		var perr *parser.Error
		if !errors.As(err, &perr) {
			return nil, err
		}
		log.Debugf("%s: %v", filename, perr)
		pos := Position{File: perr.File, Line: perr.Line, Col: perr.Col}
		if perr.Line > 0 {
			pos.Offset = jsast.NewLineIndex(source).LineStart(perr.Line) + perr.Col - 1
			if pos.Offset > len(source) {
				pos.Offset = len(source)
			}
		}
		return []Diagnostic{{
			Pos:      pos,
			EndPos:   pos,
			Message:  perr.Msg,
			Parts:    []string{perr.Msg},
			Analyzer: KindParseError,
			Severity: SeverityFatal,
		}}, nil
	}
	return l.LintTree(ctx, tree, env)
}

// LintTree lints an already parsed tree.
func (l *Linter) LintTree(ctx context.Context, tree *jsast.Tree, env Env) ([]Diagnostic, error) {
	tracer := l.getTracer()

	_, ss := tracer.Start(ctx, "scopes")
	scopes := analysis.Analyze(tree, l.Config)
	ss.SetAttributes(attribute.Int("scopes", len(scopes.Scopes)))
	ss.End()

	_, fs := tracer.Start(ctx, "flow")
	fr := flow.Analyze(scopes)
	fs.End()

	idx := env.index()
	var all []Diagnostic
	for _, analyzer := range l.Analyzers {
		if analyzer.Run == nil {
			continue
		}
		pass := &Pass{
			Analyzer: analyzer,
			Filename: tree.File,
			Tree:     tree,
			Scopes:   scopes,
			Flow:     fr,
			Env:      env,
			env:      idx,
		}
		_, as := tracer.Start(ctx, "analyzer "+analyzer.Name)
		err := analyzer.Run(pass)
		as.SetAttributes(attribute.Int("diagnostics", len(pass.diagnostics)))
		as.End()
		if err != nil {
			return nil, fmt.Errorf("%s: analyzer %s: %w", tree.File, analyzer.Name, err)
		}
		all = append(all, pass.diagnostics...)
	}
	log.Debugf("%s: %d diagnostics", tree.File, len(all))

	// Filter suppressed diagnostics (// nolint comments)
	all = filterSuppressed(all, tree)
	Sort(all)
	return all, nil
}

// filterSuppressed removes diagnostics on lines with nolint comments.
func filterSuppressed(diags []Diagnostic, tree *jsast.Tree) []Diagnostic {
	nolintLines := nolintDirectives(tree)
	if len(nolintLines) == 0 {
		return diags
	}
	var filtered []Diagnostic
	for _, d := range diags {
		directive, ok := nolintLines[d.Pos.Line]
		if !ok {
			filtered = append(filtered, d)
			continue
		}
		// Empty directive = suppress all
		if directive == "" {
			continue
		}
		suppressed := false
		for _, name := range strings.Split(directive, ",") {
			if strings.TrimSpace(name) == d.Analyzer {
				suppressed = true
				break
			}
		}
		if !suppressed {
			filtered = append(filtered, d)
		}
	}
	return filtered
}

// nolintDirectives maps line numbers to the nolint directive of a comment
// on that line: "" for all checks or a comma separated list.
func nolintDirectives(tree *jsast.Tree) map[int]string {
	lines := make(map[int]string)
	for _, c := range jsast.Comments(tree.Source, jsast.LiteralSpans(tree)) {
		text := string(tree.Source[c.Pos:c.End])
		text = strings.TrimPrefix(text, "//")
		text = strings.TrimPrefix(text, "/*")
		text = strings.TrimSuffix(text, "*/")
		text = strings.TrimSpace(text)
		if !strings.HasPrefix(text, "nolint") {
			continue
		}
		line, _ := tree.Lines().Position(c.Pos)
		rest := strings.TrimPrefix(text, "nolint")
		switch {
		case rest == "":
			lines[line] = ""
		case strings.HasPrefix(rest, ":"):
			lines[line] = strings.TrimSpace(strings.TrimPrefix(rest, ":"))
		}
	}
	return lines
}

// FormatText writes diagnostics in go vet text format.
func FormatText(w io.Writer, diags []Diagnostic) {
	for _, d := range diags {
		fmt.Fprintln(w, d.String()) //nolint:errcheck // best-effort output to writer
	}
}

// FormatJSON writes diagnostics as JSON.
func FormatJSON(w io.Writer, diags []Diagnostic) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if diags == nil {
		diags = []Diagnostic{}
	}
	return enc.Encode(diags)
}

// DefaultAnalyzers returns the built-in set of per-file checks.
func DefaultAnalyzers() []*Analyzer {
	return []*Analyzer{
		AnalyzerRedefinition,
		AnalyzerMaskedDeclaration,
		AnalyzerSplitInitialization,
		AnalyzerOutOfBlockScope,
		AnalyzerUseBeforeLive,
		AnalyzerDeadCode,
		AnalyzerUnmatchedLabel,
		AnalyzerReturnOutsideFunction,
		AnalyzerUncaughtThrow,
		AnalyzerUndeclaredGlobal,
		AnalyzerInvalidAssignment,
		AnalyzerUnusedRequire,
		AnalyzerUnusedProvide,
		AnalyzerEmbedHazard,
		AnalyzerBareKeyword,
		AnalyzerNoSideEffect,
	}
}

// AllAnalyzers returns every check, including cross-input ones.
func AllAnalyzers() []*Analyzer {
	return append(DefaultAnalyzers(), AnalyzerMultiplyProvided)
}

// Lookup returns the analyzer named name.
func Lookup(name string) (*Analyzer, bool) {
	for _, a := range AllAnalyzers() {
		if a.Name == name {
			return a, true
		}
	}
	return nil, false
}
