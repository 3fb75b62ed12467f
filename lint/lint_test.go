// Copyright © 2024 The ELPS authors

package lint

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/luthersystems/jscheck/analysis"
	"github.com/luthersystems/jscheck/checktest"
	"github.com/luthersystems/jscheck/jsast"
)

// lintSource runs all default analyzers on the given source and returns diagnostics.
func lintSource(t *testing.T, source string, env Env) []Diagnostic {
	t.Helper()
	l := New(WithEnv(env))
	diags, err := l.LintFile([]byte(source), "test.js")
	require.NoError(t, err)
	return diags
}

// lintCheck runs a single analyzer on the given source.
func lintCheck(t *testing.T, analyzer *Analyzer, source string, env Env) []Diagnostic {
	t.Helper()
	l := New(WithAnalyzers(analyzer), WithEnv(env))
	diags, err := l.LintFile([]byte(source), "test.js")
	require.NoError(t, err)
	return diags
}

func messages(diags []Diagnostic) []string {
	var msgs []string
	for _, d := range diags {
		msgs = append(msgs, d.String())
	}
	return msgs
}

// assertNoDiags checks that there are no diagnostics.
func assertNoDiags(t *testing.T, diags []Diagnostic) {
	t.Helper()
	assert.Empty(t, diags, "unexpected diagnostics: %v", messages(diags))
}

// assertDiagAt checks that exactly one diagnostic exists and that it starts
// at the first occurrence of text in source.
func assertDiagAt(t *testing.T, diags []Diagnostic, source, text string) Diagnostic {
	t.Helper()
	require.Len(t, diags, 1, "diagnostics: %v", messages(diags))
	off := strings.Index(source, text)
	require.GreaterOrEqual(t, off, 0, text)
	assert.Equal(t, off, diags[0].Pos.Offset, "diagnostic %s should start at %q", diags[0], text)
	return diags[0]
}

func TestRedefinition(t *testing.T) {
	src := "function f(x) {\n  var x;\n}\n"
	d := assertDiagAt(t, lintCheck(t, AnalyzerRedefinition, src, Env{}), src, "x;")
	assert.Equal(t, SeverityError, d.Severity)
	assert.Equal(t, []string{"x", "function"}, d.Parts)
	require.Len(t, d.Notes, 1)
	assert.Contains(t, d.Notes[0], "test.js:1:12")
	require.Len(t, d.Related, 1)
	assert.Equal(t, "previous declaration", d.Related[0].Message)
	assert.Equal(t, Position{File: "test.js", Line: 1, Col: 12, Offset: 11}, d.Related[0].Pos)
	assert.Equal(t, 12, d.Related[0].EndPos.Offset)

	src = "var a = 1;\nvar a = 2;\n"
	assert.Len(t, lintCheck(t, AnalyzerRedefinition, src, Env{}), 1)
	assertNoDiags(t, lintCheck(t, AnalyzerRedefinition, src, Env{Overrides: []string{"a"}}))

	// Overrides only apply to globals.
	src = "function g() { var a; var a; }"
	assert.Len(t, lintCheck(t, AnalyzerRedefinition, src, Env{Overrides: []string{"a"}}), 1)
}

func TestMaskedDeclaration_Severity(t *testing.T) {
	src := "var e = 1;\ntry { f(); } catch (e) { }\n"
	d := assertDiagAt(t, lintCheck(t, AnalyzerMaskedDeclaration, src, Env{}), src, "e) {")
	assert.Equal(t, SeverityWarning, d.Severity)

	src = "var x = 1;\nfunction g() { var x = 2; return x; }\n"
	d = assertDiagAt(t, lintCheck(t, AnalyzerMaskedDeclaration, src, Env{}), src, "x = 2")
	assert.Equal(t, SeverityError, d.Severity)

	// A same-scope redeclaration is a redefinition, not a masking.
	src = "function f(x) { var x; }"
	assertNoDiags(t, lintCheck(t, AnalyzerMaskedDeclaration, src, Env{}))
	diags := lintSource(t, src, Env{})
	require.Len(t, diags, 1, "diagnostics: %v", messages(diags))
	assert.Equal(t, "redefinition", diags[0].Analyzer)
	assert.Equal(t, SeverityError, diags[0].Severity)
}

func TestSplitInitialization(t *testing.T) {
	src := "function f() {\n  try { g(); } catch (e) { var e = 1; }\n}\n"
	d := assertDiagAt(t, lintCheck(t, AnalyzerSplitInitialization, src, Env{}), src, "e = 1")
	assert.Equal(t, SeverityWarning, d.Severity)

	assertNoDiags(t, lintCheck(t, AnalyzerSplitInitialization, "function f() { try {} catch (e) { var x = 1; } }", Env{}))
}

func TestOutOfBlockScope(t *testing.T) {
	tests := []struct {
		name  string
		src   string
		count int
	}{
		{"var used after block", "function f(c) { if (c) { var x = 1; } return x; }", 1},
		{"var used inside block", "function f(c) { if (c) { var x = 1; g(x); } }", 0},
		{"also declared outside", "function f(c) { var x; if (c) { var x = 1; } return x; }", 0},
		{"top level", "if (c) { var y = 1; }\ng(y);\n", 1},
		{"function in block", "if (c) { function h() {} }\nh();\n", 1},
		{"let is block scoped", "function f(c) { if (c) { let x = 1; g(x); } }", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			diags := lintCheck(t, AnalyzerOutOfBlockScope, tt.src, Env{})
			assert.Len(t, diags, tt.count, "diagnostics: %v", messages(diags))
		})
	}
}

func TestUseBeforeLive(t *testing.T) {
	tests := []struct {
		name  string
		src   string
		count int
	}{
		{"one branch assigns", "function f(c) { var x; if (c) { x = 1; } return x; }", 1},
		{"both branches assign", "function f(c) { var x; if (c) { x = 1; } else { x = 2; } return x; }", 0},
		{"typeof operand", "function f() { var x; return typeof x; }", 0},
		{"for-in key", "function f(o) { var k; for (k in o) { g(k); } }", 0},
		{"for-in key after loop", "function f(o) { var x; for (var k in o) { x = k; } g(k); }", 0},
		{"outer unit", "var x;\nfunction f() { return x; }\n", 0},
		{"assigned first", "function f() { var x; x = 1; return x; }", 0},
		{"let without initializer", "function f() { let x; return x; }", 0},
		{"compound assignment", "function f() { var n; n += 1; }", 1},
		{"top level", "var a;\ng(a);\n", 1},
		{"with body", "function f(o) { var x; with (o) { g(x); } }", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			diags := lintCheck(t, AnalyzerUseBeforeLive, tt.src, Env{})
			assert.Len(t, diags, tt.count, "diagnostics: %v", messages(diags))
		})
	}
}

func TestDeadCode_AfterAlwaysExit(t *testing.T) {
	src := "function f(a) {\n  if (a) { return 1; } else { return 2; }\n  unreachable();\n}\n"
	d := assertDiagAt(t, lintCheck(t, AnalyzerDeadCode, src, Env{}), src, "unreachable();")
	assert.Equal(t, SeverityWarning, d.Severity)
	assert.Equal(t, 3, d.Pos.Line)
	assert.Equal(t, 3, d.Pos.Col)
}

func TestDeadCode(t *testing.T) {
	tests := []struct {
		name  string
		src   string
		count int
	}{
		{"first of several", "function f() { return; g(); h(); }", 1},
		{"hoisted declarations", "function f() { return g(); function g() {} var x; }", 0},
		{"initialized var", "function f() { return; var x = 1; }", 1},
		{"after throw", "throw new Error('x');\nafter();\n", 1},
		{"after infinite loop", "for (;;) {}\nafter();\n", 1},
		{"after break", "for (;;) { break; g(); }", 1},
		{"reachable", "function f(a) { if (a) { return 1; } g(); }", 0},
		{"with body", "with (o) { return; g(); }", 0},
		{"each branch", "function f(a) { if (a) { return; g(); } else { return; h(); } }", 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			diags := lintCheck(t, AnalyzerDeadCode, tt.src, Env{})
			assert.Len(t, diags, tt.count, "diagnostics: %v", messages(diags))
		})
	}
}

func TestUnmatchedLabel(t *testing.T) {
	b := jsast.NewBuilder("built.js", nil)
	stmt := b.Break("missing")
	loop := b.While(b.Ref("c"), b.Block(b.Continue("outer")))
	tree := b.Finish(b.Program(stmt, loop))
	l := New(WithAnalyzers(AnalyzerUnmatchedLabel))
	diags, err := l.LintTree(context.Background(), tree, Env{})
	require.NoError(t, err)
	assert.Len(t, diags, 1, "diagnostics: %v", messages(diags))
	for _, d := range diags {
		assert.Equal(t, SeverityError, d.Severity)
		assert.Equal(t, []string{"break", "missing"}, d.Parts)
	}

	b = jsast.NewBuilder("built.js", nil)
	loop = b.While(b.Ref("c"), b.Block(b.Continue("outer")))
	tree = b.Finish(b.Program(loop))
	diags, err = l.LintTree(context.Background(), tree, Env{})
	require.NoError(t, err)
	require.Len(t, diags, 1, "diagnostics: %v", messages(diags))
	assert.Equal(t, []string{"continue", "outer"}, diags[0].Parts)
}

func TestUnmatchedLabel_Source(t *testing.T) {
	tests := []struct {
		name  string
		src   string
		text  string
		parts []string
	}{
		{"undefined label", "while (c) { break missing; }", "break missing", []string{"break", "missing"}},
		{"break outside loop", "function f() { g(); break; }", "break;", []string{"break"}},
		{"continue in switch", "switch (k) { default: continue; }", "continue;", []string{"continue"}},
		{"label across function", "outer: for (;;) { (function () { continue outer; })(); }", "continue outer", []string{"continue", "outer"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := assertDiagAt(t, lintCheck(t, AnalyzerUnmatchedLabel, tt.src, Env{}), tt.src, tt.text)
			assert.Equal(t, SeverityError, d.Severity)
			assert.Equal(t, tt.parts, d.Parts)
		})
	}

	src := "while (c) { break missing; }"
	diags := lintSource(t, src, Env{Builtins: []string{"c"}})
	require.Len(t, diags, 1, "diagnostics: %v", messages(diags))
	assert.Equal(t, AnalyzerUnmatchedLabel.Name, diags[0].Analyzer)
	assert.True(t, Passed(diags, AnalyzerUnmatchedLabel.Name))
}

func TestLintTree_Fixture(t *testing.T) {
	src, err := os.ReadFile("testdata/widgets.js")
	require.NoError(t, err)
	tree := checktest.Parse(t, string(src))
	env := Env{Provides: []string{"Widgets"}, Builtins: []string{"Error", "console", "document"}}
	diags, err := New().LintTree(context.Background(), tree, env)
	require.NoError(t, err)
	assertNoDiags(t, diags)

	env.Builtins = env.Builtins[:2]
	diags, err = New().LintTree(context.Background(), tree, env)
	require.NoError(t, err)
	require.Len(t, diags, 1, "diagnostics: %v", messages(diags))
	assert.Equal(t, "undeclared-global", diags[0].Analyzer)
	assert.Equal(t, checktest.Offset(t, string(src), "document", 0), diags[0].Pos.Offset)
}

func BenchmarkAnalyze(b *testing.B) {
	b.Run("default", checktest.BenchmarkAnalyze("testdata/widgets.js", nil))
	b.Run("legacy", checktest.BenchmarkAnalyze("testdata/widgets.js", analysis.LegacyConfig()))
}

func TestReturnOutsideFunction(t *testing.T) {
	src := "var a = 1;\nreturn a;\n"
	d := assertDiagAt(t, lintCheck(t, AnalyzerReturnOutsideFunction, src, Env{}), src, "return a")
	assert.Equal(t, SeverityError, d.Severity)

	assertNoDiags(t, lintCheck(t, AnalyzerReturnOutsideFunction, "function f() { return 1; }", Env{}))
}

func TestUncaughtThrow(t *testing.T) {
	src := "if (bad) { throw new Error('bad'); }\n"
	d := assertDiagAt(t, lintCheck(t, AnalyzerUncaughtThrow, src, Env{}), src, "throw")
	assert.Equal(t, SeverityLint, d.Severity)
	assert.True(t, Passed([]Diagnostic{d}))

	assertNoDiags(t, lintCheck(t, AnalyzerUncaughtThrow, "try { throw 1; } catch (e) {}", Env{}))
	assertNoDiags(t, lintCheck(t, AnalyzerUncaughtThrow, "function f() { throw 1; }", Env{}))
}

func TestProvidesRequiresRoundTrip(t *testing.T) {
	src := "var A;\nB();\n"
	diags := lintSource(t, src, Env{Provides: []string{"A"}, Requires: []string{"B"}})
	require.Len(t, diags, 1, "diagnostics: %v", messages(diags))
	assert.Equal(t, "unused-provide", diags[0].Analyzer)
	assert.Equal(t, []string{"A"}, diags[0].Parts)
	assert.Equal(t, SeverityWarning, diags[0].Severity)
}

func TestUndeclaredGlobal(t *testing.T) {
	src := "foo(bar);\nif (typeof window !== 'undefined') { foo(); }\n"
	d := assertDiagAt(t, lintCheck(t, AnalyzerUndeclaredGlobal, src, Env{Builtins: []string{"foo"}}), src, "bar")
	assert.Equal(t, []string{"bar"}, d.Parts)
	assertNoDiags(t, lintCheck(t, AnalyzerUndeclaredGlobal, src, Env{Builtins: []string{"foo"}, Requires: []string{"bar"}}))
	assertNoDiags(t, lintCheck(t, AnalyzerUndeclaredGlobal, "var bar; bar();", Env{}))
}

func TestInvalidAssignment(t *testing.T) {
	src := "x = 1;\ny = 2;\nz += 1;\n"
	diags := lintCheck(t, AnalyzerInvalidAssignment, src, Env{Provides: []string{"x"}, Overrides: []string{"z"}})
	require.Len(t, diags, 1, "diagnostics: %v", messages(diags))
	assert.Equal(t, []string{"y"}, diags[0].Parts)
	assert.Equal(t, 2, diags[0].Pos.Line)
}

func TestUnusedRequire(t *testing.T) {
	diags := lintCheck(t, AnalyzerUnusedRequire, "a();\n", Env{Requires: []string{"a", "b", "b"}})
	require.Len(t, diags, 1, "diagnostics: %v", messages(diags))
	assert.Equal(t, []string{"b"}, diags[0].Parts)
	assert.Equal(t, "test.js:1:1", diags[0].Pos.String())
}

func TestUnusedProvide(t *testing.T) {
	src := "function f() {}\nvar g = 1;\nvar h;\nif (c) { k = 1; }\nm = 2;\n"
	diags := lintCheck(t, AnalyzerUnusedProvide, src, Env{Provides: []string{"f", "g", "h", "k", "m"}})
	var names []string
	for _, d := range diags {
		names = append(names, d.Parts[0])
	}
	assert.ElementsMatch(t, []string{"h", "k"}, names)
}

func TestCheckProvides(t *testing.T) {
	diags := CheckProvides([]FileProvides{
		{File: "a.js", Provides: []string{"X", "Y"}},
		{File: "b.js", Provides: []string{"Y"}},
		{File: "c.js", Provides: []string{"Y", "Z"}},
	})
	require.Len(t, diags, 2)
	assert.Equal(t, "b.js", diags[0].Pos.File)
	assert.Equal(t, "c.js", diags[1].Pos.File)
	for _, d := range diags {
		assert.Equal(t, "multiply-provided", d.Analyzer)
		assert.Equal(t, []string{"Y", "a.js"}, d.Parts)
		assert.Equal(t, SeverityError, d.Severity)
	}
	assert.Empty(t, CheckProvides([]FileProvides{{File: "a.js", Provides: []string{"X", "X"}}}))
}

func TestEmbedHazard_Offsets(t *testing.T) {
	src := `var s = "a</script>b";`
	d := assertDiagAt(t, lintCheck(t, AnalyzerEmbedHazard, src, Env{}), src, "</script")
	assert.Equal(t, 8, d.EndPos.Offset-d.Pos.Offset)
	assert.Equal(t, "</script", src[d.Pos.Offset:d.EndPos.Offset])
	assert.Equal(t, SeverityWarning, d.Severity)
}

func TestEmbedHazard(t *testing.T) {
	tests := []struct {
		name  string
		src   string
		count int
	}{
		{"comment", "// <!-- ]]> </SCRIPT>\nvar a = 1;\n", 3},
		{"repeated", "var r = '<!<!';", 2},
		{"template", "var t = `x</Script ${a} ]]>`;", 2},
		{"block comment", "/* </script */ var a;", 1},
		{"clean", "var s = '<\\/script>'; // fine\n", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			diags := lintCheck(t, AnalyzerEmbedHazard, tt.src, Env{})
			assert.Len(t, diags, tt.count, "diagnostics: %v", messages(diags))
			for _, d := range diags {
				text := strings.ToLower(tt.src[d.Pos.Offset:d.EndPos.Offset])
				assert.Contains(t, embedHazards, text)
			}
		})
	}
}

func TestBareKeyword(t *testing.T) {
	src := "var o = {class: 1, \"default\": 2};\no.delete = 3;\no['new'] = 4;\no.value = 5;\n"
	diags := lintCheck(t, AnalyzerBareKeyword, src, Env{})
	require.Len(t, diags, 2, "diagnostics: %v", messages(diags))
	assert.Equal(t, []string{"class"}, diags[0].Parts)
	assert.Equal(t, []string{"delete"}, diags[1].Parts)
	assert.Equal(t, "delete", src[diags[1].Pos.Offset:diags[1].EndPos.Offset])
}

func TestNoSideEffect(t *testing.T) {
	tests := []struct {
		src   string
		count int
	}{
		{`"use strict";`, 0},
		{`"use strict"; x;`, 1},
		{`x; "not a directive";`, 2},
		{`function f() { "use strict"; 1; }`, 1},
		{`a && b();`, 0},
		{`a || b;`, 1},
		{`a ? b() : c;`, 0},
		{`a ? b : c;`, 1},
		{`a, b();`, 1},
		{`[f()];`, 0},
		{`[a, b];`, 1},
		{`1 + 2;`, 1},
		{`void 0;`, 1},
		{`f();`, 0},
		{"tag`x`;", 0},
		{"`x`;", 1},
		{`!function(){}();`, 0},
		{`new Foo;`, 0},
		{`delete o.p;`, 0},
		{`i++;`, 0},
		{`o.p;`, 1},
		{`a?.b();`, 0},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			diags := lintCheck(t, AnalyzerNoSideEffect, tt.src, Env{})
			assert.Len(t, diags, tt.count, "diagnostics: %v", messages(diags))
		})
	}
}

func TestNolint(t *testing.T) {
	src := "x; // nolint\ny; // nolint:dead-code\nz; /* nolint:no-side-effect */\n"
	diags := lintCheck(t, AnalyzerNoSideEffect, src, Env{})
	require.Len(t, diags, 1, "diagnostics: %v", messages(diags))
	assert.Equal(t, 2, diags[0].Pos.Line)
}

func TestParseError(t *testing.T) {
	diags := lintSource(t, "var = ;\n", Env{})
	require.Len(t, diags, 1)
	assert.Equal(t, KindParseError, diags[0].Analyzer)
	assert.Equal(t, SeverityFatal, diags[0].Severity)
	assert.Equal(t, 1, diags[0].Pos.Line)
	assert.False(t, Passed(diags))
}

func TestAnalyzerError(t *testing.T) {
	failing := &Analyzer{
		Name: "failing",
		Run:  func(*Pass) error { return fmt.Errorf("boom") },
	}
	_, err := New(WithAnalyzers(failing)).LintFile([]byte("var a;"), "test.js")
	require.Error(t, err)
	assert.Equal(t, "test.js: analyzer failing: boom", err.Error())
}

func TestAggregation(t *testing.T) {
	diags := []Diagnostic{
		{Pos: Position{File: "b.js", Offset: 1}, Message: "m", Analyzer: "dead-code", Severity: SeverityWarning},
		{Pos: Position{File: "a.js", Offset: 9}, EndPos: Position{Offset: 12}, Message: "z", Analyzer: "uncaught-throw", Severity: SeverityLint},
		{Pos: Position{File: "a.js", Offset: 9}, EndPos: Position{Offset: 10}, Message: "y", Analyzer: "redefinition", Severity: SeverityError},
		{Pos: Position{File: "a.js", Offset: 9}, EndPos: Position{Offset: 10}, Message: "x", Analyzer: "dead-code", Severity: SeverityWarning},
	}
	Sort(diags)
	var order []string
	for _, d := range diags {
		order = append(order, d.Message)
	}
	assert.Equal(t, []string{"x", "y", "z", "m"}, order)

	groups := GroupByKind(diags)
	assert.Len(t, groups["dead-code"], 2)
	assert.Len(t, groups["redefinition"], 1)

	assert.Equal(t, SeverityError, MaxSeverity(diags))
	assert.Equal(t, SeverityWarning, MaxSeverity(diags, "redefinition"))
	assert.Equal(t, SeverityLint, MaxSeverity(diags, "redefinition", "dead-code"))
	assert.False(t, Passed(diags, "redefinition"))
	assert.True(t, Passed(diags, "redefinition", "dead-code"))
	assert.True(t, Passed(nil))
}

func TestSeverity_JSON(t *testing.T) {
	for _, s := range []Severity{SeverityLint, SeverityWarning, SeverityError, SeverityFatal} {
		b, err := json.Marshal(s)
		require.NoError(t, err)
		var got Severity
		require.NoError(t, json.Unmarshal(b, &got))
		assert.Equal(t, s, got)
	}
	b, err := json.Marshal(severityUnset)
	require.NoError(t, err)
	assert.Equal(t, `"warning"`, string(b))
	var s Severity
	assert.Error(t, json.Unmarshal([]byte(`"info"`), &s))
	assert.True(t, SeverityLint < SeverityWarning && SeverityWarning < SeverityError && SeverityError < SeverityFatal)
}

func TestFormat(t *testing.T) {
	src := "x;\n"
	diags := lintCheck(t, AnalyzerNoSideEffect, src, Env{})
	require.Len(t, diags, 1)

	var buf bytes.Buffer
	FormatText(&buf, diags)
	assert.Equal(t, "test.js:1:1: warning: expression statement has no side effects (no-side-effect)\n", buf.String())

	buf.Reset()
	require.NoError(t, FormatJSON(&buf, diags))
	var decoded []Diagnostic
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, diags, decoded)

	buf.Reset()
	require.NoError(t, FormatJSON(&buf, nil))
	assert.Equal(t, "[]\n", buf.String())
}

func TestLint_Tracing(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSyncer(exporter),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)
	t.Cleanup(func() {
		assert.NoError(t, tp.Shutdown(context.Background()), "TracerProvider shutdown")
	})
	l := New(WithAnalyzers(AnalyzerDeadCode), WithTracerProvider(tp))
	_, err := l.LintFile([]byte("var a = 1;"), "test.js")
	require.NoError(t, err)

	var names []string
	for _, s := range exporter.GetSpans() {
		names = append(names, s.Name)
	}
	assert.ElementsMatch(t, []string{"parse", "scopes", "flow", "analyzer dead-code", "lint"}, names)
}

func TestLint_LegacyConfig(t *testing.T) {
	// Without block scopes a let in a block hoists to the function.
	src := "function f() { { let x = 1; } return x; }"
	l := New(WithAnalyzers(AnalyzerUndeclaredGlobal), WithConfig(analysis.LegacyConfig()))
	diags, err := l.LintFile([]byte(src), "test.js")
	require.NoError(t, err)
	assertNoDiags(t, diags)

	diags = lintCheck(t, AnalyzerUndeclaredGlobal, src, Env{})
	require.Len(t, diags, 1, "diagnostics: %v", messages(diags))
	assert.Equal(t, []string{"x"}, diags[0].Parts)
}

func TestLookup(t *testing.T) {
	a, ok := Lookup("multiply-provided")
	require.True(t, ok)
	assert.Nil(t, a.Run)
	_, ok = Lookup("nope")
	assert.False(t, ok)
	seen := make(map[string]bool)
	for _, a := range AllAnalyzers() {
		assert.False(t, seen[a.Name], a.Name)
		seen[a.Name] = true
		assert.NotEmpty(t, a.Doc, a.Name)
		assert.NotEqual(t, severityUnset, a.Severity, a.Name)
	}
	assert.Len(t, seen, 17)
}
