// Copyright © 2024 The ELPS authors

package cmd

import (
	"io"
	"os"

	"github.com/luthersystems/jscheck/diagnostic"
	"github.com/luthersystems/jscheck/lint"
)

func colorMode() diagnostic.ColorMode {
	mode, ok := diagnostic.ParseColorMode(colorFlag)
	if !ok {
		log.Warningf("unknown color mode %q", colorFlag)
	}
	return mode
}

// newRenderer returns a renderer that shows already loaded sources and
// reads any other file from disk.
func newRenderer(sources map[string][]byte) *diagnostic.Renderer {
	return &diagnostic.Renderer{
		Color: colorMode(),
		SourceReader: func(name string) ([]byte, error) {
			if src, ok := sources[name]; ok {
				return src, nil
			}
			return os.ReadFile(name) //nolint:gosec // reads user-specified source files for display
		},
	}
}

// renderLintDiagnostics writes diags as annotated source snippets.
func renderLintDiagnostics(w io.Writer, diags []lint.Diagnostic, sources map[string][]byte) error {
	return newRenderer(sources).RenderAll(w, diagnostic.FromLintAll(diags))
}
