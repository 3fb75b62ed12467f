// Copyright © 2024 The ELPS authors

package cmd

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/luthersystems/jscheck/analysis"
	"github.com/luthersystems/jscheck/jsast"
	"github.com/luthersystems/jscheck/parser"
	"github.com/spf13/cobra"
)

// ScopesCommand creates the "scopes" cobra command, which prints the scope
// tree of a source file.
func ScopesCommand() *cobra.Command {
	var (
		legacyNames bool
		blockScopes bool
	)
	cmd := &cobra.Command{
		Use:           "scopes [flags] FILE",
		SilenceErrors: true,
		SilenceUsage:  true,
		Short:         "Print the scope tree of a JavaScript file",
		Long: `Print the scope tree of a JavaScript file.

Each scope is printed with its kind and position, followed by the names it
declares and, for the program scope, the names used but never declared.

Examples:
  jscheck scopes app.js
  jscheck scopes --block-scopes=false --legacy-function-names app.js`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := stdinName
			if len(args) > 0 {
				path = args[0]
			}
			src, err := readSource(cmd.InOrStdin(), path)
			if err != nil {
				return usageError("%v", err)
			}
			tree, err := parser.Parse(path, src)
			if err != nil {
				return &exitError{code: exitProblems, err: err}
			}
			res := analysis.Analyze(tree, analysisConfig(cmd, legacyNames, blockScopes))
			printScopes(cmd.OutOrStdout(), tree, res)
			return nil
		},
	}
	cmd.Flags().BoolVar(&blockScopes, "block-scopes", true,
		"Scope let, const and class declarations to their block.")
	cmd.Flags().BoolVar(&legacyNames, "legacy-function-names", false,
		"Make function expression names visible in the enclosing scope.")
	return cmd
}

func printScopes(w io.Writer, t *jsast.Tree, res *analysis.Result) {
	lines := t.Lines()
	pos := func(id jsast.NodeID) string {
		line, col := lines.Position(t.Span(id).Pos)
		return fmt.Sprintf("%d:%d", line, col)
	}
	var walk func(s *analysis.Scope)
	walk = func(s *analysis.Scope) {
		pad := strings.Repeat("  ", s.Depth)
		fmt.Fprintf(w, "%s%s scope %s\n", pad, s.Kind, pos(s.Node))
		for _, d := range s.Declarations() {
			fmt.Fprintf(w, "%s  %s %s %s\n", pad, d.Kind, d.Name, pos(d.Node))
		}
		for _, c := range s.Children {
			walk(c)
		}
	}
	walk(res.Root)

	free := make(map[string]bool)
	for _, u := range res.Free {
		free[u.Name] = true
	}
	if len(free) == 0 {
		return
	}
	names := make([]string, 0, len(free))
	for name := range free {
		names = append(names, name)
	}
	sort.Strings(names)
	fmt.Fprintf(w, "free: %s\n", strings.Join(names, ", "))
}
