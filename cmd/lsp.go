// Copyright © 2024 The ELPS authors

package cmd

import (
	"fmt"
	"strings"

	"github.com/luthersystems/jscheck/analysis"
	"github.com/luthersystems/jscheck/lint"
	"github.com/luthersystems/jscheck/lsp"
	"github.com/luthersystems/jscheck/manifest"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// LSPCommand creates the "lsp" cobra command. Embedders can pass
// WithBuiltins or WithAnalyzers to describe their host environment.
func LSPCommand(opts ...Option) *cobra.Command {
	cfg := newCmdConfig(opts)

	var (
		stdio        bool
		tcp          string
		builtins     []string
		envs         []string
		manifestPath string
		blockScopes  bool
	)

	cmd := &cobra.Command{
		Use:           "lsp [flags]",
		SilenceErrors: true,
		SilenceUsage:  true,
		Short:         "Start the JavaScript Language Server Protocol server",
		Long: `Start an LSP server for JavaScript source files.

The server publishes check diagnostics as documents change and answers
hover, go-to-definition, find references, document symbol and rename
requests from the scope tree.

Transport modes:
  --stdio        Use stdin/stdout for LSP communication (default)
  --tcp ADDR     Listen for an LSP client on ADDR

Examples:
  jscheck lsp                                 Start with stdio transport
  jscheck lsp --tcp localhost:7998            Start with TCP
  jscheck lsp --manifest jscheck.yaml         Resolve globals per file`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			acfg := analysisConfig(cmd, false, blockScopes)
			linter := lint.New(lint.WithAnalyzers(cfg.defaults()...), lint.WithConfig(acfg))

			names, err := cfg.globals(envs, append(append([]string(nil), viper.GetStringSlice("builtin")...), builtins...))
			if err != nil {
				return usageError("%v", err)
			}
			env := lint.Env{Builtins: names}
			serverOpts := []lsp.Option{lsp.WithLinter(linter), lsp.WithEnv(env)}
			if manifestPath == "" {
				manifestPath = viper.GetString("manifest")
			}
			if manifestPath != "" {
				m, err := manifest.Load(manifestPath)
				if err != nil {
					return usageError("%v", err)
				}
				serverOpts = append(serverOpts, lsp.WithManifest(m))
			}

			srv := lsp.New(serverOpts...)
			if !stdio && tcp != "" {
				log.Noticef("LSP server listening on %s", tcp)
				if err := srv.RunTCP(tcp); err != nil {
					return fmt.Errorf("lsp server: %w", err)
				}
				return nil
			}
			if err := srv.RunStdio(); err != nil {
				return fmt.Errorf("lsp server: %w", err)
			}
			return nil
		},
	}

	flags := cmd.Flags()
	flags.BoolVar(&stdio, "stdio", false, "Use stdio transport (default).")
	flags.StringVar(&tcp, "tcp", "", "Listen for a client on this TCP address.")
	flags.StringSliceVar(&envs, "env", []string{"es"}, "Predefined globals: "+strings.Join(analysis.Environments(), ", ")+".")
	flags.StringSliceVar(&builtins, "builtin", nil, "Global defined by the host environment (may be repeated).")
	flags.StringVar(&manifestPath, "manifest", "", "YAML manifest of per-file provides, requires and overrides.")
	flags.BoolVar(&blockScopes, "block-scopes", true, "Scope let, const and class declarations to their block.")
	return cmd
}
