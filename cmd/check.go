// Copyright © 2024 The ELPS authors

package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/luthersystems/jscheck/analysis"
	"github.com/luthersystems/jscheck/cache"
	"github.com/luthersystems/jscheck/lint"
	"github.com/luthersystems/jscheck/manifest"
	"github.com/muesli/reflow/indent"
	"github.com/muesli/reflow/wordwrap"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const stdinName = "<stdin>"

// checkFlags holds the flags of one check command.
type checkFlags struct {
	json        bool
	checks      string
	list        bool
	excludes    []string
	stamp       string
	provides    []string
	requires    []string
	overrides   []string
	blockScopes bool
	legacyNames bool
}

// CheckCommand creates the "check" cobra command. Embedders can pass
// WithBuiltins or WithAnalyzers to describe their host environment.
func CheckCommand(opts ...Option) *cobra.Command {
	cfg := newCmdConfig(opts)
	var f checkFlags

	cmd := &cobra.Command{
		Use:           "check [flags] [files...]",
		SilenceErrors: true,
		SilenceUsage:  true,
		Short:         "Check JavaScript source files",
		Long: `Check JavaScript source files for scoping and control-flow defects.

With no files, reads from stdin. Diagnostics are written to stderr, or to
stdout as JSON with --json. Names shared between files come from a manifest
(--manifest) or from --provide, --require and --override, which apply to
every input.

Exit codes:
  0  No warnings or errors (lint-level findings are allowed)
  1  One or more warnings or errors were reported
  2  Bad invocation (invalid flags, unreadable files, bad manifest)

To suppress a diagnostic, add a comment on the same line:
  x = 1; // nolint:invalid-assignment

Examples:
  jscheck check app.js                          # Check a single file
  jscheck check ./src/...                       # Check every .js file under src
  jscheck check --manifest jscheck.yaml ./...   # Check with a manifest
  jscheck check --builtin window --builtin document app.js
  jscheck check --ignore uncaught-throw --stamp .ok app.js
  jscheck check --checks=dead-code,use-before-live app.js
  jscheck check --list                          # List available checks
  cat app.js | jscheck check                    # Check stdin`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if f.list {
				listChecks(cmd.OutOrStdout(), cfg.available())
				return nil
			}
			return runCheck(cmd, cfg, &f, args)
		},
	}

	flags := cmd.Flags()
	flags.BoolVar(&f.json, "json", false,
		"Output diagnostics as JSON.")
	flags.StringVar(&f.checks, "checks", "",
		"Comma-separated list of checks to run (default: all).")
	flags.BoolVar(&f.list, "list", false,
		"List available checks and exit.")
	flags.StringArrayVar(&f.excludes, "exclude", nil,
		"Glob pattern for files to exclude (may be repeated).")
	flags.StringSlice("builtin", nil,
		"Global defined by the host environment (may be repeated).")
	flags.StringSlice("env", []string{"es"},
		"Predefined globals: "+strings.Join(analysis.Environments(), ", ")+".")
	flags.StringSlice("ignore", nil,
		"Diagnostic kind that does not affect the exit status (may be repeated).")
	flags.StringVar(&f.stamp, "stamp", "",
		"File to write when no warnings or errors are found.")
	flags.String("manifest", "",
		"YAML manifest of per-file provides, requires and overrides.")
	flags.String("cache", "",
		"Database caching diagnostics of unchanged files.")
	flags.StringSliceVar(&f.provides, "provide", nil,
		"Global every input provides (may be repeated).")
	flags.StringSliceVar(&f.requires, "require", nil,
		"Global every input requires (may be repeated).")
	flags.StringSliceVar(&f.overrides, "override", nil,
		"Global every input may redefine (may be repeated).")
	flags.BoolVar(&f.blockScopes, "block-scopes", true,
		"Scope let, const and class declarations to their block.")
	flags.BoolVar(&f.legacyNames, "legacy-function-names", false,
		"Make function expression names visible in the enclosing scope.")
	for _, key := range []string{"builtin", "env", "ignore", "manifest", "cache"} {
		_ = viper.BindPFlag(key, flags.Lookup(key))
	}

	return cmd
}

// analysisConfig selects the scoping dialect. An explicit --block-scopes
// overrides the dialect's default.
func analysisConfig(cmd *cobra.Command, legacy, blockScopes bool) *analysis.Config {
	cfg := analysis.DefaultConfig()
	if legacy {
		cfg = analysis.LegacyConfig()
	}
	if cmd.Flags().Changed("block-scopes") {
		cfg.BlockScopes = blockScopes
	}
	return cfg
}

func listChecks(w io.Writer, analyzers []*lint.Analyzer) {
	for _, a := range analyzers {
		fmt.Fprintf(w, "%s (%s)\n", a.Name, a.Severity)
		fmt.Fprintln(w, indent.String(wordwrap.String(a.Doc, 72), 4))
	}
}

// selectChecks resolves a --checks value against the available checks.
func selectChecks(list string, available, defaults []*lint.Analyzer) ([]*lint.Analyzer, error) {
	if list == "" {
		return defaults, nil
	}
	byName := make(map[string]*lint.Analyzer, len(available))
	for _, a := range available {
		byName[a.Name] = a
	}
	var selected []*lint.Analyzer
	seen := make(map[string]bool)
	for _, name := range strings.Split(list, ",") {
		name = strings.TrimSpace(name)
		a, ok := byName[name]
		if !ok {
			return nil, fmt.Errorf("unknown check: %s", name)
		}
		if !seen[name] {
			seen[name] = true
			selected = append(selected, a)
		}
	}
	return selected, nil
}

func runCheck(cmd *cobra.Command, cfg *cmdConfig, f *checkFlags, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	analyzers, err := selectChecks(f.checks, cfg.available(), cfg.defaults())
	if err != nil {
		return usageError("%v", err)
	}
	provideCheck := false
	var perFile []*lint.Analyzer
	for _, a := range analyzers {
		if a == lint.AnalyzerMultiplyProvided {
			provideCheck = true
			continue
		}
		perFile = append(perFile, a)
	}
	if f.checks == "" {
		provideCheck = true
	}

	acfg := analysisConfig(cmd, f.legacyNames, f.blockScopes)
	linter := lint.New(lint.WithAnalyzers(perFile...), lint.WithConfig(acfg))

	builtins, err := cfg.globals(viper.GetStringSlice("env"), viper.GetStringSlice("builtin"))
	if err != nil {
		return usageError("%v", err)
	}
	env := lint.Env{
		Provides:  f.provides,
		Requires:  f.requires,
		Overrides: f.overrides,
		Builtins:  builtins,
	}
	var m *manifest.Manifest
	if path := viper.GetString("manifest"); path != "" {
		if m, err = manifest.Load(path); err != nil {
			return usageError("%v", err)
		}
	}

	var c *cache.Cache
	if path := viper.GetString("cache"); path != "" {
		if c, err = cache.Open(path); err != nil {
			return usageError("%v", err)
		}
		defer c.Close() //nolint:errcheck // read-mostly database
	}

	var files []string
	if len(args) == 0 {
		files = []string{stdinName}
	} else if files, err = expandArgs(args, f.excludes); err != nil {
		return usageError("%v", err)
	}

	names := make([]string, len(perFile))
	for i, a := range perFile {
		names[i] = a.Name
	}
	sources := make(map[string][]byte, len(files))
	var (
		all      []lint.Diagnostic
		provides []lint.FileProvides
	)
	for _, path := range files {
		src, err := readSource(cmd.InOrStdin(), path)
		if err != nil {
			return usageError("%v", err)
		}
		sources[path] = src
		fenv := env
		if m != nil {
			fenv = env.Merge(m.EnvFor(path))
		}
		diags, err := checkFile(ctx, linter, c, path, src, fenv, names)
		if err != nil {
			return usageError("%v", err)
		}
		all = append(all, diags...)
		provides = append(provides, lint.FileProvides{File: path, Provides: fenv.Provides})
	}
	if provideCheck {
		all = append(all, lint.CheckProvides(provides)...)
	}
	lint.Sort(all)

	if f.json {
		if err := lint.FormatJSON(cmd.OutOrStdout(), all); err != nil {
			return usageError("%v", err)
		}
	} else if len(all) > 0 {
		if err := renderLintDiagnostics(cmd.ErrOrStderr(), all, sources); err != nil {
			return usageError("%v", err)
		}
	}

	ignore := viper.GetStringSlice("ignore")
	log.Infof("%d files, %d diagnostics", len(files), len(all))
	if !lint.Passed(all, ignore...) {
		return &exitError{code: exitProblems}
	}
	if f.stamp != "" {
		if err := os.WriteFile(f.stamp, nil, 0o644); err != nil { //nolint:gosec // stamp is a build artifact
			return usageError("writing stamp: %v", err)
		}
	}
	return nil
}

// checkFile lints one input, consulting the cache when one is open.
func checkFile(ctx context.Context, linter *lint.Linter, c *cache.Cache, path string, src []byte, env lint.Env, checks []string) ([]lint.Diagnostic, error) {
	if c == nil {
		return linter.Lint(ctx, path, src, env)
	}
	key := cache.Key(path, src, env, checks)
	if diags, ok, err := c.Get(key); err != nil {
		log.Warningf("%s: %v", path, err)
	} else if ok {
		log.Debugf("%s: cached", path)
		return diags, nil
	}
	diags, err := linter.Lint(ctx, path, src, env)
	if err != nil {
		return nil, err
	}
	if err := c.Put(key, diags); err != nil {
		log.Warningf("%s: %v", path, err)
	}
	return diags, nil
}

func readSource(stdin io.Reader, path string) ([]byte, error) {
	if path == stdinName {
		src, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("reading stdin: %w", err)
		}
		return src, nil
	}
	src, err := os.ReadFile(path) //nolint:gosec // CLI tool reads user-specified files
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return src, nil
}
