// Copyright © 2018 The ELPS authors

package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/tliron/commonlog"

	_ "github.com/tliron/commonlog/simple" // logging backend
)

var log = commonlog.GetLogger("jscheck.cmd")

var (
	cfgFile   string
	colorFlag string
	verbose   int
	traceFlag bool
)

// Exit codes.
const (
	exitOK       = 0
	exitProblems = 1
	exitUsage    = 2
)

// exitError carries a process exit code out of a command.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit status %d", e.code)
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error { return e.err }

// usageError reports a bad invocation.
func usageError(format string, args ...interface{}) error {
	return &exitError{code: exitUsage, err: fmt.Errorf(format, args...)}
}

// exitCode maps an error returned by a command to a process exit code.
func exitCode(err error) int {
	if err == nil {
		return exitOK
	}
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	return exitUsage
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "jscheck",
	Short: "Static checks for JavaScript",
	Long: `jscheck analyzes JavaScript source for scoping and control-flow defects:
masked and duplicate declarations, uses outside a declaring block, reads
before definite assignment, unreachable code, unmatched break and continue
labels, unused provides and requires, and text that breaks a script
embedded in HTML.

Getting started:
  jscheck check app.js             Check a single file
  jscheck check ./src/...          Check every .js file under src
  jscheck check --list             List available checks
  jscheck scopes app.js            Print the scope tree of a file
  jscheck lsp                      Start the language server

Files declare the globals they share through a manifest:
  builtins: [window, document]
  files:
    src/app.js:
      provides: [App]
      requires: [Util]`,
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		if viper.GetBool("trace") {
			installTracing()
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	shutdownTracing(context.Background())
	var ee *exitError
	if err != nil && (!errors.As(err, &ee) || ee.err != nil) {
		fmt.Fprintln(os.Stderr, "jscheck:", err)
	}
	os.Exit(exitCode(err))
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.jscheck.yaml)")
	rootCmd.PersistentFlags().StringVar(&colorFlag, "color", "auto",
		`Control colored output: "auto", "always", or "never".`)
	rootCmd.PersistentFlags().CountVarP(&verbose, "verbose", "v",
		"Increase log verbosity (repeatable).")
	rootCmd.PersistentFlags().BoolVar(&traceFlag, "trace", false,
		"Log the duration of each analysis phase.")
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	_ = viper.BindPFlag("trace", rootCmd.PersistentFlags().Lookup("trace"))

	rootCmd.AddCommand(CheckCommand(), ScopesCommand(), LSPCommand())
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else if home, err := os.UserHomeDir(); err == nil {
		// Search config in home directory with name ".jscheck" (without extension).
		viper.AddConfigPath(home)
		viper.SetConfigName(".jscheck")
	}

	viper.SetEnvPrefix("JSCHECK")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // read in environment variables that match

	// If a config file is found, read it in.
	err := viper.ReadInConfig()
	commonlog.Configure(viper.GetInt("verbose"), nil)
	if err == nil {
		log.Infof("using config file %s", viper.ConfigFileUsed())
	}
}
