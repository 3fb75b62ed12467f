// Copyright © 2024 The ELPS authors

package cmd

import (
	"github.com/luthersystems/jscheck/analysis"
	"github.com/luthersystems/jscheck/lint"
)

// Option configures an exported command factory (CheckCommand,
// LSPCommand).
type Option func(*cmdConfig)

type cmdConfig struct {
	builtins  []string
	analyzers []*lint.Analyzer
}

// WithBuiltins adds globals defined by the embedding host, such as the
// objects a browser or server runtime installs.
func WithBuiltins(names ...string) Option {
	return func(c *cmdConfig) { c.builtins = append(c.builtins, names...) }
}

// WithAnalyzers adds checks to the built-in set.
func WithAnalyzers(analyzers ...*lint.Analyzer) Option {
	return func(c *cmdConfig) { c.analyzers = append(c.analyzers, analyzers...) }
}

func newCmdConfig(opts []Option) *cmdConfig {
	cfg := &cmdConfig{}
	for _, o := range opts {
		o(cfg)
	}
	return cfg
}

// available returns the built-in checks followed by the embedder's.
func (c *cmdConfig) available() []*lint.Analyzer {
	return append(lint.AllAnalyzers(), c.analyzers...)
}

// defaults returns the checks run when --checks is not given.
func (c *cmdConfig) defaults() []*lint.Analyzer {
	return append(lint.DefaultAnalyzers(), c.analyzers...)
}

// globals returns the predefined globals of envs followed by the
// embedder's builtins and extra.
func (c *cmdConfig) globals(envs, extra []string) ([]string, error) {
	var names []string
	for _, env := range envs {
		g, err := analysis.EnvironmentGlobals(env)
		if err != nil {
			return nil, err
		}
		names = append(names, g...)
	}
	names = append(names, c.builtins...)
	return append(names, extra...), nil
}
