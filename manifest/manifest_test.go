// Copyright © 2024 The ELPS authors

package manifest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/luthersystems/jscheck/lint"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `
builtins: [window, document]
files:
  app.js:
    provides: [App]
    requires: [Util]
  util/*.js:
    provides: [Util]
    overrides: [console]
  util/extra.js:
    requires: [App]
`

func TestParse(t *testing.T) {
	m, err := Parse([]byte(sample))
	require.NoError(t, err)
	assert.Equal(t, []string{"window", "document"}, m.Builtins)
	assert.Len(t, m.Files, 3)
	assert.Equal(t, []string{"App"}, m.Files["app.js"].Provides)
}

func TestParse_Empty(t *testing.T) {
	m, err := Parse(nil)
	require.NoError(t, err)
	assert.Empty(t, m.Files)
	assert.Equal(t, lint.Env{}, m.EnvFor("a.js"))
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"unknown key", "globals: [x]\n"},
		{"unknown file key", "files:\n  a.js:\n    exports: [x]\n"},
		{"nested builtins", "files:\n  a.js:\n    builtins: [x]\n"},
		{"not a list", "builtins: 3\nfiles: []\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.src))
			assert.Error(t, err)
		})
	}
}

func TestEnvFor(t *testing.T) {
	m, err := Parse([]byte(sample))
	require.NoError(t, err)

	env := m.EnvFor("app.js")
	assert.Equal(t, []string{"App"}, env.Provides)
	assert.Equal(t, []string{"Util"}, env.Requires)
	assert.Equal(t, []string{"window", "document"}, env.Builtins)

	env = m.EnvFor("./util/extra.js")
	assert.Equal(t, []string{"Util"}, env.Provides)
	assert.Equal(t, []string{"App"}, env.Requires)
	assert.Equal(t, []string{"console"}, env.Overrides)

	env = m.EnvFor("other.js")
	assert.Empty(t, env.Provides)
	assert.Equal(t, []string{"window", "document"}, env.Builtins)

	assert.True(t, m.Has("util/a.js"))
	assert.False(t, m.Has("lib/a.js"))
}

func TestLoad_RelativeToManifest(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "jscheck.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o600))

	m, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"App"}, m.EnvFor(filepath.Join(dir, "app.js")).Provides)
	assert.Empty(t, m.EnvFor("app.js").Provides)

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestMarshal(t *testing.T) {
	m, err := Parse([]byte(sample))
	require.NoError(t, err)
	data, err := m.Marshal()
	require.NoError(t, err)
	again, err := Parse(data)
	require.NoError(t, err)
	assert.Equal(t, m.Files, again.Files)
	assert.Equal(t, m.Builtins, again.Builtins)
}
