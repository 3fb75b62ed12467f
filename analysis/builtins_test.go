// Copyright © 2024 The ELPS authors

package analysis

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStandardGlobals(t *testing.T) {
	names := StandardGlobals()
	assert.True(t, sort.StringsAreSorted(names))
	for _, name := range []string{"Object", "Array", "JSON", "Math", "parseInt", "undefined", "NaN", "globalThis"} {
		assert.Contains(t, names, name)
	}
	assert.NotContains(t, names, "window")
	assert.NotContains(t, names, "console")

	names[0] = "changed"
	assert.NotEqual(t, "changed", StandardGlobals()[0])
}

func TestEnvironmentGlobals(t *testing.T) {
	browser, err := EnvironmentGlobals("browser")
	require.NoError(t, err)
	assert.Contains(t, browser, "document")
	assert.Contains(t, browser, "Object")

	node, err := EnvironmentGlobals("node")
	require.NoError(t, err)
	assert.Contains(t, node, "require")
	assert.NotContains(t, node, "document")

	none, err := EnvironmentGlobals("none")
	require.NoError(t, err)
	assert.Empty(t, none)

	_, err = EnvironmentGlobals("deno")
	assert.Error(t, err)
	assert.Equal(t, []string{"browser", "es", "node", "none"}, Environments())
}
