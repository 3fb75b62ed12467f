// Copyright © 2024 The ELPS authors

package analysis

import (
	"fmt"
	"sort"
)

// hostGlobals are the names common host environments add to the standard
// globals.
var hostGlobals = map[string][]string{
	"browser": {
		"window", "self", "document", "navigator", "location", "history",
		"screen", "console", "alert", "confirm", "prompt", "fetch",
		"XMLHttpRequest", "localStorage", "sessionStorage", "setTimeout",
		"clearTimeout", "setInterval", "clearInterval",
		"requestAnimationFrame", "cancelAnimationFrame", "Event",
		"CustomEvent", "HTMLElement", "Element", "Node", "Image", "URL",
		"URLSearchParams", "FormData", "Blob", "File", "FileReader",
		"WebSocket", "Worker", "atob", "btoa",
	},
	"node": {
		"global", "process", "console", "require", "module", "exports",
		"__dirname", "__filename", "Buffer", "setTimeout", "clearTimeout",
		"setInterval", "clearInterval", "setImmediate", "clearImmediate",
		"queueMicrotask", "URL", "URLSearchParams", "TextEncoder",
		"TextDecoder",
	},
}

// Environments returns the names accepted by EnvironmentGlobals.
func Environments() []string {
	names := []string{"es", "none"}
	for name := range hostGlobals {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// EnvironmentGlobals returns the predefined globals of the named
// environment: "es" for the standard globals alone, "browser" or "node"
// for the standard globals plus those of the host, "none" for nothing.
func EnvironmentGlobals(env string) ([]string, error) {
	switch env {
	case "none":
		return nil, nil
	case "es":
		return StandardGlobals(), nil
	}
	host, ok := hostGlobals[env]
	if !ok {
		return nil, fmt.Errorf("unknown environment: %s", env)
	}
	return append(StandardGlobals(), host...), nil
}
