// Copyright © 2024 The ELPS authors

// Package manifest reads the YAML file that declares, for each input, the
// global names it provides to other inputs, the names it requires from them
// and the globals it may overwrite.
//
// A manifest looks like:
//
//	builtins: [window, document]
//	files:
//	  src/app.js:
//	    provides: [App]
//	    requires: [Util]
//	  src/util/*.js:
//	    provides: [Util]
//
// File keys are paths or filepath.Match patterns relative to the directory
// holding the manifest.
package manifest

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/luthersystems/jscheck/lint"
	"github.com/tliron/commonlog"
	"gopkg.in/yaml.v3"
)

var log = commonlog.GetLogger("jscheck.manifest")

// Manifest is a parsed manifest file.
type Manifest struct {
	// Builtins are globals defined by the host environment of every file.
	Builtins []string `yaml:"builtins,omitempty"`
	// Files maps a path or pattern to the environment of matching files.
	Files map[string]lint.Env `yaml:"files,omitempty"`

	// dir is the directory relative file keys are resolved against.
	dir string
}

// Load reads and parses the manifest at path.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is user input
	if err != nil {
		return nil, fmt.Errorf("manifest: %w", err)
	}
	m, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	m.dir = filepath.Dir(path)
	log.Debugf("loaded manifest %s with %d file entries", path, len(m.Files))
	return m, nil
}

// Parse parses manifest data. Unknown keys are an error. Relative file keys
// are resolved against the working directory.
func Parse(data []byte) (*Manifest, error) {
	m := &Manifest{}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(m); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("manifest: %w", err)
	}
	for key, env := range m.Files {
		if len(env.Builtins) > 0 {
			return nil, fmt.Errorf("manifest: %s: builtins are only allowed at the top level", key)
		}
		if _, err := filepath.Match(key, ""); err != nil {
			return nil, fmt.Errorf("manifest: %s: %w", key, err)
		}
	}
	return m, nil
}

// Env returns the environment shared by every file.
func (m *Manifest) Env() lint.Env {
	return lint.Env{Builtins: append([]string(nil), m.Builtins...)}
}

// EnvFor returns the environment of the file at path: the builtins plus the
// union of every entry whose key matches path. Entries merge in key order.
func (m *Manifest) EnvFor(path string) lint.Env {
	env := m.Env()
	target := filepath.Clean(path)
	for _, key := range m.keys() {
		ok, _ := filepath.Match(m.pattern(key), target)
		if ok {
			env = env.Merge(m.Files[key])
		}
	}
	return env
}

// Has reports whether some entry matches path.
func (m *Manifest) Has(path string) bool {
	target := filepath.Clean(path)
	for key := range m.Files {
		if ok, _ := filepath.Match(m.pattern(key), target); ok {
			return true
		}
	}
	return false
}

// Marshal encodes m as YAML.
func (m *Manifest) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(m); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (m *Manifest) keys() []string {
	keys := make([]string, 0, len(m.Files))
	for k := range m.Files {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// pattern resolves a file key against the manifest directory.
func (m *Manifest) pattern(key string) string {
	key = filepath.FromSlash(key)
	if !filepath.IsAbs(key) && m.dir != "" {
		key = filepath.Join(m.dir, key)
	}
	return filepath.Clean(key)
}
