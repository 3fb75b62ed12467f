// Copyright © 2024 The ELPS authors

package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// expandArgs expands arguments, resolving patterns ending with "/..." to all
// .js files found recursively under the given directory and shell-style
// globs to their matches. Paths matching an exclude pattern are dropped.
// Other arguments pass through unchanged.
func expandArgs(args []string, excludes []string) ([]string, error) {
	var out []string
	for _, arg := range args {
		switch dir, ok := strings.CutSuffix(arg, "/..."); {
		case ok:
			if dir == "" {
				dir = "."
			}
			files, err := findJSFiles(dir, excludes)
			if err != nil {
				return nil, fmt.Errorf("expanding %s: %w", arg, err)
			}
			out = append(out, files...)
		case strings.ContainsAny(arg, "*?["):
			matches, err := filepath.Glob(arg)
			if err != nil {
				return nil, fmt.Errorf("expanding %s: %w", arg, err)
			}
			if len(matches) == 0 {
				return nil, fmt.Errorf("%s: no matching files", arg)
			}
			out = append(out, matches...)
		default:
			out = append(out, arg)
		}
	}
	return filterExcludes(out, excludes), nil
}

func findJSFiles(root string, excludes []string) ([]string, error) {
	var files []string
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			if path != root && matchesAny(path, excludes) {
				return filepath.SkipDir
			}
			return nil
		}
		switch filepath.Ext(path) {
		case ".js", ".mjs", ".cjs":
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

// filterExcludes removes paths matching any exclude pattern.
func filterExcludes(paths, excludes []string) []string {
	if len(excludes) == 0 {
		return paths
	}
	var out []string
	for _, p := range paths {
		if !matchesAny(p, excludes) {
			out = append(out, p)
		}
	}
	return out
}

// matchesAny reports whether path, its base name or any of its directory
// components matches one of the patterns.
func matchesAny(path string, patterns []string) bool {
	components := splitPath(path)
	for _, pat := range patterns {
		if ok, _ := filepath.Match(pat, path); ok {
			return true
		}
		for _, c := range components {
			if ok, _ := filepath.Match(pat, c); ok {
				return true
			}
		}
	}
	return false
}

// splitPath returns the components of path.
func splitPath(path string) []string {
	return strings.FieldsFunc(filepath.Clean(path), func(r rune) bool {
		return r == filepath.Separator
	})
}
