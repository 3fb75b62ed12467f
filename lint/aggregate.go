// Copyright © 2024 The ELPS authors

package lint

import "sort"

// Sort orders diagnostics by file, start offset, end offset and message.
func Sort(diags []Diagnostic) {
	sort.SliceStable(diags, func(i, j int) bool {
		a, b := diags[i], diags[j]
		if a.Pos.File != b.Pos.File {
			return a.Pos.File < b.Pos.File
		}
		if a.Pos.Offset != b.Pos.Offset {
			return a.Pos.Offset < b.Pos.Offset
		}
		if a.EndPos.Offset != b.EndPos.Offset {
			return a.EndPos.Offset < b.EndPos.Offset
		}
		return a.Message < b.Message
	})
}

// GroupByKind buckets diagnostics by analyzer name, keeping their order.
func GroupByKind(diags []Diagnostic) map[string][]Diagnostic {
	groups := make(map[string][]Diagnostic)
	for _, d := range diags {
		groups[d.Analyzer] = append(groups[d.Analyzer], d)
	}
	return groups
}

// MaxSeverity returns the highest severity among diags whose kind is not
// ignored. It returns the zero Severity when there are none.
func MaxSeverity(diags []Diagnostic, ignore ...string) Severity {
	skip := newNameSet(ignore)
	max := severityUnset
	for _, d := range diags {
		if skip[d.Analyzer] {
			continue
		}
		if d.Severity > max {
			max = d.Severity
		}
	}
	return max
}

// Passed reports whether no diagnostic of an unignored kind reaches warning.
func Passed(diags []Diagnostic, ignore ...string) bool {
	return MaxSeverity(diags, ignore...) < SeverityWarning
}
