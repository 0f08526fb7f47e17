package docgen

import (
	"sort"
	"strings"
)

const sectionSeparator = "\n\n---\n\n"

// CombinedMarkdown joins an aggregate mapping into one markdown document:
// directory structure first, then the project overview, then every file in
// path order. The Mermaid diagram is left out.
func CombinedMarkdown(entries map[string]string) string {
	var b strings.Builder
	if s, ok := entries[KeyDirectoryStructure]; ok {
		b.WriteString(s)
		b.WriteString(sectionSeparator)
	}
	if s, ok := entries[KeyProjectOverview]; ok {
		b.WriteString("# Project Overview\n\n")
		b.WriteString(s)
		b.WriteString(sectionSeparator)
	}

	paths := make([]string, 0, len(entries))
	for k := range entries {
		if !IsSentinelKey(k) {
			paths = append(paths, k)
		}
	}
	sort.Strings(paths)
	for _, p := range paths {
		b.WriteString("# Documentation for ")
		b.WriteString(p)
		b.WriteString("\n\n")
		b.WriteString(entries[p])
		b.WriteString(sectionSeparator)
	}
	return b.String()
}
