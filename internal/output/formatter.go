// Package output renders a finished documentation run.
package output

import (
	"fmt"
	"sort"

	"github.com/julianshen/autodoc/internal/docgen"
)

// Run is a finished documentation run together with the inputs needed to
// describe it.
type Run struct {
	Project string
	Report  *docgen.Report
	Files   []docgen.FileRecord
}

// Formatter formats a Run into output bytes.
type Formatter interface {
	Format(run *Run) ([]byte, error)
}

// NewFormatter returns the formatter registered under name.
func NewFormatter(name string) (Formatter, error) {
	switch name {
	case "markdown", "md", "":
		return NewMarkdownFormatter(), nil
	case "json":
		return NewJSONFormatter(), nil
	default:
		return nil, fmt.Errorf("unsupported output format: %s", name)
	}
}

// languages indexes the language of every file in run.
func (r *Run) languages() map[string]string {
	out := make(map[string]string, len(r.Files))
	for _, f := range r.Files {
		out[f.Path] = f.Language
	}
	return out
}

// filePaths returns the non-sentinel keys of the report, sorted.
func (r *Run) filePaths() []string {
	paths := make([]string, 0, len(r.Report.Entries))
	for k := range r.Report.Entries {
		if !docgen.IsSentinelKey(k) {
			paths = append(paths, k)
		}
	}
	sort.Strings(paths)
	return paths
}
