package output

import (
	"errors"

	"github.com/julianshen/autodoc/internal/docgen"
)

// MarkdownFormatter outputs a Run as the combined documentation document.
type MarkdownFormatter struct{}

// NewMarkdownFormatter creates a new MarkdownFormatter.
func NewMarkdownFormatter() *MarkdownFormatter {
	return &MarkdownFormatter{}
}

// Format renders the Run as one markdown document.
func (f *MarkdownFormatter) Format(run *Run) ([]byte, error) {
	if run == nil || run.Report == nil {
		return nil, errors.New("no report to format")
	}
	return []byte(docgen.CombinedMarkdown(run.Report.Map())), nil
}
