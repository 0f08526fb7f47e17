package output

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/julianshen/autodoc/internal/docgen"
)

// JSONFormatter outputs a Run as JSON.
type JSONFormatter struct{}

// NewJSONFormatter creates a new JSONFormatter.
func NewJSONFormatter() *JSONFormatter {
	return &JSONFormatter{}
}

type jsonRun struct {
	RunID              string     `json:"run_id"`
	Project            string     `json:"project,omitempty"`
	Executor           string     `json:"executor"`
	FileCount          int        `json:"file_count"`
	StartedAt          time.Time  `json:"started_at"`
	DurationMs         int64      `json:"duration_ms"`
	Overview           string     `json:"overview,omitempty"`
	DirectoryStructure string     `json:"directory_structure,omitempty"`
	MermaidDiagram     string     `json:"mermaid_diagram,omitempty"`
	Files              []jsonFile `json:"files"`
	Failed             []string   `json:"failed,omitempty"`
}

type jsonFile struct {
	Path          string `json:"path"`
	Language      string `json:"language,omitempty"`
	Succeeded     bool   `json:"succeeded"`
	Documentation string `json:"documentation"`
	Error         string `json:"error,omitempty"`
}

// Format marshals the Run as indented JSON.
func (f *JSONFormatter) Format(run *Run) ([]byte, error) {
	if run == nil || run.Report == nil {
		return nil, errors.New("no report to format")
	}
	rep := run.Report
	langs := run.languages()

	out := jsonRun{
		RunID:              rep.RunID.String(),
		Project:            run.Project,
		Executor:           string(rep.Executor),
		FileCount:          rep.FileCount,
		StartedAt:          rep.StartedAt,
		DurationMs:         rep.Duration.Milliseconds(),
		Overview:           rep.Entries[docgen.KeyProjectOverview].Text,
		DirectoryStructure: rep.Entries[docgen.KeyDirectoryStructure].Text,
		MermaidDiagram:     rep.Entries[docgen.KeyMermaidDiagram].Text,
		Files:              []jsonFile{},
		Failed:             rep.Failed(),
	}
	for _, p := range run.filePaths() {
		e := rep.Entries[p]
		out.Files = append(out.Files, jsonFile{
			Path:          p,
			Language:      langs[p],
			Succeeded:     e.Succeeded,
			Documentation: e.Text,
			Error:         e.Err,
		})
	}
	return json.MarshalIndent(out, "", "  ")
}
