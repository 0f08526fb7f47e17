package output

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/julianshen/autodoc/internal/docgen"
)

func sampleRun() *Run {
	return &Run{
		Project: "demo",
		Report: &docgen.Report{
			RunID:     uuid.MustParse("0b6f6f0c-7d5a-4c7e-9d2a-3f1b2c4d5e6f"),
			Executor:  docgen.ExecutorBatch,
			FileCount: 2,
			StartedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
			Duration:  1500 * time.Millisecond,
			Entries: map[string]docgen.Result{
				"main.py":                    {Key: "main.py", Text: "main docs", Succeeded: true},
				"pkg/util.go":                {Key: "pkg/util.go", Text: "Error generating documentation: boom", Err: "boom"},
				docgen.KeyProjectOverview:    {Key: docgen.KeyProjectOverview, Text: "overview", Succeeded: true},
				docgen.KeyDirectoryStructure: {Key: docgen.KeyDirectoryStructure, Text: "# Project Directory Structure", Succeeded: true},
				docgen.KeyMermaidDiagram:     {Key: docgen.KeyMermaidDiagram, Text: "mermaid", Succeeded: true},
			},
		},
		Files: []docgen.FileRecord{
			{Path: "main.py", Language: "Python"},
			{Path: "pkg/util.go", Language: "Go", Directory: "pkg"},
		},
	}
}

func TestNewFormatter(t *testing.T) {
	f, err := NewFormatter("json")
	require.NoError(t, err)
	assert.IsType(t, &JSONFormatter{}, f)

	f, err = NewFormatter("")
	require.NoError(t, err)
	assert.IsType(t, &MarkdownFormatter{}, f)

	_, err = NewFormatter("pdf")
	require.Error(t, err)
}

func TestMarkdownFormatter(t *testing.T) {
	out, err := NewMarkdownFormatter().Format(sampleRun())
	require.NoError(t, err)

	s := string(out)
	assert.True(t, strings.HasPrefix(s, "# Project Directory Structure"))
	assert.Contains(t, s, "# Project Overview\n\noverview")
	assert.Less(t, strings.Index(s, "# Documentation for main.py"), strings.Index(s, "# Documentation for pkg/util.go"))
	assert.NotContains(t, s, "mermaid")

	_, err = NewMarkdownFormatter().Format(&Run{})
	require.Error(t, err)
}

func TestJSONFormatter(t *testing.T) {
	out, err := NewJSONFormatter().Format(sampleRun())
	require.NoError(t, err)

	var got jsonRun
	require.NoError(t, json.Unmarshal(out, &got))
	assert.Equal(t, "0b6f6f0c-7d5a-4c7e-9d2a-3f1b2c4d5e6f", got.RunID)
	assert.Equal(t, "batch", got.Executor)
	assert.Equal(t, int64(1500), got.DurationMs)
	assert.Equal(t, "overview", got.Overview)
	assert.Equal(t, []string{"pkg/util.go"}, got.Failed)
	require.Len(t, got.Files, 2)
	assert.Equal(t, "main.py", got.Files[0].Path)
	assert.Equal(t, "Python", got.Files[0].Language)
	assert.True(t, got.Files[0].Succeeded)
	assert.Equal(t, "boom", got.Files[1].Error)
}

func TestWriteTree(t *testing.T) {
	dir := t.TempDir()
	written, err := WriteTree(sampleRun(), dir)
	require.NoError(t, err)
	assert.Equal(t, []string{
		ReadmeFile, OverviewFile, StructureFile, MermaidFile,
		"files/main.py.md", "files/pkg/util.go.md",
	}, written)

	raw, err := os.ReadFile(filepath.Join(dir, "files", "pkg", "util.go.md"))
	require.NoError(t, err)

	parts := strings.SplitN(string(raw), "---\n", 3)
	require.Len(t, parts, 3)
	var fm frontMatter
	require.NoError(t, yaml.Unmarshal([]byte(parts[1]), &fm))
	assert.Equal(t, "Documentation for pkg/util.go", fm.Title)
	assert.Equal(t, "Go", fm.Language)
	assert.Equal(t, "demo", fm.Project)
	assert.False(t, fm.Succeeded)
	assert.True(t, fm.Generated.Equal(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)))
	assert.Equal(t, "\nError generating documentation: boom\n", parts[2])

	readme, err := os.ReadFile(filepath.Join(dir, ReadmeFile))
	require.NoError(t, err)
	assert.Contains(t, string(readme), "# Documentation for main.py")
}

func TestWriteTreeRejectsEscapingPaths(t *testing.T) {
	run := sampleRun()
	run.Report.Entries["../../etc/passwd"] = docgen.Result{Text: "x", Succeeded: true}
	_, err := WriteTree(run, t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "outside")
}

func TestWriteTreeSingleFileRun(t *testing.T) {
	run := &Run{Report: &docgen.Report{
		Entries: map[string]docgen.Result{"a.go": {Text: "a", Succeeded: true}},
	}}
	written, err := WriteTree(run, t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, []string{ReadmeFile, "files/a.go.md"}, written)
}
