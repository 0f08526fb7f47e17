package docgen

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDirectoryStructureASCII(t *testing.T) {
	files := []FileRecord{
		{Path: "main.py", Language: "Python"},
		{Path: "src/util.js", Language: "JavaScript", Directory: "src"},
		{Path: "src/api/routes.js", Language: "JavaScript", Directory: "src/api"},
		{Path: "README.md", Language: "Markdown"},
	}

	ascii, _ := DirectoryStructure(files)
	want := strings.Join([]string{
		"# Project Directory Structure",
		"```",
		"Project Root/",
		"├── src/",
		"│   ├── api/",
		"│   │   └── routes.js (JavaScript)",
		"│   └── util.js (JavaScript)",
		"├── README.md (Markdown)",
		"└── main.py (Python)",
		"```",
	}, "\n")
	assert.Equal(t, want, ascii)
}

func TestDirectoryStructureMermaid(t *testing.T) {
	files := []FileRecord{
		{Path: "main.py", Language: "Python"},
		{Path: "src/a \"b\".js", Language: "JavaScript", Directory: "src"},
	}

	_, graph := DirectoryStructure(files)
	assert.True(t, strings.HasPrefix(graph, "graph TD\n"))
	assert.Contains(t, graph, "node0[Project Root]")
	assert.Contains(t, graph, "node1[\"main.py\"]")
	assert.Contains(t, graph, "node0 --> node1")
	assert.Contains(t, graph, "node2[src/]")
	assert.Contains(t, graph, "node3[\"a #quot;b#quot;.js\"]")
	assert.Contains(t, graph, "node2 --> node3")
}

func TestDirectoryStructureNestedDirsWithoutFiles(t *testing.T) {
	files := []FileRecord{{Path: "a/b/c.go", Language: "Go", Directory: "a/b"}}

	ascii, graph := DirectoryStructure(files)
	assert.Contains(t, ascii, "└── a/\n    └── b/\n        └── c.go (Go)")
	assert.Contains(t, graph, "node0 --> node1")
	assert.Contains(t, graph, "node1 --> node2")
}

func TestMermaidDocument(t *testing.T) {
	doc := MermaidDocument("graph TD\n    node0[Project Root]")
	assert.Equal(t, "# Project Directory Structure (Interactive)\n\n```mermaid\ngraph TD\n    node0[Project Root]\n```\n", doc)
}
