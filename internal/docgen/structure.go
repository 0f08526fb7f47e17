package docgen

import (
	"fmt"
	"path"
	"sort"
	"strings"
)

type treeEntry struct {
	name     string
	language string
}

type treeDir struct {
	dirs  map[string]bool
	files []treeEntry
}

// DirectoryStructure renders the ASCII tree and the Mermaid diagram for
// files. The Mermaid output is the bare graph source; see MermaidDocument.
func DirectoryStructure(files []FileRecord) (ascii, mermaid string) {
	byDir := make(map[string][]treeEntry)
	for _, f := range files {
		byDir[f.Directory] = append(byDir[f.Directory], treeEntry{
			name:     path.Base(f.Path),
			language: f.Language,
		})
	}
	return renderASCIITree(byDir), renderMermaidTree(byDir)
}

// MermaidDocument wraps Mermaid graph source into the markdown stored under
// KeyMermaidDiagram.
func MermaidDocument(graph string) string {
	return "# Project Directory Structure (Interactive)\n\n```mermaid\n" + graph + "\n```\n"
}

func buildTree(byDir map[string][]treeEntry) map[string]*treeDir {
	tree := map[string]*treeDir{"": {dirs: map[string]bool{}}}
	for dir := range byDir {
		if dir == "" {
			continue
		}
		parts := strings.Split(dir, "/")
		for i := range parts {
			cur := strings.Join(parts[:i+1], "/")
			if _, ok := tree[cur]; !ok {
				tree[cur] = &treeDir{dirs: map[string]bool{}}
			}
			parent := strings.Join(parts[:i], "/")
			if _, ok := tree[parent]; !ok {
				tree[parent] = &treeDir{dirs: map[string]bool{}}
			}
			tree[parent].dirs[parts[i]] = true
		}
	}
	for dir, entries := range byDir {
		tree[dir].files = append(tree[dir].files, entries...)
	}
	return tree
}

func renderASCIITree(byDir map[string][]treeEntry) string {
	tree := buildTree(byDir)

	lines := []string{"# Project Directory Structure", "```", "Project Root/"}
	var walk func(dir, prefix string)
	walk = func(dir, prefix string) {
		node := tree[dir]
		dirs := sortedKeys(node.dirs)
		files := append([]treeEntry(nil), node.files...)
		sort.Slice(files, func(i, j int) bool { return files[i].name < files[j].name })

		for i, name := range dirs {
			last := i == len(dirs)-1 && len(files) == 0
			lines = append(lines, prefix+connector(last)+name+"/")
			child := name
			if dir != "" {
				child = dir + "/" + name
			}
			walk(child, prefix+indent(last))
		}
		for i, f := range files {
			lines = append(lines, fmt.Sprintf("%s%s%s (%s)", prefix, connector(i == len(files)-1), f.name, f.language))
		}
	}
	walk("", "")
	lines = append(lines, "```")
	return strings.Join(lines, "\n")
}

func connector(last bool) string {
	if last {
		return "└── "
	}
	return "├── "
}

func indent(last bool) string {
	if last {
		return "    "
	}
	return "│   "
}

func renderMermaidTree(byDir map[string][]treeEntry) string {
	ids := map[string]string{}
	nodeID := func(name string) string {
		if id, ok := ids[name]; ok {
			return id
		}
		id := fmt.Sprintf("node%d", len(ids))
		ids[name] = id
		return id
	}

	var b strings.Builder
	b.WriteString("graph TD\n")
	rootID := nodeID("Project Root")
	fmt.Fprintf(&b, "    %s[Project Root]\n", rootID)

	declared := map[string]bool{}
	dirs := make([]string, 0, len(byDir))
	for dir := range byDir {
		dirs = append(dirs, dir)
	}
	sort.Strings(dirs)

	for _, dir := range dirs {
		dirID := rootID
		if dir != "" {
			parentID := rootID
			parts := strings.Split(dir, "/")
			for i, part := range parts {
				cur := strings.Join(parts[:i+1], "/")
				id := nodeID(cur)
				if !declared[cur] {
					declared[cur] = true
					fmt.Fprintf(&b, "    %s[%s/]\n", id, escapeMermaid(part))
					fmt.Fprintf(&b, "    %s --> %s\n", parentID, id)
				}
				parentID = id
			}
			dirID = parentID
		}

		entries := append([]treeEntry(nil), byDir[dir]...)
		sort.Slice(entries, func(i, j int) bool { return entries[i].name < entries[j].name })
		for _, e := range entries {
			id := nodeID(path.Join(dir, e.name) + "#file")
			fmt.Fprintf(&b, "    %s[\"%s\"]\n", id, escapeMermaid(e.name))
			fmt.Fprintf(&b, "    %s --> %s\n", dirID, id)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// escapeMermaid replaces characters that would break Mermaid label syntax.
func escapeMermaid(s string) string {
	return strings.ReplaceAll(s, "\"", "#quot;")
}

func sortedKeys(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
