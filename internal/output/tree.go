package output

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/julianshen/autodoc/internal/docgen"
)

// Names of the project-level files written by WriteTree.
const (
	ReadmeFile    = "README.md"
	OverviewFile  = "OVERVIEW.md"
	StructureFile = "STRUCTURE.md"
	MermaidFile   = "STRUCTURE.mermaid.md"
	filesDir      = "files"
)

type frontMatter struct {
	Title     string    `yaml:"title"`
	Source    string    `yaml:"source,omitempty"`
	Language  string    `yaml:"language,omitempty"`
	Project   string    `yaml:"project,omitempty"`
	RunID     string    `yaml:"run_id"`
	Generated time.Time `yaml:"generated"`
	Succeeded bool      `yaml:"succeeded"`
}

// WriteTree writes run under dir: the combined document as README.md, the
// project-level sections as their own files, and one markdown file per source
// file under files/, each carrying YAML front matter. It returns the written
// paths relative to dir.
func WriteTree(run *Run, dir string) ([]string, error) {
	if run == nil || run.Report == nil {
		return nil, errors.New("no report to write")
	}
	rep := run.Report
	var written []string

	write := func(rel, content string) error {
		if !filepath.IsLocal(filepath.FromSlash(rel)) {
			return fmt.Errorf("refusing to write outside %s: %s", dir, rel)
		}
		if err := writeDoc(filepath.Join(dir, filepath.FromSlash(rel)), content); err != nil {
			return err
		}
		written = append(written, rel)
		return nil
	}

	if err := write(ReadmeFile, docgen.CombinedMarkdown(rep.Map())); err != nil {
		return nil, err
	}

	sections := []struct {
		key, file, title string
	}{
		{docgen.KeyProjectOverview, OverviewFile, "Project Overview"},
		{docgen.KeyDirectoryStructure, StructureFile, "Project Directory Structure"},
		{docgen.KeyMermaidDiagram, MermaidFile, "Project Directory Structure (Interactive)"},
	}
	for _, s := range sections {
		e, ok := rep.Entries[s.key]
		if !ok {
			continue
		}
		doc, err := withFrontMatter(frontMatter{
			Title:     s.title,
			Project:   run.Project,
			RunID:     rep.RunID.String(),
			Generated: rep.StartedAt.UTC(),
			Succeeded: e.Succeeded,
		}, e.Text)
		if err != nil {
			return nil, err
		}
		if err := write(s.file, doc); err != nil {
			return nil, err
		}
	}

	langs := run.languages()
	for _, p := range run.filePaths() {
		e := rep.Entries[p]
		doc, err := withFrontMatter(frontMatter{
			Title:     "Documentation for " + p,
			Source:    p,
			Language:  langs[p],
			Project:   run.Project,
			RunID:     rep.RunID.String(),
			Generated: rep.StartedAt.UTC(),
			Succeeded: e.Succeeded,
		}, e.Text)
		if err != nil {
			return nil, err
		}
		if err := write(filesDir+"/"+p+".md", doc); err != nil {
			return nil, err
		}
	}

	return written, nil
}

func withFrontMatter(fm frontMatter, body string) (string, error) {
	var buf bytes.Buffer
	buf.WriteString("---\n")
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(fm); err != nil {
		return "", fmt.Errorf("encoding front matter: %w", err)
	}
	if err := enc.Close(); err != nil {
		return "", fmt.Errorf("encoding front matter: %w", err)
	}
	buf.WriteString("---\n\n")
	buf.WriteString(body)
	buf.WriteString("\n")
	return buf.String(), nil
}

// writeDoc creates parent directories and writes content to the given path.
func writeDoc(path, content string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating directory for %s: %w", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
