package docgen

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"sort"
	"strings"
	"unicode/utf8"
)

// Overview token budgets.
const (
	overviewMaxTokens = 4096
	summaryMaxTokens  = 300

	directThreshold  = 15000
	summaryThreshold = 50000

	directExcerptChars    = 1000
	summaryInputChars     = 2000
	directoryExcerptChars = 500
)

// OverviewStrategy selects how the content-based overview is built.
type OverviewStrategy string

const (
	StrategyDirect       OverviewStrategy = "direct"
	StrategySummaries    OverviewStrategy = "summaries"
	StrategyHierarchical OverviewStrategy = "hierarchical"
)

// EstimateTokens approximates the token count of text at three characters
// per token.
func EstimateTokens(chars int) int {
	return chars / 3
}

// ChooseOverviewStrategy picks a strategy from the estimated token volume
// of the accumulated documentation. force always selects StrategyDirect.
func ChooseOverviewStrategy(estimatedTokens int, force bool) OverviewStrategy {
	switch {
	case force:
		return StrategyDirect
	case estimatedTokens < directThreshold:
		return StrategyDirect
	case estimatedTokens < summaryThreshold:
		return StrategySummaries
	default:
		return StrategyHierarchical
	}
}

// Overview synthesizes the project overview. Every failure is folded into
// the returned text.
type Overview struct {
	llm         LLMCompleter
	exec        Executor
	logger      *slog.Logger
	unitTimeout TimeoutFunc
}

// TimeoutFunc bounds a context for one remote call.
type TimeoutFunc func(ctx context.Context) (context.Context, context.CancelFunc)

// NewOverview creates an Overview that fans summary calls out through exec.
func NewOverview(llm LLMCompleter, exec Executor, logger *slog.Logger, timeout TimeoutFunc) *Overview {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if timeout == nil {
		timeout = func(ctx context.Context) (context.Context, context.CancelFunc) {
			return context.WithCancel(ctx)
		}
	}
	return &Overview{llm: llm, exec: exec, logger: logger, unitTimeout: timeout}
}

// FromMetadata builds an overview from the file listing alone.
func (o *Overview) FromMetadata(ctx context.Context, files []FileRecord) string {
	groups := make(map[string][]FileRecord)
	for _, f := range files {
		groups[f.Directory] = append(groups[f.Directory], f)
	}

	var b strings.Builder
	for _, dir := range sortedDirs(groups) {
		if dir == "" {
			b.WriteString("\n**Root Directory:**\n")
		} else {
			fmt.Fprintf(&b, "\n**Directory: %s/**\n", dir)
		}
		entries := groups[dir]
		sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })
		for _, f := range entries {
			fmt.Fprintf(&b, "  - %s (%s)\n", path.Base(f.Path), f.Language)
		}
	}

	prompt := `Please generate a project overview based on the following list of files in the codebase.
Create a summary that discusses the likely purpose of the project, its structure,
and how the files might relate to each other.

Pay special attention to the directory structure and how it reflects the project's architecture.

Project file structure:
` + b.String() + `
Format your response as a comprehensive markdown document with sections for:
1. Project Purpose
2. Architecture Overview
3. Key Components
4. Directory Structure Analysis
5. Potential Dependencies and Technologies`

	return o.complete(ctx, prompt, overviewMaxTokens, "project")
}

// FromContent builds an overview from generated per-file documentation.
// Sentinel entries and failed units are ignored.
func (o *Overview) FromContent(ctx context.Context, docs map[string]Result, files []FileRecord, forceDirect bool) string {
	fileDocs := make(map[string]string)
	total := 0
	for key, r := range docs {
		if IsSentinelKey(key) || !r.Succeeded {
			continue
		}
		fileDocs[key] = r.Text
		total += len(r.Text)
	}
	if len(fileDocs) == 0 {
		return "No file documentation available for overview generation."
	}
	// Documents are joined by a blank line when estimating size.
	total += 2 * (len(fileDocs) - 1)

	dirOf := make(map[string]string, len(files))
	for _, f := range files {
		dirOf[f.Path] = f.Directory
	}

	tokens := EstimateTokens(total)
	strategy := ChooseOverviewStrategy(tokens, forceDirect)
	if forceDirect && tokens >= directThreshold {
		o.logger.Warn("forcing direct overview on a large corpus; expect higher cost and latency",
			"estimated_tokens", tokens)
	}
	o.logger.Info("building content overview", "strategy", string(strategy), "estimated_tokens", tokens, "files", len(fileDocs))

	switch strategy {
	case StrategySummaries:
		return o.withSummaries(ctx, fileDocs, dirOf)
	case StrategyHierarchical:
		return o.hierarchical(ctx, fileDocs, dirOf)
	default:
		return o.direct(ctx, fileDocs, dirOf)
	}
}

func (o *Overview) direct(ctx context.Context, fileDocs, dirOf map[string]string) string {
	var b strings.Builder
	groups := groupByDirectory(fileDocs, dirOf)
	for _, dir := range sortedDirs(groups) {
		writeDirHeading(&b, dir)
		for _, p := range groups[dir] {
			fmt.Fprintf(&b, "### %s\n%s\n\n", path.Base(p), TruncateContent(fileDocs[p], directExcerptChars))
		}
	}

	prompt := `Generate a comprehensive project overview based on the following detailed documentation
for each file in the codebase. Use the actual documentation content to understand the
project's purpose, architecture, and functionality.

` + b.String() + `
Based on this documentation, create a project overview with:
1. **Project Purpose** - What this project does and its main goals
2. **Architecture Overview** - How components work together
3. **Key Features** - Main functionality based on the documented code
4. **Technical Stack** - Technologies, frameworks, and patterns used
5. **Component Relationships** - How different parts interact
6. **Notable Implementation Details** - Interesting technical aspects
7. **Potential Improvements** - Only if there is an obvious or recurring issue

Format as a well-structured markdown document.`

	return o.complete(ctx, prompt, overviewMaxTokens, "content-based")
}

func (o *Overview) withSummaries(ctx context.Context, fileDocs, dirOf map[string]string) string {
	units := make([]FileRecord, 0, len(fileDocs))
	for _, p := range sortedPaths(fileDocs) {
		units = append(units, FileRecord{Path: p, Content: fileDocs[p], Directory: dirOf[p]})
	}

	summaries, err := o.exec.Execute(ctx, units, func(ctx context.Context, f FileRecord) Result {
		prompt := fmt.Sprintf(`Summarize the following file documentation in 2-3 sentences. Focus on:
- What this file does (purpose/responsibility)
- Key functions/classes it contains
- How it fits into the larger system

File: %s
Documentation:
%s

Provide a concise summary:`, path.Base(f.Path), TruncateContent(f.Content, summaryInputChars))
		return o.summarize(ctx, f.Path, prompt, "Summary generation failed for "+f.Path)
	}, nil)
	if err != nil {
		return fmt.Sprintf("Error generating summary-based overview: %v", err)
	}

	var b strings.Builder
	groups := groupByDirectory(fileDocs, dirOf)
	for _, dir := range sortedDirs(groups) {
		writeDirHeading(&b, dir)
		for _, p := range groups[dir] {
			fmt.Fprintf(&b, "**%s**: %s\n", path.Base(p), summaries[p].Text)
		}
	}

	prompt := `Generate a comprehensive project overview based on these file-by-file summaries
of the project's documentation:

` + b.String() + `
Synthesize these summaries into:
1. **Project Purpose** - Overall goal and domain
2. **System Architecture** - How components fit together
3. **Core Functionality** - Main features and capabilities
4. **Technology Stack** - Frameworks, libraries, and patterns
5. **Data Flow** - How information moves through the system
6. **Key Design Patterns** - Architectural approaches used

Focus on the big picture and relationships between components.`

	return o.complete(ctx, prompt, overviewMaxTokens, "summary-based")
}

func (o *Overview) hierarchical(ctx context.Context, fileDocs, dirOf map[string]string) string {
	groups := groupByDirectory(fileDocs, dirOf)
	dirs := sortedDirs(groups)

	units := make([]FileRecord, 0, len(dirs))
	for _, dir := range dirs {
		var b strings.Builder
		for _, p := range groups[dir] {
			fmt.Fprintf(&b, "**%s**: %s\n", path.Base(p), TruncateContent(fileDocs[p], directoryExcerptChars))
		}
		units = append(units, FileRecord{Path: dir, Content: b.String(), Directory: dir})
	}

	summaries, err := o.exec.Execute(ctx, units, func(ctx context.Context, f FileRecord) Result {
		name := directoryName(f.Path)
		prompt := fmt.Sprintf(`Summarize the purpose and functionality of the %q directory based on
its files' documentation. Focus on:
- What this directory's role is in the project
- Main functionality it provides
- How files work together within this directory

Files in %s:
%s

Provide a 3-4 sentence directory summary:`, name, name, f.Content)
		return o.summarize(ctx, f.Path, prompt, "Directory summary generation failed for "+name)
	}, nil)
	if err != nil {
		return fmt.Sprintf("Error generating hierarchical overview: %v", err)
	}

	parts := make([]string, 0, len(dirs))
	for _, dir := range dirs {
		parts = append(parts, fmt.Sprintf("**%s**: %s", directoryName(dir), summaries[dir].Text))
	}

	prompt := `Generate a high-level project overview based on these directory-level summaries:

` + strings.Join(parts, "\n\n") + `

Create an executive-level project overview that covers:
1. **Project Mission** - What problem this solves
2. **System Architecture** - Major components and their roles
3. **Technical Approach** - Key technologies and methodologies
4. **Feature Overview** - Main capabilities and functions
5. **Integration Points** - How different parts connect
6. **Scalability & Design** - Architectural decisions and patterns`

	return o.complete(ctx, prompt, overviewMaxTokens, "hierarchical")
}

// summarize performs one summary call, substituting fallback on failure.
func (o *Overview) summarize(ctx context.Context, key, prompt, fallback string) Result {
	ctx, cancel := o.unitTimeout(ctx)
	defer cancel()

	text, err := o.llm.Complete(ctx, prompt, summaryMaxTokens)
	if err != nil {
		o.logger.Warn("summary failed", "key", key, "error", err)
		return Result{Key: key, Text: fallback, Err: err.Error()}
	}
	return Result{Key: key, Text: strings.TrimSpace(text), Succeeded: true}
}

func (o *Overview) complete(ctx context.Context, prompt string, maxTokens int, kind string) string {
	ctx, cancel := o.unitTimeout(ctx)
	defer cancel()

	text, err := o.llm.Complete(ctx, prompt, maxTokens)
	if err != nil {
		o.logger.Warn("overview generation failed", "kind", kind, "error", err)
		return fmt.Sprintf("Error generating %s overview: %v", kind, err)
	}
	return text
}

// TruncateContent cuts content to at most maxChars characters, preferring the
// last sentence or line boundary past 70% of the limit.
func TruncateContent(content string, maxChars int) string {
	if utf8.RuneCountInString(content) <= maxChars {
		return content
	}
	cut, n := 0, 0
	for i := range content {
		if n == maxChars {
			cut = i
			break
		}
		n++
	}
	truncated := content[:cut]
	boundary := max(strings.LastIndex(truncated, "."), strings.LastIndex(truncated, "\n"))
	if boundary >= 0 && float64(utf8.RuneCountInString(truncated[:boundary])) > float64(maxChars)*0.7 {
		return truncated[:boundary+1] + "\n\n[Content truncated...]"
	}
	return truncated + "\n\n[Content truncated...]"
}

func groupByDirectory(docs, dirOf map[string]string) map[string][]string {
	groups := make(map[string][]string)
	for _, p := range sortedPaths(docs) {
		groups[dirOf[p]] = append(groups[dirOf[p]], p)
	}
	return groups
}

func writeDirHeading(b *strings.Builder, dir string) {
	if dir == "" {
		b.WriteString("\n## Root Directory\n\n")
		return
	}
	fmt.Fprintf(b, "\n## Directory: %s/\n\n", dir)
}

func directoryName(dir string) string {
	if dir == "" {
		return "Root"
	}
	return dir
}

func sortedPaths(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedDirs[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
