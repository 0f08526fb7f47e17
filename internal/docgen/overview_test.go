package docgen

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// promptRecorder records every prompt and answers with canned text.
type promptRecorder struct {
	mu      sync.Mutex
	prompts []string
	tokens  []int
	failIf  func(prompt string) bool
}

func (p *promptRecorder) Complete(ctx context.Context, prompt string, maxTokens int) (string, error) {
	p.mu.Lock()
	p.prompts = append(p.prompts, prompt)
	p.tokens = append(p.tokens, maxTokens)
	p.mu.Unlock()
	if p.failIf != nil && p.failIf(prompt) {
		return "", errors.New("quota exceeded")
	}
	return "  overview text  ", nil
}

func (p *promptRecorder) last() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.prompts[len(p.prompts)-1]
}

func newTestOverview(t *testing.T, llm LLMCompleter) *Overview {
	t.Helper()
	exec, err := NewPoolExecutor(3)
	require.NoError(t, err)
	return NewOverview(llm, exec, nil, nil)
}

func docsOfSize(n, size int) (map[string]Result, []FileRecord) {
	docs := make(map[string]Result, n)
	files := make([]FileRecord, n)
	for i := range n {
		dir := fmt.Sprintf("dir%d", i%3)
		p := fmt.Sprintf("%s/f%03d.go", dir, i)
		files[i] = FileRecord{Path: p, Language: "Go", Directory: dir}
		docs[p] = Result{Key: p, Text: strings.Repeat("x", size), Succeeded: true}
	}
	return docs, files
}

func TestChooseOverviewStrategy(t *testing.T) {
	assert.Equal(t, StrategyDirect, ChooseOverviewStrategy(0, false))
	assert.Equal(t, StrategyDirect, ChooseOverviewStrategy(14999, false))
	assert.Equal(t, StrategySummaries, ChooseOverviewStrategy(15000, false))
	assert.Equal(t, StrategySummaries, ChooseOverviewStrategy(49999, false))
	assert.Equal(t, StrategyHierarchical, ChooseOverviewStrategy(50000, false))
	assert.Equal(t, StrategyDirect, ChooseOverviewStrategy(1_000_000, true))
	assert.Equal(t, 5, EstimateTokens(15))
}

func TestTruncateContent(t *testing.T) {
	assert.Equal(t, "short", TruncateContent("short", 10))

	// Sentence boundary beyond 70% of the limit is preferred.
	text := "abcdefgh. tail that is cut"
	assert.Equal(t, "abcdefgh.\n\n[Content truncated...]", TruncateContent(text, 11))

	// A boundary too early is ignored.
	text = "ab. cdefghijklmnop"
	assert.Equal(t, "ab. cdefghi\n\n[Content truncated...]", TruncateContent(text, 11))

	// Newlines count as boundaries.
	text = "abcdefgh\nijklmnop"
	assert.Equal(t, "abcdefgh\n\n\n[Content truncated...]", TruncateContent(text, 10))
}

func TestTruncateContentCountsCharacters(t *testing.T) {
	accented := strings.Repeat("é", 600)
	assert.Equal(t, accented, TruncateContent(accented, 1001))

	got := TruncateContent(strings.Repeat("é", 20), 11)
	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, strings.Repeat("é", 11)+"\n\n[Content truncated...]", got)

	// Boundary position is measured in characters, not bytes.
	got = TruncateContent("日本語.のドキュメント続き", 10)
	assert.Equal(t, "日本語.のドキュメン\n\n[Content truncated...]", got)
	assert.True(t, utf8.ValidString(got))
}

func TestFromContentNoDocs(t *testing.T) {
	llm := &promptRecorder{}
	o := newTestOverview(t, llm)

	docs := map[string]Result{
		KeyDirectoryStructure: {Text: "tree", Succeeded: true},
		"a.go":                {Text: "Error generating documentation: x"},
	}
	got := o.FromContent(context.Background(), docs, nil, false)
	assert.Equal(t, "No file documentation available for overview generation.", got)
	assert.Empty(t, llm.prompts)
}

func TestFromContentDirect(t *testing.T) {
	llm := &promptRecorder{}
	o := newTestOverview(t, llm)

	docs := map[string]Result{
		"main.go":     {Text: "Main docs.", Succeeded: true},
		"pkg/util.go": {Text: strings.Repeat("u", 1500), Succeeded: true},
		"pkg/bad.go":  {Text: "Error generating documentation: boom"},
	}
	files := []FileRecord{
		{Path: "main.go", Directory: ""},
		{Path: "pkg/util.go", Directory: "pkg"},
		{Path: "pkg/bad.go", Directory: "pkg"},
	}

	got := o.FromContent(context.Background(), docs, files, false)
	assert.Equal(t, "  overview text  ", got)
	require.Len(t, llm.prompts, 1)
	prompt := llm.last()
	assert.Contains(t, prompt, "## Root Directory")
	assert.Contains(t, prompt, "### main.go\nMain docs.")
	assert.Contains(t, prompt, "## Directory: pkg/")
	assert.Contains(t, prompt, "[Content truncated...]")
	assert.NotContains(t, prompt, "bad.go")
	assert.Equal(t, []int{overviewMaxTokens}, llm.tokens)
}

func TestFromContentSummaries(t *testing.T) {
	// 20 docs of 3000 chars is roughly 20000 estimated tokens.
	docs, files := docsOfSize(20, 3000)
	llm := &promptRecorder{failIf: func(p string) bool {
		return strings.Contains(p, "File: f005.go")
	}}
	o := newTestOverview(t, llm)

	got := o.FromContent(context.Background(), docs, files, false)
	assert.Equal(t, "  overview text  ", got)
	require.Len(t, llm.prompts, 21)

	final := llm.last()
	assert.Contains(t, final, "file-by-file summaries")
	assert.Contains(t, final, "**f000.go**: overview text")
	assert.Contains(t, final, "**f005.go**: Summary generation failed for dir2/f005.go")

	summaryCalls := 0
	for _, tok := range llm.tokens {
		if tok == summaryMaxTokens {
			summaryCalls++
		}
	}
	assert.Equal(t, 20, summaryCalls)
}

func TestFromContentHierarchical(t *testing.T) {
	// 60 docs of 3000 chars is roughly 60000 estimated tokens.
	docs, files := docsOfSize(60, 3000)
	llm := &promptRecorder{failIf: func(p string) bool {
		return strings.Contains(p, `"dir1" directory`)
	}}
	o := newTestOverview(t, llm)

	got := o.FromContent(context.Background(), docs, files, false)
	assert.Equal(t, "  overview text  ", got)
	// One summary per directory plus the synthesis.
	require.Len(t, llm.prompts, 4)

	final := llm.last()
	assert.Contains(t, final, "directory-level summaries")
	assert.Contains(t, final, "**dir0**: overview text")
	assert.Contains(t, final, "**dir1**: Directory summary generation failed for dir1")
}

func TestFromContentForceDirect(t *testing.T) {
	docs, files := docsOfSize(60, 3000)
	llm := &promptRecorder{}
	o := newTestOverview(t, llm)

	o.FromContent(context.Background(), docs, files, true)
	require.Len(t, llm.prompts, 1)
	assert.Contains(t, llm.last(), "detailed documentation\nfor each file")
}

func TestFromContentFailureIsAbsorbed(t *testing.T) {
	llm := &promptRecorder{failIf: func(string) bool { return true }}
	o := newTestOverview(t, llm)

	docs := map[string]Result{"a.go": {Text: "A", Succeeded: true}}
	got := o.FromContent(context.Background(), docs, []FileRecord{{Path: "a.go"}}, false)
	assert.Equal(t, "Error generating content-based overview: quota exceeded", got)
}

func TestFromMetadata(t *testing.T) {
	llm := &promptRecorder{}
	o := newTestOverview(t, llm)

	files := []FileRecord{
		{Path: "src/b.js", Language: "JavaScript", Directory: "src"},
		{Path: "main.py", Language: "Python"},
		{Path: "src/a.js", Language: "JavaScript", Directory: "src"},
	}
	got := o.FromMetadata(context.Background(), files)
	assert.Equal(t, "  overview text  ", got)

	prompt := llm.last()
	assert.Contains(t, prompt, "**Root Directory:**\n  - main.py (Python)\n")
	assert.Contains(t, prompt, "**Directory: src/**\n  - a.js (JavaScript)\n  - b.js (JavaScript)\n")
}

func TestFromMetadataFailure(t *testing.T) {
	llm := &promptRecorder{failIf: func(string) bool { return true }}
	o := newTestOverview(t, llm)

	got := o.FromMetadata(context.Background(), []FileRecord{{Path: "a.go"}})
	assert.Equal(t, "Error generating project overview: quota exceeded", got)
}
