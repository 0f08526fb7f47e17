package docgen

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"text/template"
	"time"
)

// Output token ceilings per detail level.
const (
	basicMaxTokens         = 2048
	comprehensiveMaxTokens = 4096
	expertMaxTokens        = 8192
)

var detailInstructions = map[DetailLevel]string{
	DetailBasic:         "Provide a basic overview with essential information only.",
	DetailComprehensive: "Provide comprehensive documentation with a good balance of detail.",
	DetailExpert:        "Provide extremely detailed documentation with advanced insights and best practices.",
}

var languageHints = map[string]string{
	"Python": `For Python files, also include:
- Docstring format compliance (Google style, NumPy, etc.)
- Type hints usage
- Recommended improvements to code organization`,
	"JavaScript": `For JavaScript files, also include:
- ES6+ feature usage
- Module pattern analysis
- Potential browser compatibility issues`,
	"TypeScript": `For TypeScript files, also include:
- Type system usage analysis
- Interface and type definitions overview
- Compilation target considerations`,
	"Java": `For Java files, also include:
- Class hierarchy analysis
- Design patterns used
- Exception handling overview`,
}

var fileDocTmpl = template.Must(template.New("file").Parse(
	`Please generate {{.Level}} documentation for the following {{.Language}} file.
{{.Instruction}}

Include:
1. Overall purpose and functionality
2. Detailed function/class documentation with parameters and return values
3. Code structure overview
4. Dependencies and requirements
5. Usage examples where appropriate
6. Potential issues or areas for improvement
{{if .Hint}}
{{.Hint}}
{{end}}
File: {{.Path}}

` + "```{{.Fence}}\n{{.Content}}\n```" + `

Format the documentation in clean, well-structured markdown.`))

// normalizeLevel maps unknown levels to the default level.
func normalizeLevel(level DetailLevel) DetailLevel {
	if _, ok := detailInstructions[level]; ok {
		return level
	}
	return DetailComprehensive
}

// maxTokensFor returns the output token ceiling for level.
func maxTokensFor(level DetailLevel) int {
	switch normalizeLevel(level) {
	case DetailBasic:
		return basicMaxTokens
	case DetailExpert:
		return expertMaxTokens
	default:
		return comprehensiveMaxTokens
	}
}

// buildFilePrompt renders the documentation prompt for one file.
func buildFilePrompt(f FileRecord, level DetailLevel) (string, error) {
	level = normalizeLevel(level)
	lang := f.Language
	if lang == "" {
		lang = "Unknown"
	}

	var buf bytes.Buffer
	err := fileDocTmpl.Execute(&buf, struct {
		Level       DetailLevel
		Language    string
		Instruction string
		Hint        string
		Path        string
		Fence       string
		Content     string
	}{
		Level:       level,
		Language:    lang,
		Instruction: detailInstructions[level],
		Hint:        languageHints[lang],
		Path:        f.Path,
		Fence:       strings.ToLower(lang),
		Content:     f.Content,
	})
	if err != nil {
		return "", fmt.Errorf("rendering prompt: %w", err)
	}
	return buf.String(), nil
}

// GenerateFile documents one file with exactly one remote call. It never
// returns an error: any failure is folded into a Result with
// Succeeded=false and an error message in Text.
func GenerateFile(ctx context.Context, llm LLMCompleter, f FileRecord, level DetailLevel, timeout time.Duration) (res Result) {
	res = Result{Key: f.Path}
	defer func() {
		if r := recover(); r != nil {
			res = failedResult(f.Path, fmt.Errorf("panic: %v", r))
		}
	}()

	prompt, err := buildFilePrompt(f, level)
	if err != nil {
		return failedResult(f.Path, err)
	}

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	text, err := llm.Complete(ctx, prompt, maxTokensFor(level))
	if err != nil {
		return failedResult(f.Path, err)
	}

	res.Text = text
	res.Succeeded = true
	return res
}

func failedResult(key string, err error) Result {
	return Result{
		Key:  key,
		Text: fmt.Sprintf("Error generating documentation: %v", err),
		Err:  err.Error(),
	}
}
