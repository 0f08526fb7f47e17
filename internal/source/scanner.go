// Package source turns a directory tree into the ordered FileRecords a
// documentation run consumes.
package source

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/julianshen/autodoc/internal/docgen"
)

// ErrTooManyFiles is returned when a tree holds more supported files than the
// configured ceiling.
var ErrTooManyFiles = errors.New("too many files")

// languages maps file extensions to display language names.
var languages = map[string]string{
	".py":    "Python",
	".js":    "JavaScript",
	".ts":    "TypeScript",
	".java":  "Java",
	".cpp":   "C++",
	".c":     "C",
	".cs":    "C#",
	".go":    "Go",
	".rb":    "Ruby",
	".php":   "PHP",
	".swift": "Swift",
	".rs":    "Rust",
	".html":  "HTML",
	".css":   "CSS",
	".sql":   "SQL",
	".sh":    "Shell",
	".yaml":  "YAML",
	".yml":   "YAML",
	".json":  "JSON",
	".md":    "Markdown",
}

// skipDirs contains directory names that should be excluded from scanning.
var skipDirs = map[string]bool{
	"vendor":       true,
	"node_modules": true,
	".git":         true,
	"build":        true,
	"dist":         true,
	"__pycache__":  true,
}

// Options bounds a scan. Zero values mean no limit.
type Options struct {
	MaxFileSize int64
	MaxFiles    int
	Logger      *slog.Logger
}

// LanguageFor returns the language for path's extension and whether it is
// supported.
func LanguageFor(p string) (string, bool) {
	lang, ok := languages[strings.ToLower(filepath.Ext(p))]
	return lang, ok
}

// SupportedExtensions returns the recognised extensions, sorted.
func SupportedExtensions() []string {
	exts := make([]string, 0, len(languages))
	for ext := range languages {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// Scan reads every supported file under dir. It uses git ls-files when dir is
// inside a git repository and falls back to filepath.WalkDir otherwise.
// Oversized and non-UTF-8 files are skipped. Records are sorted by path.
func Scan(ctx context.Context, dir string, opts Options) ([]docgen.FileRecord, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("reading source directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("source %s is not a directory", dir)
	}

	relPaths, err := listFiles(ctx, dir, logger)
	if err != nil {
		return nil, fmt.Errorf("listing files: %w", err)
	}
	sort.Strings(relPaths)

	var records []docgen.FileRecord
	for _, rel := range relPaths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		rel = filepath.ToSlash(rel)
		if shouldSkip(rel) {
			continue
		}
		lang, ok := LanguageFor(rel)
		if !ok {
			continue
		}

		absPath := filepath.Join(dir, filepath.FromSlash(rel))
		fi, err := os.Stat(absPath)
		if err != nil {
			logger.Warn("skipping missing file", "path", rel, "error", err)
			continue
		}
		if fi.IsDir() {
			continue
		}
		if opts.MaxFileSize > 0 && fi.Size() > opts.MaxFileSize {
			logger.Info("skipping oversized file", "path", rel, "size", fi.Size())
			continue
		}

		content, err := os.ReadFile(absPath)
		if err != nil {
			logger.Warn("skipping unreadable file", "path", rel, "error", err)
			continue
		}
		if !utf8.Valid(content) {
			logger.Info("skipping non-UTF-8 file", "path", rel)
			continue
		}

		if opts.MaxFiles > 0 && len(records) >= opts.MaxFiles {
			return nil, fmt.Errorf("%w: more than %d supported files", ErrTooManyFiles, opts.MaxFiles)
		}

		records = append(records, docgen.FileRecord{
			Path:      rel,
			Content:   string(content),
			Language:  lang,
			Directory: directoryOf(rel),
		})
	}

	logger.Debug("scan complete", "dir", dir, "files", len(records))
	return records, nil
}

// listFiles returns relative file paths under dir. It tries git ls-files
// first; if dir is not a git repo it falls back to filepath.WalkDir.
func listFiles(ctx context.Context, dir string, logger *slog.Logger) ([]string, error) {
	paths, err := gitLsFiles(ctx, dir)
	if err == nil {
		return paths, nil
	}
	logger.Debug("git ls-files unavailable, walking tree", "error", err)
	return walkFiles(dir, logger)
}

// gitLsFiles runs "git ls-files -z" in dir and returns the tracked paths.
// NUL separation keeps non-ASCII names unquoted.
func gitLsFiles(ctx context.Context, dir string) ([]string, error) {
	cmd := exec.CommandContext(ctx, "git", "ls-files", "-z")
	cmd.Dir = dir
	out, err := cmd.Output()
	if err != nil {
		return nil, err
	}

	var paths []string
	for p := range bytes.SplitSeq(out, []byte{0}) {
		if len(p) > 0 {
			paths = append(paths, string(p))
		}
	}
	return paths, nil
}

// walkFiles lists all files under dir, pruning skipDirs.
func walkFiles(dir string, logger *slog.Logger) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			logger.Warn("skipping path", "path", p, "error", err)
			return nil
		}
		if d.IsDir() {
			if p != dir && skipDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		paths = append(paths, rel)
		return nil
	})
	return paths, err
}

// shouldSkip reports whether relPath lies inside an excluded directory.
func shouldSkip(relPath string) bool {
	parts := strings.Split(relPath, "/")
	for _, part := range parts[:len(parts)-1] {
		if skipDirs[part] {
			return true
		}
	}
	return false
}

func directoryOf(relPath string) string {
	d := path.Dir(relPath)
	if d == "." {
		return ""
	}
	return d
}
