package main

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

// resetGlobals restores the package-level flag variables after a test.
func resetGlobals(t *testing.T) {
	t.Helper()
	saved := struct {
		configPath, modelFlag, providerFlag string
		verbose                             bool
	}{configPath, modelFlag, providerFlag, verbose}
	t.Cleanup(func() {
		configPath, modelFlag, providerFlag, verbose =
			saved.configPath, saved.modelFlag, saved.providerFlag, saved.verbose
	})
}

// fakeLLM serves an OpenAI-compatible streaming endpoint that answers every
// request with the same text.
func fakeLLM(t *testing.T, text string) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprintf(w, "data: {\"choices\":[{\"index\":0,\"delta\":{\"content\":%q}}]}\n\n", text)
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

// writeTestConfig writes a config that points at baseURL and keeps history
// inside a temp dir. It returns the config path and the history path.
func writeTestConfig(t *testing.T, baseURL, executor string) (string, string) {
	t.Helper()
	dir := t.TempDir()
	history := filepath.Join(dir, "history.db")
	cfg := fmt.Sprintf(`
[provider]
default = "local"
model = "test-model"

[[provider.openai_compatible]]
name = "local"
base_url = %q
api_key_source = "config"
api_key = "test-key"

[generation]
executor = %q
batch_size = 2
max_workers = 2

[cache]
size = 0

[history]
path = %q
keep = 5
`, baseURL, executor, history)
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0o644))
	return path, history
}

func writeProject(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"main.py":         "print('hello')\n",
		"pkg/util.go":     "package pkg\n",
		"web/app.js":      "console.log(1)\n",
		"notes/ignore.me": "not source\n",
	}
	for name, content := range files {
		p := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
	return dir
}

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	root := newRootCmd()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), strings.TrimSpace(errOut.String()), err
}
