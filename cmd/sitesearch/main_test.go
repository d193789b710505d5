package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestRunRejectsInvalidConfig(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, "search:\n  workers: 0\n")
	var stderr bytes.Buffer
	require.Equal(t, 1, run(context.Background(), []string{"-config", path}, &stderr))
	require.Contains(t, stderr.String(), "search.workers")
}

func TestRunRejectsUnknownFlag(t *testing.T) {
	t.Parallel()

	var stderr bytes.Buffer
	require.Equal(t, 1, run(context.Background(), []string{"-nope"}, &stderr))
}

func TestRunStaticListWritesResults(t *testing.T) {
	t.Parallel()

	out := filepath.Join(t.TempDir(), "results.txt")
	path := writeConfig(t, `
search:
  workers: 2
http:
  timeout_ms: 500
output:
  path: `+out+`
source:
  urls:
    - "not a url"
logging:
  development: false
`)
	var stderr bytes.Buffer
	require.Equal(t, 0, run(context.Background(), []string{"-config", path}, &stderr))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	require.Equal(t, "not a url: InvalidURL", strings.TrimSpace(string(data)))
}

func TestRunExitsNonZeroWhenListFails(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "unavailable", http.StatusInternalServerError)
	}))
	defer srv.Close()

	out := filepath.Join(t.TempDir(), "results.txt")
	require.NoError(t, os.WriteFile(out, []byte("kept\n"), 0o600))
	path := writeConfig(t, `
search:
  workers: 2
http:
  timeout_ms: 2000
output:
  path: `+out+`
source:
  url: `+srv.URL+`/list
logging:
  development: false
`)
	var stderr bytes.Buffer
	require.Equal(t, 1, run(context.Background(), []string{"-config", path}, &stderr))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	require.Equal(t, "kept\n", string(data))
}
