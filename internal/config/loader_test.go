package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, DefaultURL, cfg.Server.URL)
	assert.Equal(t, DefaultUsername, cfg.Server.Username)
	assert.Equal(t, DefaultTimeout, cfg.Server.Timeout)
	assert.Equal(t, DefaultExtension, cfg.Templates.Extension)
	assert.Equal(t, DefaultWorkers, cfg.Sync.Workers)
	assert.Equal(t, "ask", cfg.Sync.Prune)
	assert.False(t, cfg.Sync.Parallel)
	require.Len(t, cfg.Templates.Paths, 3)
	assert.NotContains(t, cfg.Templates.Paths[1], "~")
}

func TestLoad_WorkingDirectory(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte("sync: {parallel: true}\n"), 0644))

	cfg, err := Load("")
	require.NoError(t, err)
	assert.True(t, cfg.Sync.Parallel)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("JENKEY_TEST_TOKEN", "s3cret")
	path := writeConfig(t, `
server:
  url: https://ci.example.com/
  username: deploy
  tokenEnv: JENKEY_TEST_TOKEN
  timeout: 5s
templates:
  paths: [/srv/templates]
sync:
  parallel: true
  workers: 4
  prune: Never
manifests: ~/jobs
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	home, err := os.UserHomeDir()
	require.NoError(t, err)

	assert.Equal(t, "https://ci.example.com/", cfg.Server.URL)
	assert.Equal(t, "deploy", cfg.Server.Username)
	assert.Equal(t, "s3cret", cfg.Server.Token)
	assert.Equal(t, 5*time.Second, cfg.Server.Timeout)
	assert.Equal(t, []string{"/srv/templates"}, cfg.Templates.Paths)
	assert.Equal(t, DefaultExtension, cfg.Templates.Extension)
	assert.Equal(t, 4, cfg.Sync.Workers)
	assert.Equal(t, "never", cfg.Sync.Prune)
	assert.Equal(t, filepath.Join(home, "jobs"), cfg.Manifests)
}

func TestLoad_ExplicitTokenWins(t *testing.T) {
	t.Setenv("JENKEY_TEST_TOKEN", "from-env")
	path := writeConfig(t, "server: {token: inline, tokenEnv: JENKEY_TEST_TOKEN}\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "inline", cfg.Server.Token)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name      string
		content   string
		errorType string
		line      int
	}{
		{"unknown key", "server:\n  url: http://x/\n  password: p\n", "parse", 3},
		{"bad yaml", "server: [\n", "parse", 0},
		{"bad prune", "sync: {prune: sometimes}\n", "validation", 0},
		{"bad workers", "sync: {workers: 0}\n", "validation", 0},
		{"bad url", "server: {url: ftp://x/}\n", "validation", 0},
		{"bad timeout", "server: {timeout: soon}\n", "parse", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			require.Error(t, err)

			var cerr ConfigurationError
			require.True(t, errors.As(err, &cerr))
			assert.Equal(t, tt.errorType, cerr.ErrorType)
			if tt.line > 0 {
				assert.Equal(t, tt.line, cerr.LineNumber)
			}
			assert.NotEmpty(t, cerr.Suggestions)
			assert.Contains(t, cerr.DetailedError(), "Configuration Error")
		})
	}
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))

	var cerr ConfigurationError
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, "io", cerr.ErrorType)
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	assert.Equal(t, home, ExpandHome("~"))
	assert.Equal(t, filepath.Join(home, "a", "b"), ExpandHome("~/a/b"))
	assert.Equal(t, "~user/a", ExpandHome("~user/a"))
	assert.Equal(t, "./a", ExpandHome("./a"))
}
