package config

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("TEST_VAR", "hello")

	tests := []struct {
		input    string
		expected string
	}{
		{"${TEST_VAR}", "hello"},
		{"${TEST_VAR:default}", "hello"},
		{"${UNSET_VAR:fallback}", "fallback"},
		{"${UNSET_VAR}", ""},
		{"no vars here", "no vars here"},
		{"prefix-${TEST_VAR}-suffix", "prefix-hello-suffix"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, expandEnvVars(tt.input), tt.input)
	}
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func TestLoadFile_YAML(t *testing.T) {
	p := writeFile(t, t.TempDir(), "admin.yaml", `
server:
  host: "0.0.0.0"
  port: 9999
backend:
  kind: postgres
`)

	cfg := DefaultConfig()
	require.NoError(t, LoadFile(p, cfg))

	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, "postgres", cfg.Backend.Kind)
	assert.Equal(t, SubmitAll, cfg.Submit.Mode, "defaults survive the overlay")
}

func TestLoadFile_WithEnvVars(t *testing.T) {
	t.Setenv("TEST_PORT", "7777")

	p := writeFile(t, t.TempDir(), "admin.yaml", `
server:
  host: "${TEST_HOST:127.0.0.1}"
  port: ${TEST_PORT}
`)

	var cfg Config
	require.NoError(t, LoadFile(p, &cfg))
	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, 7777, cfg.Server.Port)
}

func TestLoadFile_UnsupportedExtension(t *testing.T) {
	p := writeFile(t, t.TempDir(), "admin.ini", "port=1")
	var cfg Config
	assert.Error(t, LoadFile(p, &cfg))
}

func TestLoadFile_BundledConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, LoadFile(filepath.Join("..", "..", "configs", "admin.yaml"), cfg))
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "/model/new", cfg.Backend.CreatePath)
}

func TestLoadProviders_TOML(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "providers.toml", `
[providers.OpenAI]
token = "openai"

[providers."Internal vLLM"]
token = "hosted_vllm"
aliases = ["vllm"]
`)

	providers, err := LoadProviders(dir)
	require.NoError(t, err)
	assert.Equal(t, "hosted_vllm", providers.Providers["Internal vLLM"].Token)
	assert.Equal(t, []string{"vllm"}, providers.Providers["Internal vLLM"].Aliases)
}

func TestLoadProviders_YAMLPreferred(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "providers.yaml", "providers:\n  Anthropic:\n    token: anthropic\n")
	writeFile(t, dir, "providers.toml", "[providers.OpenAI]\ntoken = \"openai\"\n")

	providers, err := LoadProviders(dir)
	require.NoError(t, err)
	assert.Contains(t, providers.Providers, "Anthropic")
	assert.NotContains(t, providers.Providers, "OpenAI")
}

func TestLoadProviders_Missing(t *testing.T) {
	providers, err := LoadProviders(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, providers.Providers)
}

func TestLoader_Load(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "admin.yaml", "submit:\n  mode: first\n")
	writeFile(t, dir, "providers.yaml", "providers:\n  OpenAI:\n    token: openai\n")

	l := NewLoader(dir, discardLogger())
	require.NoError(t, l.Load())
	assert.Equal(t, SubmitFirst, l.Config().Submit.Mode)
	assert.Equal(t, "openai", l.Providers().Providers["OpenAI"].Token)
}

func TestLoader_LoadRejectsInvalidMode(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "admin.yaml", "submit:\n  mode: some\n")

	l := NewLoader(dir, discardLogger())
	assert.Error(t, l.Load())
}

func TestLoader_ReloadNotifiesWatchers(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "admin.yaml", "submit:\n  mode: all\n")

	l := NewLoader(dir, discardLogger())
	require.NoError(t, l.Load())

	calls := 0
	l.OnReload(func() { calls++ })

	writeFile(t, dir, "admin.yaml", "submit:\n  mode: first\n")
	l.reload()
	assert.Equal(t, 1, calls)
	assert.Equal(t, SubmitFirst, l.Config().Submit.Mode)

	writeFile(t, dir, "admin.yaml", "submit:\n  mode: bogus\n")
	l.reload()
	assert.Equal(t, 1, calls, "a failed reload keeps the old config")
	assert.Equal(t, SubmitFirst, l.Config().Submit.Mode)
}
