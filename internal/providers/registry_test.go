package providers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/af-corp/aegis-admin/internal/compiler"
	"github.com/af-corp/aegis-admin/internal/config"
)

var _ compiler.ProviderTable = (*Registry)(nil)

func TestDefault_ResolvesNamesAndTokens(t *testing.T) {
	r := Default()

	tests := []struct {
		name  string
		token string
	}{
		{"OpenAI", "openai"},
		{"openai", "openai"},
		{"OpenAI_Compatible", "openai"},
		{"Vertex_AI", "vertex_ai"},
		{"vertex_ai", "vertex_ai"},
		{"Google_AI_Studio", "gemini"},
	}
	for _, tt := range tests {
		got, ok := r.Resolve(tt.name)
		if assert.True(t, ok, tt.name) {
			assert.Equal(t, tt.token, got, tt.name)
		}
	}

	_, ok := r.Resolve("NotAProvider")
	assert.False(t, ok)
}

func TestBuildFromConfig(t *testing.T) {
	r := BuildFromConfig(&config.ProvidersConfig{
		Providers: map[string]config.ProviderEntry{
			"Internal vLLM": {Token: "hosted_vllm", Aliases: []string{"vllm"}},
			"openai":        {},
		},
	})

	tok, _ := r.Resolve("Internal vLLM")
	assert.Equal(t, "hosted_vllm", tok)
	tok, _ = r.Resolve("vllm")
	assert.Equal(t, "hosted_vllm", tok, "alias")
	tok, _ = r.Resolve("openai")
	assert.Equal(t, "openai", tok, "token defaults to the name")
	_, ok := r.Resolve("Anthropic")
	assert.False(t, ok, "configured table replaces the built-in one")

	list := r.List()
	require.Len(t, list, 2)
	assert.Equal(t, "Internal vLLM", list[0].Name)
}

func TestBuildFromConfig_EmptyUsesDefault(t *testing.T) {
	r := BuildFromConfig(&config.ProvidersConfig{})
	_, ok := r.Resolve("Anthropic")
	assert.True(t, ok)
}

func TestRegister_SameNameUpdatesToken(t *testing.T) {
	r := NewRegistry()
	r.Register("Acme", "acme_v1")
	r.Register("Acme", "acme_v2")

	tok, _ := r.Resolve("Acme")
	assert.Equal(t, "acme_v2", tok)
	assert.Equal(t, []Provider{{Name: "Acme", Token: "acme_v2"}}, r.List())
}

func TestRegister_NameEqualToExistingToken(t *testing.T) {
	r := NewRegistry()
	r.Register("OpenAI", "openai")
	r.Register("openai", "openai")

	assert.Equal(t, []Provider{
		{Name: "OpenAI", Token: "openai"},
		{Name: "openai", Token: "openai"},
	}, r.List())
}

func TestReplace(t *testing.T) {
	r := Default()
	next := NewRegistry()
	next.Register("Only", "only")

	r.Replace(next)

	_, ok := r.Resolve("OpenAI")
	assert.False(t, ok, "old entries are gone after Replace")
	tok, ok := r.Resolve("Only")
	assert.True(t, ok)
	assert.Equal(t, "only", tok)
	assert.Equal(t, []Provider{{Name: "Only", Token: "only"}}, r.List())
}
