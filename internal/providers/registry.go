package providers

import (
	"sort"
	"sync"

	"github.com/af-corp/aegis-admin/internal/config"
)

// Provider is one entry of the provider table shown in the add-model form.
type Provider struct {
	Name  string `json:"name"`
	Token string `json:"token"`
}

// Registry maps human-facing provider names to backend provider tokens.
// Every token also resolves to itself.
type Registry struct {
	mu      sync.RWMutex
	byName  map[string]string
	ordered []Provider
}

func NewRegistry() *Registry {
	return &Registry{
		byName: make(map[string]string),
	}
}

// Register adds a provider name, its aliases, and the token itself.
func (r *Registry) Register(name, token string, aliases ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.register(name, token, aliases)
}

func (r *Registry) register(name, token string, aliases []string) {
	if i := r.indexOf(name); i >= 0 {
		r.ordered[i].Token = token
	} else {
		r.ordered = append(r.ordered, Provider{Name: name, Token: token})
	}
	r.byName[name] = token
	for _, a := range aliases {
		r.byName[a] = token
	}
	if _, taken := r.byName[token]; !taken {
		r.byName[token] = token
	}
}

func (r *Registry) indexOf(name string) int {
	for i, p := range r.ordered {
		if p.Name == name {
			return i
		}
	}
	return -1
}

// Resolve implements compiler.ProviderTable.
func (r *Registry) Resolve(name string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.byName[name]
	return t, ok
}

// List returns the registered providers sorted by name.
func (r *Registry) List() []Provider {
	r.mu.RLock()
	out := make([]Provider, len(r.ordered))
	copy(out, r.ordered)
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Replace swaps the registry contents with those of other.
func (r *Registry) Replace(other *Registry) {
	other.mu.RLock()
	byName := make(map[string]string, len(other.byName))
	for k, v := range other.byName {
		byName[k] = v
	}
	ordered := make([]Provider, len(other.ordered))
	copy(ordered, other.ordered)
	other.mu.RUnlock()

	r.mu.Lock()
	r.byName = byName
	r.ordered = ordered
	r.mu.Unlock()
}

// BuildFromConfig builds a registry from the providers config. An empty
// config yields the built-in table.
func BuildFromConfig(provCfg *config.ProvidersConfig) *Registry {
	if provCfg == nil || len(provCfg.Providers) == 0 {
		return Default()
	}
	registry := NewRegistry()
	names := make([]string, 0, len(provCfg.Providers))
	for name := range provCfg.Providers {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		entry := provCfg.Providers[name]
		token := entry.Token
		if token == "" {
			token = name
		}
		registry.Register(name, token, entry.Aliases...)
	}
	return registry
}

// Default returns the built-in provider table.
func Default() *Registry {
	registry := NewRegistry()
	for _, p := range builtin {
		registry.Register(p.Name, p.Token)
	}
	return registry
}

var builtin = []Provider{
	{Name: "OpenAI", Token: "openai"},
	{Name: "OpenAI_Compatible", Token: "openai"},
	{Name: "OpenAI_Text", Token: "text-completion-openai"},
	{Name: "Azure", Token: "azure"},
	{Name: "Azure_AI_Studio", Token: "azure_ai"},
	{Name: "Anthropic", Token: "anthropic"},
	{Name: "Vertex_AI", Token: "vertex_ai"},
	{Name: "Google_AI_Studio", Token: "gemini"},
	{Name: "Bedrock", Token: "bedrock"},
	{Name: "Groq", Token: "groq"},
	{Name: "MistralAI", Token: "mistral"},
	{Name: "Deepseek", Token: "deepseek"},
	{Name: "Cohere", Token: "cohere_chat"},
	{Name: "Databricks", Token: "databricks"},
	{Name: "Ollama", Token: "ollama"},
	{Name: "xAI", Token: "xai"},
	{Name: "Cerebras", Token: "cerebras"},
	{Name: "Sambanova", Token: "sambanova"},
	{Name: "Perplexity", Token: "perplexity"},
	{Name: "TogetherAI", Token: "together_ai"},
	{Name: "Openrouter", Token: "openrouter"},
	{Name: "FireworksAI", Token: "fireworks_ai"},
}
