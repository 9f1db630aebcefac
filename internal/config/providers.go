package config

// ProvidersConfig is the provider table offered by the add-model form, keyed by
// the display name the form submits.
type ProvidersConfig struct {
	Providers map[string]ProviderEntry `yaml:"providers" toml:"providers"`
}

type ProviderEntry struct {
	Token   string   `yaml:"token" toml:"token"`
	Aliases []string `yaml:"aliases,omitempty" toml:"aliases,omitempty"`
}
