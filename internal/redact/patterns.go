package redact

import "regexp"

// Pattern defines a secret detection pattern.
type Pattern struct {
	Name  string
	Regex *regexp.Regexp
}

// DefaultPatterns returns the built-in secret value patterns.
func DefaultPatterns() []Pattern {
	return []Pattern{
		{
			Name:  "Anthropic API Key",
			Regex: regexp.MustCompile(`sk-ant-[A-Za-z0-9\-_]{20,}`),
		},
		{
			Name:  "OpenAI API Key",
			Regex: regexp.MustCompile(`sk-(?:proj-)?[A-Za-z0-9\-_]{20,}`),
		},
		{
			Name:  "AWS Access Key",
			Regex: regexp.MustCompile(`AKIA[0-9A-Z]{16}`),
		},
		{
			Name:  "Google API Key",
			Regex: regexp.MustCompile(`AIza[0-9A-Za-z\-_]{35}`),
		},
		{
			Name:  "GCP Service Account Key",
			Regex: regexp.MustCompile(`"private_key":\s*"-----BEGIN`),
		},
		{
			Name:  "Private Key",
			Regex: regexp.MustCompile(`-----BEGIN (?:RSA |EC |DSA )?PRIVATE KEY-----`),
		},
		{
			Name:  "Connection String",
			Regex: regexp.MustCompile(`(?:postgres|mysql|mongodb|redis)://[^\s]+`),
		},
		{
			Name:  "JWT Token",
			Regex: regexp.MustCompile(`eyJ[A-Za-z0-9\-_]+\.eyJ[A-Za-z0-9\-_]+\.[A-Za-z0-9\-_]+`),
		},
	}
}

// credentialKeys are connection parameters that always hold a secret.
var credentialKeys = map[string]bool{
	"api_key":               true,
	"aws_access_key_id":     true,
	"aws_secret_access_key": true,
	"aws_session_token":     true,
	"azure_ad_token":        true,
	"client_secret":         true,
	"vertex_credentials":    true,
	"watsonx_api_key":       true,
}
