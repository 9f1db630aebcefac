package compiler

// Well-known form fields.
const (
	FieldModel           = "model"
	FieldModelName       = "model_name"
	FieldCustomModelName = "custom_model_name"
	FieldCustomProvider  = "custom_llm_provider"
	FieldBaseModel       = "base_model"
	FieldTeamID          = "team_id"
	FieldMode            = "mode"
	FieldExtraParams     = "llm_extra_params"
	FieldModelInfoParams = "model_info_params"
	FieldModelMappings   = "model_mappings"
	FieldCustomPricing   = "custom_pricing"
	FieldPricingModel    = "pricing_model"

	FieldInputCostPerToken  = "input_cost_per_token"
	FieldOutputCostPerToken = "output_cost_per_token"
	FieldInputCostPerSecond = "input_cost_per_second"
)

// WildcardSentinel is the model selection meaning "every model of the provider".
const WildcardSentinel = "all-wildcard"

// ModelMapping pairs the public name users select with the provider-side model.
type ModelMapping struct {
	PublicName   string `json:"public_name" yaml:"public_name"`
	BackingModel string `json:"llm_model" yaml:"llm_model"`
}

// ConnectionParameters are the backend-connection fields of a deployment.
// The "model" key is always present in a compiled request.
type ConnectionParameters map[string]any

// Model returns the backing model identifier, or "" if it is not a string.
func (c ConnectionParameters) Model() string {
	s, _ := c[FieldModel].(string)
	return s
}

// Provider returns the resolved provider token, if any.
func (c ConnectionParameters) Provider() string {
	s, _ := c[FieldCustomProvider].(string)
	return s
}

// ModelMetadata holds descriptive fields: base model family, owning team, mode.
type ModelMetadata map[string]any

// CompiledRequest is one model-create payload for the persistence backend.
type CompiledRequest struct {
	Name       string               `json:"model_name"`
	Connection ConnectionParameters `json:"llm_params"`
	Metadata   ModelMetadata        `json:"model_info"`
}

// ProviderTable resolves a human-facing provider name to its backend token.
type ProviderTable interface {
	Resolve(name string) (token string, ok bool)
}
