package types

import (
	"time"

	"github.com/af-corp/aegis-admin/internal/compiler"
	"github.com/af-corp/aegis-admin/internal/notify"
	"github.com/af-corp/aegis-admin/internal/providers"
)

// CompileResponse is returned by the dry-run endpoint. Credentials in the
// compiled requests are masked.
type CompileResponse struct {
	RequestID string                     `json:"request_id"`
	Count     int                        `json:"count"`
	Requests  []compiler.CompiledRequest `json:"requests"`
}

// SubmitResponse reports what a submission persisted. Failed is set when the
// backend rejected a request; requests after it were not attempted.
type SubmitResponse struct {
	RequestID   string             `json:"request_id"`
	Mode        string             `json:"mode"`
	Compiled    int                `json:"compiled"`
	Deployments []DeploymentResult `json:"deployments"`
	Failed      *SubmitFailure     `json:"failed,omitempty"`
}

type DeploymentResult struct {
	ModelName string    `json:"model_name"`
	ModelID   string    `json:"model_id"`
	Backend   string    `json:"backend"`
	CreatedAt time.Time `json:"created_at"`
}

type SubmitFailure struct {
	ModelName  string `json:"model_name"`
	StatusCode int    `json:"status_code,omitempty"`
	Message    string `json:"message"`
}

type ProviderListResponse struct {
	Object string               `json:"object"`
	Data   []providers.Provider `json:"data"`
}

type NotificationListResponse struct {
	Object string                `json:"object"`
	Data   []notify.Notification `json:"data"`
}
