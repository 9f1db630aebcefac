// Package store persists compiled model-create payloads.
package store

import (
	"context"
	"time"

	"github.com/af-corp/aegis-admin/internal/compiler"
)

// Deployment is a model deployment the backend accepted.
type Deployment struct {
	ID        string    `json:"model_id"`
	Name      string    `json:"model_name"`
	Backend   string    `json:"backend"`
	CreatedAt time.Time `json:"created_at"`
}

// Store accepts one compiled request and returns the created deployment or a
// remote error. Retries are the caller's decision.
type Store interface {
	CreateModel(ctx context.Context, req compiler.CompiledRequest) (*Deployment, error)
	Backend() string
}
