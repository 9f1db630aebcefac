package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/af-corp/aegis-admin/internal/compiler"
)

const uniqueViolation = "23505"

// querier is the part of *pgxpool.Pool the store needs.
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore writes deployments straight into the model_deployments table.
type PostgresStore struct {
	db querier
}

func NewPostgresStore(db querier) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Backend() string { return "postgres" }

func (s *PostgresStore) CreateModel(ctx context.Context, req compiler.CompiledRequest) (*Deployment, error) {
	params, err := json.Marshal(req.Connection)
	if err != nil {
		return nil, fmt.Errorf("marshal llm_params: %w", err)
	}
	info, err := json.Marshal(req.Metadata)
	if err != nil {
		return nil, fmt.Errorf("marshal model_info: %w", err)
	}

	id := uuid.New()
	var createdAt time.Time
	err = s.db.QueryRow(ctx, `
		INSERT INTO model_deployments (id, model_name, backing_model, provider, llm_params, model_info)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`, id, req.Name, req.Connection.Model(), req.Connection.Provider(), params, info).Scan(&createdAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, &APIError{
				StatusCode: http.StatusConflict,
				Message:    fmt.Sprintf("model %q backed by %q already exists", req.Name, req.Connection.Model()),
			}
		}
		return nil, fmt.Errorf("insert model deployment: %w", err)
	}

	return &Deployment{
		ID:        id.String(),
		Name:      req.Name,
		Backend:   s.Backend(),
		CreatedAt: createdAt.UTC(),
	}, nil
}
