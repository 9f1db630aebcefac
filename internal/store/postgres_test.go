package store

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRow struct {
	createdAt time.Time
	err       error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	*(dest[0].(*time.Time)) = r.createdAt
	return nil
}

type fakeQuerier struct {
	row  fakeRow
	args []any
}

func (q *fakeQuerier) QueryRow(_ context.Context, _ string, args ...any) pgx.Row {
	q.args = args
	return q.row
}

func TestPostgresStore_CreateModel(t *testing.T) {
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	q := &fakeQuerier{row: fakeRow{createdAt: created}}
	s := NewPostgresStore(q)

	dep, err := s.CreateModel(context.Background(), sampleRequest)
	require.NoError(t, err)
	assert.NotEmpty(t, dep.ID)
	assert.Equal(t, "gpt-4-custom", dep.Name)
	assert.Equal(t, "postgres", dep.Backend)
	assert.True(t, dep.CreatedAt.Equal(created), "created_at %v", dep.CreatedAt)

	require.Len(t, q.args, 6)
	assert.Equal(t, "openai/gpt-4", q.args[2])
	assert.Equal(t, "openai", q.args[3])

	var params map[string]any
	require.NoError(t, json.Unmarshal(q.args[4].([]byte), &params))
	assert.Equal(t, "openai", params["custom_llm_provider"])
}

func TestPostgresStore_UniqueViolation(t *testing.T) {
	q := &fakeQuerier{row: fakeRow{err: &pgconn.PgError{Code: "23505"}}}
	_, err := NewPostgresStore(q).CreateModel(context.Background(), sampleRequest)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusConflict, apiErr.StatusCode)
	assert.Contains(t, apiErr.Message, "gpt-4-custom")
}

func TestPostgresStore_QueryError(t *testing.T) {
	q := &fakeQuerier{row: fakeRow{err: errors.New("connection reset")}}
	_, err := NewPostgresStore(q).CreateModel(context.Background(), sampleRequest)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")

	var apiErr *APIError
	assert.False(t, errors.As(err, &apiErr), "plain database errors should not be reported as API errors")
}
