package httputil

import (
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeError(t *testing.T, w *httptest.ResponseRecorder) APIErrorBody {
	t.Helper()
	var resp APIError
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp.Error
}

func TestWriteError(t *testing.T) {
	w := httptest.NewRecorder()
	WriteError(w, "req_123", http.StatusBadRequest, "invalid_request_error", "bad_request", "test message")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.Equal(t, "req_123", w.Header().Get("X-Request-ID"))

	body := decodeError(t, w)
	assert.Equal(t, "test message", body.Message)
	assert.Equal(t, "invalid_request_error", body.Type)
	assert.Equal(t, "req_123", body.AegisReqID)
	assert.Empty(t, body.Kind)
}

func TestWriteAuthError(t *testing.T) {
	w := httptest.NewRecorder()
	WriteAuthError(w, "req_456", "Invalid key")

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "invalid_api_key", decodeError(t, w).Code)
}

func TestWriteCompileError(t *testing.T) {
	w := httptest.NewRecorder()
	WriteCompileError(w, "req_789", "LocalParseError", "llm_extra_params", "failed to parse llm_extra_params: unexpected EOF")

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	body := decodeError(t, w)
	assert.Equal(t, "compile_error", body.Code)
	assert.Equal(t, "LocalParseError", body.Kind)
	assert.Equal(t, "llm_extra_params", body.Field)
}

func TestWriteStatusHelpers(t *testing.T) {
	tests := []struct {
		name  string
		write func(http.ResponseWriter, string, string)
		code  int
	}{
		{"forbidden", WriteForbiddenError, http.StatusForbidden},
		{"rate limit", WriteRateLimitError, http.StatusTooManyRequests},
		{"bad request", WriteBadRequestError, http.StatusBadRequest},
		{"internal", WriteInternalError, http.StatusInternalServerError},
		{"bad gateway", WriteBadGatewayError, http.StatusBadGateway},
		{"unavailable", WriteServiceUnavailableError, http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			tt.write(w, "r", "msg")
			assert.Equal(t, tt.code, w.Code)
			assert.Equal(t, "msg", decodeError(t, w).Message)
		})
	}
}

func TestWriteJSON(t *testing.T) {
	w := httptest.NewRecorder()
	WriteJSON(w, "r", http.StatusCreated, map[string]int{"n": 1})

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "r", w.Header().Get("X-Request-ID"))
	var got map[string]int
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, 1, got["n"])
}

func TestWriteJSON_UnencodableValue(t *testing.T) {
	w := httptest.NewRecorder()
	WriteJSON(w, "req_nan", http.StatusOK, map[string]any{"input_cost_per_token": math.NaN()})

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "req_nan", decodeError(t, w).AegisReqID)
}
