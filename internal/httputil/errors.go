package httputil

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// APIError matches the OpenAI error response format.
type APIError struct {
	Error APIErrorBody `json:"error"`
}

type APIErrorBody struct {
	Message    string `json:"message"`
	Type       string `json:"type"`
	Code       string `json:"code"`
	Kind       string `json:"kind,omitempty"`
	Field      string `json:"field,omitempty"`
	AegisReqID string `json:"aegis_request_id,omitempty"`
}

func writeBody(w http.ResponseWriter, requestID string, statusCode int, body APIErrorBody) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Request-ID", requestID)
	w.WriteHeader(statusCode)
	body.AegisReqID = requestID
	json.NewEncoder(w).Encode(APIError{Error: body})
}

func WriteError(w http.ResponseWriter, requestID string, statusCode int, errType, code, message string) {
	writeBody(w, requestID, statusCode, APIErrorBody{
		Message: message,
		Type:    errType,
		Code:    code,
	})
}

// WriteJSON writes v as a JSON response. If v cannot be encoded the failure is
// logged and a 500 envelope is written instead.
func WriteJSON(w http.ResponseWriter, requestID string, statusCode int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		slog.Error("failed to encode response", "request_id", requestID, "status", statusCode, "error", err)
		WriteInternalError(w, requestID, "Failed to encode response")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Request-ID", requestID)
	w.WriteHeader(statusCode)
	w.Write(append(data, '\n'))
}

// WriteCompileError reports a form that could not be compiled. kind and field
// let the dashboard highlight the offending input.
func WriteCompileError(w http.ResponseWriter, requestID, kind, field, message string) {
	writeBody(w, requestID, http.StatusUnprocessableEntity, APIErrorBody{
		Message: message,
		Type:    "invalid_request_error",
		Code:    "compile_error",
		Kind:    kind,
		Field:   field,
	})
}

func WriteAuthError(w http.ResponseWriter, requestID, message string) {
	WriteError(w, requestID, http.StatusUnauthorized, "authentication_error", "invalid_api_key", message)
}

func WriteForbiddenError(w http.ResponseWriter, requestID, message string) {
	WriteError(w, requestID, http.StatusForbidden, "permission_error", "forbidden", message)
}

func WriteRateLimitError(w http.ResponseWriter, requestID, message string) {
	WriteError(w, requestID, http.StatusTooManyRequests, "rate_limit_error", "rate_limit_exceeded", message)
}

func WriteBadRequestError(w http.ResponseWriter, requestID, message string) {
	WriteError(w, requestID, http.StatusBadRequest, "invalid_request_error", "invalid_request", message)
}

func WriteInternalError(w http.ResponseWriter, requestID, message string) {
	WriteError(w, requestID, http.StatusInternalServerError, "server_error", "internal_error", message)
}

// WriteBadGatewayError reports a failure returned by the model backend.
func WriteBadGatewayError(w http.ResponseWriter, requestID, message string) {
	WriteError(w, requestID, http.StatusBadGateway, "backend_error", "backend_rejected", message)
}

func WriteServiceUnavailableError(w http.ResponseWriter, requestID, message string) {
	WriteError(w, requestID, http.StatusServiceUnavailable, "server_error", "service_unavailable", message)
}
