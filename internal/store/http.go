package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/af-corp/aegis-admin/internal/compiler"
)

const (
	defaultTimeout    = 30 * time.Second
	defaultCreatePath = "/model/new"
	userAgent         = "aegis-admin/1"
)

// APIError is a non-2xx response from the model backend.
type APIError struct {
	StatusCode int
	Message    string
	Body       []byte
}

func (e *APIError) Error() string {
	return fmt.Sprintf("model backend error: status %d, message: %s", e.StatusCode, e.Message)
}

// Temporary reports whether the backend itself failed, as opposed to
// rejecting the payload.
func (e *APIError) Temporary() bool {
	return e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests
}

// HTTPStore posts compiled requests to the proxy's model-create endpoint.
type HTTPStore struct {
	httpClient *http.Client
	baseURL    *url.URL
	apiKey     string
	createPath string
	breaker    *CircuitBreaker
}

// HTTPOptions configures an HTTPStore. Zero values fall back to defaults.
type HTTPOptions struct {
	APIKey     string
	CreatePath string
	Timeout    time.Duration
	Breaker    *CircuitBreaker
	HTTPClient *http.Client
}

func NewHTTPStore(baseURLStr string, opts HTTPOptions) (*HTTPStore, error) {
	if strings.TrimSpace(baseURLStr) == "" {
		return nil, fmt.Errorf("baseURL cannot be empty")
	}
	parsed, err := url.ParseRequestURI(baseURLStr)
	if err != nil {
		return nil, fmt.Errorf("invalid baseURL: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("baseURL must include scheme and host")
	}

	client := opts.HTTPClient
	if client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		client = &http.Client{Timeout: timeout}
	}
	createPath := opts.CreatePath
	if createPath == "" {
		createPath = defaultCreatePath
	}
	breaker := opts.Breaker
	if breaker == nil {
		breaker = NewCircuitBreaker(0, 0)
	}

	return &HTTPStore{
		httpClient: client,
		baseURL:    parsed,
		apiKey:     opts.APIKey,
		createPath: createPath,
		breaker:    breaker,
	}, nil
}

func (s *HTTPStore) Backend() string { return "http" }

// createResponse covers both the flat and the nested model_info id shapes.
type createResponse struct {
	ModelID   string `json:"model_id"`
	ModelName string `json:"model_name"`
	ModelInfo struct {
		ID string `json:"id"`
	} `json:"model_info"`
}

// CreateModel posts req to the create endpoint.
func (s *HTTPStore) CreateModel(ctx context.Context, req compiler.CompiledRequest) (*Deployment, error) {
	if !s.breaker.Allow() {
		return nil, ErrCircuitOpen
	}

	httpReq, err := s.newRequest(ctx, http.MethodPost, s.createPath, req)
	if err != nil {
		return nil, err
	}

	var resp createResponse
	if err := s.doRequest(httpReq, &resp); err != nil {
		var apiErr *APIError
		if !errors.As(err, &apiErr) || apiErr.Temporary() {
			s.breaker.RecordFailure()
		} else {
			s.breaker.RecordSuccess()
		}
		return nil, err
	}
	s.breaker.RecordSuccess()

	id := resp.ModelID
	if id == "" {
		id = resp.ModelInfo.ID
	}
	name := resp.ModelName
	if name == "" {
		name = req.Name
	}
	return &Deployment{
		ID:        id,
		Name:      name,
		Backend:   s.Backend(),
		CreatedAt: time.Now().UTC(),
	}, nil
}

func (s *HTTPStore) newRequest(ctx context.Context, method, path string, body interface{}) (*http.Request, error) {
	relURL, err := url.Parse(path)
	if err != nil {
		return nil, fmt.Errorf("failed to parse path: %w", err)
	}
	fullURL := s.baseURL.ResolveReference(relURL)

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL.String(), reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	return req, nil
}

func (s *HTTPStore) doRequest(req *http.Request, v interface{}) error {
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Body: body}
		apiErr.Message = errorMessage(body)
		if apiErr.Message == "" {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
		return apiErr
	}

	if v != nil && len(bytes.TrimSpace(body)) > 0 {
		if err := json.Unmarshal(body, v); err != nil {
			return fmt.Errorf("failed to unmarshal response body: %w", err)
		}
	}
	return nil
}

// errorMessage extracts a readable message from a backend error body: the
// {"error":{"message":...}}, {"error":...} and {"detail":...} shapes, else
// short raw text.
func errorMessage(body []byte) string {
	if gjson.ValidBytes(body) {
		for _, path := range []string{"error.message", "error", "detail", "detail.error"} {
			if r := gjson.GetBytes(body, path); r.Type == gjson.String && r.Str != "" {
				return r.Str
			}
		}
	}
	if len(body) > 0 && len(body) < 512 {
		return strings.TrimSpace(string(body))
	}
	return ""
}
